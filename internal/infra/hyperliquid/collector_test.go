package hyperliquid

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"

	"github.com/shopspring/decimal"
)

// infoServer dispatches on the request "type" like the real info
// endpoint does.
func infoServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		reqType, _ := req["type"].(string)
		body, ok := responses[reqType]
		if !ok {
			http.Error(w, "unknown type", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func testCollector(t *testing.T, serverURL string) *Collector {
	t.Helper()
	cfg := &infra.Config{
		Exchanges: map[string]*infra.ExchangeConfig{
			"hyperliquid": {
				RestURL:              serverURL,
				FundingIntervalHours: 1,
			},
		},
	}
	return NewCollector(cfg, infra.NewRESTClient(100, nil))
}

func TestCollector_FundingRates(t *testing.T) {
	server := infoServer(t, map[string]string{
		"predictedFundings": `[
			["BTC", [
				["BinPerp", {"fundingRate": "0.0001", "nextFundingTime": 1700000000000}],
				["HlPerp", {"fundingRate": "0.0000125", "nextFundingTime": 1700000000000, "fundingIntervalHours": 1}]
			]],
			["ETH", [
				["HlPerp", {"fundingRate": "-0.0002", "nextFundingTime": 1700000000000, "fundingIntervalHours": 1}]
			]],
			["DOGE", [
				["HlPerp", {"fundingRate": "0.0005", "nextFundingTime": 1700000000000, "fundingIntervalHours": 1}]
			]]
		]`,
	})

	c := testCollector(t, server.URL)
	rates, err := c.FundingRates(context.Background(), []string{"BTC", "ETH"})
	if err != nil {
		t.Fatalf("FundingRates failed: %v", err)
	}
	if len(rates) != 2 {
		t.Fatalf("expected 2 rates, got %d", len(rates))
	}

	btc := rates[0]
	if btc.Symbol != "BTC" || btc.Exchange != domain.ExchangeHyperliquid {
		t.Errorf("unexpected identity %s/%s", btc.Exchange, btc.Symbol)
	}
	// Only the HlPerp leg counts, never the other venues
	if !btc.Rate.Equal(decimal.RequireFromString("0.0000125")) {
		t.Errorf("rate = %s, want the HlPerp leg 0.0000125", btc.Rate)
	}
	if btc.IntervalHours != 1 {
		t.Errorf("interval = %d, want 1", btc.IntervalHours)
	}
	if btc.NextFundingTime == nil || btc.NextFundingTime.UnixMilli() != 1700000000000 {
		t.Errorf("unexpected next funding time %v", btc.NextFundingTime)
	}

	if rates[1].Symbol != "ETH" || !rates[1].Rate.Equal(decimal.RequireFromString("-0.0002")) {
		t.Errorf("unexpected ETH rate %v", rates[1])
	}
}

func TestCollector_FundingHistory(t *testing.T) {
	server := infoServer(t, map[string]string{
		"fundingHistory": `[
			{"coin": "BTC", "fundingRate": "0.0000125", "premium": "0.00001", "time": 1700000000000},
			{"coin": "BTC", "fundingRate": "0.0000130", "premium": "0.00002", "time": 1700003600000}
		]`,
	})

	c := testCollector(t, server.URL)
	history, err := c.FundingHistory(context.Background(), "BTC", time.UnixMilli(1699990000000), time.UnixMilli(1700010000000))
	if err != nil {
		t.Fatalf("FundingHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 settlements, got %d", len(history))
	}
	if history[0].Timestamp.UnixMilli() != 1700000000000 {
		t.Errorf("unexpected timestamp %v", history[0].Timestamp)
	}
	if history[0].Premium == nil || !history[0].Premium.Equal(decimal.RequireFromString("0.00001")) {
		t.Errorf("unexpected premium %v", history[0].Premium)
	}
}

func TestCollector_SymbolsAndMetadata(t *testing.T) {
	server := infoServer(t, map[string]string{
		"meta": `{"universe": [
			{"name": "BTC", "szDecimals": 5},
			{"name": "ETH", "szDecimals": 4}
		]}`,
	})

	c := testCollector(t, server.URL)

	symbols, err := c.Symbols(context.Background())
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	if len(symbols) != 2 || symbols[0] != "BTC" || symbols[1] != "ETH" {
		t.Errorf("unexpected symbols %v", symbols)
	}

	meta, err := c.Metadata(context.Background(), "ETH")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if meta.PricePrecision != 4 {
		t.Errorf("precision = %d, want 4", meta.PricePrecision)
	}
	if !meta.TickSize.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("tick size = %s, want 0.0001", meta.TickSize)
	}

	if _, err := c.Metadata(context.Background(), "NOPE"); !errors.Is(err, domain.ErrInvalidSymbol) {
		t.Errorf("expected ErrInvalidSymbol, got %v", err)
	}
}
