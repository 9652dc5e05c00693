package mexc

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"

	"github.com/shopspring/decimal"
)

// contractServer serves canned responses keyed by URL path.
func contractServer(t *testing.T, responses map[string]string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := r.URL.Path
		if r.URL.RawQuery != "" {
			key += "?" + r.URL.RawQuery
		}
		body, ok := responses[key]
		if !ok {
			body, ok = responses[r.URL.Path]
		}
		if !ok {
			http.NotFound(w, r)
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
			"mexc": {
				RestURL:              serverURL,
				FundingIntervalHours: 8,
			},
		},
	}
	return NewCollector(cfg, infra.NewRESTClient(100, nil))
}

func TestCollector_FundingRates(t *testing.T) {
	server := contractServer(t, map[string]string{
		"/funding_rate": `{
			"success": true,
			"code": 0,
			"data": [
				{"symbol": "BTC_USDT", "fundingRate": 0.0001, "collectCycle": 8, "nextSettleTime": 1700000000000},
				{"symbol": "ETH_USDT", "fundingRate": -0.0002, "collectCycle": 4, "nextSettleTime": 1700000000000},
				{"symbol": "DOGE_USDT", "fundingRate": 0.0005, "collectCycle": 8, "nextSettleTime": 1700000000000}
			]
		}`,
		"/ticker": `{
			"success": true,
			"data": [
				{"symbol": "BTC_USDT", "amount24": 123456789.5},
				{"symbol": "ETH_USDT", "amount24": 0}
			]
		}`,
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
	if btc.Symbol != "BTC" || btc.Exchange != domain.ExchangeMEXC {
		t.Errorf("unexpected identity %s/%s", btc.Exchange, btc.Symbol)
	}
	if !btc.Rate.Equal(decimal.RequireFromString("0.0001")) {
		t.Errorf("rate = %s, want 0.0001", btc.Rate)
	}
	// The payload's collectCycle wins over the configured default
	if rates[1].IntervalHours != 4 {
		t.Errorf("ETH interval = %d, want payload collectCycle 4", rates[1].IntervalHours)
	}
	if btc.Volume24h == nil || !btc.Volume24h.Equal(decimal.RequireFromString("123456789.5")) {
		t.Errorf("unexpected volume %v", btc.Volume24h)
	}
	// Zero ticker volume is not enrichment
	if rates[1].Volume24h != nil {
		t.Errorf("expected nil volume for ETH, got %v", rates[1].Volume24h)
	}
}

func TestCollector_FundingRates_TickerFailureIsNotFatal(t *testing.T) {
	server := contractServer(t, map[string]string{
		"/funding_rate": `{
			"success": true,
			"code": 0,
			"data": [{"symbol": "BTC_USDT", "fundingRate": 0.0001, "collectCycle": 8}]
		}`,
		// no /ticker: the volume fetch 404s
	})

	c := testCollector(t, server.URL)
	rates, err := c.FundingRates(context.Background(), []string{"BTC"})
	if err != nil {
		t.Fatalf("FundingRates failed: %v", err)
	}
	if len(rates) != 1 {
		t.Fatalf("expected 1 rate, got %d", len(rates))
	}
	if rates[0].Volume24h != nil {
		t.Errorf("expected nil volume, got %v", rates[0].Volume24h)
	}
}

func TestCollector_FundingRates_Unsuccessful(t *testing.T) {
	server := contractServer(t, map[string]string{
		"/funding_rate": `{"success": false, "code": 510, "data": []}`,
	})

	c := testCollector(t, server.URL)
	if _, err := c.FundingRates(context.Background(), []string{"BTC"}); err == nil {
		t.Fatal("expected error for unsuccessful response")
	}
}

func TestCollector_FundingHistory(t *testing.T) {
	server := contractServer(t, map[string]string{
		"/funding_rate/BTC_USDT": `{
			"success": true,
			"data": {"symbol": "BTC_USDT", "fundingRate": 0.0001, "collectCycle": 8}
		}`,
		"/funding_rate/history?symbol=BTC_USDT&page_num=1&page_size=100": `{
			"success": true,
			"data": {
				"totalPageNum": 1,
				"resultList": [
					{"symbol": "BTC_USDT", "fundingRate": 0.00012, "settleTime": 1700006400000},
					{"symbol": "BTC_USDT", "fundingRate": 0.00011, "settleTime": 1699977600000},
					{"symbol": "BTC_USDT", "fundingRate": 0.00010, "settleTime": 1699948800000}
				]
			}
		}`,
	})

	c := testCollector(t, server.URL)
	// Window covers only the two newest settlements
	start := time.UnixMilli(1699977600000)
	history, err := c.FundingHistory(context.Background(), "BTC", start, time.UnixMilli(1700100000000))
	if err != nil {
		t.Fatalf("FundingHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected 2 settlements in window, got %d", len(history))
	}
	if history[0].Timestamp.UnixMilli() != 1700006400000 {
		t.Errorf("unexpected first timestamp %v", history[0].Timestamp)
	}
	if history[0].IntervalHours != 8 {
		t.Errorf("interval = %d, want 8", history[0].IntervalHours)
	}
}

func TestCollector_SymbolsAndMetadata(t *testing.T) {
	server := contractServer(t, map[string]string{
		"/detail": `{
			"success": true,
			"data": [
				{"symbol": "BTC_USDT"},
				{"symbol": "ETH_USDT"},
				{"symbol": "BTC_USDC"}
			]
		}`,
		"/detail?symbol=BTC_USDT": `{
			"success": true,
			"data": {"symbol": "BTC_USDT", "priceUnit": 0.1, "priceScale": 1, "volScale": 4}
		}`,
	})

	c := testCollector(t, server.URL)

	symbols, err := c.Symbols(context.Background())
	if err != nil {
		t.Fatalf("Symbols failed: %v", err)
	}
	// Non-USDT contracts are excluded
	if len(symbols) != 2 || symbols[0] != "BTC" || symbols[1] != "ETH" {
		t.Errorf("unexpected symbols %v", symbols)
	}

	meta, err := c.Metadata(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if meta.PricePrecision != 1 || meta.QuantityPrecision != 4 {
		t.Errorf("unexpected precision %d/%d", meta.PricePrecision, meta.QuantityPrecision)
	}
	if !meta.TickSize.Equal(decimal.RequireFromString("0.1")) {
		t.Errorf("tick size = %s, want 0.1", meta.TickSize)
	}
}
