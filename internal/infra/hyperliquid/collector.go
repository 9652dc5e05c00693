package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"

	"github.com/shopspring/decimal"
)

// Hyperliquid reports predicted funding per venue in a nested
// positional-array format and pays funding every hour on most
// listings. The normalized symbol is the native coin name, so symbol
// translation is the identity.
type Collector struct {
	cfg    *infra.Config
	rest   *infra.RESTClient
	apiURL string
}

func NewCollector(cfg *infra.Config, rest *infra.RESTClient) *Collector {
	return &Collector{
		cfg:    cfg,
		rest:   rest,
		apiURL: cfg.Exchange(domain.ExchangeHyperliquid).RestURL,
	}
}

func (c *Collector) Name() string { return domain.ExchangeHyperliquid }

// NativeSymbol converts a normalized symbol to Hyperliquid's format.
func NativeSymbol(symbol string) string { return symbol }

// NormalizedSymbol converts a native Hyperliquid coin to the normalized form.
func NormalizedSymbol(native string) string { return native }

// predictedVenue is the per-venue leg inside a predictedFundings entry.
type predictedVenue struct {
	FundingRate          string `json:"fundingRate"`
	NextFundingTime      int64  `json:"nextFundingTime"`
	FundingIntervalHours int    `json:"fundingIntervalHours"`
}

// FundingRates fetches predicted funding via the info endpoint. The
// response shape is [[coin, [[venue, {...}], ...]], ...]; only the
// HlPerp leg is Hyperliquid's own book.
func (c *Collector) FundingRates(ctx context.Context, symbols []string) ([]domain.FundingRate, error) {
	var raw []json.RawMessage
	payload := map[string]string{"type": "predictedFundings"}
	if err := c.rest.PostJSON(ctx, c.apiURL, payload, &raw); err != nil {
		return nil, domain.NewNetworkError("fetch predicted fundings", err)
	}

	wanted := make(map[string]struct{}, len(symbols))
	for _, s := range symbols {
		wanted[s] = struct{}{}
	}

	rates := make([]domain.FundingRate, 0, len(symbols))
	for _, item := range raw {
		var entry []json.RawMessage
		if json.Unmarshal(item, &entry) != nil || len(entry) < 2 {
			continue
		}
		var coin string
		if json.Unmarshal(entry[0], &coin) != nil {
			continue
		}
		if _, ok := wanted[NormalizedSymbol(coin)]; !ok {
			continue
		}

		var venues []json.RawMessage
		if json.Unmarshal(entry[1], &venues) != nil {
			continue
		}
		for _, v := range venues {
			var leg []json.RawMessage
			if json.Unmarshal(v, &leg) != nil || len(leg) < 2 {
				continue
			}
			var venue string
			if json.Unmarshal(leg[0], &venue) != nil || venue != "HlPerp" {
				continue
			}
			var data predictedVenue
			if json.Unmarshal(leg[1], &data) != nil {
				continue
			}
			rate, err := decimal.NewFromString(data.FundingRate)
			if err != nil {
				continue
			}

			var next *time.Time
			if data.NextFundingTime > 0 {
				t := time.UnixMilli(data.NextFundingTime)
				next = &t
			}

			rates = append(rates, infra.NormalizeFundingRate(c.cfg, c.Name(), NormalizedSymbol(coin), infra.RawFunding{
				Rate:            rate,
				IntervalHours:   data.FundingIntervalHours,
				Timestamp:       time.Now(),
				NextFundingTime: next,
			}))
			break
		}
	}
	return rates, nil
}

// FundingHistory returns settled hourly funding for one symbol.
func (c *Collector) FundingHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.FundingRate, error) {
	payload := map[string]any{
		"type":      "fundingHistory",
		"coin":      NativeSymbol(symbol),
		"startTime": start.UnixMilli(),
	}
	if !end.IsZero() {
		payload["endTime"] = end.UnixMilli()
	}

	var raw []struct {
		Coin        string `json:"coin"`
		FundingRate string `json:"fundingRate"`
		Premium     string `json:"premium"`
		Time        int64  `json:"time"`
	}
	if err := c.rest.PostJSON(ctx, c.apiURL, payload, &raw); err != nil {
		return nil, domain.NewNetworkError("fetch funding history", err)
	}

	rates := make([]domain.FundingRate, 0, len(raw))
	for _, item := range raw {
		rate, err := decimal.NewFromString(item.FundingRate)
		if err != nil {
			continue
		}
		var premium *decimal.Decimal
		if p, err := decimal.NewFromString(item.Premium); err == nil {
			premium = &p
		}
		rates = append(rates, infra.NormalizeFundingRate(c.cfg, c.Name(), NormalizedSymbol(item.Coin), infra.RawFunding{
			Rate:      rate,
			Timestamp: time.UnixMilli(item.Time),
			Premium:   premium,
		}))
	}
	return rates, nil
}

// metaResponse is the asset universe returned by {"type":"meta"}.
type metaResponse struct {
	Universe []struct {
		Name       string `json:"name"`
		SzDecimals int    `json:"szDecimals"`
	} `json:"universe"`
}

// Symbols lists all perpetual coins in the asset universe.
func (c *Collector) Symbols(ctx context.Context) ([]string, error) {
	meta, err := c.fetchMeta(ctx)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(meta.Universe))
	for _, asset := range meta.Universe {
		symbols = append(symbols, NormalizedSymbol(asset.Name))
	}
	return symbols, nil
}

func (c *Collector) fetchMeta(ctx context.Context) (*metaResponse, error) {
	var meta metaResponse
	if err := c.rest.PostJSON(ctx, c.apiURL, map[string]string{"type": "meta"}, &meta); err != nil {
		return nil, domain.NewNetworkError("fetch meta", err)
	}
	return &meta, nil
}

// Metadata returns tick size and precision for one symbol.
// Hyperliquid reports a single szDecimals for both price and quantity.
func (c *Collector) Metadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	meta, err := c.fetchMeta(ctx)
	if err != nil {
		return nil, err
	}
	native := NativeSymbol(symbol)
	for _, asset := range meta.Universe {
		if asset.Name != native {
			continue
		}
		return &domain.SymbolMetadata{
			Symbol:            symbol,
			Exchange:          c.Name(),
			TickSize:          decimal.New(1, int32(-asset.SzDecimals)),
			PricePrecision:    asset.SzDecimals,
			QuantityPrecision: asset.SzDecimals,
		}, nil
	}
	return nil, fmt.Errorf("%w: %s not in universe", domain.ErrInvalidSymbol, symbol)
}
