package aster

import (
	"context"
	"fmt"
	"strings"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"

	"github.com/shopspring/decimal"
)

const (
	premiumIndexPath = "/fapi/v1/premiumIndex"
	fundingRatePath  = "/fapi/v1/fundingRate"
	exchangeInfoPath = "/fapi/v3/exchangeInfo"

	historyLimit = 1000
)

// Aster exposes a Binance-style futures API. Funding cadence is not on
// the wire: most listings settle every 8h but dozens run 4h and a few
// 1h or 2h, so the interval comes from the per-symbol config table.
type Collector struct {
	cfg     *infra.Config
	rest    *infra.RESTClient
	apiBase string
}

func NewCollector(cfg *infra.Config, rest *infra.RESTClient) *Collector {
	return &Collector{
		cfg:     cfg,
		rest:    rest,
		apiBase: cfg.Exchange(domain.ExchangeAster).RestURL,
	}
}

func (c *Collector) Name() string { return domain.ExchangeAster }

// NativeSymbol converts a normalized symbol to Aster's format
// (BTC -> BTCUSDT).
func NativeSymbol(symbol string) string {
	return strings.ToUpper(symbol) + "USDT"
}

// NormalizedSymbol strips the USDT suffix. Empty result means the
// native symbol is not a USDT perpetual.
func NormalizedSymbol(native string) string {
	if !strings.HasSuffix(native, "USDT") {
		return ""
	}
	return strings.TrimSuffix(native, "USDT")
}

type premiumIndexEntry struct {
	Symbol          string          `json:"symbol"`
	LastFundingRate decimal.Decimal `json:"lastFundingRate"`
	NextFundingTime int64           `json:"nextFundingTime"`
	Time            int64           `json:"time"`
}

// FundingRates fetches the full premium index and filters for the
// requested symbols.
func (c *Collector) FundingRates(ctx context.Context, symbols []string) ([]domain.FundingRate, error) {
	var entries []premiumIndexEntry
	if err := c.rest.GetJSON(ctx, c.apiBase+premiumIndexPath, &entries); err != nil {
		return nil, domain.NewNetworkError("fetch premium index", err)
	}

	byNative := make(map[string]premiumIndexEntry, len(entries))
	for _, entry := range entries {
		byNative[entry.Symbol] = entry
	}

	rates := make([]domain.FundingRate, 0, len(symbols))
	for _, symbol := range symbols {
		entry, ok := byNative[NativeSymbol(symbol)]
		if !ok {
			continue
		}

		var next *time.Time
		if entry.NextFundingTime > 0 {
			t := time.UnixMilli(entry.NextFundingTime)
			next = &t
		}

		rates = append(rates, infra.NormalizeFundingRate(c.cfg, c.Name(), symbol, infra.RawFunding{
			Rate:            entry.LastFundingRate,
			Timestamp:       time.UnixMilli(entry.Time),
			NextFundingTime: next,
		}))
	}
	return rates, nil
}

// FundingHistory returns settled funding for one symbol.
func (c *Collector) FundingHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.FundingRate, error) {
	url := fmt.Sprintf("%s%s?symbol=%s&limit=%d",
		c.apiBase, fundingRatePath, NativeSymbol(symbol), historyLimit)
	if !start.IsZero() {
		url += fmt.Sprintf("&startTime=%d", start.UnixMilli())
	}
	if !end.IsZero() {
		url += fmt.Sprintf("&endTime=%d", end.UnixMilli())
	}

	var entries []struct {
		Symbol      string          `json:"symbol"`
		FundingRate decimal.Decimal `json:"fundingRate"`
		FundingTime int64           `json:"fundingTime"`
	}
	if err := c.rest.GetJSON(ctx, url, &entries); err != nil {
		return nil, domain.NewNetworkError("fetch funding history", err)
	}

	rates := make([]domain.FundingRate, 0, len(entries))
	for _, entry := range entries {
		rates = append(rates, infra.NormalizeFundingRate(c.cfg, c.Name(), symbol, infra.RawFunding{
			Rate:      entry.FundingRate,
			Timestamp: time.UnixMilli(entry.FundingTime),
		}))
	}
	return rates, nil
}

type exchangeInfo struct {
	Symbols []struct {
		Symbol  string `json:"symbol"`
		Status  string `json:"status"`
		Filters []struct {
			FilterType string `json:"filterType"`
			TickSize   string `json:"tickSize"`
			StepSize   string `json:"stepSize"`
		} `json:"filters"`
	} `json:"symbols"`
}

// Symbols lists all trading USDT perpetuals.
func (c *Collector) Symbols(ctx context.Context) ([]string, error) {
	info, err := c.fetchExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(info.Symbols))
	for _, s := range info.Symbols {
		if s.Status != "" && s.Status != "TRADING" {
			continue
		}
		if normalized := NormalizedSymbol(s.Symbol); normalized != "" {
			symbols = append(symbols, normalized)
		}
	}
	return symbols, nil
}

func (c *Collector) fetchExchangeInfo(ctx context.Context) (*exchangeInfo, error) {
	var info exchangeInfo
	if err := c.rest.GetJSON(ctx, c.apiBase+exchangeInfoPath, &info); err != nil {
		return nil, domain.NewNetworkError("fetch exchange info", err)
	}
	return &info, nil
}

// Metadata extracts tick/step precision from the symbol's filters.
func (c *Collector) Metadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	info, err := c.fetchExchangeInfo(ctx)
	if err != nil {
		return nil, err
	}

	native := NativeSymbol(symbol)
	for _, s := range info.Symbols {
		if s.Symbol != native {
			continue
		}

		meta := &domain.SymbolMetadata{
			Symbol:            symbol,
			Exchange:          c.Name(),
			TickSize:          decimal.New(1, -2), // 0.01 unless PRICE_FILTER says otherwise
			PricePrecision:    2,
			QuantityPrecision: 8,
		}
		for _, f := range s.Filters {
			switch f.FilterType {
			case "PRICE_FILTER":
				if tick, err := decimal.NewFromString(f.TickSize); err == nil {
					meta.TickSize = tick
					meta.PricePrecision = domain.PrecisionFromStep(f.TickSize)
				}
			case "LOT_SIZE":
				if f.StepSize != "" {
					meta.QuantityPrecision = domain.PrecisionFromStep(f.StepSize)
				}
			}
		}
		return meta, nil
	}
	return nil, fmt.Errorf("%w: %s not listed", domain.ErrInvalidSymbol, symbol)
}
