package mexc

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"

	"github.com/shopspring/decimal"
)

const (
	fundingPath = "/funding_rate"
	historyPath = "/funding_rate/history"
	tickerPath  = "/ticker"
	detailPath  = "/detail"

	historyPageSize = 100
	maxHistoryPages = 50
)

// MEXC contract API. Funding cadence rides on each payload as
// collectCycle; 24h volume comes from a separate ticker endpoint that
// is strictly best-effort enrichment.
type Collector struct {
	cfg     *infra.Config
	rest    *infra.RESTClient
	apiBase string
}

func NewCollector(cfg *infra.Config, rest *infra.RESTClient) *Collector {
	return &Collector{
		cfg:     cfg,
		rest:    rest,
		apiBase: cfg.Exchange(domain.ExchangeMEXC).RestURL,
	}
}

func (c *Collector) Name() string { return domain.ExchangeMEXC }

// NativeSymbol converts a normalized symbol to MEXC contract format
// (BTC -> BTC_USDT).
func NativeSymbol(symbol string) string {
	return strings.ToUpper(symbol) + "_USDT"
}

// NormalizedSymbol strips the USDT-perpetual suffix. Empty result
// means the native symbol is not a USDT perpetual.
func NormalizedSymbol(native string) string {
	if !strings.HasSuffix(native, "_USDT") {
		return ""
	}
	return strings.TrimSuffix(native, "_USDT")
}

type fundingEntry struct {
	Symbol         string          `json:"symbol"`
	FundingRate    decimal.Decimal `json:"fundingRate"`
	CollectCycle   int             `json:"collectCycle"`
	NextSettleTime int64           `json:"nextSettleTime"`
	Timestamp      int64           `json:"timestamp"`
}

type fundingResponse struct {
	Success bool           `json:"success"`
	Code    int            `json:"code"`
	Data    []fundingEntry `json:"data"`
}

type tickerResponse struct {
	Success bool `json:"success"`
	Data    []struct {
		Symbol   string          `json:"symbol"`
		Amount24 decimal.Decimal `json:"amount24"`
	} `json:"data"`
}

// FundingRates fetches all contract funding rates plus 24h volume.
// A ticker failure only costs the volume enrichment; the funding data
// path is unaffected.
func (c *Collector) FundingRates(ctx context.Context, symbols []string) ([]domain.FundingRate, error) {
	var funding fundingResponse
	if err := c.rest.GetJSON(ctx, c.apiBase+fundingPath, &funding); err != nil {
		return nil, domain.NewNetworkError("fetch funding rates", err)
	}
	if !funding.Success || len(funding.Data) == 0 {
		return nil, fmt.Errorf("funding rate response unsuccessful (code %d)", funding.Code)
	}

	bySymbol := make(map[string]fundingEntry, len(funding.Data))
	for _, item := range funding.Data {
		if normalized := NormalizedSymbol(item.Symbol); normalized != "" {
			bySymbol[normalized] = item
		}
	}

	volumes := c.fetchVolumes(ctx)

	rates := make([]domain.FundingRate, 0, len(symbols))
	for _, symbol := range symbols {
		entry, ok := bySymbol[symbol]
		if !ok {
			continue
		}

		var next *time.Time
		if entry.NextSettleTime > 0 {
			t := time.UnixMilli(entry.NextSettleTime)
			next = &t
		}
		var volume *decimal.Decimal
		if v, ok := volumes[symbol]; ok {
			volume = &v
		}

		rates = append(rates, infra.NormalizeFundingRate(c.cfg, c.Name(), symbol, infra.RawFunding{
			Rate:            entry.FundingRate,
			IntervalHours:   entry.CollectCycle,
			Timestamp:       time.Now(),
			NextFundingTime: next,
			Volume24h:       volume,
		}))
	}
	return rates, nil
}

// fetchVolumes returns 24h quote volume per normalized symbol.
// Failures degrade to an empty map.
func (c *Collector) fetchVolumes(ctx context.Context) map[string]decimal.Decimal {
	var ticker tickerResponse
	if err := c.rest.GetJSON(ctx, c.apiBase+tickerPath, &ticker); err != nil {
		slog.Warn("MEXC ticker fetch failed, volume unavailable", slog.Any("error", err))
		return nil
	}
	if !ticker.Success {
		return nil
	}

	volumes := make(map[string]decimal.Decimal, len(ticker.Data))
	for _, item := range ticker.Data {
		normalized := NormalizedSymbol(item.Symbol)
		if normalized == "" || !item.Amount24.IsPositive() {
			continue
		}
		volumes[normalized] = item.Amount24
	}
	return volumes
}

type historyResponse struct {
	Success bool `json:"success"`
	Data    struct {
		TotalPageNum int `json:"totalPageNum"`
		ResultList   []struct {
			Symbol      string          `json:"symbol"`
			FundingRate decimal.Decimal `json:"fundingRate"`
			SettleTime  int64           `json:"settleTime"`
		} `json:"resultList"`
	} `json:"data"`
}

// FundingHistory pages backwards through settled rates, newest first,
// stopping once entries fall before the start of the window.
func (c *Collector) FundingHistory(ctx context.Context, symbol string, start, end time.Time) ([]domain.FundingRate, error) {
	native := NativeSymbol(symbol)
	interval := c.currentInterval(ctx, native, symbol)

	var rates []domain.FundingRate
	for page := 1; page <= maxHistoryPages; page++ {
		url := fmt.Sprintf("%s%s?symbol=%s&page_num=%d&page_size=%d",
			c.apiBase, historyPath, native, page, historyPageSize)

		var resp historyResponse
		if err := c.rest.GetJSON(ctx, url, &resp); err != nil {
			return nil, domain.NewNetworkError("fetch funding history", err)
		}
		if !resp.Success || len(resp.Data.ResultList) == 0 {
			break
		}

		for _, item := range resp.Data.ResultList {
			settled := time.UnixMilli(item.SettleTime)
			if settled.Before(start) {
				return rates, nil
			}
			if !end.IsZero() && settled.After(end) {
				continue
			}
			rates = append(rates, infra.NormalizeFundingRate(c.cfg, c.Name(), symbol, infra.RawFunding{
				Rate:          item.FundingRate,
				IntervalHours: interval,
				Timestamp:     settled,
			}))
		}

		if page >= resp.Data.TotalPageNum {
			break
		}
	}
	return rates, nil
}

// currentInterval looks up the live collectCycle for a contract,
// falling back to the configured interval when the call fails.
func (c *Collector) currentInterval(ctx context.Context, native, symbol string) int {
	var resp struct {
		Success bool         `json:"success"`
		Data    fundingEntry `json:"data"`
	}
	if err := c.rest.GetJSON(ctx, c.apiBase+fundingPath+"/"+native, &resp); err == nil &&
		resp.Success && resp.Data.CollectCycle > 0 {
		return resp.Data.CollectCycle
	}
	return c.cfg.FundingInterval(c.Name(), symbol)
}

// Symbols lists all USDT perpetual contracts.
func (c *Collector) Symbols(ctx context.Context) ([]string, error) {
	var resp struct {
		Success bool `json:"success"`
		Data    []struct {
			Symbol string `json:"symbol"`
		} `json:"data"`
	}
	if err := c.rest.GetJSON(ctx, c.apiBase+detailPath, &resp); err != nil {
		return nil, domain.NewNetworkError("fetch contract details", err)
	}
	if !resp.Success {
		return nil, fmt.Errorf("contract detail response unsuccessful")
	}

	symbols := make([]string, 0, len(resp.Data))
	for _, item := range resp.Data {
		if normalized := NormalizedSymbol(item.Symbol); normalized != "" {
			symbols = append(symbols, normalized)
		}
	}
	return symbols, nil
}

// Metadata returns price/quantity precision for one contract.
func (c *Collector) Metadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error) {
	native := NativeSymbol(symbol)
	var resp struct {
		Success bool `json:"success"`
		Data    struct {
			Symbol     string          `json:"symbol"`
			PriceUnit  decimal.Decimal `json:"priceUnit"`
			PriceScale int             `json:"priceScale"`
			VolScale   int             `json:"volScale"`
		} `json:"data"`
	}
	if err := c.rest.GetJSON(ctx, c.apiBase+detailPath+"?symbol="+native, &resp); err != nil {
		return nil, domain.NewNetworkError("fetch contract detail", err)
	}
	if !resp.Success || resp.Data.Symbol == "" {
		return nil, fmt.Errorf("%w: %s not listed", domain.ErrInvalidSymbol, symbol)
	}

	return &domain.SymbolMetadata{
		Symbol:            symbol,
		Exchange:          c.Name(),
		TickSize:          resp.Data.PriceUnit,
		PricePrecision:    resp.Data.PriceScale,
		QuantityPrecision: resp.Data.VolScale,
	}, nil
}
