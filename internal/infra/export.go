package infra

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"funding_go/internal/domain"

	"github.com/shopspring/decimal"
)

const (
	ratesFilename         = "current_funding_rates.json"
	opportunitiesFilename = "arbitrage_opportunities.json"
)

var oneHundred = decimal.NewFromInt(100)

func init() {
	// Downstream consumers parse rates as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Exporter writes collection results as JSON files consumed by
// external tooling. Field names and formatting are a stable contract.
type Exporter struct {
	dir string
}

func NewExporter(dir string) *Exporter {
	return &Exporter{dir: dir}
}

type ratesExportEntry struct {
	Symbol             string          `json:"symbol"`
	Exchange           string          `json:"exchange"`
	FundingRate        decimal.Decimal `json:"funding_rate"`
	FundingRatePercent string          `json:"funding_rate_percent"`
	Timestamp          time.Time       `json:"timestamp"`
	NextFundingTime    *time.Time      `json:"next_funding_time"`
}

// ExportFundingRates writes the current rates sorted by symbol then
// exchange. Returns the written file path.
func (e *Exporter) ExportFundingRates(rates []domain.FundingRate) (string, error) {
	sorted := make([]domain.FundingRate, len(rates))
	copy(sorted, rates)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Symbol != sorted[j].Symbol {
			return sorted[i].Symbol < sorted[j].Symbol
		}
		return sorted[i].Exchange < sorted[j].Exchange
	})

	entries := make([]ratesExportEntry, 0, len(sorted))
	for _, r := range sorted {
		entries = append(entries, ratesExportEntry{
			Symbol:             r.Symbol,
			Exchange:           r.Exchange,
			FundingRate:        r.Rate,
			FundingRatePercent: r.Rate.Mul(oneHundred).StringFixed(4) + "%",
			Timestamp:          r.Timestamp,
			NextFundingTime:    r.NextFundingTime,
		})
	}
	return e.write(ratesFilename, entries)
}

type opportunityExportEntry struct {
	Symbol string `json:"symbol"`

	LongExchange      string           `json:"long_exchange"`
	LongRateHourly    decimal.Decimal  `json:"long_rate_hourly"`
	LongRateInterval  decimal.Decimal  `json:"long_rate_interval"`
	LongIntervalHours int              `json:"long_funding_interval_hours"`
	LongMakerFee      *decimal.Decimal `json:"long_maker_fee"`
	LongTakerFee      *decimal.Decimal `json:"long_taker_fee"`

	ShortExchange      string           `json:"short_exchange"`
	ShortRateHourly    decimal.Decimal  `json:"short_rate_hourly"`
	ShortRateInterval  decimal.Decimal  `json:"short_rate_interval"`
	ShortIntervalHours int              `json:"short_funding_interval_hours"`
	ShortMakerFee      *decimal.Decimal `json:"short_maker_fee"`
	ShortTakerFee      *decimal.Decimal `json:"short_taker_fee"`

	RateDifference       decimal.Decimal `json:"rate_difference"`
	AnnualReturnEstimate string          `json:"annual_return_estimate"`
	Timestamp            time.Time       `json:"timestamp"`
}

// ExportOpportunities writes the full opportunity list. The annual
// return is a preformatted percent string, e.g. "197.10%".
func (e *Exporter) ExportOpportunities(opps []domain.ArbitrageOpportunity) (string, error) {
	entries := make([]opportunityExportEntry, 0, len(opps))
	for _, o := range opps {
		entries = append(entries, opportunityExportEntry{
			Symbol: o.Symbol,

			LongExchange:      o.LongExchange,
			LongRateHourly:    o.LongRateHourly,
			LongRateInterval:  o.LongRateInterval,
			LongIntervalHours: o.LongIntervalHours,
			LongMakerFee:      o.LongMakerFee,
			LongTakerFee:      o.LongTakerFee,

			ShortExchange:      o.ShortExchange,
			ShortRateHourly:    o.ShortRateHourly,
			ShortRateInterval:  o.ShortRateInterval,
			ShortIntervalHours: o.ShortIntervalHours,
			ShortMakerFee:      o.ShortMakerFee,
			ShortTakerFee:      o.ShortTakerFee,

			RateDifference:       o.RateDifference,
			AnnualReturnEstimate: o.AnnualReturn().Mul(oneHundred).StringFixed(2) + "%",
			Timestamp:            o.Timestamp,
		})
	}
	return e.write(opportunitiesFilename, entries)
}

func (e *Exporter) write(filename string, payload any) (string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal %s: %w", filename, err)
	}

	path := filepath.Join(e.dir, filename)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}
