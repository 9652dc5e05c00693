package infra

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"funding_go/internal/domain"

	"github.com/shopspring/decimal"
)

func TestExportFundingRates(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir)

	rates := []domain.FundingRate{
		{
			Exchange:      domain.ExchangeMEXC,
			Symbol:        "ETH",
			Rate:          decimal.RequireFromString("0.0001"),
			IntervalHours: 8,
			Timestamp:     time.Now(),
		},
		{
			Exchange:      domain.ExchangeHyperliquid,
			Symbol:        "BTC",
			Rate:          decimal.RequireFromString("0.0000125"),
			IntervalHours: 1,
			Timestamp:     time.Now(),
		},
		{
			Exchange:      domain.ExchangeAster,
			Symbol:        "ETH",
			Rate:          decimal.RequireFromString("-0.0002"),
			IntervalHours: 8,
			Timestamp:     time.Now(),
		},
	}

	path, err := exporter.ExportFundingRates(rates)
	if err != nil {
		t.Fatalf("ExportFundingRates failed: %v", err)
	}
	if filepath.Base(path) != "current_funding_rates.json" {
		t.Errorf("unexpected filename %q", path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	// Sorted by symbol then exchange
	if entries[0]["symbol"] != "BTC" {
		t.Errorf("expected BTC first, got %v", entries[0]["symbol"])
	}
	if entries[1]["exchange"] != domain.ExchangeAster || entries[2]["exchange"] != domain.ExchangeMEXC {
		t.Errorf("ETH entries not sorted by exchange: %v, %v", entries[1]["exchange"], entries[2]["exchange"])
	}

	if entries[0]["funding_rate_percent"] != "0.0013%" {
		t.Errorf("unexpected funding_rate_percent %v", entries[0]["funding_rate_percent"])
	}
	if entries[0]["funding_rate"] != 0.0000125 {
		t.Errorf("funding_rate should be a JSON number, got %v", entries[0]["funding_rate"])
	}
	if _, ok := entries[0]["next_funding_time"]; !ok {
		t.Error("next_funding_time key must be present even when null")
	}
}

func TestExportOpportunities(t *testing.T) {
	dir := t.TempDir()
	exporter := NewExporter(dir)

	maker := decimal.RequireFromString("0.0001")
	opps := []domain.ArbitrageOpportunity{
		{
			Symbol:             "ETH",
			LongExchange:       domain.ExchangeHyperliquid,
			LongRateHourly:     decimal.RequireFromString("-0.0001"),
			LongRateInterval:   decimal.RequireFromString("-0.0001"),
			LongIntervalHours:  1,
			LongMakerFee:       &maker,
			ShortExchange:      domain.ExchangeMEXC,
			ShortRateHourly:    decimal.RequireFromString("0.000125"),
			ShortRateInterval:  decimal.RequireFromString("0.001"),
			ShortIntervalHours: 8,
			RateDifference:     decimal.RequireFromString("0.000225"),
			Timestamp:          time.Now(),
		},
	}

	path, err := exporter.ExportOpportunities(opps)
	if err != nil {
		t.Fatalf("ExportOpportunities failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read export: %v", err)
	}

	var entries []map[string]any
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}

	entry := entries[0]
	// 0.000225 * 24 * 365 = 1.971 -> "197.10%"
	if entry["annual_return_estimate"] != "197.10%" {
		t.Errorf("unexpected annual_return_estimate %v", entry["annual_return_estimate"])
	}
	if entry["long_funding_interval_hours"] != float64(1) {
		t.Errorf("unexpected long interval %v", entry["long_funding_interval_hours"])
	}
	if entry["long_maker_fee"] != 0.0001 {
		t.Errorf("unexpected long_maker_fee %v", entry["long_maker_fee"])
	}
	// Unconfigured fee must serialize as null, not zero
	if v, ok := entry["long_taker_fee"]; !ok || v != nil {
		t.Errorf("expected null long_taker_fee, got %v (present=%v)", v, ok)
	}
}
