package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestFundingRate_HourlyRate(t *testing.T) {
	tests := []struct {
		name     string
		rate     string
		interval int
		want     string
	}{
		{"8h interval", "0.0008", 8, "0.0001"},
		{"1h interval", "0.0001", 1, "0.0001"},
		{"4h interval", "0.0002", 4, "0.00005"},
		{"negative rate", "-0.0008", 8, "-0.0001"},
		{"zero interval guards division", "0.0008", 0, "0"},
		{"negative interval guards division", "0.0008", -1, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := FundingRate{
				Rate:          decimal.RequireFromString(tt.rate),
				IntervalHours: tt.interval,
			}
			got := r.HourlyRate()
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("HourlyRate() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestFundingRate_DailyRate(t *testing.T) {
	r := FundingRate{
		Rate:          decimal.RequireFromString("0.0008"),
		IntervalHours: 8,
	}
	want := decimal.RequireFromString("0.0024")
	if got := r.DailyRate(); !got.Equal(want) {
		t.Errorf("DailyRate() = %s, want %s", got, want)
	}
}

func TestArbitrageOpportunity_Returns(t *testing.T) {
	opp := ArbitrageOpportunity{
		Symbol:         "ETH",
		LongExchange:   ExchangeHyperliquid,
		ShortExchange:  ExchangeMEXC,
		RateDifference: decimal.RequireFromString("0.000225"),
		Timestamp:      time.Now(),
	}

	daily := decimal.RequireFromString("0.0054")
	if got := opp.DailyReturn(); !got.Equal(daily) {
		t.Errorf("DailyReturn() = %s, want %s", got, daily)
	}

	// 0.000225 * 24 * 365 = 1.971 exactly
	annual := decimal.RequireFromString("1.971")
	if got := opp.AnnualReturn(); !got.Equal(annual) {
		t.Errorf("AnnualReturn() = %s, want %s", got, annual)
	}
}
