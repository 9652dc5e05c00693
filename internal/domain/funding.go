package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Exchange identifiers used across collectors, streams and exports.
const (
	ExchangeHyperliquid = "hyperliquid"
	ExchangeMEXC        = "mexc"
	ExchangeAster       = "aster"
)

var hoursPerDay = decimal.NewFromInt(24)

// FundingRate is a normalized funding rate record from one exchange.
// Rate is the raw rate for the exchange's native funding interval;
// cross-exchange comparison is only valid through HourlyRate().
// Records are created fresh each collection cycle and never mutated.
type FundingRate struct {
	Exchange      string          `json:"exchange"`
	Symbol        string          `json:"symbol"` // normalized (e.g. "BTC")
	Rate          decimal.Decimal `json:"funding_rate"`
	IntervalHours int             `json:"funding_interval_hours"` // cadence at which Rate is paid
	Timestamp     time.Time       `json:"timestamp"`

	NextFundingTime *time.Time `json:"next_funding_time,omitempty"`

	// Best-effort enrichment; nil means not configured / not available,
	// never zero.
	Premium   *decimal.Decimal `json:"premium,omitempty"`
	MakerFee  *decimal.Decimal `json:"maker_fee,omitempty"`
	TakerFee  *decimal.Decimal `json:"taker_fee,omitempty"`
	Volume24h *decimal.Decimal `json:"volume_24h,omitempty"`
}

// HourlyRate converts the funding rate to a 1-hour basis, the only
// unit comparable across exchanges with different funding intervals.
func (r FundingRate) HourlyRate() decimal.Decimal {
	if r.IntervalHours <= 0 {
		return decimal.Zero
	}
	return r.Rate.Div(decimal.NewFromInt(int64(r.IntervalHours)))
}

// DailyRate is the hourly rate extrapolated over 24 hours.
func (r FundingRate) DailyRate() decimal.Decimal {
	return r.HourlyRate().Mul(hoursPerDay)
}

// ArbitrageOpportunity is a long/short funding pair for one symbol.
// The long leg is the exchange with the lowest hourly rate, the short
// leg the highest, so LongRateHourly <= ShortRateHourly always holds.
type ArbitrageOpportunity struct {
	Symbol string `json:"symbol"`

	LongExchange      string           `json:"long_exchange"`
	LongRateHourly    decimal.Decimal  `json:"long_rate_hourly"`
	LongRateInterval  decimal.Decimal  `json:"long_rate_interval"`
	LongIntervalHours int              `json:"long_funding_interval_hours"`
	LongMakerFee      *decimal.Decimal `json:"long_maker_fee,omitempty"`
	LongTakerFee      *decimal.Decimal `json:"long_taker_fee,omitempty"`
	LongNextFunding   *time.Time       `json:"long_next_funding_time,omitempty"`

	ShortExchange      string           `json:"short_exchange"`
	ShortRateHourly    decimal.Decimal  `json:"short_rate_hourly"`
	ShortRateInterval  decimal.Decimal  `json:"short_rate_interval"`
	ShortIntervalHours int              `json:"short_funding_interval_hours"`
	ShortMakerFee      *decimal.Decimal `json:"short_maker_fee,omitempty"`
	ShortTakerFee      *decimal.Decimal `json:"short_taker_fee,omitempty"`
	ShortNextFunding   *time.Time       `json:"short_next_funding_time,omitempty"`

	// Hourly rate difference (short minus long, never negative).
	RateDifference decimal.Decimal `json:"rate_difference"`
	Timestamp      time.Time       `json:"timestamp"`
}

// DailyReturn extrapolates the hourly difference over 24 hours.
func (o ArbitrageOpportunity) DailyReturn() decimal.Decimal {
	return o.RateDifference.Mul(hoursPerDay)
}

// AnnualReturn is the naive annualized estimate: diff * 24 * 365.
// It deliberately ignores fee amortization and compounding; downstream
// consumers rely on this exact convention.
func (o ArbitrageOpportunity) AnnualReturn() decimal.Decimal {
	return o.DailyReturn().Mul(decimal.NewFromInt(365))
}
