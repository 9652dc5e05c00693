package infra

import (
	"time"

	"funding_go/internal/domain"

	"github.com/shopspring/decimal"
)

// RawFunding is what an adapter extracts from one exchange payload
// before normalization. IntervalHours is zero when the payload does
// not carry its own cadence.
type RawFunding struct {
	Rate            decimal.Decimal
	IntervalHours   int
	Timestamp       time.Time
	NextFundingTime *time.Time
	Premium         *decimal.Decimal
	Volume24h       *decimal.Decimal
}

// NormalizeFundingRate converts a raw exchange payload into the common
// record. The funding interval comes from the payload when the
// exchange reports it, otherwise from configuration (symbol override
// before exchange default). Fees resolve to nil when unconfigured; a
// missing fee is not a zero fee.
func NormalizeFundingRate(cfg *Config, exchange, symbol string, raw RawFunding) domain.FundingRate {
	interval := raw.IntervalHours
	if interval <= 0 {
		interval = cfg.FundingInterval(exchange, symbol)
	}

	maker, taker := cfg.Fees(exchange, symbol)

	ts := raw.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	return domain.FundingRate{
		Exchange:        exchange,
		Symbol:          symbol,
		Rate:            raw.Rate,
		IntervalHours:   interval,
		Timestamp:       ts,
		NextFundingTime: raw.NextFundingTime,
		Premium:         raw.Premium,
		Volume24h:       raw.Volume24h,
		MakerFee:        maker,
		TakerFee:        taker,
	}
}
