package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// FundingSnapshot is a persisted funding rate, one row per
// (run, exchange, symbol). RunID groups a single collection cycle.
type FundingSnapshot struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	RunID         string `gorm:"index" json:"run_id"`
	Exchange      string `gorm:"index" json:"exchange"`
	Symbol        string `gorm:"index" json:"symbol"`
	Rate          decimal.Decimal
	IntervalHours int
	HourlyRate    decimal.Decimal
	Volume24h     *decimal.Decimal
	NextFunding   *time.Time
	Timestamp     time.Time
	CreatedAt     time.Time
}

// OpportunityRecord is a persisted arbitrage opportunity.
type OpportunityRecord struct {
	ID                 uint   `gorm:"primaryKey" json:"id"`
	RunID              string `gorm:"index" json:"run_id"`
	Symbol             string `gorm:"index" json:"symbol"`
	LongExchange       string
	LongRateHourly     decimal.Decimal
	LongIntervalHours  int
	ShortExchange      string
	ShortRateHourly    decimal.Decimal
	ShortIntervalHours int
	RateDifference     decimal.Decimal
	AnnualReturn       decimal.Decimal
	Timestamp          time.Time
	CreatedAt          time.Time
}

// SpreadPoint is one persisted spread observation from the monitor.
type SpreadPoint struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Symbol    string `gorm:"index" json:"symbol"`
	ExchangeA string
	ExchangeB string
	BidA      decimal.Decimal
	AskB      decimal.Decimal
	Spread    decimal.Decimal
	SpreadPct decimal.Decimal
	Timestamp time.Time
	CreatedAt time.Time
}

// InstrumentInfo is the registry entry for a tracked symbol.
type InstrumentInfo struct {
	Symbol     string    `gorm:"primaryKey" json:"symbol"`
	Exchanges  string    `json:"exchanges"` // comma-joined exchange names listing the symbol
	IsActive   bool      `json:"is_active" gorm:"index"`
	LastSeenAt time.Time `json:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
