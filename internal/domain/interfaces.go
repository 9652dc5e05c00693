package domain

import (
	"context"
	"time"
)

// Collector is the REST capability set every exchange adapter provides.
// Implementations translate symbols both directions, resolve the native
// funding interval per symbol and attach configured fees to each record.
type Collector interface {
	Name() string

	// FundingRates returns current rates for the given normalized
	// symbols. A network or parse failure yields an error; callers
	// treat it as "no data this cycle" for this exchange only.
	FundingRates(ctx context.Context, symbols []string) ([]FundingRate, error)

	// FundingHistory returns settled historical rates for one symbol.
	FundingHistory(ctx context.Context, symbol string, start, end time.Time) ([]FundingRate, error)

	// Symbols returns all normalized perpetual symbols the exchange lists.
	Symbols(ctx context.Context) ([]string, error)
}

// StreamWorker is the lifecycle contract for a streaming connection.
type StreamWorker interface {
	Connect(ctx context.Context) error
	Disconnect()
	IsConnected() bool
}
