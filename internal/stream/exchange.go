package stream

import (
	"context"

	"funding_go/internal/domain"
)

// ParseKind classifies an inbound websocket frame.
type ParseKind int

const (
	// ParseTick means the frame carried a top-of-book update.
	ParseTick ParseKind = iota
	// ParseSkip means the frame is routine non-orderbook traffic
	// (subscription acks, heartbeats, pongs). Dropped silently.
	ParseSkip
	// ParseMalformed means the frame looked like data but could not be
	// decoded. Counted and logged centrally by the manager.
	ParseMalformed
)

// ParseResult is the outcome of parsing one frame: a tick, a silent
// skip, or a malformed frame with the decode error attached.
type ParseResult struct {
	Kind ParseKind
	Tick domain.OrderbookTick
	Err  error
}

// Tick wraps a parsed orderbook tick.
func Tick(t domain.OrderbookTick) ParseResult {
	return ParseResult{Kind: ParseTick, Tick: t}
}

// Skip marks a frame as routine control traffic.
func Skip() ParseResult {
	return ParseResult{Kind: ParseSkip}
}

// Malformed marks a frame that failed to decode.
func Malformed(err error) ParseResult {
	return ParseResult{Kind: ParseMalformed, Err: err}
}

// Exchange is the per-exchange wire protocol a Manager drives. One
// implementation per exchange; dispatch is static through this
// interface rather than overridden base-class hooks.
type Exchange interface {
	Name() string

	// URL returns the websocket endpoint for a normalized symbol.
	URL(symbol string) string

	// SubscribeMessage returns the subscription frame to send after
	// connecting, or nil when the protocol subscribes via the URL.
	SubscribeMessage(symbol string) ([]byte, error)

	// AppPing returns the application-level ping frame, or nil when
	// the exchange relies on transport pings.
	AppPing() []byte

	// Parse classifies one inbound frame for the given symbol.
	Parse(messageType int, data []byte, symbol string) ParseResult

	// FetchMetadata retrieves precision metadata for a symbol.
	FetchMetadata(ctx context.Context, symbol string) (*domain.SymbolMetadata, error)
}
