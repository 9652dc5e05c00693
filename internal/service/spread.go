package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"
	"funding_go/internal/stream"

	"github.com/shopspring/decimal"
)

var oneHundred = decimal.NewFromInt(100)

// SpreadUpdate is one emitted cross-exchange spread observation.
// Spread is bid(A) - ask(B): positive means buy on B, sell on A.
type SpreadUpdate struct {
	Symbol    string
	ExchangeA string
	ExchangeB string
	BidA      decimal.Decimal
	AskB      decimal.Decimal
	Spread    decimal.Decimal
	SpreadPct decimal.Decimal
	Precision int
	Timestamp time.Time
}

// SpreadSink consumes throttled spread updates. Called synchronously
// from the stream callback; implementations must return quickly.
type SpreadSink func(SpreadUpdate)

// SpreadMonitor tracks the top-of-book spread of one symbol between
// two exchanges. It keeps the latest bid from A and ask from B
// (last write wins) and emits an update only when the pair changed
// since the previous emission and the minimum interval has elapsed.
type SpreadMonitor struct {
	symbol    string
	exchangeA stream.Exchange
	exchangeB stream.Exchange

	managerA *stream.Manager
	managerB *stream.Manager
	metaA    *stream.MetadataCache
	metaB    *stream.MetadataCache

	updateInterval   time.Duration
	defaultPrecision int
	sink             SpreadSink

	mu        sync.Mutex
	bidA      decimal.Decimal
	askB      decimal.Decimal
	haveBidA  bool
	haveAskB  bool
	lastBidA  decimal.Decimal
	lastAskB  decimal.Decimal
	emitted   bool
	lastEmit  time.Time
	precision int
}

func NewSpreadMonitor(cfg *infra.Config, exchangeA, exchangeB stream.Exchange, symbol string, metrics *infra.Metrics, sink SpreadSink) *SpreadMonitor {
	return &SpreadMonitor{
		symbol:           symbol,
		exchangeA:        exchangeA,
		exchangeB:        exchangeB,
		managerA:         stream.NewManager(exchangeA, symbol, metrics),
		managerB:         stream.NewManager(exchangeB, symbol, metrics),
		metaA:            stream.NewMetadataCache(exchangeA),
		metaB:            stream.NewMetadataCache(exchangeB),
		updateInterval:   time.Duration(cfg.Spread.UpdateIntervalMS) * time.Millisecond,
		defaultPrecision: cfg.Spread.DefaultPrecision,
		sink:             sink,
		precision:        cfg.Spread.DefaultPrecision,
	}
}

// Precision returns the display precision in use.
func (m *SpreadMonitor) Precision() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.precision
}

// Run resolves display precision, connects both streams and blocks
// until the context is cancelled.
func (m *SpreadMonitor) Run(ctx context.Context) error {
	m.resolvePrecision(ctx)

	m.managerA.SetCallback(m.onTickA)
	m.managerB.SetCallback(m.onTickB)

	if err := m.managerA.Connect(ctx); err != nil {
		return err
	}
	if err := m.managerB.Connect(ctx); err != nil {
		m.managerA.Disconnect()
		return err
	}

	<-ctx.Done()
	m.managerA.Disconnect()
	m.managerB.Disconnect()
	return nil
}

// resolvePrecision picks the display precision: the larger of both
// exchanges' price precisions, whichever side answered, or the
// configured default when neither did.
func (m *SpreadMonitor) resolvePrecision(ctx context.Context) {
	metaA, errA := m.metaA.Get(ctx, m.symbol)
	metaB, errB := m.metaB.Get(ctx, m.symbol)

	precision := m.defaultPrecision
	switch {
	case errA == nil && errB == nil:
		precision = metaA.PricePrecision
		if metaB.PricePrecision > precision {
			precision = metaB.PricePrecision
		}
	case errA == nil:
		precision = metaA.PricePrecision
		slog.Warn("Metadata unavailable for exchange B, using exchange A precision",
			"exchange", m.exchangeB.Name(), "error", errB)
	case errB == nil:
		precision = metaB.PricePrecision
		slog.Warn("Metadata unavailable for exchange A, using exchange B precision",
			"exchange", m.exchangeA.Name(), "error", errA)
	default:
		slog.Warn("Metadata unavailable on both exchanges, using default precision",
			"precision", precision)
	}

	m.mu.Lock()
	m.precision = precision
	m.mu.Unlock()
}

func (m *SpreadMonitor) onTickA(tick domain.OrderbookTick) {
	m.mu.Lock()
	m.bidA = tick.BestBid
	m.haveBidA = true
	m.mu.Unlock()
	m.maybeEmit()
}

func (m *SpreadMonitor) onTickB(tick domain.OrderbookTick) {
	m.mu.Lock()
	m.askB = tick.BestAsk
	m.haveAskB = true
	m.mu.Unlock()
	m.maybeEmit()
}

// maybeEmit applies the throttle: both sides present, values changed
// since the last emission, and the minimum interval elapsed. A
// throttled update does not advance the last-emitted values, so the
// next allowed emission reflects whatever the slots hold then.
func (m *SpreadMonitor) maybeEmit() {
	m.mu.Lock()

	if !m.haveBidA || !m.haveAskB {
		m.mu.Unlock()
		return
	}

	bidA, askB := m.bidA, m.askB
	if m.emitted && m.lastBidA.Equal(bidA) && m.lastAskB.Equal(askB) {
		m.mu.Unlock()
		return
	}

	now := time.Now()
	if m.emitted && now.Sub(m.lastEmit) < m.updateInterval {
		m.mu.Unlock()
		return
	}

	m.lastEmit = now
	m.lastBidA = bidA
	m.lastAskB = askB
	m.emitted = true
	precision := m.precision
	m.mu.Unlock()

	spread := bidA.Sub(askB)
	pct := decimal.Zero
	if askB.IsPositive() {
		pct = spread.Div(askB).Mul(oneHundred)
	}

	if m.sink != nil {
		m.sink(SpreadUpdate{
			Symbol:    m.symbol,
			ExchangeA: m.exchangeA.Name(),
			ExchangeB: m.exchangeB.Name(),
			BidA:      bidA,
			AskB:      askB,
			Spread:    spread,
			SpreadPct: pct,
			Precision: precision,
			Timestamp: now,
		})
	}
}
