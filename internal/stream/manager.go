package stream

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"funding_go/internal/domain"
	"funding_go/internal/infra"

	"github.com/gorilla/websocket"
)

const (
	handshakeTimeout = 10 * time.Second
	pingInterval     = 20 * time.Second
	readTimeout      = 60 * time.Second
)

// State is the connection lifecycle phase of a Manager.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateSubscribed
	StateStreaming
	StateBackoff
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateSubscribed:
		return "subscribed"
	case StateStreaming:
		return "streaming"
	case StateBackoff:
		return "backoff"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// TickCallback receives every normalized tick synchronously from the
// receive loop. It must update local state and return quickly.
type TickCallback func(domain.OrderbookTick)

// Manager owns the websocket lifecycle for one (exchange, symbol)
// stream: connect, subscribe, liveness pings, parse dispatch and
// reconnection with exponential backoff. Managers share no mutable
// state with each other; ticks leave through the registered callback.
type Manager struct {
	exchange Exchange
	symbol   string
	metrics  *infra.Metrics

	callbackMu sync.RWMutex
	callback   TickCallback

	conn    *websocket.Conn
	mu      sync.RWMutex
	writeMu sync.Mutex

	state   atomic.Int32
	backoff *reconnectBackoff
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewManager creates a stream manager for one exchange/symbol pair.
func NewManager(exchange Exchange, symbol string, metrics *infra.Metrics) *Manager {
	return &Manager{
		exchange: exchange,
		symbol:   symbol,
		metrics:  metrics,
		backoff:  newReconnectBackoff(),
	}
}

// SetCallback registers the single tick handler. Must be set before
// Connect; later calls replace the handler for subsequent ticks.
func (m *Manager) SetCallback(cb TickCallback) {
	m.callbackMu.Lock()
	m.callback = cb
	m.callbackMu.Unlock()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	return State(m.state.Load())
}

// IsConnected reports whether a live connection is streaming.
func (m *Manager) IsConnected() bool {
	return m.State() == StateStreaming || m.State() == StateSubscribed
}

// Connect starts the connection loop. It returns immediately; the
// stream runs until the context is cancelled or Disconnect is called.
func (m *Manager) Connect(ctx context.Context) error {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(1)
	go m.connectionLoop(ctx)
	return nil
}

func (m *Manager) connectionLoop(ctx context.Context) {
	defer m.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("stream panic recovered",
				slog.String("exchange", m.exchange.Name()),
				slog.Any("panic", r),
			)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			m.state.Store(int32(StateStopped))
			return
		default:
		}

		m.state.Store(int32(StateConnecting))
		if err := m.connect(ctx); err != nil {
			slog.Warn("stream connection failed",
				slog.String("exchange", m.exchange.Name()),
				slog.String("symbol", m.symbol),
				slog.Any("error", err),
			)
			if !m.waitBackoff(ctx) {
				return
			}
			continue
		}

		connectedAt := time.Now()
		m.state.Store(int32(StateStreaming))

		// Liveness task runs alongside the read loop. It is cancelled
		// and awaited before the transport is torn down so a ping can
		// never write to a closed connection.
		pingCtx, pingCancel := context.WithCancel(ctx)
		var pingWg sync.WaitGroup
		pingWg.Add(1)
		go func() {
			defer pingWg.Done()
			m.pingLoop(pingCtx)
		}()

		m.readLoop(ctx)

		pingCancel()
		pingWg.Wait()
		m.closeConnection()

		m.backoff.ObserveUptime(time.Since(connectedAt))

		select {
		case <-ctx.Done():
			m.state.Store(int32(StateStopped))
			return
		default:
		}

		slog.Info("stream connection lost, reconnecting",
			slog.String("exchange", m.exchange.Name()),
			slog.String("symbol", m.symbol),
			slog.Duration("uptime", time.Since(connectedAt)),
		)
		if m.metrics != nil {
			m.metrics.RecordReconnect()
		}
		if !m.waitBackoff(ctx) {
			return
		}
	}
}

// waitBackoff sleeps for the next backoff delay. Returns false when the
// context was cancelled during the wait.
func (m *Manager) waitBackoff(ctx context.Context) bool {
	delay := m.backoff.Next()
	m.state.Store(int32(StateBackoff))
	slog.Debug("stream backoff",
		slog.String("exchange", m.exchange.Name()),
		slog.Duration("delay", delay),
	)
	select {
	case <-ctx.Done():
		m.state.Store(int32(StateStopped))
		return false
	case <-time.After(delay):
		return true
	}
}

func (m *Manager) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	header := make(http.Header)
	header.Add("User-Agent", infra.DefaultUserAgent)

	conn, _, err := dialer.DialContext(ctx, m.exchange.URL(m.symbol), header)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}

	m.mu.Lock()
	m.conn = conn
	m.mu.Unlock()

	msg, err := m.exchange.SubscribeMessage(m.symbol)
	if err != nil {
		m.closeConnection()
		return fmt.Errorf("build subscription: %w", err)
	}
	if msg != nil { // some exchanges subscribe via the URL itself
		if err := m.threadSafeWrite(websocket.TextMessage, msg); err != nil {
			m.closeConnection()
			return fmt.Errorf("subscribe failed: %w", err)
		}
	}
	m.state.Store(int32(StateSubscribed))

	if m.metrics != nil {
		m.metrics.IncrementConnections()
	}
	slog.Info("stream connected",
		slog.String("exchange", m.exchange.Name()),
		slog.String("symbol", m.symbol),
	)
	return nil
}

func (m *Manager) threadSafeWrite(messageType int, data []byte) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()

	m.mu.RLock()
	conn := m.conn
	m.mu.RUnlock()

	if conn == nil {
		return fmt.Errorf("connection is nil")
	}
	return conn.WriteMessage(messageType, data)
}

// pingLoop keeps the connection alive. Exchanges with an in-band JSON
// ping get that; everyone else gets a transport-level ping. A failed
// ping is a precursor to connection loss, not an error: the read
// loop's close detection is authoritative.
func (m *Manager) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			var err error
			if ping := m.exchange.AppPing(); ping != nil {
				err = m.threadSafeWrite(websocket.TextMessage, ping)
			} else {
				err = m.threadSafeWrite(websocket.PingMessage, nil)
			}
			if err != nil {
				slog.Warn("stream ping failed",
					slog.String("exchange", m.exchange.Name()),
					slog.Any("error", err),
				)
			}
		}
	}
}

func (m *Manager) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		m.mu.RLock()
		conn := m.conn
		m.mu.RUnlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				slog.Warn("stream read error",
					slog.String("exchange", m.exchange.Name()),
					slog.Any("error", err),
				)
			}
			return
		}
		m.handleMessage(messageType, message)
	}
}

func (m *Manager) handleMessage(messageType int, message []byte) {
	if m.metrics != nil {
		m.metrics.RecordMessage()
	}

	result := m.exchange.Parse(messageType, message, m.symbol)
	switch result.Kind {
	case ParseTick:
		if m.metrics != nil {
			m.metrics.RecordTick()
		}
		m.callbackMu.RLock()
		cb := m.callback
		m.callbackMu.RUnlock()
		if cb != nil {
			cb(result.Tick)
		}
	case ParseSkip:
		if m.metrics != nil {
			m.metrics.RecordSkippedFrame()
		}
	case ParseMalformed:
		if m.metrics != nil {
			m.metrics.RecordMalformedFrame()
		}
		slog.Debug("stream malformed frame",
			slog.String("exchange", m.exchange.Name()),
			slog.Any("error", result.Err),
		)
	}
}

func (m *Manager) closeConnection() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.conn != nil {
		m.conn.Close()
		m.conn = nil
		if m.metrics != nil {
			m.metrics.DecrementConnections()
		}
	}
}

// Disconnect stops the stream permanently. Safe to call multiple
// times; the manager always ends in the stopped state and never
// reconnects afterwards.
func (m *Manager) Disconnect() {
	if m.cancel != nil {
		m.cancel()
	}
	m.closeConnection()
	m.wg.Wait()
	m.state.Store(int32(StateStopped))
}
