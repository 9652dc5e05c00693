package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Stream counters
	messagesReceived atomic.Uint64
	ticksEmitted     atomic.Uint64
	framesSkipped    atomic.Uint64 // control frames: acks, heartbeats, pongs
	framesMalformed  atomic.Uint64
	reconnects       atomic.Uint64

	// REST counters
	restRequests atomic.Uint64
	restErrors   atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
}

// NewMetrics returns a fresh metrics registry.
func NewMetrics() *Metrics {
	return &Metrics{}
}

// RecordMessage counts one inbound websocket frame.
func (m *Metrics) RecordMessage() {
	m.messagesReceived.Add(1)
}

// RecordTick counts one normalized orderbook tick handed to a callback.
func (m *Metrics) RecordTick() {
	m.ticksEmitted.Add(1)
}

// RecordSkippedFrame counts a non-orderbook control frame.
func (m *Metrics) RecordSkippedFrame() {
	m.framesSkipped.Add(1)
}

// RecordMalformedFrame counts a frame that failed to parse.
func (m *Metrics) RecordMalformedFrame() {
	m.framesMalformed.Add(1)
}

// RecordReconnect counts a reconnection attempt after connection loss.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordRESTRequest counts one outbound REST call.
func (m *Metrics) RecordRESTRequest() {
	m.restRequests.Add(1)
}

// RecordRESTError counts a failed REST call.
func (m *Metrics) RecordRESTError() {
	m.restErrors.Add(1)
}

// IncrementConnections increments active stream connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active stream connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	MessagesReceived  uint64
	TicksEmitted      uint64
	FramesSkipped     uint64
	FramesMalformed   uint64
	Reconnects        uint64
	RESTRequests      uint64
	RESTErrors        uint64
	ActiveConnections int32
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		MessagesReceived:  m.messagesReceived.Load(),
		TicksEmitted:      m.ticksEmitted.Load(),
		FramesSkipped:     m.framesSkipped.Load(),
		FramesMalformed:   m.framesMalformed.Load(),
		Reconnects:        m.reconnects.Load(),
		RESTRequests:      m.restRequests.Load(),
		RESTErrors:        m.restErrors.Load(),
		ActiveConnections: m.activeConnections.Load(),
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.messagesReceived.Store(0)
	m.ticksEmitted.Store(0)
	m.framesSkipped.Store(0)
	m.framesMalformed.Store(0)
	m.reconnects.Store(0)
	m.restRequests.Store(0)
	m.restErrors.Store(0)
	m.activeConnections.Store(0)
}
