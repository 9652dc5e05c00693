package stream

import "time"

const (
	baseReconnectDelay = 5 * time.Second
	maxReconnectDelay  = 60 * time.Second
	stabilityThreshold = 300 * time.Second
)

// reconnectBackoff produces exponentially growing reconnect delays.
// The delay only resets to the base after a connection stayed open for
// the stability threshold: a short-lived connection keeps the counter,
// so a flapping endpoint cannot force a tight retry loop.
type reconnectBackoff struct {
	base      time.Duration
	max       time.Duration
	stability time.Duration
	current   time.Duration
}

func newReconnectBackoff() *reconnectBackoff {
	return &reconnectBackoff{
		base:      baseReconnectDelay,
		max:       maxReconnectDelay,
		stability: stabilityThreshold,
		current:   baseReconnectDelay,
	}
}

// Next returns the delay to wait before the upcoming attempt and
// doubles the stored delay up to the cap.
func (b *reconnectBackoff) Next() time.Duration {
	delay := b.current
	b.current *= 2
	if b.current > b.max {
		b.current = b.max
	}
	return delay
}

// ObserveUptime resets the delay after a sufficiently stable connection.
func (b *reconnectBackoff) ObserveUptime(uptime time.Duration) {
	if uptime >= b.stability {
		b.current = b.base
	}
}
