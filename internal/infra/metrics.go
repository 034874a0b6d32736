package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	framesReceived  atomic.Uint64
	framesDropped   atomic.Uint64
	reconnects      atomic.Uint64
	ordersSubmitted atomic.Uint64
	ordersRejected  atomic.Uint64
	errorsTotal     atomic.Uint64

	// Gauges
	activeConnections atomic.Int32
	usingFallback     atomic.Int32 // 1 = fallback prices, 0 = live
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordFrame records one inbound socket frame.
func (m *Metrics) RecordFrame() {
	m.framesReceived.Add(1)
}

// RecordDroppedFrame records a frame that failed to decode.
func (m *Metrics) RecordDroppedFrame() {
	m.framesDropped.Add(1)
}

// RecordReconnect records a scheduled reconnect attempt.
func (m *Metrics) RecordReconnect() {
	m.reconnects.Add(1)
}

// RecordOrderSubmitted records an intent accepted by the order API.
func (m *Metrics) RecordOrderSubmitted() {
	m.ordersSubmitted.Add(1)
}

// RecordOrderRejected records a validation failure or remote rejection.
func (m *Metrics) RecordOrderRejected() {
	m.ordersRejected.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// IncrementConnections increments active connections by 1.
func (m *Metrics) IncrementConnections() {
	m.activeConnections.Add(1)
}

// DecrementConnections decrements active connections by 1.
func (m *Metrics) DecrementConnections() {
	m.activeConnections.Add(-1)
}

// SetFallback sets whether prices currently come from historical bars.
func (m *Metrics) SetFallback(on bool) {
	if on {
		m.usingFallback.Store(1)
	} else {
		m.usingFallback.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	FramesReceived    uint64
	FramesDropped     uint64
	Reconnects        uint64
	OrdersSubmitted   uint64
	OrdersRejected    uint64
	ErrorsTotal       uint64
	ActiveConnections int32
	UsingFallback     bool
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	return MetricsSnapshot{
		FramesReceived:    m.framesReceived.Load(),
		FramesDropped:     m.framesDropped.Load(),
		Reconnects:        m.reconnects.Load(),
		OrdersSubmitted:   m.ordersSubmitted.Load(),
		OrdersRejected:    m.ordersRejected.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		ActiveConnections: m.activeConnections.Load(),
		UsingFallback:     m.usingFallback.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.framesReceived.Store(0)
	m.framesDropped.Store(0)
	m.reconnects.Store(0)
	m.ordersSubmitted.Store(0)
	m.ordersRejected.Store(0)
	m.errorsTotal.Store(0)
	m.activeConnections.Store(0)
	m.usingFallback.Store(0)
}
