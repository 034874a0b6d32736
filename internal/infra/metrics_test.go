package infra

import (
	"testing"
)

func TestMetrics_Frames(t *testing.T) {
	m := &Metrics{}

	m.RecordFrame()
	m.RecordFrame()
	m.RecordFrame()
	m.RecordDroppedFrame()

	snap := m.Snapshot()

	if snap.FramesReceived != 3 {
		t.Errorf("Expected 3 frames, got %d", snap.FramesReceived)
	}
	if snap.FramesDropped != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", snap.FramesDropped)
	}
}

func TestMetrics_Connections(t *testing.T) {
	m := &Metrics{}

	m.IncrementConnections()
	m.IncrementConnections()
	m.IncrementConnections()

	snap := m.Snapshot()
	if snap.ActiveConnections != 3 {
		t.Errorf("Expected 3 connections, got %d", snap.ActiveConnections)
	}

	m.DecrementConnections()
	snap = m.Snapshot()
	if snap.ActiveConnections != 2 {
		t.Errorf("Expected 2 connections, got %d", snap.ActiveConnections)
	}
}

func TestMetrics_Fallback(t *testing.T) {
	m := &Metrics{}

	snap := m.Snapshot()
	if snap.UsingFallback {
		t.Error("Expected live prices initially")
	}

	m.SetFallback(true)
	snap = m.Snapshot()
	if !snap.UsingFallback {
		t.Error("Expected fallback prices")
	}

	m.SetFallback(false)
	snap = m.Snapshot()
	if snap.UsingFallback {
		t.Error("Expected live prices")
	}
}

func TestMetrics_Reset(t *testing.T) {
	m := &Metrics{}

	m.RecordFrame()
	m.RecordReconnect()
	m.RecordOrderSubmitted()
	m.RecordOrderRejected()
	m.RecordError()
	m.IncrementConnections()

	m.Reset()
	snap := m.Snapshot()

	if snap.FramesReceived != 0 || snap.Reconnects != 0 {
		t.Error("Expected 0 frames and reconnects after reset")
	}
	if snap.OrdersSubmitted != 0 || snap.OrdersRejected != 0 {
		t.Error("Expected 0 orders after reset")
	}
	if snap.ErrorsTotal != 0 {
		t.Error("Expected 0 errors after reset")
	}
	if snap.ActiveConnections != 0 {
		t.Error("Expected 0 connections after reset")
	}
}
