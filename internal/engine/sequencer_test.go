package engine

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trade_desk/internal/domain"
	"trade_desk/internal/event"
	"trade_desk/internal/feed"
	"trade_desk/internal/infra"

	"github.com/shopspring/decimal"
)

func priceFrame(symbol string, bid, ask int) *event.FrameEvent {
	b, _ := json.Marshal(map[string]interface{}{"type": "price", "symbol": symbol, "bid": bid, "ask": ask})
	return &event.FrameEvent{Raw: b}
}

func tradeFrame(symbol, price string) *event.FrameEvent {
	return &event.FrameEvent{Raw: []byte(`{"data":{"e":"trade","E":1,"s":"` + symbol + `","p":"` + price + `"},"bid":1,"ask":2}`)}
}

func hourlyBars(symbol string, open, close int64) []domain.Bar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Bar{
		{Symbol: symbol, BucketStart: t0, Open: decimal.NewFromInt(open), Close: decimal.NewFromInt(open)},
		{Symbol: symbol, BucketStart: t0.Add(time.Hour), Open: decimal.NewFromInt(open), Close: decimal.NewFromInt(close)},
	}
}

func TestSequencer_RunAppliesInOrder(t *testing.T) {
	var updates []domain.PriceSnapshot
	seq := NewSequencer(10, nil, nil, nil, func(s domain.PriceSnapshot) { updates = append(updates, s) })
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- seq.Run(ctx) }()

	seq.Inbox() <- &event.ConnectionEvent{State: event.StateConnected}
	seq.Inbox() <- priceFrame("btcusdt", 100, 101)
	seq.Inbox() <- priceFrame("btcusdt", 102, 103)

	deadline := time.Now().Add(2 * time.Second)
	for seq.Applied() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}

	snap, ok := seq.Snapshot("btcusdt")
	if !ok {
		t.Fatal("Snapshot should exist")
	}
	if !snap.Bid.Equal(decimal.NewFromInt(102)) {
		t.Errorf("Expected latest bid 102, got %v", snap.Bid)
	}
	if len(updates) != 2 {
		t.Errorf("Expected 2 snapshot notifications, got %d", len(updates))
	}
}

func TestSequencer_MalformedFrameBufferedAndCounted(t *testing.T) {
	metrics := &infra.Metrics{}
	seq := NewSequencer(1, feed.NewBuffer(10), nil, metrics, nil)

	seq.Apply(tradeFrame("BTCUSDT", "50000"))
	seq.Apply(&event.FrameEvent{Raw: []byte(`{not json`)})
	seq.Apply(tradeFrame("ETHUSDT", "3000"))

	if seq.BufferLen() != 3 {
		t.Errorf("Expected 3 buffered frames, got %d", seq.BufferLen())
	}
	if metrics.Snapshot().FramesDropped != 1 {
		t.Errorf("Expected 1 dropped frame, got %d", metrics.Snapshot().FramesDropped)
	}

	board := seq.Board()
	if len(board) != 2 || board[0].Symbol != "BTCUSDT" || board[1].Symbol != "ETHUSDT" {
		t.Errorf("Unexpected board %+v", board)
	}
}

func TestSequencer_FallbackOnDisconnect(t *testing.T) {
	metrics := &infra.Metrics{}
	seq := NewSequencer(1, nil, nil, metrics, nil)

	seq.Apply(&event.BarsEvent{Symbol: "btcusdt", Bars: hourlyBars("btcusdt", 100, 110)})
	seq.Apply(&event.ConnectionEvent{State: event.StateConnected})
	seq.Apply(priceFrame("btcusdt", 200, 201))

	snap, _ := seq.Snapshot("btcusdt")
	if !snap.Live || !snap.Bid.Equal(decimal.NewFromInt(200)) {
		t.Fatalf("Expected live snapshot, got %+v", snap)
	}
	if metrics.Snapshot().UsingFallback {
		t.Error("Fallback flag should be off while connected")
	}

	seq.Apply(&event.ConnectionEvent{State: event.StateDisconnected})

	snap, ok := seq.Snapshot("btcusdt")
	if !ok || snap.Live {
		t.Fatalf("Expected fallback snapshot, got %+v", snap)
	}
	if !snap.Last.Equal(decimal.NewFromInt(110)) || !snap.ChangePercent.Equal(decimal.NewFromInt(10)) {
		t.Errorf("Unexpected fallback values %+v", snap)
	}
	if seq.ConnectionState() != event.StateDisconnected {
		t.Errorf("State = %s", seq.ConnectionState())
	}
	if !metrics.Snapshot().UsingFallback {
		t.Error("Fallback flag should be on after disconnect")
	}
}

func TestSequencer_TradeWithoutQuotesKeepsQuotes(t *testing.T) {
	seq := NewSequencer(1, nil, nil, nil, nil)

	seq.Apply(&event.ConnectionEvent{State: event.StateConnected})
	seq.Apply(&event.BarsEvent{Symbol: "btcusdt", Bars: hourlyBars("btcusdt", 100, 110)})
	seq.Apply(priceFrame("btcusdt", 100, 101))
	seq.Apply(&event.FrameEvent{Raw: []byte(`{"data":{"e":"trade","E":1,"s":"BTCUSDT","p":"100.5"}}`)})

	snap, ok := seq.Snapshot("btcusdt")
	if !ok || !snap.Live {
		t.Fatalf("Expected live snapshot, got %+v", snap)
	}
	if !snap.Bid.Equal(decimal.NewFromInt(100)) || !snap.Ask.Equal(decimal.NewFromInt(101)) {
		t.Errorf("Expected bid/ask 100/101, got %v/%v", snap.Bid, snap.Ask)
	}
	if !snap.Last.Equal(decimal.RequireFromString("100.5")) {
		t.Errorf("Expected last 100.5, got %v", snap.Last)
	}
}

func TestSequencer_NoMutationAfterClose(t *testing.T) {
	seq := NewSequencer(1, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq.Run(ctx)

	seq.Apply(tradeFrame("BTCUSDT", "1"))
	if seq.BufferLen() != 0 {
		t.Errorf("Buffer mutated after close: len %d", seq.BufferLen())
	}
	if seq.Applied() != 0 {
		t.Errorf("Applied = %d", seq.Applied())
	}
}

func TestSequencer_DumpState(t *testing.T) {
	seq := NewSequencer(1, nil, nil, nil, nil)
	seq.Apply(&event.ConnectionEvent{State: event.StateConnected})
	seq.Apply(priceFrame("btcusdt", 1, 2))

	path := filepath.Join(t.TempDir(), "dump.json")
	seq.DumpState(path)

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Dump not written: %v", err)
	}
	var dump struct {
		Applied   uint64                 `json:"applied"`
		State     string                 `json:"state"`
		Snapshots []domain.PriceSnapshot `json:"snapshots"`
		Frames    []string               `json:"frames"`
	}
	if err := json.Unmarshal(b, &dump); err != nil {
		t.Fatalf("Invalid dump: %v", err)
	}
	if dump.Applied != 2 || dump.State != "CONNECTED" || len(dump.Snapshots) != 1 || len(dump.Frames) != 1 {
		t.Errorf("Unexpected dump %+v", dump)
	}
}
