package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync/atomic"

	"trade_desk/internal/domain"
	"trade_desk/internal/event"
	"trade_desk/internal/feed"
	"trade_desk/internal/infra"
	"trade_desk/internal/service"
)

// Sequencer is the single-threaded event processor.
// It is the only writer of the frame buffer and the price service.
type Sequencer struct {
	inbox   chan event.Event
	buffer  *feed.Buffer
	prices  *service.PriceService
	metrics *infra.Metrics

	applied atomic.Uint64
	state   atomic.Int32
	closed  atomic.Bool

	// Boundary: used to notify UI or other systems of snapshot changes
	onSnapshot func(domain.PriceSnapshot)
}

// NewSequencer creates a new sequencer instance. metrics and onSnapshot may be nil.
func NewSequencer(inboxSize int, buffer *feed.Buffer, prices *service.PriceService, metrics *infra.Metrics, onSnapshot func(domain.PriceSnapshot)) *Sequencer {
	if buffer == nil {
		buffer = feed.NewBuffer(feed.DefaultBufferSize)
	}
	if prices == nil {
		prices = service.NewPriceService()
	}
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Sequencer{
		inbox:      make(chan event.Event, inboxSize),
		buffer:     buffer,
		prices:     prices,
		metrics:    metrics,
		onSnapshot: onSnapshot,
	}
}

// Inbox returns the event channel. External workers send events here.
func (s *Sequencer) Inbox() chan<- event.Event {
	return s.inbox
}

// Run starts the main event loop. This MUST be run in a single goroutine.
// Once it returns no further event is applied.
func (s *Sequencer) Run(ctx context.Context) error {
	slog.Info("Sequencer started")
	defer s.closed.Store(true)

	defer func() {
		if r := recover(); r != nil {
			slog.Error("CRITICAL_PANIC_DETECTED", slog.Any("panic", r))
			s.DumpState("panic_dump.json")
			panic(fmt.Sprintf("HALTED: %v", r))
		}
	}()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Sequencer stopping...")
			return nil
		case ev := <-s.inbox:
			s.Apply(ev)
		}
	}
}

// Apply processes one event synchronously. It is a no-op after Run has returned.
func (s *Sequencer) Apply(ev event.Event) {
	if s.closed.Load() {
		return
	}

	switch e := ev.(type) {
	case *event.FrameEvent:
		s.handleFrame(e)
	case *event.ConnectionEvent:
		s.handleConnection(e)
	case *event.BarsEvent:
		s.handleBars(e)
	default:
		slog.Warn("Unknown event type", slog.Any("type", ev.GetType()))
		return
	}

	s.applied.Add(1)
}

func (s *Sequencer) handleFrame(e *event.FrameEvent) {
	raw := feed.RawFrame(e.Raw)

	// Raw frames are buffered even if they fail to decode; the projector skips them.
	s.buffer.Push(raw)

	frame, err := feed.ParseFrame(raw)
	if err != nil {
		s.metrics.RecordDroppedFrame()
		slog.Debug("Dropping malformed frame", slog.Any("error", err))
		return
	}

	switch frame.Kind {
	case feed.FramePrice:
		s.prices.ApplyPrice(frame.Price)
		s.notify(frame.Price.Symbol)
	case feed.FrameTrade:
		s.prices.ApplyTrade(frame.Trade)
		s.notify(frame.Trade.Symbol)
	}
}

func (s *Sequencer) handleConnection(e *event.ConnectionEvent) {
	s.state.Store(int32(e.State))

	connected := e.State == event.StateConnected
	s.prices.SetConnected(connected)
	s.metrics.SetFallback(!connected)

	slog.Info("Feed state changed", slog.String("state", e.State.String()))
}

func (s *Sequencer) handleBars(e *event.BarsEvent) {
	s.prices.UpdateBars(e.Symbol, e.Bars)
	s.notify(e.Symbol)
}

func (s *Sequencer) notify(symbol string) {
	if s.onSnapshot == nil {
		return
	}
	if snap, ok := s.prices.Snapshot(symbol); ok {
		s.onSnapshot(snap)
	}
}

// Board returns the ticker board projected from the current buffer (external read).
func (s *Sequencer) Board() []feed.TickerRow {
	return feed.Project(s.buffer.Snapshot())
}

// Snapshot returns the authoritative price snapshot for symbol (external read).
func (s *Sequencer) Snapshot(symbol string) (domain.PriceSnapshot, bool) {
	return s.prices.Snapshot(symbol)
}

// ConnectionState returns the last feed state applied
func (s *Sequencer) ConnectionState() event.ConnectionState {
	return event.ConnectionState(s.state.Load())
}

// Applied returns how many events have been processed
func (s *Sequencer) Applied() uint64 {
	return s.applied.Load()
}

// BufferLen returns the number of buffered frames
func (s *Sequencer) BufferLen() int {
	return s.buffer.Len()
}

// DumpState writes the entire internal state to a file (for post-mortem).
func (s *Sequencer) DumpState(filename string) {
	slog.Info("Dumping internal state...", slog.String("file", filename))

	frames := s.buffer.Snapshot()
	raw := make([]string, len(frames))
	for i, f := range frames {
		raw[i] = string(f)
	}

	data := struct {
		Applied   uint64                 `json:"applied"`
		State     string                 `json:"state"`
		Snapshots []domain.PriceSnapshot `json:"snapshots"`
		Frames    []string               `json:"frames"`
	}{
		Applied:   s.applied.Load(),
		State:     s.ConnectionState().String(),
		Snapshots: s.prices.GetAllSnapshots(),
		Frames:    raw,
	}

	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		slog.Error("Failed to marshal state", slog.Any("error", err))
		return
	}

	err = os.WriteFile(filename, b, 0644)
	if err != nil {
		slog.Error("Failed to write state dump", slog.Any("error", err))
	}
}
