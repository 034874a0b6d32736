package service

import (
	"sort"
	"sync"

	"trade_desk/internal/domain"
)

// PriceService holds the authoritative price view per symbol.
// While the feed is connected the live snapshot wins. Otherwise the
// snapshot is derived from the latest historical bars.
type PriceService struct {
	mu        sync.RWMutex
	live      map[string]domain.PriceSnapshot
	bars      map[string][]domain.Bar
	connected bool
}

// NewPriceService creates a new PriceService instance
func NewPriceService() *PriceService {
	return &PriceService{
		live: make(map[string]domain.PriceSnapshot),
		bars: make(map[string][]domain.Bar),
	}
}

// ApplyPrice stores a live price frame
func (s *PriceService) ApplyPrice(snap domain.PriceSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap.Symbol = domain.NormalizeSymbol(snap.Symbol)
	snap.Live = true
	s.live[snap.Symbol] = snap
}

// ApplyTrade updates bid/ask/last from a ticker trade.
// Change fields from the last price frame are kept since trades carry none.
// A missing quote keeps the previous live value. A trade without quotes and
// no previous live entry is ignored, leaving the fallback in place.
func (s *PriceService) ApplyTrade(rec domain.TradeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := domain.SnapshotFromTrade(rec)
	prev, ok := s.live[snap.Symbol]
	if !ok {
		if !rec.HasQuotes() {
			return
		}
		s.live[snap.Symbol] = snap
		return
	}

	if !rec.HasBid {
		snap.Bid = prev.Bid
	}
	if !rec.HasAsk {
		snap.Ask = prev.Ask
	}
	snap.ChangeAbsolute = prev.ChangeAbsolute
	snap.ChangePercent = prev.ChangePercent
	s.live[snap.Symbol] = snap
}

// UpdateBars replaces the bar history for symbol
func (s *PriceService) UpdateBars(symbol string, bars []domain.Bar) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := make([]domain.Bar, len(bars))
	copy(cp, bars)
	sort.SliceStable(cp, func(i, j int) bool {
		return cp[i].BucketStart.Before(cp[j].BucketStart)
	})
	s.bars[domain.NormalizeSymbol(symbol)] = cp
}

// Bars returns a copy of the bar history for symbol in ascending order
func (s *PriceService) Bars(symbol string) []domain.Bar {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.bars[domain.NormalizeSymbol(symbol)]
	cp := make([]domain.Bar, len(src))
	copy(cp, src)
	return cp
}

// SetConnected records the feed state. Live snapshots are discarded on
// disconnect so stale values are never served as live.
func (s *PriceService) SetConnected(connected bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.connected = connected
	if !connected {
		clear(s.live)
	}
}

// IsConnected reports the last recorded feed state
func (s *PriceService) IsConnected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.connected
}

// Snapshot returns the authoritative snapshot for symbol
func (s *PriceService) Snapshot(symbol string) (domain.PriceSnapshot, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.snapshotLocked(domain.NormalizeSymbol(symbol))
}

// Must be called with lock held
func (s *PriceService) snapshotLocked(symbol string) (domain.PriceSnapshot, bool) {
	if s.connected {
		if snap, ok := s.live[symbol]; ok {
			return snap, true
		}
	}
	return FallbackSnapshot(symbol, s.bars[symbol])
}

// GetAllSnapshots returns every known snapshot sorted by symbol
func (s *PriceService) GetAllSnapshots() []domain.PriceSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make(map[string]struct{}, len(s.live)+len(s.bars))
	for sym := range s.live {
		symbols[sym] = struct{}{}
	}
	for sym := range s.bars {
		symbols[sym] = struct{}{}
	}

	result := make([]domain.PriceSnapshot, 0, len(symbols))
	for sym := range symbols {
		if snap, ok := s.snapshotLocked(sym); ok {
			result = append(result, snap)
		}
	}

	// Sort by symbol for consistent ordering
	sort.Slice(result, func(i, j int) bool {
		return result[i].Symbol < result[j].Symbol
	})

	return result
}
