package infra

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"trade_desk/internal/domain"
	"trade_desk/internal/event"
)

// BarPollerConfig describes which bars to refresh and how often
type BarPollerConfig struct {
	Symbol       string
	Interval     string
	Lookback     time.Duration
	PollInterval time.Duration
}

// BarPollerConfigFrom builds the poller settings from the app config
func BarPollerConfigFrom(cfg *Config) BarPollerConfig {
	return BarPollerConfig{
		Symbol:       cfg.Feed.Symbol,
		Interval:     cfg.Feed.Fallback.Interval,
		Lookback:     time.Duration(cfg.Feed.Fallback.LookbackHours) * time.Hour,
		PollInterval: time.Duration(cfg.Feed.Fallback.PollIntervalSec) * time.Second,
	}
}

// BarPoller periodically fetches recent bars and posts them to the sequencer.
// One fetch per tick. A failed fetch waits for the next tick.
type BarPoller struct {
	source  domain.BarSource
	inbox   chan<- event.Event
	cfg     BarPollerConfig
	metrics *Metrics
	now     func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewBarPoller creates a new bar poller. metrics may be nil.
func NewBarPoller(source domain.BarSource, inbox chan<- event.Event, cfg BarPollerConfig, metrics *Metrics) *BarPoller {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Duration(defaultPollIntervalSec) * time.Second
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = time.Duration(defaultLookbackHours) * time.Hour
	}
	if cfg.Interval == "" {
		cfg.Interval = defaultFallbackInterval
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &BarPoller{
		source:  source,
		inbox:   inbox,
		cfg:     cfg,
		metrics: metrics,
		now:     time.Now,
	}
}

// Start fetches once immediately and then on every tick
func (p *BarPoller) Start(ctx context.Context) error {
	if p.cfg.Symbol == "" {
		return &domain.ConfigError{Field: "feed.symbol", Err: domain.ErrInvalidSymbol}
	}

	ctx, p.cancel = context.WithCancel(ctx)

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				slog.Error("Bar polling panic recovered", slog.Any("panic", r))
			}
		}()

		if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
			slog.Warn("Initial bar fetch failed", slog.Any("error", err))
		}

		ticker := time.NewTicker(p.cfg.PollInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				slog.Info("Bar polling stopped")
				return
			case <-ticker.C:
				if err := p.Poll(ctx); err != nil && ctx.Err() == nil {
					slog.Warn("Bar fetch failed", slog.Any("error", err))
				}
			}
		}
	}()

	return nil
}

// Poll performs a single fetch for the lookback window ending now
func (p *BarPoller) Poll(ctx context.Context) error {
	end := p.now()
	start := end.Add(-p.cfg.Lookback)
	symbol := domain.NormalizeSymbol(p.cfg.Symbol)

	bars, err := p.source.GetCandles(ctx, p.cfg.Interval, start, end, symbol)
	if err != nil {
		p.metrics.RecordError()
		return fmt.Errorf("fetch %s bars for %s: %w", p.cfg.Interval, symbol, err)
	}

	slog.Debug("Bars fetched", slog.String("symbol", symbol), slog.Int("count", len(bars)))

	select {
	case p.inbox <- &event.BarsEvent{Symbol: symbol, Bars: bars}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop stops the polling
func (p *BarPoller) Stop() {
	if p.cancel != nil {
		p.cancel()
		p.wg.Wait()
	}
}
