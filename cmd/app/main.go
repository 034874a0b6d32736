package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trade_desk/internal/app"
	"trade_desk/internal/domain"
	"trade_desk/internal/engine"
	"trade_desk/internal/feed"
	"trade_desk/internal/infra"

	"golang.org/x/sync/errgroup"
)

func main() {
	// 1. System Bootstrapping
	configPath := os.Getenv("TRADE_DESK_CONFIG")
	if configPath == "" {
		configPath = app.DefaultConfigPath
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	cfg := bootstrap.Config

	// 2. Graceful Shutdown Context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 3. Symbol catalog (best effort)
	go func() {
		if err := bootstrap.SyncSymbols(ctx); err != nil {
			slog.Warn("Symbol synchronization failed", slog.Any("error", err))
		}
	}()

	symbol := bootstrap.ActiveSymbol()
	if err := bootstrap.Storage.SaveConfig(domain.PrefLastSymbol, symbol); err != nil {
		slog.Warn("Failed to save last symbol", slog.Any("error", err))
	}

	// 4. Sequencer
	seq := engine.NewSequencer(1024, feed.NewBuffer(cfg.Feed.BufferSize), bootstrap.Prices, bootstrap.Metrics, nil)

	// 5. Feed session and fallback bar poller
	session := feed.NewSession(feed.SessionConfig{
		URL:            cfg.API.WSURL,
		Symbol:         symbol,
		ReconnectDelay: cfg.ReconnectDelay(),
	}, seq.Inbox(), bootstrap.Metrics)

	pollerCfg := infra.BarPollerConfigFrom(cfg)
	pollerCfg.Symbol = symbol
	poller := infra.NewBarPoller(bootstrap.Client, seq.Inbox(), pollerCfg, bootstrap.Metrics)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return seq.Run(gctx)
	})
	slog.InfoContext(ctx, "✅ Sequencer started")

	g.Go(func() error {
		if err := session.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		session.Stop()
		return nil
	})
	slog.InfoContext(ctx, "✅ Feed session started", slog.String("url", cfg.API.WSURL), slog.String("symbol", symbol))

	g.Go(func() error {
		if err := poller.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		poller.Stop()
		return nil
	})
	slog.InfoContext(ctx, "✅ Bar poller started", slog.String("interval", pollerCfg.Interval))

	// 6. Periodic board/snapshot report
	g.Go(func() error {
		ticker := time.NewTicker(time.Duration(cfg.UI.UpdateIntervalMS) * time.Millisecond)
		defer ticker.Stop()

		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				report(seq, symbol, bootstrap.Metrics)
			}
		}
	})

	slog.InfoContext(ctx, "✨ Trade Desk fully operational. Press Ctrl+C to exit.")

	if err := g.Wait(); err != nil {
		slog.Error("❌ Component failed", slog.Any("error", err))
	}

	slog.Info("👋 Shutting down gracefully...", slog.Any("metrics", bootstrap.Metrics.Snapshot()))
}

func report(seq *engine.Sequencer, symbol string, metrics *infra.Metrics) {
	board := seq.Board()
	rows := make([]slog.Attr, 0, len(board))
	for _, row := range board {
		rows = append(rows, slog.Group(row.Symbol,
			slog.String("price", row.Price.String()),
			slog.Bool("up", row.IsUp),
		))
	}

	attrs := []any{
		slog.String("feed", seq.ConnectionState().String()),
		slog.Any("board", slog.GroupValue(rows...)),
		slog.Uint64("frames", metrics.Snapshot().FramesReceived),
	}
	if snap, ok := seq.Snapshot(symbol); ok {
		attrs = append(attrs,
			slog.String("bid", snap.Bid.String()),
			slog.String("ask", snap.Ask.String()),
			slog.String("last", snap.Last.String()),
			slog.String("change_pct", snap.ChangePercent.StringFixed(2)),
			slog.Bool("live", snap.Live),
		)
	}
	slog.Debug("Price board", attrs...)
}
