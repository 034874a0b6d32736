package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"trade_desk/internal/domain"
	"trade_desk/internal/execution"
	"trade_desk/internal/infra"
	"trade_desk/internal/infra/backend"
	"trade_desk/internal/infra/storage"
	"trade_desk/internal/service"
)

// DefaultConfigPath is used when TRADE_DESK_CONFIG is not set
const DefaultConfigPath = "configs/config.yaml"

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	Config  *infra.Config
	Storage *storage.Storage
	Client  *backend.Client
	Metrics *infra.Metrics
	Prices  *service.PriceService
	Desk    *execution.Desk
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap() *Bootstrap {
	return &Bootstrap{}
}

// Initialize performs core system initialization (config, logger, DB, backend client)
func (b *Bootstrap) Initialize(configPath string) error {
	slog.Info("🚀 Bootstrapping Trade Desk...")

	// 1. Load Config
	cfg, err := infra.LoadConfig(configPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)

	// 3. Initialize Storage (DB)
	store, err := storage.NewStorage(cfg.Storage.Path)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Database initialized")

	// 4. Backend client
	client, err := backend.NewClient(cfg)
	if err != nil {
		return err
	}
	b.Client = client
	slog.Info("✅ Backend client ready", slog.String("base_url", cfg.API.BaseURL))

	// 5. Price state and order desk
	b.Metrics = infra.GlobalMetrics
	b.Prices = service.NewPriceService()
	balance := execution.NewStaticBalance(cfg.Trading.Balance)
	b.Desk = execution.NewDesk(execution.NewBuilder(balance), b.Prices, client, b.Metrics)

	return nil
}

// SyncSymbols refreshes the cached symbol catalog from the backend.
// A failure leaves the previous cache in place.
func (b *Bootstrap) SyncSymbols(ctx context.Context) error {
	slog.Info("🔄 Starting symbol synchronization...")

	symbols, err := b.Client.GetSymbols(ctx)
	if err != nil {
		return fmt.Errorf("sync symbols: %w", err)
	}
	if err := b.Storage.SyncCatalog(symbols, time.Now()); err != nil {
		return fmt.Errorf("sync symbols: %w", err)
	}

	slog.Info("✨ Symbol synchronization completed", slog.Int("symbols", len(symbols)))
	return nil
}

// ActiveSymbol returns the last symbol the user opened, or the configured one
func (b *Bootstrap) ActiveSymbol() string {
	if b.Storage != nil {
		if sym, ok, err := b.Storage.GetConfig(domain.PrefLastSymbol); err == nil && ok && sym != "" {
			return domain.NormalizeSymbol(sym)
		}
	}
	return domain.NormalizeSymbol(b.Config.Feed.Symbol)
}

// Close releases resources opened by Initialize
func (b *Bootstrap) Close() {
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Failed to close database", slog.Any("error", err))
		}
	}
}
