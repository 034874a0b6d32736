package execution

import (
	"context"
	"fmt"
	"log/slog"

	"trade_desk/internal/domain"
	"trade_desk/internal/infra"

	"github.com/google/uuid"
)

// Desk turns order forms into submitted orders
type Desk struct {
	builder   *Builder
	prices    domain.PriceReader
	submitter domain.OrderSubmitter
	metrics   *infra.Metrics
	logger    *slog.Logger
}

// NewDesk creates a desk. metrics may be nil.
func NewDesk(builder *Builder, prices domain.PriceReader, submitter domain.OrderSubmitter, metrics *infra.Metrics) *Desk {
	if metrics == nil {
		metrics = &infra.Metrics{}
	}
	return &Desk{
		builder:   builder,
		prices:    prices,
		submitter: submitter,
		metrics:   metrics,
		logger:    slog.Default().With("module", "desk"),
	}
}

// Place validates form against the authoritative snapshot for symbol and
// submits it once. Validation failures are returned without contacting the backend.
func (d *Desk) Place(ctx context.Context, symbol string, form FormState, side domain.Side) (*domain.Order, error) {
	var snap *domain.PriceSnapshot
	if s, ok := d.prices.Snapshot(symbol); ok {
		snap = &s
	}

	intent, err := d.builder.Build(form, snap, side)
	if err != nil {
		d.metrics.RecordOrderRejected()
		d.logger.Debug("Order rejected by validation", slog.String("symbol", symbol), slog.Any("error", err))
		return nil, err
	}
	// Live and fallback snapshots both carry the symbol; prefer the caller's key.
	intent.Symbol = domain.NormalizeSymbol(symbol)
	intent.ClientOrderID = uuid.NewString()

	order, err := d.submitter.CreateOrder(ctx, intent)
	if err != nil {
		d.metrics.RecordOrderRejected()
		d.metrics.RecordError()
		d.logger.Warn("Order submission failed",
			slog.String("client_order_id", intent.ClientOrderID),
			slog.String("symbol", intent.Symbol),
			slog.Any("error", err),
		)
		return nil, fmt.Errorf("submit order: %w", err)
	}

	d.metrics.RecordOrderSubmitted()
	d.logger.Info("Order submitted",
		slog.String("client_order_id", intent.ClientOrderID),
		slog.String("symbol", intent.Symbol),
		slog.String("side", string(side)),
		slog.String("quantity", intent.Quantity.String()),
		slog.String("price", intent.Price.String()),
	)
	return order, nil
}
