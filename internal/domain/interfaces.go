package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// FeedConnector defines the interface for the live price socket
type FeedConnector interface {
	Start(ctx context.Context) error
	Stop()
	IsConnected() bool
}

// BarSource serves historical aggregated bars
type BarSource interface {
	GetCandles(ctx context.Context, interval string, start, end time.Time, asset string) ([]Bar, error)
}

// OrderSubmitter hands a validated intent to the external order API
type OrderSubmitter interface {
	CreateOrder(ctx context.Context, intent OrderIntent) (*Order, error)
}

// PriceReader returns the authoritative snapshot for a symbol
type PriceReader interface {
	Snapshot(symbol string) (PriceSnapshot, bool)
}

// BalanceProvider reports the margin available for new positions
type BalanceProvider interface {
	AvailableBalance() decimal.Decimal
}
