package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of a leveraged position.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Valid reports whether s is long or short.
func (s Side) Valid() bool {
	return s == SideLong || s == SideShort
}

// OrderIntent is a validated order request that has not been submitted yet.
// It is a request payload only and is never stored locally.
type OrderIntent struct {
	ClientOrderID string           `json:"clientOrderId,omitempty"`
	Symbol        string           `json:"symbol"`
	Side          Side             `json:"orderType"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Price         decimal.Decimal  `json:"price"` // Reference price at build time (ask for long, bid for short)
	Leverage      int              `json:"leverage"`
	TakeProfit    *decimal.Decimal `json:"takeProfit"`
	StopLoss      *decimal.Decimal `json:"stopLoss"`
}

// Order is a position as reported by the backend order API.
type Order struct {
	ID         string           `json:"id"`
	Symbol     string           `json:"symbol"`
	Side       Side             `json:"orderType"`
	Quantity   decimal.Decimal  `json:"quantity"`
	Price      decimal.Decimal  `json:"price"`
	Leverage   int              `json:"leverage"`
	TakeProfit *decimal.Decimal `json:"takeProfit,omitempty"`
	StopLoss   *decimal.Decimal `json:"stopLoss,omitempty"`
	Status     string           `json:"status"`
	PnL        *decimal.Decimal `json:"pnl,omitempty"`
	CreatedAt  time.Time        `json:"createdAt"`
	ClosedAt   *time.Time       `json:"closedAt,omitempty"`
}

const (
	OrderStatusOpen       = "open"
	OrderStatusClosed     = "closed"
	OrderStatusLiquidated = "liquidated"
)

// IsOpen checks if the position is still active.
func (o *Order) IsOpen() bool {
	return o.Status == OrderStatusOpen
}
