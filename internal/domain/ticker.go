package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// TradeRecord is the latest trade event seen for one symbol on the ticker feed
type TradeRecord struct {
	Symbol          string          `json:"symbol"`
	Price           decimal.Decimal `json:"price"`
	BidPrice        decimal.Decimal `json:"bid"`
	AskPrice        decimal.Decimal `json:"ask"`
	EventTimeMillis int64           `json:"event_time"`

	// Set when the frame carried the quote; a missing quote decodes as zero.
	HasBid bool `json:"-"`
	HasAsk bool `json:"-"`
}

// HasQuotes reports whether both bid and ask came with the trade
func (r TradeRecord) HasQuotes() bool {
	return r.HasBid && r.HasAsk
}

// PriceSnapshot is the bid/ask/last view of a symbol.
// Live is false when the values were derived from historical bars.
type PriceSnapshot struct {
	Symbol         string          `json:"symbol"`
	Bid            decimal.Decimal `json:"bid"`
	Ask            decimal.Decimal `json:"ask"`
	Last           decimal.Decimal `json:"last"`
	ChangeAbsolute decimal.Decimal `json:"change"`
	ChangePercent  decimal.Decimal `json:"change_percent"`
	Live           bool            `json:"live"`
}

// SnapshotFromTrade derives a live snapshot from a ticker trade.
// Trades carry no 24h reference, so the change fields stay zero.
func SnapshotFromTrade(rec TradeRecord) PriceSnapshot {
	return PriceSnapshot{
		Symbol: NormalizeSymbol(rec.Symbol),
		Bid:    rec.BidPrice,
		Ask:    rec.AskPrice,
		Last:   rec.Price,
		Live:   true,
	}
}

// ChangeDirection returns "positive", "negative", or "neutral"
func (p PriceSnapshot) ChangeDirection() string {
	if p.ChangePercent.IsPositive() {
		return "positive"
	}
	if p.ChangePercent.IsNegative() {
		return "negative"
	}
	return "neutral"
}

// NormalizeSymbol returns the lowercase form the backend keys symbols by.
func NormalizeSymbol(symbol string) string {
	return strings.ToLower(strings.TrimSpace(symbol))
}
