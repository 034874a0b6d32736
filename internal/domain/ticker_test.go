package domain

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestSnapshotFromTrade(t *testing.T) {
	rec := TradeRecord{
		Symbol:   "BTCUSDT",
		Price:    decimal.NewFromInt(50000),
		BidPrice: decimal.NewFromInt(49990),
		AskPrice: decimal.NewFromInt(50010),
		HasBid:   true,
		HasAsk:   true,
	}

	snap := SnapshotFromTrade(rec)
	if snap.Symbol != "btcusdt" {
		t.Errorf("Expected lowercase symbol, got %s", snap.Symbol)
	}
	if !snap.Last.Equal(rec.Price) || !snap.Bid.Equal(rec.BidPrice) || !snap.Ask.Equal(rec.AskPrice) {
		t.Errorf("Prices not carried over: %+v", snap)
	}
	if !snap.Live {
		t.Error("Trade-derived snapshot should be live")
	}
	if !snap.ChangePercent.IsZero() {
		t.Errorf("Expected zero change, got %v", snap.ChangePercent)
	}
}

func TestPriceSnapshot_ChangeDirection(t *testing.T) {
	tests := []struct {
		name string
		pct  decimal.Decimal
		want string
	}{
		{"up", decimal.NewFromFloat(1.5), "positive"},
		{"down", decimal.NewFromFloat(-0.2), "negative"},
		{"flat", decimal.Zero, "neutral"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := PriceSnapshot{ChangePercent: tt.pct}
			if got := snap.ChangeDirection(); got != tt.want {
				t.Errorf("ChangeDirection() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNormalizeSymbol(t *testing.T) {
	if got := NormalizeSymbol("  ETHUSDT "); got != "ethusdt" {
		t.Errorf("NormalizeSymbol = %q, want %q", got, "ethusdt")
	}
}
