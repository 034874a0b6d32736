package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Bar is one aggregated candle returned by the historical API.
// Bars are keyed by (symbol, interval, BucketStart) and never change after they are returned.
type Bar struct {
	Symbol      string          `json:"symbol"`
	Interval    string          `json:"interval"`
	BucketStart time.Time       `json:"bucket"`
	Open        decimal.Decimal `json:"open"`
	High        decimal.Decimal `json:"high"`
	Low         decimal.Decimal `json:"low"`
	Close       decimal.Decimal `json:"close"`
	Volume      decimal.Decimal `json:"volume"`
}

// Supported candle intervals
const (
	Interval1m  = "1m"
	Interval5m  = "5m"
	Interval15m = "15m"
	Interval1h  = "1h"
	Interval4h  = "4h"
	Interval1d  = "1d"
)

// IsValidInterval reports whether the backend aggregates candles for interval.
func IsValidInterval(interval string) bool {
	switch interval {
	case Interval1m, Interval5m, Interval15m, Interval1h, Interval4h, Interval1d:
		return true
	default:
		return false
	}
}
