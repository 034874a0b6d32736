package service

import (
	"trade_desk/internal/domain"

	"github.com/shopspring/decimal"
)

// syntheticSpreadRatio is the spread applied around the last close: 0.1%
var syntheticSpreadRatio = decimal.NewFromFloat(0.001)

var (
	two     = decimal.NewFromInt(2)
	hundred = decimal.NewFromInt(100)
)

// FallbackSnapshot derives a non-live snapshot from historical bars.
// bars must be in ascending bucket order. It returns false when bars is empty.
func FallbackSnapshot(symbol string, bars []domain.Bar) (domain.PriceSnapshot, bool) {
	if len(bars) == 0 {
		return domain.PriceSnapshot{}, false
	}

	earliest := bars[0]
	last := bars[len(bars)-1].Close

	spread := last.Mul(syntheticSpreadRatio)
	half := spread.Div(two)

	change := last.Sub(earliest.Open)
	pct := decimal.Zero
	if !earliest.Open.IsZero() {
		pct = change.Div(earliest.Open).Mul(hundred)
	}

	return domain.PriceSnapshot{
		Symbol:         domain.NormalizeSymbol(symbol),
		Bid:            last.Sub(half),
		Ask:            last.Add(half),
		Last:           last,
		ChangeAbsolute: change,
		ChangePercent:  pct,
		Live:           false,
	}, true
}
