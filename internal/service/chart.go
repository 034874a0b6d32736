package service

import (
	"sort"

	"trade_desk/internal/domain"

	"github.com/shopspring/decimal"
)

// ChartPoint is one candle in the shape chart widgets consume
type ChartPoint struct {
	Time   int64           `json:"time"` // Unix seconds
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume decimal.Decimal `json:"volume"`
}

// ChartPoints converts bars into chart points sorted by time ascending.
// The input slice is not modified.
func ChartPoints(bars []domain.Bar) []ChartPoint {
	points := make([]ChartPoint, 0, len(bars))
	for _, b := range bars {
		points = append(points, ChartPoint{
			Time:   b.BucketStart.Unix(),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		})
	}

	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Time < points[j].Time
	})
	return points
}
