package feed

import (
	"sort"

	"trade_desk/internal/domain"
)

// TickerRow is one line of the live ticker board
type TickerRow struct {
	domain.TradeRecord

	// IsUp compares the trade price with the same frame's bid, not with the
	// previous trade. Kept as the board has always rendered it. False when
	// the frame carried no bid.
	IsUp bool
}

// Project maps newest-first frames to one row per symbol.
// The first trade frame seen for a symbol wins; rows are sorted by symbol.
// Frames that fail to decode, and non-trade frames, are skipped.
func Project(frames []RawFrame) []TickerRow {
	seen := make(map[string]struct{})
	rows := make([]TickerRow, 0)

	for _, raw := range frames {
		frame, err := ParseFrame(raw)
		if err != nil || frame.Kind != FrameTrade {
			continue
		}
		if _, ok := seen[frame.Trade.Symbol]; ok {
			continue
		}
		seen[frame.Trade.Symbol] = struct{}{}

		rows = append(rows, TickerRow{
			TradeRecord: frame.Trade,
			IsUp:        frame.Trade.HasBid && frame.Trade.BidPrice.LessThan(frame.Trade.Price),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Symbol < rows[j].Symbol
	})

	return rows
}
