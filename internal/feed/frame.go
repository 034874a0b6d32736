package feed

import (
	"encoding/json"
	"fmt"

	"trade_desk/internal/domain"

	"github.com/shopspring/decimal"
)

// RawFrame is one undecoded text payload from the socket
type RawFrame string

// FrameKind tags the decoded shape of a frame
type FrameKind int

const (
	FrameUnknown FrameKind = iota
	FrameTrade
	FramePrice
)

func (k FrameKind) String() string {
	switch k {
	case FrameTrade:
		return "TRADE"
	case FramePrice:
		return "PRICE"
	default:
		return "UNKNOWN"
	}
}

// Frame is the decoded form of a RawFrame. Only the field matching Kind is set.
type Frame struct {
	Kind  FrameKind
	Trade domain.TradeRecord
	Price domain.PriceSnapshot
}

// wireFrame covers both inbound shapes:
//
//	{"data":{"e":"trade","E":1700000000000,"s":"BTCUSDT","p":"50000.1","q":"0.01"},"bid":49999,"ask":50001}
//	{"type":"price","symbol":"btcusdt","bid":49999,"ask":50001,"last":50000,"change":120,"changePercent":0.24}
type wireFrame struct {
	Type          string              `json:"type"`
	Symbol        string              `json:"symbol"`
	Data          json.RawMessage     `json:"data"`
	Bid           decimal.NullDecimal `json:"bid"`
	Ask           decimal.NullDecimal `json:"ask"`
	Last          decimal.NullDecimal `json:"last"`
	Change        decimal.NullDecimal `json:"change"`
	ChangePercent decimal.NullDecimal `json:"changePercent"`
}

// tradePayload is the exchange event under "data".
// Case pairs ("e"/"E", "p"/"P") are both declared so encoding/json's
// case-insensitive matching never folds one key into the other field.
type tradePayload struct {
	EventType      string              `json:"e"`
	EventTime      int64               `json:"E"`
	Symbol         string              `json:"s"`
	Price          decimal.NullDecimal `json:"p"`
	PriceChangePct decimal.NullDecimal `json:"P"`
}

// ParseFrame decodes a raw frame.
// Invalid JSON or a structurally broken payload returns ErrMalformedFrame.
// Valid JSON that is neither a trade nor a price frame returns FrameUnknown.
func ParseFrame(raw RawFrame) (Frame, error) {
	var w wireFrame
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return Frame{}, fmt.Errorf("%w: %v", domain.ErrMalformedFrame, err)
	}

	if w.Type == "price" {
		return parsePrice(w)
	}
	if len(w.Data) > 0 && string(w.Data) != "null" {
		return parseTrade(w)
	}
	return Frame{Kind: FrameUnknown}, nil
}

func parsePrice(w wireFrame) (Frame, error) {
	if w.Symbol == "" || !w.Bid.Valid || !w.Ask.Valid {
		return Frame{}, fmt.Errorf("%w: price frame missing symbol, bid or ask", domain.ErrMalformedFrame)
	}

	last := w.Bid.Decimal
	if w.Last.Valid && !w.Last.Decimal.IsZero() {
		last = w.Last.Decimal
	}

	return Frame{
		Kind: FramePrice,
		Price: domain.PriceSnapshot{
			Symbol:         domain.NormalizeSymbol(w.Symbol),
			Bid:            w.Bid.Decimal,
			Ask:            w.Ask.Decimal,
			Last:           last,
			ChangeAbsolute: w.Change.Decimal,
			ChangePercent:  w.ChangePercent.Decimal,
			Live:           true,
		},
	}, nil
}

func parseTrade(w wireFrame) (Frame, error) {
	var p tradePayload
	if err := json.Unmarshal(w.Data, &p); err != nil {
		return Frame{}, fmt.Errorf("%w: trade payload: %v", domain.ErrMalformedFrame, err)
	}
	if p.Symbol == "" || !p.Price.Valid {
		return Frame{}, fmt.Errorf("%w: trade frame missing symbol or price", domain.ErrMalformedFrame)
	}

	return Frame{
		Kind: FrameTrade,
		Trade: domain.TradeRecord{
			Symbol:          p.Symbol,
			Price:           p.Price.Decimal,
			BidPrice:        w.Bid.Decimal,
			AskPrice:        w.Ask.Decimal,
			EventTimeMillis: p.EventTime,
			HasBid:          w.Bid.Valid,
			HasAsk:          w.Ask.Valid,
		},
	}, nil
}
