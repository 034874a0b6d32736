package execution

import (
	"fmt"

	"trade_desk/internal/domain"

	"github.com/shopspring/decimal"
)

// Leverage bounds accepted by the order form
const (
	MinLeverage = 1
	MaxLeverage = 100
)

// FormState is the raw order entry form.
// A nil or zero TakeProfit/StopLoss means the level was not provided.
type FormState struct {
	Quantity   decimal.Decimal
	Leverage   int
	TakeProfit *decimal.Decimal
	StopLoss   *decimal.Decimal
}

// Builder validates a form against the current snapshot and balance
type Builder struct {
	Balance     domain.BalanceProvider
	MinLeverage int
	MaxLeverage int
}

// NewBuilder creates a builder with the default leverage bounds
func NewBuilder(balance domain.BalanceProvider) *Builder {
	return &Builder{
		Balance:     balance,
		MinLeverage: MinLeverage,
		MaxLeverage: MaxLeverage,
	}
}

func invalid(field string, sentinel error, format string, args ...interface{}) error {
	return &domain.ValidationError{Field: field, Message: fmt.Sprintf(format, args...), Err: sentinel}
}

// provided reports whether an optional price level was entered
func provided(level *decimal.Decimal) bool {
	return level != nil && !level.IsZero()
}

// Build returns an intent for side or the first validation failure.
// The form is never submitted here.
func (b *Builder) Build(form FormState, snap *domain.PriceSnapshot, side domain.Side) (domain.OrderIntent, error) {
	if !side.Valid() {
		return domain.OrderIntent{}, invalid("side", domain.ErrInvalidSide, "Unknown order side %q", side)
	}

	if !form.Quantity.IsPositive() {
		return domain.OrderIntent{}, invalid("quantity", domain.ErrInvalidQuantity, "Enter a valid quantity")
	}

	if snap == nil {
		return domain.OrderIntent{}, invalid("price", domain.ErrPriceUnavailable, "Price data not available")
	}
	ref := snap.Ask
	if side == domain.SideShort {
		ref = snap.Bid
	}
	if !ref.IsPositive() {
		return domain.OrderIntent{}, invalid("price", domain.ErrPriceUnavailable, "Price data not available")
	}

	margin := RequiredMargin(form.Quantity, ref, form.Leverage)
	balance := decimal.Zero
	if b.Balance != nil {
		balance = b.Balance.AvailableBalance()
	}
	if margin.GreaterThan(balance) {
		return domain.OrderIntent{}, invalid("quantity", domain.ErrInsufficientBalance, "Insufficient balance. Required: $%s", margin.StringFixed(2))
	}

	if form.Leverage < b.MinLeverage || form.Leverage > b.MaxLeverage {
		return domain.OrderIntent{}, invalid("leverage", domain.ErrLeverageOutOfRange, "Leverage must be between %dx and %dx", b.MinLeverage, b.MaxLeverage)
	}

	switch side {
	case domain.SideLong:
		if provided(form.TakeProfit) && form.TakeProfit.LessThanOrEqual(snap.Ask) {
			return domain.OrderIntent{}, invalid("takeProfit", domain.ErrInvalidTakeProfit, "Take profit must be above ask price for long positions")
		}
		if provided(form.StopLoss) && form.StopLoss.GreaterThanOrEqual(snap.Ask) {
			return domain.OrderIntent{}, invalid("stopLoss", domain.ErrInvalidStopLoss, "Stop loss must be below ask price for long positions")
		}
	case domain.SideShort:
		if provided(form.TakeProfit) && form.TakeProfit.GreaterThanOrEqual(snap.Bid) {
			return domain.OrderIntent{}, invalid("takeProfit", domain.ErrInvalidTakeProfit, "Take profit must be below bid price for short positions")
		}
		if provided(form.StopLoss) && form.StopLoss.LessThanOrEqual(snap.Bid) {
			return domain.OrderIntent{}, invalid("stopLoss", domain.ErrInvalidStopLoss, "Stop loss must be above bid price for short positions")
		}
	}

	intent := domain.OrderIntent{
		Symbol:   domain.NormalizeSymbol(snap.Symbol),
		Side:     side,
		Quantity: form.Quantity,
		Price:    ref,
		Leverage: form.Leverage,
	}
	if provided(form.TakeProfit) {
		tp := *form.TakeProfit
		intent.TakeProfit = &tp
	}
	if provided(form.StopLoss) {
		sl := *form.StopLoss
		intent.StopLoss = &sl
	}
	return intent, nil
}

// RequiredMargin returns quantity*price/leverage for display next to the form
func RequiredMargin(quantity, price decimal.Decimal, leverage int) decimal.Decimal {
	if leverage <= 0 {
		leverage = 1
	}
	return quantity.Mul(price).Div(decimal.NewFromInt(int64(leverage)))
}
