package execution

import (
	"sync"

	"github.com/shopspring/decimal"
)

// StaticBalance is a BalanceProvider backed by a configured amount
type StaticBalance struct {
	mu     sync.RWMutex
	amount decimal.Decimal
}

// NewStaticBalance creates a balance provider holding amount
func NewStaticBalance(amount decimal.Decimal) *StaticBalance {
	return &StaticBalance{amount: amount}
}

// AvailableBalance returns the current amount
func (b *StaticBalance) AvailableBalance() decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.amount
}

// Set replaces the amount
func (b *StaticBalance) Set(amount decimal.Decimal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.amount = amount
}
