package daybook

import (
	"errors"
	"fmt"
	"sort"

	"github.com/roach88/kassa/internal/model"
)

// ErrInvalidCount is returned for a negative note count or coin value.
var ErrInvalidCount = errors.New("daybook: invalid cash count")

// DefaultDenominations are the banknotes offered for counting, largest first.
var DefaultDenominations = []model.Money{100000, 50000, 20000, 10000, 5000, 2000, 1000}

// CashCount is a drawer count at day close: a number of notes per
// denomination plus the lump value of all coins.
type CashCount struct {
	Notes map[model.Money]int
	Coins model.Money
}

// Validate rejects negative counts and non-positive denominations.
func (c CashCount) Validate() error {
	for denom, n := range c.Notes {
		if denom <= 0 {
			return fmt.Errorf("%w: denomination %d", ErrInvalidCount, denom)
		}
		if n < 0 {
			return fmt.Errorf("%w: %d notes of %d", ErrInvalidCount, n, denom)
		}
	}
	if c.Coins < 0 {
		return fmt.Errorf("%w: coins %d", ErrInvalidCount, c.Coins)
	}
	return nil
}

// Total returns the counted value.
func (c CashCount) Total() model.Money {
	total := c.Coins
	for denom, n := range c.Notes {
		total += denom.Times(n)
	}
	return total
}

// Denominations returns the counted denominations, largest first.
func (c CashCount) Denominations() []model.Money {
	out := make([]model.Money, 0, len(c.Notes))
	for denom := range c.Notes {
		out = append(out, denom)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] > out[j] })
	return out
}

// Reconciliation compares counted cash with the cash the sales say should be there.
type Reconciliation struct {
	Counted    model.Money `json:"counted"`
	Expected   model.Money `json:"expected"`
	Difference model.Money `json:"difference"`
}

// Balanced reports whether the drawer matches exactly.
func (r Reconciliation) Balanced() bool {
	return r.Difference == 0
}

// Reconcile returns counted minus expected. A positive difference is a surplus.
func (c CashCount) Reconcile(expected model.Money) Reconciliation {
	counted := c.Total()
	return Reconciliation{
		Counted:    counted,
		Expected:   expected,
		Difference: counted - expected,
	}
}
