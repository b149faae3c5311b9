// Package debt tracks outstanding minted stable value per user. It is pure
// ledger arithmetic: supply changes on the pegged token itself are the
// gateway's job, not this package's.
package debt

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

var (
	// ErrInvalidAmount rejects zero-amount mutations.
	ErrInvalidAmount = errors.New("debt: amount must be more than zero")

	// ErrInsufficientDebt rejects a decrease larger than the outstanding debt.
	ErrInsufficientDebt = errors.New("debt: decrease exceeds outstanding debt")
)

// Ledger is the per-user outstanding-debt map.
type Ledger struct {
	debts map[uuid.UUID]uint256.Int
}

func New() *Ledger {
	return &Ledger{
		debts: make(map[uuid.UUID]uint256.Int),
	}
}

// Debt returns the user's outstanding minted value, zero if none.
func (l *Ledger) Debt(user uuid.UUID) *uint256.Int {
	d := l.debts[user]
	return new(uint256.Int).Set(&d)
}

// Increase adds amount to the user's outstanding debt.
func (l *Ledger) Increase(user uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	d := l.debts[user]
	d.Add(&d, amount)
	l.debts[user] = d
	return nil
}

// Decrease removes amount from the user's outstanding debt, failing with
// ErrInsufficientDebt when amount exceeds it.
func (l *Ledger) Decrease(user uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	d := l.debts[user]
	if d.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s", ErrInsufficientDebt, d.Dec(), amount.Dec())
	}

	d.Sub(&d, amount)
	l.debts[user] = d
	return nil
}
