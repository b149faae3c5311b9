package token

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// FungibleAsset is an in-process collateral asset with standard fungible
// balance and transfer semantics.
type FungibleAsset struct {
	symbol   string
	mu       sync.Mutex
	balances map[uuid.UUID]uint256.Int
}

func NewFungibleAsset(symbol string) *FungibleAsset {
	return &FungibleAsset{
		symbol:   symbol,
		balances: make(map[uuid.UUID]uint256.Int),
	}
}

func (a *FungibleAsset) Symbol() string {
	return a.symbol
}

// Issue creates amount units in to's balance. Used to fund accounts in
// local mode and tests; real collateral assets arrive funded.
func (a *FungibleAsset) Issue(to uuid.UUID, amount *uint256.Int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	b := a.balances[to]
	b.Add(&b, amount)
	a.balances[to] = b
}

// Transfer moves amount from one account to another, failing with
// ErrInsufficientBalance if from lacks it.
func (a *FungibleAsset) Transfer(from, to uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	fb := a.balances[from]
	if fb.Lt(amount) {
		return fmt.Errorf("%w: %s has %s, transfer %s", ErrInsufficientBalance,
			a.symbol, fb.Dec(), amount.Dec())
	}
	fb.Sub(&fb, amount)
	a.balances[from] = fb

	tb := a.balances[to]
	tb.Add(&tb, amount)
	a.balances[to] = tb
	return nil
}

func (a *FungibleAsset) BalanceOf(account uuid.UUID) *uint256.Int {
	a.mu.Lock()
	defer a.mu.Unlock()
	b := a.balances[account]
	return new(uint256.Int).Set(&b)
}
