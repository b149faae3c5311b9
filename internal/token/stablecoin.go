package token

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

// StableToken is the in-process pegged token: fungible balances plus mint
// and burn. Authority is structural — only the gateway is handed the
// *StableToken, so only the gateway can change supply.
type StableToken struct {
	mu       sync.Mutex
	balances map[uuid.UUID]uint256.Int
	supply   uint256.Int
}

func NewStableToken() *StableToken {
	return &StableToken{
		balances: make(map[uuid.UUID]uint256.Int),
	}
}

// Mint creates amount new units in to's balance.
func (t *StableToken) Mint(to uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.balances[to]
	b.Add(&b, amount)
	t.balances[to] = b
	t.supply.Add(&t.supply, amount)
	return nil
}

// Burn destroys amount units out of from's balance.
func (t *StableToken) Burn(from uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	b := t.balances[from]
	if b.Lt(amount) {
		return fmt.Errorf("%w: have %s, burn %s", ErrInsufficientBalance, b.Dec(), amount.Dec())
	}
	b.Sub(&b, amount)
	t.balances[from] = b
	t.supply.Sub(&t.supply, amount)
	return nil
}

func (t *StableToken) BalanceOf(account uuid.UUID) *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	b := t.balances[account]
	return new(uint256.Int).Set(&b)
}

func (t *StableToken) TotalSupply() *uint256.Int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return new(uint256.Int).Set(&t.supply)
}
