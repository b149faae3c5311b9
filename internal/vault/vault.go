package vault

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

var (
	// ErrInvalidAmount rejects zero-amount mutations.
	ErrInvalidAmount = errors.New("vault: amount must be more than zero")

	// ErrInsufficientCollateral rejects a debit larger than the deposited
	// balance. This is the underflow guard: balances never go negative.
	ErrInsufficientCollateral = errors.New("vault: insufficient collateral balance")
)

// Key identifies one user's balance in one collateral asset.
type Key struct {
	User  uuid.UUID
	Asset string
}

// Vault is the source of truth for pledged collateral, a per-user per-asset
// balance map. It is plain ledger state: the vault performs no health-factor
// or allow-list checks and no external transfers. Callers serialize access,
// order external asset transfers after the corresponding mutation, and roll
// back via the inverse operation when a later stage of their step fails.
type Vault struct {
	balances map[Key]uint256.Int
}

func New() *Vault {
	return &Vault{
		balances: make(map[Key]uint256.Int),
	}
}

// Balance returns the deposited amount, zero for never-touched accounts.
// A zeroed balance is indistinguishable from one that never existed.
func (v *Vault) Balance(user uuid.UUID, asset string) *uint256.Int {
	b := v.balances[Key{User: user, Asset: asset}]
	return new(uint256.Int).Set(&b)
}

// Credit increases the user's deposited balance of asset.
func (v *Vault) Credit(user uuid.UUID, asset string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	key := Key{User: user, Asset: asset}
	b := v.balances[key]
	b.Add(&b, amount)
	v.balances[key] = b
	return nil
}

// Debit decreases the user's deposited balance of asset, failing with
// ErrInsufficientCollateral when amount exceeds it.
func (v *Vault) Debit(user uuid.UUID, asset string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	key := Key{User: user, Asset: asset}
	b := v.balances[key]
	if b.Lt(amount) {
		return fmt.Errorf("%w: have %s, need %s of %s",
			ErrInsufficientCollateral, b.Dec(), amount.Dec(), asset)
	}

	b.Sub(&b, amount)
	v.balances[key] = b
	return nil
}
