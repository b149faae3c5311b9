// Package token holds the engine's external token collaborators: the pegged
// stablecoin's mint/burn surface, the transfer surface of collateral assets,
// and in-process implementations of both for local mode and tests.
package token

import (
	"errors"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
)

var (
	// ErrInvalidAmount rejects zero-amount token operations.
	ErrInvalidAmount = errors.New("token: amount must be more than zero")

	// ErrInsufficientBalance rejects a transfer or burn exceeding the
	// holder's balance.
	ErrInsufficientBalance = errors.New("token: insufficient balance")
)

// Stablecoin is the mint/burn capability of the pegged token. The gateway is
// the only holder of this capability: nothing else in the engine mints or
// burns supply.
type Stablecoin interface {
	Mint(to uuid.UUID, amount *uint256.Int) error
	Burn(from uuid.UUID, amount *uint256.Int) error
	BalanceOf(account uuid.UUID) *uint256.Int
	TotalSupply() *uint256.Int
}

// Asset is the transfer surface of a collateral asset. Implementations must
// be reversible within a step: a successful Transfer can be undone by the
// inverse Transfer, which the engine relies on for atomic rollback.
type Asset interface {
	Transfer(from, to uuid.UUID, amount *uint256.Int) error
	BalanceOf(account uuid.UUID) *uint256.Int
}
