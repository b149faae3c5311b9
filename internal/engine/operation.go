package engine

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"StableEngine/internal/debt"
	"StableEngine/internal/oracle"
	"StableEngine/internal/token"
	"StableEngine/internal/vault"
)

// Operation types recorded to the audit log and published outbound.
const (
	OpDeposit     = "deposit"
	OpRedeem      = "redeem"
	OpMint        = "mint"
	OpBurn        = "burn"
	OpLiquidation = "liquidation"
)

// Operation is the record of one committed engine operation. Rejected
// operations leave no record: they leave no state either.
type Operation struct {
	ID           uuid.UUID
	Type         string
	User         uuid.UUID
	Counterparty uuid.UUID // liquidator on liquidations, uuid.Nil otherwise
	Asset        string    // empty for pure mint/burn
	Amount       *uint256.Int
	HealthFactor *uint256.Int // user's health factor after the operation
	At           time.Time
}

// rejectReason maps an operation error onto a short metrics label.
func rejectReason(err error) string {
	switch {
	case errors.Is(err, ErrInvalidAmount),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, debt.ErrInvalidAmount),
		errors.Is(err, token.ErrInvalidAmount):
		return "invalid_amount"
	case errors.Is(err, ErrUnsupportedAsset):
		return "unsupported_asset"
	case errors.Is(err, ErrHealthFactorBroken):
		return "health_factor_broken"
	case errors.Is(err, ErrHealthFactorOk):
		return "health_factor_ok"
	case errors.Is(err, ErrHealthFactorNotImproved):
		return "health_factor_not_improved"
	case errors.Is(err, vault.ErrInsufficientCollateral):
		return "insufficient_collateral"
	case errors.Is(err, debt.ErrInsufficientDebt):
		return "insufficient_debt"
	case errors.Is(err, token.ErrInsufficientBalance):
		return "insufficient_balance"
	case errors.Is(err, oracle.ErrNoPrice), errors.Is(err, oracle.ErrUnknownAsset):
		return "oracle"
	default:
		return "other"
	}
}
