package token

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"StableEngine/internal/debt"
)

// Gateway is the sole holder of the stablecoin's mint/burn capability. It
// translates debt-ledger changes into actual token supply changes, keeping
// the two in lockstep: debt is never changed here without the matching
// supply change.
//
// The gateway does not gate on solvency — projecting and checking the
// post-mint health factor before committing is the engine's job, because
// only the engine can value collateral.
type Gateway struct {
	debts *debt.Ledger
	coin  Stablecoin
}

func NewGateway(debts *debt.Ledger, coin Stablecoin) *Gateway {
	return &Gateway{debts: debts, coin: coin}
}

// Mint increases user's ledger debt and mints the same amount of the pegged
// token to them. If the token mint fails the ledger increase is undone, so
// the two never diverge.
func (g *Gateway) Mint(user uuid.UUID, amount *uint256.Int) error {
	if err := g.debts.Increase(user, amount); err != nil {
		return err
	}
	if err := g.coin.Mint(user, amount); err != nil {
		if derr := g.debts.Decrease(user, amount); derr != nil {
			return fmt.Errorf("mint failed (%v) and ledger rollback failed: %w", err, derr)
		}
		return fmt.Errorf("stablecoin mint: %w", err)
	}
	return nil
}

// Burn decreases target's ledger debt and burns the tokens out of payer's
// balance. Target and payer differ during liquidation, when the liquidator
// funds the burn of the liquidated user's debt.
func (g *Gateway) Burn(target, payer uuid.UUID, amount *uint256.Int) error {
	if err := g.debts.Decrease(target, amount); err != nil {
		return err
	}
	if err := g.coin.Burn(payer, amount); err != nil {
		if ierr := g.debts.Increase(target, amount); ierr != nil {
			return fmt.Errorf("burn failed (%v) and ledger rollback failed: %w", err, ierr)
		}
		return fmt.Errorf("stablecoin burn: %w", err)
	}
	return nil
}
