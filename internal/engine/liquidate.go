package engine

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"StableEngine/internal/risk"
)

// Liquidate lets liquidator cover debtToCover of user's debt in exchange
// for the equivalent collateral in symbol plus the liquidation bonus.
//
// The protocol, all in one atomic step:
//
//  1. The user must be liquidatable (health factor strictly below minimum).
//  2. Seized collateral is the covered debt's quantity equivalent plus a
//     LiquidationBonus percent incentive. The request is not clamped: if
//     the user holds less of symbol than that, the step fails with the
//     vault's insufficient-collateral error and the liquidator must size
//     the request down.
//  3. The seized collateral moves from the user's vault balance to the
//     liquidator; the covered debt is burned out of the liquidator's own
//     token balance against the user's ledger debt.
//  4. The user's health factor must have strictly improved, and the
//     liquidator's own account must not end up below the minimum.
func (e *Engine) Liquidate(liquidator, user uuid.UUID, symbol string, debtToCover *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpLiquidation, func() error {
		if debtToCover == nil || debtToCover.IsZero() {
			return ErrInvalidAmount
		}
		if _, ok := e.assets[symbol]; !ok {
			return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
		}

		startingHF, err := e.healthFactor(user)
		if err != nil {
			return err
		}
		if !risk.Liquidatable(startingHF) {
			return fmt.Errorf("%w: account %s at %s", ErrHealthFactorOk, user, startingHF.Dec())
		}

		seized, err := e.prices.QuantityFromUsd(symbol, debtToCover)
		if err != nil {
			return err
		}
		bonus := new(uint256.Int).Mul(seized, uint256.NewInt(risk.LiquidationBonus))
		bonus.Div(bonus, uint256.NewInt(risk.LiquidationPrecision))
		total := new(uint256.Int).Add(seized, bonus)

		st := &step{}
		if err := e.redeemCollateral(st, user, symbol, total, liquidator); err != nil {
			st.rollback()
			return err
		}
		if err := e.burnStable(st, user, liquidator, debtToCover); err != nil {
			st.rollback()
			return err
		}

		endingHF, err := e.healthFactor(user)
		if err != nil {
			st.rollback()
			return err
		}
		if !endingHF.Gt(startingHF) {
			st.rollback()
			return fmt.Errorf("%w: %s -> %s", ErrHealthFactorNotImproved,
				startingHF.Dec(), endingHF.Dec())
		}

		// The liquidator pays tokens and takes collateral; their own
		// position must survive that, gated exactly like a mint.
		if err := e.revertIfHealthFactorBroken(liquidator); err != nil {
			st.rollback()
			return fmt.Errorf("liquidator: %w", err)
		}

		e.log.Info().
			Str("user", user.String()).
			Str("liquidator", liquidator.String()).
			Str("asset", symbol).
			Str("debt_covered", debtToCover.Dec()).
			Str("collateral_seized", total.Dec()).
			Str("health_factor", endingHF.Dec()).
			Msg("liquidation executed")
		e.emit(OpLiquidation, user, liquidator, symbol, debtToCover)
		return nil
	})
}
