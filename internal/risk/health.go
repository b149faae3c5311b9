package risk

import "github.com/holiman/uint256"

// HealthFactor returns the 18-decimal fixed-point ratio of
// threshold-adjusted collateral USD value to outstanding debt:
//
//	(collateralUsd * LiquidationThreshold / LiquidationPrecision) * Precision / totalDebt
//
// A debt-free account reports MaxHealthFactor and can never be liquidated,
// whatever its collateral is worth. Division truncates toward zero.
func HealthFactor(totalDebt, collateralUsd *uint256.Int) *uint256.Int {
	if totalDebt.IsZero() {
		return new(uint256.Int).Set(MaxHealthFactor)
	}

	adjusted := new(uint256.Int).Mul(collateralUsd, uint256.NewInt(LiquidationThreshold))
	adjusted.Div(adjusted, uint256.NewInt(LiquidationPrecision))

	hf := adjusted.Mul(adjusted, Precision)
	return hf.Div(hf, totalDebt)
}

// Liquidatable reports whether hf is strictly below MinHealthFactor.
func Liquidatable(hf *uint256.Int) bool {
	return hf.Lt(MinHealthFactor)
}
