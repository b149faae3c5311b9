package engine

import "errors"

// Every operation fails fast: the first broken check aborts the whole step
// and rolls back everything the step already did. Nothing is retried and
// nothing is clamped — a liquidation sized beyond the user's seizable
// collateral fails rather than shrinking to fit.
var (
	// ErrLengthMismatch rejects construction with unequal collateral-asset
	// and price-feed lists.
	ErrLengthMismatch = errors.New("engine: collateral asset and price feed counts differ")

	// ErrInvalidAmount rejects zero-amount operation arguments.
	ErrInvalidAmount = errors.New("engine: amount must be more than zero")

	// ErrUnsupportedAsset rejects a collateral asset outside the allow-list
	// fixed at construction.
	ErrUnsupportedAsset = errors.New("engine: collateral asset not allow-listed")

	// ErrHealthFactorBroken rejects an operation that would leave (or has
	// left) an account's health factor below the minimum.
	ErrHealthFactorBroken = errors.New("engine: health factor below minimum")

	// ErrHealthFactorOk rejects liquidating an account whose health factor
	// is at or above the minimum.
	ErrHealthFactorOk = errors.New("engine: health factor not below minimum")

	// ErrHealthFactorNotImproved rejects a liquidation that did not strictly
	// raise the user's health factor.
	ErrHealthFactorNotImproved = errors.New("engine: liquidation did not improve health factor")
)
