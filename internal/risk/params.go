package risk

import "github.com/holiman/uint256"

// Protocol parameters. Fixed at compile time, never mutated at runtime.
const (
	// LiquidationThreshold is the percentage of collateral USD value that
	// counts toward borrowing power. At 50 the protocol requires 200%
	// overcollateralization.
	LiquidationThreshold = 50

	// LiquidationPrecision is the divisor for threshold and bonus percentages.
	LiquidationPrecision = 100

	// LiquidationBonus is the percentage of extra collateral a liquidator
	// receives on top of the covered debt's collateral equivalent.
	LiquidationBonus = 10

	// FeedDecimals is the fixed decimal convention of external price feeds.
	FeedDecimals = 8
)

var (
	// Precision is the 18-decimal fixed-point scale shared by token
	// quantities, USD values and health factors.
	Precision = uint256.NewInt(1_000_000_000_000_000_000)

	// AdditionalFeedPrecision lifts an 8-decimal feed price into the
	// 18-decimal fixed-point domain.
	AdditionalFeedPrecision = uint256.NewInt(10_000_000_000)

	// MinHealthFactor is 1.0 in 18-decimal fixed point. An account whose
	// health factor drops strictly below this is liquidatable.
	MinHealthFactor = uint256.NewInt(1_000_000_000_000_000_000)

	// MaxHealthFactor is the sentinel reported by debt-free accounts.
	MaxHealthFactor = new(uint256.Int).SetAllOne()
)
