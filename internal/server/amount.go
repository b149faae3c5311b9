package server

import (
	"fmt"

	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
)

// tokenDecimals is the fixed-point scale of all engine amounts.
const tokenDecimals = 18

// parseAmount converts a human decimal string ("1.5") into an 18-decimal
// fixed-point integer. Amounts must be positive and carry at most 18
// fractional digits.
func parseAmount(s string) (*uint256.Int, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, fmt.Errorf("bad amount %q: %w", s, err)
	}
	if d.Sign() < 0 {
		return nil, fmt.Errorf("amount must not be negative: %s", s)
	}

	scaled := d.Shift(tokenDecimals)
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %q has more than %d decimal places", s, tokenDecimals)
	}

	v, err := uint256.FromDecimal(scaled.String())
	if err != nil {
		return nil, fmt.Errorf("amount %q out of range: %w", s, err)
	}
	return v, nil
}

// formatAmount renders an 18-decimal fixed-point integer as a decimal
// string for API responses.
func formatAmount(v *uint256.Int) string {
	if v == nil {
		return ""
	}
	d, err := decimal.NewFromString(v.Dec())
	if err != nil {
		return v.Dec()
	}
	return d.Shift(-tokenDecimals).String()
}
