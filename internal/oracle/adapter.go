// Package oracle values collateral in USD and back, one price feed per
// collateral asset.
package oracle

import (
	"errors"
	"fmt"

	"github.com/holiman/uint256"

	"StableEngine/internal/risk"
)

// ErrUnknownAsset is returned when no feed is registered for an asset.
var ErrUnknownAsset = errors.New("oracle: no price feed for asset")

// Adapter converts between asset quantities and USD values using one
// PriceFeed per asset. Every conversion reads the feed fresh; nothing is
// cached here.
//
// Both directions truncate toward zero, so UsdValue and QuantityFromUsd are
// exact inverses in one direction only: a quantity→USD→quantity round trip
// may lose the fractional remainder.
type Adapter struct {
	feeds map[string]PriceFeed
}

// NewAdapter builds an adapter over a fixed symbol→feed map. The map is not
// copied; the caller fixes it at construction and never mutates it.
func NewAdapter(feeds map[string]PriceFeed) *Adapter {
	return &Adapter{feeds: feeds}
}

// UsdValue returns the 18-decimal USD value of an 18-decimal quantity of
// asset: price * AdditionalFeedPrecision * quantity / Precision.
func (a *Adapter) UsdValue(asset string, quantity *uint256.Int) (*uint256.Int, error) {
	price, err := a.latestPrice(asset)
	if err != nil {
		return nil, err
	}

	v := new(uint256.Int).Mul(price, risk.AdditionalFeedPrecision)
	v.Mul(v, quantity)
	return v.Div(v, risk.Precision), nil
}

// QuantityFromUsd returns the 18-decimal asset quantity worth an 18-decimal
// USD value: usdValue * Precision / (price * AdditionalFeedPrecision).
func (a *Adapter) QuantityFromUsd(asset string, usdValue *uint256.Int) (*uint256.Int, error) {
	price, err := a.latestPrice(asset)
	if err != nil {
		return nil, err
	}

	denom := new(uint256.Int).Mul(price, risk.AdditionalFeedPrecision)
	q := new(uint256.Int).Mul(usdValue, risk.Precision)
	return q.Div(q, denom), nil
}

func (a *Adapter) latestPrice(asset string) (*uint256.Int, error) {
	feed, ok := a.feeds[asset]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAsset, asset)
	}

	price, err := feed.LatestPrice()
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", asset, err)
	}
	if price.IsZero() {
		return nil, fmt.Errorf("feed %s: zero price", asset)
	}
	return price, nil
}
