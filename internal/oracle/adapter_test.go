package oracle_test

import (
	"errors"
	"testing"

	"github.com/holiman/uint256"

	"StableEngine/internal/oracle"
	"StableEngine/internal/risk"
)

// price8 expresses a whole-dollar price at 8 feed decimals.
func price8(dollars uint64) *uint256.Int {
	return uint256.NewInt(dollars * 100_000_000)
}

func wei(n uint64) *uint256.Int {
	return new(uint256.Int).Mul(uint256.NewInt(n), risk.Precision)
}

func newAdapter(symbol string, dollars uint64) *oracle.Adapter {
	return oracle.NewAdapter(map[string]oracle.PriceFeed{
		symbol: oracle.NewMemoryFeedAt(price8(dollars)),
	})
}

func TestUsdValue(t *testing.T) {
	a := newAdapter("WETH", 2000)

	got, err := a.UsdValue("WETH", wei(15))
	if err != nil {
		t.Fatalf("UsdValue: %v", err)
	}
	if want := wei(30000); !got.Eq(want) {
		t.Errorf("15 WETH at $2000: got %s, want %s", got.Dec(), want.Dec())
	}
}

func TestQuantityFromUsd(t *testing.T) {
	a := newAdapter("WETH", 2000)

	got, err := a.QuantityFromUsd("WETH", wei(100))
	if err != nil {
		t.Fatalf("QuantityFromUsd: %v", err)
	}
	// $100 at $2000/unit is 0.05 units.
	if want := uint256.NewInt(50_000_000_000_000_000); !got.Eq(want) {
		t.Errorf("$100 at $2000: got %s, want %s", got.Dec(), want.Dec())
	}
}

func TestRoundTripTruncatesTowardZero(t *testing.T) {
	// $100 at $3000 does not divide evenly; the quantity truncates, so
	// valuing it again comes in strictly under the original USD amount.
	a := newAdapter("WETH", 3000)

	qty, err := a.QuantityFromUsd("WETH", wei(100))
	if err != nil {
		t.Fatalf("QuantityFromUsd: %v", err)
	}

	back, err := a.UsdValue("WETH", qty)
	if err != nil {
		t.Fatalf("UsdValue: %v", err)
	}
	if !back.Lt(wei(100)) {
		t.Errorf("round trip did not truncate: got %s, original %s", back.Dec(), wei(100).Dec())
	}

	// The loss is bounded by one quantity unit's worth of USD.
	loss := new(uint256.Int).Sub(wei(100), back)
	unitUsd := new(uint256.Int).Mul(price8(3000), risk.AdditionalFeedPrecision)
	unitUsd.Div(unitUsd, risk.Precision)
	if loss.Gt(unitUsd) {
		t.Errorf("truncation loss %s exceeds one unit's USD value %s", loss.Dec(), unitUsd.Dec())
	}
}

func TestUnknownAsset(t *testing.T) {
	a := newAdapter("WETH", 2000)

	if _, err := a.UsdValue("DOGE", wei(1)); !errors.Is(err, oracle.ErrUnknownAsset) {
		t.Errorf("got %v, want ErrUnknownAsset", err)
	}
	if _, err := a.QuantityFromUsd("DOGE", wei(1)); !errors.Is(err, oracle.ErrUnknownAsset) {
		t.Errorf("got %v, want ErrUnknownAsset", err)
	}
}

func TestNoPriceYet(t *testing.T) {
	a := oracle.NewAdapter(map[string]oracle.PriceFeed{
		"WETH": oracle.NewMemoryFeed(),
	})

	if _, err := a.UsdValue("WETH", wei(1)); !errors.Is(err, oracle.ErrNoPrice) {
		t.Errorf("got %v, want ErrNoPrice", err)
	}
}

func TestFeedUpdateIsObserved(t *testing.T) {
	feed := oracle.NewMemoryFeedAt(price8(2000))
	a := oracle.NewAdapter(map[string]oracle.PriceFeed{"WETH": feed})

	feed.SetPrice(price8(1800))

	got, err := a.UsdValue("WETH", wei(10))
	if err != nil {
		t.Fatalf("UsdValue: %v", err)
	}
	if want := wei(18000); !got.Eq(want) {
		t.Errorf("after repricing: got %s, want %s", got.Dec(), want.Dec())
	}
}
