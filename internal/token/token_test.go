package token_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/holiman/uint256"

	"StableEngine/internal/debt"
	"StableEngine/internal/token"
)

func TestStableTokenMintBurn(t *testing.T) {
	coin := token.NewStableToken()
	user := uuid.New()

	if err := coin.Mint(user, uint256.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if got := coin.BalanceOf(user); !got.Eq(uint256.NewInt(1000)) {
		t.Errorf("balance: got %s, want 1000", got.Dec())
	}
	if got := coin.TotalSupply(); !got.Eq(uint256.NewInt(1000)) {
		t.Errorf("supply: got %s, want 1000", got.Dec())
	}

	if err := coin.Burn(user, uint256.NewInt(400)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := coin.BalanceOf(user); !got.Eq(uint256.NewInt(600)) {
		t.Errorf("balance after burn: got %s, want 600", got.Dec())
	}
	if got := coin.TotalSupply(); !got.Eq(uint256.NewInt(600)) {
		t.Errorf("supply after burn: got %s, want 600", got.Dec())
	}
}

func TestStableTokenBurnBeyondBalance(t *testing.T) {
	coin := token.NewStableToken()
	user := uuid.New()

	if err := coin.Mint(user, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	err := coin.Burn(user, uint256.NewInt(101))
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if got := coin.TotalSupply(); !got.Eq(uint256.NewInt(100)) {
		t.Errorf("supply after failed burn: got %s, want 100", got.Dec())
	}
}

func TestFungibleAssetTransfer(t *testing.T) {
	weth := token.NewFungibleAsset("WETH")
	alice, bob := uuid.New(), uuid.New()
	weth.Issue(alice, uint256.NewInt(100))

	if err := weth.Transfer(alice, bob, uint256.NewInt(30)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := weth.BalanceOf(alice); !got.Eq(uint256.NewInt(70)) {
		t.Errorf("alice: got %s, want 70", got.Dec())
	}
	if got := weth.BalanceOf(bob); !got.Eq(uint256.NewInt(30)) {
		t.Errorf("bob: got %s, want 30", got.Dec())
	}

	err := weth.Transfer(alice, bob, uint256.NewInt(71))
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("overdraw: got %v, want ErrInsufficientBalance", err)
	}
	if got := weth.BalanceOf(alice); !got.Eq(uint256.NewInt(70)) {
		t.Errorf("alice after failed transfer: got %s, want 70", got.Dec())
	}
}

func TestGatewayMintKeepsDebtAndSupplyInLockstep(t *testing.T) {
	debts := debt.New()
	coin := token.NewStableToken()
	gw := token.NewGateway(debts, coin)
	user := uuid.New()

	if err := gw.Mint(user, uint256.NewInt(1000)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	if got := debts.Debt(user); !got.Eq(uint256.NewInt(1000)) {
		t.Errorf("debt: got %s, want 1000", got.Dec())
	}
	if got := coin.BalanceOf(user); !got.Eq(uint256.NewInt(1000)) {
		t.Errorf("coin balance: got %s, want 1000", got.Dec())
	}
	if got := coin.TotalSupply(); !got.Eq(uint256.NewInt(1000)) {
		t.Errorf("supply: got %s, want 1000", got.Dec())
	}
}

func TestGatewayBurnWithSeparatePayer(t *testing.T) {
	debts := debt.New()
	coin := token.NewStableToken()
	gw := token.NewGateway(debts, coin)
	user, liquidator := uuid.New(), uuid.New()

	if err := gw.Mint(user, uint256.NewInt(500)); err != nil {
		t.Fatalf("mint user: %v", err)
	}
	if err := gw.Mint(liquidator, uint256.NewInt(500)); err != nil {
		t.Fatalf("mint liquidator: %v", err)
	}

	// Liquidator pays down the user's debt out of their own balance.
	if err := gw.Burn(user, liquidator, uint256.NewInt(500)); err != nil {
		t.Fatalf("burn: %v", err)
	}

	if got := debts.Debt(user); !got.IsZero() {
		t.Errorf("user debt: got %s, want 0", got.Dec())
	}
	if got := debts.Debt(liquidator); !got.Eq(uint256.NewInt(500)) {
		t.Errorf("liquidator debt: got %s, want 500", got.Dec())
	}
	if got := coin.BalanceOf(liquidator); !got.IsZero() {
		t.Errorf("liquidator coin balance: got %s, want 0", got.Dec())
	}
	if got := coin.BalanceOf(user); !got.Eq(uint256.NewInt(500)) {
		t.Errorf("user coin balance: got %s, want 500", got.Dec())
	}
}

func TestGatewayBurnRestoresDebtWhenTokenBurnFails(t *testing.T) {
	debts := debt.New()
	coin := token.NewStableToken()
	gw := token.NewGateway(debts, coin)
	user, payer := uuid.New(), uuid.New()

	if err := gw.Mint(user, uint256.NewInt(500)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	// Payer holds nothing, so the token burn fails after the ledger
	// decrease succeeded; the decrease must be undone.
	err := gw.Burn(user, payer, uint256.NewInt(500))
	if !errors.Is(err, token.ErrInsufficientBalance) {
		t.Fatalf("got %v, want ErrInsufficientBalance", err)
	}
	if got := debts.Debt(user); !got.Eq(uint256.NewInt(500)) {
		t.Errorf("debt after failed burn: got %s, want 500", got.Dec())
	}
	if got := coin.TotalSupply(); !got.Eq(uint256.NewInt(500)) {
		t.Errorf("supply after failed burn: got %s, want 500", got.Dec())
	}
}

func TestGatewayBurnMoreThanDebt(t *testing.T) {
	debts := debt.New()
	coin := token.NewStableToken()
	gw := token.NewGateway(debts, coin)
	user := uuid.New()

	if err := gw.Mint(user, uint256.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}

	err := gw.Burn(user, user, uint256.NewInt(101))
	if !errors.Is(err, debt.ErrInsufficientDebt) {
		t.Fatalf("got %v, want ErrInsufficientDebt", err)
	}
	// Nothing burned: the ledger check failed before the token was touched.
	if got := coin.BalanceOf(user); !got.Eq(uint256.NewInt(100)) {
		t.Errorf("coin balance: got %s, want 100", got.Dec())
	}
}
