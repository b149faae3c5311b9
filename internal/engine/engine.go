// Package engine is the accounting and risk core of the synthetic-dollar
// issuance system: collateral bookkeeping, USD valuation, health-factor
// gating and the liquidation protocol.
//
// Every public operation runs as one atomic step: the engine serializes
// steps on a single mutex and rolls back all of a step's mutations when any
// later check fails. Internal ledger state is always mutated before the
// external asset transfer it triggers, so a re-entrant transfer callback
// observes consistent post-mutation state.
package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/holiman/uint256"
	"github.com/rs/zerolog"

	"StableEngine/internal/debt"
	"StableEngine/internal/observability"
	"StableEngine/internal/oracle"
	"StableEngine/internal/risk"
	"StableEngine/internal/token"
	"StableEngine/internal/vault"
)

// Collateral binds one allow-listed collateral asset to its symbol. The
// paired price feed is supplied positionally at construction.
type Collateral struct {
	Symbol string
	Token  token.Asset
}

// Config carries everything the engine is built from. The collateral set is
// immutable after construction.
type Config struct {
	Collateral []Collateral
	Feeds      []oracle.PriceFeed
	Coin       token.Stablecoin

	Logger  zerolog.Logger
	Metrics *observability.Metrics

	// Ops receives one record per committed operation. Sends block, like
	// the persistence path: if the consumer stalls, the engine stalls
	// rather than losing audit records. Nil disables recording.
	Ops chan<- Operation
}

// Engine owns the collateral vault and debt ledger and is the only path to
// the stablecoin's mint/burn capability.
type Engine struct {
	mu sync.Mutex

	symbols []string
	assets  map[string]token.Asset
	prices  *oracle.Adapter
	vault   *vault.Vault
	debts   *debt.Ledger
	coin    token.Stablecoin
	gateway *token.Gateway

	// custody is the engine's own token account: deposited collateral is
	// transferred here and leaves only through redeem or liquidation.
	custody uuid.UUID

	log     zerolog.Logger
	metrics *observability.Metrics
	ops     chan<- Operation
}

// New validates the construction lists and builds an engine. It fails with
// ErrLengthMismatch before establishing any state when the collateral and
// feed lists differ in length.
func New(cfg Config) (*Engine, error) {
	if len(cfg.Collateral) != len(cfg.Feeds) {
		return nil, fmt.Errorf("%w: %d assets, %d feeds",
			ErrLengthMismatch, len(cfg.Collateral), len(cfg.Feeds))
	}
	if cfg.Coin == nil {
		return nil, errors.New("engine: stablecoin is required")
	}

	symbols := make([]string, 0, len(cfg.Collateral))
	assets := make(map[string]token.Asset, len(cfg.Collateral))
	feeds := make(map[string]oracle.PriceFeed, len(cfg.Feeds))

	for i, c := range cfg.Collateral {
		if c.Symbol == "" || c.Token == nil {
			return nil, fmt.Errorf("engine: collateral %d incomplete", i)
		}
		if _, dup := assets[c.Symbol]; dup {
			return nil, fmt.Errorf("engine: duplicate collateral asset %s", c.Symbol)
		}
		symbols = append(symbols, c.Symbol)
		assets[c.Symbol] = c.Token
		feeds[c.Symbol] = cfg.Feeds[i]
	}

	debts := debt.New()
	return &Engine{
		symbols: symbols,
		assets:  assets,
		prices:  oracle.NewAdapter(feeds),
		vault:   vault.New(),
		debts:   debts,
		coin:    cfg.Coin,
		gateway: token.NewGateway(debts, cfg.Coin),
		custody: uuid.New(),
		log:     cfg.Logger,
		metrics: cfg.Metrics,
		ops:     cfg.Ops,
	}, nil
}

// Custody returns the engine's own token account, the holder of all
// deposited collateral.
func (e *Engine) Custody() uuid.UUID {
	return e.custody
}

// ---- operations ----

// DepositCollateral pledges amount of an allow-listed asset for user. The
// vault is credited first, then the asset is pulled into engine custody.
func (e *Engine) DepositCollateral(user uuid.UUID, symbol string, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpDeposit, func() error {
		st := &step{}
		if err := e.depositCollateral(st, user, symbol, amount); err != nil {
			st.rollback()
			return err
		}
		e.emit(OpDeposit, user, uuid.Nil, symbol, amount)
		return nil
	})
}

// RedeemCollateral returns amount of pledged collateral to user, rejecting
// the whole step if the withdrawal would break the user's health factor.
func (e *Engine) RedeemCollateral(user uuid.UUID, symbol string, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpRedeem, func() error {
		st := &step{}
		if err := e.redeemCollateral(st, user, symbol, amount, user); err != nil {
			st.rollback()
			return err
		}
		if err := e.revertIfHealthFactorBroken(user); err != nil {
			st.rollback()
			return err
		}
		e.emit(OpRedeem, user, uuid.Nil, symbol, amount)
		return nil
	})
}

// MintStable issues amount of the pegged token to user against their
// pledged collateral. The post-mint health factor is projected and checked
// before anything is committed; this is the system's solvency gate.
func (e *Engine) MintStable(user uuid.UUID, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpMint, func() error {
		st := &step{}
		if err := e.mintStable(st, user, amount); err != nil {
			st.rollback()
			return err
		}
		e.emit(OpMint, user, uuid.Nil, "", amount)
		return nil
	})
}

// BurnStable retires amount of user's debt, burning the tokens out of their
// own balance.
func (e *Engine) BurnStable(user uuid.UUID, amount *uint256.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpBurn, func() error {
		st := &step{}
		if err := e.burnStable(st, user, user, amount); err != nil {
			st.rollback()
			return err
		}
		// Shrinking debt cannot break the health factor; checked anyway so
		// the invariant holds at every mutation boundary.
		if err := e.revertIfHealthFactorBroken(user); err != nil {
			st.rollback()
			return err
		}
		e.emit(OpBurn, user, uuid.Nil, "", amount)
		return nil
	})
}

// DepositCollateralAndMintStable is deposit followed by mint in a single
// atomic step: a failed mint also unwinds the deposit.
func (e *Engine) DepositCollateralAndMintStable(
	user uuid.UUID,
	symbol string,
	collateralAmount, stableAmount *uint256.Int,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpMint, func() error {
		st := &step{}
		if err := e.depositCollateral(st, user, symbol, collateralAmount); err != nil {
			st.rollback()
			return err
		}
		if err := e.mintStable(st, user, stableAmount); err != nil {
			st.rollback()
			return err
		}
		e.emit(OpDeposit, user, uuid.Nil, symbol, collateralAmount)
		e.emit(OpMint, user, uuid.Nil, "", stableAmount)
		return nil
	})
}

// RedeemCollateralForStable burns stableAmount of user's debt and redeems
// collateralAmount of collateral in a single atomic step.
func (e *Engine) RedeemCollateralForStable(
	user uuid.UUID,
	symbol string,
	collateralAmount, stableAmount *uint256.Int,
) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	return e.observe(OpRedeem, func() error {
		st := &step{}
		if err := e.burnStable(st, user, user, stableAmount); err != nil {
			st.rollback()
			return err
		}
		if err := e.redeemCollateral(st, user, symbol, collateralAmount, user); err != nil {
			st.rollback()
			return err
		}
		if err := e.revertIfHealthFactorBroken(user); err != nil {
			st.rollback()
			return err
		}
		e.emit(OpBurn, user, uuid.Nil, "", stableAmount)
		e.emit(OpRedeem, user, uuid.Nil, symbol, collateralAmount)
		return nil
	})
}

// ---- step internals (callers hold e.mu and own the step) ----

func (e *Engine) depositCollateral(st *step, user uuid.UUID, symbol string, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	asset, ok := e.assets[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	if err := e.vault.Credit(user, symbol, amount); err != nil {
		return err
	}
	st.add(func() { _ = e.vault.Debit(user, symbol, amount) })

	// Vault state is committed before the pull so a re-entrant transfer
	// callback sees the deposit already applied.
	if err := asset.Transfer(user, e.custody, amount); err != nil {
		return fmt.Errorf("collateral transfer in: %w", err)
	}
	st.add(func() { _ = asset.Transfer(e.custody, user, amount) })
	return nil
}

// redeemCollateral debits from's vault balance and pays the collateral out
// to recipient. It does not check health factors itself: the liquidation
// path redeems on behalf of a third party, so the post-condition check
// belongs to the caller.
func (e *Engine) redeemCollateral(st *step, from uuid.UUID, symbol string, amount *uint256.Int, recipient uuid.UUID) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}
	asset, ok := e.assets[symbol]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}

	if err := e.vault.Debit(from, symbol, amount); err != nil {
		return err
	}
	st.add(func() { _ = e.vault.Credit(from, symbol, amount) })

	if err := asset.Transfer(e.custody, recipient, amount); err != nil {
		return fmt.Errorf("collateral transfer out: %w", err)
	}
	st.add(func() { _ = asset.Transfer(recipient, e.custody, amount) })
	return nil
}

func (e *Engine) mintStable(st *step, user uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	// Project, check, commit: the health factor is computed as if the debt
	// were already increased, and the increase only lands if it holds.
	projected := new(uint256.Int).Add(e.debts.Debt(user), amount)
	collateralUsd, err := e.collateralUsd(user)
	if err != nil {
		return err
	}
	hf := risk.HealthFactor(projected, collateralUsd)
	if risk.Liquidatable(hf) {
		return fmt.Errorf("%w: projected health factor %s", ErrHealthFactorBroken, hf.Dec())
	}

	if err := e.gateway.Mint(user, amount); err != nil {
		return err
	}
	st.add(func() { _ = e.gateway.Burn(user, user, amount) })
	return nil
}

// burnStable retires target's ledger debt with tokens burned out of payer's
// balance. Target and payer differ during liquidation.
func (e *Engine) burnStable(st *step, target, payer uuid.UUID, amount *uint256.Int) error {
	if amount == nil || amount.IsZero() {
		return ErrInvalidAmount
	}

	if err := e.gateway.Burn(target, payer, amount); err != nil {
		return err
	}
	st.add(func() {
		_ = e.debts.Increase(target, amount)
		_ = e.coin.Mint(payer, amount)
	})
	return nil
}

func (e *Engine) revertIfHealthFactorBroken(user uuid.UUID) error {
	hf, err := e.healthFactor(user)
	if err != nil {
		return err
	}
	if risk.Liquidatable(hf) {
		return fmt.Errorf("account %s at %s: %w", user, hf.Dec(), ErrHealthFactorBroken)
	}
	return nil
}

func (e *Engine) healthFactor(user uuid.UUID) (*uint256.Int, error) {
	d := e.debts.Debt(user)
	if d.IsZero() {
		return new(uint256.Int).Set(risk.MaxHealthFactor), nil
	}
	collateralUsd, err := e.collateralUsd(user)
	if err != nil {
		return nil, err
	}
	return risk.HealthFactor(d, collateralUsd), nil
}

// collateralUsd values the user's whole collateral book at fresh feed
// prices, in deterministic construction order.
func (e *Engine) collateralUsd(user uuid.UUID) (*uint256.Int, error) {
	total := new(uint256.Int)
	for _, symbol := range e.symbols {
		balance := e.vault.Balance(user, symbol)
		if balance.IsZero() {
			continue
		}
		value, err := e.prices.UsdValue(symbol, balance)
		if err != nil {
			return nil, err
		}
		total.Add(total, value)
	}
	return total, nil
}

// ---- observation ----

func (e *Engine) observe(op string, fn func() error) error {
	start := time.Now()
	err := fn()

	if e.metrics != nil {
		e.metrics.OpDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		if err != nil {
			e.metrics.OpsRejected.WithLabelValues(op, rejectReason(err)).Inc()
		} else {
			e.metrics.OpsApplied.WithLabelValues(op).Inc()
		}
	}
	if err != nil {
		e.log.Debug().Err(err).Str("op", op).Msg("operation rejected")
	}
	return err
}

func (e *Engine) emit(opType string, user, counterparty uuid.UUID, symbol string, amount *uint256.Int) {
	var hf *uint256.Int
	if v, err := e.healthFactor(user); err == nil {
		hf = v
	}

	e.log.Info().
		Str("op", opType).
		Str("user", user.String()).
		Str("asset", symbol).
		Str("amount", amount.Dec()).
		Msg("operation applied")

	if e.ops == nil {
		return
	}
	e.ops <- Operation{
		ID:           uuid.New(),
		Type:         opType,
		User:         user,
		Counterparty: counterparty,
		Asset:        symbol,
		Amount:       new(uint256.Int).Set(amount),
		HealthFactor: hf,
		At:           time.Now().UTC(),
	}
}

// ---- queries ----

// AccountInformation returns the user's outstanding debt and total
// collateral USD value at fresh feed prices.
func (e *Engine) AccountInformation(user uuid.UUID) (debtAmount, collateralUsd *uint256.Int, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	collateralUsd, err = e.collateralUsd(user)
	if err != nil {
		return nil, nil, err
	}
	return e.debts.Debt(user), collateralUsd, nil
}

// CollateralBalance returns the user's pledged balance of one asset.
func (e *Engine) CollateralBalance(user uuid.UUID, symbol string) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.assets[symbol]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}
	return e.vault.Balance(user, symbol), nil
}

// HealthFactor returns the user's current health factor.
func (e *Engine) HealthFactor(user uuid.UUID) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.healthFactor(user)
}

// CalculateHealthFactor is the pure hypothetical form: no account state is
// read.
func (e *Engine) CalculateHealthFactor(totalDebt, collateralUsd *uint256.Int) *uint256.Int {
	return risk.HealthFactor(totalDebt, collateralUsd)
}

// UsdValue converts a quantity of an allow-listed asset to USD at the
// current feed price.
func (e *Engine) UsdValue(symbol string, quantity *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.assets[symbol]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}
	return e.prices.UsdValue(symbol, quantity)
}

// QuantityFromUsd converts a USD value to a quantity of an allow-listed
// asset at the current feed price.
func (e *Engine) QuantityFromUsd(symbol string, usdValue *uint256.Int) (*uint256.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, ok := e.assets[symbol]; !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAsset, symbol)
	}
	return e.prices.QuantityFromUsd(symbol, usdValue)
}

// CollateralSymbols returns the allow-listed asset symbols in construction
// order.
func (e *Engine) CollateralSymbols() []string {
	out := make([]string, len(e.symbols))
	copy(out, e.symbols)
	return out
}

// StableSupply returns the pegged token's total supply.
func (e *Engine) StableSupply() *uint256.Int {
	return e.coin.TotalSupply()
}
