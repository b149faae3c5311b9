// Package server exposes the engine's operations and queries as an
// HTTP/JSON API. Amounts cross the boundary as decimal strings and are
// converted to 18-decimal fixed point at the edge.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"StableEngine/internal/debt"
	"StableEngine/internal/engine"
	"StableEngine/internal/observability"
	"StableEngine/internal/oracle"
	"StableEngine/internal/risk"
	"StableEngine/internal/token"
	"StableEngine/internal/vault"
)

// Config wires the API server.
type Config struct {
	Engine  *engine.Engine
	Metrics *observability.Metrics
	Health  *observability.HealthChecker
	Logger  zerolog.Logger

	// Faucet enables the dev-only funding endpoint when non-nil, mapping
	// collateral symbols to their in-process assets.
	Faucet map[string]*token.FungibleAsset
}

// Server is the HTTP/JSON front of the engine.
type Server struct {
	engine  *engine.Engine
	metrics *observability.Metrics
	health  *observability.HealthChecker
	log     zerolog.Logger
	faucet  map[string]*token.FungibleAsset
	router  chi.Router
}

func New(cfg Config) *Server {
	s := &Server{
		engine:  cfg.Engine,
		metrics: cfg.Metrics,
		health:  cfg.Health,
		log:     cfg.Logger,
		faucet:  cfg.Faucet,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.instrument)

	r.Route("/v1", func(r chi.Router) {
		r.Post("/collateral/deposit", s.handleDeposit)
		r.Post("/collateral/redeem", s.handleRedeem)
		r.Post("/collateral/deposit-and-mint", s.handleDepositAndMint)
		r.Post("/collateral/redeem-for-stable", s.handleRedeemForStable)
		r.Post("/stable/mint", s.handleMint)
		r.Post("/stable/burn", s.handleBurn)
		r.Post("/liquidate", s.handleLiquidate)

		r.Get("/accounts/{user}", s.handleAccount)
		r.Get("/accounts/{user}/health", s.handleHealthFactor)
		r.Get("/accounts/{user}/collateral/{asset}", s.handleCollateralBalance)
		r.Get("/oracle/{asset}/usd-value", s.handleUsdValue)
		r.Get("/oracle/{asset}/quantity", s.handleQuantity)
		r.Get("/constants", s.handleConstants)
		r.Get("/supply", s.handleSupply)

		if s.faucet != nil {
			r.Post("/dev/faucet", s.handleFaucet)
		}
	})

	if s.health != nil {
		r.Get("/healthz", s.health.LivenessHandler)
		r.Get("/readyz", s.health.ReadinessHandler)
	}

	s.router = r
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if s.metrics != nil {
			route := chi.RouteContext(r.Context()).RoutePattern()
			s.metrics.HTTPRequests.WithLabelValues(route, http.StatusText(ww.Status())).Inc()
			s.metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

// ---- operation handlers ----

type opRequest struct {
	UserID       string `json:"user_id"`
	Liquidator   string `json:"liquidator,omitempty"`
	Asset        string `json:"asset,omitempty"`
	Amount       string `json:"amount,omitempty"`
	Collateral   string `json:"collateral_amount,omitempty"`
	StableAmount string `json:"stable_amount,omitempty"`
}

func (s *Server) handleDeposit(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.DepositCollateral(user, req.Asset, amount))
}

func (s *Server) handleRedeem(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.RedeemCollateral(user, req.Asset, amount))
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.MintStable(user, amount))
}

func (s *Server) handleBurn(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.BurnStable(user, amount))
}

func (s *Server) handleDepositAndMint(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	collateral, err := parseAmount(req.Collateral)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	stable, err := parseAmount(req.StableAmount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.DepositCollateralAndMintStable(user, req.Asset, collateral, stable))
}

func (s *Server) handleRedeemForStable(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	collateral, err := parseAmount(req.Collateral)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	stable, err := parseAmount(req.StableAmount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.RedeemCollateralForStable(user, req.Asset, collateral, stable))
}

func (s *Server) handleLiquidate(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	liquidator, err := uuid.Parse(req.Liquidator)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_user", err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	s.finish(w, s.engine.Liquidate(liquidator, user, req.Asset, amount))
}

func (s *Server) handleFaucet(w http.ResponseWriter, r *http.Request) {
	req, user, ok := s.decodeOp(w, r)
	if !ok {
		return
	}
	asset, ok := s.faucet[req.Asset]
	if !ok {
		s.writeError(w, http.StatusBadRequest, "unsupported_asset", errors.New(req.Asset))
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	asset.Issue(user, amount)
	s.writeJSON(w, http.StatusOK, map[string]string{
		"user_id": user.String(),
		"asset":   req.Asset,
		"balance": formatAmount(asset.BalanceOf(user)),
	})
}

// ---- query handlers ----

func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	debtAmount, collateralUsd, err := s.engine.AccountInformation(user)
	if err != nil {
		s.rejectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"user_id":        user.String(),
		"debt":           formatAmount(debtAmount),
		"collateral_usd": formatAmount(collateralUsd),
	})
}

func (s *Server) handleHealthFactor(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	hf, err := s.engine.HealthFactor(user)
	if err != nil {
		s.rejectError(w, err)
		return
	}
	resp := map[string]interface{}{
		"user_id":      user.String(),
		"liquidatable": risk.Liquidatable(hf),
	}
	if hf.Eq(risk.MaxHealthFactor) {
		resp["health_factor"] = "max"
	} else {
		resp["health_factor"] = formatAmount(hf)
	}
	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleCollateralBalance(w http.ResponseWriter, r *http.Request) {
	user, ok := s.pathUser(w, r)
	if !ok {
		return
	}
	asset := chi.URLParam(r, "asset")
	balance, err := s.engine.CollateralBalance(user, asset)
	if err != nil {
		s.rejectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"user_id": user.String(),
		"asset":   asset,
		"balance": formatAmount(balance),
	})
}

func (s *Server) handleUsdValue(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	quantity, err := parseAmount(r.URL.Query().Get("quantity"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	value, err := s.engine.UsdValue(asset, quantity)
	if err != nil {
		s.rejectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"asset":     asset,
		"quantity":  formatAmount(quantity),
		"usd_value": formatAmount(value),
	})
}

func (s *Server) handleQuantity(w http.ResponseWriter, r *http.Request) {
	asset := chi.URLParam(r, "asset")
	usd, err := parseAmount(r.URL.Query().Get("usd"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
		return
	}
	quantity, err := s.engine.QuantityFromUsd(asset, usd)
	if err != nil {
		s.rejectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{
		"asset":     asset,
		"usd_value": formatAmount(usd),
		"quantity":  formatAmount(quantity),
	})
}

func (s *Server) handleConstants(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"liquidation_threshold":     risk.LiquidationThreshold,
		"liquidation_precision":     risk.LiquidationPrecision,
		"liquidation_bonus":         risk.LiquidationBonus,
		"feed_decimals":             risk.FeedDecimals,
		"precision":                 risk.Precision.Dec(),
		"additional_feed_precision": risk.AdditionalFeedPrecision.Dec(),
		"min_health_factor":         risk.MinHealthFactor.Dec(),
		"collateral_assets":         s.engine.CollateralSymbols(),
	})
}

func (s *Server) handleSupply(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"total_supply": formatAmount(s.engine.StableSupply()),
	})
}

// ---- plumbing ----

func (s *Server) decodeOp(w http.ResponseWriter, r *http.Request) (*opRequest, uuid.UUID, bool) {
	var req opRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "bad_request", err)
		return nil, uuid.Nil, false
	}
	user, err := uuid.Parse(req.UserID)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_user", err)
		return nil, uuid.Nil, false
	}
	return &req, user, true
}

func (s *Server) pathUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	user, err := uuid.Parse(chi.URLParam(r, "user"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid_user", err)
		return uuid.Nil, false
	}
	return user, true
}

func (s *Server) finish(w http.ResponseWriter, err error) {
	if err != nil {
		s.rejectError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

// rejectError maps engine errors onto HTTP statuses and stable error codes.
func (s *Server) rejectError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidAmount),
		errors.Is(err, vault.ErrInvalidAmount),
		errors.Is(err, debt.ErrInvalidAmount),
		errors.Is(err, token.ErrInvalidAmount):
		s.writeError(w, http.StatusBadRequest, "invalid_amount", err)
	case errors.Is(err, engine.ErrUnsupportedAsset):
		s.writeError(w, http.StatusBadRequest, "unsupported_asset", err)
	case errors.Is(err, vault.ErrInsufficientCollateral):
		s.writeError(w, http.StatusConflict, "insufficient_collateral", err)
	case errors.Is(err, debt.ErrInsufficientDebt):
		s.writeError(w, http.StatusConflict, "insufficient_debt", err)
	case errors.Is(err, token.ErrInsufficientBalance):
		s.writeError(w, http.StatusConflict, "insufficient_balance", err)
	case errors.Is(err, engine.ErrHealthFactorBroken):
		s.writeError(w, http.StatusUnprocessableEntity, "health_factor_broken", err)
	case errors.Is(err, engine.ErrHealthFactorOk):
		s.writeError(w, http.StatusUnprocessableEntity, "health_factor_ok", err)
	case errors.Is(err, engine.ErrHealthFactorNotImproved):
		s.writeError(w, http.StatusUnprocessableEntity, "health_factor_not_improved", err)
	case errors.Is(err, oracle.ErrNoPrice), errors.Is(err, oracle.ErrUnknownAsset):
		s.writeError(w, http.StatusServiceUnavailable, "oracle_unavailable", err)
	default:
		s.log.Error().Err(err).Msg("internal error")
		s.writeError(w, http.StatusInternalServerError, "internal", err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, code string, err error) {
	s.writeJSON(w, status, map[string]string{
		"code":  code,
		"error": err.Error(),
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.log.Warn().Err(err).Msg("write response")
	}
}
