// Package portfolio orchestrates holdings, market data and the two engines
// into allocation advice and trade plans.
package portfolio

import (
	"time"

	"github.com/aristath/folio/internal/modules/optimization"
)

// FallbackTag marks a degraded equal-weight result so callers can tell it
// apart from a real optimization.
const FallbackTag = "simple_fallback"

// Trade actions and priorities.
const (
	ActionBuy  = "BUY"
	ActionSell = "SELL"

	PriorityHigh   = "HIGH"
	PriorityMedium = "MEDIUM"
)

// EstimationMethods records which estimators produced a result.
type EstimationMethods struct {
	Returns      string `json:"returns"`
	Covariance   string `json:"covariance"`
	LookbackDays int    `json:"lookback_days"`
}

// AllocationEntry is one position's share of the portfolio.
type AllocationEntry struct {
	Symbol         string  `json:"symbol"`
	Category       string  `json:"category,omitempty"`
	Value          float64 `json:"value"`
	Percent        float64 `json:"percent"`
	CostBasis      float64 `json:"cost_basis"`
	UnrealizedGain float64 `json:"unrealized_gain"`
}

// OptimizedEntry is one position's target allocation and its distance from
// the current one.
type OptimizedEntry struct {
	Symbol       string  `json:"symbol"`
	Category     string  `json:"category,omitempty"`
	Percent      float64 `json:"percent"`
	DeltaPercent float64 `json:"delta_percent"`
}

// TradeItem is one actionable rebalancing step.
type TradeItem struct {
	Symbol       string  `json:"symbol"`
	Action       string  `json:"action"`
	Amount       float64 `json:"amount"`
	CurrentValue float64 `json:"current_value"`
	TargetValue  float64 `json:"target_value"`
	Priority     string  `json:"priority"`
	DeltaPercent float64 `json:"delta_percent"`
}

// OptimizationRequest is the caller-facing request shape. Empty fields fall
// back to documented defaults.
type OptimizationRequest struct {
	Method      string                    `json:"method"`
	Estimation  EstimationOptions         `json:"estimation"`
	Constraints *optimization.Constraints `json:"constraints,omitempty"`
	Views       []optimization.View       `json:"views,omitempty"`

	// RiskTolerance positions the mean_variance return target on the
	// achievable range: 0 targets the lowest estimated return, 100 the
	// highest. Nil leaves mean_variance unanchored (pure minimum
	// variance). Must be within [0, 100].
	RiskTolerance *float64 `json:"risk_tolerance,omitempty"`
	// NumScenarios applies to cvar_min; bounded by the scenario guard.
	NumScenarios int `json:"num_scenarios,omitempty"`
	// Seed makes the Monte Carlo draw reproducible when non-zero.
	Seed int64 `json:"seed,omitempty"`
	// FrontierPoints requests an efficient-frontier sweep alongside the
	// main solve when positive.
	FrontierPoints int `json:"frontier_points,omitempty"`
}

// EstimationOptions selects the estimators per request.
type EstimationOptions struct {
	Returns      string `json:"returns,omitempty"`
	Covariance   string `json:"covariance,omitempty"`
	LookbackDays int    `json:"lookback_days,omitempty"`
}

// OptimizationOutcome is the persisted unit returned to the caller.
type OptimizationOutcome struct {
	ID                  string                       `json:"id"`
	Method              string                       `json:"method"`
	CurrentAllocation   []AllocationEntry            `json:"current_allocation"`
	OptimizedAllocation []OptimizedEntry             `json:"optimized_allocation"`
	TradePlan           []TradeItem                  `json:"trade_plan"`
	ExpectedReturn      float64                      `json:"expected_return"`
	ExpectedVolatility  float64                      `json:"expected_volatility"`
	SharpeRatio         float64                      `json:"sharpe_ratio"`
	CVaR                *float64                     `json:"cvar,omitempty"`
	Frontier            []optimization.FrontierPoint `json:"frontier,omitempty"`
	EstimationMethods   EstimationMethods            `json:"estimation_methods"`
	TotalValue          float64                      `json:"total_value"`
	CreatedAt           time.Time                    `json:"created_at"`
}
