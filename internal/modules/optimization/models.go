// Package optimization solves for portfolio weights under the classical
// allocation objectives.
package optimization

import (
	"errors"
	"fmt"
)

// Optimization errors.
var (
	ErrUnknownMethod     = errors.New("unknown optimization method")
	ErrDimensionMismatch = errors.New("input dimension mismatch")
	ErrInfeasible        = errors.New("no feasible solution")
)

// Method selects the allocation objective.
type Method string

// Supported optimization methods.
const (
	MethodMeanVariance   Method = "mean_variance"
	MethodMaxSharpe      Method = "max_sharpe"
	MethodRiskParity     Method = "risk_parity"
	MethodMinVolatility  Method = "min_volatility"
	MethodCVaRMin        Method = "cvar_min"
	MethodBlackLitterman Method = "black_litterman"
)

// ParseMethod validates a method name from a request.
func ParseMethod(s string) (Method, error) {
	switch m := Method(s); m {
	case MethodMeanVariance, MethodMaxSharpe, MethodRiskParity,
		MethodMinVolatility, MethodCVaRMin, MethodBlackLitterman:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Constraints bound the weight vector. Applied as a post-processing clamp
// and renormalize, not as solver constraints, so a clamped result is an
// approximation of the unconstrained optimum.
type Constraints struct {
	LongOnly  bool    `json:"long_only"`
	MaxWeight float64 `json:"max_weight"`
	MinWeight float64 `json:"min_weight"`
}

// DefaultConstraints returns the standard constraint set: long-only, at most
// 30% and at least 1% per asset.
func DefaultConstraints() Constraints {
	return Constraints{LongOnly: true, MaxWeight: 0.30, MinWeight: 0.01}
}

// View is an investor opinion blended into Black-Litterman equilibrium
// returns. An absolute view prices one symbol; a relative view says Symbol
// outperforms OtherSymbol by Return.
type View struct {
	Type        string  `json:"type"` // "absolute" or "relative"
	Symbol      string  `json:"symbol"`
	OtherSymbol string  `json:"other_symbol,omitempty"`
	Return      float64 `json:"return"`
	Confidence  float64 `json:"confidence"` // 0.0 to 1.0
}

// Request carries everything one optimization run needs. All slices follow
// the Symbols ordering.
type Request struct {
	Symbols         []string
	ExpectedReturns []float64
	Covariance      [][]float64
	Constraints     Constraints
	RiskFreeRate    float64

	// TargetReturn applies to mean_variance only; nil drops the return
	// anchor and the solve minimizes variance under the budget constraint
	// alone.
	TargetReturn *float64

	// Scenarios and Alpha apply to cvar_min only.
	Scenarios [][]float64
	Alpha     float64

	// MarketWeights and Views apply to black_litterman only. Nil market
	// weights default to equal weights.
	MarketWeights []float64
	Views         []View
}

// Result is the solved allocation with its risk/return summary.
type Result struct {
	Method             Method    `json:"method"`
	Symbols            []string  `json:"symbols"`
	Weights            []float64 `json:"weights"`
	ExpectedReturn     float64   `json:"expected_return"`
	ExpectedVolatility float64   `json:"expected_volatility"`
	SharpeRatio        float64   `json:"sharpe_ratio"`
	CVaR               *float64  `json:"cvar,omitempty"`
}

// FrontierPoint is one feasible (risk, return) pair on the efficient
// frontier.
type FrontierPoint struct {
	ExpectedReturn     float64   `json:"expected_return"`
	ExpectedVolatility float64   `json:"expected_volatility"`
	Weights            []float64 `json:"weights"`
}

func (r *Request) validate() error {
	n := len(r.Symbols)
	if n == 0 {
		return fmt.Errorf("%w: no symbols", ErrInfeasible)
	}
	if len(r.ExpectedReturns) != n {
		return fmt.Errorf("%w: %d returns for %d symbols", ErrDimensionMismatch, len(r.ExpectedReturns), n)
	}
	if len(r.Covariance) != n {
		return fmt.Errorf("%w: covariance has %d rows for %d symbols", ErrDimensionMismatch, len(r.Covariance), n)
	}
	for i, row := range r.Covariance {
		if len(row) != n {
			return fmt.Errorf("%w: covariance row %d has %d columns, expected %d", ErrDimensionMismatch, i, len(row), n)
		}
	}
	return nil
}
