package optimization

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/aristath/folio/pkg/formulas"
)

// Engine solves allocation problems. It holds no state between requests;
// every solve works on request-scoped vectors.
type Engine struct {
	riskFreeRate float64
	log          zerolog.Logger
}

// NewEngine creates an optimization engine. riskFreeRate is the default
// used when a request does not carry its own.
func NewEngine(riskFreeRate float64, log zerolog.Logger) *Engine {
	if riskFreeRate == 0 {
		riskFreeRate = 0.02
	}
	return &Engine{
		riskFreeRate: riskFreeRate,
		log:          log.With().Str("component", "optimization").Logger(),
	}
}

// Optimize dispatches to the requested method and returns the constrained
// weight vector with its risk/return summary.
func (e *Engine) Optimize(method Method, req Request) (*Result, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if req.RiskFreeRate == 0 {
		req.RiskFreeRate = e.riskFreeRate
	}

	var (
		weights []float64
		err     error
	)
	switch method {
	case MethodMeanVariance:
		weights, err = e.solveMeanVariance(req)
	case MethodMaxSharpe:
		weights, err = e.solveMaxSharpe(req)
	case MethodRiskParity:
		weights, err = e.solveRiskParity(req)
	case MethodMinVolatility:
		weights, err = e.solveMinVolatility(req)
	case MethodCVaRMin:
		weights, err = e.solveCVaRMin(req)
	case MethodBlackLitterman:
		return e.solveBlackLitterman(req)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
	if err != nil {
		return nil, err
	}

	weights = ApplyConstraints(weights, req.Constraints)
	result := e.summarize(method, req, weights)

	e.log.Debug().
		Str("method", string(method)).
		Int("assets", len(req.Symbols)).
		Float64("expected_return", result.ExpectedReturn).
		Float64("expected_volatility", result.ExpectedVolatility).
		Msg("Solved allocation")

	return result, nil
}

// summarize computes the risk/return summary for a weight vector.
func (e *Engine) summarize(method Method, req Request, weights []float64) *Result {
	ret := formulas.PortfolioReturn(weights, req.ExpectedReturns)
	vol := formulas.PortfolioVolatility(weights, req.Covariance)

	result := &Result{
		Method:             method,
		Symbols:            req.Symbols,
		Weights:            weights,
		ExpectedReturn:     ret,
		ExpectedVolatility: vol,
		SharpeRatio:        formulas.SharpeRatio(ret, vol, req.RiskFreeRate),
	}

	if method == MethodCVaRMin && len(req.Scenarios) > 0 {
		alpha := req.Alpha
		if alpha <= 0 || alpha >= 1 {
			alpha = 0.05
		}
		cvar := formulas.ScenarioCVaR(weights, req.Scenarios, alpha)
		result.CVaR = &cvar
	}

	return result
}
