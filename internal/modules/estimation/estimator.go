// Package estimation turns historical price series into the expected-return
// vector and covariance matrix the portfolio optimizer consumes.
package estimation

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Estimation errors.
var (
	// ErrUnknownMethod is returned when a caller names a method this engine
	// does not implement. Insufficient price history is never an error; it
	// degrades per symbol to a default return and variance.
	ErrUnknownMethod = errors.New("unknown estimation method")
)

// ReturnMethod selects the expected-return estimator.
type ReturnMethod string

// Supported return methods.
const (
	ReturnHistoricalMean      ReturnMethod = "historical_mean"
	ReturnExponentialWeighted ReturnMethod = "exponential_weighted"
	ReturnCAPM                ReturnMethod = "capm"
	ReturnBlackLitterman      ReturnMethod = "black_litterman"
)

// ParseReturnMethod validates a method name from a request.
func ParseReturnMethod(s string) (ReturnMethod, error) {
	switch m := ReturnMethod(s); m {
	case ReturnHistoricalMean, ReturnExponentialWeighted, ReturnCAPM, ReturnBlackLitterman:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// CovarianceMethod selects the covariance estimator.
type CovarianceMethod string

// Supported covariance methods.
const (
	CovSample    CovarianceMethod = "sample"
	CovShrinkage CovarianceMethod = "shrinkage"
	// CovFactorModel is accepted for API compatibility but currently
	// computes the sample estimate. A multi-factor decomposition needs
	// factor return series this service does not ingest yet.
	CovFactorModel CovarianceMethod = "factor_model"
)

// ParseCovarianceMethod validates a method name from a request.
func ParseCovarianceMethod(s string) (CovarianceMethod, error) {
	switch m := CovarianceMethod(s); m {
	case CovSample, CovShrinkage, CovFactorModel:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMethod, s)
	}
}

// Config holds the estimation parameters. Zero values are replaced by the
// documented defaults.
type Config struct {
	// LookbackDays is the trading-day window, default 504 (about two years).
	LookbackDays int
	// RiskFreeRate is the annual risk-free rate used by CAPM, default 2%.
	RiskFreeRate float64
	// MarketReturn is the expected annual market return for CAPM, default 8%.
	MarketReturn float64
	// MarketProxy is the symbol whose history proxies the market, default SPY.
	MarketProxy string
	// EWMALambda is the exponential decay factor, default 0.94.
	EWMALambda float64
	// ShrinkageIntensity is the blend weight toward the structured target,
	// default 0.1. This is a documented default, not an estimated optimum.
	ShrinkageIntensity float64
	// DefaultVariance is assigned to symbols with insufficient history,
	// default 0.01.
	DefaultVariance float64
}

// DefaultConfig returns the standard estimation parameters.
func DefaultConfig() Config {
	return Config{
		LookbackDays:       504,
		RiskFreeRate:       0.02,
		MarketReturn:       0.08,
		MarketProxy:        "SPY",
		EWMALambda:         0.94,
		ShrinkageIntensity: 0.1,
		DefaultVariance:    0.01,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.LookbackDays <= 0 {
		c.LookbackDays = d.LookbackDays
	}
	if c.RiskFreeRate == 0 {
		c.RiskFreeRate = d.RiskFreeRate
	}
	if c.MarketReturn == 0 {
		c.MarketReturn = d.MarketReturn
	}
	if c.MarketProxy == "" {
		c.MarketProxy = d.MarketProxy
	}
	if c.EWMALambda <= 0 || c.EWMALambda >= 1 {
		c.EWMALambda = d.EWMALambda
	}
	if c.ShrinkageIntensity < 0 || c.ShrinkageIntensity > 1 {
		c.ShrinkageIntensity = d.ShrinkageIntensity
	}
	if c.DefaultVariance <= 0 {
		c.DefaultVariance = d.DefaultVariance
	}
	return c
}

// Inputs is the pair of estimates handed to the optimizer. Covariance row
// and column ordering matches Symbols.
type Inputs struct {
	Symbols         []string    `json:"symbols"`
	ExpectedReturns []float64   `json:"expected_returns"`
	Covariance      [][]float64 `json:"covariance"`
}

// Engine computes estimation inputs. It holds no mutable state; every call
// works on request-scoped data.
type Engine struct {
	cfg Config
	log zerolog.Logger
}

// NewEngine creates an estimation engine.
func NewEngine(cfg Config, log zerolog.Logger) *Engine {
	return &Engine{
		cfg: cfg.withDefaults(),
		log: log.With().Str("component", "estimation").Logger(),
	}
}

// Config returns the effective configuration after defaulting.
func (e *Engine) Config() Config {
	return e.cfg
}

// Estimate computes expected returns and a covariance matrix for the given
// symbols using the configured lookback window.
func (e *Engine) Estimate(symbols []string, prices map[string][]float64, marketPrices []float64, retMethod ReturnMethod, covMethod CovarianceMethod) (*Inputs, error) {
	return e.EstimateWindow(symbols, prices, marketPrices, retMethod, covMethod, e.cfg.LookbackDays)
}

// EstimateWindow is Estimate with a per-request lookback override. prices
// maps symbol to ascending daily closes; marketPrices is the proxy close
// series CAPM betas are computed against and may be nil for other methods.
// Symbols with fewer than 2 usable closes degrade to a zero return and the
// default variance.
func (e *Engine) EstimateWindow(symbols []string, prices map[string][]float64, marketPrices []float64, retMethod ReturnMethod, covMethod CovarianceMethod, lookback int) (*Inputs, error) {
	if lookback <= 0 {
		lookback = e.cfg.LookbackDays
	}

	returnsBySymbol := make(map[string][]float64, len(symbols))
	for _, sym := range symbols {
		returnsBySymbol[sym] = logReturnsWindow(prices[sym], lookback)
	}

	cov, err := e.estimateCovariance(symbols, returnsBySymbol, covMethod)
	if err != nil {
		return nil, err
	}

	mu, err := e.estimateReturns(symbols, returnsBySymbol, marketPrices, cov, retMethod, lookback)
	if err != nil {
		return nil, err
	}

	e.log.Debug().
		Int("symbols", len(symbols)).
		Str("return_method", string(retMethod)).
		Str("covariance_method", string(covMethod)).
		Msg("Estimated optimization inputs")

	return &Inputs{Symbols: symbols, ExpectedReturns: mu, Covariance: cov}, nil
}

func (e *Engine) estimateReturns(symbols []string, returnsBySymbol map[string][]float64, marketPrices []float64, cov [][]float64, method ReturnMethod, lookback int) ([]float64, error) {
	switch method {
	case ReturnHistoricalMean:
		return e.historicalMeanReturns(symbols, returnsBySymbol), nil
	case ReturnExponentialWeighted:
		return e.exponentialWeightedReturns(symbols, returnsBySymbol), nil
	case ReturnCAPM:
		return e.capmReturns(symbols, returnsBySymbol, marketPrices, lookback), nil
	case ReturnBlackLitterman:
		return e.equilibriumReturns(symbols, cov), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}

func (e *Engine) estimateCovariance(symbols []string, returnsBySymbol map[string][]float64, method CovarianceMethod) ([][]float64, error) {
	switch method {
	case CovSample, CovFactorModel:
		return e.sampleCovariance(symbols, returnsBySymbol), nil
	case CovShrinkage:
		return e.shrinkageCovariance(symbols, returnsBySymbol, e.cfg.ShrinkageIntensity), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMethod, method)
	}
}
