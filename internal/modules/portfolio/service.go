package portfolio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/aristath/folio/internal/modules/estimation"
	"github.com/aristath/folio/internal/modules/holdings"
	"github.com/aristath/folio/internal/modules/marketdata"
	"github.com/aristath/folio/internal/modules/optimization"
)

// defaultScenarioCount is used when a cvar_min request does not size its
// Monte Carlo draw.
const defaultScenarioCount = 10000

// ErrInvalidRiskTolerance rejects risk_tolerance values outside [0, 100].
var ErrInvalidRiskTolerance = errors.New("risk_tolerance must be within [0, 100]")

// HoldingsSource supplies the current positions.
type HoldingsSource interface {
	List(ctx context.Context) ([]holdings.Holding, error)
}

// PriceStore receives quote refreshes. The repository-backed source
// implements it; read-only sources may not.
type PriceStore interface {
	UpdatePrice(ctx context.Context, symbol string, price float64) error
}

// ResultStore persists an outcome together with its analytics event.
// Persistence failures are logged and swallowed; the caller still gets the
// result.
type ResultStore interface {
	SaveWithEvent(ctx context.Context, outcome *OptimizationOutcome, event string) error
}

// Service is the request-scoped optimization driver.
type Service struct {
	holdings  HoldingsSource
	market    marketdata.HistoryProvider
	estimator *estimation.Engine
	optimizer *optimization.Engine
	store     ResultStore
	log       zerolog.Logger
}

// NewService wires the orchestrator. store may be nil when persistence is
// not wanted (tests).
func NewService(
	h HoldingsSource,
	market marketdata.HistoryProvider,
	estimator *estimation.Engine,
	optimizer *optimization.Engine,
	store ResultStore,
	log zerolog.Logger,
) *Service {
	return &Service{
		holdings:  h,
		market:    market,
		estimator: estimator,
		optimizer: optimizer,
		store:     store,
		log:       log.With().Str("component", "portfolio").Logger(),
	}
}

// Optimize runs the full pipeline: holdings, price histories, estimation,
// optimization, allocation diff and trade plan. Engine failures degrade to
// an equal-weight allocation tagged as a fallback rather than erroring out;
// only missing holdings or an unknown method abort the request.
func (s *Service) Optimize(ctx context.Context, req OptimizationRequest) (*OptimizationOutcome, error) {
	method, err := s.resolveMethod(req.Method)
	if err != nil {
		return nil, err
	}

	retMethod, covMethod, lookback, err := s.resolveEstimation(req.Estimation)
	if err != nil {
		return nil, err
	}

	if req.NumScenarios > estimation.MaxScenarios {
		return nil, fmt.Errorf("%w: %d > %d", estimation.ErrTooManyScenarios, req.NumScenarios, estimation.MaxScenarios)
	}

	if req.RiskTolerance != nil && (*req.RiskTolerance < 0 || *req.RiskTolerance > 100) {
		return nil, fmt.Errorf("%w: got %g", ErrInvalidRiskTolerance, *req.RiskTolerance)
	}

	items, err := s.holdings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch holdings: %w", err)
	}
	if len(items) == 0 {
		return nil, errors.New("no holdings to optimize")
	}

	symbols := make([]string, len(items))
	for i := range items {
		symbols[i] = items[i].Symbol
	}

	current, totalValue := currentAllocation(items)

	prices, marketPrices := s.fetchHistories(ctx, symbols, retMethod, lookback)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	outcome, err := s.runEngines(ctx, method, req, symbols, prices, marketPrices, retMethod, covMethod, lookback, current, totalValue)
	if err != nil {
		s.log.Warn().Err(err).Str("method", string(method)).Msg("Engines failed, degrading to equal-weight fallback")
		outcome = s.equalWeightFallback(method, symbols, current, totalValue, lookback)
	}

	outcome.ID = uuid.New().String()
	outcome.CreatedAt = time.Now().UTC()

	s.persist(ctx, outcome)
	return outcome, nil
}

func (s *Service) resolveMethod(raw string) (optimization.Method, error) {
	if raw == "" {
		raw = string(optimization.MethodMaxSharpe)
	}
	return optimization.ParseMethod(raw)
}

func (s *Service) resolveEstimation(opts EstimationOptions) (estimation.ReturnMethod, estimation.CovarianceMethod, int, error) {
	retRaw := opts.Returns
	if retRaw == "" {
		retRaw = string(estimation.ReturnHistoricalMean)
	}
	retMethod, err := estimation.ParseReturnMethod(retRaw)
	if err != nil {
		return "", "", 0, err
	}

	covRaw := opts.Covariance
	if covRaw == "" {
		covRaw = string(estimation.CovShrinkage)
	}
	covMethod, err := estimation.ParseCovarianceMethod(covRaw)
	if err != nil {
		return "", "", 0, err
	}

	lookback := opts.LookbackDays
	if lookback <= 0 {
		lookback = s.estimator.Config().LookbackDays
	}
	return retMethod, covMethod, lookback, nil
}

// fetchHistories fans out one fetch per symbol. A failed or empty fetch for
// one symbol leaves a nil entry (the estimator degrades it to defaults)
// instead of failing the batch.
func (s *Service) fetchHistories(ctx context.Context, symbols []string, retMethod estimation.ReturnMethod, lookback int) (map[string][]float64, []float64) {
	period := periodForLookback(lookback)

	var mu sync.Mutex
	prices := make(map[string][]float64, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			series, err := s.market.GetHistoricalPrices(gctx, sym, period, "1d")
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("Price history fetch failed, symbol degrades to defaults")
				return nil
			}
			mu.Lock()
			prices[sym] = series.Tail(lookback + 1).Closes()
			mu.Unlock()
			return nil
		})
	}

	var marketPrices []float64
	if retMethod == estimation.ReturnCAPM {
		proxy := s.estimator.Config().MarketProxy
		g.Go(func() error {
			series, err := s.market.GetHistoricalPrices(gctx, proxy, period, "1d")
			if err != nil {
				s.log.Warn().Err(err).Str("symbol", proxy).Msg("Market proxy fetch failed, betas default to 1.0")
				return nil
			}
			mu.Lock()
			marketPrices = series.Tail(lookback + 1).Closes()
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()
	return prices, marketPrices
}

// periodForLookback converts trading days to the provider's range string,
// rounding up to whole years.
func periodForLookback(lookback int) string {
	years := int(math.Ceil(float64(lookback) / 252.0))
	if years < 1 {
		years = 1
	}
	return fmt.Sprintf("%dy", years)
}

func (s *Service) runEngines(
	ctx context.Context,
	method optimization.Method,
	req OptimizationRequest,
	symbols []string,
	prices map[string][]float64,
	marketPrices []float64,
	retMethod estimation.ReturnMethod,
	covMethod estimation.CovarianceMethod,
	lookback int,
	current []AllocationEntry,
	totalValue float64,
) (*OptimizationOutcome, error) {
	inputs, err := s.estimator.EstimateWindow(symbols, prices, marketPrices, retMethod, covMethod, lookback)
	if err != nil {
		return nil, fmt.Errorf("estimation failed: %w", err)
	}

	constraints := optimization.DefaultConstraints()
	if req.Constraints != nil {
		constraints = *req.Constraints
	}

	optReq := optimization.Request{
		Symbols:         symbols,
		ExpectedReturns: inputs.ExpectedReturns,
		Covariance:      inputs.Covariance,
		Constraints:     constraints,
		Views:           req.Views,
	}

	if method == optimization.MethodMeanVariance && req.RiskTolerance != nil {
		optReq.TargetReturn = targetFromTolerance(*req.RiskTolerance, inputs.ExpectedReturns)
	}

	if method == optimization.MethodCVaRMin {
		scenarios, err := s.generateScenarios(req, inputs)
		if err != nil {
			return nil, err
		}
		optReq.Scenarios = scenarios
	}

	if method == optimization.MethodBlackLitterman {
		optReq.MarketWeights = currentWeights(symbols, current)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result, err := s.optimizer.Optimize(method, optReq)
	if err != nil {
		return nil, fmt.Errorf("optimization failed: %w", err)
	}

	optimized := optimizedAllocation(symbols, result.Weights, current)
	outcome := &OptimizationOutcome{
		Method:              string(method),
		CurrentAllocation:   current,
		OptimizedAllocation: optimized,
		TradePlan:           buildTradePlan(optimized, current, totalValue),
		ExpectedReturn:      result.ExpectedReturn,
		ExpectedVolatility:  result.ExpectedVolatility,
		SharpeRatio:         result.SharpeRatio,
		CVaR:                result.CVaR,
		TotalValue:          totalValue,
		EstimationMethods: EstimationMethods{
			Returns:      string(retMethod),
			Covariance:   string(covMethod),
			LookbackDays: lookback,
		},
	}

	if req.FrontierPoints > 0 {
		frontier, err := s.optimizer.GenerateEfficientFrontier(optReq, req.FrontierPoints)
		if err != nil {
			s.log.Warn().Err(err).Msg("Frontier sweep failed, returning result without it")
		} else {
			outcome.Frontier = frontier
		}
	}

	return outcome, nil
}

func (s *Service) generateScenarios(req OptimizationRequest, inputs *estimation.Inputs) ([][]float64, error) {
	count := req.NumScenarios
	if count <= 0 {
		count = defaultScenarioCount
	}

	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return estimation.GenerateScenarios(
		inputs.ExpectedReturns,
		inputs.Covariance,
		count,
		1.0,
		rand.New(rand.NewSource(seed)),
	)
}

// targetFromTolerance maps a 0-100 risk tolerance onto the achievable
// return range: 0 anchors at the lowest estimated return, 100 at the
// highest.
func targetFromTolerance(tolerance float64, mu []float64) *float64 {
	if len(mu) == 0 {
		return nil
	}
	lo, hi := mu[0], mu[0]
	for _, v := range mu[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	target := lo + tolerance/100*(hi-lo)
	return &target
}

func currentWeights(symbols []string, current []AllocationEntry) []float64 {
	bySymbol := make(map[string]float64, len(current))
	for _, e := range current {
		bySymbol[e.Symbol] = e.Percent
	}
	w := make([]float64, len(symbols))
	for i, sym := range symbols {
		w[i] = bySymbol[sym]
	}
	return w
}

// equalWeightFallback is the degraded result used when an engine fails.
func (s *Service) equalWeightFallback(method optimization.Method, symbols []string, current []AllocationEntry, totalValue float64, lookback int) *OptimizationOutcome {
	n := len(symbols)
	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}

	optimized := optimizedAllocation(symbols, weights, current)
	return &OptimizationOutcome{
		Method:              string(method),
		CurrentAllocation:   current,
		OptimizedAllocation: optimized,
		TradePlan:           buildTradePlan(optimized, current, totalValue),
		TotalValue:          totalValue,
		EstimationMethods: EstimationMethods{
			Returns:      FallbackTag,
			Covariance:   FallbackTag,
			LookbackDays: lookback,
		},
	}
}

// RefreshPrices fetches the latest close for every held symbol and stores
// it as the current price. Per-symbol failures are skipped; the count of
// updated symbols is returned.
func (s *Service) RefreshPrices(ctx context.Context) (int, error) {
	store, ok := s.holdings.(PriceStore)
	if !ok {
		return 0, errors.New("holdings source does not accept price updates")
	}

	items, err := s.holdings.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch holdings: %w", err)
	}

	var (
		mu      sync.Mutex
		updated int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)

	for i := range items {
		sym := items[i].Symbol
		g.Go(func() error {
			series, err := s.market.GetHistoricalPrices(gctx, sym, "5d", "1d")
			if err != nil || len(series.Prices) == 0 {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("Quote refresh failed")
				return nil
			}
			price := series.Prices[len(series.Prices)-1].Close
			if price <= 0 {
				return nil
			}
			if err := store.UpdatePrice(gctx, sym, price); err != nil {
				s.log.Warn().Err(err).Str("symbol", sym).Msg("Failed to store refreshed price")
				return nil
			}
			mu.Lock()
			updated++
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	s.log.Info().Int("updated", updated).Int("total", len(items)).Msg("Refreshed holding prices")
	return updated, ctx.Err()
}

func (s *Service) persist(ctx context.Context, outcome *OptimizationOutcome) {
	if s.store == nil {
		return
	}
	if err := s.store.SaveWithEvent(ctx, outcome, "portfolio_optimized"); err != nil {
		s.log.Error().Err(err).Str("id", outcome.ID).Msg("Failed to persist optimization result")
	}
}
