package optimization

import (
	"math"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEngine() *Engine {
	return NewEngine(0.02, zerolog.Nop())
}

// noConstraints lets tests inspect raw solver output.
var noConstraints = Constraints{}

func twoAssetRequest() Request {
	return Request{
		Symbols:         []string{"RISKY", "SAFE"},
		ExpectedReturns: []float64{0.10, 0.05},
		Covariance: [][]float64{
			{0.04, 0.00},
			{0.00, 0.01},
		},
		Constraints: noConstraints,
	}
}

func assertSumsToOne(t *testing.T, weights []float64) {
	t.Helper()
	assert.InDelta(t, 1.0, sumOf(weights), 1e-6)
}

func TestMaxSharpeSingleAsset(t *testing.T) {
	e := testEngine()
	result, err := e.Optimize(MethodMaxSharpe, Request{
		Symbols:         []string{"ONLY"},
		ExpectedReturns: []float64{0.07},
		Covariance:      [][]float64{{0.02}},
		Constraints:     DefaultConstraints(),
	})
	require.NoError(t, err)
	require.Len(t, result.Weights, 1)
	assert.InDelta(t, 1.0, result.Weights[0], 1e-9)
}

func TestMaxSharpeClosedFormTangency(t *testing.T) {
	e := testEngine()
	result, err := e.Optimize(MethodMaxSharpe, twoAssetRequest())
	require.NoError(t, err)

	// w* = Sigma^-1 (mu - rf) / sum = [2, 3] / 5
	assert.InDelta(t, 0.4, result.Weights[0], 1e-6)
	assert.InDelta(t, 0.6, result.Weights[1], 1e-6)
	assertSumsToOne(t, result.Weights)

	// the tangency portfolio beats each asset's standalone sharpe
	assert.Greater(t, result.SharpeRatio, 0.40)
}

func TestMaxSharpeFavorsHigherSharpeAtEqualRisk(t *testing.T) {
	e := testEngine()
	result, err := e.Optimize(MethodMaxSharpe, Request{
		Symbols:         []string{"GOOD", "BAD"},
		ExpectedReturns: []float64{0.10, 0.05},
		Covariance: [][]float64{
			{0.04, 0.00},
			{0.00, 0.04},
		},
		Constraints: noConstraints,
	})
	require.NoError(t, err)
	assert.Greater(t, result.Weights[0], result.Weights[1])
}

func TestRiskParityTwoEqualAssets(t *testing.T) {
	e := testEngine()
	result, err := e.Optimize(MethodRiskParity, Request{
		Symbols:         []string{"A", "B"},
		ExpectedReturns: []float64{0.08, 0.03},
		Covariance: [][]float64{
			{0.04, 0.00},
			{0.00, 0.04},
		},
		Constraints: noConstraints,
	})
	require.NoError(t, err)

	// identical uncorrelated risk: equal weights regardless of returns
	assert.InDelta(t, 0.5, result.Weights[0], 1e-4)
	assert.InDelta(t, 0.5, result.Weights[1], 1e-4)
}

func TestRiskParityLowerRiskGetsMoreWeight(t *testing.T) {
	e := testEngine()
	result, err := e.Optimize(MethodRiskParity, Request{
		Symbols:         []string{"RISKY", "SAFE"},
		ExpectedReturns: []float64{0.10, 0.05},
		Covariance: [][]float64{
			{0.09, 0.00},
			{0.00, 0.01},
		},
		Constraints: noConstraints,
	})
	require.NoError(t, err)

	assert.Greater(t, result.Weights[1], result.Weights[0])
	assertSumsToOne(t, result.Weights)

	// equal risk contribution: w_i^2 * var_i should match across assets
	riskA := result.Weights[0] * result.Weights[0] * 0.09
	riskB := result.Weights[1] * result.Weights[1] * 0.01
	assert.InDelta(t, riskA, riskB, 1e-4)
}

func TestMeanVarianceHitsTargetReturn(t *testing.T) {
	e := testEngine()
	target := 0.07
	req := twoAssetRequest()
	req.TargetReturn = &target

	result, err := e.Optimize(MethodMeanVariance, req)
	require.NoError(t, err)

	assertSumsToOne(t, result.Weights)
	assert.InDelta(t, target, result.ExpectedReturn, 0.01)
}

func TestMinVolatilityPrefersLowRiskAsset(t *testing.T) {
	e := testEngine()
	result, err := e.Optimize(MethodMinVolatility, twoAssetRequest())
	require.NoError(t, err)

	assert.Greater(t, result.Weights[1], result.Weights[0], "the low-variance asset should dominate")
	assertSumsToOne(t, result.Weights)
	assert.Less(t, result.ExpectedVolatility, 0.2)
}

func TestBlackLittermanNoViewsPassthrough(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()
	req.MarketWeights = []float64{0.6, 0.4}

	result, err := e.Optimize(MethodBlackLitterman, req)
	require.NoError(t, err)

	// without views the market weights come back unchanged
	assert.InDelta(t, 0.6, result.Weights[0], 1e-9)
	assert.InDelta(t, 0.4, result.Weights[1], 1e-9)

	// portfolio return over equilibrium Pi = delta * Sigma * w:
	// 0.6*0.072 + 0.4*0.012 = 0.048
	assert.InDelta(t, 0.048, result.ExpectedReturn, 1e-9)
}

func TestBlackLittermanNoViewsSkipsConstraintClamp(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()
	req.MarketWeights = []float64{0.7, 0.3}
	req.Constraints = DefaultConstraints()

	result, err := e.Optimize(MethodBlackLitterman, req)
	require.NoError(t, err)

	// a concentrated market portfolio survives even a 30% cap: without
	// views there is nothing to solve, so no clamp applies
	assert.InDelta(t, 0.7, result.Weights[0], 1e-9)
	assert.InDelta(t, 0.3, result.Weights[1], 1e-9)
}

func TestBlackLittermanEquilibriumReturns(t *testing.T) {
	pi := impliedEquilibriumReturns([]float64{0.6, 0.4}, [][]float64{
		{0.04, 0.00},
		{0.00, 0.01},
	}, 3.0)

	assert.InDelta(t, 3.0*0.04*0.6, pi[0], 1e-12)
	assert.InDelta(t, 3.0*0.01*0.4, pi[1], 1e-12)
}

func TestBlackLittermanViewShiftsAllocation(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()
	req.MarketWeights = []float64{0.5, 0.5}
	req.Views = []View{{
		Type:       "absolute",
		Symbol:     "SAFE",
		Return:     0.20,
		Confidence: 0.9,
	}}

	result, err := e.Optimize(MethodBlackLitterman, req)
	require.NoError(t, err)

	assertSumsToOne(t, result.Weights)
	// a strong bullish view on SAFE should tilt the posterior toward it
	assert.Greater(t, result.Weights[1], 0.5)
}

func TestBlackLittermanRelativeViewValidation(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()
	req.Views = []View{{Type: "relative", Symbol: "RISKY", OtherSymbol: "MISSING", Return: 0.02, Confidence: 0.5}}

	_, err := e.Optimize(MethodBlackLitterman, req)
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCVaRMinRequiresScenarios(t *testing.T) {
	e := testEngine()
	_, err := e.Optimize(MethodCVaRMin, twoAssetRequest())
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestCVaRMinAvoidsCrashAsset(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()

	// asset 0 crashes hard in a tenth of the scenarios, asset 1 is steady
	scenarios := make([][]float64, 100)
	for i := range scenarios {
		crash := 0.02
		if i%10 == 0 {
			crash = -0.60
		}
		scenarios[i] = []float64{crash, 0.01}
	}
	req.Scenarios = scenarios
	req.Alpha = 0.05

	result, err := e.Optimize(MethodCVaRMin, req)
	require.NoError(t, err)

	assertSumsToOne(t, result.Weights)
	assert.Greater(t, result.Weights[1], result.Weights[0], "tail-risk minimizer should shun the crashing asset")
	require.NotNil(t, result.CVaR)
}

func TestUnknownMethod(t *testing.T) {
	e := testEngine()
	_, err := e.Optimize(Method("hierarchical"), twoAssetRequest())
	assert.ErrorIs(t, err, ErrUnknownMethod)

	_, err = ParseMethod("hierarchical")
	assert.ErrorIs(t, err, ErrUnknownMethod)

	m, err := ParseMethod("risk_parity")
	require.NoError(t, err)
	assert.Equal(t, MethodRiskParity, m)
}

func TestDimensionMismatch(t *testing.T) {
	e := testEngine()
	_, err := e.Optimize(MethodMaxSharpe, Request{
		Symbols:         []string{"A", "B"},
		ExpectedReturns: []float64{0.1},
		Covariance:      [][]float64{{0.04}},
	})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestConstraintsLongOnlyCapAndFloor(t *testing.T) {
	weights := ApplyConstraints([]float64{-0.2, 0.7, 0.5}, DefaultConstraints())

	assertSumsToOne(t, weights)
	assert.Equal(t, 0.0, weights[0], "negative weight zeroed under long-only")
	for _, w := range weights {
		if w > 0 {
			assert.GreaterOrEqual(t, w, 0.01-1e-9)
		}
	}
	// capped at 30% before renormalize: both survivors end up equal
	assert.InDelta(t, weights[1], weights[2], 1e-9)
}

func TestConstraintsAllClampedFallsBackToEqual(t *testing.T) {
	weights := ApplyConstraints([]float64{-1, -2}, Constraints{LongOnly: true})
	assert.InDelta(t, 0.5, weights[0], 1e-9)
	assert.InDelta(t, 0.5, weights[1], 1e-9)
}

func TestEfficientFrontierShape(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()

	points, err := e.GenerateEfficientFrontier(req, 10)
	require.NoError(t, err)
	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), 10)

	for i, p := range points {
		assert.GreaterOrEqual(t, p.ExpectedVolatility, 0.0)
		assertSumsToOne(t, p.Weights)
		if i > 0 {
			assert.GreaterOrEqual(t, p.ExpectedVolatility, points[i-1].ExpectedVolatility-1e-9,
				"frontier volatility must be non-decreasing")
		}
	}
}

func TestEfficientFrontierPointLimit(t *testing.T) {
	e := testEngine()
	_, err := e.GenerateEfficientFrontier(twoAssetRequest(), MaxFrontierPoints+1)
	assert.ErrorIs(t, err, ErrInfeasible)
}

func TestSummaryMath(t *testing.T) {
	e := testEngine()
	req := twoAssetRequest()
	result := e.summarize(MethodMeanVariance, req, []float64{0.5, 0.5})

	assert.InDelta(t, 0.075, result.ExpectedReturn, 1e-12)
	expectedVol := math.Sqrt(0.25*0.04 + 0.25*0.01)
	assert.InDelta(t, expectedVol, result.ExpectedVolatility, 1e-12)
	assert.InDelta(t, (0.075-0.02)/expectedVol, result.SharpeRatio, 1e-12)
}
