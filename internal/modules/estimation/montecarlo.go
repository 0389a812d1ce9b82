package estimation

import (
	"errors"
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// MaxScenarios bounds a single Monte Carlo run; the generation loop is
// CPU-bound and unbounded input would let one request monopolize the worker.
const MaxScenarios = 100000

// ErrTooManyScenarios is returned when a caller exceeds MaxScenarios.
var ErrTooManyScenarios = errors.New("scenario count exceeds limit")

// GenerateScenarios produces numScenarios correlated return vectors for
// CVaR estimation. The covariance matrix is Cholesky-decomposed to impose
// the correlation structure on independent standard-normal draws; each draw
// is scaled by sqrt(horizon) and shifted by mu*horizon.
//
// rng must be non-nil; pass rand.New(rand.NewSource(seed)) for reproducible
// output.
func GenerateScenarios(returns []float64, cov [][]float64, numScenarios int, horizon float64, rng *rand.Rand) ([][]float64, error) {
	n := len(returns)
	if n == 0 {
		return nil, errors.New("no assets to simulate")
	}
	if len(cov) != n {
		return nil, fmt.Errorf("covariance dimension %d does not match %d assets", len(cov), n)
	}
	if numScenarios <= 0 {
		return nil, errors.New("scenario count must be positive")
	}
	if numScenarios > MaxScenarios {
		return nil, fmt.Errorf("%w: %d > %d", ErrTooManyScenarios, numScenarios, MaxScenarios)
	}
	if horizon <= 0 {
		horizon = 1
	}

	lower := choleskyLower(cov, n)
	sqrtH := math.Sqrt(horizon)

	scenarios := make([][]float64, numScenarios)
	for s := 0; s < numScenarios; s++ {
		z := make([]float64, n)
		for i := range z {
			z[i] = boxMuller(rng)
		}

		scenario := make([]float64, n)
		for i := 0; i < n; i++ {
			var corr float64
			for j := 0; j <= i; j++ {
				corr += lower.At(i, j) * z[j]
			}
			scenario[i] = returns[i]*horizon + corr*sqrtH
		}
		scenarios[s] = scenario
	}

	return scenarios, nil
}

// choleskyLower factors the covariance matrix. Near-singular or indefinite
// matrices (short histories produce them) fall back to a diagonal factor of
// per-asset volatilities, losing correlation but keeping marginal risk.
func choleskyLower(cov [][]float64, n int) *mat.TriDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			sym.SetSym(i, j, cov[i][j])
		}
	}

	var chol mat.Cholesky
	if chol.Factorize(sym) {
		var lower mat.TriDense
		chol.LTo(&lower)
		return &lower
	}

	diag := mat.NewTriDense(n, mat.Lower, nil)
	for i := 0; i < n; i++ {
		v := cov[i][i]
		if v < 0 {
			v = 0
		}
		diag.SetTri(i, i, math.Sqrt(v))
	}
	return diag
}

// boxMuller draws one standard-normal variate.
func boxMuller(rng *rand.Rand) float64 {
	u1 := rng.Float64()
	for u1 == 0 {
		u1 = rng.Float64()
	}
	u2 := rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
