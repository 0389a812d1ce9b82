package optimization

import (
	"fmt"
	"sort"
)

// MaxFrontierPoints bounds a frontier sweep; each point costs a full
// mean-variance solve.
const MaxFrontierPoints = 200

// GenerateEfficientFrontier sweeps numPoints target returns evenly between
// the universe's minimum and maximum expected return, solving mean-variance
// at each. Infeasible targets are skipped silently, so the result may hold
// fewer than numPoints entries. Points come back sorted by volatility.
func (e *Engine) GenerateEfficientFrontier(req Request, numPoints int) ([]FrontierPoint, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	if numPoints <= 0 {
		return nil, fmt.Errorf("%w: point count must be positive", ErrInfeasible)
	}
	if numPoints > MaxFrontierPoints {
		return nil, fmt.Errorf("%w: %d points exceeds limit %d", ErrInfeasible, numPoints, MaxFrontierPoints)
	}
	if req.RiskFreeRate == 0 {
		req.RiskFreeRate = e.riskFreeRate
	}

	lo, hi := returnRange(req.ExpectedReturns)
	step := 0.0
	if numPoints > 1 {
		step = (hi - lo) / float64(numPoints-1)
	}

	points := make([]FrontierPoint, 0, numPoints)
	for i := 0; i < numPoints; i++ {
		target := lo + step*float64(i)
		ptReq := req
		ptReq.TargetReturn = &target

		weights, err := e.solveMeanVariance(ptReq)
		if err != nil {
			continue
		}
		weights = ApplyConstraints(weights, req.Constraints)

		summary := e.summarize(MethodMeanVariance, req, weights)
		points = append(points, FrontierPoint{
			ExpectedReturn:     summary.ExpectedReturn,
			ExpectedVolatility: summary.ExpectedVolatility,
			Weights:            weights,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		return points[i].ExpectedVolatility < points[j].ExpectedVolatility
	})

	e.log.Debug().
		Int("requested", numPoints).
		Int("feasible", len(points)).
		Msg("Generated efficient frontier")

	return points, nil
}
