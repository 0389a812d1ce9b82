package optimization

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

const (
	// blRiskAversion is the market risk-aversion coefficient delta in
	// Pi = delta * Sigma * w.
	blRiskAversion = 3.0
	// blTau scales the uncertainty of the equilibrium prior.
	blTau = 0.025
)

// solveBlackLitterman derives equilibrium returns from the market weights,
// blends in the caller's views when present, and feeds the posterior return
// vector through the mean-variance solve. Without views there is nothing to
// solve: the market weights and equilibrium returns pass through exactly as
// given, skipping the constraint clamp entirely.
func (e *Engine) solveBlackLitterman(req Request) (*Result, error) {
	n := len(req.Symbols)

	marketWeights := req.MarketWeights
	if len(marketWeights) == 0 {
		marketWeights = equalWeights(n)
	} else if len(marketWeights) != n {
		return nil, fmt.Errorf("%w: %d market weights for %d symbols", ErrDimensionMismatch, len(marketWeights), n)
	}

	equilibrium := impliedEquilibriumReturns(marketWeights, req.Covariance, blRiskAversion)

	if len(req.Views) == 0 {
		weights := make([]float64, n)
		copy(weights, marketWeights)
		blReq := req
		blReq.ExpectedReturns = equilibrium
		result := e.summarize(MethodBlackLitterman, blReq, weights)
		return result, nil
	}

	posterior, err := blendViews(equilibrium, req.Views, req.Covariance, req.Symbols, blTau)
	if err != nil {
		return nil, err
	}

	blReq := req
	blReq.ExpectedReturns = posterior
	if blReq.TargetReturn == nil {
		// anchor the solve at the posterior return of the market portfolio,
		// so the blended views actually move the allocation
		target := 0.0
		for i, w := range marketWeights {
			target += w * posterior[i]
		}
		blReq.TargetReturn = &target
	}
	weights, err := e.solveMeanVariance(blReq)
	if err != nil {
		return nil, err
	}
	weights = ApplyConstraints(weights, req.Constraints)

	result := e.summarize(MethodBlackLitterman, blReq, weights)
	return result, nil
}

// impliedEquilibriumReturns computes Pi = delta * Sigma * w.
func impliedEquilibriumReturns(weights []float64, cov [][]float64, riskAversion float64) []float64 {
	n := len(weights)
	pi := make([]float64, n)
	for i := 0; i < n; i++ {
		var sigmaW float64
		for j := 0; j < n; j++ {
			sigmaW += cov[i][j] * weights[j]
		}
		pi[i] = riskAversion * sigmaW
	}
	return pi
}

// blendViews applies the Black-Litterman posterior
// E[R] = [(τΣ)⁻¹ + PᵗΩ⁻¹P]⁻¹ [(τΣ)⁻¹Π + PᵗΩ⁻¹Q]
// with a diagonal view-uncertainty matrix Ω derived from each view's
// confidence.
func blendViews(equilibrium []float64, views []View, cov [][]float64, symbols []string, tau float64) ([]float64, error) {
	n := len(symbols)
	m := len(views)

	index := make(map[string]int, n)
	for i, s := range symbols {
		index[s] = i
	}

	P := mat.NewDense(m, n, nil)
	Q := mat.NewVecDense(m, nil)
	omegaInv := mat.NewDense(m, m, nil)

	for i, view := range views {
		Q.SetVec(i, view.Return)

		uncertainty := 1.0 - view.Confidence
		if uncertainty < 1e-6 {
			uncertainty = 1e-6
		}
		omegaInv.Set(i, i, 1.0/uncertainty)

		switch view.Type {
		case "absolute":
			j, ok := index[view.Symbol]
			if !ok {
				return nil, fmt.Errorf("%w: view references unknown symbol %q", ErrDimensionMismatch, view.Symbol)
			}
			P.Set(i, j, 1.0)
		case "relative":
			j1, ok1 := index[view.Symbol]
			j2, ok2 := index[view.OtherSymbol]
			if !ok1 || !ok2 {
				return nil, fmt.Errorf("%w: relative view references unknown symbols %q/%q", ErrDimensionMismatch, view.Symbol, view.OtherSymbol)
			}
			P.Set(i, j1, 1.0)
			P.Set(i, j2, -1.0)
		default:
			return nil, fmt.Errorf("unknown view type %q", view.Type)
		}
	}

	sigma := denseCovariance(cov)

	// (τΣ)⁻¹
	tauSigma := mat.NewDense(n, n, nil)
	tauSigma.Scale(tau, sigma)
	var tauSigmaInv mat.Dense
	if err := tauSigmaInv.Inverse(tauSigma); err != nil {
		return nil, fmt.Errorf("%w: scaled covariance is singular: %v", ErrInfeasible, err)
	}

	// PᵗΩ⁻¹P and PᵗΩ⁻¹Q
	var pOmega mat.Dense
	pOmega.Mul(P.T(), omegaInv)
	var pOmegaP mat.Dense
	pOmegaP.Mul(&pOmega, P)
	var pOmegaQ mat.VecDense
	pOmegaQ.MulVec(&pOmega, Q)

	// posterior precision and its inverse
	var precision mat.Dense
	precision.Add(&tauSigmaInv, &pOmegaP)
	var precisionInv mat.Dense
	if err := precisionInv.Inverse(&precision); err != nil {
		return nil, fmt.Errorf("%w: posterior precision is singular: %v", ErrInfeasible, err)
	}

	piVec := mat.NewVecDense(n, equilibrium)
	var priorTerm mat.VecDense
	priorTerm.MulVec(&tauSigmaInv, piVec)

	var rhs mat.VecDense
	rhs.AddVec(&priorTerm, &pOmegaQ)

	var posterior mat.VecDense
	posterior.MulVec(&precisionInv, &rhs)

	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = posterior.AtVec(i)
	}
	return out, nil
}
