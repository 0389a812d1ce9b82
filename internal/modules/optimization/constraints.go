package optimization

import "math"

// ApplyConstraints clamps a weight vector to the constraint set and
// renormalizes to sum 1: negatives are zeroed if long-only, weights above
// MaxWeight capped, weights below MinWeight floored (tiny weights under a
// tenth of the floor are dropped instead of inflated), then rescaled.
//
// This is a post-hoc projection, not a solver constraint, so the clamped
// vector can sit off the true constrained optimum.
func ApplyConstraints(weights []float64, c Constraints) []float64 {
	n := len(weights)
	if n == 0 {
		return weights
	}

	out := make([]float64, n)
	copy(out, weights)

	if c.LongOnly {
		for i := range out {
			if out[i] < 0 {
				out[i] = 0
			}
		}
	}

	if c.MaxWeight > 0 {
		for i := range out {
			if out[i] > c.MaxWeight {
				out[i] = c.MaxWeight
			}
		}
	}

	if c.MinWeight > 0 {
		drop := c.MinWeight / 10
		for i := range out {
			if out[i] <= drop {
				out[i] = 0
			} else if out[i] < c.MinWeight {
				out[i] = c.MinWeight
			}
		}
	}

	sum := 0.0
	for _, w := range out {
		sum += w
	}
	if sum <= 0 {
		// everything clamped away: fall back to equal weights
		for i := range out {
			out[i] = 1.0 / float64(n)
		}
		return out
	}
	for i := range out {
		out[i] /= sum
	}

	return out
}

// projectToBounds clamps each weight into [lower, upper] during the
// iterative solves.
func projectToBounds(x []float64, lower, upper float64) []float64 {
	proj := make([]float64, len(x))
	for i := range x {
		proj[i] = math.Max(lower, math.Min(upper, x[i]))
	}
	return proj
}

func sumOf(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v
	}
	return s
}

func equalWeights(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1.0 / float64(n)
	}
	return w
}
