package scnorm

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	// quantregMaxIter bounds the IRLS refinement loop.
	quantregMaxIter = 50

	// quantregResidFloor keeps IRLS weights finite at near-zero residuals.
	quantregResidFloor = 1e-6

	// quantregTol is the coefficient-change convergence criterion.
	quantregTol = 1e-9
)

// fitQuantile fits the conditional tau-quantile line y ≈ alpha + beta*x by
// iteratively reweighted least squares: starting from the least-squares fit,
// each observation is reweighted by tau/(1-tau) over the magnitude of its
// current residual, which converges to the minimizer of the pinball loss.
//
// The predictor must span a nonzero range; a degenerate x (all observations
// at one depth) cannot identify a slope and is reported as an error.
func fitQuantile(x, y []float64, tau float64) (alpha, beta float64, err error) {
	if len(x) != len(y) {
		return 0, 0, fmt.Errorf("%w: quantile fit on %d predictors and %d responses",
			ErrValidation, len(x), len(y))
	}
	if len(x) < 2 {
		return 0, 0, fmt.Errorf("%w: quantile fit needs at least 2 observations, got %d",
			ErrValidation, len(x))
	}
	if floats.Max(x)-floats.Min(x) <= 0 {
		return 0, 0, fmt.Errorf("%w: degenerate predictor range (all observations at depth %g)",
			ErrValidation, math.Exp(x[0]))
	}

	alpha, beta = stat.LinearRegression(x, y, nil, false)

	w := make([]float64, len(x))
	for iter := 0; iter < quantregMaxIter; iter++ {
		for i := range x {
			r := y[i] - alpha - beta*x[i]
			q := tau
			if r < 0 {
				q = 1 - tau
			}
			w[i] = q / math.Max(math.Abs(r), quantregResidFloor)
		}

		a, b := stat.LinearRegression(x, y, w, false)
		done := math.Abs(a-alpha)+math.Abs(b-beta) < quantregTol
		alpha, beta = a, b
		if done {
			break
		}
	}

	if math.IsNaN(alpha) || math.IsNaN(beta) || math.IsInf(alpha, 0) || math.IsInf(beta, 0) {
		return 0, 0, fmt.Errorf("%w: quantile fit did not produce finite coefficients", ErrValidation)
	}
	return alpha, beta, nil
}
