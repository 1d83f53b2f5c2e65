package scnorm

import (
	"fmt"
	"math"
)

// computeSlopes estimates each filtered gene's depth-dependence slope: the
// tau-quantile regression coefficient of log value on log depth over the
// gene's nonzero samples. vals is flat filtered-genes × condition-columns —
// the condition's fit values, or a normalized matrix during K evaluation.
//
// Genes are split across workers in contiguous ranges. minObs is the filter
// floor: a gene reaching the estimator with fewer nonzero observations
// indicates an upstream filtering bug and fails loudly rather than yielding
// a spurious slope.
func computeSlopes(cd *conditionData, vals []float64, tau float64, minObs, workers int) ([]float64, error) {
	n := len(cd.filtered)
	nCols := len(cd.cols)

	slopes := make([]float64, n)
	errs := make([]error, n)

	parallelRanges(n, workers, func(start, end int) {
		x := make([]float64, 0, nCols)
		y := make([]float64, 0, nCols)
		for fi := start; fi < end; fi++ {
			x, y = x[:0], y[:0]
			for jj := 0; jj < nCols; jj++ {
				if v := vals[fi*nCols+jj]; v > 0 {
					x = append(x, cd.logDepth[jj])
					y = append(y, math.Log(v))
				}
			}

			gene := cd.m.Genes[cd.filtered[fi]]
			if len(x) < minObs {
				errs[fi] = fmt.Errorf("%w: gene %q has %d nonzero observations in condition %q, below the filter floor %d",
					ErrValidation, gene, len(x), cd.name, minObs)
				continue
			}

			_, beta, err := fitQuantile(x, y, tau)
			if err != nil {
				errs[fi] = fmt.Errorf("slope fit for gene %q in condition %q: %w", gene, cd.name, err)
				continue
			}
			slopes[fi] = beta
		}
	})

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	return slopes, nil
}
