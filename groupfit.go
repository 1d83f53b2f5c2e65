package scnorm

import (
	"fmt"
	"math"
)

// fitGroupFactors fits one group's pooled depth trend at quantile tau and
// derives one strictly positive scale factor per sample: the ratio between
// the trend's prediction at the sample's own depth and at the condition's
// median depth, exp(beta·(logDepth − medLogDepth)). Dividing a member
// gene's count by its sample factor removes the group's common first-order
// depth dependence.
//
// The pooled regression uses the group members marked in fitMask when
// enough of them are marked, otherwise all members; the factors always
// apply to every member. A nil fitMask pools all members.
func fitGroupFactors(cd *conditionData, grp geneGroup, fitMask []bool, tau float64) ([]float64, error) {
	pool := grp.members
	if fitMask != nil {
		marked := make([]int, 0, len(grp.members))
		for _, fi := range grp.members {
			if fitMask[fi] {
				marked = append(marked, fi)
			}
		}
		if len(marked) >= minGroupGenes {
			pool = marked
		}
	}

	nCols := len(cd.cols)
	x := make([]float64, 0, len(pool)*nCols)
	y := make([]float64, 0, len(pool)*nCols)
	for _, fi := range pool {
		for jj := 0; jj < nCols; jj++ {
			if v := cd.fitVal(fi, jj); v > 0 {
				x = append(x, cd.logDepth[jj])
				y = append(y, math.Log(v))
			}
		}
	}

	_, beta, err := fitQuantile(x, y, tau)
	if err != nil {
		return nil, fmt.Errorf("scale fit for %d-gene group in condition %q: %w", len(pool), cd.name, err)
	}

	factors := make([]float64, nCols)
	for jj := 0; jj < nCols; jj++ {
		factors[jj] = math.Exp(beta * (cd.logDepth[jj] - cd.medLogDepth))
	}
	return factors, nil
}
