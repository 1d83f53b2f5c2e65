package scnorm

import (
	"fmt"
	"math"
)

// KDiagnostic records one iteration of the K search: the per-group residual
// slope statistics measured on the data normalized at that K, so callers
// can render convergence diagnostics without re-running the fit.
type KDiagnostic struct {
	// K is the group count this iteration fitted.
	K int

	// GroupSlopes holds one residual-slope statistic per group: the
	// Config.SlopeQuantile empirical quantile of the absolute re-estimated
	// gene slopes in that group.
	GroupSlopes []float64

	// MaxAbsSlope is the largest entry of GroupSlopes.
	MaxAbsSlope float64

	// Violations counts groups whose statistic exceeds Config.Thresh.
	Violations int

	// Sufficient reports whether this K met the stopping rule.
	Sufficient bool
}

// conditionResult is one condition's normalized output before
// cross-condition scaling. norm and factors are flat filtered-genes ×
// condition-columns, aligned with conditionData.filtered and .cols.
type conditionResult struct {
	cd       *conditionData
	norm     []float64
	factors  []float64
	chosenK  int
	diags    []KDiagnostic
	warnings []Warning
}

// fitAtK runs grouping and the per-group scale fits for a single K. Group
// fits share no state and run in parallel; factors are broadcast to every
// member gene of their group.
func fitAtK(cd *conditionData, slopes []float64, fitMask []bool, k int, cfg *Config) (norm, factors []float64, groups []geneGroup, err error) {
	groups, err = makeGroups(slopes, k)
	if err != nil {
		return nil, nil, nil, err
	}

	groupFactors := make([][]float64, len(groups))
	errs := make([]error, len(groups))
	parallelRanges(len(groups), cfg.Workers, func(start, end int) {
		for gi := start; gi < end; gi++ {
			groupFactors[gi], errs[gi] = fitGroupFactors(cd, groups[gi], fitMask, cfg.Tau)
		}
	})
	for _, err := range errs {
		if err != nil {
			return nil, nil, nil, err
		}
	}

	nCols := len(cd.cols)
	norm = make([]float64, len(cd.filtered)*nCols)
	factors = make([]float64, len(cd.filtered)*nCols)
	for gi, grp := range groups {
		f := groupFactors[gi]
		for _, fi := range grp.members {
			for jj := 0; jj < nCols; jj++ {
				norm[fi*nCols+jj] = cd.raw(fi, jj) / f[jj]
				factors[fi*nCols+jj] = f[jj]
			}
		}
	}
	return norm, factors, groups, nil
}

// evaluateK measures whether K groups were enough: gene slopes are
// re-estimated on the normalized data (no re-dithering; division by the
// per-sample factors already leaves no tied counts) and reduced to one
// residual statistic per group. A group violates when its statistic exceeds
// Thresh; K is sufficient when the violating fraction of groups is at most
// GroupTolerance.
func evaluateK(cd *conditionData, norm []float64, groups []geneGroup, k int, cfg *Config) (KDiagnostic, error) {
	resid, err := computeSlopes(cd, norm, cfg.Tau, cfg.FilterCellNum, cfg.Workers)
	if err != nil {
		return KDiagnostic{}, err
	}

	diag := KDiagnostic{K: k, GroupSlopes: make([]float64, len(groups))}
	abs := make([]float64, 0, len(resid))
	for gi, grp := range groups {
		abs = abs[:0]
		for _, fi := range grp.members {
			abs = append(abs, math.Abs(resid[fi]))
		}
		s := quantileOf(abs, cfg.SlopeQuantile)
		diag.GroupSlopes[gi] = s
		if s > diag.MaxAbsSlope {
			diag.MaxAbsSlope = s
		}
		if s > cfg.Thresh {
			diag.Violations++
		}
	}
	diag.Sufficient = float64(diag.Violations) <= cfg.GroupTolerance*float64(len(groups))
	return diag, nil
}

// selectK is the K search: an explicit iterative loop that fits K groups,
// evaluates the residual depth dependence of the normalized data, and
// increments K until the stopping rule is met or the search bound is
// exhausted. The two exit states are convergence (Sufficient at the chosen
// K) and exhaustion (a ConvergenceWarning, keeping the last attempted K —
// larger K would leave groups too small to regress reliably). A fixedK > 0
// skips the search but still evaluates, warning when insufficient.
func selectK(cd *conditionData, slopes []float64, fitMask []bool, cfg *Config, fixedK int) (*conditionResult, error) {
	res := &conditionResult{cd: cd}

	maxK := cfg.MaxK
	if bound := len(cd.filtered) / minGroupGenes; maxK > bound {
		maxK = bound
	}
	if maxK < 1 {
		maxK = 1
	}

	if fixedK > 0 {
		norm, factors, groups, err := fitAtK(cd, slopes, fitMask, fixedK, cfg)
		if err != nil {
			return nil, err
		}
		diag, err := evaluateK(cd, norm, groups, fixedK, cfg)
		if err != nil {
			return nil, err
		}
		res.norm, res.factors, res.chosenK = norm, factors, fixedK
		res.diags = []KDiagnostic{diag}
		if !diag.Sufficient {
			res.warnings = append(res.warnings, Warning{
				Code:      WarnKInsufficient,
				Condition: cd.name,
				Message: fmt.Sprintf("fixed K=%d leaves %d of %d groups with residual slope above %g (max %.3g)",
					fixedK, diag.Violations, len(diag.GroupSlopes), cfg.Thresh, diag.MaxAbsSlope),
			})
		}
		return res, nil
	}

	for k := 1; ; k++ {
		norm, factors, groups, err := fitAtK(cd, slopes, fitMask, k, cfg)
		if err != nil {
			return nil, err
		}
		diag, err := evaluateK(cd, norm, groups, k, cfg)
		if err != nil {
			return nil, err
		}

		res.norm, res.factors, res.chosenK = norm, factors, k
		res.diags = append(res.diags, diag)

		if diag.Sufficient {
			return res, nil
		}
		if k >= maxK {
			res.warnings = append(res.warnings, Warning{
				Code:      WarnKNotConverged,
				Condition: cd.name,
				Message: fmt.Sprintf("K search exhausted at K=%d with max residual slope %.3g > %g; using K=%d (consider relaxing Thresh or filtering more aggressively)",
					k, diag.MaxAbsSlope, cfg.Thresh, k),
			})
			return res, nil
		}
	}
}
