package scnorm

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// minGroupGenes is the smallest gene group the second-stage regression
	// accepts; it also bounds how large K may grow.
	minGroupGenes = 10

	// modeGridSize is the kernel density evaluation grid for the slope mode.
	modeGridSize = 512
)

// geneGroup is one slope-homogeneous gene group. members are indices into
// the condition's filtered gene list, in slope rank order; targetSlope is
// the median slope of the members.
type geneGroup struct {
	members     []int
	targetSlope float64
}

// slopeMode estimates the mode of the slope distribution with a Gaussian
// kernel density (Silverman bandwidth) evaluated on a fixed grid over the
// slope range.
func slopeMode(slopes []float64) float64 {
	lo, hi := floats.Min(slopes), floats.Max(slopes)
	sd := stat.StdDev(slopes, nil)
	if len(slopes) == 1 || sd == 0 || hi == lo {
		return slopes[0]
	}

	h := 1.06 * sd * math.Pow(float64(len(slopes)), -0.2)
	kernel := distuv.Normal{Mu: 0, Sigma: h}

	best, bestDensity := lo, math.Inf(-1)
	step := (hi - lo) / float64(modeGridSize-1)
	for g := 0; g < modeGridSize; g++ {
		p := lo + float64(g)*step
		var d float64
		for _, s := range slopes {
			d += kernel.Prob(p - s)
		}
		if d > bestDensity {
			best, bestDensity = p, d
		}
	}
	return best
}

// fitSubset marks the prop fraction of genes whose slopes are nearest the
// mode of the slope distribution. Only marked genes feed the pooled group
// fits; unmarked genes are still grouped and normalized with their group's
// factors. Ties in distance keep the original gene order.
func fitSubset(slopes []float64, prop float64) []bool {
	n := len(slopes)
	keep := int(math.Round(prop * float64(n)))
	if keep < minGroupGenes {
		keep = minGroupGenes
	}
	if keep > n {
		keep = n
	}

	mode := slopeMode(slopes)
	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return math.Abs(slopes[order[a]]-mode) < math.Abs(slopes[order[b]]-mode)
	})

	mask := make([]bool, n)
	for _, i := range order[:keep] {
		mask[i] = true
	}
	return mask
}

// makeGroups ranks genes by slope (stable, so equal slopes keep their
// original order and the partition is reproducible) and splits the ranked
// list into k contiguous groups of as-equal-as-possible size.
func makeGroups(slopes []float64, k int) ([]geneGroup, error) {
	n := len(slopes)
	if k < 1 {
		return nil, fmt.Errorf("%w: K must be >= 1, got %d", ErrConfig, k)
	}
	if k > n/minGroupGenes {
		return nil, fmt.Errorf("%w: K=%d leaves fewer than %d genes per group (%d filtered genes); use K <= %d",
			ErrConfig, k, minGroupGenes, n, n/minGroupGenes)
	}

	order := make([]int, n)
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return slopes[order[a]] < slopes[order[b]]
	})

	base, rem := n/k, n%k
	groups := make([]geneGroup, 0, k)
	at := 0
	for g := 0; g < k; g++ {
		size := base
		if g < rem {
			size++
		}
		members := order[at : at+size]
		at += size

		// Member slopes are already ascending along the ranked order.
		ms := make([]float64, size)
		for i, fi := range members {
			ms[i] = slopes[fi]
		}
		groups = append(groups, geneGroup{
			members:     members,
			targetSlope: stat.Quantile(0.5, stat.Empirical, ms, nil),
		})
	}
	return groups, nil
}
