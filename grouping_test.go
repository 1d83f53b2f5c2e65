package scnorm

import (
	"errors"
	"math"
	"testing"
)

// pseudoSlopes returns n deterministic, unevenly spread slope values.
func pseudoSlopes(n int) []float64 {
	slopes := make([]float64, n)
	for i := range slopes {
		slopes[i] = math.Mod(float64(i)*0.618033988749895, 1.0) // golden-ratio scatter
	}
	return slopes
}

func TestMakeGroupsPartition(t *testing.T) {
	slopes := pseudoSlopes(200)

	for _, k := range []int{1, 2, 3, 5, 10, 20} {
		groups, err := makeGroups(slopes, k)
		if err != nil {
			t.Fatalf("K=%d: unexpected error: %v", k, err)
		}
		if len(groups) != k {
			t.Fatalf("K=%d: got %d groups", k, len(groups))
		}

		seen := make(map[int]bool, len(slopes))
		minSize, maxSize := len(slopes), 0
		for gi, grp := range groups {
			if len(grp.members) == 0 {
				t.Fatalf("K=%d: group %d is empty", k, gi)
			}
			if len(grp.members) < minSize {
				minSize = len(grp.members)
			}
			if len(grp.members) > maxSize {
				maxSize = len(grp.members)
			}
			for _, fi := range grp.members {
				if seen[fi] {
					t.Fatalf("K=%d: gene %d in two groups", k, fi)
				}
				seen[fi] = true
			}
		}
		if len(seen) != len(slopes) {
			t.Errorf("K=%d: union covers %d of %d genes", k, len(seen), len(slopes))
		}
		if maxSize-minSize > 1 {
			t.Errorf("K=%d: group sizes range %d..%d, want as-equal-as-possible", k, minSize, maxSize)
		}
	}
}

func TestMakeGroupsRankOrderAndTargets(t *testing.T) {
	slopes := pseudoSlopes(120)
	groups, err := makeGroups(slopes, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Groups are contiguous in slope rank: every slope in group g is <=
	// every slope in group g+1, and each target is the member median.
	prevMax := math.Inf(-1)
	for gi, grp := range groups {
		lo, hi := math.Inf(1), math.Inf(-1)
		ms := make([]float64, 0, len(grp.members))
		for _, fi := range grp.members {
			s := slopes[fi]
			lo, hi = math.Min(lo, s), math.Max(hi, s)
			ms = append(ms, s)
		}
		if lo < prevMax {
			t.Errorf("group %d overlaps previous in slope rank (%g < %g)", gi, lo, prevMax)
		}
		prevMax = hi

		if want := medianOf(ms); grp.targetSlope != want {
			t.Errorf("group %d target = %g, want member median %g", gi, grp.targetSlope, want)
		}
		if grp.targetSlope < lo || grp.targetSlope > hi {
			t.Errorf("group %d target %g outside member range [%g, %g]", gi, grp.targetSlope, lo, hi)
		}
	}
}

func TestMakeGroupsReproducibleWithTies(t *testing.T) {
	// Many tied slopes: membership must be assigned by rank with stable
	// original order, so repeated runs agree exactly.
	slopes := make([]float64, 100)
	for i := range slopes {
		slopes[i] = float64(i % 3)
	}

	a, err := makeGroups(slopes, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := makeGroups(slopes, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for gi := range a {
		for i := range a[gi].members {
			if a[gi].members[i] != b[gi].members[i] {
				t.Fatalf("group %d differs between runs", gi)
			}
		}
	}
}

func TestMakeGroupsBounds(t *testing.T) {
	slopes := pseudoSlopes(100)
	if _, err := makeGroups(slopes, 0); !errors.Is(err, ErrConfig) {
		t.Errorf("K=0: expected ErrConfig, got %v", err)
	}
	// 100 genes support at most 10 groups of 10.
	if _, err := makeGroups(slopes, 11); !errors.Is(err, ErrConfig) {
		t.Errorf("K=11: expected ErrConfig, got %v", err)
	}
	if _, err := makeGroups(slopes, 10); err != nil {
		t.Errorf("K=10: unexpected error: %v", err)
	}
}

func TestSlopeMode(t *testing.T) {
	// 80 slopes tightly packed near 0.3, 20 near 1.5: the mode must land
	// in the heavy cluster.
	slopes := make([]float64, 0, 100)
	for i := 0; i < 80; i++ {
		slopes = append(slopes, 0.3+float64(i%9)*0.005)
	}
	for i := 0; i < 20; i++ {
		slopes = append(slopes, 1.5+float64(i%5)*0.01)
	}

	mode := slopeMode(slopes)
	if math.Abs(mode-0.3) > 0.2 {
		t.Errorf("mode = %g, want near 0.3", mode)
	}
}

func TestSlopeModeDegenerate(t *testing.T) {
	if got := slopeMode([]float64{0.7}); got != 0.7 {
		t.Errorf("single slope: mode = %g, want 0.7", got)
	}
	if got := slopeMode([]float64{0.4, 0.4, 0.4}); got != 0.4 {
		t.Errorf("constant slopes: mode = %g, want 0.4", got)
	}
}

func TestFitSubset(t *testing.T) {
	slopes := make([]float64, 100)
	for i := range slopes {
		slopes[i] = 0.5 + float64(i%11-5)*0.01 // bulk near 0.5
	}
	slopes[0] = 3.0 // far outlier
	slopes[1] = -2.0

	mask := fitSubset(slopes, 0.25)
	marked := 0
	for _, in := range mask {
		if in {
			marked++
		}
	}
	if marked != 25 {
		t.Errorf("marked %d genes, want 25", marked)
	}
	if mask[0] || mask[1] {
		t.Error("outlier slopes marked for fitting; they should be farthest from the mode")
	}

	// Marked genes are never farther from the mode than unmarked ones.
	mode := slopeMode(slopes)
	maxIn, minOut := 0.0, math.Inf(1)
	for i, in := range mask {
		d := math.Abs(slopes[i] - mode)
		if in && d > maxIn {
			maxIn = d
		}
		if !in && d < minOut {
			minOut = d
		}
	}
	if maxIn > minOut {
		t.Errorf("marked distance %g exceeds unmarked distance %g", maxIn, minOut)
	}

	// PropToUse is a floor, not a cap, at the minimum group size.
	small := fitSubset(pseudoSlopes(20), 0.1)
	marked = 0
	for _, in := range small {
		if in {
			marked++
		}
	}
	if marked != minGroupGenes {
		t.Errorf("small set marked %d genes, want the %d floor", marked, minGroupGenes)
	}
}
