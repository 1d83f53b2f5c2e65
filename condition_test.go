package scnorm

import (
	"math"
	"testing"
)

func TestSplitConditionsOrderAndColumns(t *testing.T) {
	m := slopedMatrix(120, 6, 20, func(i int) float64 { return 0 })
	conds := splitConditions(m, []string{"B", "A", "B", "A", "B", "C"})

	if len(conds) != 3 {
		t.Fatalf("expected 3 conditions, got %d", len(conds))
	}
	// First-appearance order fixes the reference condition.
	wantNames := []string{"B", "A", "C"}
	wantCols := [][]int{{0, 2, 4}, {1, 3}, {5}}
	for i, cd := range conds {
		if cd.name != wantNames[i] {
			t.Errorf("condition %d = %q, want %q", i, cd.name, wantNames[i])
		}
		if cd.index != i {
			t.Errorf("condition %q index = %d, want %d", cd.name, cd.index, i)
		}
		if len(cd.cols) != len(wantCols[i]) {
			t.Fatalf("condition %q has cols %v, want %v", cd.name, cd.cols, wantCols[i])
		}
		for j, c := range cd.cols {
			if c != wantCols[i][j] {
				t.Errorf("condition %q cols = %v, want %v", cd.name, cd.cols, wantCols[i])
				break
			}
		}
	}
}

func TestComputeDepths(t *testing.T) {
	m, err := FromRows(
		[]string{"g1", "g2", "g3"},
		[]string{"s1", "s2"},
		[][]float64{{1, 10}, {2, 20}, {3, 30}},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cd := splitConditions(m, []string{"A", "A"})[0]
	cd.computeDepths()

	if cd.depth[0] != 6 || cd.depth[1] != 60 {
		t.Errorf("depths = %v, want [6 60]", cd.depth)
	}
	if math.Abs(cd.logDepth[1]-math.Log(60)) > 1e-12 {
		t.Errorf("logDepth[1] = %g, want log(60)", cd.logDepth[1])
	}
}

func TestFilterGenes(t *testing.T) {
	nSamples := 20
	genes := []string{"enough", "fewNonzero", "lowExpression"}
	rows := [][]float64{
		make([]float64, nSamples),
		make([]float64, nSamples),
		make([]float64, nSamples),
	}
	for j := 0; j < nSamples; j++ {
		rows[0][j] = 8 // nonzero everywhere, median 8
		if j < 5 {
			rows[1][j] = 50 // only 5 nonzero samples
		}
		rows[2][j] = 0.5 // nonzero everywhere but median below threshold
	}
	m, err := FromRows(genes, sampleNames(nSamples, "s"), rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cd := splitConditions(m, repeatLabel("A", nSamples))[0]
	cd.filterGenes(10, 1)

	if len(cd.filtered) != 1 || m.Genes[cd.filtered[0]] != "enough" {
		t.Fatalf("filtered = %v, want just \"enough\"", cd.filtered)
	}
	if len(cd.excluded) != 2 || cd.excluded[0] != "fewNonzero" || cd.excluded[1] != "lowExpression" {
		t.Errorf("excluded = %v, want [fewNonzero lowExpression]", cd.excluded)
	}
}

func TestBuildFitValsDithering(t *testing.T) {
	nSamples := 15
	rows := [][]float64{make([]float64, nSamples), make([]float64, nSamples)}
	for j := 0; j < nSamples; j++ {
		rows[0][j] = 4
		if j > 0 {
			rows[1][j] = 7
		}
	}
	m, err := FromRows([]string{"g1", "g2"}, sampleNames(nSamples, "s"), rows)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cd := splitConditions(m, repeatLabel("A", nSamples))[0]
	cd.filterGenes(10, 1)
	cd.buildFitVals(true, 42)

	for fi := range cd.filtered {
		for jj := 0; jj < nSamples; jj++ {
			raw := cd.raw(fi, jj)
			v := cd.fitVal(fi, jj)
			switch {
			case raw == 0 && v != 0:
				t.Errorf("zero count dithered to %g", v)
			case raw > 0 && v == raw:
				t.Errorf("nonzero count %g not dithered", raw)
			case raw > 0 && math.Abs(v-raw) > 0.5:
				t.Errorf("dither moved %g to %g, more than ±0.5", raw, v)
			}
		}
	}

	// Same seed reproduces the stream exactly.
	prev := make([]float64, len(cd.fitVals))
	copy(prev, cd.fitVals)
	cd.buildFitVals(true, 42)
	for i := range prev {
		if prev[i] != cd.fitVals[i] {
			t.Fatalf("dither not reproducible at %d: %g vs %g", i, prev[i], cd.fitVals[i])
		}
	}
}
