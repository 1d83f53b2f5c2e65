package scnorm

import "math"

// conditionData is one condition's view of the input: its columns, their
// sequencing depths, and the genes that survive the condition-local filter.
// filtered holds gene row indices in input order; fitVals is the flat
// filtered-genes × condition-columns snapshot all fitting reads from.
type conditionData struct {
	name  string
	index int
	cols  []int

	depth       []float64
	logDepth    []float64
	medLogDepth float64

	filtered []int
	excluded []string

	m       *Matrix
	fitVals []float64
}

// splitConditions partitions columns by condition label. Conditions are
// ordered by first appearance, which also fixes the reference condition for
// cross-condition scaling.
func splitConditions(m *Matrix, conditions []string) []*conditionData {
	byName := make(map[string]*conditionData)
	var out []*conditionData
	for j, c := range conditions {
		cd, ok := byName[c]
		if !ok {
			cd = &conditionData{name: c, index: len(out), m: m}
			byName[c] = cd
			out = append(out, cd)
		}
		cd.cols = append(cd.cols, j)
	}
	return out
}

// computeDepths fills per-sample sequencing depths (total counts over all
// genes, not only filter survivors, so filtering cannot shift a depth) and
// their log transforms.
func (cd *conditionData) computeDepths() {
	nGenes := cd.m.NumGenes()
	nSamples := cd.m.NumSamples()

	cd.depth = make([]float64, len(cd.cols))
	cd.logDepth = make([]float64, len(cd.cols))
	for jj, j := range cd.cols {
		var sum float64
		for i := 0; i < nGenes; i++ {
			sum += cd.m.Data[i*nSamples+j]
		}
		cd.depth[jj] = sum
		cd.logDepth[jj] = math.Log(sum)
	}
	cd.medLogDepth = medianOf(cd.logDepth)
}

// filterGenes applies the condition-local gene filter: at least cellNum
// nonzero samples and a median nonzero expression of at least expr.
// Excluded genes are reported, not silently dropped.
func (cd *conditionData) filterGenes(cellNum int, expr float64) {
	nSamples := cd.m.NumSamples()
	nz := make([]float64, 0, len(cd.cols))

	for i, gene := range cd.m.Genes {
		nz = nz[:0]
		for _, j := range cd.cols {
			if v := cd.m.Data[i*nSamples+j]; v > 0 {
				nz = append(nz, v)
			}
		}
		if len(nz) >= cellNum && medianOf(nz) >= expr {
			cd.filtered = append(cd.filtered, i)
		} else {
			cd.excluded = append(cd.excluded, gene)
		}
	}
}

// buildFitVals snapshots the working values every fit in this condition
// reads: raw counts of the filtered genes, jittered when dithering is on.
// Built sequentially so the jitter stream is scheduling-independent.
func (cd *conditionData) buildFitVals(dither bool, seed uint64) {
	nSamples := cd.m.NumSamples()
	nCols := len(cd.cols)

	cd.fitVals = make([]float64, len(cd.filtered)*nCols)
	for fi, g := range cd.filtered {
		for jj, j := range cd.cols {
			cd.fitVals[fi*nCols+jj] = cd.m.Data[g*nSamples+j]
		}
	}
	if dither {
		ditherNonzero(cd.fitVals, seed, uint64(cd.index)+1)
	}
}

// raw returns the undithered count of filtered gene fi in condition column jj.
func (cd *conditionData) raw(fi, jj int) float64 {
	return cd.m.Data[cd.filtered[fi]*cd.m.NumSamples()+cd.cols[jj]]
}

// fitVal returns the working (possibly dithered) value of filtered gene fi
// in condition column jj.
func (cd *conditionData) fitVal(fi, jj int) float64 {
	return cd.fitVals[fi*len(cd.cols)+jj]
}
