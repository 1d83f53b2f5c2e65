package scnorm

import (
	"fmt"
	"math"
)

// geneNames returns n unique gene identifiers.
func geneNames(n int) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("gene%04d", i)
	}
	return names
}

// sampleNames returns n unique sample identifiers with the given prefix.
func sampleNames(n int, prefix string) []string {
	names := make([]string, n)
	for i := range names {
		names[i] = fmt.Sprintf("%s%03d", prefix, i)
	}
	return names
}

// depthMults returns n depth multipliers spread geometrically over
// [0.5, 2.0], giving samples a 4-fold sequencing depth range.
func depthMults(n int) []float64 {
	t := make([]float64, n)
	for j := range t {
		t[j] = 0.5 * math.Pow(4, float64(j)/float64(n-1))
	}
	return t
}

// slopedRows builds count rows where gene i's counts follow
// round(base · t_j^slope(i)): genes whose observed count scales with depth
// at a gene-specific, known rate.
func slopedRows(nGenes int, mults []float64, base float64, slopeAt func(i int) float64) [][]float64 {
	rows := make([][]float64, nGenes)
	for i := range rows {
		s := slopeAt(i)
		row := make([]float64, len(mults))
		for j, tm := range mults {
			row[j] = math.Round(base * math.Pow(tm, s))
		}
		rows[i] = row
	}
	return rows
}

// slopedMatrix is slopedRows packed into a Matrix with generated names.
func slopedMatrix(nGenes, nSamples int, base float64, slopeAt func(i int) float64) *Matrix {
	m, err := FromRows(geneNames(nGenes), sampleNames(nSamples, "cell"), slopedRows(nGenes, depthMults(nSamples), base, slopeAt))
	if err != nil {
		panic(err)
	}
	return m
}

// repeatLabel returns n copies of label.
func repeatLabel(label string, n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = label
	}
	return out
}

// hasWarning reports whether warnings contains a warning with the code.
func hasWarning(warnings []Warning, code WarningCode) bool {
	for _, w := range warnings {
		if w.Code == code {
			return true
		}
	}
	return false
}
