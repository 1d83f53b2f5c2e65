package scnorm

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// medianOf returns the empirical median of vals without mutating it.
// vals must be non-empty.
func medianOf(vals []float64) float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	return stat.Quantile(0.5, stat.Empirical, s, nil)
}

// quantileOf returns the empirical p-quantile of vals without mutating it.
// vals must be non-empty.
func quantileOf(vals []float64, p float64) float64 {
	s := make([]float64, len(vals))
	copy(s, vals)
	sort.Float64s(s)
	return stat.Quantile(p, stat.Empirical, s, nil)
}
