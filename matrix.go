package scnorm

import (
	"fmt"
	"math"
)

// Matrix is a genes × samples expression matrix with unique row and column
// identifiers. Data is flat row-major: Data[i*len(Samples)+j] is the value
// for gene i in sample j. The pipeline never mutates an input Matrix; every
// stage allocates new storage.
type Matrix struct {
	Genes   []string
	Samples []string
	Data    []float64
}

// NewMatrix builds a Matrix over a flat row-major data slice.
// The slice is used directly, not copied.
func NewMatrix(genes, samples []string, data []float64) (*Matrix, error) {
	if len(data) != len(genes)*len(samples) {
		return nil, fmt.Errorf("%w: data length %d does not match %d genes × %d samples",
			ErrValidation, len(data), len(genes), len(samples))
	}
	return &Matrix{Genes: genes, Samples: samples, Data: data}, nil
}

// NumGenes returns the number of rows.
func (m *Matrix) NumGenes() int { return len(m.Genes) }

// NumSamples returns the number of columns.
func (m *Matrix) NumSamples() int { return len(m.Samples) }

// At returns the value for gene i in sample j.
func (m *Matrix) At(i, j int) float64 {
	return m.Data[i*len(m.Samples)+j]
}

// Row returns the row for gene i as a view into the backing slice.
func (m *Matrix) Row(i int) []float64 {
	n := len(m.Samples)
	return m.Data[i*n : (i+1)*n]
}

// clone returns a deep copy of m.
func (m *Matrix) clone() *Matrix {
	data := make([]float64, len(m.Data))
	copy(data, m.Data)
	return &Matrix{Genes: m.Genes, Samples: m.Samples, Data: data}
}

// nanMatrix returns a matrix of the given shape with every cell NaN.
// NaN marks (gene, sample) cells left undefined by per-condition filtering.
func nanMatrix(genes, samples []string) *Matrix {
	data := make([]float64, len(genes)*len(samples))
	for i := range data {
		data[i] = math.NaN()
	}
	return &Matrix{Genes: genes, Samples: samples, Data: data}
}
