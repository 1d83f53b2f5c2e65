package scnorm

import "fmt"

// FromRows builds a Matrix from per-gene rows. Every row must have one value
// per sample. The rows are copied into a fresh flat backing slice.
func FromRows(genes, samples []string, rows [][]float64) (*Matrix, error) {
	if len(rows) != len(genes) {
		return nil, fmt.Errorf("%w: %d rows for %d genes", ErrValidation, len(rows), len(genes))
	}
	data := make([]float64, len(genes)*len(samples))
	for i, row := range rows {
		if len(row) != len(samples) {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d",
				ErrValidation, i, len(row), len(samples))
		}
		copy(data[i*len(samples):], row)
	}
	return &Matrix{Genes: genes, Samples: samples, Data: data}, nil
}

// Annotated is a count container that carries per-column metadata alongside
// the counts, in the shape richer single-cell containers use. ColData maps a
// metadata field name to one value per sample; ConditionKey names the field
// holding the condition label. NormalizeAnnotated adapts this shape into the
// plain Matrix + condition-labels contract before any core logic runs.
type Annotated struct {
	Genes        []string
	Samples      []string
	Rows         [][]float64
	ColData      map[string][]string
	ConditionKey string
}

// NormalizeAnnotated adapts an annotated container into the plain matrix +
// condition-labels contract and runs Normalize on it.
func NormalizeAnnotated(a *Annotated, cfg Config) (*Result, error) {
	m, conditions, err := a.countData()
	if err != nil {
		return nil, err
	}
	return Normalize(m, conditions, cfg)
}

// countData extracts the plain count matrix and the condition label vector.
func (a *Annotated) countData() (*Matrix, []string, error) {
	if a == nil {
		return nil, nil, fmt.Errorf("%w: nil annotated container", ErrValidation)
	}
	conditions, ok := a.ColData[a.ConditionKey]
	if !ok {
		return nil, nil, fmt.Errorf("%w: condition field %q not present in column metadata",
			ErrValidation, a.ConditionKey)
	}
	m, err := FromRows(a.Genes, a.Samples, a.Rows)
	if err != nil {
		return nil, nil, err
	}
	return m, conditions, nil
}
