package scnorm

import (
	"fmt"
	"math"
)

const (
	// minFilterCellNum is the stability floor for FilterCellNum: quantile
	// regression on fewer than 10 nonzero observations is unreliable.
	minFilterCellNum = 10

	// minFilteredGenes is the smallest per-condition filtered gene set the
	// grouping and fitting stages accept.
	minFilteredGenes = 100

	// sparsityWarnFraction is the overall zero fraction above which a
	// high-sparsity warning fires.
	sparsityWarnFraction = 0.8

	// lowDetectionGenes is the per-sample nonzero gene count at or below
	// which a low-detection warning fires.
	lowDetectionGenes = 100
)

// validateData runs every fail-fast input check before any fitting begins.
func validateData(m *Matrix, conditions []string) error {
	if m == nil {
		return fmt.Errorf("%w: nil count matrix", ErrValidation)
	}
	if len(m.Genes) == 0 || len(m.Samples) == 0 {
		return fmt.Errorf("%w: empty count matrix (%d genes, %d samples)",
			ErrValidation, len(m.Genes), len(m.Samples))
	}
	if len(m.Data) != len(m.Genes)*len(m.Samples) {
		return fmt.Errorf("%w: data length %d does not match %d genes × %d samples",
			ErrValidation, len(m.Data), len(m.Genes), len(m.Samples))
	}
	if len(conditions) != len(m.Samples) {
		return fmt.Errorf("%w: %d condition labels for %d samples; supply exactly one label per column",
			ErrValidation, len(conditions), len(m.Samples))
	}
	for j, c := range conditions {
		if c == "" {
			return fmt.Errorf("%w: sample %d (%q) has no condition label",
				ErrValidation, j, m.Samples[j])
		}
	}

	seenGene := make(map[string]struct{}, len(m.Genes))
	for i, g := range m.Genes {
		if g == "" {
			return fmt.Errorf("%w: gene %d has no identifier; row names are required", ErrValidation, i)
		}
		if _, dup := seenGene[g]; dup {
			return fmt.Errorf("%w: duplicate gene identifier %q", ErrValidation, g)
		}
		seenGene[g] = struct{}{}
	}
	seenSample := make(map[string]struct{}, len(m.Samples))
	for j, s := range m.Samples {
		if s == "" {
			return fmt.Errorf("%w: sample %d has no identifier; column names are required", ErrValidation, j)
		}
		if _, dup := seenSample[s]; dup {
			return fmt.Errorf("%w: duplicate sample identifier %q", ErrValidation, s)
		}
		seenSample[s] = struct{}{}
	}

	for i := range m.Genes {
		row := m.Row(i)
		for j, v := range row {
			if math.IsNaN(v) {
				return fmt.Errorf("%w: missing value for gene %q in sample %q; counts must be complete",
					ErrValidation, m.Genes[i], m.Samples[j])
			}
			if math.IsInf(v, 0) || v < 0 {
				return fmt.Errorf("%w: count %g for gene %q in sample %q; counts must be finite and non-negative",
					ErrValidation, v, m.Genes[i], m.Samples[j])
			}
		}
	}

	nGenes, nSamples := m.NumGenes(), m.NumSamples()
	for j := 0; j < nSamples; j++ {
		allZero := true
		for i := 0; i < nGenes; i++ {
			if m.At(i, j) != 0 {
				allZero = false
				break
			}
		}
		if allZero {
			return fmt.Errorf("%w: sample %q has no counts; remove empty columns before normalizing",
				ErrValidation, m.Samples[j])
		}
	}

	return nil
}

// dataWarnings collects non-fatal quality diagnostics for the input matrix.
func dataWarnings(m *Matrix) []Warning {
	var warnings []Warning

	zeros := 0
	for _, v := range m.Data {
		if v == 0 {
			zeros++
		}
	}
	if frac := float64(zeros) / float64(len(m.Data)); frac > sparsityWarnFraction {
		warnings = append(warnings, Warning{
			Code: WarnHighSparsity,
			Message: fmt.Sprintf("%.1f%% of counts are zero; normalization may be unstable on very sparse data",
				frac*100),
		})
	}

	nGenes, nSamples := m.NumGenes(), m.NumSamples()
	for j := 0; j < nSamples; j++ {
		nonzero := 0
		for i := 0; i < nGenes; i++ {
			if m.At(i, j) != 0 {
				nonzero++
			}
		}
		if nonzero <= lowDetectionGenes {
			warnings = append(warnings, Warning{
				Code: WarnLowDetection,
				Message: fmt.Sprintf("sample %q has only %d nonzero genes",
					m.Samples[j], nonzero),
			})
		}
	}

	return warnings
}
