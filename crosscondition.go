package scnorm

import (
	"fmt"
	"math"
	"sort"
)

// minScalingGenes is the smallest common (or spike-in) gene set the
// cross-condition scaler accepts.
const minScalingGenes = 10

// scaleAcrossConditions reconciles the per-condition normalized scales.
// Over the gene set common to every condition's filter — restricted to the
// configured spike-ins when UseSpikes — each condition's median normalized
// value is compared to the reference (first) condition, and the ratio is
// folded into that condition's scale factors, so normalized = count/factor
// still holds after adjustment. Returns the per-condition adjustment
// applied to the factors. A single condition needs no reconciliation.
func scaleAcrossConditions(results []*conditionResult, cfg *Config) (map[string]float64, error) {
	scaling := make(map[string]float64, len(results))
	for _, r := range results {
		scaling[r.cd.name] = 1
	}
	if len(results) < 2 {
		return scaling, nil
	}

	var spikes map[string]struct{}
	if cfg.UseSpikes {
		spikes = make(map[string]struct{}, len(cfg.SpikeIns))
		for _, g := range cfg.SpikeIns {
			spikes[g] = struct{}{}
		}
	}

	// Genes retained by every condition's filter, optionally restricted to
	// the spike-in set.
	genes := results[0].cd.m.Genes
	inAll := make(map[int]int)
	for _, r := range results {
		for _, g := range r.cd.filtered {
			inAll[g]++
		}
	}
	var common []int
	for g, n := range inAll {
		if n != len(results) {
			continue
		}
		if spikes != nil {
			if _, ok := spikes[genes[g]]; !ok {
				continue
			}
		}
		common = append(common, g)
	}
	sort.Ints(common)

	if len(common) < minScalingGenes {
		what := "genes common to all conditions after filtering"
		if cfg.UseSpikes {
			what = "spike-in genes retained in all conditions"
		}
		return nil, fmt.Errorf("%w: %d %s, need at least %d to scale across conditions",
			ErrFilter, len(common), what, minScalingGenes)
	}

	stats := make([]float64, len(results))
	for i, r := range results {
		// Filtered-index lookup for this condition's rows.
		pos := make(map[int]int, len(r.cd.filtered))
		for fi, g := range r.cd.filtered {
			pos[g] = fi
		}

		nCols := len(r.cd.cols)
		vals := make([]float64, 0, len(common)*nCols)
		for _, g := range common {
			fi := pos[g]
			for jj := 0; jj < nCols; jj++ {
				v := r.norm[fi*nCols+jj]
				if v > 0 || cfg.UseZerosToScale {
					vals = append(vals, v)
				}
			}
		}

		if len(vals) == 0 {
			return nil, fmt.Errorf("%w: condition %q has no nonzero normalized values over the scaling gene set",
				ErrFilter, r.cd.name)
		}
		stats[i] = medianOf(vals)
		if stats[i] <= 0 || math.IsNaN(stats[i]) {
			return nil, fmt.Errorf("%w: condition %q has median normalized value %g over the scaling gene set; cannot align conditions (disable UseZerosToScale or supply more common genes)",
				ErrFilter, r.cd.name, stats[i])
		}
	}

	for i, r := range results {
		adj := stats[i] / stats[0]
		scaling[r.cd.name] = adj
		if adj == 1 {
			continue
		}
		for idx := range r.norm {
			r.norm[idx] /= adj
			r.factors[idx] *= adj
		}
	}
	return scaling, nil
}
