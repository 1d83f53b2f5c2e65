// Package scnorm normalizes single-cell sequencing count matrices.
//
// Single-cell counts carry a gene-specific, non-linear dependence on total
// sequencing depth that a single per-sample scale factor cannot remove: the
// count/depth relationship differs by expression level and is distorted by
// the high proportion of zero counts. scnorm estimates, per gene, how count
// scales with depth (quantile regression of log count on log depth),
// partitions genes into K groups with homogeneous depth dependence, fits
// per-sample scale factors within each group, and searches over K until the
// residual depth dependence of the normalized data falls below a threshold.
// With multiple biological conditions, each condition is normalized
// independently and a single multiplicative adjustment per condition aligns
// the conditions afterwards.
//
// Basic usage:
//
//	m, err := scnorm.FromRows(genes, samples, counts)
//	cfg := scnorm.DefaultConfig()
//	result, err := scnorm.Normalize(m, conditions, cfg)
//	// result.NormalizedCounts is the depth-corrected matrix
//	// result.ChosenK[cond] is the number of gene groups used per condition
//	// result.ExcludedGenes[cond] lists genes that failed filtering per condition
//
// For containers that carry per-column metadata:
//
//	result, err := scnorm.NormalizeAnnotated(annotated, cfg)
//
// # Determinism
//
// The pipeline is deterministic. Dithering (Config.DitherCounts) is the only
// source of randomness and is driven by an explicit PCG stream seeded from
// Config.Seed, so repeated runs with the same seed and inputs are
// bit-reproducible regardless of Config.Workers.
package scnorm
