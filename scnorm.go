package scnorm

import (
	"fmt"
	"math"
	"runtime"
	"sync"
)

// Config controls normalization behavior.
// Start with [DefaultConfig] and override the fields you need.
type Config struct {
	// FilterCellNum is the minimum number of nonzero samples a gene needs,
	// per condition, to be normalized in that condition. Must be >= 10
	// (quantile regression below that is unstable). Default: 10.
	FilterCellNum int

	// FilterExpression is the minimum median nonzero expression a gene
	// needs, per condition, to pass the filter. Default: 1.
	FilterExpression float64

	// Thresh is the residual-slope threshold the K search drives the
	// normalized data under. Default: 0.1.
	Thresh float64

	// K optionally fixes the group count per condition, skipping the K
	// search. When set it must hold one value per condition, in order of
	// first appearance. nil searches. Default: nil.
	K []int

	// PropToUse is the fraction of filtered genes, nearest the mode of the
	// slope distribution, pooled into the group-level fits. Smaller values
	// fit faster; all genes are still normalized. Default: 0.25.
	PropToUse float64

	// Tau is the regression quantile for every fit. Default: 0.5 (median).
	Tau float64

	// DitherCounts jitters nonzero counts before fitting to break the ties
	// common among low integer counts. Seeded by Seed; reproducible.
	// Default: false.
	DitherCounts bool

	// Seed drives the dither stream. Only used when DitherCounts is set.
	Seed uint64

	// WithinSample optionally supplies one positive correction divisor per
	// gene (e.g. from a gene-feature model), applied to the counts before
	// any fitting. nil applies no correction. Default: nil.
	WithinSample []float64

	// UseSpikes restricts cross-condition scaling to the SpikeIns gene set.
	// Default: false.
	UseSpikes bool

	// SpikeIns names the spike-in control genes. Only used with UseSpikes.
	SpikeIns []string

	// UseZerosToScale includes zero counts in the cross-condition scaling
	// statistic. Default: false (nonzero values only).
	UseZerosToScale bool

	// MaxK bounds the K search. Also clamped so every group keeps at least
	// 10 genes. Default: 25.
	MaxK int

	// SlopeQuantile is the within-group quantile of absolute residual gene
	// slopes compared against Thresh when evaluating a K. 1 compares the
	// worst gene. Default: 0.95.
	SlopeQuantile float64

	// GroupTolerance is the fraction of groups allowed to exceed Thresh
	// while K is still deemed sufficient. Default: 0 (every group must pass).
	GroupTolerance float64

	// ReportScaleFactors includes the genes × samples scale-factor matrix
	// in the result. Default: false.
	ReportScaleFactors bool

	// Workers controls the number of goroutines for the per-gene and
	// per-group fitting stages. 0 means runtime.NumCPU(). Default: 0.
	Workers int
}

// DefaultConfig returns a Config with reasonable defaults.
func DefaultConfig() Config {
	return Config{
		FilterCellNum:    10,
		FilterExpression: 1,
		Thresh:           0.1,
		PropToUse:        0.25,
		Tau:              0.5,
		MaxK:             25,
		SlopeQuantile:    0.95,
	}
}

// applyDefaults fills in zero-valued config fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.FilterCellNum == 0 {
		cfg.FilterCellNum = 10
	}
	if cfg.FilterExpression == 0 {
		cfg.FilterExpression = 1
	}
	if cfg.Thresh == 0 {
		cfg.Thresh = 0.1
	}
	if cfg.PropToUse == 0 {
		cfg.PropToUse = 0.25
	}
	if cfg.Tau == 0 {
		cfg.Tau = 0.5
	}
	if cfg.MaxK == 0 {
		cfg.MaxK = 25
	}
	if cfg.SlopeQuantile == 0 {
		cfg.SlopeQuantile = 0.95
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.NumCPU()
	}
}

// validateConfig checks that cfg fields are valid and returns a descriptive error if not.
func validateConfig(cfg *Config) error {
	if cfg.FilterCellNum < minFilterCellNum {
		return fmt.Errorf("%w: FilterCellNum must be >= %d (the stability floor for quantile regression), got %d",
			ErrConfig, minFilterCellNum, cfg.FilterCellNum)
	}
	if cfg.FilterExpression < 0 {
		return fmt.Errorf("%w: FilterExpression must be >= 0, got %g", ErrConfig, cfg.FilterExpression)
	}
	if cfg.Thresh <= 0 {
		return fmt.Errorf("%w: Thresh must be > 0, got %g", ErrConfig, cfg.Thresh)
	}
	if cfg.Tau <= 0 || cfg.Tau >= 1 {
		return fmt.Errorf("%w: Tau must be in (0, 1), got %g", ErrConfig, cfg.Tau)
	}
	if cfg.PropToUse <= 0 || cfg.PropToUse > 1 {
		return fmt.Errorf("%w: PropToUse must be in (0, 1], got %g", ErrConfig, cfg.PropToUse)
	}
	if cfg.MaxK < 1 {
		return fmt.Errorf("%w: MaxK must be >= 1, got %d", ErrConfig, cfg.MaxK)
	}
	if cfg.SlopeQuantile <= 0 || cfg.SlopeQuantile > 1 {
		return fmt.Errorf("%w: SlopeQuantile must be in (0, 1], got %g", ErrConfig, cfg.SlopeQuantile)
	}
	if cfg.GroupTolerance < 0 || cfg.GroupTolerance >= 1 {
		return fmt.Errorf("%w: GroupTolerance must be in [0, 1), got %g", ErrConfig, cfg.GroupTolerance)
	}
	for i, k := range cfg.K {
		if k < 1 {
			return fmt.Errorf("%w: K[%d] must be >= 1, got %d", ErrConfig, i, k)
		}
	}
	if cfg.UseSpikes && len(cfg.SpikeIns) == 0 {
		return fmt.Errorf("%w: UseSpikes is set but SpikeIns is empty", ErrConfig)
	}
	if cfg.Workers < 0 {
		return fmt.Errorf("%w: Workers must be >= 0, got %d", ErrConfig, cfg.Workers)
	}
	return nil
}

// Result contains the output of one normalization run.
type Result struct {
	// NormalizedCounts holds the depth-corrected values, aligned to the
	// input's gene and sample order. Cells of genes excluded by a
	// condition's filter are NaN in that condition's columns; genes
	// excluded everywhere are NaN across the row.
	NormalizedCounts *Matrix

	// ScaleFactors holds the strictly positive per-gene per-sample factors
	// raw counts were divided by (cross-condition adjustment included).
	// nil unless Config.ReportScaleFactors; NaN where NormalizedCounts is.
	ScaleFactors *Matrix

	// ChosenK maps each condition to the group count it was normalized with.
	ChosenK map[string]int

	// ExcludedGenes maps each condition to the genes its filter excluded,
	// in input order.
	ExcludedGenes map[string][]string

	// ConditionScaling maps each condition to the cross-condition
	// adjustment folded into its scale factors (1 for the reference).
	ConditionScaling map[string]float64

	// Diagnostics maps each condition to the residual-slope statistics of
	// every K the search attempted, in order.
	Diagnostics map[string][]KDiagnostic

	// Warnings collects the non-fatal diagnostics that fired.
	Warnings []Warning
}

// Normalize removes the gene-specific depth dependence from a count matrix.
// conditions holds one label per sample column; each condition is filtered,
// fitted and normalized independently (in parallel), then the conditions
// are aligned by a single multiplicative adjustment each. The input matrix
// is never mutated. Returns an error before any fitting if the input or
// configuration is invalid.
func Normalize(m *Matrix, conditions []string, cfg Config) (*Result, error) {
	applyDefaults(&cfg)
	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}
	if err := validateData(m, conditions); err != nil {
		return nil, err
	}

	warnings := dataWarnings(m)

	work := m
	if cfg.WithinSample != nil {
		var err error
		if work, err = applyWithinSample(m, cfg.WithinSample); err != nil {
			return nil, err
		}
	}

	conds := splitConditions(work, conditions)
	if cfg.K != nil && len(cfg.K) != len(conds) {
		return nil, fmt.Errorf("%w: K has %d entries for %d conditions; supply one K per condition or leave it nil",
			ErrConfig, len(cfg.K), len(conds))
	}

	results := make([]*conditionResult, len(conds))
	errs := make([]error, len(conds))
	var wg sync.WaitGroup
	for i, cd := range conds {
		fixedK := 0
		if cfg.K != nil {
			fixedK = cfg.K[i]
		}
		wg.Add(1)
		go func(i int, cd *conditionData, fixedK int) {
			defer wg.Done()
			results[i], errs[i] = runCondition(cd, &cfg, fixedK)
		}(i, cd, fixedK)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	scaling, err := scaleAcrossConditions(results, &cfg)
	if err != nil {
		return nil, err
	}

	return assembleResult(m, results, scaling, warnings, &cfg), nil
}

// applyWithinSample divides each gene's counts by its correction factor,
// returning a fresh working matrix.
func applyWithinSample(m *Matrix, factors []float64) (*Matrix, error) {
	if len(factors) != m.NumGenes() {
		return nil, fmt.Errorf("%w: WithinSample has %d entries for %d genes",
			ErrConfig, len(factors), m.NumGenes())
	}
	for i, f := range factors {
		if f <= 0 || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, fmt.Errorf("%w: WithinSample[%d] = %g; correction factors must be positive and finite",
				ErrConfig, i, f)
		}
	}

	work := m.clone()
	nSamples := work.NumSamples()
	for i, f := range factors {
		row := work.Data[i*nSamples : (i+1)*nSamples]
		for j := range row {
			row[j] /= f
		}
	}
	return work, nil
}

// runCondition is one condition's full pipeline: depths, filter, slope
// estimation, K selection.
func runCondition(cd *conditionData, cfg *Config, fixedK int) (*conditionResult, error) {
	cd.computeDepths()
	cd.filterGenes(cfg.FilterCellNum, cfg.FilterExpression)
	if len(cd.filtered) < minFilteredGenes {
		return nil, fmt.Errorf("%w: condition %q has %d genes passing the filter, need at least %d; lower FilterCellNum or FilterExpression",
			ErrFilter, cd.name, len(cd.filtered), minFilteredGenes)
	}

	cd.buildFitVals(cfg.DitherCounts, cfg.Seed)

	slopes, err := computeSlopes(cd, cd.fitVals, cfg.Tau, cfg.FilterCellNum, cfg.Workers)
	if err != nil {
		return nil, err
	}

	return selectK(cd, slopes, fitSubset(slopes, cfg.PropToUse), cfg, fixedK)
}

// assembleResult scatters the per-condition outputs back into full
// genes × samples matrices in the input's original order.
func assembleResult(m *Matrix, results []*conditionResult, scaling map[string]float64, warnings []Warning, cfg *Config) *Result {
	res := &Result{
		NormalizedCounts: nanMatrix(m.Genes, m.Samples),
		ChosenK:          make(map[string]int, len(results)),
		ExcludedGenes:    make(map[string][]string, len(results)),
		ConditionScaling: scaling,
		Diagnostics:      make(map[string][]KDiagnostic, len(results)),
		Warnings:         warnings,
	}
	if cfg.ReportScaleFactors {
		res.ScaleFactors = nanMatrix(m.Genes, m.Samples)
	}

	nSamples := m.NumSamples()
	for _, r := range results {
		nCols := len(r.cd.cols)
		for fi, g := range r.cd.filtered {
			for jj, j := range r.cd.cols {
				res.NormalizedCounts.Data[g*nSamples+j] = r.norm[fi*nCols+jj]
				if res.ScaleFactors != nil {
					res.ScaleFactors.Data[g*nSamples+j] = r.factors[fi*nCols+jj]
				}
			}
		}
		res.ChosenK[r.cd.name] = r.chosenK
		res.ExcludedGenes[r.cd.name] = r.cd.excluded
		res.Diagnostics[r.cd.name] = r.diags
		res.Warnings = append(res.Warnings, r.warnings...)
	}
	return res
}
