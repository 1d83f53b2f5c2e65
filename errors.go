package scnorm

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Every error returned by the package wraps one of
// these, so callers can classify failures with errors.Is.
var (
	// ErrConfig reports bad or inconsistent configuration parameters.
	ErrConfig = errors.New("scnorm: invalid configuration")

	// ErrValidation reports malformed input data. Validation runs before
	// any fitting, so no partial work is performed.
	ErrValidation = errors.New("scnorm: invalid input data")

	// ErrFilter reports that too few genes survive filtering (or remain
	// common across conditions) for regression to be reliable.
	ErrFilter = errors.New("scnorm: insufficient genes")
)

// WarningCode identifies a non-fatal diagnostic.
type WarningCode string

const (
	// WarnHighSparsity fires when more than 80% of all counts are zero.
	WarnHighSparsity WarningCode = "high_sparsity"

	// WarnLowDetection fires for samples with 100 or fewer nonzero genes.
	WarnLowDetection WarningCode = "low_detection"

	// WarnKNotConverged fires when the K search exhausts its bound without
	// meeting the sufficiency threshold; the last attempted K is used.
	WarnKNotConverged WarningCode = "k_not_converged"

	// WarnKInsufficient fires when a caller-fixed K fails the sufficiency
	// evaluation.
	WarnKInsufficient WarningCode = "k_insufficient"
)

// Warning is a non-fatal diagnostic attached to a Result.
type Warning struct {
	Code      WarningCode
	Condition string // empty for dataset-wide diagnostics
	Message   string
}

func (w Warning) String() string {
	if w.Condition == "" {
		return fmt.Sprintf("%s: %s", w.Code, w.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", w.Code, w.Condition, w.Message)
}
