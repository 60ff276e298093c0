package causal

import (
	"fmt"
	"math"

	"causalboot/domain/core"
)

// ExposureType distinguishes how the treatment variable is measured
type ExposureType string

const (
	ExposureBinary     ExposureType = "binary"
	ExposureContinuous ExposureType = "continuous"
)

// Family selects the regression family for an exposure or outcome model
type Family string

const (
	FamilyLinear   Family = "linear"
	FamilyBinomial Family = "binomial"
)

// IntervalMode selects how the outcome fit builds its confidence interval
type IntervalMode string

const (
	// IntervalNaive uses the ordinary weighted-least-squares standard error.
	// Understates uncertainty because it treats weights as fixed.
	IntervalNaive IntervalMode = "naive"
	// IntervalRobust uses a heteroskedasticity-consistent sandwich standard
	// error. Still ignores propensity-model estimation uncertainty.
	IntervalRobust IntervalMode = "robust"
	// IntervalBootstrap defers the interval to the bootstrap driver, which is
	// the only mode that also captures propensity-model refitting uncertainty.
	IntervalBootstrap IntervalMode = "bootstrap"
)

// IntervalMethod selects how the bootstrap driver constructs its interval
type IntervalMethod string

const (
	MethodPercentile  IntervalMethod = "percentile"
	MethodStudentized IntervalMethod = "studentized"
)

// PointEstimateMode selects which number the bootstrap driver reports as the
// point estimate. The source literature is split on this, so both are exposed.
type PointEstimateMode string

const (
	PointApparent      PointEstimateMode = "apparent"
	PointReplicateMean PointEstimateMode = "replicate_mean"
)

// ReplicateStatus tracks a bootstrap replicate through its lifecycle
type ReplicateStatus string

const (
	ReplicatePending ReplicateStatus = "pending"
	ReplicateFitted  ReplicateStatus = "fitted"
	ReplicateFailed  ReplicateStatus = "failed"
)

// Formula is the explicit replacement for a formula object: it names the
// response and the ordered covariates of one regression model.
type Formula struct {
	Response   core.ColumnKey   `json:"response"`
	Covariates []core.ColumnKey `json:"covariates,omitempty"`
	Family     Family           `json:"family"`
}

// Validate checks the formula names distinct, non-empty columns.
func (f Formula) Validate() error {
	if f.Response == "" {
		return fmt.Errorf("formula: response column is required")
	}
	for _, c := range f.Covariates {
		if c == f.Response {
			return fmt.Errorf("formula: covariate %s is the response", c)
		}
	}
	switch f.Family {
	case FamilyLinear, FamilyBinomial:
	default:
		return fmt.Errorf("formula: unknown family %q", f.Family)
	}
	return nil
}

// WeightVector holds one non-negative weight per observation, aligned by
// position to the table it was computed from.
type WeightVector []float64

// Validate checks alignment and that every weight is finite and non-negative.
func (w WeightVector) Validate(rowCount int) error {
	if len(w) != rowCount {
		return fmt.Errorf("%w: %d weights for %d observations",
			core.ErrLengthMismatch, len(w), rowCount)
	}
	for i, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: weight %g at observation %d",
				core.ErrDegenerateWeights, v, i)
		}
	}
	return nil
}

// EstimateRecord is the output of one weighted outcome fit: the exposure
// coefficient with whatever uncertainty the interval mode provides.
type EstimateRecord struct {
	Replicate  int          `json:"replicate"` // 0 is the apparent sample
	Estimate   float64      `json:"estimate"`
	StdErr     float64      `json:"std_err"` // NaN when the mode has no closed form
	Lower      float64      `json:"lower"`
	Upper      float64      `json:"upper"`
	Mode       IntervalMode `json:"mode"`
	SampleSize int          `json:"sample_size"`
}

// ReplicateFailure records why one bootstrap replicate could not be fit
type ReplicateFailure struct {
	Replicate int    `json:"replicate"`
	Cause     string `json:"cause"`
}

// BootstrapResult is the aggregate output of a bootstrap run.
// INVARIANTS:
// - NUsed + NFailed equals the requested replicate count
// - Lower <= PointEstimate <= Upper does not necessarily hold for the
//   replicate-mean point mode; it always holds for the apparent mode with
//   the studentized method
type BootstrapResult struct {
	RunID            core.RunID         `json:"run_id"`
	PointEstimate    float64            `json:"point_estimate"`
	Lower            float64            `json:"lower"`
	Upper            float64            `json:"upper"`
	Alpha            float64            `json:"alpha"`
	Method           IntervalMethod     `json:"method"`
	PointMode        PointEstimateMode  `json:"point_mode"`
	ApparentEstimate float64            `json:"apparent_estimate"`
	NUsed            int                `json:"n_used"`
	NFailed          int                `json:"n_failed"`
	Failures         []ReplicateFailure `json:"failures,omitempty"`
}
