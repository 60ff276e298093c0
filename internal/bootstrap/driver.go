// Package bootstrap orchestrates resampled refits of a causal estimate and
// turns the replicate distribution into a confidence interval. Replicate
// fitting is embarrassingly parallel; each replicate owns its resampled rows
// and RNG stream, and results are aggregated only after every replicate has
// returned. Runs are all-or-nothing: a cancelled or aborted run yields no
// interval.
package bootstrap

import (
	"context"
	"fmt"
	"math"
	"runtime"
	"sort"

	"github.com/montanaflynn/stats"
	"golang.org/x/sync/errgroup"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
	"causalboot/internal"
	"causalboot/ports"
)

// RefitFunc refits the whole estimation pipeline on one replicate: exposure
// model, weights, weighted outcome model. Replicate 0 is the apparent sample.
type RefitFunc func(ctx context.Context, replicate int, table *dataset.Table) (causal.EstimateRecord, error)

// Options configures one bootstrap run
type Options struct {
	Replicates int                      `json:"replicates"`
	Alpha      float64                  `json:"alpha"`
	Method     causal.IntervalMethod    `json:"method"`
	PointMode  causal.PointEstimateMode `json:"point_mode"`
	// FailureThreshold is the replicate failure fraction above which the run
	// aborts. Systematic failure indicates a misspecified exposure model,
	// not resampling noise.
	FailureThreshold float64 `json:"failure_threshold"`
	Workers          int     `json:"workers"` // 0 means GOMAXPROCS
}

// DefaultOptions returns the conventional run configuration: 1000 replicates,
// 95% studentized interval, apparent point estimate, 10% failure threshold.
func DefaultOptions() Options {
	return Options{
		Replicates:       1000,
		Alpha:            0.05,
		Method:           causal.MethodStudentized,
		PointMode:        causal.PointApparent,
		FailureThreshold: 0.10,
	}
}

// Driver runs the bootstrap: resample, refit in parallel, build the interval
type Driver struct {
	resampler ports.ResamplerPort
	rng       ports.RNGPort
	log       *internal.Logger
}

// NewDriver creates a driver over the given resampling collaborators
func NewDriver(resampler ports.ResamplerPort, rng ports.RNGPort) *Driver {
	return &Driver{
		resampler: resampler,
		rng:       rng,
		log:       internal.DefaultLogger,
	}
}

type replicateOutcome struct {
	status causal.ReplicateStatus
	record causal.EstimateRecord
	err    error
}

// Estimate runs the full bootstrap procedure. The apparent replicate is fit
// first and its failure fails the run outright, since without it there is
// nothing to center a studentized interval on and no bias diagnostic.
func (d *Driver) Estimate(ctx context.Context, table *dataset.Table, refit RefitFunc, opts Options) (*causal.BootstrapResult, error) {
	if err := validateOptions(&opts); err != nil {
		return nil, err
	}

	apparent, err := refit(ctx, 0, d.resampler.Apparent(table))
	if err != nil {
		return nil, fmt.Errorf("apparent sample fit: %w", err)
	}
	apparent.Replicate = 0

	outcomes := make([]replicateOutcome, opts.Replicates)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)

	for r := 1; r <= opts.Replicates; r++ {
		r := r // per-iteration copy; required while go.mod targets go < 1.22
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			resampled, err := d.resampler.Resample(table, d.rng.Stream(r))
			if err != nil {
				return err // resampling itself should never fail; abort
			}
			rec, err := refit(gctx, r, resampled)
			slot := &outcomes[r-1]
			if err != nil {
				slot.status = causal.ReplicateFailed
				slot.err = err
				return nil // single-replicate fit failures are recorded, not fatal
			}
			rec.Replicate = r
			slot.status = causal.ReplicateFitted
			slot.record = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Cancelled or aborted: partial results are discarded wholesale.
		return nil, err
	}

	estimates := make([]float64, 0, opts.Replicates)
	records := make([]causal.EstimateRecord, 0, opts.Replicates)
	failures := make([]causal.ReplicateFailure, 0)
	for i, out := range outcomes {
		switch out.status {
		case causal.ReplicateFitted:
			estimates = append(estimates, out.record.Estimate)
			records = append(records, out.record)
		case causal.ReplicateFailed:
			failures = append(failures, causal.ReplicateFailure{
				Replicate: i + 1,
				Cause:     out.err.Error(),
			})
		}
	}

	failedFraction := float64(len(failures)) / float64(opts.Replicates)
	if failedFraction > opts.FailureThreshold {
		d.log.Error("bootstrap aborted: %d of %d replicates failed (threshold %.0f%%)",
			len(failures), opts.Replicates, opts.FailureThreshold*100)
		return nil, fmt.Errorf("%w: %d of %d replicates failed: %v",
			core.ErrFailureThreshold, len(failures), opts.Replicates, failureCauses(failures))
	}
	if len(failures) > 0 {
		d.log.Warn("bootstrap: %d of %d replicates failed, excluded from interval",
			len(failures), opts.Replicates)
	}
	if len(estimates) == 0 {
		return nil, fmt.Errorf("%w: no surviving replicates", core.ErrBootstrap)
	}

	var lower, upper float64
	switch opts.Method {
	case causal.MethodStudentized:
		lower, upper, err = studentizedInterval(apparent, records, opts.Alpha)
	default:
		lower, upper, err = percentileInterval(estimates, opts.Alpha)
	}
	if err != nil {
		return nil, err
	}

	point := apparent.Estimate
	if opts.PointMode == causal.PointReplicateMean {
		point, _ = stats.Mean(estimates)
	}

	return &causal.BootstrapResult{
		RunID:            core.RunID(core.NewID()),
		PointEstimate:    point,
		Lower:            lower,
		Upper:            upper,
		Alpha:            opts.Alpha,
		Method:           opts.Method,
		PointMode:        opts.PointMode,
		ApparentEstimate: apparent.Estimate,
		NUsed:            len(estimates),
		NFailed:          len(failures),
		Failures:         failures,
	}, nil
}

// percentileInterval takes the empirical alpha/2 and 1-alpha/2 quantiles of
// the surviving replicate estimates.
func percentileInterval(estimates []float64, alpha float64) (float64, float64, error) {
	sorted := append([]float64(nil), estimates...)
	sort.Float64s(sorted)
	lower, err := stats.Percentile(sorted, 100*alpha/2)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", core.ErrBootstrap, err)
	}
	upper, err := stats.Percentile(sorted, 100*(1-alpha/2))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", core.ErrBootstrap, err)
	}
	return lower, upper, nil
}

// studentizedInterval pivots each replicate estimate around the apparent
// estimate with its own standard error, takes quantiles of the pivot, and
// back-transforms onto the apparent scale. Corrects for skew a plain
// percentile interval misses.
func studentizedInterval(apparent causal.EstimateRecord, records []causal.EstimateRecord, alpha float64) (float64, float64, error) {
	if math.IsNaN(apparent.StdErr) || apparent.StdErr <= 0 {
		return 0, 0, core.ErrMissingStdErr
	}

	pivots := make([]float64, 0, len(records))
	for _, rec := range records {
		if math.IsNaN(rec.StdErr) || rec.StdErr <= 0 {
			return 0, 0, fmt.Errorf("%w: replicate %d", core.ErrMissingStdErr, rec.Replicate)
		}
		pivots = append(pivots, (rec.Estimate-apparent.Estimate)/rec.StdErr)
	}
	sort.Float64s(pivots)

	qLower, err := stats.Percentile(pivots, 100*alpha/2)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", core.ErrBootstrap, err)
	}
	qUpper, err := stats.Percentile(pivots, 100*(1-alpha/2))
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %v", core.ErrBootstrap, err)
	}

	lower := apparent.Estimate - qUpper*apparent.StdErr
	upper := apparent.Estimate - qLower*apparent.StdErr
	return lower, upper, nil
}

func validateOptions(opts *Options) error {
	if opts.Replicates < 1 {
		return fmt.Errorf("%w: replicate count %d", core.ErrBootstrap, opts.Replicates)
	}
	if opts.Alpha <= 0 || opts.Alpha >= 1 {
		return fmt.Errorf("%w: alpha %g outside (0,1)", core.ErrBootstrap, opts.Alpha)
	}
	if opts.FailureThreshold < 0 || opts.FailureThreshold > 1 {
		return fmt.Errorf("%w: failure threshold %g outside [0,1]", core.ErrBootstrap, opts.FailureThreshold)
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.GOMAXPROCS(0)
	}
	if opts.Method == "" {
		opts.Method = causal.MethodStudentized
	}
	if opts.PointMode == "" {
		opts.PointMode = causal.PointApparent
	}
	return nil
}

func failureCauses(failures []causal.ReplicateFailure) []string {
	causes := make([]string, len(failures))
	for i, f := range failures {
		causes[i] = fmt.Sprintf("replicate %d: %s", f.Replicate, f.Cause)
	}
	return causes
}
