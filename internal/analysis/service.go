// Package analysis composes the estimation pipeline: fit the exposure model,
// derive inverse-probability weights, fit the weighted outcome model, and
// optionally wrap the whole chain in the bootstrap driver.
package analysis

import (
	"context"
	"fmt"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
	"causalboot/internal"
	"causalboot/internal/bootstrap"
	"causalboot/internal/outcome"
	"causalboot/internal/weights"
	"causalboot/ports"
)

// Request describes one causal analysis
type Request struct {
	Outcome    core.ColumnKey   `json:"outcome"`
	Exposure   core.ColumnKey   `json:"exposure"`
	Covariates []core.ColumnKey `json:"covariates"`

	Weight   weights.Options     `json:"weight"`
	Interval causal.IntervalMode `json:"interval"`
	Alpha    float64             `json:"alpha"`
}

// Validate checks the request is internally consistent.
func (r Request) Validate() error {
	if r.Outcome == "" || r.Exposure == "" {
		return fmt.Errorf("analysis request: outcome and exposure columns are required")
	}
	if r.Outcome == r.Exposure {
		return fmt.Errorf("analysis request: outcome and exposure must differ")
	}
	if len(r.Covariates) == 0 {
		return fmt.Errorf("analysis request: at least one covariate is required to model exposure")
	}
	return nil
}

// exposureFormula builds the exposure-model formula: exposure ~ covariates,
// binomial for binary exposures and linear for continuous ones.
func (r Request) exposureFormula() causal.Formula {
	family := causal.FamilyBinomial
	if r.Weight.Exposure == causal.ExposureContinuous {
		family = causal.FamilyLinear
	}
	return causal.Formula{
		Response:   r.Exposure,
		Covariates: r.Covariates,
		Family:     family,
	}
}

// Result pairs the estimate with the weight diagnostics of the same fit
type Result struct {
	Record      causal.EstimateRecord `json:"record"`
	Diagnostics weights.Diagnostics   `json:"weight_diagnostics"`
}

// Service runs IPW analyses over a regression collaborator
type Service struct {
	regression ports.RegressionPort
	driver     *bootstrap.Driver
	estimator  *outcome.Estimator
	log        *internal.Logger
}

// NewService creates an analysis service
func NewService(regression ports.RegressionPort, driver *bootstrap.Driver) *Service {
	return &Service{
		regression: regression,
		driver:     driver,
		estimator:  outcome.NewEstimator(),
		log:        internal.DefaultLogger,
	}
}

// ComputeWeights fits the exposure model on the table and derives weights.
// Errors here propagate unconditionally; outside a bootstrap there is no
// aggregate to average over.
func (s *Service) ComputeWeights(ctx context.Context, table *dataset.Table, req Request) (causal.WeightVector, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	fit, err := s.regression.Fit(ctx, table, req.exposureFormula(), nil)
	if err != nil {
		return nil, fmt.Errorf("exposure model: %w", err)
	}
	exposure, err := table.Column(req.Exposure)
	if err != nil {
		return nil, err
	}
	return weights.Compute(fit.Exposure(), exposure, req.Weight)
}

// RunIPW performs one non-resampled analysis: exposure fit, weights,
// weighted outcome fit.
func (s *Service) RunIPW(ctx context.Context, table *dataset.Table, req Request) (*Result, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	w, err := s.ComputeWeights(ctx, table, req)
	if err != nil {
		return nil, err
	}

	estimator := &outcome.Estimator{Alpha: req.Alpha}
	rec, err := estimator.FitWeighted(table, w, req.Outcome, req.Exposure, req.intervalMode())
	if err != nil {
		return nil, fmt.Errorf("outcome model: %w", err)
	}

	s.log.Debug("IPW fit: estimate=%.4f se=%.4f n=%d", rec.Estimate, rec.StdErr, rec.SampleSize)
	return &Result{Record: rec, Diagnostics: weights.Diagnose(w)}, nil
}

// RunBootstrap wraps the refit chain in the bootstrap driver. Marginal
// stabilization quantities are re-estimated inside every replicate, so the
// interval captures propensity-model refitting uncertainty.
func (s *Service) RunBootstrap(ctx context.Context, table *dataset.Table, req Request, opts bootstrap.Options) (*causal.BootstrapResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if s.driver == nil {
		return nil, fmt.Errorf("analysis service: no bootstrap driver configured")
	}
	opts.Alpha = pickAlpha(opts.Alpha, req.Alpha)

	refit := func(ctx context.Context, replicate int, t *dataset.Table) (causal.EstimateRecord, error) {
		w, err := s.ComputeWeights(ctx, t, req)
		if err != nil {
			return causal.EstimateRecord{}, err
		}
		estimator := &outcome.Estimator{Alpha: opts.Alpha}
		// Sandwich SEs regardless of requested mode: the studentized
		// interval needs a per-replicate standard error.
		return estimator.FitWeighted(t, w, req.Outcome, req.Exposure, causal.IntervalBootstrap)
	}

	result, err := s.driver.Estimate(ctx, table, refit, opts)
	if err != nil {
		return nil, err
	}
	s.log.Info("bootstrap run %s: point=%.4f [%.4f, %.4f] used=%d failed=%d",
		result.RunID, result.PointEstimate, result.Lower, result.Upper, result.NUsed, result.NFailed)
	return result, nil
}

func (r Request) intervalMode() causal.IntervalMode {
	if r.Interval == "" {
		return causal.IntervalRobust
	}
	return r.Interval
}

func pickAlpha(optsAlpha, reqAlpha float64) float64 {
	if optsAlpha > 0 && optsAlpha < 1 {
		return optsAlpha
	}
	if reqAlpha > 0 && reqAlpha < 1 {
		return reqAlpha
	}
	return 0.05
}
