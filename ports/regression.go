package ports

import (
	"context"

	"causalboot/domain/causal"
	"causalboot/domain/dataset"
)

// ExposureFit is the opaque artifact of a fitted regression model, exposing
// only what weight computation needs: per-observation fitted values and, for
// linear fits, the residual scale. It is created fresh per bootstrap
// replicate and discarded after its weights are derived.
type ExposureFit struct {
	// Fitted holds the predicted probability (binomial family) or predicted
	// mean (linear family) for each observation, aligned to the table.
	Fitted []float64
	// ResidualScale is the estimated standard deviation of residuals.
	// Populated for the linear family only.
	ResidualScale float64
}

// FitResult is the full coefficient-level output of a regression fit.
type FitResult struct {
	Terms         []string  // intercept first, then covariates in formula order
	Coefficients  []float64 // aligned to Terms
	StdErrs       []float64 // aligned to Terms
	Fitted        []float64 // per-observation fitted values
	ResidualScale float64   // linear family only
	SampleSize    int
}

// Exposure converts a full fit into the opaque artifact weight computation consumes.
func (r *FitResult) Exposure() ExposureFit {
	return ExposureFit{Fitted: r.Fitted, ResidualScale: r.ResidualScale}
}

// RegressionPort is the regression/GLM fitting collaborator. Implementations
// must support observation weights; a nil weight slice means unweighted.
type RegressionPort interface {
	Fit(ctx context.Context, table *dataset.Table, formula causal.Formula, weights []float64) (*FitResult, error)
}
