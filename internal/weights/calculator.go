// Package weights computes inverse-probability-of-treatment weights from a
// fitted exposure model. Weighting is a pure function of the fitted values
// and the observed exposures; marginal quantities used for stabilization are
// estimated from the same sample (or bootstrap replicate) the fit came from.
package weights

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/ports"
)

// Options configures weight computation
type Options struct {
	Exposure  causal.ExposureType `json:"exposure"`
	Stabilize bool                `json:"stabilize"`
	// TruncatePercentile, when in (0,100), caps weights at that percentile of
	// the computed weight distribution. Zero disables truncation. Extreme
	// weights are a documented failure mode for continuous exposures; this is
	// a caller-level diagnostic hook, off by default.
	TruncatePercentile float64 `json:"truncate_percentile,omitempty"`
}

// Compute derives one non-negative weight per observation from a fitted
// exposure model. For binary exposures the fit carries per-observation
// propensities; for continuous exposures it carries predicted means plus a
// residual scale, and the weight is a ratio of normal densities.
func Compute(fit ports.ExposureFit, exposure []float64, opts Options) (causal.WeightVector, error) {
	if len(fit.Fitted) != len(exposure) {
		return nil, core.ErrLengthMismatch
	}
	if len(exposure) == 0 {
		return nil, core.ErrEmptyTable
	}

	var (
		w   causal.WeightVector
		err error
	)
	switch opts.Exposure {
	case causal.ExposureContinuous:
		w, err = continuousWeights(fit, exposure, opts.Stabilize)
	default:
		w, err = binaryWeights(fit.Fitted, exposure, opts.Stabilize)
	}
	if err != nil {
		return nil, err
	}

	if opts.TruncatePercentile > 0 && opts.TruncatePercentile < 100 {
		w = truncate(w, opts.TruncatePercentile)
	}
	return w, nil
}

func binaryWeights(propensity, exposure []float64, stabilize bool) (causal.WeightVector, error) {
	// Marginal exposure prevalence, estimated once per sample.
	marginal := 1.0
	if stabilize {
		m, err := stats.Mean(exposure)
		if err != nil {
			return nil, err
		}
		marginal = m
	}

	w := make(causal.WeightVector, len(exposure))
	for i, a := range exposure {
		p := propensity[i]
		numerator := 1.0
		denominator := p
		if stabilize {
			numerator = marginal
		}
		if a == 0 {
			denominator = 1 - p
			if stabilize {
				numerator = 1 - marginal
			}
		}
		if denominator <= 0 {
			return nil, core.NewPositivityError(i, p)
		}
		w[i] = numerator / denominator
	}
	return w, nil
}

func continuousWeights(fit ports.ExposureFit, exposure []float64, stabilize bool) (causal.WeightVector, error) {
	if fit.ResidualScale <= 0 || math.IsNaN(fit.ResidualScale) {
		return nil, core.ErrResidualScale
	}

	// Marginal density parameters from the unconditional exposure
	// distribution in the same replicate.
	var marginal distuv.Normal
	if stabilize {
		mean, err := stats.Mean(exposure)
		if err != nil {
			return nil, err
		}
		sd, err := stats.StandardDeviationSample(exposure)
		if err != nil {
			return nil, err
		}
		if sd <= 0 {
			return nil, core.ErrResidualScale
		}
		marginal = distuv.Normal{Mu: mean, Sigma: sd}
	}

	w := make(causal.WeightVector, len(exposure))
	for i, a := range exposure {
		conditional := distuv.Normal{Mu: fit.Fitted[i], Sigma: fit.ResidualScale}
		density := conditional.Prob(a)
		if density == 0 || math.IsNaN(density) {
			return nil, core.NewZeroDensityError(i, a)
		}
		numerator := 1.0
		if stabilize {
			numerator = marginal.Prob(a)
		}
		w[i] = numerator / density
	}
	return w, nil
}

// truncate caps weights at the given percentile of their own distribution.
// Weights stay non-negative; no lower clamp is applied.
func truncate(w causal.WeightVector, percentile float64) causal.WeightVector {
	limit, err := stats.Percentile([]float64(w), percentile)
	if err != nil {
		return w
	}
	out := make(causal.WeightVector, len(w))
	for i, v := range w {
		if v > limit {
			v = limit
		}
		out[i] = v
	}
	return out
}

// Diagnostics summarizes a weight distribution for reporting
type Diagnostics struct {
	Mean                float64 `json:"mean"`
	StdDev              float64 `json:"std_dev"`
	Min                 float64 `json:"min"`
	Max                 float64 `json:"max"`
	EffectiveSampleSize float64 `json:"effective_sample_size"`
}

// Diagnose computes summary statistics of a weight vector, including the
// Kish effective sample size (sum w)^2 / sum w^2.
func Diagnose(w causal.WeightVector) Diagnostics {
	data := []float64(w)
	mean, _ := stats.Mean(data)
	sd, _ := stats.StandardDeviationSample(data)
	min, _ := stats.Min(data)
	max, _ := stats.Max(data)

	var sum, sumSq float64
	for _, v := range w {
		sum += v
		sumSq += v * v
	}
	ess := 0.0
	if sumSq > 0 {
		ess = sum * sum / sumSq
	}
	return Diagnostics{Mean: mean, StdDev: sd, Min: min, Max: max, EffectiveSampleSize: ess}
}
