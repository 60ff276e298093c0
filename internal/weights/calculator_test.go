package weights

import (
	"math/rand"
	"testing"

	"github.com/montanaflynn/stats"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/ports"
)

func TestBinaryStabilizedWeightAtMarginalRateIsOne(t *testing.T) {
	// Marginal exposure rate is 0.5; observations fitted at exactly that
	// rate get weight 1 under stabilization.
	exposure := []float64{1, 1, 0, 0}
	fit := ports.ExposureFit{Fitted: []float64{0.5, 0.5, 0.5, 0.5}}

	w, err := Compute(fit, exposure, Options{Exposure: causal.ExposureBinary, Stabilize: true})
	require.NoError(t, err)
	for i, v := range w {
		assert.InDelta(t, 1.0, v, 1e-12, "weight %d", i)
	}
}

func TestBinaryWeightsStrictlyPositive(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	n := 200
	exposure := make([]float64, n)
	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted[i] = 0.05 + 0.9*rng.Float64()
		if rng.Float64() < fitted[i] {
			exposure[i] = 1
		}
	}

	for _, stabilize := range []bool{false, true} {
		w, err := Compute(ports.ExposureFit{Fitted: fitted}, exposure,
			Options{Exposure: causal.ExposureBinary, Stabilize: stabilize})
		require.NoError(t, err)
		for i, v := range w {
			assert.Greater(t, v, 0.0, "stabilize=%v weight %d", stabilize, i)
		}
	}
}

func TestBinaryPositivityViolation(t *testing.T) {
	tests := []struct {
		name     string
		exposure []float64
		fitted   []float64
		wantErr  bool
	}{
		{"exposed with zero propensity", []float64{1}, []float64{0}, true},
		{"unexposed with unit propensity", []float64{0}, []float64{1}, true},
		{"exposed with unit propensity is fine", []float64{1}, []float64{1}, false},
		{"unexposed with zero propensity is fine", []float64{0}, []float64{0}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Compute(ports.ExposureFit{Fitted: tt.fitted}, tt.exposure,
				Options{Exposure: causal.ExposureBinary})
			if tt.wantErr {
				assert.ErrorIs(t, err, core.ErrDomain)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestStabilizationReducesWeightVariance(t *testing.T) {
	// Property: over random fitted-probability vectors, stabilized weights
	// have smaller variance than unstabilized weights.
	rng := rand.New(rand.NewSource(11))
	for trial := 0; trial < 20; trial++ {
		n := 500
		exposure := make([]float64, n)
		fitted := make([]float64, n)
		for i := 0; i < n; i++ {
			fitted[i] = 0.1 + 0.8*rng.Float64()
			if rng.Float64() < fitted[i] {
				exposure[i] = 1
			}
		}

		unstab, err := Compute(ports.ExposureFit{Fitted: fitted}, exposure,
			Options{Exposure: causal.ExposureBinary, Stabilize: false})
		require.NoError(t, err)
		stab, err := Compute(ports.ExposureFit{Fitted: fitted}, exposure,
			Options{Exposure: causal.ExposureBinary, Stabilize: true})
		require.NoError(t, err)

		vu, _ := stats.Variance([]float64(unstab))
		vs, _ := stats.Variance([]float64(stab))
		assert.Less(t, vs, vu, "trial %d", trial)
	}
}

func TestComputeIsIdempotent(t *testing.T) {
	exposure := []float64{1, 0, 1, 0, 1}
	fit := ports.ExposureFit{Fitted: []float64{0.7, 0.3, 0.6, 0.2, 0.9}}
	opts := Options{Exposure: causal.ExposureBinary, Stabilize: true}

	first, err := Compute(fit, exposure, opts)
	require.NoError(t, err)
	second, err := Compute(fit, exposure, opts)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestContinuousRejectsNonPositiveScale(t *testing.T) {
	fit := ports.ExposureFit{Fitted: []float64{0, 0}, ResidualScale: 0}
	_, err := Compute(fit, []float64{0.1, -0.2}, Options{Exposure: causal.ExposureContinuous})
	assert.ErrorIs(t, err, core.ErrResidualScale)
}

func TestContinuousStabilizedWeights(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	n := 500
	confounder := make([]float64, n)
	exposure := make([]float64, n)
	for i := 0; i < n; i++ {
		confounder[i] = rng.NormFloat64()
		exposure[i] = confounder[i] + rng.NormFloat64()
	}
	// The "fitted model" predicts exposure from the confounder with unit
	// residual scale, matching the generating process.
	fit := ports.ExposureFit{Fitted: confounder, ResidualScale: 1.0}

	unstab, err := Compute(fit, exposure, Options{Exposure: causal.ExposureContinuous, Stabilize: false})
	require.NoError(t, err)
	stab, err := Compute(fit, exposure, Options{Exposure: causal.ExposureContinuous, Stabilize: true})
	require.NoError(t, err)

	vu, _ := stats.Variance([]float64(unstab))
	vs, _ := stats.Variance([]float64(stab))
	assert.Less(t, vs, vu/2, "stabilization should sharply reduce weight variance")
}

func TestTruncationCapsExtremeWeights(t *testing.T) {
	exposure := []float64{1, 1, 1, 1, 1, 1, 1, 1, 1, 1}
	fitted := []float64{0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.9, 0.001}

	raw, err := Compute(ports.ExposureFit{Fitted: fitted}, exposure,
		Options{Exposure: causal.ExposureBinary})
	require.NoError(t, err)
	truncated, err := Compute(ports.ExposureFit{Fitted: fitted}, exposure,
		Options{Exposure: causal.ExposureBinary, TruncatePercentile: 90})
	require.NoError(t, err)

	rawMax, _ := stats.Max([]float64(raw))
	truncMax, _ := stats.Max([]float64(truncated))
	assert.Less(t, truncMax, rawMax)
	for _, v := range truncated {
		assert.GreaterOrEqual(t, v, 0.0)
	}
}

func TestDiagnoseEffectiveSampleSize(t *testing.T) {
	// Uniform weights: ESS equals n.
	uniform := causal.WeightVector{1, 1, 1, 1}
	assert.InDelta(t, 4.0, Diagnose(uniform).EffectiveSampleSize, 1e-12)

	// One dominant weight: ESS collapses toward 1.
	skewed := causal.WeightVector{100, 0.01, 0.01, 0.01}
	assert.Less(t, Diagnose(skewed).EffectiveSampleSize, 1.1)
}
