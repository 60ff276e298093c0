package glm

import (
	"context"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
)

func TestLinearFitRecoversCoefficients(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	n := 1000
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		y[i] = 1.5 + 2.0*x[i] + 0.5*rng.NormFloat64()
	}
	table, err := dataset.NewTable(map[core.ColumnKey][]float64{"x": x, "y": y})
	require.NoError(t, err)

	fit, err := NewFitter().Fit(context.Background(), table, causal.Formula{
		Response:   "y",
		Covariates: []core.ColumnKey{"x"},
		Family:     causal.FamilyLinear,
	}, nil)
	require.NoError(t, err)

	require.Equal(t, []string{"(intercept)", "x"}, fit.Terms)
	assert.InDelta(t, 1.5, fit.Coefficients[0], 0.1)
	assert.InDelta(t, 2.0, fit.Coefficients[1], 0.1)
	assert.InDelta(t, 0.5, fit.ResidualScale, 0.05)
	assert.Len(t, fit.Fitted, n)
}

func TestLinearFitWeightedMatchesDuplication(t *testing.T) {
	ctx := context.Background()
	x := []float64{0, 1, 2, 3}
	y := []float64{0.5, 1.8, 3.6, 5.1}

	weighted, err := dataset.NewTable(map[core.ColumnKey][]float64{"x": x, "y": y})
	require.NoError(t, err)
	duplicated, err := dataset.NewTable(map[core.ColumnKey][]float64{
		"x": {0, 1, 2, 3, 3},
		"y": {0.5, 1.8, 3.6, 5.1, 5.1},
	})
	require.NoError(t, err)

	formula := causal.Formula{Response: "y", Covariates: []core.ColumnKey{"x"}, Family: causal.FamilyLinear}

	fitW, err := NewFitter().Fit(ctx, weighted, formula, []float64{1, 1, 1, 2})
	require.NoError(t, err)
	fitD, err := NewFitter().Fit(ctx, duplicated, formula, nil)
	require.NoError(t, err)

	assert.InDelta(t, fitD.Coefficients[0], fitW.Coefficients[0], 1e-9)
	assert.InDelta(t, fitD.Coefficients[1], fitW.Coefficients[1], 1e-9)
}

func TestBinomialFitRecoversLogisticModel(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	n := 2000
	x := make([]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x[i] = rng.NormFloat64()
		p := 1 / (1 + math.Exp(-(-0.5 + 1.5*x[i])))
		if rng.Float64() < p {
			y[i] = 1
		}
	}
	table, err := dataset.NewTable(map[core.ColumnKey][]float64{"x": x, "y": y})
	require.NoError(t, err)

	fit, err := NewFitter().Fit(context.Background(), table, causal.Formula{
		Response:   "y",
		Covariates: []core.ColumnKey{"x"},
		Family:     causal.FamilyBinomial,
	}, nil)
	require.NoError(t, err)

	assert.InDelta(t, -0.5, fit.Coefficients[0], 0.25)
	assert.InDelta(t, 1.5, fit.Coefficients[1], 0.25)
	for i, p := range fit.Fitted {
		assert.Greater(t, p, 0.0, "fitted %d", i)
		assert.Less(t, p, 1.0, "fitted %d", i)
	}
}

func TestFitRejectsCollinearDesign(t *testing.T) {
	// A covariate that duplicates the intercept is rank deficient.
	table, err := dataset.NewTable(map[core.ColumnKey][]float64{
		"ones": {1, 1, 1, 1},
		"y":    {1, 2, 3, 4},
	})
	require.NoError(t, err)

	_, err = NewFitter().Fit(context.Background(), table, causal.Formula{
		Response:   "y",
		Covariates: []core.ColumnKey{"ones"},
		Family:     causal.FamilyLinear,
	}, nil)
	assert.ErrorIs(t, err, core.ErrRankDeficient)
}

func TestFitRejectsBadWeights(t *testing.T) {
	table, err := dataset.NewTable(map[core.ColumnKey][]float64{
		"x": {0, 1, 2},
		"y": {1, 2, 3},
	})
	require.NoError(t, err)

	formula := causal.Formula{Response: "y", Covariates: []core.ColumnKey{"x"}, Family: causal.FamilyLinear}

	_, err = NewFitter().Fit(context.Background(), table, formula, []float64{0, 0, 0})
	assert.ErrorIs(t, err, core.ErrDegenerateWeights)

	_, err = NewFitter().Fit(context.Background(), table, formula, []float64{1, -1, 1})
	assert.ErrorIs(t, err, core.ErrDegenerateWeights)
}

func TestFitValidatesFormula(t *testing.T) {
	table, err := dataset.NewTable(map[core.ColumnKey][]float64{"x": {1, 2}, "y": {1, 2}})
	require.NoError(t, err)

	_, err = NewFitter().Fit(context.Background(), table, causal.Formula{
		Response: "y", Covariates: []core.ColumnKey{"y"}, Family: causal.FamilyLinear,
	}, nil)
	assert.Error(t, err)
}
