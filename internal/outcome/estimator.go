// Package outcome fits the weighted marginal structural model: a weighted
// linear regression of outcome on exposure alone. Confounding is handled by
// the weights, not by covariate adjustment, so the design matrix is always
// an intercept plus the exposure.
package outcome

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
)

// Estimator fits weighted outcome models and constructs intervals
type Estimator struct {
	Alpha float64 // two-sided significance level, default 0.05
}

// NewEstimator creates an estimator with the conventional 95% interval.
func NewEstimator() *Estimator {
	return &Estimator{Alpha: 0.05}
}

// FitWeighted regresses the outcome column on the exposure column under the
// given weights and returns the exposure coefficient with an interval built
// per mode. In bootstrap mode no closed-form interval is produced; the
// record still carries the sandwich standard error so the driver can build
// studentized intervals.
func (e *Estimator) FitWeighted(table *dataset.Table, w causal.WeightVector, outcomeCol, exposureCol core.ColumnKey, mode causal.IntervalMode) (causal.EstimateRecord, error) {
	var rec causal.EstimateRecord

	y, err := table.Column(outcomeCol)
	if err != nil {
		return rec, err
	}
	a, err := table.Column(exposureCol)
	if err != nil {
		return rec, err
	}
	if err := w.Validate(table.NumRows()); err != nil {
		return rec, err
	}

	n := len(y)
	wsum := 0.0
	nanCount := 0
	for _, v := range w {
		if math.IsNaN(v) {
			nanCount++
			continue
		}
		wsum += v
	}
	if wsum == 0 || nanCount == n {
		return rec, fmt.Errorf("%w: weight sum %g, %d NaN of %d", core.ErrDegenerateWeights, wsum, nanCount, n)
	}

	// Constant exposure makes the two-column design singular.
	if constant(a) {
		return rec, fmt.Errorf("%w: exposure %s is constant", core.ErrRankDeficient, exposureCol)
	}

	beta, xtwxInv, residuals, err := wlsTwoColumn(a, y, w)
	if err != nil {
		return rec, err
	}

	rec = causal.EstimateRecord{
		Estimate:   beta[1],
		StdErr:     math.NaN(),
		Lower:      math.NaN(),
		Upper:      math.NaN(),
		Mode:       mode,
		SampleSize: n,
	}

	switch mode {
	case causal.IntervalNaive:
		rec.StdErr = naiveStdErr(w, residuals, xtwxInv)
	case causal.IntervalRobust, causal.IntervalBootstrap:
		rec.StdErr = sandwichStdErr(a, w, residuals, xtwxInv)
	default:
		return rec, fmt.Errorf("unknown interval mode %q", mode)
	}

	// Bootstrap mode defers interval construction to the driver.
	if mode != causal.IntervalBootstrap {
		t := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: float64(n - 2)}
		q := t.Quantile(1 - e.alpha()/2)
		rec.Lower = rec.Estimate - q*rec.StdErr
		rec.Upper = rec.Estimate + q*rec.StdErr
	}
	return rec, nil
}

func (e *Estimator) alpha() float64 {
	if e.Alpha <= 0 || e.Alpha >= 1 {
		return 0.05
	}
	return e.Alpha
}

// wlsTwoColumn solves the 2-parameter weighted least squares fit of y on
// [1, a] and returns coefficients, (X'WX)^-1, and residuals.
func wlsTwoColumn(a, y []float64, w causal.WeightVector) ([2]float64, *mat.SymDense, []float64, error) {
	var s0, s1, s2, t0, t1 float64
	for i := range a {
		s0 += w[i]
		s1 += w[i] * a[i]
		s2 += w[i] * a[i] * a[i]
		t0 += w[i] * y[i]
		t1 += w[i] * a[i] * y[i]
	}

	det := s0*s2 - s1*s1
	if det == 0 || math.IsNaN(det) {
		return [2]float64{}, nil, nil, fmt.Errorf("%w: singular weighted design", core.ErrRankDeficient)
	}

	inv := mat.NewSymDense(2, []float64{
		s2 / det, -s1 / det,
		-s1 / det, s0 / det,
	})
	beta := [2]float64{
		inv.At(0, 0)*t0 + inv.At(0, 1)*t1,
		inv.At(1, 0)*t0 + inv.At(1, 1)*t1,
	}

	residuals := make([]float64, len(y))
	for i := range y {
		residuals[i] = y[i] - beta[0] - beta[1]*a[i]
	}
	return beta, inv, residuals, nil
}

// naiveStdErr is the ordinary WLS standard error of the exposure
// coefficient: sigma^2 (X'WX)^-1 with sigma^2 from the weighted RSS.
func naiveStdErr(w causal.WeightVector, residuals []float64, xtwxInv *mat.SymDense) float64 {
	n := len(residuals)
	rss := 0.0
	for i, r := range residuals {
		rss += w[i] * r * r
	}
	sigma2 := rss / float64(n-2)
	return math.Sqrt(sigma2 * xtwxInv.At(1, 1))
}

// sandwichStdErr is the HC0 heteroskedasticity-consistent standard error:
// (X'WX)^-1 X'W diag(e^2) WX (X'WX)^-1, exposure-coefficient entry.
func sandwichStdErr(a []float64, w causal.WeightVector, residuals []float64, xtwxInv *mat.SymDense) float64 {
	var m00, m01, m11 float64
	for i := range a {
		s := w[i] * residuals[i]
		s2 := s * s
		m00 += s2
		m01 += s2 * a[i]
		m11 += s2 * a[i] * a[i]
	}

	// Row of (X'WX)^-1 for the exposure coefficient.
	r0 := xtwxInv.At(1, 0)
	r1 := xtwxInv.At(1, 1)
	variance := r0*(m00*r0+m01*r1) + r1*(m01*r0+m11*r1)
	return math.Sqrt(variance)
}

func constant(values []float64) bool {
	for _, v := range values[1:] {
		if v != values[0] {
			return false
		}
	}
	return true
}
