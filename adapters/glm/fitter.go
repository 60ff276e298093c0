// Package glm implements the regression fitting collaborator: weighted
// linear least squares and binomial (logistic) regression via iteratively
// reweighted least squares, both on gonum dense matrices.
package glm

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"causalboot/domain/causal"
	"causalboot/domain/core"
	"causalboot/domain/dataset"
	"causalboot/ports"
)

const (
	irlsMaxIter   = 50
	irlsTolerance = 1e-9
	probFloor     = 1e-10
)

// Fitter fits linear and binomial regression models with observation weights
type Fitter struct{}

// NewFitter creates a regression fitter
func NewFitter() *Fitter {
	return &Fitter{}
}

// Fit estimates the formula's model on the table. A nil weight slice fits the model
// unweighted. The response column is formula.Response; the design matrix is an
// intercept plus formula.Covariates in order.
func (f *Fitter) Fit(ctx context.Context, table *dataset.Table, formula causal.Formula, weights []float64) (*ports.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := formula.Validate(); err != nil {
		return nil, err
	}

	y, err := table.Column(formula.Response)
	if err != nil {
		return nil, err
	}
	x, terms, err := designMatrix(table, formula.Covariates)
	if err != nil {
		return nil, err
	}

	n := len(y)
	if weights == nil {
		weights = ones(n)
	} else if len(weights) != n {
		return nil, core.ErrLengthMismatch
	}

	switch formula.Family {
	case causal.FamilyBinomial:
		return f.fitBinomial(x, y, weights, terms)
	default:
		return f.fitLinear(x, y, weights, terms)
	}
}

// fitLinear solves the weighted least squares problem and estimates the
// residual scale from the weighted residual sum of squares.
func (f *Fitter) fitLinear(x *mat.Dense, y, weights []float64, terms []string) (*ports.FitResult, error) {
	beta, xtwxInv, err := solveWLS(x, y, weights)
	if err != nil {
		return nil, err
	}

	n, p := x.Dims()
	fitted := make([]float64, n)
	var rss, wsum float64
	for i := 0; i < n; i++ {
		fitted[i] = dotRow(x, i, beta)
		resid := y[i] - fitted[i]
		rss += weights[i] * resid * resid
		wsum += weights[i]
	}
	if n <= p {
		return nil, fmt.Errorf("%w: %d observations for %d parameters", core.ErrRankDeficient, n, p)
	}
	sigma2 := rss / float64(n-p)

	stdErrs := make([]float64, p)
	for j := 0; j < p; j++ {
		stdErrs[j] = math.Sqrt(sigma2 * xtwxInv.At(j, j))
	}

	return &ports.FitResult{
		Terms:         terms,
		Coefficients:  beta,
		StdErrs:       stdErrs,
		Fitted:        fitted,
		ResidualScale: math.Sqrt(sigma2),
		SampleSize:    n,
	}, nil
}

// fitBinomial runs IRLS with a logit link. Prior observation weights multiply
// the IRLS working weights.
func (f *Fitter) fitBinomial(x *mat.Dense, y, weights []float64, terms []string) (*ports.FitResult, error) {
	n, p := x.Dims()
	beta := make([]float64, p)
	eta := make([]float64, n)
	mu := make([]float64, n)
	working := make([]float64, n)
	z := make([]float64, n)

	var xtwxInv *mat.Dense
	for iter := 0; iter < irlsMaxIter; iter++ {
		for i := 0; i < n; i++ {
			eta[i] = dotRow(x, i, beta)
			mu[i] = logistic(eta[i])
			variance := mu[i] * (1 - mu[i])
			if variance < probFloor {
				variance = probFloor
			}
			working[i] = weights[i] * variance
			z[i] = eta[i] + (y[i]-mu[i])/variance
		}

		next, inv, err := solveWLS(x, z, working)
		if err != nil {
			return nil, err
		}
		xtwxInv = inv

		delta := 0.0
		for j := 0; j < p; j++ {
			if d := math.Abs(next[j] - beta[j]); d > delta {
				delta = d
			}
		}
		beta = next
		if delta < irlsTolerance {
			break
		}
	}

	fitted := make([]float64, n)
	for i := 0; i < n; i++ {
		fitted[i] = logistic(dotRow(x, i, beta))
	}
	stdErrs := make([]float64, p)
	for j := 0; j < p; j++ {
		stdErrs[j] = math.Sqrt(xtwxInv.At(j, j))
	}

	return &ports.FitResult{
		Terms:        terms,
		Coefficients: beta,
		StdErrs:      stdErrs,
		Fitted:       fitted,
		SampleSize:   n,
	}, nil
}

// solveWLS solves (X'WX) beta = X'Wy, returning beta and (X'WX)^-1.
// Falls back to an SVD pseudo-inverse when the normal equations are singular
// to working precision, and reports rank deficiency when the design itself
// is degenerate.
func solveWLS(x *mat.Dense, y, weights []float64) ([]float64, *mat.Dense, error) {
	n, p := x.Dims()
	if len(y) != n || len(weights) != n {
		return nil, nil, core.ErrLengthMismatch
	}

	wsum := 0.0
	for _, w := range weights {
		if math.IsNaN(w) || w < 0 {
			return nil, nil, core.ErrDegenerateWeights
		}
		wsum += w
	}
	if wsum == 0 {
		return nil, nil, core.ErrDegenerateWeights
	}

	xtwx := mat.NewDense(p, p, nil)
	xtwy := mat.NewVecDense(p, nil)
	for i := 0; i < n; i++ {
		w := weights[i]
		if w == 0 {
			continue
		}
		for j := 0; j < p; j++ {
			xij := x.At(i, j)
			xtwy.SetVec(j, xtwy.AtVec(j)+w*xij*y[i])
			for k := j; k < p; k++ {
				v := xtwx.At(j, k) + w*xij*x.At(i, k)
				xtwx.Set(j, k, v)
				if k != j {
					xtwx.Set(k, j, v)
				}
			}
		}
	}

	var inv mat.Dense
	if err := inv.Inverse(xtwx); err != nil {
		// Singular normal equations: try an SVD pseudo-inverse before
		// declaring the design rank-deficient.
		var svd mat.SVD
		if !svd.Factorize(xtwx, mat.SVDFull) {
			return nil, nil, fmt.Errorf("%w: SVD factorization failed", core.ErrRankDeficient)
		}
		values := svd.Values(nil)
		tol := float64(p) * values[0] * 1e-12
		rank := 0
		for _, s := range values {
			if s > tol {
				rank++
			}
		}
		if rank < p {
			return nil, nil, fmt.Errorf("%w: rank %d of %d", core.ErrRankDeficient, rank, p)
		}
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		d := mat.NewDense(p, p, nil)
		for j := 0; j < p; j++ {
			d.Set(j, j, 1/values[j])
		}
		inv.Product(&v, d, u.T())
	}

	var beta mat.VecDense
	beta.MulVec(&inv, xtwy)

	out := make([]float64, p)
	for j := 0; j < p; j++ {
		out[j] = beta.AtVec(j)
	}
	return out, &inv, nil
}

func designMatrix(table *dataset.Table, covariates []core.ColumnKey) (*mat.Dense, []string, error) {
	n := table.NumRows()
	p := len(covariates) + 1
	x := mat.NewDense(n, p, nil)
	terms := make([]string, p)
	terms[0] = "(intercept)"
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
	}
	for j, key := range covariates {
		col, err := table.Column(key)
		if err != nil {
			return nil, nil, err
		}
		terms[j+1] = string(key)
		for i := 0; i < n; i++ {
			x.Set(i, j+1, col[i])
		}
	}
	return x, terms, nil
}

func dotRow(x *mat.Dense, row int, beta []float64) float64 {
	sum := 0.0
	for j := range beta {
		sum += x.At(row, j) * beta[j]
	}
	return sum
}

func logistic(eta float64) float64 {
	p := 1 / (1 + math.Exp(-eta))
	if p < probFloor {
		return probFloor
	}
	if p > 1-probFloor {
		return 1 - probFloor
	}
	return p
}

func ones(n int) []float64 {
	w := make([]float64, n)
	for i := range w {
		w[i] = 1
	}
	return w
}
