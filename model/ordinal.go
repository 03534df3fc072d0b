package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// ORDINAL LOGISTIC REGRESSION — Proportional odds over the label set
// ============================================================================
// The outcome is the ordered label set itself, never the numeric proxy:
// category structure and cut-point interpretation are preserved.
//
//	P(Y ≤ k | x) = logistic(θ_k − xβ)
//
// The likelihood is maximized with BFGS over an unconstrained
// parameterization (cut-points as a base plus log-increments, which keeps
// them ordered). Standard errors come from an independently computed
// numerical Hessian in the natural parameterization — the optimizer's own
// output carries no valid significance tests.
//
// A first attempt that stops with a warning is retried once before the
// fit is reported as failed.
// ============================================================================

// OrdinalModel is a fitted proportional-odds regression.
type OrdinalModel struct {
	Name    string
	Outcome string
	Formula string

	N      int
	Levels []string // observed outcome levels, ascending declared order

	Coefficients []Coefficient // predictor terms, with odds ratios
	Cutpoints    []Coefficient // K-1 cut-points, named "a|b"

	LogLik  float64
	AIC     float64
	Retried bool // the fit needed its one warning-suppressed retry
	Dropped []string
}

// FitOrdinal fits a proportional-odds model of an ordinal outcome.
func FitOrdinal(tbl *dataset.Table, spec schema.ModelSpec, confLevel float64) (*OrdinalModel, error) {
	f, _, err := tbl.Schema.Resolve(spec.Outcome)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.KindOrdinal {
		return nil, fmt.Errorf("ordinal outcome %q must be an ordinal field", spec.Outcome)
	}

	design, err := BuildDesign(tbl, spec.Outcome, spec.Predictors)
	if err != nil {
		return nil, err
	}

	// Observed outcome levels in declared order.
	_, levels := tbl.SplitByFactor(design.Rows, f)
	if len(levels) < 2 {
		return nil, fmt.Errorf("%w: outcome %q has %d level(s) after complete-case filtering, need at least 2",
			ErrInsufficientData, spec.Outcome, len(levels))
	}
	levelIdx := make(map[string]int, len(levels))
	for i, l := range levels {
		levelIdx[l] = i
	}

	n := len(design.Rows)
	y := make([]int, n)
	counts := make([]int, len(levels))
	for k, i := range design.Rows {
		v, _ := tbl.FactorValue(i, f)
		y[k] = levelIdx[v]
		counts[levelIdx[v]]++
	}

	// Predictor matrix without the intercept column: cut-points absorb it.
	p := len(design.Terms)
	xs := make([][]float64, n)
	for i := 0; i < n; i++ {
		row := make([]float64, p)
		for j := 0; j < p; j++ {
			row[j] = design.X.At(i, j+1)
		}
		xs[i] = row
	}

	nCut := len(levels) - 1
	negLL := func(params []float64) float64 {
		beta := params[:p]
		theta := cutpointsFrom(params[p:])
		return ordinalNegLL(xs, y, beta, theta)
	}

	init := make([]float64, p+nCut)
	copy(init[p:], initialCutpoints(counts))

	params, retried, err := minimizeWithRetry(negLL, init)
	if err != nil {
		return nil, err
	}

	beta := params[:p]
	theta := cutpointsFrom(params[p:])

	// Independent SEs: numerical Hessian in the natural (β, θ) space.
	natural := append(append([]float64{}, beta...), theta...)
	negLLNat := func(psi []float64) float64 {
		th := psi[p:]
		for i := 1; i < len(th); i++ {
			if th[i] <= th[i-1] {
				return math.Inf(1)
			}
		}
		return ordinalNegLL(xs, y, psi[:p], th)
	}
	cov, err := invertHessian(negLLNat, natural)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFitFailure, err)
	}

	ll := -negLL(params)
	m := &OrdinalModel{
		Name:    spec.Name,
		Outcome: spec.Outcome,
		Formula: formula(spec.Outcome, spec.Predictors),
		N:       n,
		Levels:  levels,
		LogLik:  ll,
		AIC:     -2*ll + 2*float64(p+nCut),
		Retried: retried,
		Dropped: design.Dropped,
	}

	q := distuv.UnitNormal.Quantile(0.5 + confLevel/2)
	for j, t := range design.Terms {
		est := beta[j]
		se := math.Sqrt(cov.At(j, j))
		z := est / se
		m.Coefficients = append(m.Coefficients, Coefficient{
			Name:      t.Name(),
			Estimate:  est,
			StdErr:    se,
			Z:         z,
			P:         2 * distuv.UnitNormal.CDF(-math.Abs(z)),
			OddsRatio: math.Exp(est),
			ORLower:   math.Exp(est - q*se),
			ORUpper:   math.Exp(est + q*se),
		})
	}
	for k := 0; k < nCut; k++ {
		est := theta[k]
		se := math.Sqrt(cov.At(p+k, p+k))
		z := est / se
		m.Cutpoints = append(m.Cutpoints, Coefficient{
			Name:     levels[k] + "|" + levels[k+1],
			Estimate: est,
			StdErr:   se,
			Z:        z,
			P:        2 * distuv.UnitNormal.CDF(-math.Abs(z)),
		})
	}
	return m, nil
}

// ordinalNegLL is the negative proportional-odds log-likelihood.
func ordinalNegLL(xs [][]float64, y []int, beta, theta []float64) float64 {
	nll := 0.0
	for i, row := range xs {
		eta := 0.0
		for j, b := range beta {
			eta += b * row[j]
		}

		var lo, hi float64 // cumulative probabilities bracketing level y[i]
		if y[i] == 0 {
			lo = 0
		} else {
			lo = sigmoid(theta[y[i]-1] - eta)
		}
		if y[i] == len(theta) {
			hi = 1
		} else {
			hi = sigmoid(theta[y[i]] - eta)
		}

		nll -= math.Log(math.Max(hi-lo, 1e-12))
	}
	return nll
}

func sigmoid(x float64) float64 { return 1 / (1 + math.Exp(-x)) }

// cutpointsFrom maps the unconstrained parameterization (base +
// log-increments) onto ordered cut-points.
func cutpointsFrom(raw []float64) []float64 {
	theta := make([]float64, len(raw))
	theta[0] = raw[0]
	for i := 1; i < len(raw); i++ {
		theta[i] = theta[i-1] + math.Exp(raw[i])
	}
	return theta
}

// initialCutpoints starts the cut-points at the logits of the cumulative
// outcome proportions, expressed in the unconstrained parameterization.
func initialCutpoints(counts []int) []float64 {
	total := 0
	for _, c := range counts {
		total += c
	}
	theta := make([]float64, len(counts)-1)
	cum := 0
	for k := 0; k < len(theta); k++ {
		cum += counts[k]
		pk := float64(cum) / float64(total)
		theta[k] = math.Log(pk / (1 - pk))
	}

	raw := make([]float64, len(theta))
	raw[0] = theta[0]
	for i := 1; i < len(theta); i++ {
		raw[i] = math.Log(theta[i] - theta[i-1])
	}
	return raw
}

// minimizeWithRetry runs BFGS once and, if the optimizer stops with a
// warning, retries once (polishing with Nelder–Mead from the best point)
// before giving up.
func minimizeWithRetry(fn func([]float64) float64, init []float64) (params []float64, retried bool, err error) {
	problem := optimize.Problem{
		Func: fn,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, fn, x, nil)
		},
	}

	result, err := optimize.Minimize(problem, init, nil, &optimize.BFGS{})
	if err == nil && result != nil && !math.IsInf(result.F, 0) && !math.IsNaN(result.F) {
		return result.X, false, nil
	}

	// One retry, suppressing the warning: restart from the best point seen.
	start := init
	if result != nil && len(result.X) == len(init) && !math.IsNaN(result.F) {
		start = result.X
	}
	settings := &optimize.Settings{MajorIterations: 2000}
	result, err = optimize.Minimize(optimize.Problem{Func: fn}, start, settings, &optimize.NelderMead{})
	if err != nil || result == nil || math.IsInf(result.F, 0) || math.IsNaN(result.F) {
		return nil, true, fmt.Errorf("%w: optimizer did not converge: %v", ErrFitFailure, err)
	}
	return result.X, true, nil
}

// invertHessian computes a central-difference Hessian of fn at x and
// inverts it to a covariance matrix.
func invertHessian(fn func([]float64) float64, x []float64) (*mat.Dense, error) {
	n := len(x)
	H := mat.NewDense(n, n, nil)

	h := make([]float64, n)
	for i := range x {
		h[i] = 1e-4 * (1 + math.Abs(x[i]))
	}

	at := func(deltas map[int]float64) float64 {
		pt := append([]float64{}, x...)
		for i, d := range deltas {
			pt[i] += d
		}
		return fn(pt)
	}

	f0 := fn(x)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			var v float64
			if i == j {
				v = (at(map[int]float64{i: h[i]}) - 2*f0 + at(map[int]float64{i: -h[i]})) / (h[i] * h[i])
			} else {
				v = (at(map[int]float64{i: h[i], j: h[j]}) -
					at(map[int]float64{i: h[i], j: -h[j]}) -
					at(map[int]float64{i: -h[i], j: h[j]}) +
					at(map[int]float64{i: -h[i], j: -h[j]})) / (4 * h[i] * h[j])
			}
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("hessian is not finite at the optimum")
			}
			H.Set(i, j, v)
			H.Set(j, i, v)
		}
	}

	cov := mat.NewDense(n, n, nil)
	if err := cov.Inverse(H); err != nil {
		return nil, fmt.Errorf("information matrix is singular: %v", err)
	}
	return cov, nil
}
