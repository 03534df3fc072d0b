package model

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// BINARY LOGISTIC REGRESSION — Maximum likelihood via IRLS
// ============================================================================
// Standard iteratively reweighted least squares. A singular weighted
// normal-equation solve (collinear design, perfect separation driving the
// weights to zero) surfaces as ErrFitFailure, never as a panic.
// ============================================================================

const (
	irlsMaxIter = 25
	irlsTol     = 1e-8
)

// Coefficient is one row of a coefficient table.
type Coefficient struct {
	Name     string
	Estimate float64
	StdErr   float64
	Z        float64
	P        float64

	// Exponentiated scale, populated for predictor terms of the logistic
	// and ordinal models.
	OddsRatio float64
	ORLower   float64
	ORUpper   float64
}

// LogisticModel is a fitted binary logistic regression.
type LogisticModel struct {
	Name     string
	Outcome  string
	Positive string // the outcome level the odds express
	Formula  string

	N            int
	Coefficients []Coefficient // intercept first
	LogLik       float64
	AIC          float64
	Iterations   int
	Dropped      []string
}

// FitLogistic fits outcome ~ predictors by maximum likelihood.
// Confidence intervals use the given level (e.g. 0.95).
func FitLogistic(tbl *dataset.Table, spec schema.ModelSpec, confLevel float64) (*LogisticModel, error) {
	f, _, err := tbl.Schema.Resolve(spec.Outcome)
	if err != nil {
		return nil, err
	}
	if f.Kind != schema.KindBinary || len(f.Levels) != 2 {
		return nil, fmt.Errorf("logistic outcome %q must be binary", spec.Outcome)
	}
	positive := f.Levels[1]

	design, err := BuildDesign(tbl, spec.Outcome, spec.Predictors)
	if err != nil {
		return nil, err
	}

	n := len(design.Rows)
	y := make([]float64, n)
	ones := 0
	for k, i := range design.Rows {
		if v, _ := tbl.FactorValue(i, f); v == positive {
			y[k] = 1
			ones++
		}
	}
	if ones == 0 || ones == n {
		return nil, fmt.Errorf("%w: outcome %q has a single level in the complete cases", ErrInsufficientData, spec.Outcome)
	}

	beta, cov, ll, iters, err := irls(design.X, y)
	if err != nil {
		return nil, err
	}

	p := design.NCols()
	m := &LogisticModel{
		Name:       spec.Name,
		Outcome:    spec.Outcome,
		Positive:   positive,
		Formula:    formula(spec.Outcome, spec.Predictors),
		N:          n,
		LogLik:     ll,
		AIC:        -2*ll + 2*float64(p),
		Iterations: iters,
		Dropped:    design.Dropped,
	}

	q := distuv.UnitNormal.Quantile(0.5 + confLevel/2)
	names := append([]string{"(Intercept)"}, termNames(design.Terms)...)
	for j := 0; j < p; j++ {
		est := beta.AtVec(j)
		se := math.Sqrt(cov.At(j, j))
		z := est / se
		c := Coefficient{
			Name:     names[j],
			Estimate: est,
			StdErr:   se,
			Z:        z,
			P:        2 * distuv.UnitNormal.CDF(-math.Abs(z)),
		}
		if j > 0 {
			c.OddsRatio = math.Exp(est)
			c.ORLower = math.Exp(est - q*se)
			c.ORUpper = math.Exp(est + q*se)
		}
		m.Coefficients = append(m.Coefficients, c)
	}
	return m, nil
}

// irls runs iteratively reweighted least squares for the logit link.
func irls(X *mat.Dense, y []float64) (beta *mat.VecDense, cov *mat.Dense, ll float64, iters int, err error) {
	n, p := X.Dims()
	beta = mat.NewVecDense(p, nil)

	eta := mat.NewVecDense(n, nil)
	w := make([]float64, n)
	z := mat.NewVecDense(n, nil)

	llOld := math.Inf(-1)
	var A mat.Dense
	var b mat.VecDense

	for iters = 1; iters <= irlsMaxIter; iters++ {
		eta.MulVec(X, beta)

		ll = 0
		for i := 0; i < n; i++ {
			e := eta.AtVec(i)
			mu := 1 / (1 + math.Exp(-e))
			// Clamp so perfect separation degrades gracefully instead of
			// producing NaN working responses.
			wi := math.Max(mu*(1-mu), 1e-10)
			w[i] = wi
			z.SetVec(i, e+(y[i]-mu)/wi)

			if y[i] == 1 {
				ll += math.Log(math.Max(mu, 1e-300))
			} else {
				ll += math.Log(math.Max(1-mu, 1e-300))
			}
		}

		W := mat.NewDiagDense(n, w)
		A.Product(X.T(), W, X)
		b.MulVec(X.T(), mulDiagVec(W, z))

		var next mat.VecDense
		if err := next.SolveVec(&A, &b); err != nil {
			return nil, nil, 0, iters, fmt.Errorf("%w: singular weighted design: %v", ErrFitFailure, err)
		}
		beta.CopyVec(&next)

		if math.Abs(ll-llOld) < irlsTol*(math.Abs(ll)+0.1) {
			break
		}
		llOld = ll
	}

	cov = mat.NewDense(p, p, nil)
	if err := cov.Inverse(&A); err != nil {
		return nil, nil, 0, iters, fmt.Errorf("%w: information matrix is singular: %v", ErrFitFailure, err)
	}
	return beta, cov, ll, iters, nil
}

func mulDiagVec(d *mat.DiagDense, v *mat.VecDense) *mat.VecDense {
	n := v.Len()
	out := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		out.SetVec(i, d.At(i, i)*v.AtVec(i))
	}
	return out
}

func termNames(terms []Term) []string {
	names := make([]string, len(terms))
	for i, t := range terms {
		names[i] = t.Name()
	}
	return names
}

func formula(outcome string, predictors []string) string {
	return outcome + " ~ " + strings.Join(predictors, " + ")
}
