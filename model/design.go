package model

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// DESIGN MATRIX — Shared fitting discipline for every model family
// ============================================================================
// 1. Intersect the declared predictor set with columns actually present.
// 2. Restrict to rows with no null in outcome or any surviving predictor
//    (complete-case policy — no imputation).
// 3. Encode: numeric/rank references as single columns, factors as
//    treatment-coded dummies against the first level (declared order for
//    ordinal/binary, alphabetical for plain categoricals).
// Factors left with a single level after filtering contribute nothing
// and are recorded as dropped.
// ============================================================================

// Term names one design-matrix column after the intercept.
type Term struct {
	Ref   string // predictor reference
	Level string // dummy level; empty for numeric terms
}

// Name renders the term the way the coefficient table shows it.
func (t Term) Name() string {
	if t.Level == "" {
		return t.Ref
	}
	return t.Ref + "[" + t.Level + "]"
}

// Design is a fitted-ready design matrix with provenance.
type Design struct {
	X     *mat.Dense // n × (1 + len(Terms)); column 0 is the intercept
	Terms []Term
	Rows  []int // table row indices of the complete cases used

	// Dropped lists predictors excluded before fitting, with reasons.
	Dropped []string
}

// NCols returns the number of columns including the intercept.
func (d *Design) NCols() int { return 1 + len(d.Terms) }

// BuildDesign applies the shared fitting discipline for outcome and the
// declared predictors, returning the encoded matrix.
func BuildDesign(tbl *dataset.Table, outcome string, predictors []string) (*Design, error) {
	d := &Design{}

	// 1. Intersect with columns actually present.
	var usable []string
	for _, ref := range predictors {
		if tbl.HasColumn(ref) {
			usable = append(usable, ref)
		} else {
			d.Dropped = append(d.Dropped, ref+" (no data)")
		}
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: no declared predictor has data", ErrInsufficientData)
	}

	// 2. Complete cases across outcome and predictors.
	refs := append([]string{outcome}, usable...)
	d.Rows = tbl.CompleteCases(refs...)
	if len(d.Rows) == 0 {
		return nil, fmt.Errorf("%w: zero complete cases for outcome %q", ErrInsufficientData, outcome)
	}

	// 3. Encode columns.
	type column struct {
		term   Term
		values []float64
	}
	var cols []column

	for _, ref := range usable {
		f, isRank, err := tbl.Schema.Resolve(ref)
		if err != nil {
			return nil, err
		}

		if isRank || f.Kind == schema.KindNumeric {
			vals := make([]float64, len(d.Rows))
			for k, i := range d.Rows {
				v, _ := tbl.Numeric(i, ref)
				vals[k] = v
			}
			cols = append(cols, column{term: Term{Ref: ref}, values: vals})
			continue
		}

		// Factor predictor: treatment coding against the first level.
		_, order := tbl.SplitByFactor(d.Rows, f)
		if len(order) < 2 {
			d.Dropped = append(d.Dropped, ref+" (single level after filtering)")
			continue
		}
		for _, lvl := range order[1:] {
			vals := make([]float64, len(d.Rows))
			for k, i := range d.Rows {
				if v, _ := tbl.FactorValue(i, f); v == lvl {
					vals[k] = 1
				}
			}
			cols = append(cols, column{term: Term{Ref: ref, Level: lvl}, values: vals})
		}
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("%w: every predictor degenerated after complete-case filtering", ErrInsufficientData)
	}

	n := len(d.Rows)
	X := mat.NewDense(n, 1+len(cols), nil)
	for i := 0; i < n; i++ {
		X.Set(i, 0, 1)
	}
	for j, c := range cols {
		d.Terms = append(d.Terms, c.term)
		for i := 0; i < n; i++ {
			X.Set(i, j+1, c.values[i])
		}
	}
	d.X = X
	return d, nil
}
