package model

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// ONE-WAY ANOVA + TUKEY HSD
// ============================================================================
// Single-factor analysis of variance. With one factor the Type II sum of
// squares equals the classical decomposition — the point of declaring
// Type II is that effect attribution never depends on term order.
//
// The Tukey HSD post-hoc runs only when the omnibus F-test is significant
// at alpha AND the grouping has more than 2 levels; with exactly 2 levels
// the omnibus test already identifies the differing pair.
// ============================================================================

// GroupStat summarizes one level of the grouping variable.
type GroupStat struct {
	Level string
	N     int
	Mean  float64
}

// TukeyPair is one pairwise comparison significant after HSD adjustment.
type TukeyPair struct {
	A, B       string
	Diff       float64 // mean(B) − mean(A)
	Lower      float64
	Upper      float64
	AdjustedP  float64
}

// ANOVAResult is a complete one-way ANOVA with optional post-hoc output.
type ANOVAResult struct {
	Name     string
	Response string
	Group    string

	N      int
	Groups []GroupStat

	DFBetween, DFWithin int
	SSBetween, SSWithin float64
	F, P                float64

	Warnings []string // e.g. groups with fewer than 2 observations

	TukeyRun   bool
	TukeyPairs []TukeyPair // only pairs significant after adjustment
}

// Significant reports whether the omnibus test clears alpha.
func (r ANOVAResult) Significant(alpha float64) bool { return r.P < alpha }

// OneWayANOVA runs the omnibus F-test of response across group levels and
// the Tukey HSD post-hoc when warranted at the given alpha.
func OneWayANOVA(tbl *dataset.Table, spec schema.ANOVASpec, alpha float64) (*ANOVAResult, error) {
	gf, _, err := tbl.Schema.Resolve(spec.Group)
	if err != nil {
		return nil, err
	}

	rows := tbl.CompleteCases(spec.Response, spec.Group)
	groups, order := tbl.SplitByFactor(rows, gf)
	if len(order) < 2 {
		return nil, fmt.Errorf("%w: grouping %q has %d level(s) with data, need at least 2",
			ErrInsufficientData, spec.Group, len(order))
	}

	res := &ANOVAResult{
		Name:     spec.Name,
		Response: spec.Response,
		Group:    spec.Group,
		N:        len(rows),
	}

	k := len(order)
	values := make(map[string][]float64, k)
	var all []float64
	for _, lvl := range order {
		vals := tbl.Column(groups[lvl], spec.Response)
		values[lvl] = vals
		all = append(all, vals...)
		res.Groups = append(res.Groups, GroupStat{Level: lvl, N: len(vals), Mean: stat.Mean(vals, nil)})
		if len(vals) < 2 {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("group %q has only %d observation(s)", lvl, len(vals)))
		}
	}

	n := len(all)
	if n-k < 1 {
		return nil, fmt.Errorf("%w: %d observations across %d groups leave no residual degrees of freedom",
			ErrInsufficientData, n, k)
	}

	grand := stat.Mean(all, nil)
	for i, lvl := range order {
		g := res.Groups[i]
		res.SSBetween += float64(g.N) * (g.Mean - grand) * (g.Mean - grand)
		for _, v := range values[lvl] {
			res.SSWithin += (v - g.Mean) * (v - g.Mean)
		}
	}

	res.DFBetween = k - 1
	res.DFWithin = n - k

	msWithin := res.SSWithin / float64(res.DFWithin)
	if msWithin == 0 {
		if res.SSBetween == 0 {
			return nil, fmt.Errorf("%w: response %q is constant", ErrInsufficientData, spec.Response)
		}
		// Groups separate perfectly: the F statistic is unbounded.
		res.F = math.Inf(1)
		res.P = 0
	} else {
		res.F = (res.SSBetween / float64(res.DFBetween)) / msWithin
		res.P = distuv.F{D1: float64(res.DFBetween), D2: float64(res.DFWithin)}.Survival(res.F)
	}

	if res.P < alpha && k > 2 && msWithin > 0 {
		res.TukeyRun = true
		res.TukeyPairs = tukeyHSD(res.Groups, msWithin, res.DFWithin, alpha)
	}

	return res, nil
}

// tukeyHSD runs the Tukey–Kramer pairwise procedure and keeps only the
// pairs that remain significant after adjustment.
func tukeyHSD(groups []GroupStat, msWithin float64, dfWithin int, alpha float64) []TukeyPair {
	k := len(groups)
	qCrit := qTukey(1-alpha, k, float64(dfWithin))

	var out []TukeyPair
	for a := 0; a < k; a++ {
		for b := a + 1; b < k; b++ {
			ga, gb := groups[a], groups[b]
			se := math.Sqrt(msWithin / 2 * (1/float64(ga.N) + 1/float64(gb.N)))
			if se == 0 {
				continue
			}
			diff := gb.Mean - ga.Mean
			q := math.Abs(diff) / se
			p := 1 - pTukey(q, k, float64(dfWithin))
			if p < alpha {
				out = append(out, TukeyPair{
					A:         ga.Level,
					B:         gb.Level,
					Diff:      diff,
					Lower:     diff - qCrit*se,
					Upper:     diff + qCrit*se,
					AdjustedP: p,
				})
			}
		}
	}
	return out
}
