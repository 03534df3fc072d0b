package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hrlens-org/hrlens/dataset"
)

// ============================================================================
// NUMERIC COMPARISON — Two-sample tests of a measure across a binary outcome
// ============================================================================
// Primary: Welch's unequal-variance t-test. Fallback: Wilcoxon rank-sum
// (normal approximation with tie correction). If neither can run, the
// comparison reports "could not test" instead of erroring the pipeline.
// Only rows where both outcome and measure are non-null participate.
// ============================================================================

// GroupSummary describes one outcome level's observations.
type GroupSummary struct {
	Level string
	N     int
	Mean  float64
}

// ComparisonResult is the outcome of one numeric comparison.
type ComparisonResult struct {
	Outcome string // binary field key
	Measure string // numeric reference

	Method    string // "welch-t" or "wilcoxon"
	Statistic float64
	DF        float64 // Welch–Satterthwaite df; 0 for Wilcoxon
	PValue    float64
	Groups    []GroupSummary
}

// Significant reports whether the comparison is significant at alpha.
func (r ComparisonResult) Significant(alpha float64) bool {
	return r.PValue < alpha
}

// CompareNumeric runs the two-sample comparison of measure across the two
// levels of a binary outcome.
func CompareNumeric(tbl *dataset.Table, outcome, measure string) (*ComparisonResult, error) {
	f, _, err := tbl.Schema.Resolve(outcome)
	if err != nil {
		return nil, err
	}
	if len(f.Levels) != 2 {
		return nil, fmt.Errorf("%w: outcome %q is not two-level", ErrInsufficientData, outcome)
	}

	rows := tbl.CompleteCases(outcome, measure)
	groups, order := tbl.SplitByFactor(rows, f)
	if len(order) != 2 {
		return nil, fmt.Errorf("%w: outcome %q has %d level(s) with data, need 2", ErrInsufficientData, outcome, len(order))
	}

	x := tbl.Column(groups[order[0]], measure)
	y := tbl.Column(groups[order[1]], measure)

	res := &ComparisonResult{
		Outcome: outcome,
		Measure: measure,
		Groups: []GroupSummary{
			{Level: order[0], N: len(x), Mean: stat.Mean(x, nil)},
			{Level: order[1], N: len(y), Mean: stat.Mean(y, nil)},
		},
	}

	if t, df, p, err := WelchT(x, y); err == nil {
		res.Method = "welch-t"
		res.Statistic, res.DF, res.PValue = t, df, p
		return res, nil
	}

	if w, p, err := Wilcoxon(x, y); err == nil {
		res.Method = "wilcoxon"
		res.Statistic, res.PValue = w, p
		return res, nil
	}

	return nil, fmt.Errorf("%w: neither Welch's t-test nor Wilcoxon rank-sum was applicable for %q by %q", ErrCannotTest, measure, outcome)
}

// WelchT computes Welch's unequal-variance two-sample t-test. It requires
// at least 2 observations per group and a positive pooled variance term.
func WelchT(x, y []float64) (t, df, p float64, err error) {
	if len(x) < 2 || len(y) < 2 {
		return 0, 0, 0, fmt.Errorf("%w: need at least 2 observations per group (have %d and %d)", ErrInsufficientData, len(x), len(y))
	}

	mx, my := stat.Mean(x, nil), stat.Mean(y, nil)
	vx, vy := stat.Variance(x, nil), stat.Variance(y, nil)
	nx, ny := float64(len(x)), float64(len(y))

	se2 := vx/nx + vy/ny
	if se2 <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: zero variance in both groups", ErrInsufficientData)
	}

	t = (mx - my) / math.Sqrt(se2)

	// Welch–Satterthwaite degrees of freedom.
	df = se2 * se2 / (vx*vx/(nx*nx*(nx-1)) + vy*vy/(ny*ny*(ny-1)))
	if math.IsNaN(df) || df <= 0 {
		return 0, 0, 0, fmt.Errorf("%w: degenerate degrees of freedom", ErrInsufficientData)
	}

	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	p = 2 * dist.CDF(-math.Abs(t))
	return t, df, p, nil
}

// Wilcoxon computes the two-sample Wilcoxon rank-sum (Mann–Whitney) test
// using the normal approximation with tie correction and continuity
// correction. Returns the rank-sum statistic W for the first group.
func Wilcoxon(x, y []float64) (w, p float64, err error) {
	if len(x) < 1 || len(y) < 1 {
		return 0, 0, fmt.Errorf("%w: empty group", ErrInsufficientData)
	}

	nx, ny := float64(len(x)), float64(len(y))
	n := nx + ny

	type obs struct {
		v     float64
		first bool
	}
	all := make([]obs, 0, len(x)+len(y))
	for _, v := range x {
		all = append(all, obs{v, true})
	}
	for _, v := range y {
		all = append(all, obs{v, false})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].v < all[j].v })

	// Midranks with tie bookkeeping.
	ranks := make([]float64, len(all))
	tieTerm := 0.0
	for i := 0; i < len(all); {
		j := i
		for j < len(all) && all[j].v == all[i].v {
			j++
		}
		mid := float64(i+j+1) / 2 // average of 1-based ranks i+1..j
		for k := i; k < j; k++ {
			ranks[k] = mid
		}
		t := float64(j - i)
		tieTerm += t*t*t - t
		i = j
	}

	for i, o := range all {
		if o.first {
			w += ranks[i]
		}
	}

	mean := nx * (n + 1) / 2
	variance := nx * ny / 12 * ((n + 1) - tieTerm/(n*(n-1)))
	if variance <= 0 {
		return 0, 0, fmt.Errorf("%w: all observations tied", ErrInsufficientData)
	}

	z := w - mean
	// Continuity correction toward the mean.
	switch {
	case z > 0.5:
		z -= 0.5
	case z < -0.5:
		z += 0.5
	default:
		z = 0
	}
	z /= math.Sqrt(variance)

	p = 2 * distuv.UnitNormal.CDF(-math.Abs(z))
	if p > 1 {
		p = 1
	}
	return w, p, nil
}
