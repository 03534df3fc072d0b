package stats

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/hrlens-org/hrlens/dataset"
)

// ============================================================================
// CATEGORICAL ASSOCIATION — Chi-squared with simulated p-value
// ============================================================================
// The p-value is always computed by Monte Carlo simulation (permuting
// outcome labels, margins held by construction) so it never leans on the
// asymptotic approximation being valid. The asymptotic p-value is kept
// alongside for reference, and any expected cell count below 5 raises an
// advisory — simulation or not, sparse tables deserve a flag.
// ============================================================================

// DefaultSimulations is the Monte Carlo replicate count used when the
// caller does not override it.
const DefaultSimulations = 2000

// ContingencyTable is an observed factor × outcome count table built over
// rows where both variables are non-null.
type ContingencyTable struct {
	FactorLevels  []string
	OutcomeLevels []string
	Counts        [][]int // [factor][outcome]
}

// Total returns the grand total of the table.
func (c ContingencyTable) Total() int {
	n := 0
	for _, row := range c.Counts {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// AssociationResult is the outcome of one chi-squared association test.
type AssociationResult struct {
	Outcome string
	Factor  string

	Table       ContingencyTable
	Statistic   float64
	DF          int
	PValue      float64 // Monte Carlo simulated
	AsymptoticP float64 // reference only
	Simulations int
	LowExpected bool // advisory: some expected count < 5
}

// Significant reports whether the simulated p-value clears alpha.
func (r AssociationResult) Significant(alpha float64) bool {
	return r.PValue < alpha
}

// Associate builds the contingency table of factor × outcome and runs the
// chi-squared test with a simulated p-value. The table must have at least
// 2 populated rows and 2 populated columns.
func Associate(tbl *dataset.Table, outcome, factor string, sims int, seed int64) (*AssociationResult, error) {
	outField, _, err := tbl.Schema.Resolve(outcome)
	if err != nil {
		return nil, err
	}
	facField, _, err := tbl.Schema.Resolve(factor)
	if err != nil {
		return nil, err
	}
	if sims <= 0 {
		sims = DefaultSimulations
	}

	rows := tbl.CompleteCases(outcome, factor)

	// Per-observation level indices, excluding null cells.
	_, facOrder := tbl.SplitByFactor(rows, facField)
	_, outOrder := tbl.SplitByFactor(rows, outField)
	if len(facOrder) < 2 || len(outOrder) < 2 {
		return nil, fmt.Errorf("%w: invalid table for %q by %q (%d × %d populated levels)",
			ErrInsufficientData, factor, outcome, len(facOrder), len(outOrder))
	}

	facIdx := indexOf(facOrder)
	outIdx := indexOf(outOrder)

	fobs := make([]int, 0, len(rows))
	oobs := make([]int, 0, len(rows))
	for _, i := range rows {
		fv, _ := tbl.FactorValue(i, facField)
		ov, _ := tbl.FactorValue(i, outField)
		fobs = append(fobs, facIdx[fv])
		oobs = append(oobs, outIdx[ov])
	}

	counts := tally(fobs, oobs, len(facOrder), len(outOrder))
	observed := chiSquared(counts)

	// Monte Carlo: permute the outcome vector, margins preserved.
	rng := rand.New(rand.NewSource(seed))
	perm := make([]int, len(oobs))
	copy(perm, oobs)
	exceed := 0
	for b := 0; b < sims; b++ {
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		if chiSquared(tally(fobs, perm, len(facOrder), len(outOrder))) >= observed-1e-12 {
			exceed++
		}
	}
	simP := float64(1+exceed) / float64(1+sims)

	df := (len(facOrder) - 1) * (len(outOrder) - 1)
	asymP := distuv.ChiSquared{K: float64(df)}.Survival(observed)

	return &AssociationResult{
		Outcome: outcome,
		Factor:  factor,
		Table: ContingencyTable{
			FactorLevels:  facOrder,
			OutcomeLevels: outOrder,
			Counts:        counts,
		},
		Statistic:   observed,
		DF:          df,
		PValue:      simP,
		AsymptoticP: asymP,
		Simulations: sims,
		LowExpected: hasLowExpected(counts),
	}, nil
}

func indexOf(levels []string) map[string]int {
	m := make(map[string]int, len(levels))
	for i, l := range levels {
		m[l] = i
	}
	return m
}

func tally(fobs, oobs []int, nf, no int) [][]int {
	counts := make([][]int, nf)
	for i := range counts {
		counts[i] = make([]int, no)
	}
	for k := range fobs {
		counts[fobs[k]][oobs[k]]++
	}
	return counts
}

// chiSquared computes Pearson's X² for a count table. Cells whose
// expected count is zero (an empty margin in a permuted table cannot
// occur, but guard anyway) contribute nothing.
func chiSquared(counts [][]int) float64 {
	nf, no := len(counts), len(counts[0])
	rowSum := make([]float64, nf)
	colSum := make([]float64, no)
	total := 0.0
	for i := 0; i < nf; i++ {
		for j := 0; j < no; j++ {
			v := float64(counts[i][j])
			rowSum[i] += v
			colSum[j] += v
			total += v
		}
	}

	x2 := 0.0
	for i := 0; i < nf; i++ {
		for j := 0; j < no; j++ {
			e := rowSum[i] * colSum[j] / total
			if e > 0 {
				d := float64(counts[i][j]) - e
				x2 += d * d / e
			}
		}
	}
	return x2
}

func hasLowExpected(counts [][]int) bool {
	nf, no := len(counts), len(counts[0])
	rowSum := make([]float64, nf)
	colSum := make([]float64, no)
	total := 0.0
	for i := 0; i < nf; i++ {
		for j := 0; j < no; j++ {
			v := float64(counts[i][j])
			rowSum[i] += v
			colSum[j] += v
			total += v
		}
	}
	for i := 0; i < nf; i++ {
		for j := 0; j < no; j++ {
			if rowSum[i]*colSum[j]/total < 5 {
				return true
			}
		}
	}
	return false
}
