package stats

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/hrlens-org/hrlens/dataset"
)

// ============================================================================
// CORRELATION SCREEN — Pearson correlation against a single target
// ============================================================================
// A quick driver ranking: each candidate field is correlated with the
// target over their pairwise complete cases. Ordinal fields participate
// through their rank projections.
// ============================================================================

// CorrelationEntry is the correlation of one field with the target.
type CorrelationEntry struct {
	Field string
	N     int
	R     float64
}

// CorrelationResult ranks candidate fields by |r| against the target.
type CorrelationResult struct {
	Target  string
	Entries []CorrelationEntry // sorted by |r| descending
	Skipped []string           // fields with too few complete pairs or zero variance
}

// Correlate computes Pearson correlations of each field with target.
// Fields that cannot be correlated (fewer than 3 complete pairs, or no
// variance) are listed under Skipped rather than failing the screen.
func Correlate(tbl *dataset.Table, target string, fields []string) (*CorrelationResult, error) {
	if len(fields) == 0 {
		return nil, fmt.Errorf("%w: no fields to correlate", ErrInsufficientData)
	}

	res := &CorrelationResult{Target: target}
	for _, field := range fields {
		rows := tbl.CompleteCases(target, field)
		if len(rows) < 3 {
			res.Skipped = append(res.Skipped, field)
			continue
		}
		x := tbl.Column(rows, target)
		y := tbl.Column(rows, field)
		r := stat.Correlation(x, y, nil)
		if math.IsNaN(r) {
			res.Skipped = append(res.Skipped, field)
			continue
		}
		res.Entries = append(res.Entries, CorrelationEntry{Field: field, N: len(rows), R: r})
	}

	if len(res.Entries) == 0 {
		return nil, fmt.Errorf("%w: no field could be correlated with %q", ErrInsufficientData, target)
	}

	sort.SliceStable(res.Entries, func(i, j int) bool {
		return math.Abs(res.Entries[i].R) > math.Abs(res.Entries[j].R)
	})
	return res, nil
}
