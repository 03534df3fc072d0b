package dataset

import (
	"sort"

	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// RECORD & TABLE — The combined analytical dataset
// ============================================================================
// A Record is a single row with string labels and numeric values. Absence
// of a key means null: employees without a review simply lack the review
// keys, and an unresolved lookup code leaves the label key unset.
//
// A Table pairs rows with the declared schema and is read-only after the
// merge — every analysis receives the same immutable artifact.
// ============================================================================

// Record is one row of a source or combined table.
// Numeric fields, ordinal codes, and rank projections live in Nums;
// identifiers, factor labels, and dates live in Labels.
type Record struct {
	Labels map[string]string
	Nums   map[string]float64
}

// NewRecord allocates an empty record.
func NewRecord() Record {
	return Record{
		Labels: make(map[string]string),
		Nums:   make(map[string]float64),
	}
}

// Label returns a string cell, reporting presence.
func (r Record) Label(key string) (string, bool) {
	v, ok := r.Labels[key]
	return v, ok
}

// Num returns a numeric cell, reporting presence.
func (r Record) Num(key string) (float64, bool) {
	v, ok := r.Nums[key]
	return v, ok
}

// clone deep-copies a record so merged rows never alias source maps.
func (r Record) clone() Record {
	out := Record{
		Labels: make(map[string]string, len(r.Labels)),
		Nums:   make(map[string]float64, len(r.Nums)),
	}
	for k, v := range r.Labels {
		out.Labels[k] = v
	}
	for k, v := range r.Nums {
		out.Nums[k] = v
	}
	return out
}

// Table is the combined analytical dataset: one row per employee.
type Table struct {
	Schema *schema.Schema
	Rows   []Record
}

// Len returns the row count.
func (t *Table) Len() int { return len(t.Rows) }

// Label returns a string cell at row i.
func (t *Table) Label(i int, key string) (string, bool) {
	return t.Rows[i].Label(key)
}

// Num returns a numeric cell at row i.
func (t *Table) Num(i int, key string) (float64, bool) {
	return t.Rows[i].Num(key)
}

// FactorValue returns the categorical value of a field at row i: the
// resolved label for ordinal fields, the raw label otherwise.
func (t *Table) FactorValue(i int, f schema.Field) (string, bool) {
	if f.Kind == schema.KindOrdinal {
		return t.Rows[i].Label(schema.LabelKey(f.Key))
	}
	return t.Rows[i].Label(f.Key)
}

// Present reports whether a plan-level reference has a non-null value at
// row i. Ordinal fields count as present only when their label resolved —
// a code without a label cannot participate in factor analyses.
func (t *Table) Present(i int, ref string) bool {
	f, isRank, err := t.Schema.Resolve(ref)
	if err != nil {
		return false
	}
	if isRank {
		_, ok := t.Rows[i].Num(ref)
		return ok
	}
	switch f.Kind {
	case schema.KindNumeric:
		_, ok := t.Rows[i].Num(f.Key)
		return ok
	case schema.KindOrdinal:
		_, ok := t.Rows[i].Label(schema.LabelKey(f.Key))
		return ok
	default:
		_, ok := t.Rows[i].Label(f.Key)
		return ok
	}
}

// Numeric returns the numeric value of a reference at row i: a measure
// field or a "<ordinal>_rank" projection.
func (t *Table) Numeric(i int, ref string) (float64, bool) {
	return t.Rows[i].Num(ref)
}

// HasColumn reports whether any row carries a non-null value for ref.
// Declared predictors are intersected with columns actually present
// before model fitting.
func (t *Table) HasColumn(ref string) bool {
	for i := range t.Rows {
		if t.Present(i, ref) {
			return true
		}
	}
	return false
}

// CompleteCases returns the indices of rows with non-null values for
// every reference — the complete-case policy shared by all analyses.
func (t *Table) CompleteCases(refs ...string) []int {
	indices := make([]int, 0, len(t.Rows))
	for i := range t.Rows {
		complete := true
		for _, ref := range refs {
			if !t.Present(i, ref) {
				complete = false
				break
			}
		}
		if complete {
			indices = append(indices, i)
		}
	}
	return indices
}

// SplitByFactor partitions row indices by the factor value of a field.
// Level order: the field's declared order first (for ordinal/binary),
// then any undeclared observed levels alphabetically.
func (t *Table) SplitByFactor(indices []int, f schema.Field) (map[string][]int, []string) {
	groups := make(map[string][]int)
	for _, i := range indices {
		v, ok := t.FactorValue(i, f)
		if !ok {
			continue
		}
		groups[v] = append(groups[v], i)
	}

	var order []string
	for _, lvl := range f.Levels {
		if _, ok := groups[lvl]; ok {
			order = append(order, lvl)
		}
	}
	var extra []string
	declared := make(map[string]bool, len(f.Levels))
	for _, lvl := range f.Levels {
		declared[lvl] = true
	}
	for lvl := range groups {
		if !declared[lvl] {
			extra = append(extra, lvl)
		}
	}
	sort.Strings(extra)
	order = append(order, extra...)

	return groups, order
}

// Column extracts the numeric values of a reference at the given rows.
func (t *Table) Column(indices []int, ref string) []float64 {
	out := make([]float64, 0, len(indices))
	for _, i := range indices {
		if v, ok := t.Numeric(i, ref); ok {
			out = append(out, v)
		}
	}
	return out
}
