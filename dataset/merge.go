package dataset

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// DATASET MERGER — One analytical table from heterogeneous sources
// ============================================================================
// Left join: every employee row survives exactly once. Each employee is
// paired with their single most recent review; employees with no review
// keep all review fields null. After the join, coded fields gain resolved
// label columns and ordinal fields gain 1-based rank projections — the
// original codes are retained alongside.
//
// The merge is deterministic: identical inputs produce an identical table.
// ============================================================================

// reviewDateLayouts are tried in order when parsing ReviewDate.
var reviewDateLayouts = []string{
	"2006-01-02",
	"1/2/2006",
	"01/02/2006",
	"2006-01-02 15:04:05",
}

func parseReviewDate(s string) (time.Time, bool) {
	for _, layout := range reviewDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// MergeStats summarizes the join for the merge report.
type MergeStats struct {
	Employees         int
	Reviews           int
	WithReview        int
	WithoutReview     int
	UnresolvedLookups map[string]int // field key → count of codes/labels that did not resolve
}

// LatestReviewPerEmployee reduces the review table to one review per
// employee: the one with the maximum review date. Reviews are sorted
// stably by employee then date descending, so two reviews sharing the
// maximum date resolve to the one appearing first in input order —
// deterministic for fixed inputs. Reviews with an unparseable or missing
// date sort below all dated reviews.
func LatestReviewPerEmployee(reviews []Record) map[string]Record {
	type keyed struct {
		rec  Record
		id   string
		date time.Time
		ok   bool
	}

	rows := make([]keyed, 0, len(reviews))
	for _, r := range reviews {
		id, ok := r.Label("employee_id")
		if !ok {
			continue // a review without a join key can never match
		}
		k := keyed{rec: r, id: id}
		if raw, ok := r.Label("review_date"); ok {
			k.date, k.ok = parseReviewDate(raw)
		}
		rows = append(rows, k)
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if rows[i].id != rows[j].id {
			return rows[i].id < rows[j].id
		}
		if rows[i].ok != rows[j].ok {
			return rows[i].ok // dated reviews before undated ones
		}
		return rows[i].date.After(rows[j].date)
	})

	latest := make(map[string]Record)
	for _, k := range rows {
		if _, seen := latest[k.id]; !seen {
			latest[k.id] = k.rec
		}
	}
	return latest
}

// Merge left-joins the employee table with the most recent review per
// employee and resolves coded fields through the lookup tables. A missing
// join key column is a fatal configuration error; a missing lookup code
// is not — the label stays null and the miss is counted.
func Merge(employees, reviews []Record, lookups Lookups, sch *schema.Schema) (*Table, *MergeStats, error) {
	if !columnPresent(employees, "employee_id") {
		return nil, nil, fmt.Errorf("merge: employee table has no employee_id column")
	}
	if len(reviews) > 0 && !columnPresent(reviews, "employee_id") {
		return nil, nil, fmt.Errorf("merge: performance table has no employee_id column")
	}
	for _, f := range sch.Fields {
		if f.Lookup == "" {
			continue
		}
		if _, ok := lookups[f.Lookup]; !ok {
			return nil, nil, fmt.Errorf("merge: lookup table %q required by field %q not loaded", f.Lookup, f.Key)
		}
	}

	latest := LatestReviewPerEmployee(reviews)

	stats := &MergeStats{
		Employees:         len(employees),
		Reviews:           len(reviews),
		UnresolvedLookups: make(map[string]int),
	}

	rows := make([]Record, 0, len(employees))
	for _, emp := range employees {
		rec := emp.clone()

		if id, ok := emp.Label("employee_id"); ok {
			if rev, ok := latest[id]; ok {
				stats.WithReview++
				for k, v := range rev.Labels {
					if k == "employee_id" {
						continue
					}
					rec.Labels[k] = v
				}
				for k, v := range rev.Nums {
					rec.Nums[k] = v
				}
			} else {
				stats.WithoutReview++
			}
		} else {
			stats.WithoutReview++
		}

		resolveOrdinals(&rec, lookups, sch, stats)
		rows = append(rows, rec)
	}

	return &Table{Schema: sch, Rows: rows}, stats, nil
}

// resolveOrdinals attaches label and rank columns for every ordinal field
// whose code is present on the record.
func resolveOrdinals(rec *Record, lookups Lookups, sch *schema.Schema, stats *MergeStats) {
	for _, f := range sch.Fields {
		if f.Kind != schema.KindOrdinal {
			continue
		}
		code, ok := rec.Num(f.Key)
		if !ok {
			continue // null stays null
		}

		var label string
		if f.Lookup != "" {
			resolved, hit := lookups[f.Lookup].Label(int(code))
			if !hit {
				stats.UnresolvedLookups[f.Key]++
				continue // LookupMiss: propagate as null
			}
			label = resolved
		} else {
			// Self-describing codes (stock option level).
			label = strconv.Itoa(int(code))
		}

		rec.Labels[schema.LabelKey(f.Key)] = label

		if rank, ok := f.RankOf(label); ok {
			rec.Nums[schema.RankKey(f.Key)] = float64(rank)
		} else {
			// The label resolved but is not a declared level, so it has
			// no position in the ordinal order.
			stats.UnresolvedLookups[f.Key]++
		}
	}
}

func columnPresent(records []Record, key string) bool {
	for _, r := range records {
		if _, ok := r.Label(key); ok {
			return true
		}
	}
	return false
}
