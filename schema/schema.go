package schema

import (
	"fmt"
	"strings"
)

// ============================================================================
// SCHEMA — Declared field types for the analytical dataset
// ============================================================================
// Unlike auto-discovered schemas, every field here is declared up front:
// the analysis depends on ordinal orderings that cannot be inferred from
// the data (education level order is domain knowledge, not code order).
//
// The dataset package uses the schema for CSV parsing, lookup resolution,
// and rank projection. The model package uses it for design-matrix
// encoding (reference levels, dummy ordering).
// ============================================================================

// Kind classifies how a field participates in analysis.
type Kind int

const (
	// KindIdentifier is a join/primary key. Never used as a variable.
	KindIdentifier Kind = iota
	// KindNumeric is a continuous measure (salary, age, distance).
	KindNumeric
	// KindCategorical is an unordered factor (department, job role).
	KindCategorical
	// KindOrdinal is an ordered factor with a declared total order.
	KindOrdinal
	// KindBinary is a two-level factor with a fixed reference level.
	KindBinary
	// KindDate is a calendar date, used only for ordering (review recency).
	KindDate
	// KindText is free text carried through unanalyzed (names).
	KindText
)

func (k Kind) String() string {
	switch k {
	case KindIdentifier:
		return "identifier"
	case KindNumeric:
		return "numeric"
	case KindCategorical:
		return "categorical"
	case KindOrdinal:
		return "ordinal"
	case KindBinary:
		return "binary"
	case KindDate:
		return "date"
	case KindText:
		return "text"
	}
	return "unknown"
}

// Field describes one column of the combined analytical table.
type Field struct {
	Key         string // snake_case key used throughout the pipeline
	DisplayName string // human-readable name for reports
	Kind        Kind

	// Levels declares the total order for ordinal fields (ascending) and
	// the [reference, positive] pair for binary fields. For categorical
	// fields it is empty — level order is alphabetical at encoding time.
	Levels []string

	// Lookup names the lookup table that resolves this field's integer
	// codes to labels ("education", "satisfaction", "rating"). Empty for
	// ordinal fields whose codes are self-describing (stock option level).
	Lookup string

	// FromReview marks fields that arrive via the performance table and
	// are therefore null for employees with no review.
	FromReview bool
}

// IsOrdered reports whether the field carries a declared level order.
func (f Field) IsOrdered() bool { return f.Kind == KindOrdinal || f.Kind == KindBinary }

// RankOf returns the 1-based position of label in the field's declared
// order, or false when the label is not a declared level.
func (f Field) RankOf(label string) (int, bool) {
	for i, l := range f.Levels {
		if l == label {
			return i + 1, true
		}
	}
	return 0, false
}

// LabelKey returns the key under which the merge stores the resolved
// label for a coded field ("education" → "education_label").
func LabelKey(key string) string { return key + "_label" }

// RankKey returns the key under which the merge stores the 1-based
// ordinal rank projection ("job_satisfaction" → "job_satisfaction_rank").
func RankKey(key string) string { return key + "_rank" }

// Schema is the full set of declared fields, keyed for lookup.
type Schema struct {
	Fields []Field
	byKey  map[string]Field
}

// New builds a Schema from a field list. Duplicate keys are a
// configuration error.
func New(fields []Field) (*Schema, error) {
	s := &Schema{Fields: fields, byKey: make(map[string]Field, len(fields))}
	for _, f := range fields {
		if f.Key == "" {
			return nil, fmt.Errorf("schema: field with empty key (display name %q)", f.DisplayName)
		}
		if _, dup := s.byKey[f.Key]; dup {
			return nil, fmt.Errorf("schema: duplicate field key %q", f.Key)
		}
		s.byKey[f.Key] = f
	}
	return s, nil
}

// Field returns the declared field for a key.
func (s *Schema) Field(key string) (Field, bool) {
	f, ok := s.byKey[key]
	return f, ok
}

// DisplayName returns the display name for a plain or "_rank" reference,
// falling back to the reference itself for unknown keys.
func (s *Schema) DisplayName(ref string) string {
	if f, ok := s.byKey[ref]; ok {
		return f.DisplayName
	}
	if base, found := strings.CutSuffix(ref, "_rank"); found {
		if f, ok := s.byKey[base]; ok {
			return f.DisplayName + " (rank)"
		}
	}
	return ref
}

// EmployeeFields returns the fields sourced from the employee table.
func (s *Schema) EmployeeFields() []Field {
	var out []Field
	for _, f := range s.Fields {
		if !f.FromReview {
			out = append(out, f)
		}
	}
	return out
}

// ReviewFields returns the fields sourced from the performance table,
// plus the employee identifier that joins the two.
func (s *Schema) ReviewFields() []Field {
	var out []Field
	if id, ok := s.byKey["employee_id"]; ok {
		out = append(out, id)
	}
	for _, f := range s.Fields {
		if f.FromReview {
			out = append(out, f)
		}
	}
	return out
}

// Resolve maps a plan-level variable reference onto its field. It accepts
// plain field keys and "<ordinal>_rank" references to numeric projections,
// in which case numeric=true is returned.
func (s *Schema) Resolve(ref string) (Field, bool, error) {
	if f, ok := s.byKey[ref]; ok {
		return f, false, nil
	}
	if base, found := strings.CutSuffix(ref, "_rank"); found {
		f, ok := s.byKey[base]
		if !ok {
			return Field{}, false, fmt.Errorf("schema: unknown field %q", ref)
		}
		if f.Kind != KindOrdinal {
			return Field{}, false, fmt.Errorf("schema: %q has no rank projection (field is %s, not ordinal)", ref, f.Kind)
		}
		return f, true, nil
	}
	return Field{}, false, fmt.Errorf("schema: unknown field %q", ref)
}

// ============================================================================
// DECLARED LEVEL ORDERS
// ============================================================================
// These orders are domain knowledge, supplied externally. They must never
// be inferred from lookup code values or insertion order.
// ============================================================================

// EducationLevels in ascending order of attainment.
var EducationLevels = []string{
	"No Formal Qualifications",
	"High School",
	"Bachelors",
	"Masters",
	"Doctorate",
}

// SatisfactionLevels in ascending order. Shared by the three satisfaction
// scales and work-life balance.
var SatisfactionLevels = []string{
	"Very Dissatisfied",
	"Dissatisfied",
	"Neutral",
	"Satisfied",
	"Very Satisfied",
}

// RatingLevels in ascending order. Shared by self and manager ratings.
var RatingLevels = []string{
	"Unacceptable",
	"Needs Improvement",
	"Meets Expectation",
	"Exceeds Expectation",
	"Above and Beyond",
}

// StockOptionLevels: the codes are self-describing but the order is still
// declared explicitly rather than assumed.
var StockOptionLevels = []string{"0", "1", "2", "3"}

// AttritionLevels: reference level first, positive level second, so odds
// ratios consistently express "odds of Yes".
var AttritionLevels = []string{"No", "Yes"}

// Default returns the declared schema of the combined HR table: employee
// attributes plus the most-recent-review fields.
func Default() *Schema {
	s, err := New([]Field{
		{Key: "employee_id", DisplayName: "Employee ID", Kind: KindIdentifier},
		{Key: "first_name", DisplayName: "First Name", Kind: KindText},
		{Key: "last_name", DisplayName: "Last Name", Kind: KindText},
		{Key: "gender", DisplayName: "Gender", Kind: KindCategorical},
		{Key: "age", DisplayName: "Age", Kind: KindNumeric},
		{Key: "business_travel", DisplayName: "Business Travel", Kind: KindCategorical},
		{Key: "department", DisplayName: "Department", Kind: KindCategorical},
		{Key: "distance_from_home", DisplayName: "Distance From Home", Kind: KindNumeric},
		{Key: "ethnicity", DisplayName: "Ethnicity", Kind: KindCategorical},
		{Key: "education", DisplayName: "Education", Kind: KindOrdinal, Levels: EducationLevels, Lookup: "education"},
		{Key: "education_field", DisplayName: "Education Field", Kind: KindCategorical},
		{Key: "job_role", DisplayName: "Job Role", Kind: KindCategorical},
		{Key: "marital_status", DisplayName: "Marital Status", Kind: KindCategorical},
		{Key: "salary", DisplayName: "Salary", Kind: KindNumeric},
		{Key: "stock_option_level", DisplayName: "Stock Option Level", Kind: KindOrdinal, Levels: StockOptionLevels},
		{Key: "over_time", DisplayName: "Overtime", Kind: KindCategorical},
		{Key: "hire_date", DisplayName: "Hire Date", Kind: KindDate},
		{Key: "attrition", DisplayName: "Attrition", Kind: KindBinary, Levels: AttritionLevels},
		{Key: "years_at_company", DisplayName: "Years At Company", Kind: KindNumeric},
		{Key: "years_in_most_recent_role", DisplayName: "Years In Most Recent Role", Kind: KindNumeric},
		{Key: "years_since_last_promotion", DisplayName: "Years Since Last Promotion", Kind: KindNumeric},
		{Key: "years_with_curr_manager", DisplayName: "Years With Current Manager", Kind: KindNumeric},

		// Review-level fields (null for employees with no review).
		{Key: "performance_id", DisplayName: "Performance ID", Kind: KindIdentifier, FromReview: true},
		{Key: "review_date", DisplayName: "Review Date", Kind: KindDate, FromReview: true},
		{Key: "environment_satisfaction", DisplayName: "Environment Satisfaction", Kind: KindOrdinal, Levels: SatisfactionLevels, Lookup: "satisfaction", FromReview: true},
		{Key: "job_satisfaction", DisplayName: "Job Satisfaction", Kind: KindOrdinal, Levels: SatisfactionLevels, Lookup: "satisfaction", FromReview: true},
		{Key: "relationship_satisfaction", DisplayName: "Relationship Satisfaction", Kind: KindOrdinal, Levels: SatisfactionLevels, Lookup: "satisfaction", FromReview: true},
		{Key: "work_life_balance", DisplayName: "Work-Life Balance", Kind: KindOrdinal, Levels: SatisfactionLevels, Lookup: "satisfaction", FromReview: true},
		{Key: "self_rating", DisplayName: "Self Rating", Kind: KindOrdinal, Levels: RatingLevels, Lookup: "rating", FromReview: true},
		{Key: "manager_rating", DisplayName: "Manager Rating", Kind: KindOrdinal, Levels: RatingLevels, Lookup: "rating", FromReview: true},
		{Key: "training_opportunities_within_year", DisplayName: "Training Opportunities Within Year", Kind: KindNumeric, FromReview: true},
		{Key: "training_opportunities_taken", DisplayName: "Training Opportunities Taken", Kind: KindNumeric, FromReview: true},
	})
	if err != nil {
		panic(err) // the built-in schema is static; a failure here is a programming error
	}
	return s
}
