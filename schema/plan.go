package schema

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// ============================================================================
// ANALYSIS PLAN — Explicit configuration for the analysis sequence
// ============================================================================
// Model specifications are plain structs (outcome + ordered predictor
// list) validated against the declared schema before anything is fitted.
// No stringly-typed formula assembly happens at runtime.
// ============================================================================

// Plan enumerates every test and model the pipeline runs, in order.
type Plan struct {
	NumericComparisons []NumericComparison `yaml:"numericComparisons"`
	Associations       []Association       `yaml:"associations"`
	Correlations       *CorrelationScreen  `yaml:"correlations,omitempty"`
	LogisticModels     []ModelSpec         `yaml:"logisticModels"`
	OrdinalModels      []ModelSpec         `yaml:"ordinalModels"`
	ANOVAs             []ANOVASpec         `yaml:"anovas"`
}

// NumericComparison compares a numeric measure across the two levels of a
// binary outcome (Welch's t-test, Wilcoxon fallback).
type NumericComparison struct {
	Outcome string `yaml:"outcome"` // binary field key
	Measure string `yaml:"measure"` // numeric field key or "<ordinal>_rank"
}

// Association tests a factor against a binary outcome (chi-squared with
// simulated p-value).
type Association struct {
	Outcome string `yaml:"outcome"` // binary field key
	Factor  string `yaml:"factor"`  // categorical/ordinal/binary field key
}

// CorrelationScreen ranks numeric fields by Pearson correlation against a
// single numeric target.
type CorrelationScreen struct {
	Target string   `yaml:"target"`
	Fields []string `yaml:"fields"`
}

// ModelSpec declares a regression: one outcome, an ordered predictor list.
type ModelSpec struct {
	Name       string   `yaml:"name"`
	Outcome    string   `yaml:"outcome"`
	Predictors []string `yaml:"predictors"`
}

// ANOVASpec declares a one-way ANOVA of a numeric response across a
// categorical grouping, with Tukey HSD when the omnibus test warrants it.
type ANOVASpec struct {
	Name     string `yaml:"name"`
	Response string `yaml:"response"` // numeric field key or "<ordinal>_rank"
	Group    string `yaml:"group"`    // categorical field key
}

// ParsePlan loads a Plan from YAML.
func ParsePlan(data []byte) (*Plan, error) {
	var p Plan
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("plan: %w", err)
	}
	return &p, nil
}

// ============================================================================
// VALIDATION
// ============================================================================

// requireKind resolves ref against the schema and checks its semantic type.
// rankOK permits "<ordinal>_rank" references, which count as numeric.
func requireKind(s *Schema, ref string, rankOK bool, kinds ...Kind) error {
	f, isRank, err := s.Resolve(ref)
	if err != nil {
		return err
	}
	if isRank {
		if !rankOK {
			return fmt.Errorf("schema: %q: rank projection not allowed here", ref)
		}
		return nil
	}
	for _, k := range kinds {
		if f.Kind == k {
			return nil
		}
	}
	return fmt.Errorf("schema: %q is %s, expected one of %v", ref, f.Kind, kindNames(kinds))
}

func kindNames(kinds []Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// Validate checks one numeric comparison against the schema.
func (c NumericComparison) Validate(s *Schema) error {
	if err := requireKind(s, c.Outcome, false, KindBinary); err != nil {
		return fmt.Errorf("numeric comparison outcome: %w", err)
	}
	if err := requireKind(s, c.Measure, true, KindNumeric); err != nil {
		return fmt.Errorf("numeric comparison measure: %w", err)
	}
	return nil
}

// Validate checks one categorical association against the schema.
func (a Association) Validate(s *Schema) error {
	if err := requireKind(s, a.Outcome, false, KindBinary); err != nil {
		return fmt.Errorf("association outcome: %w", err)
	}
	if err := requireKind(s, a.Factor, false, KindCategorical, KindOrdinal, KindBinary); err != nil {
		return fmt.Errorf("association factor: %w", err)
	}
	return nil
}

// Validate checks a correlation screen against the schema.
func (c CorrelationScreen) Validate(s *Schema) error {
	if err := requireKind(s, c.Target, true, KindNumeric); err != nil {
		return fmt.Errorf("correlation target: %w", err)
	}
	if len(c.Fields) == 0 {
		return fmt.Errorf("correlation screen: no fields declared")
	}
	for _, f := range c.Fields {
		if err := requireKind(s, f, true, KindNumeric); err != nil {
			return fmt.Errorf("correlation field: %w", err)
		}
	}
	return nil
}

// ValidateLogistic checks a binary logistic model spec.
func (m ModelSpec) ValidateLogistic(s *Schema) error {
	if err := requireKind(s, m.Outcome, false, KindBinary); err != nil {
		return fmt.Errorf("logistic outcome: %w", err)
	}
	return m.validatePredictors(s)
}

// ValidateOrdinal checks a proportional-odds model spec. The outcome is
// the ordinal field itself — the model preserves category structure, never
// the numeric proxy.
func (m ModelSpec) ValidateOrdinal(s *Schema) error {
	if err := requireKind(s, m.Outcome, false, KindOrdinal); err != nil {
		return fmt.Errorf("ordinal outcome: %w", err)
	}
	return m.validatePredictors(s)
}

func (m ModelSpec) validatePredictors(s *Schema) error {
	if len(m.Predictors) == 0 {
		return fmt.Errorf("model %q: no predictors declared", m.Name)
	}
	seen := make(map[string]bool, len(m.Predictors))
	for _, p := range m.Predictors {
		if seen[p] {
			return fmt.Errorf("model %q: duplicate predictor %q", m.Name, p)
		}
		seen[p] = true
		if err := requireKind(s, p, true, KindNumeric, KindCategorical, KindOrdinal, KindBinary); err != nil {
			return fmt.Errorf("model %q: %w", m.Name, err)
		}
	}
	return nil
}

// Validate checks an ANOVA spec against the schema.
func (a ANOVASpec) Validate(s *Schema) error {
	if err := requireKind(s, a.Response, true, KindNumeric); err != nil {
		return fmt.Errorf("anova %q response: %w", a.Name, err)
	}
	if err := requireKind(s, a.Group, false, KindCategorical, KindOrdinal, KindBinary); err != nil {
		return fmt.Errorf("anova %q group: %w", a.Name, err)
	}
	return nil
}

// ============================================================================
// DEFAULT PLAN — the fixed analysis sequence
// ============================================================================

// DefaultPlan returns the built-in analysis sequence: attrition tests,
// driver correlations, the attrition logistic model, the two ordinal
// models, and the satisfaction/rating ANOVAs.
func DefaultPlan() *Plan {
	return &Plan{
		NumericComparisons: []NumericComparison{
			{Outcome: "attrition", Measure: "salary"},
			{Outcome: "attrition", Measure: "age"},
			{Outcome: "attrition", Measure: "distance_from_home"},
			{Outcome: "attrition", Measure: "years_at_company"},
		},
		Associations: []Association{
			{Outcome: "attrition", Factor: "over_time"},
			{Outcome: "attrition", Factor: "department"},
			{Outcome: "attrition", Factor: "business_travel"},
			{Outcome: "attrition", Factor: "marital_status"},
			{Outcome: "attrition", Factor: "gender"},
			{Outcome: "attrition", Factor: "job_role"},
		},
		Correlations: &CorrelationScreen{
			Target: "job_satisfaction_rank",
			Fields: []string{
				"salary", "age", "distance_from_home", "years_at_company",
				"training_opportunities_taken",
				"environment_satisfaction_rank", "relationship_satisfaction_rank",
				"work_life_balance_rank", "manager_rating_rank",
			},
		},
		LogisticModels: []ModelSpec{
			{
				Name:    "attrition",
				Outcome: "attrition",
				Predictors: []string{
					"age", "salary", "distance_from_home", "years_at_company",
					"over_time", "business_travel", "job_satisfaction", "work_life_balance",
				},
			},
		},
		OrdinalModels: []ModelSpec{
			{
				Name:    "manager rating",
				Outcome: "manager_rating",
				Predictors: []string{
					"training_opportunities_taken", "over_time",
					"environment_satisfaction", "job_satisfaction", "years_at_company",
				},
			},
			{
				Name:    "job satisfaction",
				Outcome: "job_satisfaction",
				Predictors: []string{
					"over_time", "business_travel", "work_life_balance", "salary",
				},
			},
		},
		ANOVAs: []ANOVASpec{
			{Name: "job satisfaction by department", Response: "job_satisfaction_rank", Group: "department"},
			{Name: "manager rating by job role", Response: "manager_rating_rank", Group: "job_role"},
		},
	}
}
