package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/model"
	"github.com/hrlens-org/hrlens/report"
	"github.com/hrlens-org/hrlens/schema"
	"github.com/hrlens-org/hrlens/stats"
)

// ============================================================================
// PIPELINE — Load → Merge → Test → Model → Report
// ============================================================================
// Entry point: New(opts...).Run(inputs)
//
// Stages:
//   1. Parse the employee, performance and lookup CSVs
//   2. Left-join reviews onto employees, resolve ordinal codes    (fatal)
//   3. Validate each planned analysis against the schema
//   4. Run tests and models sequentially, one report per analysis
//
// Stage 2 failures abort the run. From stage 3 on, every analysis is
// isolated: a misconfigured or unanswerable analysis becomes a "not run"
// section in the output and the remaining analyses still execute.
// All computation is local; the pipeline never calls an external service.
// ============================================================================

// Inputs carries the raw CSV bytes of the five source files.
type Inputs struct {
	Employees          []byte
	Performance        []byte
	EducationLevels    []byte
	SatisfactionLevels []byte
	RatingLevels       []byte
}

// Summary is what Run returns: the merge outcome plus every result that
// was produced, in plan order.
type Summary struct {
	Merge *dataset.MergeStats
	Table *dataset.Table

	Comparisons    []*stats.ComparisonResult
	Associations   []*stats.AssociationResult
	Correlations   *stats.CorrelationResult
	LogisticModels []*model.LogisticModel
	OrdinalModels  []*model.OrdinalModel
	ANOVAs         []*model.ANOVAResult

	Ran     int
	Skipped int
}

// Option configures pipeline behavior via functional options.
type Option func(*Pipeline)

// WithPlan replaces the default analysis sequence.
func WithPlan(plan *schema.Plan) Option {
	return func(p *Pipeline) { p.plan = plan }
}

// WithSchema replaces the default HR schema.
func WithSchema(sch *schema.Schema) Option {
	return func(p *Pipeline) { p.sch = sch }
}

// WithSimulations sets the Monte Carlo replicate count for chi-squared
// p-values. Zero or negative keeps the default.
func WithSimulations(n int) Option {
	return func(p *Pipeline) { p.simulations = n }
}

// WithSeed fixes the random seed so simulated p-values are reproducible.
func WithSeed(seed int64) Option {
	return func(p *Pipeline) { p.seed = seed }
}

// WithConfidence sets the confidence level for model intervals (e.g. 0.95).
func WithConfidence(level float64) Option {
	return func(p *Pipeline) { p.confidence = level }
}

// WithOutput directs the rendered reports to w.
func WithOutput(w io.Writer) Option {
	return func(p *Pipeline) { p.out = w }
}

// WithLogger replaces the default logger.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// Pipeline runs the full analysis sequence over one merged dataset.
type Pipeline struct {
	sch         *schema.Schema
	plan        *schema.Plan
	simulations int
	seed        int64
	confidence  float64
	out         io.Writer
	log         *slog.Logger
}

// New creates a Pipeline with the default schema and plan.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		sch:         schema.Default(),
		plan:        schema.DefaultPlan(),
		simulations: stats.DefaultSimulations,
		seed:        1,
		confidence:  0.95,
		out:         os.Stdout,
		log:         slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Merge parses the input CSVs and produces the combined employee table.
// Any parse or join failure is fatal: without a sound merged dataset no
// analysis result can be trusted.
func (p *Pipeline) Merge(in Inputs) (*dataset.Table, *dataset.MergeStats, error) {
	employees, _, err := dataset.ParseEmployees(in.Employees, p.sch)
	if err != nil {
		return nil, nil, fmt.Errorf("employee file: %w", err)
	}
	reviews, _, err := dataset.ParseReviews(in.Performance, p.sch)
	if err != nil {
		return nil, nil, fmt.Errorf("performance file: %w", err)
	}

	lookups := dataset.Lookups{}
	for _, src := range []struct {
		name string
		data []byte
	}{
		{"education", in.EducationLevels},
		{"satisfaction", in.SatisfactionLevels},
		{"rating", in.RatingLevels},
	} {
		lk, err := dataset.ParseLookup(src.name, src.data)
		if err != nil {
			return nil, nil, fmt.Errorf("%s lookup: %w", src.name, err)
		}
		lookups[src.name] = lk
	}

	tbl, ms, err := dataset.Merge(employees, reviews, lookups, p.sch)
	if err != nil {
		return nil, nil, err
	}
	p.log.Info("merge complete",
		"employees", ms.Employees, "reviews", ms.Reviews,
		"with_review", ms.WithReview, "without_review", ms.WithoutReview)
	return tbl, ms, nil
}

// Run executes the full plan and writes one report per analysis.
func (p *Pipeline) Run(in Inputs) (*Summary, error) {
	tbl, ms, err := p.Merge(in)
	if err != nil {
		return nil, err
	}

	r := report.New(p.out, p.sch)
	r.MergeStats(ms)

	sum := &Summary{Merge: ms, Table: tbl}

	for _, c := range p.plan.NumericComparisons {
		title := fmt.Sprintf("Comparison: %s by %s", p.sch.DisplayName(c.Measure), p.sch.DisplayName(c.Outcome))
		if !p.runnable(r, sum, title, c.Validate(p.sch)) {
			continue
		}
		res, err := stats.CompareNumeric(tbl, c.Outcome, c.Measure)
		if p.failed(r, sum, title, err) {
			continue
		}
		p.log.Info("comparison complete", "measure", c.Measure, "method", res.Method, "p", res.PValue)
		r.Comparison(res)
		sum.Comparisons = append(sum.Comparisons, res)
		sum.Ran++
	}

	for _, a := range p.plan.Associations {
		title := fmt.Sprintf("Association: %s × %s", p.sch.DisplayName(a.Factor), p.sch.DisplayName(a.Outcome))
		if !p.runnable(r, sum, title, a.Validate(p.sch)) {
			continue
		}
		res, err := stats.Associate(tbl, a.Outcome, a.Factor, p.simulations, p.seed)
		if p.failed(r, sum, title, err) {
			continue
		}
		p.log.Info("association complete", "factor", a.Factor, "p", res.PValue)
		r.Association(res)
		sum.Associations = append(sum.Associations, res)
		sum.Ran++
	}

	if c := p.plan.Correlations; c != nil {
		title := fmt.Sprintf("Correlation screen: %s", p.sch.DisplayName(c.Target))
		if p.runnable(r, sum, title, c.Validate(p.sch)) {
			res, err := stats.Correlate(tbl, c.Target, c.Fields)
			if !p.failed(r, sum, title, err) {
				p.log.Info("correlation screen complete", "target", c.Target, "fields", len(res.Entries))
				r.Correlations(res)
				sum.Correlations = res
				sum.Ran++
			}
		}
	}

	for _, m := range p.plan.LogisticModels {
		title := fmt.Sprintf("Logistic model %q", m.Name)
		if !p.runnable(r, sum, title, m.ValidateLogistic(p.sch)) {
			continue
		}
		res, err := model.FitLogistic(tbl, m, p.confidence)
		if p.failed(r, sum, title, err) {
			continue
		}
		p.log.Info("logistic fit complete", "model", m.Name, "n", res.N, "aic", res.AIC)
		r.Logistic(res)
		sum.LogisticModels = append(sum.LogisticModels, res)
		sum.Ran++
	}

	for _, m := range p.plan.OrdinalModels {
		title := fmt.Sprintf("Ordinal model %q", m.Name)
		if !p.runnable(r, sum, title, m.ValidateOrdinal(p.sch)) {
			continue
		}
		res, err := model.FitOrdinal(tbl, m, p.confidence)
		if p.failed(r, sum, title, err) {
			continue
		}
		if res.Retried {
			p.log.Warn("ordinal fit converged on retry", "model", m.Name)
		}
		p.log.Info("ordinal fit complete", "model", m.Name, "n", res.N, "aic", res.AIC)
		r.Ordinal(res)
		sum.OrdinalModels = append(sum.OrdinalModels, res)
		sum.Ran++
	}

	for _, a := range p.plan.ANOVAs {
		title := fmt.Sprintf("ANOVA %q", a.Name)
		if !p.runnable(r, sum, title, a.Validate(p.sch)) {
			continue
		}
		res, err := model.OneWayANOVA(tbl, a, report.Alpha)
		if p.failed(r, sum, title, err) {
			continue
		}
		p.log.Info("anova complete", "name", a.Name, "p", res.P, "tukey", res.TukeyRun)
		r.ANOVA(res)
		sum.ANOVAs = append(sum.ANOVAs, res)
		sum.Ran++
	}

	p.log.Info("pipeline complete", "ran", sum.Ran, "skipped", sum.Skipped)
	return sum, nil
}

// runnable reports a plan validation failure as a skipped section.
func (p *Pipeline) runnable(r *report.Renderer, sum *Summary, title string, err error) bool {
	if err == nil {
		return true
	}
	p.log.Warn("analysis misconfigured", "analysis", title, "err", err)
	r.Skipped(title, err.Error())
	sum.Skipped++
	return false
}

// failed reports an execution failure as a skipped section. Expected
// data conditions (too little data, untestable split, failed fit) are
// logged at warn level; they never abort the run.
func (p *Pipeline) failed(r *report.Renderer, sum *Summary, title string, err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, stats.ErrInsufficientData),
		errors.Is(err, stats.ErrCannotTest),
		errors.Is(err, model.ErrInsufficientData),
		errors.Is(err, model.ErrFitFailure):
		p.log.Warn("analysis not run", "analysis", title, "reason", err)
	default:
		p.log.Error("analysis failed", "analysis", title, "err", err)
	}
	r.Skipped(title, err.Error())
	sum.Skipped++
	return true
}
