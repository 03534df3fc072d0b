package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/model"
	"github.com/hrlens-org/hrlens/schema"
	"github.com/hrlens-org/hrlens/stats"
)

// ============================================================================
// REPORT RENDERER — One self-contained text report per analysis
// ============================================================================
// Every report carries: a headline naming the variables/formula, the
// numeric result table, and a plain-language significance interpretation.
// Rendering never fails — a skipped or failed analysis still produces a
// readable section.
// ============================================================================

// Alpha is the significance threshold used in interpretations.
const Alpha = 0.05

var (
	sigColor  = color.New(color.FgGreen, color.Bold)
	warnColor = color.New(color.FgYellow)
	failColor = color.New(color.FgRed)
)

// Renderer writes analysis reports to a single output stream.
type Renderer struct {
	w   io.Writer
	sch *schema.Schema
}

// New creates a Renderer bound to an output stream and the schema used
// for display names.
func New(w io.Writer, sch *schema.Schema) *Renderer {
	return &Renderer{w: w, sch: sch}
}

func (r *Renderer) headline(title string) {
	fmt.Fprintf(r.w, "\n── %s ", title)
	if pad := 74 - len(title); pad > 0 {
		fmt.Fprint(r.w, strings.Repeat("─", pad))
	}
	fmt.Fprintln(r.w)
}

func (r *Renderer) name(ref string) string { return r.sch.DisplayName(ref) }

// Skipped reports an analysis that did not run, with its reason.
func (r *Renderer) Skipped(title, reason string) {
	r.headline(title)
	fmt.Fprintf(r.w, "%s %s\n", failColor.Sprint("not run:"), reason)
}

// MergeStats reports the outcome of the dataset merge.
func (r *Renderer) MergeStats(s *dataset.MergeStats) {
	r.headline("Dataset merge")
	fmt.Fprintf(r.w, "%d employees, %d reviews → %d combined rows (%d with a review, %d without)\n",
		s.Employees, s.Reviews, s.Employees, s.WithReview, s.WithoutReview)
	for field, n := range s.UnresolvedLookups {
		fmt.Fprintf(r.w, "%s %d %s code(s) did not resolve and were kept null\n",
			warnColor.Sprint("note:"), n, r.name(field))
	}
}

// Comparison renders a two-sample numeric comparison.
func (r *Renderer) Comparison(res *stats.ComparisonResult) {
	method := "Welch two-sample t-test"
	statName := "t"
	if res.Method == "wilcoxon" {
		method = "Wilcoxon rank-sum test (t-test not applicable)"
		statName = "W"
	}
	r.headline(fmt.Sprintf("%s: %s by %s", method, r.name(res.Measure), r.name(res.Outcome)))

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{r.name(res.Outcome), "N", "Mean " + r.name(res.Measure)})
	for _, g := range res.Groups {
		table.Append([]string{g.Level, strconv.Itoa(g.N), formatNum(g.Mean)})
	}
	table.Render()

	if res.Method == "welch-t" {
		fmt.Fprintf(r.w, "%s = %s, df = %s, p = %s\n",
			statName, formatNum(res.Statistic), formatNum(res.DF), formatP(res.PValue))
	} else {
		fmt.Fprintf(r.w, "%s = %s, p = %s\n", statName, formatNum(res.Statistic), formatP(res.PValue))
	}

	if res.Significant(Alpha) {
		fmt.Fprintf(r.w, "%s mean %s differs between %s groups (p < %.2f).\n",
			sigColor.Sprint("significant:"), r.name(res.Measure), r.name(res.Outcome), Alpha)
	} else {
		fmt.Fprintf(r.w, "No evidence that %s differs between %s groups at the %.2f level.\n",
			r.name(res.Measure), r.name(res.Outcome), Alpha)
	}
}

// Association renders a chi-squared association test.
func (r *Renderer) Association(res *stats.AssociationResult) {
	r.headline(fmt.Sprintf("Chi-squared association: %s × %s", r.name(res.Factor), r.name(res.Outcome)))

	table := tablewriter.NewWriter(r.w)
	table.SetHeader(append([]string{r.name(res.Factor)}, res.Table.OutcomeLevels...))
	for i, lvl := range res.Table.FactorLevels {
		row := []string{lvl}
		for _, c := range res.Table.Counts[i] {
			row = append(row, strconv.Itoa(c))
		}
		table.Append(row)
	}
	table.Render()

	fmt.Fprintf(r.w, "X² = %s, df = %d, simulated p = %s (%d replicates; asymptotic p = %s)\n",
		formatNum(res.Statistic), res.DF, formatP(res.PValue), res.Simulations, formatP(res.AsymptoticP))
	if res.LowExpected {
		fmt.Fprintf(r.w, "%s some expected cell counts are below 5\n", warnColor.Sprint("advisory:"))
	}

	if res.Significant(Alpha) {
		fmt.Fprintf(r.w, "%s %s and %s are associated (p < %.2f).\n",
			sigColor.Sprint("significant:"), r.name(res.Factor), r.name(res.Outcome), Alpha)
	} else {
		fmt.Fprintf(r.w, "No evidence of association between %s and %s at the %.2f level.\n",
			r.name(res.Factor), r.name(res.Outcome), Alpha)
	}
}

// Correlations renders the correlation screen.
func (r *Renderer) Correlations(res *stats.CorrelationResult) {
	r.headline(fmt.Sprintf("Correlation screen: drivers of %s", r.name(res.Target)))

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Field", "N", "Pearson r"})
	for _, e := range res.Entries {
		table.Append([]string{r.name(e.Field), strconv.Itoa(e.N), formatNum(e.R)})
	}
	table.Render()

	if len(res.Skipped) > 0 {
		names := make([]string, len(res.Skipped))
		for i, f := range res.Skipped {
			names[i] = r.name(f)
		}
		fmt.Fprintf(r.w, "%s not correlatable: %s\n", warnColor.Sprint("note:"), strings.Join(names, ", "))
	}
	if len(res.Entries) == 0 {
		fmt.Fprintln(r.w, "No field could be correlated with the target.")
		return
	}
	top := res.Entries[0]
	fmt.Fprintf(r.w, "Strongest linear driver: %s (r = %s).\n", r.name(top.Field), formatNum(top.R))
}

// Logistic renders a fitted binary logistic regression.
func (r *Renderer) Logistic(m *model.LogisticModel) {
	r.headline(fmt.Sprintf("Binary logistic regression: %s", m.Formula))
	fmt.Fprintf(r.w, "n = %d complete cases, odds of %s = %q, AIC = %s (%d IRLS iterations)\n",
		m.N, r.name(m.Outcome), m.Positive, formatNum(m.AIC), m.Iterations)
	r.droppedNote(m.Dropped)

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Term", "Estimate", "Std. Err", "z", "p", "Odds Ratio", "95% CI"})
	for _, c := range m.Coefficients {
		row := []string{c.Name, formatNum(c.Estimate), formatNum(c.StdErr), formatNum(c.Z), formatP(c.P)}
		if c.OddsRatio != 0 {
			row = append(row, formatNum(c.OddsRatio),
				fmt.Sprintf("[%s, %s]", formatNum(c.ORLower), formatNum(c.ORUpper)))
		} else {
			row = append(row, "", "")
		}
		table.Append(row)
	}
	table.Render()

	r.significantTerms(m.Coefficients[1:])
}

// Ordinal renders a fitted proportional-odds regression.
func (r *Renderer) Ordinal(m *model.OrdinalModel) {
	r.headline(fmt.Sprintf("Ordinal logistic regression (proportional odds): %s", m.Formula))
	fmt.Fprintf(r.w, "n = %d complete cases, %d outcome levels (%s), AIC = %s\n",
		m.N, len(m.Levels), strings.Join(m.Levels, " < "), formatNum(m.AIC))
	if m.Retried {
		fmt.Fprintf(r.w, "%s fit converged on retry after an optimizer warning\n", warnColor.Sprint("advisory:"))
	}
	r.droppedNote(m.Dropped)

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{"Term", "Estimate", "Std. Err", "z", "p", "Odds Ratio", "95% CI"})
	for _, c := range m.Coefficients {
		table.Append([]string{
			c.Name, formatNum(c.Estimate), formatNum(c.StdErr), formatNum(c.Z), formatP(c.P),
			formatNum(c.OddsRatio),
			fmt.Sprintf("[%s, %s]", formatNum(c.ORLower), formatNum(c.ORUpper)),
		})
	}
	table.Render()

	cuts := tablewriter.NewWriter(r.w)
	cuts.SetHeader([]string{"Cut-point", "Estimate", "Std. Err", "z", "p"})
	for _, c := range m.Cutpoints {
		cuts.Append([]string{c.Name, formatNum(c.Estimate), formatNum(c.StdErr), formatNum(c.Z), formatP(c.P)})
	}
	cuts.Render()

	r.significantTerms(m.Coefficients)
}

// ANOVA renders a one-way ANOVA with optional Tukey pairs.
func (r *Renderer) ANOVA(res *model.ANOVAResult) {
	r.headline(fmt.Sprintf("One-way ANOVA: %s by %s", r.name(res.Response), r.name(res.Group)))

	table := tablewriter.NewWriter(r.w)
	table.SetHeader([]string{r.name(res.Group), "N", "Mean"})
	for _, g := range res.Groups {
		table.Append([]string{g.Level, strconv.Itoa(g.N), formatNum(g.Mean)})
	}
	table.Render()

	fmt.Fprintf(r.w, "F(%d, %d) = %s, p = %s (between SS = %s, within SS = %s)\n",
		res.DFBetween, res.DFWithin, formatNum(res.F), formatP(res.P),
		formatNum(res.SSBetween), formatNum(res.SSWithin))
	for _, w := range res.Warnings {
		fmt.Fprintf(r.w, "%s %s\n", warnColor.Sprint("warning:"), w)
	}

	switch {
	case !res.Significant(Alpha):
		fmt.Fprintf(r.w, "No evidence that mean %s differs across %s at the %.2f level.\n",
			r.name(res.Response), r.name(res.Group), Alpha)
	case !res.TukeyRun:
		fmt.Fprintf(r.w, "%s mean %s differs between the two %s groups; with 2 levels no post-hoc test is needed.\n",
			sigColor.Sprint("significant:"), r.name(res.Response), r.name(res.Group))
	default:
		fmt.Fprintf(r.w, "%s mean %s differs across %s groups. Tukey HSD pairs significant after adjustment:\n",
			sigColor.Sprint("significant:"), r.name(res.Response), r.name(res.Group))
		if len(res.TukeyPairs) == 0 {
			fmt.Fprintln(r.w, "(no individual pair remains significant after adjustment)")
			return
		}
		pairs := tablewriter.NewWriter(r.w)
		pairs.SetHeader([]string{"Pair", "Diff", "95% CI", "Adj. p"})
		for _, p := range res.TukeyPairs {
			pairs.Append([]string{
				p.B + " − " + p.A,
				formatNum(p.Diff),
				fmt.Sprintf("[%s, %s]", formatNum(p.Lower), formatNum(p.Upper)),
				formatP(p.AdjustedP),
			})
		}
		pairs.Render()
	}
}

func (r *Renderer) droppedNote(dropped []string) {
	if len(dropped) > 0 {
		fmt.Fprintf(r.w, "%s dropped predictors: %s\n", warnColor.Sprint("note:"), strings.Join(dropped, ", "))
	}
}

func (r *Renderer) significantTerms(coefs []model.Coefficient) {
	var sig []string
	for _, c := range coefs {
		if c.P < Alpha {
			sig = append(sig, c.Name)
		}
	}
	if len(sig) == 0 {
		fmt.Fprintf(r.w, "No predictor term is significant at the %.2f level.\n", Alpha)
		return
	}
	fmt.Fprintf(r.w, "%s terms at the %.2f level: %s\n",
		sigColor.Sprint("significant"), Alpha, strings.Join(sig, ", "))
}

// formatNum renders a float with sensible precision for report tables.
func formatNum(v float64) string {
	a := v
	if a < 0 {
		a = -a
	}
	switch {
	case a != 0 && a < 0.001:
		return strconv.FormatFloat(v, 'e', 3, 64)
	case a >= 10000:
		return strconv.FormatFloat(v, 'f', 1, 64)
	default:
		return strconv.FormatFloat(v, 'f', 4, 64)
	}
}

// formatP renders p-values, flooring at the display resolution.
func formatP(p float64) string {
	if p < 0.001 {
		return "<0.001"
	}
	return strconv.FormatFloat(p, 'f', 4, 64)
}
