package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/pipeline"
	"github.com/hrlens-org/hrlens/schema"
)

// ============================================================================
// HRLENS CLI — Statistical insight into HR attrition and performance data
// ============================================================================

const version = "0.1.0"

// inputFlags holds the paths of the five source CSVs.
type inputFlags struct {
	employees    string
	performance  string
	education    string
	satisfaction string
	rating       string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.employees, "employees", "", "Path to the employee CSV (required)")
	cmd.Flags().StringVar(&f.performance, "performance", "", "Path to the performance review CSV (required)")
	cmd.Flags().StringVar(&f.education, "education-levels", "", "Path to the education level lookup CSV (required)")
	cmd.Flags().StringVar(&f.satisfaction, "satisfaction-levels", "", "Path to the satisfaction level lookup CSV (required)")
	cmd.Flags().StringVar(&f.rating, "rating-levels", "", "Path to the rating level lookup CSV (required)")
	for _, name := range []string{"employees", "performance", "education-levels", "satisfaction-levels", "rating-levels"} {
		_ = cmd.MarkFlagRequired(name)
	}
}

func (f *inputFlags) load() (pipeline.Inputs, error) {
	var in pipeline.Inputs
	for _, src := range []struct {
		path string
		dst  *[]byte
	}{
		{f.employees, &in.Employees},
		{f.performance, &in.Performance},
		{f.education, &in.EducationLevels},
		{f.satisfaction, &in.SatisfactionLevels},
		{f.rating, &in.RatingLevels},
	} {
		data, err := os.ReadFile(src.path)
		if err != nil {
			return pipeline.Inputs{}, err
		}
		*src.dst = data
	}
	return in, nil
}

func main() {
	var (
		verbose bool
		noColor bool
	)

	root := &cobra.Command{
		Use:     "hrlens",
		Short:   "Statistical insight into HR attrition and performance data",
		Version: version,
		Long: `hrlens joins an employee roster with performance reviews and runs a
fixed sequence of statistical tests and models over the combined
dataset: group comparisons, association tests, a correlation screen,
logistic and ordinal regressions, and one-way ANOVA with Tukey HSD.

All computation is local. hrlens never calls an external service.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelInfo
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
			if noColor {
				color.NoColor = true
			}
		},
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log pipeline progress to stderr")
	root.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	root.AddCommand(newAnalyzeCmd(), newMergeCmd(), newSchemaCmd())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// ── analyze ───────────────────────────────────────────────────────────────

func newAnalyzeCmd() *cobra.Command {
	var (
		inputs      inputFlags
		planPath    string
		simulations int
		seed        int64
		confidence  float64
		outPath     string
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis plan and print one report per analysis",
		Example: `  hrlens analyze \
    --employees employee.csv --performance performance.csv \
    --education-levels education.csv --satisfaction-levels satisfaction.csv \
    --rating-levels rating.csv`,
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inputs.load()
			if err != nil {
				return err
			}

			opts := []pipeline.Option{
				pipeline.WithSimulations(simulations),
				pipeline.WithSeed(seed),
				pipeline.WithConfidence(confidence),
			}

			if planPath != "" {
				data, err := os.ReadFile(planPath)
				if err != nil {
					return err
				}
				plan, err := schema.ParsePlan(data)
				if err != nil {
					return err
				}
				opts = append(opts, pipeline.WithPlan(plan))
			}

			out := cmd.OutOrStdout()
			if outPath != "" {
				f, err := os.Create(outPath)
				if err != nil {
					return err
				}
				defer f.Close()
				color.NoColor = true
				out = f
			}
			opts = append(opts, pipeline.WithOutput(out))

			sum, err := pipeline.New(opts...).Run(in)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "\n%d analyses run, %d not run.\n", sum.Ran, sum.Skipped)
			return nil
		},
	}

	inputs.register(cmd)
	cmd.Flags().StringVar(&planPath, "plan", "", "Path to a YAML analysis plan (defaults to the built-in plan)")
	cmd.Flags().IntVar(&simulations, "simulations", 0, "Monte Carlo replicates for chi-squared p-values (0 = default)")
	cmd.Flags().Int64Var(&seed, "seed", 1, "Random seed for simulated p-values")
	cmd.Flags().Float64Var(&confidence, "confidence", 0.95, "Confidence level for model intervals")
	cmd.Flags().StringVar(&outPath, "out", "", "Write reports to a file instead of stdout")
	return cmd
}

// ── merge ─────────────────────────────────────────────────────────────────

func newMergeCmd() *cobra.Command {
	var inputs inputFlags

	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Print the merged, lookup-resolved dataset as CSV",
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := inputs.load()
			if err != nil {
				return err
			}
			tbl, ms, err := pipeline.New().Merge(in)
			if err != nil {
				return err
			}
			if err := writeMergedCSV(cmd.OutOrStdout(), tbl); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%d rows (%d with a review, %d without)\n",
				tbl.Len(), ms.WithReview, ms.WithoutReview)
			return nil
		},
	}

	inputs.register(cmd)
	return cmd
}

// writeMergedCSV emits the combined table, one column per schema field
// plus the resolved label column for each ordinal.
func writeMergedCSV(w io.Writer, tbl *dataset.Table) error {
	cw := csv.NewWriter(w)

	var header []string
	for _, f := range tbl.Schema.Fields {
		header = append(header, f.Key)
		if f.Kind == schema.KindOrdinal {
			header = append(header, schema.LabelKey(f.Key))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}

	for i := 0; i < tbl.Len(); i++ {
		var row []string
		for _, f := range tbl.Schema.Fields {
			row = append(row, cellString(tbl, i, f.Key))
			if f.Kind == schema.KindOrdinal {
				row = append(row, cellString(tbl, i, schema.LabelKey(f.Key)))
			}
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func cellString(tbl *dataset.Table, i int, key string) string {
	if s, ok := tbl.Label(i, key); ok {
		return s
	}
	if v, ok := tbl.Num(i, key); ok {
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return "" // null
}

// ── schema ────────────────────────────────────────────────────────────────

func newSchemaCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "schema",
		Short: "Print the declared dataset schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			sch := schema.Default()

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"Key", "Display Name", "Kind", "Source", "Levels"})
			for _, f := range sch.Fields {
				source := "employee"
				if f.FromReview {
					source = "review"
				}
				table.Append([]string{
					f.Key, f.DisplayName, f.Kind.String(), source, strings.Join(f.Levels, " < "),
				})
			}
			table.Render()
			return nil
		},
	}
}
