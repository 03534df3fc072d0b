package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrlens-org/hrlens/dataset"
	"github.com/hrlens-org/hrlens/schema"
)

var satisfactionLevels = []string{"Low", "Medium", "High"}

func ordinalSchema(t *testing.T) *schema.Schema {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Key: "job_satisfaction", DisplayName: "Job Satisfaction", Kind: schema.KindOrdinal, Levels: satisfactionLevels},
		{Key: "x", DisplayName: "X", Kind: schema.KindNumeric},
	})
	require.NoError(t, err)
	return sch
}

func ordinalRow(sat string, x float64) dataset.Record {
	rec := dataset.NewRecord()
	rec.Nums["x"] = x
	if sat != "" {
		rec.Labels[schema.LabelKey("job_satisfaction")] = sat
		f := schema.Field{Levels: satisfactionLevels}
		if r, ok := f.RankOf(sat); ok {
			rec.Nums[schema.RankKey("job_satisfaction")] = float64(r)
		}
	}
	return rec
}

// ordinalTable builds rows where satisfaction climbs with x, with overlap
// between adjacent categories.
func ordinalTable(t *testing.T) *dataset.Table {
	t.Helper()
	tbl := &dataset.Table{Schema: ordinalSchema(t)}
	for rep := 0; rep < 2; rep++ {
		for _, x := range []float64{1, 2, 3, 4, 5} {
			tbl.Rows = append(tbl.Rows, ordinalRow("Low", x))
		}
		for _, x := range []float64{4, 5, 6, 7, 8} {
			tbl.Rows = append(tbl.Rows, ordinalRow("Medium", x))
		}
		for _, x := range []float64{7, 8, 9, 10, 11} {
			tbl.Rows = append(tbl.Rows, ordinalRow("High", x))
		}
	}
	return tbl
}

func TestFitOrdinal(t *testing.T) {
	tbl := ordinalTable(t)
	spec := schema.ModelSpec{Name: "satisfaction", Outcome: "job_satisfaction", Predictors: []string{"x"}}

	m, err := FitOrdinal(tbl, spec, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 30, m.N)
	assert.Equal(t, satisfactionLevels, m.Levels, "levels follow the declared order")
	assert.Equal(t, "job_satisfaction ~ x", m.Formula)
	assert.Less(t, m.LogLik, 0.0)
	assert.False(t, math.IsNaN(m.AIC))

	require.Len(t, m.Coefficients, 1)
	slope := m.Coefficients[0]
	assert.Equal(t, "x", slope.Name)
	assert.Greater(t, slope.Estimate, 0.0, "higher x shifts mass toward higher categories")
	assert.Greater(t, slope.OddsRatio, 1.0)
	assert.Greater(t, slope.StdErr, 0.0)
	assert.Less(t, slope.P, 0.05)

	require.Len(t, m.Cutpoints, 2, "K levels yield K-1 cut-points")
	assert.Equal(t, "Low|Medium", m.Cutpoints[0].Name)
	assert.Equal(t, "Medium|High", m.Cutpoints[1].Name)
	assert.Less(t, m.Cutpoints[0].Estimate, m.Cutpoints[1].Estimate,
		"cut-points are strictly increasing")
}

func TestFitOrdinalSingleLevelOutcome(t *testing.T) {
	tbl := &dataset.Table{Schema: ordinalSchema(t)}
	for i := 0; i < 10; i++ {
		tbl.Rows = append(tbl.Rows, ordinalRow("Medium", float64(i)))
	}

	spec := schema.ModelSpec{Name: "satisfaction", Outcome: "job_satisfaction", Predictors: []string{"x"}}
	_, err := FitOrdinal(tbl, spec, 0.95)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestFitOrdinalTwoLevels(t *testing.T) {
	// A two-level ordinal degenerates to one cut-point; the fit must
	// still work.
	tbl := &dataset.Table{Schema: ordinalSchema(t)}
	for rep := 0; rep < 2; rep++ {
		for _, x := range []float64{1, 2, 3, 4, 5, 6} {
			tbl.Rows = append(tbl.Rows, ordinalRow("Low", x))
		}
		for _, x := range []float64{5, 6, 7, 8, 9, 10} {
			tbl.Rows = append(tbl.Rows, ordinalRow("High", x))
		}
	}

	spec := schema.ModelSpec{Name: "satisfaction", Outcome: "job_satisfaction", Predictors: []string{"x"}}
	m, err := FitOrdinal(tbl, spec, 0.95)
	require.NoError(t, err)

	assert.Equal(t, []string{"Low", "High"}, m.Levels)
	require.Len(t, m.Cutpoints, 1)
	assert.Equal(t, "Low|High", m.Cutpoints[0].Name)
	assert.Greater(t, m.Coefficients[0].Estimate, 0.0)
}
