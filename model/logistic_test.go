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

// logisticTable builds rows where the odds of "Yes" rise with x, with
// enough overlap that the likelihood has a finite maximum.
func logisticTable(t *testing.T) *dataset.Table {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Key: "attrition", DisplayName: "Attrition", Kind: schema.KindBinary, Levels: []string{"No", "Yes"}},
		{Key: "x", DisplayName: "X", Kind: schema.KindNumeric},
	})
	require.NoError(t, err)

	tbl := &dataset.Table{Schema: sch}
	add := func(x float64, label string) {
		rec := dataset.NewRecord()
		rec.Nums["x"] = x
		rec.Labels["attrition"] = label
		tbl.Rows = append(tbl.Rows, rec)
	}
	for rep := 0; rep < 2; rep++ {
		for x := 1; x <= 20; x++ {
			label := "No"
			if x > 10 {
				label = "Yes"
			}
			// Overlap rows keep the groups from separating perfectly.
			if x == 9 || x == 10 {
				label = "Yes"
			}
			if x == 11 || x == 12 {
				label = "No"
			}
			add(float64(x), label)
		}
	}
	return tbl
}

func TestFitLogistic(t *testing.T) {
	tbl := logisticTable(t)
	spec := schema.ModelSpec{Name: "attrition", Outcome: "attrition", Predictors: []string{"x"}}

	m, err := FitLogistic(tbl, spec, 0.95)
	require.NoError(t, err)

	assert.Equal(t, 40, m.N)
	assert.Equal(t, "Yes", m.Positive, "odds express the second declared level")
	assert.Equal(t, "attrition ~ x", m.Formula)
	assert.LessOrEqual(t, m.Iterations, 25)
	assert.False(t, math.IsNaN(m.AIC))
	assert.Less(t, m.LogLik, 0.0)

	require.Len(t, m.Coefficients, 2)
	intercept, slope := m.Coefficients[0], m.Coefficients[1]

	assert.Equal(t, "(Intercept)", intercept.Name)
	assert.Zero(t, intercept.OddsRatio, "the intercept carries no odds ratio")

	assert.Equal(t, "x", slope.Name)
	assert.Greater(t, slope.Estimate, 0.0, "odds of Yes rise with x")
	assert.Greater(t, slope.OddsRatio, 1.0)
	assert.Greater(t, slope.StdErr, 0.0)
	assert.Less(t, slope.P, 0.05)
	assert.Less(t, slope.ORLower, slope.OddsRatio)
	assert.Greater(t, slope.ORUpper, slope.OddsRatio)
}

func TestFitLogisticSingleLevelOutcome(t *testing.T) {
	sch, err := schema.New([]schema.Field{
		{Key: "attrition", DisplayName: "Attrition", Kind: schema.KindBinary, Levels: []string{"No", "Yes"}},
		{Key: "x", DisplayName: "X", Kind: schema.KindNumeric},
	})
	require.NoError(t, err)

	tbl := &dataset.Table{Schema: sch}
	for i := 0; i < 10; i++ {
		rec := dataset.NewRecord()
		rec.Nums["x"] = float64(i)
		rec.Labels["attrition"] = "No" // nobody leaves
		tbl.Rows = append(tbl.Rows, rec)
	}

	spec := schema.ModelSpec{Name: "attrition", Outcome: "attrition", Predictors: []string{"x"}}
	_, err = FitLogistic(tbl, spec, 0.95)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestFitLogisticReportsDroppedPredictors(t *testing.T) {
	sch, err := schema.New([]schema.Field{
		{Key: "attrition", DisplayName: "Attrition", Kind: schema.KindBinary, Levels: []string{"No", "Yes"}},
		{Key: "x", DisplayName: "X", Kind: schema.KindNumeric},
		{Key: "bonus", DisplayName: "Bonus", Kind: schema.KindNumeric},
	})
	require.NoError(t, err)

	tbl := &dataset.Table{Schema: sch}
	for _, src := range logisticTable(t).Rows {
		tbl.Rows = append(tbl.Rows, src) // bonus stays null on every row
	}

	spec := schema.ModelSpec{Name: "attrition", Outcome: "attrition", Predictors: []string{"x", "bonus"}}
	m, err := FitLogistic(tbl, spec, 0.95)
	require.NoError(t, err)
	assert.Equal(t, []string{"bonus (no data)"}, m.Dropped, "a dataless predictor is reported, never fatal")
}
