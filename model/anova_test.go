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

func anovaTable(t *testing.T, groups map[string][]float64) *dataset.Table {
	t.Helper()
	sch, err := schema.New([]schema.Field{
		{Key: "salary", DisplayName: "Salary", Kind: schema.KindNumeric},
		{Key: "department", DisplayName: "Department", Kind: schema.KindCategorical},
	})
	require.NoError(t, err)

	tbl := &dataset.Table{Schema: sch}
	for dept, vals := range groups {
		for _, v := range vals {
			rec := dataset.NewRecord()
			rec.Labels["department"] = dept
			rec.Nums["salary"] = v
			tbl.Rows = append(tbl.Rows, rec)
		}
	}
	return tbl
}

func TestOneWayANOVAWithTukey(t *testing.T) {
	tbl := anovaTable(t, map[string][]float64{
		"HR":         {40, 41, 42, 43, 44},
		"Sales":      {50, 51, 52, 53, 54},
		"Technology": {70, 71, 72, 73, 74},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	res, err := OneWayANOVA(tbl, spec, 0.05)
	require.NoError(t, err)

	assert.Equal(t, 15, res.N)
	assert.Equal(t, 2, res.DFBetween)
	assert.Equal(t, 12, res.DFWithin)
	assert.Greater(t, res.F, 100.0)
	assert.Less(t, res.P, 0.001)
	assert.True(t, res.Significant(0.05))
	assert.Empty(t, res.Warnings)

	require.True(t, res.TukeyRun, "post-hoc runs when the omnibus test is significant and k > 2")
	require.Len(t, res.TukeyPairs, 3, "all three pairs are clearly separated")

	for _, p := range res.TukeyPairs {
		assert.Less(t, p.AdjustedP, 0.05)
		assert.True(t, p.Lower > 0 || p.Upper < 0, "the interval for a significant pair excludes zero")
	}

	// Groups land alphabetically for a plain categorical.
	assert.Equal(t, "HR", res.Groups[0].Level)
	assert.InDelta(t, 42.0, res.Groups[0].Mean, 1e-9)
}

func TestOneWayANOVATwoGroupsSkipsTukey(t *testing.T) {
	tbl := anovaTable(t, map[string][]float64{
		"HR":    {40, 41, 42, 43},
		"Sales": {60, 61, 62, 63},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	res, err := OneWayANOVA(tbl, spec, 0.05)
	require.NoError(t, err)

	assert.Less(t, res.P, 0.001)
	assert.False(t, res.TukeyRun, "two groups need no post-hoc test")
	assert.Empty(t, res.TukeyPairs)
}

func TestOneWayANOVANotSignificant(t *testing.T) {
	tbl := anovaTable(t, map[string][]float64{
		"HR":    {40, 50, 60, 45, 55},
		"Sales": {42, 52, 58, 47, 51},
		"Tech":  {41, 49, 61, 44, 56},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	res, err := OneWayANOVA(tbl, spec, 0.05)
	require.NoError(t, err)

	assert.Greater(t, res.P, 0.05)
	assert.False(t, res.TukeyRun)
}

func TestOneWayANOVAPerfectSeparation(t *testing.T) {
	// Zero within-group variance but distinct means: F is unbounded.
	tbl := anovaTable(t, map[string][]float64{
		"HR":    {40, 40},
		"Sales": {60, 60},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	res, err := OneWayANOVA(tbl, spec, 0.05)
	require.NoError(t, err)
	assert.True(t, math.IsInf(res.F, 1))
	assert.Zero(t, res.P)
	assert.False(t, res.TukeyRun, "no post-hoc without a within-group variance estimate")
}

func TestOneWayANOVAConstantResponse(t *testing.T) {
	tbl := anovaTable(t, map[string][]float64{
		"HR":    {50, 50},
		"Sales": {50, 50},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	_, err := OneWayANOVA(tbl, spec, 0.05)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestOneWayANOVASingleLevel(t *testing.T) {
	tbl := anovaTable(t, map[string][]float64{
		"HR": {40, 42, 44},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	_, err := OneWayANOVA(tbl, spec, 0.05)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientData))
}

func TestOneWayANOVATinyGroupWarning(t *testing.T) {
	tbl := anovaTable(t, map[string][]float64{
		"HR":    {40, 41, 42},
		"Sales": {60},
	})
	spec := schema.ANOVASpec{Name: "salary by department", Response: "salary", Group: "department"}

	res, err := OneWayANOVA(tbl, spec, 0.05)
	require.NoError(t, err)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], `"Sales"`)
}
