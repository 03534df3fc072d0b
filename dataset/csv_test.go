package dataset

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrlens-org/hrlens/schema"
)

func TestParseEmployeesHeaderVariants(t *testing.T) {
	// Headers in the wild arrive in PascalCase, snake_case, or with spaces.
	csv := []byte("EmployeeID,Age,Years With Curr Manager,attrition\n" +
		"E1,34,5,Yes\n")

	recs, found, err := ParseEmployees(csv, schema.Default())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.True(t, found["employee_id"])
	assert.True(t, found["years_with_curr_manager"])

	id, ok := recs[0].Label("employee_id")
	require.True(t, ok)
	assert.Equal(t, "E1", id)

	age, ok := recs[0].Num("age")
	require.True(t, ok)
	assert.Equal(t, 34.0, age)
}

func TestParseEmployeesNullCells(t *testing.T) {
	csv := []byte("employee_id,age,salary,attrition\n" +
		"E1,,notanumber,Yes\n" +
		"E2,40,52000,No\n")

	recs, _, err := ParseEmployees(csv, schema.Default())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	_, ok := recs[0].Num("age")
	assert.False(t, ok, "empty cell stays null")
	_, ok = recs[0].Num("salary")
	assert.False(t, ok, "unparseable cell stays null, never zeroed")

	sal, ok := recs[1].Num("salary")
	require.True(t, ok)
	assert.Equal(t, 52000.0, sal)
}

func TestParseEmployeesCanonicalizesBinary(t *testing.T) {
	csv := []byte("employee_id,attrition\nE1,yes\nE2,NO\n")

	recs, _, err := ParseEmployees(csv, schema.Default())
	require.NoError(t, err)

	v, _ := recs[0].Label("attrition")
	assert.Equal(t, "Yes", v)
	v, _ = recs[1].Label("attrition")
	assert.Equal(t, "No", v)
}

func TestParseEmployeesOrdinalCodesAreNumeric(t *testing.T) {
	csv := []byte("employee_id,education\nE1,3\n")

	recs, _, err := ParseEmployees(csv, schema.Default())
	require.NoError(t, err)

	code, ok := recs[0].Num("education")
	require.True(t, ok, "ordinal source cells are integer codes")
	assert.Equal(t, 3.0, code)
}

func TestParseEmployeesIgnoresUnknownColumns(t *testing.T) {
	csv := []byte("employee_id,favorite_color,age\nE1,teal,29\n")

	recs, found, err := ParseEmployees(csv, schema.Default())
	require.NoError(t, err)
	assert.False(t, found["favorite_color"])

	_, ok := recs[0].Label("favorite_color")
	assert.False(t, ok)
	age, ok := recs[0].Num("age")
	require.True(t, ok)
	assert.Equal(t, 29.0, age)
}

func TestParseReviewsUsesReviewFields(t *testing.T) {
	csv := []byte("PerformanceID,EmployeeID,ReviewDate,JobSatisfaction,Age\n" +
		"P1,E1,2023-01-05,4,99\n")

	recs, found, err := ParseReviews(csv, schema.Default())
	require.NoError(t, err)
	require.Len(t, recs, 1)

	assert.True(t, found["employee_id"])
	assert.True(t, found["job_satisfaction"])
	assert.False(t, found["age"], "employee-level columns are not review fields")

	sat, ok := recs[0].Num("job_satisfaction")
	require.True(t, ok)
	assert.Equal(t, 4.0, sat)
}
