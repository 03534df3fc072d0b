package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRejectsDuplicateKeys(t *testing.T) {
	_, err := New([]Field{
		{Key: "age", Kind: KindNumeric},
		{Key: "age", Kind: KindNumeric},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")
}

func TestNewRejectsEmptyKey(t *testing.T) {
	_, err := New([]Field{{DisplayName: "Nameless", Kind: KindNumeric}})
	require.Error(t, err)
}

func TestResolve(t *testing.T) {
	s := Default()

	f, isRank, err := s.Resolve("salary")
	require.NoError(t, err)
	assert.False(t, isRank)
	assert.Equal(t, "salary", f.Key)

	f, isRank, err = s.Resolve("job_satisfaction_rank")
	require.NoError(t, err)
	assert.True(t, isRank)
	assert.Equal(t, "job_satisfaction", f.Key)

	_, _, err = s.Resolve("salary_rank")
	require.Error(t, err, "rank projection of a non-ordinal field")

	_, _, err = s.Resolve("shoe_size")
	require.Error(t, err)
}

func TestRankOf(t *testing.T) {
	f := Field{Key: "education", Kind: KindOrdinal, Levels: EducationLevels}

	r, ok := f.RankOf("No Formal Qualifications")
	require.True(t, ok)
	assert.Equal(t, 1, r, "ranks are 1-based")

	r, ok = f.RankOf("Doctorate")
	require.True(t, ok)
	assert.Equal(t, 5, r)

	_, ok = f.RankOf("Apprenticeship")
	assert.False(t, ok)
}

func TestDisplayName(t *testing.T) {
	s := Default()
	assert.Equal(t, "Work-Life Balance", s.DisplayName("work_life_balance"))
	assert.Equal(t, "Work-Life Balance (rank)", s.DisplayName("work_life_balance_rank"))
	assert.Equal(t, "mystery", s.DisplayName("mystery"), "unknown refs fall back to themselves")
}

func TestDefaultSchemaShape(t *testing.T) {
	s := Default()

	att, ok := s.Field("attrition")
	require.True(t, ok)
	assert.Equal(t, KindBinary, att.Kind)
	assert.Equal(t, []string{"No", "Yes"}, att.Levels, "reference level first")

	edu, ok := s.Field("education")
	require.True(t, ok)
	assert.Equal(t, "education", edu.Lookup)
	assert.False(t, edu.FromReview)

	mr, ok := s.Field("manager_rating")
	require.True(t, ok)
	assert.True(t, mr.FromReview)
	assert.Equal(t, "rating", mr.Lookup)

	for _, f := range s.ReviewFields() {
		assert.True(t, f.FromReview, "ReviewFields must only return review-sourced fields")
	}
	for _, f := range s.EmployeeFields() {
		assert.False(t, f.FromReview)
	}
}
