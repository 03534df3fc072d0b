package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Reference values from R's qtukey/ptukey.
func TestQTukeyKnownValues(t *testing.T) {
	// qtukey(0.95, 2, 10) = 3.1511, qtukey(0.95, 3, 10) = 3.8768,
	// qtukey(0.95, 4, 20) = 3.9583
	assert.InDelta(t, 3.1511, qTukey(0.95, 2, 10), 0.01)
	assert.InDelta(t, 3.8768, qTukey(0.95, 3, 10), 0.01)
	assert.InDelta(t, 3.9583, qTukey(0.95, 4, 20), 0.01)
}

func TestPTukeyKnownValues(t *testing.T) {
	// ptukey(3.8768, 3, 10) = 0.95
	assert.InDelta(t, 0.95, pTukey(3.8768, 3, 10), 0.005)
	// ptukey(2.0, 3, 10) = 0.3789
	assert.InDelta(t, 0.3789, pTukey(2.0, 3, 10), 0.01)
}

func TestPTukeyTwoGroupsMatchesStudentT(t *testing.T) {
	// With k = 2 the studentized range is √2·|t|, so P(Q ≤ √2·t) equals
	// the two-sided Student-t coverage. t(0.975, 10) = 2.2281.
	q := 2.2281 * 1.4142135623730951
	assert.InDelta(t, 0.95, pTukey(q, 2, 10), 0.005)
}

func TestPTukeyMonotone(t *testing.T) {
	prev := 0.0
	for _, q := range []float64{0.5, 1, 2, 3, 4, 6, 9} {
		p := pTukey(q, 3, 12)
		assert.Greater(t, p, prev)
		prev = p
	}
	assert.Greater(t, prev, 0.99)
}

func TestPTukeyBounds(t *testing.T) {
	assert.Zero(t, pTukey(0, 3, 10))
	assert.Zero(t, pTukey(-1, 3, 10))
	assert.LessOrEqual(t, pTukey(50, 3, 10), 1.0)
}

func TestQTukeyRoundTrip(t *testing.T) {
	for _, tc := range []struct {
		p  float64
		k  int
		nu float64
	}{
		{0.90, 3, 8},
		{0.95, 5, 30},
		{0.99, 4, 15},
	} {
		q := qTukey(tc.p, tc.k, tc.nu)
		require.Greater(t, q, 0.0)
		assert.InDelta(t, tc.p, pTukey(q, tc.k, tc.nu), 1e-4,
			"p=%v k=%d nu=%v", tc.p, tc.k, tc.nu)
	}
}

func TestQTukeyLargeDF(t *testing.T) {
	// qtukey(0.95, 3, Inf) = 3.3145; very large ν should approach it.
	assert.InDelta(t, 3.3145, qTukey(0.95, 3, 1e6), 0.02)
}
