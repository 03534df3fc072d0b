package model

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// ============================================================================
// STUDENTIZED RANGE DISTRIBUTION
// ============================================================================
// CDF of the studentized range Q for k groups and ν error degrees of
// freedom, evaluated by Gauss–Legendre quadrature:
//
//	P(Q ≤ q) = ∫₀^∞ f_ν(u) · k ∫ φ(z) [Φ(z) − Φ(z − q·u)]^(k−1) dz du
//
// where u is distributed as sqrt(χ²_ν / ν). For large ν the outer
// integral collapses to u = 1. Accuracy is in the 1e-5 range — ample for
// p-value reporting.
// ============================================================================

const (
	tukeyOuterNodes = 96
	tukeyInnerNodes = 64
	tukeyLargeNu    = 5e3
)

// pTukey returns P(Q ≤ q) for k groups and nu error degrees of freedom.
func pTukey(q float64, k int, nu float64) float64 {
	if q <= 0 {
		return 0
	}
	if k < 2 || nu < 1 {
		return math.NaN()
	}

	if nu > tukeyLargeNu {
		return rangeCDF(q, k)
	}

	// Outer integral over u = s/σ with density of sqrt(χ²_ν/ν).
	// The density is effectively zero beyond 1 + 10/sqrt(ν).
	uHi := 1 + 10/math.Sqrt(nu)
	xs, ws := gaussLegendre(tukeyOuterNodes, 0, uHi)

	lgam := lgamma(nu / 2)
	total := 0.0
	for i, u := range xs {
		if u <= 0 {
			continue
		}
		logDens := nu/2*math.Log(nu) + (nu-1)*math.Log(u) - nu*u*u/2 - lgam - (nu/2-1)*math.Ln2
		total += ws[i] * math.Exp(logDens) * rangeCDF(q*u, k)
	}
	return clampProb(total)
}

// rangeCDF is the CDF of the range of k standard normals at w.
func rangeCDF(w float64, k int) float64 {
	if w <= 0 {
		return 0
	}
	xs, ws := gaussLegendre(tukeyInnerNodes, -8, 8)
	total := 0.0
	for i, z := range xs {
		phi := math.Exp(-z*z/2) / math.Sqrt(2*math.Pi)
		inner := distuv.UnitNormal.CDF(z) - distuv.UnitNormal.CDF(z-w)
		if inner <= 0 {
			continue
		}
		total += ws[i] * phi * math.Pow(inner, float64(k-1))
	}
	return clampProb(float64(k) * total)
}

// qTukey inverts pTukey by bisection: the smallest q with P(Q ≤ q) ≥ p.
func qTukey(p float64, k int, nu float64) float64 {
	lo, hi := 0.0, 1.0
	for pTukey(hi, k, nu) < p && hi < 1e4 {
		hi *= 2
	}
	for i := 0; i < 80 && hi-lo > 1e-8; i++ {
		mid := (lo + hi) / 2
		if pTukey(mid, k, nu) < p {
			lo = mid
		} else {
			hi = mid
		}
	}
	return (lo + hi) / 2
}

// gaussLegendre returns quadrature nodes and weights on [a, b], computed
// by Newton iteration on the Legendre polynomial.
func gaussLegendre(n int, a, b float64) (xs, ws []float64) {
	xs = make([]float64, n)
	ws = make([]float64, n)

	m := (n + 1) / 2
	xm := (b + a) / 2
	xl := (b - a) / 2

	for i := 0; i < m; i++ {
		z := math.Cos(math.Pi * (float64(i) + 0.75) / (float64(n) + 0.5))
		var pp float64
		for iter := 0; iter < 100; iter++ {
			p1, p2 := 1.0, 0.0
			for j := 0; j < n; j++ {
				p3 := p2
				p2 = p1
				p1 = ((2*float64(j)+1)*z*p2 - float64(j)*p3) / (float64(j) + 1)
			}
			pp = float64(n) * (z*p1 - p2) / (z*z - 1)
			z1 := z
			z = z1 - p1/pp
			if math.Abs(z-z1) < 1e-15 {
				break
			}
		}
		xs[i] = xm - xl*z
		xs[n-1-i] = xm + xl*z
		w := 2 * xl / ((1 - z*z) * pp * pp)
		ws[i] = w
		ws[n-1-i] = w
	}
	return xs, ws
}

func lgamma(x float64) float64 {
	v, _ := math.Lgamma(x)
	return v
}

func clampProb(p float64) float64 {
	if p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}
