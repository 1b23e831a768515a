// Package period turns counting-register measurements into candidate periods
// of the modular Fibonacci recurrence.
//
// A measured value s on t counting qubits is read as the phase s/2^t. The
// candidate period is the denominator of the closest fraction to that phase
// whose denominator does not exceed 2^(t-1), found by continued-fraction
// expansion. A zero phase is read as period 1.
package period

import (
	"math"
	"math/big"
)

// Phase returns s / 2^t.
func Phase(s uint64, t int) float64 {
	return float64(s) / math.Exp2(float64(t))
}

// LimitDenominator returns the fraction p/q closest to num/den with
// 1 <= q <= maxDen. When two candidates are equally close the convergent is
// preferred over the semiconvergent. den and maxDen must be positive.
func LimitDenominator(num, den, maxDen uint64) (p, q uint64) {
	if den == 0 || maxDen == 0 {
		panic("period: zero denominator")
	}
	g := gcd(num, den)
	num, den = num/g, den/g
	if den <= maxDen {
		return num, den
	}

	p0, q0, p1, q1 := uint64(0), uint64(1), uint64(1), uint64(0)
	n, d := num, den
	for {
		a := n / d
		q2 := q0 + a*q1
		if q2 > maxDen {
			break
		}
		p0, q0, p1, q1 = p1, q1, p0+a*p1, q2
		n, d = d, n-a*d
	}

	k := (maxDen - q0) / q1
	target := new(big.Rat).SetFrac(new(big.Int).SetUint64(num), new(big.Int).SetUint64(den))
	semi := ratio(p0+k*p1, q0+k*q1)
	conv := ratio(p1, q1)
	if distance(conv, target).Cmp(distance(semi, target)) <= 0 {
		return p1, q1
	}
	return p0 + k*p1, q0 + k*q1
}

// CandidatePeriod returns the period recovered from measured value s on t
// counting qubits.
func CandidatePeriod(s uint64, t int) int {
	if s == 0 || t <= 0 {
		return 1
	}
	den := uint64(1) << uint(t)
	_, q := LimitDenominator(s%den, den, den/2)
	return int(q)
}

func ratio(p, q uint64) *big.Rat {
	return new(big.Rat).SetFrac(new(big.Int).SetUint64(p), new(big.Int).SetUint64(q))
}

func distance(x, y *big.Rat) *big.Rat {
	d := new(big.Rat).Sub(x, y)
	return d.Abs(d)
}

func gcd(a, b uint64) uint64 {
	for b != 0 {
		a, b = b, a%b
	}
	if a == 0 {
		return 1
	}
	return a
}
