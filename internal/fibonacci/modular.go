// Package fibonacci provides the classical reference for the modular
// Fibonacci recurrence: terms via fast doubling, the Pisano period, and the
// checks used to validate periods recovered by phase estimation.
//
// The convention throughout is F(0) = 0, F(1) = 1, F(k) = F(k-1) + F(k-2).
package fibonacci

import (
	"math/bits"
)

// mulMod returns a*b mod m without overflow.
func mulMod(a, b, m uint64) uint64 {
	hi, lo := bits.Mul64(a, b)
	_, rem := bits.Div64(hi%m, lo, m)
	return rem
}

func addMod(a, b, m uint64) uint64 {
	s, carry := bits.Add64(a, b, 0)
	if carry != 0 || s >= m {
		s -= m
	}
	return s
}

// ModFib returns F(k) mod modulus using the fast doubling identities
//
//	F(2k)   = F(k) * (2F(k+1) - F(k))
//	F(2k+1) = F(k)^2 + F(k+1)^2
//
// walking the bits of k from the most significant one. modulus must be
// positive.
func ModFib(k, modulus uint64) uint64 {
	f, _ := modFibPair(k, modulus)
	return f
}

// modFibPair returns (F(k), F(k+1)) mod modulus.
func modFibPair(k, modulus uint64) (uint64, uint64) {
	if modulus == 0 {
		panic("fibonacci: modulus must be positive")
	}
	if modulus == 1 {
		return 0, 0
	}
	a, b := uint64(0), uint64(1)
	for i := bits.Len64(k) - 1; i >= 0; i-- {
		// t = 2F(k+1) - F(k) mod m
		t := addMod(b, b, modulus)
		t = addMod(t, modulus-a, modulus)
		c := mulMod(a, t, modulus)
		d := addMod(mulMod(a, a, modulus), mulMod(b, b, modulus), modulus)
		if (k>>uint(i))&1 == 0 {
			a, b = c, d
		} else {
			a, b = d, addMod(c, d, modulus)
		}
	}
	return a, b
}

// ModSequence returns F(0), ..., F(count-1) mod modulus.
func ModSequence(modulus uint64, count int) []uint64 {
	if modulus == 0 {
		panic("fibonacci: modulus must be positive")
	}
	if count <= 0 {
		return nil
	}
	seq := make([]uint64, count)
	prev, cur := uint64(0), 1%modulus
	for i := range seq {
		seq[i] = prev
		prev, cur = cur, addMod(prev, cur, modulus)
	}
	return seq
}

// HoldsAt reports whether F(k+r) ≡ F(k) (mod modulus).
func HoldsAt(modulus, r, k uint64) bool {
	return ModFib(k+r, modulus) == ModFib(k, modulus)
}

// IsPeriod reports whether r is a period of the whole sequence, that is
// whether the pair (F(r), F(r+1)) is back at (0, 1). Every such r is a
// multiple of the Pisano period.
func IsPeriod(modulus, r uint64) bool {
	if r == 0 {
		return false
	}
	f, g := modFibPair(r, modulus)
	return f == 0 && g == 1%modulus
}
