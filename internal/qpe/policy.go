// Package qpe assembles and runs the phase-estimation circuit for the
// Fibonacci step mod N and samples the counting register.
package qpe

import (
	"math/bits"

	apperrors "github.com/agbru/fibqpe/internal/errors"
)

// Sizes is the qubit budget for one modulus.
type Sizes struct {
	// Modulus is N.
	Modulus uint64 `json:"modulus"`
	// TermQubits is n, the width of each Fibonacci term.
	TermQubits int `json:"term_qubits"`
	// CountingQubits is t = 2n.
	CountingQubits int `json:"counting_qubits"`
	// TotalQubits is t + n + (n+1) + n + n + 1 = 6n + 2.
	TotalQubits int `json:"total_qubits"`
}

// TermQubits returns n = ceil(log2 N), plus one when N is a power of two.
// For N = 1 this gives a single qubit.
func TermQubits(modulus uint64) int {
	n := bits.Len64(modulus - 1)
	if modulus&(modulus-1) == 0 {
		n++
	}
	return n
}

// SizesFor validates N and returns its qubit budget.
func SizesFor(modulus int64) (Sizes, error) {
	if modulus <= 0 {
		return Sizes{}, apperrors.InvalidModulusError{Modulus: modulus}
	}
	n := TermQubits(uint64(modulus))
	return Sizes{
		Modulus:        uint64(modulus),
		TermQubits:     n,
		CountingQubits: 2 * n,
		TotalQubits:    6*n + 2,
	}, nil
}

// MaxModulusFor returns the largest N whose circuit fits in qubits.
func MaxModulusFor(qubits int) uint64 {
	n := (qubits - 2) / 6
	if n <= 0 {
		return 0
	}
	if n > 63 {
		n = 63
	}
	// Every N in (2^(n-1), 2^n) needs n term qubits; 2^n itself needs n+1.
	return uint64(1)<<uint(n) - 1
}
