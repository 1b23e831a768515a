// Package arith builds the reversible arithmetic used by period finding:
// ripple-carry addition, modular addition, the modular Fibonacci step, and
// the controlled repetition of that step.
//
// Every builder method appends gates to an underlying quantum.Circuit using
// only flips, controlled flips, Toffoli gates and swaps, so the generated
// circuits act as permutations on basis states.
package arith

import (
	"sort"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/quantum"
)

// Builder appends arithmetic sub-circuits to a circuit and keeps track of the
// ancilla registers it borrowed.
type Builder struct {
	c        *quantum.Circuit
	borrowed map[string]quantum.Register
}

// NewBuilder returns a builder appending to c.
func NewBuilder(c *quantum.Circuit) *Builder {
	return &Builder{c: c, borrowed: make(map[string]quantum.Register)}
}

// Circuit returns the circuit being built.
func (b *Builder) Circuit() *quantum.Circuit { return b.c }

// Borrow runs body with regs marked as borrowed. Every register borrowed
// through a builder must hold zero again when the circuit completes;
// Borrowed lists them so callers can check that on the simulated state.
func (b *Builder) Borrow(regs []quantum.Register, body func()) {
	for _, r := range regs {
		b.borrowed[r.Name] = r
	}
	body()
}

// Borrowed returns every register passed to Borrow, ordered by position.
func (b *Builder) Borrowed() []quantum.Register {
	out := make([]quantum.Register, 0, len(b.borrowed))
	for _, r := range b.borrowed {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	return out
}

// Carry sets cout ^= majority(cin, a, b) and leaves b = a XOR b.
// The inverse form undoes it.
func (b *Builder) Carry(cin, a, bq, cout int, inverse bool) {
	if inverse {
		b.c.CCX(cin, bq, cout).CX(a, bq).CCX(a, bq, cout)
		return
	}
	b.c.CCX(a, bq, cout).CX(a, bq).CCX(cin, bq, cout)
}

// Sum sets b ^= a XOR cin.
func (b *Builder) Sum(cin, a, bq int, inverse bool) {
	if inverse {
		b.c.CX(cin, bq).CX(a, bq)
		return
	}
	b.c.CX(a, bq).CX(cin, bq)
}

func checkAdder(op string, a, bReg, carry quantum.Register) {
	if a.Size == 0 {
		panic(apperrors.NewRegisterMismatch(op, "empty addend register %q", a.Name))
	}
	if bReg.Size != a.Size+1 {
		panic(apperrors.NewRegisterMismatch(op, "register %q has %d qubits, want %d (len(%s)+1)", bReg.Name, bReg.Size, a.Size+1, a.Name))
	}
	if carry.Size != a.Size {
		panic(apperrors.NewRegisterMismatch(op, "carry register %q has %d qubits, want %d", carry.Name, carry.Size, a.Size))
	}
}

// Adder computes b <- a + b over len(a)+1 bits in place, restoring the carry
// register to zero. With inverse set it computes b <- b - a modulo
// 2^(len(a)+1), so the top bit of b signals a borrow.
//
// Lengths must satisfy len(b) == len(a)+1 and len(carry) == len(a); any other
// shape panics with *apperrors.RegisterMismatchError.
func (b *Builder) Adder(a, bReg, carry quantum.Register, inverse bool) {
	checkAdder("adder", a, bReg, carry)
	b.Borrow([]quantum.Register{carry}, func() {
		if inverse {
			b.subtract(a, bReg, carry)
			return
		}
		b.add(a, bReg, carry)
	})
}

func (b *Builder) add(a, bReg, c quantum.Register) {
	n := a.Size
	for i := 0; i < n-1; i++ {
		b.Carry(c.Qubit(i), a.Qubit(i), bReg.Qubit(i), c.Qubit(i+1), false)
	}
	b.Carry(c.Qubit(n-1), a.Qubit(n-1), bReg.Qubit(n-1), bReg.Qubit(n), false)
	b.c.CX(a.Qubit(n-1), bReg.Qubit(n-1))
	b.Sum(c.Qubit(n-1), a.Qubit(n-1), bReg.Qubit(n-1), false)
	for i := n - 2; i >= 0; i-- {
		b.Carry(c.Qubit(i), a.Qubit(i), bReg.Qubit(i), c.Qubit(i+1), true)
		b.Sum(c.Qubit(i), a.Qubit(i), bReg.Qubit(i), false)
	}
}

// subtract is add with the gate order mirrored and every primitive inverted.
func (b *Builder) subtract(a, bReg, c quantum.Register) {
	n := a.Size
	for i := 0; i < n-1; i++ {
		b.Sum(c.Qubit(i), a.Qubit(i), bReg.Qubit(i), true)
		b.Carry(c.Qubit(i), a.Qubit(i), bReg.Qubit(i), c.Qubit(i+1), false)
	}
	b.Sum(c.Qubit(n-1), a.Qubit(n-1), bReg.Qubit(n-1), true)
	b.c.CX(a.Qubit(n-1), bReg.Qubit(n-1))
	b.Carry(c.Qubit(n-1), a.Qubit(n-1), bReg.Qubit(n-1), bReg.Qubit(n), true)
	for i := n - 2; i >= 0; i-- {
		b.Carry(c.Qubit(i), a.Qubit(i), bReg.Qubit(i), c.Qubit(i+1), true)
	}
}

// LoadConstant XORs value into reg, one flip per set bit. Applied twice it
// clears the register again.
func (b *Builder) LoadConstant(reg quantum.Register, value uint64) {
	checkConstant("load", reg, value)
	for i := 0; i < reg.Size; i++ {
		if value>>uint(i)&1 == 1 {
			b.c.X(reg.Qubit(i))
		}
	}
}

func checkConstant(op string, reg quantum.Register, value uint64) {
	if reg.Size < 64 && value>>uint(reg.Size) != 0 {
		panic(apperrors.NewRegisterMismatch(op, "constant %d does not fit register %q (%d qubits)", value, reg.Name, reg.Size))
	}
}
