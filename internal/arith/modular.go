package arith

import (
	"fmt"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/quantum"
)

// Register names used by AllocFibRegisters.
const (
	RegA       = "a"
	RegB       = "b"
	RegModulus = "mod"
	RegCarry   = "carry"
	RegFlag    = "flag"
)

// FibRegisters groups the registers the modular Fibonacci step acts on.
// A and B hold the two current terms; B carries one extra overflow qubit.
// Mod, Carry and Flag are ancillas that hold zero between steps.
type FibRegisters struct {
	A     quantum.Register
	B     quantum.Register
	Mod   quantum.Register
	Carry quantum.Register
	Flag  quantum.Register
}

// AllocFibRegisters reserves the step registers for n-bit terms on l, in the
// order a, b, mod, carry, flag.
func AllocFibRegisters(l *quantum.Layout, n int) FibRegisters {
	return FibRegisters{
		A:     l.Add(RegA, n),
		B:     l.Add(RegB, n+1),
		Mod:   l.AddAncilla(RegModulus, n),
		Carry: l.AddAncilla(RegCarry, n),
		Flag:  l.AddAncilla(RegFlag, 1),
	}
}

// Width returns the term width n.
func (r FibRegisters) Width() int { return r.A.Size }

// Ancillas returns the scratch registers.
func (r FibRegisters) Ancillas() []quantum.Register {
	return []quantum.Register{r.Mod, r.Carry, r.Flag}
}

// Validate reports inconsistent register lengths.
func (r FibRegisters) Validate() error {
	n := r.A.Size
	switch {
	case n == 0:
		return apperrors.NewRegisterMismatch("fib registers", "empty term register %q", r.A.Name)
	case r.B.Size != n+1:
		return apperrors.NewRegisterMismatch("fib registers", "%q has %d qubits, want %d", r.B.Name, r.B.Size, n+1)
	case r.Mod.Size != n:
		return apperrors.NewRegisterMismatch("fib registers", "%q has %d qubits, want %d", r.Mod.Name, r.Mod.Size, n)
	case r.Carry.Size != n:
		return apperrors.NewRegisterMismatch("fib registers", "%q has %d qubits, want %d", r.Carry.Name, r.Carry.Size, n)
	case r.Flag.Size != 1:
		return apperrors.NewRegisterMismatch("fib registers", "%q has %d qubits, want 1", r.Flag.Name, r.Flag.Size)
	}
	return nil
}

func (r FibRegisters) mustValidate(op string, modulus uint64) {
	if err := r.Validate(); err != nil {
		panic(err)
	}
	if modulus == 0 {
		panic(apperrors.NewRegisterMismatch(op, "modulus must be positive"))
	}
	checkConstant(op, r.Mod, modulus)
}

// ModAdder computes b <- (a + b) mod N for 0 <= a, b < N. The Mod register
// must already hold N; a, Mod, Carry and Flag are left unchanged.
//
//  1. b <- a + b, then b <- b - N.
//  2. Flag <- 1 unless the subtraction borrowed.
//  3. Clear Mod when Flag is set, add Mod back to b, then restore Mod.
//  4. Flag equals the borrow of b - a; uncompute it and add a back.
func (b *Builder) ModAdder(r FibRegisters, modulus uint64) {
	r.mustValidate("modular adder", modulus)
	n := r.Width()
	top := r.B.Qubit(n)
	flag := r.Flag.Qubit(0)
	b.Borrow([]quantum.Register{r.Flag, r.Mod}, func() {
		b.Adder(r.A, r.B, r.Carry, false)
		b.Adder(r.Mod, r.B, r.Carry, true)

		b.c.X(top).CX(top, flag).X(top)
		b.maskModulus(r, modulus)
		b.Adder(r.Mod, r.B, r.Carry, false)
		b.maskModulus(r, modulus)

		b.Adder(r.A, r.B, r.Carry, true)
		b.c.CX(top, flag)
		b.Adder(r.A, r.B, r.Carry, false)
	})
}

// maskModulus flips the set bits of N in Mod when Flag is set.
func (b *Builder) maskModulus(r FibRegisters, modulus uint64) {
	flag := r.Flag.Qubit(0)
	for i := 0; i < r.Mod.Size; i++ {
		if modulus>>uint(i)&1 == 1 {
			b.c.CX(flag, r.Mod.Qubit(i))
		}
	}
}

// FibStep maps (a, b) = (x, y) to ((x+y) mod N, x): a modular addition into
// b followed by a qubit-wise swap of the term registers. Mod must hold N.
func (b *Builder) FibStep(r FibRegisters, modulus uint64) {
	b.ModAdder(r, modulus)
	for i := 0; i < r.Width(); i++ {
		b.c.Swap(r.A.Qubit(i), r.B.Qubit(i))
	}
}

// StepCircuit returns one Fibonacci step as a standalone circuit over
// numQubits qubits. Mod must hold N when it runs.
func StepCircuit(numQubits int, r FibRegisters, modulus uint64) *quantum.Circuit {
	c := quantum.NewCircuit(numQubits)
	c.Name = "fib_step"
	NewBuilder(c).FibStep(r, modulus)
	return c
}

// FibPower returns a composite applying the Fibonacci step power times. N is
// loaded into Mod before the repetitions and cleared after them, so the gate
// leaves every ancilla at zero.
func FibPower(step *quantum.Circuit, r FibRegisters, modulus uint64, power int) quantum.Gate {
	if power < 0 {
		panic(fmt.Sprintf("arith: negative power %d", power))
	}
	body := quantum.NewCircuit(step.NumQubits)
	body.Name = fmt.Sprintf("fib^%d", power)
	bld := NewBuilder(body)
	bld.LoadConstant(r.Mod, modulus)
	body.Append(quantum.Block(step.Name, step, power))
	bld.LoadConstant(r.Mod, modulus)
	return quantum.Block(body.Name, body, 1)
}

// ControlledFibPower returns FibPower controlled on ctrl.
func ControlledFibPower(ctrl int, step *quantum.Circuit, r FibRegisters, modulus uint64, power int) quantum.Gate {
	return FibPower(step, r, modulus, power).WithControl(ctrl)
}
