package qpe

import (
	"github.com/agbru/fibqpe/internal/arith"
	"github.com/agbru/fibqpe/internal/fibonacci"
	"github.com/agbru/fibqpe/internal/quantum"
)

// CountingRegister is the name of the phase register.
const CountingRegister = "counting"

// Program is the assembled phase-estimation circuit for one modulus.
type Program struct {
	Modulus  uint64
	Sizes    Sizes
	Layout   *quantum.Layout
	Counting quantum.Register
	Regs     arith.FibRegisters
	Circuit  *quantum.Circuit
}

// BuildOptions tunes circuit construction.
type BuildOptions struct {
	// ReducePowers shortens each controlled power 2^i modulo the Pisano
	// period of N. The step has that order on every valid input, so the
	// circuit computes the same state with fewer gates.
	ReducePowers bool
}

// Build validates N, checks the qubit ceiling, and assembles the circuit:
//
//  1. Hadamard on every counting qubit.
//  2. a <- 1 mod N, b <- 0, so (a, b) = (F(1), F(0)).
//  3. For counting qubit i, the Fibonacci step repeated 2^i times,
//     controlled on that qubit.
//  4. Inverse Fourier transform on the counting register.
//
// Nothing is allocated for the state here; the ceiling check only looks at
// the qubit count.
func Build(modulus int64, limits quantum.Limits, opts BuildOptions) (*Program, error) {
	sizes, err := SizesFor(modulus)
	if err != nil {
		return nil, err
	}
	if err := limits.Check(sizes.TotalQubits); err != nil {
		return nil, err
	}

	n := uint64(modulus)
	layout := quantum.NewLayout()
	counting := layout.Add(CountingRegister, sizes.CountingQubits)
	regs := arith.AllocFibRegisters(layout, sizes.TermQubits)

	c := quantum.NewCircuit(layout.NumQubits())
	c.Name = "fib_qpe"
	for _, q := range counting.Qubits() {
		c.H(q)
	}
	if n > 1 {
		c.X(regs.A.Qubit(0))
	}

	step := arith.StepCircuit(c.NumQubits, regs, n)
	var order uint64
	if opts.ReducePowers {
		order = fibonacci.PisanoPeriod(n)
	}
	for i := 0; i < counting.Size; i++ {
		power := uint64(1) << uint(i)
		if order > 0 {
			power %= order
		}
		c.Append(arith.ControlledFibPower(counting.Qubit(i), step, regs, n, int(power)))
	}
	quantum.QFT(c, counting.Qubits(), true)

	return &Program{
		Modulus:  n,
		Sizes:    sizes,
		Layout:   layout,
		Counting: counting,
		Regs:     regs,
		Circuit:  c,
	}, nil
}

// GateCount returns the number of primitive gate applications in the circuit.
func (p *Program) GateCount() int {
	return p.Circuit.Len()
}
