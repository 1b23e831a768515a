// Package quantum implements the basis-state simulation engine: named qubit
// registers, a small tagged set of gates, circuits built from them, a sparse
// amplitude state that applies gates exactly, and shot sampling.
//
// The engine only knows the gate set the period-finding circuits need. Flips
// and swaps are permutations of basis states, Hadamard splits a basis state in
// two, and phase rotations multiply an amplitude by a unit complex number.
// Because the arithmetic part of the circuit never creates superposition, the
// number of non-zero amplitudes stays far below 2^qubits in practice.
package quantum

import (
	"fmt"
	"math"
	"strings"
)

// Kind tags the variant of a Gate.
type Kind uint8

const (
	// Flip is the bit-flip (X) gate.
	Flip Kind = iota
	// ControlledFlip is a bit-flip with one control (CX).
	ControlledFlip
	// DoublyControlledFlip is a bit-flip with two or more controls (CCX and
	// its multi-controlled extensions produced by Circuit.Controlled).
	DoublyControlledFlip
	// Swap exchanges two qubits, optionally controlled.
	Swap
	// Hadamard maps |0> to (|0>+|1>)/sqrt2 and |1> to (|0>-|1>)/sqrt2.
	Hadamard
	// PhaseRotation multiplies the |1> component of its target by e^(i*Angle)
	// when all controls are set.
	PhaseRotation
	// Composite applies a named sub-circuit Repeat times under Controls.
	Composite
)

var kindNames = [...]string{
	Flip:                 "x",
	ControlledFlip:       "cx",
	DoublyControlledFlip: "ccx",
	Swap:                 "swap",
	Hadamard:             "h",
	PhaseRotation:        "p",
	Composite:            "composite",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Gate is one instruction of a Circuit. Which fields are meaningful depends
// on Kind: Targets holds one qubit (two for Swap), Angle is only read by
// PhaseRotation, and Name/Body/Repeat/Inverted only by Composite.
type Gate struct {
	Kind     Kind
	Targets  []int
	Controls []int
	Angle    float64

	Name     string
	Body     *Circuit
	Repeat   int
	Inverted bool
}

func flipKind(controls int) Kind {
	switch controls {
	case 0:
		return Flip
	case 1:
		return ControlledFlip
	default:
		return DoublyControlledFlip
	}
}

// X returns a bit-flip on target, controlled on every qubit in controls.
func X(target int, controls ...int) Gate {
	return Gate{Kind: flipKind(len(controls)), Targets: []int{target}, Controls: clone(controls)}
}

// CX returns a controlled bit-flip.
func CX(control, target int) Gate {
	return X(target, control)
}

// CCX returns a Toffoli gate.
func CCX(c1, c2, target int) Gate {
	return X(target, c1, c2)
}

// SwapGate exchanges qubits p and q.
func SwapGate(p, q int, controls ...int) Gate {
	return Gate{Kind: Swap, Targets: []int{p, q}, Controls: clone(controls)}
}

// H returns a Hadamard gate on target.
func H(target int) Gate {
	return Gate{Kind: Hadamard, Targets: []int{target}}
}

// Phase returns a phase rotation by angle on target.
func Phase(target int, angle float64, controls ...int) Gate {
	return Gate{Kind: PhaseRotation, Targets: []int{target}, Controls: clone(controls), Angle: angle}
}

// Block wraps body as a composite gate applied repeat times.
func Block(name string, body *Circuit, repeat int) Gate {
	return Gate{Kind: Composite, Name: name, Body: body, Repeat: repeat}
}

// Inverse returns the inverse gate. Flips, swaps and Hadamard are
// self-inverse; phase rotations negate their angle; composites toggle their
// inverse flag instead of copying the body.
func (g Gate) Inverse() Gate {
	inv := g
	inv.Targets = clone(g.Targets)
	inv.Controls = clone(g.Controls)
	switch g.Kind {
	case PhaseRotation:
		inv.Angle = -g.Angle
	case Composite:
		inv.Inverted = !g.Inverted
	}
	return inv
}

// WithControl returns a copy of g that only acts when control is set.
func (g Gate) WithControl(control int) Gate {
	out := g
	out.Targets = clone(g.Targets)
	out.Controls = append(clone(g.Controls), control)
	if g.Kind <= DoublyControlledFlip {
		out.Kind = flipKind(len(out.Controls))
	}
	return out
}

// Size returns the number of primitive gate applications g expands to.
func (g Gate) Size() int {
	if g.Kind != Composite {
		return 1
	}
	if g.Body == nil {
		return 0
	}
	return g.Repeat * g.Body.Len()
}

func (g Gate) String() string {
	var b strings.Builder
	if g.Kind == Composite {
		fmt.Fprintf(&b, "%s^%d", g.Name, g.Repeat)
		if g.Inverted {
			b.WriteString("†")
		}
	} else {
		b.WriteString(g.Kind.String())
	}
	if g.Kind == PhaseRotation {
		fmt.Fprintf(&b, "(%.4f)", g.Angle)
	}
	if len(g.Controls) > 0 {
		fmt.Fprintf(&b, " c%v", g.Controls)
	}
	if len(g.Targets) > 0 {
		fmt.Fprintf(&b, " t%v", g.Targets)
	}
	return b.String()
}

func (g Gate) validate(numQubits int) error {
	wantTargets := 1
	switch g.Kind {
	case Swap:
		wantTargets = 2
	case Composite:
		wantTargets = 0
		if g.Body == nil {
			return fmt.Errorf("composite %q has no body", g.Name)
		}
		if g.Repeat < 0 {
			return fmt.Errorf("composite %q has negative repeat %d", g.Name, g.Repeat)
		}
		if g.Body.NumQubits != numQubits {
			return fmt.Errorf("composite %q is %d qubits wide, circuit is %d", g.Name, g.Body.NumQubits, numQubits)
		}
	case PhaseRotation:
		if math.IsNaN(g.Angle) || math.IsInf(g.Angle, 0) {
			return fmt.Errorf("phase rotation with non-finite angle")
		}
	}
	if g.Kind > Composite {
		return fmt.Errorf("unknown gate kind %d", g.Kind)
	}
	if len(g.Targets) != wantTargets {
		return fmt.Errorf("%s expects %d targets, got %d", g.Kind, wantTargets, len(g.Targets))
	}
	seen := make(map[int]bool, len(g.Targets)+len(g.Controls))
	for _, q := range append(clone(g.Targets), g.Controls...) {
		if q < 0 || q >= numQubits {
			return fmt.Errorf("%s: qubit %d out of range [0,%d)", g.Kind, q, numQubits)
		}
		if seen[q] {
			return fmt.Errorf("%s: qubit %d used twice", g.Kind, q)
		}
		seen[q] = true
	}
	return nil
}

func clone(s []int) []int {
	if len(s) == 0 {
		return nil
	}
	out := make([]int, len(s))
	copy(out, s)
	return out
}
