package quantum

import (
	"fmt"
)

// Circuit is an ordered gate list over a fixed number of qubits.
type Circuit struct {
	Name      string
	NumQubits int
	Gates     []Gate
}

// NewCircuit returns an empty circuit over numQubits qubits.
func NewCircuit(numQubits int) *Circuit {
	return &Circuit{NumQubits: numQubits}
}

// Append adds gates at the end of the circuit.
func (c *Circuit) Append(gates ...Gate) *Circuit {
	c.Gates = append(c.Gates, gates...)
	return c
}

// Extend appends every gate of other.
func (c *Circuit) Extend(other *Circuit) *Circuit {
	if other.NumQubits != c.NumQubits {
		panic(fmt.Sprintf("quantum: cannot extend %d-qubit circuit with %d-qubit circuit", c.NumQubits, other.NumQubits))
	}
	c.Gates = append(c.Gates, other.Gates...)
	return c
}

// X appends a bit-flip.
func (c *Circuit) X(target int, controls ...int) *Circuit { return c.Append(X(target, controls...)) }

// CX appends a controlled flip.
func (c *Circuit) CX(control, target int) *Circuit { return c.Append(CX(control, target)) }

// CCX appends a Toffoli gate.
func (c *Circuit) CCX(c1, c2, target int) *Circuit { return c.Append(CCX(c1, c2, target)) }

// Swap appends a swap.
func (c *Circuit) Swap(p, q int) *Circuit { return c.Append(SwapGate(p, q)) }

// H appends a Hadamard.
func (c *Circuit) H(target int) *Circuit { return c.Append(H(target)) }

// P appends a controlled phase rotation.
func (c *Circuit) P(target int, angle float64, controls ...int) *Circuit {
	return c.Append(Phase(target, angle, controls...))
}

// Inverse returns the adjoint circuit: gates reversed, each inverted.
func (c *Circuit) Inverse() *Circuit {
	inv := &Circuit{Name: c.Name, NumQubits: c.NumQubits, Gates: make([]Gate, len(c.Gates))}
	for i, g := range c.Gates {
		inv.Gates[len(c.Gates)-1-i] = g.Inverse()
	}
	return inv
}

// Controlled returns a copy of c in which every gate also depends on control.
// Composite gates carry the control themselves, so their bodies are shared.
func (c *Circuit) Controlled(control int) *Circuit {
	out := &Circuit{Name: c.Name, NumQubits: c.NumQubits, Gates: make([]Gate, len(c.Gates))}
	for i, g := range c.Gates {
		out.Gates[i] = g.WithControl(control)
	}
	return out
}

// Len returns the number of primitive gate applications after expanding
// composites.
func (c *Circuit) Len() int {
	n := 0
	for _, g := range c.Gates {
		n += g.Size()
	}
	return n
}

// Validate checks every gate references distinct qubits in range, recursing
// into composite bodies.
func (c *Circuit) Validate() error {
	return c.validate(0)
}

func (c *Circuit) validate(depth int) error {
	if depth > 32 {
		return fmt.Errorf("composite nesting deeper than 32")
	}
	for i, g := range c.Gates {
		if err := g.validate(c.NumQubits); err != nil {
			return fmt.Errorf("gate %d: %w", i, err)
		}
		if g.Kind == Composite {
			if err := g.Body.validate(depth + 1); err != nil {
				return fmt.Errorf("gate %d (%s): %w", i, g.Name, err)
			}
		}
	}
	return nil
}
