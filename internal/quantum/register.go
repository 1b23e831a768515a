package quantum

import "fmt"

// Register is a named, contiguous run of qubits. Bit i of the register's
// integer value lives on qubit Start+i (little-endian).
type Register struct {
	Name  string
	Start int
	Size  int
}

// Qubit returns the global index of the i-th qubit in the register.
func (r Register) Qubit(i int) int {
	if i < 0 || i >= r.Size {
		panic(fmt.Sprintf("quantum: register %q has no qubit %d", r.Name, i))
	}
	return r.Start + i
}

// Qubits returns the global indices of every qubit in the register, least
// significant first.
func (r Register) Qubits() []int {
	out := make([]int, r.Size)
	for i := range out {
		out[i] = r.Start + i
	}
	return out
}

// Slice returns the sub-register of qubits [from, to).
func (r Register) Slice(from, to int) Register {
	if from < 0 || to > r.Size || from > to {
		panic(fmt.Sprintf("quantum: invalid slice [%d,%d) of register %q (size %d)", from, to, r.Name, r.Size))
	}
	return Register{Name: r.Name, Start: r.Start + from, Size: to - from}
}

func (r Register) mask() uint64 {
	if r.Size == 0 {
		return 0
	}
	return (uint64(1)<<uint(r.Size) - 1) << uint(r.Start)
}

// Layout assigns registers to consecutive qubit indices in the order they are
// added and remembers which of them are ancillas that must return to zero.
type Layout struct {
	regs     []Register
	byName   map[string]int
	ancillas map[string]bool
	next     int
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{byName: make(map[string]int), ancillas: make(map[string]bool)}
}

// Add reserves size qubits for a new register. Names must be unique.
func (l *Layout) Add(name string, size int) Register {
	if _, dup := l.byName[name]; dup {
		panic(fmt.Sprintf("quantum: register %q already declared", name))
	}
	if size < 0 {
		panic(fmt.Sprintf("quantum: register %q has negative size %d", name, size))
	}
	r := Register{Name: name, Start: l.next, Size: size}
	l.byName[name] = len(l.regs)
	l.regs = append(l.regs, r)
	l.next += size
	return r
}

// AddAncilla reserves an ancilla register.
func (l *Layout) AddAncilla(name string, size int) Register {
	r := l.Add(name, size)
	l.ancillas[name] = true
	return r
}

// Register looks a register up by name.
func (l *Layout) Register(name string) (Register, bool) {
	i, ok := l.byName[name]
	if !ok {
		return Register{}, false
	}
	return l.regs[i], true
}

// Registers returns every register in declaration order.
func (l *Layout) Registers() []Register {
	out := make([]Register, len(l.regs))
	copy(out, l.regs)
	return out
}

// Ancillas returns the registers declared with AddAncilla.
func (l *Layout) Ancillas() []Register {
	var out []Register
	for _, r := range l.regs {
		if l.ancillas[r.Name] {
			out = append(out, r)
		}
	}
	return out
}

// NumQubits returns the total width of the layout.
func (l *Layout) NumQubits() int {
	return l.next
}
