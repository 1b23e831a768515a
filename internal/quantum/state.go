package quantum

import (
	"context"
	"fmt"
	"math"
	"math/cmplx"
	"sort"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"gonum.org/v1/gonum/floats"
)

const (
	// HardMaxQubits is the widest state a uint64 basis index can address while
	// keeping one spare bit.
	HardMaxQubits = 62
	// DefaultMaxQubits bounds the simulation when no ceiling is configured.
	DefaultMaxQubits = 30
	// DefaultTolerance is the accepted drift of the total probability from 1.
	DefaultTolerance = 1e-9

	// pruneThreshold drops amplitudes whose squared magnitude is float noise
	// left over from destructive interference.
	pruneThreshold = 1e-28
	// reportEvery is the number of primitive gates between progress reports.
	reportEvery = 4096
)

// Limits carries the configured simulation ceiling.
type Limits struct {
	MaxQubits int
}

// Ceiling returns the effective qubit ceiling: MaxQubits, or DefaultMaxQubits
// when unset, never above HardMaxQubits.
func (l Limits) Ceiling() int {
	limit := l.MaxQubits
	if limit <= 0 {
		limit = DefaultMaxQubits
	}
	if limit > HardMaxQubits {
		limit = HardMaxQubits
	}
	return limit
}

// Check returns a ResourceError when numQubits exceeds the ceiling.
func (l Limits) Check(numQubits int) error {
	if limit := l.Ceiling(); numQubits > limit {
		return apperrors.ResourceError{Qubits: numQubits, Limit: limit}
	}
	return nil
}

// ProgressReporter receives the normalized progress (0.0 to 1.0) of a run.
type ProgressReporter func(progress float64)

// State is a sparse amplitude distribution over basis states. Only non-zero
// amplitudes are stored; bit q of a key is the value of qubit q.
//
// A State is not safe for concurrent use.
type State struct {
	numQubits int
	amps      map[uint64]complex128
	scratch   map[uint64]complex128
}

// NewState returns the all-zero basis state. The ceiling is checked before
// anything is allocated.
func NewState(numQubits int, limits Limits) (*State, error) {
	return NewBasisState(numQubits, 0, limits)
}

// NewBasisState returns the basis state |basis>.
func NewBasisState(numQubits int, basis uint64, limits Limits) (*State, error) {
	if numQubits < 0 {
		return nil, fmt.Errorf("quantum: negative qubit count %d", numQubits)
	}
	if err := limits.Check(numQubits); err != nil {
		return nil, err
	}
	if numQubits < 64 && basis>>uint(numQubits) != 0 {
		return nil, fmt.Errorf("quantum: basis %d does not fit in %d qubits", basis, numQubits)
	}
	s := &State{
		numQubits: numQubits,
		amps:      map[uint64]complex128{basis: 1},
		scratch:   make(map[uint64]complex128),
	}
	return s, nil
}

// NumQubits returns the width of the state.
func (s *State) NumQubits() int { return s.numQubits }

// NonZero returns the number of stored amplitudes.
func (s *State) NonZero() int { return len(s.amps) }

// Amplitude returns the amplitude of basis state key.
func (s *State) Amplitude(key uint64) complex128 { return s.amps[key] }

// Probability returns |amplitude|^2 of basis state key.
func (s *State) Probability(key uint64) float64 { return sqAbs(s.amps[key]) }

// Apply applies a single gate, expanding composites.
func (s *State) Apply(g Gate) error {
	single := &Circuit{NumQubits: s.numQubits, Gates: []Gate{g}}
	if err := single.Validate(); err != nil {
		return err
	}
	r := runner{ctx: context.Background(), state: s}
	return r.apply(g, 0, false)
}

// Run applies every gate of c in order. The context is checked between gate
// applications; progress, when non-nil, is reported as gates complete.
func (s *State) Run(ctx context.Context, c *Circuit, progress ProgressReporter) error {
	if c.NumQubits != s.numQubits {
		return fmt.Errorf("quantum: %d-qubit circuit on %d-qubit state", c.NumQubits, s.numQubits)
	}
	if err := c.Validate(); err != nil {
		return err
	}
	r := runner{ctx: ctx, state: s, total: c.Len(), progress: progress}
	for _, g := range c.Gates {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := r.apply(g, 0, false); err != nil {
			return err
		}
	}
	if progress != nil {
		progress(1.0)
	}
	return nil
}

type runner struct {
	ctx      context.Context
	state    *State
	done     int
	total    int
	progress ProgressReporter
}

func (r *runner) apply(g Gate, controls uint64, inverse bool) error {
	mask := controls | qubitMask(g.Controls)
	if g.Kind == Composite {
		return r.applyComposite(g, mask, inverse)
	}
	s := r.state
	switch g.Kind {
	case Flip, ControlledFlip, DoublyControlledFlip:
		s.flip(uint64(1)<<uint(g.Targets[0]), mask)
	case Swap:
		s.swap(g.Targets[0], g.Targets[1], mask)
	case Hadamard:
		s.hadamard(uint64(1)<<uint(g.Targets[0]), mask)
	case PhaseRotation:
		angle := g.Angle
		if inverse {
			angle = -angle
		}
		s.phase(uint64(1)<<uint(g.Targets[0])|mask, angle)
	default:
		return fmt.Errorf("quantum: cannot apply gate kind %s", g.Kind)
	}
	r.done++
	if r.progress != nil && r.total > 0 && r.done%reportEvery == 0 {
		r.progress(float64(r.done) / float64(r.total))
	}
	return nil
}

func (r *runner) applyComposite(g Gate, controls uint64, inverse bool) error {
	inv := inverse != g.Inverted
	body := g.Body.Gates
	for rep := 0; rep < g.Repeat; rep++ {
		if err := r.ctx.Err(); err != nil {
			return err
		}
		if inv {
			for i := len(body) - 1; i >= 0; i-- {
				if err := r.apply(body[i], controls, true); err != nil {
					return err
				}
			}
			continue
		}
		for _, bg := range body {
			if err := r.apply(bg, controls, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *State) swapBuffers() {
	s.amps, s.scratch = s.scratch, s.amps
	clear(s.scratch)
}

func (s *State) flip(bit, controls uint64) {
	for k, a := range s.amps {
		if k&controls == controls {
			k ^= bit
		}
		s.scratch[k] = a
	}
	s.swapBuffers()
}

func (s *State) swap(p, q int, controls uint64) {
	bp, bq := uint64(1)<<uint(p), uint64(1)<<uint(q)
	for k, a := range s.amps {
		if k&controls == controls && (k&bp == 0) != (k&bq == 0) {
			k ^= bp | bq
		}
		s.scratch[k] = a
	}
	s.swapBuffers()
}

func (s *State) hadamard(bit, controls uint64) {
	h := complex(1/math.Sqrt2, 0)
	for k, a := range s.amps {
		if k&controls != controls {
			s.scratch[k] += a
			continue
		}
		lo, hi := k&^bit, k|bit
		s.scratch[lo] += a * h
		if k&bit == 0 {
			s.scratch[hi] += a * h
		} else {
			s.scratch[hi] -= a * h
		}
	}
	for k, a := range s.scratch {
		if sqAbs(a) < pruneThreshold {
			delete(s.scratch, k)
		}
	}
	s.swapBuffers()
}

func (s *State) phase(mask uint64, angle float64) {
	rot := cmplx.Rect(1, angle)
	for k, a := range s.amps {
		if k&mask == mask {
			s.amps[k] = a * rot
		}
	}
}

// Norm returns the total probability of the state.
func (s *State) Norm() float64 {
	probs := make([]float64, 0, len(s.amps))
	for _, a := range s.amps {
		probs = append(probs, sqAbs(a))
	}
	return floats.Sum(probs)
}

// CheckNormalization returns a NormalizationError when the total probability
// deviates from 1 by more than tol.
func (s *State) CheckNormalization(tol float64) error {
	if norm := s.Norm(); math.Abs(norm-1) > tol || math.IsNaN(norm) {
		return apperrors.NormalizationError{Norm: norm, Tolerance: tol}
	}
	return nil
}

// Marginal returns the probability distribution of the value held by r.
func (s *State) Marginal(r Register) map[uint64]float64 {
	out := make(map[uint64]float64)
	for k, a := range s.amps {
		out[r.Extract(k)] += sqAbs(a)
	}
	return out
}

// RegisterValue returns the value of r if every stored basis state agrees on
// it, that is when r is not entangled with a superposition.
func (s *State) RegisterValue(r Register) (uint64, bool) {
	var (
		value uint64
		first = true
	)
	for k := range s.amps {
		v := r.Extract(k)
		if first {
			value, first = v, false
			continue
		}
		if v != value {
			return 0, false
		}
	}
	return value, !first
}

// AssertZero returns an AncillaError for the first register that holds a
// non-zero value in any stored basis state.
func (s *State) AssertZero(regs ...Register) error {
	for _, r := range regs {
		for k := range s.amps {
			if v := r.Extract(k); v != 0 {
				return apperrors.AncillaError{Register: r.Name, Value: v}
			}
		}
	}
	return nil
}

// Keys returns the stored basis indices in ascending order.
func (s *State) Keys() []uint64 {
	keys := make([]uint64, 0, len(s.amps))
	for k := range s.amps {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Extract returns the register value encoded in basis index key.
func (r Register) Extract(key uint64) uint64 {
	return (key & r.mask()) >> uint(r.Start)
}

// Place returns the basis index bits that encode value in r.
func (r Register) Place(value uint64) uint64 {
	if r.Size < 64 && value>>uint(r.Size) != 0 {
		panic(fmt.Sprintf("quantum: value %d does not fit register %q (%d qubits)", value, r.Name, r.Size))
	}
	return value << uint(r.Start)
}

func qubitMask(qubits []int) uint64 {
	var m uint64
	for _, q := range qubits {
		m |= uint64(1) << uint(q)
	}
	return m
}

func sqAbs(a complex128) float64 {
	re, im := real(a), imag(a)
	return re*re + im*im
}
