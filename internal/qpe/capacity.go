package qpe

import (
	"fmt"
	"math/bits"

	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/shirou/gopsutil/v3/mem"
)

const (
	// bytesPerAmplitude is the cost of one stored amplitude in the worst
	// case: a sparse map entry holding a uint64 key and a complex128 value,
	// with bucket overhead.
	bytesPerAmplitude = 48
	// memoryShare is the fraction of available memory a run may plan for.
	memoryShare = 2
)

// Capacity describes how large a simulation this host can take on.
type Capacity struct {
	AvailableBytes uint64 `json:"available_bytes"`
	MaxQubits      int    `json:"max_qubits"`
	MaxModulus     uint64 `json:"max_modulus"`
}

func (c Capacity) String() string {
	return fmt.Sprintf("%d MiB available: up to %d qubits, N <= %d", c.AvailableBytes>>20, c.MaxQubits, c.MaxModulus)
}

// CapacityFor returns the ceiling that keeps a fully dense state within half
// of available bytes.
func CapacityFor(available uint64) Capacity {
	budget := available / memoryShare / bytesPerAmplitude
	qubits := 0
	if budget > 0 {
		qubits = bits.Len64(budget) - 1
	}
	if qubits > quantum.HardMaxQubits {
		qubits = quantum.HardMaxQubits
	}
	return Capacity{
		AvailableBytes: available,
		MaxQubits:      qubits,
		MaxModulus:     MaxModulusFor(qubits),
	}
}

// ProbeCapacity reads the available system memory.
func ProbeCapacity() (Capacity, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return Capacity{}, fmt.Errorf("reading system memory: %w", err)
	}
	return CapacityFor(vm.Available), nil
}

// AutoLimits returns limits derived from system memory, falling back to the
// default ceiling when memory cannot be read.
func AutoLimits() quantum.Limits {
	c, err := ProbeCapacity()
	if err != nil || c.MaxQubits == 0 {
		return quantum.Limits{MaxQubits: quantum.DefaultMaxQubits}
	}
	return quantum.Limits{MaxQubits: c.MaxQubits}
}
