package quantum

import "math"

// QFT appends the quantum Fourier transform (or its inverse) on qubits to c.
// qubits[0] is the least significant bit of the transformed integer.
//
// The inverse form is the textbook one: a bit-reversal of the register,
// then for each qubit j in ascending order the controlled rotations
// P(-pi/2^(j-k)) from every lower qubit k followed by H on j. The forward form
// is its exact adjoint.
func QFT(c *Circuit, qubits []int, inverse bool) *Circuit {
	body := NewCircuit(c.NumQubits)
	t := len(qubits)
	for i := 0; i < t/2; i++ {
		body.Swap(qubits[i], qubits[t-1-i])
	}
	for j := 0; j < t; j++ {
		for k := 0; k < j; k++ {
			body.P(qubits[j], -math.Pi/float64(uint64(1)<<uint(j-k)), qubits[k])
		}
		body.H(qubits[j])
	}
	if !inverse {
		body = body.Inverse()
	}
	return c.Extend(body)
}
