package fibonacci

// maxPisanoFactor bounds the search: the Pisano period never exceeds 6N.
const maxPisanoFactor = 6

// PisanoPeriod returns the period of F(k) mod modulus. The Pisano period of 1
// is 1.
func PisanoPeriod(modulus uint64) uint64 {
	if modulus == 0 {
		panic("fibonacci: modulus must be positive")
	}
	if modulus == 1 {
		return 1
	}
	prev, cur := uint64(0), uint64(1)
	limit := maxPisanoFactor * modulus
	for k := uint64(1); k <= limit; k++ {
		prev, cur = cur, addMod(prev, cur, modulus)
		if prev == 0 && cur == 1 {
			return k
		}
	}
	// Unreachable for any positive modulus.
	panic("fibonacci: Pisano period not found")
}

// EntryPoint returns the rank of apparition of modulus: the smallest k > 0
// with F(k) ≡ 0 (mod modulus). It always divides the Pisano period.
func EntryPoint(modulus uint64) uint64 {
	if modulus == 0 {
		panic("fibonacci: modulus must be positive")
	}
	if modulus == 1 {
		return 1
	}
	prev, cur := uint64(0), uint64(1)
	for k := uint64(1); ; k++ {
		prev, cur = cur, addMod(prev, cur, modulus)
		if prev == 0 {
			return k
		}
	}
}
