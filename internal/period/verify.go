package period

import "github.com/agbru/fibqpe/internal/fibonacci"

// DefaultWindow is the number of starting indices Verify tries.
const DefaultWindow = 16

// Verify reports whether F(k+r) ≡ F(k) (mod modulus) for some k in
// [0, window), returning the first such k. This is the weak check applied to
// every candidate: it accepts any r that lines up with the sequence once.
func Verify(modulus uint64, r, window int) (int, bool) {
	if modulus == 0 || r <= 0 {
		return 0, false
	}
	if window <= 0 {
		window = DefaultWindow
	}
	for k := 0; k < window; k++ {
		if fibonacci.HoldsAt(modulus, uint64(r), uint64(k)) {
			return k, true
		}
	}
	return 0, false
}

// IsExactPeriod reports whether r is a true period of the sequence mod
// modulus, i.e. a multiple of its Pisano period.
func IsExactPeriod(modulus uint64, r int) bool {
	if modulus == 0 || r <= 0 {
		return false
	}
	return fibonacci.IsPeriod(modulus, uint64(r))
}

// Check pairs one candidate with both verdicts.
type Check struct {
	Period   int  `json:"period"`
	Count    int  `json:"count"`
	Holds    bool `json:"holds"`
	WitnessK int  `json:"witness_k"`
	Exact    bool `json:"exact"`
}

// CheckAll verifies every period in the histogram.
func (a Analysis) CheckAll(modulus uint64, window int) []Check {
	periods := a.Periods()
	out := make([]Check, 0, len(periods))
	for _, r := range periods {
		k, ok := Verify(modulus, r, window)
		out = append(out, Check{
			Period:   r,
			Count:    a.Histogram[r],
			Holds:    ok,
			WitnessK: k,
			Exact:    IsExactPeriod(modulus, r),
		})
	}
	return out
}
