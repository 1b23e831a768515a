package period

import (
	"fmt"
	"sort"

	"github.com/agbru/fibqpe/internal/quantum"
)

// Row is one distinct measured bitstring with its phase and candidate period.
type Row struct {
	Bitstring string  `json:"bitstring" msgpack:"bitstring"`
	Value     uint64  `json:"value" msgpack:"value"`
	Phase     float64 `json:"phase" msgpack:"phase"`
	Fraction  string  `json:"fraction" msgpack:"fraction"`
	Period    int     `json:"period" msgpack:"period"`
	Count     int     `json:"count" msgpack:"count"`
}

// Analysis is the phase/period table of a run plus the period histogram.
type Analysis struct {
	CountingQubits int         `json:"counting_qubits" msgpack:"counting_qubits"`
	Rows           []Row       `json:"rows" msgpack:"rows"`
	Histogram      map[int]int `json:"histogram" msgpack:"histogram"`
	Total          int         `json:"total" msgpack:"total"`
}

// Analyze recovers a candidate period for every distinct bitstring in counts,
// which must all be t bits wide. Rows are ordered by measured value.
func Analyze(counts quantum.Counts, t int) (Analysis, error) {
	a := Analysis{CountingQubits: t, Histogram: make(map[int]int)}
	den := uint64(1) << uint(t)
	for _, bitstring := range counts.Keys() {
		if len(bitstring) != t {
			return Analysis{}, fmt.Errorf("bitstring %q has %d bits, want %d", bitstring, len(bitstring), t)
		}
		s, err := quantum.ParseBits(bitstring)
		if err != nil {
			return Analysis{}, err
		}
		count := counts[bitstring]
		r := CandidatePeriod(s, t)
		p, q := uint64(0), uint64(1)
		if s != 0 {
			p, q = LimitDenominator(s, den, den/2)
		}
		a.Rows = append(a.Rows, Row{
			Bitstring: bitstring,
			Value:     s,
			Phase:     Phase(s, t),
			Fraction:  fmt.Sprintf("%d/%d", p, q),
			Period:    r,
			Count:     count,
		})
		a.Histogram[r] += count
		a.Total += count
	}
	return a, nil
}

// Periods returns the distinct candidate periods in ascending order.
func (a Analysis) Periods() []int {
	out := make([]int, 0, len(a.Histogram))
	for r := range a.Histogram {
		out = append(out, r)
	}
	sort.Ints(out)
	return out
}

// Mode returns the most frequent candidate period; ties go to the smaller
// period. It returns (0, 0) for an empty analysis.
func (a Analysis) Mode() (periodValue, count int) {
	for _, r := range a.Periods() {
		if c := a.Histogram[r]; c > count {
			periodValue, count = r, c
		}
	}
	return periodValue, count
}
