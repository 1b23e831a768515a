package fibonacci

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// GoldenData represents the structure of our golden file entries
type GoldenData struct {
	N          uint64 `json:"n"`
	Pisano     uint64 `json:"pisano"`
	EntryPoint uint64 `json:"entry_point"`
}

func TestPeriodsAgainstGoldenFile(t *testing.T) {
	t.Parallel()
	goldenPath := filepath.Join("testdata", "pisano_golden.json")
	file, err := os.Open(goldenPath)
	if err != nil {
		t.Fatalf("Failed to open golden file: %v. Did you run 'go run ./cmd/generate-golden'?", err)
	}
	defer file.Close()

	var cases []GoldenData
	if err := json.NewDecoder(file).Decode(&cases); err != nil {
		t.Fatalf("Failed to decode golden file: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("golden file is empty")
	}

	for _, tc := range cases {
		t.Run(fmt.Sprintf("N=%d", tc.N), func(t *testing.T) {
			t.Parallel()
			if got := PisanoPeriod(tc.N); got != tc.Pisano {
				t.Errorf("PisanoPeriod(%d) = %d, want %d", tc.N, got, tc.Pisano)
			}
			if got := EntryPoint(tc.N); got != tc.EntryPoint {
				t.Errorf("EntryPoint(%d) = %d, want %d", tc.N, got, tc.EntryPoint)
			}
			if !IsPeriod(tc.N, tc.Pisano) {
				t.Errorf("IsPeriod(%d, %d) = false", tc.N, tc.Pisano)
			}
			if tc.Pisano > 1 && IsPeriod(tc.N, tc.Pisano-1) {
				t.Errorf("IsPeriod(%d, %d) = true for a shorter period", tc.N, tc.Pisano-1)
			}
		})
	}
}

func TestModFibMatchesBigInt(t *testing.T) {
	t.Parallel()
	moduli := []uint64{1, 2, 6, 10, 97, 1 << 32, 1<<63 + 29}
	a, b := big.NewInt(0), big.NewInt(1)
	for k := uint64(0); k <= 300; k++ {
		for _, m := range moduli {
			want := new(big.Int).Mod(a, new(big.Int).SetUint64(m)).Uint64()
			if got := ModFib(k, m); got != want {
				t.Fatalf("ModFib(%d, %d) = %d, want %d", k, m, got, want)
			}
		}
		a.Add(a, b)
		a, b = b, a
	}
}

func TestModSequence(t *testing.T) {
	t.Parallel()
	tests := []struct {
		modulus uint64
		count   int
		want    []uint64
	}{
		{6, 10, []uint64{0, 1, 1, 2, 3, 5, 2, 1, 3, 4}},
		{1, 3, []uint64{0, 0, 0}},
		{2, 4, []uint64{0, 1, 1, 0}},
		{5, 0, nil},
	}
	for _, tt := range tests {
		got := ModSequence(tt.modulus, tt.count)
		if len(got) != len(tt.want) {
			t.Fatalf("ModSequence(%d, %d) = %v, want %v", tt.modulus, tt.count, got, tt.want)
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("ModSequence(%d, %d)[%d] = %d, want %d", tt.modulus, tt.count, i, got[i], tt.want[i])
			}
		}
	}
}

func TestHoldsAt(t *testing.T) {
	t.Parallel()
	// mod 6: F = 0 1 1 2 3 5 2 1 3 4 1 5 0 5 5 4 ...
	if !HoldsAt(6, 1, 1) {
		t.Error("F(2) ≡ F(1) mod 6 should hold")
	}
	if HoldsAt(6, 1, 0) {
		t.Error("F(1) ≡ F(0) mod 6 should not hold")
	}
	if !HoldsAt(6, 24, 5) {
		t.Error("the Pisano period must hold everywhere")
	}
}

// TestPisanoPeriodicity_PropertyBased verifies that the sequence repeats with
// the Pisano period from every starting index.
func TestPisanoPeriodicity_PropertyBased(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("F(k+π(N)) ≡ F(k) mod N", prop.ForAll(
		func(modulus, k uint64) bool {
			return HoldsAt(modulus, PisanoPeriod(modulus), k)
		},
		gen.UInt64Range(1, 2000),
		gen.UInt64Range(0, 1<<40),
	))

	properties.Property("entry point divides the Pisano period", prop.ForAll(
		func(modulus uint64) bool {
			return PisanoPeriod(modulus)%EntryPoint(modulus) == 0
		},
		gen.UInt64Range(1, 2000),
	))

	properties.TestingRun(t)
}
