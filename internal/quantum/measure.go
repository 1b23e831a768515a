package quantum

import (
	"context"
	"fmt"
	"math/rand/v2"
	"runtime"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat/distuv"
)

// shotChunk is the number of shots drawn from one random stream. Chunk
// boundaries depend only on the shot count, so results do not depend on the
// number of workers.
const shotChunk = 64

// Counts maps a measured bitstring to the number of shots that produced it.
type Counts map[string]int

// Total returns the number of recorded shots.
func (c Counts) Total() int {
	total := 0
	for _, n := range c {
		total += n
	}
	return total
}

// Keys returns the bitstrings in ascending numeric order.
func (c Counts) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if len(keys[i]) != len(keys[j]) {
			return len(keys[i]) < len(keys[j])
		}
		return keys[i] < keys[j]
	})
	return keys
}

// FormatBits renders value as a width-bit string, most significant bit first,
// so qubit 0 is the rightmost character.
func FormatBits(value uint64, width int) string {
	if width <= 0 {
		return ""
	}
	s := strconv.FormatUint(value, 2)
	if len(s) >= width {
		return s[len(s)-width:]
	}
	return strings.Repeat("0", width-len(s)) + s
}

// ParseBits is the inverse of FormatBits.
func ParseBits(bits string) (uint64, error) {
	if bits == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(bits, 2, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid bitstring %q: %w", bits, err)
	}
	return v, nil
}

// Sample draws shots independent outcomes from dist, a map from register
// value to probability, and formats them as width-bit strings. Shots are
// split into fixed chunks sampled concurrently on up to workers goroutines;
// each chunk uses its own PCG stream derived from seed, so a given seed
// always yields the same counts.
func Sample(ctx context.Context, dist map[uint64]float64, width, shots int, seed uint64, workers int) (Counts, error) {
	if shots <= 0 {
		return nil, fmt.Errorf("shot count must be positive, got %d", shots)
	}
	if len(dist) == 0 {
		return nil, fmt.Errorf("empty distribution")
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	values := make([]uint64, 0, len(dist))
	for v := range dist {
		values = append(values, v)
	}
	sort.Slice(values, func(i, j int) bool { return values[i] < values[j] })
	weights := make([]float64, len(values))
	for i, v := range values {
		weights[i] = dist[v]
	}

	chunks := (shots + shotChunk - 1) / shotChunk
	tallies := make([][]int, chunks)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for chunk := 0; chunk < chunks; chunk++ {
		n := shotChunk
		if rest := shots - chunk*shotChunk; rest < n {
			n = rest
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			cat := distuv.NewCategorical(weights, rand.NewPCG(seed, uint64(chunk)))
			tally := make([]int, len(values))
			for i := 0; i < n; i++ {
				tally[int(cat.Rand())]++
			}
			tallies[chunk] = tally
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts := make(Counts)
	for _, tally := range tallies {
		for i, n := range tally {
			if n > 0 {
				counts[FormatBits(values[i], width)] += n
			}
		}
	}
	return counts, nil
}
