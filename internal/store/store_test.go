package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/fibqpe/pkg/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func result(id string, modulus uint64, created time.Time) models.EstimationResult {
	return models.EstimationResult{
		RunID:          id,
		Modulus:        modulus,
		CountingQubits: 6,
		Shots:          250,
		Seed:           ^uint64(0) - 1,
		Counts:         map[string]int{"000000": 100, "100000": 150},
		Rows: []models.PhaseRow{
			{Bitstring: "000000", Phase: 0, Fraction: "0/1", Period: 1, Count: 100},
			{Bitstring: "100000", Value: 32, Phase: 0.5, Fraction: "1/2", Period: 2, Count: 150},
		},
		Histogram: map[int]int{1: 100, 2: 150},
		Mode:      2,
		Pisano:    24,
		Checks:    []models.PeriodCheck{{Period: 2, Count: 150, Holds: true, WitnessK: 3}},
		CreatedAt: created,
	}
}

func TestSaveAndGet(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	want := result("run-a", 6, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC))
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Get(ctx, "run-a")
	require.NoError(t, err)
	assert.Equal(t, want.Modulus, got.Modulus)
	assert.Equal(t, want.Seed, got.Seed, "seeds above 2^63 must survive the INTEGER column")
	assert.Equal(t, want.Counts, got.Counts)
	assert.Equal(t, want.Histogram, got.Histogram)
	assert.Equal(t, want.Rows, got.Rows)
	assert.Equal(t, want.Checks, got.Checks)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
}

func TestGetMissing(t *testing.T) {
	s := setupTestStore(t)
	_, err := s.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSaveRequiresID(t *testing.T) {
	s := setupTestStore(t)
	assert.Error(t, s.Save(context.Background(), models.EstimationResult{}))
}

func TestListNewestFirst(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"first", "second", "third"} {
		require.NoError(t, s.Save(ctx, result(id, uint64(3+i), base.Add(time.Duration(i)*time.Minute))))
	}

	all, err := s.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "third", all[0].RunID)
	assert.Equal(t, uint64(5), all[0].Modulus)
	assert.Equal(t, uint64(24), all[0].Pisano)
	assert.Equal(t, 2, all[0].Mode)

	two, err := s.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestSaveReplaces(t *testing.T) {
	s := setupTestStore(t)
	ctx := context.Background()
	r := result("dup", 6, time.Now())
	require.NoError(t, s.Save(ctx, r))
	r.Mode = 24
	require.NoError(t, s.Save(ctx, r))

	all, err := s.List(ctx, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, 24, all[0].Mode)
}

func TestOpenFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "runs.db")
	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(context.Background(), result("persisted", 7, time.Time{})))
	require.NoError(t, s.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), "persisted")
	require.NoError(t, err)
	assert.Equal(t, uint64(7), got.Modulus)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, path, reopened.Path())
}
