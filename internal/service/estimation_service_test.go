package service

import (
	"context"
	"errors"
	"testing"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/qpe"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/service/mocks"
	"github.com/agbru/fibqpe/internal/store"
	"github.com/agbru/fibqpe/pkg/models"
	"github.com/golang/mock/gomock"
)

func seed(v uint64) *uint64 { return &v }

func newTestService(history History) *EstimationService {
	limits := quantum.Limits{MaxQubits: 20}
	return NewEstimationService(qpe.NewEstimator(qpe.WithLimits(limits)), Options{
		Limits:  limits,
		History: history,
	})
}

func TestNewEstimationServiceDefaults(t *testing.T) {
	t.Parallel()
	s := newTestService(nil)
	if s.MaxModulus() != 7 {
		t.Errorf("MaxModulus() = %d, want 7", s.MaxModulus())
	}
	if s.maxShots != DefaultMaxShots {
		t.Errorf("maxShots = %d, want %d", s.maxShots, DefaultMaxShots)
	}
}

func TestEstimateRecordsHistory(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistory(ctrl)

	var saved models.EstimationResult
	history.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, r models.EstimationResult) error {
			saved = r
			return nil
		})

	s := newTestService(history)
	res, err := s.Estimate(context.Background(), 6, 250, seed(2024))
	if err != nil {
		t.Fatalf("Estimate() error: %v", err)
	}
	if res.Modulus != 6 || res.Shots != 250 || res.Seed != 2024 {
		t.Errorf("unexpected result header: %+v", res)
	}
	if res.Pisano != 24 {
		t.Errorf("Pisano = %d, want 24", res.Pisano)
	}
	for _, c := range res.Checks {
		if !c.Holds {
			t.Errorf("period %d fails the recurrence check", c.Period)
		}
	}
	if saved.RunID != res.RunID {
		t.Errorf("saved run %q, returned %q", saved.RunID, res.RunID)
	}
}

func TestEstimateHistoryFailureIsNotFatal(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistory(ctrl)
	history.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	if _, err := newTestService(history).Estimate(context.Background(), 3, 10, seed(1)); err != nil {
		t.Errorf("Estimate() error: %v", err)
	}
}

func TestEstimateRejections(t *testing.T) {
	t.Parallel()
	s := newTestService(nil)
	tests := []struct {
		name    string
		modulus int64
		shots   int
		check   func(error) bool
	}{
		{"Above maximum", 8, 10, func(err error) bool { return errors.Is(err, ErrMaxModulusExceeded) }},
		{"Too many shots", 3, DefaultMaxShots + 1, func(err error) bool { return errors.Is(err, ErrMaxShotsExceeded) }},
		{"Zero modulus", 0, 10, func(err error) bool {
			var e apperrors.InvalidModulusError
			return errors.As(err, &e)
		}},
		{"Negative shots", 3, -5, func(err error) bool {
			var e apperrors.ValidationError
			return errors.As(err, &e)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := s.Estimate(context.Background(), tt.modulus, tt.shots, nil)
			if err == nil || !tt.check(err) {
				t.Errorf("Estimate(%d, %d) error = %v", tt.modulus, tt.shots, err)
			}
		})
	}
}

func TestHistoryDisabled(t *testing.T) {
	t.Parallel()
	s := newTestService(nil)
	if _, err := s.ListRuns(context.Background(), 10); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("ListRuns() error = %v", err)
	}
	if _, err := s.GetRun(context.Background(), "x"); !errors.Is(err, ErrHistoryDisabled) {
		t.Errorf("GetRun() error = %v", err)
	}
}

func TestGetRunMapsNotFound(t *testing.T) {
	t.Parallel()
	ctrl := gomock.NewController(t)
	history := mocks.NewMockHistory(ctrl)
	history.EXPECT().Get(gomock.Any(), "missing").Return(models.EstimationResult{}, store.ErrNotFound)
	history.EXPECT().List(gomock.Any(), 5).Return([]models.RunSummary{{RunID: "a"}}, nil)

	s := newTestService(history)
	if _, err := s.GetRun(context.Background(), "missing"); !errors.Is(err, ErrRunNotFound) {
		t.Errorf("GetRun() error = %v, want ErrRunNotFound", err)
	}
	runs, err := s.ListRuns(context.Background(), 5)
	if err != nil || len(runs) != 1 {
		t.Errorf("ListRuns() = %v, %v", runs, err)
	}
}

func TestHistoryWithSQLiteStore(t *testing.T) {
	t.Parallel()
	st, err := store.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	s := newTestService(st)
	res, err := s.Estimate(context.Background(), 5, 50, seed(7))
	if err != nil {
		t.Fatal(err)
	}
	got, err := s.GetRun(context.Background(), res.RunID)
	if err != nil {
		t.Fatalf("GetRun() error: %v", err)
	}
	if got.Modulus != 5 || got.Mode != res.Mode {
		t.Errorf("GetRun() = %+v", got)
	}
}

func TestCapacityReportsCeiling(t *testing.T) {
	t.Parallel()
	c := newTestService(nil).Capacity()
	if c.Ceiling != 20 || c.MaxModulus != 7 {
		t.Errorf("Capacity() = %+v", c)
	}
}
