package service

//go:generate mockgen -source=estimation_service.go -destination=mocks/mock_service.go -package=mocks

import (
	"context"
	"errors"

	"github.com/agbru/fibqpe/internal/logging"
	"github.com/agbru/fibqpe/internal/orchestration"
	"github.com/agbru/fibqpe/internal/period"
	"github.com/agbru/fibqpe/internal/qpe"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/agbru/fibqpe/internal/store"
	"github.com/agbru/fibqpe/pkg/models"
)

var (
	// ErrMaxModulusExceeded is returned when N is above the configured maximum.
	ErrMaxModulusExceeded = errors.New("maximum modulus exceeded")
	// ErrMaxShotsExceeded is returned when the shot count is above the maximum.
	ErrMaxShotsExceeded = errors.New("maximum shot count exceeded")
	// ErrHistoryDisabled is returned by the history methods without a store.
	ErrHistoryDisabled = errors.New("run history is disabled")
	// ErrRunNotFound is returned for an unknown run id.
	ErrRunNotFound = errors.New("run not found")
)

// DefaultMaxShots bounds the shots of one API request.
const DefaultMaxShots = 100_000

// Service defines the estimation operations exposed over HTTP.
type Service interface {
	// Estimate runs phase estimation for modulus and returns the verified
	// report. A nil seed draws a fresh one.
	Estimate(ctx context.Context, modulus int64, shots int, seed *uint64) (models.EstimationResult, error)
	// Capacity reports the largest simulation accepted.
	Capacity() models.CapacityResponse
	// ListRuns returns the most recent runs, newest first.
	ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error)
	// GetRun returns one recorded run.
	GetRun(ctx context.Context, id string) (models.EstimationResult, error)
}

// History is the subset of *store.Store used by the service.
type History interface {
	Save(ctx context.Context, r models.EstimationResult) error
	List(ctx context.Context, limit int) ([]models.RunSummary, error)
	Get(ctx context.Context, id string) (models.EstimationResult, error)
}

// EstimationService validates requests, runs them on an estimator and records
// them in the optional history. Implements the Service interface.
type EstimationService struct {
	estimator  orchestration.Estimator
	limits     quantum.Limits
	history    History
	maxModulus uint64
	maxShots   int
	window     int
	logger     logging.Logger
}

// Ensure EstimationService implements Service interface.
var _ Service = (*EstimationService)(nil)

// Options configures an EstimationService.
type Options struct {
	// Limits is the ceiling the estimator was built with.
	Limits quantum.Limits
	// History records runs when non-nil.
	History History
	// MaxModulus rejects larger N; 0 derives it from Limits.
	MaxModulus uint64
	// MaxShots rejects larger shot counts; 0 means DefaultMaxShots.
	MaxShots int
	// Window is the number of starting indices of the period check.
	Window int
	Logger logging.Logger
}

// NewEstimationService creates the service.
func NewEstimationService(est orchestration.Estimator, opts Options) *EstimationService {
	s := &EstimationService{
		estimator:  est,
		limits:     opts.Limits,
		history:    opts.History,
		maxModulus: opts.MaxModulus,
		maxShots:   opts.MaxShots,
		window:     opts.Window,
		logger:     opts.Logger,
	}
	if s.maxModulus == 0 {
		s.maxModulus = qpe.MaxModulusFor(s.limits.Ceiling())
	}
	if s.maxShots <= 0 {
		s.maxShots = DefaultMaxShots
	}
	if s.window <= 0 {
		s.window = period.DefaultWindow
	}
	if s.logger == nil {
		s.logger = logging.Nop()
	}
	return s
}

// MaxModulus returns the largest accepted N.
func (s *EstimationService) MaxModulus() uint64 { return s.maxModulus }

// Estimate runs one estimation. Moduli above the maximum are rejected before
// any circuit is built; non-positive moduli are left to the estimator, which
// reports them as InvalidModulusError.
func (s *EstimationService) Estimate(ctx context.Context, modulus int64, shots int, seed *uint64) (models.EstimationResult, error) {
	if modulus > 0 && uint64(modulus) > s.maxModulus {
		return models.EstimationResult{}, ErrMaxModulusExceeded
	}
	if shots > s.maxShots {
		return models.EstimationResult{}, ErrMaxShotsExceeded
	}

	outcome, err := s.estimator.Estimate(ctx, qpe.Request{Modulus: modulus, Shots: shots, Seed: seed})
	if err != nil {
		return models.EstimationResult{}, err
	}
	res, err := orchestration.Evaluate(outcome, s.window)
	if err != nil {
		return models.EstimationResult{}, err
	}
	result := res.Model()

	if s.history != nil {
		if err := s.history.Save(ctx, result); err != nil {
			// The run itself succeeded; a history failure is logged only.
			s.logger.Error("failed to record run", err, logging.String("run_id", result.RunID))
		}
	}
	return result, nil
}

// Capacity reports the host memory capacity and the configured ceiling.
func (s *EstimationService) Capacity() models.CapacityResponse {
	resp := models.CapacityResponse{Ceiling: s.limits.Ceiling(), MaxModulus: s.maxModulus}
	if c, err := qpe.ProbeCapacity(); err == nil {
		resp.AvailableBytes = c.AvailableBytes
		resp.MaxQubits = c.MaxQubits
	}
	return resp
}

// ListRuns returns recorded runs.
func (s *EstimationService) ListRuns(ctx context.Context, limit int) ([]models.RunSummary, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, limit)
}

// GetRun returns one recorded run, or ErrRunNotFound.
func (s *EstimationService) GetRun(ctx context.Context, id string) (models.EstimationResult, error) {
	if s.history == nil {
		return models.EstimationResult{}, ErrHistoryDisabled
	}
	r, err := s.history.Get(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.EstimationResult{}, ErrRunNotFound
	}
	return r, err
}
