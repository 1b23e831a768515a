package qpe

import (
	"context"
	"math/rand/v2"
	"time"

	apperrors "github.com/agbru/fibqpe/internal/errors"
	"github.com/agbru/fibqpe/internal/logging"
	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	// DefaultShots is the shot count used when a request leaves it unset.
	DefaultShots = 250
	// DefaultCacheSize is the number of assembled circuits kept in memory.
	DefaultCacheSize = 16
)

// Request describes one estimation run.
type Request struct {
	// Modulus is N; values <= 0 are rejected.
	Modulus int64
	// Shots is the number of samples; 0 means DefaultShots.
	Shots int
	// Seed makes sampling reproducible; nil draws a fresh seed.
	Seed *uint64
	// Index identifies the run in progress notifications.
	Index int
}

// Outcome is the result of one estimation run. Counts holds the sampled
// shots; Probabilities is the exact distribution they were drawn from.
type Outcome struct {
	RunID         string
	Modulus       uint64
	Sizes         Sizes
	Shots         int
	Seed          uint64
	Counts        quantum.Counts
	Probabilities map[string]float64
	GateCount     int
	Amplitudes    int
	Norm          float64
	Duration      time.Duration
}

// Estimator builds, simulates and samples phase-estimation circuits.
// It is safe for concurrent use: every run owns its own state.
type Estimator struct {
	limits    quantum.Limits
	build     BuildOptions
	workers   int
	tolerance float64
	subject   *ProgressSubject
	cache     *lru.Cache[uint64, *Program]
	logger    logging.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLimits sets the simulation ceiling.
func WithLimits(limits quantum.Limits) Option {
	return func(e *Estimator) { e.limits = limits }
}

// WithBuildOptions sets circuit construction options.
func WithBuildOptions(opts BuildOptions) Option {
	return func(e *Estimator) { e.build = opts }
}

// WithWorkers bounds the number of sampling goroutines; 0 uses GOMAXPROCS.
func WithWorkers(workers int) Option {
	return func(e *Estimator) { e.workers = workers }
}

// WithTolerance sets the accepted normalization drift.
func WithTolerance(tol float64) Option {
	return func(e *Estimator) {
		if tol > 0 {
			e.tolerance = tol
		}
	}
}

// WithObserver registers a progress observer.
func WithObserver(observer ProgressObserver) Option {
	return func(e *Estimator) { e.subject.Register(observer) }
}

// WithCacheSize sets how many assembled circuits are kept; 0 disables the
// cache.
func WithCacheSize(size int) Option {
	return func(e *Estimator) {
		if size <= 0 {
			e.cache = nil
			return
		}
		cache, err := lru.New[uint64, *Program](size)
		if err == nil {
			e.cache = cache
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger logging.Logger) Option {
	return func(e *Estimator) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewEstimator returns an estimator with the default ceiling, tolerance and
// cache size, adjusted by opts.
func NewEstimator(opts ...Option) *Estimator {
	cache, _ := lru.New[uint64, *Program](DefaultCacheSize)
	e := &Estimator{
		limits:    quantum.Limits{MaxQubits: quantum.DefaultMaxQubits},
		tolerance: quantum.DefaultTolerance,
		subject:   NewProgressSubject(),
		cache:     cache,
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Limits returns the configured ceiling.
func (e *Estimator) Limits() quantum.Limits { return e.limits }

// Subject returns the progress subject so callers can attach observers.
func (e *Estimator) Subject() *ProgressSubject { return e.subject }

// Program returns the assembled circuit for modulus, from the cache when
// possible. Invalid moduli and circuits above the ceiling are rejected here.
func (e *Estimator) Program(modulus int64) (*Program, error) {
	sizes, err := SizesFor(modulus)
	if err != nil {
		return nil, err
	}
	if err := e.limits.Check(sizes.TotalQubits); err != nil {
		return nil, err
	}
	if e.cache != nil {
		if p, ok := e.cache.Get(sizes.Modulus); ok {
			programCacheHits.WithLabelValues("hit").Inc()
			return p, nil
		}
		programCacheHits.WithLabelValues("miss").Inc()
	}
	p, err := Build(modulus, e.limits, e.build)
	if err != nil {
		return nil, err
	}
	if e.cache != nil {
		e.cache.Add(sizes.Modulus, p)
	}
	return p, nil
}

// Estimate runs the full pipeline for one request: build (or fetch) the
// circuit, simulate it from the all-zero state, check normalization and
// ancilla restoration, then sample the counting register.
func (e *Estimator) Estimate(ctx context.Context, req Request) (out *Outcome, err error) {
	tracer := otel.Tracer("qpe")
	ctx, span := tracer.Start(ctx, "Estimate")
	defer span.End()
	span.SetAttributes(attribute.Int64("modulus", req.Modulus), attribute.Int("shots", req.Shots))

	start := time.Now()
	defer func() {
		status := "success"
		switch {
		case err == nil:
		case apperrors.IsInputError(err):
			status = "rejected"
		case apperrors.IsContextError(err):
			status = "canceled"
		default:
			status = "error"
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, status)
		}
		estimationsTotal.WithLabelValues(status).Inc()
		estimationDuration.WithLabelValues("total").Observe(time.Since(start).Seconds())
	}()

	shots := req.Shots
	if shots == 0 {
		shots = DefaultShots
	}
	if shots < 0 {
		return nil, apperrors.NewValidationError("shots", "must be positive", shots)
	}

	_, buildSpan := tracer.Start(ctx, "Build")
	prog, err := e.Program(req.Modulus)
	buildSpan.End()
	if err != nil {
		return nil, err
	}
	fail := func(cause error) error {
		if apperrors.IsContextError(cause) {
			return cause
		}
		return apperrors.EstimationError{Modulus: prog.Modulus, Cause: cause}
	}

	e.logger.Debug("starting simulation",
		logging.Uint64("modulus", prog.Modulus),
		logging.Int("qubits", prog.Sizes.TotalQubits),
		logging.Int("gates", prog.GateCount()),
	)

	simStart := time.Now()
	simCtx, simSpan := tracer.Start(ctx, "Simulate")
	state, err := quantum.NewState(prog.Sizes.TotalQubits, e.limits)
	if err != nil {
		simSpan.End()
		return nil, err
	}
	err = state.Run(simCtx, prog.Circuit, e.subject.AsProgressReporter(req.Index))
	simSpan.End()
	if err != nil {
		return nil, fail(err)
	}
	gatesApplied.Add(float64(prog.GateCount()))
	estimationDuration.WithLabelValues("simulate").Observe(time.Since(simStart).Seconds())

	if err := state.CheckNormalization(e.tolerance); err != nil {
		return nil, fail(err)
	}
	if err := state.AssertZero(prog.Layout.Ancillas()...); err != nil {
		return nil, fail(err)
	}

	var seed uint64
	if req.Seed != nil {
		seed = *req.Seed
	} else {
		seed = rand.Uint64()
	}

	dist := state.Marginal(prog.Counting)
	sampleCtx, sampleSpan := tracer.Start(ctx, "Sample")
	counts, err := quantum.Sample(sampleCtx, dist, prog.Counting.Size, shots, seed, e.workers)
	sampleSpan.End()
	if err != nil {
		return nil, fail(err)
	}

	probs := make(map[string]float64, len(dist))
	for v, p := range dist {
		probs[quantum.FormatBits(v, prog.Counting.Size)] = p
	}

	out = &Outcome{
		RunID:         uuid.NewString(),
		Modulus:       prog.Modulus,
		Sizes:         prog.Sizes,
		Shots:         shots,
		Seed:          seed,
		Counts:        counts,
		Probabilities: probs,
		GateCount:     prog.GateCount(),
		Amplitudes:    state.NonZero(),
		Norm:          state.Norm(),
		Duration:      time.Since(start),
	}
	e.logger.Info("estimation completed",
		logging.String("run_id", out.RunID),
		logging.Uint64("modulus", out.Modulus),
		logging.Int("shots", shots),
		logging.Int("outcomes", len(counts)),
		logging.Duration("duration", out.Duration),
	)
	return out, nil
}
