package qpe

import (
	"fmt"
	"sync"

	"github.com/agbru/fibqpe/internal/quantum"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
)

// ProgressUpdate carries the simulation progress of one run. It is sent over
// a channel to the CLI so several concurrent runs can share one display.
type ProgressUpdate struct {
	// RunIndex identifies the run among those started together.
	RunIndex int
	// Value is the normalized progress, from 0.0 to 1.0.
	Value float64
}

// ProgressObserver receives progress notifications.
type ProgressObserver interface {
	// Update is called when the progress of run runIndex changes.
	Update(runIndex int, progress float64)
}

// ProgressSubject fans progress notifications out to registered observers.
//
// ProgressSubject is safe for concurrent use.
type ProgressSubject struct {
	observers []ProgressObserver
	mu        sync.RWMutex
}

// NewProgressSubject creates a subject with no observers.
func NewProgressSubject() *ProgressSubject {
	return &ProgressSubject{
		observers: make([]ProgressObserver, 0),
	}
}

// Register adds an observer. Nil observers are ignored.
func (s *ProgressSubject) Register(observer ProgressObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, observer)
}

// Unregister removes an observer if present.
func (s *ProgressSubject) Unregister(observer ProgressObserver) {
	if observer == nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, o := range s.observers {
		if o == observer {
			s.observers = append(s.observers[:i], s.observers[i+1:]...)
			return
		}
	}
}

// Notify sends an update to every observer in registration order.
func (s *ProgressSubject) Notify(runIndex int, progress float64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, observer := range s.observers {
		observer.Update(runIndex, progress)
	}
}

// ObserverCount returns the number of registered observers.
func (s *ProgressSubject) ObserverCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.observers)
}

// AsProgressReporter adapts the subject to the simulator's callback type.
func (s *ProgressSubject) AsProgressReporter(runIndex int) quantum.ProgressReporter {
	return func(progress float64) {
		s.Notify(runIndex, progress)
	}
}

// ChannelObserver forwards updates to a channel without blocking.
type ChannelObserver struct {
	channel chan<- ProgressUpdate
}

// NewChannelObserver creates an observer that sends updates to ch. A nil
// channel discards updates.
func NewChannelObserver(ch chan<- ProgressUpdate) *ChannelObserver {
	return &ChannelObserver{channel: ch}
}

// Update implements ProgressObserver.
func (o *ChannelObserver) Update(runIndex int, progress float64) {
	if o.channel == nil {
		return
	}
	if progress > 1.0 {
		progress = 1.0
	}

	select {
	case o.channel <- ProgressUpdate{RunIndex: runIndex, Value: progress}:
	default:
		// Full channel: drop, the display catches up on the next update.
	}
}

// LoggingObserver logs progress with zerolog, throttled to changes of at
// least threshold.
type LoggingObserver struct {
	logger    zerolog.Logger
	threshold float64
	lastLog   map[int]float64
	mu        sync.Mutex
}

// NewLoggingObserver creates a throttled logging observer. A non-positive
// threshold defaults to 10%.
func NewLoggingObserver(logger zerolog.Logger, threshold float64) *LoggingObserver {
	if threshold <= 0 {
		threshold = 0.1
	}
	return &LoggingObserver{
		logger:    logger,
		threshold: threshold,
		lastLog:   make(map[int]float64),
	}
}

// Update implements ProgressObserver.
func (o *LoggingObserver) Update(runIndex int, progress float64) {
	o.mu.Lock()
	defer o.mu.Unlock()

	last := o.lastLog[runIndex]
	shouldLog := progress >= 1.0 ||
		last == 0 && progress > 0 ||
		progress-last >= o.threshold

	if shouldLog {
		o.logger.Debug().
			Int("run", runIndex).
			Float64("progress", progress).
			Str("percent", fmt.Sprintf("%.1f%%", progress*100)).
			Msg("simulation progress")
		o.lastLog[runIndex] = progress
	}
}

var progressGauge = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Name: "fibqpe_simulation_progress",
		Help: "Current progress of running simulations (0.0 to 1.0)",
	},
	[]string{"run_index"},
)

// MetricsObserver exports progress to a Prometheus gauge.
type MetricsObserver struct {
	gauge *prometheus.GaugeVec
}

// NewMetricsObserver creates a Prometheus-backed observer.
func NewMetricsObserver() *MetricsObserver {
	return &MetricsObserver{gauge: progressGauge}
}

// Update implements ProgressObserver.
func (o *MetricsObserver) Update(runIndex int, progress float64) {
	o.gauge.WithLabelValues(fmt.Sprintf("%d", runIndex)).Set(progress)
}

// ResetMetrics clears the gauge for a new batch.
func (o *MetricsObserver) ResetMetrics() {
	o.gauge.Reset()
}
