package qpe

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	estimationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fibqpe_estimations_total",
			Help: "The total number of phase estimation runs processed",
		},
		[]string{"status"},
	)
	estimationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fibqpe_estimation_duration_seconds",
			Help:    "The duration of phase estimation runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
		[]string{"stage"},
	)
	gatesApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fibqpe_gates_applied_total",
		Help: "Primitive gate applications across all simulations",
	})
	programCacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fibqpe_program_cache_total",
			Help: "Circuit cache lookups by result",
		},
		[]string{"result"},
	)
)
