// Package metrics exposes Prometheus collectors for the engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CompilationsTotal counts expression compilations by outcome.
	CompilationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomdx_compilations_total",
			Help: "Total number of expression compilations",
		},
		[]string{"status"},
	)
	// ResolutionFailuresTotal counts failed overload resolutions by error code.
	ResolutionFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomdx_resolution_failures_total",
			Help: "Total number of function resolution failures",
		},
		[]string{"code"},
	)
	// EvaluationsTotal counts cell evaluations by outcome.
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomdx_evaluations_total",
			Help: "Total number of cell evaluations",
		},
		[]string{"status"},
	)
	// OptimizerOutcomesTotal counts distinct-count tuple list optimizations
	// by outcome (collapsed, unchanged, partial_policy, not_cross_product).
	OptimizerOutcomesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomdx_tuple_optimizer_total",
			Help: "Total number of distinct-count tuple list optimizations",
		},
		[]string{"outcome"},
	)
	// DeferredAggregationsTotal counts aggregations pushed as deferred
	// computations, by aggregator.
	DeferredAggregationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomdx_deferred_aggregations_total",
			Help: "Total number of deferred aggregations",
		},
		[]string{"aggregator"},
	)
	// StoreQueriesTotal counts queries sent to the SQL cell store, by kind
	// (cell, aggregate, batch).
	StoreQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gomdx_store_queries_total",
			Help: "Total number of cell store queries",
		},
		[]string{"kind"},
	)
	// GridDuration is the latency of grid evaluations.
	GridDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gomdx_grid_duration_seconds",
			Help:    "Grid evaluation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"cube"},
	)
)
