// Package observability holds the process metrics and the HTTP endpoint
// that exposes them.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics definitions
var (
	ReparseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vale_ls_reparse_seconds",
		Help:    "Time spent parsing a configuration or rule file.",
		Buckets: prometheus.DefBuckets,
	}, []string{"dialect"})

	ReparsesSuperseded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vale_ls_reparses_superseded_total",
		Help: "Total number of reparse results dropped because a newer edit arrived.",
	})

	ResolveDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vale_ls_resolve_seconds",
		Help:    "Time spent resolving the effective configuration of a scope.",
		Buckets: prometheus.DefBuckets,
	})

	IndexedAssets = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "vale_ls_indexed_assets",
		Help: "Number of assets in the current StylesPath snapshot.",
	}, []string{"kind"})

	WatcherEventsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vale_ls_watcher_events_total",
		Help: "Total number of file system events received by the watcher.",
	})

	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vale_ls_request_seconds",
		Help:    "Time spent handling a language server request.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method"})

	SyncOperationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vale_ls_sync_operations_total",
		Help: "Total number of synchronizer operations by outcome.",
	}, []string{"op", "status"})

	SyncDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vale_ls_sync_seconds",
		Help:    "Time spent installing a binary or package.",
		Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"op"})

	LintDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vale_ls_lint_seconds",
		Help:    "Time spent waiting for the external linter.",
		Buckets: prometheus.DefBuckets,
	})
)
