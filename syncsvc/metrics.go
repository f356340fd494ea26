package syncsvc

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	syncRunsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_sync_runs_total",
		Help: "Completed sync runs by provider and final status.",
	}, []string{"provider", "status"})

	syncRecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_sync_records_total",
		Help: "Records written by sync runs, by provider and entity.",
	}, []string{"provider", "entity"})

	syncRunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "source_sync_run_duration_seconds",
		Help:    "Wall-clock duration of a sync run.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"provider"})

	reconcileMatchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "source_sync_reconcile_matches_total",
		Help: "Ledger entries matched to orders during reconciliation.",
	}, []string{"kind"})
)
