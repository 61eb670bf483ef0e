package tokensync

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "tokensync"

var (
	metricCheckpointBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "checkpoint_block",
		Help:      "Last ledger block reflected in the local state",
	})
	metricHeadBlock = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "head_block",
		Help:      "Ledger head block seen by the last catch-up scan",
	})
	metricScanWindows = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "scan_windows_total",
		Help:      "Total number of completed catch-up scan windows",
	})
	metricScanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "scan_duration_seconds",
		Help:      "Duration of catch-up scans",
		Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
	})
	metricEventsApplied = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "events_applied_total",
		Help:      "Total number of applied transfer events by result",
	}, []string{"result"})
	metricApplyFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "apply_failures_total",
		Help:      "Total number of events that failed to apply, by source",
	}, []string{"source"})
	metricLiveEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "live_events_total",
		Help:      "Total number of live subscription events by name and outcome",
	}, []string{"event", "outcome"})
	metricPendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "pending_events",
		Help:      "Number of transfer events buffered for unknown tokens",
	})
	metricSchedulerState = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: metricsNamespace,
		Name:      "scheduler_state",
		Help:      "Current scheduler state (1 = active)",
	}, []string{"state"})
	metricRolesSynced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "wallet_roles_synced_total",
		Help:      "Total number of wallet role reconciliations",
	})
)
