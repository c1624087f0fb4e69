package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RemindersDispatched counts per-threshold dispatch outcomes (sent, skipped, failed)
	RemindersDispatched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_dispatched_total",
			Help: "Reminder dispatch outcomes per domain",
		},
		[]string{"domain", "outcome"},
	)

	// ScanDuration tracks the wall time of one scan cycle
	ScanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reminder_service_scan_duration_seconds",
			Help:    "Duration of one scan cycle in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"domain"},
	)

	// ScansTotal counts completed scan cycles by result (ok, error)
	ScansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_scans_total",
			Help: "Total number of scan cycles",
		},
		[]string{"domain", "result"},
	)

	// EntityErrors counts entities whose processing failed inside a scan
	EntityErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reminder_service_entity_errors_total",
			Help: "Entities that failed during a scan",
		},
		[]string{"domain"},
	)

	// SchedulerState is 1 for the current orchestrator state of a domain, 0 otherwise
	SchedulerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reminder_service_scheduler_state",
			Help: "Current orchestrator state per domain",
		},
		[]string{"domain", "state"},
	)

	// LastSuccessfulScan is the unix time of the last successful scan per domain
	LastSuccessfulScan = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "reminder_service_last_success_timestamp_seconds",
			Help: "Unix time of the last successful scan",
		},
		[]string{"domain"},
	)
)
