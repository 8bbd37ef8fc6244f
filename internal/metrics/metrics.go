// Package metrics holds Prometheus instruments that are used across the
// auth flow.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveFlows = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "forma_active_flows",
			Help: "Number of auth flows currently held in memory.",
		})

	FlowEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "forma_flow_evict_total",
			Help: "Cumulative number of auth flows evicted from the registry.",
		})

	DebounceCoalescedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forma_debounce_coalesced_total",
			Help: "Pending validations replaced by a newer keystroke before firing.",
		}, []string{"field"})

	ValidationRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forma_validation_runs_total",
			Help: "Debounced field validations that fired, by field and result.",
		}, []string{"field", "result"})

	SubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forma_submissions_total",
			Help: "Auth submissions by mode and outcome.",
		}, []string{"mode", "outcome"})

	StorageErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forma_storage_errors_total",
			Help: "Key-value storage failures by operation.",
		}, []string{"op"})
)

func init() {
	prometheus.MustRegister(
		ActiveFlows,
		FlowEvictTotal,
		DebounceCoalescedTotal,
		ValidationRunsTotal,
		SubmissionsTotal,
		StorageErrorsTotal,
	)
}
