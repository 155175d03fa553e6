// Package metrics holds Prometheus instruments that are used across the
// panel.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// TransitionsTotal counts rows moved by the panel, by entity kind and
	// action.  Bulk updates add the number of affected rows.
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_status_transitions_total",
			Help: "Cumulative number of rows moved to a new provisioning status.",
		}, []string{"kind", "action"})

	TransitionRejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_status_transition_rejected_total",
			Help: "Cumulative number of actions refused by the transition table.",
		}, []string{"kind", "action"})

	DaemonRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_daemon_requests_total",
			Help: "Daemon wake-up conversations, by result.",
		}, []string{"result"})

	// TaskOutcomesTotal counts queue state changes: sent, done, failed,
	// retried, and dead.
	TaskOutcomesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "panel_task_outcomes_total",
			Help: "Daemon task state changes, by outcome.",
		}, []string{"outcome"})

	TaskQueueDepth = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "panel_task_queue_depth",
			Help: "Number of daemon tasks per state at the last poll.",
		}, []string{"state"})

	ACLCacheMissTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "panel_acl_cache_miss_total",
			Help: "Account type lookups that had to hit the database.",
		})
)

func init() {
	prometheus.MustRegister(
		TransitionsTotal,
		TransitionRejectedTotal,
		DaemonRequestsTotal,
		TaskOutcomesTotal,
		TaskQueueDepth,
		ACLCacheMissTotal,
	)
}
