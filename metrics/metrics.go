// Package metrics registers the engine's Prometheus collectors.
// Exposed on /metrics by the HTTP server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BalancesInitialized counts balance rows created at hire time.
	BalancesInitialized = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_balances_initialized_total",
		Help: "Balance rows created by hire-time initialization.",
	})

	// Recalculations counts applied promotion recalculations.
	// Repeat invocations that no-op on the anchor are not counted.
	Recalculations = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_recalculations_total",
		Help: "Promotion recalculations applied to annual leave balances.",
	})

	// ResetsProcessed counts balances reset by the yearly pass.
	ResetsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_annual_resets_processed_total",
		Help: "Annual leave balances reset for a new cycle.",
	})

	// ResetsSkipped counts balances skipped by the year guard.
	ResetsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_annual_resets_skipped_total",
		Help: "Balances skipped because they were already reset this year.",
	})

	// ResetsFailed counts per-employee failures in the yearly pass.
	ResetsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_annual_resets_failed_total",
		Help: "Per-employee failures during the annual reset pass.",
	})

	// NotificationsSent counts delivered notifications.
	NotificationsSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_notifications_sent_total",
		Help: "Notifications delivered to employees.",
	})

	// NotificationsFailed counts swallowed delivery failures.
	NotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "leave_notifications_failed_total",
		Help: "Notification deliveries that failed and were dropped.",
	})
)
