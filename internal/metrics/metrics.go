// Package metrics holds the Prometheus collectors shared by the dispatcher
// and the worker. All collectors are safe for concurrent use.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	// NotificationsCreated counts notification rows newly inserted by dispatch.
	NotificationsCreated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_notifications_created_total",
		Help: "Notification rows created by dispatch.",
	})

	// NotificationConflicts counts inserts skipped because the (event, user)
	// pair already had a notification.
	NotificationConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_notification_conflicts_total",
		Help: "Notification inserts skipped as already existing.",
	})

	// NotificationFailures counts per-candidate insert errors.
	NotificationFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_notification_failures_total",
		Help: "Notification inserts that failed.",
	})

	// MatchJobs counts processed match jobs by outcome.
	MatchJobs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "match_jobs_total",
		Help: "Match jobs processed by outcome.",
	}, []string{"outcome"})
)

func init() {
	prometheus.MustRegister(NotificationsCreated, NotificationConflicts, NotificationFailures, MatchJobs)
}
