package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// MessagesChecked counts every message the scheduler looked at
	MessagesChecked = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_autodelete_messages_checked_total",
		Help: "Number of incoming messages checked against chat protection rules",
	})

	// DeletionsScheduled counts messages that got a pending deletion
	DeletionsScheduled = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_autodelete_deletions_scheduled_total",
		Help: "Number of messages scheduled for delayed deletion",
	})

	// DeletionsExecuted counts successful platform deletes
	DeletionsExecuted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_autodelete_deletions_executed_total",
		Help: "Number of messages successfully deleted",
	})

	// DeletionFailures counts swallowed delete failures
	DeletionFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_autodelete_deletion_failures_total",
		Help: "Number of delete attempts that failed and were swallowed",
	})

	// AllowlistMutations counts allow-list changes by action
	AllowlistMutations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tg_autodelete_allowlist_mutations_total",
		Help: "Number of allow-list mutations applied",
	}, []string{"action"})

	// DispatcherDropped counts malformed or unroutable events
	DispatcherDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tg_autodelete_dispatcher_dropped_total",
		Help: "Number of events dropped by the update dispatcher",
	})
)

// Handler returns the HTTP handler serving the metrics endpoint
func Handler() http.Handler {
	return promhttp.Handler()
}
