// ABOUTME: Prometheus collectors for tool dispatch and cache sync
// ABOUTME: Registered on the default registry and served at /metrics
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "deskhand"

// Dispatch outcomes.
const (
	OutcomeOK           = "ok"
	OutcomeConfig       = "configuration_error"
	OutcomeInvalidArgs  = "invalid_arguments"
	OutcomeProvider     = "provider_error"
	OutcomeAuthExpired  = "auth_expired"
	OutcomeNeedsConfirm = "needs_confirmation"
)

var (
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tool_calls_total",
			Help:      "Tool calls dispatched, by tool and outcome.",
		},
		[]string{"tool", "outcome"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "tool_call_duration_seconds",
			Help:      "Provider time spent serving a tool call.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"tool"},
	)

	SyncRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_runs_total",
			Help:      "Capability sync passes, by capability and result.",
		},
		[]string{"capability", "result"},
	)

	SyncRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sync_rows_total",
			Help:      "Cache rows touched by sync, by capability and action.",
		},
		[]string{"capability", "action"},
	)
)

// ObserveToolCall records one dispatched tool call.
func ObserveToolCall(tool, outcome string, elapsed time.Duration) {
	ToolCallsTotal.WithLabelValues(tool, outcome).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
}

// ObserveSync records one capability sync pass and its row counts.
func ObserveSync(capability string, ok bool, written, unchanged, deleted int) {
	result := "ok"
	if !ok {
		result = "error"
	}
	SyncRunsTotal.WithLabelValues(capability, result).Inc()
	SyncRowsTotal.WithLabelValues(capability, "written").Add(float64(written))
	SyncRowsTotal.WithLabelValues(capability, "unchanged").Add(float64(unchanged))
	SyncRowsTotal.WithLabelValues(capability, "deleted").Add(float64(deleted))
}
