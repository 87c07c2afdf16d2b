// Package metrics exposes Prometheus instrumentation for tool calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ToolCalls counts tool invocations by tool name and envelope status.
	ToolCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "qalint",
			Name:      "tool_calls_total",
			Help:      "Total tool invocations by envelope status",
		},
		[]string{"tool", "status"},
	)

	// ToolDuration tracks wall-clock time per tool invocation.
	ToolDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "qalint",
			Name:      "tool_duration_seconds",
			Help:      "Tool invocation duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"tool"},
	)
)

// RecordToolCall records one finished tool invocation.
func RecordToolCall(tool, status string, duration time.Duration) {
	ToolCalls.WithLabelValues(tool, status).Inc()
	ToolDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// Handler returns the Prometheus scrape handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
