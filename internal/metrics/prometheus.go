package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Tool invocation metrics
	ToolInvocations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_tool_invocations_total",
			Help: "Total number of tool invocations",
		},
		[]string{"tool", "status"}, // status: success|error
	)

	ToolLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "minerva_tool_latency_seconds",
			Help:    "Tool invocation latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		},
		[]string{"tool"},
	)

	ToolRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_tool_retries_total",
			Help: "Total number of downstream retries performed by tools",
		},
		[]string{"tool"},
	)

	// Trace batcher metrics
	TracesQueued = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minerva_traces_queued_total",
			Help: "Total number of trace records accepted into the queue",
		},
	)

	TracesDropped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_traces_dropped_total",
			Help: "Total number of trace records dropped before sending",
		},
		[]string{"reason"}, // reason: sampling|no_sink|min_duration|max_depth
	)

	TraceFlushes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "minerva_trace_flushes_total",
			Help: "Total number of trace batch flushes",
		},
		[]string{"status"}, // status: success|error
	)

	// Metrics recording path
	MetricWriteFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "minerva_metric_write_failures_total",
			Help: "Total number of failed invocation record writes",
		},
	)
)

// Register registers all collectors with the default registry
func Register() {
	prometheus.MustRegister(
		ToolInvocations,
		ToolLatency,
		ToolRetries,
		TracesQueued,
		TracesDropped,
		TraceFlushes,
		MetricWriteFailures,
	)
}

// Handler returns an HTTP handler exposing the default registry
func Handler() http.Handler {
	return promhttp.Handler()
}
