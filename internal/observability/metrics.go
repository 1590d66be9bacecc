// Package observability provides Prometheus metrics for the engine's HTTP
// surface and its provider calls.
package observability

import "github.com/prometheus/client_golang/prometheus"

// LLMBuckets defines histogram buckets suited for LLM inference latencies,
// ranging from 100ms to 120s.
var LLMBuckets = []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 120}

var (
	// RequestsTotal counts engine operations by operation, model, and outcome.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbridge_requests_total",
			Help: "Engine operations",
		},
		[]string{"operation", "model", "status"},
	)

	// RequestDuration records operation duration in seconds.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "llmbridge_request_duration_seconds",
			Help:    "Operation duration",
			Buckets: LLMBuckets,
		},
		[]string{"operation", "model"},
	)

	// StreamingConnections tracks the number of active SSE chunk streams.
	StreamingConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "llmbridge_streaming_connections_active",
			Help: "Active streaming connections",
		},
	)

	// TokensTotal counts measured tokens by model and direction
	// (prompt/completion).
	TokensTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "llmbridge_tokens_total",
			Help: "Token count",
		},
		[]string{"model", "direction"},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		StreamingConnections,
		TokensTotal,
	)
}

// ObserveUsage feeds a usage record into the token counters.
func ObserveUsage(model string, promptTokens, completionTokens int) {
	TokensTotal.WithLabelValues(model, "prompt").Add(float64(promptTokens))
	TokensTotal.WithLabelValues(model, "completion").Add(float64(completionTokens))
}
