package ai

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	statusSuccess        = "success"
	statusError          = "error"
	statusEmptyResponse  = "error_empty_response"
	statusTimeout        = "error_timeout"
	statusSchemaMismatch = "error_schema_mismatch"
)

var (
	aiRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "game_builder_ai_requests_total",
			Help: "Total number of requests to the generation service.",
		},
		[]string{"backend", "model", "status"},
	)
	aiRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "game_builder_ai_request_duration_seconds",
			Help:    "Histogram of generation request durations.",
			Buckets: []float64{.25, .5, 1, 2.5, 5, 10, 20, 30, 60},
		},
		[]string{"backend", "model"},
	)
	aiTokens = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "game_builder_ai_tokens",
			Help:    "Histogram of token counts per request.",
			Buckets: prometheus.ExponentialBuckets(64, 2, 10), // 64 .. 32768
		},
		[]string{"backend", "model", "kind"},
	)
)

func recordRequest(backend, model, status string, duration time.Duration) {
	aiRequestsTotal.With(prometheus.Labels{"backend": backend, "model": model, "status": status}).Inc()
	aiRequestDuration.With(prometheus.Labels{"backend": backend, "model": model}).Observe(duration.Seconds())
}

func observeUsage(backend, model string, usage Usage) {
	if usage.TotalTokens <= 0 {
		return
	}
	aiTokens.With(prometheus.Labels{"backend": backend, "model": model, "kind": "prompt"}).Observe(float64(usage.PromptTokens))
	aiTokens.With(prometheus.Labels{"backend": backend, "model": model, "kind": "completion"}).Observe(float64(usage.CompletionTokens))
	aiTokens.With(prometheus.Labels{"backend": backend, "model": model, "kind": "total"}).Observe(float64(usage.TotalTokens))
}
