package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Pipeline and workflow metrics.
var (
	StepAttemptsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "workflow_step_attempts_total",
			Help:      "Step attempts by outcome",
		},
		[]string{"step", "outcome"}, // ok, retry, failed, memoized
	)

	StepDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "workflow_step_duration_seconds",
			Help:      "Duration of a single step attempt in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"step"},
	)

	ChunksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "chunks_total",
			Help:      "Chunks written, pruned and deleted",
		},
		[]string{"op"}, // upserted, pruned, deleted
	)

	QueryContexts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_contexts",
			Help:      "Number of context chunks retrieved per query",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50, 100},
		},
	)
)

var registerOnce sync.Once

// Register registers the provider and pipeline metrics with the default
// registry. HTTP metrics register themselves on import. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			EmbeddingRequestsTotal,
			EmbeddingRequestDuration,
			EmbeddingTokensTotal,
			EmbeddingErrorsTotal,
			EmbeddingCacheTotal,
			CompletionRequestsTotal,
			CompletionRequestDuration,
			CompletionTokensTotal,
			StepAttemptsTotal,
			StepDuration,
			ChunksTotal,
			QueryContexts,
		)
	})
}
