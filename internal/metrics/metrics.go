// Package metrics exposes Prometheus collectors for the ask pipeline.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Question metrics
	QuestionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askweb_questions_total",
			Help: "Total number of questions answered",
		},
		[]string{"mode", "status"}, // status: answered, generation_failed
	)

	QuestionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "askweb_question_duration_seconds",
			Help:    "End-to-end time to answer a question",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
		},
		[]string{"mode"},
	)

	// Source metrics
	SourcesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askweb_sources_total",
			Help: "Sources gathered as evidence",
		},
		[]string{"kind", "status"}, // kind: web, video; status: ok, failed
	)

	// Outbound HTTP
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askweb_fetches_total",
			Help: "Outbound HTTP fetch attempts",
		},
		[]string{"outcome"}, // outcome: ok, retry, error, robots_blocked
	)

	// Cache
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askweb_cache_lookups_total",
			Help: "Cache lookups for article text and transcripts",
		},
		[]string{"namespace", "result"}, // result: hit, miss
	)

	// Citations
	CitationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askweb_citations_total",
			Help: "Citation markers found in generated answers",
		},
		[]string{"kind"}, // kind: web, video, unresolved
	)

	// Generation
	LLMTokens = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "askweb_llm_tokens_total",
			Help: "Tokens consumed by answer generation",
		},
		[]string{"provider"},
	)
)

// RecordQuestion records the outcome and latency of one question
func RecordQuestion(mode, status string, elapsed time.Duration) {
	QuestionsTotal.WithLabelValues(mode, status).Inc()
	QuestionDuration.WithLabelValues(mode).Observe(elapsed.Seconds())
}

// RecordSource records one gathered source
func RecordSource(kind string, ok bool) {
	status := "ok"
	if !ok {
		status = "failed"
	}
	SourcesTotal.WithLabelValues(kind, status).Inc()
}

// RecordCacheLookup records a cache hit or miss
func RecordCacheLookup(namespace string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	CacheLookups.WithLabelValues(namespace, result).Inc()
}
