// Package metrics holds the Prometheus collectors for ingestion and queries.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	globalMetrics *Metrics
	metricsOnce   sync.Once
)

// Metrics holds Prometheus metrics for the document pipeline.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	// Ingestion
	UploadsTotal       *prometheus.CounterVec
	DocumentsTotal     *prometheus.CounterVec
	RetriesTotal       *prometheus.CounterVec
	ProcessingDuration prometheus.Histogram
	StaleResetsTotal   prometheus.Counter

	// Queries
	QueryDuration    *prometheus.HistogramVec
	LLMFailuresTotal *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors with the default registry.
//
// This function uses sync.Once so repeated calls return the same instance
// instead of panicking on duplicate registration.
//
// Metrics:
//   - sercha_uploads_total{outcome} - Uploads by created, duplicate, resubmitted
//   - sercha_documents_processed_total{status} - Documents reaching completed or failed
//   - sercha_ingest_retries_total{stage} - Retried embed and index calls
//   - sercha_processing_duration_seconds - Time from claim to terminal state
//   - sercha_stale_resets_total - Documents returned to pending by the sweeper
//   - sercha_query_duration_seconds{kind} - Query and search latency
//   - sercha_llm_failures_total{reason} - LLM timeouts and provider errors
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		globalMetrics = &Metrics{
			UploadsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sercha_uploads_total",
					Help: "Total number of accepted uploads",
				},
				[]string{"outcome"},
			),

			DocumentsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sercha_documents_processed_total",
					Help: "Total number of documents that finished processing",
				},
				[]string{"status"},
			),

			RetriesTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sercha_ingest_retries_total",
					Help: "Total number of retried pipeline steps",
				},
				[]string{"stage"},
			),

			ProcessingDuration: promauto.NewHistogram(
				prometheus.HistogramOpts{
					Name:    "sercha_processing_duration_seconds",
					Help:    "Duration of document processing in seconds",
					Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
				},
			),

			StaleResetsTotal: promauto.NewCounter(
				prometheus.CounterOpts{
					Name: "sercha_stale_resets_total",
					Help: "Total number of stale claims returned to pending",
				},
			),

			QueryDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "sercha_query_duration_seconds",
					Help:    "Duration of query handling in seconds",
					Buckets: prometheus.DefBuckets,
				},
				[]string{"kind"},
			),

			LLMFailuresTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "sercha_llm_failures_total",
					Help: "Total number of failed LLM calls",
				},
				[]string{"reason"},
			),
		}
	})

	return globalMetrics
}

// Upload records an accepted upload.
func (m *Metrics) Upload(outcome string) {
	if m == nil {
		return
	}
	m.UploadsTotal.WithLabelValues(outcome).Inc()
}

// Processed records a document reaching a terminal status.
func (m *Metrics) Processed(status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsTotal.WithLabelValues(status).Inc()
	m.ProcessingDuration.Observe(elapsed.Seconds())
}

// Retry records a retried pipeline step.
func (m *Metrics) Retry(stage string) {
	if m == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(stage).Inc()
}

// StaleReset records documents returned to pending.
func (m *Metrics) StaleReset(n int) {
	if m == nil {
		return
	}
	m.StaleResetsTotal.Add(float64(n))
}

// Query records query latency.
func (m *Metrics) Query(kind string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.QueryDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// LLMFailure records a failed LLM call.
func (m *Metrics) LLMFailure(reason string) {
	if m == nil {
		return
	}
	m.LLMFailuresTotal.WithLabelValues(reason).Inc()
}
