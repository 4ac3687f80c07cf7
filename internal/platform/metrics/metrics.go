// Package metrics defines the Prometheus collectors used across the paper
// generator and exposes an HTTP handler for scraping.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus collectors. A nil *Metrics is valid and
// records nothing, so packages can take one optionally.
type Metrics struct {
	GenerationAttempts   *prometheus.CounterVec
	GenerationLatency    prometheus.Histogram
	RetrievalRows        prometheus.Histogram
	EmbeddingFailures    *prometheus.CounterVec
	EmbeddingCacheHits   prometheus.Counter
	EmbeddingCacheMiss   prometheus.Counter
	QuestionsAppended    prometheus.Counter
	TemplatesSkipped     prometheus.Counter
	IndexSize            prometheus.Gauge
	IndexRebuildsTotal   *prometheus.CounterVec
	PapersGeneratedTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. Passing nil uses a
// fresh private registry.
func New(reg prometheus.Registerer) *Metrics {
	var gatherer prometheus.Gatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gatherer = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	} else {
		gatherer = prometheus.DefaultGatherer
	}

	m := &Metrics{
		GenerationAttempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papergen_generation_attempts_total",
				Help: "Question generation attempts by outcome (ok, retry, failed, fallback).",
			},
			[]string{"outcome"},
		),
		GenerationLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "papergen_generation_latency_seconds",
				Help:    "Latency of a single generation call in seconds.",
				Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
		),
		RetrievalRows: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "papergen_retrieval_rows",
				Help:    "Number of template rows returned per retrieval.",
				Buckets: []float64{0, 1, 2, 5, 10, 25, 50},
			},
		),
		EmbeddingFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papergen_embedding_failures_total",
				Help: "Embedding failures by stage (build, query).",
			},
			[]string{"stage"},
		),
		EmbeddingCacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "papergen_embedding_cache_hits_total",
				Help: "Embedding cache hits.",
			},
		),
		EmbeddingCacheMiss: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "papergen_embedding_cache_misses_total",
				Help: "Embedding cache misses.",
			},
		),
		QuestionsAppended: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "papergen_questions_appended_total",
				Help: "Questions appended to generated papers.",
			},
		),
		TemplatesSkipped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "papergen_templates_skipped_total",
				Help: "Templates skipped after generation failed.",
			},
		),
		IndexSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "papergen_index_size",
				Help: "Number of vectors in the loaded index.",
			},
		),
		IndexRebuildsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papergen_index_rebuilds_total",
				Help: "Index rebuilds by reason (missing, corrupt, stale, forced).",
			},
			[]string{"reason"},
		),
		PapersGeneratedTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "papergen_papers_total",
				Help: "Paper assembly runs by status (ok, empty, cancelled).",
			},
			[]string{"status"},
		),
		gatherer: gatherer,
	}

	reg.MustRegister(
		m.GenerationAttempts,
		m.GenerationLatency,
		m.RetrievalRows,
		m.EmbeddingFailures,
		m.EmbeddingCacheHits,
		m.EmbeddingCacheMiss,
		m.QuestionsAppended,
		m.TemplatesSkipped,
		m.IndexSize,
		m.IndexRebuildsTotal,
		m.PapersGeneratedTotal,
	)

	return m
}

// Handler returns the Prometheus scrape HTTP handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

// Attempt records a generation attempt outcome.
func (m *Metrics) Attempt(outcome string) {
	if m == nil {
		return
	}
	m.GenerationAttempts.WithLabelValues(outcome).Inc()
}

// ObserveGeneration records the latency of one generation call.
func (m *Metrics) ObserveGeneration(seconds float64) {
	if m == nil {
		return
	}
	m.GenerationLatency.Observe(seconds)
}

// Retrieved records how many rows a retrieval returned.
func (m *Metrics) Retrieved(n int) {
	if m == nil {
		return
	}
	m.RetrievalRows.Observe(float64(n))
}

// EmbeddingFailed records an embedding failure at stage.
func (m *Metrics) EmbeddingFailed(stage string) {
	if m == nil {
		return
	}
	m.EmbeddingFailures.WithLabelValues(stage).Inc()
}

// CacheLookup records an embedding cache hit or miss.
func (m *Metrics) CacheLookup(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.EmbeddingCacheHits.Inc()
		return
	}
	m.EmbeddingCacheMiss.Inc()
}

// QuestionAppended records one question appended to a paper.
func (m *Metrics) QuestionAppended() {
	if m == nil {
		return
	}
	m.QuestionsAppended.Inc()
}

// TemplateSkipped records one template dropped after generation failed.
func (m *Metrics) TemplateSkipped() {
	if m == nil {
		return
	}
	m.TemplatesSkipped.Inc()
}

// IndexLoaded sets the index size gauge.
func (m *Metrics) IndexLoaded(size int) {
	if m == nil {
		return
	}
	m.IndexSize.Set(float64(size))
}

// IndexRebuilt records an index rebuild and its reason.
func (m *Metrics) IndexRebuilt(reason string) {
	if m == nil {
		return
	}
	m.IndexRebuildsTotal.WithLabelValues(reason).Inc()
}

// PaperDone records the status of a finished assembly run.
func (m *Metrics) PaperDone(status string) {
	if m == nil {
		return
	}
	m.PapersGeneratedTotal.WithLabelValues(status).Inc()
}
