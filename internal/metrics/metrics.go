package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discovery",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	CatalogRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "catalog_requests_total",
		Help:      "Total outbound catalog requests by operation and result status.",
	}, []string{"operation", "status"})

	CatalogRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discovery",
		Name:      "catalog_request_duration_seconds",
		Help:      "Outbound catalog request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"operation"})

	CatalogAvailable = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "discovery",
		Name:      "catalog_available",
		Help:      "Whether the catalog is available (1) or blocked after repeated failures (0).",
	})

	CatalogThrottledTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "catalog_throttled_total",
		Help:      "Total catalog responses rejected with HTTP 429.",
	})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "catalog_cache_hits_total",
		Help:      "Total number of catalog response cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "catalog_cache_misses_total",
		Help:      "Total number of catalog response cache misses.",
	})

	IntentExtractionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "intent_extractions_total",
		Help:      "Intent extractions by outcome (model or fallback reason).",
	}, []string{"outcome"})

	LanguageModelRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "language_model_requests_total",
		Help:      "Total language model calls by status.",
	}, []string{"status"})

	LanguageModelDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "discovery",
		Name:      "language_model_request_duration_seconds",
		Help:      "Language model call duration in seconds.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 4, 8},
	})

	QueriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "discovery",
		Name:      "queries_total",
		Help:      "Discovery queries by retrieval mode.",
	}, []string{"mode"})

	QueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "discovery",
		Name:      "query_duration_seconds",
		Help:      "End-to-end discovery duration by retrieval mode.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20},
	}, []string{"mode"})

	QueryResults = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "discovery",
		Name:      "query_results",
		Help:      "Number of results returned per discovery query.",
		Buckets:   []float64{0, 1, 5, 10, 20, 50, 100},
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		CatalogRequestsTotal,
		CatalogRequestDuration,
		CatalogAvailable,
		CatalogThrottledTotal,
		CacheHitsTotal,
		CacheMissesTotal,
		IntentExtractionsTotal,
		LanguageModelRequestsTotal,
		LanguageModelDuration,
		QueriesTotal,
		QueryDuration,
		QueryResults,
	)
}
