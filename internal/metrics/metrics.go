package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoa_http_requests_total",
		Help: "Total HTTP requests by method, route and status",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hoa_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	// Translation cache
	TranslationCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hoa_translation_cache_hits_total",
		Help: "Translation cache hits",
	})

	TranslationCacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hoa_translation_cache_misses_total",
		Help: "Translation cache misses, including expired entries",
	})

	TranslationCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hoa_translation_cache_entries",
		Help: "Entries physically held by the translation cache",
	})

	// LLM calls
	LLMRequestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hoa_llm_requests_total",
		Help: "Successful translation model calls",
	})

	LLMErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoa_llm_errors_total",
		Help: "Translation model errors by kind",
	}, []string{"kind"})

	LLMAPILatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hoa_llm_api_latency_seconds",
		Help:    "Translation model call latency",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 60, 120},
	})

	// Jobs and documents
	TranslationJobsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoa_translation_jobs_total",
		Help: "Translation job runs by result",
	}, []string{"result"})

	TranslationJobDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "hoa_translation_job_duration_seconds",
		Help:    "Wall time of one translation job run",
		Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 120, 300},
	})

	TranslationStepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hoa_translation_steps_total",
		Help: "Translation job steps by step name and result",
	}, []string{"step", "result"})

	TranslationJobsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hoa_translation_jobs",
		Help: "Translation jobs currently stored, by status",
	}, []string{"status"})

	DocumentsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hoa_documents",
		Help: "Original documents stored",
	})

	TranslatedDocumentsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hoa_translated_documents",
		Help: "Translation documents stored",
	})
)
