package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	EmbeddingRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_embedding_requests_total",
			Help: "Embedding API calls by model and status.",
		},
		[]string{"model", "status"},
	)

	EmbeddingRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_embedding_request_duration_seconds",
			Help:    "Embedding API call duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"model"},
	)

	EmbeddingCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_embedding_cache_total",
			Help: "Query embedding cache lookups by result (hit/miss).",
		},
		[]string{"result"},
	)

	GenerationRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_generation_requests_total",
			Help: "Generation API calls by model and status.",
		},
		[]string{"model", "status"},
	)

	GenerationRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_generation_request_duration_seconds",
			Help:    "Generation API call duration in seconds.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 20, 40, 60},
		},
		[]string{"model"},
	)

	RetrievalResults = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragchat_retrieval_results",
			Help:    "Number of chunks returned per retrieval.",
			Buckets: []float64{0, 1, 2, 3, 4, 5, 10, 20},
		},
	)

	SummariesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_summaries_total",
			Help: "Conversation summarizations by status.",
		},
		[]string{"status"},
	)

	DegradedAnswersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_degraded_answers_total",
			Help: "Chat answers served in a degraded mode, by reason.",
		},
		[]string{"reason"},
	)

	ReindexChunks = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "ragchat_reindex_chunks",
			Help: "Number of chunks stored by the last successful reindex.",
		},
	)

	ReindexTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_reindex_total",
			Help: "Reindex runs by status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		EmbeddingRequestsTotal,
		EmbeddingRequestDuration,
		EmbeddingCacheTotal,
		GenerationRequestsTotal,
		GenerationRequestDuration,
		RetrievalResults,
		SummariesTotal,
		DegradedAnswersTotal,
		ReindexChunks,
		ReindexTotal,
	)
}
