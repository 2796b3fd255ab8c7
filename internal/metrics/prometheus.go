package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// JobsSubmitted counts accepted submissions by source and language.
	JobsSubmitted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_jobs_submitted_total",
			Help: "Total number of submitted analysis jobs",
		},
		[]string{"source", "language"},
	)

	// JobsFinished counts jobs reaching a terminal state by state and reason.
	JobsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_jobs_finished_total",
			Help: "Total number of analysis jobs reaching a terminal state",
		},
		[]string{"state", "reason"},
	)

	// JobDuration tracks end-to-end execution time of a job in seconds.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "reviewlens_job_duration_seconds",
			Help:    "Duration of analysis jobs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12), // 100ms to ~7min
		},
		[]string{"state"},
	)

	// WorkersActive tracks the number of currently active workers.
	WorkersActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "reviewlens_workers_active",
			Help: "Number of currently active worker goroutines",
		},
	)

	// PagesFetched counts review pages fetched from a source.
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_pages_fetched_total",
			Help: "Total number of review pages fetched",
		},
		[]string{"source"},
	)

	// PageFailures counts pages abandoned after exhausting retries.
	PageFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_page_failures_total",
			Help: "Total number of review pages that failed after retries",
		},
		[]string{"source"},
	)

	// RecordsCollected counts unique reviews kept by the collector.
	RecordsCollected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_records_collected_total",
			Help: "Total number of unique reviews collected",
		},
		[]string{"source"},
	)

	// RetryAttempts counts retried outbound calls.
	RetryAttempts = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewlens_retry_attempts_total",
			Help: "Total number of retried outbound calls",
		},
	)

	// LimiterWait tracks time spent waiting for outbound admission.
	LimiterWait = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reviewlens_limiter_wait_seconds",
			Help:    "Time spent waiting on the outbound rate limiter",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14), // 10ms to ~80s
		},
	)

	// CacheLookups counts result cache lookups by outcome.
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_cache_lookups_total",
			Help: "Total number of result cache lookups",
		},
		[]string{"result"},
	)

	// SummarizerFallbacks counts remote summarizer failures recovered locally.
	SummarizerFallbacks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_summarizer_fallbacks_total",
			Help: "Total number of remote summarizer failures that fell back to local extraction",
		},
		[]string{"provider"},
	)

	// JobsSwept counts jobs removed by the retention sweep.
	JobsSwept = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reviewlens_jobs_swept_total",
			Help: "Total number of expired jobs deleted",
		},
	)

	// HTTPRequests counts API requests by route and status code.
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reviewlens_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "code"},
	)
)
