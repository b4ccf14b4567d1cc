package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics.
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sister_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sister_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Pipeline run metrics.
	runsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sister_runs_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"status"}, // status: success, error
	)

	stageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sister_stage_duration_seconds",
			Help:    "Per-stage pipeline duration in seconds",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 25},
		},
		[]string{"stage"},
	)

	prefilterCandidates = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sister_prefilter_candidates",
			Help:    "Number of catalog candidates surviving the adaptive-cutoff prefilter per slot",
			Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
		},
	)

	matchScore = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "sister_match_score",
			Help:    "SSIM score of the top icon/overlay match per slot",
			Buckets: []float64{0, .5, .7, .8, .9, .95, .99, 1},
		},
		[]string{"kind"}, // kind: icon, overlay
	)

	hashIndexQueries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sister_hash_index_queries_total",
			Help: "Total number of hash-index FindSimilar queries",
		},
		[]string{"hash_kind"}, // hash_kind: phash, dhash
	)

	// Rate limiting metrics.
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sister_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, screenshots
	)

	// Per-run memory footprint, sampled via internal/common.GetMemoryStats
	// around Orchestrator.Run.
	runHeapAllocBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "sister_run_heap_alloc_delta_bytes",
			Help:    "Heap bytes allocated during a single pipeline run (MemoryAfter.Alloc - MemoryBefore.Alloc)",
			Buckets: prometheus.ExponentialBuckets(1<<20, 2, 12), // 1MiB .. 2GiB
		},
	)

	// WebSocket metrics.
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "sister_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sister_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
