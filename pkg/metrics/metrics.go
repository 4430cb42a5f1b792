package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// ExtractionsTotal counts finished extractions. status is success or
	// failure; strategy is the winning strategy, error_kind the failure class.
	ExtractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_extractions_total",
			Help: "Total number of recipe extraction attempts.",
		},
		[]string{"status", "strategy", "error_kind"},
	)

	ExtractionDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "recipe_extraction_duration_seconds",
			Help:    "Duration of recipe extractions.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 15, 30, 60},
		},
		[]string{"source_type"},
	)

	StrategyFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_strategy_failures_total",
			Help: "Extraction strategies that did not yield a recipe.",
		},
		[]string{"strategy"},
	)

	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recipe_page_fetches_total",
			Help: "Source page fetches by renderer and outcome.",
		},
		[]string{"renderer", "outcome"},
	)

	ConfidenceScore = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "recipe_confidence_score",
			Help:    "Confidence scores assigned to extracted recipes.",
			Buckets: []float64{0.1, 0.25, 0.4, 0.6, 0.8, 0.9, 1},
		},
	)

	PendingRecipes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "recipe_pending_items",
			Help: "Recipes in the review store by validation status.",
		},
		[]string{"status"},
	)

	ActiveSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "recipe_progress_sessions_active",
			Help: "Current number of live progress sessions.",
		},
	)
)
