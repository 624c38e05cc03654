package services

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/temcen/mealrec/pkg/models"
)

// MetricsCollector exposes ranking and cache metrics to Prometheus.
type MetricsCollector struct {
	rankingRequests   *prometheus.CounterVec
	rankingLatency    *prometheus.HistogramVec
	candidateBatch    prometheus.Histogram
	degenerateBatches prometheus.Counter
	cacheRequests     *prometheus.CounterVec
	requestErrors     *prometheus.CounterVec
}

// NewMetricsCollector registers the collectors with reg. Passing
// prometheus.DefaultRegisterer exposes them on the default /metrics handler.
func NewMetricsCollector(reg prometheus.Registerer) *MetricsCollector {
	factory := promauto.With(reg)

	return &MetricsCollector{
		rankingRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mealrec_ranking_requests_total",
			Help: "Total number of ranking requests",
		}, []string{"recommendation_type"}),

		rankingLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mealrec_ranking_duration_seconds",
			Help:    "Time spent ranking a candidate batch",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2},
		}, []string{"recommendation_type"}),

		candidateBatch: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "mealrec_candidate_batch_size",
			Help:    "Number of candidate stores per ranking request",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),

		degenerateBatches: factory.NewCounter(prometheus.CounterOpts{
			Name: "mealrec_degenerate_batches_total",
			Help: "Ranking batches where candidate statistics collapsed",
		}),

		cacheRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mealrec_ranking_cache_requests_total",
			Help: "Ranking cache lookups by result",
		}, []string{"result"}),

		requestErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "mealrec_recommendation_errors_total",
			Help: "Failed recommendation requests by error kind",
		}, []string{"kind"}),
	}
}

// ObserveRanking implements scoring.Observer.
func (m *MetricsCollector) ObserveRanking(rt models.RecommendationType, candidates int, degenerate bool, latency time.Duration) {
	m.rankingRequests.WithLabelValues(string(rt)).Inc()
	m.rankingLatency.WithLabelValues(string(rt)).Observe(latency.Seconds())
	m.candidateBatch.Observe(float64(candidates))
	if degenerate {
		m.degenerateBatches.Inc()
	}
}

func (m *MetricsCollector) RecordCacheHit() {
	m.cacheRequests.WithLabelValues("hit").Inc()
}

func (m *MetricsCollector) RecordCacheMiss() {
	m.cacheRequests.WithLabelValues("miss").Inc()
}

func (m *MetricsCollector) RecordError(kind string) {
	m.requestErrors.WithLabelValues(kind).Inc()
}
