// Package metrics provides Prometheus metrics for maestro libraries
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the collectors of one library.
type Metrics struct {
	SearchesTotal  *prometheus.CounterVec
	SearchDuration prometheus.Histogram
	SearchResults  prometheus.Histogram

	CriteriaProcessed *prometheus.CounterVec
	CriterionDuration *prometheus.HistogramVec

	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	WritesTotal *prometheus.CounterVec
}

// New creates the collectors and registers them on reg. A nil reg leaves
// them unregistered, which is what tests and embedded callers want.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		SearchesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_searches_total",
				Help: "Total number of searches by outcome",
			},
			[]string{"status"},
		),
		SearchDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "maestro_search_duration_seconds",
				Help:    "Duration of searches in seconds",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
		),
		SearchResults: f.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "maestro_search_results",
				Help:    "Number of elements returned per search",
				Buckets: prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		CriteriaProcessed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_criteria_processed_total",
				Help: "Total number of criteria evaluated, by variant",
			},
			[]string{"variant"},
		),
		CriterionDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "maestro_criterion_duration_seconds",
				Help:    "Duration of single criterion evaluations in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"variant"},
		),
		CacheHits: f.NewCounter(
			prometheus.CounterOpts{
				Name: "maestro_cache_hits_total",
				Help: "Total number of searches answered from the result cache",
			},
		),
		CacheMisses: f.NewCounter(
			prometheus.CounterOpts{
				Name: "maestro_cache_misses_total",
				Help: "Total number of searches not found in the result cache",
			},
		),
		WritesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "maestro_writes_total",
				Help: "Total number of library writes, by operation",
			},
			[]string{"operation"},
		),
	}
}

// RecordSearch records a finished search with its status
func (m *Metrics) RecordSearch(status string, duration time.Duration, results int) {
	m.SearchesTotal.WithLabelValues(status).Inc()
	m.SearchDuration.Observe(duration.Seconds())
	if status == StatusOK {
		m.SearchResults.Observe(float64(results))
	}
}

// RecordCriterion records the evaluation of one criterion.
func (m *Metrics) RecordCriterion(variant string, duration time.Duration) {
	m.CriteriaProcessed.WithLabelValues(variant).Inc()
	m.CriterionDuration.WithLabelValues(variant).Observe(duration.Seconds())
}

func (m *Metrics) RecordWrite(operation string) {
	m.WritesTotal.WithLabelValues(operation).Inc()
}

// Search statuses.
const (
	StatusOK        = "ok"
	StatusCached    = "cached"
	StatusError     = "error"
	StatusCancelled = "cancelled"
)
