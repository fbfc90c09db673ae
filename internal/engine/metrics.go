package engine

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
)

// Prometheus metrics
var (
	buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verselens_index_builds_total",
			Help: "Index builds by outcome",
		},
		[]string{"outcome"},
	)
	buildDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verselens_index_build_duration_seconds",
			Help:    "Duration of index builds in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34m
		},
	)
	indexedVerses = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "verselens_index_verses",
			Help: "Number of verses in the serving index",
		},
	)
	searchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verselens_searches_total",
			Help: "Searches by outcome",
		},
		[]string{"outcome"},
	)
	searchDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "verselens_search_duration_seconds",
			Help:    "Duration of searches in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)
)

var tracer = otel.Tracer("verselens/engine")

func init() {
	prometheus.MustRegister(buildsTotal, buildDuration, indexedVerses, searchesTotal, searchDuration)
}
