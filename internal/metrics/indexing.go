package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Index lifecycle Prometheus metrics.
var (
	IndexBuildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixdex",
			Name:      "index_builds_total",
			Help:      "ANN index build outcomes per index",
		},
		[]string{"index", "result"}, // "created"|"exists"|"error"
	)

	IndexBuildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pixdex",
			Name:      "index_build_duration_seconds",
			Help:      "ANN index build duration",
			Buckets:   prometheus.ExponentialBuckets(0.1, 4, 10),
		},
		[]string{"index"},
	)

	IndexState = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pixdex",
			Name:      "index_state",
			Help:      "Index lifecycle state (0 not scheduled, 1 scheduled, 2 building, 3 built, 4 failed)",
		},
	)
)

var indexingOnce sync.Once

// RegisterIndexingMetrics registers index lifecycle metrics. Safe to call more than once.
func RegisterIndexingMetrics() {
	indexingOnce.Do(func() {
		prometheus.MustRegister(IndexBuildsTotal)
		prometheus.MustRegister(IndexBuildDuration)
		prometheus.MustRegister(IndexState)
	})
}
