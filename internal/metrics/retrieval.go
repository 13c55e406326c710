package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Retrieval Prometheus metrics.
var (
	CandidateFetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pixdex",
			Name:      "candidate_fetch_duration_seconds",
			Help:      "ANN candidate fetch duration per modality",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"modality"},
	)

	CandidatesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixdex",
			Name:      "candidates_total",
			Help:      "ANN candidates returned per modality",
		},
		[]string{"modality"},
	)

	ModalityDegradedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixdex",
			Name:      "modality_degraded_total",
			Help:      "Queries served without a modality because its index was missing",
		},
		[]string{"modality"},
	)

	ItemsIngestedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pixdex",
			Name:      "items_ingested_total",
			Help:      "Images ingested or backfilled",
		},
		[]string{"source", "result"}, // "upload"|"backfill", "ok"|"error"
	)
)

var retrievalOnce sync.Once

// RegisterRetrievalMetrics registers retrieval and ingest metrics. Safe to call more than once.
func RegisterRetrievalMetrics() {
	retrievalOnce.Do(func() {
		prometheus.MustRegister(CandidateFetchDuration)
		prometheus.MustRegister(CandidatesTotal)
		prometheus.MustRegister(ModalityDegradedTotal)
		prometheus.MustRegister(ItemsIngestedTotal)
	})
}
