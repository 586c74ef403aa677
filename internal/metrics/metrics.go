// Package metrics exposes Prometheus collectors for prediction and corpus
// activity. Collectors register with the default registry on import.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	PredictionsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volcast_predictions_total",
			Help: "Total number of volume estimates produced",
		},
	)

	PredictionErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volcast_prediction_errors_total",
			Help: "Total number of failed prediction batches",
		},
		[]string{"kind"}, // "features", "schema", "inference", "non_finite"
	)

	AnomalousPredictions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volcast_anomalous_predictions_total",
			Help: "Estimates clamped to zero after inversion",
		},
	)

	InferenceDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "volcast_inference_duration_seconds",
			Help:    "Duration of model inference calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"}, // "features", "regress"
	)

	CorpusRecords = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "volcast_corpus_records_total",
			Help: "Corpus records seen at load time",
		},
		[]string{"result"}, // "loaded", "dropped", "merged"
	)

	CorpusLoadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "volcast_corpus_load_failures_total",
			Help: "Corpus loads that fell back to an empty corpus",
		},
	)

	ComparisonSetSize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "volcast_comparison_set_size",
			Help:    "Number of similar events selected per comparison",
			Buckets: prometheus.LinearBuckets(0, 1, 9),
		},
	)
)

// ObserveInference records the time since start under the given stage.
func ObserveInference(stage string, start time.Time) {
	InferenceDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}
