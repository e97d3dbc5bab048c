// Package metrics provides Prometheus metrics for pixel classifier training
// and prediction.
//
// All recording methods accept a nil *Metrics and do nothing, so
// instrumented code runs unchanged without a registry.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Stages reported by Failure.
const (
	StageFeatures   = "features"
	StageTraining   = "training"
	StagePrediction = "prediction"
)

// Metrics holds the classifier's Prometheus collectors.
type Metrics struct {
	ForestsTrained   prometheus.Counter   // Forests trained successfully
	TrainingSamples  prometheus.Gauge     // Samples of the last training run
	TrainingDuration prometheus.Histogram // Per-forest training time
	OOBError         prometheus.Histogram // Per-forest out-of-bag error

	Predictions        prometheus.Counter   // Predict calls that succeeded
	PredictedPixels    prometheus.Counter   // Pixels classified
	PredictionDuration prometheus.Histogram // End-to-end Predict time

	Failures *prometheus.CounterVec // Failures by stage
}

// New creates and registers the metrics with the default registry.
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry creates the metrics on registerer. Tests use a fresh
// prometheus.NewRegistry() per case.
func NewWithRegistry(registerer prometheus.Registerer) *Metrics {
	factory := promauto.With(registerer)
	return &Metrics{
		ForestsTrained: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelclassifier_forests_trained_total",
			Help: "Total number of forests trained",
		}),
		TrainingSamples: factory.NewGauge(prometheus.GaugeOpts{
			Name: "pixelclassifier_training_samples",
			Help: "Number of labelled samples in the last training run",
		}),
		TrainingDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelclassifier_forest_training_seconds",
			Help:    "Training time of a single forest in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		OOBError: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelclassifier_forest_oob_error",
			Help:    "Out-of-bag misclassification rate of trained forests",
			Buckets: prometheus.LinearBuckets(0, 0.05, 21),
		}),
		Predictions: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelclassifier_predictions_total",
			Help: "Total number of successful predictions",
		}),
		PredictedPixels: factory.NewCounter(prometheus.CounterOpts{
			Name: "pixelclassifier_predicted_pixels_total",
			Help: "Total number of pixels classified",
		}),
		PredictionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "pixelclassifier_prediction_seconds",
			Help:    "Prediction time in seconds, features included",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 15),
		}),
		Failures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "pixelclassifier_failures_total",
			Help: "Total number of failures by stage",
		}, []string{"stage"}),
	}
}

// ObserveForest records one trained forest.
func (m *Metrics) ObserveForest(oob float64, took time.Duration) {
	if m == nil {
		return
	}
	m.ForestsTrained.Inc()
	m.OOBError.Observe(oob)
	m.TrainingDuration.Observe(took.Seconds())
}

// ObserveTraining records the sample count of a training run.
func (m *Metrics) ObserveTraining(samples int) {
	if m == nil {
		return
	}
	m.TrainingSamples.Set(float64(samples))
}

// ObservePrediction records one successful prediction.
func (m *Metrics) ObservePrediction(pixels int, took time.Duration) {
	if m == nil {
		return
	}
	m.Predictions.Inc()
	m.PredictedPixels.Add(float64(pixels))
	m.PredictionDuration.Observe(took.Seconds())
}

// Failure counts a failure at stage.
func (m *Metrics) Failure(stage string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(stage).Inc()
}
