package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserve(t *testing.T) {
	m := NewWithRegistry(prometheus.NewRegistry())

	m.ObserveForest(0.1, 20*time.Millisecond)
	m.ObserveForest(0.2, 30*time.Millisecond)
	m.ObserveTraining(42)
	m.ObservePrediction(100, time.Second)
	m.Failure(StagePrediction)
	m.Failure(StagePrediction)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ForestsTrained))
	assert.Equal(t, 42.0, testutil.ToFloat64(m.TrainingSamples))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Predictions))
	assert.Equal(t, 100.0, testutil.ToFloat64(m.PredictedPixels))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.Failures.WithLabelValues(StagePrediction)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Failures.WithLabelValues(StageTraining)))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveForest(0.5, time.Millisecond)
		m.ObserveTraining(1)
		m.ObservePrediction(1, time.Millisecond)
		m.Failure(StageFeatures)
	})
}

func TestRegistriesAreIsolated(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWithRegistry(reg)
	m.ObserveTraining(3)

	families, err := reg.Gather()
	assert.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "pixelclassifier_training_samples")

	assert.Equal(t, 0.0, testutil.ToFloat64(NewWithRegistry(prometheus.NewRegistry()).TrainingSamples))
}
