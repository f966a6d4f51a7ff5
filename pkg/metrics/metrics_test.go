package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveDecision(t *testing.T) {
	m := NewMetrics("test", prometheus.NewRegistry())

	m.ObserveDecision("approve", nil)
	m.ObserveDecision("approve", nil)
	m.ObserveDecision("approve", errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approve", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("approve", "error")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveDecision("approve", nil)
		m.ObserveDB("list", nil)
	})
}

func TestSeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		New("a")
		New("a")
	})
}
