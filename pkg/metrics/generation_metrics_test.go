package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCauseLabel(t *testing.T) {
	cases := []struct {
		cause string
		want  string
	}{
		{"Backend Failure (500)", "backend_failure"},
		{"Backend Failure (404)", "backend_failure"},
		{"Network Error", "network_error"},
		{"Task Cancelled", "task_cancelled"},
		{"", "unknown"},
	}
	for _, tc := range cases {
		t.Run(tc.cause, func(t *testing.T) {
			assert.Equal(t, tc.want, CauseLabel(tc.cause))
		})
	}
}

func TestGenerationMetrics_Counters(t *testing.T) {
	m := NewGenerationMetrics(prometheus.NewRegistry(), Config{Environment: "test"})

	m.IncRequest(true, OutcomeSuccess)
	m.IncRequest(true, OutcomeSuccess)
	m.IncRequest(false, OutcomeBackendError)
	m.AddDebited(5)
	m.AddDebited(2)
	m.AddRefunded("Backend Failure (502)", 2)
	m.IncReconcile("async", ReconcileDuplicate)
	m.ObserveDispatch(OutcomeSuccess, 150*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("true", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("false", OutcomeBackendError)))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.creditsDebited))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.creditsRefunded.WithLabelValues("backend_failure")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconciles.WithLabelValues("async", ReconcileDuplicate)))
}

func TestGenerationMetrics_NilReceiver(t *testing.T) {
	var m *GenerationMetrics
	assert.NotPanics(t, func() {
		m.IncRequest(true, OutcomeSuccess)
		m.AddDebited(1)
		m.AddRefunded("Network Error", 1)
		m.ObserveDispatch(OutcomeNetworkError, time.Second)
		m.IncReconcile("sync", ReconcileCreated)
		m.IncTerminalTask("failed")
	})
}
