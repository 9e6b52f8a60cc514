package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStep(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveStep("finalize", "ok")
	m.ObserveStep("finalize", "ok")
	m.ObserveStep("finalize", "conflict")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CheckoutSteps.WithLabelValues("finalize", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CheckoutSteps.WithLabelValues("finalize", "conflict")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveStep("checkout", "ok")
		m.ObserveRetry("finalize")
		m.ObserveOutbox("sent")
	})
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRetry("finalize")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "codcheckout_checkout_tx_retries_total"))
}
