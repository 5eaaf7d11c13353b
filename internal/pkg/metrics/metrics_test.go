package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("test")

	m.BenefitsApplied("active", 15)
	m.BenefitsApplied("none", 0)
	m.EventTracked("membership_signup")
	m.ForwardFailed("http")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.benefitsApplied.WithLabelValues("active")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.discountSavings))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.analyticsEvents.WithLabelValues("membership_signup")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.forwardFailures.WithLabelValues("http")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/health", 200, time.Millisecond)
		m.BenefitsApplied("active", 1)
		m.EventTracked("engagement")
		m.ForwardFailed("redis")
		m.MembershipTransition("signup")
	})
}

func TestMetrics_Handler(t *testing.T) {
	m := New("test")
	m.ObserveHTTP("GET", "/health", 200, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_http_requests_total")
}
