// internal/pkg/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the prometheus collectors exported by the service.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	benefitsApplied  *prometheus.CounterVec
	discountSavings  prometheus.Counter
	analyticsEvents  *prometheus.CounterVec
	forwardFailures  *prometheus.CounterVec
	membershipEvents *prometheus.CounterVec
}

// New creates the collectors under the given namespace on a private registry
func New(namespace string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		benefitsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_benefits_applied_total",
			Help:      "Benefit computations by resulting membership status.",
		}, []string{"status"}),
		discountSavings: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cart_discount_savings_total",
			Help:      "Sum of member service discounts computed on carts.",
		}),
		analyticsEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_analytics_events_total",
			Help:      "Tracked membership analytics events by type.",
		}, []string{"type"}),
		forwardFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_analytics_forward_failures_total",
			Help:      "Analytics events the external sink rejected.",
		}, []string{"sink"}),
		membershipEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "membership_lifecycle_transitions_total",
			Help:      "Membership lifecycle transitions by kind.",
		}, []string{"transition"}),
	}

	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequests,
		m.httpDuration,
		m.benefitsApplied,
		m.discountSavings,
		m.analyticsEvents,
		m.forwardFailures,
		m.membershipEvents,
	)

	return m
}

// Handler exposes the registry in the prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) ObserveHTTP(method, route string, status int, took time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(method, route).Observe(took.Seconds())
}

func (m *Metrics) BenefitsApplied(status string, savings float64) {
	if m == nil {
		return
	}
	m.benefitsApplied.WithLabelValues(status).Inc()
	if savings > 0 {
		m.discountSavings.Add(savings)
	}
}

func (m *Metrics) EventTracked(eventType string) {
	if m == nil {
		return
	}
	m.analyticsEvents.WithLabelValues(eventType).Inc()
}

func (m *Metrics) ForwardFailed(sink string) {
	if m == nil {
		return
	}
	m.forwardFailures.WithLabelValues(sink).Inc()
}

func (m *Metrics) MembershipTransition(kind string) {
	if m == nil {
		return
	}
	m.membershipEvents.WithLabelValues(kind).Inc()
}
