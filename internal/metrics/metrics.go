// Package metrics exposes the service's Prometheus registry and the
// collectors the auth and billing flows report into.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds every metric the service exports. Handlers serve it on
// /metrics; tests can read from it directly.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
}

var (
	loginAttempts = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "aurum_auth_login_attempts_total",
		Help: "Login attempts by method (credential, wallet, oauth) and outcome.",
	}, []string{"method", "outcome"})

	secondFactorChecks = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "aurum_auth_second_factor_total",
		Help: "Second-factor code verifications by outcome.",
	}, []string{"outcome"})

	sessionsIssued = promauto.With(Registry).NewCounter(prometheus.CounterOpts{
		Name: "aurum_sessions_issued_total",
		Help: "Sessions issued across all login methods.",
	})

	webhookEvents = promauto.With(Registry).NewCounterVec(prometheus.CounterOpts{
		Name: "aurum_billing_webhook_events_total",
		Help: "Billing webhook events received, by event type.",
	}, []string{"type"})

	requestDuration = promauto.With(Registry).NewHistogramVec(prometheus.HistogramOpts{
		Name:    "aurum_http_request_duration_seconds",
		Help:    "HTTP request latency by route and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)

// Collector reports auth and billing flow outcomes into the registry. It
// satisfies the MetricsCollector interfaces of the service packages.
type Collector struct{}

func NewCollector() *Collector { return &Collector{} }

func (*Collector) LoginAttempt(method, outcome string) {
	loginAttempts.WithLabelValues(method, outcome).Inc()
}

func (*Collector) SecondFactorCheck(outcome string) {
	secondFactorChecks.WithLabelValues(outcome).Inc()
}

func (*Collector) SessionIssued() {
	sessionsIssued.Inc()
}

func (*Collector) WebhookEvent(eventType string) {
	webhookEvents.WithLabelValues(eventType).Inc()
}

// ObserveRequest records one served HTTP request.
func ObserveRequest(method, path, status string, seconds float64) {
	requestDuration.WithLabelValues(method, path, status).Observe(seconds)
}

// Handler serves the registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
