// Package metrics defines Classy's Prometheus collectors.
//
// Every collector lives on a Registry backed by its own prometheus.Registry so
// tests can build isolated instances. All methods are nil-safe: components
// accept a nil *Registry when metrics are not wired.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "classy"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	LoginsTotal      *prometheus.CounterVec
	SessionsRevoked  prometheus.Counter
	ResolvesTotal    prometheus.Counter
	ResolveFailures  *prometheus.CounterVec
	AuthzDecisions   *prometheus.CounterVec
	AccountsCreated  *prometheus.CounterVec
	AccountsDeleted  *prometheus.CounterVec
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RateLimitedTotal prometheus.Counter
}

// NewRegistry creates a registry with Go runtime and process collectors plus
// the application collectors.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	r := &Registry{
		registry: reg,
		LoginsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "logins_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		SessionsRevoked: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "revoked_total",
			Help:      "Sessions cleared by logout or password change.",
		}),
		ResolvesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolves_total",
			Help:      "Successful token resolutions.",
		}),
		ResolveFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "resolve_failures_total",
			Help:      "Failed token resolutions by failing step (server-side only).",
		}, []string{"step"}),
		AuthzDecisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Authorization decisions by action and result.",
		}, []string{"action", "decision"}),
		AccountsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "created_total",
			Help:      "Accounts created by type.",
		}, []string{"type"}),
		AccountsDeleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "account",
			Name:      "deleted_total",
			Help:      "Accounts deleted by type.",
		}, []string{"type"}),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		RateLimitedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "rate_limited_total",
			Help:      "Requests rejected by the login rate limiter.",
		}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		r.LoginsTotal,
		r.SessionsRevoked,
		r.ResolvesTotal,
		r.ResolveFailures,
		r.AuthzDecisions,
		r.AccountsCreated,
		r.AccountsDeleted,
		r.RequestsTotal,
		r.RequestDuration,
		r.RateLimitedTotal,
	)

	return r
}

// Handler returns the /metrics handler for this registry.
func (r *Registry) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

// Gatherer exposes the underlying registry (tests).
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

func (r *Registry) Login(outcome string) {
	if r == nil {
		return
	}
	r.LoginsTotal.WithLabelValues(outcome).Inc()
}

func (r *Registry) SessionRevoked() {
	if r == nil {
		return
	}
	r.SessionsRevoked.Inc()
}

func (r *Registry) Resolved() {
	if r == nil {
		return
	}
	r.ResolvesTotal.Inc()
}

func (r *Registry) ResolveFailed(step string) {
	if r == nil {
		return
	}
	r.ResolveFailures.WithLabelValues(step).Inc()
}

func (r *Registry) AuthzDecision(action, decision string) {
	if r == nil {
		return
	}
	r.AuthzDecisions.WithLabelValues(action, decision).Inc()
}

func (r *Registry) AccountCreated(typ string) {
	if r == nil {
		return
	}
	r.AccountsCreated.WithLabelValues(typ).Inc()
}

func (r *Registry) AccountDeleted(typ string) {
	if r == nil {
		return
	}
	r.AccountsDeleted.WithLabelValues(typ).Inc()
}

func (r *Registry) RateLimited() {
	if r == nil {
		return
	}
	r.RateLimitedTotal.Inc()
}

// ObserveRequest records one finished HTTP request.
func (r *Registry) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
