// Package metrics holds Prometheus instruments that are used across the
// console.  All collectors are registered with the global registry, so
// importing this package in main.go is enough to expose them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "admin_active_sessions",
			Help: "Number of browser auth managers currently held in memory.",
		})

	HydrateTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_session_hydrate_total",
			Help: "Cumulative number of auth managers hydrated from durable storage.",
		})

	SessionEvictTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_session_evict_total",
			Help: "Cumulative number of auth managers evicted from the registry.",
		})

	LoginTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_login_total",
			Help: "Login attempts by result (ok, failed).",
		}, []string{"result"})

	LogoutTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_logout_total",
			Help: "Cumulative number of logouts.",
		})

	UnauthorizedResetTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "admin_unauthorized_reset_total",
			Help: "Storage resets forced by a 401 from the backend.",
		})

	GuardDecisionTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_guard_decision_total",
			Help: "Route guard decisions by guard variant and outcome.",
		}, []string{"guard", "outcome"})

	BackendRequestTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_backend_request_total",
			Help: "Backend REST calls by method and status class.",
		}, []string{"method", "class"})

	FormSubmitTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_form_submit_total",
			Help: "Form submissions by form and outcome.",
		}, []string{"form", "outcome"})
)

func init() {
	prometheus.MustRegister(
		ActiveSessions,
		HydrateTotal,
		SessionEvictTotal,
		LoginTotal,
		LogoutTotal,
		UnauthorizedResetTotal,
		GuardDecisionTotal,
		BackendRequestTotal,
		FormSubmitTotal,
	)
}
