// Package metrics defines the gateway's Prometheus instruments. They are
// registered on the default registry and exposed via the /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// LoginAttempts counts admin login attempts by outcome
	// (success, rejected, network_error).
	LoginAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_admin_login_attempts_total",
		Help: "Admin login attempts by outcome.",
	}, []string{"outcome"})

	// SessionVerifications counts credential verifications against the
	// backend by outcome (success, rejected, error).
	SessionVerifications = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_admin_session_verifications_total",
		Help: "Credential verifications against the backend by outcome.",
	}, []string{"outcome"})

	// TokenRefreshes counts refresh attempts by outcome (success, failed).
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_admin_token_refreshes_total",
		Help: "Session credential refreshes by outcome.",
	}, []string{"outcome"})

	// GuardRedirects counts guard-issued redirects by layer (edge, route)
	// and reason (anonymous, authenticated, role, root).
	GuardRedirects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stride_admin_guard_redirects_total",
		Help: "Redirects issued by the guard layers.",
	}, []string{"layer", "reason"})
)
