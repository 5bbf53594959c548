// Package metrics defines and registers all custom Prometheus metrics for
// the session gateway. It is the single source of truth for metric names,
// labels, and help strings.
//
// Metrics register with the default Prometheus registry at import time; the
// router exposes them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "session_gateway"

// LoginsTotal counts login attempts proxied to the upstream backend.
// Labels:
//   - role: the requested role tag ("admin", "seller", "customer")
//   - result: "ok" or "error"
var LoginsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Total number of login attempts, by role and result.",
	},
	[]string{"role", "result"},
)

// GuardDecisionsTotal counts route guard evaluations.
// Label:
//   - decision: "allow", "redirect_to_login", "redirect_to_unauthorized", "defer"
var GuardDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of route guard evaluations, by decision.",
	},
	[]string{"decision"},
)

// StatusPollsTotal counts seller onboarding status polls.
// Label:
//   - result: "ok" (response applied) or "error" (fetch failed, last value kept)
var StatusPollsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_polls_total",
		Help:      "Total number of seller status polls, by result.",
	},
	[]string{"result"},
)

// ApprovalTransitionsTotal counts first-time detections of a seller
// transitioning into the approved state.
var ApprovalTransitionsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "approval_transitions_total",
		Help:      "Total number of seller pending-to-approved transitions detected.",
	},
)

// ActiveSessions tracks the number of live, non-anonymous sessions held by
// the gateway.
var ActiveSessions = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "active_sessions",
		Help:      "Current number of live authenticated sessions.",
	},
)
