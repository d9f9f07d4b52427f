// Package observability holds the Prometheus metric surface for the
// token-economy core: scoring decisions, mint validation, ledger mutations,
// event ingestion and HTTP latency.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Scoring Metrics ────────────────────────────────────────────────────────

// ScoreDecisions tracks scoring outcomes by decision.
var ScoreDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "scoring",
	Name:      "decisions_total",
	Help:      "Total scoring decisions by outcome (AUTHORIZE, REJECT, REVIEW_HOLD).",
}, []string{"decision"})

// ScoreLatency tracks scoring engine latency.
var ScoreLatency = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "pplp",
	Subsystem: "scoring",
	Name:      "latency_ms",
	Help:      "Scoring engine latency in milliseconds.",
	Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50},
})

// ─── Mint Metrics ───────────────────────────────────────────────────────────

// MintValidations tracks pre-mint validations by result.
var MintValidations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "mint",
	Name:      "validations_total",
	Help:      "Total pre-mint contract validations by result (pass, fail).",
}, []string{"result"})

// MintRequestTransitions tracks mint request state transitions.
var MintRequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "mint",
	Name:      "transitions_total",
	Help:      "Total mint request state transitions by target status.",
}, []string{"status"})

// MintSignatures tracks accepted attester signatures by group.
var MintSignatures = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "mint",
	Name:      "signatures_total",
	Help:      "Total accepted attester signatures by governance group.",
}, []string{"group"})

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

// LedgerOperations tracks wallet operations by action and result.
var LedgerOperations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "ledger",
	Name:      "operations_total",
	Help:      "Total wallet ledger operations by action and result.",
}, []string{"action", "result"})

// LedgerReplays tracks idempotency-key replays served from cache.
var LedgerReplays = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "ledger",
	Name:      "replays_total",
	Help:      "Total wallet operations answered from the idempotency cache.",
})

// ─── Events Metrics ─────────────────────────────────────────────────────────

// EventsAccepted tracks accepted analytics events.
var EventsAccepted = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "events",
	Name:      "accepted_total",
	Help:      "Total analytics events accepted for storage.",
})

// EventsRejected tracks rejected batches by reason.
var EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pplp",
	Subsystem: "events",
	Name:      "rejected_total",
	Help:      "Total analytics batches rejected by reason (pii, rate_limit, too_large, invalid).",
}, []string{"reason"})

// ─── HTTP Metrics ───────────────────────────────────────────────────────────

// HTTPDuration tracks request latency by route and status class.
var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "pplp",
	Subsystem: "http",
	Name:      "request_duration_ms",
	Help:      "HTTP request duration in milliseconds.",
	Buckets:   []float64{1, 5, 10, 25, 50, 100, 250, 500, 1000},
}, []string{"route", "status"})
