// Package api provides the HTTP server for the token-economy core.
// It exposes scoring, mint coordination, wallet and event-ingestion
// endpoints for platform backends.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/funmoney-network/pplp/internal/chain"
	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/events"
	"github.com/funmoney-network/pplp/internal/ledger"
	"github.com/funmoney-network/pplp/internal/mint"
	"github.com/funmoney-network/pplp/internal/observability"
	"github.com/funmoney-network/pplp/internal/policy"
	"github.com/funmoney-network/pplp/internal/reputation"
	"github.com/funmoney-network/pplp/internal/scoring"
)

// Version is the API version reported by /api/version.
const Version = "0.1.0"

// Server is the token-economy HTTP API server.
type Server struct {
	scorer         *scoring.Scorer
	catalog        *policy.Catalog
	tracker        *reputation.Tracker
	validator      *chain.Validator
	mints          *mint.Manager
	store          domain.MintRequestStore
	wallet         *ledger.Service
	ingestor       *events.Ingestor
	metricsEnabled bool
}

// NewServer creates an API server over the given services. Any service may
// be nil; its routes then answer 503.
func NewServer(scorer *scoring.Scorer, catalog *policy.Catalog, tracker *reputation.Tracker) *Server {
	return &Server{scorer: scorer, catalog: catalog, tracker: tracker}
}

// SetValidator wires the on-chain pre-mint validator.
func (s *Server) SetValidator(v *chain.Validator) { s.validator = v }

// SetMint wires the mint request coordinator and its store.
func (s *Server) SetMint(m *mint.Manager, store domain.MintRequestStore) {
	s.mints = m
	s.store = store
}

// SetWallet wires the off-chain wallet ledger.
func (s *Server) SetWallet(w *ledger.Service) { s.wallet = w }

// SetIngestor wires the analytics event ingestor.
func (s *Server) SetIngestor(in *events.Ingestor) { s.ingestor = in }

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(corsMiddleware)
	r.Use(traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{
			"status": "ok",
		})
	})

	r.Get("/api/version", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{
			"version": Version,
		})
	})

	r.Get("/api/chain/status", s.handleChainStatus)
	r.Post("/api/score", s.handleScore)
	r.Get("/api/reputation/{address}", s.handleReputation)

	r.Route("/api/policy", func(r chi.Router) {
		r.Get("/actions", s.handlePolicyActions)
	})

	r.Route("/api/mint", func(r chi.Router) {
		r.Get("/validate", s.handleMintValidate)
		r.Post("/requests", s.handleMintCreate)
		r.Get("/requests", s.handleMintList)
		r.Get("/requests/{id}", s.handleMintGet)
		r.Post("/requests/{id}/signatures", s.handleMintSign)
		r.Post("/requests/{id}/submit", s.handleMintSubmit)
		r.Post("/requests/{id}/confirm", s.handleMintConfirm)
		r.Post("/requests/{id}/fail", s.handleMintFail)
		r.Post("/requests/{id}/reject", s.handleMintReject)
	})

	r.Route("/api/wallet", func(r chi.Router) {
		r.Post("/", s.handleWalletOperation)
		r.Get("/balance/{address}", s.handleWalletBalance)
		r.Get("/transactions/{address}", s.handleWalletTransactions)
	})

	r.Post("/api/events", s.handleEvents)

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response with the request's trace ID headered.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Trace-Id", observability.TraceID(r.Context()))
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured JSON error response.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, r, status, map[string]interface{}{
		"error": map[string]interface{}{
			"code":     code,
			"message":  msg,
			"trace_id": observability.TraceID(r.Context()),
		},
	})
}

// writeDomainError maps sentinel errors onto HTTP statuses and codes.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrActionNotRegistered):
		writeError(w, r, http.StatusNotFound, "action_not_registered", err.Error())
	case errors.Is(err, domain.ErrRequestNotFound):
		writeError(w, r, http.StatusNotFound, "request_not_found", err.Error())
	case errors.Is(err, domain.ErrUnknownRecipient):
		writeError(w, r, http.StatusNotFound, "unknown_recipient", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		writeError(w, r, http.StatusConflict, "invalid_transition", err.Error())
	case errors.Is(err, domain.ErrDuplicateSignature):
		writeError(w, r, http.StatusConflict, "duplicate_signature", err.Error())
	case errors.Is(err, domain.ErrIdempotencyConflict):
		writeError(w, r, http.StatusConflict, "idempotency_conflict", err.Error())
	case errors.Is(err, domain.ErrInsufficientBalance):
		writeError(w, r, http.StatusUnprocessableEntity, "insufficient_balance", err.Error())
	case errors.Is(err, domain.ErrSelfTransfer):
		writeError(w, r, http.StatusBadRequest, "self_transfer", err.Error())
	case errors.Is(err, domain.ErrInvalidAmount):
		writeError(w, r, http.StatusBadRequest, "invalid_amount", err.Error())
	case errors.Is(err, domain.ErrUnknownSigner):
		writeError(w, r, http.StatusForbidden, "unknown_signer", err.Error())
	case errors.Is(err, domain.ErrCoverageUnsatisfied):
		writeError(w, r, http.StatusConflict, "coverage_unsatisfied", err.Error())
	case errors.Is(err, domain.ErrRPCUnavailable):
		writeError(w, r, http.StatusBadGateway, "rpc_unavailable", err.Error())
	case errors.Is(err, domain.ErrWrongNetwork):
		writeError(w, r, http.StatusBadGateway, "wrong_network", err.Error())
	case errors.Is(err, domain.ErrContractNotFound):
		writeError(w, r, http.StatusBadGateway, "contract_not_found", err.Error())
	case errors.Is(err, domain.ErrBatchTooLarge):
		writeError(w, r, http.StatusRequestEntityTooLarge, "batch_too_large", err.Error())
	case errors.Is(err, domain.ErrRateLimited):
		writeError(w, r, http.StatusTooManyRequests, "rate_limited", err.Error())
	case errors.Is(err, domain.ErrPIIDetected):
		writeError(w, r, http.StatusBadRequest, "pii_detected", err.Error())
	case errors.Is(err, domain.ErrMissingEventName):
		writeError(w, r, http.StatusBadRequest, "invalid_event", err.Error())
	default:
		writeError(w, r, http.StatusInternalServerError, "internal", err.Error())
	}
}

// ─── Middleware ─────────────────────────────────────────────────────────────

// corsMiddleware adds CORS headers for browser clients.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, Idempotency-Key, X-User-Id")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// traceMiddleware attaches a trace ID to every request and records latency.
func traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get("X-Trace-Id")
		if traceID == "" {
			traceID = observability.NewTraceID()
		}
		ctx := observability.WithTraceID(r.Context(), traceID)

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r.WithContext(ctx))

		route := r.URL.Path
		if rc := chi.RouteContext(ctx); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		observability.HTTPDuration.
			WithLabelValues(route, strconv.Itoa(ww.Status())).
			Observe(float64(time.Since(start).Milliseconds()))
	})
}
