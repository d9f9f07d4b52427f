package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/ledger"
	"github.com/funmoney-network/pplp/internal/observability"
)

// ─── Scoring ────────────────────────────────────────────────────────────────

// handleScore scores one action and returns the full decision.
// POST /api/score
func (s *Server) handleScore(w http.ResponseWriter, r *http.Request) {
	if s.scorer == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "scoring not initialized")
		return
	}

	var input domain.ScoringInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if input.Platform == "" || input.ActionType == "" || input.Actor == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "platform, action_type and actor are required")
		return
	}

	// The caller may omit the reputation snapshot; fill it from the
	// server-side tracker keyed by actor address.
	if s.tracker != nil && input.Reputation.Address == "" {
		input.Reputation = s.tracker.Snapshot(input.Actor)
	}

	start := time.Now()
	result, err := s.scorer.ScoreAction(input)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.ScoreLatency.Observe(float64(time.Since(start).Milliseconds()))
	observability.ScoreDecisions.WithLabelValues(string(result.Decision)).Inc()

	// Only authorized actions build standing.
	if s.tracker != nil && result.Authorized() {
		s.tracker.Register(input.Actor)
		if err := s.tracker.RecordAction(input.Actor, result); err != nil {
			writeDomainError(w, r, err)
			return
		}
	}

	writeJSON(w, r, http.StatusOK, scoreResponse(result))
}

// scoreResponse renders amounts as decimal strings; atomic units overflow
// JSON number precision.
func scoreResponse(res *domain.ScoringResult) map[string]interface{} {
	return map[string]interface{}{
		"platform":    res.Platform,
		"action_type": res.ActionType,
		"actor":       res.Actor,
		"light_score": res.LightScore,
		"unity_score": res.UnityScore,
		"multipliers": res.Multipliers,
		"base_reward": res.BaseReward.String(),
		"amount":      res.Amount.String(),
		"amount_fun":  domain.FormatFUN(res.Amount),
		"decision":    res.Decision,
		"reasons":     res.Reasons,
		"scored_at":   res.ScoredAt,
	}
}

// handleReputation returns the current reputation snapshot for an address.
// GET /api/reputation/{address}
func (s *Server) handleReputation(w http.ResponseWriter, r *http.Request) {
	if s.tracker == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "reputation not initialized")
		return
	}
	address := chi.URLParam(r, "address")
	writeJSON(w, r, http.StatusOK, s.tracker.Snapshot(address))
}

// handlePolicyActions lists the registered action policies.
// GET /api/policy/actions
func (s *Server) handlePolicyActions(w http.ResponseWriter, r *http.Request) {
	if s.catalog == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "policy catalog not initialized")
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"version": s.catalog.Version(),
		"actions": s.catalog.Actions(),
	})
}

// ─── Chain ──────────────────────────────────────────────────────────────────

// handleChainStatus verifies the RPC connection and contract deployment.
// GET /api/chain/status
func (s *Server) handleChainStatus(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "chain validator not initialized")
		return
	}
	status, err := s.validator.CheckContract(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, status)
}

// ─── Mint ───────────────────────────────────────────────────────────────────

// handleMintValidate runs the read-only contract checks before a mint.
// GET /api/mint/validate?attester=0x..&action=LESSON_COMPLETE
func (s *Server) handleMintValidate(w http.ResponseWriter, r *http.Request) {
	if s.validator == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "chain validator not initialized")
		return
	}
	attester := r.URL.Query().Get("attester")
	action := r.URL.Query().Get("action")
	if attester == "" || action == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "attester and action are required")
		return
	}

	validation := s.validator.ValidateBeforeMint(r.Context(), attester, action)
	result := "fail"
	if validation.CanMint {
		result = "pass"
	}
	observability.MintValidations.WithLabelValues(result).Inc()
	writeJSON(w, r, http.StatusOK, validation)
}

type mintCreateRequest struct {
	Recipient    string `json:"recipient"`
	ActionHash   string `json:"action_hash"`
	Amount       string `json:"amount"` // atomic units, decimal string
	EvidenceHash string `json:"evidence_hash"`
	Nonce        uint64 `json:"nonce"`
	CreatedBy    string `json:"created_by"`
}

// handleMintCreate opens a new multi-group mint request.
// POST /api/mint/requests
func (s *Server) handleMintCreate(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint coordinator not initialized")
		return
	}
	var body mintCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req, err := s.mints.Create(body.Recipient, body.ActionHash, body.Amount, body.EvidenceHash, body.Nonce, body.CreatedBy)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.MintRequestTransitions.WithLabelValues(string(req.Status)).Inc()
	writeJSON(w, r, http.StatusCreated, req)
}

// handleMintList lists requests, optionally filtered by status.
// GET /api/mint/requests?status=pending
func (s *Server) handleMintList(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint store not initialized")
		return
	}
	status := domain.RequestStatus(r.URL.Query().Get("status"))
	reqs, err := s.store.ListRequests(status)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"requests": reqs,
		"count":    len(reqs),
	})
}

// handleMintGet returns one request with its collected signatures.
// GET /api/mint/requests/{id}
func (s *Server) handleMintGet(w http.ResponseWriter, r *http.Request) {
	if s.store == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint store not initialized")
		return
	}
	id := chi.URLParam(r, "id")
	req, err := s.store.GetRequest(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	sigs, err := s.store.Signatures(id)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"request":    req,
		"signatures": sigs,
	})
}

type mintSignRequest struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

// handleMintSign records one attester signature on a pending request.
// POST /api/mint/requests/{id}/signatures
func (s *Server) handleMintSign(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint coordinator not initialized")
		return
	}
	var body mintSignRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	req, err := s.mints.AddSignature(chi.URLParam(r, "id"), body.Signer, body.Signature)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.MintSignatures.WithLabelValues(string(s.mints.GroupFor(body.Signer))).Inc()
	observability.MintRequestTransitions.WithLabelValues(string(req.Status)).Inc()
	writeJSON(w, r, http.StatusOK, req)
}

type mintSubmitRequest struct {
	TxHash string `json:"tx_hash"`
}

// handleMintSubmit marks a ready request as submitted on-chain.
// POST /api/mint/requests/{id}/submit
func (s *Server) handleMintSubmit(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint coordinator not initialized")
		return
	}
	var body mintSubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	if body.TxHash == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "tx_hash is required")
		return
	}
	s.mintTransition(w, r, func(id string) (*domain.MintRequest, error) {
		return s.mints.Submit(id, body.TxHash)
	})
}

// handleMintConfirm finalizes a submitted request.
// POST /api/mint/requests/{id}/confirm
func (s *Server) handleMintConfirm(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint coordinator not initialized")
		return
	}
	s.mintTransition(w, r, s.mints.Confirm)
}

// handleMintFail returns a submitted request to pending after a failed tx.
// POST /api/mint/requests/{id}/fail
func (s *Server) handleMintFail(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint coordinator not initialized")
		return
	}
	s.mintTransition(w, r, s.mints.FailSubmission)
}

// handleMintReject permanently rejects a pending request.
// POST /api/mint/requests/{id}/reject
func (s *Server) handleMintReject(w http.ResponseWriter, r *http.Request) {
	if s.mints == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "mint coordinator not initialized")
		return
	}
	s.mintTransition(w, r, s.mints.Reject)
}

func (s *Server) mintTransition(w http.ResponseWriter, r *http.Request, fn func(id string) (*domain.MintRequest, error)) {
	req, err := fn(chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	observability.MintRequestTransitions.WithLabelValues(string(req.Status)).Inc()
	writeJSON(w, r, http.StatusOK, req)
}

// ─── Wallet ─────────────────────────────────────────────────────────────────

// handleWalletOperation executes a transfer, payment or refund.
// POST /api/wallet  (Idempotency-Key header required)
func (s *Server) handleWalletOperation(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "wallet ledger not initialized")
		return
	}
	key := r.Header.Get("Idempotency-Key")
	if key == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "Idempotency-Key header is required")
		return
	}
	var req ledger.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	result, err := s.wallet.Execute(req, key)
	if err != nil {
		observability.LedgerOperations.WithLabelValues(string(req.Action), "rejected").Inc()
		writeDomainError(w, r, err)
		return
	}
	if result.Replayed {
		observability.LedgerReplays.Inc()
	} else {
		observability.LedgerOperations.WithLabelValues(string(req.Action), "ok").Inc()
	}
	writeJSON(w, r, http.StatusOK, result)
}

// handleWalletBalance returns the current balance for an address.
// GET /api/wallet/balance/{address}
func (s *Server) handleWalletBalance(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "wallet ledger not initialized")
		return
	}
	account, err := s.wallet.Balance(chi.URLParam(r, "address"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, account)
}

// handleWalletTransactions returns a transaction page for an address.
// GET /api/wallet/transactions/{address}?cursor=&limit=
func (s *Server) handleWalletTransactions(w http.ResponseWriter, r *http.Request) {
	if s.wallet == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "wallet ledger not initialized")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > 200 {
			writeError(w, r, http.StatusBadRequest, "bad_request", "limit must be between 1 and 200")
			return
		}
		limit = n
	}
	entries, next, err := s.wallet.Transactions(chi.URLParam(r, "address"), r.URL.Query().Get("cursor"), limit)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, map[string]interface{}{
		"transactions": entries,
		"next_cursor":  next,
	})
}

// ─── Events ─────────────────────────────────────────────────────────────────

type eventsRequest struct {
	UserID string                 `json:"user_id"`
	Events []domain.EventEnvelope `json:"events"`
}

// handleEvents ingests one analytics batch.
// POST /api/events  (X-User-Id header, or user_id in the body)
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.ingestor == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "event ingestion not initialized")
		return
	}
	var body eventsRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}
	userID := r.Header.Get("X-User-Id")
	if userID == "" {
		userID = body.UserID
	}
	if userID == "" {
		writeError(w, r, http.StatusBadRequest, "bad_request", "user id is required")
		return
	}

	result, err := s.ingestor.Ingest(userID, body.Events)
	if err != nil {
		observability.EventsRejected.WithLabelValues(rejectReason(err)).Inc()
		writeDomainError(w, r, err)
		return
	}
	observability.EventsAccepted.Add(float64(result.Accepted))
	writeJSON(w, r, http.StatusAccepted, result)
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrPIIDetected):
		return "pii"
	case errors.Is(err, domain.ErrRateLimited):
		return "rate_limit"
	case errors.Is(err, domain.ErrBatchTooLarge):
		return "too_large"
	default:
		return "invalid"
	}
}
