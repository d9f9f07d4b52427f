// Package ledger implements the wallet-operations surface: validated
// balance transfers with idempotent replay, audit logging and tamper-
// evident history, over the sqlite store.
package ledger

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gowebpki/jcs"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/sqlite"
)

// ─── Service ────────────────────────────────────────────────────────────────

// Request is one wallet operation as submitted by a client.
type Request struct {
	Action    domain.OperationType `json:"action"`
	From      string               `json:"from"`
	To        string               `json:"to"`
	Amount    int64                `json:"amount"` // micro-FUN
	Reference string               `json:"reference,omitempty"`
}

// Service validates and executes wallet operations.
type Service struct {
	db    *sqlite.DB
	audit Auditor

	// Injectable clock for testing.
	now func() time.Time
}

// NewService creates a ledger service.
func NewService(db *sqlite.DB, audit Auditor) *Service {
	if audit == nil {
		audit = NopAuditor{}
	}
	return &Service{db: db, audit: audit, now: time.Now}
}

// WithClock overrides the clock for testing.
func (s *Service) WithClock(clock func() time.Time) *Service {
	s.now = clock
	return s
}

// Execute validates and runs one wallet operation. idempotencyKey may be
// empty; when present, an exact replay of a completed request returns the
// cached result without mutating any balance.
//
// All validation happens before any mutation: a rejected request leaves
// the ledger untouched.
func (s *Service) Execute(req Request, idempotencyKey string) (*domain.TransferResult, error) {
	switch req.Action {
	case domain.OpTransfer, domain.OpPay, domain.OpRefund:
	default:
		return nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidAmount, req.Action)
	}
	if req.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if req.From == "" || req.To == "" {
		return nil, domain.ErrUnknownRecipient
	}
	if req.From == req.To {
		return nil, domain.ErrSelfTransfer
	}

	requestHash, err := hashRequest(req)
	if err != nil {
		return nil, err
	}

	traceID := uuid.New().String()
	result, err := s.db.ExecuteTransfer(sqlite.TransferOp{
		TraceID:        traceID,
		Operation:      req.Action,
		From:           req.From,
		To:             req.To,
		Amount:         req.Amount,
		Reference:      req.Reference,
		IdempotencyKey: idempotencyKey,
		RequestHash:    requestHash,
		Timestamp:      s.now(),
	})
	if err != nil {
		s.audit.Record(AuditEvent{
			TraceID: traceID,
			Type:    AuditRejected,
			Action:  string(req.Action),
			Actor:   req.From,
			Detail:  map[string]interface{}{"to": req.To, "amount": req.Amount, "error": err.Error()},
		})
		return nil, err
	}

	if !result.Replayed {
		s.audit.Record(AuditEvent{
			TraceID: result.TraceID,
			Type:    AuditMutation,
			Action:  string(req.Action),
			Actor:   req.From,
			Detail:  map[string]interface{}{"to": req.To, "amount": req.Amount},
		})
	}
	return result, nil
}

// Mint credits a recipient's off-chain balance for a confirmed mint.
// Internal operation — not reachable through the wallet HTTP surface.
func (s *Service) Mint(to string, amount int64, reference string) (*domain.TransferResult, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	traceID := uuid.New().String()
	result, err := s.db.ExecuteTransfer(sqlite.TransferOp{
		TraceID:   traceID,
		Operation: domain.OpMint,
		To:        to,
		Amount:    amount,
		Reference: reference,
		Timestamp: s.now(),
	})
	if err != nil {
		return nil, err
	}
	s.audit.Record(AuditEvent{
		TraceID: traceID,
		Type:    AuditMutation,
		Action:  string(domain.OpMint),
		Actor:   "system",
		Detail:  map[string]interface{}{"to": to, "amount": amount, "reference": reference},
	})
	return result, nil
}

// Balance returns an account's balance. Unknown accounts are an error,
// not a zero balance — the distinction matters to callers.
func (s *Service) Balance(address string) (*domain.Account, error) {
	acct, err := s.db.GetAccount(address)
	if err != nil {
		return nil, err
	}
	if acct == nil {
		return nil, domain.ErrUnknownRecipient
	}
	return acct, nil
}

// Transactions returns one page of an account's ledger history.
func (s *Service) Transactions(address, cursor string, limit int) ([]domain.LedgerEntry, string, error) {
	return s.db.Transactions(address, cursor, limit)
}

// hashRequest produces the canonical request hash used to detect an
// idempotency key being reused with a different body. RFC 8785
// canonicalization makes the hash independent of key order.
func hashRequest(req Request) (string, error) {
	raw, err := json.Marshal(req)
	if err != nil {
		return "", err
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", err
	}
	return domain.SHA256Hex(canonical), nil
}
