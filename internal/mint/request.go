package mint

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Request Manager ────────────────────────────────────────────────────────

// DefaultDeadline is how long an attestation stays signable. The contract
// enforces the EIP-712 deadline on-chain; this mirrors it off-chain.
const DefaultDeadline = time.Hour

// Manager drives the mint request state machine over a persistence store.
// Coverage decisions are always recomputed from the full persisted
// signature set, never from an event or a cached view.
type Manager struct {
	store  domain.MintRequestStore
	groups *Groups

	// Injectable clock for testing.
	now func() time.Time
}

// NewManager creates a request manager.
func NewManager(store domain.MintRequestStore, groups *Groups) *Manager {
	return &Manager{store: store, groups: groups, now: time.Now}
}

// WithClock overrides the clock for testing.
func (m *Manager) WithClock(clock func() time.Time) *Manager {
	m.now = clock
	return m
}

// GroupFor reports the governance group a signer belongs to, or "" for
// addresses outside the attester set.
func (m *Manager) GroupFor(signer string) domain.GroupID {
	return m.groups.GroupFor(signer)
}

// Create opens a new pending mint request for an authorized scoring result.
func (m *Manager) Create(recipient, actionHash, amount, evidenceHash string, nonce uint64, createdBy string) (*domain.MintRequest, error) {
	now := m.now().UTC()
	req := &domain.MintRequest{
		ID:           uuid.New().String(),
		Recipient:    recipient,
		ActionHash:   actionHash,
		Amount:       amount,
		EvidenceHash: evidenceHash,
		Nonce:        nonce,
		Deadline:     now.Add(DefaultDeadline),
		Status:       domain.StatusPending,
		CreatedBy:    createdBy,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := m.store.SaveRequest(req); err != nil {
		return nil, fmt.Errorf("mint: save request: %w", err)
	}
	return req, nil
}

// AddSignature records one attester signature and advances the request to
// ready when group coverage becomes satisfied.
//
// Rules enforced here:
//   - the request must still be pending
//   - the signer must belong to a governance group
//   - one signature per signer (duplicates are rejected, not overwritten)
func (m *Manager) AddSignature(requestID, signer, signature string) (*domain.MintRequest, error) {
	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: cannot sign a %s request", domain.ErrInvalidTransition, req.Status)
	}
	if m.groups.GroupFor(signer) == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSigner, signer)
	}

	existing, err := m.store.Signatures(requestID)
	if err != nil {
		return nil, err
	}
	for _, sig := range existing {
		if normalizeAddress(sig.Signer) == normalizeAddress(signer) {
			return nil, fmt.Errorf("%w: %s", domain.ErrDuplicateSignature, signer)
		}
	}

	if err := m.store.AddSignature(domain.MintSignature{
		RequestID: requestID,
		Signer:    signer,
		Signature: signature,
		SignedAt:  m.now().UTC(),
	}); err != nil {
		return nil, fmt.Errorf("mint: add signature: %w", err)
	}

	return m.Recheck(requestID)
}

// Recheck refetches the full signature set from storage and transitions
// pending → ready if coverage is satisfied. Safe to call repeatedly; it is
// the authoritative go/no-go, regardless of what a realtime view showed.
func (m *Manager) Recheck(requestID string) (*domain.MintRequest, error) {
	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPending {
		return req, nil
	}

	sigs, err := m.store.Signatures(requestID)
	if err != nil {
		return nil, err
	}
	signers := make([]string, 0, len(sigs))
	for _, sig := range sigs {
		signers = append(signers, sig.Signer)
	}

	if m.groups.CoverageSatisfied(signers) {
		if err := m.transition(req, domain.StatusReady); err != nil {
			return nil, err
		}
	}
	return req, nil
}

// Submit marks a ready request as submitted with its transaction hash.
func (m *Manager) Submit(requestID, txHash string) (*domain.MintRequest, error) {
	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == domain.StatusPending {
		return nil, fmt.Errorf("%w: request %s is still collecting signatures", domain.ErrCoverageUnsatisfied, requestID)
	}
	if req.Status != domain.StatusReady {
		return nil, fmt.Errorf("%w: submit from %s", domain.ErrInvalidTransition, req.Status)
	}
	req.TxHash = txHash
	if err := m.transition(req, domain.StatusSubmitted); err != nil {
		return nil, err
	}
	return req, nil
}

// Confirm marks a submitted request as confirmed (transaction mined).
// Confirmed is the only successful terminal state.
func (m *Manager) Confirm(requestID string) (*domain.MintRequest, error) {
	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusSubmitted {
		return nil, fmt.Errorf("%w: confirm from %s", domain.ErrInvalidTransition, req.Status)
	}
	if err := m.transition(req, domain.StatusConfirmed); err != nil {
		return nil, err
	}
	return req, nil
}

// FailSubmission returns a submitted request to pending after an on-chain
// failure. The attempted submission is discarded but collected signatures
// are retained; the request is never silently dropped.
func (m *Manager) FailSubmission(requestID string) (*domain.MintRequest, error) {
	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusSubmitted {
		return nil, fmt.Errorf("%w: fail from %s", domain.ErrInvalidTransition, req.Status)
	}
	req.TxHash = ""
	if err := m.transition(req, domain.StatusPending); err != nil {
		return nil, err
	}
	// Coverage may already be satisfied from the retained signatures.
	return m.Recheck(requestID)
}

// Reject moves a pending request to the absorbing rejected state.
// Moderator action only.
func (m *Manager) Reject(requestID string) (*domain.MintRequest, error) {
	req, err := m.store.GetRequest(requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != domain.StatusPending {
		return nil, fmt.Errorf("%w: reject from %s", domain.ErrInvalidTransition, req.Status)
	}
	if err := m.transition(req, domain.StatusRejected); err != nil {
		return nil, err
	}
	return req, nil
}

// transition applies a status change and persists it.
func (m *Manager) transition(req *domain.MintRequest, to domain.RequestStatus) error {
	req.Status = to
	req.UpdatedAt = m.now().UTC()
	if err := m.store.SaveRequest(req); err != nil {
		return fmt.Errorf("mint: persist %s: %w", to, err)
	}
	return nil
}
