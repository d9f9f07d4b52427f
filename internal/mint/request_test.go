package mint

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

func testManager(t *testing.T) (*Manager, *MemStore) {
	t.Helper()
	store := NewMemStore()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager(store, testGroups(t)).WithClock(func() time.Time { return fixed })
	return m, store
}

func createRequest(t *testing.T, m *Manager) *domain.MintRequest {
	t.Helper()
	req, err := m.Create(
		"0x9999999999999999999999999999999999999999",
		"0x"+"11"+"22334455667788990011223344556677889900112233445566778899001122",
		"60000000000000000000",
		"0x"+"aa"+"bbccddeeff00112233445566778899aabbccddeeff001122334455667788",
		1,
		"scorer",
	)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	return req
}

func TestCreateStartsPending(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	if req.Status != domain.StatusPending {
		t.Errorf("Status = %s, want pending", req.Status)
	}
	if req.ID == "" {
		t.Error("ID should be assigned")
	}
	if !req.Deadline.Equal(req.CreatedAt.Add(DefaultDeadline)) {
		t.Errorf("Deadline = %v, want CreatedAt + %v", req.Deadline, DefaultDeadline)
	}
}

func TestAddSignatureAdvancesOnCoverage(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	r, err := m.AddSignature(req.ID, will1, "sig-will")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusPending {
		t.Errorf("after 1 group: Status = %s, want pending", r.Status)
	}

	r, err = m.AddSignature(req.ID, wisdom1, "sig-wisdom")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusPending {
		t.Errorf("after 2 groups: Status = %s, want pending", r.Status)
	}

	r, err = m.AddSignature(req.ID, love1, "sig-love")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusReady {
		t.Errorf("after 3 groups: Status = %s, want ready", r.Status)
	}
}

func TestSubmitBeforeCoverage(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	// One group signed; submitting distinguishes "not enough signatures"
	// from an outright invalid transition.
	if _, err := m.AddSignature(req.ID, will1, "sig"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Submit(req.ID, "0xtx"); !errors.Is(err, domain.ErrCoverageUnsatisfied) {
		t.Errorf("submit pending error = %v, want ErrCoverageUnsatisfied", err)
	}
}

func TestAddSignatureSameGroupNeverAdvances(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	if _, err := m.AddSignature(req.ID, will1, "a"); err != nil {
		t.Fatal(err)
	}
	r, err := m.AddSignature(req.ID, will2, "b")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusPending {
		t.Errorf("two signers from one group: Status = %s, want pending", r.Status)
	}
}

func TestAddSignatureRejections(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	if _, err := m.AddSignature(req.ID, "0xdddddddddddddddddddddddddddddddddddddddd", "x"); !errors.Is(err, domain.ErrUnknownSigner) {
		t.Errorf("unknown signer error = %v, want ErrUnknownSigner", err)
	}

	if _, err := m.AddSignature(req.ID, will1, "x"); err != nil {
		t.Fatal(err)
	}
	if _, err := m.AddSignature(req.ID, will1, "again"); !errors.Is(err, domain.ErrDuplicateSignature) {
		t.Errorf("duplicate error = %v, want ErrDuplicateSignature", err)
	}
	// Case variants of the same address are still the same signer.
	upper := "0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA01"
	if _, err := m.AddSignature(req.ID, upper, "again"); !errors.Is(err, domain.ErrDuplicateSignature) {
		t.Errorf("case-variant duplicate error = %v, want ErrDuplicateSignature", err)
	}

	if _, err := m.AddSignature("no-such-id", will2, "x"); !errors.Is(err, domain.ErrRequestNotFound) {
		t.Errorf("missing request error = %v, want ErrRequestNotFound", err)
	}
}

func TestFullLifecycle(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	for _, signer := range []string{will1, wisdom1, love1} {
		if _, err := m.AddSignature(req.ID, signer, "sig"); err != nil {
			t.Fatal(err)
		}
	}

	// Signing a ready request is rejected.
	if _, err := m.AddSignature(req.ID, will2, "late"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("sign after ready error = %v, want ErrInvalidTransition", err)
	}

	r, err := m.Submit(req.ID, "0xtx1")
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusSubmitted || r.TxHash != "0xtx1" {
		t.Errorf("after Submit: %s / %q", r.Status, r.TxHash)
	}

	r, err = m.Confirm(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusConfirmed {
		t.Errorf("after Confirm: Status = %s, want confirmed", r.Status)
	}
	if !r.Status.Terminal() {
		t.Error("confirmed should be terminal")
	}

	// No transitions out of confirmed.
	if _, err := m.Confirm(req.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("confirm twice error = %v, want ErrInvalidTransition", err)
	}
	if _, err := m.Reject(req.ID); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("reject confirmed error = %v, want ErrInvalidTransition", err)
	}
}

func TestFailSubmissionRetainsSignatures(t *testing.T) {
	m, store := testManager(t)
	req := createRequest(t, m)

	for _, signer := range []string{will1, wisdom1, love1} {
		if _, err := m.AddSignature(req.ID, signer, "sig"); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := m.Submit(req.ID, "0xtx1"); err != nil {
		t.Fatal(err)
	}

	// The tx failed on-chain. Signatures survive, so the recheck inside
	// FailSubmission moves the request straight back to ready.
	r, err := m.FailSubmission(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusReady {
		t.Errorf("after FailSubmission: Status = %s, want ready", r.Status)
	}
	if r.TxHash != "" {
		t.Errorf("TxHash = %q, want cleared", r.TxHash)
	}

	sigs, err := store.Signatures(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(sigs) != 3 {
		t.Errorf("len(signatures) = %d, want 3 retained", len(sigs))
	}

	// Retry with a new hash succeeds.
	if _, err := m.Submit(req.ID, "0xtx2"); err != nil {
		t.Fatal(err)
	}
}

func TestRejectIsAbsorbing(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	r, err := m.Reject(req.ID)
	if err != nil {
		t.Fatal(err)
	}
	if r.Status != domain.StatusRejected || !r.Status.Terminal() {
		t.Errorf("Status = %s, want terminal rejected", r.Status)
	}

	if _, err := m.AddSignature(req.ID, will1, "sig"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("sign rejected error = %v, want ErrInvalidTransition", err)
	}
	if _, err := m.Submit(req.ID, "0xtx"); !errors.Is(err, domain.ErrInvalidTransition) {
		t.Errorf("submit rejected error = %v, want ErrInvalidTransition", err)
	}
}

func TestRecheckIsIdempotent(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)

	for _, signer := range []string{will1, wisdom1, love1} {
		if _, err := m.AddSignature(req.ID, signer, "sig"); err != nil {
			t.Fatal(err)
		}
	}
	for i := 0; i < 3; i++ {
		r, err := m.Recheck(req.ID)
		if err != nil {
			t.Fatal(err)
		}
		if r.Status != domain.StatusReady {
			t.Errorf("Recheck #%d: Status = %s, want ready", i, r.Status)
		}
	}
}

func TestCollectorRunUntilReady(t *testing.T) {
	m, store := testManager(t)
	req := createRequest(t, m)
	hub := NewHub()

	collector := NewCollector(m, hub)
	var ready *domain.MintRequest
	collector.OnReady = func(r *domain.MintRequest) { ready = r }

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- collector.Run(ctx, req.ID) }()

	// Write signatures directly to the store, then publish events in an
	// unhelpful order, with a duplicate. The collector only ever acts on
	// the stored state, so this still converges to ready exactly once.
	signers := []string{will1, wisdom1, love1}
	for i, signer := range signers {
		if err := store.AddSignature(domain.MintSignature{
			RequestID: req.ID, Signer: signer, Signature: "sig",
		}); err != nil {
			t.Fatal(err)
		}
		hub.Publish(domain.SignatureAdded{RequestID: req.ID, Signer: signer})
		if i == 0 {
			hub.Publish(domain.SignatureAdded{RequestID: req.ID, Signer: signer})
		}
	}

	if err := <-done; err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if ready == nil || ready.Status != domain.StatusReady {
		t.Fatalf("OnReady not invoked with a ready request: %+v", ready)
	}
}

func TestCollectorStopsOnCancel(t *testing.T) {
	m, _ := testManager(t)
	req := createRequest(t, m)
	hub := NewHub()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewCollector(m, hub).Run(ctx, req.ID) }()

	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		// Channel close on cancel is also a clean exit.
		if err != nil {
			t.Errorf("Run() error = %v, want context.Canceled or nil", err)
		}
	}
}
