package mint

import (
	"context"
	"sync"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── In-Memory Store ────────────────────────────────────────────────────────

// MemStore is a mutex-guarded in-memory MintRequestStore. The sqlite store
// is the durable implementation; this one backs tests and single-process
// deployments.
type MemStore struct {
	mu         sync.RWMutex
	requests   map[string]domain.MintRequest
	signatures map[string][]domain.MintSignature
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		requests:   make(map[string]domain.MintRequest),
		signatures: make(map[string][]domain.MintSignature),
	}
}

// SaveRequest inserts or replaces a request by ID.
func (s *MemStore) SaveRequest(req *domain.MintRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests[req.ID] = *req
	return nil
}

// GetRequest returns a copy of the stored request.
func (s *MemStore) GetRequest(id string) (*domain.MintRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, domain.ErrRequestNotFound
	}
	out := req
	return &out, nil
}

// ListRequests returns requests in the given status ("" for all).
func (s *MemStore) ListRequests(status domain.RequestStatus) ([]*domain.MintRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*domain.MintRequest
	for _, req := range s.requests {
		if status != "" && req.Status != status {
			continue
		}
		r := req
		out = append(out, &r)
	}
	return out, nil
}

// AddSignature appends a signature record.
func (s *MemStore) AddSignature(sig domain.MintSignature) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.requests[sig.RequestID]; !ok {
		return domain.ErrRequestNotFound
	}
	s.signatures[sig.RequestID] = append(s.signatures[sig.RequestID], sig)
	return nil
}

// Signatures returns all signatures for a request, in arrival order.
func (s *MemStore) Signatures(requestID string) ([]domain.MintSignature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sigs := s.signatures[requestID]
	out := make([]domain.MintSignature, len(sigs))
	copy(out, sigs)
	return out, nil
}

// ─── Signature Event Hub ────────────────────────────────────────────────────

// Hub is an in-process SignatureStream: publishers push SignatureAdded
// events, subscribers receive them per request ID. Slow subscribers drop
// events rather than block the publisher — consumers recompute coverage
// from storage, so a dropped notification is only a delayed recheck.
type Hub struct {
	mu   sync.Mutex
	subs map[string][]chan domain.SignatureAdded
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{subs: make(map[string][]chan domain.SignatureAdded)}
}

// Subscribe returns a channel of signature events for one request.
// The channel closes when the context is cancelled.
func (h *Hub) Subscribe(ctx context.Context, requestID string) (<-chan domain.SignatureAdded, error) {
	ch := make(chan domain.SignatureAdded, 16)

	h.mu.Lock()
	h.subs[requestID] = append(h.subs[requestID], ch)
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		chans := h.subs[requestID]
		for i, c := range chans {
			if c == ch {
				h.subs[requestID] = append(chans[:i], chans[i+1:]...)
				close(ch)
				break
			}
		}
	}()

	return ch, nil
}

// Publish notifies all subscribers of a new signature.
func (h *Hub) Publish(event domain.SignatureAdded) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ch := range h.subs[event.RequestID] {
		select {
		case ch <- event:
		default: // drop on backpressure
		}
	}
}
