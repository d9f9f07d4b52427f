package mint

import (
	"context"
	"log"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Signature Collector ────────────────────────────────────────────────────
// The collector bridges a push-based signature feed to the authoritative
// coverage check. Events only tell us WHEN to look; the decision is always
// recomputed from the persisted signature set, so an out-of-order or
// duplicated event can never produce a wrong transition.

// Collector watches a signature stream for one request and rechecks
// coverage on every arrival.
type Collector struct {
	manager *Manager
	stream  domain.SignatureStream

	// OnReady, if set, is invoked once when the request reaches ready.
	OnReady func(req *domain.MintRequest)
}

// NewCollector creates a collector over the given stream.
func NewCollector(manager *Manager, stream domain.SignatureStream) *Collector {
	return &Collector{manager: manager, stream: stream}
}

// Run consumes signature events for requestID until the context is
// cancelled, the stream closes, or the request leaves pending.
func (c *Collector) Run(ctx context.Context, requestID string) error {
	events, err := c.stream.Subscribe(ctx, requestID)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-events:
			if !ok {
				return nil
			}
			req, err := c.manager.Recheck(requestID)
			if err != nil {
				log.Printf("mint: recheck %s: %v", requestID, err)
				continue
			}
			if req.Status == domain.StatusReady {
				if c.OnReady != nil {
					c.OnReady(req)
				}
				return nil
			}
			if req.Status.Terminal() {
				return nil
			}
		}
	}
}
