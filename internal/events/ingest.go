// Package events ingests client analytics batches: shape validation, PII
// scanning and per-user rate limiting before anything is stored.
//
// The PII scan is deliberately strict — one flagged property rejects the
// whole batch. Analytics data loss is recoverable; leaked PII is not.
package events

import (
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/sqlite"
)

// ─── Limits ─────────────────────────────────────────────────────────────────

const (
	// MaxBatchSize is the maximum events per POST.
	MaxBatchSize = 50

	// RatePerMinute is the per-user ingestion budget.
	RatePerMinute = 200

	// RateBurst is the per-user burst allowance.
	RateBurst = 50

	// limiterIdleTTL is how long an untouched per-user limiter is kept.
	// A bucket idle this long has refilled to full burst, so evicting it
	// loses no rate-limiting state.
	limiterIdleTTL = 10 * time.Minute

	// limiterSweepSize is the tracked-user count that triggers an
	// eviction sweep before admitting a new user.
	limiterSweepSize = 1024
)

// ─── PII Detection ──────────────────────────────────────────────────────────
// Conservative substring patterns for the PII classes the product refuses
// to store: email addresses, phone numbers, and US SSNs.

var piiPatterns = []*regexp.Regexp{
	regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`), // email
	regexp.MustCompile(`\+?\d[\d\s\-().]{8,}\d`),                           // phone
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),                            // SSN
}

// containsPII scans a property value (strings and nested structures).
func containsPII(v interface{}) bool {
	switch val := v.(type) {
	case string:
		for _, re := range piiPatterns {
			if re.MatchString(val) {
				return true
			}
		}
	case map[string]interface{}:
		for _, inner := range val {
			if containsPII(inner) {
				return true
			}
		}
	case []interface{}:
		for _, inner := range val {
			if containsPII(inner) {
				return true
			}
		}
	}
	return false
}

// ─── Ingestor ───────────────────────────────────────────────────────────────

// Result reports an accepted batch.
type Result struct {
	TraceID  string `json:"trace_id"`
	Accepted int    `json:"accepted"`
}

// userLimiter pairs a token bucket with its last use, for eviction.
type userLimiter struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// Ingestor validates and stores event batches.
type Ingestor struct {
	db *sqlite.DB

	mu       sync.Mutex
	limiters map[string]*userLimiter // userID → limiter

	// Injectable clock for testing.
	now func() time.Time
}

// NewIngestor creates an ingestor over the given store.
func NewIngestor(db *sqlite.DB) *Ingestor {
	return &Ingestor{
		db:       db,
		limiters: make(map[string]*userLimiter),
		now:      time.Now,
	}
}

// WithClock overrides the clock for testing.
func (in *Ingestor) WithClock(clock func() time.Time) *Ingestor {
	in.now = clock
	return in
}

// limiter returns (creating if needed) the per-user token bucket. Before
// admitting a new user past limiterSweepSize tracked entries, idle buckets
// are evicted so the map stays bounded by the active user set.
func (in *Ingestor) limiter(userID string) *rate.Limiter {
	in.mu.Lock()
	defer in.mu.Unlock()
	now := in.now()
	l, ok := in.limiters[userID]
	if !ok {
		if len(in.limiters) >= limiterSweepSize {
			in.evictIdle(now)
		}
		l = &userLimiter{lim: rate.NewLimiter(rate.Limit(RatePerMinute)/60, RateBurst)}
		in.limiters[userID] = l
	}
	l.lastSeen = now
	return l.lim
}

// evictIdle drops limiters untouched for limiterIdleTTL. Caller holds mu.
func (in *Ingestor) evictIdle(now time.Time) {
	for id, l := range in.limiters {
		if now.Sub(l.lastSeen) >= limiterIdleTTL {
			delete(in.limiters, id)
		}
	}
}

// Ingest validates one batch for a user and stores it.
//
// Validation order: batch size, per-user rate, event shape, PII scan.
// Any failure rejects the whole batch; nothing is stored partially.
func (in *Ingestor) Ingest(userID string, batch []domain.EventEnvelope) (*Result, error) {
	if len(batch) == 0 {
		return nil, fmt.Errorf("%w: empty batch", domain.ErrMissingEventName)
	}
	if len(batch) > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d events (max %d)", domain.ErrBatchTooLarge, len(batch), MaxBatchSize)
	}
	if !in.limiter(userID).AllowN(in.now(), len(batch)) {
		return nil, domain.ErrRateLimited
	}

	for i, ev := range batch {
		if ev.EventName == "" {
			return nil, fmt.Errorf("%w: event %d", domain.ErrMissingEventName, i)
		}
		for key, value := range ev.Properties {
			if containsPII(value) {
				return nil, fmt.Errorf("%w: event %d, property %q", domain.ErrPIIDetected, i, key)
			}
		}
	}

	traceID := uuid.New().String()
	if err := in.db.InsertEvents(traceID, batch, in.now()); err != nil {
		return nil, fmt.Errorf("events: store batch: %w", err)
	}
	return &Result{TraceID: traceID, Accepted: len(batch)}, nil
}
