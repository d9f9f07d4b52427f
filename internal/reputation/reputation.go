// Package reputation tracks per-user standing across scored actions.
//
// Each user carries a rolling light score, a tier (0–3), verified action
// counts, an average integrity multiplier and the set of platforms they are
// active on. Tiers unlock higher unity multiplier ceilings in the scorer.
//
// Inactive users decay: after the inactivity window the rolling light score
// drops a fixed percentage per week toward a floor, so reputation reflects
// present behavior, not history alone.
package reputation

import (
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Constants ──────────────────────────────────────────────────────────────

const (
	// AlphaNormal is the EMA smoothing factor for established users.
	// Low α = slow adaptation = resistant to burst manipulation.
	AlphaNormal = 0.1

	// AlphaColdStart is used for the first ColdStartActions events, so new
	// users converge to their real level quickly.
	AlphaColdStart = 0.3

	// ColdStartActions is how many scored actions before switching to
	// normal α.
	ColdStartActions = 10

	// DefaultLightScore for brand new users (neutral).
	DefaultLightScore = 50.0

	// FloorLightScore is the decay floor — users always keep a base to
	// rebuild from.
	FloorLightScore = 40.0

	// InactivityWindow is how long a user can be idle before decay starts.
	InactivityWindow = 30 * 24 * time.Hour

	// DecayRatePerWeek is the weekly decay for inactive users (1%).
	DecayRatePerWeek = 0.01
)

// Tier thresholds: a user reaches tier N with at least tierMinScore[N]
// rolling light score AND tierMinActions[N] verified actions.
var (
	tierMinScore   = [4]float64{0, 40, 60, 80}
	tierMinActions = [4]int{0, 5, 20, 50}
)

// ─── Types ──────────────────────────────────────────────────────────────────

// UserReputation is a user's complete reputation state.
type UserReputation struct {
	Address         string              `json:"address"`
	LightScore      float64             `json:"light_score"` // rolling EMA, 0–100
	VerifiedActions int                 `json:"verified_actions"`
	IntegritySum    float64             `json:"integrity_sum"` // running sum for the average
	Platforms       map[string]struct{} `json:"-"`
	LastActivity    time.Time           `json:"last_activity"`
	LastDecay       time.Time           `json:"last_decay"`
	DecayApplied    bool                `json:"decay_applied"`
	JoinedAt        time.Time           `json:"joined_at"`
}

// Tier derives the user's tier from score and action count. Both
// requirements must hold; the result is the highest tier satisfied.
func (ur *UserReputation) Tier() int {
	tier := 0
	for t := 1; t < 4; t++ {
		if ur.LightScore >= tierMinScore[t] && ur.VerifiedActions >= tierMinActions[t] {
			tier = t
		}
	}
	return tier
}

// AvgIntegrity returns the mean integrity multiplier over verified actions.
func (ur *UserReputation) AvgIntegrity() float64 {
	if ur.VerifiedActions == 0 {
		return 0
	}
	return ur.IntegritySum / float64(ur.VerifiedActions)
}

// alpha returns the EMA smoothing factor — faster during cold start.
func (ur *UserReputation) alpha() float64 {
	if ur.VerifiedActions < ColdStartActions {
		return AlphaColdStart
	}
	return AlphaNormal
}

// ─── Tracker ────────────────────────────────────────────────────────────────

// Tracker manages reputation for all users. Thread-safe via RWMutex.
type Tracker struct {
	mu    sync.RWMutex
	users map[string]*UserReputation // address → reputation

	// Injectable clock for testing.
	now func() time.Time
}

// NewTracker creates a reputation tracker.
func NewTracker() *Tracker {
	return &Tracker{
		users: make(map[string]*UserReputation),
		now:   time.Now,
	}
}

// WithClock overrides the clock for testing.
func (t *Tracker) WithClock(clock func() time.Time) *Tracker {
	t.now = clock
	return t
}

// Register initializes reputation for a new user at the neutral level.
// Registering an existing user returns the existing record.
func (t *Tracker) Register(address string) *UserReputation {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.users[address]; ok {
		return existing
	}

	now := t.now()
	ur := &UserReputation{
		Address:      address,
		LightScore:   DefaultLightScore,
		Platforms:    make(map[string]struct{}),
		LastActivity: now,
		LastDecay:    now,
		JoinedAt:     now,
	}
	t.users[address] = ur
	return ur
}

// Get returns a user's reputation, or nil if never registered.
func (t *Tracker) Get(address string) *UserReputation {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.users[address]
}

// ─── Updates ────────────────────────────────────────────────────────────────

// RecordAction folds one scored-and-verified action into the user's
// reputation. Only AUTHORIZE results should be recorded; rejected actions
// do not build standing.
func (t *Tracker) RecordAction(address string, result *domain.ScoringResult) error {
	if !result.Authorized() {
		return fmt.Errorf("reputation: refusing to record %s decision for %s",
			result.Decision, address)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ur, ok := t.users[address]
	if !ok {
		return fmt.Errorf("reputation: user %s not registered", address)
	}

	ur.LightScore = ema(ur.LightScore, result.LightScore, ur.alpha())
	ur.VerifiedActions++
	ur.IntegritySum += result.Multipliers.Integrity
	ur.Platforms[result.Platform] = struct{}{}
	ur.LastActivity = t.now()
	ur.DecayApplied = false
	return nil
}

// ─── Decay ──────────────────────────────────────────────────────────────────

// ApplyDecay reduces the rolling light score of users who have been idle
// past the inactivity window: 1% per elapsed week, toward the floor.
// Should be called periodically (e.g. daily). Returns how many users decayed.
func (t *Tracker) ApplyDecay() int {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	decayed := 0

	for _, ur := range t.users {
		if now.Sub(ur.LastActivity) < InactivityWindow {
			continue
		}
		weeksSinceDecay := now.Sub(ur.LastDecay).Hours() / (24 * 7)
		if weeksSinceDecay < 1 {
			continue
		}

		factor := 1.0 - DecayRatePerWeek*math.Floor(weeksSinceDecay)
		if factor < 0 {
			factor = 0
		}
		ur.LightScore = math.Max(ur.LightScore*factor, FloorLightScore)
		ur.LastDecay = now
		ur.DecayApplied = true
		decayed++
	}
	return decayed
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Snapshot returns the read-only view the scorer consumes. Unknown users
// get a zero-history snapshot (tier 0, neutral score).
func (t *Tracker) Snapshot(address string) domain.ReputationSnapshot {
	t.mu.RLock()
	defer t.mu.RUnlock()

	ur, ok := t.users[address]
	if !ok {
		return domain.ReputationSnapshot{
			Address:    address,
			LightScore: DefaultLightScore,
		}
	}

	platforms := make([]string, 0, len(ur.Platforms))
	for p := range ur.Platforms {
		platforms = append(platforms, p)
	}
	sort.Strings(platforms)

	return domain.ReputationSnapshot{
		Address:         ur.Address,
		LightScore:      ur.LightScore,
		Tier:            ur.Tier(),
		VerifiedActions: ur.VerifiedActions,
		AvgIntegrity:    ur.AvgIntegrity(),
		ActivePlatforms: platforms,
		LastActivity:    ur.LastActivity,
		DecayApplied:    ur.DecayApplied,
	}
}

// UserCount returns total registered users.
func (t *Tracker) UserCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.users)
}

// ─── Pure Helper Functions ──────────────────────────────────────────────────

// ema computes the Exponential Moving Average:
//
//	new = α × sample + (1 - α) × old
func ema(old, sample, alpha float64) float64 {
	return alpha*sample + (1-alpha)*old
}
