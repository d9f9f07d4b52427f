// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
	"time"
)

// ─── Pillar Types ───────────────────────────────────────────────────────────

// PillarScores holds the five 0–100 pillar assessments for a single action.
// Callers are responsible for clamping each pillar to [0, 100] before scoring.
// Immutable once recorded.
type PillarScores struct {
	Service      int `json:"service"`
	Truth        int `json:"truth"`
	Healing      int `json:"healing"`
	Contribution int `json:"contribution"`
	Unity        int `json:"unity"`
}

// UnitySignals is the qualitative "togetherness" evidence for one action.
type UnitySignals struct {
	Collaboration        bool `json:"collaboration"`
	BeneficiaryConfirmed bool `json:"beneficiary_confirmed"`
	CommunityEndorsement bool `json:"community_endorsement"`
	BridgeValue          bool `json:"bridge_value"`
	ConflictResolution   bool `json:"conflict_resolution"`
	PartnerAttested      bool `json:"partner_attested,omitempty"`
	WitnessCount         int  `json:"witness_count,omitempty"`
}

// Multipliers are the four per-action reward factors.
// Each has a protocol-defined valid range the scorer clamps to.
type Multipliers struct {
	Quality   float64 `json:"quality"`   // Q ∈ [0.5, 3.0]
	Impact    float64 `json:"impact"`    // I ∈ [0.5, 5.0]
	Integrity float64 `json:"integrity"` // K ∈ [0.0, 1.0]
	Unity     float64 `json:"unity"`     // Ux ∈ [0.5, 2.5]
}

// ─── Scoring Types ──────────────────────────────────────────────────────────

// Decision is the outcome of scoring one action.
type Decision string

const (
	DecisionAuthorize  Decision = "AUTHORIZE"
	DecisionReject     Decision = "REJECT"
	DecisionReviewHold Decision = "REVIEW_HOLD"
)

// ReasonCode explains a rejection or hold. Every non-AUTHORIZE decision
// carries at least one.
type ReasonCode string

const (
	ReasonLightScoreBelowMin ReasonCode = "LIGHT_SCORE_BELOW_MIN"
	ReasonTruthBelowMin      ReasonCode = "TRUTH_BELOW_MIN"
	ReasonIntegrityBelowMin  ReasonCode = "INTEGRITY_BELOW_MIN"
	ReasonAmountNeedsReview  ReasonCode = "AMOUNT_NEEDS_REVIEW"
	ReasonAntiFarmBlocked    ReasonCode = "ANTI_FARM_BLOCKED"
	ReasonAntiFarmFlagged    ReasonCode = "ANTI_FARM_FLAGGED"
)

// ScoringInput is everything the action scorer needs for one decision.
// The reputation snapshot is read-only; the scorer never mutates it.
type ScoringInput struct {
	Platform      string             `json:"platform"`
	ActionType    string             `json:"action_type"`
	Actor         string             `json:"actor"` // wallet address
	Pillars       PillarScores       `json:"pillars"`
	Signals       UnitySignals       `json:"signals"`
	Reputation    ReputationSnapshot `json:"reputation"`
	AntiSybil     float64            `json:"anti_sybil"` // confidence ∈ [0, 1]
	HasStake      bool               `json:"has_stake"`
	EvidenceScore int                `json:"evidence_score"` // 0–100 evidence quality
}

// ScoringResult is the immutable output of scoring one action.
// Persisted so the eventual on-chain mint can be matched against it.
type ScoringResult struct {
	Platform    string       `json:"platform"`
	ActionType  string       `json:"action_type"`
	Actor       string       `json:"actor"`
	Pillars     PillarScores `json:"pillars"`
	LightScore  float64      `json:"light_score"`
	UnityScore  float64      `json:"unity_score"`
	Multipliers Multipliers  `json:"multipliers"`
	BaseReward  *big.Int     `json:"base_reward"` // atomic units
	Amount      *big.Int     `json:"amount"`      // floor(base × Q × I × K × Ux)
	Decision    Decision     `json:"decision"`
	Reasons     []ReasonCode `json:"reasons,omitempty"`
	ScoredAt    time.Time    `json:"scored_at"`
}

// Authorized reports whether the action may proceed to minting.
func (r *ScoringResult) Authorized() bool {
	return r.Decision == DecisionAuthorize
}

// ─── Reputation Types ───────────────────────────────────────────────────────

// ReputationSnapshot is a point-in-time view of a user's standing,
// taken as scorer input. The live record is owned by the reputation tracker.
type ReputationSnapshot struct {
	Address         string    `json:"address"`
	LightScore      float64   `json:"light_score"` // rolling average, 0–100
	Tier            int       `json:"tier"`        // 0–3
	VerifiedActions int       `json:"verified_actions"`
	AvgIntegrity    float64   `json:"avg_integrity"`
	ActivePlatforms []string  `json:"active_platforms"`
	LastActivity    time.Time `json:"last_activity"`
	DecayApplied    bool      `json:"decay_applied"`
}

// ─── Event Types ────────────────────────────────────────────────────────────

// EventEnvelope is one client analytics event submitted for ingestion.
type EventEnvelope struct {
	EventName  string                 `json:"event_name"`
	UserID     string                 `json:"user_id,omitempty"`
	OccurredAt time.Time              `json:"occurred_at,omitempty"`
	Properties map[string]interface{} `json:"properties,omitempty"`
}

// ─── Token Amounts ──────────────────────────────────────────────────────────

// AtomicPerFUN is the number of atomic units in one FUN (18 decimals).
var AtomicPerFUN = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// FUNToAtomic converts a whole-FUN amount to atomic units.
func FUNToAtomic(fun int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(fun), AtomicPerFUN)
}

// FormatFUN renders an atomic amount as a human-readable FUN string.
func FormatFUN(atomic *big.Int) string {
	if atomic == nil {
		return "0 FUN"
	}
	whole, frac := new(big.Int).QuoRem(atomic, AtomicPerFUN, new(big.Int))
	if frac.Sign() == 0 {
		return fmt.Sprintf("%s FUN", whole.String())
	}
	f := new(big.Float).Quo(new(big.Float).SetInt(atomic), new(big.Float).SetInt(AtomicPerFUN))
	return fmt.Sprintf("%s FUN", f.Text('f', 4))
}

// ─── Utilities ──────────────────────────────────────────────────────────────

// SHA256Hex computes SHA-256 hash and returns hex string.
func SHA256Hex(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}
