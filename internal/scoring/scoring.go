// Package scoring implements the PPLP reward formulas.
//
// Each verified action is scored along five pillars and a set of unity
// signals, then converted to a token amount through four multipliers:
//
//	lightScore = 0.25×S + 0.20×T + 0.20×H + 0.20×C + 0.15×U
//	amount     = floor(baseReward × Q × I × K × Ux)
//
// Everything in this file is a pure function: no I/O, no clocks, no
// randomness. The decision engine that composes these lives in scorer.go.
package scoring

import (
	"math"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Light Score ────────────────────────────────────────────────────────────

const (
	// Pillar weights (sum to 1.0).
	WeightService      = 0.25
	WeightTruth        = 0.20
	WeightHealing      = 0.20
	WeightContribution = 0.20
	WeightUnity        = 0.15
)

// CalculateLightScore computes the weighted pillar sum.
//
// Inputs must already be clamped to [0, 100] by the caller; this function
// performs no validation — out-of-range pillars yield an out-of-range
// (but not rejected) result. Output is [0, 100] under valid input.
func CalculateLightScore(p domain.PillarScores) float64 {
	return WeightService*float64(p.Service) +
		WeightTruth*float64(p.Truth) +
		WeightHealing*float64(p.Healing) +
		WeightContribution*float64(p.Contribution) +
		WeightUnity*float64(p.Unity)
}

// ─── Unity Score ────────────────────────────────────────────────────────────

const (
	// Unity signal weights, scaled ×100 into the 0–100 unity score.
	WeightCollaboration = 0.4
	WeightBeneficiary   = 0.3
	WeightEndorsement   = 0.2
	WeightBridge        = 0.1
	WeightConflictRes   = 0.0 // recorded but not yet weighted

	// Attestation bonuses, added before the 100 cap.
	PartnerAttestedBonus = 5.0
	WitnessBonusEach     = 1.0
	WitnessBonusCap      = 5.0
)

// CalculateUnityScore aggregates signal weights into a 0–100 score.
// Partner attestation and witnesses add a small bonus on top of the
// weighted signals; the total is capped at 100.
func CalculateUnityScore(s domain.UnitySignals) float64 {
	score := 0.0
	if s.Collaboration {
		score += WeightCollaboration
	}
	if s.BeneficiaryConfirmed {
		score += WeightBeneficiary
	}
	if s.CommunityEndorsement {
		score += WeightEndorsement
	}
	if s.BridgeValue {
		score += WeightBridge
	}
	if s.ConflictResolution {
		score += WeightConflictRes
	}
	score *= 100

	if s.PartnerAttested {
		score += PartnerAttestedBonus
	}
	if s.WitnessCount > 0 {
		score += math.Min(float64(s.WitnessCount)*WitnessBonusEach, WitnessBonusCap)
	}

	return math.Min(score, 100)
}

// ─── Unity Multiplier ───────────────────────────────────────────────────────

// uxBreakpoint is one row of the unity multiplier table. Each row covers
// the half-open range [min, next row's min); the last row extends upward
// without bound. The table is gapless over all real-valued scores, not
// just the integer ones the signal weights currently produce.
type uxBreakpoint struct {
	min        float64
	multiplier float64
}

// uxTable maps a unity score to its base multiplier.
var uxTable = []uxBreakpoint{
	{0, 0.5},
	{50, 1.0},
	{70, 1.5},
	{85, 2.0},
	{95, 2.3},
}

// TierMaxUx is the ceiling on the unity multiplier per reputation tier.
var TierMaxUx = [4]float64{1.0, 1.5, 2.0, 2.5}

const (
	// UxFloor / UxCeiling is the protocol-wide valid range for Ux.
	UxFloor   = 0.5
	UxCeiling = 2.5
)

// CalculateUnityMultiplier maps a unity score through the breakpoint table
// and clamps the result to the tier's maximum. Tiers outside 0–3 are
// clamped to the nearest valid tier.
func CalculateUnityMultiplier(unityScore float64, signals domain.UnitySignals, tier int) float64 {
	if tier < 0 {
		tier = 0
	}
	if tier > 3 {
		tier = 3
	}

	mult := uxTable[0].multiplier
	for i := len(uxTable) - 1; i >= 0; i-- {
		if unityScore >= uxTable[i].min {
			mult = uxTable[i].multiplier
			break
		}
	}

	return math.Min(mult, TierMaxUx[tier])
}

const (
	// Cross-platform bonus: +0.1 Ux per active platform beyond the
	// minimum, capped. Additive on top of the breakpoint multiplier.
	CrossPlatformMin      = 3
	CrossPlatformBonusPer = 0.1
	CrossPlatformBonusCap = 0.3
)

// CalculateCrossPlatformBonus rewards users active on many platforms.
func CalculateCrossPlatformBonus(activePlatforms int) float64 {
	if activePlatforms <= CrossPlatformMin {
		return 0
	}
	return math.Min(float64(activePlatforms-CrossPlatformMin)*CrossPlatformBonusPer, CrossPlatformBonusCap)
}

// ─── Integrity Multiplier ───────────────────────────────────────────────────

const (
	// StakeBoost is the fixed integrity boost for staked users (+20%).
	StakeBoost = 1.2

	// MinIntegrity is the global K gate. Scores below it are still
	// computed here — the action scorer applies the gate, keeping
	// "compute" separate from "gate".
	MinIntegrity = 0.6
)

// CalculateIntegrityMultiplier maps an anti-sybil confidence score and a
// staking flag to K ∈ [0, 1].
func CalculateIntegrityMultiplier(antiSybilScore float64, hasStake bool) float64 {
	k := antiSybilScore
	if hasStake {
		k *= StakeBoost
	}
	return clamp(k, 0, 1)
}

// ─── Pure Helpers ───────────────────────────────────────────────────────────

// lerp linearly interpolates between lo and hi by t ∈ [0, 1].
func lerp(lo, hi, t float64) float64 {
	return lo + (hi-lo)*clamp(t, 0, 1)
}

// clamp restricts a value to [min, max].
func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
