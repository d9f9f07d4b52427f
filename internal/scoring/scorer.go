package scoring

import (
	"math/big"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Global Gates ───────────────────────────────────────────────────────────

const (
	// MinLightScore is the global light score gate.
	MinLightScore = 60.0

	// MinTruth is the global truth pillar gate.
	MinTruth = 70

	// Protocol-wide multiplier ranges. Policy may narrow these per
	// action but never widen them.
	QFloor   = 0.5
	QCeiling = 3.0
	IFloor   = 0.5
	ICeiling = 5.0
)

// Rule verdicts returned by the policy catalog's anti-farm evaluation.
const (
	VerdictBlock = "BLOCK"
	VerdictWarn  = "WARN"
)

// Config carries scorer knobs that are deployment policy, not formula.
type Config struct {
	// ReviewThreshold is the amount (atomic units) at or above which an
	// otherwise-authorized action is routed to the review lane.
	ReviewThreshold *big.Int
}

// DefaultConfig returns the production review lane threshold (5,000 FUN).
func DefaultConfig() Config {
	return Config{ReviewThreshold: domain.FUNToAtomic(5000)}
}

// ─── Scorer ─────────────────────────────────────────────────────────────────

// Scorer is the action decision engine. It is pure: every dependency is
// injected at construction and ScoreAction performs no I/O.
type Scorer struct {
	catalog domain.PolicyCatalog
	config  Config

	// Injectable clock for testing.
	now func() time.Time
}

// New creates a scorer bound to a policy catalog.
func New(catalog domain.PolicyCatalog, cfg Config) *Scorer {
	if cfg.ReviewThreshold == nil {
		cfg.ReviewThreshold = DefaultConfig().ReviewThreshold
	}
	return &Scorer{
		catalog: catalog,
		config:  cfg,
		now:     time.Now,
	}
}

// WithClock overrides the clock for testing.
func (s *Scorer) WithClock(clock func() time.Time) *Scorer {
	s.now = clock
	return s
}

// ScoreAction scores one submitted action and decides AUTHORIZE, REJECT or
// REVIEW_HOLD.
//
// Policy failures (missed gates, review lane) are expressed as Decision
// values with reason codes — never as errors. The only hard error is an
// unregistered (platform, actionType) pair.
//
// The calculated amount is reported even on REJECT, for transparency; a
// rejected amount is never authorized for minting.
func (s *Scorer) ScoreAction(input domain.ScoringInput) (*domain.ScoringResult, error) {
	policy, err := s.catalog.Lookup(input.Platform, input.ActionType)
	if err != nil {
		return nil, err
	}

	lightScore := CalculateLightScore(input.Pillars)
	unityScore := CalculateUnityScore(input.Signals)

	ux := CalculateUnityMultiplier(unityScore, input.Signals, input.Reputation.Tier)
	ux += CalculateCrossPlatformBonus(len(input.Reputation.ActivePlatforms))
	ux = clamp(ux, UxFloor, UxCeiling)

	k := CalculateIntegrityMultiplier(input.AntiSybil, input.HasStake)

	// Q and I are policy-configured linear maps of pillar quality and
	// evidence quality; the engine only clamps to protocol ranges.
	q := clamp(lerp(policy.QualityMin, policy.QualityMax, lightScore/100), QFloor, QCeiling)
	i := clamp(lerp(policy.ImpactMin, policy.ImpactMax, float64(input.EvidenceScore)/100), IFloor, ICeiling)

	amount := mintAmount(policy.BaseReward, q*i*k*ux)

	result := &domain.ScoringResult{
		Platform:   input.Platform,
		ActionType: input.ActionType,
		Actor:      input.Actor,
		Pillars:    input.Pillars,
		LightScore: lightScore,
		UnityScore: unityScore,
		Multipliers: domain.Multipliers{
			Quality:   q,
			Impact:    i,
			Integrity: k,
			Unity:     ux,
		},
		BaseReward: policy.BaseReward,
		Amount:     amount,
		ScoredAt:   s.now().UTC(),
	}

	// Global gates: any single failure forces REJECT, regardless of how
	// high the multipliers are.
	minLight := policy.MinLightScore
	if minLight == 0 {
		minLight = MinLightScore
	}
	minTruth := policy.MinTruth
	if minTruth == 0 {
		minTruth = MinTruth
	}
	minK := policy.MinIntegrity
	if minK == 0 {
		minK = MinIntegrity
	}

	if lightScore < minLight {
		result.Reasons = append(result.Reasons, domain.ReasonLightScoreBelowMin)
	}
	if input.Pillars.Truth < minTruth {
		result.Reasons = append(result.Reasons, domain.ReasonTruthBelowMin)
	}
	if k < minK {
		result.Reasons = append(result.Reasons, domain.ReasonIntegrityBelowMin)
	}
	if len(result.Reasons) > 0 {
		result.Decision = domain.DecisionReject
		return result, nil
	}

	// Anti-farm rules. Evaluation failure fails closed to the review lane.
	verdict, _, ruleErr := s.catalog.EvaluateRules(policy, input)
	switch {
	case ruleErr != nil:
		result.Decision = domain.DecisionReviewHold
		result.Reasons = append(result.Reasons, domain.ReasonAntiFarmFlagged)
		return result, nil
	case verdict == VerdictBlock:
		result.Decision = domain.DecisionReject
		result.Reasons = append(result.Reasons, domain.ReasonAntiFarmBlocked)
		return result, nil
	case verdict == VerdictWarn:
		result.Decision = domain.DecisionReviewHold
		result.Reasons = append(result.Reasons, domain.ReasonAntiFarmFlagged)
		return result, nil
	}

	// Review lane for large amounts.
	if amount.Cmp(s.config.ReviewThreshold) >= 0 {
		result.Decision = domain.DecisionReviewHold
		result.Reasons = append(result.Reasons, domain.ReasonAmountNeedsReview)
		return result, nil
	}

	result.Decision = domain.DecisionAuthorize
	return result, nil
}

// mintAmount computes floor(base × multiplier) in atomic units.
// Integer truncation — fractional atomic units never exist.
func mintAmount(base *big.Int, multiplier float64) *big.Int {
	if base == nil || base.Sign() <= 0 || multiplier <= 0 {
		return big.NewInt(0)
	}
	product := new(big.Float).SetPrec(256)
	product.Mul(new(big.Float).SetPrec(256).SetInt(base), big.NewFloat(multiplier))
	amount, _ := product.Int(nil) // truncates toward zero
	return amount
}
