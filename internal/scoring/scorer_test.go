package scoring

import (
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// fakeCatalog serves one policy and a scripted anti-farm verdict.
type fakeCatalog struct {
	policy  *domain.ActionPolicy
	verdict string
	ruleID  string
	ruleErr error
}

func (f *fakeCatalog) Lookup(platform, actionType string) (*domain.ActionPolicy, error) {
	if f.policy == nil || f.policy.Platform != platform || f.policy.ActionType != actionType {
		return nil, domain.ErrActionNotRegistered
	}
	return f.policy, nil
}

func (f *fakeCatalog) EvaluateRules(ap *domain.ActionPolicy, input domain.ScoringInput) (string, string, error) {
	return f.verdict, f.ruleID, f.ruleErr
}

// lessonPolicy returns a fixed-range policy so every multiplier is exact:
// Q = 1.5, I = 2.0 regardless of quality inputs.
func lessonPolicy() *domain.ActionPolicy {
	return &domain.ActionPolicy{
		Platform:   "FUN_ACADEMY",
		ActionType: "LESSON_COMPLETE",
		BaseReward: domain.FUNToAtomic(10),
		QualityMin: 1.5,
		QualityMax: 1.5,
		ImpactMin:  2.0,
		ImpactMax:  2.0,
	}
}

func testScorer(t *testing.T, catalog domain.PolicyCatalog) *Scorer {
	t.Helper()
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return New(catalog, DefaultConfig()).WithClock(func() time.Time { return fixed })
}

func goodInput() domain.ScoringInput {
	return domain.ScoringInput{
		Platform:   "FUN_ACADEMY",
		ActionType: "LESSON_COMPLETE",
		Actor:      "0x1111111111111111111111111111111111111111",
		Pillars:    domain.PillarScores{Service: 80, Truth: 80, Healing: 80, Contribution: 80, Unity: 80},
		Signals: domain.UnitySignals{
			Collaboration:        true,
			BeneficiaryConfirmed: true,
			CommunityEndorsement: true,
		},
		Reputation:    domain.ReputationSnapshot{Address: "0x1111111111111111111111111111111111111111", Tier: 2},
		AntiSybil:     1.0,
		EvidenceScore: 100,
	}
}

func TestScoreActionAuthorize(t *testing.T) {
	s := testScorer(t, &fakeCatalog{policy: lessonPolicy()})

	result, err := s.ScoreAction(goodInput())
	if err != nil {
		t.Fatalf("ScoreAction() error = %v", err)
	}
	if result.Decision != domain.DecisionAuthorize {
		t.Fatalf("Decision = %s (%v), want AUTHORIZE", result.Decision, result.Reasons)
	}
	if result.LightScore != 80 {
		t.Errorf("LightScore = %v, want 80", result.LightScore)
	}
	if result.UnityScore != 90 {
		t.Errorf("UnityScore = %v, want 90", result.UnityScore)
	}

	// Ux: unity 90 → bucket 2.0, tier 2 cap 2.0.
	m := result.Multipliers
	if m.Quality != 1.5 || m.Impact != 2.0 || m.Integrity != 1.0 || m.Unity != 2.0 {
		t.Errorf("Multipliers = %+v, want Q=1.5 I=2.0 K=1.0 Ux=2.0", m)
	}

	// 10 FUN × 1.5 × 2.0 × 1.0 × 2.0 = 60 FUN, exactly.
	want := domain.FUNToAtomic(60)
	if result.Amount.Cmp(want) != 0 {
		t.Errorf("Amount = %s, want %s", result.Amount, want)
	}
	if !result.Authorized() {
		t.Error("Authorized() should be true")
	}
}

func TestScoreActionFloorUnityMultiplier(t *testing.T) {
	// A tier-1 user with collaboration as the only signal: unity 40 lands
	// in the bottom multiplier bucket, well under the tier cap.
	s := testScorer(t, &fakeCatalog{policy: lessonPolicy()})

	input := goodInput()
	input.Signals = domain.UnitySignals{Collaboration: true}
	input.Reputation.Tier = 1

	result, err := s.ScoreAction(input)
	if err != nil {
		t.Fatalf("ScoreAction() error = %v", err)
	}
	if result.Decision != domain.DecisionAuthorize {
		t.Fatalf("Decision = %s (%v), want AUTHORIZE", result.Decision, result.Reasons)
	}
	if result.UnityScore != 40 {
		t.Errorf("UnityScore = %v, want 40", result.UnityScore)
	}
	if result.Multipliers.Unity != 0.5 {
		t.Errorf("Ux = %v, want 0.5", result.Multipliers.Unity)
	}

	// 10 FUN × 1.5 × 2.0 × 1.0 × 0.5 = 15 FUN, exactly.
	want := domain.FUNToAtomic(15)
	if result.Amount.Cmp(want) != 0 {
		t.Errorf("Amount = %s, want %s", result.Amount, want)
	}
}

func TestScoreActionUnregisteredAction(t *testing.T) {
	s := testScorer(t, &fakeCatalog{policy: lessonPolicy()})

	input := goodInput()
	input.ActionType = "UNKNOWN_ACTION"
	if _, err := s.ScoreAction(input); !errors.Is(err, domain.ErrActionNotRegistered) {
		t.Errorf("error = %v, want ErrActionNotRegistered", err)
	}
}

func TestScoreActionGates(t *testing.T) {
	tests := []struct {
		name       string
		mutate     func(*domain.ScoringInput)
		wantReason domain.ReasonCode
	}{
		{
			"truth below global gate",
			func(in *domain.ScoringInput) { in.Pillars.Truth = 50 },
			domain.ReasonTruthBelowMin,
		},
		{
			"light score below global gate",
			func(in *domain.ScoringInput) {
				in.Pillars = domain.PillarScores{Service: 40, Truth: 75, Healing: 40, Contribution: 40, Unity: 40}
			},
			domain.ReasonLightScoreBelowMin,
		},
		{
			"integrity below global gate",
			func(in *domain.ScoringInput) { in.AntiSybil = 0.3 },
			domain.ReasonIntegrityBelowMin,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScorer(t, &fakeCatalog{policy: lessonPolicy()})
			input := goodInput()
			tt.mutate(&input)

			result, err := s.ScoreAction(input)
			if err != nil {
				t.Fatalf("ScoreAction() error = %v", err)
			}
			if result.Decision != domain.DecisionReject {
				t.Fatalf("Decision = %s, want REJECT", result.Decision)
			}
			if !hasReason(result.Reasons, tt.wantReason) {
				t.Errorf("Reasons = %v, want %s", result.Reasons, tt.wantReason)
			}
			// The computed amount is still reported on REJECT.
			if result.Amount == nil {
				t.Error("Amount should be reported even on REJECT")
			}
		})
	}
}

func TestScoreActionGateBoundaries(t *testing.T) {
	// Exactly at the gate passes; one below fails.
	s := testScorer(t, &fakeCatalog{policy: lessonPolicy()})

	at := goodInput()
	at.Pillars.Truth = 70
	result, err := s.ScoreAction(at)
	if err != nil {
		t.Fatal(err)
	}
	if hasReason(result.Reasons, domain.ReasonTruthBelowMin) {
		t.Error("truth exactly at the gate should pass")
	}

	below := goodInput()
	below.Pillars.Truth = 69
	result, err = s.ScoreAction(below)
	if err != nil {
		t.Fatal(err)
	}
	if !hasReason(result.Reasons, domain.ReasonTruthBelowMin) {
		t.Error("truth one below the gate should fail")
	}
}

func TestScoreActionAntiFarmVerdicts(t *testing.T) {
	tests := []struct {
		name         string
		verdict      string
		ruleErr      error
		wantDecision domain.Decision
		wantReason   domain.ReasonCode
	}{
		{"block rejects", VerdictBlock, nil, domain.DecisionReject, domain.ReasonAntiFarmBlocked},
		{"warn holds", VerdictWarn, nil, domain.DecisionReviewHold, domain.ReasonAntiFarmFlagged},
		{"evaluation error fails closed", "", errors.New("cel: no such overload"), domain.DecisionReviewHold, domain.ReasonAntiFarmFlagged},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testScorer(t, &fakeCatalog{policy: lessonPolicy(), verdict: tt.verdict, ruleErr: tt.ruleErr})

			result, err := s.ScoreAction(goodInput())
			if err != nil {
				t.Fatalf("ScoreAction() error = %v", err)
			}
			if result.Decision != tt.wantDecision {
				t.Errorf("Decision = %s, want %s", result.Decision, tt.wantDecision)
			}
			if !hasReason(result.Reasons, tt.wantReason) {
				t.Errorf("Reasons = %v, want %s", result.Reasons, tt.wantReason)
			}
		})
	}
}

func TestScoreActionLargeAmountHeld(t *testing.T) {
	policy := lessonPolicy()
	policy.BaseReward = domain.FUNToAtomic(1000) // × 6.0 = 6,000 FUN
	s := testScorer(t, &fakeCatalog{policy: policy})

	result, err := s.ScoreAction(goodInput())
	if err != nil {
		t.Fatalf("ScoreAction() error = %v", err)
	}
	if result.Decision != domain.DecisionReviewHold {
		t.Fatalf("Decision = %s, want REVIEW_HOLD", result.Decision)
	}
	if !hasReason(result.Reasons, domain.ReasonAmountNeedsReview) {
		t.Errorf("Reasons = %v, want AMOUNT_NEEDS_REVIEW", result.Reasons)
	}
}

func TestScoreActionReviewThresholdBoundary(t *testing.T) {
	// An amount exactly at the threshold is held; one atomic unit under is
	// authorized.
	policy := lessonPolicy()
	policy.BaseReward = domain.FUNToAtomic(5000)
	s := testScorer(t, &fakeCatalog{policy: policy}) // threshold 5,000 FUN

	input := goodInput()
	input.Signals = domain.UnitySignals{Collaboration: true, BeneficiaryConfirmed: true} // unity 70 → Ux 1.5
	input.Reputation.Tier = 0                                                            // cap 1.0

	// 5000 × 1.5 × 2.0 × 1.0 × 1.0 = 15,000 FUN — held.
	result, err := s.ScoreAction(input)
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != domain.DecisionReviewHold {
		t.Errorf("Decision = %s, want REVIEW_HOLD at threshold", result.Decision)
	}

	small := lessonPolicy()
	small.BaseReward = big.NewInt(1)
	s = testScorer(t, &fakeCatalog{policy: small})
	result, err = s.ScoreAction(goodInput())
	if err != nil {
		t.Fatal(err)
	}
	if result.Decision != domain.DecisionAuthorize {
		t.Errorf("Decision = %s, want AUTHORIZE below threshold", result.Decision)
	}
}

func TestMintAmountTruncates(t *testing.T) {
	// 7 atomic units × 0.5 = 3.5 → floor 3.
	got := mintAmount(big.NewInt(7), 0.5)
	if got.Cmp(big.NewInt(3)) != 0 {
		t.Errorf("mintAmount(7, 0.5) = %s, want 3", got)
	}

	if got := mintAmount(big.NewInt(0), 2.0); got.Sign() != 0 {
		t.Errorf("mintAmount(0, 2.0) = %s, want 0", got)
	}
	if got := mintAmount(nil, 2.0); got.Sign() != 0 {
		t.Errorf("mintAmount(nil, 2.0) = %s, want 0", got)
	}
	if got := mintAmount(big.NewInt(100), 0); got.Sign() != 0 {
		t.Errorf("mintAmount(100, 0) = %s, want 0", got)
	}
}

func hasReason(reasons []domain.ReasonCode, want domain.ReasonCode) bool {
	for _, r := range reasons {
		if r == want {
			return true
		}
	}
	return false
}
