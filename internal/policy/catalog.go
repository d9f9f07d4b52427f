// Package policy loads and serves ActionConfig bundles.
//
// Policy bundles are JSON documents mapping (platform, action type) pairs to
// base rewards, gate thresholds, multiplier ranges and optional anti-farm
// rules. Bundles are validated against a JSON schema and their rules
// compiled at load time; after Load the catalog is immutable, so scorers
// can hold a reference without locking.
package policy

import (
	"encoding/json"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"strings"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Bundle Format ──────────────────────────────────────────────────────────

// RuleSpec is one anti-farm rule: a CEL expression over the scoring input.
// A rule that evaluates to true triggers its action.
type RuleSpec struct {
	ID         string `json:"id"`
	Expression string `json:"expression"`
	Action     string `json:"action"` // "BLOCK" or "WARN"
}

// ActionSpec is one action entry in a policy bundle.
type ActionSpec struct {
	Platform      string     `json:"platform"`
	ActionType    string     `json:"action_type"`
	BaseReward    string     `json:"base_reward"` // atomic units, decimal string
	MinLightScore float64    `json:"min_light_score,omitempty"`
	MinTruth      int        `json:"min_truth,omitempty"`
	MinIntegrity  float64    `json:"min_integrity,omitempty"`
	QualityRange  [2]float64 `json:"quality_range"`
	ImpactRange   [2]float64 `json:"impact_range"`
	AntiFarmRules []RuleSpec `json:"anti_farm_rules,omitempty"`
}

// Bundle is a versioned policy document.
type Bundle struct {
	Version string       `json:"version"`
	Name    string       `json:"name"`
	Actions []ActionSpec `json:"actions"`
}

// ─── Catalog ────────────────────────────────────────────────────────────────

// Catalog is the compiled, immutable view of one or more policy bundles.
// It implements domain.PolicyCatalog.
type Catalog struct {
	version string
	actions map[string]*domain.ActionPolicy // key: platform "/" actionType
	rules   *ruleEngine
}

// key builds the catalog lookup key. Platform and action type are
// case-sensitive identifiers (e.g. "FUN_ACADEMY" / "COURSE_COMPLETED").
func key(platform, actionType string) string {
	return platform + "/" + actionType
}

// LoadDir loads every .json bundle in dir into a single catalog.
func LoadDir(dir string) (*Catalog, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("policy: read dir %s: %w", dir, err)
	}

	var bundles []Bundle
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("policy: read %s: %w", entry.Name(), err)
		}
		b, err := ParseBundle(raw)
		if err != nil {
			return nil, fmt.Errorf("policy: %s: %w", entry.Name(), err)
		}
		bundles = append(bundles, *b)
	}
	return NewCatalog(bundles...)
}

// ParseBundle validates raw JSON against the bundle schema and decodes it.
func ParseBundle(raw []byte) (*Bundle, error) {
	if err := validateSchema(raw); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPolicyInvalid, err)
	}
	var b Bundle
	if err := json.Unmarshal(raw, &b); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrPolicyInvalid, err)
	}
	return &b, nil
}

// NewCatalog compiles bundles into an immutable catalog.
// Duplicate (platform, action type) entries are an error, not a silent
// override — policy conflicts must be resolved in the bundles themselves.
func NewCatalog(bundles ...Bundle) (*Catalog, error) {
	engine, err := newRuleEngine()
	if err != nil {
		return nil, err
	}

	c := &Catalog{
		actions: make(map[string]*domain.ActionPolicy),
		rules:   engine,
	}

	for _, b := range bundles {
		if c.version == "" {
			c.version = b.Version
		}
		for _, spec := range b.Actions {
			k := key(spec.Platform, spec.ActionType)
			if _, dup := c.actions[k]; dup {
				return nil, fmt.Errorf("%w: duplicate action %s", domain.ErrPolicyInvalid, k)
			}

			base, ok := new(big.Int).SetString(strings.TrimSpace(spec.BaseReward), 10)
			if !ok || base.Sign() < 0 {
				return nil, fmt.Errorf("%w: action %s: bad base_reward %q",
					domain.ErrPolicyInvalid, k, spec.BaseReward)
			}

			ap := &domain.ActionPolicy{
				Platform:      spec.Platform,
				ActionType:    spec.ActionType,
				BaseReward:    base,
				MinLightScore: spec.MinLightScore,
				MinTruth:      spec.MinTruth,
				MinIntegrity:  spec.MinIntegrity,
				QualityMin:    spec.QualityRange[0],
				QualityMax:    spec.QualityRange[1],
				ImpactMin:     spec.ImpactRange[0],
				ImpactMax:     spec.ImpactRange[1],
			}

			for _, rule := range spec.AntiFarmRules {
				ruleID := k + "#" + rule.ID
				if err := engine.compile(ruleID, rule.Expression, rule.Action); err != nil {
					return nil, fmt.Errorf("%w: rule %s: %v", domain.ErrPolicyInvalid, ruleID, err)
				}
				ap.AntiFarmRules = append(ap.AntiFarmRules, ruleID)
			}

			c.actions[k] = ap
		}
	}

	return c, nil
}

// Version returns the version of the first loaded bundle.
func (c *Catalog) Version() string { return c.version }

// Len returns the number of registered actions.
func (c *Catalog) Len() int { return len(c.actions) }

// Actions returns every registered policy, for inspection tooling.
func (c *Catalog) Actions() []*domain.ActionPolicy {
	out := make([]*domain.ActionPolicy, 0, len(c.actions))
	for _, ap := range c.actions {
		out = append(out, ap)
	}
	return out
}

// Lookup returns the policy for (platform, actionType).
func (c *Catalog) Lookup(platform, actionType string) (*domain.ActionPolicy, error) {
	ap, ok := c.actions[key(platform, actionType)]
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s", domain.ErrActionNotRegistered, platform, actionType)
	}
	return ap, nil
}

// EvaluateRules runs the policy's compiled anti-farm rules against the
// scoring input and returns the strictest verdict ("BLOCK" > "WARN" > "").
func (c *Catalog) EvaluateRules(ap *domain.ActionPolicy, input domain.ScoringInput) (string, string, error) {
	return c.rules.evaluate(ap.AntiFarmRules, input)
}
