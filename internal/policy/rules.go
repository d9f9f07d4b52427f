package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/decls"
	"github.com/google/cel-go/common/types"

	"github.com/funmoney-network/pplp/internal/domain"
	"github.com/funmoney-network/pplp/internal/scoring"
)

// ─── Anti-Farm Rule Engine ──────────────────────────────────────────────────
// Anti-farm rules are CEL expressions evaluated over a flat view of the
// scoring input. They are compiled once at catalog load; evaluation is a
// pure lookup + run, suitable for the scorer's hot path.
//
// Example rules:
//
//	witness_count == 0 && !has_stake          → WARN
//	verified_actions > 50 && anti_sybil < 0.7 → BLOCK

// ruleEngine holds the shared CEL environment and compiled programs.
type ruleEngine struct {
	env      *cel.Env
	programs map[string]cel.Program // ruleID → program
	actions  map[string]string      // ruleID → "BLOCK" | "WARN"
}

func newRuleEngine() (*ruleEngine, error) {
	env, err := cel.NewEnv(
		cel.VariableDecls(
			decls.NewVariable("platform", types.StringType),
			decls.NewVariable("action_type", types.StringType),
			decls.NewVariable("actor", types.StringType),
			decls.NewVariable("light_score", types.DoubleType),
			decls.NewVariable("anti_sybil", types.DoubleType),
			decls.NewVariable("has_stake", types.BoolType),
			decls.NewVariable("tier", types.IntType),
			decls.NewVariable("verified_actions", types.IntType),
			decls.NewVariable("witness_count", types.IntType),
			decls.NewVariable("active_platforms", types.IntType),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("policy: create CEL env: %w", err)
	}
	return &ruleEngine{
		env:      env,
		programs: make(map[string]cel.Program),
		actions:  make(map[string]string),
	}, nil
}

// compile registers one rule. Compilation failures surface at load time so
// a bad bundle never reaches the scorer.
func (e *ruleEngine) compile(ruleID, expression, action string) error {
	if action != "BLOCK" && action != "WARN" {
		return fmt.Errorf("unknown rule action %q", action)
	}
	ast, issues := e.env.Compile(expression)
	if issues != nil && issues.Err() != nil {
		return fmt.Errorf("compile: %w", issues.Err())
	}
	prg, err := e.env.Program(ast)
	if err != nil {
		return fmt.Errorf("program: %w", err)
	}
	e.programs[ruleID] = prg
	e.actions[ruleID] = action
	return nil
}

// evaluate runs the listed rules and returns the strictest matching verdict.
// A rule evaluation error is returned to the caller, which fails closed.
func (e *ruleEngine) evaluate(ruleIDs []string, input domain.ScoringInput) (verdict, matched string, err error) {
	if len(ruleIDs) == 0 {
		return "", "", nil
	}

	// Flat CEL input view. Light score is recomputed from pillars so the
	// rule sees the same number the gates see.
	vars := map[string]interface{}{
		"platform":         input.Platform,
		"action_type":      input.ActionType,
		"actor":            input.Actor,
		"light_score":      scoring.CalculateLightScore(input.Pillars),
		"anti_sybil":       input.AntiSybil,
		"has_stake":        input.HasStake,
		"tier":             int64(input.Reputation.Tier),
		"verified_actions": int64(input.Reputation.VerifiedActions),
		"witness_count":    int64(input.Signals.WitnessCount),
		"active_platforms": int64(len(input.Reputation.ActivePlatforms)),
	}

	for _, id := range ruleIDs {
		prg, ok := e.programs[id]
		if !ok {
			return "", "", fmt.Errorf("policy: rule %s not compiled", id)
		}
		out, _, evalErr := prg.Eval(vars)
		if evalErr != nil {
			return "", "", fmt.Errorf("policy: rule %s: %w", id, evalErr)
		}
		match, ok := out.Value().(bool)
		if !ok {
			return "", "", fmt.Errorf("policy: rule %s: non-boolean result", id)
		}
		if !match {
			continue
		}
		if e.actions[id] == "BLOCK" {
			return "BLOCK", id, nil // strictest possible, stop here
		}
		if verdict == "" {
			verdict, matched = "WARN", id
		}
	}
	return verdict, matched, nil
}
