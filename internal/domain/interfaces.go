package domain

import (
	"context"
	"math/big"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// ActionPolicy is the policy-defined record for one (platform, action type)
// pair. Read-only reference data; never mutated at runtime.
type ActionPolicy struct {
	Platform      string
	ActionType    string
	BaseReward    *big.Int // atomic units
	MinLightScore float64
	MinTruth      int
	MinIntegrity  float64
	QualityMin    float64 // Q range for this action
	QualityMax    float64
	ImpactMin     float64 // I range for this action
	ImpactMax     float64
	AntiFarmRules []string // compiled rule IDs, evaluated by the catalog
}

// PolicyCatalog resolves action policies and evaluates their anti-farm rules.
type PolicyCatalog interface {
	// Lookup returns the policy for (platform, actionType).
	// Returns ErrActionNotRegistered if absent.
	Lookup(platform, actionType string) (*ActionPolicy, error)

	// EvaluateRules runs the policy's anti-farm rules against the input.
	// Returns the strictest verdict: "BLOCK" > "WARN" > "" (clean).
	EvaluateRules(policy *ActionPolicy, input ScoringInput) (verdict string, ruleID string, err error)
}

// ChainReader abstracts read-only smart contract access for the
// pre-flight mint validator.
type ChainReader interface {
	ChainID(ctx context.Context) (uint64, error)
	Code(ctx context.Context, address string) ([]byte, error)
	CallBool(ctx context.Context, address, selector string, args ...[]byte) (bool, error)
	CallUint(ctx context.Context, address, selector string, args ...[]byte) (*big.Int, error)
}

// SignatureStream delivers attester signature arrival events for one
// mint request. Implementations push in arrival order; consumers must
// recompute coverage from persisted state, not from the stream.
type SignatureStream interface {
	Subscribe(ctx context.Context, requestID string) (<-chan SignatureAdded, error)
}

// MintRequestStore persists mint requests and their signatures.
type MintRequestStore interface {
	SaveRequest(req *MintRequest) error
	GetRequest(id string) (*MintRequest, error)
	ListRequests(status RequestStatus) ([]*MintRequest, error)
	AddSignature(sig MintSignature) error
	Signatures(requestID string) ([]MintSignature, error)
}
