package domain

import "time"

// ─── Governance Groups ──────────────────────────────────────────────────────
// GOV-Community approval is group coverage, not a cryptographic threshold:
// a mint request needs at least one signature from each of the three groups.

// GroupID names one of the three fixed governance groups.
type GroupID string

const (
	GroupWill   GroupID = "WILL"
	GroupWisdom GroupID = "WISDOM"
	GroupLove   GroupID = "LOVE"
)

// AllGroups lists every governance group, in canonical order.
var AllGroups = []GroupID{GroupWill, GroupWisdom, GroupLove}

// ─── Mint Request State Machine ─────────────────────────────────────────────

// RequestStatus is the lifecycle state of a MintRequest.
//
//	pending --(coverage satisfied)--> ready --(submit tx)--> submitted --(mined)--> confirmed
//	submitted --(tx fails)--> pending   (signatures are retained)
//	pending --(moderator)--> rejected   (absorbing)
type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusReady     RequestStatus = "ready"
	StatusSubmitted RequestStatus = "submitted"
	StatusConfirmed RequestStatus = "confirmed"
	StatusRejected  RequestStatus = "rejected"
)

// Terminal reports whether no further transition is possible.
func (s RequestStatus) Terminal() bool {
	return s == StatusConfirmed || s == StatusRejected
}

// MintRequest holds the action parameters to be attested by the governance
// groups. Created by one Attester, collectively completed by the others —
// after creation no single party owns it exclusively.
type MintRequest struct {
	ID           string        `json:"id"`
	Recipient    string        `json:"recipient"`
	ActionHash   string        `json:"action_hash"` // 0x-prefixed bytes32
	Amount       string        `json:"amount"`      // atomic units, decimal string
	EvidenceHash string        `json:"evidence_hash"`
	Nonce        uint64        `json:"nonce"`
	Deadline     time.Time     `json:"deadline"`
	Status       RequestStatus `json:"status"`
	CreatedBy    string        `json:"created_by"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
	TxHash       string        `json:"tx_hash,omitempty"`
}

// MintSignature associates one signer with one signature blob.
type MintSignature struct {
	RequestID string    `json:"request_id"`
	Signer    string    `json:"signer"`
	Signature string    `json:"signature"` // 0x-prefixed 65-byte blob
	SignedAt  time.Time `json:"signed_at"`
}

// SignatureAdded is the event emitted when a new attester signature lands
// on a mint request. Consumers must recompute coverage from the full
// persisted set, never from the event alone.
type SignatureAdded struct {
	RequestID string
	Signer    string
}
