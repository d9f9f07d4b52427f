// Package mint implements GOV-Community attestation: governance group
// coverage, the mint request lifecycle, and EIP-712 digest construction
// for off-chain attester signatures.
//
// Approval is group-based, not a cryptographic threshold scheme: the
// attester set is partitioned into three fixed groups (Will, Wisdom, Love)
// and a request becomes ready once at least one member of EVERY group has
// signed. Extra signatures from an already-covered group never advance
// coverage.
package mint

import (
	"fmt"
	"strings"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Governance Groups ──────────────────────────────────────────────────────

// Groups is the static partition of attester addresses into the three
// governance groups. Built once from configuration; immutable afterwards.
type Groups struct {
	byAddress map[string]domain.GroupID // lowercase address → group
	sizes     map[domain.GroupID]int
}

// NewGroups builds the partition. Every address must belong to exactly one
// group and every group must have at least one member.
func NewGroups(members map[domain.GroupID][]string) (*Groups, error) {
	g := &Groups{
		byAddress: make(map[string]domain.GroupID),
		sizes:     make(map[domain.GroupID]int),
	}

	for _, id := range domain.AllGroups {
		addrs := members[id]
		if len(addrs) == 0 {
			return nil, fmt.Errorf("mint: group %s has no members", id)
		}
		for _, addr := range addrs {
			norm := normalizeAddress(addr)
			if norm == "" {
				return nil, fmt.Errorf("mint: group %s: invalid address %q", id, addr)
			}
			if prev, dup := g.byAddress[norm]; dup {
				return nil, fmt.Errorf("mint: address %s in both %s and %s", addr, prev, id)
			}
			g.byAddress[norm] = id
			g.sizes[id]++
		}
	}
	return g, nil
}

// GroupFor returns the group an address belongs to, or "" if none.
func (g *Groups) GroupFor(address string) domain.GroupID {
	return g.byAddress[normalizeAddress(address)]
}

// SignedGroups maps a signer set to the set of groups represented.
// Unknown signers are ignored rather than rejected here; membership
// enforcement happens when a signature is accepted.
func (g *Groups) SignedGroups(signers []string) map[domain.GroupID]bool {
	covered := make(map[domain.GroupID]bool)
	for _, s := range signers {
		if id := g.GroupFor(s); id != "" {
			covered[id] = true
		}
	}
	return covered
}

// CoverageSatisfied reports whether every governance group has at least
// one signer in the set. Signature count is irrelevant beyond one per
// group.
func (g *Groups) CoverageSatisfied(signers []string) bool {
	covered := g.SignedGroups(signers)
	for _, id := range domain.AllGroups {
		if !covered[id] {
			return false
		}
	}
	return true
}

// MemberCount returns the total number of configured attesters.
func (g *Groups) MemberCount() int {
	return len(g.byAddress)
}

// normalizeAddress lowercases a 0x-prefixed hex address for comparison.
// Returns "" for syntactically invalid input.
func normalizeAddress(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))
	if len(addr) != 42 || !strings.HasPrefix(addr, "0x") {
		return ""
	}
	for _, c := range addr[2:] {
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return ""
		}
	}
	return addr
}
