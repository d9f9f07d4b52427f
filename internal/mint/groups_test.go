package mint

import (
	"testing"

	"github.com/funmoney-network/pplp/internal/domain"
)

// Test attester addresses, two per group.
var (
	will1   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa01"
	will2   = "0xaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa02"
	wisdom1 = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb01"
	wisdom2 = "0xbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbbb02"
	love1   = "0xcccccccccccccccccccccccccccccccccccccc01"
	love2   = "0xcccccccccccccccccccccccccccccccccccccc02"
)

func testGroups(t *testing.T) *Groups {
	t.Helper()
	g, err := NewGroups(map[domain.GroupID][]string{
		domain.GroupWill:   {will1, will2},
		domain.GroupWisdom: {wisdom1, wisdom2},
		domain.GroupLove:   {love1, love2},
	})
	if err != nil {
		t.Fatalf("NewGroups() error = %v", err)
	}
	return g
}

func TestNewGroupsValidation(t *testing.T) {
	tests := []struct {
		name    string
		members map[domain.GroupID][]string
	}{
		{"empty group", map[domain.GroupID][]string{
			domain.GroupWill:   {will1},
			domain.GroupWisdom: {wisdom1},
			domain.GroupLove:   {},
		}},
		{"missing group", map[domain.GroupID][]string{
			domain.GroupWill:   {will1},
			domain.GroupWisdom: {wisdom1},
		}},
		{"duplicate across groups", map[domain.GroupID][]string{
			domain.GroupWill:   {will1},
			domain.GroupWisdom: {will1},
			domain.GroupLove:   {love1},
		}},
		{"case-insensitive duplicate", map[domain.GroupID][]string{
			domain.GroupWill:   {will1},
			domain.GroupWisdom: {"0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA01"},
			domain.GroupLove:   {love1},
		}},
		{"invalid address", map[domain.GroupID][]string{
			domain.GroupWill:   {"not-an-address"},
			domain.GroupWisdom: {wisdom1},
			domain.GroupLove:   {love1},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGroups(tt.members); err == nil {
				t.Error("NewGroups() should fail")
			}
		})
	}
}

func TestGroupFor(t *testing.T) {
	g := testGroups(t)

	if got := g.GroupFor(will1); got != domain.GroupWill {
		t.Errorf("GroupFor(will1) = %s, want WILL", got)
	}
	// Mixed case resolves to the same member.
	if got := g.GroupFor("0xAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA01"); got != domain.GroupWill {
		t.Errorf("GroupFor(upper) = %s, want WILL", got)
	}
	if got := g.GroupFor("0xdddddddddddddddddddddddddddddddddddddddd"); got != "" {
		t.Errorf("GroupFor(unknown) = %s, want empty", got)
	}
	if g.MemberCount() != 6 {
		t.Errorf("MemberCount() = %d, want 6", g.MemberCount())
	}
}

func TestCoverageSatisfied(t *testing.T) {
	g := testGroups(t)

	tests := []struct {
		name    string
		signers []string
		want    bool
	}{
		{"no signers", nil, false},
		{"one group only", []string{will1}, false},
		{"five signatures all from one group is not coverage", []string{will1, will2, will1, will2, will1}, false},
		{"two of three groups", []string{will1, wisdom1}, false},
		{"one per group", []string{will1, wisdom1, love1}, true},
		{"one per group plus extras", []string{will1, will2, wisdom1, love1, love2}, true},
		{"unknown signers do not count", []string{will1, wisdom1, "0xdddddddddddddddddddddddddddddddddddddddd"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := g.CoverageSatisfied(tt.signers); got != tt.want {
				t.Errorf("CoverageSatisfied(%v) = %v, want %v", tt.signers, got, tt.want)
			}
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", "0xabcdef0123456789abcdef0123456789abcdef01"},
		{"  0xabcdef0123456789abcdef0123456789abcdef01 ", "0xabcdef0123456789abcdef0123456789abcdef01"},
		{"abcdef0123456789abcdef0123456789abcdef01", ""},   // no 0x
		{"0xabcdef0123456789abcdef0123456789abcdef0", ""},  // too short
		{"0xabcdef0123456789abcdef0123456789abcdefgg", ""}, // non-hex
	}

	for _, tt := range tests {
		if got := normalizeAddress(tt.in); got != tt.want {
			t.Errorf("normalizeAddress(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
