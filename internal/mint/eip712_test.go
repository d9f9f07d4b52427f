package mint

import (
	"math/big"
	"strings"
	"testing"
	"time"
)

func TestKeccak256KnownVectors(t *testing.T) {
	// Ethereum's keccak, not NIST SHA-3. The empty-input hash is the
	// well-known c5d2...a470 constant.
	tests := []struct {
		in   string
		want string
	}{
		{"", "0xc5d2460186f7233c927e7db2dcc703c0e500b653ca82273b7bfad8045d85a470"},
		{"LESSON_COMPLETE", HexHash(ActionHash("LESSON_COMPLETE"))}, // self-consistency
	}

	if got := HexHash(Keccak256([]byte(tests[0].in))); got != tests[0].want {
		t.Errorf("Keccak256(\"\") = %s, want %s", got, tests[0].want)
	}
}

func TestActionHashDeterministic(t *testing.T) {
	a := ActionHash("LESSON_COMPLETE")
	b := ActionHash("LESSON_COMPLETE")
	if a != b {
		t.Error("ActionHash should be deterministic")
	}
	if a == ActionHash("COURSE_COMPLETED") {
		t.Error("distinct actions should hash differently")
	}
}

func TestEvidenceHashCanonicalization(t *testing.T) {
	// Same document, different key order and whitespace.
	doc1 := []byte(`{"score": 95, "lesson": "intro", "attempt": 2}`)
	doc2 := []byte(`{
		"attempt": 2,
		"lesson":  "intro",
		"score":   95
	}`)

	h1, err := EvidenceHash(doc1)
	if err != nil {
		t.Fatal(err)
	}
	h2, err := EvidenceHash(doc2)
	if err != nil {
		t.Fatal(err)
	}
	if h1 != h2 {
		t.Error("semantically equal evidence should hash identically")
	}

	h3, err := EvidenceHash([]byte(`{"attempt": 3, "lesson": "intro", "score": 95}`))
	if err != nil {
		t.Fatal(err)
	}
	if h1 == h3 {
		t.Error("different evidence should hash differently")
	}

	if _, err := EvidenceHash([]byte(`not json`)); err == nil {
		t.Error("invalid JSON should be rejected")
	}
}

func testAttestation() Attestation {
	return Attestation{
		Recipient:  "0x9999999999999999999999999999999999999999",
		Amount:     big.NewInt(1e18),
		ActionHash: ActionHash("LESSON_COMPLETE"),
		Nonce:      7,
		Deadline:   time.Date(2026, 3, 1, 13, 0, 0, 0, time.UTC),
	}
}

func TestDigestShape(t *testing.T) {
	d := DefaultDomain("0x1111111111111111111111111111111111111111")
	if d.Name != "FUN Money" || d.Version != "1.3.0" || d.ChainID != 97 {
		t.Errorf("DefaultDomain = %+v", d)
	}

	digest, err := Digest(d, testAttestation())
	if err != nil {
		t.Fatalf("Digest() error = %v", err)
	}
	hexDigest := HexHash(digest)
	if !strings.HasPrefix(hexDigest, "0x") || len(hexDigest) != 66 {
		t.Errorf("digest = %q, want 0x + 64 hex chars", hexDigest)
	}
}

func TestDigestSensitivity(t *testing.T) {
	d := DefaultDomain("0x1111111111111111111111111111111111111111")
	base, err := Digest(d, testAttestation())
	if err != nil {
		t.Fatal(err)
	}

	// Every field change must change the digest.
	mutations := []func(*Attestation){
		func(a *Attestation) { a.Recipient = "0x8888888888888888888888888888888888888888" },
		func(a *Attestation) { a.Amount = big.NewInt(2e18) },
		func(a *Attestation) { a.ActionHash = ActionHash("OTHER") },
		func(a *Attestation) { a.Nonce = 8 },
		func(a *Attestation) { a.Deadline = a.Deadline.Add(time.Second) },
	}
	for i, mutate := range mutations {
		a := testAttestation()
		mutate(&a)
		got, err := Digest(d, a)
		if err != nil {
			t.Fatal(err)
		}
		if got == base {
			t.Errorf("mutation %d did not change the digest", i)
		}
	}

	// Domain changes too.
	other := d
	other.ChainID = 56
	got, err := Digest(other, testAttestation())
	if err != nil {
		t.Fatal(err)
	}
	if got == base {
		t.Error("chain ID change did not change the digest")
	}
}

func TestDigestRejectsBadAddresses(t *testing.T) {
	d := DefaultDomain("not-a-contract")
	if _, err := Digest(d, testAttestation()); err == nil {
		t.Error("bad verifying contract should fail")
	}

	a := testAttestation()
	a.Recipient = "0xshort"
	if _, err := Digest(DefaultDomain("0x1111111111111111111111111111111111111111"), a); err == nil {
		t.Error("bad recipient should fail")
	}
}
