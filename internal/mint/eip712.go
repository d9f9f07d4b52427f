package mint

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/gowebpki/jcs"
	"golang.org/x/crypto/sha3"
)

// ─── EIP-712 Typed Data ─────────────────────────────────────────────────────
// Attesters sign the PPLP struct under the FUN Money domain. This package
// only builds the digest; the private-key signature happens in the signer's
// wallet, and verification is the contract's job at mint time.

// Domain is the EIP-712 signing domain.
type Domain struct {
	Name              string
	Version           string
	ChainID           uint64
	VerifyingContract string
}

// DefaultDomain is the production FUN Money domain (BSC testnet).
func DefaultDomain(contract string) Domain {
	return Domain{
		Name:              "FUN Money",
		Version:           "1.3.0",
		ChainID:           97,
		VerifyingContract: contract,
	}
}

// Attestation is the PPLP primary type.
//
//	PPLP(address recipient,uint256 amount,bytes32 actionHash,uint256 nonce,uint256 deadline)
type Attestation struct {
	Recipient  string
	Amount     *big.Int
	ActionHash [32]byte
	Nonce      uint64
	Deadline   time.Time
}

var (
	domainTypeHash = Keccak256([]byte(
		"EIP712Domain(string name,string version,uint256 chainId,address verifyingContract)"))
	pplpTypeHash = Keccak256([]byte(
		"PPLP(address recipient,uint256 amount,bytes32 actionHash,uint256 nonce,uint256 deadline)"))
)

// Separator computes the domain separator hash.
func (d Domain) Separator() ([32]byte, error) {
	contract, err := addressWord(d.VerifyingContract)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: verifying contract: %w", err)
	}
	return Keccak256(concat(
		domainTypeHash[:],
		hashWord([]byte(d.Name)),
		hashWord([]byte(d.Version)),
		uintWord(new(big.Int).SetUint64(d.ChainID)),
		contract,
	)), nil
}

// StructHash computes the PPLP struct hash for an attestation.
func (a Attestation) StructHash() ([32]byte, error) {
	recipient, err := addressWord(a.Recipient)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: recipient: %w", err)
	}
	return Keccak256(concat(
		pplpTypeHash[:],
		recipient,
		uintWord(a.Amount),
		a.ActionHash[:],
		uintWord(new(big.Int).SetUint64(a.Nonce)),
		uintWord(big.NewInt(a.Deadline.Unix())),
	)), nil
}

// Digest computes the final EIP-712 signing digest:
//
//	keccak256(0x19 ‖ 0x01 ‖ domainSeparator ‖ structHash)
func Digest(d Domain, a Attestation) ([32]byte, error) {
	sep, err := d.Separator()
	if err != nil {
		return [32]byte{}, err
	}
	sh, err := a.StructHash()
	if err != nil {
		return [32]byte{}, err
	}
	return Keccak256(concat([]byte{0x19, 0x01}, sep[:], sh[:])), nil
}

// ─── Content Hashes ─────────────────────────────────────────────────────────

// ActionHash derives the bytes32 action identifier the contract keys its
// action registry on.
func ActionHash(action string) [32]byte {
	return Keccak256([]byte(action))
}

// EvidenceHash hashes an evidence JSON document. The JSON is canonicalized
// (RFC 8785) first so semantically equal evidence always hashes the same
// regardless of key order or whitespace.
func EvidenceHash(evidenceJSON []byte) ([32]byte, error) {
	canonical, err := jcs.Transform(evidenceJSON)
	if err != nil {
		return [32]byte{}, fmt.Errorf("eip712: canonicalize evidence: %w", err)
	}
	return Keccak256(canonical), nil
}

// HexHash renders a 32-byte hash as a 0x-prefixed hex string.
func HexHash(h [32]byte) string {
	return "0x" + hex.EncodeToString(h[:])
}

// ─── Encoding Helpers ───────────────────────────────────────────────────────

// Keccak256 computes the legacy Keccak-256 hash (the Ethereum variant,
// not NIST SHA-3).
func Keccak256(data []byte) [32]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write(data)
	var out [32]byte
	copy(out[:], h.Sum(nil))
	return out
}

// hashWord returns keccak256(data) as a 32-byte slice (dynamic types are
// hashed in EIP-712 struct encoding).
func hashWord(data []byte) []byte {
	h := Keccak256(data)
	return h[:]
}

// uintWord left-pads a non-negative integer to a 32-byte word.
func uintWord(v *big.Int) []byte {
	word := make([]byte, 32)
	if v == nil || v.Sign() < 0 {
		return word
	}
	v.FillBytes(word)
	return word
}

// addressWord left-pads a 20-byte address to a 32-byte word.
func addressWord(addr string) ([]byte, error) {
	norm := normalizeAddress(addr)
	if norm == "" {
		return nil, fmt.Errorf("invalid address %q", addr)
	}
	raw, err := hex.DecodeString(strings.TrimPrefix(norm, "0x"))
	if err != nil {
		return nil, err
	}
	word := make([]byte, 32)
	copy(word[12:], raw)
	return word, nil
}

// concat joins byte slices.
func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
