package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/sha3"
)

// ─── ABI Encoding ───────────────────────────────────────────────────────────
// Static-argument encoding only: every supported argument is one 32-byte
// word (address, uint256, bytes32). That covers the full read surface of
// the FUN Money contract; dynamic arguments never appear in view calls.

// Selector computes the 4-byte function selector for a canonical
// signature, e.g. "isAttester(address)".
func Selector(signature string) [4]byte {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(signature))
	var sel [4]byte
	copy(sel[:], h.Sum(nil)[:4])
	return sel
}

// EncodeCall builds calldata: selector followed by 32-byte words.
func EncodeCall(signature string, args ...[]byte) []byte {
	sel := Selector(signature)
	data := make([]byte, 0, 4+32*len(args))
	data = append(data, sel[:]...)
	for _, arg := range args {
		word := make([]byte, 32)
		if len(arg) <= 32 {
			copy(word[32-len(arg):], arg)
		} else {
			copy(word, arg[:32])
		}
		data = append(data, word...)
	}
	return data
}

// AddressArg encodes a 0x-prefixed hex address as a call argument.
func AddressArg(address string) ([]byte, error) {
	raw, err := decodeHex(address)
	if err != nil || len(raw) != 20 {
		return nil, fmt.Errorf("chain: invalid address %q", address)
	}
	return raw, nil
}

// UintArg encodes an unsigned integer as a call argument.
func UintArg(v uint64) []byte {
	return new(big.Int).SetUint64(v).Bytes()
}

// Bytes32Arg passes a 32-byte value through as a call argument.
func Bytes32Arg(v [32]byte) []byte {
	return v[:]
}

// ─── ABI Decoding ───────────────────────────────────────────────────────────
// One canonical decoding path per return shape: the first 32-byte word is
// the value. Struct returns (e.g. actions(bytes32)) decode their first
// field the same way.

// DecodeBool decodes a bool return word.
func DecodeBool(ret []byte) (bool, error) {
	word, err := firstWord(ret)
	if err != nil {
		return false, err
	}
	return word.Sign() != 0, nil
}

// DecodeUint decodes a uint256 return word.
func DecodeUint(ret []byte) (*big.Int, error) {
	return firstWord(ret)
}

// DecodeString decodes an ABI-encoded string return (offset, length,
// data). Used for Error(string) revert payloads.
func DecodeString(ret []byte) (string, error) {
	if len(ret) < 64 {
		return "", fmt.Errorf("chain: string return too short (%d bytes)", len(ret))
	}
	offset := new(big.Int).SetBytes(ret[:32])
	if !offset.IsInt64() || offset.Int64()+32 > int64(len(ret)) {
		return "", fmt.Errorf("chain: bad string offset")
	}
	o := offset.Int64()
	length := new(big.Int).SetBytes(ret[o : o+32])
	if !length.IsInt64() || o+32+length.Int64() > int64(len(ret)) {
		return "", fmt.Errorf("chain: bad string length")
	}
	return string(ret[o+32 : o+32+length.Int64()]), nil
}

func firstWord(ret []byte) (*big.Int, error) {
	if len(ret) < 32 {
		return nil, fmt.Errorf("chain: return data too short (%d bytes)", len(ret))
	}
	return new(big.Int).SetBytes(ret[:32]), nil
}

// ─── Hex Helpers ────────────────────────────────────────────────────────────

func decodeHex(s string) ([]byte, error) {
	s = strings.TrimPrefix(s, "0x")
	if len(s)%2 == 1 {
		s = "0" + s
	}
	return hex.DecodeString(s)
}

func encodeHex(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
