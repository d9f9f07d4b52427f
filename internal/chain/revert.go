package chain

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// ─── Revert Reason Decoding ─────────────────────────────────────────────────
// Best-effort decoding of revert payloads for debugging display. Standard
// Error(string) and Panic(uint256) are handled, plus the FUN Money custom
// errors. Unrecognized selectors are reported, not guessed at.

const (
	errorSelector = "08c379a0" // Error(string)
	panicSelector = "4e487b71" // Panic(uint256)
)

// customErrors maps the contract's custom error selectors to their
// signatures. Selectors are precomputed at init from the signatures.
var customErrors = map[string]string{}

func init() {
	for _, sig := range []string{
		"EpochCapExceeded()",
		"NotAttester()",
		"ActionNotRegistered()",
		"InvalidSignatures()",
		"DeadlineExpired()",
		"TransitionsPaused()",
	} {
		sel := Selector(sig)
		customErrors[hex.EncodeToString(sel[:])] = sig
	}
}

// panicCodes names the well-known Solidity panic codes.
var panicCodes = map[int64]string{
	0x01: "assertion failure",
	0x11: "arithmetic overflow or underflow",
	0x12: "division by zero",
	0x21: "invalid enum conversion",
	0x31: "pop on empty array",
	0x32: "array index out of bounds",
	0x41: "out of memory",
	0x51: "call to uninitialized function",
}

// DecodeRevert renders a revert payload as a human-readable reason.
func DecodeRevert(data []byte) string {
	if len(data) < 4 {
		return "execution reverted (no reason)"
	}
	sel := hex.EncodeToString(data[:4])

	switch sel {
	case errorSelector:
		reason, err := DecodeString(data[4:])
		if err != nil {
			return fmt.Sprintf("execution reverted (malformed Error payload: %v)", err)
		}
		return fmt.Sprintf("execution reverted: %s", reason)

	case panicSelector:
		if len(data) < 36 {
			return "execution reverted (malformed Panic payload)"
		}
		code := new(big.Int).SetBytes(data[4:36]).Int64()
		if name, ok := panicCodes[code]; ok {
			return fmt.Sprintf("panic 0x%02x: %s", code, name)
		}
		return fmt.Sprintf("panic 0x%02x", code)
	}

	if sig, ok := customErrors[sel]; ok {
		return fmt.Sprintf("contract error: %s", sig)
	}
	return fmt.Sprintf("unknown error selector 0x%s", sel)
}
