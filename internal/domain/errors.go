package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.
// Policy outcomes (failed gates, review holds) are Decision values, not
// errors; only genuinely exceptional conditions live here.

var (
	// Policy errors
	ErrActionNotRegistered = errors.New("action not registered for platform")
	ErrPolicyInvalid       = errors.New("policy bundle failed validation")

	// Ledger errors
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrUnknownRecipient    = errors.New("unknown recipient account")
	ErrSelfTransfer        = errors.New("cannot transfer to the same account")
	ErrInvalidAmount       = errors.New("amount must be positive")
	ErrIdempotencyConflict = errors.New("idempotency key reused with a different request")

	// Mint request errors
	ErrRequestNotFound     = errors.New("mint request not found")
	ErrInvalidTransition   = errors.New("invalid mint request state transition")
	ErrDuplicateSignature  = errors.New("signer has already signed this request")
	ErrCoverageUnsatisfied = errors.New("governance group coverage not satisfied")
	ErrUnknownSigner       = errors.New("signer is not a member of any governance group")

	// Chain errors
	ErrWrongNetwork     = errors.New("connected to the wrong network")
	ErrContractNotFound = errors.New("no contract code at the configured address")
	ErrRPCUnavailable   = errors.New("JSON-RPC endpoint unreachable")

	// Events errors
	ErrBatchTooLarge    = errors.New("event batch exceeds maximum size")
	ErrRateLimited      = errors.New("event rate limit exceeded")
	ErrPIIDetected      = errors.New("event properties contain PII")
	ErrMissingEventName = errors.New("event is missing event_name")
)
