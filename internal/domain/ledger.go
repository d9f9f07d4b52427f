package domain

import (
	"fmt"
	"strings"
	"time"
)

// ─── Wallet Ledger Types ────────────────────────────────────────────────────
// The wallet ledger is the off-chain community balance book. Amounts are
// int64 micro-FUN (scale 6) so balance arithmetic stays in integer math.

// MicroPerFUN is the number of ledger minor units in one FUN.
const MicroPerFUN int64 = 1_000_000

// OperationType is the business reason for a ledger mutation.
type OperationType string

const (
	OpTransfer OperationType = "transfer"
	OpPay      OperationType = "pay"
	OpRefund   OperationType = "refund"
	OpMint     OperationType = "mint" // scored action credited off-chain
)

// EntryType is the accounting side of a ledger entry.
type EntryType string

const (
	EntryDebit  EntryType = "DEBIT"
	EntryCredit EntryType = "CREDIT"
)

// LedgerEntry is a single row in the double-entry wallet ledger.
// Entries are append-only and hash-chained for tamper evidence.
type LedgerEntry struct {
	ID           int64         `json:"id"`
	TraceID      string        `json:"trace_id"`
	Timestamp    time.Time     `json:"timestamp"`
	Operation    OperationType `json:"operation"`
	EntryType    EntryType     `json:"entry_type"`
	Account      string        `json:"account"`
	Amount       int64         `json:"amount"` // micro-FUN, always positive
	Counterparty string        `json:"counterparty,omitempty"`
	Reference    string        `json:"reference,omitempty"`
	Balance      int64         `json:"balance"` // account balance after this entry
	PrevHash     string        `json:"prev_hash"`
	EntryHash    string        `json:"entry_hash"`
}

// Account is a wallet ledger account.
type Account struct {
	Address   string    `json:"address"`
	Balance   int64     `json:"balance"` // micro-FUN
	Version   int64     `json:"version"` // bumped on every mutation
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TransferResult is the response payload of a successful ledger operation.
type TransferResult struct {
	TraceID     string        `json:"trace_id"`
	Operation   OperationType `json:"operation"`
	From        string        `json:"from"`
	To          string        `json:"to"`
	Amount      int64         `json:"amount"`
	FromBalance int64         `json:"from_balance"`
	ToBalance   int64         `json:"to_balance"`
	Replayed    bool          `json:"replayed,omitempty"` // served from idempotency cache
	CompletedAt time.Time     `json:"completed_at"`
}

// FormatMicro renders a micro-FUN amount as a decimal FUN string.
func FormatMicro(micro int64) string {
	sign := ""
	if micro < 0 {
		sign = "-"
		micro = -micro
	}
	whole := micro / MicroPerFUN
	frac := micro % MicroPerFUN
	if frac == 0 {
		return fmt.Sprintf("%s%d", sign, whole)
	}
	s := strings.TrimRight(fmt.Sprintf("%06d", frac), "0")
	return fmt.Sprintf("%s%d.%s", sign, whole, s)
}
