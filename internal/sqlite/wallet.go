// Wallet schema and operations: accounts, the hash-chained ledger, and
// the idempotency cache.
package sqlite

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Wallet Schema ──────────────────────────────────────────────────────────

// WalletMigrations returns the wallet schema migration statements.
func WalletMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS accounts (
			address    TEXT PRIMARY KEY,
			balance    INTEGER NOT NULL DEFAULT 0 CHECK (balance >= 0),
			version    INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS ledger_entries (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id     TEXT NOT NULL,
			timestamp    TEXT NOT NULL,
			operation    TEXT NOT NULL,
			entry_type   TEXT NOT NULL,
			account      TEXT NOT NULL,
			amount       INTEGER NOT NULL CHECK (amount > 0),
			counterparty TEXT,
			reference    TEXT,
			balance      INTEGER NOT NULL,
			prev_hash    TEXT NOT NULL,
			entry_hash   TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_account ON ledger_entries(account, id)`,
		`CREATE INDEX IF NOT EXISTS idx_entries_trace ON ledger_entries(trace_id)`,

		`CREATE TABLE IF NOT EXISTS idempotency_keys (
			key           TEXT PRIMARY KEY,
			request_hash  TEXT NOT NULL,
			response_json TEXT NOT NULL,
			created_at    TEXT NOT NULL
		)`,
	}
}

// ─── Account Operations ─────────────────────────────────────────────────────

// CreateAccount inserts a new account with the given opening balance.
// Creating an existing account is an error.
func (db *DB) CreateAccount(address string, openingBalance int64, now time.Time) error {
	ts := now.UTC().Format(time.RFC3339)
	_, err := db.db.Exec(`
		INSERT INTO accounts (address, balance, version, created_at, updated_at)
		VALUES (?, ?, 0, ?, ?)
	`, address, openingBalance, ts, ts)
	if err != nil {
		return fmt.Errorf("sqlite: create account %s: %w", address, err)
	}
	return nil
}

// GetAccount returns an account, or nil if it does not exist.
func (db *DB) GetAccount(address string) (*domain.Account, error) {
	var acct domain.Account
	var created, updated string
	err := db.db.QueryRow(`
		SELECT address, balance, version, created_at, updated_at
		FROM accounts WHERE address = ?
	`, address).Scan(&acct.Address, &acct.Balance, &acct.Version, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	acct.CreatedAt, _ = time.Parse(time.RFC3339, created)
	acct.UpdatedAt, _ = time.Parse(time.RFC3339, updated)
	return &acct, nil
}

// ─── Transfer Execution ─────────────────────────────────────────────────────

// TransferOp is one fully-validated ledger mutation ready to execute.
type TransferOp struct {
	TraceID        string
	Operation      domain.OperationType
	From           string // empty for mint credits
	To             string
	Amount         int64 // micro-FUN, positive
	Reference      string
	IdempotencyKey string // optional
	RequestHash    string // hash of the request body, for replay matching
	Timestamp      time.Time
}

// ExecuteTransfer runs one ledger mutation atomically.
//
// The debit is a single conditional UPDATE guarded by the current balance,
// inside one transaction covering debit, credit, both ledger entries and
// the idempotency record. Two concurrent debits can never both succeed
// against the same balance: the second sees zero rows affected and aborts
// with ErrInsufficientBalance.
//
// Idempotency: an op carrying a previously-seen key returns the cached
// response (Replayed=true) iff the request hash matches, and
// ErrIdempotencyConflict otherwise. Replay performs no mutation.
func (db *DB) ExecuteTransfer(op TransferOp) (*domain.TransferResult, error) {
	tx, err := db.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	ts := op.Timestamp.UTC()

	// Idempotency replay check, inside the transaction so a concurrent
	// first-execution is observed.
	if op.IdempotencyKey != "" {
		var storedHash, responseJSON string
		err := tx.QueryRow(`
			SELECT request_hash, response_json FROM idempotency_keys WHERE key = ?
		`, op.IdempotencyKey).Scan(&storedHash, &responseJSON)
		switch {
		case err == nil:
			if storedHash != op.RequestHash {
				return nil, domain.ErrIdempotencyConflict
			}
			var cached domain.TransferResult
			if err := json.Unmarshal([]byte(responseJSON), &cached); err != nil {
				return nil, fmt.Errorf("sqlite: decode cached response: %w", err)
			}
			cached.Replayed = true
			return &cached, nil
		case !errors.Is(err, sql.ErrNoRows):
			return nil, err
		}
	}

	// Recipient must exist for transfer/pay/refund; mint credits create it.
	var toBalance int64
	err = tx.QueryRow(`SELECT balance FROM accounts WHERE address = ?`, op.To).Scan(&toBalance)
	if errors.Is(err, sql.ErrNoRows) {
		if op.Operation != domain.OpMint {
			return nil, domain.ErrUnknownRecipient
		}
		if _, err := tx.Exec(`
			INSERT INTO accounts (address, balance, version, created_at, updated_at)
			VALUES (?, 0, 0, ?, ?)
		`, op.To, ts.Format(time.RFC3339), ts.Format(time.RFC3339)); err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	var fromBalance int64
	if op.From != "" {
		// Conditional debit: the balance guard makes the read-modify-write
		// race impossible.
		res, err := tx.Exec(`
			UPDATE accounts
			SET balance = balance - ?, version = version + 1, updated_at = ?
			WHERE address = ? AND balance >= ?
		`, op.Amount, ts.Format(time.RFC3339), op.From, op.Amount)
		if err != nil {
			return nil, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return nil, err
		}
		if affected == 0 {
			return nil, domain.ErrInsufficientBalance
		}
		if err := tx.QueryRow(`SELECT balance FROM accounts WHERE address = ?`, op.From).Scan(&fromBalance); err != nil {
			return nil, err
		}
	}

	if _, err := tx.Exec(`
		UPDATE accounts
		SET balance = balance + ?, version = version + 1, updated_at = ?
		WHERE address = ?
	`, op.Amount, ts.Format(time.RFC3339), op.To); err != nil {
		return nil, err
	}
	if err := tx.QueryRow(`SELECT balance FROM accounts WHERE address = ?`, op.To).Scan(&toBalance); err != nil {
		return nil, err
	}

	// Append hash-chained entries: debit first, then credit.
	headHash, err := headEntryHash(tx)
	if err != nil {
		return nil, err
	}
	if op.From != "" {
		headHash, err = appendEntry(tx, domain.LedgerEntry{
			TraceID:      op.TraceID,
			Timestamp:    ts,
			Operation:    op.Operation,
			EntryType:    domain.EntryDebit,
			Account:      op.From,
			Amount:       op.Amount,
			Counterparty: op.To,
			Reference:    op.Reference,
			Balance:      fromBalance,
			PrevHash:     headHash,
		})
		if err != nil {
			return nil, err
		}
	}
	if _, err = appendEntry(tx, domain.LedgerEntry{
		TraceID:      op.TraceID,
		Timestamp:    ts,
		Operation:    op.Operation,
		EntryType:    domain.EntryCredit,
		Account:      op.To,
		Amount:       op.Amount,
		Counterparty: op.From,
		Reference:    op.Reference,
		Balance:      toBalance,
		PrevHash:     headHash,
	}); err != nil {
		return nil, err
	}

	result := &domain.TransferResult{
		TraceID:     op.TraceID,
		Operation:   op.Operation,
		From:        op.From,
		To:          op.To,
		Amount:      op.Amount,
		FromBalance: fromBalance,
		ToBalance:   toBalance,
		CompletedAt: ts,
	}

	if op.IdempotencyKey != "" {
		responseJSON, err := json.Marshal(result)
		if err != nil {
			return nil, err
		}
		if _, err := tx.Exec(`
			INSERT INTO idempotency_keys (key, request_hash, response_json, created_at)
			VALUES (?, ?, ?, ?)
		`, op.IdempotencyKey, op.RequestHash, string(responseJSON), ts.Format(time.RFC3339)); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("sqlite: commit: %w", err)
	}
	return result, nil
}

// headEntryHash returns the hash of the newest ledger entry, or "genesis".
func headEntryHash(tx *sql.Tx) (string, error) {
	var head string
	err := tx.QueryRow(`SELECT entry_hash FROM ledger_entries ORDER BY id DESC LIMIT 1`).Scan(&head)
	if errors.Is(err, sql.ErrNoRows) {
		return "genesis", nil
	}
	if err != nil {
		return "", err
	}
	return head, nil
}

// appendEntry computes the entry hash over the entry's content and its
// predecessor, then inserts it. Returns the new head hash.
func appendEntry(tx *sql.Tx, e domain.LedgerEntry) (string, error) {
	hashInput := struct {
		TraceID   string `json:"trace_id"`
		Timestamp string `json:"ts"`
		Operation string `json:"op"`
		EntryType string `json:"entry"`
		Account   string `json:"account"`
		Amount    int64  `json:"amount"`
		Balance   int64  `json:"balance"`
		PrevHash  string `json:"prev"`
	}{e.TraceID, e.Timestamp.Format(time.RFC3339), string(e.Operation), string(e.EntryType),
		e.Account, e.Amount, e.Balance, e.PrevHash}

	raw, err := json.Marshal(hashInput)
	if err != nil {
		return "", err
	}
	entryHash := "sha256:" + domain.SHA256Hex(raw)

	_, err = tx.Exec(`
		INSERT INTO ledger_entries
			(trace_id, timestamp, operation, entry_type, account, amount, counterparty, reference, balance, prev_hash, entry_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.TraceID, e.Timestamp.Format(time.RFC3339), string(e.Operation), string(e.EntryType),
		e.Account, e.Amount, e.Counterparty, e.Reference, e.Balance, e.PrevHash, entryHash)
	if err != nil {
		return "", err
	}
	return entryHash, nil
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Transactions returns a page of ledger entries for an account, newest
// first. cursor is the opaque cursor from a previous page ("" for the
// first page). nextCursor is "" when the page is the last.
func (db *DB) Transactions(account, cursor string, limit int) (entries []domain.LedgerEntry, nextCursor string, err error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	beforeID := int64(1<<62 - 1)
	if cursor != "" {
		beforeID, err = strconv.ParseInt(cursor, 10, 64)
		if err != nil {
			return nil, "", fmt.Errorf("sqlite: bad cursor %q", cursor)
		}
	}

	rows, err := db.db.Query(`
		SELECT id, trace_id, timestamp, operation, entry_type, account, amount,
		       counterparty, reference, balance, prev_hash, entry_hash
		FROM ledger_entries
		WHERE account = ? AND id < ?
		ORDER BY id DESC LIMIT ?
	`, account, beforeID, limit+1)
	if err != nil {
		return nil, "", err
	}
	defer rows.Close()

	for rows.Next() {
		var e domain.LedgerEntry
		var ts string
		var counterparty, reference sql.NullString
		if err := rows.Scan(&e.ID, &e.TraceID, &ts, &e.Operation, &e.EntryType, &e.Account,
			&e.Amount, &counterparty, &reference, &e.Balance, &e.PrevHash, &e.EntryHash); err != nil {
			return nil, "", err
		}
		e.Timestamp, _ = time.Parse(time.RFC3339, ts)
		e.Counterparty = counterparty.String
		e.Reference = reference.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", err
	}

	if len(entries) > limit {
		entries = entries[:limit]
		nextCursor = strconv.FormatInt(entries[len(entries)-1].ID, 10)
	}
	return entries, nextCursor, nil
}

// VerifyChain walks the full ledger and checks every entry's hash link.
// Returns the number of entries verified.
func (db *DB) VerifyChain() (int, error) {
	rows, err := db.db.Query(`
		SELECT trace_id, timestamp, operation, entry_type, account, amount, balance, prev_hash, entry_hash
		FROM ledger_entries ORDER BY id
	`)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	prev := "genesis"
	for rows.Next() {
		var traceID, ts, op, entryType, account, prevHash, entryHash string
		var amount, balance int64
		if err := rows.Scan(&traceID, &ts, &op, &entryType, &account, &amount, &balance, &prevHash, &entryHash); err != nil {
			return count, err
		}
		if prevHash != prev {
			return count, fmt.Errorf("sqlite: chain break at entry %d: prev %s, expected %s", count+1, prevHash, prev)
		}
		hashInput := struct {
			TraceID   string `json:"trace_id"`
			Timestamp string `json:"ts"`
			Operation string `json:"op"`
			EntryType string `json:"entry"`
			Account   string `json:"account"`
			Amount    int64  `json:"amount"`
			Balance   int64  `json:"balance"`
			PrevHash  string `json:"prev"`
		}{traceID, ts, op, entryType, account, amount, balance, prevHash}
		raw, _ := json.Marshal(hashInput)
		if want := "sha256:" + domain.SHA256Hex(raw); want != entryHash {
			return count, fmt.Errorf("sqlite: hash mismatch at entry %d", count+1)
		}
		prev = entryHash
		count++
	}
	return count, rows.Err()
}
