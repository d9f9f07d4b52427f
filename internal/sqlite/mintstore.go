// Mint request schema and operations. Implements domain.MintRequestStore.
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Mint Schema ────────────────────────────────────────────────────────────

// MintMigrations returns the mint request schema migration statements.
func MintMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS mint_requests (
			id            TEXT PRIMARY KEY,
			recipient     TEXT NOT NULL,
			action_hash   TEXT NOT NULL,
			amount        TEXT NOT NULL,
			evidence_hash TEXT NOT NULL,
			nonce         INTEGER NOT NULL,
			deadline      TEXT NOT NULL,
			status        TEXT NOT NULL DEFAULT 'pending',
			created_by    TEXT NOT NULL,
			created_at    TEXT NOT NULL,
			updated_at    TEXT NOT NULL,
			tx_hash       TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_mint_status ON mint_requests(status)`,

		`CREATE TABLE IF NOT EXISTS mint_signatures (
			request_id TEXT NOT NULL REFERENCES mint_requests(id),
			signer     TEXT NOT NULL,
			signature  TEXT NOT NULL,
			signed_at  TEXT NOT NULL,
			PRIMARY KEY (request_id, signer)
		)`,
	}
}

// ─── Mint Request Operations ────────────────────────────────────────────────

// SaveRequest inserts or updates a mint request.
func (db *DB) SaveRequest(req *domain.MintRequest) error {
	_, err := db.db.Exec(`
		INSERT INTO mint_requests
			(id, recipient, action_hash, amount, evidence_hash, nonce, deadline, status, created_by, created_at, updated_at, tx_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status     = excluded.status,
			updated_at = excluded.updated_at,
			tx_hash    = excluded.tx_hash
	`, req.ID, req.Recipient, req.ActionHash, req.Amount, req.EvidenceHash, req.Nonce,
		req.Deadline.UTC().Format(time.RFC3339), string(req.Status), req.CreatedBy,
		req.CreatedAt.UTC().Format(time.RFC3339), req.UpdatedAt.UTC().Format(time.RFC3339),
		nullable(req.TxHash))
	if err != nil {
		return fmt.Errorf("sqlite: save mint request: %w", err)
	}
	return nil
}

// GetRequest returns one mint request by ID.
func (db *DB) GetRequest(id string) (*domain.MintRequest, error) {
	req, err := scanRequest(db.db.QueryRow(`
		SELECT id, recipient, action_hash, amount, evidence_hash, nonce, deadline, status, created_by, created_at, updated_at, tx_hash
		FROM mint_requests WHERE id = ?
	`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrRequestNotFound
	}
	return req, err
}

// ListRequests returns requests in the given status ("" for all),
// newest first.
func (db *DB) ListRequests(status domain.RequestStatus) ([]*domain.MintRequest, error) {
	query := `
		SELECT id, recipient, action_hash, amount, evidence_hash, nonce, deadline, status, created_by, created_at, updated_at, tx_hash
		FROM mint_requests`
	args := []interface{}{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.MintRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, req)
	}
	return out, rows.Err()
}

// AddSignature records one attester signature. The composite primary key
// makes duplicate signatures from the same signer a constraint violation.
func (db *DB) AddSignature(sig domain.MintSignature) error {
	_, err := db.db.Exec(`
		INSERT INTO mint_signatures (request_id, signer, signature, signed_at)
		VALUES (?, ?, ?, ?)
	`, sig.RequestID, sig.Signer, sig.Signature, sig.SignedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("sqlite: add signature: %w", err)
	}
	return nil
}

// Signatures returns all signatures for a request, in arrival order.
func (db *DB) Signatures(requestID string) ([]domain.MintSignature, error) {
	rows, err := db.db.Query(`
		SELECT request_id, signer, signature, signed_at
		FROM mint_signatures WHERE request_id = ? ORDER BY signed_at
	`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.MintSignature
	for rows.Next() {
		var sig domain.MintSignature
		var ts string
		if err := rows.Scan(&sig.RequestID, &sig.Signer, &sig.Signature, &ts); err != nil {
			return nil, err
		}
		sig.SignedAt, _ = time.Parse(time.RFC3339, ts)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// ─── Scan Helpers ───────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRequest(row rowScanner) (*domain.MintRequest, error) {
	var req domain.MintRequest
	var deadline, createdAt, updatedAt string
	var txHash sql.NullString
	err := row.Scan(&req.ID, &req.Recipient, &req.ActionHash, &req.Amount, &req.EvidenceHash,
		&req.Nonce, &deadline, (*string)(&req.Status), &req.CreatedBy, &createdAt, &updatedAt, &txHash)
	if err != nil {
		return nil, err
	}
	req.Deadline, _ = time.Parse(time.RFC3339, deadline)
	req.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	req.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	req.TxHash = txHash.String
	return &req, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
