// Package sqlite is the persistence layer: wallet accounts, the
// hash-chained ledger, idempotency cache, mint requests and ingested
// events, all in one embedded database.
//
// Schema lives in migration lists — each string is a single SQL statement,
// executed in order at Open.
package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection with typed operations.
type DB struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and applies all
// migrations. Use ":memory:" for tests.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %s: %w", path, err)
	}

	// Single writer; sqlite serializes writes anyway and this avoids
	// SQLITE_BUSY under concurrent API calls.
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec(`PRAGMA journal_mode=WAL`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enable WAL: %w", err)
	}
	if _, err := conn.Exec(`PRAGMA foreign_keys=ON`); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enable foreign keys: %w", err)
	}

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, err
	}
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error { return db.db.Close() }

func (db *DB) migrate() error {
	var stmts []string
	stmts = append(stmts, WalletMigrations()...)
	stmts = append(stmts, MintMigrations()...)
	stmts = append(stmts, EventMigrations()...)

	for _, stmt := range stmts {
		if _, err := db.db.Exec(stmt); err != nil {
			return fmt.Errorf("sqlite: migrate: %w", err)
		}
	}
	return nil
}
