// Event ingestion schema and operations.
package sqlite

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/funmoney-network/pplp/internal/domain"
)

// ─── Event Schema ───────────────────────────────────────────────────────────

// EventMigrations returns the ingested-event schema migration statements.
func EventMigrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS ingested_events (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			trace_id    TEXT NOT NULL,
			event_name  TEXT NOT NULL,
			user_id     TEXT,
			occurred_at TEXT,
			properties  TEXT NOT NULL DEFAULT '{}',
			ingested_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_user ON ingested_events(user_id, ingested_at)`,
		`CREATE INDEX IF NOT EXISTS idx_events_name ON ingested_events(event_name)`,
	}
}

// ─── Event Operations ───────────────────────────────────────────────────────

// InsertEvents stores an accepted batch under one trace ID, atomically.
func (db *DB) InsertEvents(traceID string, events []domain.EventEnvelope, now time.Time) error {
	tx, err := db.db.Begin()
	if err != nil {
		return fmt.Errorf("sqlite: begin: %w", err)
	}
	defer tx.Rollback()

	ts := now.UTC().Format(time.RFC3339)
	for _, ev := range events {
		props, err := json.Marshal(ev.Properties)
		if err != nil {
			return fmt.Errorf("sqlite: marshal properties: %w", err)
		}
		occurred := ""
		if !ev.OccurredAt.IsZero() {
			occurred = ev.OccurredAt.UTC().Format(time.RFC3339)
		}
		if _, err := tx.Exec(`
			INSERT INTO ingested_events (trace_id, event_name, user_id, occurred_at, properties, ingested_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, traceID, ev.EventName, ev.UserID, occurred, string(props), ts); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// EventCount returns the total number of ingested events.
func (db *DB) EventCount() (int64, error) {
	var n int64
	err := db.db.QueryRow(`SELECT COUNT(*) FROM ingested_events`).Scan(&n)
	return n, err
}
