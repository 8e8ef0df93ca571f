package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// migration is a single schema change.
type migration struct {
	version     int
	description string
	sql         string
}

var migrations = []migration{
	{
		version:     1,
		description: "initial schema: events table with session and classification columns",
		sql:         migration001SQL,
	},
	{
		version:     2,
		description: "indexes for session correlation and category reporting",
		sql:         migration002SQL,
	},
}

const migration001SQL = `
CREATE TABLE events (
    id                INTEGER PRIMARY KEY AUTOINCREMENT,
    time              TEXT NOT NULL,
    sequence          TEXT NOT NULL,
    build_id          TEXT,
    run_id            TEXT,
    file_path         TEXT,
    filename          TEXT,
    line              INTEGER,
    col               INTEGER,
    lang              TEXT,
    phase             TEXT,
    severity          TEXT,
    error_category    TEXT,
    error_type        TEXT,
    full_message      TEXT,
    stack_trace_depth INTEGER,
    stack_trace       TEXT,
    success           INTEGER,
    error_count       INTEGER,
    warning_count     INTEGER,
    message           TEXT,
    executor          TEXT,
    exit_code         INTEGER,
    text              TEXT
);
`

const migration002SQL = `
CREATE INDEX idx_events_time ON events(time);
CREATE INDEX idx_events_sequence ON events(sequence);
CREATE INDEX idx_events_build_id ON events(build_id) WHERE build_id IS NOT NULL;
CREATE INDEX idx_events_run_id ON events(run_id) WHERE run_id IS NOT NULL;
CREATE INDEX idx_events_category ON events(error_category) WHERE error_category IS NOT NULL;
`

// migrate runs all pending migrations inside transactions.
func migrate(db *sql.DB) error {
	if db == nil {
		return errors.New("db is nil")
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER PRIMARY KEY, applied_at DATETIME)`); err != nil {
		return fmt.Errorf("create schema_version: %w", err)
	}

	current, err := currentVersion(db)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if m.version <= current {
			continue
		}

		tx, err := db.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", m.version, err)
		}
		if _, err := tx.Exec(m.sql); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d (%s): %w", m.version, m.description, err)
		}
		if _, err := tx.Exec(`INSERT INTO schema_version (version, applied_at) VALUES (?, CURRENT_TIMESTAMP)`, m.version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", m.version, err)
		}
		current = m.version
	}
	return nil
}

func currentVersion(db *sql.DB) (int, error) {
	var version sql.NullInt64
	err := db.QueryRow(`SELECT MAX(version) FROM schema_version`).Scan(&version)
	if err != nil {
		return 0, fmt.Errorf("reading schema version: %w", err)
	}
	if !version.Valid {
		return 0, nil
	}
	return int(version.Int64), nil
}
