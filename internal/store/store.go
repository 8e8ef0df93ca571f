// Package store persists activity event records in SQLite so categories and
// sessions can be queried across many runs. The NDJSON event log remains the
// wire-format source of truth; the store is the query surface over it.
package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mlinna/devlog/internal/event"
)

// Store wraps the SQLite connection.
type Store struct {
	sql  *sql.DB
	path string
}

// Open opens or creates the database, applies pragmas, and runs migrations.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	if err := migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{sql: sqlDB, path: dbPath}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// Emit inserts one record; Store satisfies event.Sink so the pipeline can
// write straight to it.
func (s *Store) Emit(r event.Record) error {
	return s.Insert(r)
}

// Insert stores one event record.
func (s *Store) Insert(r event.Record) error {
	_, err := s.sql.Exec(`
		INSERT INTO events (
			time, sequence, build_id, run_id, file_path, filename,
			line, col, lang, phase, severity, error_category, error_type,
			full_message, stack_trace_depth, stack_trace,
			success, error_count, warning_count, message, executor, exit_code, text
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Time, string(r.Sequence), nullStr(r.BuildID), nullStr(r.RunID),
		nullStr(r.FilePath), nullStr(r.Filename),
		nullInt(r.Line), nullInt(r.Column),
		nullStr(r.Lang), nullStr(string(r.Phase)), nullStr(string(r.Severity)),
		nullStr(r.ErrorCategory), nullStr(r.ErrorType),
		nullStr(r.FullMessage), nullInt(r.StackTraceDepth), nullStr(r.StackTrace),
		nullBoolPtr(r.Success), nullIntPtr(r.ErrorCount), nullIntPtr(r.WarningCount),
		nullStr(r.Message), nullStr(r.Executor), nullIntPtr(r.ExitCode), nullStr(r.Text),
	)
	if err != nil {
		return fmt.Errorf("inserting event: %w", err)
	}
	return nil
}

// CategoryCount is one row of the category frequency report.
type CategoryCount struct {
	Lang     string
	Phase    string
	Category string
	Count    int
}

// CategoryCounts returns normalized-error frequencies, most common first.
func (s *Store) CategoryCounts() ([]CategoryCount, error) {
	rows, err := s.sql.Query(`
		SELECT COALESCE(lang, ''), COALESCE(phase, ''), COALESCE(error_category, ''), COUNT(*)
		FROM events
		WHERE sequence = ? AND error_category IS NOT NULL
		GROUP BY lang, phase, error_category
		ORDER BY COUNT(*) DESC, error_category`,
		string(event.SeqErrorNormalized))
	if err != nil {
		return nil, fmt.Errorf("querying categories: %w", err)
	}
	defer rows.Close()

	var out []CategoryCount
	for rows.Next() {
		var c CategoryCount
		if err := rows.Scan(&c.Lang, &c.Phase, &c.Category, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning category row: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SessionSummary aggregates one build or run session.
type SessionSummary struct {
	ID         string
	Kind       string // "build" or "run"
	Start      string
	End        string
	ErrorCount int
}

// RecentSessions lists the latest build and run sessions, newest first.
func (s *Store) RecentSessions(limit int) ([]SessionSummary, error) {
	rows, err := s.sql.Query(`
		SELECT id, kind, MIN(time), MAX(time), SUM(is_error) FROM (
			SELECT build_id AS id, 'build' AS kind, time,
			       CASE WHEN sequence = 'ErrorNormalized' AND severity = 'error' THEN 1 ELSE 0 END AS is_error
			FROM events WHERE build_id IS NOT NULL
			UNION ALL
			SELECT run_id AS id, 'run' AS kind, time,
			       CASE WHEN sequence = 'ErrorNormalized' THEN 1 ELSE 0 END AS is_error
			FROM events WHERE run_id IS NOT NULL
		)
		GROUP BY id, kind
		ORDER BY MIN(time) DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying sessions: %w", err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var sum SessionSummary
		if err := rows.Scan(&sum.ID, &sum.Kind, &sum.Start, &sum.End, &sum.ErrorCount); err != nil {
			return nil, fmt.Errorf("scanning session row: %w", err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Prune deletes events older than the cutoff. Returns the number removed.
func (s *Store) Prune(olderThan time.Time) (int64, error) {
	res, err := s.sql.Exec(`DELETE FROM events WHERE time < ?`,
		olderThan.Format(event.TimeLayout))
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("pruning events: %w", err)
	}
	return n, nil
}

// Count returns the total number of stored events.
func (s *Store) Count() (int, error) {
	var n int
	if err := s.sql.QueryRow(`SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting events: %w", err)
	}
	return n, nil
}

func nullStr(v string) any {
	if v == "" {
		return nil
	}
	return v
}

func nullInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

func nullIntPtr(v *int) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullBoolPtr(v *bool) any {
	if v == nil {
		return nil
	}
	return *v
}
