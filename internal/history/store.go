// Package history persists finished background invocations to SQLite and
// replays them for the history command. Recording happens through an
// Observer subscribed to the invocation's event stream.
package history

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Store errors.
var (
	ErrNotFound    = errors.New("history: record not found")
	ErrAmbiguousID = errors.New("history: id prefix matches more than one record")
)

// Status is the terminal outcome of a recorded invocation.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Record is one finished invocation.
type Record struct {
	ID           string
	Description  string
	Command      string
	Status       Status
	Result       string
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time
	Duration     time.Duration
	LogLines     int
	LastProgress float64
	HasProgress  bool
}

// Store wraps the SQLite connection and path.
type Store struct {
	sql  *sql.DB
	path string
}

// DefaultPath returns the default database path.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".local", "share", "sidework", "sidework.db")
}

// Open opens or creates the database, applies pragmas, and runs
// migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath == "" {
		dbPath = DefaultPath()
	}

	resolved := expandPath(dbPath)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", resolved)
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := applyPragmas(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	if err := Migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}

	return &Store{sql: sqlDB, path: resolved}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.sql == nil {
		return nil
	}
	return s.sql.Close()
}

// SQL returns the raw *sql.DB for advanced usage.
func (s *Store) SQL() *sql.DB {
	if s == nil {
		return nil
	}
	return s.sql
}

// Insert stores one finished record.
func (s *Store) Insert(rec *Record) error {
	var progress any
	if rec.HasProgress {
		progress = rec.LastProgress
	}

	_, err := s.sql.Exec(
		`INSERT INTO invocations (id, description, command, status, result, error, started_at, finished_at, duration_ms, log_lines, last_progress)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Description,
		rec.Command,
		string(rec.Status),
		nullString(rec.Result),
		nullString(rec.Error),
		rec.StartedAt,
		rec.FinishedAt,
		rec.Duration.Milliseconds(),
		rec.LogLines,
		progress,
	)
	if err != nil {
		return fmt.Errorf("insert invocation: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first. limit <= 0 means no
// limit.
func (s *Store) List(limit int) ([]Record, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.sql.Query(
		`SELECT id, description, command, status, result, error, started_at, finished_at, duration_ms, log_lines, last_progress
		 FROM invocations ORDER BY started_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query invocations: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Get returns the record with the given id. A unique id prefix is
// accepted.
func (s *Store) Get(id string) (*Record, error) {
	rows, err := s.sql.Query(
		`SELECT id, description, command, status, result, error, started_at, finished_at, duration_ms, log_lines, last_progress
		 FROM invocations WHERE id LIKE ? || '%' LIMIT 2`, id)
	if err != nil {
		return nil, fmt.Errorf("query invocation: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	switch len(records) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return &records[0], nil
	default:
		return nil, ErrAmbiguousID
	}
}

// Purge deletes records started before the cutoff and reports how many
// went away.
func (s *Store) Purge(before time.Time) (int64, error) {
	result, err := s.sql.Exec(`DELETE FROM invocations WHERE started_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("purge invocations: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return deleted, nil
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var rec Record
	var result, errText sql.NullString
	var durationMS int64
	var progress sql.NullFloat64
	var status string
	if err := rows.Scan(
		&rec.ID,
		&rec.Description,
		&rec.Command,
		&status,
		&result,
		&errText,
		&rec.StartedAt,
		&rec.FinishedAt,
		&durationMS,
		&rec.LogLines,
		&progress,
	); err != nil {
		return Record{}, fmt.Errorf("scan invocation: %w", err)
	}
	rec.Status = Status(status)
	rec.Result = result.String
	rec.Error = errText.String
	rec.Duration = time.Duration(durationMS) * time.Millisecond
	if progress.Valid {
		rec.LastProgress = progress.Float64
		rec.HasProgress = true
	}
	return rec, nil
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func expandPath(path string) string {
	if path == "" || path[0] != '~' {
		return path
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}

	if path == "~" {
		return home
	}

	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:])
	}

	return path
}
