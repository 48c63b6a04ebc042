package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"

	"github.com/shaktayankumarCozentus/ITT-backend-sub003/pkg/audit"
)

const sqliteSchemaVersion = 1

// SQLite persists audit records in a local SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (and creates if necessary) the database at path and
// ensures the schema is current.
func NewSQLite(path string) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("store: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: ping %s: %w", path, err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	_, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL PRIMARY KEY);`)
	if err != nil {
		return fmt.Errorf("store: create schema_version: %w", err)
	}

	var version int
	err = s.db.QueryRow(`SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (?);`, sqliteSchemaVersion); err != nil {
			return fmt.Errorf("store: record schema version: %w", err)
		}
	} else if err != nil {
		return fmt.Errorf("store: query schema version: %w", err)
	}

	statements := []string{
		`CREATE TABLE IF NOT EXISTS audit_records (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			correlation_id TEXT    NOT NULL,
			principal      TEXT    NOT NULL DEFAULT '',
			roles          TEXT    NOT NULL DEFAULT '[]',
			method         TEXT    NOT NULL,
			path           TEXT    NOT NULL,
			request_body   TEXT,
			response_body  TEXT,
			error_summary  TEXT,
			started_at     TEXT    NOT NULL,
			duration_ns    INTEGER NOT NULL,
			status_code    INTEGER,
			remote_addr    TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_correlation
			ON audit_records (correlation_id);`,
		`CREATE INDEX IF NOT EXISTS idx_audit_records_started_at
			ON audit_records (started_at);`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("store: create audit_records: %w", err)
		}
	}
	return nil
}

// Store inserts one record.
func (s *SQLite) Store(ctx context.Context, rec *audit.Record) error {
	roles, err := json.Marshal(rec.Roles)
	if err != nil {
		roles = []byte("[]")
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO audit_records (
			correlation_id, principal, roles, method, path,
			request_body, response_body, error_summary,
			started_at, duration_ns, status_code, remote_addr
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?);`,
		rec.CorrelationID,
		rec.Principal,
		string(roles),
		rec.Method,
		rec.Path,
		nullString(string(rec.RequestBody)),
		nullString(string(rec.ResponseBody)),
		nullString(rec.ErrorSummary),
		rec.StartedAt.UTC().Format(time.RFC3339Nano),
		int64(rec.Duration),
		rec.StatusCode,
		rec.RemoteAddr,
	)
	if err != nil {
		return fmt.Errorf("store: insert record: %w", err)
	}
	return nil
}

// CountByCorrelation returns how many records carry the given correlation
// id, for reconciliation and tests.
func (s *SQLite) CountByCorrelation(ctx context.Context, correlationID string) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_records WHERE correlation_id = ?;`, correlationID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count records: %w", err)
	}
	return n, nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

var _ audit.Store = (*SQLite)(nil)
