package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure-Go SQLite driver
)

// SQLite stores entries in a local SQLite database.
type SQLite struct {
	db  *sql.DB
	cfg dbConfig
}

var (
	_ Sink   = (*SQLite)(nil)
	_ Reader = (*SQLite)(nil)
)

// NewSQLite opens the database at path. A single connection serializes all
// writers so concurrent tool calls never see SQLITE_BUSY.
func NewSQLite(path string, opts ...Option) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("audit: open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	return &SQLite{db: db, cfg: newDBConfig(opts)}, nil
}

// Init creates the audit table. Safe to call more than once.
func (s *SQLite) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS audit_log (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			tool TEXT NOT NULL,
			params TEXT NOT NULL,
			success INTEGER NOT NULL,
			duration_ms REAL NOT NULL,
			result_summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS audit_log_tool_idx ON audit_log(tool)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("audit: init sqlite: %w", err)
		}
	}
	return nil
}

// Record inserts e.
func (s *SQLite) Record(ctx context.Context, e Entry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("audit: encode params: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, ts, tool, params, success, duration_ms, result_summary)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.Timestamp.UTC().Format(time.RFC3339Nano), e.Tool, string(params),
		e.Success, e.DurationMs, e.ResultSummary)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	s.cfg.logger.Debug("audit: recorded", "tool", e.Tool, "id", e.ID, "success", e.Success)
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *SQLite) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, ts, tool, params, success, duration_ms, result_summary
		 FROM audit_log ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			ts     string
			params string
		)
		if err := rows.Scan(&e.ID, &ts, &e.Tool, &params, &e.Success, &e.DurationMs, &e.ResultSummary); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if e.Timestamp, err = time.Parse(time.RFC3339Nano, ts); err != nil {
			return nil, fmt.Errorf("audit: entry %s: %w", e.ID, err)
		}
		if err := json.Unmarshal([]byte(params), &e.Params); err != nil {
			return nil, fmt.Errorf("audit: entry %s params: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
