package audit

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres stores entries in PostgreSQL. The pool is owned by the caller
// unless the sink was built by Open.
type Postgres struct {
	pool     *pgxpool.Pool
	cfg      dbConfig
	ownsPool bool
}

var (
	_ Sink   = (*Postgres)(nil)
	_ Reader = (*Postgres)(nil)
)

// NewPostgres creates a sink over an existing pool.
func NewPostgres(pool *pgxpool.Pool, opts ...Option) *Postgres {
	return &Postgres{pool: pool, cfg: newDBConfig(opts)}
}

// Init creates the audit table. Safe to call more than once.
func (p *Postgres) Init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS docex_audit_log (
			id TEXT PRIMARY KEY,
			ts TIMESTAMPTZ NOT NULL,
			tool TEXT NOT NULL,
			params JSONB NOT NULL,
			success BOOLEAN NOT NULL,
			duration_ms DOUBLE PRECISION NOT NULL,
			result_summary TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS docex_audit_log_tool_idx ON docex_audit_log(tool)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("audit: init postgres: %w", err)
		}
	}
	return nil
}

// Record inserts e.
func (p *Postgres) Record(ctx context.Context, e Entry) error {
	params, err := json.Marshal(e.Params)
	if err != nil {
		return fmt.Errorf("audit: encode params: %w", err)
	}
	_, err = p.pool.Exec(ctx,
		`INSERT INTO docex_audit_log (id, ts, tool, params, success, duration_ms, result_summary)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Timestamp, e.Tool, params, e.Success, e.DurationMs, e.ResultSummary)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	p.cfg.logger.Debug("audit: recorded", "tool", e.Tool, "id", e.ID, "success", e.Success)
	return nil
}

// Recent returns up to limit entries, newest first.
func (p *Postgres) Recent(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, ts, tool, params, success, duration_ms, result_summary
		FROM docex_audit_log ORDER BY id DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT $1`
		args = append(args, limit)
	}
	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e      Entry
			params []byte
		)
		if err := rows.Scan(&e.ID, &e.Timestamp, &e.Tool, &params, &e.Success, &e.DurationMs, &e.ResultSummary); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		if err := json.Unmarshal(params, &e.Params); err != nil {
			return nil, fmt.Errorf("audit: entry %s params: %w", e.ID, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close closes the pool if the sink owns it.
func (p *Postgres) Close() error {
	if p.ownsPool {
		p.pool.Close()
	}
	return nil
}
