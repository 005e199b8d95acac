// Package audit records one entry per tool call made against the extraction
// service. Entries go to a JSON Lines file, a SQLite table or a PostgreSQL
// table depending on configuration.
package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Entry is a single audited tool call.
type Entry struct {
	ID            string         `json:"id"`
	Timestamp     time.Time      `json:"timestamp"`
	Tool          string         `json:"tool"`
	Params        map[string]any `json:"params"`
	Success       bool           `json:"success"`
	DurationMs    float64        `json:"duration_ms"`
	ResultSummary string         `json:"result_summary"`
}

// NewEntry starts an entry for a call to tool. IDs are UUIDv7 so that they
// sort by creation time.
func NewEntry(tool string, params map[string]any) Entry {
	if params == nil {
		params = map[string]any{}
	}
	return Entry{
		ID:        newID(),
		Timestamp: time.Now().UTC(),
		Tool:      tool,
		Params:    params,
	}
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Sink persists audit entries.
type Sink interface {
	Record(ctx context.Context, e Entry) error
	Close() error
}

// Reader is implemented by sinks that can return their most recent entries,
// newest first.
type Reader interface {
	Recent(ctx context.Context, limit int) ([]Entry, error)
}

// Config selects and parameterizes a sink.
type Config struct {
	// Driver is one of "jsonl", "sqlite", "postgres" or "none".
	Driver string
	// Path is the JSONL file or SQLite database path.
	Path string
	// DSN is the PostgreSQL connection string.
	DSN string
}

// Open builds the sink selected by cfg. The returned sink owns any
// connection it opened.
func Open(ctx context.Context, cfg Config, logger *slog.Logger) (Sink, error) {
	if logger == nil {
		logger = nopLogger
	}
	switch cfg.Driver {
	case "", "jsonl":
		j, err := NewJSONL(cfg.Path)
		if err != nil {
			return nil, err
		}
		return j, nil
	case "sqlite":
		s, err := NewSQLite(cfg.Path, WithLogger(logger))
		if err != nil {
			return nil, err
		}
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "postgres":
		if cfg.DSN == "" {
			return nil, fmt.Errorf("audit: postgres driver needs a DSN")
		}
		pool, err := pgxpool.New(ctx, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("audit: connect: %w", err)
		}
		s := NewPostgres(pool, WithLogger(logger))
		s.ownsPool = true
		if err := s.Init(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case "none":
		return Nop{}, nil
	default:
		return nil, fmt.Errorf("audit: unknown driver %q", cfg.Driver)
	}
}

// Nop discards entries.
type Nop struct{}

func (Nop) Record(context.Context, Entry) error { return nil }
func (Nop) Close() error                        { return nil }

// Summarize produces the short result summary stored with an entry: the
// error text for failures, otherwise the keys of a result object with their
// scalar values or collection sizes.
func Summarize(result any, err error) string {
	if err != nil {
		return "error: " + err.Error()
	}
	data, mErr := json.Marshal(result)
	if mErr != nil {
		return ""
	}
	var obj map[string]json.RawMessage
	if json.Unmarshal(data, &obj) != nil {
		return truncate(string(data), 200)
	}
	keys := slices.Sorted(maps.Keys(obj))
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+summarizeValue(obj[k]))
	}
	return truncate(strings.Join(parts, ", "), 200)
}

func summarizeValue(raw json.RawMessage) string {
	var v any
	if json.Unmarshal(raw, &v) != nil {
		return "?"
	}
	switch x := v.(type) {
	case []any:
		return fmt.Sprintf("[%d]", len(x))
	case map[string]any:
		return fmt.Sprintf("{%d}", len(x))
	case string:
		if len(x) > 40 {
			return fmt.Sprintf("<%d chars>", len([]rune(x)))
		}
		return x
	default:
		return string(raw)
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }

// Option configures the database-backed sinks.
type Option func(*dbConfig)

type dbConfig struct {
	logger *slog.Logger
}

// WithLogger sets a logger that receives a debug line per recorded entry.
func WithLogger(l *slog.Logger) Option {
	return func(c *dbConfig) { c.logger = l }
}

func newDBConfig(opts []Option) dbConfig {
	c := dbConfig{logger: nopLogger}
	for _, o := range opts {
		o(&c)
	}
	return c
}
