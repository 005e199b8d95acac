package audit

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

func record(t *testing.T, s Sink, tools ...string) {
	t.Helper()
	for i, tool := range tools {
		e := NewEntry(tool, map[string]any{"filepath": "edital.pdf", "n": i})
		e.Success = i%2 == 0
		e.DurationMs = float64(i) + 0.5
		e.ResultSummary = "ok"
		if err := s.Record(context.Background(), e); err != nil {
			t.Fatalf("Record(%s): %v", tool, err)
		}
	}
}

func checkRecent(t *testing.T, r Reader) {
	t.Helper()
	got, err := r.Recent(context.Background(), 2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Recent = %d entries, want 2", len(got))
	}
	if got[0].Tool != "search_pdf_content" || got[1].Tool != "extract_pdf_text" {
		t.Errorf("order = %s, %s", got[0].Tool, got[1].Tool)
	}
	if got[0].Params["filepath"] != "edital.pdf" {
		t.Errorf("params = %v", got[0].Params)
	}
	if !got[0].Success || got[1].Success {
		t.Errorf("success flags = %v, %v", got[0].Success, got[1].Success)
	}
	if got[0].DurationMs != 2.5 || got[0].Timestamp.IsZero() {
		t.Errorf("entry = %+v", got[0])
	}
}

func TestNewEntry(t *testing.T) {
	a := NewEntry("list_pdfs", nil)
	b := NewEntry("list_pdfs", nil)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids = %q, %q", a.ID, b.ID)
	}
	if a.ID >= b.ID {
		t.Errorf("ids not time-ordered: %q >= %q", a.ID, b.ID)
	}
	if a.Params == nil {
		t.Error("Params is nil")
	}
}

func TestJSONL(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "audit.jsonl")
	s, err := NewJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	record(t, s, "list_pdfs", "extract_pdf_text", "search_pdf_content")
	checkRecent(t, s)
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(string(data), "\n"); n != 3 {
		t.Errorf("lines = %d, want 3", n)
	}

	// Reopening appends.
	s, err = NewJSONL(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	record(t, s, "list_pdfs")
	all, err := s.Recent(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 4 {
		t.Errorf("entries = %d, want 4", len(all))
	}
}

func TestJSONLClosed(t *testing.T) {
	s, err := NewJSONL(filepath.Join(t.TempDir(), "a.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	s.Close()
	if err := s.Record(context.Background(), NewEntry("x", nil)); err == nil {
		t.Error("expected error after Close")
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	s, err := Open(ctx, Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "audit.db")}, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	if err := s.(*SQLite).Init(ctx); err != nil {
		t.Fatalf("second Init: %v", err)
	}
	record(t, s, "list_pdfs", "extract_pdf_text", "search_pdf_content")
	checkRecent(t, s.(Reader))
}

func TestPostgres(t *testing.T) {
	dsn := os.Getenv("DOCEX_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("DOCEX_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, `DROP TABLE IF EXISTS docex_audit_log`); err != nil {
		t.Fatal(err)
	}

	s := NewPostgres(pool)
	if err := s.Init(ctx); err != nil {
		t.Fatal(err)
	}
	record(t, s, "list_pdfs", "extract_pdf_text", "search_pdf_content")
	checkRecent(t, s)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"default is jsonl", Config{Path: filepath.Join(t.TempDir(), "a.jsonl")}, false},
		{"none", Config{Driver: "none"}, false},
		{"postgres without dsn", Config{Driver: "postgres"}, true},
		{"jsonl without path", Config{Driver: "jsonl"}, true},
		{"unknown", Config{Driver: "kafka"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Open(ctx, tt.cfg, nil)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && s != nil {
				t.Fatalf("Open returned a non-nil %T alongside %v", s, err)
			}
			if s != nil {
				s.Close()
			}
		})
	}
}

func TestSummarize(t *testing.T) {
	tests := []struct {
		name   string
		result any
		err    error
		want   string
	}{
		{"error", nil, errors.New("boom"), "error: boom"},
		{
			"object",
			map[string]any{"success": true, "total": 2, "pdfs": []string{"a", "b"}, "filename": "a.pdf"},
			nil,
			"filename=a.pdf, pdfs=[2], success=true, total=2",
		},
		{
			"long string",
			map[string]any{"markdown": strings.Repeat("x", 500)},
			nil,
			"markdown=<500 chars>",
		},
		{"nested", map[string]any{"metadata": map[string]any{"a": 1, "b": 2}}, nil, "metadata={2}"},
		{"scalar", 42, nil, "42"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Summarize(tt.result, tt.err); got != tt.want {
				t.Errorf("Summarize = %q, want %q", got, tt.want)
			}
		})
	}
}
