package pdfinfo

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nevindra/docex/internal/pdftest"
)

func TestInspect(t *testing.T) {
	path := pdftest.Write(t, t.TempDir(), "doc.pdf", pdftest.Doc{
		Info: map[string]string{
			"Title":        "Termo de Referencia",
			"Author":       "Secretaria de Obras",
			"Subject":      "Pavimentacao",
			"Creator":      "Writer",
			"CreationDate": "D:20240315120000Z",
		},
		Pages: []pdftest.Page{pdftest.Lines("a"), pdftest.Lines("b"), {Image: true}},
	})

	info, err := New().Inspect(path)
	if err != nil {
		t.Fatalf("Inspect: %v", err)
	}
	if info.NumPages != 3 {
		t.Errorf("NumPages = %d, want 3", info.NumPages)
	}
	if info.Title != "Termo de Referencia" || info.Author != "Secretaria de Obras" {
		t.Errorf("info = %+v", info)
	}
	if info.Subject != "Pavimentacao" || info.Creator != "Writer" {
		t.Errorf("info = %+v", info)
	}
	if !strings.Contains(info.CreationDate, "20240315") {
		t.Errorf("CreationDate = %q", info.CreationDate)
	}
}

func TestInspectErrors(t *testing.T) {
	dir := t.TempDir()
	if _, err := New().Inspect(filepath.Join(dir, "missing.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
	bad := filepath.Join(dir, "bad.pdf")
	if err := os.WriteFile(bad, []byte("%PDF-1.4\ngarbage"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := New().Inspect(bad); err == nil {
		t.Error("expected error for malformed file")
	}
}
