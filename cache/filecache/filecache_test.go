package filecache

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/nevindra/docex"
)

func sampleEntry() *docex.CacheEntry {
	return &docex.CacheEntry{
		Result: &docex.ExtractionResult{
			Metadata: docex.PDFMetadata{
				Filename: "edital.pdf",
				Filepath: "/docs/edital.pdf",
				NumPages: 2,
				Title:    "Edital",
				FileHash: "0123456789abcdef",
			},
			Pages: []docex.PageContent{
				{PageNumber: 1, Text: "Preço & condições <b>", Tables: []docex.Table{{{"a", "b"}, {"1", "2"}}}, ExtractionMethod: docex.MethodNative},
				{PageNumber: 2, Text: "scan", Tables: []docex.Table{}, HasImages: true, ExtractionMethod: docex.MethodOCR},
			},
			Warnings:         []string{"page 2: low text yield (4 chars); ocr unavailable"},
			ExtractionTimeMs: 12.5,
		},
		TablesExtracted: true,
	}
}

var key = docex.CacheKey{Stem: "edital", Hash: "0123456789abcdef"}

func TestRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "transcriptions")
	c := New(dir)
	ctx := context.Background()

	got, err := c.Load(ctx, key)
	if err != nil || got != nil {
		t.Fatalf("Load before save = %v, %v", got, err)
	}

	want := sampleEntry()
	if err := c.Save(ctx, key, want); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "edital_0123456789abcdef.json")); err != nil {
		t.Fatalf("entry file: %v", err)
	}

	got, err = c.Load(ctx, key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load = %+v, want %+v", got.Result, want.Result)
	}
	if err := docex.ValidateEntry(key, got); err != nil {
		t.Errorf("ValidateEntry: %v", err)
	}
}

func TestSaveReplacesAndLeavesNoTemp(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	ctx := context.Background()

	e := sampleEntry()
	if err := c.Save(ctx, key, e); err != nil {
		t.Fatal(err)
	}
	e.TablesExtracted = false
	e.Result.Warnings = []string{}
	if err := c.Save(ctx, key, e); err != nil {
		t.Fatal(err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, de := range entries {
			names = append(names, de.Name())
		}
		t.Fatalf("dir entries = %v, want a single file", names)
	}

	got, err := c.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if got.TablesExtracted || len(got.Result.Warnings) != 0 {
		t.Errorf("second save not visible: %+v", got)
	}
}

func TestCorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, key.String()+".json"), []byte(`{"metadata": {`), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := New(dir).Load(context.Background(), key)
	if err != nil || got != nil {
		t.Errorf("Load = %v, %v; want miss", got, err)
	}
}

func TestSaveErrors(t *testing.T) {
	ctx := context.Background()
	if err := New(t.TempDir()).Save(ctx, key, nil); err == nil {
		t.Error("expected error for nil entry")
	}

	// A regular file where the directory should be.
	blocker := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(blocker, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := New(blocker).Save(ctx, key, sampleEntry()); err == nil {
		t.Error("expected error when cache dir is a file")
	}

	canceled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := New(t.TempDir()).Load(canceled, key); err == nil {
		t.Error("expected context error")
	}
}

func TestFailedSaveKeepsPreviousEntry(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	ctx := context.Background()

	want := sampleEntry()
	if err := c.Save(ctx, key, want); err != nil {
		t.Fatal(err)
	}

	bad := sampleEntry()
	bad.Result.ExtractionTimeMs = math.NaN()
	if err := c.Save(ctx, key, bad); err == nil {
		t.Fatal("expected encode error for NaN extraction time")
	}

	got, err := c.Load(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("entry after failed save = %+v, want %+v", got.Result, want.Result)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, de := range entries {
		if strings.HasSuffix(de.Name(), ".tmp") {
			t.Errorf("temp file left behind: %s", de.Name())
		}
	}
	if len(entries) != 1 {
		t.Errorf("dir entries = %d, want 1", len(entries))
	}
}

// fakeText serves one document whose pages carry fixed raw text.
type fakeText struct{ pages []string }

func (f fakeText) Open(string) (docex.Document, error) { return fakeDoc(f), nil }

type fakeDoc fakeText

func (d fakeDoc) NumPages() int            { return len(d.pages) }
func (d fakeDoc) Info() docex.DocumentInfo { return docex.DocumentInfo{NumPages: len(d.pages)} }
func (d fakeDoc) Close() error             { return nil }
func (d fakeDoc) Page(n int) (docex.Page, error) {
	return fakePage(d.pages[n-1]), nil
}

type fakePage string

func (p fakePage) Text() (string, error) { return string(p), nil }
func (p fakePage) HasImages() bool       { return false }

func TestProcessorCacheHitMatchesFresh(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "edital.pdf"), []byte("v1"), 0o644); err != nil {
		t.Fatal(err)
	}
	raw := "Edital \x00A\xff\xfe de obras e servicos de engenharia para a reforma do predio"
	p := docex.New(root, fakeText{pages: []string{raw}}, docex.WithCache(New(t.TempDir())))
	ctx := context.Background()

	first, err := p.Extract(ctx, "edital.pdf")
	if err != nil {
		t.Fatal(err)
	}
	second, err := p.Extract(ctx, "edital.pdf")
	if err != nil {
		t.Fatal(err)
	}
	if !utf8.ValidString(first.Pages[0].Text) {
		t.Errorf("fresh text is not valid UTF-8: %q", first.Pages[0].Text)
	}
	if first.Pages[0].Text != second.Pages[0].Text {
		t.Errorf("cached text = %q, fresh = %q", second.Pages[0].Text, first.Pages[0].Text)
	}
	if !reflect.DeepEqual(first.Pages, second.Pages) || !reflect.DeepEqual(first.Metadata, second.Metadata) {
		t.Errorf("cache hit differs from fresh extraction:\n%+v\n%+v", first, second)
	}
}
