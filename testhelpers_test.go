package docex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/nevindra/docex/ocr"
)

// --- Text engine fakes ---

type fakePage struct {
	text   string
	images bool
	err    error
	panics bool
}

func (p fakePage) Text() (string, error) {
	if p.panics {
		panic("malformed content stream")
	}
	return p.text, p.err
}

func (p fakePage) HasImages() bool { return p.images }

type fakeDoc struct {
	pages []fakePage
	info  DocumentInfo
}

func (d *fakeDoc) NumPages() int      { return len(d.pages) }
func (d *fakeDoc) Info() DocumentInfo { return d.info }
func (d *fakeDoc) Close() error       { return nil }

func (d *fakeDoc) Page(number int) (Page, error) {
	if number < 1 || number > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range", number)
	}
	return d.pages[number-1], nil
}

// fakeText serves documents by base filename and counts opens.
type fakeText struct {
	mu    sync.Mutex
	docs  map[string]*fakeDoc
	opens int
}

func newFakeText() *fakeText { return &fakeText{docs: map[string]*fakeDoc{}} }

func (e *fakeText) Open(path string) (Document, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens++
	d, ok := e.docs[filepath.Base(path)]
	if !ok {
		return nil, errors.New("not a pdf")
	}
	return d, nil
}

func (e *fakeText) openCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.opens
}

// --- Table engine fakes ---

type fakeTables struct {
	mu      sync.Mutex
	byPage  map[int][]Table
	errs    map[int]error
	openErr error
	calls   int
}

func (f *fakeTables) OpenTables(string) (TableSource, error) {
	if f.openErr != nil {
		return nil, f.openErr
	}
	return f, nil
}

func (f *fakeTables) Tables(_ context.Context, pageIndex int) ([]Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if err := f.errs[pageIndex]; err != nil {
		return nil, err
	}
	return f.byPage[pageIndex], nil
}

func (f *fakeTables) Close() error { return nil }

func (f *fakeTables) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// --- OCR fakes ---

type fakeOCR struct {
	mu       sync.Mutex
	text     string
	err      error
	probeErr error
	calls    int
	langs    []string
}

func (f *fakeOCR) Name() string { return "fake" }

func (f *fakeOCR) Probe(context.Context) error { return f.probeErr }

func (f *fakeOCR) Recognize(_ context.Context, in ocr.Input) (ocr.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.langs = in.Languages
	if f.err != nil {
		return ocr.Result{}, f.err
	}
	return ocr.Result{InputID: in.ID, PlainText: f.text}, nil
}

func (f *fakeOCR) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// fakeRaster renders every page as a small blank PNG.
type fakeRaster struct {
	mu    sync.Mutex
	calls []int
	err   error
}

func (f *fakeRaster) Rasterize(_ context.Context, _ string, pageIndex, _ int) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pageIndex)
	if f.err != nil {
		return nil, f.err
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 8, 8))); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// --- Cache and inspector fakes ---

type memCache struct {
	mu      sync.Mutex
	entries map[CacheKey]*CacheEntry
	saves   int
	loadErr error
}

func newMemCache() *memCache { return &memCache{entries: map[CacheKey]*CacheEntry{}} }

func (c *memCache) Load(_ context.Context, key CacheKey) (*CacheEntry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loadErr != nil {
		return nil, c.loadErr
	}
	return c.entries[key], nil
}

func (c *memCache) Save(_ context.Context, key CacheKey, e *CacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves++
	c.entries[key] = e
	return nil
}

func (c *memCache) saveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saves
}

type fakeInspector struct {
	info  DocumentInfo
	err   error
	calls int
}

func (f *fakeInspector) Inspect(string) (DocumentInfo, error) {
	f.calls++
	return f.info, f.err
}

// --- Helpers ---

// writeDoc creates a file under dir. Its bytes only matter for hashing.
func writeDoc(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func chars(n int) string { return strings.Repeat("a", n) }

// threePageDoc is a native page, a scanned page and a nearly blank page.
func threePageDoc() *fakeDoc {
	return &fakeDoc{
		info: DocumentInfo{Title: "Edital", Author: "Prefeitura"},
		pages: []fakePage{
			{text: chars(500)},
			{text: "abcde", images: true},
			{text: "vwxyz"},
		},
	}
}
