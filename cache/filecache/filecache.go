// Package filecache stores extraction results as JSON files, one per
// document version, named "<stem>_<hash>.json".
package filecache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/nevindra/docex"
)

var _ docex.Cache = (*Cache)(nil)

// Cache is a directory of JSON transcription files.
type Cache struct {
	dir    string
	logger *slog.Logger
}

// Option configures a Cache.
type Option func(*Cache)

// WithLogger sets the logger used to report unreadable entries.
func WithLogger(l *slog.Logger) Option {
	return func(c *Cache) { c.logger = l }
}

// New creates a cache rooted at dir. The directory is created on first Save.
func New(dir string, opts ...Option) *Cache {
	c := &Cache{dir: dir, logger: slog.New(slog.DiscardHandler)}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Dir returns the cache directory.
func (c *Cache) Dir() string { return c.dir }

// entry is the on-disk form.
type entry struct {
	Metadata         docex.PDFMetadata   `json:"metadata"`
	Pages            []docex.PageContent `json:"pages"`
	Warnings         []string            `json:"warnings"`
	TablesExtracted  bool                `json:"tables_extracted"`
	ExtractionTimeMs float64             `json:"extraction_time_ms"`
}

func (c *Cache) path(key docex.CacheKey) string {
	return filepath.Join(c.dir, key.String()+".json")
}

// Load reads the entry for key. A missing or undecodable file is a miss.
func (c *Cache) Load(ctx context.Context, key docex.CacheKey) (*docex.CacheEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path := c.path(key)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("filecache: read %s: %w", path, err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		c.logger.Warn("docex: corrupt cache entry", "path", path, "error", err)
		return nil, nil
	}
	if e.Pages == nil {
		e.Pages = []docex.PageContent{}
	}
	if e.Warnings == nil {
		e.Warnings = []string{}
	}
	return &docex.CacheEntry{
		Result: &docex.ExtractionResult{
			Metadata:         e.Metadata,
			Pages:            e.Pages,
			Warnings:         e.Warnings,
			ExtractionTimeMs: e.ExtractionTimeMs,
		},
		TablesExtracted: e.TablesExtracted,
	}, nil
}

// Save writes the entry for key through a temporary file in the same
// directory followed by a rename, so readers never see a partial file.
func (c *Cache) Save(ctx context.Context, key docex.CacheKey, ce *docex.CacheEntry) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}
	if ce == nil || ce.Result == nil {
		return fmt.Errorf("filecache: nil entry for %s", key)
	}
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("filecache: %w", err)
	}

	tmp, err := os.CreateTemp(c.dir, "."+key.String()+"-*.tmp")
	if err != nil {
		return fmt.Errorf("filecache: %w", err)
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	r := ce.Result
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err = enc.Encode(entry{
		Metadata:         r.Metadata,
		Pages:            r.Pages,
		Warnings:         r.Warnings,
		TablesExtracted:  ce.TablesExtracted,
		ExtractionTimeMs: r.ExtractionTimeMs,
	}); err != nil {
		return fmt.Errorf("filecache: encode %s: %w", key, err)
	}
	if err = tmp.Sync(); err != nil {
		return fmt.Errorf("filecache: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("filecache: %w", err)
	}
	if err = os.Rename(tmp.Name(), c.path(key)); err != nil {
		return fmt.Errorf("filecache: %w", err)
	}
	return nil
}
