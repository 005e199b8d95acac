package docex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/nevindra/docex/ocr"
)

// Processor extracts text, tables and metadata from the PDFs under one
// document root. It is safe for concurrent use as long as its engines are.
type Processor struct {
	resolver  *Resolver
	text      TextEngine
	tables    TableEngine
	inspector Inspector
	cache     Cache

	ocrEngine    ocr.Engine
	rasterizer   Rasterizer
	ocrLanguages []string
	ocrDPI       int
	ocrReady     bool

	sufficient    Sufficiency
	searchContext int
	searchWorkers int

	logger      *slog.Logger
	tracer      Tracer
	onExtracted []func(context.Context, *ExtractionResult)
	pages       *pageExtractor
}

// New creates a Processor serving documents under root with text as the
// primary engine. Optional engines passed through opts are probed once here.
func New(root string, text TextEngine, opts ...Option) *Processor {
	p := &Processor{
		resolver:      NewResolver(root),
		text:          text,
		ocrLanguages:  []string{DefaultOCRLanguage},
		ocrDPI:        DefaultOCRDPI,
		sufficient:    MinChars(DefaultMinTextChars),
		searchContext: DefaultSearchContext,
		searchWorkers: DefaultSearchWorkers,
		logger:        nopLogger,
	}
	for _, o := range opts {
		o(p)
	}
	p.ocrReady = p.probeOCR(context.Background())

	strategies := []strategy{nativeStrategy{}}
	strategies = append(strategies, &ocrStrategy{
		engine:     p.ocrEngine,
		rasterizer: p.rasterizer,
		available:  p.ocrReady,
		languages:  p.ocrLanguages,
		dpi:        p.ocrDPI,
	})
	p.pages = &pageExtractor{
		strategies: strategies,
		sufficient: p.sufficient,
		logger:     p.logger,
		tracer:     p.tracer,
	}
	return p
}

func (p *Processor) probeOCR(ctx context.Context) bool {
	if p.ocrEngine == nil || p.rasterizer == nil {
		return false
	}
	for _, c := range []any{p.ocrEngine, p.rasterizer} {
		if err := probe(ctx, c); err != nil {
			p.logger.Info("docex: ocr unavailable", "err", err)
			return false
		}
	}
	p.logger.Info("docex: ocr available", "engine", p.ocrEngine.Name(), "dpi", p.ocrDPI)
	return true
}

// OCRAvailable reports whether OCR fallback is active.
func (p *Processor) OCRAvailable() bool { return p.ocrReady }

// Root returns the document root.
func (p *Processor) Root() string { return p.resolver.Root() }

// List enumerates the documents in the root.
func (p *Processor) List() ([]FileInfo, error) {
	return p.resolver.List()
}

// Metadata reads document-level properties of the PDF at path without
// extracting any page content.
func (p *Processor) Metadata(ctx context.Context, path string) (PDFMetadata, error) {
	resolved, err := p.resolver.Resolve(path)
	if err != nil {
		return PDFMetadata{}, err
	}
	id, err := Identify(resolved)
	if err != nil {
		return PDFMetadata{}, err
	}
	size, err := fileSize(resolved)
	if err != nil {
		return PDFMetadata{}, err
	}

	var info DocumentInfo
	if p.inspector != nil {
		if info, err = p.inspector.Inspect(resolved); err != nil {
			return PDFMetadata{}, &ErrCorruptDocument{Path: path, Err: err}
		}
	} else {
		doc, err := p.open(resolved, path)
		if err != nil {
			return PDFMetadata{}, err
		}
		info = docInfo(doc)
		doc.Close()
	}
	return newMetadata(id, size, info), nil
}

// Extract returns the content of the PDF at path, relative to the document
// root. By default the whole document is extracted with tables, and the
// transcription cache is consulted and, for unranged requests, updated.
func (p *Processor) Extract(ctx context.Context, path string, opts ...ExtractOption) (result *ExtractionResult, err error) {
	started := time.Now()
	cfg := extractConfig{tables: true, cache: true}
	for _, o := range opts {
		o(&cfg)
	}
	wantTables := cfg.tables && p.tables != nil
	useCache := cfg.cache && p.cache != nil

	if p.tracer != nil {
		var span Span
		ctx, span = p.tracer.Start(ctx, "docex.extract",
			StringAttr("file", path),
			IntAttr("page.start", cfg.start),
			IntAttr("page.end", cfg.end),
			BoolAttr("tables", wantTables))
		defer func() {
			if err != nil {
				span.Error(err)
			} else {
				span.SetAttr(
					IntAttr("pages", len(result.Pages)),
					IntAttr("warnings", len(result.Warnings)))
			}
			span.End()
		}()
	}

	resolved, err := p.resolver.Resolve(path)
	if err != nil {
		return nil, err
	}
	id, err := Identify(resolved)
	if err != nil {
		return nil, err
	}
	key := KeyFor(id)

	if useCache {
		if cached := p.loadCached(ctx, key, wantTables); cached != nil {
			n := cached.Metadata.NumPages
			first, last := pageWindow(cfg.start, cfg.end, n)
			r := Project(cached, first, last)
			if first > last {
				r.Warnings = append(r.Warnings, emptyWindowWarning(cfg, n))
			}
			r.ExtractionTimeMs = elapsedMs(started)
			return r, nil
		}
	}

	p.logger.Info("docex: extracting", "file", id.Filename, "hash", id.ContentHash)
	r, err := p.extract(ctx, resolved, path, id, cfg, wantTables)
	if err != nil {
		return nil, err
	}
	r.ExtractionTimeMs = elapsedMs(started)

	if useCache && !cfg.ranged() {
		if err := p.cache.Save(ctx, key, &CacheEntry{Result: r, TablesExtracted: wantTables}); err != nil {
			p.logger.Warn("docex: cache save failed", "file", id.Filename, "key", key.String(), "err", err)
		}
	}

	p.logger.Info("docex: extracted", "file", id.Filename,
		"pages", len(r.Pages),
		"chars", r.TotalChars(),
		"tables", r.TotalTables(),
		"ms", r.ExtractionTimeMs)
	for _, fn := range p.onExtracted {
		fn(ctx, r)
	}
	return r, nil
}

// loadCached returns a usable cached result, or nil. Unusable entries are
// logged and treated as misses.
func (p *Processor) loadCached(ctx context.Context, key CacheKey, wantTables bool) *ExtractionResult {
	entry, err := p.cache.Load(ctx, key)
	if err != nil {
		p.logger.Warn("docex: cache load failed", "key", key.String(), "err", err)
		return nil
	}
	if entry == nil {
		p.logger.Info("docex: cache miss", "key", key.String())
		return nil
	}
	if err := ValidateEntry(key, entry); err != nil {
		p.logger.Warn("docex: cache entry corrupt", "key", key.String(), "err", err)
		return nil
	}
	if wantTables && !entry.TablesExtracted {
		p.logger.Info("docex: cache entry lacks tables", "key", key.String())
		return nil
	}
	p.logger.Info("docex: cache hit", "key", key.String())
	if !wantTables && entry.TablesExtracted {
		return withoutTables(entry.Result)
	}
	return entry.Result
}

func (p *Processor) extract(ctx context.Context, resolved, path string, id PDFIdentity, cfg extractConfig, wantTables bool) (*ExtractionResult, error) {
	doc, err := p.open(resolved, path)
	if err != nil {
		return nil, err
	}
	defer doc.Close()

	size, err := fileSize(resolved)
	if err != nil {
		return nil, err
	}
	meta := newMetadata(id, size, p.extractionInfo(resolved, doc))

	r := &ExtractionResult{Metadata: meta, Pages: []PageContent{}, Warnings: []string{}}

	first, last := pageWindow(cfg.start, cfg.end, meta.NumPages)
	if first > last {
		r.Warnings = append(r.Warnings, emptyWindowWarning(cfg, meta.NumPages))
		return r, nil
	}

	var tables TableSource
	if wantTables {
		if tables, err = p.tables.OpenTables(resolved); err != nil {
			p.logger.Warn("docex: table engine unavailable", "file", id.Filename, "err", err)
			r.Warnings = append(r.Warnings, fmt.Sprintf("tables not extracted: %v", err))
			tables = nil
		} else {
			defer tables.Close()
		}
	}

	for idx := first - 1; idx < last; idx++ {
		pc, warnings := p.pages.extract(ctx, doc, resolved, idx)
		pc.Tables = []Table{}
		if tables != nil {
			got, err := p.pageTables(ctx, tables, idx)
			if err != nil {
				p.logger.Debug("docex: table extraction failed", "file", id.Filename, "page", idx+1, "err", err)
				warnings = append(warnings, fmt.Sprintf("page %d: table extraction failed: %v", idx+1, err))
			} else if len(got) > 0 {
				pc.Tables = got
			}
		}
		r.Pages = append(r.Pages, pc)
		r.Warnings = append(r.Warnings, warnings...)
	}
	return r, nil
}

func (p *Processor) pageTables(ctx context.Context, src TableSource, idx int) (out []Table, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	raw, err := src.Tables(ctx, idx)
	if err != nil {
		return nil, err
	}
	return CleanTables(raw), nil
}

// extractionInfo prefers the inspector's view of the document properties
// and keeps the text engine's page count, which drives page iteration.
func (p *Processor) extractionInfo(resolved string, doc Document) DocumentInfo {
	info := docInfo(doc)
	if p.inspector == nil {
		return info
	}
	inspected, err := p.inspector.Inspect(resolved)
	if err != nil {
		p.logger.Warn("docex: inspector failed, using text engine properties", "file", baseName(resolved), "err", err)
		return info
	}
	inspected.NumPages = info.NumPages
	return inspected
}

func (p *Processor) open(resolved, path string) (doc Document, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &ErrCorruptDocument{Path: path, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	doc, err = p.text.Open(resolved)
	if err != nil {
		var corrupt *ErrCorruptDocument
		if errors.As(err, &corrupt) {
			return nil, err
		}
		return nil, &ErrCorruptDocument{Path: path, Err: err}
	}
	return doc, nil
}

func docInfo(doc Document) DocumentInfo {
	info := doc.Info()
	info.NumPages = doc.NumPages()
	return info
}

func newMetadata(id PDFIdentity, size int64, info DocumentInfo) PDFMetadata {
	return PDFMetadata{
		Filename:      id.Filename,
		Filepath:      id.Filepath,
		NumPages:      info.NumPages,
		Title:         info.Title,
		Author:        info.Author,
		Subject:       info.Subject,
		Creator:       info.Creator,
		CreationDate:  info.CreationDate,
		FileHash:      id.ContentHash,
		FileSizeBytes: size,
	}
}

// pageWindow clamps an inclusive 1-indexed request to [1, n]. Zero bounds
// are open. first > last means the window selects nothing.
func pageWindow(start, end, n int) (first, last int) {
	first = max(start, 1)
	last = n
	if end > 0 {
		last = min(end, n)
	}
	return first, last
}

func emptyWindowWarning(cfg extractConfig, n int) string {
	return fmt.Sprintf("page range %d-%d selects no pages (document has %d)", cfg.start, cfg.end, n)
}

func fileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

func elapsedMs(since time.Time) float64 {
	return float64(time.Since(since).Microseconds()) / 1000
}
