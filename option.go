package docex

import (
	"context"
	"log/slog"

	"github.com/nevindra/docex/ocr"
)

// Defaults for the tunable extraction constants.
const (
	DefaultMinTextChars  = 50
	DefaultOCRDPI        = 300
	DefaultOCRLanguage   = "por"
	DefaultSearchContext = 100
	DefaultSearchWorkers = 4
)

// Option configures a Processor.
type Option func(*Processor)

// WithCache enables the transcription cache.
func WithCache(c Cache) Option {
	return func(p *Processor) { p.cache = c }
}

// WithTables enables the table pass using e.
func WithTables(e TableEngine) Option {
	return func(p *Processor) { p.tables = e }
}

// WithOCR enables OCR fallback for image-bearing pages with little native
// text. Both collaborators are probed once in New; if either probe fails OCR
// stays disabled and affected pages get a warning instead.
func WithOCR(engine ocr.Engine, r Rasterizer) Option {
	return func(p *Processor) {
		p.ocrEngine = engine
		p.rasterizer = r
	}
}

// WithOCRLanguage sets the OCR language hints (Tesseract codes such as "por").
func WithOCRLanguage(langs ...string) Option {
	return func(p *Processor) { p.ocrLanguages = langs }
}

// WithOCRDPI sets the rasterization resolution used for OCR.
func WithOCRDPI(dpi int) Option {
	return func(p *Processor) { p.ocrDPI = dpi }
}

// WithMinTextChars sets the sufficiency threshold for page text.
func WithMinTextChars(n int) Option {
	return func(p *Processor) { p.sufficient = MinChars(n) }
}

// WithSufficiency replaces the sufficiency predicate altogether.
func WithSufficiency(s Sufficiency) Option {
	return func(p *Processor) { p.sufficient = s }
}

// WithInspector sets the lightweight metadata reader. Without one, metadata
// comes from the text engine.
func WithInspector(i Inspector) Option {
	return func(p *Processor) { p.inspector = i }
}

// WithSearchContext sets how many characters of context surround a match.
func WithSearchContext(n int) Option {
	return func(p *Processor) { p.searchContext = n }
}

// WithSearchWorkers bounds how many documents are searched concurrently.
func WithSearchWorkers(n int) Option {
	return func(p *Processor) { p.searchWorkers = n }
}

// WithLogger sets the structured logger. If not set, logging is discarded.
func WithLogger(l *slog.Logger) Option {
	return func(p *Processor) { p.logger = l }
}

// WithTracer sets the tracer for extraction and OCR spans.
func WithTracer(t Tracer) Option {
	return func(p *Processor) { p.tracer = t }
}

// OnExtracted registers fn to run after every extraction that was computed
// rather than served from the cache. fn must not modify the result.
func OnExtracted(fn func(ctx context.Context, r *ExtractionResult)) Option {
	return func(p *Processor) { p.onExtracted = append(p.onExtracted, fn) }
}

// nopLogger is a logger that discards all output.
var nopLogger = slog.New(discardHandler{})

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler            { return d }

// ExtractOption adjusts a single Extract call.
type ExtractOption func(*extractConfig)

type extractConfig struct {
	start, end int
	tables     bool
	cache      bool
}

// PageRange restricts extraction to the inclusive 1-indexed range
// [start, end]. Zero leaves a bound open.
func PageRange(start, end int) ExtractOption {
	return func(c *extractConfig) {
		c.start = start
		c.end = end
	}
}

// WithoutTables skips the table pass.
func WithoutTables() ExtractOption {
	return func(c *extractConfig) { c.tables = false }
}

// WithoutCache neither reads nor writes the transcription cache.
func WithoutCache() ExtractOption {
	return func(c *extractConfig) { c.cache = false }
}

func (c extractConfig) ranged() bool { return c.start > 0 || c.end > 0 }
