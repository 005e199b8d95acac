package layout

import (
	"context"
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"

	"github.com/nevindra/docex"
)

var _ docex.TableEngine = (*Engine)(nil)

// Engine is a docex.TableEngine reading page geometry with ledongthuc/pdf.
type Engine struct {
	params Params
}

// Option configures an Engine.
type Option func(*Engine)

// WithParams replaces the detection parameters.
func WithParams(p Params) Option {
	return func(e *Engine) { e.params = p }
}

// WithoutStream disables the whitespace-aligned detector, keeping only
// tables with explicit rulings.
func WithoutStream() Option {
	return func(e *Engine) { e.params.Stream = false }
}

// New creates a table engine.
func New(opts ...Option) *Engine {
	e := &Engine{params: DefaultParams()}
	for _, o := range opts {
		o(e)
	}
	return e
}

// OpenTables opens its own reader on the PDF at path.
func (e *Engine) OpenTables(path string) (src docex.TableSource, err error) {
	defer func() {
		if r := recover(); r != nil {
			src, err = nil, fmt.Errorf("layout: open %s: %v", path, r)
		}
	}()
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("layout: open %s: %w", path, err)
	}
	return &source{file: f, reader: r, params: e.params}, nil
}

type source struct {
	file   *os.File
	reader *pdf.Reader
	params Params
}

// Tables detects the tables of the page at the 0-based index.
func (s *source) Tables(ctx context.Context, pageIndex int) ([]docex.Table, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= s.reader.NumPage() {
		return nil, nil
	}
	page := s.reader.Page(pageIndex + 1)
	if page.V.IsNull() {
		return nil, nil
	}
	glyphs, rulings := Geometry(page.Content())

	var out []docex.Table
	for _, t := range Detect(glyphs, rulings, s.params) {
		out = append(out, docex.Table(t))
	}
	return out, nil
}

func (s *source) Close() error { return s.file.Close() }

// Geometry converts ledongthuc page content into glyphs and rulings.
func Geometry(c pdf.Content) ([]Glyph, []Ruling) {
	glyphs := make([]Glyph, 0, len(c.Text))
	for _, t := range c.Text {
		glyphs = append(glyphs, Glyph{X: t.X, Y: t.Y, W: t.W, Size: t.FontSize, S: t.S})
	}
	rulings := make([]Ruling, 0, len(c.Rect))
	for _, r := range c.Rect {
		rulings = append(rulings, Ruling{
			MinX: min(r.Min.X, r.Max.X),
			MinY: min(r.Min.Y, r.Max.Y),
			MaxX: max(r.Min.X, r.Max.X),
			MaxY: max(r.Min.Y, r.Max.Y),
		})
	}
	return glyphs, rulings
}
