// Package native provides the primary docex text engine.
//
// It uses ledongthuc/pdf (BSD-3, pure Go, no CGO) to read the text layer of
// each page and to detect embedded raster images.
package native

import (
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/nevindra/docex"
	"github.com/nevindra/docex/engine/layout"
)

var _ docex.TextEngine = (*Engine)(nil)

// maxFormDepth bounds recursion into nested form XObjects.
const maxFormDepth = 8

// Engine opens PDFs with ledongthuc/pdf.
type Engine struct{}

// New creates a native text engine.
func New() *Engine {
	return &Engine{}
}

// Open opens the PDF at path. The file stays open until Close.
func (e *Engine) Open(path string) (docex.Document, error) {
	f, r, err := open(path)
	if err != nil {
		return nil, err
	}
	return &Document{file: f, reader: r}, nil
}

func open(path string) (f *os.File, r *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if f != nil {
				f.Close()
			}
			f, r, err = nil, nil, fmt.Errorf("open pdf: %v", rec)
		}
	}()
	f, r, err = pdf.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open pdf: %w", err)
	}
	return f, r, nil
}

// Document is an open PDF.
type Document struct {
	file   *os.File
	reader *pdf.Reader
}

func (d *Document) NumPages() int { return d.reader.NumPage() }

// Info reads the trailer's Info dictionary. Missing entries are empty.
func (d *Document) Info() (info docex.DocumentInfo) {
	defer func() {
		if recover() != nil {
			info = docex.DocumentInfo{}
		}
	}()
	dict := d.reader.Trailer().Key("Info")
	if dict.IsNull() {
		return docex.DocumentInfo{}
	}
	return docex.DocumentInfo{
		Title:        dict.Key("Title").Text(),
		Author:       dict.Key("Author").Text(),
		Subject:      dict.Key("Subject").Text(),
		Creator:      dict.Key("Creator").Text(),
		CreationDate: dict.Key("CreationDate").Text(),
	}
}

// Page returns the 1-indexed page number.
func (d *Document) Page(number int) (docex.Page, error) {
	if number < 1 || number > d.reader.NumPage() {
		return nil, fmt.Errorf("page %d out of range (1-%d)", number, d.reader.NumPage())
	}
	p := d.reader.Page(number)
	if p.V.IsNull() {
		return nil, fmt.Errorf("page %d has no page object", number)
	}
	return &Page{page: p}, nil
}

func (d *Document) Close() error { return d.file.Close() }

// Page is a single PDF page.
type Page struct {
	page pdf.Page
}

// Text returns the page text in reading order, one line per baseline. Pages
// whose glyph geometry cannot be read fall back to the library's plain-text
// extraction.
func (p *Page) Text() (string, error) {
	if text, ok := p.lines(); ok {
		return text, nil
	}
	text, err := p.page.GetPlainText(nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func (p *Page) lines() (text string, ok bool) {
	defer func() {
		if recover() != nil {
			text, ok = "", false
		}
	}()
	glyphs, _ := layout.Geometry(p.page.Content())
	return layout.PlainText(glyphs), true
}

// HasImages reports whether the page resources reference an image XObject,
// directly or through form XObjects, or its content stream draws an inline
// image.
func (p *Page) HasImages() bool {
	return hasImage(p.page.Resources(), 0) || hasInlineImage(p.page.V.Key("Contents"))
}

// inlineImage matches a BI ... ID operator pair. String operands that spell
// the same sequence also match.
var inlineImage = regexp.MustCompile(`(?s)(?:^|[\s\]>)])BI\s.*?\sID\s`)

// maxContentBytes bounds how much of a content stream is scanned.
const maxContentBytes = 4 << 20

func hasInlineImage(contents pdf.Value) (found bool) {
	defer func() {
		if recover() != nil {
			found = false
		}
	}()
	streams := []pdf.Value{contents}
	if contents.Kind() == pdf.Array {
		streams = streams[:0]
		for i := range contents.Len() {
			streams = append(streams, contents.Index(i))
		}
	}
	for _, s := range streams {
		if s.Kind() != pdf.Stream {
			continue
		}
		rc := s.Reader()
		data, err := io.ReadAll(io.LimitReader(rc, maxContentBytes))
		rc.Close()
		if err == nil && inlineImage.Match(data) {
			return true
		}
	}
	return false
}

func hasImage(resources pdf.Value, depth int) bool {
	if resources.IsNull() || depth > maxFormDepth {
		return false
	}
	xobjects := resources.Key("XObject")
	if xobjects.Kind() != pdf.Dict {
		return false
	}
	for _, name := range xobjects.Keys() {
		obj := xobjects.Key(name)
		switch obj.Key("Subtype").Name() {
		case "Image":
			return true
		case "Form":
			if hasImage(obj.Key("Resources"), depth+1) {
				return true
			}
		}
	}
	return false
}
