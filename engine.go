package docex

import "context"

// DocumentInfo carries document-level properties read from a PDF.
type DocumentInfo struct {
	NumPages     int
	Title        string
	Author       string
	Subject      string
	Creator      string
	CreationDate string
}

// TextEngine opens documents for native text extraction. It is the primary
// engine: a document it cannot open is corrupt.
type TextEngine interface {
	Open(path string) (Document, error)
}

// Document is a PDF opened by a TextEngine. Page numbers are 1-indexed.
type Document interface {
	NumPages() int
	Info() DocumentInfo
	Page(number int) (Page, error)
	Close() error
}

// Page is a single page of an open Document.
type Page interface {
	// Text returns the page's native text layer, unnormalized.
	Text() (string, error)
	// HasImages reports whether the page carries any raster content.
	HasImages() bool
}

// TableEngine is the layout-aware table detector. It keeps its own view of
// the document and addresses pages by 0-based index.
type TableEngine interface {
	OpenTables(path string) (TableSource, error)
}

// TableSource yields raw table grids for the pages of one document.
type TableSource interface {
	Tables(ctx context.Context, pageIndex int) ([]Table, error)
	Close() error
}

// Rasterizer renders a page (0-based index) to a PNG image at dpi.
type Rasterizer interface {
	Rasterize(ctx context.Context, path string, pageIndex, dpi int) ([]byte, error)
}

// Inspector reads document-level properties without touching page content.
type Inspector interface {
	Inspect(path string) (DocumentInfo, error)
}

// Prober is implemented by optional engines that may be missing at runtime.
// Probe is called once when the Processor is built; a non-nil error marks the
// engine unavailable for the Processor's lifetime.
type Prober interface {
	Probe(ctx context.Context) error
}

func probe(ctx context.Context, v any) error {
	if p, ok := v.(Prober); ok {
		return p.Probe(ctx)
	}
	return nil
}
