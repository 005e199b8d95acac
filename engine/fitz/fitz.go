// Package fitz renders PDF pages to PNG with MuPDF through go-fitz.
package fitz

import (
	"context"
	"fmt"
	"sync"

	gofitz "github.com/gen2brain/go-fitz"

	"github.com/nevindra/docex"
)

var _ docex.Rasterizer = (*Rasterizer)(nil)

// Rasterizer renders pages of one document at a time. The most recently
// used document stays open so that consecutive pages of the same file do not
// reopen it.
type Rasterizer struct {
	mu   sync.Mutex
	path string
	doc  *gofitz.Document
}

// New creates a rasterizer.
func New() *Rasterizer {
	return &Rasterizer{}
}

// Rasterize renders the page at the 0-based pageIndex of the PDF at path.
func (r *Rasterizer) Rasterize(ctx context.Context, path string, pageIndex, dpi int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	doc, err := r.open(path)
	if err != nil {
		return nil, err
	}
	if pageIndex < 0 || pageIndex >= doc.NumPage() {
		return nil, fmt.Errorf("fitz: page index %d out of range (%d pages)", pageIndex, doc.NumPage())
	}
	png, err := doc.ImagePNG(pageIndex, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("fitz: render page %d: %w", pageIndex+1, err)
	}
	return png, nil
}

func (r *Rasterizer) open(path string) (*gofitz.Document, error) {
	if r.doc != nil && r.path == path {
		return r.doc, nil
	}
	r.closeLocked()
	doc, err := gofitz.New(path)
	if err != nil {
		return nil, fmt.Errorf("fitz: open %s: %w", path, err)
	}
	r.doc, r.path = doc, path
	return doc, nil
}

// Close releases the open document, if any.
func (r *Rasterizer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Rasterizer) closeLocked() error {
	if r.doc == nil {
		return nil
	}
	err := r.doc.Close()
	r.doc, r.path = nil, ""
	return err
}
