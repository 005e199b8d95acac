// Package pdfinfo reads document-level PDF properties with pdfcpu. Only the
// cross-reference table, page tree and Info dictionary are read; no content
// stream is decoded, so the cost does not grow with page content.
package pdfinfo

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/nevindra/docex"
)

var _ docex.Inspector = (*Inspector)(nil)

// Inspector is a docex.Inspector over pdfcpu.
type Inspector struct {
	conf *model.Configuration
}

// New creates an Inspector using relaxed validation, which tolerates the
// minor spec violations common in scanned and office-generated PDFs.
func New() *Inspector {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &Inspector{conf: conf}
}

// Inspect returns the page count and Info dictionary entries of the PDF at
// path.
func (i *Inspector) Inspect(path string) (info docex.DocumentInfo, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdfinfo: %s: %v", path, r)
		}
	}()
	f, err := os.Open(path)
	if err != nil {
		return docex.DocumentInfo{}, fmt.Errorf("pdfinfo: %w", err)
	}
	defer f.Close()

	ctx, err := api.ReadContext(f, i.conf)
	if err != nil {
		return docex.DocumentInfo{}, fmt.Errorf("pdfinfo: read %s: %w", path, err)
	}
	if err := api.ValidateContext(ctx); err != nil {
		return docex.DocumentInfo{}, fmt.Errorf("pdfinfo: validate %s: %w", path, err)
	}
	return docex.DocumentInfo{
		NumPages:     ctx.PageCount,
		Title:        ctx.XRefTable.Title,
		Author:       ctx.XRefTable.Author,
		Subject:      ctx.XRefTable.Subject,
		Creator:      ctx.XRefTable.Creator,
		CreationDate: ctx.XRefTable.CreationDate,
	}, nil
}
