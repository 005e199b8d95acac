// Package docex turns PDFs into normalized, queryable text, tables and
// markdown.
//
// A [Processor] serves the documents under one root directory. Page text
// comes from a native [TextEngine]; pages with too little text that carry
// images fall back to OCR through an [ocr.Engine] and a [Rasterizer]; an
// optional [TableEngine] adds row/column grids. Full-document results are
// cached by content hash through a [Cache].
//
// # Quick Start
//
//	p := docex.New("docs", native.New(),
//		docex.WithTables(layout.New()),
//		docex.WithOCR(tesseract.New("por"), fitz.New()),
//		docex.WithInspector(pdfinfo.New()),
//		docex.WithCache(filecache.New("data/transcriptions")),
//	)
//
//	result, err := p.Extract(ctx, "edital.pdf", docex.PageRange(2, 5))
//	md := markdown.Render(result)
//
// # Errors
//
// Only structural failures are returned: [*ErrPathEscape], [*ErrNotFound]
// and [*ErrCorruptDocument]. Everything that goes wrong on a single page
// (OCR failure, table failure, little text) is recorded in
// [ExtractionResult.Warnings].
//
// # Subpackages
//
//   - engine/native: text engine over ledongthuc/pdf
//   - engine/layout: table detection from positioned glyphs and rulings
//   - engine/fitz: MuPDF page rasterizer
//   - engine/pdfinfo: pdfcpu metadata inspector
//   - ocr, ocr/tesseract: OCR boundary and Tesseract engine
//   - cache/filecache: JSON transcription cache
//   - markdown: markdown and HTML rendering
//   - observer: OpenTelemetry instrumentation
//   - mcp: stdio MCP tool server
package docex
