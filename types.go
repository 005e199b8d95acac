package docex

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// ExtractionMethod records which strategy produced a page's text.
type ExtractionMethod string

const (
	MethodNative ExtractionMethod = "native"
	MethodOCR    ExtractionMethod = "ocr"
)

// Table is a row-major grid of cell strings.
type Table [][]string

// PDFIdentity identifies one version of a PDF file by its bytes.
type PDFIdentity struct {
	Filename    string `json:"filename"`
	Filepath    string `json:"filepath"`
	ContentHash string `json:"content_hash"`
}

// PDFMetadata holds document-level properties captured once per extraction.
type PDFMetadata struct {
	Filename      string `json:"filename"`
	Filepath      string `json:"filepath"`
	NumPages      int    `json:"num_pages"`
	Title         string `json:"title"`
	Author        string `json:"author"`
	Subject       string `json:"subject"`
	Creator       string `json:"creator"`
	CreationDate  string `json:"creation_date"`
	FileHash      string `json:"file_hash"`
	FileSizeBytes int64  `json:"file_size_bytes"`
}

// PageContent is the extracted content of a single page.
type PageContent struct {
	PageNumber       int              `json:"page_number"`
	Text             string           `json:"text"`
	Tables           []Table          `json:"tables"`
	HasImages        bool             `json:"has_images"`
	ExtractionMethod ExtractionMethod `json:"extraction_method"`
}

// ExtractionResult is the complete outcome of extracting a document (or a
// page window of it). Pages are ordered by ascending PageNumber.
type ExtractionResult struct {
	Metadata         PDFMetadata   `json:"metadata"`
	Pages            []PageContent `json:"pages"`
	ExtractionTimeMs float64       `json:"extraction_time_ms"`
	Warnings         []string      `json:"warnings"`
}

// FullText concatenates all page texts, each prefixed by a page marker.
func (r *ExtractionResult) FullText() string {
	parts := make([]string, 0, len(r.Pages))
	for _, p := range r.Pages {
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", p.PageNumber, p.Text))
	}
	return strings.Join(parts, "\n\n")
}

// TotalTables returns the number of tables across all pages.
func (r *ExtractionResult) TotalTables() int {
	n := 0
	for _, p := range r.Pages {
		n += len(p.Tables)
	}
	return n
}

// TotalChars returns the number of characters across all page texts.
func (r *ExtractionResult) TotalChars() int {
	n := 0
	for _, p := range r.Pages {
		n += utf8.RuneCountInString(p.Text)
	}
	return n
}

// TableRecord is a flattened view of one table, addressed by page.
type TableRecord struct {
	Page       int   `json:"page"`
	TableIndex int   `json:"table_index"`
	Rows       int   `json:"rows"`
	Cols       int   `json:"cols"`
	Data       Table `json:"data"`
}

// Tables flattens the per-page tables of r in page order. TableIndex is
// 1-based within its page.
func Tables(r *ExtractionResult) []TableRecord {
	var out []TableRecord
	for _, p := range r.Pages {
		for i, t := range p.Tables {
			cols := 0
			if len(t) > 0 {
				cols = len(t[0])
			}
			out = append(out, TableRecord{
				Page:       p.PageNumber,
				TableIndex: i + 1,
				Rows:       len(t),
				Cols:       cols,
				Data:       t,
			})
		}
	}
	return out
}

// FileInfo describes an eligible document in the document root.
type FileInfo struct {
	Filename  string  `json:"filename"`
	Path      string  `json:"path"`
	SizeBytes int64   `json:"size_bytes"`
	SizeMB    float64 `json:"size_mb"`
}

// SearchMatch is one occurrence of a query in a page's text.
type SearchMatch struct {
	Filename      string `json:"filename"`
	PageNumber    int    `json:"page_number"`
	MatchedText   string `json:"matched_text"`
	ContextWindow string `json:"context_window"`
	// Offset is the rune offset of the match within the page text.
	Offset int `json:"offset"`
}
