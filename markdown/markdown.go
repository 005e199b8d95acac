// Package markdown renders extraction results as a single markdown document.
//
// Render is deterministic: the same ExtractionResult always produces the same
// bytes. Timing data is not rendered.
package markdown

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"

	"github.com/nevindra/docex"
)

// Render serializes r: a title from the filename, a metadata block, one
// section per page with its text and tables, then any warnings.
func Render(r *docex.ExtractionResult) string {
	var b strings.Builder
	meta := r.Metadata

	fmt.Fprintf(&b, "# %s\n\n", meta.Filename)
	if meta.Title != "" {
		fmt.Fprintf(&b, "**Title:** %s  \n", meta.Title)
	}
	if meta.Author != "" {
		fmt.Fprintf(&b, "**Author:** %s  \n", meta.Author)
	}
	if meta.NumPages > 0 {
		fmt.Fprintf(&b, "**Pages:** %d  \n", meta.NumPages)
	}
	if meta.FileHash != "" {
		fmt.Fprintf(&b, "**Hash:** %s  \n", meta.FileHash)
	}
	b.WriteString("\n")

	for _, p := range r.Pages {
		fmt.Fprintf(&b, "## Page %d\n\n", p.PageNumber)
		if p.Text != "" {
			b.WriteString(p.Text)
			b.WriteString("\n")
		}
		for i, t := range p.Tables {
			if len(t) == 0 {
				continue
			}
			fmt.Fprintf(&b, "\n### Table %d (page %d)\n\n", i+1, p.PageNumber)
			writeTable(&b, t)
		}
		b.WriteString("\n")
	}

	if len(r.Warnings) > 0 {
		b.WriteString("## Extraction warnings\n\n")
		for _, w := range r.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// writeTable renders t with its first row as the header. Data rows are
// padded or truncated to the header width.
func writeTable(b *strings.Builder, t docex.Table) {
	header := t[0]
	writeRow(b, header, len(header))
	b.WriteString("|")
	for range header {
		b.WriteString(" --- |")
	}
	b.WriteString("\n")
	for _, row := range t[1:] {
		writeRow(b, row, len(header))
	}
}

func writeRow(b *strings.Builder, row []string, width int) {
	b.WriteString("|")
	for i := range width {
		cell := ""
		if i < len(row) {
			cell = escapeCell(row[i])
		}
		b.WriteString(" ")
		b.WriteString(cell)
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ", "\r", " ")

// escapeCell keeps a cell on one line and its pipes out of the column syntax.
func escapeCell(s string) string {
	return cellReplacer.Replace(s)
}

func newParser() goldmark.Markdown {
	return goldmark.New(goldmark.WithExtensions(extension.GFM))
}

// ToHTML converts rendered markdown to HTML with GitHub Flavored Markdown
// tables enabled, for previewing a transcription in a browser.
func ToHTML(md string) ([]byte, error) {
	var buf bytes.Buffer
	if err := newParser().Convert([]byte(md), &buf); err != nil {
		return nil, fmt.Errorf("markdown: convert: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseTables reads back every GFM table in md, in document order.
func ParseTables(md string) []docex.Table {
	source := []byte(md)
	doc := newParser().Parser().Parse(text.NewReader(source))

	var tables []docex.Table
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering || n.Kind() != extast.KindTable {
			return ast.WalkContinue, nil
		}
		var t docex.Table
		for row := n.FirstChild(); row != nil; row = row.NextSibling() {
			var cells []string
			for cell := row.FirstChild(); cell != nil; cell = cell.NextSibling() {
				cells = append(cells, cellText(cell, source))
			}
			t = append(t, cells)
		}
		tables = append(tables, t)
		return ast.WalkSkipChildren, nil
	})
	return tables
}

func cellText(n ast.Node, source []byte) string {
	var b strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := c.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(b.String())
}
