// Package pdftest builds small, valid PDF files for tests.
package pdftest

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
)

// Text is a run of text drawn at (X, Y). Every character advances 0.6 em.
type Text struct {
	X, Y float64
	Size float64
	S    string
}

// Rect is a filled rectangle, as used for table rulings.
type Rect struct {
	X, Y, W, H float64
}

// Page describes the content of one page.
type Page struct {
	Texts []Text
	Rects []Rect
	// Image places a 1x1 gray image XObject on the page.
	Image bool
	// InlineImage draws a 1x1 gray inline image (BI ... ID ... EI).
	InlineImage bool
}

// Doc describes a whole document.
type Doc struct {
	Pages []Page
	// Info entries go into the trailer's Info dictionary.
	Info map[string]string
}

// Lines is a convenience for a page of left-aligned lines, 14pt apart.
func Lines(lines ...string) Page {
	var p Page
	for i, l := range lines {
		p.Texts = append(p.Texts, Text{X: 72, Y: 720 - float64(i)*14, Size: 11, S: l})
	}
	return p
}

// Build serializes d with a correct cross-reference table.
func Build(d Doc) []byte {
	// Object layout: 1 catalog, 2 pages, 3 font, 4 image, 5 info,
	// then a (page, contents) pair per page.
	const firstPage = 6
	n := len(d.Pages)
	objs := make([]string, firstPage-1+2*n)

	kids := make([]string, n)
	for i := range d.Pages {
		kids[i] = fmt.Sprintf("%d 0 R", firstPage+2*i)
	}
	objs[0] = "<< /Type /Catalog /Pages 2 0 R >>"
	objs[1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), n)
	objs[2] = "<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding" +
		" /FirstChar 32 /LastChar 126 /Widths [" + strings.TrimSpace(strings.Repeat("600 ", 95)) + "] >>"
	objs[3] = "<< /Type /XObject /Subtype /Image /Width 1 /Height 1 /ColorSpace /DeviceGray /BitsPerComponent 8 /Length 1 >>\nstream\n\x80\nendstream"
	objs[4] = infoDict(d.Info)

	for i, p := range d.Pages {
		pageNum := firstPage + 2*i
		resources := "<< /Font << /F1 3 0 R >>"
		if p.Image {
			resources += " /XObject << /Im1 4 0 R >>"
		}
		resources += " >>"
		objs[pageNum-1] = fmt.Sprintf(
			"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources %s /Contents %d 0 R >>",
			resources, pageNum+1)
		content := contentStream(p)
		objs[pageNum] = fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content)
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objs))
	for i, o := range objs {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, o)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objs)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R /Info 5 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objs)+1, xref)
	return buf.Bytes()
}

// Write builds d into dir/name and returns the path.
func Write(t testing.TB, dir, name string, d Doc) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, Build(d), 0o644); err != nil {
		t.Fatalf("pdftest: write %s: %v", name, err)
	}
	return path
}

func infoDict(info map[string]string) string {
	keys := make([]string, 0, len(info))
	for k := range info {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var b strings.Builder
	b.WriteString("<<")
	for _, k := range keys {
		fmt.Fprintf(&b, " /%s (%s)", k, escape(info[k]))
	}
	b.WriteString(" >>")
	return b.String()
}

func contentStream(p Page) string {
	var b strings.Builder
	for _, r := range p.Rects {
		fmt.Fprintf(&b, "%.2f %.2f %.2f %.2f re f\n", r.X, r.Y, r.W, r.H)
	}
	if p.Image {
		b.WriteString("q 100 0 0 100 72 72 cm /Im1 Do Q\n")
	}
	if p.InlineImage {
		b.WriteString("q 100 0 0 100 72 300 cm BI /W 1 /H 1 /CS /G /BPC 8 ID \x80 EI Q\n")
	}
	for _, t := range p.Texts {
		size := t.Size
		if size == 0 {
			size = 11
		}
		fmt.Fprintf(&b, "BT /F1 %.1f Tf 1 0 0 1 %.2f %.2f Tm (%s) Tj ET\n", size, t.X, t.Y, escape(t.S))
	}
	return strings.TrimSuffix(b.String(), "\n")
}

var escaper = strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)

func escape(s string) string { return escaper.Replace(s) }
