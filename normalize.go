package docex

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var (
	horizontalSpace = regexp.MustCompile(`[ \t]+`)
	blankLineRun    = regexp.MustCompile(`\n{3,}`)
)

// CleanText normalizes extracted text: invalid UTF-8 and null bytes are dropped, line endings
// become \n, runs of spaces and tabs collapse to one space, three or more
// consecutive newlines collapse to two, and the result is NFC-composed and
// trimmed.
func CleanText(text string) string {
	text = strings.ToValidUTF8(text, "")
	text = strings.ReplaceAll(text, "\x00", "")
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = horizontalSpace.ReplaceAllString(text, " ")
	text = blankLineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(norm.NFC.String(text))
}

// CleanTables drops invalid UTF-8, trims every cell and drops tables whose cells are all empty.
// Surviving tables are otherwise kept verbatim.
func CleanTables(raw []Table) []Table {
	var out []Table
	for _, t := range raw {
		cleaned := make(Table, len(t))
		nonEmpty := false
		for i, row := range t {
			cells := make([]string, len(row))
			for j, cell := range row {
				cells[j] = strings.TrimSpace(strings.ToValidUTF8(cell, ""))
				if cells[j] != "" {
					nonEmpty = true
				}
			}
			cleaned[i] = cells
		}
		if nonEmpty {
			out = append(out, cleaned)
		}
	}
	return out
}
