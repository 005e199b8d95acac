// Package layout detects tables from the positioned glyphs and ruling
// rectangles of a PDF page.
//
// Two detectors run in order. The ruled detector builds cell grids from
// horizontal and vertical rulings (thin filled rectangles or rectangle
// outlines). When a page has no ruled grid, the stream detector looks for
// runs of consecutive lines that split into the same number of widely
// spaced columns.
package layout

import (
	"math"
	"sort"
	"strings"
	"unicode"
)

// Glyph is one shown character. (X, Y) is the baseline origin in PDF user
// space (Y grows upward) and W the advance width.
type Glyph struct {
	X, Y, W float64
	Size    float64
	S       string
}

// Ruling is an axis-aligned rectangle drawn on the page.
type Ruling struct {
	MinX, MinY, MaxX, MaxY float64
}

// Word is a run of glyphs without a space or gap between them.
type Word struct {
	X0, X1 float64
	Y      float64
	Size   float64
	S      string
}

// Line is a sequence of words sharing a baseline, left to right.
type Line struct {
	Y     float64
	Words []Word
}

// Params tunes detection. Distances are in points.
type Params struct {
	// SnapTolerance merges ruling coordinates closer than this.
	SnapTolerance float64
	// MaxRulingThickness is the thickest rectangle treated as a line.
	MaxRulingThickness float64
	// MinColumnGap is the smallest horizontal gap that separates stream
	// columns.
	MinColumnGap float64
	// MinStreamRows is the number of consecutive aligned lines a stream table
	// needs.
	MinStreamRows int
	// Stream enables the whitespace-aligned detector.
	Stream bool
}

// DefaultParams returns the detection defaults.
func DefaultParams() Params {
	return Params{
		SnapTolerance:      3,
		MaxRulingThickness: 2,
		MinColumnGap:       12,
		MinStreamRows:      3,
		Stream:             true,
	}
}

// Lines groups glyphs into lines, top of the page first.
func Lines(glyphs []Glyph) []Line {
	if len(glyphs) == 0 {
		return nil
	}
	gs := append([]Glyph(nil), glyphs...)
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Y > gs[j].Y })

	var lines []Line
	var cur []Glyph
	flush := func() {
		if len(cur) == 0 {
			return
		}
		sort.SliceStable(cur, func(i, j int) bool { return cur[i].X < cur[j].X })
		if ws := words(cur); len(ws) > 0 {
			lines = append(lines, Line{Y: cur[0].Y, Words: ws})
		}
		cur = nil
	}
	for _, g := range gs {
		if len(cur) > 0 && math.Abs(cur[0].Y-g.Y) > lineTolerance(cur[0].Size) {
			flush()
		}
		cur = append(cur, g)
	}
	flush()
	return lines
}

func lineTolerance(size float64) float64 {
	return math.Max(size*0.4, 1)
}

// words splits a left-to-right glyph run at spaces and at gaps wider than a
// third of the font size.
func words(gs []Glyph) []Word {
	var out []Word
	var b strings.Builder
	var w Word
	end := func() {
		if b.Len() > 0 {
			w.S = b.String()
			out = append(out, w)
		}
		b.Reset()
	}
	prevEnd := math.Inf(-1)
	for _, g := range gs {
		if strings.TrimFunc(g.S, unicode.IsSpace) == "" {
			end()
			prevEnd = g.X + g.W
			continue
		}
		if b.Len() > 0 && g.X-prevEnd > math.Max(g.Size/3, 1) {
			end()
		}
		if b.Len() == 0 {
			w = Word{X0: g.X, Y: g.Y, Size: g.Size}
		}
		b.WriteString(g.S)
		w.X1 = g.X + g.W
		prevEnd = w.X1
	}
	end()
	return out
}

// Text returns the words of l joined by single spaces.
func (l Line) Text() string {
	parts := make([]string, len(l.Words))
	for i, w := range l.Words {
		parts[i] = w.S
	}
	return strings.Join(parts, " ")
}

// PlainText reconstructs the page text in reading order, one line per
// baseline.
func PlainText(glyphs []Glyph) string {
	lines := Lines(glyphs)
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text()
	}
	return strings.Join(out, "\n")
}

// Detect returns the tables found on a page, top of the page first. Each
// table is a row-major grid of cell strings.
func Detect(glyphs []Glyph, rulings []Ruling, p Params) [][][]string {
	lines := Lines(glyphs)
	if tables := ruled(lines, rulings, p); len(tables) > 0 {
		return tables
	}
	if p.Stream {
		return stream(lines, p)
	}
	return nil
}

// --- ruled detector ---

type edge struct {
	horizontal bool
	pos        float64 // y for horizontal edges, x for vertical ones
	from, to   float64
}

func (e edge) bounds() (minX, minY, maxX, maxY float64) {
	if e.horizontal {
		return e.from, e.pos, e.to, e.pos
	}
	return e.pos, e.from, e.pos, e.to
}

// edges turns rulings into line segments. Thin rectangles are single lines;
// larger ones contribute their four sides.
func edges(rulings []Ruling, p Params) []edge {
	var out []edge
	for _, r := range rulings {
		w, h := r.MaxX-r.MinX, r.MaxY-r.MinY
		switch {
		case h <= p.MaxRulingThickness && w > p.MaxRulingThickness:
			out = append(out, edge{true, (r.MinY + r.MaxY) / 2, r.MinX, r.MaxX})
		case w <= p.MaxRulingThickness && h > p.MaxRulingThickness:
			out = append(out, edge{false, (r.MinX + r.MaxX) / 2, r.MinY, r.MaxY})
		case w > p.MaxRulingThickness && h > p.MaxRulingThickness:
			out = append(out,
				edge{true, r.MinY, r.MinX, r.MaxX},
				edge{true, r.MaxY, r.MinX, r.MaxX},
				edge{false, r.MinX, r.MinY, r.MaxY},
				edge{false, r.MaxX, r.MinY, r.MaxY})
		}
	}
	return out
}

// groups partitions edges into connected components: two edges connect when
// their bounding boxes touch within the snap tolerance.
func groups(es []edge, tol float64) [][]edge {
	parent := make([]int, len(es))
	for i := range parent {
		parent[i] = i
	}
	var find func(int) int
	find = func(i int) int {
		if parent[i] != i {
			parent[i] = find(parent[i])
		}
		return parent[i]
	}
	for i := range es {
		ax0, ay0, ax1, ay1 := es[i].bounds()
		for j := i + 1; j < len(es); j++ {
			bx0, by0, bx1, by1 := es[j].bounds()
			if ax0-tol <= bx1 && bx0-tol <= ax1 && ay0-tol <= by1 && by0-tol <= ay1 {
				parent[find(i)] = find(j)
			}
		}
	}
	byRoot := map[int][]edge{}
	var roots []int
	for i, e := range es {
		r := find(i)
		if _, ok := byRoot[r]; !ok {
			roots = append(roots, r)
		}
		byRoot[r] = append(byRoot[r], e)
	}
	out := make([][]edge, 0, len(roots))
	for _, r := range roots {
		out = append(out, byRoot[r])
	}
	return out
}

// snap returns the sorted distinct values of vs, merging values closer than
// tol.
func snap(vs []float64, tol float64) []float64 {
	if len(vs) == 0 {
		return nil
	}
	sorted := append([]float64(nil), vs...)
	sort.Float64s(sorted)
	out := []float64{sorted[0]}
	for _, v := range sorted[1:] {
		if v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	return out
}

type grid struct {
	xs []float64 // ascending
	ys []float64 // descending: row 0 is the top of the table
}

func ruled(lines []Line, rulings []Ruling, p Params) [][][]string {
	var grids []grid
	for _, g := range groups(edges(rulings, p), p.SnapTolerance) {
		var xs, ys []float64
		for _, e := range g {
			if e.horizontal {
				ys = append(ys, e.pos)
			} else {
				xs = append(xs, e.pos)
			}
		}
		xs, ys = snap(xs, p.SnapTolerance), snap(ys, p.SnapTolerance)
		if len(xs) < 2 || len(ys) < 2 || (len(xs)-1)*(len(ys)-1) < 2 {
			continue
		}
		sort.Sort(sort.Reverse(sort.Float64Slice(ys)))
		grids = append(grids, grid{xs: xs, ys: ys})
	}
	sort.SliceStable(grids, func(i, j int) bool { return grids[i].ys[0] > grids[j].ys[0] })

	var tables [][][]string
	for _, g := range grids {
		tables = append(tables, g.fill(lines))
	}
	return tables
}

// fill places each word in the cell containing its center. Words of one
// cell are joined by spaces within a line and by newlines across lines.
func (g grid) fill(lines []Line) [][]string {
	rows, cols := len(g.ys)-1, len(g.xs)-1
	cells := make([][][]string, rows)
	for i := range cells {
		cells[i] = make([][]string, cols)
	}
	for _, l := range lines {
		for r := 0; r < rows; r++ {
			if l.Y > g.ys[r] || l.Y < g.ys[r+1] {
				continue
			}
			lineParts := make([][]string, cols)
			for _, w := range l.Words {
				cx := (w.X0 + w.X1) / 2
				for c := 0; c < cols; c++ {
					if cx >= g.xs[c] && cx <= g.xs[c+1] {
						lineParts[c] = append(lineParts[c], w.S)
						break
					}
				}
			}
			for c, parts := range lineParts {
				if len(parts) > 0 {
					cells[r][c] = append(cells[r][c], strings.Join(parts, " "))
				}
			}
			break
		}
	}
	out := make([][]string, rows)
	for r := range cells {
		out[r] = make([]string, cols)
		for c, ls := range cells[r] {
			out[r][c] = strings.Join(ls, "\n")
		}
	}
	return out
}

// --- stream detector ---

// segments splits a line into columns at gaps of at least MinColumnGap.
func segments(l Line, gap float64) []Word {
	var out []Word
	for _, w := range l.Words {
		if n := len(out); n > 0 && w.X0-out[n-1].X1 < gap {
			out[n-1].S += " " + w.S
			out[n-1].X1 = w.X1
			continue
		}
		out = append(out, w)
	}
	return out
}

func stream(lines []Line, p Params) [][][]string {
	var tables [][][]string
	var run [][]Word
	flush := func() {
		if len(run) >= p.MinStreamRows {
			t := make([][]string, len(run))
			for i, segs := range run {
				t[i] = make([]string, len(segs))
				for j, s := range segs {
					t[i][j] = s.S
				}
			}
			tables = append(tables, t)
		}
		run = nil
	}
	for _, l := range lines {
		segs := segments(l, p.MinColumnGap)
		if len(segs) < 2 || (len(run) > 0 && !aligned(run[0], segs, p.MinColumnGap)) {
			flush()
		}
		if len(segs) >= 2 {
			run = append(run, segs)
		}
	}
	flush()
	return tables
}

// aligned reports whether two rows have the same column count with column
// starts within gap of each other.
func aligned(a, b []Word, gap float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if math.Abs(a[i].X0-b[i].X0) >= gap && math.Abs(a[i].X1-b[i].X1) >= gap {
			return false
		}
	}
	return true
}
