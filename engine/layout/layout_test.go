package layout

import (
	"context"
	"reflect"
	"testing"

	"github.com/nevindra/docex/internal/pdftest"
)

// run lays s out as fixed-width glyphs starting at (x, y).
func run(x, y float64, s string) []Glyph {
	const size, adv = 10, 6
	var gs []Glyph
	for i, r := range s {
		gs = append(gs, Glyph{X: x + float64(i)*adv, Y: y, W: adv, Size: size, S: string(r)})
	}
	return gs
}

func concat(runs ...[]Glyph) []Glyph {
	var out []Glyph
	for _, r := range runs {
		out = append(out, r...)
	}
	return out
}

func TestLines(t *testing.T) {
	glyphs := concat(
		run(72, 680, "second line"),
		run(72, 700, "first"),
		run(200, 700.5, "same baseline"),
	)
	lines := Lines(glyphs)
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2", len(lines))
	}
	if got := lines[0].Text(); got != "first same baseline" {
		t.Errorf("line 0 = %q", got)
	}
	if got := lines[1].Text(); got != "second line" {
		t.Errorf("line 1 = %q", got)
	}
	if got := PlainText(glyphs); got != "first same baseline\nsecond line" {
		t.Errorf("PlainText = %q", got)
	}
}

func TestWordsSplitOnGap(t *testing.T) {
	lines := Lines(concat(run(0, 10, "ab"), run(30, 10, "cd")))
	if len(lines) != 1 || len(lines[0].Words) != 2 {
		t.Fatalf("lines = %+v", lines)
	}
	w := lines[0].Words[1]
	if w.S != "cd" || w.X0 != 30 || w.X1 != 42 {
		t.Errorf("word = %+v", w)
	}
}

// gridRulings draws a ruled table with column boundaries xs and row
// boundaries ys as thin rectangles.
func gridRulings(xs, ys []float64) []Ruling {
	var rs []Ruling
	for _, y := range ys {
		rs = append(rs, Ruling{MinX: xs[0], MinY: y - 0.5, MaxX: xs[len(xs)-1], MaxY: y + 0.5})
	}
	for _, x := range xs {
		rs = append(rs, Ruling{MinX: x - 0.5, MinY: ys[len(ys)-1], MaxX: x + 0.5, MaxY: ys[0]})
	}
	return rs
}

func TestDetectRuled(t *testing.T) {
	rulings := gridRulings([]float64{70, 200, 330}, []float64{720, 700, 680, 660})
	glyphs := concat(
		run(80, 706, "Item"), run(210, 706, "Qtd"),
		run(80, 686, "Piso ceramico"), run(210, 686, "120"),
		run(210, 666, "4"),
		run(80, 600, "outside the table"),
	)

	got := Detect(glyphs, rulings, DefaultParams())
	want := [][][]string{{
		{"Item", "Qtd"},
		{"Piso ceramico", "120"},
		{"", "4"},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect = %q, want %q", got, want)
	}
}

func TestDetectRuledBoxes(t *testing.T) {
	// Cells drawn as rectangle outlines sharing edges.
	rulings := []Ruling{
		{MinX: 70, MinY: 700, MaxX: 200, MaxY: 720},
		{MinX: 200, MinY: 700, MaxX: 330, MaxY: 720},
	}
	glyphs := concat(run(80, 706, "A"), run(210, 706, "B"))
	got := Detect(glyphs, rulings, DefaultParams())
	want := [][][]string{{{"A", "B"}}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect = %q, want %q", got, want)
	}
}

func TestDetectIgnoresSingleBox(t *testing.T) {
	rulings := []Ruling{{MinX: 50, MinY: 50, MaxX: 550, MaxY: 750}}
	glyphs := run(72, 700, "framed paragraph")
	params := DefaultParams()
	params.Stream = false
	if got := Detect(glyphs, rulings, params); len(got) != 0 {
		t.Errorf("Detect = %q, want none", got)
	}
}

func TestDetectTwoTablesTopFirst(t *testing.T) {
	lower := gridRulings([]float64{70, 150, 230}, []float64{400, 380, 360})
	upper := gridRulings([]float64{70, 150, 230}, []float64{700, 680, 660})
	glyphs := concat(run(80, 686, "up"), run(80, 386, "down"))
	got := Detect(glyphs, append(lower, upper...), DefaultParams())
	if len(got) != 2 {
		t.Fatalf("tables = %d, want 2", len(got))
	}
	if got[0][0][0] != "up" || got[1][0][0] != "down" {
		t.Errorf("tables out of order: %q", got)
	}
}

func TestDetectStream(t *testing.T) {
	glyphs := concat(
		run(72, 740, "Planilha orcamentaria"),
		run(72, 720, "Item"), run(200, 720, "Unid"), run(300, 720, "Valor"),
		run(72, 706, "Concreto"), run(200, 706, "m3"), run(300, 706, "450,00"),
		run(72, 692, "Aco CA-50"), run(200, 692, "kg"), run(300, 692, "8,90"),
		run(72, 660, "Observacoes finais do documento."),
	)
	got := Detect(glyphs, nil, DefaultParams())
	want := [][][]string{{
		{"Item", "Unid", "Valor"},
		{"Concreto", "m3", "450,00"},
		{"Aco CA-50", "kg", "8,90"},
	}}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Detect = %q, want %q", got, want)
	}

	params := DefaultParams()
	params.Stream = false
	if got := Detect(glyphs, nil, params); len(got) != 0 {
		t.Errorf("stream disabled, Detect = %q", got)
	}
}

func TestDetectStreamNeedsEnoughRows(t *testing.T) {
	glyphs := concat(
		run(72, 720, "Data:"), run(300, 720, "12/03/2024"),
		run(72, 706, "Local:"), run(300, 706, "Campinas"),
	)
	if got := Detect(glyphs, nil, DefaultParams()); len(got) != 0 {
		t.Errorf("Detect = %q, want none", got)
	}
}

func TestEngineOnPDF(t *testing.T) {
	var rects []pdftest.Rect
	for _, y := range []float64{720, 700, 680} {
		rects = append(rects, pdftest.Rect{X: 70, Y: y, W: 260, H: 0.5})
	}
	for _, x := range []float64{70, 200, 330} {
		rects = append(rects, pdftest.Rect{X: x, Y: 680, W: 0.5, H: 40.5})
	}
	path := pdftest.Write(t, t.TempDir(), "t.pdf", pdftest.Doc{Pages: []pdftest.Page{
		{
			Rects: rects,
			Texts: []pdftest.Text{
				{X: 80, Y: 706, Size: 10, S: "Item"}, {X: 210, Y: 706, Size: 10, S: "Qtd"},
				{X: 80, Y: 686, Size: 10, S: "Piso"}, {X: 210, Y: 686, Size: 10, S: "12"},
			},
		},
		pdftest.Lines("no tables here"),
	}})

	src, err := New().OpenTables(path)
	if err != nil {
		t.Fatalf("OpenTables: %v", err)
	}
	defer src.Close()

	tables, err := src.Tables(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(tables) != 1 {
		t.Fatalf("tables = %q, want 1", tables)
	}
	want := [][]string{{"Item", "Qtd"}, {"Piso", "12"}}
	if !reflect.DeepEqual([][]string(tables[0]), want) {
		t.Errorf("table = %q, want %q", tables[0], want)
	}

	if tables, _ := src.Tables(context.Background(), 1); len(tables) != 0 {
		t.Errorf("page 2 tables = %q", tables)
	}
	if tables, err := src.Tables(context.Background(), 7); err != nil || tables != nil {
		t.Errorf("out of range = %q, %v", tables, err)
	}
}
