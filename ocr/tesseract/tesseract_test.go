package tesseract

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/nevindra/docex/ocr"
)

func requireTesseract(t *testing.T) *Engine {
	t.Helper()
	e := New("eng")
	if err := e.Probe(context.Background()); err != nil {
		t.Skipf("tesseract unavailable: %v", err)
	}
	return e
}

// renderText draws s in black on white and scales it up so the bitmap font
// reaches a size Tesseract reads reliably.
func renderText(t *testing.T, s string) []byte {
	t.Helper()
	face := basicfont.Face7x13
	small := image.NewGray(image.Rect(0, 0, 7*len(s)+20, 33))
	draw.Draw(small, small.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
	d := font.Drawer{
		Dst:  small,
		Src:  image.NewUniform(color.Black),
		Face: face,
		Dot:  fixed.P(10, 22),
	}
	d.DrawString(s)

	const scale = 4
	big := image.NewGray(image.Rect(0, 0, small.Bounds().Dx()*scale, small.Bounds().Dy()*scale))
	draw.NearestNeighbor.Scale(big, big.Bounds(), small, small.Bounds(), draw.Src, nil)

	var buf bytes.Buffer
	if err := png.Encode(&buf, big); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestRecognize(t *testing.T) {
	e := requireTesseract(t)
	in := ocr.NewPageInput(renderText(t, "HELLO WORLD"), 0, ocr.WithDPI(300))

	res, err := e.Recognize(context.Background(), in)
	if err != nil {
		t.Fatalf("Recognize: %v", err)
	}
	if !strings.Contains(strings.ToUpper(res.PlainText), "HELLO") {
		t.Errorf("PlainText = %q", res.PlainText)
	}
	if res.InputID != "page-1" || res.Language != "eng" {
		t.Errorf("result = %+v", res)
	}
	if res.Confidence <= 0 || res.Confidence > 1 {
		t.Errorf("Confidence = %v", res.Confidence)
	}
}

func TestProbeMissingLanguage(t *testing.T) {
	requireTesseract(t)
	err := New("eng", "zz_not_a_language").Probe(context.Background())
	if err == nil || !strings.Contains(err.Error(), "zz_not_a_language") {
		t.Errorf("Probe = %v", err)
	}
}

func TestRecognizeCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().Recognize(ctx, ocr.Input{}); err == nil {
		t.Error("expected context error")
	}
}

func TestDefaults(t *testing.T) {
	e := New()
	if e.Name() != "tesseract" {
		t.Errorf("Name = %q", e.Name())
	}
	if len(e.languages) != 1 || e.languages[0] != "eng" {
		t.Errorf("languages = %v", e.languages)
	}
}
