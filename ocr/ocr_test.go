package ocr

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"reflect"
	"testing"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func TestNewPageInput(t *testing.T) {
	in := NewPageInput([]byte{1, 2, 3}, 4, WithLanguages("por", "eng"), WithDPI(300))
	if in.ID != "page-5" {
		t.Errorf("ID = %q, want page-5", in.ID)
	}
	if in.PageIndex != 4 {
		t.Errorf("PageIndex = %d, want 4", in.PageIndex)
	}
	if in.Format != ImageFormatPNG {
		t.Errorf("Format = %q, want %q", in.Format, ImageFormatPNG)
	}
	if !reflect.DeepEqual(in.Languages, []string{"por", "eng"}) {
		t.Errorf("Languages = %v", in.Languages)
	}
	if in.DPI != 300 {
		t.Errorf("DPI = %d, want 300", in.DPI)
	}
}

func TestWithLanguagesCopies(t *testing.T) {
	langs := []string{"por"}
	in := NewPageInput(nil, 0, WithLanguages(langs...))
	langs[0] = "eng"
	if in.Languages[0] != "por" {
		t.Fatalf("languages were not copied: %v", in.Languages)
	}
}

func TestPreprocessGrayscaleKeepsSize(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 40, 20))
	for x := 0; x < 40; x++ {
		src.Set(x, 10, color.RGBA{R: 255, A: 255})
	}
	in := NewPageInput(encodePNG(t, src), 0, WithDPI(300))

	out, err := Preprocess(in, 100)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out.Image))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if _, ok := img.(*image.Gray); !ok {
		t.Errorf("output image type = %T, want *image.Gray", img)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 40, Y: 20}) {
		t.Errorf("size = %v, want 40x20", got)
	}
	if out.DPI != 300 {
		t.Errorf("DPI = %d, want 300 (unchanged)", out.DPI)
	}
}

func TestPreprocessScalesDown(t *testing.T) {
	src := image.NewRGBA(image.Rect(0, 0, 400, 200))
	in := NewPageInput(encodePNG(t, src), 2, WithDPI(300))

	out, err := Preprocess(in, 100)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(out.Image))
	if err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if got := img.Bounds().Size(); got != (image.Point{X: 100, Y: 50}) {
		t.Errorf("size = %v, want 100x50", got)
	}
	if out.DPI != 75 {
		t.Errorf("DPI = %d, want 75", out.DPI)
	}
	if out.PageIndex != 2 || out.ID != in.ID {
		t.Errorf("identity not preserved: %+v", out)
	}
}

func TestPreprocessRejectsGarbage(t *testing.T) {
	if _, err := Preprocess(Input{Image: []byte("not an image")}, 0); err == nil {
		t.Fatal("expected decode error")
	}
}
