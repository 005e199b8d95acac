package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	_ "image/jpeg"

	"golang.org/x/image/draw"
)

// DefaultMaxSide caps the longest side of a page raster. Large-format sheets
// rendered at 300 DPI exceed it and are scaled down.
const DefaultMaxSide = 7000

// Preprocess converts the input image to 8-bit grayscale and scales it down
// when its longest side exceeds maxSide, adjusting DPI by the same factor.
// The returned input is always PNG-encoded.
func Preprocess(in Input, maxSide int) (Input, error) {
	src, _, err := image.Decode(bytes.NewReader(in.Image))
	if err != nil {
		return in, fmt.Errorf("ocr: decode image: %w", err)
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	if w == 0 || h == 0 {
		return in, fmt.Errorf("ocr: empty image")
	}

	scale := 1.0
	if longest := max(w, h); maxSide > 0 && longest > maxSide {
		scale = float64(maxSide) / float64(longest)
	}
	dw := max(int(float64(w)*scale), 1)
	dh := max(int(float64(h)*scale), 1)

	gray := image.NewGray(image.Rect(0, 0, dw, dh))
	if scale == 1.0 {
		draw.Draw(gray, gray.Bounds(), src, b.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(gray, gray.Bounds(), src, b, draw.Src, nil)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, gray); err != nil {
		return in, fmt.Errorf("ocr: encode image: %w", err)
	}
	out := in
	out.Image = buf.Bytes()
	out.Format = ImageFormatPNG
	if in.DPI > 0 && scale != 1.0 {
		out.DPI = max(int(float64(in.DPI)*scale), 1)
	}
	return out, nil
}
