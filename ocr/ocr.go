// Package ocr defines the boundary between docex and optical character
// recognition engines. Engines may be backed by native libraries or remote
// services and may be entirely absent at runtime; the Probe capability lets
// callers find out once, up front.
package ocr

import (
	"context"
	"fmt"
)

// ImageFormat identifies the content type of an OCR input image.
type ImageFormat string

const (
	ImageFormatPNG  ImageFormat = "image/png"
	ImageFormatJPEG ImageFormat = "image/jpeg"
)

// Input is a single rasterized page submitted for recognition.
type Input struct {
	// ID is echoed back in the corresponding Result.
	ID string
	// Image is the encoded image payload in the format given by Format.
	Image  []byte
	Format ImageFormat
	// PageIndex links the input back to the zero-based page it was rendered from.
	PageIndex int
	// DPI is the effective resolution of Image; zero means unknown.
	DPI int
	// Languages are engine language hints such as "por" or "eng".
	Languages []string
}

// Result is the recognized text for one Input.
type Result struct {
	InputID   string
	PlainText string
	// Confidence is the mean word confidence in [0,1], zero when unknown.
	Confidence float64
	Language   string
}

// Engine recognizes text in images.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, in Input) (Result, error)
}

// Prober reports whether an engine can run at all in this process.
type Prober interface {
	Probe(ctx context.Context) error
}

// InputOption mutates an Input.
type InputOption func(*Input)

// WithLanguages sets language hints on the input.
func WithLanguages(langs ...string) InputOption {
	return func(in *Input) { in.Languages = append([]string(nil), langs...) }
}

// WithDPI sets the effective resolution of the input image.
func WithDPI(dpi int) InputOption {
	return func(in *Input) { in.DPI = dpi }
}

// NewPageInput wraps a PNG-encoded page raster as an Input.
func NewPageInput(png []byte, pageIndex int, opts ...InputOption) Input {
	in := Input{
		ID:        fmt.Sprintf("page-%d", pageIndex+1),
		Image:     png,
		Format:    ImageFormatPNG,
		PageIndex: pageIndex,
	}
	for _, o := range opts {
		o(&in)
	}
	return in
}
