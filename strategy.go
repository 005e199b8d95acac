package docex

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/nevindra/docex/ocr"
)

// Sufficiency decides whether a page's text is complete enough that no
// further strategy needs to run.
type Sufficiency func(text string) bool

// MinChars is the default sufficiency predicate: at least n characters once
// surrounding whitespace is trimmed.
func MinChars(n int) Sufficiency {
	return func(text string) bool {
		return TextLen(text) >= n
	}
}

// TextLen counts the characters of text after trimming surrounding whitespace.
func TextLen(text string) int {
	return utf8.RuneCountInString(strings.TrimSpace(text))
}

// pageState is the per-page information a strategy decides on.
type pageState struct {
	path      string
	index     int
	page      Page
	hasImages bool
}

func (s *pageState) number() int { return s.index + 1 }

// strategy is one way of obtaining a page's text. Strategies are tried in
// order until one yields sufficient text.
type strategy interface {
	method() ExtractionMethod
	// skip returns a non-empty reason when the strategy must not run for
	// this page.
	skip(st *pageState) string
	extract(ctx context.Context, st *pageState) (string, error)
}

type nativeStrategy struct{}

func (nativeStrategy) method() ExtractionMethod { return MethodNative }

func (nativeStrategy) skip(*pageState) string { return "" }

func (nativeStrategy) extract(_ context.Context, st *pageState) (string, error) {
	return st.page.Text()
}

type ocrStrategy struct {
	engine     ocr.Engine
	rasterizer Rasterizer
	available  bool
	languages  []string
	dpi        int
}

func (*ocrStrategy) method() ExtractionMethod { return MethodOCR }

func (s *ocrStrategy) skip(st *pageState) string {
	switch {
	case !st.hasImages:
		return "no images"
	case !s.available:
		return "ocr unavailable"
	}
	return ""
}

func (s *ocrStrategy) extract(ctx context.Context, st *pageState) (string, error) {
	png, err := s.rasterizer.Rasterize(ctx, st.path, st.index, s.dpi)
	if err != nil {
		return "", fmt.Errorf("rasterize: %w", err)
	}
	in := ocr.NewPageInput(png, st.index, ocr.WithLanguages(s.languages...), ocr.WithDPI(s.dpi))
	if in, err = ocr.Preprocess(in, ocr.DefaultMaxSide); err != nil {
		return "", err
	}
	res, err := s.engine.Recognize(ctx, in)
	if err != nil {
		return "", err
	}
	return res.PlainText, nil
}

// pageExtractor runs the strategy list over single pages.
type pageExtractor struct {
	strategies []strategy
	sufficient Sufficiency
	logger     *slog.Logger
	tracer     Tracer
}

// extract produces the content of the page at 0-based index. It never
// fails: every degradation is reported through the returned warnings.
func (x *pageExtractor) extract(ctx context.Context, doc Document, path string, index int) (PageContent, []string) {
	st := &pageState{path: path, index: index}
	pc := PageContent{PageNumber: st.number(), ExtractionMethod: MethodNative}
	var warnings []string

	page, err := openPage(doc, st.number())
	if err != nil {
		x.logger.Warn("docex: page unreadable", "file", baseName(path), "page", st.number(), "err", err)
		return pc, []string{fmt.Sprintf("page %d: unreadable: %v", st.number(), err)}
	}
	st.page = page
	st.hasImages = safeHasImages(page)
	pc.HasImages = st.hasImages

	text := ""
	var reason string
	for i, s := range x.strategies {
		if i > 0 && x.sufficient(text) {
			break
		}
		if r := s.skip(st); r != "" {
			reason = r
			continue
		}
		got, err := x.run(ctx, s, st)
		if err != nil {
			x.logger.Warn("docex: strategy failed", "file", baseName(path), "page", st.number(),
				"method", string(s.method()), "err", err)
			if i == 0 {
				warnings = append(warnings, fmt.Sprintf("page %d: %s extraction failed: %v", st.number(), s.method(), err))
			}
			reason = string(s.method()) + " failed"
			continue
		}
		if i == 0 {
			text = got
			continue
		}
		if !x.sufficient(got) {
			reason = string(s.method()) + " result too short"
			continue
		}
		x.logger.Info("docex: page recovered", "file", baseName(path), "page", st.number(),
			"method", string(s.method()), "chars", TextLen(got))
		text = got
		pc.ExtractionMethod = s.method()
	}

	if !x.sufficient(text) {
		w := fmt.Sprintf("page %d: low text yield (%d chars)", st.number(), TextLen(text))
		if reason != "" {
			w += "; " + reason
		}
		warnings = append(warnings, w)
	}
	pc.Text = CleanText(text)
	return pc, warnings
}

// run executes s with panics from the underlying engine turned into errors.
func (x *pageExtractor) run(ctx context.Context, s strategy, st *pageState) (text string, err error) {
	if x.tracer != nil && s.method() != MethodNative {
		var span Span
		ctx, span = x.tracer.Start(ctx, "docex.page."+string(s.method()),
			StringAttr("file", baseName(st.path)),
			IntAttr("page", st.number()))
		defer func() {
			if err != nil {
				span.Error(err)
			} else {
				span.SetAttr(IntAttr("chars", TextLen(text)))
			}
			span.End()
		}()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return s.extract(ctx, st)
}

func openPage(doc Document, number int) (p Page, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return doc.Page(number)
}

func safeHasImages(p Page) (has bool) {
	defer func() {
		if recover() != nil {
			has = false
		}
	}()
	return p.HasImages()
}
