// Package app assembles the extraction service from configuration: the
// Processor with its engines, the audit sink and, when enabled, the OTEL
// instruments. Both binaries build on it.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/nevindra/docex"
	"github.com/nevindra/docex/cache/filecache"
	"github.com/nevindra/docex/engine/fitz"
	"github.com/nevindra/docex/engine/layout"
	"github.com/nevindra/docex/engine/native"
	"github.com/nevindra/docex/engine/pdfinfo"
	"github.com/nevindra/docex/internal/audit"
	"github.com/nevindra/docex/internal/config"
	"github.com/nevindra/docex/observer"
	"github.com/nevindra/docex/ocr"
	"github.com/nevindra/docex/ocr/tesseract"
)

// App is a configured extraction service.
type App struct {
	Processor   *docex.Processor
	Audit       audit.Sink
	Instruments *observer.Instruments // nil unless the observer is enabled

	logger  *slog.Logger
	closers []func(context.Context) error
}

// Deps overrides engines chosen from configuration. Nil fields keep the
// defaults.
type Deps struct {
	OCR        ocr.Engine
	Rasterizer docex.Rasterizer
	Audit      audit.Sink
}

// New builds the service described by cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, deps Deps) (*App, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	a := &App{logger: logger}

	if cfg.Observer.Enabled {
		inst, shutdown, err := observer.Init(ctx, "docex")
		if err != nil {
			return nil, fmt.Errorf("observer: %w", err)
		}
		a.Instruments = inst
		a.closers = append(a.closers, shutdown)
	}

	sink := deps.Audit
	if sink == nil {
		var err error
		sink, err = audit.Open(ctx, audit.Config{Driver: cfg.Audit.Driver, Path: cfg.Audit.Path, DSN: cfg.Audit.DSN}, logger)
		if err != nil {
			a.Close(ctx)
			return nil, err
		}
	}
	a.Audit = sink
	a.closers = append(a.closers, func(context.Context) error { return sink.Close() })

	opts := []docex.Option{
		docex.WithLogger(logger),
		docex.WithInspector(pdfinfo.New()),
		docex.WithMinTextChars(cfg.Extract.MinTextChars),
		docex.WithSearchContext(cfg.Search.ContextChars),
		docex.WithSearchWorkers(cfg.Search.Workers),
	}
	if cfg.Extract.Tables {
		opts = append(opts, docex.WithTables(layout.New()))
	}
	if cfg.Cache.Enabled {
		var c docex.Cache = filecache.New(cfg.Cache.Dir, filecache.WithLogger(logger))
		if a.Instruments != nil {
			c = observer.WrapCache(c, a.Instruments)
		}
		opts = append(opts, docex.WithCache(c))
	}
	if cfg.OCR.Enabled {
		opts = append(opts, a.ocrOptions(cfg, deps)...)
	}
	if a.Instruments != nil {
		opts = append(opts,
			docex.WithTracer(observer.NewTracer()),
			docex.OnExtracted(a.Instruments.RecordExtraction),
		)
	}

	a.Processor = docex.New(cfg.Docs.Root, native.New(), opts...)
	logger.Info("docex: service ready",
		"root", a.Processor.Root(),
		"cache", cfg.Cache.Enabled,
		"tables", cfg.Extract.Tables,
		"ocr", a.Processor.OCRAvailable())
	return a, nil
}

func (a *App) ocrOptions(cfg config.Config, deps Deps) []docex.Option {
	langs := cfg.OCR.Languages()
	if len(langs) == 0 {
		langs = []string{docex.DefaultOCRLanguage}
	}

	engine := deps.OCR
	if engine == nil {
		engine = tesseract.New(langs...)
	}
	if a.Instruments != nil {
		engine = observer.WrapOCR(engine, a.Instruments)
	}

	raster := deps.Rasterizer
	if raster == nil {
		r := fitz.New()
		a.closers = append(a.closers, func(context.Context) error { return r.Close() })
		raster = r
	}

	return []docex.Option{
		docex.WithOCR(engine, raster),
		docex.WithOCRLanguage(langs...),
		docex.WithOCRDPI(cfg.OCR.DPI),
	}
}

// Close releases everything New opened, in reverse order.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i](ctx))
	}
	a.closers = nil
	return errors.Join(errs...)
}
