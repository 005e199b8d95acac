package observer

import (
	"context"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/nevindra/docex/ocr"
)

// ObservedOCR wraps an ocr.Engine with OTEL instrumentation.
type ObservedOCR struct {
	inner ocr.Engine
	inst  *Instruments
}

var (
	_ ocr.Engine = (*ObservedOCR)(nil)
	_ ocr.Prober = (*ObservedOCR)(nil)
)

// WrapOCR returns an instrumented OCR engine.
func WrapOCR(inner ocr.Engine, inst *Instruments) *ObservedOCR {
	return &ObservedOCR{inner: inner, inst: inst}
}

func (o *ObservedOCR) Name() string { return o.inner.Name() }

// Probe forwards to the wrapped engine when it can be probed.
func (o *ObservedOCR) Probe(ctx context.Context) error {
	if p, ok := o.inner.(ocr.Prober); ok {
		return p.Probe(ctx)
	}
	return nil
}

func (o *ObservedOCR) Recognize(ctx context.Context, in ocr.Input) (ocr.Result, error) {
	name := o.inner.Name()
	ctx, span := o.inst.Tracer.Start(ctx, "ocr.recognize", trace.WithAttributes(
		AttrOCREngine.String(name),
		AttrOCRPage.Int(in.PageIndex),
	))
	defer span.End()
	start := time.Now()

	res, err := o.inner.Recognize(ctx, in)

	durationMs := float64(time.Since(start).Microseconds()) / 1000
	status := "ok"
	if err != nil {
		status = "error"
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	chars := utf8.RuneCountInString(res.PlainText)
	span.SetAttributes(
		AttrOCRStatus.String(status),
		AttrOCRChars.Int(chars),
		AttrOCRConfidence.Float64(res.Confidence),
	)

	o.inst.OCRRequests.Add(ctx, 1, metric.WithAttributes(
		AttrOCREngine.String(name),
		attribute.String("status", status),
	))
	o.inst.OCRDuration.Record(ctx, durationMs, metric.WithAttributes(
		AttrOCREngine.String(name),
	))

	var rec otellog.Record
	rec.SetSeverity(otellog.SeverityInfo)
	rec.SetBody(otellog.StringValue("page recognized"))
	rec.AddAttributes(
		otellog.String("ocr.engine", name),
		otellog.String("ocr.status", status),
		otellog.Int("ocr.page_index", in.PageIndex),
		otellog.Int("ocr.chars", chars),
		otellog.Float64("ocr.duration_ms", durationMs),
	)
	o.inst.Logger.Emit(ctx, rec)

	return res, err
}
