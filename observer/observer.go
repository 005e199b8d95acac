// Package observer provides OTEL-based observability for document extraction.
//
// It wraps the OCR engine, the transcription cache and MCP tool calls with
// instrumented versions that emit traces, metrics and logs via OpenTelemetry,
// and implements docex.Tracer for the spans the Processor opens itself.
// Users export to any OTEL-compatible backend by setting the standard OTEL
// env vars.
package observer

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploghttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"

	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/log/global"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const scopeName = "github.com/nevindra/docex/observer"

// Instruments holds all OTEL instruments used by the observer wrappers.
type Instruments struct {
	Tracer trace.Tracer
	Meter  metric.Meter
	Logger otellog.Logger

	// Counters
	Extractions    metric.Int64Counter
	PagesExtracted metric.Int64Counter
	Warnings       metric.Int64Counter
	OCRRequests    metric.Int64Counter
	CacheLookups   metric.Int64Counter
	CacheSaves     metric.Int64Counter
	ToolCalls      metric.Int64Counter

	// Histograms
	ExtractDuration metric.Float64Histogram
	OCRDuration     metric.Float64Histogram
	ToolDuration    metric.Float64Histogram
}

// Init sets up OTEL trace, metric, and log providers with OTLP HTTP exporters.
// Configuration comes from standard OTEL env vars (OTEL_EXPORTER_OTLP_ENDPOINT, etc.).
// Returns a shutdown function that must be called on application exit.
func Init(ctx context.Context, serviceName string) (*Instruments, func(context.Context) error, error) {
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceName(serviceName)),
		resource.WithFromEnv(),
	)
	if err != nil {
		return nil, nil, err
	}

	traceExp, err := otlptracehttp.New(ctx)
	if err != nil {
		return nil, nil, err
	}
	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(traceExp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)

	metricExp, err := otlpmetrichttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)),
		sdkmetric.WithResource(res),
	)
	otel.SetMeterProvider(mp)

	logExp, err := otlploghttp.New(ctx)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, nil, err
	}
	lp := sdklog.NewLoggerProvider(
		sdklog.WithProcessor(sdklog.NewBatchProcessor(logExp)),
		sdklog.WithResource(res),
	)
	global.SetLoggerProvider(lp)

	inst, err := newInstruments(tp, mp, lp)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		_ = lp.Shutdown(ctx)
		return nil, nil, err
	}

	shutdown := func(ctx context.Context) error {
		return errors.Join(
			tp.Shutdown(ctx),
			mp.Shutdown(ctx),
			lp.Shutdown(ctx),
		)
	}

	return inst, shutdown, nil
}

// Noop returns instruments backed by no-op providers, for running without a
// collector.
func Noop() *Instruments {
	inst, err := newInstruments(otel.GetTracerProvider(), otel.GetMeterProvider(), global.GetLoggerProvider())
	if err != nil {
		// The global providers are no-ops until Init runs, and no-op
		// instrument creation does not fail.
		panic("observer: " + err.Error())
	}
	return inst
}

func newInstruments(tp trace.TracerProvider, mp metric.MeterProvider, lp otellog.LoggerProvider) (*Instruments, error) {
	meter := mp.Meter(scopeName)
	inst := &Instruments{
		Tracer: tp.Tracer(scopeName),
		Meter:  meter,
		Logger: lp.Logger(scopeName),
	}

	counters := []struct {
		dst  *metric.Int64Counter
		name string
		desc string
		unit string
	}{
		{&inst.Extractions, "docex.extractions", "Documents extracted (cache hits excluded)", "{document}"},
		{&inst.PagesExtracted, "docex.pages", "Pages extracted by method", "{page}"},
		{&inst.Warnings, "docex.warnings", "Extraction warnings recorded", "{warning}"},
		{&inst.OCRRequests, "docex.ocr.requests", "OCR recognition calls", "{request}"},
		{&inst.CacheLookups, "docex.cache.lookups", "Transcription cache lookups by result", "{lookup}"},
		{&inst.CacheSaves, "docex.cache.saves", "Transcription cache writes", "{write}"},
		{&inst.ToolCalls, "docex.tool.calls", "MCP tool calls", "{call}"},
	}
	for _, c := range counters {
		ctr, err := meter.Int64Counter(c.name, metric.WithDescription(c.desc), metric.WithUnit(c.unit))
		if err != nil {
			return nil, err
		}
		*c.dst = ctr
	}

	histograms := []struct {
		dst  *metric.Float64Histogram
		name string
		desc string
	}{
		{&inst.ExtractDuration, "docex.extract.duration", "Full extraction duration"},
		{&inst.OCRDuration, "docex.ocr.duration", "OCR recognition duration per page"},
		{&inst.ToolDuration, "docex.tool.duration", "MCP tool call duration"},
	}
	for _, h := range histograms {
		hist, err := meter.Float64Histogram(h.name, metric.WithDescription(h.desc), metric.WithUnit("ms"))
		if err != nil {
			return nil, err
		}
		*h.dst = hist
	}

	return inst, nil
}
