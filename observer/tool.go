package observer

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	otellog "go.opentelemetry.io/otel/log"
	"go.opentelemetry.io/otel/metric"

	"github.com/nevindra/docex"
	"github.com/nevindra/docex/mcp"
)

// ToolHook returns an mcp call hook that records tool call counts and
// durations. Register it with mcp.OnCall.
func (inst *Instruments) ToolHook() func(context.Context, mcp.Call) {
	return func(ctx context.Context, c mcp.Call) {
		status := "ok"
		if c.Result.IsError {
			status = "tool_error"
		}
		durationMs := float64(c.Duration.Microseconds()) / 1000

		inst.ToolCalls.Add(ctx, 1, metric.WithAttributes(
			AttrToolName.String(c.Tool),
			attribute.String("status", status),
		))
		inst.ToolDuration.Record(ctx, durationMs, metric.WithAttributes(
			AttrToolName.String(c.Tool),
		))

		var rec otellog.Record
		rec.SetSeverity(otellog.SeverityInfo)
		rec.SetBody(otellog.StringValue("tool executed"))
		rec.AddAttributes(
			otellog.String("tool.name", c.Tool),
			otellog.String("tool.status", status),
			otellog.Int("tool.result_length", len(c.Result.Text())),
			otellog.Float64("tool.duration_ms", durationMs),
		)
		inst.Logger.Emit(ctx, rec)
	}
}

// RecordExtraction counts the pages and warnings of a freshly computed
// result. Results served from the cache should not be recorded.
func (inst *Instruments) RecordExtraction(ctx context.Context, r *docex.ExtractionResult) {
	inst.Extractions.Add(ctx, 1)
	inst.ExtractDuration.Record(ctx, r.ExtractionTimeMs)
	byMethod := map[docex.ExtractionMethod]int64{}
	for _, p := range r.Pages {
		byMethod[p.ExtractionMethod]++
	}
	for m, n := range byMethod {
		inst.PagesExtracted.Add(ctx, n, metric.WithAttributes(AttrDocMethod.String(string(m))))
	}
	if len(r.Warnings) > 0 {
		inst.Warnings.Add(ctx, int64(len(r.Warnings)))
	}
}
