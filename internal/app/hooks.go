package app

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"

	"github.com/nevindra/docex/internal/audit"
	"github.com/nevindra/docex/mcp"
)

// AuditHook returns an MCP call hook that writes one audit entry per tool
// call to sink. Recording failures are logged and never reach the client.
func AuditHook(sink audit.Sink, logger *slog.Logger) func(context.Context, mcp.Call) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return func(ctx context.Context, c mcp.Call) {
		var params map[string]any
		if len(c.Arguments) > 0 {
			_ = json.Unmarshal(c.Arguments, &params)
		}
		e := audit.NewEntry(c.Tool, params)
		e.Success = !c.Result.IsError
		e.DurationMs = float64(c.Duration.Microseconds()) / 1000
		e.ResultSummary = summarizeResult(c.Result)

		if err := sink.Record(ctx, e); err != nil {
			logger.Warn("docex: audit record failed", "tool", c.Tool, "error", err)
		}
	}
}

func summarizeResult(r mcp.ToolCallResult) string {
	text := r.Text()
	var body map[string]any
	if json.Unmarshal([]byte(text), &body) != nil {
		if r.IsError {
			return audit.Summarize(nil, errors.New(text))
		}
		return audit.Summarize(text, nil)
	}
	if r.IsError {
		msg, _ := body["error"].(string)
		if msg == "" {
			msg = text
		}
		return audit.Summarize(nil, errors.New(msg))
	}
	return audit.Summarize(body, nil)
}
