// Command docex-mcp serves the PDFs under a document root to MCP clients
// over stdio: listing, metadata, page text with OCR fallback, tables,
// markdown conversion and full-text search.
//
// Usage in .mcp.json:
//
//	{
//	  "mcpServers": {
//	    "docex": {
//	      "type": "stdio",
//	      "command": "docex-mcp",
//	      "env": {"DOCS_DIR": "/srv/editais"}
//	    }
//	  }
//	}
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nevindra/docex/internal/app"
	"github.com/nevindra/docex/internal/config"
	"github.com/nevindra/docex/mcp"
)

const version = "0.1.0"

const instructions = "Tools read PDFs from the configured document root; pass paths relative to it. " +
	"Call list_pdfs first. Extraction results are cached by content hash, so repeated calls are cheap. " +
	"Pages are 1-indexed and ranges are inclusive."

func main() {
	cfg := config.Load(os.Getenv("DOCEX_CONFIG"))

	// stdout carries the protocol; logs go to stderr.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("docex-mcp: exiting", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger) error {
	svc, err := app.New(ctx, cfg, logger, app.Deps{})
	if err != nil {
		return err
	}
	defer func() {
		if err := svc.Close(context.Background()); err != nil {
			logger.Warn("docex-mcp: shutdown", "error", err)
		}
	}()

	opts := []mcp.Option{
		mcp.WithLogger(logger),
		mcp.WithInstructions(instructions),
		mcp.OnCall(app.AuditHook(svc.Audit, logger)),
	}
	if svc.Instruments != nil {
		opts = append(opts, mcp.OnCall(svc.Instruments.ToolHook()))
	}
	srv := mcp.New("docex", version, opts...)
	app.Register(srv, svc.Processor)

	logger.Info("docex-mcp: serving", "version", version, "root", svc.Processor.Root())
	if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}
