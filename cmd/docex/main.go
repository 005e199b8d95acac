// Command docex runs the extraction pipeline from the shell and prints JSON
// (or markdown) to stdout.
//
//	docex list
//	docex meta edital.pdf
//	docex extract -start 2 -end 5 -tables edital.pdf
//	docex tables edital.pdf
//	docex markdown [-html] edital.pdf
//	docex search [-file edital.pdf] [-case] "concreto armado"
//
// Configuration is read from $DOCEX_CONFIG (default docex.toml) and the
// usual environment overrides.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nevindra/docex"
	"github.com/nevindra/docex/internal/app"
	"github.com/nevindra/docex/internal/config"
	"github.com/nevindra/docex/markdown"
)

const usage = `usage: docex <command> [flags] [args]

commands:
  list                       list PDFs in the document root
  meta <file>                print document metadata
  extract [flags] <file>     extract page text (and tables with -tables)
  tables <file>              extract tables
  markdown [-html] <file>    render the document as markdown or HTML
  search [flags] <query>     search one or all documents
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load(os.Getenv("DOCEX_CONFIG"))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.Log.SlogLevel()}))

	if err := run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, "docex:", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return errUsage
	}
	cmd, args := args[0], args[1:]

	// The CLI never serves tool calls, so there is nothing to audit.
	cfg.Audit.Driver = "none"
	svc, err := app.New(ctx, cfg, logger, app.Deps{})
	if err != nil {
		return err
	}
	defer svc.Close(context.Background())
	p := svc.Processor

	switch cmd {
	case "list":
		files, err := p.List()
		if err != nil {
			return err
		}
		return writeJSON(stdout, files)

	case "meta":
		fs := flag.NewFlagSet("meta", flag.ContinueOnError)
		path, err := parseOne(fs, args)
		if err != nil {
			return err
		}
		meta, err := p.Metadata(ctx, path)
		if err != nil {
			return err
		}
		return writeJSON(stdout, meta)

	case "extract":
		fs := flag.NewFlagSet("extract", flag.ContinueOnError)
		start := fs.Int("start", 0, "first page (1-indexed, inclusive)")
		end := fs.Int("end", 0, "last page (1-indexed, inclusive)")
		tables := fs.Bool("tables", false, "include tables")
		nocache := fs.Bool("nocache", false, "bypass the transcription cache")
		path, err := parseOne(fs, args)
		if err != nil {
			return err
		}
		var opts []docex.ExtractOption
		if *start > 0 || *end > 0 {
			opts = append(opts, docex.PageRange(*start, *end))
		}
		if !*tables {
			opts = append(opts, docex.WithoutTables())
		}
		if *nocache {
			opts = append(opts, docex.WithoutCache())
		}
		r, err := p.Extract(ctx, path, opts...)
		if err != nil {
			return err
		}
		return writeJSON(stdout, r)

	case "tables":
		fs := flag.NewFlagSet("tables", flag.ContinueOnError)
		path, err := parseOne(fs, args)
		if err != nil {
			return err
		}
		r, err := p.Extract(ctx, path)
		if err != nil {
			return err
		}
		tables := docex.Tables(r)
		if tables == nil {
			tables = []docex.TableRecord{}
		}
		return writeJSON(stdout, tables)

	case "markdown":
		fs := flag.NewFlagSet("markdown", flag.ContinueOnError)
		html := fs.Bool("html", false, "render HTML instead of markdown")
		path, err := parseOne(fs, args)
		if err != nil {
			return err
		}
		r, err := p.Extract(ctx, path)
		if err != nil {
			return err
		}
		md := markdown.Render(r)
		if !*html {
			_, err = io.WriteString(stdout, md)
			return err
		}
		out, err := markdown.ToHTML(md)
		if err != nil {
			return err
		}
		_, err = stdout.Write(out)
		return err

	case "search":
		fs := flag.NewFlagSet("search", flag.ContinueOnError)
		file := fs.String("file", "", "restrict the search to one PDF")
		caseSensitive := fs.Bool("case", false, "case-sensitive match")
		query, err := parseOne(fs, args)
		if err != nil {
			return err
		}
		var opts []docex.SearchOption
		if *file != "" {
			opts = append(opts, docex.InDocument(*file))
		}
		if *caseSensitive {
			opts = append(opts, docex.CaseSensitive())
		}
		matches, err := p.Search(ctx, query, opts...)
		if err != nil {
			return err
		}
		if matches == nil {
			matches = []docex.SearchMatch{}
		}
		return writeJSON(stdout, matches)

	default:
		fmt.Fprintf(os.Stderr, "docex: unknown command %q\n\n%s", cmd, usage)
		return errUsage
	}
}

// parseOne parses flags and requires exactly one positional argument.
func parseOne(fs *flag.FlagSet, args []string) (string, error) {
	if err := fs.Parse(args); err != nil {
		return "", errUsage
	}
	if fs.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "docex %s: expected one argument, got %d\n", fs.Name(), fs.NArg())
		return "", errUsage
	}
	return fs.Arg(0), nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
