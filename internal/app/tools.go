package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"unicode/utf8"

	"github.com/nevindra/docex"
	"github.com/nevindra/docex/markdown"
	"github.com/nevindra/docex/mcp"
)

// MaxSearchResults caps the matches returned by search_pdf_content.
const MaxSearchResults = 50

// Register adds the document tools and the document list resource to srv.
func Register(srv *mcp.Server, p *docex.Processor) {
	for _, t := range Tools(p) {
		srv.AddTool(t)
	}
	srv.AddResource(mcp.Resource{
		URI:         "docex://documents",
		Name:        "documents",
		Description: "PDF files available under the document root",
		MimeType:    "application/json",
		Read: func(context.Context) (string, error) {
			files, err := p.List()
			if err != nil {
				return "", err
			}
			if files == nil {
				files = []docex.FileInfo{}
			}
			data, err := json.MarshalIndent(files, "", "  ")
			return string(data), err
		},
	})
}

var (
	pathProp  = mcp.String("PDF path, relative to the document root")
	startProp = mcp.Int("First page, 1-indexed and inclusive", 1)
	endProp   = mcp.Int("Last page, 1-indexed and inclusive", 1)

	metadataSchema = mcp.Object(map[string]*mcp.Schema{"filepath": pathProp}, "filepath")
	rangeSchema    = mcp.Object(map[string]*mcp.Schema{
		"filepath":   pathProp,
		"page_start": startProp,
		"page_end":   endProp,
	}, "filepath")
)

type rangeArgs struct {
	Filepath  string `json:"filepath"`
	PageStart *int   `json:"page_start"`
	PageEnd   *int   `json:"page_end"`
}

func (a rangeArgs) options() []docex.ExtractOption {
	if a.PageStart == nil && a.PageEnd == nil {
		return nil
	}
	var start, end int
	if a.PageStart != nil {
		start = *a.PageStart
	}
	if a.PageEnd != nil {
		end = *a.PageEnd
	}
	return []docex.ExtractOption{docex.PageRange(start, end)}
}

// Tools returns the MCP tool handlers backed by p.
func Tools(p *docex.Processor) []mcp.ToolHandler {
	return []mcp.ToolHandler{
		{
			Definition: mcp.ToolDefinition{
				Name:        "list_pdfs",
				Description: "List the PDF files available in the document root with their sizes.",
				InputSchema: mcp.Object(nil),
			},
			Execute: func(context.Context, json.RawMessage) mcp.ToolCallResult {
				files, err := p.List()
				if err != nil {
					return failure(err)
				}
				if files == nil {
					files = []docex.FileInfo{}
				}
				return mcp.JSONResult(map[string]any{"success": true, "total": len(files), "pdfs": files})
			},
		},
		{
			Definition: mcp.ToolDefinition{
				Name:        "get_pdf_metadata",
				Description: "Read a PDF's document properties (title, author, page count, content hash, size) without extracting its content.",
				InputSchema: metadataSchema,
			},
			Execute: func(ctx context.Context, raw json.RawMessage) mcp.ToolCallResult {
				var args rangeArgs
				if err := mcp.DecodeArgs(raw, metadataSchema, &args); err != nil {
					return failure(err)
				}
				meta, err := p.Metadata(ctx, args.Filepath)
				if err != nil {
					return failure(err)
				}
				return mcp.JSONResult(map[string]any{"success": true, "metadata": meta})
			},
		},
		{
			Definition: mcp.ToolDefinition{
				Name: "extract_pdf_text",
				Description: "Extract the text of a PDF page by page. Scanned pages fall back to OCR. " +
					"Results are cached by content hash.",
				InputSchema: rangeSchema,
			},
			Execute: func(ctx context.Context, raw json.RawMessage) mcp.ToolCallResult {
				var args rangeArgs
				if err := mcp.DecodeArgs(raw, rangeSchema, &args); err != nil {
					return failure(err)
				}
				r, err := p.Extract(ctx, args.Filepath, append(args.options(), docex.WithoutTables())...)
				if err != nil {
					return failure(err)
				}
				return mcp.JSONResult(textPayload(r))
			},
		},
		{
			Definition: mcp.ToolDefinition{
				Name:        "extract_pdf_tables",
				Description: "Extract structured tables from a PDF, organized by page.",
				InputSchema: rangeSchema,
			},
			Execute: func(ctx context.Context, raw json.RawMessage) mcp.ToolCallResult {
				var args rangeArgs
				if err := mcp.DecodeArgs(raw, rangeSchema, &args); err != nil {
					return failure(err)
				}
				r, err := p.Extract(ctx, args.Filepath, args.options()...)
				if err != nil {
					return failure(err)
				}
				tables := docex.Tables(r)
				if tables == nil {
					tables = []docex.TableRecord{}
				}
				return mcp.JSONResult(map[string]any{
					"success":      true,
					"filename":     r.Metadata.Filename,
					"total_tables": len(tables),
					"tables":       tables,
				})
			},
		},
		{
			Definition: mcp.ToolDefinition{
				Name:        "convert_pdf_to_markdown",
				Description: "Convert a PDF to structured markdown with metadata, page sections and tables.",
				InputSchema: rangeSchema,
			},
			Execute: func(ctx context.Context, raw json.RawMessage) mcp.ToolCallResult {
				var args rangeArgs
				if err := mcp.DecodeArgs(raw, rangeSchema, &args); err != nil {
					return failure(err)
				}
				r, err := p.Extract(ctx, args.Filepath, args.options()...)
				if err != nil {
					return failure(err)
				}
				md := markdown.Render(r)
				return mcp.JSONResult(map[string]any{
					"success":    true,
					"markdown":   md,
					"char_count": utf8.RuneCountInString(md),
				})
			},
		},
		searchTool(p),
	}
}

var searchSchema = mcp.Object(map[string]*mcp.Schema{
	"query":          mcp.String("Literal text to search for"),
	"filepath":       mcp.String("Restrict the search to one PDF; all PDFs when omitted"),
	"case_sensitive": mcp.Bool("Match case exactly (default false)"),
}, "query")

func searchTool(p *docex.Processor) mcp.ToolHandler {
	return mcp.ToolHandler{
		Definition: mcp.ToolDefinition{
			Name:        "search_pdf_content",
			Description: "Search one or all PDFs for a literal term and return matches with surrounding context.",
			InputSchema: searchSchema,
		},
		Execute: func(ctx context.Context, raw json.RawMessage) mcp.ToolCallResult {
			var args struct {
				Query         string `json:"query"`
				Filepath      string `json:"filepath"`
				CaseSensitive bool   `json:"case_sensitive"`
			}
			if err := mcp.DecodeArgs(raw, searchSchema, &args); err != nil {
				return failure(err)
			}
			var opts []docex.SearchOption
			if args.Filepath != "" {
				opts = append(opts, docex.InDocument(args.Filepath))
			}
			if args.CaseSensitive {
				opts = append(opts, docex.CaseSensitive())
			}
			matches, err := p.Search(ctx, args.Query, opts...)
			if err != nil {
				return failure(err)
			}
			if matches == nil {
				matches = []docex.SearchMatch{}
			}
			out := map[string]any{
				"success":       true,
				"query":         args.Query,
				"total_matches": len(matches),
				"matches":       matches[:min(len(matches), MaxSearchResults)],
			}
			if len(matches) > MaxSearchResults {
				out["truncated"] = true
				out["total_available"] = len(matches)
			}
			return mcp.JSONResult(out)
		},
	}
}

type pageText struct {
	PageNumber       int                    `json:"page_number"`
	Text             string                 `json:"text"`
	ExtractionMethod docex.ExtractionMethod `json:"extraction_method"`
	HasImages        bool                   `json:"has_images"`
	CharCount        int                    `json:"char_count"`
}

func textPayload(r *docex.ExtractionResult) map[string]any {
	pages := make([]pageText, len(r.Pages))
	for i, pc := range r.Pages {
		pages[i] = pageText{
			PageNumber:       pc.PageNumber,
			Text:             pc.Text,
			ExtractionMethod: pc.ExtractionMethod,
			HasImages:        pc.HasImages,
			CharCount:        utf8.RuneCountInString(pc.Text),
		}
	}
	return map[string]any{
		"success":            true,
		"filename":           r.Metadata.Filename,
		"num_pages":          r.Metadata.NumPages,
		"pages_extracted":    len(pages),
		"total_chars":        r.TotalChars(),
		"extraction_time_ms": math.Round(r.ExtractionTimeMs*10) / 10,
		"pages":              pages,
		"warnings":           r.Warnings,
	}
}

// failure reports err to the client as {"success": false, "error": ...},
// naming the error kind for the three fatal document errors.
func failure(err error) mcp.ToolCallResult {
	body := map[string]any{"success": false, "error": err.Error()}
	var (
		escape   *docex.ErrPathEscape
		notFound *docex.ErrNotFound
		corrupt  *docex.ErrCorruptDocument
	)
	switch {
	case errors.As(err, &escape):
		body["kind"] = "path_escape"
	case errors.As(err, &notFound):
		body["kind"] = "not_found"
	case errors.As(err, &corrupt):
		body["kind"] = "corrupt_document"
	}
	r := mcp.JSONResult(body)
	r.IsError = true
	return r
}
