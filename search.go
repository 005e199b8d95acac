package docex

import (
	"context"
	"errors"
	"unicode"

	"golang.org/x/sync/errgroup"
)

// SearchOption adjusts a Search call.
type SearchOption func(*searchConfig)

type searchConfig struct {
	path          string
	caseSensitive bool
}

// InDocument restricts the search to one document, relative to the root.
func InDocument(path string) SearchOption {
	return func(c *searchConfig) { c.path = path }
}

// CaseSensitive makes matching respect letter case.
func CaseSensitive() SearchOption {
	return func(c *searchConfig) { c.caseSensitive = true }
}

// ErrEmptyQuery is returned by Search for an empty query.
var ErrEmptyQuery = errors.New("docex: empty search query")

// Search finds literal occurrences of query in one or all documents. Page
// text comes from the cached extraction where available; no table pass runs.
// Matches are ordered by filename, then page, then offset.
//
// When searching a single document its errors are returned. When searching
// the whole root, documents that fail are logged and skipped.
func (p *Processor) Search(ctx context.Context, query string, opts ...SearchOption) (matches []SearchMatch, err error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}
	var cfg searchConfig
	for _, o := range opts {
		o(&cfg)
	}

	if p.tracer != nil {
		var span Span
		ctx, span = p.tracer.Start(ctx, "docex.search",
			StringAttr("query", query),
			StringAttr("file", cfg.path),
			BoolAttr("case_sensitive", cfg.caseSensitive))
		defer func() {
			if err != nil {
				span.Error(err)
			} else {
				span.SetAttr(IntAttr("matches", len(matches)))
			}
			span.End()
		}()
	}

	m := newMatcher(query, cfg.caseSensitive, p.searchContext)
	if cfg.path != "" {
		r, err := p.Extract(ctx, cfg.path, WithoutTables())
		if err != nil {
			return nil, err
		}
		return m.result(r), nil
	}

	files, err := p.List()
	if err != nil {
		return nil, err
	}
	perFile := make([][]SearchMatch, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(p.searchWorkers, 1))
	for i, f := range files {
		g.Go(func() error {
			r, err := p.Extract(gctx, f.Filename, WithoutTables())
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				p.logger.Warn("docex: search skipping document", "file", f.Filename, "err", err)
				return nil
			}
			perFile[i] = m.result(r)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	for _, fm := range perFile {
		matches = append(matches, fm...)
	}
	return matches, nil
}

// matcher finds non-overlapping literal occurrences of a query in page text,
// comparing rune by rune.
type matcher struct {
	query   []rune
	fold    bool
	context int
}

func newMatcher(query string, caseSensitive bool, context int) *matcher {
	m := &matcher{query: []rune(query), fold: !caseSensitive, context: context}
	if m.fold {
		for i, r := range m.query {
			m.query[i] = unicode.ToLower(r)
		}
	}
	return m
}

func (m *matcher) result(r *ExtractionResult) []SearchMatch {
	var out []SearchMatch
	for _, page := range r.Pages {
		out = append(out, m.page(r.Metadata.Filename, page)...)
	}
	return out
}

func (m *matcher) page(filename string, page PageContent) []SearchMatch {
	text := []rune(page.Text)
	n := len(m.query)
	var out []SearchMatch
	for i := 0; i+n <= len(text); {
		if !m.matchAt(text, i) {
			i++
			continue
		}
		start := max(0, i-m.context)
		end := min(len(text), i+n+m.context)
		out = append(out, SearchMatch{
			Filename:      filename,
			PageNumber:    page.PageNumber,
			MatchedText:   string(text[i : i+n]),
			ContextWindow: "..." + trimRunes(text[start:end]) + "...",
			Offset:        i,
		})
		i += n
	}
	return out
}

func (m *matcher) matchAt(text []rune, i int) bool {
	for j, q := range m.query {
		r := text[i+j]
		if m.fold {
			r = unicode.ToLower(r)
		}
		if r != q {
			return false
		}
	}
	return true
}

func trimRunes(rs []rune) string {
	for len(rs) > 0 && unicode.IsSpace(rs[0]) {
		rs = rs[1:]
	}
	for len(rs) > 0 && unicode.IsSpace(rs[len(rs)-1]) {
		rs = rs[:len(rs)-1]
	}
	return string(rs)
}
