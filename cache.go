package docex

import (
	"context"
	"fmt"
)

// CacheKey addresses one cached version of a document: the sanitized
// filename stem plus the content hash of its bytes.
type CacheKey struct {
	Stem string
	Hash string
}

// KeyFor derives the cache key of an identified document.
func KeyFor(id PDFIdentity) CacheKey {
	return CacheKey{Stem: SanitizeStem(id.Filename), Hash: id.ContentHash}
}

// String returns "<stem>_<hash>", the base name of the entry on disk.
func (k CacheKey) String() string {
	return k.Stem + "_" + k.Hash
}

// CacheEntry is a cached full-document extraction.
type CacheEntry struct {
	Result *ExtractionResult
	// TablesExtracted records whether the table pass ran when the entry was
	// produced. An entry without tables cannot serve a request for them.
	TablesExtracted bool
}

// Cache persists full-document extraction results.
//
// Load returns (nil, nil) on a miss. Implementations treat unreadable or
// malformed entries as misses. Save must replace an existing entry
// atomically: a reader observes either the old entry, the new one, or none.
type Cache interface {
	Load(ctx context.Context, key CacheKey) (*CacheEntry, error)
	Save(ctx context.Context, key CacheKey, entry *CacheEntry) error
}

// ValidateEntry reports whether a loaded entry is internally consistent with
// its key: the embedded hash matches, and pages run 1..num_pages in order.
func ValidateEntry(key CacheKey, e *CacheEntry) error {
	if e == nil || e.Result == nil {
		return fmt.Errorf("docex: cache entry %s is empty", key)
	}
	r := e.Result
	if r.Metadata.FileHash != key.Hash {
		return fmt.Errorf("docex: cache entry %s carries hash %q", key, r.Metadata.FileHash)
	}
	if len(r.Pages) != r.Metadata.NumPages {
		return fmt.Errorf("docex: cache entry %s has %d pages, metadata says %d",
			key, len(r.Pages), r.Metadata.NumPages)
	}
	for i, p := range r.Pages {
		if p.PageNumber != i+1 {
			return fmt.Errorf("docex: cache entry %s: page %d out of sequence at position %d",
				key, p.PageNumber, i+1)
		}
	}
	return nil
}

// Project returns a copy of r restricted to the inclusive 1-indexed page
// range [start, end]. Zero means unset for either bound. Metadata and
// warnings are carried over unchanged.
func Project(r *ExtractionResult, start, end int) *ExtractionResult {
	out := *r
	out.Warnings = append([]string{}, r.Warnings...)
	out.Pages = []PageContent{}
	for _, p := range r.Pages {
		if start > 0 && p.PageNumber < start {
			continue
		}
		if end > 0 && p.PageNumber > end {
			continue
		}
		out.Pages = append(out.Pages, p)
	}
	return &out
}

// withoutTables returns a copy of r whose pages carry no tables.
func withoutTables(r *ExtractionResult) *ExtractionResult {
	out := *r
	out.Pages = make([]PageContent, len(r.Pages))
	for i, p := range r.Pages {
		p.Tables = []Table{}
		out.Pages[i] = p
	}
	return &out
}
