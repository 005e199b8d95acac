package observer

import "go.opentelemetry.io/otel/attribute"

// Attribute keys for extraction spans and metrics.
var (
	AttrDocFile   = attribute.Key("docex.file")
	AttrDocPages  = attribute.Key("docex.pages")
	AttrDocMethod = attribute.Key("docex.method")
	AttrDocCached = attribute.Key("docex.cached")

	AttrOCREngine     = attribute.Key("ocr.engine")
	AttrOCRPage       = attribute.Key("ocr.page_index")
	AttrOCRChars      = attribute.Key("ocr.chars")
	AttrOCRConfidence = attribute.Key("ocr.confidence")
	AttrOCRStatus     = attribute.Key("ocr.status")

	AttrCacheResult = attribute.Key("cache.result")

	AttrToolName   = attribute.Key("tool.name")
	AttrToolStatus = attribute.Key("tool.status")
)
