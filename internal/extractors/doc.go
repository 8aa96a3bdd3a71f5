// Package extractors turns uploaded files and fetched pages into the
// canonical text that chunk offsets refer to.
//
// Each format lives in its own sub-package and implements driven.Extractor.
// Router picks one per document and falls back when the primary fails.
package extractors
