package driven

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// ExtractInput is the raw material handed to an Extractor.
// Either Content or URL is set.
type ExtractInput struct {
	// Filename is the original upload name, used for type detection.
	Filename string

	// MIMEType is the declared or sniffed content type.
	MIMEType string

	// Content holds uploaded bytes.
	Content []byte

	// URL is the page to fetch for URL sources.
	URL string
}

// Extractor turns a raw document into canonical text.
// Implementations may include:
//   - PDF via poppler's pdftotext
//   - Web pages via HTTP fetch and HTML parsing
//   - Plain text and printable-run salvage as a last resort
type Extractor interface {
	// Name identifies the extractor in logs.
	Name() string

	// Supports reports whether the extractor can handle the input.
	Supports(in ExtractInput) bool

	// Extract returns the canonical text. An empty Text is treated as failure.
	Extract(ctx context.Context, in ExtractInput) (*domain.Extraction, error)
}
