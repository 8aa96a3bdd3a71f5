package driven

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// Chunker splits extracted text into chunks whose offsets index the text exactly.
type Chunker interface {
	// Name returns the chunker name for logging and configuration.
	Name() string

	// Chunk splits ex.Text into chunks owned by documentID, in index order.
	// For every chunk, ex.Text[c.StartChar:c.EndChar] == c.Text.
	Chunk(ctx context.Context, documentID string, ex *domain.Extraction) ([]domain.Chunk, error)
}
