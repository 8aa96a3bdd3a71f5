package driving

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// SearchService answers questions with citations into the source documents.
type SearchService interface {
	// Search retrieves relevant chunks, generates an answer and resolves citations.
	Search(ctx context.Context, query string, opts domain.SearchOptions) (*domain.SearchResponse, error)
}
