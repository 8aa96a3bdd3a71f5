package driving

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// ReferenceService serves verticals and document types.
type ReferenceService interface {
	// Verticals returns the known industry verticals.
	Verticals(ctx context.Context) ([]domain.Vertical, error)

	// DocumentTypes returns the known document classifications.
	DocumentTypes(ctx context.Context) ([]domain.DocumentType, error)

	// Data returns the full table and the tier that served it.
	Data(ctx context.Context) (*domain.ReferenceData, domain.ReferenceTier, error)
}
