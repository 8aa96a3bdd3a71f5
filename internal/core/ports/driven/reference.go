package driven

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// ReferenceSource supplies verticals and document types.
type ReferenceSource interface {
	// Name identifies the source in logs.
	Name() string

	// Fetch returns the full reference table.
	Fetch(ctx context.Context) (*domain.ReferenceData, error)
}
