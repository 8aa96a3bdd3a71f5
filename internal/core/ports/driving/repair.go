package driving

import (
	"context"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// RepairService detects and fixes drift between documents and the vector index.
type RepairService interface {
	// FindOrphans lists vector entries whose owning document is gone.
	FindOrphans(ctx context.Context) (*domain.OrphanReport, error)

	// PurgeOrphans deletes orphaned entries in batches of at most batchSize.
	PurgeOrphans(ctx context.Context, batchSize int) (*domain.PurgeReport, error)

	// VerifyContent samples chunks of each document and checks their offsets.
	// Empty documentIDs verifies every completed document.
	VerifyContent(ctx context.Context, documentIDs []string, sampleSize int) (*domain.VerifyReport, error)

	// MarkStale fails non-terminal documents with no progress for longer than olderThan.
	MarkStale(ctx context.Context, olderThan time.Duration) (*domain.StaleReport, error)
}
