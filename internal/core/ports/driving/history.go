package driving

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// HistoryService exposes per-user recent activity.
type HistoryService interface {
	// Recent returns the user's entries of kind, most recent first.
	// An empty kind returns every entry.
	Recent(ctx context.Context, userID string, kind domain.HistoryKind) ([]domain.HistoryEntry, error)

	// Record appends an entry to the user's history.
	Record(ctx context.Context, userID string, entry domain.HistoryEntry) error

	// Bookmark records a document bookmark for the user.
	Bookmark(ctx context.Context, userID, documentID string) error
}
