package driven

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// HistoryStore keeps an ordered, size-capped list of entries per user.
// Entries are returned most recent first.
type HistoryStore interface {
	// Get returns the user's entries, most recent first.
	// An unknown user has an empty history.
	Get(ctx context.Context, userID string) ([]domain.HistoryEntry, error)

	// Append adds entry at the front and trims the list to capacity.
	Append(ctx context.Context, userID string, entry domain.HistoryEntry, capacity int) error

	// Close releases resources.
	Close() error
}
