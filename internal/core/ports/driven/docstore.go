package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// DocumentFilter narrows ListDocuments.
type DocumentFilter struct {
	// Statuses restricts to these statuses (empty = all).
	Statuses []domain.ProcessingStatus

	// Jurisdiction restricts to one jurisdiction (empty = all).
	Jurisdiction string

	// UpdatedBefore restricts to documents not updated since this time (zero = no bound).
	UpdatedBefore time.Time
}

// DocumentStore persists documents, their extracted content and raw sources.
// Backed by SQLite for metadata storage.
type DocumentStore interface {
	// SaveDocument stores or updates a document.
	SaveDocument(ctx context.Context, doc *domain.Document) error

	// GetDocument retrieves a document by ID.
	// Returns domain.ErrNotFound if it does not exist.
	GetDocument(ctx context.Context, id string) (*domain.Document, error)

	// ListDocuments returns documents matching filter, newest first.
	ListDocuments(ctx context.Context, filter DocumentFilter) ([]domain.Document, error)

	// ExistingIDs returns the subset of ids that exist, in one round trip.
	ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error)

	// DeleteDocument removes a document and its raw source.
	DeleteDocument(ctx context.Context, id string) error

	// SaveSource stores the raw upload bytes for re-extraction.
	SaveSource(ctx context.Context, documentID string, content []byte) error

	// GetSource returns the raw upload bytes.
	// Returns domain.ErrNotFound if none were stored.
	GetSource(ctx context.Context, documentID string) ([]byte, error)
}
