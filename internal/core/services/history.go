package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

// Ensure HistoryService implements the interface.
var _ driving.HistoryService = (*HistoryService)(nil)

// HistoryService records and lists per-user activity.
type HistoryService struct {
	store    driven.HistoryStore
	docStore driven.DocumentStore
	capacity int
	now      func() time.Time
}

// NewHistoryService creates a history service.
// capacity <= 0 uses domain.DefaultHistoryCapacity.
func NewHistoryService(store driven.HistoryStore, docStore driven.DocumentStore, capacity int) *HistoryService {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	return &HistoryService{store: store, docStore: docStore, capacity: capacity, now: time.Now}
}

// Recent returns the user's entries of kind, most recent first.
func (s *HistoryService) Recent(ctx context.Context, userID string, kind domain.HistoryKind) ([]domain.HistoryEntry, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}
	entries, err := s.store.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	if kind == "" {
		return entries, nil
	}
	filtered := make([]domain.HistoryEntry, 0, len(entries))
	for _, e := range entries {
		if e.Kind == kind {
			filtered = append(filtered, e)
		}
	}
	return filtered, nil
}

// Record appends entry to the user's history, stamping it if needed.
func (s *HistoryService) Record(ctx context.Context, userID string, entry domain.HistoryEntry) error {
	if err := requireUser(userID); err != nil {
		return err
	}
	if entry.At.IsZero() {
		entry.At = s.now()
	}
	if err := s.store.Append(ctx, userID, entry, s.capacity); err != nil {
		return fmt.Errorf("append history: %w", err)
	}
	return nil
}

// Bookmark records a bookmark for an existing document.
func (s *HistoryService) Bookmark(ctx context.Context, userID, documentID string) error {
	doc, err := s.docStore.GetDocument(ctx, documentID)
	if errors.Is(err, domain.ErrNotFound) {
		return fmt.Errorf("document %s: %w", documentID, domain.ErrNotFound)
	}
	if err != nil {
		return err
	}
	return s.Record(ctx, userID, domain.HistoryEntry{
		Kind:       domain.HistoryKindBookmark,
		DocumentID: doc.ID,
		Title:      doc.Title,
	})
}

func requireUser(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return fmt.Errorf("%w: user is required", domain.ErrInvalidInput)
	}
	return nil
}
