package memory

import (
	"context"
	"sync"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// Ensure HistoryStore implements the interface.
var _ driven.HistoryStore = (*HistoryStore)(nil)

// HistoryStore is an in-memory implementation of driven.HistoryStore.
// Each user's entries are kept most recent first.
type HistoryStore struct {
	mu      sync.RWMutex
	entries map[string][]domain.HistoryEntry
}

// NewHistoryStore creates a new in-memory history store.
func NewHistoryStore() *HistoryStore {
	return &HistoryStore{entries: make(map[string][]domain.HistoryEntry)}
}

// Get returns the user's entries, most recent first.
func (s *HistoryStore) Get(_ context.Context, userID string) ([]domain.HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.HistoryEntry{}, s.entries[userID]...), nil
}

// Append adds entry at the front and trims to capacity.
func (s *HistoryStore) Append(_ context.Context, userID string, entry domain.HistoryEntry, capacity int) error {
	if capacity <= 0 {
		capacity = domain.DefaultHistoryCapacity
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	list := append([]domain.HistoryEntry{entry}, s.entries[userID]...)
	if len(list) > capacity {
		list = list[:capacity]
	}
	s.entries[userID] = list
	return nil
}

// Close is a no-op.
func (s *HistoryStore) Close() error {
	return nil
}
