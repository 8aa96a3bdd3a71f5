package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
// Documents are copied in and out so callers never share state with the store.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	sources   map[string][]byte
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		sources:   make(map[string][]byte),
	}
}

// SaveDocument stores or updates a document.
func (s *DocumentStore) SaveDocument(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.documents[doc.ID] = cloneDocument(doc)
	return nil
}

// GetDocument retrieves a document by ID.
func (s *DocumentStore) GetDocument(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	out := cloneDocument(&doc)
	return &out, nil
}

// ListDocuments returns documents matching filter, newest first.
func (s *DocumentStore) ListDocuments(_ context.Context, filter driven.DocumentFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]domain.Document, 0, len(s.documents))
	for id := range s.documents {
		doc := s.documents[id]
		if !matchesFilter(&doc, filter) {
			continue
		}
		result = append(result, cloneDocument(&doc))
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].CreatedAt.After(result[j].CreatedAt)
		}
		return result[i].ID < result[j].ID
	})
	return result, nil
}

// ExistingIDs returns the subset of ids that exist.
func (s *DocumentStore) ExistingIDs(_ context.Context, ids []string) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	found := make(map[string]bool, len(ids))
	for _, id := range ids {
		if _, ok := s.documents[id]; ok {
			found[id] = true
		}
	}
	return found, nil
}

// DeleteDocument removes a document and its raw source.
func (s *DocumentStore) DeleteDocument(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.documents, id)
	delete(s.sources, id)
	return nil
}

// SaveSource stores the raw upload bytes.
func (s *DocumentStore) SaveSource(_ context.Context, documentID string, content []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[documentID] = append([]byte(nil), content...)
	return nil
}

// GetSource returns the raw upload bytes.
func (s *DocumentStore) GetSource(_ context.Context, documentID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	content, ok := s.sources[documentID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return append([]byte(nil), content...), nil
}

func matchesFilter(doc *domain.Document, f driven.DocumentFilter) bool {
	if len(f.Statuses) > 0 {
		ok := false
		for _, st := range f.Statuses {
			if doc.Status == st {
				ok = true
				break
			}
		}
		if !ok {
			return false
		}
	}
	if f.Jurisdiction != "" && doc.Jurisdiction != f.Jurisdiction {
		return false
	}
	if !f.UpdatedBefore.IsZero() && !doc.UpdatedAt.Before(f.UpdatedBefore) {
		return false
	}
	return true
}

func cloneDocument(doc *domain.Document) domain.Document {
	out := *doc
	if doc.DocumentTypes != nil {
		out.DocumentTypes = append([]string(nil), doc.DocumentTypes...)
	}
	if doc.Content != nil {
		content := *doc.Content
		out.Content = &content
	}
	return out
}
