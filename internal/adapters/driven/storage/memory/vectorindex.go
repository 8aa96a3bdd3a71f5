package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// Ensure VectorIndex implements the interface.
var _ driven.VectorIndex = (*VectorIndex)(nil)

// VectorIndex is an in-memory driven.VectorIndex scored by brute-force cosine.
type VectorIndex struct {
	mu         sync.RWMutex
	namespaces map[string]map[string]driven.VectorRecord
}

// NewVectorIndex creates an empty in-memory vector index.
func NewVectorIndex() *VectorIndex {
	return &VectorIndex{namespaces: make(map[string]map[string]driven.VectorRecord)}
}

// Upsert inserts or replaces records.
func (v *VectorIndex) Upsert(_ context.Context, namespace string, records []driven.VectorRecord) error {
	for _, r := range records {
		if r.ID == "" || len(r.Values) == 0 {
			return fmt.Errorf("%w: vector record needs an id and values", domain.ErrInvalidInput)
		}
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	ns := v.namespaces[namespace]
	if ns == nil {
		ns = make(map[string]driven.VectorRecord)
		v.namespaces[namespace] = ns
	}
	for _, r := range records {
		ns[r.ID] = driven.VectorRecord{
			ID:       r.ID,
			Values:   append([]float32(nil), r.Values...),
			Metadata: vector.CloneMetadata(r.Metadata),
		}
	}
	return nil
}

// Query returns up to topK records most similar to vec that match filter.
func (v *VectorIndex) Query(
	_ context.Context, namespace string, vec []float32, topK int, filter driven.VectorFilter,
) ([]driven.VectorMatch, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	var matches []driven.VectorMatch
	for _, r := range v.namespaces[namespace] {
		if !filter.Matches(r.Metadata) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			ID:       r.ID,
			Score:    vector.Cosine(vec, r.Values),
			Metadata: vector.CloneMetadata(r.Metadata),
		})
	}
	return vector.Rank(matches, topK), nil
}

// Delete removes records by ID.
func (v *VectorIndex) Delete(_ context.Context, namespace string, ids []string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	for _, id := range ids {
		delete(v.namespaces[namespace], id)
	}
	return nil
}

// DeleteByFilter removes every record matching filter.
func (v *VectorIndex) DeleteByFilter(_ context.Context, namespace string, filter driven.VectorFilter) error {
	if filter.IsEmpty() {
		return fmt.Errorf("%w: delete by filter needs at least one condition", domain.ErrInvalidInput)
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	for id, r := range v.namespaces[namespace] {
		if filter.Matches(r.Metadata) {
			delete(v.namespaces[namespace], id)
		}
	}
	return nil
}

// DeleteAll removes every record in the namespace.
func (v *VectorIndex) DeleteAll(_ context.Context, namespace string) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	delete(v.namespaces, namespace)
	return nil
}

// List pages through records ordered by ID. The cursor is the last ID returned.
func (v *VectorIndex) List(_ context.Context, namespace string, opts driven.ListOptions) (driven.VectorPage, error) {
	v.mu.RLock()
	defer v.mu.RUnlock()

	ids := make([]string, 0, len(v.namespaces[namespace]))
	for id, r := range v.namespaces[namespace] {
		if id > opts.Cursor && opts.Filter.Matches(r.Metadata) {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	var page driven.VectorPage
	if opts.Limit > 0 && len(ids) > opts.Limit {
		ids = ids[:opts.Limit]
		page.NextCursor = ids[len(ids)-1]
	}
	for _, id := range ids {
		r := v.namespaces[namespace][id]
		page.Records = append(page.Records, driven.VectorRecord{
			ID:       r.ID,
			Values:   append([]float32(nil), r.Values...),
			Metadata: vector.CloneMetadata(r.Metadata),
		})
	}
	return page, nil
}

// Count returns the number of records in the namespace.
func (v *VectorIndex) Count(namespace string) int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return len(v.namespaces[namespace])
}

// Close is a no-op.
func (v *VectorIndex) Close() error {
	return nil
}
