package driven

import "context"

// VectorRecord is one stored vector with its metadata.
type VectorRecord struct {
	// ID is the record identifier, "<documentId>_chunk_<index>" for chunks.
	ID string

	Values   []float32
	Metadata map[string]any
}

// VectorMatch is a similarity search result. Higher scores are more similar.
type VectorMatch struct {
	ID       string
	Score    float64
	Metadata map[string]any
}

// VectorFilter restricts operations to records whose metadata matches every
// condition. A condition matches when the field equals any of its values;
// list-valued metadata matches when any element does. An empty filter
// matches everything.
type VectorFilter struct {
	Conditions []FilterCondition
}

// FilterCondition is one field constraint of a VectorFilter.
type FilterCondition struct {
	Field  string
	Values []string
}

// Eq returns a filter requiring field == value.
func Eq(field, value string) VectorFilter {
	return VectorFilter{Conditions: []FilterCondition{{Field: field, Values: []string{value}}}}
}

// And returns f with an extra one-of condition. Empty values are ignored.
func (f VectorFilter) And(field string, values ...string) VectorFilter {
	if len(values) == 0 {
		return f
	}
	out := VectorFilter{Conditions: make([]FilterCondition, 0, len(f.Conditions)+1)}
	out.Conditions = append(out.Conditions, f.Conditions...)
	out.Conditions = append(out.Conditions, FilterCondition{Field: field, Values: values})
	return out
}

// IsEmpty reports whether the filter has no conditions.
func (f VectorFilter) IsEmpty() bool {
	return len(f.Conditions) == 0
}

// Matches evaluates the filter against record metadata.
// Backends without native filtering use this directly.
func (f VectorFilter) Matches(md map[string]any) bool {
	for _, c := range f.Conditions {
		if !c.matches(md[c.Field]) {
			return false
		}
	}
	return true
}

func (c FilterCondition) matches(v any) bool {
	switch val := v.(type) {
	case string:
		return c.contains(val)
	case []string:
		for _, s := range val {
			if c.contains(s) {
				return true
			}
		}
	case []any:
		for _, item := range val {
			if s, ok := item.(string); ok && c.contains(s) {
				return true
			}
		}
	}
	return false
}

func (c FilterCondition) contains(s string) bool {
	for _, want := range c.Values {
		if s == want {
			return true
		}
	}
	return false
}

// ListOptions pages through records.
type ListOptions struct {
	Filter VectorFilter

	// Cursor continues a previous listing; empty starts from the beginning.
	Cursor string

	// Limit caps the page size.
	Limit int
}

// VectorPage is one page of a listing. NextCursor is empty on the last page.
type VectorPage struct {
	Records    []VectorRecord
	NextCursor string
}

// VectorIndex stores chunk vectors in namespaces and answers similarity queries.
// Upserting an existing ID replaces the record.
//
// Implementations may include:
//   - SQLite with brute-force cosine scoring
//   - In-memory maps for tests
//   - Qdrant over its REST API
type VectorIndex interface {
	// Upsert inserts or replaces records.
	Upsert(ctx context.Context, namespace string, records []VectorRecord) error

	// Query returns up to topK records most similar to vector that match filter.
	Query(ctx context.Context, namespace string, vector []float32, topK int, filter VectorFilter) ([]VectorMatch, error)

	// Delete removes records by ID. Missing IDs are ignored.
	Delete(ctx context.Context, namespace string, ids []string) error

	// DeleteByFilter removes every record matching filter.
	// An empty filter is rejected; use DeleteAll.
	DeleteByFilter(ctx context.Context, namespace string, filter VectorFilter) error

	// DeleteAll removes every record in the namespace.
	DeleteAll(ctx context.Context, namespace string) error

	// List pages through records in a stable order. Values may be omitted.
	List(ctx context.Context, namespace string, opts ListOptions) (VectorPage, error)

	// Close releases resources.
	Close() error
}
