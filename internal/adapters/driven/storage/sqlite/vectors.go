package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/vector"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// deleteBatch caps the ids bound in one DELETE statement.
const deleteBatch = 500

// vectorIndex implements driven.VectorIndex with brute-force cosine scoring.
// Metadata is stored as JSON; the owning document id is also kept in its
// own column so purges by document do not scan every row.
type vectorIndex struct {
	db *sql.DB
}

var _ driven.VectorIndex = (*vectorIndex)(nil)

// Upsert inserts or replaces records in one transaction.
func (v *vectorIndex) Upsert(ctx context.Context, namespace string, records []driven.VectorRecord) error {
	for _, r := range records {
		if r.ID == "" || len(r.Values) == 0 {
			return fmt.Errorf("%w: vector record needs an id and values", domain.ErrInvalidInput)
		}
	}
	return inTx(ctx, v.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO vectors (namespace, id, document_id, dimensions, embedding, metadata)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(namespace, id) DO UPDATE SET
				document_id = excluded.document_id,
				dimensions = excluded.dimensions,
				embedding = excluded.embedding,
				metadata = excluded.metadata
		`)
		if err != nil {
			return fmt.Errorf("preparing vector upsert: %w", err)
		}
		defer stmt.Close()

		for _, r := range records {
			md, err := json.Marshal(r.Metadata)
			if err != nil {
				return fmt.Errorf("marshalling metadata for %s: %w", r.ID, err)
			}
			if _, err := stmt.ExecContext(ctx, namespace, r.ID, domain.MetaString(r.Metadata, domain.MetaDocumentID),
				len(r.Values), float32SliceToBytes(r.Values), string(md)); err != nil {
				return fmt.Errorf("upserting vector %s: %w", r.ID, err)
			}
		}
		return nil
	})
}

// Query scores every candidate row against vec and keeps the topK best.
func (v *vectorIndex) Query(
	ctx context.Context, namespace string, vec []float32, topK int, filter driven.VectorFilter,
) ([]driven.VectorMatch, error) {
	query, args := candidateQuery("id, embedding, metadata", namespace, filter)
	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying vectors: %w", err)
	}
	defer rows.Close()

	var matches []driven.VectorMatch
	for rows.Next() {
		var (
			id   string
			blob []byte
			raw  string
		)
		if err := rows.Scan(&id, &blob, &raw); err != nil {
			return nil, fmt.Errorf("scanning vector: %w", err)
		}
		md, err := decodeMetadata(raw)
		if err != nil {
			return nil, fmt.Errorf("vector %s: %w", id, err)
		}
		if !filter.Matches(md) {
			continue
		}
		matches = append(matches, driven.VectorMatch{
			ID:       id,
			Score:    vector.Cosine(vec, bytesToFloat32Slice(blob)),
			Metadata: md,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating vectors: %w", err)
	}
	return vector.Rank(matches, topK), nil
}

// Delete removes records by ID.
func (v *vectorIndex) Delete(ctx context.Context, namespace string, ids []string) error {
	for start := 0; start < len(ids); start += deleteBatch {
		end := min(start+deleteBatch, len(ids))
		args := []any{namespace}
		for _, id := range ids[start:end] {
			args = append(args, id)
		}
		if _, err := v.db.ExecContext(ctx,
			"DELETE FROM vectors WHERE namespace = ? AND id IN ("+placeholders(end-start)+")", args...); err != nil {
			return fmt.Errorf("deleting vectors: %w", err)
		}
	}
	return nil
}

// DeleteByFilter removes every record matching filter.
func (v *vectorIndex) DeleteByFilter(ctx context.Context, namespace string, filter driven.VectorFilter) error {
	if filter.IsEmpty() {
		return fmt.Errorf("%w: delete by filter needs at least one condition", domain.ErrInvalidInput)
	}
	if docIDs, ok := documentOnly(filter); ok {
		args := []any{namespace}
		for _, id := range docIDs {
			args = append(args, id)
		}
		_, err := v.db.ExecContext(ctx,
			"DELETE FROM vectors WHERE namespace = ? AND document_id IN ("+placeholders(len(docIDs))+")", args...)
		if err != nil {
			return fmt.Errorf("deleting vectors by document: %w", err)
		}
		return nil
	}

	var ids []string
	cursor := ""
	for {
		page, err := v.List(ctx, namespace, driven.ListOptions{Filter: filter, Cursor: cursor, Limit: deleteBatch})
		if err != nil {
			return err
		}
		for _, r := range page.Records {
			ids = append(ids, r.ID)
		}
		if page.NextCursor == "" {
			break
		}
		cursor = page.NextCursor
	}
	return v.Delete(ctx, namespace, ids)
}

// DeleteAll removes every record in the namespace.
func (v *vectorIndex) DeleteAll(ctx context.Context, namespace string) error {
	if _, err := v.db.ExecContext(ctx, "DELETE FROM vectors WHERE namespace = ?", namespace); err != nil {
		return fmt.Errorf("deleting namespace: %w", err)
	}
	return nil
}

// List pages through records ordered by ID without their values.
// The cursor is the last ID returned.
func (v *vectorIndex) List(ctx context.Context, namespace string, opts driven.ListOptions) (driven.VectorPage, error) {
	query, args := candidateQuery("id, metadata", namespace, opts.Filter)
	query += " AND id > ? ORDER BY id"
	args = append(args, opts.Cursor)

	rows, err := v.db.QueryContext(ctx, query, args...)
	if err != nil {
		return driven.VectorPage{}, fmt.Errorf("listing vectors: %w", err)
	}
	defer rows.Close()

	var page driven.VectorPage
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return driven.VectorPage{}, fmt.Errorf("scanning vector: %w", err)
		}
		md, err := decodeMetadata(raw)
		if err != nil {
			return driven.VectorPage{}, fmt.Errorf("vector %s: %w", id, err)
		}
		if !opts.Filter.Matches(md) {
			continue
		}
		if opts.Limit > 0 && len(page.Records) == opts.Limit {
			page.NextCursor = page.Records[len(page.Records)-1].ID
			break
		}
		page.Records = append(page.Records, driven.VectorRecord{ID: id, Metadata: md})
	}
	if err := rows.Err(); err != nil {
		return driven.VectorPage{}, fmt.Errorf("iterating vectors: %w", err)
	}
	return page, nil
}

// Close is a no-op; the database belongs to the Store.
func (v *vectorIndex) Close() error {
	return nil
}

// candidateQuery selects cols from a namespace, narrowed by document id
// when the filter has a documentId condition. Other conditions are
// evaluated in Go against the decoded metadata.
func candidateQuery(cols, namespace string, filter driven.VectorFilter) (string, []any) {
	query := "SELECT " + cols + " FROM vectors WHERE namespace = ?"
	args := []any{namespace}
	for _, c := range filter.Conditions {
		if c.Field == domain.MetaDocumentID && len(c.Values) > 0 {
			query += " AND document_id IN (" + placeholders(len(c.Values)) + ")"
			for _, id := range c.Values {
				args = append(args, id)
			}
		}
	}
	return query, args
}

// documentOnly returns the document ids of a filter whose only condition is on documentId.
func documentOnly(filter driven.VectorFilter) ([]string, bool) {
	if len(filter.Conditions) != 1 || filter.Conditions[0].Field != domain.MetaDocumentID ||
		len(filter.Conditions[0].Values) == 0 {
		return nil, false
	}
	return filter.Conditions[0].Values, true
}

func decodeMetadata(raw string) (map[string]any, error) {
	var md map[string]any
	if err := json.Unmarshal([]byte(raw), &md); err != nil {
		return nil, fmt.Errorf("unmarshalling metadata: %w", err)
	}
	return md, nil
}
