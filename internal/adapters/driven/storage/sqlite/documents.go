package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	db *sql.DB
}

var _ driven.DocumentStore = (*documentStore)(nil)

const documentColumns = `id, title, filename, source_kind, source_url, mime_type, jurisdiction,
	document_types, status, progress, total_chunks, processed_chunks, error_message,
	content, uploaded_by, created_at, updated_at`

// SaveDocument stores or updates a document.
func (s *documentStore) SaveDocument(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	types, err := json.Marshal(nonNil(doc.DocumentTypes))
	if err != nil {
		return fmt.Errorf("marshalling document types: %w", err)
	}
	var content any
	if doc.Content != nil {
		content = *doc.Content
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO documents (`+documentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			title = excluded.title,
			filename = excluded.filename,
			source_kind = excluded.source_kind,
			source_url = excluded.source_url,
			mime_type = excluded.mime_type,
			jurisdiction = excluded.jurisdiction,
			document_types = excluded.document_types,
			status = excluded.status,
			progress = excluded.progress,
			total_chunks = excluded.total_chunks,
			processed_chunks = excluded.processed_chunks,
			error_message = excluded.error_message,
			content = excluded.content,
			uploaded_by = excluded.uploaded_by,
			updated_at = excluded.updated_at
	`, doc.ID, doc.Title, doc.Filename, string(doc.SourceKind), doc.SourceURL, doc.MIMEType,
		doc.Jurisdiction, string(types), string(doc.Status), doc.Progress, doc.TotalChunks,
		doc.ProcessedChunks, doc.ErrorMessage, content, doc.UploadedBy,
		formatTime(doc.CreatedAt), formatTime(doc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// GetDocument retrieves a document by ID.
func (s *documentStore) GetDocument(ctx context.Context, id string) (*domain.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return doc, err
}

// ListDocuments returns documents matching filter, newest first.
func (s *documentStore) ListDocuments(ctx context.Context, filter driven.DocumentFilter) ([]domain.Document, error) {
	var where []string
	var args []any
	if len(filter.Statuses) > 0 {
		where = append(where, "status IN ("+placeholders(len(filter.Statuses))+")")
		for _, st := range filter.Statuses {
			args = append(args, string(st))
		}
	}
	if filter.Jurisdiction != "" {
		where = append(where, "jurisdiction = ?")
		args = append(args, filter.Jurisdiction)
	}
	if !filter.UpdatedBefore.IsZero() {
		where = append(where, "updated_at < ?")
		args = append(args, formatTime(filter.UpdatedBefore))
	}

	query := "SELECT " + documentColumns + " FROM documents"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer rows.Close()

	docs := []domain.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, *doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return docs, nil
}

// ExistingIDs returns the subset of ids that exist.
func (s *documentStore) ExistingIDs(ctx context.Context, ids []string) (map[string]bool, error) {
	found := make(map[string]bool, len(ids))
	// SQLite caps bound parameters; query in slices.
	const batch = 500
	for start := 0; start < len(ids); start += batch {
		end := min(start+batch, len(ids))
		args := make([]any, 0, end-start)
		for _, id := range ids[start:end] {
			args = append(args, id)
		}
		rows, err := s.db.QueryContext(ctx,
			"SELECT id FROM documents WHERE id IN ("+placeholders(len(args))+")", args...)
		if err != nil {
			return nil, fmt.Errorf("querying document ids: %w", err)
		}
		for rows.Next() {
			var id string
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scanning document id: %w", err)
			}
			found[id] = true
		}
		err = rows.Err()
		rows.Close()
		if err != nil {
			return nil, fmt.Errorf("iterating document ids: %w", err)
		}
	}
	return found, nil
}

// DeleteDocument removes a document; its raw source cascades.
func (s *documentStore) DeleteDocument(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM documents WHERE id = ?", id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// SaveSource stores the raw upload bytes.
func (s *documentStore) SaveSource(ctx context.Context, documentID string, content []byte) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_sources (document_id, content) VALUES (?, ?)
		ON CONFLICT(document_id) DO UPDATE SET content = excluded.content
	`, documentID, content)
	if err != nil {
		return fmt.Errorf("saving source: %w", err)
	}
	return nil
}

// GetSource returns the raw upload bytes.
func (s *documentStore) GetSource(ctx context.Context, documentID string) ([]byte, error) {
	var content []byte
	err := s.db.QueryRowContext(ctx, "SELECT content FROM document_sources WHERE document_id = ?", documentID).
		Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting source: %w", err)
	}
	return content, nil
}

func scanDocument(row scanner) (*domain.Document, error) {
	var (
		doc                       domain.Document
		sourceKind, status, types string
		content                   sql.NullString
		createdAt, updatedAt      string
	)
	if err := row.Scan(&doc.ID, &doc.Title, &doc.Filename, &sourceKind, &doc.SourceURL, &doc.MIMEType,
		&doc.Jurisdiction, &types, &status, &doc.Progress, &doc.TotalChunks, &doc.ProcessedChunks,
		&doc.ErrorMessage, &content, &doc.UploadedBy, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.SourceKind = domain.SourceKind(sourceKind)
	doc.Status = domain.ProcessingStatus(status)
	if err := json.Unmarshal([]byte(types), &doc.DocumentTypes); err != nil {
		return nil, fmt.Errorf("unmarshalling document types: %w", err)
	}
	if content.Valid {
		text := content.String
		doc.Content = &text
	}
	doc.CreatedAt = parseTime(createdAt)
	doc.UpdatedAt = parseTime(updatedAt)
	return &doc, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
