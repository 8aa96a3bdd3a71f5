package driving

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// UploadRequest describes a new document. Exactly one of Content or URL is set.
type UploadRequest struct {
	Title         string
	Filename      string
	MIMEType      string
	Content       []byte
	URL           string
	Jurisdiction  string
	DocumentTypes []string
	UserID        string
}

// IngestionService manages the document lifecycle from upload to searchable chunks.
type IngestionService interface {
	// Upload records a new document in UPLOADED state and stores its raw source.
	Upload(ctx context.Context, req UploadRequest) (*domain.Document, error)

	// Submit starts ingestion of a document as an independent background task.
	// Cancelling ctx after Submit returns does not stop the task.
	Submit(ctx context.Context, documentID string)

	// Ingest runs the pipeline for a document synchronously.
	// The returned error mirrors the document's FAILED state.
	Ingest(ctx context.Context, documentID string) error

	// Reprocess purges a completed or failed document's chunks, resets it to
	// UPLOADED and submits it for ingestion again.
	Reprocess(ctx context.Context, documentID string) error

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, documentID string) error

	// Status returns the pollable ingestion status.
	Status(ctx context.Context, documentID string) (*domain.IngestionStatus, error)

	// Get returns a document.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns all documents, newest first.
	List(ctx context.Context) ([]domain.Document, error)

	// Wait blocks until all submitted ingestions finish.
	Wait()
}
