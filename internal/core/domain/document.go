package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SourceKind identifies how a document entered the system.
type SourceKind string

// Available source kinds.
const (
	// SourceKindUpload is a file uploaded by a user.
	SourceKindUpload SourceKind = "upload"

	// SourceKindURL is a web page fetched from a URL.
	SourceKindURL SourceKind = "url"
)

// IsValid returns true if the source kind is recognised.
func (k SourceKind) IsValid() bool {
	return k == SourceKindUpload || k == SourceKindURL
}

// ProcessingStatus is the ingestion state of a document.
type ProcessingStatus string

// Ingestion states, in pipeline order.
const (
	StatusUploaded   ProcessingStatus = "UPLOADED"
	StatusExtracting ProcessingStatus = "EXTRACTING"
	StatusChunking   ProcessingStatus = "CHUNKING"
	StatusEmbedding  ProcessingStatus = "EMBEDDING"
	StatusCompleted  ProcessingStatus = "COMPLETED"
	StatusFailed     ProcessingStatus = "FAILED"
)

// IsValid returns true if the status is recognised.
func (s ProcessingStatus) IsValid() bool {
	switch s {
	case StatusUploaded, StatusExtracting, StatusChunking, StatusEmbedding, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for COMPLETED and FAILED.
func (s ProcessingStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// CanTransitionTo reports whether the pipeline may move from s to next.
// FAILED is reachable from every non-terminal state. Terminal states have
// no outgoing transitions; only an explicit reprocess resets a document.
func (s ProcessingStatus) CanTransitionTo(next ProcessingStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == StatusFailed {
		return true
	}
	switch s {
	case StatusUploaded:
		return next == StatusExtracting
	case StatusExtracting:
		return next == StatusChunking
	case StatusChunking:
		return next == StatusEmbedding
	case StatusEmbedding:
		return next == StatusCompleted
	default:
		return false
	}
}

// String returns the string representation.
func (s ProcessingStatus) String() string {
	return string(s)
}

// Progress milestones. Embedding progress is scaled between
// ProgressEmbeddingStart and ProgressEmbeddingEnd; 100 is reserved for COMPLETED.
const (
	ProgressUploaded       = 0
	ProgressExtracting     = 5
	ProgressChunking       = 15
	ProgressEmbeddingStart = 20
	ProgressEmbeddingEnd   = 99
	ProgressCompleted      = 100
)

// EmbeddingProgress maps attempted chunks to an overall progress percentage.
// The result is monotonic in attempted and never reaches 100.
func EmbeddingProgress(attempted, total int) int {
	if total <= 0 {
		return ProgressEmbeddingEnd
	}
	if attempted > total {
		attempted = total
	}
	span := ProgressEmbeddingEnd - ProgressEmbeddingStart
	return ProgressEmbeddingStart + span*attempted/total
}

// Document is an uploaded compliance document.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// Title is the human-readable title.
	Title string

	// Filename is the original upload name, empty for URL sources.
	Filename string

	// SourceKind records whether the document was uploaded or fetched.
	SourceKind SourceKind

	// SourceURL is the origin of URL sources.
	SourceURL string

	// MIMEType is the detected content type of the raw source.
	MIMEType string

	// Jurisdiction is the state or region the document applies to (e.g. "CO").
	Jurisdiction string

	// DocumentTypes classifies the document (e.g. "licensing", "packaging").
	DocumentTypes []string

	// Status is the ingestion state.
	Status ProcessingStatus

	// Progress is an integer percentage in [0, 100].
	Progress int

	// TotalChunks is the number of chunks produced by the chunker.
	TotalChunks int

	// ProcessedChunks is the number of chunks successfully embedded and stored.
	ProcessedChunks int

	// ErrorMessage describes the failure when Status is FAILED.
	ErrorMessage string

	// Content is the extracted text. It is nil until extraction completes
	// and is the text all chunk offsets refer to.
	Content *string

	// UploadedBy identifies the user who added the document.
	UploadedBy string

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document's state last changed.
	UpdatedAt time.Time
}

// ContentText returns the extracted text, or "" when not yet extracted.
func (d *Document) ContentText() string {
	if d.Content == nil {
		return ""
	}
	return *d.Content
}

// IngestionStatus is the pollable view of a document's processing.
type IngestionStatus struct {
	DocumentID      string
	Status          ProcessingStatus
	Progress        int
	TotalChunks     int
	ProcessedChunks int
	ErrorMessage    string
	UpdatedAt       time.Time
}

// StatusOf returns the ingestion status view of d.
func StatusOf(d *Document) IngestionStatus {
	return IngestionStatus{
		DocumentID:      d.ID,
		Status:          d.Status,
		Progress:        d.Progress,
		TotalChunks:     d.TotalChunks,
		ProcessedChunks: d.ProcessedChunks,
		ErrorMessage:    d.ErrorMessage,
		UpdatedAt:       d.UpdatedAt,
	}
}

// Chunk is a contiguous span of a document's extracted text.
// Text always equals content[StartChar:EndChar] of the owning document.
type Chunk struct {
	// DocumentID links to the parent Document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Text is the exact chunk text.
	Text string

	// StartChar is the byte offset of the chunk start in the document content.
	StartChar int

	// EndChar is the exclusive byte offset of the chunk end.
	EndChar int

	// ContextBefore is text immediately preceding the chunk, for prompting only.
	ContextBefore string

	// ContextAfter is text immediately following the chunk, for prompting only.
	ContextAfter string

	// PageNumber is the 1-based page the chunk starts on.
	PageNumber int

	// SectionTitle is the nearest preceding section heading, if known.
	SectionTitle string
}

// ID returns the deterministic vector record identifier for the chunk.
func (c Chunk) ID() string {
	return ChunkID(c.DocumentID, c.Index)
}

const chunkIDSeparator = "_chunk_"

// ChunkID builds the vector record identifier "<documentID>_chunk_<index>".
func ChunkID(documentID string, index int) string {
	return fmt.Sprintf("%s%s%d", documentID, chunkIDSeparator, index)
}

// ParseChunkID splits a vector record identifier into document id and index.
func ParseChunkID(id string) (documentID string, index int, ok bool) {
	pos := strings.LastIndex(id, chunkIDSeparator)
	if pos <= 0 {
		return "", 0, false
	}
	n, err := strconv.Atoi(id[pos+len(chunkIDSeparator):])
	if err != nil || n < 0 {
		return "", 0, false
	}
	return id[:pos], n, true
}
