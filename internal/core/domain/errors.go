package domain

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates an entity already exists.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrUnsupportedType indicates an unknown backend, provider or content type.
	ErrUnsupportedType = errors.New("unsupported type")

	// Ingestion Errors.

	// ErrInvalidTransition indicates a processing status change the pipeline forbids.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrIngestionInProgress indicates the document is still being processed.
	ErrIngestionInProgress = errors.New("ingestion in progress")

	// ErrIngestionAborted indicates another writer finished the document
	// while a run was still in flight.
	ErrIngestionAborted = errors.New("ingestion aborted")

	// ErrExtractionFailed indicates no extractor could produce text.
	ErrExtractionFailed = errors.New("text extraction failed")

	// ErrNoChunksEmbedded indicates every chunk of a document failed to embed.
	ErrNoChunksEmbedded = errors.New("no chunks were embedded")

	// Retrieval Errors.

	// ErrGenerationFailed indicates the answer generator returned an error.
	ErrGenerationFailed = errors.New("answer generation failed")

	// Provider Errors.

	// ErrLLMUnavailable indicates the LLM service is not configured.
	// Answer generation is disabled.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrEmbeddingUnavailable indicates the embedding service is not configured.
	// Ingestion and search are disabled without embeddings.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrVectorIndexUnavailable indicates the vector index is not configured or unreachable.
	ErrVectorIndexUnavailable = errors.New("vector index unavailable")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrReferenceUnavailable indicates neither reference data tier could answer.
	ErrReferenceUnavailable = errors.New("reference data unavailable")
)

// ProviderError is a failure reported by an external provider
// (embedding API, LLM API, vector database, reference service).
type ProviderError struct {
	// Provider names the backend (e.g. "openai", "qdrant").
	Provider string

	// Op names the failed operation (e.g. "embed", "upsert").
	Op string

	// StatusCode is the HTTP status, or 0 for transport failures.
	StatusCode int

	// Transient is true when retrying may succeed.
	Transient bool

	// Err is the underlying error.
	Err error
}

// NewProviderError classifies a provider failure by HTTP status.
// Transport failures (status 0), 408, 429 and 5xx are transient.
func NewProviderError(provider, op string, statusCode int, err error) *ProviderError {
	transient := statusCode == 0 || statusCode == 408 || statusCode == 429 || statusCode >= 500
	if errors.Is(err, context.Canceled) {
		transient = false
	}
	return &ProviderError{
		Provider:   provider,
		Op:         op,
		StatusCode: statusCode,
		Transient:  transient,
		Err:        err,
	}
}

func (e *ProviderError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// Is makes a 429 ProviderError match ErrRateLimited.
func (e *ProviderError) Is(target error) bool {
	return target == ErrRateLimited && e.StatusCode == 429
}

// GenerationError reports that an answer could not be generated.
// It matches ErrGenerationFailed with errors.Is.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrGenerationFailed, e.Err)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrGenerationFailed.
func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// IsTransient reports whether an operation that failed with err may succeed on retry.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	if errors.Is(err, ErrRateLimited) {
		return true
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return false
}

// UserMessage converts err into a concise message safe to show end users.
// Provider details such as response bodies are never included.
func UserMessage(err error) string {
	var pe *ProviderError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "The requested document was not found."
	case errors.Is(err, ErrInvalidInput):
		return "The request was invalid."
	case errors.Is(err, ErrIngestionInProgress):
		return "The document is still being processed."
	case errors.Is(err, ErrRateLimited):
		return "The AI provider is busy. Please try again shortly."
	case errors.Is(err, ErrGenerationFailed):
		return "An answer could not be generated. Please try again."
	case errors.Is(err, ErrEmbeddingUnavailable), errors.Is(err, ErrLLMUnavailable):
		return "AI search is not configured."
	case errors.Is(err, ErrVectorIndexUnavailable):
		return "The search index is unavailable."
	case errors.As(err, &pe):
		return fmt.Sprintf("The %s service is unavailable.", pe.Provider)
	default:
		return "An unexpected error occurred."
	}
}
