// Package driven holds the outbound ports: everything the core services
// need from storage, extraction, embedding and generation.
//
// DocumentStore, Extractor, Chunker, VectorIndex, HistoryStore and
// ConfigStore are always wired. EmbeddingService and LLMService may be nil
// until a provider is configured; ingestion then fails at the embedding
// step and search returns ErrEmbeddingUnavailable or ErrLLMUnavailable.
// A nil remote ReferenceSource leaves only the static reference table.
//
// Ports depend on domain and nothing else.
package driven
