package domain

import "time"

const unknownDescription = "Unknown"

// AIProvider identifies an AI service provider for embeddings or LLM.
type AIProvider string

// Available AI providers.
const (
	// AIProviderOllama is local Ollama instance.
	AIProviderOllama AIProvider = "ollama"

	// AIProviderOpenAI is OpenAI cloud API.
	AIProviderOpenAI AIProvider = "openai"

	// AIProviderAnthropic is Anthropic cloud API.
	AIProviderAnthropic AIProvider = "anthropic"
)

// IsValid returns true if the AI provider is recognised.
func (p AIProvider) IsValid() bool {
	switch p {
	case AIProviderOllama, AIProviderOpenAI, AIProviderAnthropic:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p AIProvider) RequiresAPIKey() bool {
	return p == AIProviderOpenAI || p == AIProviderAnthropic
}

// IsLocal returns true if this provider runs locally.
func (p AIProvider) IsLocal() bool {
	return p == AIProviderOllama
}

// String returns the string representation.
func (p AIProvider) String() string {
	return string(p)
}

// Description returns a human-readable description of the provider.
func (p AIProvider) Description() string {
	switch p {
	case AIProviderOllama:
		return "Ollama (local)"
	case AIProviderOpenAI:
		return "OpenAI (cloud)"
	case AIProviderAnthropic:
		return "Anthropic (cloud)"
	default:
		return unknownDescription
	}
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding service provider.
	Provider AIProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI).
	APIKey string
}

// IsConfigured returns true if the embedding provider is set up.
func (e EmbeddingSettings) IsConfigured() bool {
	if !e.Provider.IsValid() {
		return false
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return false
	}
	return true
}

// LLMSettings holds LLM provider configuration.
type LLMSettings struct {
	// Provider is the LLM service provider.
	Provider AIProvider

	// Model is the LLM model name.
	Model string

	// BaseURL is the API endpoint (for Ollama).
	BaseURL string

	// APIKey is the API key (for OpenAI/Anthropic).
	APIKey string
}

// IsConfigured returns true if the LLM provider is set up.
func (l LLMSettings) IsConfigured() bool {
	if !l.Provider.IsValid() {
		return false
	}
	if l.Provider.RequiresAPIKey() && l.APIKey == "" {
		return false
	}
	return true
}

// ChunkerSettings configures the enhanced chunker.
type ChunkerSettings struct {
	// ChunkSize is the target chunk length in bytes.
	ChunkSize int

	// ContextRadius is how much surrounding text is kept on each side.
	ContextRadius int

	// Overlap is how far each chunk starts before the previous one ended.
	Overlap int

	// PreserveSentences prefers sentence boundaries near the target.
	PreserveSentences bool

	// PreserveParagraphs prefers paragraph boundaries near the target.
	PreserveParagraphs bool
}

// IngestionSettings configures the ingestion pipeline.
type IngestionSettings struct {
	// Concurrency is the number of chunks embedded in parallel per batch.
	Concurrency int

	// ProgressEvery persists progress after this many attempted chunks.
	ProgressEvery int

	// MaxAttempts is the per-chunk attempt limit for transient failures.
	MaxAttempts int

	// RetryBaseDelay is the first backoff delay; it doubles per attempt.
	RetryBaseDelay time.Duration

	// StaleAfter marks non-terminal documents FAILED after this long without progress.
	StaleAfter time.Duration
}

// RetrievalSettings configures question answering.
type RetrievalSettings struct {
	TopK              int
	MinSimilarity     float64
	FallbackCitations int
	MaxTokens         int
	Temperature       float64
}

// VectorBackend identifies a vector index implementation.
type VectorBackend string

// Available vector backends.
const (
	VectorBackendSQLite VectorBackend = "sqlite"
	VectorBackendMemory VectorBackend = "memory"
	VectorBackendQdrant VectorBackend = "qdrant"
)

// IsValid returns true if the backend is recognised.
func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendSQLite, VectorBackendMemory, VectorBackendQdrant:
		return true
	default:
		return false
	}
}

// VectorSettings holds vector index configuration.
type VectorSettings struct {
	Backend   VectorBackend
	Namespace string

	// QdrantURL and QdrantAPIKey address a Qdrant server.
	QdrantURL    string
	QdrantAPIKey string
}

// HistoryBackend identifies a history store implementation.
type HistoryBackend string

// Available history backends.
const (
	HistoryBackendSQLite HistoryBackend = "sqlite"
	HistoryBackendMemory HistoryBackend = "memory"
	HistoryBackendRedis  HistoryBackend = "redis"
)

// HistorySettings holds history store configuration.
type HistorySettings struct {
	Backend  HistoryBackend
	Capacity int

	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// ReferenceSettings configures the remote reference data tier.
// An empty URL disables the remote tier.
type ReferenceSettings struct {
	URL     string
	Timeout time.Duration
}

// RateLimitSettings caps outbound provider calls.
// Zero disables limiting for that provider.
type RateLimitSettings struct {
	EmbeddingPerSecond float64
	LLMPerSecond       float64
	Burst              int
}

// ServerSettings configures the HTTP API.
type ServerSettings struct {
	Addr string
}

// AppSettings holds all application settings.
type AppSettings struct {
	Embedding EmbeddingSettings
	LLM       LLMSettings
	Chunker   ChunkerSettings
	Ingestion IngestionSettings
	Retrieval RetrievalSettings
	Vector    VectorSettings
	History   HistorySettings
	Reference ReferenceSettings
	RateLimit RateLimitSettings
	Server    ServerSettings
}

// DefaultAppSettings returns settings with sensible defaults.
// AI providers are left unconfigured; users must set them explicitly.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{},
		LLM:       LLMSettings{},
		Chunker: ChunkerSettings{
			ChunkSize:          1000,
			ContextRadius:      200,
			Overlap:            0,
			PreserveSentences:  true,
			PreserveParagraphs: true,
		},
		Ingestion: IngestionSettings{
			Concurrency:    4,
			ProgressEvery:  10,
			MaxAttempts:    3,
			RetryBaseDelay: 500 * time.Millisecond,
			StaleAfter:     30 * time.Minute,
		},
		Retrieval: RetrievalSettings{
			TopK:              DefaultTopK,
			MinSimilarity:     DefaultMinSimilarity,
			FallbackCitations: DefaultFallbackCitations,
			MaxTokens:         1024,
			Temperature:       0.1,
		},
		Vector: VectorSettings{
			Backend:   VectorBackendSQLite,
			Namespace: "documents",
		},
		History: HistorySettings{
			Backend:  HistoryBackendSQLite,
			Capacity: DefaultHistoryCapacity,
		},
		Reference: ReferenceSettings{
			Timeout: 5 * time.Second,
		},
		RateLimit: RateLimitSettings{
			EmbeddingPerSecond: 10,
			LLMPerSecond:       2,
			Burst:              5,
		},
		Server: ServerSettings{
			Addr: "127.0.0.1:8080",
		},
	}
}

// AllEmbeddingProviders returns providers that support embeddings.
func AllEmbeddingProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
	}
}

// AllLLMProviders returns providers that support LLM operations.
func AllLLMProviders() []AIProvider {
	return []AIProvider{
		AIProviderOllama,
		AIProviderOpenAI,
		AIProviderAnthropic,
	}
}

// DefaultEmbeddingModels returns default models for each embedding provider.
func DefaultEmbeddingModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama: "nomic-embed-text",
		AIProviderOpenAI: "text-embedding-3-small",
	}
}

// DefaultLLMModels returns default models for each LLM provider.
func DefaultLLMModels() map[AIProvider]string {
	return map[AIProvider]string{
		AIProviderOllama:    "llama3.2",
		AIProviderOpenAI:    "gpt-4o-mini",
		AIProviderAnthropic: "claude-3-5-sonnet-latest",
	}
}

// EmbeddingDimensions returns the vector dimensions for known models.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		// Ollama models
		"nomic-embed-text":  768,
		"mxbai-embed-large": 1024,
		"all-minilm":        384,
		// OpenAI models
		"text-embedding-3-small": 1536,
		"text-embedding-3-large": 3072,
		"text-embedding-ada-002": 1536,
	}
}
