package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider = "embedding.provider"
	keyEmbedModel    = "embedding.model"
	keyEmbedBaseURL  = "embedding.base_url"
	keyEmbedAPIKey   = "embedding.api_key"
	keyLLMProvider   = "llm.provider"
	keyLLMModel      = "llm.model"
	keyLLMBaseURL    = "llm.base_url"
	keyLLMAPIKey     = "llm.api_key"

	keyChunkSize          = "chunker.chunk_size"
	keyContextRadius      = "chunker.context_radius"
	keyOverlap            = "chunker.overlap"
	keyPreserveSentences  = "chunker.preserve_sentences"
	keyPreserveParagraphs = "chunker.preserve_paragraphs"

	keyConcurrency    = "ingestion.concurrency"
	keyProgressEvery  = "ingestion.progress_every"
	keyMaxAttempts    = "ingestion.max_attempts"
	keyRetryBaseDelay = "ingestion.retry_base_delay"
	keyStaleAfter     = "ingestion.stale_after"

	keyTopK              = "retrieval.top_k"
	keyMinSimilarity     = "retrieval.min_similarity"
	keyFallbackCitations = "retrieval.fallback_citations"
	keyMaxTokens         = "retrieval.max_tokens"
	keyTemperature       = "retrieval.temperature"

	keyVectorBackend = "vector.backend"
	keyNamespace     = "vector.namespace"
	keyQdrantURL     = "vector.qdrant_url"
	keyQdrantAPIKey  = "vector.qdrant_api_key"

	keyHistoryBackend = "history.backend"
	keyHistoryCap     = "history.capacity"
	keyRedisAddr      = "history.redis_addr"
	keyRedisPassword  = "history.redis_password"
	keyRedisDB        = "history.redis_db"

	keyReferenceURL     = "reference.url"
	keyReferenceTimeout = "reference.timeout"

	keyEmbedRate = "ratelimit.embedding_per_second"
	keyLLMRate   = "ratelimit.llm_per_second"
	keyBurst     = "ratelimit.burst"

	keyServerAddr = "server.addr"
)

// API key environment fallbacks, used when the config file has no key.
//
//nolint:gosec // G101: environment variable names, not credentials.
var apiKeyEnv = map[domain.AIProvider]string{
	domain.AIProviderOpenAI:    "OPENAI_API_KEY",
	domain.AIProviderAnthropic: "ANTHROPIC_API_KEY",
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	aiValidator driven.AIConfigValidator
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, aiValidator driven.AIConfigValidator) *SettingsService {
	return &SettingsService{
		configStore: configStore,
		aiValidator: aiValidator,
		getenv:      os.Getenv,
	}
}

// Get retrieves current application settings.
// Unset or invalid keys take their defaults.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	d := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider: s.getProvider(keyEmbedProvider, d.Embedding.Provider),
			Model:    s.getString(keyEmbedModel, d.Embedding.Model),
			BaseURL:  s.configStore.GetString(keyEmbedBaseURL),
			APIKey:   s.configStore.GetString(keyEmbedAPIKey),
		},
		LLM: domain.LLMSettings{
			Provider: s.getProvider(keyLLMProvider, d.LLM.Provider),
			Model:    s.getString(keyLLMModel, d.LLM.Model),
			BaseURL:  s.configStore.GetString(keyLLMBaseURL),
			APIKey:   s.configStore.GetString(keyLLMAPIKey),
		},
		Chunker: domain.ChunkerSettings{
			ChunkSize:          s.getInt(keyChunkSize, d.Chunker.ChunkSize),
			ContextRadius:      s.getInt(keyContextRadius, d.Chunker.ContextRadius),
			Overlap:            s.getInt(keyOverlap, d.Chunker.Overlap),
			PreserveSentences:  s.getBool(keyPreserveSentences, d.Chunker.PreserveSentences),
			PreserveParagraphs: s.getBool(keyPreserveParagraphs, d.Chunker.PreserveParagraphs),
		},
		Ingestion: domain.IngestionSettings{
			Concurrency:    s.getInt(keyConcurrency, d.Ingestion.Concurrency),
			ProgressEvery:  s.getInt(keyProgressEvery, d.Ingestion.ProgressEvery),
			MaxAttempts:    s.getInt(keyMaxAttempts, d.Ingestion.MaxAttempts),
			RetryBaseDelay: s.getDuration(keyRetryBaseDelay, d.Ingestion.RetryBaseDelay),
			StaleAfter:     s.getDuration(keyStaleAfter, d.Ingestion.StaleAfter),
		},
		Retrieval: domain.RetrievalSettings{
			TopK:              s.getInt(keyTopK, d.Retrieval.TopK),
			MinSimilarity:     s.getFloat(keyMinSimilarity, d.Retrieval.MinSimilarity),
			FallbackCitations: s.getInt(keyFallbackCitations, d.Retrieval.FallbackCitations),
			MaxTokens:         s.getInt(keyMaxTokens, d.Retrieval.MaxTokens),
			Temperature:       s.getFloat(keyTemperature, d.Retrieval.Temperature),
		},
		Vector: domain.VectorSettings{
			Backend:      s.getVectorBackend(d.Vector.Backend),
			Namespace:    s.getString(keyNamespace, d.Vector.Namespace),
			QdrantURL:    s.configStore.GetString(keyQdrantURL),
			QdrantAPIKey: s.getString(keyQdrantAPIKey, s.getenv("QDRANT_API_KEY")),
		},
		History: domain.HistorySettings{
			Backend:       s.getHistoryBackend(d.History.Backend),
			Capacity:      s.getInt(keyHistoryCap, d.History.Capacity),
			RedisAddr:     s.configStore.GetString(keyRedisAddr),
			RedisPassword: s.getString(keyRedisPassword, s.getenv("REDIS_PASSWORD")),
			RedisDB:       s.configStore.GetInt(keyRedisDB),
		},
		Reference: domain.ReferenceSettings{
			URL:     s.configStore.GetString(keyReferenceURL),
			Timeout: s.getDuration(keyReferenceTimeout, d.Reference.Timeout),
		},
		RateLimit: domain.RateLimitSettings{
			EmbeddingPerSecond: s.getFloat(keyEmbedRate, d.RateLimit.EmbeddingPerSecond),
			LLMPerSecond:       s.getFloat(keyLLMRate, d.RateLimit.LLMPerSecond),
			Burst:              s.getInt(keyBurst, d.RateLimit.Burst),
		},
		Server: domain.ServerSettings{
			Addr: s.getString(keyServerAddr, d.Server.Addr),
		},
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envKey(settings.Embedding.Provider)
	}
	if settings.LLM.APIKey == "" {
		settings.LLM.APIKey = s.envKey(settings.LLM.Provider)
	}
	return settings, nil
}

// SetEmbeddingProvider configures the embedding provider.
func (s *SettingsService) SetEmbeddingProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid embedding provider: %s", domain.ErrInvalidInput, provider)
	}
	if !supports(domain.AllEmbeddingProviders(), provider) {
		return fmt.Errorf("%w: provider %s does not support embeddings", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = domain.DefaultEmbeddingModels()[provider]
	}
	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyEmbedBaseURL, "http://localhost:11434")
	}

	return s.setAll(map[string]any{
		keyEmbedProvider: provider.String(),
		keyEmbedModel:    model,
		keyEmbedBaseURL:  baseURL,
		keyEmbedAPIKey:   apiKey,
	})
}

// SetLLMProvider configures the LLM provider.
func (s *SettingsService) SetLLMProvider(provider domain.AIProvider, model, apiKey string) error {
	if !provider.IsValid() {
		return fmt.Errorf("%w: invalid LLM provider: %s", domain.ErrInvalidInput, provider)
	}
	if provider.RequiresAPIKey() && apiKey == "" && s.envKey(provider) == "" {
		return fmt.Errorf("%w: API key required for %s", domain.ErrInvalidInput, provider)
	}

	if model == "" {
		model = domain.DefaultLLMModels()[provider]
	}
	baseURL := ""
	if provider.IsLocal() {
		baseURL = s.getString(keyLLMBaseURL, "http://localhost:11434")
	}

	return s.setAll(map[string]any{
		keyLLMProvider: provider.String(),
		keyLLMModel:    model,
		keyLLMBaseURL:  baseURL,
		keyLLMAPIKey:   apiKey,
	})
}

// Validate checks that the current settings can run ingestion and search.
// All problems are reported together.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	var errs []error
	if !settings.Embedding.IsConfigured() {
		errs = append(errs, errors.New("embedding provider is not configured"))
	}
	if !settings.LLM.IsConfigured() {
		errs = append(errs, errors.New("LLM provider is not configured"))
	}
	if settings.Chunker.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk size must be positive, got %d", settings.Chunker.ChunkSize))
	}
	if settings.Retrieval.MinSimilarity < 0 || settings.Retrieval.MinSimilarity > 1 {
		errs = append(errs, fmt.Errorf("min similarity must be within [0, 1], got %g", settings.Retrieval.MinSimilarity))
	}
	if settings.Vector.Backend == domain.VectorBackendQdrant && settings.Vector.QdrantURL == "" {
		errs = append(errs, errors.New("qdrant backend requires vector.qdrant_url"))
	}
	if settings.History.Backend == domain.HistoryBackendRedis && settings.History.RedisAddr == "" {
		errs = append(errs, errors.New("redis history requires history.redis_addr"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", domain.ErrInvalidInput, errors.Join(errs...))
	}
	return nil
}

// GetDefaults returns default settings.
func (s *SettingsService) GetDefaults() domain.AppSettings {
	return domain.DefaultAppSettings()
}

// ValidateEmbeddingConfig validates the current embedding configuration by pinging the provider.
func (s *SettingsService) ValidateEmbeddingConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateEmbedding(&settings.Embedding)
}

// ValidateLLMConfig validates the current LLM configuration by pinging the provider.
func (s *SettingsService) ValidateLLMConfig() error {
	if s.aiValidator == nil {
		return nil
	}
	settings, err := s.Get()
	if err != nil {
		return err
	}
	return s.aiValidator.ValidateLLM(&settings.LLM)
}

// GetSchedulerConfig returns the scheduler configuration.
// Returns default configuration if nothing is configured.
func (s *SettingsService) GetSchedulerConfig() domain.SchedulerConfig {
	defaults := domain.DefaultSchedulerConfig()

	if _, exists := s.configStore.Get("scheduler.enabled"); exists {
		defaults.Enabled = s.configStore.GetBool("scheduler.enabled")
	}

	// Map from task ID to config key (underscore version for TOML)
	taskKeys := map[string]string{
		domain.TaskIDStaleSweep:  "stale_sweep",
		domain.TaskIDOrphanPurge: "orphan_purge",
	}

	for taskID, configKey := range taskKeys {
		prefix := "scheduler." + configKey + "."
		taskCfg := defaults.TaskConfigs[taskID]

		if _, exists := s.configStore.Get(prefix + "enabled"); exists {
			taskCfg.Enabled = s.configStore.GetBool(prefix + "enabled")
		}
		taskCfg.Interval = s.getDuration(prefix+"interval", taskCfg.Interval)

		defaults.TaskConfigs[taskID] = taskCfg
	}

	return defaults
}

func (s *SettingsService) setAll(values map[string]any) error {
	for key, val := range values {
		if err := s.configStore.Set(key, val); err != nil {
			return fmt.Errorf("save %s: %w", key, err)
		}
	}
	return nil
}

func (s *SettingsService) envKey(p domain.AIProvider) string {
	if name, ok := apiKeyEnv[p]; ok {
		return s.getenv(name)
	}
	return ""
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetInt(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if f, ok := s.configStore.GetFloat(key); ok {
		return f
	}
	return defaultVal
}

// getDuration parses duration strings such as "45m" or "500ms".
func (s *SettingsService) getDuration(key string, defaultVal time.Duration) time.Duration {
	str := s.configStore.GetString(key)
	if str == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(str)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

func (s *SettingsService) getProvider(key string, defaultVal domain.AIProvider) domain.AIProvider {
	provider := domain.AIProvider(s.configStore.GetString(key))
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) getVectorBackend(defaultVal domain.VectorBackend) domain.VectorBackend {
	backend := domain.VectorBackend(s.configStore.GetString(keyVectorBackend))
	if !backend.IsValid() {
		return defaultVal
	}
	return backend
}

func (s *SettingsService) getHistoryBackend(defaultVal domain.HistoryBackend) domain.HistoryBackend {
	backend := domain.HistoryBackend(s.configStore.GetString(keyHistoryBackend))
	switch backend {
	case domain.HistoryBackendSQLite, domain.HistoryBackendMemory, domain.HistoryBackendRedis:
		return backend
	default:
		return defaultVal
	}
}

func supports(providers []domain.AIProvider, p domain.AIProvider) bool {
	for _, candidate := range providers {
		if candidate == p {
			return true
		}
	}
	return false
}
