// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"fmt"

	ollamaembed "github.com/custodia-labs/regdocs/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/regdocs/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/regdocs/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/regdocs/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/regdocs/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/regdocs/internal/adapters/driven/ratelimit"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// fixHint is appended to errors the user can fix through configuration.
const fixHint = "Run 'regdocs settings' to check the configuration"

// Services holds the AI adapters built from settings.
// Either service may be nil when its provider is not configured.
type Services struct {
	Embedding driven.EmbeddingService
	LLM       driven.LLMService
}

// Close releases all resources held by the services.
func (s *Services) Close() {
	if s.Embedding != nil {
		s.Embedding.Close()
	}
	if s.LLM != nil {
		s.LLM.Close()
	}
}

// NewServices builds rate limited embedding and LLM services from settings.
// Connectivity is not checked; ConfigValidator does that.
func NewServices(settings domain.AppSettings) (*Services, error) {
	emb, err := CreateEmbeddingService(&settings.Embedding)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrEmbeddingUnavailable, err, fixHint)
	}
	llm, err := CreateLLMService(&settings.LLM)
	if err != nil {
		if emb != nil {
			emb.Close()
		}
		return nil, fmt.Errorf("%w: %w. %s", domain.ErrLLMUnavailable, err, fixHint)
	}

	rl := settings.RateLimit
	out := &Services{}
	if emb != nil {
		out.Embedding = ratelimit.WrapEmbedding(emb, ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: rl.EmbeddingPerSecond,
			Burst:             rl.Burst,
		}))
	}
	if llm != nil {
		out.LLM = ratelimit.WrapLLM(llm, ratelimit.NewLimiter(ratelimit.Config{
			RequestsPerSecond: rl.LLMPerSecond,
			Burst:             rl.Burst,
		}))
	}
	return out, nil
}

// CreateEmbeddingService creates the appropriate embedding service based on settings.
// Returns nil if the provider is not configured.
func CreateEmbeddingService(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaEmbedding(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAIEmbedding(settings)
	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("anthropic does not support embeddings, use ollama or openai")
	default:
		return nil, fmt.Errorf("%w: embedding provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

// CreateLLMService creates the appropriate LLM service based on settings.
// Returns nil if the provider is not configured.
func CreateLLMService(settings *domain.LLMSettings) (driven.LLMService, error) {
	if settings == nil || !settings.IsConfigured() {
		return nil, nil
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		return createOllamaLLM(settings), nil
	case domain.AIProviderOpenAI:
		return createOpenAILLM(settings)
	case domain.AIProviderAnthropic:
		return createAnthropicLLM(settings)
	default:
		return nil, fmt.Errorf("%w: LLM provider %s", domain.ErrUnsupportedType, settings.Provider)
	}
}

func createOllamaEmbedding(settings *domain.EmbeddingSettings) *ollamaembed.EmbeddingService {
	return ollamaembed.NewEmbeddingService(ollamaembed.Config{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAIEmbedding(settings *domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := openaiembed.NewEmbeddingService(openaiembed.Config{
		APIKey:     settings.APIKey,
		BaseURL:    settings.BaseURL,
		Model:      settings.Model,
		Dimensions: domain.EmbeddingDimensions()[settings.Model],
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createOllamaLLM(settings *domain.LLMSettings) *ollamallm.LLMService {
	return ollamallm.NewLLMService(ollamallm.LLMConfig{
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
}

func createOpenAILLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := openaillm.NewLLMService(openaillm.LLMConfig{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}

func createAnthropicLLM(settings *domain.LLMSettings) (driven.LLMService, error) {
	svc, err := anthropicllm.NewLLMService(anthropicllm.Config{
		APIKey:  settings.APIKey,
		BaseURL: settings.BaseURL,
		Model:   settings.Model,
	})
	if err != nil {
		return nil, err
	}
	return svc, nil
}
