package driven

import "github.com/custodia-labs/regdocs/internal/core/domain"

// AIConfigValidator checks provider settings before they are saved.
// Settings with no provider selected are valid.
type AIConfigValidator interface {
	ValidateEmbedding(settings *domain.EmbeddingSettings) error
	ValidateLLM(settings *domain.LLMSettings) error
}
