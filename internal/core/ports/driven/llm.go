package driven

import "context"

// LLMService completes prompts. Search builds the grounded-answer prompt;
// implementations only transport it.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions are passed through to the provider. Zero values leave the
// provider default in place.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}
