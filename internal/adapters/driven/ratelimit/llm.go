package ratelimit

import (
	"context"

	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// Ensure LLMService implements the interface.
var _ driven.LLMService = (*LLMService)(nil)

// LLMService throttles calls to an underlying LLM service.
type LLMService struct {
	driven.LLMService
	limiter *Limiter
}

// WrapLLM decorates svc with limiter.
func WrapLLM(svc driven.LLMService, limiter *Limiter) *LLMService {
	return &LLMService{LLMService: svc, limiter: limiter}
}

// Generate waits for the limiter then generates a completion.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", err
	}
	out, err := s.LLMService.Generate(ctx, prompt, opts)
	s.limiter.Observe(err)
	return out, err
}
