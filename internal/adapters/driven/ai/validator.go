package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

var _ driven.AIConfigValidator = (*ConfigValidator)(nil)

// DefaultPingTimeout bounds a single provider connectivity check.
const DefaultPingTimeout = 5 * time.Second

// ConfigValidator checks provider settings by building a throwaway service
// and pinging it. Unconfigured providers pass.
type ConfigValidator struct {
	Timeout time.Duration
}

// NewConfigValidator returns a validator using DefaultPingTimeout.
func NewConfigValidator() *ConfigValidator {
	return &ConfigValidator{Timeout: DefaultPingTimeout}
}

// ValidateEmbedding reports ErrEmbeddingUnavailable when the provider cannot be reached.
func (v *ConfigValidator) ValidateEmbedding(settings *domain.EmbeddingSettings) error {
	svc, err := CreateEmbeddingService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return v.ping(svc.Ping, domain.ErrEmbeddingUnavailable)
}

// ValidateLLM reports ErrLLMUnavailable when the provider cannot be reached.
func (v *ConfigValidator) ValidateLLM(settings *domain.LLMSettings) error {
	svc, err := CreateLLMService(settings)
	if err != nil || svc == nil {
		return err
	}
	defer svc.Close()
	return v.ping(svc.Ping, domain.ErrLLMUnavailable)
}

func (v *ConfigValidator) ping(fn func(context.Context) error, sentinel error) error {
	timeout := v.Timeout
	if timeout <= 0 {
		timeout = DefaultPingTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		return fmt.Errorf("%w: service unreachable (%w). %s", sentinel, err, fixHint)
	}
	return nil
}
