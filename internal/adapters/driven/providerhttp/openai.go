package providerhttp

import (
	"errors"

	openai "github.com/sashabaranov/go-openai"

	"github.com/custodia-labs/regdocs/internal/core/domain"
)

// OpenAIError classifies an error returned by the go-openai client.
// API and request errors keep their HTTP status; anything else is a
// transport failure.
func OpenAIError(provider, op string, err error) error {
	if err == nil {
		return nil
	}
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return domain.NewProviderError(provider, op, apiErr.HTTPStatusCode, errors.New(apiErr.Message))
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return domain.NewProviderError(provider, op, reqErr.HTTPStatusCode, reqErr.Err)
	}
	return domain.NewProviderError(provider, op, 0, err)
}
