// Package anthropic answers prompts with the Anthropic Messages API.
package anthropic

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/providerhttp"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "https://api.anthropic.com"
	DefaultTimeout = 120 * time.Second

	anthropicVersion = "2023-06-01"

	// The Messages API rejects requests without max_tokens.
	defaultMaxTokens = 1024
)

// DefaultModel is the model used when Config.Model is empty.
var DefaultModel = domain.DefaultLLMModels()[domain.AIProviderAnthropic]

// Config for NewLLMService. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService posts each prompt as one user message to /v1/messages.
type LLMService struct {
	http  *providerhttp.Client
	model string
	log   logger.Logger
}

func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("anthropic: API key is required")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	client := providerhttp.New("anthropic", cfg.BaseURL, cfg.Timeout)
	client.Header.Set("x-api-key", cfg.APIKey)
	client.Header.Set("anthropic-version", anthropicVersion)
	return &LLMService{http: client, model: cfg.Model, log: logger.Component("anthropic")}, nil
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type messagesRequest struct {
	Model       string    `json:"model"`
	Messages    []message `json:"messages"`
	MaxTokens   int       `json:"max_tokens"`
	Temperature float64   `json:"temperature,omitempty"`
	StopSeqs    []string  `json:"stop_sequences,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

// text joins the text blocks; other block types are skipped.
func (r messagesResponse) text() string {
	var b strings.Builder
	for _, c := range r.Content {
		if c.Type == "text" {
			b.WriteString(c.Text)
		}
	}
	return b.String()
}

func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := messagesRequest{
		Model:       s.model,
		Messages:    []message{{Role: "user", Content: prompt}},
		MaxTokens:   opts.MaxTokens,
		Temperature: opts.Temperature,
		StopSeqs:    opts.StopWords,
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = defaultMaxTokens
	}

	var resp messagesResponse
	if err := s.http.Do(ctx, "generate", http.MethodPost, "/v1/messages", req, &resp); err != nil {
		return "", err
	}
	if len(resp.Content) == 0 {
		return "", errors.New("anthropic generate: no response content returned")
	}
	if resp.StopReason == "max_tokens" {
		s.log.Warn("answer from %s truncated at %d tokens", s.model, req.MaxTokens)
	}
	return resp.text(), nil
}

func (s *LLMService) ModelName() string { return s.model }

// Ping checks the key against /v1/models, which costs no tokens.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.http.Do(ctx, "ping", http.MethodGet, "/v1/models", nil, nil)
}

func (s *LLMService) Close() error { return nil }
