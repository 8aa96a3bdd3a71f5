// Package ollama answers prompts with a local Ollama chat model.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/providerhttp"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/logger"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultLLMModel   = "llama3.2"
	DefaultLLMTimeout = 120 * time.Second
)

// LLMConfig for NewLLMService. Zero fields take the defaults above.
type LLMConfig struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// KeepAlive is how long Ollama keeps the model loaded after a request,
	// in Ollama duration syntax ("5m", "1h"). Empty uses the server default.
	KeepAlive string
}

// LLMService sends each prompt as a single user turn to POST /api/chat
// with streaming disabled.
type LLMService struct {
	http      *providerhttp.Client
	model     string
	keepAlive string
	log       logger.Logger
}

func NewLLMService(cfg LLMConfig) *LLMService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultLLMModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	return &LLMService{
		http:      providerhttp.New("ollama", cfg.BaseURL, cfg.Timeout),
		model:     cfg.Model,
		keepAlive: cfg.KeepAlive,
		log:       logger.Component("ollama"),
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatOptions struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature"`
	Stop        []string `json:"stop,omitempty"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	Stream    bool          `json:"stream"`
	KeepAlive string        `json:"keep_alive,omitempty"`
	Options   chatOptions   `json:"options"`
}

type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason"`
}

func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := chatRequest{
		Model:     s.model,
		Messages:  []chatMessage{{Role: "user", Content: prompt}},
		KeepAlive: s.keepAlive,
		Options: chatOptions{
			NumPredict:  opts.MaxTokens,
			Temperature: opts.Temperature,
			Stop:        opts.StopWords,
		},
	}
	var resp chatResponse
	if err := s.http.Do(ctx, "generate", http.MethodPost, "/api/chat", req, &resp); err != nil {
		return "", err
	}
	if !resp.Done {
		return "", fmt.Errorf("ollama generate: response ended before completion")
	}
	if resp.DoneReason == "length" {
		s.log.Warn("answer from %s truncated at %d tokens", s.model, opts.MaxTokens)
	}
	return resp.Message.Content, nil
}

func (s *LLMService) ModelName() string { return s.model }

// Ping lists local models without loading one.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.http.Do(ctx, "ping", http.MethodGet, "/api/tags", nil, nil)
}

func (s *LLMService) Close() error { return nil }
