// Package ollama embeds text with a local Ollama server.
package ollama

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/custodia-labs/regdocs/internal/adapters/driven/providerhttp"
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "nomic-embed-text"
	DefaultTimeout = 30 * time.Second
)

// Config for NewEmbeddingService. Zero fields take the defaults above.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration

	// Dimensions pins the vector size. When zero the size comes from
	// domain.EmbeddingDimensions, or from the first response for models
	// not listed there.
	Dimensions int
}

// EmbeddingService calls POST /api/embed. Every returned vector must have
// the same length; a model swapped underneath a running server is reported
// as an error rather than written into the index.
type EmbeddingService struct {
	http  *providerhttp.Client
	model string
	dims  atomic.Int64
}

// NewEmbeddingService never fails; connectivity is checked by Ping.
func NewEmbeddingService(cfg Config) *EmbeddingService {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = domain.EmbeddingDimensions()[cfg.Model]
	}
	s := &EmbeddingService{
		http:  providerhttp.New("ollama", cfg.BaseURL, cfg.Timeout),
		model: cfg.Model,
	}
	s.dims.Store(int64(cfg.Dimensions))
	return s
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float32 `json:"embeddings"`
}

func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	var resp embedResponse
	if err := s.http.Do(ctx, "embed", http.MethodPost, "/api/embed", embedRequest{Model: s.model, Input: texts}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("ollama embed: got %d embeddings for %d texts", len(resp.Embeddings), len(texts))
	}

	want := int(s.dims.Load())
	if want == 0 {
		want = len(resp.Embeddings[0])
		s.dims.CompareAndSwap(0, int64(want))
	}
	for i, v := range resp.Embeddings {
		if len(v) != want {
			return nil, fmt.Errorf("ollama embed: input %d has %d dimensions, model %s uses %d", i, len(v), s.model, want)
		}
	}
	return resp.Embeddings, nil
}

// Dimensions is zero for an unlisted model until the first embedding call.
func (s *EmbeddingService) Dimensions() int { return int(s.dims.Load()) }

func (s *EmbeddingService) ModelName() string { return s.model }

// Ping lists local models, which needs no inference.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	return s.http.Do(ctx, "ping", http.MethodGet, "/api/tags", nil, nil)
}

func (s *EmbeddingService) Close() error { return nil }
