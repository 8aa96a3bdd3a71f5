package postprocessors

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
)

// registryMockChunker is a simple mock for testing registry functionality.
type registryMockChunker struct {
	name string
}

func (m *registryMockChunker) Name() string { return m.name }
func (m *registryMockChunker) Chunk(_ context.Context, _ string, _ *domain.Extraction) ([]domain.Chunk, error) {
	return nil, nil
}

func TestRegistry_RegisterAndBuild(t *testing.T) {
	r := NewRegistry()
	var got map[string]any
	r.Register("mock", func(cfg map[string]any) (driven.Chunker, error) {
		got = cfg
		return &registryMockChunker{name: "mock"}, nil
	})

	assert.True(t, r.Has("mock"))
	c, err := r.Build("mock", map[string]any{"k": 1})
	require.NoError(t, err)
	assert.Equal(t, "mock", c.Name())
	assert.Equal(t, 1, got["k"])
}

func TestRegistry_Build_Unknown(t *testing.T) {
	_, err := NewRegistry().Build("missing", nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown chunker: missing")
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)
	assert.Equal(t, []string{"enhanced", "fixed"}, r.Names())
}

func TestBuildEnhanced_FromSettings(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	settings := domain.DefaultAppSettings().Chunker
	settings.ChunkSize = 100
	c, err := r.Build("enhanced", ConfigFromSettings(settings))
	require.NoError(t, err)

	text := strings.Repeat("x", 95) + ". " + strings.Repeat("y", 60)
	chunks, err := c.Chunk(context.Background(), "d", &domain.Extraction{Text: text})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 97, chunks[0].EndChar)
}

func TestBuildFixed_IgnoresBoundaries(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	c, err := r.Build("fixed", map[string]any{"chunk_size": float64(100), "preserve_sentences": true})
	require.NoError(t, err)

	text := strings.Repeat("x", 95) + ". " + strings.Repeat("y", 60)
	chunks, err := c.Chunk(context.Background(), "d", &domain.Extraction{Text: text})
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, 100, chunks[0].EndChar)
}

func TestGetIntFromConfig(t *testing.T) {
	cfg := map[string]any{"a": 1, "b": int64(2), "c": float64(3), "d": "4"}
	assert.Equal(t, 1, getIntFromConfig(cfg, "a"))
	assert.Equal(t, 2, getIntFromConfig(cfg, "b"))
	assert.Equal(t, 3, getIntFromConfig(cfg, "c"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "d"))
	assert.Equal(t, 0, getIntFromConfig(cfg, "missing"))
}
