package postprocessors

import (
	"github.com/custodia-labs/regdocs/internal/core/domain"
	"github.com/custodia-labs/regdocs/internal/core/ports/driven"
	"github.com/custodia-labs/regdocs/internal/postprocessors/chunker"
)

// FixedName is the registry name of the hard-cutoff chunker.
const FixedName = "fixed"

// RegisterDefaults registers all built-in chunkers with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(chunker.Name, buildEnhanced)
	r.Register(FixedName, buildFixed)
}

// ConfigFromSettings converts typed chunker settings into builder config.
func ConfigFromSettings(s domain.ChunkerSettings) map[string]any {
	return map[string]any{
		"chunk_size":          s.ChunkSize,
		"context_radius":      s.ContextRadius,
		"overlap":             s.Overlap,
		"preserve_sentences":  s.PreserveSentences,
		"preserve_paragraphs": s.PreserveParagraphs,
	}
}

// buildEnhanced creates the boundary-preserving chunker from generic config.
// Supported config keys:
//   - chunk_size (int): Target bytes per chunk (default: 1000)
//   - context_radius (int): Context bytes kept on each side (default: 200)
//   - overlap (int): Bytes each chunk repeats from the previous one (default: 0)
//   - preserve_sentences (bool): Snap to sentence ends (default: true)
//   - preserve_paragraphs (bool): Snap to paragraph breaks (default: true)
func buildEnhanced(cfg map[string]any) (driven.Chunker, error) {
	return chunker.New(optionsFromConfig(cfg)...), nil
}

// buildFixed creates a chunker that always cuts at the target size.
func buildFixed(cfg map[string]any) (driven.Chunker, error) {
	opts := append(optionsFromConfig(cfg),
		chunker.WithPreserveSentences(false),
		chunker.WithPreserveParagraphs(false),
	)
	return chunker.New(opts...), nil
}

func optionsFromConfig(cfg map[string]any) []chunker.Option {
	var opts []chunker.Option
	if cfg == nil {
		return opts
	}
	if size := getIntFromConfig(cfg, "chunk_size"); size > 0 {
		opts = append(opts, chunker.WithChunkSize(size))
	}
	if _, ok := cfg["context_radius"]; ok {
		opts = append(opts, chunker.WithContextRadius(getIntFromConfig(cfg, "context_radius")))
	}
	if _, ok := cfg["overlap"]; ok {
		opts = append(opts, chunker.WithOverlap(getIntFromConfig(cfg, "overlap")))
	}
	if v, ok := cfg["preserve_sentences"].(bool); ok {
		opts = append(opts, chunker.WithPreserveSentences(v))
	}
	if v, ok := cfg["preserve_paragraphs"].(bool); ok {
		opts = append(opts, chunker.WithPreserveParagraphs(v))
	}
	return opts
}

// getIntFromConfig safely extracts an int from generic config map.
// Handles int, int64, and float64 types that may come from TOML/JSON parsing.
func getIntFromConfig(cfg map[string]any, key string) int {
	val, ok := cfg[key]
	if !ok {
		return 0
	}

	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
