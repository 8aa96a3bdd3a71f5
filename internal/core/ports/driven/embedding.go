package driven

import "context"

// EmbeddingService turns chunk text and queries into vectors. Vectors from
// one service share a dimension, which must match what the VectorIndex
// namespace already holds.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch returns one vector per input, in input order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions is zero until the first successful call when the model is
	// not in domain.EmbeddingDimensions.
	Dimensions() int
	ModelName() string

	// Ping makes the cheapest request the provider supports.
	Ping(ctx context.Context) error
	Close() error
}
