package driven

import "context"

// EmbeddingService maps text to vectors for the VectorIndex.
//
// Embed returns one vector per input, in input order. Batching must not
// change results: a text embeds to the same vector alone or in a batch.
// Every vector has Dimensions() components, and that width must match the
// index it is written to. Transient failures wrap
// domain.ErrEmbeddingUnavailable.
type EmbeddingService interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Ping(ctx context.Context) error
	Close() error
}
