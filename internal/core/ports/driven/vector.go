package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// VectorIndex stores chunk vectors and answers nearest-neighbour queries.
//
// Failures reaching the backing store wrap domain.ErrIndexUnavailable.
// Vectors of the wrong length fail with domain.ErrDimensionMismatch.
type VectorIndex interface {
	// Upsert atomically replaces every chunk of documentID with chunks.
	// Concurrent searches observe either the old set or the new set.
	Upsert(ctx context.Context, documentID string, chunks []domain.IndexedChunk) error

	// Search returns up to topK hits ordered per domain.SortHits.
	// A non-empty filter restricts results to those document IDs.
	Search(ctx context.Context, query []float32, topK int, filter []string) ([]domain.SearchHit, error)

	// Delete removes every chunk of documentID. Deleting an absent document is a no-op.
	Delete(ctx context.Context, documentID string) error

	// Count returns the number of indexed chunks.
	Count(ctx context.Context) (int, error)

	// Dimensions returns the configured vector size.
	Dimensions() int

	// Close releases resources.
	Close() error
}
