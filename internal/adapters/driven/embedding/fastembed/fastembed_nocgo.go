//go:build !cgo

package fastembed

import (
	"context"
)

// EmbeddingService is unavailable in builds without cgo.
type EmbeddingService struct{}

// NewEmbeddingService returns ErrNotAvailable when cgo is disabled.
func NewEmbeddingService(_ Config) (*EmbeddingService, error) {
	return nil, ErrNotAvailable
}

// Embed returns ErrNotAvailable when cgo is disabled.
func (s *EmbeddingService) Embed(_ context.Context, _ []string) ([][]float32, error) {
	return nil, ErrNotAvailable
}

// Dimensions returns 0 when cgo is disabled.
func (s *EmbeddingService) Dimensions() int { return 0 }

// ModelName returns an empty name when cgo is disabled.
func (s *EmbeddingService) ModelName() string { return "" }

// Ping returns ErrNotAvailable when cgo is disabled.
func (s *EmbeddingService) Ping(_ context.Context) error { return ErrNotAvailable }

// Close is a no-op when cgo is disabled.
func (s *EmbeddingService) Close() error { return nil }
