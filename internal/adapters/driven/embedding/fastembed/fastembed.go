//go:build cgo

package fastembed

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	fe "github.com/anush008/fastembed-go"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure EmbeddingService implements the interface.
var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// modelMapping maps model names to fastembed model constants.
var modelMapping = map[string]fe.EmbeddingModel{
	"BAAI/bge-small-en-v1.5":                 fe.BGESmallENV15,
	"BAAI/bge-base-en-v1.5":                  fe.BGEBaseENV15,
	"sentence-transformers/all-MiniLM-L6-v2": fe.AllMiniLML6V2,
}

// EmbeddingService generates embeddings with a local ONNX model.
type EmbeddingService struct {
	mu        sync.RWMutex
	model     *fe.FlagEmbedding
	modelName string
	dimension int
	batchSize int
}

// NewEmbeddingService loads the model, downloading it into CacheDir on first use.
func NewEmbeddingService(cfg Config) (*EmbeddingService, error) {
	cfg = cfg.withDefaults()

	model, ok := modelMapping[cfg.Model]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported fastembed model %q", domain.ErrInvalidConfig, cfg.Model)
	}
	dimension, ok := ModelDimension(cfg.Model)
	if !ok {
		return nil, fmt.Errorf("%w: unknown dimension for %q", domain.ErrInvalidConfig, cfg.Model)
	}

	showProgress := false
	flag, err := fe.NewFlagEmbedding(&fe.InitOptions{
		Model:                model,
		CacheDir:             filepath.Clean(cfg.CacheDir),
		MaxLength:            cfg.MaxLength,
		ShowDownloadProgress: &showProgress,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: initialise fastembed: %w", domain.ErrEmbeddingUnavailable, err)
	}

	return &EmbeddingService{
		model:     flag,
		modelName: cfg.Model,
		dimension: dimension,
		batchSize: cfg.BatchSize,
	}, nil
}

// Embed generates passage embeddings for texts in order.
func (s *EmbeddingService) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.model == nil {
		return nil, fmt.Errorf("%w: fastembed: service closed", domain.ErrEmbeddingUnavailable)
	}

	out, err := s.model.PassageEmbed(texts, s.batchSize)
	if err != nil {
		return nil, fmt.Errorf("fastembed: %w", err)
	}
	return out, nil
}

// Dimensions returns the embedding vector size.
func (s *EmbeddingService) Dimensions() int {
	return s.dimension
}

// ModelName returns the configured model.
func (s *EmbeddingService) ModelName() string {
	return s.modelName
}

// Ping succeeds while the model is loaded.
func (s *EmbeddingService) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.model == nil {
		return fmt.Errorf("%w: fastembed: service closed", domain.ErrEmbeddingUnavailable)
	}
	return nil
}

// Close releases the ONNX session.
func (s *EmbeddingService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.model == nil {
		return nil
	}
	err := s.model.Destroy()
	s.model = nil
	return err
}
