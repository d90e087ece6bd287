// Package guard wraps an embedding service with input limits, batching,
// rate limiting, call timeouts and output validation.
package guard

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"golang.org/x/time/rate"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Service implements the interface.
var _ driven.EmbeddingService = (*Service)(nil)

// Default configuration values.
const (
	DefaultBatchSize = 32
	DefaultTimeout   = 60 * time.Second
)

// Config holds guard limits.
type Config struct {
	// MaxTokens rejects any text longer than this. Zero disables the check.
	MaxTokens int

	// BatchSize is the largest number of texts per provider call (default: 32).
	BatchSize int

	// RequestsPerSecond limits provider calls. Zero means unlimited.
	RequestsPerSecond float64

	// Timeout bounds each provider call (default: 60s).
	Timeout time.Duration

	// Dimensions is the vector size the index expects. Zero trusts the provider.
	Dimensions int
}

// Service decorates an EmbeddingService.
type Service struct {
	inner   driven.EmbeddingService
	counter driven.TokenCounter
	limiter *rate.Limiter
	cfg     Config
}

// New wraps inner. counter may be nil when MaxTokens is zero.
func New(inner driven.EmbeddingService, counter driven.TokenCounter, cfg Config) (*Service, error) {
	if inner == nil {
		return nil, fmt.Errorf("%w: embedding service is required", domain.ErrInvalidConfig)
	}
	if cfg.MaxTokens > 0 && counter == nil {
		return nil, fmt.Errorf("%w: token counter is required when max_tokens is set", domain.ErrInvalidConfig)
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Dimensions > 0 && inner.Dimensions() > 0 && cfg.Dimensions != inner.Dimensions() {
		return nil, fmt.Errorf("%w: model %s produces %d dimensions, configured %d",
			domain.ErrDimensionMismatch, inner.ModelName(), inner.Dimensions(), cfg.Dimensions)
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Service{
		inner:   inner,
		counter: counter,
		limiter: limiter,
		cfg:     cfg,
	}, nil
}

// Embed validates texts, then embeds them in batches. The output has the
// same length and order as texts.
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if s.cfg.MaxTokens > 0 {
		for i, text := range texts {
			if n := s.counter.Count(text); n > s.cfg.MaxTokens {
				return nil, fmt.Errorf("%w: text %d has %d tokens, limit %d",
					domain.ErrInputTooLong, i, n, s.cfg.MaxTokens)
			}
		}
	}

	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += s.cfg.BatchSize {
		end := min(start+s.cfg.BatchSize, len(texts))

		vecs, err := s.embedBatch(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		out = append(out, vecs...)
	}
	return out, nil
}

func (s *Service) embedBatch(ctx context.Context, batch []string) ([][]float32, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, classify(ctx, err)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	vecs, err := s.inner.Embed(callCtx, batch)
	if err != nil {
		return nil, classify(ctx, err)
	}
	if len(vecs) != len(batch) {
		return nil, fmt.Errorf("embedding provider returned %d vectors for %d texts", len(vecs), len(batch))
	}

	want := s.Dimensions()
	for i, v := range vecs {
		if want > 0 && len(v) != want {
			return nil, fmt.Errorf("%w: vector %d has %d dimensions, expected %d",
				domain.ErrDimensionMismatch, i, len(v), want)
		}
	}
	return vecs, nil
}

// classify maps transport failures onto ErrEmbeddingUnavailable. A
// cancelled parent context is returned unchanged.
func classify(parent context.Context, err error) error {
	if parent.Err() != nil {
		return parent.Err()
	}
	if errors.Is(err, domain.ErrEmbeddingUnavailable) || domain.IsInputError(err) || domain.IsFatal(err) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: call timed out: %w", domain.ErrEmbeddingUnavailable, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return fmt.Errorf("%w: %w", domain.ErrEmbeddingUnavailable, err)
	}
	return err
}

// Dimensions returns the configured size, or the provider's when unset.
func (s *Service) Dimensions() int {
	if s.cfg.Dimensions > 0 {
		return s.cfg.Dimensions
	}
	return s.inner.Dimensions()
}

// ModelName returns the wrapped model name.
func (s *Service) ModelName() string {
	return s.inner.ModelName()
}

// Ping checks the wrapped service.
func (s *Service) Ping(ctx context.Context) error {
	return s.inner.Ping(ctx)
}

// Close closes the wrapped service.
func (s *Service) Close() error {
	return s.inner.Close()
}
