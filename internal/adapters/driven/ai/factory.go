// Package ai provides factory functions for creating AI service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/fastembed"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/guard"
	ollamaembed "github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-docs/internal/adapters/driven/embedding/openai"
	anthropicllm "github.com/custodia-labs/sercha-docs/internal/adapters/driven/llm/anthropic"
	ollamallm "github.com/custodia-labs/sercha-docs/internal/adapters/driven/llm/ollama"
	openaillm "github.com/custodia-labs/sercha-docs/internal/adapters/driven/llm/openai"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// CreateEmbeddingService creates the provider adapter named by cfg.Provider.
func CreateEmbeddingService(cfg file.EmbeddingConfig) (driven.EmbeddingService, error) {
	switch domain.AIProvider(cfg.Provider) {
	case domain.AIProviderOllama:
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     cfg.APIKey,
			BaseURL:    cfg.BaseURL,
			Model:      cfg.Model,
			Timeout:    cfg.Timeout,
			Dimensions: cfg.Dimensions,
		})

	case domain.AIProviderFastEmbed:
		svc, err := fastembed.NewEmbeddingService(fastembed.Config{
			Model:    cfg.Model,
			CacheDir: cfg.CacheDir,
		})
		if err != nil {
			return nil, err
		}
		return svc, nil

	case domain.AIProviderAnthropic:
		return nil, fmt.Errorf("%w: anthropic does not support embeddings, use ollama, openai or fastembed",
			domain.ErrInvalidConfig)

	default:
		return nil, fmt.Errorf("%w: unsupported embedding provider: %q", domain.ErrInvalidConfig, cfg.Provider)
	}
}

// CreateGuardedEmbeddingService wraps the configured provider with batching,
// rate limiting, the token limit, and the dimension check.
func CreateGuardedEmbeddingService(cfg file.EmbeddingConfig, counter driven.TokenCounter) (*guard.Service, error) {
	inner, err := CreateEmbeddingService(cfg)
	if err != nil {
		return nil, err
	}

	svc, err := guard.New(inner, counter, guard.Config{
		MaxTokens:         cfg.MaxTokens,
		BatchSize:         cfg.BatchSize,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Timeout:           cfg.Timeout,
		Dimensions:        cfg.Dimensions,
	})
	if err != nil {
		inner.Close()
		return nil, err
	}
	return svc, nil
}

// CreateLLMService creates the LLM adapter named by cfg.Provider.
// Returns nil if no provider is configured.
func CreateLLMService(cfg file.LLMConfig) (driven.LLMService, error) {
	if cfg.Provider == "" {
		return nil, nil
	}

	switch domain.AIProvider(cfg.Provider) {
	case domain.AIProviderOllama:
		return ollamallm.NewLLMService(ollamallm.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil

	case domain.AIProviderOpenAI:
		return openaillm.NewLLMService(openaillm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	case domain.AIProviderAnthropic:
		return anthropicllm.NewLLMService(anthropicllm.Config{
			APIKey:  cfg.APIKey,
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported LLM provider: %q", domain.ErrInvalidConfig, cfg.Provider)
	}
}

// Pinger is satisfied by every AI service adapter.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Validate checks a service is reachable within the ping timeout.
// A nil service is valid.
func Validate(ctx context.Context, svc Pinger) error {
	if svc == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return svc.Ping(ctx)
}
