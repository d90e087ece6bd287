package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/metrics"
)

// Default generation settings.
const (
	DefaultLLMTimeout    = 2 * time.Minute
	DefaultContextTokens = 3000
	DefaultAnswerTokens  = 1024
	DefaultTemperature   = 0.2
)

// GenerationConfig tunes LLM calls for answers and summaries.
type GenerationConfig struct {
	// Timeout bounds one LLM call. There is no retry.
	Timeout time.Duration

	// ContextTokens is the budget for the retrieved passages in a prompt.
	ContextTokens int

	// MaxTokens caps the generated text.
	MaxTokens int

	Temperature float64
}

func (c GenerationConfig) withDefaults() GenerationConfig {
	if c.Timeout <= 0 {
		c.Timeout = DefaultLLMTimeout
	}
	if c.ContextTokens <= 0 {
		c.ContextTokens = DefaultContextTokens
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = DefaultAnswerTokens
	}
	if c.Temperature < 0 {
		c.Temperature = DefaultTemperature
	}
	return c
}

// AnswerComposer turns retrieved sources into a cited answer.
type AnswerComposer struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	counter driven.TokenCounter
	metrics *metrics.Metrics
	cfg     GenerationConfig
}

// NewAnswerComposer creates a composer. llm may be nil, in which case
// results carry sources and no answer. counter may be nil to disable the
// context budget.
func NewAnswerComposer(
	llm driven.LLMService,
	prompts driven.PromptStore,
	counter driven.TokenCounter,
	m *metrics.Metrics,
	cfg GenerationConfig,
) *AnswerComposer {
	return &AnswerComposer{
		llm:     llm,
		prompts: prompts,
		counter: counter,
		metrics: m,
		cfg:     cfg.withDefaults(),
	}
}

// Compose answers query from sources, which must be in rank order.
func (a *AnswerComposer) Compose(ctx context.Context, query string, sources []domain.Source) (*domain.QueryResult, error) {
	started := time.Now()
	result := &domain.QueryResult{
		Query:      query,
		Sources:    sources,
		HasSources: len(sources) > 0,
	}
	if result.Sources == nil {
		result.Sources = []domain.Source{}
	}

	if a.llm == nil {
		if !result.HasSources {
			result.Answer = domain.NoInformationAnswer
		}
		result.ProcessingTime = time.Since(started)
		return result, nil
	}

	var (
		prompt string
		err    error
	)
	if result.HasSources {
		prompt, err = renderPrompt(a.prompts, driven.PromptAnswer, map[string]string{
			"Query":   query,
			"Context": a.buildContext(sources),
		})
	} else {
		prompt, err = renderPrompt(a.prompts, driven.PromptAnswerNoSources, map[string]string{
			"Query": query,
		})
	}
	if err != nil {
		return nil, err
	}

	answer, err := generate(ctx, a.llm, a.metrics, a.cfg, prompt)
	if err != nil {
		return nil, err
	}

	switch {
	case answer != "":
		result.Answer = answer
	case result.HasSources:
		a.metrics.LLMFailure("empty")
		return nil, fmt.Errorf("%w: model returned an empty answer", domain.ErrLLMUnavailable)
	default:
		result.Answer = domain.NoInformationAnswer
	}

	result.ProcessingTime = time.Since(started)
	return result, nil
}

// buildContext numbers passages in rank order until the token budget is spent.
// The first passage is truncated to fit; later ones that do not fit end the block.
func (a *AnswerComposer) buildContext(sources []domain.Source) string {
	var b strings.Builder
	used := 0

	for i, src := range sources {
		block := formatPassage(i+1, src, src.Text)
		if a.counter == nil {
			b.WriteString(block)
			continue
		}

		cost := a.counter.Count(block)
		if used+cost <= a.cfg.ContextTokens {
			b.WriteString(block)
			used += cost
			continue
		}
		if i == 0 {
			header := a.counter.Count(formatPassage(1, src, ""))
			text := a.counter.Truncate(src.Text, max(a.cfg.ContextTokens-header, 0))
			b.WriteString(formatPassage(1, src, text))
			logger.Debug("answer: first source truncated to fit %d context tokens", a.cfg.ContextTokens)
		} else {
			logger.Debug("answer: context budget reached after %d of %d sources", i, len(sources))
		}
		break
	}

	return strings.TrimSpace(b.String())
}

func formatPassage(n int, src domain.Source, text string) string {
	header := fmt.Sprintf("[%d] %s", n, src.DocumentName)
	if src.Page != nil {
		header += fmt.Sprintf(" (page %d)", *src.Page)
	}
	return header + "\n" + text + "\n\n"
}

// renderPrompt loads a template by name and executes it with data.
func renderPrompt(prompts driven.PromptStore, name string, data any) (string, error) {
	text, err := prompts.Load(name)
	if err != nil {
		return "", fmt.Errorf("load prompt %s: %w", name, err)
	}
	tmpl, err := template.New(name).Option("missingkey=zero").Parse(text)
	if err != nil {
		return "", fmt.Errorf("%w: prompt %s: %w", domain.ErrInvalidConfig, name, err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("%w: prompt %s: %w", domain.ErrInvalidConfig, name, err)
	}
	return buf.String(), nil
}

// generate calls the model once under cfg.Timeout. Deadline failures wrap
// domain.ErrLLMTimeout; every other failure wraps domain.ErrLLMUnavailable.
func generate(ctx context.Context, llm driven.LLMService, m *metrics.Metrics, cfg GenerationConfig, prompt string) (string, error) {
	gctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	text, err := llm.Generate(gctx, prompt, driven.GenerateOptions{
		MaxTokens:   cfg.MaxTokens,
		Temperature: cfg.Temperature,
	})
	if err == nil {
		return strings.TrimSpace(text), nil
	}

	switch {
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		return "", err
	case errors.Is(err, domain.ErrLLMTimeout):
		m.LLMFailure("timeout")
		return "", err
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(gctx.Err(), context.DeadlineExceeded):
		m.LLMFailure("timeout")
		return "", fmt.Errorf("%w after %s: %w", domain.ErrLLMTimeout, cfg.Timeout, err)
	case errors.Is(err, domain.ErrLLMUnavailable):
		m.LLMFailure("provider")
		return "", err
	default:
		m.LLMFailure("provider")
		return "", fmt.Errorf("%w: %w", domain.ErrLLMUnavailable, err)
	}
}
