package driven

import "context"

// LLMService turns a rendered prompt into text. It is optional: without
// one, queries return ranked sources and no answer, and summaries fail
// with domain.ErrLLMUnavailable.
//
// Errors wrap domain.ErrLLMTimeout when a deadline expired and
// domain.ErrLLMUnavailable for any other provider failure.
type LLMService interface {
	Generate(ctx context.Context, prompt string, opts GenerateOptions) (string, error)
	ModelName() string
	// Ping checks reachability without generating anything.
	Ping(ctx context.Context) error
	Close() error
}

// GenerateOptions are sampling hints. Zero values leave the provider's
// defaults in place.
type GenerateOptions struct {
	MaxTokens   int
	Temperature float64
	StopWords   []string
}
