package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// TextProcessor transforms extracted text before chunking.
// Processors are chained in a pipeline (e.g., sanitising, truncation).
type TextProcessor interface {
	// Name returns the processor name for logging and configuration.
	Name() string

	// Process returns the transformed text.
	Process(ctx context.Context, text string) (TextResult, error)
}

// TextResult is a processor's output.
type TextResult struct {
	Text string

	// Warnings lists lossy changes made to the text.
	Warnings []string
}

// TextPipeline chains multiple TextProcessors.
type TextPipeline interface {
	// Process runs the text through all processors in order.
	Process(ctx context.Context, text string) (TextResult, error)
}

// Chunker splits processed text into overlapping windows for embedding.
type Chunker interface {
	// Chunk returns the spans of text in order. Identical input yields identical spans.
	Chunk(text string) []domain.TextSpan
}
