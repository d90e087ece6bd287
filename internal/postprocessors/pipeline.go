// Package postprocessors provides text cleaning stages run between parsing and chunking.
package postprocessors

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Pipeline implements the interface.
var _ driven.TextPipeline = (*Pipeline)(nil)

// Pipeline chains multiple TextProcessors and runs them in order.
type Pipeline struct {
	processors []driven.TextProcessor
}

// NewPipeline creates a new processing pipeline with the given processors.
// Processors are executed in the order provided.
func NewPipeline(processors ...driven.TextProcessor) *Pipeline {
	return &Pipeline{
		processors: processors,
	}
}

// Process runs the text through all processors in order.
// Warnings from every stage are collected in order.
func (p *Pipeline) Process(ctx context.Context, text string) (driven.TextResult, error) {
	result := driven.TextResult{Text: text}

	for _, processor := range p.processors {
		if err := ctx.Err(); err != nil {
			return driven.TextResult{}, err
		}
		out, err := processor.Process(ctx, result.Text)
		if err != nil {
			return driven.TextResult{}, fmt.Errorf("processor %s: %w", processor.Name(), err)
		}
		result.Text = out.Text
		result.Warnings = append(result.Warnings, out.Warnings...)
	}

	return result, nil
}

// Add appends a processor to the pipeline.
func (p *Pipeline) Add(processor driven.TextProcessor) {
	p.processors = append(p.processors, processor)
}

// Len returns the number of processors in the pipeline.
func (p *Pipeline) Len() int {
	return len(p.processors)
}
