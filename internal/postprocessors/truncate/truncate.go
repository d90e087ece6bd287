// Package truncate caps extracted text at a maximum number of characters.
package truncate

import (
	"context"
	"fmt"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Name is the processor name used in pipeline configuration.
const Name = "truncate"

// DefaultMaxRunes is the default character cap.
const DefaultMaxRunes = 500000

var _ driven.TextProcessor = (*Processor)(nil)

// Processor keeps at most maxRunes characters of text.
type Processor struct {
	maxRunes int
}

// Option configures the processor.
type Option func(*Processor)

// WithMaxRunes sets the character cap.
func WithMaxRunes(n int) Option {
	return func(p *Processor) {
		if n > 0 {
			p.maxRunes = n
		}
	}
}

// New creates a truncating processor.
func New(opts ...Option) *Processor {
	p := &Processor{maxRunes: DefaultMaxRunes}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// MaxRunes returns the configured cap.
func (p *Processor) MaxRunes() int {
	return p.maxRunes
}

// Process truncates text longer than the cap and reports a warning.
func (p *Processor) Process(_ context.Context, text string) (driven.TextResult, error) {
	count := 0
	for i := range text {
		if count == p.maxRunes {
			return driven.TextResult{
				Text:     text[:i],
				Warnings: []string{fmt.Sprintf("text truncated to %d characters", p.maxRunes)},
			}, nil
		}
		count++
	}
	return driven.TextResult{Text: text}, nil
}
