// Package sanitise normalises extracted text before chunking.
package sanitise

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Name is the processor name used in pipeline configuration.
const Name = "sanitise"

var _ driven.TextProcessor = (*Processor)(nil)

var (
	trailingSpace = regexp.MustCompile(`[ \t]+\n`)
	blankRuns     = regexp.MustCompile(`\n{3,}`)
)

// Processor strips NUL bytes and control characters, normalises line
// endings to LF, and collapses runs of blank lines.
type Processor struct{}

// New creates a sanitising processor.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return Name
}

// Process cleans text. It never fails.
func (p *Processor) Process(_ context.Context, text string) (driven.TextResult, error) {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = strings.Map(func(r rune) rune {
		switch {
		case r == '\n' || r == '\t':
			return r
		case r == '\uFEFF', unicode.IsControl(r):
			return -1
		default:
			return r
		}
	}, text)

	text = trailingSpace.ReplaceAllString(text, "\n")
	text = blankRuns.ReplaceAllString(text, "\n\n")

	return driven.TextResult{Text: strings.TrimSpace(text)}, nil
}
