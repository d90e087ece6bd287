package driven

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Parser converts uploaded bytes into plain text plus extraction metadata.
// Parsers must be deterministic: identical input yields identical text.
type Parser interface {
	// ID returns the unique plugin identifier (e.g. "pdf").
	ID() string

	// SupportedFormats returns the lowercase format identifiers this parser
	// handles: file extensions without a dot, and MIME types.
	SupportedFormats() []string

	// Parse extracts text from content. format is the resolved identifier
	// that selected this parser.
	Parse(ctx context.Context, content []byte, format string) (*domain.ParseResult, error)
}

// PluginInfo describes a registered parser.
type PluginInfo struct {
	ID      string
	Formats []string
}
