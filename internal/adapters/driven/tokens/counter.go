// Package tokens counts and truncates text in model tokens.
//
// Counting uses a tiktoken BPE encoding. When the encoding cannot be
// loaded (it is fetched on first use) the counter falls back to a
// four-characters-per-token estimate.
package tokens

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Ensure Counter implements the interface.
var _ driven.TokenCounter = (*Counter)(nil)

// DefaultModel selects the cl100k_base encoding.
const DefaultModel = "gpt-3.5-turbo"

// charsPerToken is the estimate used without an encoding.
const charsPerToken = 4

// Counter implements driven.TokenCounter.
type Counter struct {
	model string

	once sync.Once
	enc  *tiktoken.Tiktoken
}

// New returns a counter for the encoding used by model. The encoding is
// loaded lazily on first use.
func New(model string) *Counter {
	if model == "" {
		model = DefaultModel
	}
	return &Counter{model: model}
}

// NewEstimator returns a counter that never loads an encoding.
func NewEstimator() *Counter {
	c := &Counter{}
	c.once.Do(func() {})
	return c
}

func (c *Counter) encoding() *tiktoken.Tiktoken {
	c.once.Do(func() {
		enc, err := tiktoken.EncodingForModel(c.model)
		if err != nil {
			logger.Warn("tiktoken encoding for %s unavailable, estimating tokens: %v", c.model, err)
			return
		}
		c.enc = enc
	})
	return c.enc
}

// Estimated reports whether counts are approximations.
func (c *Counter) Estimated() bool {
	return c.encoding() == nil
}

// Count returns the number of tokens in text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	if enc := c.encoding(); enc != nil {
		return len(enc.Encode(text, nil, nil))
	}
	n := len([]rune(text))
	return (n + charsPerToken - 1) / charsPerToken
}

// Truncate returns the longest prefix of text within maxTokens.
func (c *Counter) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	if enc := c.encoding(); enc != nil {
		toks := enc.Encode(text, nil, nil)
		if len(toks) <= maxTokens {
			return text
		}
		return enc.Decode(toks[:maxTokens])
	}
	runes := []rune(text)
	limit := maxTokens * charsPerToken
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}
