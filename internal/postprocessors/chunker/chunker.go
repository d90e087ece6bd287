// Package chunker splits extracted text into overlapping, word-aligned windows.
package chunker

import (
	"fmt"
	"unicode"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// DefaultChunkSize is the default number of characters per chunk.
const DefaultChunkSize = 1000

// DefaultChunkOverlap is the default number of overlapping characters.
const DefaultChunkOverlap = 200

// Chunker holds a validated chunk size and overlap.
type Chunker struct {
	chunkSize int
	overlap   int
}

// Option configures the chunker.
type Option func(*Chunker)

// WithChunkSize sets the chunk size in characters.
func WithChunkSize(size int) Option {
	return func(c *Chunker) {
		c.chunkSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(c *Chunker) {
		c.overlap = overlap
	}
}

// New creates a chunker. Invalid settings return domain.ErrInvalidChunkConfig.
func New(opts ...Option) (*Chunker, error) {
	c := &Chunker{
		chunkSize: DefaultChunkSize,
		overlap:   DefaultChunkOverlap,
	}

	for _, opt := range opts {
		opt(c)
	}

	if err := validate(c.chunkSize, c.overlap); err != nil {
		return nil, err
	}
	return c, nil
}

// ChunkSize returns the configured chunk size.
func (c *Chunker) ChunkSize() int { return c.chunkSize }

// Overlap returns the configured overlap.
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk splits text using the configured settings.
func (c *Chunker) Chunk(text string) []domain.TextSpan {
	spans, _ := Split(text, c.chunkSize, c.overlap)
	return spans
}

func validate(chunkSize, overlap int) error {
	switch {
	case chunkSize <= 0:
		return fmt.Errorf("%w: chunk size %d must be positive", domain.ErrInvalidChunkConfig, chunkSize)
	case overlap < 0:
		return fmt.Errorf("%w: overlap %d must not be negative", domain.ErrInvalidChunkConfig, overlap)
	case overlap >= chunkSize:
		return fmt.Errorf("%w: overlap %d must be smaller than chunk size %d",
			domain.ErrInvalidChunkConfig, overlap, chunkSize)
	}
	return nil
}

// Split divides text into windows of at most chunkSize runes.
//
// A window ends at the last whitespace inside the limit. The next window
// starts at the first word beginning at or after end-overlap, so neighbours
// share at most overlap runes and no word is cut. A word longer than
// chunkSize is split mid-word, and text without whitespace advances by
// exactly chunkSize-overlap. Offsets in the returned spans are rune offsets.
func Split(text string, chunkSize, overlap int) ([]domain.TextSpan, error) {
	if err := validate(chunkSize, overlap); err != nil {
		return nil, err
	}

	runes := []rune(text)
	n := len(runes)
	for n > 0 && unicode.IsSpace(runes[n-1]) {
		n--
	}

	isWordStart := func(i int) bool {
		return !unicode.IsSpace(runes[i]) && (i == 0 || unicode.IsSpace(runes[i-1]))
	}

	start := skipSpace(runes, 0)
	var spans []domain.TextSpan

	for start < n {
		end := start + chunkSize
		forced := false
		if end >= n {
			end = n
		} else {
			cut := -1
			for p := end; p > start; p-- {
				if unicode.IsSpace(runes[p]) {
					cut = p
					break
				}
			}
			if cut == -1 {
				forced = true
			} else {
				end = cut
			}
		}

		// trailing whitespace is not part of the chunk
		for end > start && unicode.IsSpace(runes[end-1]) {
			end--
		}

		spans = append(spans, domain.TextSpan{
			Index: len(spans),
			Text:  string(runes[start:end]),
			Start: start,
			End:   end,
		})

		if end >= n {
			break
		}

		next := end - overlap
		if next <= start {
			next = start + 1
		}
		if next < end && !isWordStart(next) {
			q := next
			for q < end && !isWordStart(q) {
				q++
			}
			switch {
			case q < end:
				next = q
			case !forced:
				next = end
			}
		}
		start = skipSpace(runes, next)
	}

	return spans, nil
}

func skipSpace(runes []rune, i int) int {
	for i < len(runes) && unicode.IsSpace(runes[i]) {
		i++
	}
	return i
}
