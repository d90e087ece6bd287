// Package plaintext parses UTF-8 and UTF-16 text files.
package plaintext

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// ID is the plugin identifier.
const ID = "plaintext"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

var (
	bomUTF8    = []byte{0xEF, 0xBB, 0xBF}
	bomUTF16LE = []byte{0xFF, 0xFE}
	bomUTF16BE = []byte{0xFE, 0xFF}
)

// Parser handles plain text documents.
type Parser struct{}

// New creates a new plain text parser.
func New() *Parser {
	return &Parser{}
}

// ID returns the plugin identifier.
func (p *Parser) ID() string {
	return ID
}

// SupportedFormats returns the formats this parser handles.
func (p *Parser) SupportedFormats() []string {
	return []string{"txt", "text", "csv", "tsv", "log", "text/plain", "text/csv"}
}

// Parse decodes content as text.
// UTF-8 input may carry a BOM; UTF-16 input must.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := decode(content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyContent
	}

	return &domain.ParseResult{
		Text:     text,
		Metadata: domain.ParseMetadata{ExtractionMethod: "text"},
	}, nil
}

func decode(content []byte) (string, error) {
	switch {
	case bytes.HasPrefix(content, bomUTF16LE):
		return decodeUTF16(content[2:], binary.LittleEndian)
	case bytes.HasPrefix(content, bomUTF16BE):
		return decodeUTF16(content[2:], binary.BigEndian)
	}

	content = bytes.TrimPrefix(content, bomUTF8)
	if !utf8.Valid(content) {
		return "", fmt.Errorf("%w: content is not valid UTF-8", domain.ErrUnsupportedEncoding)
	}
	return string(content), nil
}

func decodeUTF16(b []byte, order binary.ByteOrder) (string, error) {
	if len(b)%2 != 0 {
		return "", fmt.Errorf("%w: odd length UTF-16 content", domain.ErrUnsupportedEncoding)
	}
	units := make([]uint16, len(b)/2)
	for i := range units {
		units[i] = order.Uint16(b[2*i:])
	}
	return string(utf16.Decode(units)), nil
}
