package ocr

import (
	"context"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// ID is the plugin identifier.
const ID = "image-ocr"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser extracts text from images with an OCR engine.
type Parser struct {
	engine Engine
}

// NewParser creates an image parser backed by engine.
func NewParser(engine Engine) *Parser {
	return &Parser{engine: engine}
}

// ID returns the plugin identifier.
func (p *Parser) ID() string {
	return ID
}

// SupportedFormats returns the formats this parser handles.
func (p *Parser) SupportedFormats() []string {
	return []string{
		"png", "jpg", "jpeg", "tiff", "tif", "bmp", "gif",
		"image/png", "image/jpeg", "image/tiff", "image/bmp", "image/gif",
	}
}

// Parse runs OCR over the image.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text, err := p.engine.Recognize(ctx, content)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, domain.ErrEmptyContent
	}

	return &domain.ParseResult{
		Text: text,
		Metadata: domain.ParseMetadata{
			PageCount:        domain.IntPtr(1),
			ExtractionMethod: "ocr",
		},
	}, nil
}
