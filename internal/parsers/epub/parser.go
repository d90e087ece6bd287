// Package epub parses EPUB books with MuPDF.
package epub

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/parsers/fitzdoc"
)

// ID is the plugin identifier.
const ID = "epub"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles EPUB documents.
type Parser struct {
	open fitzdoc.Opener
}

// New creates a new EPUB parser. A nil opener selects MuPDF.
func New(open fitzdoc.Opener) *Parser {
	if open == nil {
		open = fitzdoc.Open
	}
	return &Parser{open: open}
}

// ID returns the plugin identifier.
func (p *Parser) ID() string {
	return ID
}

// SupportedFormats returns the formats this parser handles.
func (p *Parser) SupportedFormats() []string {
	return []string{"epub", "application/epub+zip"}
}

// Parse extracts text from every layout page. MuPDF reflows the book, so
// the page count describes the rendered layout rather than print pages.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := p.open(content)
	if err != nil {
		return nil, domain.NewParseError("open epub: " + err.Error())
	}
	defer doc.Close()

	var (
		pages    []fitzdoc.Page
		warnings []string
	)
	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		text, err := doc.Text(i)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: text extraction failed", i+1))
			continue
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, fitzdoc.Page{Number: i + 1, Text: text})
		}
	}

	text, _ := fitzdoc.Join(pages)
	if text == "" {
		return nil, domain.ErrEmptyContent
	}

	return &domain.ParseResult{
		Text: text,
		Metadata: domain.ParseMetadata{
			PageCount:        domain.IntPtr(doc.NumPage()),
			ExtractionMethod: "epub",
			Warnings:         warnings,
		},
	}, nil
}
