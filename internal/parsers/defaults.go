package parsers

import (
	"fmt"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/parsers/docx"
	"github.com/custodia-labs/sercha-docs/internal/parsers/eml"
	"github.com/custodia-labs/sercha-docs/internal/parsers/epub"
	"github.com/custodia-labs/sercha-docs/internal/parsers/html"
	"github.com/custodia-labs/sercha-docs/internal/parsers/markdown"
	"github.com/custodia-labs/sercha-docs/internal/parsers/ocr"
	"github.com/custodia-labs/sercha-docs/internal/parsers/pdf"
	"github.com/custodia-labs/sercha-docs/internal/parsers/plaintext"
)

// DefaultOptions configures the built-in plugins.
type DefaultOptions struct {
	// OCR recognises text in images and scanned PDF pages.
	// When nil, image uploads are unsupported and PDFs use their text layer only.
	OCR ocr.Engine
}

// NewDefaultRegistry registers every built-in plugin and freezes the registry.
func NewDefaultRegistry(opts DefaultOptions) (*Registry, error) {
	pdfOpts := []pdf.Option{}
	if opts.OCR != nil {
		pdfOpts = append(pdfOpts, pdf.WithOCR(opts.OCR))
	}

	plugins := []driven.Parser{
		plaintext.New(),
		markdown.New(),
		html.New(),
		docx.New(),
		pdf.New(pdfOpts...),
		epub.New(nil),
		eml.New(),
	}
	if opts.OCR != nil {
		plugins = append(plugins, ocr.NewParser(opts.OCR))
	}

	r := NewRegistry()
	for _, p := range plugins {
		if err := r.Register(p); err != nil {
			return nil, fmt.Errorf("register %s: %w", p.ID(), err)
		}
	}
	r.Freeze()
	return r, nil
}
