// Package pdf parses PDF documents. pdfcpu validates the file and counts
// pages; MuPDF extracts per-page text and renders scanned pages for OCR.
package pdf

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/parsers/fitzdoc"
	"github.com/custodia-labs/sercha-docs/internal/parsers/ocr"
)

// ID is the plugin identifier.
const ID = "pdf"

// DefaultRenderDPI is the resolution scanned pages are rendered at for OCR.
const DefaultRenderDPI = 300

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// PageCounter validates content and returns its page count.
type PageCounter func(content []byte) (int, error)

// Parser handles PDF documents.
type Parser struct {
	open  fitzdoc.Opener
	count PageCounter
	ocr   ocr.Engine
	dpi   float64
}

// Option configures the parser.
type Option func(*Parser)

// WithOCR enables OCR for pages without a text layer.
func WithOCR(engine ocr.Engine) Option {
	return func(p *Parser) {
		p.ocr = engine
	}
}

// WithOpener replaces the MuPDF document opener.
func WithOpener(open fitzdoc.Opener) Option {
	return func(p *Parser) {
		p.open = open
	}
}

// WithPageCounter replaces the pdfcpu validator.
func WithPageCounter(count PageCounter) Option {
	return func(p *Parser) {
		p.count = count
	}
}

// WithRenderDPI sets the OCR render resolution.
func WithRenderDPI(dpi float64) Option {
	return func(p *Parser) {
		if dpi > 0 {
			p.dpi = dpi
		}
	}
}

// New creates a new PDF parser.
func New(opts ...Option) *Parser {
	p := &Parser{
		open:  fitzdoc.Open,
		count: CountPages,
		dpi:   DefaultRenderDPI,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ID returns the plugin identifier.
func (p *Parser) ID() string {
	return ID
}

// SupportedFormats returns the formats this parser handles.
func (p *Parser) SupportedFormats() []string {
	return []string{"pdf", "application/pdf"}
}

// CountPages validates a PDF with pdfcpu in relaxed mode and returns its page count.
func CountPages(content []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(bytes.NewReader(content), conf)
}

// Parse extracts text page by page.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	pageCount, err := p.count(content)
	if err != nil {
		return nil, domain.NewParseError("invalid pdf: " + err.Error())
	}

	doc, err := p.open(content)
	if err != nil {
		return nil, domain.NewParseError("open pdf: " + err.Error())
	}
	defer doc.Close()

	var (
		pages    []fitzdoc.Page
		warnings []string
		ocrPages int
		ocrErr   error
	)

	for i := 0; i < doc.NumPage(); i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		text, err := doc.Text(i)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: text extraction failed", i+1))
			text = ""
		}
		text = strings.TrimSpace(text)

		if text == "" && p.ocr != nil {
			recognised, err := p.recognisePage(ctx, doc, i)
			switch {
			case err == nil && recognised != "":
				text = recognised
				ocrPages++
				warnings = append(warnings, fmt.Sprintf("page %d: text recovered with OCR", i+1))
			case errors.Is(err, domain.ErrOCRUnavailable):
				ocrErr = err
			case err != nil:
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				warnings = append(warnings, fmt.Sprintf("page %d: OCR failed", i+1))
				logger.Debug("pdf: OCR page %d: %v", i+1, err)
			}
		}

		pages = append(pages, fitzdoc.Page{Number: i + 1, Text: text})
	}

	text, offsets := fitzdoc.Join(pages)
	if strings.TrimSpace(text) == "" {
		if ocrErr != nil {
			// scanned document and no engine to read it
			return nil, ocrErr
		}
		return nil, domain.ErrEmptyContent
	}

	method := "pdf-text"
	if ocrPages > 0 {
		method = "pdf-text+ocr"
	}
	if pageCount <= 0 {
		pageCount = doc.NumPage()
	}

	return &domain.ParseResult{
		Text:        text,
		PageOffsets: offsets,
		Metadata: domain.ParseMetadata{
			PageCount:        domain.IntPtr(pageCount),
			ExtractionMethod: method,
			Warnings:         warnings,
		},
	}, nil
}

func (p *Parser) recognisePage(ctx context.Context, doc fitzdoc.Document, page int) (string, error) {
	if err := p.ocr.Available(); err != nil {
		return "", err
	}
	img, err := doc.ImagePNG(page, p.dpi)
	if err != nil {
		return "", fmt.Errorf("render page %d: %w", page+1, err)
	}
	return p.ocr.Recognize(ctx, img)
}
