// Package docx parses Office Open XML word-processing documents.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// ID is the plugin identifier.
const ID = "docx"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

const (
	documentPart = "word/document.xml"
	appPart      = "docProps/app.xml"
)

// Parser handles DOCX documents.
type Parser struct{}

// New creates a new DOCX parser.
func New() *Parser {
	return &Parser{}
}

// ID returns the plugin identifier.
func (p *Parser) ID() string {
	return ID
}

// SupportedFormats returns the formats this parser handles.
func (p *Parser) SupportedFormats() []string {
	return []string{
		"docx",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
}

// Parse extracts paragraph text from word/document.xml.
// The page count comes from docProps/app.xml when the producer recorded it.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reader, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, domain.NewParseError("not a valid docx archive: " + err.Error())
	}

	body, err := readPart(reader, documentPart)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, domain.NewParseError("missing " + documentPart)
	}

	text, err := parseDocumentXML(body)
	if err != nil {
		return nil, err
	}
	if text == "" {
		return nil, domain.ErrEmptyContent
	}

	meta := domain.ParseMetadata{ExtractionMethod: "docx-xml"}
	if app, _ := readPart(reader, appPart); app != nil {
		meta.PageCount = parsePageCount(app)
	}

	return &domain.ParseResult{Text: text, Metadata: meta}, nil
}

// readPart returns the bytes of the named archive member, or nil when absent.
func readPart(reader *zip.Reader, name string) ([]byte, error) {
	for _, file := range reader.File {
		if file.Name != name {
			continue
		}

		rc, err := file.Open()
		if err != nil {
			return nil, domain.NewParseError(fmt.Sprintf("open %s: %v", name, err))
		}
		defer rc.Close()

		data, err := io.ReadAll(rc)
		if err != nil {
			return nil, domain.NewParseError(fmt.Sprintf("read %s: %v", name, err))
		}
		return data, nil
	}
	return nil, nil
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
		Tables     []table     `xml:"tbl"`
	} `xml:"body"`
}

type table struct {
	Rows []struct {
		Cells []struct {
			Paragraphs []paragraph `xml:"p"`
		} `xml:"tc"`
	} `xml:"tr"`
}

type paragraph struct {
	Runs []run `xml:"r"`
}

type run struct {
	Text []textElement `xml:"t"`
	Tabs []struct{}    `xml:"tab"`
}

type textElement struct {
	Content string `xml:",chardata"`
}

func (p paragraph) text() string {
	var b strings.Builder
	for _, r := range p.Runs {
		for range r.Tabs {
			b.WriteString("\t")
		}
		for _, t := range r.Text {
			b.WriteString(t.Content)
		}
	}
	return b.String()
}

// parseDocumentXML extracts text with one line per paragraph. Table rows
// follow the body paragraphs, cells separated by tabs.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", domain.NewParseError("malformed document.xml: " + err.Error())
	}

	lines := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		lines = append(lines, para.text())
	}

	for _, tbl := range doc.Body.Tables {
		for _, row := range tbl.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				parts := make([]string, 0, len(cell.Paragraphs))
				for _, para := range cell.Paragraphs {
					parts = append(parts, para.text())
				}
				cells = append(cells, strings.Join(parts, " "))
			}
			lines = append(lines, strings.Join(cells, "\t"))
		}
	}

	return strings.TrimSpace(strings.Join(lines, "\n")), nil
}

// appXML represents the structure of docProps/app.xml.
type appXML struct {
	Pages int `xml:"Pages"`
}

func parsePageCount(content []byte) *int {
	var app appXML
	if err := xml.Unmarshal(content, &app); err != nil || app.Pages <= 0 {
		return nil
	}
	return domain.IntPtr(app.Pages)
}
