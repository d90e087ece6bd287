// Package html parses HTML documents into readable text.
package html

import (
	"context"
	"strings"

	xhtml "golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

const ID = "html"

var _ driven.Parser = (*Parser)(nil)

type Parser struct{}

func New() *Parser { return &Parser{} }

func (p *Parser) ID() string { return ID }

func (p *Parser) SupportedFormats() []string {
	return []string{"html", "htm", "xhtml", "text/html", "application/xhtml+xml"}
}

// Parse returns the visible text, one line per block element.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	text := StripHTML(string(content))
	if text == "" {
		return nil, domain.ErrEmptyContent
	}
	return &domain.ParseResult{
		Text:     text,
		Metadata: domain.ParseMetadata{ExtractionMethod: "html"},
	}, nil
}

// hidden elements contribute no text, including everything nested in them.
var hidden = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Noscript: true,
	atom.Svg: true, atom.Template: true, atom.Iframe: true,
}

// blocks start and end a line.
var blocks = map[atom.Atom]bool{
	atom.P: true, atom.Div: true, atom.Br: true, atom.Hr: true,
	atom.H1: true, atom.H2: true, atom.H3: true, atom.H4: true, atom.H5: true, atom.H6: true,
	atom.Li: true, atom.Tr: true, atom.Blockquote: true, atom.Pre: true, atom.Table: true,
	atom.Section: true, atom.Article: true, atom.Header: true, atom.Footer: true,
	atom.Main: true, atom.Nav: true, atom.Aside: true, atom.Dt: true, atom.Dd: true,
}

// StripHTML tokenises markup and keeps the text outside hidden elements.
// Entities are decoded, runs of whitespace collapse to one space and
// blank lines are dropped.
func StripHTML(content string) string {
	z := xhtml.NewTokenizer(strings.NewReader(content))
	var b strings.Builder
	depth := 0

	for {
		tt := z.Next()
		switch tt {
		case xhtml.ErrorToken:
			return tidy(b.String())

		case xhtml.TextToken:
			if depth == 0 {
				b.Write(z.Text())
			}

		case xhtml.StartTagToken, xhtml.SelfClosingTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case hidden[a]:
				if tt == xhtml.StartTagToken {
					depth++
				}
			case blocks[a]:
				b.WriteByte('\n')
			case a == atom.Td || a == atom.Th:
				b.WriteByte(' ')
			}

		case xhtml.EndTagToken:
			name, _ := z.TagName()
			a := atom.Lookup(name)
			switch {
			case hidden[a]:
				if depth > 0 {
					depth--
				}
			case blocks[a]:
				b.WriteByte('\n')
			}
		}
	}
}

func tidy(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if fields := strings.Fields(line); len(fields) > 0 {
			lines = append(lines, strings.Join(fields, " "))
		}
	}
	return strings.Join(lines, "\n")
}
