// Package eml parses RFC 822 email messages.
package eml

import (
	"bytes"
	"context"
	"encoding/base64"
	"io"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/mail"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/parsers/html"
)

// ID is the plugin identifier.
const ID = "eml"

// Ensure Parser implements the interface.
var _ driven.Parser = (*Parser)(nil)

// Parser handles EML (email) documents.
type Parser struct{}

// New creates a new EML parser.
func New() *Parser {
	return &Parser{}
}

// ID returns the plugin identifier.
func (p *Parser) ID() string {
	return ID
}

// SupportedFormats returns the formats this parser handles.
func (p *Parser) SupportedFormats() []string {
	return []string{"eml", "message/rfc822"}
}

// Parse renders the key headers followed by the message body.
// Plain text parts are preferred over HTML parts.
func (p *Parser) Parse(ctx context.Context, content []byte, _ string) (*domain.ParseResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	msg, err := mail.ReadMessage(bytes.NewReader(content))
	if err != nil {
		return nil, domain.NewParseError("invalid email message: " + err.Error())
	}

	body := extractBody(msg.Header.Get("Content-Type"), msg.Header.Get("Content-Transfer-Encoding"), msg.Body)
	if strings.TrimSpace(body) == "" {
		return nil, domain.ErrEmptyContent
	}

	var b strings.Builder
	for _, key := range []string{"From", "To", "Date", "Subject"} {
		if v := decodeHeader(msg.Header.Get(key)); v != "" {
			b.WriteString(key + ": " + v + "\n")
		}
	}
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(body))

	return &domain.ParseResult{
		Text:     strings.TrimSpace(b.String()),
		Metadata: domain.ParseMetadata{ExtractionMethod: "email"},
	}, nil
}

// decodeHeader decodes RFC 2047 encoded headers.
func decodeHeader(header string) string {
	if header == "" {
		return ""
	}
	dec := new(mime.WordDecoder)
	decoded, err := dec.DecodeHeader(header)
	if err != nil {
		return header
	}
	return decoded
}

func decodeTransfer(r io.Reader, encoding string) io.Reader {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "quoted-printable":
		return quotedprintable.NewReader(r)
	case "base64":
		return base64.NewDecoder(base64.StdEncoding, r)
	default:
		return r
	}
}

// extractBody returns the text of a message or part body.
func extractBody(contentType, transferEncoding string, r io.Reader) string {
	if contentType == "" {
		contentType = "text/plain"
	}

	mediaType, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = "text/plain"
	}

	if strings.HasPrefix(mediaType, "multipart/") {
		return extractMultipart(r, params["boundary"])
	}

	data, err := io.ReadAll(decodeTransfer(r, transferEncoding))
	if err != nil {
		return ""
	}

	switch mediaType {
	case "text/html":
		return html.StripHTML(string(data))
	case "text/plain":
		return string(data)
	default:
		return ""
	}
}

func extractMultipart(r io.Reader, boundary string) string {
	if boundary == "" {
		return ""
	}

	mr := multipart.NewReader(r, boundary)
	var textParts, htmlParts []string

	for {
		part, err := mr.NextPart()
		if err != nil {
			break
		}

		partType := part.Header.Get("Content-Type")
		mediaType, _, _ := mime.ParseMediaType(partType)
		// multipart.Part decodes quoted-printable itself and drops the header
		text := extractBody(partType, part.Header.Get("Content-Transfer-Encoding"), part)
		part.Close()

		if text == "" {
			continue
		}
		if mediaType == "text/html" {
			htmlParts = append(htmlParts, text)
		} else {
			textParts = append(textParts, text)
		}
	}

	if len(textParts) > 0 {
		return strings.Join(textParts, "\n")
	}
	return strings.Join(htmlParts, "\n")
}
