// Package fitzdoc opens paginated documents (PDF, EPUB) with MuPDF via go-fitz.
package fitzdoc

import (
	"strings"

	"github.com/gen2brain/go-fitz"
)

// Document is the subset of a MuPDF document the parsers use.
// *fitz.Document satisfies it.
type Document interface {
	NumPage() int
	Text(page int) (string, error)
	ImagePNG(page int, dpi float64) ([]byte, error)
	Close() error
}

// Opener opens document bytes.
type Opener func(content []byte) (Document, error)

// Open loads content with MuPDF. The format is sniffed from the bytes.
func Open(content []byte) (Document, error) {
	doc, err := fitz.NewFromMemory(content)
	if err != nil {
		return nil, err
	}
	return doc, nil
}

// Page is the text of one layout page.
type Page struct {
	Number int
	Text   string
}

// Join concatenates page texts separated by blank lines and returns the
// rune offset at which each page starts.
func Join(pages []Page) (string, []int) {
	var b strings.Builder
	offsets := make([]int, 0, len(pages))
	pos := 0
	for i, p := range pages {
		if i > 0 {
			b.WriteString("\n\n")
			pos += 2
		}
		offsets = append(offsets, pos)
		b.WriteString(p.Text)
		pos += len([]rune(p.Text))
	}
	return b.String(), offsets
}
