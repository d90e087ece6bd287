package domain

import (
	"path/filepath"
	"sort"
	"strings"
)

// RawDocument represents the uploaded bytes before parsing.
type RawDocument struct {
	// Name is the original file name.
	Name string

	// Format is the declared format identifier. Empty means infer from Name.
	Format string

	// Content is the raw bytes.
	Content []byte

	// ParserID forces a specific parser plugin when set.
	ParserID string

	// Metadata contains caller-supplied key-value pairs.
	Metadata map[string]any
}

// NormaliseFormat lowercases a format identifier and strips a leading dot.
func NormaliseFormat(format string) string {
	return strings.TrimPrefix(strings.ToLower(strings.TrimSpace(format)), ".")
}

// ResolvedFormat returns the declared format, falling back to the file extension.
func (r *RawDocument) ResolvedFormat() string {
	if f := NormaliseFormat(r.Format); f != "" {
		return f
	}
	return NormaliseFormat(filepath.Ext(r.Name))
}

// ParseMetadata describes how text was extracted.
type ParseMetadata struct {
	// PageCount is set when the format has pages.
	PageCount *int

	// ExtractionMethod names the technique used (e.g. "pdf-text", "ocr").
	ExtractionMethod string

	// Warnings lists non-fatal extraction problems.
	Warnings []string
}

// ParseResult is a parser plugin's output.
type ParseResult struct {
	// Text is the extracted plain text.
	Text string

	// PageOffsets holds the rune offset where each page starts, when known.
	PageOffsets []int

	Metadata ParseMetadata
}

// PageAt returns the 1-based page containing rune offset pos, or nil
// when page boundaries are unknown.
func (r *ParseResult) PageAt(pos int) *int {
	if len(r.PageOffsets) == 0 {
		return nil
	}
	page := 1
	for i, off := range r.PageOffsets {
		if off > pos {
			break
		}
		page = i + 1
	}
	return &page
}

// Reflow returns a copy of r for processed, a cleaned form of r.Text, with
// page offsets moved to index processed. Cleaning may only delete runes,
// fold '\r' into '\n' and cut the tail. A page whose first rune was
// deleted starts at the next surviving rune. When processed cannot be
// derived from r.Text that way, page offsets are dropped and ok is false.
func (r *ParseResult) Reflow(processed string) (out ParseResult, ok bool) {
	out = ParseResult{Text: processed, Metadata: r.Metadata}
	if len(r.PageOffsets) == 0 {
		return out, true
	}

	// origin[i] is the rune offset in r.Text that processed rune i came from.
	original := []rune(r.Text)
	origin := make([]int, 0, len(processed))
	j := 0
	for _, c := range processed {
		for j < len(original) && !sameRune(original[j], c) {
			j++
		}
		if j == len(original) {
			return out, false
		}
		origin = append(origin, j)
		j++
	}

	out.PageOffsets = make([]int, len(r.PageOffsets))
	for n, off := range r.PageOffsets {
		out.PageOffsets[n] = sort.SearchInts(origin, off)
	}
	return out, true
}

func sameRune(original, processed rune) bool {
	return original == processed || (original == '\r' && processed == '\n')
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}
