package domain

import (
	"sort"
	"strings"
	"time"
	"unicode"
)

// Retrieval limits.
const (
	// DefaultTopK is used when a query does not specify a result count.
	DefaultTopK = 5

	// MaxTopK is the largest accepted result count.
	MaxTopK = 50

	// ExcerptLength is the maximum excerpt size in runes.
	ExcerptLength = 200
)

// NoInformationAnswer is returned when nothing relevant was retrieved and
// the model produced no text of its own.
const NoInformationAnswer = "I could not find any relevant information in the indexed documents to answer this question."

// SearchHit is a single vector index match.
type SearchHit struct {
	// DocumentID is the owning document.
	DocumentID string

	// ChunkIndex is the chunk position within the document.
	ChunkIndex int

	// Score is the similarity, higher is better.
	Score float64

	// Text is the chunk text stored alongside the vector.
	Text string

	// Page is the source page, when known.
	Page *int
}

// SortHits orders hits by score descending, then lower chunk index,
// then lower document ID.
func SortHits(hits []SearchHit) {
	sort.SliceStable(hits, func(i, j int) bool {
		return hitLess(hits[i], hits[j])
	})
}

func hitLess(a, b SearchHit) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.ChunkIndex != b.ChunkIndex {
		return a.ChunkIndex < b.ChunkIndex
	}
	return a.DocumentID < b.DocumentID
}

// Source is a retrieved passage with attribution.
type Source struct {
	DocumentID   string
	DocumentName string
	ChunkIndex   int
	Page         *int
	Score        float64
	Text         string
	Excerpt      string
}

// QueryRequest configures a retrieval or question.
type QueryRequest struct {
	// Query is the natural-language question.
	Query string

	// TopK is the maximum number of sources. Zero selects DefaultTopK.
	TopK int

	// DocumentIDs restricts retrieval to these documents when non-empty.
	DocumentIDs []string

	// MaxPerDocument caps the chunks contributed by one document. Zero means unlimited.
	MaxPerDocument int
}

// QueryResult is the answer to a query. It is not persisted.
type QueryResult struct {
	Query   string
	Answer  string
	Sources []Source

	// HasSources is false when nothing relevant was retrieved and the answer
	// came from the no-information prompt.
	HasSources bool

	ProcessingTime time.Duration
}

// Summary is a generated document summary.
type Summary struct {
	DocumentID string
	Summary    string
	KeyPoints  []string
}

// Excerpt returns at most n runes of text, cut at a word boundary when possible.
func Excerpt(text string, n int) string {
	text = strings.TrimSpace(text)
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	cut := runes[:n]
	for i := n - 1; i > n/2; i-- {
		if unicode.IsSpace(cut[i]) {
			cut = cut[:i]
			break
		}
	}
	return strings.TrimSpace(string(cut)) + "..."
}
