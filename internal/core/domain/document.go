package domain

import (
	"fmt"
	"time"
)

// Status is the processing state of a document.
type Status string

// Document processing states.
const (
	// StatusPending means the upload was accepted and awaits a worker.
	StatusPending Status = "pending"

	// StatusProcessing means a worker has claimed the document.
	StatusProcessing Status = "processing"

	// StatusCompleted means the document is parsed, chunked and indexed.
	StatusCompleted Status = "completed"

	// StatusFailed means processing stopped on a non-retriable error.
	StatusFailed Status = "failed"
)

// IsValid returns true if the status is recognised.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed:
		return true
	default:
		return false
	}
}

// IsTerminal returns true for completed and failed.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// String returns the string representation.
func (s Status) String() string {
	return string(s)
}

// CanTransition reports whether a document in status s may move to next.
//
// processing may fall back to pending only through the stale-claim reset;
// terminal states re-enter pending only through an explicit resubmission.
func (s Status) CanTransition(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted || next == StatusFailed || next == StatusPending
	case StatusCompleted, StatusFailed:
		return next == StatusPending
	default:
		return false
	}
}

// Metadata keys written by the ingestion pipeline.
const (
	MetaPageCount        = "page_count"
	MetaExtractionMethod = "extraction_method"
	MetaWarnings         = "warnings"
	MetaMIMEType         = "mime_type"
)

// Document is an uploaded file and its processing lifecycle.
type Document struct {
	// ID is the unique identifier.
	ID string

	// Name is the original file name.
	Name string

	// StoragePath is where the uploaded bytes are kept.
	StoragePath string

	// ContentHash is the hex SHA-256 of the uploaded bytes. Set once, never mutated.
	ContentHash string

	// Format is the declared lowercase format identifier (e.g. "pdf").
	Format string

	// SizeBytes is the upload size.
	SizeBytes int64

	// Status is the processing state.
	Status Status

	// ParserID is the parser plugin selected for this document.
	ParserID string

	// ErrorMessage records why processing failed. Empty unless Status is failed.
	ErrorMessage string

	// Metadata holds extraction details and caller-supplied attributes.
	Metadata map[string]any

	// RawText is the cached extracted text.
	RawText string

	// Summary is the most recently generated summary.
	Summary string

	// ChunkCount is the number of indexed chunks.
	ChunkCount int

	// ProcessingStartedAt is set when a worker claims the document.
	ProcessingStartedAt *time.Time

	// CreatedAt is when the upload was accepted.
	CreatedAt time.Time

	// UpdatedAt is when the document last changed.
	UpdatedAt time.Time
}

// DocumentRef is returned when an upload is accepted.
type DocumentRef struct {
	ID     string
	Status Status

	// Duplicate is true when the upload matched an existing document by hash
	// and no new document was created.
	Duplicate bool
}

// Chunk is a contiguous slice of a document's extracted text.
type Chunk struct {
	// DocumentID links to the owning document.
	DocumentID string

	// Index is the zero-based position within the document.
	Index int

	// Content is the chunk text.
	Content string

	// Start and End are rune offsets into the document text.
	Start int
	End   int

	// Page is the 1-based source page, when known.
	Page *int

	// VectorID identifies the chunk in the vector index.
	VectorID string
}

// ChunkVectorID returns the vector index identifier for a chunk.
func ChunkVectorID(documentID string, index int) string {
	return fmt.Sprintf("%s:%d", documentID, index)
}

// TextSpan is a chunker output window.
type TextSpan struct {
	Index int
	Text  string
	Start int
	End   int
}

// IndexedChunk is a chunk ready to be written to the vector index.
type IndexedChunk struct {
	Index  int
	Vector []float32
	Text   string
	Page   *int
}

// ListFilter narrows document listings.
type ListFilter struct {
	// Status restricts results to one state. Empty means all.
	Status Status
}

// CompletedUpdate carries the results written when processing succeeds.
type CompletedUpdate struct {
	ParserID   string
	RawText    string
	Metadata   map[string]any
	ChunkCount int
}
