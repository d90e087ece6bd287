package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// DocumentService manages uploaded documents.
type DocumentService interface {
	// Get retrieves a document by ID.
	Get(ctx context.Context, documentID string) (*domain.Document, error)

	// List returns documents matching the filter.
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error)

	// GetContent returns the extracted text, falling back to the
	// concatenated chunk content.
	GetContent(ctx context.Context, documentID string) (string, error)

	// GetChunks returns the document's chunks in index order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// Delete removes the document's vectors, chunks, file, and record.
	Delete(ctx context.Context, documentID string) error

	// Resubmit sends a completed or failed document back through processing.
	Resubmit(ctx context.Context, documentID string) error
}
