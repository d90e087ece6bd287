package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// DocumentStore persists documents, their chunks, and lifecycle state.
// Backed by SQLite for durable storage.
//
// Lifecycle methods enforce domain.Status.CanTransition and return
// domain.ErrInvalidTransition otherwise. Unknown IDs return domain.ErrNotFound.
type DocumentStore interface {
	// Create stores a new document.
	Create(ctx context.Context, doc *domain.Document) error

	// Get retrieves a document by ID.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// List returns documents ordered by creation time, newest first.
	List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error)

	// FindByHash returns the newest document with the given content hash.
	FindByHash(ctx context.Context, hash string) (*domain.Document, error)

	// Delete removes a document and its chunks.
	Delete(ctx context.Context, id string) error

	// Claim atomically moves a document from pending to processing.
	// Exactly one concurrent caller observes true.
	Claim(ctx context.Context, id string, now time.Time) (bool, error)

	// Complete moves a processing document to completed.
	Complete(ctx context.Context, id string, update domain.CompletedUpdate) error

	// Fail moves a processing document to failed with a reason.
	Fail(ctx context.Context, id, message string) error

	// Resubmit moves a completed or failed document back to pending
	// and clears the error message.
	Resubmit(ctx context.Context, id string) error

	// ResetStale moves documents stuck in processing since before cutoff
	// back to pending and returns their IDs.
	ResetStale(ctx context.Context, cutoff time.Time) ([]string, error)

	// ReplaceChunks atomically replaces every chunk of a document.
	ReplaceChunks(ctx context.Context, documentID string, chunks []domain.Chunk) error

	// GetChunks retrieves all chunks for a document in index order.
	GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error)

	// SaveSummary records the latest generated summary.
	SaveSummary(ctx context.Context, id, summary string) error
}
