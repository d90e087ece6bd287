package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// IngestRequest is an upload submitted for processing.
type IngestRequest struct {
	// Name is the original file name.
	Name string

	// Format overrides the format inferred from Name's extension.
	Format string

	// ParserID forces a specific parser plugin.
	ParserID string

	// Content is the uploaded bytes.
	Content []byte

	// Metadata contains caller-supplied attributes stored with the document.
	Metadata map[string]any
}

// IngestService accepts uploads and drives them through processing.
type IngestService interface {
	// Ingest validates and stores an upload, then queues it for processing.
	// Unsupported formats are rejected before anything is stored.
	Ingest(ctx context.Context, req IngestRequest) (*domain.DocumentRef, error)

	// Process runs one pending document through the pipeline.
	// Losing the claim to another worker is not an error.
	Process(ctx context.Context, documentID string) error

	// Start launches the worker pool, poller, and stale-claim sweeper.
	Start(ctx context.Context) error

	// Stop drains the workers and waits for them to exit.
	Stop()
}
