package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// Ensure DocumentService implements the interface.
var _ driving.DocumentService = (*DocumentService)(nil)

// Resubmitter sends a document back through processing.
// Implemented by IngestionPipeline.
type Resubmitter interface {
	Resubmit(ctx context.Context, documentID string) error
}

// DocumentService manages stored documents.
type DocumentService struct {
	store     driven.DocumentStore
	files     driven.FileStore
	index     driven.VectorIndex
	resubmits Resubmitter
}

// NewDocumentService creates a new document service.
func NewDocumentService(
	store driven.DocumentStore,
	files driven.FileStore,
	index driven.VectorIndex,
	resubmits Resubmitter,
) *DocumentService {
	return &DocumentService{
		store:     store,
		files:     files,
		index:     index,
		resubmits: resubmits,
	}
}

// Get retrieves a document by ID.
func (s *DocumentService) Get(ctx context.Context, documentID string) (*domain.Document, error) {
	return s.store.Get(ctx, documentID)
}

// List returns documents, newest first.
func (s *DocumentService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidInput, filter.Status)
	}
	return s.store.List(ctx, filter)
}

// GetContent returns the extracted text. Documents without cached text
// are rebuilt from their chunks.
func (s *DocumentService) GetContent(ctx context.Context, documentID string) (string, error) {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return "", err
	}
	if doc.RawText != "" {
		return doc.RawText, nil
	}

	chunks, err := s.store.GetChunks(ctx, documentID)
	if err != nil {
		return "", err
	}
	return joinChunks(chunks), nil
}

// GetChunks returns the document's chunks in index order.
func (s *DocumentService) GetChunks(ctx context.Context, documentID string) ([]domain.Chunk, error) {
	if _, err := s.store.Get(ctx, documentID); err != nil {
		return nil, err
	}
	return s.store.GetChunks(ctx, documentID)
}

// Delete removes the record first, so a worker still processing the
// document fails its final transition and discards what it indexed. Chunk
// rows go with the record. Vectors and the stored file follow.
func (s *DocumentService) Delete(ctx context.Context, documentID string) error {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, documentID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}

	if s.index != nil {
		if err := s.index.Delete(ctx, documentID); err != nil {
			return fmt.Errorf("delete vectors: %w", err)
		}
	}
	if s.files != nil && doc.StoragePath != "" {
		if err := s.files.Remove(ctx, doc.StoragePath); err != nil {
			return fmt.Errorf("delete file: %w", err)
		}
	}

	logger.Info("deleted document %s (%s)", documentID, doc.Name)
	return nil
}

// Resubmit sends a completed or failed document back through processing.
func (s *DocumentService) Resubmit(ctx context.Context, documentID string) error {
	if s.resubmits == nil {
		return domain.ErrNotImplemented
	}
	return s.resubmits.Resubmit(ctx, documentID)
}

// joinChunks rebuilds text from chunks in index order, dropping the
// overlap each chunk shares with the one before it.
func joinChunks(chunks []domain.Chunk) string {
	var b strings.Builder
	end := 0
	for i, c := range chunks {
		runes := []rune(c.Content)
		switch {
		case i == 0:
		case c.End <= c.Start:
			b.WriteString("\n")
		case c.Start < end:
			runes = runes[min(end-c.Start, len(runes)):]
		case c.Start > end:
			b.WriteString(" ")
		}
		b.WriteString(string(runes))
		end = max(end, c.End)
	}
	return b.String()
}
