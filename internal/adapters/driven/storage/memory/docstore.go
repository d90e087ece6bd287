// Package memory provides an in-memory DocumentStore for tests and
// ephemeral runs.
package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure DocumentStore implements the interface.
var _ driven.DocumentStore = (*DocumentStore)(nil)

// DocumentStore is an in-memory implementation of driven.DocumentStore.
type DocumentStore struct {
	mu        sync.RWMutex
	documents map[string]domain.Document
	chunks    map[string][]domain.Chunk
	now       func() time.Time
}

// NewDocumentStore creates a new in-memory document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{
		documents: make(map[string]domain.Document),
		chunks:    make(map[string][]domain.Chunk),
		now:       time.Now,
	}
}

// Create stores a new document.
func (s *DocumentStore) Create(_ context.Context, doc *domain.Document) error {
	if doc.ID == "" {
		return fmt.Errorf("%w: document ID is required", domain.ErrInvalidInput)
	}
	if !doc.Status.IsValid() {
		return fmt.Errorf("%w: status %q", domain.ErrInvalidInput, doc.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[doc.ID]; ok {
		return fmt.Errorf("%w: document %s already exists", domain.ErrInvalidInput, doc.ID)
	}
	s.documents[doc.ID] = clone(*doc)
	return nil
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.documents[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	doc = clone(doc)
	return &doc, nil
}

// List returns documents newest first.
func (s *DocumentStore) List(_ context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	result := []domain.Document{}
	for id := range s.documents {
		doc := s.documents[id]
		if filter.Status != "" && doc.Status != filter.Status {
			continue
		}
		result = append(result, clone(doc))
	}
	sortNewestFirst(result)
	return result, nil
}

// FindByHash returns the newest document with the given content hash.
func (s *DocumentStore) FindByHash(_ context.Context, hash string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var matches []domain.Document
	for id := range s.documents {
		if s.documents[id].ContentHash == hash {
			matches = append(matches, s.documents[id])
		}
	}
	if len(matches) == 0 {
		return nil, domain.ErrNotFound
	}
	sortNewestFirst(matches)
	doc := clone(matches[0])
	return &doc, nil
}

// Delete removes a document and its chunks.
func (s *DocumentStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[id]; !ok {
		return domain.ErrNotFound
	}
	delete(s.documents, id)
	delete(s.chunks, id)
	return nil
}

// SaveSummary records the latest generated summary.
func (s *DocumentStore) SaveSummary(_ context.Context, id, summary string) error {
	return s.update(id, func(doc *domain.Document) error {
		doc.Summary = summary
		return nil
	})
}

// Claim moves a pending document to processing.
func (s *DocumentStore) Claim(_ context.Context, id string, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if doc.Status != domain.StatusPending {
		return false, nil
	}
	doc.Status = domain.StatusProcessing
	doc.ProcessingStartedAt = &now
	doc.UpdatedAt = now
	s.documents[id] = doc
	return true, nil
}

// Complete moves a processing document to completed.
func (s *DocumentStore) Complete(_ context.Context, id string, update domain.CompletedUpdate) error {
	return s.transition(id, domain.StatusCompleted, func(doc *domain.Document) {
		doc.ParserID = update.ParserID
		doc.RawText = update.RawText
		doc.Metadata = maps.Clone(update.Metadata)
		doc.ChunkCount = update.ChunkCount
		doc.ErrorMessage = ""
	})
}

// Fail moves a processing document to failed.
func (s *DocumentStore) Fail(_ context.Context, id, message string) error {
	return s.transition(id, domain.StatusFailed, func(doc *domain.Document) {
		doc.ErrorMessage = message
	})
}

// Resubmit moves a completed or failed document back to pending.
func (s *DocumentStore) Resubmit(_ context.Context, id string) error {
	return s.update(id, func(doc *domain.Document) error {
		if !doc.Status.IsTerminal() {
			return domain.ErrInvalidTransition
		}
		doc.Status = domain.StatusPending
		doc.ErrorMessage = ""
		doc.ProcessingStartedAt = nil
		return nil
	})
}

// ResetStale moves documents claimed before cutoff back to pending.
func (s *DocumentStore) ResetStale(_ context.Context, cutoff time.Time) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var ids []string
	for id := range s.documents {
		doc := s.documents[id]
		if doc.Status != domain.StatusProcessing || doc.ProcessingStartedAt == nil {
			continue
		}
		if !doc.ProcessingStartedAt.Before(cutoff) {
			continue
		}
		doc.Status = domain.StatusPending
		doc.ProcessingStartedAt = nil
		doc.UpdatedAt = s.now()
		s.documents[id] = doc
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ReplaceChunks replaces every chunk of a document.
func (s *DocumentStore) ReplaceChunks(_ context.Context, documentID string, chunks []domain.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.documents[documentID]; !ok {
		return domain.ErrNotFound
	}
	seen := make(map[int]struct{}, len(chunks))
	for _, chunk := range chunks {
		if _, dup := seen[chunk.Index]; dup {
			return fmt.Errorf("%w: duplicate chunk index %d", domain.ErrInvalidInput, chunk.Index)
		}
		seen[chunk.Index] = struct{}{}
	}
	s.chunks[documentID] = sortedChunks(chunks)
	return nil
}

// GetChunks retrieves all chunks for a document in index order.
func (s *DocumentStore) GetChunks(_ context.Context, documentID string) ([]domain.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	chunks, ok := s.chunks[documentID]
	if !ok {
		return []domain.Chunk{}, nil
	}
	return append([]domain.Chunk(nil), chunks...), nil
}

// transition applies a processing -> next change.
func (s *DocumentStore) transition(id string, next domain.Status, apply func(*domain.Document)) error {
	return s.update(id, func(doc *domain.Document) error {
		if doc.Status != domain.StatusProcessing {
			return domain.ErrInvalidTransition
		}
		apply(doc)
		doc.Status = next
		doc.ProcessingStartedAt = nil
		return nil
	})
}

func (s *DocumentStore) update(id string, fn func(*domain.Document) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.documents[id]
	if !ok {
		return domain.ErrNotFound
	}
	if err := fn(&doc); err != nil {
		return err
	}
	doc.UpdatedAt = s.now()
	s.documents[id] = doc
	return nil
}

func clone(doc domain.Document) domain.Document {
	doc.Metadata = maps.Clone(doc.Metadata)
	if doc.ProcessingStartedAt != nil {
		t := *doc.ProcessingStartedAt
		doc.ProcessingStartedAt = &t
	}
	return doc
}

func sortNewestFirst(docs []domain.Document) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].CreatedAt.Equal(docs[j].CreatedAt) {
			return docs[i].CreatedAt.After(docs[j].CreatedAt)
		}
		return docs[i].ID > docs[j].ID
	})
}

func sortedChunks(chunks []domain.Chunk) []domain.Chunk {
	out := append([]domain.Chunk(nil), chunks...)
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}
