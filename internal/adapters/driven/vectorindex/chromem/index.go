// Package chromem provides a persistent vector index backed by an
// embedded chromem-go database.
package chromem

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"

	chromemgo "github.com/philippgille/chromem-go"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

// DefaultCollection is the collection holding chunk vectors.
const DefaultCollection = "chunks"

// Metadata keys stored with each vector.
const (
	metaDocumentID = "document_id"
	metaChunkIndex = "chunk_index"
	metaPage       = "page"
)

var errNoEmbedding = errors.New("chromem: vectors must be supplied by the caller")

// Config holds configuration for the chromem index.
type Config struct {
	// Path is the database directory. Empty keeps the index in memory.
	Path string

	// Dimensions is the vector size.
	Dimensions int

	// Compress gzips persisted documents.
	Compress bool

	// Collection overrides DefaultCollection.
	Collection string
}

// Index stores chunk vectors in a chromem collection.
//
// chromem has no multi-document transaction, so an upsert holds the
// write lock across its delete and add; searches take the read lock.
// A failed add puts the previous vectors back.
type Index struct {
	mu         sync.RWMutex
	db         *chromemgo.DB
	collection *chromemgo.Collection
	dims       int

	add func(ctx context.Context, docs []chromemgo.Document) error
}

// New opens or creates the database and collection.
func New(cfg Config) (*Index, error) {
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: vector dimensions must be positive", domain.ErrInvalidConfig)
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	var db *chromemgo.DB
	if cfg.Path == "" {
		db = chromemgo.NewDB()
	} else {
		if err := os.MkdirAll(cfg.Path, 0o700); err != nil {
			return nil, fmt.Errorf("%w: create chromem dir: %w", domain.ErrIndexUnavailable, err)
		}
		var err error
		db, err = chromemgo.NewPersistentDB(cfg.Path, cfg.Compress)
		if err != nil {
			return nil, fmt.Errorf("%w: open chromem db: %w", domain.ErrIndexUnavailable, err)
		}
	}

	collection, err := db.GetOrCreateCollection(cfg.Collection, nil, noEmbedding)
	if err != nil {
		return nil, fmt.Errorf("%w: collection %s: %w", domain.ErrIndexUnavailable, cfg.Collection, err)
	}

	idx := &Index{db: db, collection: collection, dims: cfg.Dimensions}
	idx.add = func(ctx context.Context, docs []chromemgo.Document) error {
		return collection.AddDocuments(ctx, docs, 1)
	}
	if err := idx.checkStoredDimensions(); err != nil {
		return nil, err
	}
	return idx, nil
}

func noEmbedding(_ context.Context, _ string) ([]float32, error) {
	return nil, errNoEmbedding
}

// checkStoredDimensions runs a one-result query so a persisted collection built with
// another vector size is rejected at startup.
func (i *Index) checkStoredDimensions() error {
	if i.collection.Count() == 0 {
		return nil
	}
	q := make([]float32, i.dims)
	q[0] = 1
	if _, err := i.collection.QueryEmbedding(context.Background(), q, 1, nil, nil); err != nil {
		return fmt.Errorf("%w: existing vectors do not match %d dimensions: %w",
			domain.ErrDimensionMismatch, i.dims, err)
	}
	return nil
}

// Upsert replaces every chunk of documentID.
func (i *Index) Upsert(ctx context.Context, documentID string, chunks []domain.IndexedChunk) error {
	if err := vectorindex.CheckDimensions(i.dims, chunks); err != nil {
		return err
	}

	docs := make([]chromemgo.Document, len(chunks))
	for n, c := range chunks {
		meta := map[string]string{
			metaDocumentID: documentID,
			metaChunkIndex: strconv.Itoa(c.Index),
		}
		if c.Page != nil {
			meta[metaPage] = strconv.Itoa(*c.Page)
		}
		vec := make([]float32, len(c.Vector))
		copy(vec, c.Vector)
		docs[n] = chromemgo.Document{
			ID:        domain.ChunkVectorID(documentID, c.Index),
			Metadata:  meta,
			Embedding: vec,
			Content:   c.Text,
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	previous, err := i.snapshotLocked(ctx, documentID)
	if err != nil {
		return err
	}
	if err := i.deleteLocked(ctx, documentID); err != nil {
		return err
	}
	if len(docs) == 0 {
		return nil
	}
	if err := i.add(ctx, docs); err != nil {
		if rerr := i.restoreLocked(ctx, documentID, previous); rerr != nil {
			return fmt.Errorf("%w: add vectors: %w (restoring previous vectors: %v)",
				domain.ErrIndexUnavailable, err, rerr)
		}
		return fmt.Errorf("%w: add vectors: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// snapshotLocked returns the stored vectors of documentID.
func (i *Index) snapshotLocked(ctx context.Context, documentID string) ([]chromemgo.Document, error) {
	count := i.collection.Count()
	if count == 0 {
		return nil, nil
	}
	q := make([]float32, i.dims)
	q[0] = 1
	results, err := i.collection.QueryEmbedding(ctx, q, count, map[string]string{metaDocumentID: documentID}, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: read vectors: %w", domain.ErrIndexUnavailable, err)
	}
	docs := make([]chromemgo.Document, len(results))
	for n, r := range results {
		docs[n] = chromemgo.Document{
			ID:        r.ID,
			Metadata:  r.Metadata,
			Embedding: r.Embedding,
			Content:   r.Content,
		}
	}
	return docs, nil
}

// restoreLocked clears a partial add and re-adds the previous vectors.
func (i *Index) restoreLocked(ctx context.Context, documentID string, previous []chromemgo.Document) error {
	ctx = context.WithoutCancel(ctx)
	if err := i.deleteLocked(ctx, documentID); err != nil {
		return err
	}
	if len(previous) == 0 {
		return nil
	}
	return i.collection.AddDocuments(ctx, previous, 1)
}

// Delete removes every chunk of documentID.
func (i *Index) Delete(ctx context.Context, documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.deleteLocked(ctx, documentID)
}

func (i *Index) deleteLocked(ctx context.Context, documentID string) error {
	if i.collection.Count() == 0 {
		return nil
	}
	where := map[string]string{metaDocumentID: documentID}
	if err := i.collection.Delete(ctx, where, nil); err != nil {
		return fmt.Errorf("%w: delete vectors: %w", domain.ErrIndexUnavailable, err)
	}
	return nil
}

// Search queries the collection once, or once per filtered document, and
// merges the results.
func (i *Index) Search(ctx context.Context, query []float32, topK int, filter []string) ([]domain.SearchHit, error) {
	if err := vectorindex.CheckQuery(i.dims, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	i.mu.RLock()
	defer i.mu.RUnlock()

	count := i.collection.Count()
	if count == 0 {
		return []domain.SearchHit{}, nil
	}
	// chromem requires nResults <= document count.
	n := min(topK, count)

	var hits []domain.SearchHit
	if len(filter) == 0 {
		res, err := i.query(ctx, query, n, nil)
		if err != nil {
			return nil, err
		}
		hits = res
	} else {
		for _, id := range dedupe(filter) {
			res, err := i.query(ctx, query, n, map[string]string{metaDocumentID: id})
			if err != nil {
				return nil, err
			}
			hits = append(hits, res...)
		}
	}

	return vectorindex.TopK(hits, topK), nil
}

func (i *Index) query(ctx context.Context, q []float32, n int, where map[string]string) ([]domain.SearchHit, error) {
	results, err := i.collection.QueryEmbedding(ctx, q, n, where, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: query: %w", domain.ErrIndexUnavailable, err)
	}

	hits := make([]domain.SearchHit, 0, len(results))
	for _, r := range results {
		index, err := strconv.Atoi(r.Metadata[metaChunkIndex])
		if err != nil {
			return nil, fmt.Errorf("chromem: vector %s has bad chunk index: %w", r.ID, err)
		}
		hit := domain.SearchHit{
			DocumentID: r.Metadata[metaDocumentID],
			ChunkIndex: index,
			Score:      float64(r.Similarity),
			Text:       r.Content,
		}
		if p, err := strconv.Atoi(r.Metadata[metaPage]); err == nil {
			hit.Page = domain.IntPtr(p)
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

func dedupe(ids []string) []string {
	seen := vectorindex.FilterSet(ids)
	out := make([]string, 0, len(seen))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			out = append(out, id)
			delete(seen, id)
		}
	}
	return out
}

// Count returns the number of indexed chunks.
func (i *Index) Count(_ context.Context) (int, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.collection.Count(), nil
}

// Dimensions returns the vector size.
func (i *Index) Dimensions() int {
	return i.dims
}

// Close releases the database. Persistent writes are flushed on each add.
func (i *Index) Close() error {
	return nil
}
