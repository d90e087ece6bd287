// Package memory provides an in-process vector index.
//
// Readers search an immutable snapshot. Writers copy the snapshot,
// apply their change and publish the copy, so a search observes either
// every chunk of a document upsert or none of it.
package memory

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vectorindex"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Index implements the interface.
var _ driven.VectorIndex = (*Index)(nil)

type entry struct {
	index  int
	vector []float32
	norm   float64
	text   string
	page   *int
}

type snapshot struct {
	docs  map[string][]entry
	count int
}

// Index is a brute-force cosine similarity index.
type Index struct {
	dims int

	mu   sync.Mutex // serialises writers
	snap atomic.Pointer[snapshot]
}

// New creates an empty index for vectors of dims components.
func New(dims int) (*Index, error) {
	if dims <= 0 {
		return nil, fmt.Errorf("%w: vector dimensions must be positive", domain.ErrInvalidConfig)
	}
	idx := &Index{dims: dims}
	idx.snap.Store(&snapshot{docs: map[string][]entry{}})
	return idx, nil
}

// Upsert replaces every chunk of documentID.
func (i *Index) Upsert(_ context.Context, documentID string, chunks []domain.IndexedChunk) error {
	if err := vectorindex.CheckDimensions(i.dims, chunks); err != nil {
		return err
	}

	entries := make([]entry, len(chunks))
	for n, c := range chunks {
		vec := make([]float32, len(c.Vector))
		copy(vec, c.Vector)
		entries[n] = entry{
			index:  c.Index,
			vector: vec,
			norm:   norm(vec),
			text:   c.Text,
			page:   c.Page,
		}
	}

	i.mu.Lock()
	defer i.mu.Unlock()

	i.publish(documentID, entries)
	return nil
}

// Delete removes every chunk of documentID.
func (i *Index) Delete(_ context.Context, documentID string) error {
	i.mu.Lock()
	defer i.mu.Unlock()

	if _, ok := i.snap.Load().docs[documentID]; !ok {
		return nil
	}
	i.publish(documentID, nil)
	return nil
}

// publish swaps in a copy of the current snapshot with documentID set
// to entries. Callers hold mu.
func (i *Index) publish(documentID string, entries []entry) {
	old := i.snap.Load()
	next := &snapshot{
		docs:  make(map[string][]entry, len(old.docs)+1),
		count: old.count - len(old.docs[documentID]) + len(entries),
	}
	for id, e := range old.docs {
		next.docs[id] = e
	}
	if len(entries) == 0 {
		delete(next.docs, documentID)
	} else {
		next.docs[documentID] = entries
	}
	i.snap.Store(next)
}

// Search ranks every chunk, or the chunks of the filtered documents, by
// cosine similarity.
func (i *Index) Search(ctx context.Context, query []float32, topK int, filter []string) ([]domain.SearchHit, error) {
	if err := vectorindex.CheckQuery(i.dims, query); err != nil {
		return nil, err
	}
	if topK <= 0 {
		return []domain.SearchHit{}, nil
	}

	snap := i.snap.Load()
	allowed := vectorindex.FilterSet(filter)
	qnorm := norm(query)

	hits := make([]domain.SearchHit, 0, min(snap.count, topK*4))
	for docID, entries := range snap.docs {
		if allowed != nil {
			if _, ok := allowed[docID]; !ok {
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, e := range entries {
			hits = append(hits, domain.SearchHit{
				DocumentID: docID,
				ChunkIndex: e.index,
				Score:      cosine(query, qnorm, e.vector, e.norm),
				Text:       e.text,
				Page:       e.page,
			})
		}
	}

	return vectorindex.TopK(hits, topK), nil
}

// Count returns the number of indexed chunks.
func (i *Index) Count(_ context.Context) (int, error) {
	return i.snap.Load().count, nil
}

// Dimensions returns the vector size.
func (i *Index) Dimensions() int {
	return i.dims
}

// Close is a no-op.
func (i *Index) Close() error {
	return nil
}

func norm(v []float32) float64 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	return math.Sqrt(sum)
}

func cosine(a []float32, anorm float64, b []float32, bnorm float64) float64 {
	if anorm == 0 || bnorm == 0 {
		return 0
	}
	var dot float64
	for n := range a {
		dot += float64(a[n]) * float64(b[n])
	}
	return dot / (anorm * bnorm)
}
