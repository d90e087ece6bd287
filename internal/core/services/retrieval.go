package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// overfetchFactor widens the index search when skipped hits leave fewer
// than topK sources.
const overfetchFactor = 3

// RetrievalEngine embeds a query and turns vector hits into attributed sources.
type RetrievalEngine struct {
	store    driven.DocumentStore
	embedder driven.EmbeddingService
	index    driven.VectorIndex
}

// NewRetrievalEngine creates a retrieval engine.
func NewRetrievalEngine(store driven.DocumentStore, embedder driven.EmbeddingService, index driven.VectorIndex) *RetrievalEngine {
	return &RetrievalEngine{
		store:    store,
		embedder: embedder,
		index:    index,
	}
}

// Retrieve returns up to TopK sources ranked by similarity.
// An empty result is not an error.
func (r *RetrievalEngine) Retrieve(ctx context.Context, req domain.QueryRequest) ([]domain.Source, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, fmt.Errorf("%w: query is empty", domain.ErrInvalidInput)
	}
	topK := clampTopK(req.TopK)

	vectors, err := r.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %w", domain.ErrRetrievalFailed, err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: embedding service returned %d vectors for one query",
			domain.ErrRetrievalFailed, len(vectors))
	}

	fetch := topK
	if req.MaxPerDocument > 0 {
		fetch = topK * overfetchFactor
	}

	// Hits of deleted documents and hits over the per-document cap are
	// skipped, so the search widens until topK sources are found or the
	// index has nothing more to return.
	names := make(map[string]string)
	for {
		hits, err := r.index.Search(ctx, vectors[0], fetch, req.DocumentIDs)
		if err != nil {
			return nil, fmt.Errorf("%w: search index: %w", domain.ErrRetrievalFailed, err)
		}
		logger.Debug("retrieval: %d hit(s) for %q", len(hits), query)

		sources, err := r.collect(ctx, hits, names, topK, req.MaxPerDocument)
		if err != nil {
			return nil, err
		}
		if len(sources) == topK || len(hits) < fetch {
			return sources, nil
		}
		fetch *= overfetchFactor
	}
}

// collect converts ranked hits into at most topK sources, skipping deleted
// documents and hits over maxPerDoc.
func (r *RetrievalEngine) collect(
	ctx context.Context,
	hits []domain.SearchHit,
	names map[string]string,
	topK, maxPerDoc int,
) ([]domain.Source, error) {
	perDoc := make(map[string]int)
	sources := make([]domain.Source, 0, min(len(hits), topK))

	for _, hit := range hits {
		if len(sources) == topK {
			break
		}
		if maxPerDoc > 0 && perDoc[hit.DocumentID] >= maxPerDoc {
			continue
		}

		name, ok, err := r.documentName(ctx, names, hit.DocumentID)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrRetrievalFailed, err)
		}
		if !ok {
			continue
		}

		perDoc[hit.DocumentID]++
		sources = append(sources, domain.Source{
			DocumentID:   hit.DocumentID,
			DocumentName: name,
			ChunkIndex:   hit.ChunkIndex,
			Page:         hit.Page,
			Score:        hit.Score,
			Text:         hit.Text,
			Excerpt:      domain.Excerpt(hit.Text, domain.ExcerptLength),
		})
	}
	return sources, nil
}

// documentName looks a name up once per call. Documents deleted since
// they were indexed report ok=false.
func (r *RetrievalEngine) documentName(ctx context.Context, cache map[string]string, id string) (string, bool, error) {
	if name, ok := cache[id]; ok {
		return name, name != "", nil
	}

	doc, err := r.store.Get(ctx, id)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		logger.Debug("retrieval: dropping hits of deleted document %s", id)
		cache[id] = ""
		return "", false, nil
	case err != nil:
		return "", false, fmt.Errorf("load document %s: %w", id, err)
	}

	name := doc.Name
	if name == "" {
		name = doc.ID
	}
	cache[id] = name
	return name, true, nil
}

// clampTopK applies the default and the upper bound.
func clampTopK(k int) int {
	switch {
	case k <= 0:
		return domain.DefaultTopK
	case k > domain.MaxTopK:
		return domain.MaxTopK
	default:
		return k
	}
}
