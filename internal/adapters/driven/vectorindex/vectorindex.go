package vectorindex

import (
	"fmt"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// CheckDimensions fails with domain.ErrDimensionMismatch when any chunk
// vector does not have dims components.
func CheckDimensions(dims int, chunks []domain.IndexedChunk) error {
	for _, c := range chunks {
		if len(c.Vector) != dims {
			return fmt.Errorf("%w: chunk %d has %d dimensions, index expects %d",
				domain.ErrDimensionMismatch, c.Index, len(c.Vector), dims)
		}
	}
	return nil
}

// CheckQuery fails with domain.ErrDimensionMismatch when query does not
// have dims components.
func CheckQuery(dims int, query []float32) error {
	if len(query) != dims {
		return fmt.Errorf("%w: query has %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, len(query), dims)
	}
	return nil
}

// FilterSet returns a lookup for document IDs, or nil when ids is empty.
func FilterSet(ids []string) map[string]struct{} {
	if len(ids) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// TopK sorts hits and keeps the best k.
func TopK(hits []domain.SearchHit, k int) []domain.SearchHit {
	domain.SortHits(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits
}
