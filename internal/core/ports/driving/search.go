package driving

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// QueryService answers questions over the indexed documents.
type QueryService interface {
	// Query retrieves sources and composes an answer from them.
	Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error)

	// Search retrieves sources without calling the language model.
	Search(ctx context.Context, req domain.QueryRequest) ([]domain.Source, error)

	// Ask answers a question using only one document.
	Ask(ctx context.Context, documentID, question string) (*domain.QueryResult, error)

	// Summarize generates and stores a summary of a completed document.
	Summarize(ctx context.Context, documentID string) (*domain.Summary, error)

	// ListSupportedFormats returns every format identifier with a parser.
	ListSupportedFormats() []string

	// ListParsers describes the registered parser plugins.
	ListParsers() []driven.PluginInfo
}
