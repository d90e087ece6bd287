package services

import (
	"context"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/metrics"
)

// Ensure QueryService implements the interface.
var _ driving.QueryService = (*QueryService)(nil)

// QueryDefaults fill in request fields the caller left unset.
type QueryDefaults struct {
	TopK           int
	MaxPerDocument int
}

// QueryService answers questions over the indexed documents.
type QueryService struct {
	store      driven.DocumentStore
	retrieval  *RetrievalEngine
	composer   *AnswerComposer
	summariser *Summariser
	parsers    driven.ParserRegistry
	metrics    *metrics.Metrics
	defaults   QueryDefaults
}

// NewQueryService creates a new query service.
func NewQueryService(
	store driven.DocumentStore,
	retrieval *RetrievalEngine,
	composer *AnswerComposer,
	summariser *Summariser,
	parsers driven.ParserRegistry,
	m *metrics.Metrics,
	defaults QueryDefaults,
) *QueryService {
	return &QueryService{
		store:      store,
		retrieval:  retrieval,
		composer:   composer,
		summariser: summariser,
		parsers:    parsers,
		metrics:    m,
		defaults:   defaults,
	}
}

// Query retrieves sources and composes an answer from them.
func (s *QueryService) Query(ctx context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	logger.Section("Query")
	started := time.Now()

	sources, err := s.retrieval.Retrieve(ctx, s.withDefaults(req))
	if err != nil {
		return nil, err
	}

	result, err := s.composer.Compose(ctx, req.Query, sources)
	if err != nil {
		return nil, err
	}
	result.ProcessingTime = time.Since(started)

	s.metrics.Query("query", result.ProcessingTime)
	logger.Debug("query answered from %d source(s) in %s", len(sources), result.ProcessingTime)
	return result, nil
}

// Search retrieves sources without calling the language model.
func (s *QueryService) Search(ctx context.Context, req domain.QueryRequest) ([]domain.Source, error) {
	started := time.Now()

	sources, err := s.retrieval.Retrieve(ctx, s.withDefaults(req))
	if err != nil {
		return nil, err
	}

	s.metrics.Query("search", time.Since(started))
	return sources, nil
}

// Ask answers a question using only one document.
func (s *QueryService) Ask(ctx context.Context, documentID, question string) (*domain.QueryResult, error) {
	if _, err := s.store.Get(ctx, documentID); err != nil {
		return nil, err
	}
	// A negative cap skips the configured per-document default.
	return s.Query(ctx, domain.QueryRequest{
		Query:          question,
		DocumentIDs:    []string{documentID},
		MaxPerDocument: -1,
	})
}

// Summarize generates and stores a summary of a completed document.
func (s *QueryService) Summarize(ctx context.Context, documentID string) (*domain.Summary, error) {
	return s.summariser.Summarize(ctx, documentID)
}

// ListSupportedFormats returns every format identifier with a parser.
func (s *QueryService) ListSupportedFormats() []string {
	return s.parsers.ListSupportedFormats()
}

// ListParsers describes the registered parser plugins.
func (s *QueryService) ListParsers() []driven.PluginInfo {
	return s.parsers.Plugins()
}

func (s *QueryService) withDefaults(req domain.QueryRequest) domain.QueryRequest {
	if req.TopK == 0 {
		req.TopK = s.defaults.TopK
	}
	if req.MaxPerDocument == 0 {
		req.MaxPerDocument = s.defaults.MaxPerDocument
	}
	return req
}
