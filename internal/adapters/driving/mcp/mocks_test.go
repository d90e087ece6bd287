package mcp

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// mockQueryService is a mock implementation of driving.QueryService.
type mockQueryService struct {
	result  *domain.QueryResult
	sources []domain.Source
	summary *domain.Summary
	formats []string
	parsers []driven.PluginInfo
	err     error

	lastRequest domain.QueryRequest
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.lastRequest = req
	return m.result, m.err
}

func (m *mockQueryService) Search(_ context.Context, req domain.QueryRequest) ([]domain.Source, error) {
	m.lastRequest = req
	return m.sources, m.err
}

func (m *mockQueryService) Ask(_ context.Context, _, _ string) (*domain.QueryResult, error) {
	return m.result, m.err
}

func (m *mockQueryService) Summarize(_ context.Context, _ string) (*domain.Summary, error) {
	return m.summary, m.err
}

func (m *mockQueryService) ListSupportedFormats() []string   { return m.formats }
func (m *mockQueryService) ListParsers() []driven.PluginInfo { return m.parsers }

// mockDocumentService is a mock implementation of driving.DocumentService.
type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	chunks    []domain.Chunk
	err       error

	lastFilter domain.ListFilter
}

func (m *mockDocumentService) Get(_ context.Context, _ string) (*domain.Document, error) {
	return m.document, m.err
}

func (m *mockDocumentService) List(_ context.Context, filter domain.ListFilter) ([]domain.Document, error) {
	m.lastFilter = filter
	return m.documents, m.err
}

func (m *mockDocumentService) GetContent(_ context.Context, _ string) (string, error) {
	return m.content, m.err
}

func (m *mockDocumentService) GetChunks(_ context.Context, _ string) ([]domain.Chunk, error) {
	return m.chunks, m.err
}

func (m *mockDocumentService) Delete(_ context.Context, _ string) error   { return m.err }
func (m *mockDocumentService) Resubmit(_ context.Context, _ string) error { return m.err }
