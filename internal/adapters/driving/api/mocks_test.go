package api

import (
	"context"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

type mockIngestService struct {
	ref *domain.DocumentRef
	err error

	lastRequest driving.IngestRequest
}

func (m *mockIngestService) Ingest(_ context.Context, req driving.IngestRequest) (*domain.DocumentRef, error) {
	m.lastRequest = req
	return m.ref, m.err
}

func (m *mockIngestService) Process(_ context.Context, _ string) error { return m.err }
func (m *mockIngestService) Start(_ context.Context) error             { return nil }
func (m *mockIngestService) Stop()                                     {}

type mockDocumentService struct {
	documents []domain.Document
	document  *domain.Document
	content   string
	chunks    []domain.Chunk
	err       error

	lastFilter domain.ListFilter
	deleted    string
	resubmit   string
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

func (m *mockDocumentService) Delete(_ context.Context, id string) error {
	m.deleted = id
	return m.err
}

func (m *mockDocumentService) Resubmit(_ context.Context, id string) error {
	m.resubmit = id
	return m.err
}

type mockQueryService struct {
	result  *domain.QueryResult
	sources []domain.Source
	summary *domain.Summary
	formats []string
	parsers []driven.PluginInfo
	err     error

	lastRequest  domain.QueryRequest
	lastDocument string
	lastQuestion string
}

func (m *mockQueryService) Query(_ context.Context, req domain.QueryRequest) (*domain.QueryResult, error) {
	m.lastRequest = req
	return m.result, m.err
}

func (m *mockQueryService) Search(_ context.Context, req domain.QueryRequest) ([]domain.Source, error) {
	m.lastRequest = req
	return m.sources, m.err
}

func (m *mockQueryService) Ask(_ context.Context, documentID, question string) (*domain.QueryResult, error) {
	m.lastDocument = documentID
	m.lastQuestion = question
	return m.result, m.err
}

func (m *mockQueryService) Summarize(_ context.Context, _ string) (*domain.Summary, error) {
	return m.summary, m.err
}

func (m *mockQueryService) ListSupportedFormats() []string   { return m.formats }
func (m *mockQueryService) ListParsers() []driven.PluginInfo { return m.parsers }

type mockAdminService struct {
	ids []string
	err error
}

func (m *mockAdminService) ResetStale(_ context.Context) ([]string, error) {
	return m.ids, m.err
}

type mockIndex struct {
	count int
	dims  int
	err   error
}

func (m *mockIndex) Count(_ context.Context) (int, error) { return m.count, m.err }
func (m *mockIndex) Dimensions() int                      { return m.dims }
