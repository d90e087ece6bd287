package mcp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

func newTestServer(t *testing.T, ports *Ports) *Server {
	t.Helper()
	server, err := NewServer(ports)
	require.NoError(t, err)
	return server
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("returns answer with sources", func(t *testing.T) {
		mockQuery := &mockQueryService{
			result: &domain.QueryResult{
				Query:      "what is chunking?",
				Answer:     "Chunking splits text [1].",
				HasSources: true,
				Sources: []domain.Source{{
					DocumentID:   "doc-1",
					DocumentName: "guide.pdf",
					ChunkIndex:   2,
					Page:         domain.IntPtr(4),
					Score:        0.87,
					Text:         "full chunk text",
					Excerpt:      "full chunk",
				}},
				ProcessingTime: 1500 * time.Millisecond,
			},
		}
		server := newTestServer(t, &Ports{Query: mockQuery})

		input := QueryInput{Query: "what is chunking?", TopK: 3, DocumentIDs: []string{"doc-1"}}
		_, output, err := server.handleQuery(ctx, nil, input)

		require.NoError(t, err)
		assert.Equal(t, "Chunking splits text [1].", output.Answer)
		assert.True(t, output.HasSources)
		assert.Equal(t, int64(1500), output.ProcessingMs)
		require.Len(t, output.Sources, 1)
		assert.Equal(t, "guide.pdf", output.Sources[0].DocumentName)
		assert.Equal(t, 4, *output.Sources[0].Page)
		assert.Equal(t, "full chunk", output.Sources[0].Excerpt)

		assert.Equal(t, 3, mockQuery.lastRequest.TopK)
		assert.Equal(t, []string{"doc-1"}, mockQuery.lastRequest.DocumentIDs)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{err: domain.ErrLLMTimeout}})

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Query: "q"})
		assert.ErrorIs(t, err, domain.ErrLLMTimeout)
	})
}

func TestServer_handleSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("returns search results", func(t *testing.T) {
		mockQuery := &mockQueryService{
			sources: []domain.Source{
				{DocumentID: "doc-1", DocumentName: "a.txt", Score: 0.95, Excerpt: "matched"},
				{DocumentID: "doc-2", DocumentName: "b.txt", Score: 0.5, Excerpt: "other"},
			},
		}
		server := newTestServer(t, &Ports{Query: mockQuery})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})

		require.NoError(t, err)
		assert.Equal(t, 2, output.Count)
		assert.Equal(t, "doc-1", output.Results[0].DocumentID)
		assert.Nil(t, output.Results[0].Page)
		assert.Zero(t, mockQuery.lastRequest.TopK)
	})

	t.Run("empty results are not nil", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{}})

		_, output, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})
		require.NoError(t, err)
		assert.Equal(t, 0, output.Count)
		assert.NotNil(t, output.Results)
	})

	t.Run("returns error on search failure", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{err: errors.New("search failed")}})

		_, _, err := server.handleSearch(ctx, nil, SearchInput{Query: "test"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "search failed")
	})
}

func TestServer_handleListDocuments(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("lists documents with status filter", func(t *testing.T) {
		mockDoc := &mockDocumentService{
			documents: []domain.Document{
				{ID: "doc-1", Name: "a.pdf", Format: "pdf", Status: domain.StatusFailed,
					ErrorMessage: "parse failed", CreatedAt: created},
			},
		}
		server := newTestServer(t, &Ports{Query: &mockQueryService{}, Document: mockDoc})

		_, output, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{Status: "failed"})

		require.NoError(t, err)
		assert.Equal(t, 1, output.Count)
		assert.Equal(t, "failed", output.Documents[0].Status)
		assert.Equal(t, "parse failed", output.Documents[0].ErrorMessage)
		assert.Equal(t, "2026-03-01T12:00:00Z", output.Documents[0].CreatedAt)
		assert.Equal(t, domain.StatusFailed, mockDoc.lastFilter.Status)
	})

	t.Run("without document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{}})

		_, _, err := server.handleListDocuments(ctx, nil, ListDocumentsInput{})
		assert.ErrorIs(t, err, errDocumentsUnavailable)
	})
}

func TestServer_handleGetDocument(t *testing.T) {
	ctx := context.Background()

	t.Run("returns document", func(t *testing.T) {
		mockDoc := &mockDocumentService{
			document: &domain.Document{ID: "doc-1", Name: "a.txt", Status: domain.StatusCompleted,
				SizeBytes: 42, ChunkCount: 3, Summary: "short"},
		}
		server := newTestServer(t, &Ports{Query: &mockQueryService{}, Document: mockDoc})

		_, output, err := server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "a.txt", output.Name)
		assert.Equal(t, int64(42), output.SizeBytes)
		assert.Equal(t, 3, output.ChunkCount)
		assert.Equal(t, "short", output.Summary)
	})

	t.Run("not found", func(t *testing.T) {
		server := newTestServer(t, &Ports{
			Query:    &mockQueryService{},
			Document: &mockDocumentService{err: domain.ErrNotFound},
		})

		_, _, err := server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "missing"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("without document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{}})

		_, _, err := server.handleGetDocument(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		assert.ErrorIs(t, err, errDocumentsUnavailable)
	})
}

func TestServer_handleSummarize(t *testing.T) {
	ctx := context.Background()

	t.Run("returns summary", func(t *testing.T) {
		mockQuery := &mockQueryService{
			summary: &domain.Summary{DocumentID: "doc-1", Summary: "About things.", KeyPoints: []string{"one"}},
		}
		server := newTestServer(t, &Ports{Query: mockQuery})

		_, output, err := server.handleSummarize(ctx, nil, DocumentInput{DocumentID: "doc-1"})

		require.NoError(t, err)
		assert.Equal(t, "About things.", output.Summary)
		assert.Equal(t, []string{"one"}, output.KeyPoints)
	})

	t.Run("document not ready", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{err: domain.ErrDocumentNotReady}})

		_, _, err := server.handleSummarize(ctx, nil, DocumentInput{DocumentID: "doc-1"})
		assert.ErrorIs(t, err, domain.ErrDocumentNotReady)
	})
}

func TestServer_handleListFormats(t *testing.T) {
	mockQuery := &mockQueryService{
		formats: []string{"pdf", "txt"},
		parsers: []driven.PluginInfo{{ID: "plaintext", Formats: []string{"txt"}}},
	}
	server := newTestServer(t, &Ports{Query: mockQuery})

	_, output, err := server.handleListFormats(context.Background(), nil, ListFormatsInput{})

	require.NoError(t, err)
	assert.Equal(t, []string{"pdf", "txt"}, output.Formats)
	require.Len(t, output.Parsers, 1)
	assert.Equal(t, "plaintext", output.Parsers[0].ID)
}
