package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestParseDocumentURI(t *testing.T) {
	tests := []struct {
		uri  string
		id   string
		view string
		ok   bool
	}{
		{"sercha://documents/doc-456", "doc-456", "", true},
		{"sercha://documents/doc-456/chunks", "doc-456", "chunks", true},
		{"sercha://documents/doc-456/pages", "", "", false},
		{"sercha://documents/", "", "", false},
		{"sercha://documents", "", "", false},
		{"file://documents/doc-456", "", "", false},
		{"", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			id, view, ok := parseDocumentURI(tt.uri)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.view, view)
		})
	}
}

func readRequest(uri string) *mcp.ReadResourceRequest {
	return &mcp.ReadResourceRequest{Params: &mcp.ReadResourceParams{URI: uri}}
}

func TestReadDocuments(t *testing.T) {
	ctx := context.Background()

	t.Run("without document service", func(t *testing.T) {
		server := newTestServer(t, &Ports{Query: &mockQueryService{}})

		result, err := server.readDocuments(ctx, readRequest(documentsURI))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.JSONEq(t, "[]", result.Contents[0].Text)
	})

	t.Run("lists documents", func(t *testing.T) {
		docs := &mockDocumentService{documents: []domain.Document{
			{ID: "doc-1", Name: "a.pdf", Format: "pdf", Status: domain.StatusCompleted, ChunkCount: 4},
			{ID: "doc-2", Name: "b.txt", Format: "txt", Status: domain.StatusPending},
		}}
		server := newTestServer(t, &Ports{Query: &mockQueryService{}, Document: docs})

		result, err := server.readDocuments(ctx, readRequest(documentsURI))
		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, mimeJSON, result.Contents[0].MIMEType)

		var got []documentEntry
		require.NoError(t, json.Unmarshal([]byte(result.Contents[0].Text), &got))
		assert.Equal(t, []documentEntry{
			{ID: "doc-1", Name: "a.pdf", Format: "pdf", Status: "completed", Chunks: 4, URI: "sercha://documents/doc-1"},
			{ID: "doc-2", Name: "b.txt", Format: "txt", Status: "pending", URI: "sercha://documents/doc-2"},
		}, got)
	})

	t.Run("list failure", func(t *testing.T) {
		docs := &mockDocumentService{err: errors.New("database error")}
		server := newTestServer(t, &Ports{Query: &mockQueryService{}, Document: docs})

		_, err := server.readDocuments(ctx, readRequest(documentsURI))
		assert.ErrorContains(t, err, "listing documents")
	})
}

func TestReadDocument(t *testing.T) {
	ctx := context.Background()
	page := 3

	tests := []struct {
		name     string
		ports    *Ports
		uri      string
		wantErr  string
		wantMIME string
		wantText string
	}{
		{
			name:    "without document service",
			ports:   &Ports{Query: &mockQueryService{}},
			uri:     "sercha://documents/doc-123",
			wantErr: "not found",
		},
		{
			name:    "bad uri",
			ports:   &Ports{Query: &mockQueryService{}, Document: &mockDocumentService{}},
			uri:     "sercha://invalid/uri",
			wantErr: "not found",
		},
		{
			name:     "content",
			ports:    &Ports{Query: &mockQueryService{}, Document: &mockDocumentService{content: "# Hello\n\nBody."}},
			uri:      "sercha://documents/doc-123",
			wantMIME: mimeText,
			wantText: "# Hello\n\nBody.",
		},
		{
			name: "chunks",
			ports: &Ports{Query: &mockQueryService{}, Document: &mockDocumentService{chunks: []domain.Chunk{
				{Index: 0, Start: 0, End: 5, Page: &page, Content: "Hello"},
			}}},
			uri:      "sercha://documents/doc-123/chunks",
			wantMIME: mimeJSON,
			wantText: `[{"index":0,"start":0,"end":5,"page":3,"content":"Hello"}]`,
		},
		{
			name:    "unknown document",
			ports:   &Ports{Query: &mockQueryService{}, Document: &mockDocumentService{err: domain.ErrNotFound}},
			uri:     "sercha://documents/doc-123",
			wantErr: "not found",
		},
		{
			name:    "content failure",
			ports:   &Ports{Query: &mockQueryService{}, Document: &mockDocumentService{err: errors.New("disk error")}},
			uri:     "sercha://documents/doc-123",
			wantErr: "getting document content",
		},
		{
			name:    "chunks failure",
			ports:   &Ports{Query: &mockQueryService{}, Document: &mockDocumentService{err: errors.New("disk error")}},
			uri:     "sercha://documents/doc-123/chunks",
			wantErr: "getting document chunks",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := newTestServer(t, tt.ports)

			result, err := server.readDocument(ctx, readRequest(tt.uri))
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, result.Contents, 1)
			assert.Equal(t, tt.wantMIME, result.Contents[0].MIMEType)
			if tt.wantMIME == mimeJSON {
				assert.JSONEq(t, tt.wantText, result.Contents[0].Text)
			} else {
				assert.Equal(t, tt.wantText, result.Contents[0].Text)
			}
		})
	}
}
