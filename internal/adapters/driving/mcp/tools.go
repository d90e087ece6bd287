package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// QueryInput is the input schema for the query tool.
type QueryInput struct {
	Query       string   `json:"query" jsonschema:"the question to answer from the indexed documents"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"number of passages to retrieve (default 5, max 50)"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict retrieval to these document IDs"`
}

// QueryOutput is the output schema for the query tool.
type QueryOutput struct {
	Answer       string         `json:"answer"`
	HasSources   bool           `json:"has_sources"`
	Sources      []SourceOutput `json:"sources"`
	ProcessingMs int64          `json:"processing_ms"`
}

// SourceOutput is one retrieved passage.
type SourceOutput struct {
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	Page         *int    `json:"page,omitempty"`
	Score        float64 `json:"score"`
	Excerpt      string  `json:"excerpt"`
}

// SearchInput is the input schema for the search tool.
type SearchInput struct {
	Query       string   `json:"query" jsonschema:"the search query to find passages"`
	TopK        int      `json:"top_k,omitempty" jsonschema:"maximum number of passages to return (default 5, max 50)"`
	DocumentIDs []string `json:"document_ids,omitempty" jsonschema:"restrict the search to these document IDs"`
}

// SearchOutput is the output schema for the search tool.
type SearchOutput struct {
	Results []SourceOutput `json:"results"`
	Count   int            `json:"count"`
}

// ListDocumentsInput is the input schema for the list_documents tool.
type ListDocumentsInput struct {
	Status string `json:"status,omitempty" jsonschema:"only list documents in this status (pending, processing, completed, failed)"`
}

// ListDocumentsOutput is the output schema for the list_documents tool.
type ListDocumentsOutput struct {
	Documents []DocumentOutput `json:"documents"`
	Count     int              `json:"count"`
}

// DocumentOutput describes a stored document.
type DocumentOutput struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Format       string `json:"format"`
	Status       string `json:"status"`
	SizeBytes    int64  `json:"size_bytes"`
	ChunkCount   int    `json:"chunk_count"`
	Summary      string `json:"summary,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
	CreatedAt    string `json:"created_at"`
}

// DocumentInput identifies a single document.
type DocumentInput struct {
	DocumentID string `json:"document_id" jsonschema:"the document ID"`
}

// SummaryOutput is the output schema for the summarize_document tool.
type SummaryOutput struct {
	DocumentID string   `json:"document_id"`
	Summary    string   `json:"summary"`
	KeyPoints  []string `json:"key_points"`
}

// ListFormatsInput is the input schema for the list_formats tool.
type ListFormatsInput struct{}

// ListFormatsOutput is the output schema for the list_formats tool.
type ListFormatsOutput struct {
	Formats []string       `json:"formats"`
	Parsers []ParserOutput `json:"parsers"`
}

// ParserOutput describes a parser plugin.
type ParserOutput struct {
	ID      string   `json:"id"`
	Formats []string `json:"formats"`
}

// errDocumentsUnavailable is returned by document tools when the server
// was built without a document service.
var errDocumentsUnavailable = errors.New("document access is not configured")

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "query",
		Description: "Answer a question using the indexed documents, citing the passages used",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "search",
		Description: "Find the passages most similar to a query without generating an answer",
	}, s.handleSearch)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_documents",
		Description: "List uploaded documents and their processing status",
	}, s.handleListDocuments)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "get_document",
		Description: "Get a document's metadata and processing status",
	}, s.handleGetDocument)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "summarize_document",
		Description: "Generate a summary and key points for a processed document",
	}, s.handleSummarize)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "list_formats",
		Description: "List the file formats and parser plugins available for upload",
	}, s.handleListFormats)
}

// handleQuery handles the query tool invocation.
func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	result, err := s.ports.Query.Query(ctx, domain.QueryRequest{
		Query:       input.Query,
		TopK:        input.TopK,
		DocumentIDs: input.DocumentIDs,
	})
	if err != nil {
		return nil, QueryOutput{}, err
	}

	return nil, QueryOutput{
		Answer:       result.Answer,
		HasSources:   result.HasSources,
		Sources:      toSourceOutputs(result.Sources),
		ProcessingMs: result.ProcessingTime.Milliseconds(),
	}, nil
}

// handleSearch handles the search tool invocation.
func (s *Server) handleSearch(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input SearchInput,
) (*mcp.CallToolResult, SearchOutput, error) {
	sources, err := s.ports.Query.Search(ctx, domain.QueryRequest{
		Query:       input.Query,
		TopK:        input.TopK,
		DocumentIDs: input.DocumentIDs,
	})
	if err != nil {
		return nil, SearchOutput{}, err
	}

	return nil, SearchOutput{
		Results: toSourceOutputs(sources),
		Count:   len(sources),
	}, nil
}

func (s *Server) handleListDocuments(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input ListDocumentsInput,
) (*mcp.CallToolResult, ListDocumentsOutput, error) {
	if s.ports.Document == nil {
		return nil, ListDocumentsOutput{}, errDocumentsUnavailable
	}

	docs, err := s.ports.Document.List(ctx, domain.ListFilter{Status: domain.Status(input.Status)})
	if err != nil {
		return nil, ListDocumentsOutput{}, err
	}

	output := ListDocumentsOutput{
		Documents: make([]DocumentOutput, len(docs)),
		Count:     len(docs),
	}
	for i := range docs {
		output.Documents[i] = toDocumentOutput(&docs[i])
	}
	return nil, output, nil
}

func (s *Server) handleGetDocument(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, DocumentOutput, error) {
	if s.ports.Document == nil {
		return nil, DocumentOutput{}, errDocumentsUnavailable
	}

	doc, err := s.ports.Document.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, DocumentOutput{}, err
	}
	return nil, toDocumentOutput(doc), nil
}

func (s *Server) handleSummarize(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input DocumentInput,
) (*mcp.CallToolResult, SummaryOutput, error) {
	summary, err := s.ports.Query.Summarize(ctx, input.DocumentID)
	if err != nil {
		return nil, SummaryOutput{}, err
	}

	return nil, SummaryOutput{
		DocumentID: summary.DocumentID,
		Summary:    summary.Summary,
		KeyPoints:  summary.KeyPoints,
	}, nil
}

func (s *Server) handleListFormats(
	_ context.Context,
	_ *mcp.CallToolRequest,
	_ ListFormatsInput,
) (*mcp.CallToolResult, ListFormatsOutput, error) {
	plugins := s.ports.Query.ListParsers()
	output := ListFormatsOutput{
		Formats: s.ports.Query.ListSupportedFormats(),
		Parsers: make([]ParserOutput, len(plugins)),
	}
	for i, p := range plugins {
		output.Parsers[i] = ParserOutput{ID: p.ID, Formats: p.Formats}
	}
	return nil, output, nil
}

func toSourceOutputs(sources []domain.Source) []SourceOutput {
	out := make([]SourceOutput, len(sources))
	for i := range sources {
		out[i] = SourceOutput{
			DocumentID:   sources[i].DocumentID,
			DocumentName: sources[i].DocumentName,
			ChunkIndex:   sources[i].ChunkIndex,
			Page:         sources[i].Page,
			Score:        sources[i].Score,
			Excerpt:      sources[i].Excerpt,
		}
	}
	return out
}

func toDocumentOutput(doc *domain.Document) DocumentOutput {
	return DocumentOutput{
		ID:           doc.ID,
		Name:         doc.Name,
		Format:       doc.Format,
		Status:       string(doc.Status),
		SizeBytes:    doc.SizeBytes,
		ChunkCount:   doc.ChunkCount,
		Summary:      doc.Summary,
		ErrorMessage: doc.ErrorMessage,
		CreatedAt:    doc.CreatedAt.UTC().Format(time.RFC3339),
	}
}
