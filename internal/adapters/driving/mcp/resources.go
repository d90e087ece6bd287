package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

const (
	documentsURI = "sercha://documents"
	mimeJSON     = "application/json"
	mimeText     = "text/plain"
)

type documentEntry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Format string `json:"format"`
	Status string `json:"status"`
	Chunks int    `json:"chunks"`
	URI    string `json:"uri"`
}

type chunkEntry struct {
	Index   int    `json:"index"`
	Start   int    `json:"start"`
	End     int    `json:"end"`
	Page    *int   `json:"page,omitempty"`
	Content string `json:"content"`
}

func (s *Server) registerResources() {
	s.server.AddResource(&mcp.Resource{
		URI:         documentsURI,
		Name:        "documents",
		Description: "Every uploaded document with its processing status",
		MIMEType:    mimeJSON,
	}, s.readDocuments)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}",
		Name:        "document-content",
		Description: "Extracted text of one document",
		MIMEType:    mimeText,
	}, s.readDocument)

	s.server.AddResourceTemplate(&mcp.ResourceTemplate{
		URITemplate: documentsURI + "/{documentId}/chunks",
		Name:        "document-chunks",
		Description: "Indexed chunks of one document with their offsets",
		MIMEType:    mimeJSON,
	}, s.readDocument)
}

// readDocuments lists nothing rather than failing when documents are not
// exposed.
func (s *Server) readDocuments(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	entries := []documentEntry{}
	if s.ports.Document != nil {
		docs, err := s.ports.Document.List(ctx, domain.ListFilter{})
		if err != nil {
			return nil, fmt.Errorf("listing documents: %w", err)
		}
		for i := range docs {
			entries = append(entries, documentEntry{
				ID:     docs[i].ID,
				Name:   docs[i].Name,
				Format: docs[i].Format,
				Status: string(docs[i].Status),
				Chunks: docs[i].ChunkCount,
				URI:    documentsURI + "/" + docs[i].ID,
			})
		}
	}
	return jsonResource(req.Params.URI, entries)
}

// readDocument serves both the content and the chunks view of a document.
func (s *Server) readDocument(ctx context.Context, req *mcp.ReadResourceRequest) (*mcp.ReadResourceResult, error) {
	uri := req.Params.URI
	id, view, ok := parseDocumentURI(uri)
	if !ok || s.ports.Document == nil {
		return nil, mcp.ResourceNotFoundError(uri)
	}

	if view == "chunks" {
		chunks, err := s.ports.Document.GetChunks(ctx, id)
		if err != nil {
			return nil, notFoundOr(uri, "getting document chunks", err)
		}
		entries := make([]chunkEntry, len(chunks))
		for i, c := range chunks {
			entries[i] = chunkEntry{Index: c.Index, Start: c.Start, End: c.End, Page: c.Page, Content: c.Content}
		}
		return jsonResource(uri, entries)
	}

	content, err := s.ports.Document.GetContent(ctx, id)
	if err != nil {
		return nil, notFoundOr(uri, "getting document content", err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeText, Text: content}},
	}, nil
}

func notFoundOr(uri, action string, err error) error {
	if errors.Is(err, domain.ErrNotFound) {
		return mcp.ResourceNotFoundError(uri)
	}
	return fmt.Errorf("%s: %w", action, err)
}

func jsonResource(uri string, v any) (*mcp.ReadResourceResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", uri, err)
	}
	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{URI: uri, MIMEType: mimeJSON, Text: string(data)}},
	}, nil
}

// parseDocumentURI splits sercha://documents/{id}[/chunks]. view is empty
// for the content view.
func parseDocumentURI(uri string) (id, view string, ok bool) {
	rest, found := strings.CutPrefix(uri, documentsURI+"/")
	if !found {
		return "", "", false
	}
	id, view, _ = strings.Cut(rest, "/")
	if id == "" || (view != "" && view != "chunks") {
		return "", "", false
	}
	return id, view, true
}
