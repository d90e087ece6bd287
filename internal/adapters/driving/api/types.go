package api

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// validate is safe for concurrent use and caches struct metadata.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// validateStruct returns a field -> reason map, or nil when v is valid.
func validateStruct(v any) map[string]string {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return map[string]string{"body": err.Error()}
	}

	out := make(map[string]string, len(verrs))
	for _, e := range verrs {
		if e.Param() != "" {
			out[e.Field()] = fmt.Sprintf("failed on '%s=%s' tag", e.Tag(), e.Param())
		} else {
			out[e.Field()] = fmt.Sprintf("failed on '%s' tag", e.Tag())
		}
	}
	return out
}

// QueryParams is the body of POST /query and POST /search.
type QueryParams struct {
	Query          string   `json:"query" validate:"required,max=4000"`
	TopK           int      `json:"top_k" validate:"omitempty,min=1,max=50"`
	DocumentIDs    []string `json:"document_ids" validate:"omitempty,max=100,dive,required"`
	MaxPerDocument int      `json:"max_per_document" validate:"omitempty,min=1"`
}

func (p *QueryParams) toRequest() domain.QueryRequest {
	return domain.QueryRequest{
		Query:          p.Query,
		TopK:           p.TopK,
		DocumentIDs:    p.DocumentIDs,
		MaxPerDocument: p.MaxPerDocument,
	}
}

// AskParams is the body of POST /documents/:id/ask.
type AskParams struct {
	Question string `json:"question" validate:"required,max=4000"`
}

// IngestParams is the body of POST /documents/ingest.
type IngestParams struct {
	FilePath       string         `json:"file_path" validate:"required"`
	ParserPluginID string         `json:"parser_plugin_id"`
	Format         string         `json:"format"`
	Metadata       map[string]any `json:"metadata"`
}

// DocumentResponse is the JSON view of a document.
type DocumentResponse struct {
	ID                  string         `json:"id"`
	Name                string         `json:"name"`
	Path                string         `json:"path"`
	FileType            string         `json:"file_type"`
	ProcessingStatus    string         `json:"processing_status"`
	SizeBytes           int64          `json:"size_bytes"`
	ContentHash         string         `json:"content_hash"`
	ParserPluginID      string         `json:"parser_plugin_id,omitempty"`
	ChunkCount          int            `json:"chunk_count"`
	Summary             string         `json:"summary,omitempty"`
	ErrorMessage        string         `json:"error_message,omitempty"`
	Metadata            map[string]any `json:"metadata,omitempty"`
	ProcessingStartedAt *time.Time     `json:"processing_started_at,omitempty"`
	CreatedAt           time.Time      `json:"created_at"`
	UpdatedAt           time.Time      `json:"updated_at"`
}

func newDocumentResponse(doc *domain.Document) DocumentResponse {
	return DocumentResponse{
		ID:                  doc.ID,
		Name:                doc.Name,
		Path:                doc.StoragePath,
		FileType:            doc.Format,
		ProcessingStatus:    string(doc.Status),
		SizeBytes:           doc.SizeBytes,
		ContentHash:         doc.ContentHash,
		ParserPluginID:      doc.ParserID,
		ChunkCount:          doc.ChunkCount,
		Summary:             doc.Summary,
		ErrorMessage:        doc.ErrorMessage,
		Metadata:            doc.Metadata,
		ProcessingStartedAt: doc.ProcessingStartedAt,
		CreatedAt:           doc.CreatedAt,
		UpdatedAt:           doc.UpdatedAt,
	}
}

// UploadResponse is the stored document behind an upload. Duplicate is set
// when the bytes matched a document that already existed.
type UploadResponse struct {
	DocumentResponse
	Duplicate bool `json:"duplicate"`
}

// RefResponse acknowledges a resubmission.
type RefResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// SourceResponse is one retrieved passage.
type SourceResponse struct {
	DocumentID     string  `json:"document_id"`
	DocumentName   string  `json:"document_name"`
	ChunkIndex     int     `json:"chunk_index"`
	PageNumber     *int    `json:"page_number"`
	RelevanceScore float64 `json:"relevance_score"`
	Excerpt        string  `json:"excerpt"`
	Text           string  `json:"text"`
}

// NewSourceResponses converts retrieved sources for JSON output.
func NewSourceResponses(sources []domain.Source) []SourceResponse {
	out := make([]SourceResponse, len(sources))
	for i := range sources {
		out[i] = SourceResponse{
			DocumentID:     sources[i].DocumentID,
			DocumentName:   sources[i].DocumentName,
			ChunkIndex:     sources[i].ChunkIndex,
			PageNumber:     sources[i].Page,
			RelevanceScore: sources[i].Score,
			Excerpt:        sources[i].Excerpt,
			Text:           sources[i].Text,
		}
	}
	return out
}

// SearchResult is one hit of a search without generation.
type SearchResult struct {
	Content      string  `json:"content"`
	DocumentID   string  `json:"document_id"`
	DocumentName string  `json:"document_name"`
	ChunkIndex   int     `json:"chunk_index"`
	PageNumber   *int    `json:"page_number"`
	Score        float64 `json:"score"`
}

// NewSearchResults converts retrieved sources into search hits.
func NewSearchResults(sources []domain.Source) []SearchResult {
	out := make([]SearchResult, len(sources))
	for i := range sources {
		out[i] = SearchResult{
			Content:      sources[i].Text,
			DocumentID:   sources[i].DocumentID,
			DocumentName: sources[i].DocumentName,
			ChunkIndex:   sources[i].ChunkIndex,
			PageNumber:   sources[i].Page,
			Score:        sources[i].Score,
		}
	}
	return out
}

// QueryResponse is the answer to a query.
type QueryResponse struct {
	Query            string           `json:"query"`
	Answer           string           `json:"answer"`
	HasSources       bool             `json:"has_sources"`
	Sources          []SourceResponse `json:"sources"`
	ProcessingTimeMs float64          `json:"processing_time_ms"`
}

// NewQueryResponse converts a query result for JSON output.
func NewQueryResponse(r *domain.QueryResult) QueryResponse {
	return QueryResponse{
		Query:            r.Query,
		Answer:           r.Answer,
		HasSources:       r.HasSources,
		Sources:          NewSourceResponses(r.Sources),
		ProcessingTimeMs: float64(r.ProcessingTime.Microseconds()) / 1000,
	}
}

// QAResponse answers a question about one document. Sources are labelled
// by section and score.
type QAResponse struct {
	Question   string   `json:"question"`
	Answer     string   `json:"answer"`
	Sources    []string `json:"sources"`
	Confidence float64  `json:"confidence"`
}

func newQAResponse(question string, r *domain.QueryResult) QAResponse {
	sources := make([]string, len(r.Sources))
	for i, s := range r.Sources {
		sources[i] = fmt.Sprintf("Section %d (score: %.2f)", s.ChunkIndex+1, s.Score)
	}
	confidence := 0.5
	if r.HasSources {
		confidence = 0.8
	}
	return QAResponse{
		Question:   question,
		Answer:     r.Answer,
		Sources:    sources,
		Confidence: confidence,
	}
}

// SummaryResponse is a generated document summary.
type SummaryResponse struct {
	DocumentID  string    `json:"document_id"`
	Summary     string    `json:"summary"`
	KeyPoints   []string  `json:"key_points"`
	GeneratedAt time.Time `json:"generated_at"`
}

// PluginResponse describes a parser plugin.
type PluginResponse struct {
	Name             string   `json:"name"`
	SupportedFormats []string `json:"supported_formats"`
	Loaded           bool     `json:"loaded"`
}
