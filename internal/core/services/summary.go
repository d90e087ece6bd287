package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/metrics"
)

// maxSummaryInput caps the document text sent for summarisation, in runes.
const maxSummaryInput = 10000

const (
	summaryTruncated  = "\n\n[Document truncated for summary]"
	unstructuredPoint = "Summary generated without structured format"
	summaryHeading    = "SUMMARY:"
	keyPointsHeading  = "KEY POINTS:"
)

// Summariser generates and stores document summaries.
type Summariser struct {
	store   driven.DocumentStore
	llm     driven.LLMService
	prompts driven.PromptStore
	metrics *metrics.Metrics
	cfg     GenerationConfig
}

// NewSummariser creates a summariser. llm may be nil, in which case
// Summarize fails with domain.ErrLLMUnavailable.
func NewSummariser(
	store driven.DocumentStore,
	llm driven.LLMService,
	prompts driven.PromptStore,
	m *metrics.Metrics,
	cfg GenerationConfig,
) *Summariser {
	return &Summariser{
		store:   store,
		llm:     llm,
		prompts: prompts,
		metrics: m,
		cfg:     cfg.withDefaults(),
	}
}

// Summarize generates a summary of a completed document and records it.
func (s *Summariser) Summarize(ctx context.Context, documentID string) (*domain.Summary, error) {
	doc, err := s.store.Get(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if doc.Status != domain.StatusCompleted {
		return nil, fmt.Errorf("%w: document %s is %s", domain.ErrDocumentNotReady, documentID, doc.Status)
	}
	if s.llm == nil {
		return nil, fmt.Errorf("%w: no language model configured", domain.ErrLLMUnavailable)
	}

	text := doc.RawText
	if text == "" {
		chunks, err := s.store.GetChunks(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("load chunks: %w", err)
		}
		text = joinChunks(chunks)
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: document %s has no text", domain.ErrEmptyContent, documentID)
	}
	if runes := []rune(text); len(runes) > maxSummaryInput {
		text = string(runes[:maxSummaryInput]) + summaryTruncated
	}

	prompt, err := renderPrompt(s.prompts, driven.PromptSummary, map[string]string{
		"Name":    doc.Name,
		"Content": text,
	})
	if err != nil {
		return nil, err
	}

	response, err := generate(ctx, s.llm, s.metrics, s.cfg, prompt)
	if err != nil {
		return nil, err
	}
	if response == "" {
		s.metrics.LLMFailure("empty")
		return nil, fmt.Errorf("%w: model returned an empty summary", domain.ErrLLMUnavailable)
	}

	summary, points := parseSummary(response)
	if err := s.store.SaveSummary(ctx, documentID, summary); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}

	return &domain.Summary{
		DocumentID: documentID,
		Summary:    summary,
		KeyPoints:  points,
	}, nil
}

// parseSummary splits a "SUMMARY: ... KEY POINTS: ..." response.
// Responses without both headings become the summary with a single
// placeholder key point.
func parseSummary(response string) (string, []string) {
	si := strings.Index(response, summaryHeading)
	ki := strings.Index(response, keyPointsHeading)
	if si < 0 || ki < 0 || ki < si {
		return strings.TrimSpace(response), []string{unstructuredPoint}
	}

	summary := strings.TrimSpace(response[si+len(summaryHeading) : ki])

	var points []string
	for _, line := range strings.Split(response[ki+len(keyPointsHeading):], "\n") {
		if point := trimBullet(line); point != "" {
			points = append(points, point)
		}
	}
	if len(points) == 0 {
		points = []string{unstructuredPoint}
	}
	return summary, points
}

// trimBullet strips "-", "•", "*" and "1." or "1)" markers.
func trimBullet(line string) string {
	line = strings.TrimSpace(line)
	line = strings.TrimLeft(line, "-•* \t")

	digits := strings.IndexFunc(line, func(r rune) bool { return !unicode.IsDigit(r) })
	if digits > 0 && (line[digits] == '.' || line[digits] == ')') {
		line = line[digits+1:]
	}
	return strings.TrimSpace(line)
}
