// Package anthropic generates answers through the Anthropic Messages API.
package anthropic

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultModel     = "claude-3-5-sonnet-latest"
	DefaultTimeout   = 120 * time.Second
	DefaultMaxTokens = 1024

	apiVersion = "2023-06-01"
)

// Config selects the endpoint, credentials and model. APIKey is required.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type LLMService struct {
	api   *apiclient.Client
	model string
}

type turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// max_tokens is mandatory for this API.
type messagesRequest struct {
	Model         string   `json:"model"`
	Messages      []turn   `json:"messages"`
	MaxTokens     int      `json:"max_tokens"`
	Temperature   float64  `json:"temperature,omitempty"`
	StopSequences []string `json:"stop_sequences,omitempty"`
}

type contentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type messagesResponse struct {
	Content    []contentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
}

func NewLLMService(cfg Config) (*LLMService, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic: API key is required", domain.ErrInvalidConfig)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &LLMService{
		api: apiclient.New("anthropic", cfg.BaseURL, cfg.Timeout,
			apiclient.WithHeader("x-api-key", cfg.APIKey),
			apiclient.WithHeader("anthropic-version", apiVersion)),
		model: cfg.Model,
	}, nil
}

// Generate joins the text blocks of the reply and ignores everything else.
func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := messagesRequest{
		Model:         s.model,
		Messages:      []turn{{Role: "user", Content: prompt}},
		MaxTokens:     DefaultMaxTokens,
		Temperature:   max(opts.Temperature, 0),
		StopSequences: opts.StopWords,
	}
	if opts.MaxTokens > 0 {
		req.MaxTokens = opts.MaxTokens
	}

	var reply messagesResponse
	if err := s.api.Post(ctx, "/v1/messages", req, &reply); err != nil {
		return "", err
	}

	var text strings.Builder
	for _, block := range reply.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	if text.Len() == 0 && reply.StopReason == "refusal" {
		return "", s.api.Failure(http.StatusOK, "model refused the request")
	}
	return text.String(), nil
}

func (s *LLMService) ModelName() string { return s.model }

func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/v1/models")
}

func (s *LLMService) Close() error { return nil }
