// Package ollama generates answers with a local Ollama server.
package ollama

import (
	"context"
	"net/http"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/apiclient"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

var _ driven.LLMService = (*LLMService)(nil)

const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "llama3.2"
	DefaultTimeout = 120 * time.Second
)

// Config selects the server and model.
type Config struct {
	BaseURL string
	Model   string
	Timeout time.Duration
}

// LLMService calls /api/generate without streaming.
type LLMService struct {
	api   *apiclient.Client
	model string
}

type generateRequest struct {
	Model   string    `json:"model"`
	Prompt  string    `json:"prompt"`
	Stream  bool      `json:"stream"`
	Options *sampling `json:"options,omitempty"`
}

type sampling struct {
	NumPredict  int      `json:"num_predict,omitempty"`
	Temperature float64  `json:"temperature,omitempty"`
	Stop        []string `json:"stop,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// NewLLMService applies defaults for unset fields.
func NewLLMService(cfg Config) *LLMService {
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
		api:   apiclient.New("ollama", cfg.BaseURL, cfg.Timeout),
		model: cfg.Model,
	}
}

func (s *LLMService) Generate(ctx context.Context, prompt string, opts driven.GenerateOptions) (string, error) {
	req := generateRequest{Model: s.model, Prompt: prompt, Options: samplingFor(opts)}

	var reply generateResponse
	if err := s.api.Post(ctx, "/api/generate", req, &reply); err != nil {
		return "", err
	}
	if reply.Error != "" {
		return "", s.api.Failure(http.StatusOK, reply.Error)
	}
	return reply.Response, nil
}

// samplingFor leaves the model's own defaults in place when nothing is set.
func samplingFor(opts driven.GenerateOptions) *sampling {
	if opts.MaxTokens <= 0 && opts.Temperature <= 0 && len(opts.StopWords) == 0 {
		return nil
	}
	return &sampling{NumPredict: opts.MaxTokens, Temperature: opts.Temperature, Stop: opts.StopWords}
}

func (s *LLMService) ModelName() string { return s.model }

// Ping lists local models, which needs no inference.
func (s *LLMService) Ping(ctx context.Context) error {
	return s.api.Ping(ctx, "/api/tags")
}

func (s *LLMService) Close() error { return nil }
