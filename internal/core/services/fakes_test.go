package services

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// fakeEmbedder hashes words into a small bag-of-words vector.
type fakeEmbedder struct {
	dims int

	// failures is the number of calls that fail with ErrEmbeddingUnavailable
	// before calls start succeeding.
	failures int

	// err fails every call when set.
	err error

	// short returns vectors one component too short.
	short bool

	// before runs at the start of every call.
	before func()

	mu    sync.Mutex
	calls int
	texts []string
}

func newFakeEmbedder() *fakeEmbedder {
	return &fakeEmbedder{dims: 16}
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if f.before != nil {
		f.before()
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.texts = append(f.texts, texts...)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	if f.failures > 0 {
		f.failures--
		return nil, fmt.Errorf("connection refused: %w", domain.ErrEmbeddingUnavailable)
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		out[i] = f.vector(text)
	}
	return out, nil
}

func (f *fakeEmbedder) vector(text string) []float32 {
	dims := f.dims
	if f.short {
		dims--
	}
	v := make([]float32, dims)
	v[0] = 0.01
	for _, word := range strings.Fields(strings.ToLower(text)) {
		h := fnv.New32a()
		_, _ = h.Write([]byte(strings.Trim(word, ".,?!")))
		v[int(h.Sum32())%dims]++
	}
	return v
}

func (f *fakeEmbedder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func (f *fakeEmbedder) Dimensions() int              { return f.dims }
func (f *fakeEmbedder) ModelName() string            { return "fake-embed" }
func (f *fakeEmbedder) Ping(_ context.Context) error { return nil }
func (f *fakeEmbedder) Close() error                 { return nil }

// fakeLLM records prompts and returns a canned response.
type fakeLLM struct {
	response string
	err      error

	// block waits for the context to end before returning.
	block bool

	mu      sync.Mutex
	prompts []string
}

func (f *fakeLLM) Generate(ctx context.Context, prompt string, _ driven.GenerateOptions) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	resp, err, block := f.response, f.err, f.block
	f.mu.Unlock()

	if block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	return resp, err
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}

func (f *fakeLLM) ModelName() string            { return "fake-llm" }
func (f *fakeLLM) Ping(_ context.Context) error { return nil }
func (f *fakeLLM) Close() error                 { return nil }

// fakeParser returns fixed text or a fixed error.
type fakeParser struct {
	id      string
	formats []string
	text    string
	pages   []int
	err     error

	mu    sync.Mutex
	calls int
}

func (f *fakeParser) ID() string                 { return f.id }
func (f *fakeParser) SupportedFormats() []string { return f.formats }

func (f *fakeParser) Parse(ctx context.Context, _ []byte, _ string) (*domain.ParseResult, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if f.err != nil {
		return nil, f.err
	}
	result := &domain.ParseResult{
		Text:        f.text,
		PageOffsets: f.pages,
		Metadata:    domain.ParseMetadata{ExtractionMethod: f.id},
	}
	if len(f.pages) > 0 {
		result.Metadata.PageCount = domain.IntPtr(len(f.pages))
	}
	return result, nil
}

// fakeRegistry resolves formats against a fixed parser list.
type fakeRegistry struct {
	parsers []driven.Parser
}

func newFakeRegistry(parsers ...driven.Parser) *fakeRegistry {
	return &fakeRegistry{parsers: parsers}
}

func (r *fakeRegistry) Register(p driven.Parser) error {
	r.parsers = append(r.parsers, p)
	return nil
}

func (r *fakeRegistry) Resolve(format string) (driven.Parser, error) {
	format = domain.NormaliseFormat(format)
	for _, p := range r.parsers {
		for _, f := range p.SupportedFormats() {
			if f == format {
				return p, nil
			}
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedFormat, format)
}

func (r *fakeRegistry) ResolveByID(id string) (driven.Parser, error) {
	for _, p := range r.parsers {
		if p.ID() == id {
			return p, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrUnknownParser, id)
}

func (r *fakeRegistry) ListSupportedFormats() []string {
	var out []string
	for _, p := range r.parsers {
		out = append(out, p.SupportedFormats()...)
	}
	return out
}

func (r *fakeRegistry) Plugins() []driven.PluginInfo {
	out := make([]driven.PluginInfo, 0, len(r.parsers))
	for _, p := range r.parsers {
		out = append(out, driven.PluginInfo{ID: p.ID(), Formats: p.SupportedFormats()})
	}
	return out
}

// fakePrompts serves short templates.
type fakePrompts struct {
	templates map[string]string
}

func newFakePrompts() *fakePrompts {
	return &fakePrompts{templates: map[string]string{
		driven.PromptAnswer:          "CONTEXT:\n{{.Context}}\nQUESTION: {{.Query}}",
		driven.PromptAnswerNoSources: "NO SOURCES. QUESTION: {{.Query}}",
		driven.PromptSummary:         "SUMMARISE {{.Name}}:\n{{.Content}}",
	}}
}

func (p *fakePrompts) Load(name string) (string, error) {
	t, ok := p.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt %q: %w", name, domain.ErrNotFound)
	}
	return t, nil
}

func (p *fakePrompts) Reload() {}

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) Count(text string) int { return len(strings.Fields(text)) }

func (wordCounter) Truncate(text string, maxTokens int) string {
	words := strings.Fields(text)
	if len(words) <= maxTokens {
		return text
	}
	return strings.Join(words[:maxTokens], " ")
}
