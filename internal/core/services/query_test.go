package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/parsers/plaintext"
)

func newQueryFixture(t *testing.T, llm *fakeLLM, defaults QueryDefaults) (*QueryService, *retrievalFixture) {
	t.Helper()
	f := newRetrievalFixture(t)
	prompts := newFakePrompts()

	composer := NewAnswerComposer(llm, prompts, wordCounter{}, nil, GenerationConfig{})
	summariser := NewSummariser(f.store, llm, prompts, nil, GenerationConfig{})
	svc := NewQueryService(f.store, f.engine, composer, summariser, newFakeRegistry(plaintext.New()), nil, defaults)
	return svc, f
}

func TestQuery_RanksSourcesAndAnswers(t *testing.T) {
	llm := &fakeLLM{response: "Channels connect goroutines [1]."}
	svc, f := newQueryFixture(t, llm, QueryDefaults{})
	seedDocument(t, f.store, f.index, f.embedder, "go", "go.txt",
		"goroutines communicate over channels",
		"channels block until goroutines are ready",
		"select waits on several channels")
	seedDocument(t, f.store, f.index, f.embedder, "db", "db.txt",
		"indexes speed up lookups",
		"transactions keep writes atomic",
		"vacuum reclaims space")

	result, err := svc.Query(context.Background(), domain.QueryRequest{Query: "goroutines channels", TopK: 5})
	require.NoError(t, err)

	assert.Equal(t, "Channels connect goroutines [1].", result.Answer)
	assert.True(t, result.HasSources)
	require.NotEmpty(t, result.Sources)
	assert.LessOrEqual(t, len(result.Sources), 5)
	assert.Equal(t, "go", result.Sources[0].DocumentID)
	for i := 1; i < len(result.Sources); i++ {
		assert.GreaterOrEqual(t, result.Sources[i-1].Score, result.Sources[i].Score)
	}
	assert.Positive(t, result.ProcessingTime)
}

func TestQuery_EmptyIndexGivesNoInformationAnswer(t *testing.T) {
	svc, _ := newQueryFixture(t, &fakeLLM{}, QueryDefaults{})

	result, err := svc.Query(context.Background(), domain.QueryRequest{Query: "is anything indexed?"})
	require.NoError(t, err)
	assert.Equal(t, domain.NoInformationAnswer, result.Answer)
	assert.False(t, result.HasSources)
	assert.Empty(t, result.Sources)
}

func TestQuery_InvalidInput(t *testing.T) {
	svc, _ := newQueryFixture(t, &fakeLLM{}, QueryDefaults{})

	_, err := svc.Query(context.Background(), domain.QueryRequest{Query: ""})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSearch_UsesDefaultsAndSkipsModel(t *testing.T) {
	llm := &fakeLLM{response: "unused"}
	svc, f := newQueryFixture(t, llm, QueryDefaults{TopK: 2, MaxPerDocument: 1})
	seedDocument(t, f.store, f.index, f.embedder, "a", "a.txt", "shared term one", "shared term two")
	seedDocument(t, f.store, f.index, f.embedder, "b", "b.txt", "shared term three")
	seedDocument(t, f.store, f.index, f.embedder, "c", "c.txt", "shared term four")

	sources, err := svc.Search(context.Background(), domain.QueryRequest{Query: "shared term"})
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.NotEqual(t, sources[0].DocumentID, sources[1].DocumentID)
	assert.Empty(t, llm.lastPrompt())
}

func TestAsk_RestrictsToDocument(t *testing.T) {
	llm := &fakeLLM{response: "From b only."}
	svc, f := newQueryFixture(t, llm, QueryDefaults{MaxPerDocument: 1})
	seedDocument(t, f.store, f.index, f.embedder, "a", "a.txt", "topic alpha", "topic beta")
	seedDocument(t, f.store, f.index, f.embedder, "b", "b.txt", "topic gamma", "topic delta")
	ctx := context.Background()

	result, err := svc.Ask(ctx, "b", "topic")
	require.NoError(t, err)
	require.Len(t, result.Sources, 2)
	for _, src := range result.Sources {
		assert.Equal(t, "b", src.DocumentID)
	}

	_, err = svc.Ask(ctx, "missing", "topic")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestQueryService_SummarizeAndParsers(t *testing.T) {
	llm := &fakeLLM{response: "SUMMARY: Short.\nKEY POINTS:\n- one"}
	svc, f := newQueryFixture(t, llm, QueryDefaults{})
	seedDocument(t, f.store, f.index, f.embedder, "a", "a.txt", "body text")

	summary, err := svc.Summarize(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, "Short.", summary.Summary)
	assert.Equal(t, []string{"one"}, summary.KeyPoints)

	assert.Contains(t, svc.ListSupportedFormats(), "txt")
	plugins := svc.ListParsers()
	require.Len(t, plugins, 1)
	assert.Equal(t, plaintext.ID, plugins[0].ID)
}
