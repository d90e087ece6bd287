package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

func TestNewDocumentService(t *testing.T) {
	svc := NewDocumentService(memory.NewDocumentStore(), nil, nil, nil)
	require.NotNil(t, svc)
}

func TestDocumentService_GetAndList(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	svc := NewDocumentService(f.store, f.files, f.index, f.pipeline)
	ctx := context.Background()

	first := f.ingest(t, "a.txt", "first document")
	second := f.ingest(t, "b.txt", "second document")
	require.NoError(t, f.pipeline.Process(ctx, first.ID))

	doc, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "a.txt", doc.Name)

	all, err := svc.List(ctx, domain.ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	pending, err := svc.List(ctx, domain.ListFilter{Status: domain.StatusPending})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	_, err = svc.List(ctx, domain.ListFilter{Status: "archived"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetContent(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	svc := NewDocumentService(f.store, f.files, f.index, f.pipeline)
	ctx := context.Background()

	ref := f.ingest(t, "a.txt", "First paragraph.\n\nSecond paragraph.")
	require.NoError(t, f.pipeline.Process(ctx, ref.ID))

	content, err := svc.GetContent(ctx, ref.ID)
	require.NoError(t, err)
	assert.Equal(t, "First paragraph.\n\nSecond paragraph.", content)

	_, err = svc.GetContent(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_GetContentFromChunks(t *testing.T) {
	f := newRetrievalFixture(t)
	seedDocument(t, f.store, f.index, f.embedder, "doc", "a.txt", "First paragraph.", "Second paragraph.")
	svc := NewDocumentService(f.store, nil, f.index, nil)

	content, err := svc.GetContent(context.Background(), "doc")
	require.NoError(t, err)
	assert.Equal(t, "First paragraph. Second paragraph.", content)
}

func TestDocumentService_GetChunks(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	svc := NewDocumentService(f.store, f.files, f.index, f.pipeline)
	ctx := context.Background()

	ref := f.ingest(t, "a.txt", "some words")
	require.NoError(t, f.pipeline.Process(ctx, ref.ID))

	chunks, err := svc.GetChunks(ctx, ref.ID)
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.Equal(t, "some words", chunks[0].Content)

	_, err = svc.GetChunks(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDocumentService_DeleteCascades(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	svc := NewDocumentService(f.store, f.files, f.index, f.pipeline)
	ctx := context.Background()

	ref := f.ingest(t, "a.txt", "to be deleted")
	require.NoError(t, f.pipeline.Process(ctx, ref.ID))
	doc := f.get(t, ref.ID)

	require.NoError(t, svc.Delete(ctx, ref.ID))

	_, err := f.store.Get(ctx, ref.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	count, err := f.index.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	_, err = f.files.Read(ctx, doc.StoragePath)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	chunks, err := f.store.GetChunks(ctx, ref.ID)
	require.NoError(t, err)
	assert.Empty(t, chunks)

	assert.ErrorIs(t, svc.Delete(ctx, ref.ID), domain.ErrNotFound)
}

func TestDocumentService_DeleteThenReupload(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	svc := NewDocumentService(f.store, f.files, f.index, f.pipeline)
	ctx := context.Background()

	first := f.ingest(t, "a.txt", "same bytes")
	require.NoError(t, svc.Delete(ctx, first.ID))

	second := f.ingest(t, "a.txt", "same bytes")
	assert.NotEqual(t, first.ID, second.ID)
	assert.False(t, second.Duplicate)
}

func TestDocumentService_Resubmit(t *testing.T) {
	f := newIngestFixture(t, IngestConfig{})
	svc := NewDocumentService(f.store, f.files, f.index, f.pipeline)
	ctx := context.Background()

	ref := f.ingest(t, "a.txt", "content")
	require.NoError(t, f.pipeline.Process(ctx, ref.ID))

	require.NoError(t, svc.Resubmit(ctx, ref.ID))
	assert.Equal(t, domain.StatusPending, f.get(t, ref.ID).Status)

	assert.ErrorIs(t, svc.Resubmit(ctx, "missing"), domain.ErrNotFound)

	bare := NewDocumentService(f.store, nil, nil, nil)
	assert.ErrorIs(t, bare.Resubmit(ctx, ref.ID), domain.ErrNotImplemented)
}

func TestJoinChunks(t *testing.T) {
	tests := []struct {
		name   string
		chunks []domain.Chunk
		want   string
	}{
		{"empty", nil, ""},
		{"single", []domain.Chunk{{Content: "abc", Start: 0, End: 3}}, "abc"},
		{"overlap removed", []domain.Chunk{
			{Content: "hello wor", Start: 0, End: 9},
			{Content: "world", Start: 6, End: 11},
		}, "hello world"},
		{"gap becomes space", []domain.Chunk{
			{Content: "one", Start: 0, End: 3},
			{Content: "two", Start: 4, End: 7},
		}, "one two"},
		{"unknown offsets", []domain.Chunk{
			{Content: "one"},
			{Content: "two"},
		}, "one\ntwo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, joinChunks(tt.chunks))
		})
	}
}
