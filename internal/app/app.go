// Package app wires configuration into adapters and services.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/ai"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/config/file"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/files/local"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/tokens"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vectorindex/chromem"
	memindex "github.com/custodia-labs/sercha-docs/internal/adapters/driven/vectorindex/memory"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driven/vectorindex/pgvector"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/api"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/mcp"
	"github.com/custodia-labs/sercha-docs/internal/adapters/driving/watch"
	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/services"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/metrics"
	"github.com/custodia-labs/sercha-docs/internal/parsers"
	"github.com/custodia-labs/sercha-docs/internal/parsers/ocr"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors/chunker"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors/truncate"
)

// App holds the composed services and the resources they own.
type App struct {
	Config    *file.Config
	Ingest    *services.IngestionPipeline
	Documents *services.DocumentService
	Query     *services.QueryService
	Index     driven.VectorIndex

	// Watcher is nil unless ingest.watch_dir is set.
	Watcher *watch.Watcher

	closers []func() error
}

// New builds every adapter named by cfg. On error, anything already
// opened is closed.
func New(ctx context.Context, cfg *file.Config) (_ *App, err error) {
	a := &App{Config: cfg}
	defer func() {
		if err != nil {
			a.Close() //nolint:errcheck
		}
	}()

	m := metrics.NewMetrics()

	store, filesDir, err := a.openStore(cfg.Storage)
	if err != nil {
		return nil, err
	}

	files, err := local.NewStore(filesDir)
	if err != nil {
		return nil, fmt.Errorf("opening file store: %w", err)
	}

	counter := tokens.New("")

	embedder, err := ai.CreateGuardedEmbeddingService(cfg.Embedding, counter)
	if err != nil {
		return nil, fmt.Errorf("creating embedding service: %w", err)
	}
	a.onClose(embedder.Close)

	dims := embedder.Dimensions()
	if dims <= 0 {
		return nil, fmt.Errorf("%w: embedding.dimensions is required for model %q",
			domain.ErrInvalidConfig, embedder.ModelName())
	}

	index, err := a.openIndex(ctx, cfg.Vector, cfg.Storage.DataDir, dims)
	if err != nil {
		return nil, err
	}
	if !cfg.Storage.Ephemeral && !domain.VectorBackend(cfg.Vector.Backend).IsPersistent() {
		logger.Warn("vector backend %s is not persistent; completed documents must be resubmitted after a restart",
			cfg.Vector.Backend)
	}

	llm, err := ai.CreateLLMService(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("creating LLM service: %w", err)
	}
	if llm != nil {
		a.onClose(llm.Close)
	}

	promptDir := cfg.LLM.PromptDir
	if promptDir == "" {
		promptDir = filepath.Join(cfg.Storage.DataDir, "prompts")
	}
	prompts, err := file.NewPromptStore(promptDir)
	if err != nil {
		return nil, fmt.Errorf("opening prompt store: %w", err)
	}

	registry, err := parsers.NewDefaultRegistry(parsers.DefaultOptions{OCR: ocrEngine(cfg.OCR)})
	if err != nil {
		return nil, fmt.Errorf("registering parsers: %w", err)
	}

	text, err := textPipeline(cfg.Ingest.MaxRawText)
	if err != nil {
		return nil, err
	}

	chunks, err := chunker.New(
		chunker.WithChunkSize(cfg.Ingest.ChunkSize),
		chunker.WithOverlap(cfg.Ingest.ChunkOverlap),
	)
	if err != nil {
		return nil, err
	}

	pipeline, err := services.NewIngestionPipeline(services.IngestDeps{
		Store:    store,
		Files:    files,
		Parsers:  registry,
		Text:     text,
		Chunker:  chunks,
		Embedder: embedder,
		Index:    index,
		Metrics:  m,
	}, ingestConfig(cfg))
	if err != nil {
		return nil, err
	}

	gen := services.GenerationConfig{
		Timeout:       cfg.LLM.Timeout,
		ContextTokens: cfg.LLM.ContextTokens,
		MaxTokens:     cfg.LLM.MaxTokens,
		Temperature:   cfg.LLM.Temperature,
	}
	retrieval := services.NewRetrievalEngine(store, embedder, index)
	composer := services.NewAnswerComposer(llm, prompts, counter, m, gen)
	summariser := services.NewSummariser(store, llm, prompts, m, gen)

	a.Ingest = pipeline
	a.Index = index
	a.Documents = services.NewDocumentService(store, files, index, pipeline)
	a.Query = services.NewQueryService(store, retrieval, composer, summariser, registry, m, services.QueryDefaults{
		TopK:           cfg.Retrieval.TopK,
		MaxPerDocument: cfg.Retrieval.MaxPerDocument,
	})

	if cfg.Ingest.WatchDir != "" {
		a.Watcher, err = watch.New(pipeline, registry.ListSupportedFormats(), watch.Config{Dir: cfg.Ingest.WatchDir})
		if err != nil {
			return nil, err
		}
	}

	logger.Debug("embedding model %s (%d dims), vector backend %s", embedder.ModelName(), dims, cfg.Vector.Backend)
	return a, nil
}

// Start launches the ingestion workers and, when configured, the watch folder.
func (a *App) Start(ctx context.Context) error {
	if err := a.Ingest.Start(ctx); err != nil {
		return err
	}
	if a.Watcher != nil {
		if err := a.Watcher.Start(ctx); err != nil {
			a.Ingest.Stop()
			return err
		}
	}
	return nil
}

// Stop halts the watch folder and drains the workers.
func (a *App) Stop() {
	if a.Watcher != nil {
		a.Watcher.Stop()
	}
	if a.Ingest != nil {
		a.Ingest.Stop()
	}
}

// Close releases every resource in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// HTTPServer builds the REST API over the app's services.
func (a *App) HTTPServer() (*api.Server, error) {
	return api.NewServer(&api.Ports{
		Ingest:   a.Ingest,
		Document: a.Documents,
		Query:    a.Query,
		Admin:    a.Ingest,
		Index:    a.Index,
	}, api.Config{
		Addr:            a.Config.Server.Addr,
		BodyLimitMB:     a.Config.Server.BodyLimitMB,
		ShutdownTimeout: a.Config.Server.ShutdownTimeout,
		IngestRoot:      a.Config.Server.IngestRoot,
	})
}

// MCPServer builds the MCP server over the app's services.
func (a *App) MCPServer() (*mcp.Server, error) {
	return mcp.NewServer(&mcp.Ports{
		Query:    a.Query,
		Document: a.Documents,
	})
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// openStore returns the document store and the directory for uploaded files.
// Ephemeral stores keep files in a temporary directory removed on Close.
func (a *App) openStore(cfg file.StorageConfig) (driven.DocumentStore, string, error) {
	if cfg.Ephemeral {
		dir, err := os.MkdirTemp("", "sercha-docs-*")
		if err != nil {
			return nil, "", fmt.Errorf("creating temp dir: %w", err)
		}
		a.onClose(func() error { return os.RemoveAll(dir) })
		return memory.NewDocumentStore(), dir, nil
	}

	store, err := sqlite.NewStore(cfg.DataDir)
	if err != nil {
		return nil, "", fmt.Errorf("opening document store: %w", err)
	}
	a.onClose(store.Close)
	return store, cfg.DataDir, nil
}

func (a *App) openIndex(ctx context.Context, cfg file.VectorConfig, dataDir string, dims int) (driven.VectorIndex, error) {
	var (
		index driven.VectorIndex
		err   error
	)

	switch domain.VectorBackend(cfg.Backend) {
	case domain.VectorBackendMemory:
		index, err = memindex.New(dims)

	case domain.VectorBackendChromem:
		path := cfg.Path
		if path == "" {
			path = filepath.Join(dataDir, "vectors")
		}
		index, err = chromem.New(chromem.Config{
			Path:       path,
			Dimensions: dims,
			Compress:   cfg.Compress,
		})

	case domain.VectorBackendPgvector:
		index, err = pgvector.New(ctx, pgvector.Config{
			DSN:        cfg.DSN,
			Dimensions: dims,
			Table:      cfg.Table,
		})

	default:
		return nil, fmt.Errorf("%w: unsupported vector backend: %q", domain.ErrInvalidConfig, cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s vector index: %w", cfg.Backend, err)
	}

	a.onClose(index.Close)
	return index, nil
}

// ocrEngine returns tesseract when OCR is enabled and installed.
func ocrEngine(cfg file.OCRConfig) ocr.Engine {
	if !cfg.Enabled {
		return nil
	}
	engine := ocr.NewTesseract(ocr.WithLanguage(cfg.Language))
	if err := engine.Available(); err != nil {
		logger.Warn("OCR disabled: %v\n%s", err, ocr.InstallInstructions())
		return nil
	}
	return engine
}

func textPipeline(maxRunes int) (*postprocessors.Pipeline, error) {
	pcfg := domain.DefaultPipelineConfig()
	if maxRunes > 0 {
		pcfg.ProcessorConfigs[truncate.Name] = map[string]any{"max_runes": maxRunes}
	}
	pipeline, err := postprocessors.NewDefaultRegistry().BuildPipeline(pcfg)
	if err != nil {
		return nil, fmt.Errorf("building text pipeline: %w", err)
	}
	return pipeline, nil
}

func ingestConfig(cfg *file.Config) services.IngestConfig {
	return services.IngestConfig{
		Workers:   cfg.Ingest.Workers,
		QueueSize: cfg.Ingest.QueueSize,
		Retry: services.RetryPolicy{
			MaxAttempts:    cfg.Ingest.MaxAttempts,
			InitialBackoff: cfg.Ingest.InitialBackoff,
			MaxBackoff:     cfg.Ingest.MaxBackoff,
		},
		ParseTimeout:   cfg.Ingest.ParseTimeout,
		StaleAfter:     cfg.Ingest.StaleAfter,
		SweepInterval:  cfg.Ingest.SweepInterval,
		PollInterval:   cfg.Ingest.PollInterval,
		Dedup:          domain.DedupPolicy(cfg.Ingest.Dedup),
		MaxFileSize:    int64(cfg.Ingest.MaxFileSizeMB) * 1024 * 1024,
		EmbedBatchSize: cfg.Embedding.BatchSize,
	}
}
