package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"maps"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
	"github.com/custodia-labs/sercha-docs/internal/metrics"
)

// Ensure IngestionPipeline implements the interfaces.
var (
	_ driving.IngestService = (*IngestionPipeline)(nil)
	_ driving.AdminService  = (*IngestionPipeline)(nil)
)

// Default ingestion settings.
const (
	DefaultWorkers        = 4
	DefaultQueueSize      = 256
	DefaultParseTimeout   = 2 * time.Minute
	DefaultStaleAfter     = 15 * time.Minute
	DefaultSweepInterval  = time.Minute
	DefaultPollInterval   = 10 * time.Second
	DefaultEmbedBatchSize = 32
)

// Upload outcomes recorded in metrics.
const (
	uploadCreated     = "created"
	uploadDuplicate   = "duplicate"
	uploadResubmitted = "resubmitted"
)

// IngestConfig tunes the worker pool and its background loops.
type IngestConfig struct {
	Workers   int
	QueueSize int

	// Retry bounds retries of transient parse, embed and index failures.
	Retry RetryPolicy

	// ParseTimeout limits one parse attempt.
	ParseTimeout time.Duration

	// StaleAfter is how long a claim may be held before the sweeper
	// returns the document to pending.
	StaleAfter time.Duration

	// SweepInterval is how often stale claims are reset. Zero disables the sweeper.
	SweepInterval time.Duration

	// PollInterval is how often pending documents are re-queued. Zero disables the poller.
	PollInterval time.Duration

	// Dedup decides what happens to uploads whose bytes are already known.
	Dedup domain.DedupPolicy

	// MaxFileSize is the largest accepted upload in bytes. Zero means unlimited.
	MaxFileSize int64

	// EmbedBatchSize is the number of chunks sent per Embed call.
	EmbedBatchSize int
}

func (c IngestConfig) withDefaults() IngestConfig {
	if c.Workers <= 0 {
		c.Workers = DefaultWorkers
	}
	if c.QueueSize <= 0 {
		c.QueueSize = DefaultQueueSize
	}
	if c.ParseTimeout <= 0 {
		c.ParseTimeout = DefaultParseTimeout
	}
	if c.StaleAfter <= 0 {
		c.StaleAfter = DefaultStaleAfter
	}
	if c.Dedup == "" {
		c.Dedup = domain.DedupReuse
	}
	if c.EmbedBatchSize <= 0 {
		c.EmbedBatchSize = DefaultEmbedBatchSize
	}
	c.Retry = c.Retry.withDefaults()
	return c
}

// IngestDeps are the adapters the pipeline drives.
// Text and Metrics are optional.
type IngestDeps struct {
	Store    driven.DocumentStore
	Files    driven.FileStore
	Parsers  driven.ParserRegistry
	Text     driven.TextPipeline
	Chunker  driven.Chunker
	Embedder driven.EmbeddingService
	Index    driven.VectorIndex
	Metrics  *metrics.Metrics
}

// IngestionPipeline accepts uploads and moves each document from pending
// to a terminal state: claim, parse, clean, chunk, embed, index.
type IngestionPipeline struct {
	store    driven.DocumentStore
	files    driven.FileStore
	parsers  driven.ParserRegistry
	text     driven.TextPipeline
	chunker  driven.Chunker
	embedder driven.EmbeddingService
	index    driven.VectorIndex
	metrics  *metrics.Metrics
	cfg      IngestConfig

	now   func() time.Time
	newID func() string
	queue chan string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewIngestionPipeline creates a pipeline. Workers are not started until Start.
func NewIngestionPipeline(deps IngestDeps, cfg IngestConfig) (*IngestionPipeline, error) {
	if deps.Store == nil || deps.Files == nil || deps.Parsers == nil ||
		deps.Chunker == nil || deps.Embedder == nil || deps.Index == nil {
		return nil, fmt.Errorf("%w: ingestion pipeline is missing a dependency", domain.ErrInvalidConfig)
	}
	if deps.Embedder.Dimensions() > 0 && deps.Index.Dimensions() > 0 &&
		deps.Embedder.Dimensions() != deps.Index.Dimensions() {
		return nil, fmt.Errorf("%w: embedding model %s produces %d dimensions, index expects %d",
			domain.ErrDimensionMismatch, deps.Embedder.ModelName(), deps.Embedder.Dimensions(), deps.Index.Dimensions())
	}

	cfg = cfg.withDefaults()
	return &IngestionPipeline{
		store:    deps.Store,
		files:    deps.Files,
		parsers:  deps.Parsers,
		text:     deps.Text,
		chunker:  deps.Chunker,
		embedder: deps.Embedder,
		index:    deps.Index,
		metrics:  deps.Metrics,
		cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
		queue:    make(chan string, cfg.QueueSize),
	}, nil
}

// Ingest validates an upload, stores it and queues it for processing.
// Format and parser problems are reported before anything is written.
func (p *IngestionPipeline) Ingest(ctx context.Context, req driving.IngestRequest) (*domain.DocumentRef, error) {
	raw := domain.RawDocument{
		Name:     strings.TrimSpace(req.Name),
		Format:   req.Format,
		Content:  req.Content,
		ParserID: strings.TrimSpace(req.ParserID),
		Metadata: req.Metadata,
	}
	if raw.Name == "" {
		return nil, fmt.Errorf("%w: file name is required", domain.ErrInvalidInput)
	}

	format := raw.ResolvedFormat()
	if format == "" {
		return nil, fmt.Errorf("%w: cannot infer a format from %q", domain.ErrUnsupportedFormat, raw.Name)
	}
	if _, err := p.resolveParser(format, raw.ParserID); err != nil {
		return nil, err
	}

	if len(raw.Content) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", domain.ErrEmptyContent, raw.Name)
	}
	if p.cfg.MaxFileSize > 0 && int64(len(raw.Content)) > p.cfg.MaxFileSize {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit is %d",
			domain.ErrFileTooLarge, raw.Name, len(raw.Content), p.cfg.MaxFileSize)
	}

	sum := sha256.Sum256(raw.Content)
	hash := hex.EncodeToString(sum[:])

	if p.cfg.Dedup == domain.DedupReuse {
		existing, err := p.store.FindByHash(ctx, hash)
		switch {
		case err == nil:
			return p.reuse(ctx, existing)
		case !errors.Is(err, domain.ErrNotFound):
			return nil, fmt.Errorf("dedup lookup: %w", err)
		}
	}

	id := p.newID()
	path, err := p.files.Save(ctx, id, raw.Name, raw.Content)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	now := p.now()
	doc := &domain.Document{
		ID:          id,
		Name:        raw.Name,
		StoragePath: path,
		ContentHash: hash,
		Format:      format,
		SizeBytes:   int64(len(raw.Content)),
		Status:      domain.StatusPending,
		ParserID:    raw.ParserID,
		Metadata:    maps.Clone(raw.Metadata),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := p.store.Create(ctx, doc); err != nil {
		if rmErr := p.files.Remove(context.WithoutCancel(ctx), path); rmErr != nil {
			logger.Warn("ingest: removing orphaned upload %s: %v", path, rmErr)
		}
		return nil, fmt.Errorf("create document: %w", err)
	}

	logger.Debug("ingest: accepted %s as %s (%s, %d bytes)", raw.Name, id, format, doc.SizeBytes)
	p.metrics.Upload(uploadCreated)
	p.enqueue(id)

	return &domain.DocumentRef{ID: id, Status: domain.StatusPending}, nil
}

// reuse answers an upload whose bytes match an existing document.
func (p *IngestionPipeline) reuse(ctx context.Context, existing *domain.Document) (*domain.DocumentRef, error) {
	if existing.Status != domain.StatusFailed {
		p.metrics.Upload(uploadDuplicate)
		return &domain.DocumentRef{ID: existing.ID, Status: existing.Status, Duplicate: true}, nil
	}

	err := p.store.Resubmit(ctx, existing.ID)
	switch {
	case err == nil:
		logger.Info("ingest: resubmitting failed document %s for a repeated upload", existing.ID)
		p.metrics.Upload(uploadResubmitted)
		p.enqueue(existing.ID)
		return &domain.DocumentRef{ID: existing.ID, Status: domain.StatusPending, Duplicate: true}, nil
	case errors.Is(err, domain.ErrInvalidTransition):
		// A concurrent upload resubmitted it first.
		current, getErr := p.store.Get(ctx, existing.ID)
		if getErr != nil {
			return nil, fmt.Errorf("dedup lookup: %w", getErr)
		}
		p.metrics.Upload(uploadDuplicate)
		return &domain.DocumentRef{ID: current.ID, Status: current.Status, Duplicate: true}, nil
	default:
		return nil, fmt.Errorf("resubmit duplicate: %w", err)
	}
}

// Resubmit sends a completed or failed document back through processing.
func (p *IngestionPipeline) Resubmit(ctx context.Context, documentID string) error {
	if err := p.store.Resubmit(ctx, documentID); err != nil {
		return fmt.Errorf("resubmit %s: %w", documentID, err)
	}
	p.enqueue(documentID)
	return nil
}

// ResetStale returns documents whose claim is older than StaleAfter to
// pending and queues them again.
func (p *IngestionPipeline) ResetStale(ctx context.Context) ([]string, error) {
	ids, err := p.store.ResetStale(ctx, p.now().Add(-p.cfg.StaleAfter))
	if err != nil {
		return nil, fmt.Errorf("reset stale: %w", err)
	}
	if len(ids) > 0 {
		logger.Warn("ingest: reset %d stale document(s): %s", len(ids), strings.Join(ids, ", "))
		p.metrics.StaleReset(len(ids))
	}
	for _, id := range ids {
		p.enqueue(id)
	}
	return ids, nil
}

// enqueue hands a document to the workers without blocking.
// When the queue is full the poller picks the document up later.
func (p *IngestionPipeline) enqueue(id string) {
	select {
	case p.queue <- id:
	default:
		logger.Debug("ingest: queue full, %s left for the poller", id)
	}
}

// Start launches the workers, the pending poller and the stale-claim sweeper.
// It returns immediately; call Stop to shut them down.
func (p *IngestionPipeline) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = true
	p.stopCh = make(chan struct{})
	stop := p.stopCh
	p.mu.Unlock()

	for range p.cfg.Workers {
		p.wg.Add(1)
		go p.worker(ctx, stop)
	}

	p.wg.Add(2)
	go p.every(ctx, stop, p.cfg.PollInterval, p.enqueuePending)
	go p.every(ctx, stop, p.cfg.SweepInterval, func(ctx context.Context) {
		if _, err := p.ResetStale(ctx); err != nil {
			logger.Error("ingest: sweeper: %v", err)
		}
	})

	logger.Info("ingest: started %d worker(s)", p.cfg.Workers)
	return nil
}

// Stop signals the loops to exit and waits for in-flight documents to finish.
// Queued documents stay pending and are recovered by the poller on the next start.
func (p *IngestionPipeline) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	p.wg.Wait()
	logger.Debug("ingest: workers stopped")
}

func (p *IngestionPipeline) worker(ctx context.Context, stop <-chan struct{}) {
	defer p.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case id := <-p.queue:
			// A claimed document always reaches a terminal state, even during shutdown.
			if err := p.Process(context.WithoutCancel(ctx), id); err != nil {
				logger.Error("ingest: %v", err)
			}
		}
	}
}

// every runs fn immediately and then on each tick until stopped.
func (p *IngestionPipeline) every(ctx context.Context, stop <-chan struct{}, interval time.Duration, fn func(context.Context)) {
	defer p.wg.Done()
	if interval <= 0 {
		return
	}

	fn(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			fn(ctx)
		}
	}
}

// enqueuePending queues every pending document, oldest first.
func (p *IngestionPipeline) enqueuePending(ctx context.Context) {
	docs, err := p.store.List(ctx, domain.ListFilter{Status: domain.StatusPending})
	if err != nil {
		logger.Error("ingest: poller: %v", err)
		return
	}
	for i := len(docs) - 1; i >= 0; i-- {
		p.enqueue(docs[i].ID)
	}
}

// Process claims a pending document and runs it to completed or failed.
// Losing the claim is not an error. A cancelled context leaves the document
// in processing for the sweeper.
func (p *IngestionPipeline) Process(ctx context.Context, documentID string) error {
	claimed, err := p.store.Claim(ctx, documentID, p.now())
	if err != nil {
		return fmt.Errorf("claim %s: %w", documentID, err)
	}
	if !claimed {
		logger.Debug("ingest: %s already claimed or not pending", documentID)
		return nil
	}

	started := time.Now()
	log := logger.With(zap.String("document_id", documentID))
	log.Debugw("processing document")

	update, err := p.run(ctx, documentID)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("process %s: %w", documentID, err)
		}
		ferr := p.settle(ctx, documentID, func() error { return p.store.Fail(ctx, documentID, err.Error()) })
		if ferr != nil {
			if errors.Is(ferr, domain.ErrNotFound) {
				p.discard(ctx, documentID)
				return nil
			}
			return fmt.Errorf("record failure of %s: %w", documentID, ferr)
		}
		log.Warnw("processing failed", "error", err)
		p.metrics.Processed(string(domain.StatusFailed), time.Since(started))
		return nil
	}

	if err := p.settle(ctx, documentID, func() error { return p.store.Complete(ctx, documentID, *update) }); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			p.discard(ctx, documentID)
			return nil
		}
		return fmt.Errorf("complete %s: %w", documentID, err)
	}
	p.metrics.Processed(string(domain.StatusCompleted), time.Since(started))
	log.Infow("document completed", "chunks", update.ChunkCount, "parser", update.ParserID,
		"elapsed", time.Since(started).Round(time.Millisecond).String())
	return nil
}

// settle records a terminal status, retrying store contention.
func (p *IngestionPipeline) settle(ctx context.Context, id string, write func() error) error {
	_, err := retry(ctx, p.cfg.Retry, p.onRetry("settle", id), func() (struct{}, error) {
		return struct{}{}, write()
	})
	return err
}

// discard drops the vectors of a document deleted while it was processing.
// Its chunk rows went with the record.
func (p *IngestionPipeline) discard(ctx context.Context, id string) {
	logger.Info("ingest: %s was deleted during processing, discarding results", id)
	if err := p.index.Delete(context.WithoutCancel(ctx), id); err != nil {
		logger.Warn("ingest: clearing vectors of deleted %s: %v", id, err)
	}
}

// run executes every processing step for a claimed document.
func (p *IngestionPipeline) run(ctx context.Context, id string) (*domain.CompletedUpdate, error) {
	doc, err := p.store.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}

	content, err := p.files.Read(ctx, doc.StoragePath)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	parser, err := p.resolveParser(doc.Format, doc.ParserID)
	if err != nil {
		return nil, err
	}

	parsed, err := retry(ctx, p.cfg.Retry, p.onRetry("parse", id), func() (*domain.ParseResult, error) {
		pctx, cancel := context.WithTimeout(ctx, p.cfg.ParseTimeout)
		defer cancel()
		return parser.Parse(pctx, content, doc.Format)
	})
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", doc.Name, err)
	}

	text := driven.TextResult{Text: parsed.Text}
	layout := *parsed
	if p.text != nil {
		text, err = p.text.Process(ctx, parsed.Text)
		if err != nil {
			return nil, fmt.Errorf("post-process: %w", err)
		}
		var ok bool
		if layout, ok = parsed.Reflow(text.Text); !ok {
			logger.Warn("ingest: page boundaries of %s lost in post-processing", id)
		}
	}
	if strings.TrimSpace(text.Text) == "" {
		return nil, fmt.Errorf("%w: no text left after cleaning", domain.ErrEmptyContent)
	}

	spans := p.chunker.Chunk(text.Text)
	if len(spans) == 0 {
		return nil, fmt.Errorf("%w: no chunks produced", domain.ErrEmptyContent)
	}

	vectors, err := p.embed(ctx, id, spans)
	if err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, len(spans))
	indexed := make([]domain.IndexedChunk, len(spans))
	for i, span := range spans {
		page := layout.PageAt(span.Start)
		chunks[i] = domain.Chunk{
			DocumentID: id,
			Index:      span.Index,
			Content:    span.Text,
			Start:      span.Start,
			End:        span.End,
			Page:       page,
			VectorID:   domain.ChunkVectorID(id, span.Index),
		}
		indexed[i] = domain.IndexedChunk{
			Index:  span.Index,
			Vector: vectors[i],
			Text:   span.Text,
			Page:   page,
		}
	}

	if err := p.persist(ctx, id, chunks, indexed); err != nil {
		return nil, err
	}

	return &domain.CompletedUpdate{
		ParserID:   parser.ID(),
		RawText:    text.Text,
		Metadata:   mergeMetadata(doc.Metadata, parsed.Metadata, text.Warnings),
		ChunkCount: len(chunks),
	}, nil
}

// embed vectorises spans in batches, retrying transient failures per batch.
func (p *IngestionPipeline) embed(ctx context.Context, id string, spans []domain.TextSpan) ([][]float32, error) {
	vectors := make([][]float32, 0, len(spans))
	for start := 0; start < len(spans); start += p.cfg.EmbedBatchSize {
		end := min(start+p.cfg.EmbedBatchSize, len(spans))
		texts := make([]string, 0, end-start)
		for _, span := range spans[start:end] {
			texts = append(texts, span.Text)
		}

		out, err := retry(ctx, p.cfg.Retry, p.onRetry("embed", id), func() ([][]float32, error) {
			return p.embedder.Embed(ctx, texts)
		})
		if err != nil {
			return nil, fmt.Errorf("embed: %w", err)
		}
		if len(out) != len(texts) {
			return nil, fmt.Errorf("embed: model returned %d vectors for %d chunks", len(out), len(texts))
		}
		vectors = append(vectors, out...)
	}
	return vectors, nil
}

// persist writes vectors and chunk rows. On failure both are cleared so a
// document never has a partial index.
func (p *IngestionPipeline) persist(ctx context.Context, id string, chunks []domain.Chunk, indexed []domain.IndexedChunk) error {
	_, err := retry(ctx, p.cfg.Retry, p.onRetry("index", id), func() (struct{}, error) {
		if err := p.index.Upsert(ctx, id, indexed); err != nil {
			return struct{}{}, err
		}
		return struct{}{}, p.store.ReplaceChunks(ctx, id, chunks)
	})
	if err == nil {
		return nil
	}

	cleanup := context.WithoutCancel(ctx)
	if derr := p.index.Delete(cleanup, id); derr != nil {
		logger.Warn("ingest: clearing vectors of %s: %v", id, derr)
	}
	if derr := p.store.ReplaceChunks(cleanup, id, nil); derr != nil {
		logger.Warn("ingest: clearing chunks of %s: %v", id, derr)
	}
	return fmt.Errorf("index: %w", err)
}

func (p *IngestionPipeline) onRetry(stage, id string) func(error, time.Duration) {
	return func(err error, wait time.Duration) {
		p.metrics.Retry(stage)
		logger.Warn("ingest: %s of %s failed, retrying in %s: %v", stage, id, wait.Round(time.Millisecond), err)
	}
}

// resolveParser picks the explicit plugin when one is named, otherwise the
// plugin registered for format.
func (p *IngestionPipeline) resolveParser(format, parserID string) (driven.Parser, error) {
	if parserID != "" {
		parser, err := p.parsers.ResolveByID(parserID)
		if err != nil {
			return nil, fmt.Errorf("parser %q: %w", parserID, err)
		}
		return parser, nil
	}
	parser, err := p.parsers.Resolve(format)
	if err != nil {
		return nil, fmt.Errorf("format %q: %w", format, err)
	}
	return parser, nil
}

// mergeMetadata layers extraction details over the caller's metadata.
func mergeMetadata(base map[string]any, meta domain.ParseMetadata, textWarnings []string) map[string]any {
	out := maps.Clone(base)
	if out == nil {
		out = make(map[string]any)
	}
	if meta.PageCount != nil {
		out[domain.MetaPageCount] = *meta.PageCount
	}
	if meta.ExtractionMethod != "" {
		out[domain.MetaExtractionMethod] = meta.ExtractionMethod
	}

	warnings := make([]string, 0, len(meta.Warnings)+len(textWarnings))
	warnings = append(warnings, meta.Warnings...)
	warnings = append(warnings, textWarnings...)
	if len(warnings) > 0 {
		out[domain.MetaWarnings] = warnings
	} else {
		delete(out, domain.MetaWarnings)
	}
	return out
}
