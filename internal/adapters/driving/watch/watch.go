// Package watch ingests files dropped into an inbox directory.
package watch

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

// DefaultDebounce is how long a file must be quiet before it is ingested.
const DefaultDebounce = 500 * time.Millisecond

// ErrNoDirectory is returned when the watcher has no directory to watch.
var ErrNoDirectory = errors.New("watch: directory is required")

// Config configures a Watcher.
type Config struct {
	// Dir is the inbox directory. It is created if missing.
	Dir string

	// Debounce delays ingestion until writes to a file settle.
	Debounce time.Duration
}

// Watcher submits new and modified files in Dir to the ingest service.
// Repeated events for unchanged content are harmless: uploads are
// deduplicated by content hash.
type Watcher struct {
	ingest    driving.IngestService
	dir       string
	debounce  time.Duration
	supported map[string]bool

	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer
	ready   chan string
	stopCh  chan struct{}
	wg      sync.WaitGroup
	fs      *fsnotify.Watcher
}

// New creates a Watcher that accepts files whose extension is one of formats.
func New(ingest driving.IngestService, formats []string, cfg Config) (*Watcher, error) {
	if cfg.Dir == "" {
		return nil, ErrNoDirectory
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultDebounce
	}

	supported := make(map[string]bool, len(formats))
	for _, f := range formats {
		supported[strings.ToLower(f)] = true
	}

	return &Watcher{
		ingest:    ingest,
		dir:       cfg.Dir,
		debounce:  cfg.Debounce,
		supported: supported,
		timers:    make(map[string]*time.Timer),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Start begins watching. Files already in the directory are ingested too.
// It returns immediately; call Stop to release the watcher.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("creating watch dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	if err := fw.Add(w.dir); err != nil {
		fw.Close()
		return fmt.Errorf("watching %s: %w", w.dir, err)
	}

	w.fs = fw
	w.ready = make(chan string, 64)
	w.stopCh = make(chan struct{})
	w.running = true

	entries, err := os.ReadDir(w.dir)
	if err != nil {
		logger.Warn("watch: scanning %s: %v", w.dir, err)
	}
	for _, entry := range entries {
		path := filepath.Join(w.dir, entry.Name())
		if w.accepts(path) {
			w.scheduleLocked(path)
		}
	}

	w.wg.Add(1)
	go w.loop(ctx, fw, w.stopCh)

	logger.Info("Watching %s for new documents", w.dir)
	return nil
}

// Stop cancels pending debounces and waits for the event loop to exit.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	close(w.stopCh)
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
	fw := w.fs
	w.mu.Unlock()

	w.wg.Wait()
	fw.Close()
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher, stop <-chan struct{}) {
	defer w.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if path, ok := w.handleEvent(event); ok {
				w.schedule(path)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			logger.Warn("watch: %v", err)
		case path := <-w.ready:
			w.ingestFile(ctx, path)
		}
	}
}

// handleEvent returns the path to ingest for a filesystem event.
// Only creates and writes of accepted files qualify.
func (w *Watcher) handleEvent(event fsnotify.Event) (string, bool) {
	if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
		return "", false
	}
	if !w.accepts(event.Name) {
		return "", false
	}
	return event.Name, true
}

// accepts reports whether path is a visible regular file with a supported extension.
func (w *Watcher) accepts(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return false
	}
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(base), "."))
	if ext == "" || !w.supported[ext] {
		return false
	}
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

func (w *Watcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		w.scheduleLocked(path)
	}
}

func (w *Watcher) scheduleLocked(path string) {
	if t, ok := w.timers[path]; ok {
		t.Reset(w.debounce)
		return
	}

	stop, ready := w.stopCh, w.ready
	w.timers[path] = time.AfterFunc(w.debounce, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()

		select {
		case ready <- path:
		case <-stop:
		}
	})
}

func (w *Watcher) ingestFile(ctx context.Context, path string) {
	log := logger.With(zap.String("path", path))

	content, err := os.ReadFile(path)
	if err != nil {
		log.Warnw("reading watched file", "error", err)
		return
	}
	if len(content) == 0 {
		// A later write event brings the content.
		return
	}

	ref, err := w.ingest.Ingest(ctx, driving.IngestRequest{
		Name:     filepath.Base(path),
		Content:  content,
		Metadata: map[string]any{"source": "watch"},
	})
	if err != nil {
		log.Warnw("ingesting watched file", "error", err)
		return
	}
	if ref.Duplicate {
		log.Debugw("watched file already ingested", "document_id", ref.ID)
		return
	}
	log.Infow("queued watched file", "document_id", ref.ID)
}
