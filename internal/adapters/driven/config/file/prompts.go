package file

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"text/template"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/logger"
)

var _ driven.PromptStore = (*PromptStore)(nil)

const promptExt = ".tmpl"

//go:embed prompts/*.tmpl prompts/README.md
var builtinPrompts embed.FS

// DefaultPrompt returns the built-in template for name.
func DefaultPrompt(name string) (string, bool) {
	data, err := builtinPrompts.ReadFile(path.Join("prompts", name+promptExt))
	if err != nil {
		return "", false
	}
	return strings.TrimSpace(string(data)), true
}

// PromptStore serves templates from a directory the user may edit. The
// directory is seeded with the built-in templates on first use; files
// already there are never overwritten.
type PromptStore struct {
	dir  string
	seed func() error

	mu    sync.RWMutex
	cache map[string]string
}

// NewPromptStore does no I/O. An empty dir means ~/.sercha-docs/prompts.
func NewPromptStore(dir string) (*PromptStore, error) {
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("get home directory: %w", err)
		}
		dir = filepath.Join(home, ".sercha-docs", "prompts")
	}

	s := &PromptStore{dir: dir, cache: map[string]string{}}
	s.seed = sync.OnceValue(s.writeDefaults)
	return s, nil
}

func (s *PromptStore) Dir() string { return s.dir }

// Load prefers the file on disk and falls back to the built-in template
// when the file is missing or does not parse.
func (s *PromptStore) Load(name string) (string, error) {
	if strings.ContainsAny(name, `/\.`) {
		return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
	}
	if err := s.seed(); err != nil {
		logger.Debug("prompt directory unavailable: %v", err)
	}

	s.mu.RLock()
	text, ok := s.cache[name]
	s.mu.RUnlock()
	if ok {
		return text, nil
	}

	text, err := s.readFile(name)
	if err != nil {
		builtin, found := DefaultPrompt(name)
		if !found {
			return "", fmt.Errorf("%w: prompt %q", domain.ErrNotFound, name)
		}
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("prompt %s: %v; using built-in template", name, err)
		}
		text = builtin
	}

	s.mu.Lock()
	if cached, ok := s.cache[name]; ok {
		text = cached
	} else {
		s.cache[name] = text
	}
	s.mu.Unlock()
	return text, nil
}

// Reload drops cached templates so edits on disk are seen.
func (s *PromptStore) Reload() {
	s.mu.Lock()
	clear(s.cache)
	s.mu.Unlock()
}

func (s *PromptStore) readFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name+promptExt))
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(string(data))
	if _, err := template.New(name).Parse(text); err != nil {
		return "", fmt.Errorf("parse: %w", err)
	}
	return text, nil
}

// writeDefaults copies every embedded file that is not already on disk.
func (s *PromptStore) writeDefaults() error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create prompt directory: %w", err)
	}
	entries, err := builtinPrompts.ReadDir("prompts")
	if err != nil {
		return err
	}
	for _, e := range entries {
		target := filepath.Join(s.dir, e.Name())
		if _, err := os.Stat(target); err == nil {
			continue
		}
		data, err := builtinPrompts.ReadFile(path.Join("prompts", e.Name()))
		if err != nil {
			return err
		}
		if err := os.WriteFile(target, data, 0o600); err != nil {
			return fmt.Errorf("write %s: %w", e.Name(), err)
		}
	}
	return nil
}
