package parsers

import (
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

// Ensure Registry implements the interface.
var _ driven.ParserRegistry = (*Registry)(nil)

// Registry maps format identifiers and plugin IDs to parsers.
type Registry struct {
	mu      sync.RWMutex
	formats map[string]driven.Parser
	byID    map[string]driven.Parser
	frozen  bool
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		formats: make(map[string]driven.Parser),
		byID:    make(map[string]driven.Parser),
	}
}

// Register adds a parser under its ID and every format it reports.
// Registration is all-or-nothing: on conflict nothing is added.
func (r *Registry) Register(p driven.Parser) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return domain.ErrRegistryFrozen
	}

	id := p.ID()
	if id == "" {
		return fmt.Errorf("%w: parser has empty ID", domain.ErrInvalidConfig)
	}
	if _, exists := r.byID[id]; exists {
		return fmt.Errorf("%w: plugin %q", domain.ErrDuplicateParser, id)
	}

	formats := make([]string, 0, len(p.SupportedFormats()))
	seen := make(map[string]bool)
	for _, f := range p.SupportedFormats() {
		f = domain.NormaliseFormat(f)
		if f == "" || seen[f] {
			continue
		}
		if owner, exists := r.formats[f]; exists {
			return fmt.Errorf("%w: format %q already handled by %q", domain.ErrDuplicateParser, f, owner.ID())
		}
		seen[f] = true
		formats = append(formats, f)
	}

	r.byID[id] = p
	for _, f := range formats {
		r.formats[f] = p
	}
	return nil
}

// Freeze makes the registry read-only.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Resolve returns the parser registered for format.
func (r *Registry) Resolve(format string) (driven.Parser, error) {
	f := domain.NormaliseFormat(format)

	r.mu.RLock()
	p, ok := r.formats[f]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedFormat, format)
	}
	return p, nil
}

// ResolveByID returns the parser with the given plugin ID.
func (r *Registry) ResolveByID(id string) (driven.Parser, error) {
	r.mu.RLock()
	p, ok := r.byID[id]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownParser, id)
	}
	return p, nil
}

// ListSupportedFormats returns every registered identifier, sorted.
func (r *Registry) ListSupportedFormats() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.formats))
	for f := range r.formats {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Plugins describes the registered parsers, sorted by ID.
func (r *Registry) Plugins() []driven.PluginInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byParser := make(map[string][]string, len(r.byID))
	for f, p := range r.formats {
		byParser[p.ID()] = append(byParser[p.ID()], f)
	}

	out := make([]driven.PluginInfo, 0, len(r.byID))
	for id := range r.byID {
		formats := byParser[id]
		sort.Strings(formats)
		out = append(out, driven.PluginInfo{ID: id, Formats: formats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
