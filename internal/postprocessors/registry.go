package postprocessors

import (
	"fmt"
	"maps"
	"slices"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors/sanitise"
	"github.com/custodia-labs/sercha-docs/internal/postprocessors/truncate"
)

// Builder makes a processor from its settings table. Settings come from
// decoded config, so numbers may be any of int, int64 or float64.
type Builder func(settings map[string]any) (driven.TextProcessor, error)

// Registry resolves processor names from configuration.
type Registry struct {
	builders map[string]Builder
}

func NewRegistry() *Registry {
	return &Registry{builders: map[string]Builder{}}
}

// NewDefaultRegistry knows the built-in sanitise and truncate stages.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(sanitise.Name, func(map[string]any) (driven.TextProcessor, error) {
		return sanitise.New(), nil
	})
	r.Register(truncate.Name, func(settings map[string]any) (driven.TextProcessor, error) {
		var opts []truncate.Option
		if n := intSetting(settings, "max_runes"); n > 0 {
			opts = append(opts, truncate.WithMaxRunes(n))
		}
		return truncate.New(opts...), nil
	})
	return r
}

// Register replaces any builder already known under name.
func (r *Registry) Register(name string, b Builder) {
	r.builders[name] = b
}

func (r *Registry) Build(name string, settings map[string]any) (driven.TextProcessor, error) {
	b, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown processor %q (known: %v)", domain.ErrInvalidConfig, name, r.Names())
	}
	return b(settings)
}

// Names lists registered processors alphabetically.
func (r *Registry) Names() []string {
	return slices.Sorted(maps.Keys(r.builders))
}

// BuildPipeline builds the stages named in cfg in their listed order.
func (r *Registry) BuildPipeline(cfg domain.PipelineConfig) (*Pipeline, error) {
	p := NewPipeline()
	for _, name := range cfg.Processors {
		proc, err := r.Build(name, cfg.GetProcessorConfig(name))
		if err != nil {
			return nil, err
		}
		p.Add(proc)
	}
	return p, nil
}

func intSetting(settings map[string]any, key string) int {
	switch v := settings[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
