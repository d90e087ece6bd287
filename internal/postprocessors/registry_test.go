package postprocessors

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driven"
)

func TestRegistry_BuildPassesSettings(t *testing.T) {
	r := NewRegistry()
	assert.Empty(t, r.Names())

	r.Register("named", func(settings map[string]any) (driven.TextProcessor, error) {
		name, _ := settings["name"].(string)
		return &mockProcessor{name: name}, nil
	})

	proc, err := r.Build("named", map[string]any{"name": "custom"})
	require.NoError(t, err)
	assert.Equal(t, "custom", proc.Name())

	_, err = r.Build("unknown", nil)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	assert.ErrorContains(t, err, "named")
}

func TestNewDefaultRegistry(t *testing.T) {
	assert.Equal(t, []string{"sanitise", "truncate"}, NewDefaultRegistry().Names())
}

func TestRegistry_BuildPipeline(t *testing.T) {
	p, err := NewDefaultRegistry().BuildPipeline(domain.PipelineConfig{
		Processors: []string{"sanitise", "truncate"},
		ProcessorConfigs: map[string]map[string]any{
			"truncate": {"max_runes": int64(5)},
		},
	})
	require.NoError(t, err)
	require.Equal(t, 2, p.Len())

	res, err := p.Process(context.Background(), "hello\r\nworld")
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Text)
	assert.Len(t, res.Warnings, 1)
}

func TestRegistry_BuildPipelineUnknownStage(t *testing.T) {
	_, err := NewDefaultRegistry().BuildPipeline(domain.PipelineConfig{Processors: []string{"sanitise", "translate"}})
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestIntSetting(t *testing.T) {
	tests := []struct {
		name     string
		settings map[string]any
		want     int
	}{
		{"int", map[string]any{"n": 100}, 100},
		{"int64 from toml", map[string]any{"n": int64(200)}, 200},
		{"float64 from json", map[string]any{"n": float64(300)}, 300},
		{"string ignored", map[string]any{"n": "400"}, 0},
		{"missing", map[string]any{"other": 1}, 0},
		{"nil table", nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, intSetting(tt.settings, "n"))
		})
	}
}
