package fastembed

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConfig_WithDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultMaxLength, cfg.MaxLength)
	assert.Equal(t, DefaultBatchSize, cfg.BatchSize)
	assert.NotEmpty(t, cfg.CacheDir)

	cfg = Config{Model: "BAAI/bge-base-en-v1.5", CacheDir: "/tmp/m", MaxLength: 128, BatchSize: 8}.withDefaults()
	assert.Equal(t, "/tmp/m", cfg.CacheDir)
	assert.Equal(t, 128, cfg.MaxLength)
	assert.Equal(t, 8, cfg.BatchSize)
}

func TestModelDimension(t *testing.T) {
	d, ok := ModelDimension("BAAI/bge-small-en-v1.5")
	assert.True(t, ok)
	assert.Equal(t, 384, d)

	d, ok = ModelDimension("BAAI/bge-base-en-v1.5")
	assert.True(t, ok)
	assert.Equal(t, 768, d)

	_, ok = ModelDimension("unknown/model")
	assert.False(t, ok)
}

func TestIsNotAvailable(t *testing.T) {
	assert.True(t, IsNotAvailable(ErrNotAvailable))
}
