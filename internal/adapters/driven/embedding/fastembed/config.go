package fastembed

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// ErrNotAvailable is returned when the binary was built without cgo.
var ErrNotAvailable = fmt.Errorf("%w: fastembed requires a cgo build", domain.ErrEmbeddingUnavailable)

// Default configuration values.
const (
	DefaultModel     = "BAAI/bge-small-en-v1.5"
	DefaultMaxLength = 512
	DefaultBatchSize = 256
)

// Config holds configuration for the fastembed service.
type Config struct {
	// Model is the model name (default: BAAI/bge-small-en-v1.5).
	Model string

	// CacheDir holds downloaded model files (default: ~/.sercha-docs/models).
	CacheDir string

	// MaxLength is the maximum token sequence length (default: 512).
	MaxLength int

	// BatchSize is the inference batch size (default: 256).
	BatchSize int
}

func (c Config) withDefaults() Config {
	if c.Model == "" {
		c.Model = DefaultModel
	}
	if c.CacheDir == "" {
		c.CacheDir = defaultCacheDir()
	}
	if c.MaxLength <= 0 {
		c.MaxLength = DefaultMaxLength
	}
	if c.BatchSize <= 0 {
		c.BatchSize = DefaultBatchSize
	}
	return c
}

func defaultCacheDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "local_cache")
	}
	return filepath.Join(home, ".sercha-docs", "models")
}

// ModelDimension returns the vector size for a supported model.
func ModelDimension(model string) (int, bool) {
	d, ok := domain.EmbeddingDimensions()[model]
	return d, ok
}

// IsNotAvailable reports whether err means the adapter was compiled out.
func IsNotAvailable(err error) bool {
	return errors.Is(err, ErrNotAvailable)
}
