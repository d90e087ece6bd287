package file

import (
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// Config is the complete service configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Storage   StorageConfig   `koanf:"storage"`
	Ingest    IngestConfig    `koanf:"ingest"`
	OCR       OCRConfig       `koanf:"ocr"`
	Embedding EmbeddingConfig `koanf:"embedding"`
	LLM       LLMConfig       `koanf:"llm"`
	Vector    VectorConfig    `koanf:"vector"`
	Retrieval RetrievalConfig `koanf:"retrieval"`
	Log       LogConfig       `koanf:"log"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	BodyLimitMB     int           `koanf:"body_limit_mb"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	// IngestRoot is the only directory POST /documents/ingest reads from.
	// Empty disables ingesting server-side paths.
	IngestRoot string `koanf:"ingest_root"`
}

// StorageConfig holds document store settings.
type StorageConfig struct {
	// DataDir holds the SQLite database and uploaded files.
	DataDir string `koanf:"data_dir"`

	// Ephemeral keeps documents in memory only.
	Ephemeral bool `koanf:"ephemeral"`
}

// IngestConfig holds ingestion pipeline settings.
type IngestConfig struct {
	Workers        int           `koanf:"workers"`
	QueueSize      int           `koanf:"queue_size"`
	ChunkSize      int           `koanf:"chunk_size"`
	ChunkOverlap   int           `koanf:"chunk_overlap"`
	MaxAttempts    int           `koanf:"max_attempts"`
	InitialBackoff time.Duration `koanf:"initial_backoff"`
	MaxBackoff     time.Duration `koanf:"max_backoff"`
	ParseTimeout   time.Duration `koanf:"parse_timeout"`
	StaleAfter     time.Duration `koanf:"stale_after"`
	SweepInterval  time.Duration `koanf:"sweep_interval"`
	PollInterval   time.Duration `koanf:"poll_interval"`
	MaxRawText     int           `koanf:"max_raw_text"`
	Dedup          string        `koanf:"dedup"`
	MaxFileSizeMB  int           `koanf:"max_file_size_mb"`
	WatchDir       string        `koanf:"watch_dir"`
}

// OCRConfig holds the optional tesseract engine settings.
type OCRConfig struct {
	Enabled  bool   `koanf:"enabled"`
	Language string `koanf:"language"`
}

// EmbeddingConfig selects and tunes the embedding provider.
type EmbeddingConfig struct {
	Provider          string        `koanf:"provider"`
	Model             string        `koanf:"model"`
	BaseURL           string        `koanf:"base_url"`
	APIKey            string        `koanf:"api_key"`
	Dimensions        int           `koanf:"dimensions"`
	Timeout           time.Duration `koanf:"timeout"`
	BatchSize         int           `koanf:"batch_size"`
	MaxTokens         int           `koanf:"max_tokens"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	CacheDir          string        `koanf:"cache_dir"`
}

// LLMConfig selects and tunes the answer model. An empty provider disables answers.
type LLMConfig struct {
	Provider      string        `koanf:"provider"`
	Model         string        `koanf:"model"`
	BaseURL       string        `koanf:"base_url"`
	APIKey        string        `koanf:"api_key"`
	Timeout       time.Duration `koanf:"timeout"`
	Temperature   float64       `koanf:"temperature"`
	MaxTokens     int           `koanf:"max_tokens"`
	ContextTokens int           `koanf:"context_tokens"`
	PromptDir     string        `koanf:"prompt_dir"`
}

// VectorConfig selects the vector index backend.
type VectorConfig struct {
	Backend  string        `koanf:"backend"`
	Path     string        `koanf:"path"`
	DSN      string        `koanf:"dsn"`
	Table    string        `koanf:"table"`
	Compress bool          `koanf:"compress"`
	Timeout  time.Duration `koanf:"timeout"`
}

// RetrievalConfig holds query defaults.
type RetrievalConfig struct {
	TopK           int `koanf:"top_k"`
	MaxPerDocument int `koanf:"max_per_document"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8080",
			BodyLimitMB:     100,
			ShutdownTimeout: 10 * time.Second,
		},
		Ingest: IngestConfig{
			Workers:        4,
			QueueSize:      256,
			ChunkSize:      1000,
			ChunkOverlap:   200,
			MaxAttempts:    4,
			InitialBackoff: 500 * time.Millisecond,
			MaxBackoff:     30 * time.Second,
			ParseTimeout:   2 * time.Minute,
			StaleAfter:     15 * time.Minute,
			SweepInterval:  time.Minute,
			PollInterval:   10 * time.Second,
			MaxRawText:     500000,
			Dedup:          string(domain.DedupReuse),
			MaxFileSizeMB:  50,
		},
		OCR: OCRConfig{
			Language: "eng",
		},
		Embedding: EmbeddingConfig{
			Provider:  string(domain.AIProviderOllama),
			Timeout:   60 * time.Second,
			BatchSize: 32,
		},
		LLM: LLMConfig{
			Timeout:       2 * time.Minute,
			Temperature:   0.2,
			MaxTokens:     1024,
			ContextTokens: 3000,
		},
		Vector: VectorConfig{
			Backend: string(domain.VectorBackendChromem),
			Table:   "chunk_vectors",
			Timeout: 10 * time.Second,
		},
		Retrieval: RetrievalConfig{
			TopK: domain.DefaultTopK,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Validate reports every unusable setting, wrapped in domain.ErrInvalidConfig.
func (c *Config) Validate() error {
	var errs []error
	add := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if c.Ingest.Workers < 1 {
		add("ingest.workers must be at least 1, got %d", c.Ingest.Workers)
	}
	if c.Ingest.QueueSize < 1 {
		add("ingest.queue_size must be at least 1, got %d", c.Ingest.QueueSize)
	}
	if c.Ingest.ChunkSize <= 0 {
		add("ingest.chunk_size must be positive, got %d", c.Ingest.ChunkSize)
	}
	if c.Ingest.ChunkOverlap < 0 || c.Ingest.ChunkOverlap >= c.Ingest.ChunkSize {
		add("ingest.chunk_overlap must be in [0, chunk_size), got %d", c.Ingest.ChunkOverlap)
	}
	if c.Ingest.MaxAttempts < 1 {
		add("ingest.max_attempts must be at least 1, got %d", c.Ingest.MaxAttempts)
	}
	if c.Ingest.InitialBackoff <= 0 || c.Ingest.MaxBackoff < c.Ingest.InitialBackoff {
		add("ingest backoff must satisfy 0 < initial_backoff <= max_backoff")
	}
	if c.Ingest.StaleAfter <= 0 || c.Ingest.SweepInterval <= 0 || c.Ingest.PollInterval <= 0 {
		add("ingest stale_after, sweep_interval and poll_interval must be positive")
	}
	if !domain.DedupPolicy(c.Ingest.Dedup).IsValid() {
		add("ingest.dedup %q is not one of reuse, off", c.Ingest.Dedup)
	}
	if c.Ingest.MaxFileSizeMB <= 0 {
		add("ingest.max_file_size_mb must be positive, got %d", c.Ingest.MaxFileSizeMB)
	}

	embed := domain.AIProvider(c.Embedding.Provider)
	if !embed.IsValid() || !embed.SupportsEmbedding() {
		add("embedding.provider %q does not support embeddings", c.Embedding.Provider)
	} else if embed.RequiresAPIKey() && c.Embedding.APIKey == "" {
		add("embedding.api_key is required for %s", embed)
	}
	if c.Embedding.Dimensions < 0 {
		add("embedding.dimensions must not be negative")
	}
	if model := c.Embedding.Model; model != "" && c.Embedding.Dimensions > 0 {
		if known, ok := domain.EmbeddingDimensions()[model]; ok && known != c.Embedding.Dimensions &&
			!supportsReducedDimensions(model) {
			add("embedding.dimensions %d does not match model %s (%d): %v",
				c.Embedding.Dimensions, model, known, domain.ErrDimensionMismatch)
		}
	}
	if c.Embedding.BatchSize < 1 {
		add("embedding.batch_size must be at least 1, got %d", c.Embedding.BatchSize)
	}

	if c.LLM.Provider != "" {
		llm := domain.AIProvider(c.LLM.Provider)
		if !llm.IsValid() || !llm.SupportsLLM() {
			add("llm.provider %q does not support text generation", c.LLM.Provider)
		} else if llm.RequiresAPIKey() && c.LLM.APIKey == "" {
			add("llm.api_key is required for %s", llm)
		}
	}
	if c.LLM.ContextTokens < 0 {
		add("llm.context_tokens must not be negative")
	}

	backend := domain.VectorBackend(c.Vector.Backend)
	if !backend.IsValid() {
		add("vector.backend %q is not one of memory, chromem, pgvector", c.Vector.Backend)
	}
	if backend == domain.VectorBackendPgvector && c.Vector.DSN == "" {
		add("vector.dsn is required for pgvector")
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > domain.MaxTopK {
		add("retrieval.top_k must be in [1, %d], got %d", domain.MaxTopK, c.Retrieval.TopK)
	}
	if c.Retrieval.MaxPerDocument < 0 {
		add("retrieval.max_per_document must not be negative")
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrInvalidConfig, errors.Join(errs...))
}

// supportsReducedDimensions reports models that accept a smaller requested dimension.
func supportsReducedDimensions(model string) bool {
	return model == "text-embedding-3-small" || model == "text-embedding-3-large"
}

// Redacted returns a copy with API keys masked.
func (c Config) Redacted() Config {
	if c.Embedding.APIKey != "" {
		c.Embedding.APIKey = redacted
	}
	if c.LLM.APIKey != "" {
		c.LLM.APIKey = redacted
	}
	return c
}

const redacted = "****"
