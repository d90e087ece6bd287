package domain

// AIProvider names a model provider in configuration.
type AIProvider string

const (
	AIProviderOllama    AIProvider = "ollama"
	AIProviderOpenAI    AIProvider = "openai"
	AIProviderAnthropic AIProvider = "anthropic"
	AIProviderFastEmbed AIProvider = "fastembed"
)

type providerTraits struct {
	embeds    bool
	generates bool
	needsKey  bool
}

var providers = map[AIProvider]providerTraits{
	AIProviderOllama:    {embeds: true, generates: true},
	AIProviderOpenAI:    {embeds: true, generates: true, needsKey: true},
	AIProviderAnthropic: {generates: true, needsKey: true},
	AIProviderFastEmbed: {embeds: true},
}

func (p AIProvider) IsValid() bool {
	_, ok := providers[p]
	return ok
}

func (p AIProvider) SupportsEmbedding() bool { return providers[p].embeds }
func (p AIProvider) SupportsLLM() bool       { return providers[p].generates }

// RequiresAPIKey reports whether the provider is a hosted API.
func (p AIProvider) RequiresAPIKey() bool { return providers[p].needsKey }

// EmbeddingDimensions maps well-known embedding models to their vector
// width, used when embedding.dimensions is not configured.
func EmbeddingDimensions() map[string]int {
	return map[string]int{
		"nomic-embed-text":                       768,
		"mxbai-embed-large":                      1024,
		"all-minilm":                             384,
		"text-embedding-3-small":                 1536,
		"text-embedding-3-large":                 3072,
		"text-embedding-ada-002":                 1536,
		"BAAI/bge-small-en-v1.5":                 384,
		"BAAI/bge-base-en-v1.5":                  768,
		"sentence-transformers/all-MiniLM-L6-v2": 384,
	}
}

// VectorBackend selects the VectorIndex implementation.
type VectorBackend string

const (
	VectorBackendMemory   VectorBackend = "memory"
	VectorBackendChromem  VectorBackend = "chromem"
	VectorBackendPgvector VectorBackend = "pgvector"
)

func (b VectorBackend) IsValid() bool {
	switch b {
	case VectorBackendMemory, VectorBackendChromem, VectorBackendPgvector:
		return true
	}
	return false
}

// IsPersistent reports whether vectors survive a restart.
func (b VectorBackend) IsPersistent() bool {
	return b == VectorBackendChromem || b == VectorBackendPgvector
}

// DedupPolicy decides what an upload of already-known bytes does.
type DedupPolicy string

const (
	// DedupReuse answers with the existing document, resubmitting it
	// first if it had failed.
	DedupReuse DedupPolicy = "reuse"
	// DedupOff always creates a new document.
	DedupOff DedupPolicy = "off"
)

func (p DedupPolicy) IsValid() bool {
	return p == DedupReuse || p == DedupOff
}

// PipelineConfig lists the text processors to run, in order, with an
// optional settings table per processor.
type PipelineConfig struct {
	Processors       []string
	ProcessorConfigs map[string]map[string]any
}

// GetProcessorConfig returns nil when name has no settings.
func (c *PipelineConfig) GetProcessorConfig(name string) map[string]any {
	return c.ProcessorConfigs[name]
}

// DefaultPipelineConfig sanitises text and caps it at 500000 runes.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Processors: []string{"sanitise", "truncate"},
		ProcessorConfigs: map[string]map[string]any{
			"truncate": {"max_runes": 500000},
		},
	}
}
