package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/sercha-docs/internal/core/domain"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "SERCHA_"

// maxConfigFileSize caps the config file read.
const maxConfigFileSize = 1024 * 1024

// DefaultPath returns ~/.sercha-docs/config.toml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(home, ".sercha-docs", "config.toml"), nil
}

// Load builds the configuration from defaults, then the TOML file at path,
// then SERCHA_* environment variables, and validates the result.
//
// An empty path uses DefaultPath. A missing file at the default path is not
// an error; a missing file that was asked for explicitly is.
//
// Environment variables map onto keys by splitting on the first underscore
// after the prefix:
//
//	SERCHA_INGEST_CHUNK_SIZE -> ingest.chunk_size
//	SERCHA_LLM_API_KEY       -> llm.api_key
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	content, err := readConfigFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist) && !explicit:
		content = nil
	case err != nil:
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidConfig, err)
	}

	return load(content)
}

// load merges content and the environment over the defaults.
func load(content []byte) (*Config, error) {
	cfg := Default()
	k := koanf.New(".")

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), TOMLParser()); err != nil {
			return nil, fmt.Errorf("%w: parsing config file: %w", domain.ErrInvalidConfig, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", EnvKey), nil); err != nil {
		return nil, fmt.Errorf("%w: loading environment: %w", domain.ErrInvalidConfig, err)
	}

	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("%w: decoding config: %w", domain.ErrInvalidConfig, err)
	}

	if cfg.Storage.DataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("getting home directory: %w", err)
		}
		cfg.Storage.DataDir = filepath.Join(home, ".sercha-docs", "data")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// EnvKey converts SERCHA_SECTION_FIELD_NAME into section.field_name.
func EnvKey(name string) string {
	lower := strings.ToLower(strings.TrimPrefix(name, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}

func readConfigFile(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat config file: %w", err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("config path %s is a directory", path)
	}
	if info.Size() > maxConfigFileSize {
		return nil, fmt.Errorf("config file %s exceeds %d bytes", path, maxConfigFileSize)
	}

	data, err := io.ReadAll(io.LimitReader(f, maxConfigFileSize))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return data, nil
}

// tomlParser implements koanf.Parser with go-toml.
type tomlParser struct{}

// TOMLParser returns a koanf parser for TOML documents.
func TOMLParser() koanf.Parser {
	return tomlParser{}
}

// Unmarshal parses TOML bytes into a nested map.
func (tomlParser) Unmarshal(b []byte) (map[string]any, error) {
	var out map[string]any
	if err := toml.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = map[string]any{}
	}
	return out, nil
}

// Marshal renders a nested map as TOML.
func (tomlParser) Marshal(m map[string]any) ([]byte, error) {
	return toml.Marshal(m)
}
