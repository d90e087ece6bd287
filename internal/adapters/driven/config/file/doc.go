// Package file provides file-based configuration for sercha-docs.
//
// Adapters:
//   - Load: TOML file plus SERCHA_* environment overrides, decoded with koanf
//   - PromptStore: user-editable prompt templates with embedded defaults
package file
