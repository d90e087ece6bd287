// Package driven holds the interfaces the core calls out through:
// parsing, text cleanup, embedding, vector search, persistence and
// generation. Adapters implement them; the core never imports an adapter.
//
// LLMService, PromptStore and TokenCounter may be nil. The core then
// skips answer generation, uses built-in prompts, and estimates tokens
// from character counts respectively.
package driven
