package domain

import (
	"context"
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotImplemented indicates functionality is not yet available.
	ErrNotImplemented = errors.New("not implemented")

	// ErrInvalidConfig indicates the service was started with unusable configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// Parser Errors.

	// ErrUnsupportedFormat indicates no parser plugin is registered for a format.
	ErrUnsupportedFormat = errors.New("unsupported format")

	// ErrUnknownParser indicates an explicitly requested parser plugin does not exist.
	ErrUnknownParser = errors.New("unknown parser plugin")

	// ErrDuplicateParser indicates two plugins claimed the same format or ID.
	ErrDuplicateParser = errors.New("duplicate parser registration")

	// ErrRegistryFrozen indicates registration was attempted after startup.
	ErrRegistryFrozen = errors.New("parser registry is frozen")

	// ErrParseFailure indicates the input could not be parsed (corrupt or malformed).
	ErrParseFailure = errors.New("parse failure")

	// ErrUnsupportedEncoding indicates the text encoding could not be decoded.
	ErrUnsupportedEncoding = errors.New("unsupported encoding")

	// ErrEmptyContent indicates extraction produced no usable text.
	ErrEmptyContent = errors.New("empty content")

	// ErrOCRUnavailable indicates the OCR engine could not be reached or is not installed.
	ErrOCRUnavailable = errors.New("OCR engine unavailable")

	// ErrFileTooLarge indicates an upload exceeded the configured size limit.
	ErrFileTooLarge = errors.New("file too large")

	// Chunking and Embedding Errors.

	// ErrInvalidChunkConfig indicates chunk size and overlap are inconsistent.
	ErrInvalidChunkConfig = errors.New("invalid chunk configuration")

	// ErrEmbeddingUnavailable indicates the embedding model cannot be loaded or reached.
	ErrEmbeddingUnavailable = errors.New("embedding model unavailable")

	// ErrInputTooLong indicates a text exceeds the embedding model's token limit.
	ErrInputTooLong = errors.New("input too long for embedding model")

	// Vector Index Errors.

	// ErrIndexUnavailable indicates the vector index backing store is unreachable.
	ErrIndexUnavailable = errors.New("vector index unavailable")

	// ErrDimensionMismatch indicates a vector does not match the index dimension.
	// This is a configuration error and is never retried.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// Query Errors.

	// ErrRetrievalFailed indicates the query could not be embedded or searched.
	ErrRetrievalFailed = errors.New("retrieval failed")

	// ErrLLMUnavailable indicates the LLM service could not produce an answer.
	ErrLLMUnavailable = errors.New("LLM service unavailable")

	// ErrLLMTimeout indicates the LLM call exceeded its deadline.
	ErrLLMTimeout = errors.New("LLM request timed out")

	// Lifecycle Errors.

	// ErrInvalidTransition indicates a document status change is not permitted.
	ErrInvalidTransition = errors.New("invalid status transition")

	// ErrDocumentNotReady indicates the document has not finished processing.
	ErrDocumentNotReady = errors.New("document not ready")

	// ErrStoreBusy indicates the document store could not take a write lock in time.
	ErrStoreBusy = errors.New("document store busy")
)

// NewParseError wraps ErrParseFailure with a human-readable reason.
func NewParseError(reason string) error {
	return fmt.Errorf("%w: %s", ErrParseFailure, reason)
}

// IsRetriable reports whether err is a transient infrastructure failure
// that may succeed on a later attempt.
func IsRetriable(err error) bool {
	if err == nil {
		return false
	}
	if IsFatal(err) || IsInputError(err) {
		return false
	}
	return errors.Is(err, ErrEmbeddingUnavailable) ||
		errors.Is(err, ErrIndexUnavailable) ||
		errors.Is(err, ErrStoreBusy) ||
		errors.Is(err, ErrOCRUnavailable) ||
		errors.Is(err, ErrLLMUnavailable) ||
		errors.Is(err, ErrLLMTimeout) ||
		errors.Is(err, context.DeadlineExceeded)
}

// IsInputError reports whether err is caused by the submitted content itself.
// Input errors are terminal for a document and never retried.
func IsInputError(err error) bool {
	return errors.Is(err, ErrParseFailure) ||
		errors.Is(err, ErrUnsupportedFormat) ||
		errors.Is(err, ErrUnknownParser) ||
		errors.Is(err, ErrUnsupportedEncoding) ||
		errors.Is(err, ErrEmptyContent) ||
		errors.Is(err, ErrInputTooLong) ||
		errors.Is(err, ErrFileTooLarge) ||
		errors.Is(err, ErrInvalidInput)
}

// IsFatal reports whether err is a configuration error that must fail fast.
func IsFatal(err error) bool {
	return errors.Is(err, ErrDimensionMismatch) ||
		errors.Is(err, ErrInvalidChunkConfig) ||
		errors.Is(err, ErrDuplicateParser) ||
		errors.Is(err, ErrInvalidConfig)
}
