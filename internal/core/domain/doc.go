// Package domain defines the core business entities for Sercha Docs.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Document: An uploaded file and its processing lifecycle
//   - Chunk: A contiguous, indexed slice of a document's text
//   - SearchHit / Source: Ranked retrieval results with attribution
//   - QueryResult / Summary: Answers assembled from retrieved context
//
// # Architectural Position
//
// Domain is at the centre of the hexagon. It may only import
// the Go standard library. All other packages depend on domain,
// never the reverse.
//
// # Import Rules
//
//   - Can Import: Standard library only
//   - Cannot Import: Any internal/ package, any external dependency
package domain
