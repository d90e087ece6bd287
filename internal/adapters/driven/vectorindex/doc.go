// Package vectorindex holds the vector index backends and the helpers
// they share.
//
// Backends:
//   - memory: in-process, copy-on-write snapshots
//   - chromem: embedded persistent database (chromem-go)
//   - pgvector: PostgreSQL with the pgvector extension
package vectorindex
