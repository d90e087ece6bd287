// Package sqlite provides the SQLite-backed document store.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation.
//
// # Schema
//
// The database schema is managed through versioned migrations embedded from the
// migrations/ directory. Files are named NNN_name.up.sql and applied in order;
// applied versions are recorded in schema_migrations.
//
// # Data Location
//
// By default, the database is stored at ~/.sercha-docs/data/documents.db
//
// # Thread Safety
//
// All operations are thread-safe. Status changes are single conditional
// UPDATE statements, so a claim has exactly one winner even across processes
// sharing the database file.
package sqlite
