// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// The ingestion pipeline owns the worker pool; retrieval, answer
// composition and summarisation are stateless and safe for concurrent use.
package services
