// Package api serves the sercha-docs REST API over fiber.
package api

import (
	"context"
	"errors"

	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

var (
	// ErrMissingIngestService is returned when the ingest service is not provided.
	ErrMissingIngestService = errors.New("api: ingest service is required")

	// ErrMissingDocumentService is returned when the document service is not provided.
	ErrMissingDocumentService = errors.New("api: document service is required")

	// ErrMissingQueryService is returned when the query service is not provided.
	ErrMissingQueryService = errors.New("api: query service is required")
)

// Ports aggregates the driving ports served over HTTP.
type Ports struct {
	Ingest   driving.IngestService
	Document driving.DocumentService
	Query    driving.QueryService

	// Admin is optional. Without it the admin routes answer 501.
	Admin driving.AdminService

	// Index is optional. It feeds the health and readiness reports.
	Index IndexStats
}

// IndexStats reports on the vector index.
type IndexStats interface {
	Count(ctx context.Context) (int, error)
	Dimensions() int
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	switch {
	case p.Ingest == nil:
		return ErrMissingIngestService
	case p.Document == nil:
		return ErrMissingDocumentService
	case p.Query == nil:
		return ErrMissingQueryService
	}
	return nil
}
