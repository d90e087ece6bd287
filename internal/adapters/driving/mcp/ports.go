package mcp

import (
	"github.com/custodia-labs/sercha-docs/internal/core/ports/driving"
)

// Ports are the services the MCP server calls into.
type Ports struct {
	Query driving.QueryService

	// Document is optional. Without it the document tools fail and the
	// document resources list nothing.
	Document driving.DocumentService
}

// Validate reports a missing required port.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	return nil
}
