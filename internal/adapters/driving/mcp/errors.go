// Package mcp provides an MCP (Model Context Protocol) server adapter for sercha-docs.
// It lets AI assistants query, search and summarise the indexed documents.
package mcp

import "errors"

// ErrMissingQueryService is returned when the query service is not provided.
var ErrMissingQueryService = errors.New("mcp: query service is required")
