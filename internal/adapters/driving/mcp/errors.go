// Package mcp provides an MCP (Model Context Protocol) server adapter for printdesk.
// It lets AI assistants search the printer manuals and identify printer models.
package mcp

import "errors"

// ErrMissingSearchService is returned when the search service is not provided.
var ErrMissingSearchService = errors.New("mcp: search service is required")

// ErrMissingResolver is returned when a printer tool is called without a resolver.
var ErrMissingResolver = errors.New("mcp: resolver service is not configured")
