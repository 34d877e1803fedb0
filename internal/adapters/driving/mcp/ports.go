package mcp

import (
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Search provides manual retrieval.
	Search driving.SearchService

	// Resolver identifies printer models from free text.
	Resolver driving.ResolverService

	// Registry lists the known printer models.
	Registry driving.RegistryService
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Search == nil {
		return ErrMissingSearchService
	}
	// Resolver and Registry only enable the printer tools.
	return nil
}
