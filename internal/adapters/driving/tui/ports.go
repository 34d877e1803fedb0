// Package tui provides an interactive terminal assistant for printdesk.
// It identifies the user's printer, asking disambiguation questions when
// needed, then searches that printer's manual.
package tui

import (
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
)

// Ports aggregates all driving port interfaces required by the TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Resolver identifies printer models and runs the funnel.
	Resolver driving.ResolverService

	// Search provides manual retrieval. Without it the assistant stops
	// once the printer is identified.
	Search driving.SearchService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p == nil {
		return ErrInvalidPorts
	}
	if p.Resolver == nil {
		return ErrMissingResolver
	}
	return nil
}
