// Package domain defines the core business entities for printdesk.
//
// This package is part of the hexagonal architecture's innermost layer.
// It has NO external dependencies and defines the fundamental types:
//
//   - Section: A classified chunk of printer manual text
//   - PrinterModel: A registry entry with aliases and feature tags
//   - Resolution: Candidate printer models for a piece of free text
//   - FunnelStage: One disambiguation question, expressed as data
//   - SyncPlan: The diff between a manual source and the index
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
