// Package driving defines what the CLI, the MCP server and the TUI can ask
// of the core: search, model resolution and the funnel, registry upkeep,
// ingest and sync, and settings.
//
// Implementations live in internal/core/services.
package driving
