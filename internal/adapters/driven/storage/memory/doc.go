// Package memory provides in-memory implementations of the driven storage
// ports. They back tests and the --dry-run mode of sync, where nothing may
// be written to disk.
package memory
