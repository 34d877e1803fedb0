// Package sqlite provides the durable manual index on SQLite.
//
// This adapter uses modernc.org/sqlite, a pure Go SQLite implementation that requires
// no CGO, enabling easy cross-compilation. One database file holds:
//
//   - SectionStore: manual sections with their embedding vectors
//   - RegistryStore: printer model registry entries
//   - WriteLock: the single-writer lease taken by sync runs
//   - SyncRunStore: the outcome of past sync runs
//
// # Search
//
// Vectors are stored as little-endian float32 blobs. Queries are an exact
// brute-force cosine scan over the collection, which is small (a few thousand
// sections) and gives identical results on every run.
//
// # Schema
//
// The database schema is managed through versioned migrations stored in the
// migrations/ directory. Each migration is a pair of .up.sql and .down.sql files.
//
// # Data Location
//
// By default, the database is stored at ~/.printdesk/data/index.db
package sqlite
