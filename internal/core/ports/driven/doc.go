// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the application to function:
//
//   - SectionStore: Durable vector index of manual sections
//   - RegistryStore: Printer model registry persistence
//   - EmbeddingService: Query and document embeddings from one model
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
//   - WriteLock: Cross-process single-writer lease for index mutation
//   - ManualSource: Lists and fetches manual PDFs for sync
//   - PageReader: Reads PDF pages as text for extraction
//
// There is no degraded mode: when the SectionStore or EmbeddingService is
// unavailable, search fails with an error instead of falling back.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: adapters, services or the extractor
package driven
