// Package services holds the printdesk core: retrieval, model
// resolution and the disambiguation funnel, registry upkeep, ingest,
// sync and the sync scheduler. Services depend only on ports; adapters
// are injected by cmd/printdesk.
package services
