package driven

import (
	"context"
	"time"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// SectionStore is the durable vector index of manual sections.
// It is the single writable copy of what is currently indexed.
type SectionStore interface {
	// Upsert stores sections with their vectors, replacing any section with
	// the same ID. Each call is atomic: readers see all of it or none of it.
	// Returns domain.ErrEmbeddingModelMismatch when the collection already
	// holds vectors of another embedding model.
	Upsert(ctx context.Context, sections []domain.Section, vectors [][]float32, embeddingModel string) error

	// DeleteByModel removes every section of a printer model and returns
	// the number removed.
	DeleteByModel(ctx context.Context, modelID string) (int, error)

	// Query returns the topK nearest sections ordered by ascending cosine
	// distance. A non-empty modelFilter restricts candidates to that model;
	// zero matches is not an error.
	Query(ctx context.Context, vector []float32, embeddingModel string, topK int, modelFilter string) ([]domain.SectionHit, error)

	// ModelHashes returns the source hash recorded for each indexed model.
	ModelHashes(ctx context.Context) (map[string]string, error)

	// Count returns the number of sections, for one model when modelID is set.
	Count(ctx context.Context, modelID string) (int, error)

	// EmbeddingModel returns the model recorded for the collection, "" if empty.
	EmbeddingModel(ctx context.Context) (string, error)

	// Close releases resources.
	Close() error
}

// WriteLock is a single-writer lease over the index.
// Sync jobs hold it for the duration of a run.
type WriteLock interface {
	// AcquireWriteLock takes the lease for holder. It returns
	// domain.ErrSyncInProgress while another unexpired holder owns it.
	AcquireWriteLock(ctx context.Context, holder string, ttl time.Duration) error

	// ReleaseWriteLock gives up the lease if holder owns it.
	ReleaseWriteLock(ctx context.Context, holder string) error
}

// RegistryStore persists printer model registry entries,
// separately from the vector index.
type RegistryStore interface {
	// Get returns a model by ID, domain.ErrNotFound if absent.
	Get(ctx context.Context, id string) (*domain.PrinterModel, error)

	// List returns all models ordered by ID.
	List(ctx context.Context) ([]domain.PrinterModel, error)

	// Save inserts or replaces a model.
	Save(ctx context.Context, model domain.PrinterModel) error

	// Delete removes a model. Deleting a missing model is not an error.
	Delete(ctx context.Context, id string) error
}

// SyncRunStore records the outcome of sync runs per source and which
// source last indexed each model.
type SyncRunStore interface {
	// SaveRun stores the stats of a finished run.
	SaveRun(ctx context.Context, stats domain.SyncStats) error

	// LastRun returns the most recent run for a source, nil if none.
	LastRun(ctx context.Context, source string) (*domain.SyncStats, error)

	// SetModelSource records the source that last indexed a model.
	// An empty Source forgets the model.
	SetModelSource(ctx context.Context, modelID string, src domain.ModelSource) error

	// ModelSources returns the recorded source of every model.
	ModelSources(ctx context.Context) (map[string]domain.ModelSource, error)
}
