package driving

import (
	"context"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// IngestService indexes a single manual.
type IngestService interface {
	// IngestFile extracts, embeds and indexes a PDF for a model, replacing
	// whatever was indexed for that model before. An empty modelID is
	// derived from the file name.
	IngestFile(ctx context.Context, path, modelID string) (domain.IngestReport, error)
}

// SyncOrchestrator reconciles manual sources with the index.
type SyncOrchestrator interface {
	// Sources returns the names of the configured sources.
	Sources() []string

	// Plan computes what a sync of the source would change.
	Plan(ctx context.Context, source string) (domain.SyncPlan, error)

	// Sync applies the plan for a source under the single-writer lock.
	Sync(ctx context.Context, source string) (domain.SyncStats, error)

	// Status returns sync status for a source.
	Status(ctx context.Context, source string) (*SyncStatus, error)

	// Ingest indexes one local PDF under the single-writer lock.
	Ingest(ctx context.Context, path, modelID string) (domain.IngestReport, error)
}

// Scheduler runs sync jobs in the background.
type Scheduler interface {
	// Start runs sync jobs until Stop is called or ctx is cancelled.
	// It blocks for the lifetime of the scheduler.
	Start(ctx context.Context) error

	// Stop ends the loop and waits for the running job to finish.
	Stop() error

	// Trigger queues a sync of one source without waiting for it.
	Trigger(source string)
}

// SyncStatus represents the current state of a sync operation.
type SyncStatus struct {
	// Source identifies the source.
	Source string

	// Running indicates if sync is currently in progress.
	Running bool

	// LastRun holds the stats of the last completed run, nil if none.
	LastRun *domain.SyncStats
}
