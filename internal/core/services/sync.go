package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
)

// Ensure SyncOrchestrator implements the interface.
var _ driving.SyncOrchestrator = (*SyncOrchestrator)(nil)

// DefaultLockTTL bounds how long a crashed writer can block others.
const DefaultLockTTL = 30 * time.Minute

// ManualIngestSource owns models indexed with Ingest. No source sync
// removes them.
const ManualIngestSource = "ingest"

// SyncOrchestrator reconciles manual sources with the section index.
// Every write runs under the store's single-writer lease.
type SyncOrchestrator struct {
	store   driven.SectionStore
	lock    driven.WriteLock
	runs    driven.SyncRunStore
	ingest  driving.IngestService
	sources map[string]driven.ManualSource
	lockTTL time.Duration
	now     func() time.Time

	// Status tracking
	mu      sync.Mutex
	running map[string]bool
}

// NewSyncOrchestrator creates a new sync orchestrator.
// The runs store is optional; without it Status reports no history.
func NewSyncOrchestrator(
	store driven.SectionStore,
	lock driven.WriteLock,
	runs driven.SyncRunStore,
	ingest driving.IngestService,
	sources ...driven.ManualSource,
) *SyncOrchestrator {
	o := &SyncOrchestrator{
		store:   store,
		lock:    lock,
		runs:    runs,
		ingest:  ingest,
		sources: make(map[string]driven.ManualSource, len(sources)),
		lockTTL: DefaultLockTTL,
		now:     time.Now,
		running: make(map[string]bool),
	}
	for _, src := range sources {
		o.sources[src.Name()] = src
	}
	return o
}

// SetLockTTL changes the lease duration taken for each run.
func (o *SyncOrchestrator) SetLockTTL(ttl time.Duration) {
	if ttl > 0 {
		o.lockTTL = ttl
	}
}

// Sources returns the configured source names, sorted.
func (o *SyncOrchestrator) Sources() []string {
	names := make([]string, 0, len(o.sources))
	for name := range o.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (o *SyncOrchestrator) source(name string) (driven.ManualSource, error) {
	src, ok := o.sources[name]
	if !ok {
		return nil, fmt.Errorf("%w: source %q", domain.ErrNotFound, name)
	}
	return src, nil
}

// Plan diffs the source listing against the indexed hashes. Only models
// last indexed by this source are planned for removal.
// When several files map to one model the first by name wins.
func (o *SyncOrchestrator) Plan(ctx context.Context, name string) (domain.SyncPlan, error) {
	src, err := o.source(name)
	if err != nil {
		return domain.SyncPlan{}, err
	}

	files, err := src.List(ctx)
	if err != nil {
		return domain.SyncPlan{}, fmt.Errorf("list %s: %w", name, err)
	}
	indexed, err := o.store.ModelHashes(ctx)
	if err != nil {
		return domain.SyncPlan{}, fmt.Errorf("read indexed hashes: %w", err)
	}
	owners, err := o.modelSources(ctx)
	if err != nil {
		return domain.SyncPlan{}, err
	}

	return buildPlan(files, indexed, owners, name), nil
}

func (o *SyncOrchestrator) modelSources(ctx context.Context) (map[string]domain.ModelSource, error) {
	if o.runs == nil {
		return nil, nil
	}
	owners, err := o.runs.ModelSources(ctx)
	if err != nil {
		return nil, fmt.Errorf("read model sources: %w", err)
	}
	return owners, nil
}

// buildPlan diffs files against indexed. An indexed model missing from
// files is removed only when owners records source as its owner. A file
// whose hash last extracted to nothing is left unchanged.
func buildPlan(
	files []domain.SourceFile,
	indexed map[string]string,
	owners map[string]domain.ModelSource,
	source string,
) domain.SyncPlan {
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })

	var plan domain.SyncPlan
	seen := make(map[string]bool, len(files))
	for _, f := range files {
		if f.ModelID == "" {
			logger.Warn("Skipping %s: no printer model in file name", f.Name)
			continue
		}
		if seen[f.ModelID] {
			logger.Warn("Skipping %s: %s already provided by another file", f.Name, f.ModelID)
			continue
		}
		seen[f.ModelID] = true

		hash, ok := indexed[f.ModelID]
		switch {
		case owners[f.ModelID].EmptyHash != "" && owners[f.ModelID].EmptyHash == f.Hash:
			plan.Unchanged = append(plan.Unchanged, f.ModelID)
		case !ok:
			plan.Add = append(plan.Add, f)
		case hash != f.Hash:
			plan.Reindex = append(plan.Reindex, f)
		default:
			plan.Unchanged = append(plan.Unchanged, f.ModelID)
		}
	}

	for model := range indexed {
		if !seen[model] && owners[model].Source == source {
			plan.Remove = append(plan.Remove, model)
		}
	}

	byModel := func(list []domain.SourceFile) func(i, j int) bool {
		return func(i, j int) bool { return list[i].ModelID < list[j].ModelID }
	}
	sort.Slice(plan.Add, byModel(plan.Add))
	sort.Slice(plan.Reindex, byModel(plan.Reindex))
	sort.Strings(plan.Remove)
	sort.Strings(plan.Unchanged)
	return plan
}

// Sync applies the plan for a source. Removed models lose their sections
// but keep their registry entries. Models added by other sources or by
// Ingest are never removed here. A failing file is recorded and the run
// moves on; the returned error joins every per-file failure.
func (o *SyncOrchestrator) Sync(ctx context.Context, name string) (domain.SyncStats, error) {
	src, err := o.source(name)
	if err != nil {
		return domain.SyncStats{}, err
	}

	holder := uuid.NewString()
	release, err := o.acquire(ctx, name, holder)
	if err != nil {
		return domain.SyncStats{}, err
	}
	defer release()

	stats := domain.SyncStats{RunID: holder, Source: name, StartedAt: o.now()}
	logger.Info("Starting sync for source %s (run %s)", name, holder)

	plan, err := o.Plan(ctx, name)
	if err != nil {
		return stats, err
	}
	stats.Unchanged = len(plan.Unchanged)

	var errs []error
	fail := func(model string, err error) {
		logger.Warn("Sync %s: %s: %v", name, model, err)
		errs = append(errs, fmt.Errorf("%s: %w", model, err))
		stats.Errors = append(stats.Errors, fmt.Sprintf("%s: %v", model, err))
	}

	for _, model := range plan.Remove {
		n, err := o.store.DeleteByModel(ctx, model)
		if err != nil {
			fail(model, err)
			continue
		}
		o.recordSource(ctx, model, domain.ModelSource{})
		stats.Removed++
		stats.SectionsRemoved += n
	}

	apply := func(files []domain.SourceFile, counter *int) {
		for _, f := range files {
			if ctx.Err() != nil {
				fail(f.ModelID, ctx.Err())
				return
			}
			path, err := src.Fetch(ctx, f)
			if err != nil {
				fail(f.ModelID, fmt.Errorf("fetch %s: %w", f.Name, err))
				continue
			}
			report, err := o.ingest.IngestFile(ctx, path, f.ModelID)
			if err != nil {
				fail(f.ModelID, err)
				continue
			}
			o.recordSource(ctx, report.ModelID, sourceRecord(name, report))
			*counter++
			stats.SectionsAdded += report.Sections
			stats.SectionsRemoved += report.Replaced
		}
	}
	apply(plan.Add, &stats.Added)
	apply(plan.Reindex, &stats.Reindexed)

	// Models indexed before sources were recorded are claimed by the
	// first source that lists them.
	if owners, err := o.modelSources(ctx); err == nil {
		for _, model := range plan.Unchanged {
			if owners[model].Source == "" {
				o.recordSource(ctx, model, domain.ModelSource{Source: name})
			}
		}
	}

	stats.FinishedAt = o.now()
	if o.runs != nil {
		if err := o.runs.SaveRun(context.WithoutCancel(ctx), stats); err != nil {
			logger.Warn("Failed to record sync run %s: %v", holder, err)
		}
	}

	logger.Info("Sync %s finished: +%d ~%d -%d =%d, %d errors",
		name, stats.Added, stats.Reindexed, stats.Removed, stats.Unchanged, len(stats.Errors))
	return stats, errors.Join(errs...)
}

// Ingest indexes one file under the single-writer lease.
func (o *SyncOrchestrator) Ingest(ctx context.Context, path, modelID string) (domain.IngestReport, error) {
	release, err := o.acquire(ctx, "ingest", uuid.NewString())
	if err != nil {
		return domain.IngestReport{}, err
	}
	defer release()

	report, err := o.ingest.IngestFile(ctx, path, modelID)
	if err != nil {
		return report, err
	}
	o.recordSource(ctx, report.ModelID, sourceRecord(ManualIngestSource, report))
	return report, nil
}

// sourceRecord is the ownership record left by an ingest from source.
func sourceRecord(source string, report domain.IngestReport) domain.ModelSource {
	rec := domain.ModelSource{Source: source}
	if report.Sections == 0 {
		rec.EmptyHash = report.Hash
	}
	return rec
}

// recordSource remembers which source indexed a model. A failure only
// costs removal tracking, so it is logged.
func (o *SyncOrchestrator) recordSource(ctx context.Context, modelID string, src domain.ModelSource) {
	if o.runs == nil || modelID == "" {
		return
	}
	if err := o.runs.SetModelSource(context.WithoutCancel(ctx), modelID, src); err != nil {
		logger.Warn("Failed to record source of %s: %v", modelID, err)
	}
}

// acquire takes the in-process guard for key and the store lease.
func (o *SyncOrchestrator) acquire(ctx context.Context, key, holder string) (func(), error) {
	o.mu.Lock()
	if o.running[key] {
		o.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", domain.ErrSyncInProgress, key)
	}
	o.running[key] = true
	o.mu.Unlock()

	done := func() {
		o.mu.Lock()
		delete(o.running, key)
		o.mu.Unlock()
	}

	if err := o.lock.AcquireWriteLock(ctx, holder, o.lockTTL); err != nil {
		done()
		return nil, err
	}

	return func() {
		if err := o.lock.ReleaseWriteLock(context.WithoutCancel(ctx), holder); err != nil {
			logger.Warn("Failed to release write lock %s: %v", holder, err)
		}
		done()
	}, nil
}

// Status returns sync status for a source.
func (o *SyncOrchestrator) Status(ctx context.Context, name string) (*driving.SyncStatus, error) {
	if _, err := o.source(name); err != nil {
		return nil, err
	}

	o.mu.Lock()
	running := o.running[name]
	o.mu.Unlock()

	status := &driving.SyncStatus{Source: name, Running: running}
	if o.runs == nil {
		return status, nil
	}
	last, err := o.runs.LastRun(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("last run of %s: %w", name, err)
	}
	status.LastRun = last
	return status, nil
}
