package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
)

// Ensure Scheduler implements the interface.
var _ driving.Scheduler = (*Scheduler)(nil)

// triggerQueue bounds the number of pending on-demand syncs.
const triggerQueue = 16

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithInterval syncs every source each d. Zero disables periodic runs.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d >= 0 {
			s.interval = d
		}
	}
}

// WithResultHandler receives the outcome of every sync job.
func WithResultHandler(fn func(domain.SyncStats, error)) SchedulerOption {
	return func(s *Scheduler) {
		s.onResult = fn
	}
}

// WithoutInitialRun skips the sync of every source at start.
func WithoutInitialRun() SchedulerOption {
	return func(s *Scheduler) {
		s.initialRun = false
	}
}

// Scheduler runs sync jobs for the configured sources on an interval and
// on demand. Jobs run one at a time on the scheduler loop.
type Scheduler struct {
	syncOrch   driving.SyncOrchestrator
	interval   time.Duration
	initialRun bool
	onResult   func(domain.SyncStats, error)
	trigger    chan string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	last    map[string]domain.SyncStats
}

// NewScheduler creates a scheduler over a sync orchestrator.
func NewScheduler(syncOrch driving.SyncOrchestrator, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		syncOrch:   syncOrch,
		initialRun: true,
		trigger:    make(chan string, triggerQueue),
		last:       make(map[string]domain.SyncStats),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start begins the scheduler loop. This method blocks until Stop is called
// or ctx is cancelled. Starting a running scheduler is a no-op.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = true
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	return s.run(ctx, stopCh)
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	// Wait for the running job to complete
	s.wg.Wait()

	return nil
}

// Trigger queues a sync of one source. When the queue is full the
// request is dropped; a queued job for the same source covers it.
func (s *Scheduler) Trigger(source string) {
	select {
	case s.trigger <- source:
	default:
		logger.Warn("Sync queue full, dropping request for %s", source)
	}
}

// LastRun returns the stats of the last successful job for a source.
func (s *Scheduler) LastRun(source string) (domain.SyncStats, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.last[source]
	return stats, ok
}

// run is the main scheduler loop.
func (s *Scheduler) run(ctx context.Context, stopCh <-chan struct{}) error {
	if s.initialRun {
		s.runAll(ctx)
	}

	var tick <-chan time.Time
	if s.interval > 0 {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		tick = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			s.markStopped()
			return ctx.Err()
		case <-stopCh:
			return nil
		case <-tick:
			s.runAll(ctx)
		case name := <-s.trigger:
			s.runSource(ctx, name)
		}
	}
}

func (s *Scheduler) markStopped() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.running = false
		close(s.stopCh)
	}
}

// runAll syncs every configured source.
func (s *Scheduler) runAll(ctx context.Context) {
	if s.syncOrch == nil {
		return
	}
	for _, name := range s.syncOrch.Sources() {
		if ctx.Err() != nil {
			return
		}
		s.runSource(ctx, name)
	}
}

// runSource executes a single sync job.
func (s *Scheduler) runSource(ctx context.Context, name string) {
	if s.syncOrch == nil {
		return
	}

	stats, err := s.syncOrch.Sync(ctx, name)
	switch {
	case errors.Is(err, domain.ErrSyncInProgress):
		logger.Warn("Sync of %s skipped: another run holds the lock", name)
	case err != nil:
		logger.Warn("Sync of %s failed: %v", name, err)
	default:
		logger.Info("Sync of %s finished: %d added, %d reindexed, %d removed",
			name, stats.Added, stats.Reindexed, stats.Removed)
		s.mu.Lock()
		s.last[name] = stats
		s.mu.Unlock()
	}

	if s.onResult != nil {
		if stats.Source == "" {
			stats.Source = name
		}
		s.onResult(stats, err)
	}
}
