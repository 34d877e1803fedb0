package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// Ensure RegistryStore implements the interface.
var _ driven.RegistryStore = (*RegistryStore)(nil)

// RegistryStore is an in-memory implementation of driven.RegistryStore.
type RegistryStore struct {
	mu     sync.RWMutex
	models map[string]domain.PrinterModel
}

// NewRegistryStore creates a registry store holding the given models.
func NewRegistryStore(models ...domain.PrinterModel) *RegistryStore {
	s := &RegistryStore{models: make(map[string]domain.PrinterModel, len(models))}
	for _, m := range models {
		s.models[m.ID] = m
	}
	return s
}

// Get retrieves a model by ID.
func (s *RegistryStore) Get(_ context.Context, id string) (*domain.PrinterModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.models[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &m, nil
}

// List returns all models ordered by ID.
func (s *RegistryStore) List(context.Context) ([]domain.PrinterModel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.PrinterModel, 0, len(s.models))
	for _, m := range s.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Save inserts or replaces a model.
func (s *RegistryStore) Save(_ context.Context, model domain.PrinterModel) error {
	if model.ID == "" {
		return fmt.Errorf("%w: model id is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.models[model.ID] = model
	return nil
}

// Delete removes a model.
func (s *RegistryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.models, id)
	return nil
}

// Ensure SyncRunStore implements the interface.
var _ driven.SyncRunStore = (*SyncRunStore)(nil)

// SyncRunStore keeps the last run per source in memory.
type SyncRunStore struct {
	mu      sync.RWMutex
	last    map[string]domain.SyncStats
	sources map[string]domain.ModelSource
}

// NewSyncRunStore creates an empty sync run store.
func NewSyncRunStore() *SyncRunStore {
	return &SyncRunStore{
		last:    make(map[string]domain.SyncStats),
		sources: make(map[string]domain.ModelSource),
	}
}

// SaveRun records a run, keeping the latest per source.
func (s *SyncRunStore) SaveRun(_ context.Context, stats domain.SyncStats) error {
	if stats.RunID == "" || stats.Source == "" {
		return fmt.Errorf("%w: run id and source are required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.last[stats.Source]; ok && prev.FinishedAt.After(stats.FinishedAt) {
		return nil
	}
	s.last[stats.Source] = stats
	return nil
}

// LastRun returns the latest run for a source, nil if none.
func (s *SyncRunStore) LastRun(_ context.Context, source string) (*domain.SyncStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.last[source]
	if !ok {
		return nil, nil
	}
	return &stats, nil
}

// SetModelSource records the source that last indexed a model.
func (s *SyncRunStore) SetModelSource(_ context.Context, modelID string, src domain.ModelSource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if src.Source == "" {
		delete(s.sources, modelID)
		return nil
	}
	s.sources[modelID] = src
	return nil
}

// ModelSources returns a copy of the model to source map.
func (s *SyncRunStore) ModelSources(_ context.Context) (map[string]domain.ModelSource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.ModelSource, len(s.sources))
	for model, source := range s.sources {
		out[model] = source
	}
	return out, nil
}
