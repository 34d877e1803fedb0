package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

// Ensure RegistryService implements the interface.
var _ driving.RegistryService = (*RegistryService)(nil)

// RegistryService manages printer model registry entries.
// Entries are created lazily and only ever grow, except through DeleteModel.
type RegistryService struct {
	store    driven.RegistryStore
	sections driven.SectionStore

	// mu serialises read-modify-write cycles on entries.
	mu sync.Mutex
}

// NewRegistryService creates a new registry service.
// The sections store may be nil when the caller never deletes models.
func NewRegistryService(store driven.RegistryStore, sections driven.SectionStore) *RegistryService {
	return &RegistryService{store: store, sections: sections}
}

// CanonicalModelID upper-cases and trims a model identifier.
func CanonicalModelID(id string) string {
	return strings.ToUpper(strings.TrimSpace(id))
}

// SynthesizeModel builds a registry entry for a model that has none.
// Compound identifiers such as L3250_L3251 get aliases for every part.
func SynthesizeModel(id string) domain.PrinterModel {
	id = CanonicalModelID(id)

	var numbers []string
	for _, part := range strings.Split(id, "_") {
		if n := domain.ModelNumber(part); n != "" {
			numbers = append(numbers, n)
		}
	}

	m := domain.PrinterModel{ID: id, Series: domain.SeriesFor(id)}
	if len(numbers) == 0 {
		m.DisplayName = "Epson " + id
		m.Aliases = []string{textnorm.Normalise(id)}
		m.Canonicalise()
		return m
	}

	names := make([]string, len(numbers))
	for i, n := range numbers {
		names[i] = "L" + n
		m.Aliases = append(m.Aliases,
			"l"+n,
			n,
			"l "+n,
			"epson l"+n,
			"epson "+n,
		)
	}
	m.DisplayName = "Epson " + strings.Join(names, "/")
	m.Description = "Impressora multifuncional " + m.DisplayName + " com sistema EcoTank"
	m.Features = append([]domain.Feature(nil), domain.DefaultFeatures...)
	m.Color = domain.ColorColor
	m.Canonicalise()
	return m
}

// GetModel returns one registry entry.
func (s *RegistryService) GetModel(ctx context.Context, id string) (*domain.PrinterModel, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: model id is required", domain.ErrInvalidInput)
	}
	return s.store.Get(ctx, CanonicalModelID(id))
}

// ListModels returns every registered model ID, sorted.
func (s *RegistryService) ListModels(ctx context.Context) ([]string, error) {
	models, err := s.Models(ctx)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(models))
	for i, m := range models {
		ids[i] = m.ID
	}
	return ids, nil
}

// Models returns every registry entry, sorted by ID.
func (s *RegistryService) Models(ctx context.Context) ([]domain.PrinterModel, error) {
	models, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	sort.Slice(models, func(i, j int) bool { return models[i].ID < models[j].ID })
	return models, nil
}

// EnsureModel creates the entry when absent, seeding it from SynthesizeModel
// with the hint's fields taking precedence. Default features are only used
// when the hint carries none. An existing entry gains the hint's aliases and
// features and keeps everything it had.
func (s *RegistryService) EnsureModel(ctx context.Context, hint domain.PrinterModel) (*domain.PrinterModel, error) {
	hint.ID = CanonicalModelID(hint.ID)
	if hint.ID == "" {
		return nil, fmt.Errorf("%w: model id is required", domain.ErrInvalidInput)
	}
	hint.Aliases = normaliseAliases(hint.Aliases)

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.store.Get(ctx, hint.ID)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		created := hint
		synth := SynthesizeModel(hint.ID)
		if len(hint.Features) > 0 {
			synth.Features = nil
		}
		created.Merge(synth)
		if err := s.store.Save(ctx, created); err != nil {
			return nil, fmt.Errorf("save model %s: %w", created.ID, err)
		}
		logger.Info("Registered printer model %s", created.ID)
		return &created, nil
	case err != nil:
		return nil, fmt.Errorf("get model %s: %w", hint.ID, err)
	}

	merged := *existing
	merged.Merge(hint)
	if sameModel(*existing, merged) {
		return existing, nil
	}
	if err := s.store.Save(ctx, merged); err != nil {
		return nil, fmt.Errorf("save model %s: %w", merged.ID, err)
	}
	logger.Debug("Updated printer model %s", merged.ID)
	return &merged, nil
}

// DeleteModel removes a registry entry and every indexed section of it.
// It returns the number of sections removed.
func (s *RegistryService) DeleteModel(ctx context.Context, id string) (int, error) {
	id = CanonicalModelID(id)
	if id == "" {
		return 0, fmt.Errorf("%w: model id is required", domain.ErrInvalidInput)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.store.Get(ctx, id)
	registered := err == nil
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("get model %s: %w", id, err)
	}

	removed := 0
	if s.sections != nil {
		removed, err = s.sections.DeleteByModel(ctx, id)
		if err != nil {
			return 0, fmt.Errorf("delete sections of %s: %w", id, err)
		}
	}

	if !registered && removed == 0 {
		return 0, fmt.Errorf("%w: model %s", domain.ErrNotFound, id)
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return removed, fmt.Errorf("delete model %s: %w", id, err)
	}

	logger.Info("Deleted printer model %s (%d sections)", id, removed)
	return removed, nil
}

// Import merges models into the registry. Existing entries are extended,
// never overwritten. It returns the number of entries written.
func (s *RegistryService) Import(ctx context.Context, models []domain.PrinterModel) (int, error) {
	written := 0
	for _, m := range models {
		if CanonicalModelID(m.ID) == "" {
			return written, fmt.Errorf("%w: imported model has no id", domain.ErrInvalidInput)
		}
		if _, err := s.EnsureModel(ctx, m); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

// SeedIfEmpty imports models only when the registry has no entries yet.
func (s *RegistryService) SeedIfEmpty(ctx context.Context, models []domain.PrinterModel) (int, error) {
	existing, err := s.store.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list models: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}
	logger.Debug("Seeding empty registry with %d models", len(models))
	return s.Import(ctx, models)
}

func normaliseAliases(aliases []string) []string {
	out := make([]string, 0, len(aliases))
	for _, a := range aliases {
		if n := textnorm.Normalise(a); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func sameModel(a, b domain.PrinterModel) bool {
	if a.ID != b.ID || a.DisplayName != b.DisplayName || a.Series != b.Series ||
		a.Description != b.Description || a.Color != b.Color || a.Size != b.Size {
		return false
	}
	if len(a.Aliases) != len(b.Aliases) || len(a.Features) != len(b.Features) {
		return false
	}
	for i := range a.Aliases {
		if a.Aliases[i] != b.Aliases[i] {
			return false
		}
	}
	for i := range a.Features {
		if a.Features[i] != b.Features[i] {
			return false
		}
	}
	return true
}
