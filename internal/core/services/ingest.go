package services

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/extractor"
	"github.com/custodia-labs/printdesk/internal/logger"
)

// Ensure IngestService implements the interface.
var _ driving.IngestService = (*IngestService)(nil)

// SectionExtractor reads a manual PDF into sections.
type SectionExtractor interface {
	ExtractFile(ctx context.Context, path, modelID string) (extractor.Result, error)
}

// IngestService indexes manuals: extract, register, embed, replace.
type IngestService struct {
	extractor SectionExtractor
	registry  driving.RegistryService
	embedder  driven.EmbeddingService
	store     driven.SectionStore
}

// NewIngestService creates a new ingest service.
func NewIngestService(
	ex SectionExtractor,
	registry driving.RegistryService,
	embedder driven.EmbeddingService,
	store driven.SectionStore,
) *IngestService {
	return &IngestService{
		extractor: ex,
		registry:  registry,
		embedder:  embedder,
		store:     store,
	}
}

// IngestFile replaces everything indexed for the model with the sections
// of the PDF at path. A PDF without sections leaves the index as it is. The registry entry is created or extended first, so
// no indexed section is ever without a model. Vectors are computed before
// anything is deleted; an embedding failure leaves the index untouched.
func (s *IngestService) IngestFile(ctx context.Context, path, modelID string) (domain.IngestReport, error) {
	if modelID == "" {
		modelID = extractor.ModelFromFilename(filepath.Base(path))
	}
	modelID = CanonicalModelID(modelID)
	if modelID == "" {
		return domain.IngestReport{}, fmt.Errorf("%w: cannot derive a printer model from %s", domain.ErrInvalidInput, filepath.Base(path))
	}

	logger.Section("Ingest " + modelID)

	res, err := s.extractor.ExtractFile(ctx, path, modelID)
	if err != nil {
		return domain.IngestReport{}, fmt.Errorf("extract %s: %w", modelID, err)
	}
	for _, pe := range res.PageErrors {
		logger.Warn("%s: skipped %v", filepath.Base(path), &pe)
	}
	logger.Debug("Extracted %d sections from %d pages (%d chunks)", len(res.Sections), res.Pages, res.Chunks)

	if _, err := s.registry.EnsureModel(ctx, domain.PrinterModel{
		ID:       modelID,
		Features: res.Detection.Features,
		Color:    res.Detection.Color,
	}); err != nil {
		return domain.IngestReport{}, fmt.Errorf("register %s: %w", modelID, err)
	}

	report := domain.IngestReport{
		ModelID:      modelID,
		Hash:         res.SourceHash,
		Sections:     len(res.Sections),
		PageWarnings: len(res.PageErrors),
	}

	// A manual with no extractable text keeps whatever was indexed before.
	if len(res.Sections) == 0 {
		logger.Warn("%s: no sections extracted, keeping the indexed sections of %s", filepath.Base(path), modelID)
		return report, nil
	}

	texts := make([]string, len(res.Sections))
	for i, sec := range res.Sections {
		texts[i] = sec.IndexText()
	}
	vectors, err := s.embedder.Embed(ctx, texts, driven.RoleDocument)
	if err != nil {
		return report, fmt.Errorf("embed %s: %w", modelID, err)
	}

	report.Replaced, err = s.store.DeleteByModel(ctx, modelID)
	if err != nil {
		return report, fmt.Errorf("delete old sections of %s: %w", modelID, err)
	}
	if err := s.store.Upsert(ctx, res.Sections, vectors, s.embedder.ModelName()); err != nil {
		return report, fmt.Errorf("index %s: %w", modelID, err)
	}

	logger.Info("Indexed %s: %d sections (replaced %d)", modelID, report.Sections, report.Replaced)
	return report, nil
}
