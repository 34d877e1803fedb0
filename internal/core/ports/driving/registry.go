package driving

import (
	"context"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// RegistryService exposes the printer model registry.
type RegistryService interface {
	// GetModel returns one model, domain.ErrNotFound if absent.
	GetModel(ctx context.Context, id string) (*domain.PrinterModel, error)

	// ListModels returns all model IDs, sorted.
	ListModels(ctx context.Context) ([]string, error)

	// Models returns all registry entries, sorted by ID.
	Models(ctx context.Context) ([]domain.PrinterModel, error)

	// EnsureModel creates the model when absent, or unions the given
	// aliases and features into the existing entry. It never removes data.
	EnsureModel(ctx context.Context, hint domain.PrinterModel) (*domain.PrinterModel, error)

	// DeleteModel removes the model and every indexed section of it.
	// This is the only way a registry entry is ever deleted.
	DeleteModel(ctx context.Context, id string) (int, error)

	// Import merges models into the registry and returns how many were written.
	Import(ctx context.Context, models []domain.PrinterModel) (int, error)
}
