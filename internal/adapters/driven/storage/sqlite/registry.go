package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// registryStore implements driven.RegistryStore.
type registryStore struct {
	store *Store
}

var _ driven.RegistryStore = (*registryStore)(nil)

// Get retrieves a model by ID.
func (s *registryStore) Get(ctx context.Context, id string) (*domain.PrinterModel, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, display_name, aliases, features, series, description, color, size
		FROM printer_models WHERE id = ?
	`, id)

	model, err := scanPrinterModel(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	return model, err
}

// List returns all models ordered by ID.
func (s *registryStore) List(ctx context.Context) ([]domain.PrinterModel, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, display_name, aliases, features, series, description, color, size
		FROM printer_models ORDER BY id
	`)
	if err != nil {
		return nil, unavailable("querying printer models", err)
	}
	defer rows.Close()

	var models []domain.PrinterModel //nolint:prealloc // size unknown from query
	for rows.Next() {
		model, err := scanPrinterModel(rows)
		if err != nil {
			return nil, err
		}
		models = append(models, *model)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating printer models", err)
	}
	return models, nil
}

// Save inserts or replaces a model.
func (s *registryStore) Save(ctx context.Context, model domain.PrinterModel) error {
	if model.ID == "" {
		return fmt.Errorf("%w: model id is required", domain.ErrInvalidInput)
	}

	aliases, err := json.Marshal(nonNil(model.Aliases))
	if err != nil {
		return fmt.Errorf("marshalling aliases: %w", err)
	}
	features := make([]string, len(model.Features))
	for i, f := range model.Features {
		features[i] = string(f)
	}
	featuresJSON, err := json.Marshal(features)
	if err != nil {
		return fmt.Errorf("marshalling features: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO printer_models (id, display_name, aliases, features, series, description, color, size, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			aliases = excluded.aliases,
			features = excluded.features,
			series = excluded.series,
			description = excluded.description,
			color = excluded.color,
			size = excluded.size,
			updated_at = excluded.updated_at
	`, model.ID, model.DisplayName, string(aliases), string(featuresJSON), model.Series,
		model.Description, string(model.Color), string(model.Size), time.Now())
	if err != nil {
		return unavailable("saving printer model", err)
	}
	return nil
}

// Delete removes a model.
func (s *registryStore) Delete(ctx context.Context, id string) error {
	if _, err := s.store.db.ExecContext(ctx, "DELETE FROM printer_models WHERE id = ?", id); err != nil {
		return unavailable("deleting printer model", err)
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanPrinterModel(row rowScanner) (*domain.PrinterModel, error) {
	var (
		m                 domain.PrinterModel
		aliases, features string
		color, size       string
	)
	if err := row.Scan(&m.ID, &m.DisplayName, &aliases, &features, &m.Series,
		&m.Description, &color, &size); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, unavailable("scanning printer model", err)
	}

	if err := json.Unmarshal([]byte(aliases), &m.Aliases); err != nil {
		return nil, fmt.Errorf("unmarshalling aliases of %s: %w", m.ID, err)
	}
	var feats []string
	if err := json.Unmarshal([]byte(features), &feats); err != nil {
		return nil, fmt.Errorf("unmarshalling features of %s: %w", m.ID, err)
	}
	for _, f := range feats {
		m.Features = append(m.Features, domain.Feature(f))
	}
	if len(m.Aliases) == 0 {
		m.Aliases = nil
	}
	m.Color = domain.ColorType(color)
	m.Size = domain.SizeClass(size)
	return &m, nil
}
