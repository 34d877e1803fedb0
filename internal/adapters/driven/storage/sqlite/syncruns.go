package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// syncRunStore implements driven.SyncRunStore.
type syncRunStore struct {
	store *Store
}

var _ driven.SyncRunStore = (*syncRunStore)(nil)

// SaveRun stores the stats of a finished run.
func (s *syncRunStore) SaveRun(ctx context.Context, stats domain.SyncStats) error {
	if stats.RunID == "" || stats.Source == "" {
		return fmt.Errorf("%w: run id and source are required", domain.ErrInvalidInput)
	}
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshalling sync stats: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO sync_runs (id, source, started_at, finished_at, stats)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			finished_at = excluded.finished_at,
			stats = excluded.stats
	`, stats.RunID, stats.Source, stats.StartedAt.UnixNano(), stats.FinishedAt.UnixNano(), string(data))
	if err != nil {
		return unavailable("saving sync run", err)
	}
	return nil
}

// LastRun returns the most recently finished run for a source.
func (s *syncRunStore) LastRun(ctx context.Context, source string) (*domain.SyncStats, error) {
	var data string
	err := s.store.db.QueryRowContext(ctx, `
		SELECT stats FROM sync_runs WHERE source = ?
		ORDER BY finished_at DESC LIMIT 1
	`, source).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("reading sync run", err)
	}

	var stats domain.SyncStats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return nil, fmt.Errorf("unmarshalling sync stats: %w", err)
	}
	return &stats, nil
}

// SetModelSource records the source that last indexed a model.
func (s *syncRunStore) SetModelSource(ctx context.Context, modelID string, src domain.ModelSource) error {
	var err error
	if src.Source == "" {
		_, err = s.store.db.ExecContext(ctx, `DELETE FROM model_sources WHERE model_id = ?`, modelID)
	} else {
		_, err = s.store.db.ExecContext(ctx, `
			INSERT INTO model_sources (model_id, source, empty_hash, updated_at)
			VALUES (?, ?, ?, CURRENT_TIMESTAMP)
			ON CONFLICT(model_id) DO UPDATE SET
				source = excluded.source,
				empty_hash = excluded.empty_hash,
				updated_at = excluded.updated_at
		`, modelID, src.Source, src.EmptyHash)
	}
	if err != nil {
		return unavailable("saving model source", err)
	}
	return nil
}

// ModelSources returns the recorded source of every model.
func (s *syncRunStore) ModelSources(ctx context.Context) (map[string]domain.ModelSource, error) {
	rows, err := s.store.db.QueryContext(ctx, `SELECT model_id, source, empty_hash FROM model_sources`)
	if err != nil {
		return nil, unavailable("reading model sources", err)
	}
	defer rows.Close()

	sources := make(map[string]domain.ModelSource)
	for rows.Next() {
		var model string
		var src domain.ModelSource
		if err := rows.Scan(&model, &src.Source, &src.EmptyHash); err != nil {
			return nil, unavailable("scanning model source", err)
		}
		sources[model] = src
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("reading model sources", err)
	}
	return sources, nil
}
