package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

var (
	_ driven.SectionStore = (*Store)(nil)
	_ driven.WriteLock    = (*Store)(nil)
)

// lockName is the single lease row guarding index writes.
const lockName = "index"

// Upsert stores sections with their vectors in one transaction.
func (s *Store) Upsert(ctx context.Context, sections []domain.Section, vectors [][]float32, embeddingModel string) error {
	if len(sections) != len(vectors) {
		return fmt.Errorf("%w: %d sections but %d vectors", domain.ErrInvalidInput, len(sections), len(vectors))
	}
	if len(sections) == 0 {
		return nil
	}
	if embeddingModel == "" {
		return fmt.Errorf("%w: embedding model is required", domain.ErrInvalidInput)
	}
	dims := len(vectors[0])
	for i, sec := range sections {
		if err := sec.Validate(); err != nil {
			return err
		}
		if len(vectors[i]) == 0 || len(vectors[i]) != dims {
			return fmt.Errorf("%w: vector for %s has %d dimensions, expected %d",
				domain.ErrInvalidInput, sec.ID, len(vectors[i]), dims)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return unavailable("beginning transaction", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if err := s.claimCollection(ctx, tx, embeddingModel, dims); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO sections (collection, id, printer_model, title, content, type, keywords,
			pdf_hash, embedding, embedding_model, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(collection, id) DO UPDATE SET
			printer_model = excluded.printer_model,
			title = excluded.title,
			content = excluded.content,
			type = excluded.type,
			keywords = excluded.keywords,
			pdf_hash = excluded.pdf_hash,
			embedding = excluded.embedding,
			embedding_model = excluded.embedding_model,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return unavailable("preparing statement", err)
	}
	defer stmt.Close()

	now := time.Now()
	for i, sec := range sections {
		keywords, err := json.Marshal(nonNil(sec.Keywords))
		if err != nil {
			return fmt.Errorf("marshalling keywords: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, s.collection, sec.ID, sec.PrinterModel, sec.Title, sec.Content,
			string(sec.Type), string(keywords), sec.SourceHash, float32SliceToBytes(vectors[i]),
			embeddingModel, now); err != nil {
			return unavailable("saving section", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("committing transaction", err)
	}
	return nil
}

// claimCollection records the embedding model for the collection, or checks
// it matches. An emptied collection may switch model.
func (s *Store) claimCollection(ctx context.Context, tx *sql.Tx, model string, dims int) error {
	var (
		current     string
		currentDims int
	)
	err := tx.QueryRowContext(ctx,
		"SELECT embedding_model, dimensions FROM collections WHERE name = ?", s.collection,
	).Scan(&current, &currentDims)

	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO collections (name, embedding_model, dimensions) VALUES (?, ?, ?)",
			s.collection, model, dims); err != nil {
			return unavailable("recording collection", err)
		}
		return nil
	case err != nil:
		return unavailable("reading collection", err)
	}

	if current == model && currentDims == dims {
		return nil
	}

	var n int
	if err := tx.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM sections WHERE collection = ?", s.collection).Scan(&n); err != nil {
		return unavailable("counting sections", err)
	}
	if n > 0 {
		return fmt.Errorf("%w: collection %s holds %s vectors (%d dims), got %s (%d dims)",
			domain.ErrEmbeddingModelMismatch, s.collection, current, currentDims, model, dims)
	}
	if _, err := tx.ExecContext(ctx,
		"UPDATE collections SET embedding_model = ?, dimensions = ? WHERE name = ?",
		model, dims, s.collection); err != nil {
		return unavailable("updating collection", err)
	}
	return nil
}

// DeleteByModel removes all sections of a printer model.
func (s *Store) DeleteByModel(ctx context.Context, modelID string) (int, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM sections WHERE collection = ? AND printer_model = ?", s.collection, modelID)
	if err != nil {
		return 0, unavailable("deleting sections", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, unavailable("counting deleted sections", err)
	}
	return int(n), nil
}

// Query scans the collection and returns the topK nearest sections.
// Rows are visited in ID order and sorted stably, so equal distances keep ID order.
func (s *Store) Query(
	ctx context.Context,
	vector []float32,
	embeddingModel string,
	topK int,
	modelFilter string,
) ([]domain.SectionHit, error) {
	if len(vector) == 0 {
		return nil, fmt.Errorf("%w: empty query vector", domain.ErrInvalidInput)
	}
	if topK <= 0 {
		return nil, fmt.Errorf("%w: topK must be positive", domain.ErrInvalidInput)
	}

	current, err := s.EmbeddingModel(ctx)
	if err != nil {
		return nil, err
	}
	if current == "" {
		return []domain.SectionHit{}, nil
	}
	if embeddingModel != "" && current != embeddingModel {
		return nil, fmt.Errorf("%w: collection %s holds %s vectors, query uses %s",
			domain.ErrEmbeddingModelMismatch, s.collection, current, embeddingModel)
	}

	query := `
		SELECT id, printer_model, title, content, type, keywords, pdf_hash, embedding
		FROM sections WHERE collection = ?`
	args := []any{s.collection}
	if modelFilter != "" {
		query += " AND printer_model = ?"
		args = append(args, modelFilter)
	}
	query += " ORDER BY id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, unavailable("querying sections", err)
	}
	defer rows.Close()

	hits := []domain.SectionHit{}
	for rows.Next() {
		sec, vec, err := scanSection(rows)
		if err != nil {
			return nil, err
		}
		if len(vec) != len(vector) {
			return nil, fmt.Errorf("%w: section %s has %d dimensions, query has %d",
				domain.ErrEmbeddingModelMismatch, sec.ID, len(vec), len(vector))
		}
		hits = append(hits, domain.SectionHit{Section: *sec, Distance: cosineDistance(vector, vec)})
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating sections", err)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ModelHashes returns the source hash per indexed model.
func (s *Store) ModelHashes(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT printer_model, MAX(pdf_hash) FROM sections
		WHERE collection = ? GROUP BY printer_model
	`, s.collection)
	if err != nil {
		return nil, unavailable("querying model hashes", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var model, hash string
		if err := rows.Scan(&model, &hash); err != nil {
			return nil, unavailable("scanning model hash", err)
		}
		hashes[model] = hash
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("iterating model hashes", err)
	}
	return hashes, nil
}

// Count returns the number of sections, for one model when modelID is set.
func (s *Store) Count(ctx context.Context, modelID string) (int, error) {
	query := "SELECT COUNT(*) FROM sections WHERE collection = ?"
	args := []any{s.collection}
	if modelID != "" {
		query += " AND printer_model = ?"
		args = append(args, modelID)
	}

	var n int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, unavailable("counting sections", err)
	}
	return n, nil
}

// EmbeddingModel returns the embedding model recorded for the collection.
func (s *Store) EmbeddingModel(ctx context.Context) (string, error) {
	var model string
	err := s.db.QueryRowContext(ctx,
		"SELECT embedding_model FROM collections WHERE name = ?", s.collection).Scan(&model)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", unavailable("reading collection", err)
	}
	return model, nil
}

// AcquireWriteLock takes the index lease. The upsert only succeeds when the
// lease is free, expired, or already held by holder.
func (s *Store) AcquireWriteLock(ctx context.Context, holder string, ttl time.Duration) error {
	if holder == "" {
		return fmt.Errorf("%w: lock holder is required", domain.ErrInvalidInput)
	}
	now := time.Now()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO write_lock (name, holder, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			holder = excluded.holder,
			expires_at = excluded.expires_at
		WHERE write_lock.holder = excluded.holder OR write_lock.expires_at <= ?
	`, lockName, holder, now.Add(ttl).UnixNano(), now.UnixNano())
	if err != nil {
		return unavailable("acquiring write lock", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return unavailable("acquiring write lock", err)
	}
	if n == 0 {
		return domain.ErrSyncInProgress
	}
	return nil
}

// ReleaseWriteLock drops the lease if holder owns it.
func (s *Store) ReleaseWriteLock(ctx context.Context, holder string) error {
	if _, err := s.db.ExecContext(ctx,
		"DELETE FROM write_lock WHERE name = ? AND holder = ?", lockName, holder); err != nil {
		return unavailable("releasing write lock", err)
	}
	return nil
}

// scanSection scans a section row and its vector.
func scanSection(rows *sql.Rows) (*domain.Section, []float32, error) {
	var (
		sec      domain.Section
		secType  string
		keywords string
		blob     []byte
	)
	if err := rows.Scan(&sec.ID, &sec.PrinterModel, &sec.Title, &sec.Content, &secType,
		&keywords, &sec.SourceHash, &blob); err != nil {
		return nil, nil, unavailable("scanning section", err)
	}
	sec.Type = domain.SectionType(secType)
	if err := json.Unmarshal([]byte(keywords), &sec.Keywords); err != nil {
		return nil, nil, fmt.Errorf("unmarshalling keywords of %s: %w", sec.ID, err)
	}
	if len(sec.Keywords) == 0 {
		sec.Keywords = nil
	}
	return &sec, bytesToFloat32Slice(blob), nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
