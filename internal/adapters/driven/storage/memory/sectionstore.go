package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// Ensure SectionStore implements the interfaces.
var (
	_ driven.SectionStore = (*SectionStore)(nil)
	_ driven.WriteLock    = (*SectionStore)(nil)
)

type storedSection struct {
	section domain.Section
	vector  []float32
}

// SectionStore is an in-memory implementation of driven.SectionStore
// with the same ordering and model checks as the SQLite store.
type SectionStore struct {
	mu       sync.RWMutex
	sections map[string]storedSection
	model    string
	dims     int

	lockHolder  string
	lockExpires time.Time
	now         func() time.Time
}

// NewSectionStore creates an empty in-memory section store.
func NewSectionStore() *SectionStore {
	return &SectionStore{
		sections: make(map[string]storedSection),
		now:      time.Now,
	}
}

// Upsert stores sections with their vectors.
func (s *SectionStore) Upsert(_ context.Context, sections []domain.Section, vectors [][]float32, embeddingModel string) error {
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
			return fmt.Errorf("%w: vector for %s has %d dimensions", domain.ErrInvalidInput, sec.ID, len(vectors[i]))
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.sections) > 0 && (s.model != embeddingModel || s.dims != dims) {
		return fmt.Errorf("%w: store holds %s vectors, got %s", domain.ErrEmbeddingModelMismatch, s.model, embeddingModel)
	}
	s.model = embeddingModel
	s.dims = dims

	for i, sec := range sections {
		s.sections[sec.ID] = storedSection{
			section: sec,
			vector:  append([]float32(nil), vectors[i]...),
		}
	}
	return nil
}

// DeleteByModel removes every section of a model.
func (s *SectionStore) DeleteByModel(_ context.Context, modelID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, st := range s.sections {
		if st.section.PrinterModel == modelID {
			delete(s.sections, id)
			n++
		}
	}
	return n, nil
}

// Query returns the topK nearest sections by cosine distance, ties by ID.
func (s *SectionStore) Query(
	_ context.Context,
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

	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := []domain.SectionHit{}
	if len(s.sections) == 0 {
		return hits, nil
	}
	if embeddingModel != "" && embeddingModel != s.model {
		return nil, fmt.Errorf("%w: store holds %s vectors, query uses %s",
			domain.ErrEmbeddingModelMismatch, s.model, embeddingModel)
	}
	if len(vector) != s.dims {
		return nil, fmt.Errorf("%w: query has %d dimensions, store has %d",
			domain.ErrEmbeddingModelMismatch, len(vector), s.dims)
	}

	for _, st := range s.sections {
		if modelFilter != "" && st.section.PrinterModel != modelFilter {
			continue
		}
		hits = append(hits, domain.SectionHit{Section: st.section, Distance: cosineDistance(vector, st.vector)})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Distance != hits[j].Distance {
			return hits[i].Distance < hits[j].Distance
		}
		return hits[i].Section.ID < hits[j].Section.ID
	})
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

// ModelHashes returns the source hash per indexed model.
func (s *SectionStore) ModelHashes(context.Context) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	hashes := make(map[string]string)
	for _, st := range s.sections {
		model := st.section.PrinterModel
		if h, ok := hashes[model]; !ok || st.section.SourceHash > h {
			hashes[model] = st.section.SourceHash
		}
	}
	return hashes, nil
}

// Count returns the number of sections, for one model when modelID is set.
func (s *SectionStore) Count(_ context.Context, modelID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if modelID == "" {
		return len(s.sections), nil
	}
	n := 0
	for _, st := range s.sections {
		if st.section.PrinterModel == modelID {
			n++
		}
	}
	return n, nil
}

// EmbeddingModel returns the model of the stored vectors, "" if empty.
func (s *SectionStore) EmbeddingModel(context.Context) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.sections) == 0 {
		return "", nil
	}
	return s.model, nil
}

// Close is a no-op.
func (s *SectionStore) Close() error {
	return nil
}

// AcquireWriteLock takes the lease for holder.
func (s *SectionStore) AcquireWriteLock(_ context.Context, holder string, ttl time.Duration) error {
	if holder == "" {
		return fmt.Errorf("%w: lock holder is required", domain.ErrInvalidInput)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if s.lockHolder != "" && s.lockHolder != holder && now.Before(s.lockExpires) {
		return domain.ErrSyncInProgress
	}
	s.lockHolder = holder
	s.lockExpires = now.Add(ttl)
	return nil
}

// ReleaseWriteLock drops the lease if holder owns it.
func (s *SectionStore) ReleaseWriteLock(_ context.Context, holder string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lockHolder == holder {
		s.lockHolder = ""
	}
	return nil
}

func cosineDistance(a, b []float32) float64 {
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(na)*math.Sqrt(nb))
}
