package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

const testModel = "test-embedder"

// setupTestStore creates a temporary SQLite store for testing.
func setupTestStore(t *testing.T) (*Store, string) {
	t.Helper()

	dir := t.TempDir()
	store, err := NewStore(dir, "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	return store, dir
}

func section(id, model string, t domain.SectionType, content string) domain.Section {
	return domain.Section{
		ID:           id,
		Title:        "Title " + id,
		Content:      content,
		Type:         t,
		Keywords:     []string{"papel"},
		PrinterModel: model,
		SourceHash:   "hash-" + model,
	}
}

func seed(t *testing.T, store *Store) {
	t.Helper()
	sections := []domain.Section{
		section("L3150_paper_0", "L3150", domain.SectionPaper, "carregar papel"),
		section("L3150_cartridges_1", "L3150", domain.SectionCartridges, "trocar tinta"),
		section("L4260_paper_0", "L4260", domain.SectionPaper, "papel duplex"),
	}
	vectors := [][]float32{{1, 0, 0}, {0, 1, 0}, {0.9, 0.1, 0}}
	require.NoError(t, store.Upsert(context.Background(), sections, vectors, testModel))
}

func TestNewStore(t *testing.T) {
	store, dir := setupTestStore(t)
	assert.Equal(t, filepath.Join(dir, "index.db"), store.Path())
	assert.Equal(t, domain.DefaultCollection, store.Collection())
}

func TestNewStore_Unavailable(t *testing.T) {
	file := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	_, err := NewStore(file, "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
}

func TestQuery_OrderedByDistance(t *testing.T) {
	store, _ := setupTestStore(t)
	seed(t, store)

	hits, err := store.Query(context.Background(), []float32{1, 0, 0}, testModel, 10, "")
	require.NoError(t, err)
	require.Len(t, hits, 3)

	assert.Equal(t, "L3150_paper_0", hits[0].Section.ID)
	assert.InDelta(t, 0, hits[0].Distance, 1e-6)
	assert.Equal(t, "L4260_paper_0", hits[1].Section.ID)
	assert.Equal(t, "L3150_cartridges_1", hits[2].Section.ID)
	assert.InDelta(t, 1, hits[2].Distance, 1e-6)

	got := hits[0].Section
	assert.Equal(t, "carregar papel", got.Content)
	assert.Equal(t, domain.SectionPaper, got.Type)
	assert.Equal(t, []string{"papel"}, got.Keywords)
	assert.Equal(t, "hash-L3150", got.SourceHash)
}

func TestQuery_TopK(t *testing.T) {
	store, _ := setupTestStore(t)
	seed(t, store)

	hits, err := store.Query(context.Background(), []float32{1, 0, 0}, testModel, 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "L3150_paper_0", hits[0].Section.ID)
}

func TestQuery_ModelFilter(t *testing.T) {
	store, _ := setupTestStore(t)
	seed(t, store)

	hits, err := store.Query(context.Background(), []float32{1, 0, 0}, testModel, 10, "L4260")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "L4260", hits[0].Section.PrinterModel)

	hits, err = store.Query(context.Background(), []float32{1, 0, 0}, testModel, 10, "L9999")
	require.NoError(t, err)
	assert.NotNil(t, hits)
	assert.Empty(t, hits)
}

func TestQuery_TiesOrderedByID(t *testing.T) {
	store, _ := setupTestStore(t)
	sections := []domain.Section{
		section("b", "M", domain.SectionGeneral, "x"),
		section("c", "M", domain.SectionGeneral, "x"),
		section("a", "M", domain.SectionGeneral, "x"),
	}
	vectors := [][]float32{{1, 0}, {1, 0}, {1, 0}}
	require.NoError(t, store.Upsert(context.Background(), sections, vectors, testModel))

	hits, err := store.Query(context.Background(), []float32{1, 0}, testModel, 3, "")
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "a", hits[0].Section.ID)
	assert.Equal(t, "b", hits[1].Section.ID)
	assert.Equal(t, "c", hits[2].Section.ID)
}

func TestQuery_EmptyCollection(t *testing.T) {
	store, _ := setupTestStore(t)

	hits, err := store.Query(context.Background(), []float32{1}, testModel, 5, "")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestQuery_InvalidInput(t *testing.T) {
	store, _ := setupTestStore(t)

	_, err := store.Query(context.Background(), nil, testModel, 5, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = store.Query(context.Background(), []float32{1}, testModel, 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestUpsert_Idempotent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seed(t, store)
	seed(t, store)

	n, err := store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	updated := section("L3150_paper_0", "L3150", domain.SectionPaper, "novo texto")
	require.NoError(t, store.Upsert(ctx, []domain.Section{updated}, [][]float32{{0, 0, 1}}, testModel))

	hits, err := store.Query(ctx, []float32{0, 0, 1}, testModel, 1, "")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "L3150_paper_0", hits[0].Section.ID)
	assert.Equal(t, "novo texto", hits[0].Section.Content)

	n, err = store.Count(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUpsert_InvalidInput(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		sections []domain.Section
		vectors  [][]float32
		model    string
	}{
		{"length mismatch", []domain.Section{section("a", "M", domain.SectionGeneral, "x")}, nil, testModel},
		{"no model", []domain.Section{section("a", "M", domain.SectionGeneral, "x")}, [][]float32{{1}}, ""},
		{"no id", []domain.Section{section("", "M", domain.SectionGeneral, "x")}, [][]float32{{1}}, testModel},
		{"ragged vectors", []domain.Section{
			section("a", "M", domain.SectionGeneral, "x"),
			section("b", "M", domain.SectionGeneral, "x"),
		}, [][]float32{{1, 0}, {1}}, testModel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Upsert(ctx, tt.sections, tt.vectors, tt.model)
			assert.ErrorIs(t, err, domain.ErrInvalidInput)
		})
	}

	assert.NoError(t, store.Upsert(ctx, nil, nil, testModel))
}

func TestEmbeddingModelMismatch(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seed(t, store)

	model, err := store.EmbeddingModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, testModel, model)

	err = store.Upsert(ctx, []domain.Section{section("x", "M", domain.SectionGeneral, "x")},
		[][]float32{{1, 0, 0}}, "other-model")
	assert.ErrorIs(t, err, domain.ErrEmbeddingModelMismatch)

	_, err = store.Query(ctx, []float32{1, 0, 0}, "other-model", 5, "")
	assert.ErrorIs(t, err, domain.ErrEmbeddingModelMismatch)

	n, err := store.Count(ctx, "M")
	require.NoError(t, err)
	assert.Zero(t, n, "rejected upsert must not write anything")
}

func TestEmbeddingModel_SwitchWhenEmpty(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seed(t, store)

	_, err := store.DeleteByModel(ctx, "L3150")
	require.NoError(t, err)
	_, err = store.DeleteByModel(ctx, "L4260")
	require.NoError(t, err)

	err = store.Upsert(ctx, []domain.Section{section("x", "M", domain.SectionGeneral, "x")},
		[][]float32{{1, 0}}, "other-model")
	require.NoError(t, err)

	model, err := store.EmbeddingModel(ctx)
	require.NoError(t, err)
	assert.Equal(t, "other-model", model)
}

func TestDeleteByModel(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seed(t, store)

	n, err := store.DeleteByModel(ctx, "L3150")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	hits, err := store.Query(ctx, []float32{1, 0, 0}, testModel, 10, "L3150")
	require.NoError(t, err)
	assert.Empty(t, hits)

	n, err = store.DeleteByModel(ctx, "L3150")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestModelHashesAndCount(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()
	seed(t, store)

	hashes, err := store.ModelHashes(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"L3150": "hash-L3150", "L4260": "hash-L4260"}, hashes)

	n, err := store.Count(ctx, "L3150")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCollectionsAreIsolated(t *testing.T) {
	dir := t.TempDir()
	a, err := NewStore(dir, "a")
	require.NoError(t, err)
	defer a.Close()
	b, err := NewStore(dir, "b")
	require.NoError(t, err)
	defer b.Close()

	seed(t, a)

	n, err := b.Count(context.Background(), "")
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestReopen_SameResults(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	query := []float32{0.7, 0.3, 0}

	store, err := NewStore(dir, "")
	require.NoError(t, err)
	seed(t, store)
	before, err := store.Query(ctx, query, testModel, 10, "")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(dir, "")
	require.NoError(t, err)
	defer reopened.Close()
	after, err := reopened.Query(ctx, query, testModel, 10, "")
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestWriteLock(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AcquireWriteLock(ctx, "run-1", time.Minute))
	require.NoError(t, store.AcquireWriteLock(ctx, "run-1", time.Minute), "re-acquire by holder")

	err := store.AcquireWriteLock(ctx, "run-2", time.Minute)
	assert.ErrorIs(t, err, domain.ErrSyncInProgress)

	require.NoError(t, store.ReleaseWriteLock(ctx, "run-2"), "release by non-holder is a no-op")
	assert.ErrorIs(t, store.AcquireWriteLock(ctx, "run-2", time.Minute), domain.ErrSyncInProgress)

	require.NoError(t, store.ReleaseWriteLock(ctx, "run-1"))
	assert.NoError(t, store.AcquireWriteLock(ctx, "run-2", time.Minute))
}

func TestWriteLock_Expired(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.AcquireWriteLock(ctx, "stale", -time.Second))
	assert.NoError(t, store.AcquireWriteLock(ctx, "fresh", time.Minute))
}

func TestWriteLock_Concurrent(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if store.AcquireWriteLock(ctx, string(rune('a'+i)), time.Minute) == nil {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}

// Round trip through the store with a synthetic section.
func TestRoundTrip_SyntheticSection(t *testing.T) {
	store, _ := setupTestStore(t)
	ctx := context.Background()

	t1 := domain.Section{
		ID:           "t1",
		Content:      "Clean the print head using the maintenance menu",
		Type:         domain.SectionTroubleshooting,
		PrinterModel: "X100",
	}
	require.NoError(t, store.Upsert(ctx, []domain.Section{t1}, [][]float32{{0.6, 0.8}}, testModel))

	hits, err := store.Query(ctx, []float32{0.8, 0.6}, testModel, 5, "X100")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "t1", hits[0].Section.ID)
	assert.Greater(t, hits[0].Similarity(), 0.0)

	hits, err = store.Query(ctx, []float32{0.8, 0.6}, testModel, 5, "Y200")
	require.NoError(t, err)
	assert.Empty(t, hits)
}
