package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// Index a section with the offline encoder and find it again through the
// search service.
func TestSearchService_RoundTripThroughStore(t *testing.T) {
	ctx := context.Background()
	store, err := sqlite.NewStore(t.TempDir(), "")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	encoder := embedding.NewEncoder(hashing.New(0))

	t1 := domain.Section{
		ID:           "t1",
		Content:      "Clean the print head using the maintenance menu",
		Type:         domain.SectionTroubleshooting,
		PrinterModel: "X100",
	}
	vectors, err := encoder.Embed(ctx, []string{t1.IndexText()}, driven.RoleDocument)
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, []domain.Section{t1}, vectors, encoder.ModelName()))

	svc := NewSearchService(encoder, store)
	opts := domain.SearchOptions{ModelFilter: "X100", MinSimilarity: 0.1}

	results, err := svc.Search(ctx, "head cleaning", opts)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "t1", results[0].Section.ID)
	assert.GreaterOrEqual(t, results[0].Score, 10)

	opts.ModelFilter = "Y200"
	results, err = svc.Search(ctx, "head cleaning", opts)
	require.NoError(t, err)
	assert.Empty(t, results)

	_, err = store.DeleteByModel(ctx, "X100")
	require.NoError(t, err)
	opts.ModelFilter = "X100"
	results, err = svc.Search(ctx, "head cleaning", opts)
	require.NoError(t, err)
	assert.Empty(t, results)
}
