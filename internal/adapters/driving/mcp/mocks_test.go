package mcp

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/registryfile"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/services"
)

// --- Mock implementations ---

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results  []domain.SearchResult
	err      error
	lastOpts domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	_ string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastOpts = opts
	return m.results, m.err
}

// newSeededPorts returns ports backed by the shipped printer registry.
func newSeededPorts(t *testing.T) *Ports {
	t.Helper()
	registry := services.NewRegistryService(memory.NewRegistryStore(), memory.NewSectionStore())
	_, err := registry.SeedIfEmpty(context.Background(), registryfile.Seed())
	require.NoError(t, err)

	return &Ports{
		Search:   &mockSearchService{},
		Resolver: services.NewResolverService(registry),
		Registry: registry,
	}
}
