package cli

import (
	"bytes"
	"context"
	"strings"
	"sync"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/registryfile"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/core/services"
)

// --- Mock implementations ---

// mockSearchService is a mock implementation of driving.SearchService.
type mockSearchService struct {
	results   []domain.SearchResult
	err       error
	lastQuery string
	lastOpts  domain.SearchOptions
}

func (m *mockSearchService) Search(
	_ context.Context,
	query string,
	opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.results, m.err
}

// mockSyncOrchestrator is a mock implementation of driving.SyncOrchestrator.
type mockSyncOrchestrator struct {
	mu       sync.Mutex
	sources  []string
	plan     domain.SyncPlan
	stats    domain.SyncStats
	report   domain.IngestReport
	status   *driving.SyncStatus
	syncErr  error
	planErr  error
	synced   []string
	ingested []string
}

func (m *mockSyncOrchestrator) Sources() []string {
	return m.sources
}

func (m *mockSyncOrchestrator) Plan(context.Context, string) (domain.SyncPlan, error) {
	return m.plan, m.planErr
}

func (m *mockSyncOrchestrator) Sync(_ context.Context, source string) (domain.SyncStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.synced = append(m.synced, source)
	stats := m.stats
	stats.Source = source
	return stats, m.syncErr
}

func (m *mockSyncOrchestrator) Status(_ context.Context, source string) (*driving.SyncStatus, error) {
	if m.status != nil {
		return m.status, nil
	}
	return &driving.SyncStatus{Source: source}, nil
}

func (m *mockSyncOrchestrator) Ingest(_ context.Context, path, modelID string) (domain.IngestReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingested = append(m.ingested, path+"|"+modelID)
	return m.report, m.syncErr
}

func (m *mockSyncOrchestrator) syncedSources() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.synced...)
}

// mockWatcher emits the batches pushed on its channel.
type mockWatcher struct {
	name    string
	changes chan []string
	err     error
}

func (m *mockWatcher) Name() string {
	return m.name
}

func (m *mockWatcher) Watch(context.Context) (<-chan []string, error) {
	return m.changes, m.err
}

var (
	_ driving.SearchService    = (*mockSearchService)(nil)
	_ driving.SyncOrchestrator = (*mockSyncOrchestrator)(nil)
	_ ChangeWatcher            = (*mockWatcher)(nil)
)

// testServices holds the services installed by setupTestServices.
type testServices struct {
	search   *mockSearchService
	sync     *mockSyncOrchestrator
	registry *services.RegistryService
	settings *services.SettingsService
}

var current *testServices

// setupTestServices installs mocks plus a registry seeded with the
// shipped printer models, and resets every command flag.
func setupTestServices() func() {
	registry := services.NewRegistryService(memory.NewRegistryStore(), memory.NewSectionStore())
	if _, err := registry.SeedIfEmpty(context.Background(), registryfile.Seed()); err != nil {
		panic(err)
	}

	current = &testServices{
		search:   &mockSearchService{},
		sync:     &mockSyncOrchestrator{sources: []string{"filesystem"}},
		registry: registry,
		settings: services.NewSettingsService(memory.NewConfigStore(nil),
			services.WithEnv(func(string) string { return "" })),
	}

	SetServices(Services{
		Search:   current.search,
		Resolver: services.NewResolverService(registry),
		Registry: registry,
		Sync:     current.sync,
		Settings: current.settings,
	})
	resetFlags()

	origTerminal := isTerminal
	isTerminal = func() bool { return false }

	return func() {
		SetServices(Services{})
		resetFlags()
		isTerminal = origTerminal
		current = nil
	}
}

func resetFlags() {
	searchModel, searchTopK, searchHybrid, searchRelax, searchIdentify, searchJSON =
		"", domain.DefaultTopK, false, false, false, false
	resolveJSON = false
	funnelCandidates = []string{}
	funnelAnswers = map[string]string{}
	funnelBatch = false
	modelsExportFormat, modelsRemoveYes = "toml", false
	deleteYes = false
	ingestModel = ""
	syncDryRun = false
	watchInterval = 0
	mcpPort, mcpHost = 0, "localhost"
	tuiTopK, tuiHybrid = domain.DefaultTopK, false
}

// execute runs the root command with args and returns its output.
func execute(args ...string) (string, error) {
	return executeWithInput("", args...)
}

func executeWithInput(input string, args ...string) (string, error) {
	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetIn(strings.NewReader(input))
	rootCmd.SetArgs(args)
	defer func() {
		rootCmd.SetArgs(nil)
		rootCmd.SetIn(nil)
	}()

	err := rootCmd.Execute()
	return buf.String(), err
}
