// Command printdesk answers support questions from indexed Epson manuals.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/ai"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/config/file"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/registryfile"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/source/filesystem"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/source/gdrive"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/storage/sqlite"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/cli"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/core/services"
	"github.com/custodia-labs/printdesk/internal/extractor"
	"github.com/custodia-labs/printdesk/internal/logger"
	"github.com/custodia-labs/printdesk/internal/ratelimit"
)

// version is set with -ldflags "-X main.version=...".
var version = "dev"

// driveRequestsPerMinute stays well under the Drive API per-user quota.
const driveRequestsPerMinute = 600

func main() {
	// A missing .env file is fine.
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	code := 0
	if err := run(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		code = 1
	}
	stop()
	os.Exit(code)
}

func run(ctx context.Context) error {
	configStore, err := file.NewConfigStore("")
	if err != nil {
		return fmt.Errorf("failed to open config: %w", err)
	}
	settingsSvc := services.NewSettingsService(configStore)

	settings, err := settingsSvc.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	vocab, err := loadVocabulary(settings.Vocabulary)
	if err != nil {
		return err
	}

	store, err := sqlite.NewStore(settings.Store.Path, settings.Store.Collection)
	if err != nil {
		return err
	}
	defer store.Close()

	registry := services.NewRegistryService(store.RegistryStore(), store)
	if n, err := registry.SeedIfEmpty(ctx, registryfile.Seed()); err != nil {
		logger.Warn("Seeding the printer registry failed: %v", err)
	} else if n > 0 {
		logger.Debug("Seeded %d printer models", n)
	}
	resolver := services.NewResolverService(registry, vocab.resolver...)

	cliServices := cli.Services{
		Resolver: resolver,
		Registry: registry,
		Settings: settingsSvc,
	}

	// Search and ingest need the embedding backend. Without it the
	// registry, resolver and config commands still work.
	embedder, err := createEmbedder(ctx, settings.Embedding)
	if err != nil {
		logger.Warn("Embedding backend unavailable: %v", err)
	} else {
		defer embedder.Close()

		ex := extractor.New(vocab.extractor...)
		searchOpts := append([]services.SearchOption{services.WithKeywordExtractor(ex)}, vocab.search...)
		cliServices.Search = services.NewSearchService(embedder, store, searchOpts...)

		ingest := services.NewIngestService(ex, registry, embedder, store)
		sources, watchers := createSources(ctx, settings)
		cliServices.Sync = services.NewSyncOrchestrator(store, store, store.SyncRunStore(), ingest, sources...)
		cliServices.Watchers = watchers
	}

	cli.SetServices(cliServices)
	cli.SetVersion(version)
	return cli.Execute(ctx)
}

func createEmbedder(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	var limiter *ratelimit.RateLimiter
	if settings.RequestsPerMinute > 0 {
		limiter = ratelimit.New(ratelimit.Config{RequestsPerMinute: settings.RequestsPerMinute})
	}
	encoder, err := ai.CreateEmbeddingService(ctx, settings, limiter)
	if err != nil {
		return nil, err
	}
	return encoder, nil
}

// createSources builds the configured manual sources. A source that
// cannot be created is skipped with a warning.
func createSources(ctx context.Context, settings *domain.AppSettings) ([]driven.ManualSource, []cli.ChangeWatcher) {
	var (
		sources  []driven.ManualSource
		watchers []cli.ChangeWatcher
	)

	if settings.Source.Dir != "" {
		fs := filesystem.New(settings.Source.Dir)
		sources = append(sources, fs)
		watchers = append(watchers, fs)
	}

	if settings.Drive.IsConfigured() {
		limiter := ratelimit.New(ratelimit.Config{RequestsPerMinute: driveRequestsPerMinute})
		drive, err := gdrive.New(ctx, settings.Drive, limiter)
		if err != nil {
			logger.Warn("Google Drive source disabled: %v", err)
		} else {
			sources = append(sources, drive)
		}
	}

	return sources, watchers
}
