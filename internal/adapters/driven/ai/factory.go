// Package ai builds the embedding service from settings.
package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding/gemini"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding/hashing"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding/ollama"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/ratelimit"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// breakerTimeout is how long an open circuit stays open.
const breakerTimeout = time.Minute

// defaultRetries is the number of extra attempts for retriable failures.
const defaultRetries = 2

// DefaultSettings returns the embedding settings used when nothing is configured:
// multilingual-e5-base served by a local OpenAI-compatible server.
func DefaultSettings() domain.EmbeddingSettings {
	return domain.DefaultAppSettings().Embedding
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
// Returns the service if successful, or an error with guidance.
func CreateAndValidateEmbeddingService(
	ctx context.Context,
	settings domain.EmbeddingSettings,
	limiter *ratelimit.RateLimiter,
) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings, limiter)
	if err != nil {
		return nil, fmt.Errorf("%w: %w. Check the [embedding] section of the config file",
			domain.ErrEmbeddingBackend, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := svc.Ping(pingCtx); err != nil {
		svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w). Is the %s server running?",
			domain.ErrEmbeddingBackend, err, settings.Provider)
	}

	return svc, nil
}

// CreateEmbeddingService creates the backend named by the settings and wraps it
// in an Encoder. The limiter may be nil.
func CreateEmbeddingService(
	ctx context.Context,
	settings domain.EmbeddingSettings,
	limiter *ratelimit.RateLimiter,
) (*embedding.Encoder, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	backend, err := createBackend(ctx, settings)
	if err != nil {
		return nil, err
	}

	opts := []embedding.Option{
		embedding.WithBatchSize(batchSize(settings)),
		embedding.WithParallelism(settings.Parallelism),
		embedding.WithTimeout(settings.Timeout),
	}
	if settings.Provider != domain.ProviderHashing {
		opts = append(opts, embedding.WithRetries(defaultRetries, embedding.DefaultRetryDelay))
	}
	if limiter != nil {
		opts = append(opts, embedding.WithRateLimiter(limiter))
	}
	if settings.CircuitBreaker {
		opts = append(opts, embedding.WithCircuitBreaker(breakerTimeout))
	}

	return embedding.NewEncoder(backend, opts...), nil
}

func createBackend(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingBackend, error) {
	switch settings.Provider {
	case domain.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: dimensions(settings),
		}), nil

	case domain.ProviderOllama:
		return ollama.New(ollama.Config{
			BaseURL:    settings.BaseURL,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		}), nil

	case domain.ProviderGemini:
		return gemini.New(ctx, gemini.Config{
			APIKey:     settings.APIKey,
			Model:      settings.Model,
			Dimensions: settings.Dimensions,
		})

	case domain.ProviderHashing:
		return hashing.New(settings.Dimensions), nil

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}

// batchSize prefers the configured size, then the model preset.
func batchSize(settings domain.EmbeddingSettings) int {
	if settings.BatchSize > 0 {
		return settings.BatchSize
	}
	if p, ok := domain.LookupPreset(settings.Model); ok {
		return p.BatchSize
	}
	return embedding.DefaultBatchSize
}

func dimensions(settings domain.EmbeddingSettings) int {
	if settings.Dimensions > 0 {
		return settings.Dimensions
	}
	if p, ok := domain.LookupPreset(settings.Model); ok {
		return p.Dimensions
	}
	return 0
}
