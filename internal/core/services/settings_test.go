package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/printdesk/internal/core/domain"
)

func noEnv(string) string { return "" }

func TestNewSettingsService(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store)

	require.NotNil(t, service)
}

func TestSettingsService_Get_ReturnsDefaults(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil), WithEnv(noEnv))

	settings, err := service.Get()

	require.NoError(t, err)
	require.NotNil(t, settings)

	defaults := domain.DefaultAppSettings()
	assert.Equal(t, defaults.Embedding.Provider, settings.Embedding.Provider)
	assert.Equal(t, defaults.Embedding.Model, settings.Embedding.Model)
	assert.Equal(t, defaults.Embedding.BaseURL, settings.Embedding.BaseURL)
	assert.Equal(t, defaults.Store.Collection, settings.Store.Collection)
	assert.Equal(t, defaults.Search.TopK, settings.Search.TopK)
	assert.InDelta(t, defaults.Search.MinSimilarity, settings.Search.MinSimilarity, 1e-9)
	assert.Empty(t, settings.Embedding.APIKey)
}

func TestSettingsService_Get_ReturnsStoredValues(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{
		"embedding.provider":            "ollama",
		"embedding.model":               "bge-m3",
		"embedding.batch_size":          int64(16),
		"store.collection":              "manuals_v2",
		"search.top_k":                  int64(5),
		"search.min_similarity":         -1.0,
		"search.hybrid":                 true,
		"source.dir":                    "/srv/manuals",
		"drive.folder_id":               "folder",
		"drive.credentials_file":        "sa.json",
		"ratelimit.requests_per_minute": int64(30),
		"embedding.circuit_breaker":     true,
	})
	service := NewSettingsService(store, WithEnv(noEnv))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.ProviderOllama, settings.Embedding.Provider)
	assert.Equal(t, "bge-m3", settings.Embedding.Model)
	assert.Equal(t, 16, settings.Embedding.BatchSize)
	assert.Equal(t, 30, settings.Embedding.RequestsPerMinute)
	assert.True(t, settings.Embedding.CircuitBreaker)
	assert.Equal(t, "manuals_v2", settings.Store.Collection)
	assert.Equal(t, 5, settings.Search.TopK)
	assert.InDelta(t, -1.0, settings.Search.MinSimilarity, 1e-9)
	assert.True(t, settings.Search.Hybrid)
	assert.Equal(t, "/srv/manuals", settings.Source.Dir)
	assert.True(t, settings.Drive.IsConfigured())
	assert.Equal(t, "sa.json", settings.Drive.CredentialsFile)
}

func TestSettingsService_Get_InvalidProviderReturnsDefault(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.provider": "invalid_provider"})
	service := NewSettingsService(store, WithEnv(noEnv))

	settings, err := service.Get()

	require.NoError(t, err)
	assert.Equal(t, domain.ProviderOpenAI, settings.Embedding.Provider)
}

func TestSettingsService_Get_APIKeyFromEnvironment(t *testing.T) {
	env := map[string]string{
		EnvOpenAIKey: "sk-openai",
		EnvGeminiKey: "gm-gemini",
	}
	getenv := func(k string) string { return env[k] }

	t.Run("openai", func(t *testing.T) {
		service := NewSettingsService(memory.NewConfigStore(nil), WithEnv(getenv))
		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "sk-openai", settings.Embedding.APIKey)
	})

	t.Run("gemini", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"embedding.provider": "gemini"})
		service := NewSettingsService(store, WithEnv(getenv))
		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "gm-gemini", settings.Embedding.APIKey)
	})

	t.Run("hashing has no key", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"embedding.provider": "hashing"})
		service := NewSettingsService(store, WithEnv(getenv))
		settings, err := service.Get()
		require.NoError(t, err)
		assert.Empty(t, settings.Embedding.APIKey)
	})

	t.Run("stored key wins", func(t *testing.T) {
		store := memory.NewConfigStore(map[string]any{"embedding.api_key": "stored"})
		service := NewSettingsService(store, WithEnv(getenv))
		settings, err := service.Get()
		require.NoError(t, err)
		assert.Equal(t, "stored", settings.Embedding.APIKey)
	})
}

func TestSettingsService_SaveRoundTrip(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store, WithEnv(noEnv))

	settings := domain.DefaultAppSettings()
	settings.Embedding.Provider = domain.ProviderHashing
	settings.Embedding.Dimensions = 256
	settings.Search.TopK = 7
	settings.Source.Dir = "/data/pdfs"

	require.NoError(t, service.Save(&settings))

	got, err := service.Get()
	require.NoError(t, err)
	assert.Equal(t, domain.ProviderHashing, got.Embedding.Provider)
	assert.Equal(t, 256, got.Embedding.Dimensions)
	assert.Equal(t, 7, got.Search.TopK)
	assert.Equal(t, "/data/pdfs", got.Source.Dir)

	_, stored := store.Get("embedding.api_key")
	assert.False(t, stored)
}

func TestSettingsService_Save_DoesNotPersistEnvironmentKey(t *testing.T) {
	store := memory.NewConfigStore(nil)
	service := NewSettingsService(store, WithEnv(func(k string) string {
		if k == EnvOpenAIKey {
			return "sk-env"
		}
		return ""
	}))

	settings, err := service.Get()
	require.NoError(t, err)
	require.Equal(t, "sk-env", settings.Embedding.APIKey)

	require.NoError(t, service.Save(settings))

	_, stored := store.Get("embedding.api_key")
	assert.False(t, stored)
}

func TestSettingsService_Save_Nil(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil))

	err := service.Save(nil)

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestSettingsService_Set(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   string
		want    string
		wantErr bool
	}{
		{"string", "source.dir", "/pdfs", "/pdfs", false},
		{"vocabulary file", "extractor.rules_file", "/etc/printdesk/rules.toml", "/etc/printdesk/rules.toml", false},
		{"int", "search.top_k", "8", "8", false},
		{"float", "search.min_similarity", "0.35", "0.35", false},
		{"bool", "search.hybrid", "true", "true", false},
		{"provider case folded", "embedding.provider", "Gemini", "gemini", false},
		{"key case folded", "Search.Top_K", "3", "3", false},
		{"unknown key", "search.mode", "hybrid", "", true},
		{"bad int", "search.top_k", "many", "", true},
		{"negative int", "embedding.batch_size", "-4", "", true},
		{"bad float", "search.min_similarity", "high", "", true},
		{"bad bool", "search.hybrid", "sometimes", "", true},
		{"bad provider", "embedding.provider", "cohere", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(nil), WithEnv(noEnv))

			err := service.Set(tt.key, tt.value)
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			require.NoError(t, err)

			got, err := service.Value(tt.key)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSettingsService_Value(t *testing.T) {
	store := memory.NewConfigStore(map[string]any{"embedding.api_key": "sk-1234567890abcd"})
	service := NewSettingsService(store, WithEnv(noEnv))

	t.Run("masks secrets", func(t *testing.T) {
		v, err := service.Value("embedding.api_key")
		require.NoError(t, err)
		assert.Equal(t, "sk-1****abcd", v)
	})

	t.Run("defaults are reported", func(t *testing.T) {
		v, err := service.Value("store.collection")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultCollection, v)
	})

	t.Run("unknown key", func(t *testing.T) {
		_, err := service.Value("nope")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestSettingsService_Keys(t *testing.T) {
	service := NewSettingsService(memory.NewConfigStore(nil))

	keys := service.Keys()

	assert.Equal(t, "embedding.provider", keys[0])
	assert.Contains(t, keys, "ratelimit.requests_per_minute")
	assert.Contains(t, keys, "drive.folder_id")
	assert.Contains(t, keys, "extractor.rules_file")
	assert.Contains(t, keys, "search.expansion_file")
	assert.Contains(t, keys, "resolver.funnel_file")
	for _, k := range keys {
		_, err := service.Value(k)
		assert.NoError(t, err, k)
	}
}

func TestSettingsService_Validate(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string]any
		wantErr bool
	}{
		{"defaults", nil, false},
		{"gemini without key", map[string]any{"embedding.provider": "gemini"}, true},
		{"similarity above one", map[string]any{"search.min_similarity": 1.5}, true},
		{"drive without credentials", map[string]any{"drive.folder_id": "abc"}, true},
		{"drive with credentials", map[string]any{"drive.folder_id": "abc", "drive.credentials_file": "sa.json"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := NewSettingsService(memory.NewConfigStore(tt.values), WithEnv(noEnv))

			err := service.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, domain.ErrInvalidInput)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestMaskSecret(t *testing.T) {
	assert.Empty(t, maskSecret(""))
	assert.Equal(t, "****", maskSecret("short"))
	assert.Equal(t, "abcd****wxyz", maskSecret("abcdefghwxyz"))
}
