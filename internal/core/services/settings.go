package services

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
)

// Ensure SettingsService implements the interface.
var _ driving.SettingsService = (*SettingsService)(nil)

// Config keys for settings storage.
//
//nolint:gosec // G101: These are config key names, not actual credentials.
const (
	keyEmbedProvider    = "embedding.provider"
	keyEmbedModel       = "embedding.model"
	keyEmbedBaseURL     = "embedding.base_url"
	keyEmbedAPIKey      = "embedding.api_key"
	keyEmbedDimensions  = "embedding.dimensions"
	keyEmbedBatchSize   = "embedding.batch_size"
	keyEmbedParallelism = "embedding.parallelism"
	keyEmbedBreaker     = "embedding.circuit_breaker"
	keyStorePath        = "store.path"
	keyStoreCollection  = "store.collection"
	keySearchTopK       = "search.top_k"
	keySearchMinSim     = "search.min_similarity"
	keySearchHybrid     = "search.hybrid"
	keySourceDir        = "source.dir"
	keyDriveFolder      = "drive.folder_id"
	keyDriveCredentials = "drive.credentials_file"
	keyDriveCacheDir    = "drive.cache_dir"
	keyRateLimitRPM     = "ratelimit.requests_per_minute"
	keyRulesFile        = "extractor.rules_file"
	keyExpansionFile    = "search.expansion_file"
	keyFunnelFile       = "resolver.funnel_file"
)

// Environment variables consulted for API keys that are not in the config file.
//
//nolint:gosec // G101: variable names, not credentials.
const (
	EnvOpenAIKey = "OPENAI_API_KEY"
	EnvGeminiKey = "GEMINI_API_KEY"
)

type fieldKind int

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindProvider
)

// settingField binds a config key to its place in AppSettings.
type settingField struct {
	key    string
	kind   fieldKind
	secret bool
	format func(s *domain.AppSettings) string
}

var settingFields = []settingField{
	{keyEmbedProvider, kindProvider, false, func(s *domain.AppSettings) string { return string(s.Embedding.Provider) }},
	{keyEmbedModel, kindString, false, func(s *domain.AppSettings) string { return s.Embedding.Model }},
	{keyEmbedBaseURL, kindString, false, func(s *domain.AppSettings) string { return s.Embedding.BaseURL }},
	{keyEmbedAPIKey, kindString, true, func(s *domain.AppSettings) string { return s.Embedding.APIKey }},
	{keyEmbedDimensions, kindInt, false, func(s *domain.AppSettings) string { return strconv.Itoa(s.Embedding.Dimensions) }},
	{keyEmbedBatchSize, kindInt, false, func(s *domain.AppSettings) string { return strconv.Itoa(s.Embedding.BatchSize) }},
	{keyEmbedParallelism, kindInt, false, func(s *domain.AppSettings) string { return strconv.Itoa(s.Embedding.Parallelism) }},
	{keyEmbedBreaker, kindBool, false, func(s *domain.AppSettings) string { return strconv.FormatBool(s.Embedding.CircuitBreaker) }},
	{keyStorePath, kindString, false, func(s *domain.AppSettings) string { return s.Store.Path }},
	{keyStoreCollection, kindString, false, func(s *domain.AppSettings) string { return s.Store.Collection }},
	{keySearchTopK, kindInt, false, func(s *domain.AppSettings) string { return strconv.Itoa(s.Search.TopK) }},
	{keySearchMinSim, kindFloat, false, func(s *domain.AppSettings) string {
		return strconv.FormatFloat(s.Search.MinSimilarity, 'g', -1, 64)
	}},
	{keySearchHybrid, kindBool, false, func(s *domain.AppSettings) string { return strconv.FormatBool(s.Search.Hybrid) }},
	{keySourceDir, kindString, false, func(s *domain.AppSettings) string { return s.Source.Dir }},
	{keyDriveFolder, kindString, false, func(s *domain.AppSettings) string { return s.Drive.FolderID }},
	{keyDriveCredentials, kindString, false, func(s *domain.AppSettings) string { return s.Drive.CredentialsFile }},
	{keyDriveCacheDir, kindString, false, func(s *domain.AppSettings) string { return s.Drive.CacheDir }},
	{keyRateLimitRPM, kindInt, false, func(s *domain.AppSettings) string {
		return strconv.Itoa(s.Embedding.RequestsPerMinute)
	}},
	{keyRulesFile, kindString, false, func(s *domain.AppSettings) string { return s.Vocabulary.RulesFile }},
	{keyExpansionFile, kindString, false, func(s *domain.AppSettings) string { return s.Vocabulary.ExpansionFile }},
	{keyFunnelFile, kindString, false, func(s *domain.AppSettings) string { return s.Vocabulary.FunnelFile }},
}

// SettingsOption configures a SettingsService.
type SettingsOption func(*SettingsService)

// WithEnv replaces the environment lookup used for API keys.
func WithEnv(getenv func(string) string) SettingsOption {
	return func(s *SettingsService) {
		if getenv != nil {
			s.getenv = getenv
		}
	}
}

// SettingsService manages application settings.
type SettingsService struct {
	configStore driven.ConfigStore
	getenv      func(string) string
}

// NewSettingsService creates a new settings service.
func NewSettingsService(configStore driven.ConfigStore, opts ...SettingsOption) *SettingsService {
	s := &SettingsService{
		configStore: configStore,
		getenv:      os.Getenv,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get retrieves current application settings.
func (s *SettingsService) Get() (*domain.AppSettings, error) {
	defaults := domain.DefaultAppSettings()

	settings := &domain.AppSettings{
		Embedding: domain.EmbeddingSettings{
			Provider:          s.getProvider(defaults.Embedding.Provider),
			Model:             s.getString(keyEmbedModel, defaults.Embedding.Model),
			BaseURL:           s.getString(keyEmbedBaseURL, defaults.Embedding.BaseURL),
			APIKey:            s.configStore.GetString(keyEmbedAPIKey),
			Dimensions:        s.configStore.GetInt(keyEmbedDimensions),
			BatchSize:         s.configStore.GetInt(keyEmbedBatchSize),
			Parallelism:       s.getInt(keyEmbedParallelism, defaults.Embedding.Parallelism),
			Timeout:           defaults.Embedding.Timeout,
			RequestsPerMinute: s.configStore.GetInt(keyRateLimitRPM),
			CircuitBreaker:    s.getBool(keyEmbedBreaker, defaults.Embedding.CircuitBreaker),
		},
		Store: domain.StoreSettings{
			Path:       s.configStore.GetString(keyStorePath),
			Collection: s.getString(keyStoreCollection, defaults.Store.Collection),
		},
		Search: domain.SearchOptions{
			TopK:          s.getInt(keySearchTopK, defaults.Search.TopK),
			MinSimilarity: s.getFloat(keySearchMinSim, defaults.Search.MinSimilarity),
			Hybrid:        s.getBool(keySearchHybrid, defaults.Search.Hybrid),
		},
		Source: domain.SourceSettings{
			Dir: s.configStore.GetString(keySourceDir),
		},
		Drive: domain.DriveSettings{
			FolderID:        s.configStore.GetString(keyDriveFolder),
			CredentialsFile: s.configStore.GetString(keyDriveCredentials),
			CacheDir:        s.configStore.GetString(keyDriveCacheDir),
		},
		Vocabulary: domain.VocabularySettings{
			RulesFile:     s.configStore.GetString(keyRulesFile),
			ExpansionFile: s.configStore.GetString(keyExpansionFile),
			FunnelFile:    s.configStore.GetString(keyFunnelFile),
		},
	}

	if settings.Embedding.APIKey == "" {
		settings.Embedding.APIKey = s.envAPIKey(settings.Embedding.Provider)
	}

	return settings, nil
}

// Save persists application settings. Empty API keys are not written so a
// key supplied through the environment never lands in the config file.
func (s *SettingsService) Save(settings *domain.AppSettings) error {
	if settings == nil {
		return fmt.Errorf("%w: nil settings", domain.ErrInvalidInput)
	}

	values := []struct {
		key   string
		value any
	}{
		{keyEmbedProvider, string(settings.Embedding.Provider)},
		{keyEmbedModel, settings.Embedding.Model},
		{keyEmbedBaseURL, settings.Embedding.BaseURL},
		{keyEmbedDimensions, settings.Embedding.Dimensions},
		{keyEmbedBatchSize, settings.Embedding.BatchSize},
		{keyEmbedParallelism, settings.Embedding.Parallelism},
		{keyEmbedBreaker, settings.Embedding.CircuitBreaker},
		{keyRateLimitRPM, settings.Embedding.RequestsPerMinute},
		{keyStorePath, settings.Store.Path},
		{keyStoreCollection, settings.Store.Collection},
		{keySearchTopK, settings.Search.TopK},
		{keySearchMinSim, settings.Search.MinSimilarity},
		{keySearchHybrid, settings.Search.Hybrid},
		{keySourceDir, settings.Source.Dir},
		{keyDriveFolder, settings.Drive.FolderID},
		{keyDriveCredentials, settings.Drive.CredentialsFile},
		{keyDriveCacheDir, settings.Drive.CacheDir},
		{keyRulesFile, settings.Vocabulary.RulesFile},
		{keyExpansionFile, settings.Vocabulary.ExpansionFile},
		{keyFunnelFile, settings.Vocabulary.FunnelFile},
	}
	for _, v := range values {
		if err := s.configStore.Set(v.key, v.value); err != nil {
			return fmt.Errorf("save %s: %w", v.key, err)
		}
	}

	if settings.Embedding.APIKey != "" && settings.Embedding.APIKey != s.envAPIKey(settings.Embedding.Provider) {
		if err := s.configStore.Set(keyEmbedAPIKey, settings.Embedding.APIKey); err != nil {
			return fmt.Errorf("save %s: %w", keyEmbedAPIKey, err)
		}
	}

	return nil
}

// Set parses value according to the key's type and persists it.
func (s *SettingsService) Set(key, value string) error {
	field, ok := lookupField(key)
	if !ok {
		return fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	value = strings.TrimSpace(value)
	var typed any
	switch field.kind {
	case kindString:
		typed = value
	case kindInt:
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%w: %s must be a non-negative integer", domain.ErrInvalidInput, key)
		}
		typed = n
	case kindFloat:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("%w: %s must be a number", domain.ErrInvalidInput, key)
		}
		typed = f
	case kindBool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("%w: %s must be true or false", domain.ErrInvalidInput, key)
		}
		typed = b
	case kindProvider:
		p := domain.EmbeddingProvider(strings.ToLower(value))
		if !p.IsValid() {
			return fmt.Errorf("%w: unknown embedding provider %q", domain.ErrInvalidInput, value)
		}
		typed = string(p)
	}

	if err := s.configStore.Set(field.key, typed); err != nil {
		return fmt.Errorf("save %s: %w", field.key, err)
	}
	return nil
}

// Value returns the effective value of key. Secrets are masked.
func (s *SettingsService) Value(key string) (string, error) {
	field, ok := lookupField(key)
	if !ok {
		return "", fmt.Errorf("%w: unknown setting %q", domain.ErrInvalidInput, key)
	}

	settings, err := s.Get()
	if err != nil {
		return "", err
	}

	v := field.format(settings)
	if field.secret {
		return maskSecret(v), nil
	}
	return v, nil
}

// Keys lists the recognised setting keys.
func (s *SettingsService) Keys() []string {
	keys := make([]string, len(settingFields))
	for i, f := range settingFields {
		keys[i] = f.key
	}
	return keys
}

// Validate checks the effective settings are usable.
func (s *SettingsService) Validate() error {
	settings, err := s.Get()
	if err != nil {
		return err
	}

	if err := settings.Embedding.Validate(); err != nil {
		return err
	}
	if settings.Store.Collection == "" {
		return fmt.Errorf("%w: store.collection must not be empty", domain.ErrInvalidInput)
	}
	if settings.Search.MinSimilarity > 1 {
		return fmt.Errorf("%w: search.min_similarity must not exceed 1", domain.ErrInvalidInput)
	}
	if settings.Drive.IsConfigured() && settings.Drive.CredentialsFile == "" {
		return fmt.Errorf("%w: drive.folder_id is set but drive.credentials_file is not", domain.ErrInvalidInput)
	}

	return nil
}

// Helper methods for reading config with defaults.

func (s *SettingsService) getString(key, defaultVal string) string {
	val := s.configStore.GetString(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getInt(key string, defaultVal int) int {
	val := s.configStore.GetInt(key)
	if val == 0 {
		return defaultVal
	}
	return val
}

func (s *SettingsService) getFloat(key string, defaultVal float64) float64 {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetFloat(key)
}

func (s *SettingsService) getBool(key string, defaultVal bool) bool {
	if _, exists := s.configStore.Get(key); !exists {
		return defaultVal
	}
	return s.configStore.GetBool(key)
}

func (s *SettingsService) getProvider(defaultVal domain.EmbeddingProvider) domain.EmbeddingProvider {
	val := s.configStore.GetString(keyEmbedProvider)
	if val == "" {
		return defaultVal
	}
	provider := domain.EmbeddingProvider(val)
	if !provider.IsValid() {
		return defaultVal
	}
	return provider
}

func (s *SettingsService) envAPIKey(provider domain.EmbeddingProvider) string {
	switch provider {
	case domain.ProviderOpenAI:
		return s.getenv(EnvOpenAIKey)
	case domain.ProviderGemini:
		return s.getenv(EnvGeminiKey)
	default:
		return ""
	}
}

func lookupField(key string) (settingField, bool) {
	key = strings.ToLower(strings.TrimSpace(key))
	for _, f := range settingFields {
		if f.key == key {
			return f, true
		}
	}
	return settingField{}, false
}

func maskSecret(v string) string {
	if v == "" {
		return ""
	}
	if len(v) <= 8 {
		return "****"
	}
	return v[:4] + "****" + v[len(v)-4:]
}
