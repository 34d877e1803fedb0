package domain

import (
	"fmt"
	"time"
)

const unknownDescription = "Unknown"

// EmbeddingProvider identifies an embedding backend.
type EmbeddingProvider string

// Available embedding providers.
const (
	// ProviderOpenAI is any OpenAI-compatible /embeddings endpoint,
	// including local TEI or infinity servers.
	ProviderOpenAI EmbeddingProvider = "openai"

	// ProviderOllama is a local Ollama instance.
	ProviderOllama EmbeddingProvider = "ollama"

	// ProviderGemini is the Google Gemini embedding API.
	ProviderGemini EmbeddingProvider = "gemini"

	// ProviderHashing is the offline feature-hashing embedder.
	ProviderHashing EmbeddingProvider = "hashing"
)

// IsValid returns true if the provider is recognised.
func (p EmbeddingProvider) IsValid() bool {
	switch p {
	case ProviderOpenAI, ProviderOllama, ProviderGemini, ProviderHashing:
		return true
	default:
		return false
	}
}

// RequiresAPIKey returns true if this provider needs an API key.
func (p EmbeddingProvider) RequiresAPIKey() bool {
	return p == ProviderGemini
}

// IsLocal returns true if this provider runs without network access to a cloud API.
func (p EmbeddingProvider) IsLocal() bool {
	return p == ProviderOllama || p == ProviderHashing
}

// Description returns a human-readable description of the provider.
func (p EmbeddingProvider) Description() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI-compatible API"
	case ProviderOllama:
		return "Ollama (local)"
	case ProviderGemini:
		return "Google Gemini (cloud)"
	case ProviderHashing:
		return "Feature hashing (offline)"
	default:
		return unknownDescription
	}
}

// ModelPreset is a known embedding model with its recommended batch size.
type ModelPreset struct {
	Name       string
	Model      string
	Dimensions int
	BatchSize  int
}

// ModelPresets are the multilingual models the manuals were indexed with.
var ModelPresets = []ModelPreset{
	{Name: "e5-small", Model: "intfloat/multilingual-e5-small", Dimensions: 384, BatchSize: 256},
	{Name: "e5-base", Model: "intfloat/multilingual-e5-base", Dimensions: 768, BatchSize: 128},
	{Name: "bge-m3", Model: "BAAI/bge-m3", Dimensions: 1024, BatchSize: 64},
	{Name: "minilm", Model: "sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2", Dimensions: 384, BatchSize: 128},
}

// LookupPreset returns the preset with the given short name or model name.
func LookupPreset(name string) (ModelPreset, bool) {
	for _, p := range ModelPresets {
		if p.Name == name || p.Model == name {
			return p, true
		}
	}
	return ModelPreset{}, false
}

// EmbeddingSettings holds embedding provider configuration.
type EmbeddingSettings struct {
	// Provider is the embedding backend.
	Provider EmbeddingProvider

	// Model is the embedding model name.
	Model string

	// BaseURL is the API endpoint (OpenAI-compatible and Ollama).
	BaseURL string

	// APIKey is the API key (OpenAI, Gemini).
	APIKey string

	// Dimensions overrides the model's vector size (hashing, unknown models).
	Dimensions int

	// BatchSize is the number of texts per backend request.
	BatchSize int

	// Parallelism is the number of batches in flight.
	Parallelism int

	// Timeout bounds each backend request.
	Timeout time.Duration

	// RequestsPerMinute throttles backend calls. Zero disables throttling.
	RequestsPerMinute int

	// CircuitBreaker enables failing fast after repeated backend errors.
	CircuitBreaker bool
}

// Validate checks the settings are usable.
func (e EmbeddingSettings) Validate() error {
	if !e.Provider.IsValid() {
		return fmt.Errorf("%w: unknown embedding provider %q", ErrInvalidInput, e.Provider)
	}
	if e.Provider.RequiresAPIKey() && e.APIKey == "" {
		return fmt.Errorf("%w: %s requires an API key", ErrInvalidInput, e.Provider)
	}
	if e.BatchSize < 0 || e.Parallelism < 0 {
		return fmt.Errorf("%w: batch size and parallelism must not be negative", ErrInvalidInput)
	}
	return nil
}

// StoreSettings locates the vector store.
type StoreSettings struct {
	// Path is the directory holding the SQLite index. Empty means
	// ~/.printdesk/data.
	Path string

	// Collection names the set of indexed sections.
	Collection string
}

// DefaultCollection is the collection the manuals are indexed into.
const DefaultCollection = "epson_manuals"

// DriveSettings configures the Google Drive manual source.
type DriveSettings struct {
	// FolderID is the Drive folder holding the manual PDFs.
	FolderID string

	// CredentialsFile is a service account JSON key.
	CredentialsFile string

	// CacheDir receives downloaded PDFs.
	CacheDir string
}

// IsConfigured returns true if a folder is set.
func (d DriveSettings) IsConfigured() bool {
	return d.FolderID != ""
}

// SourceSettings locates the local manual library.
type SourceSettings struct {
	// Dir is scanned for manual PDFs. Empty disables the filesystem source.
	Dir string
}

// VocabularySettings points at user files extending the built-in
// vocabularies. Empty paths keep the built-in data.
type VocabularySettings struct {
	// RulesFile adds classification terms, synonyms and features to the
	// extractor rules.
	RulesFile string

	// ExpansionFile replaces the query expansion rules.
	ExpansionFile string

	// FunnelFile replaces the disambiguation funnel stages.
	FunnelFile string
}

// AppSettings is the complete printdesk configuration.
type AppSettings struct {
	Embedding  EmbeddingSettings
	Store      StoreSettings
	Search     SearchOptions
	Source     SourceSettings
	Drive      DriveSettings
	Vocabulary VocabularySettings
}

// DefaultAppSettings returns settings for a local OpenAI-compatible
// embedding server and the standard retrieval defaults.
func DefaultAppSettings() AppSettings {
	return AppSettings{
		Embedding: EmbeddingSettings{
			Provider:    ProviderOpenAI,
			Model:       "intfloat/multilingual-e5-base",
			BaseURL:     "http://localhost:8080/v1",
			Parallelism: 1,
			Timeout:     30 * time.Second,
		},
		Store: StoreSettings{
			Collection: DefaultCollection,
		},
		Search: DefaultSearchOptions(),
	}
}
