package driving

import "github.com/custodia-labs/printdesk/internal/core/domain"

// SettingsService manages application settings.
type SettingsService interface {
	// Get returns the effective settings: stored values over defaults,
	// with API keys taken from the environment when not stored.
	Get() (*domain.AppSettings, error)

	// Save persists all settings.
	Save(settings *domain.AppSettings) error

	// Set parses value according to key and persists it.
	// Returns domain.ErrInvalidInput for unknown keys or bad values.
	Set(key, value string) error

	// Value returns the effective value of key formatted as a string.
	Value(key string) (string, error)

	// Keys lists the recognised setting keys in display order.
	Keys() []string

	// Validate checks the effective settings are usable.
	Validate() error
}
