package driven

// ConfigStore holds application settings under dotted keys such as
// "embedding.model". Typed getters return the zero value when a key is
// missing or has another type.
type ConfigStore interface {
	// Get returns the raw value and whether the key exists.
	Get(key string) (any, bool)

	// GetString returns a string value.
	GetString(key string) string

	// GetInt returns an integer value.
	GetInt(key string) int

	// GetFloat returns a float value; integers are converted.
	GetFloat(key string) float64

	// GetBool returns a boolean value.
	GetBool(key string) bool

	// GetStringSlice returns a list of strings, or nil.
	GetStringSlice(key string) []string

	// Set stores a value and persists it.
	Set(key string, value any) error

	// Save writes the current values to storage.
	Save() error

	// Load re-reads storage.
	Load() error

	// Path returns where the settings are stored.
	Path() string
}
