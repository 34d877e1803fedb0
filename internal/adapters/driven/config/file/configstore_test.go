package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *ConfigStore {
	t.Helper()
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	store.getenv = func(string) string { return "" }
	return store
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	err := os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("this is not valid TOML {{{[["), 0600)
	require.NoError(t, err)

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_ReadsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[embedding]
provider = "openai"
model = "intfloat/multilingual-e5-base"
batch_size = 128

[search]
top_k = 15
min_similarity = 0.2
hybrid = true

[source]
dirs = ["/manuals", "/extra"]
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	store.getenv = func(string) string { return "" }

	assert.Equal(t, "openai", store.GetString("embedding.provider"))
	assert.Equal(t, "intfloat/multilingual-e5-base", store.GetString("embedding.model"))
	assert.Equal(t, 128, store.GetInt("embedding.batch_size"))
	assert.Equal(t, 15, store.GetInt("search.top_k"))
	assert.InDelta(t, 0.2, store.GetFloat("search.min_similarity"), 1e-9)
	assert.InDelta(t, 15.0, store.GetFloat("search.top_k"), 1e-9)
	assert.True(t, store.GetBool("search.hybrid"))
	assert.Equal(t, []string{"/manuals", "/extra"}, store.GetStringSlice("source.dirs"))
}

func TestConfigStore_SetPersistsNested(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Set("store.collection", "epson_manuals"))
	require.NoError(t, store.Set("search.top_k", 10))

	raw, err := os.ReadFile(store.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[store]")
	assert.Contains(t, string(raw), "[search]")

	reloaded, err := NewConfigStore(filepath.Dir(store.Path()))
	require.NoError(t, err)
	reloaded.getenv = func(string) string { return "" }
	assert.Equal(t, "epson_manuals", reloaded.GetString("store.collection"))
	assert.Equal(t, 10, reloaded.GetInt("search.top_k"))
}

func TestConfigStore_EnvOverride(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("search.top_k", 15))

	env := map[string]string{
		"PRINTDESK_SEARCH_TOP_K":          "5",
		"PRINTDESK_SEARCH_MIN_SIMILARITY": "0.35",
		"PRINTDESK_SEARCH_HYBRID":         "true",
		"PRINTDESK_SOURCE_DIRS":           "/a, /b,",
	}
	store.getenv = func(k string) string { return env[k] }

	assert.Equal(t, 5, store.GetInt("search.top_k"))
	assert.InDelta(t, 0.35, store.GetFloat("search.min_similarity"), 1e-9)
	assert.True(t, store.GetBool("search.hybrid"))
	assert.Equal(t, []string{"/a", "/b"}, store.GetStringSlice("source.dirs"))
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "PRINTDESK_EMBEDDING_BASE_URL", EnvKey("embedding.base_url"))
	assert.Equal(t, "PRINTDESK_DRIVE_FOLDER_ID", EnvKey("drive.folder-id"))
}

func TestConfigStore_MissingAndWrongType(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("k", []any{"x"}))

	_, ok := store.Get("missing")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("k"))
	assert.Zero(t, store.GetInt("k"))
	assert.Zero(t, store.GetFloat("k"))
	assert.False(t, store.GetBool("k"))
	assert.Nil(t, store.GetStringSlice("missing"))
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, store.Set("test", "value"))

	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Set("another", "value"))
}

func TestConfigStore_SetWithUnmarshallableValue(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Set("channel", make(chan int)))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := newTestStore(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = store.Set("search.top_k", i)
		}()
		go func() {
			defer wg.Done()
			_ = store.GetInt("search.top_k")
		}()
	}
	wg.Wait()

	_, ok := store.Get("search.top_k")
	assert.True(t, ok)
}

func TestNestMap(t *testing.T) {
	nested := nestMap(map[string]any{
		"a":           1,
		"a.b":         2,
		"store.dir":   "/x",
		"store.sub.k": true,
	})

	assert.Equal(t, 1, nested["a"])
	assert.Equal(t, 2, nested["a.b"], "key under a scalar stays flat")
	store, ok := nested["store"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "/x", store["dir"])
	assert.Equal(t, map[string]any{"k": true}, store["sub"])

	assert.Equal(t, map[string]any{"a": 1, "a.b": 2, "store.dir": "/x", "store.sub.k": true},
		flattenMap(map[string]any{"a": 1, "a.b": 2, "store": store}, ""))
}
