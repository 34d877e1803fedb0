package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

func TestConfigCmd_Subcommands(t *testing.T) {
	names := make([]string, 0, len(configCmd.Commands()))
	for _, c := range configCmd.Commands() {
		names = append(names, c.Name())
	}

	assert.ElementsMatch(t, []string{"show", "get", "set"}, names)
}

func TestConfigShow(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Current Settings")
	assert.Contains(t, out, "embedding.model")
	assert.Contains(t, out, "intfloat/multilingual-e5-base")
	assert.Contains(t, out, "(not set)")
}

func TestConfigShow_Default(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config")

	require.NoError(t, err)
	assert.Contains(t, out, "search.top_k")
}

func TestConfigSetGet(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute("config", "set", "search.top_k", "7")
	require.NoError(t, err)
	assert.Contains(t, out, "Set search.top_k.")

	out, err = execute("config", "get", "search.top_k")
	require.NoError(t, err)
	assert.Equal(t, "7\n", out)

	settings, err := current.settings.Get()
	require.NoError(t, err)
	assert.Equal(t, 7, settings.Search.TopK)
}

func TestConfigSet_MasksSecret(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("config", "set", "embedding.api_key", "sk-1234567890abcd")
	require.NoError(t, err)

	out, err := execute("config", "get", "embedding.api_key")
	require.NoError(t, err)
	assert.Equal(t, "sk-1****abcd\n", out)
}

func TestConfigSet_Invalid(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("config", "set", "embedding.provider", "watson")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = execute("config", "set", "no.such.key", "1")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigGet_UnknownKey(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	_, err := execute("config", "get", "no.such.key")

	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestConfigCmd_NoService(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	settingsService = nil

	_, err := execute("config", "show")

	assert.EqualError(t, err, "settings service not configured")
}
