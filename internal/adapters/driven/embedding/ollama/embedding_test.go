package ollama

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/embedding"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

func TestNew_Defaults(t *testing.T) {
	b := New(Config{})
	assert.Equal(t, DefaultModel, b.ModelName())
	assert.Equal(t, 768, b.Dimensions())
	assert.Equal(t, DefaultBaseURL, b.baseURL)
}

func TestEmbedBatch(t *testing.T) {
	var prompts []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/embeddings", r.URL.Path)
		var req embedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "bge-m3", req.Model)
		prompts = append(prompts, req.Prompt)
		_ = json.NewEncoder(w).Encode(embedResponse{Embedding: []float64{float64(len(req.Prompt)), 1}})
	}))
	defer server.Close()

	b := New(Config{BaseURL: server.URL, Model: "bge-m3"})
	vecs, err := b.EmbedBatch(context.Background(), []string{"abc", "de"}, driven.RoleDocument)
	require.NoError(t, err)

	assert.Equal(t, [][]float32{{3, 1}, {2, 1}}, vecs)
	assert.Equal(t, []string{"abc", "de"}, prompts)
}

func TestEmbedBatch_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := New(Config{BaseURL: server.URL}).EmbedBatch(context.Background(), []string{"x"}, driven.RoleQuery)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.True(t, domain.IsRetriable(embedding.Classify("ollama", err)))
}

func TestPing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models":[]}`))
	}))
	defer server.Close()

	assert.NoError(t, New(Config{BaseURL: server.URL}).Ping(context.Background()))
}

func TestPing_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	server.Close()

	err := New(Config{BaseURL: server.URL}).Ping(context.Background())
	require.Error(t, err)
	assert.True(t, domain.IsRetriable(embedding.Classify("ollama", err)))
}
