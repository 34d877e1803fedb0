package embedding

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
)

// --- Mock implementations ---

// mockBackend embeds a text as [len(text), count of 'a', 1].
type mockBackend struct {
	mu      sync.Mutex
	model   string
	dims    int
	calls   [][]string
	errs    []error
	pingErr error
	zero    bool
}

func (m *mockBackend) EmbedBatch(_ context.Context, texts []string, _ driven.Role) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, append([]string(nil), texts...))
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if m.zero {
			out[i] = []float32{0, 0, 0}
			continue
		}
		out[i] = []float32{float32(len(t)), float32(strings.Count(t, "a")), 1}
	}
	return out, nil
}

func (m *mockBackend) Dimensions() int { return m.dims }

func (m *mockBackend) ModelName() string { return m.model }

func (m *mockBackend) Ping(context.Context) error { return m.pingErr }

func (m *mockBackend) Close() error { return nil }

func (m *mockBackend) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return s
}

func TestFamilyOf(t *testing.T) {
	tests := []struct {
		model string
		want  Family
	}{
		{"intfloat/multilingual-e5-base", FamilyE5},
		{"intfloat/multilingual-E5-small", FamilyE5},
		{"BAAI/bge-m3", FamilyBGE},
		{"sentence-transformers/paraphrase-multilingual-MiniLM-L12-v2", FamilyStandard},
		{"text-embedding-3-small", FamilyStandard},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, FamilyOf(tt.model))
		})
	}
}

func TestFamily_Prefix(t *testing.T) {
	assert.Equal(t, "query: ", FamilyE5.Prefix(driven.RoleQuery))
	assert.Equal(t, "passage: ", FamilyE5.Prefix(driven.RoleDocument))
	assert.Equal(t, "query: ", FamilyBGE.Prefix(driven.RoleQuery))
	assert.Empty(t, FamilyStandard.Prefix(driven.RoleQuery))
	assert.Empty(t, FamilyStandard.Prefix(driven.RoleDocument))
}

func TestEncoder_AppliesPrefix(t *testing.T) {
	backend := &mockBackend{model: "intfloat/multilingual-e5-base"}
	enc := NewEncoder(backend)

	_, err := enc.Embed(context.Background(), []string{"papel"}, driven.RoleQuery)
	require.NoError(t, err)
	_, err = enc.Embed(context.Background(), []string{"papel"}, driven.RoleDocument)
	require.NoError(t, err)

	require.Len(t, backend.calls, 2)
	assert.Equal(t, []string{"query: papel"}, backend.calls[0])
	assert.Equal(t, []string{"passage: papel"}, backend.calls[1])
	assert.Equal(t, FamilyE5, enc.Family())
}

func TestEncoder_Normalises(t *testing.T) {
	enc := NewEncoder(&mockBackend{model: "m"})

	vecs, err := enc.Embed(context.Background(), []string{"banana", "x"}, driven.RoleDocument)
	require.NoError(t, err)
	require.Len(t, vecs, 2)
	for _, v := range vecs {
		assert.InDelta(t, 1.0, norm(v), 1e-5)
	}
	assert.Equal(t, 3, enc.Dimensions())
}

func TestEncoder_BatchingDoesNotChangeResults(t *testing.T) {
	texts := []string{"a", "bb", "aaa", "cccc", "banana", "abacaxi", "x"}

	single := NewEncoder(&mockBackend{model: "m"}, WithBatchSize(100))
	batched := NewEncoder(&mockBackend{model: "m"}, WithBatchSize(2), WithParallelism(3))

	want, err := single.Embed(context.Background(), texts, driven.RoleDocument)
	require.NoError(t, err)
	got, err := batched.Embed(context.Background(), texts, driven.RoleDocument)
	require.NoError(t, err)

	assert.Equal(t, want, got)
}

func TestEncoder_BatchSize(t *testing.T) {
	backend := &mockBackend{model: "m"}
	enc := NewEncoder(backend, WithBatchSize(2))

	_, err := enc.Embed(context.Background(), []string{"a", "b", "c", "d", "e"}, driven.RoleDocument)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.callCount())
}

func TestEncoder_Empty(t *testing.T) {
	backend := &mockBackend{model: "m"}
	vecs, err := NewEncoder(backend).Embed(context.Background(), nil, driven.RoleQuery)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.Zero(t, backend.callCount())
}

func TestEncoder_RejectsZeroVector(t *testing.T) {
	enc := NewEncoder(&mockBackend{model: "m", zero: true})

	_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend)
	assert.ErrorIs(t, err, ErrZeroVector)
	assert.False(t, domain.IsRetriable(err))
}

func TestEncoder_RejectsDimensionChange(t *testing.T) {
	enc := NewEncoder(&mockBackend{model: "m", dims: 5})

	_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleDocument)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend)
}

func TestEncoder_ServerErrorIsRetriable(t *testing.T) {
	backend := &mockBackend{
		model: "m",
		errs:  []error{&StatusError{StatusCode: http.StatusServiceUnavailable}},
	}
	enc := NewEncoder(backend)

	_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleQuery)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend)
	assert.True(t, domain.IsRetriable(err))
}

func TestEncoder_Retries(t *testing.T) {
	backend := &mockBackend{
		model: "m",
		errs: []error{
			&StatusError{StatusCode: http.StatusTooManyRequests},
			&StatusError{StatusCode: http.StatusBadGateway},
		},
	}
	enc := NewEncoder(backend, WithRetries(2, time.Millisecond))

	vecs, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleQuery)
	require.NoError(t, err)
	assert.Len(t, vecs, 1)
	assert.Equal(t, 3, backend.callCount())
}

func TestEncoder_DoesNotRetryClientErrors(t *testing.T) {
	backend := &mockBackend{
		model: "m",
		errs:  []error{&StatusError{StatusCode: http.StatusUnauthorized}},
	}
	enc := NewEncoder(backend, WithRetries(3, time.Millisecond))

	_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleQuery)
	require.Error(t, err)
	assert.False(t, domain.IsRetriable(err))
	assert.Equal(t, 1, backend.callCount())
}

func TestEncoder_TimeoutIsRetriable(t *testing.T) {
	backend := &mockBackend{model: "m", errs: []error{context.DeadlineExceeded}}
	enc := NewEncoder(backend, WithTimeout(time.Second))

	_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleQuery)
	require.Error(t, err)
	assert.True(t, domain.IsRetriable(err))
}

func TestEncoder_CircuitBreakerOpens(t *testing.T) {
	failure := &StatusError{StatusCode: http.StatusInternalServerError}
	backend := &mockBackend{
		model: "m",
		errs:  []error{failure, failure, failure, failure, failure},
	}
	enc := NewEncoder(backend, WithCircuitBreaker(time.Hour))

	for range 5 {
		_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleQuery)
		require.Error(t, err)
	}
	require.Equal(t, 5, backend.callCount())

	_, err := enc.Embed(context.Background(), []string{"x"}, driven.RoleQuery)
	require.Error(t, err)
	assert.True(t, domain.IsRetriable(err))
	assert.Equal(t, 5, backend.callCount(), "open breaker must not call the backend")
}

func TestEncoder_Ping(t *testing.T) {
	assert.NoError(t, NewEncoder(&mockBackend{model: "m"}).Ping(context.Background()))

	err := NewEncoder(&mockBackend{model: "m", pingErr: errors.New("refused")}).Ping(context.Background())
	assert.ErrorIs(t, err, domain.ErrEmbeddingBackend)
}

func TestNormalise(t *testing.T) {
	v := []float32{3, 4}
	require.NoError(t, Normalise(v))
	assert.InDelta(t, 0.6, v[0], 1e-6)
	assert.InDelta(t, 0.8, v[1], 1e-6)

	assert.ErrorIs(t, Normalise([]float32{0, 0}), ErrZeroVector)
	assert.ErrorIs(t, Normalise(nil), ErrZeroVector)
}

func TestParseRetryAfter(t *testing.T) {
	assert.Equal(t, 7*time.Second, ParseRetryAfter("7"))
	assert.Zero(t, ParseRetryAfter(""))
	assert.Zero(t, ParseRetryAfter("soon"))
	assert.Zero(t, ParseRetryAfter("-3"))
}

func TestClassify(t *testing.T) {
	assert.NoError(t, Classify("x", nil))
	assert.ErrorIs(t, Classify("x", context.Canceled), context.Canceled)
	assert.False(t, domain.IsRetriable(Classify("x", context.Canceled)))
	assert.True(t, domain.IsRetriable(Classify("x", &StatusError{StatusCode: 503})))
	assert.False(t, domain.IsRetriable(Classify("x", &StatusError{StatusCode: 400})))
	assert.False(t, domain.IsRetriable(Classify("x", errors.New("decode response"))))

	wrapped := Classify("x", &StatusError{StatusCode: 500})
	assert.Same(t, wrapped, Classify("y", wrapped))
}
