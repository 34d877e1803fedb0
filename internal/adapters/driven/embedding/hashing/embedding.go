// Package hashing provides an offline embedding backend based on feature
// hashing of word unigrams and character trigrams. It needs no model files
// or network and is deterministic across runs.
package hashing

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

// Ensure Backend implements the interface.
var _ driven.EmbeddingBackend = (*Backend)(nil)

// DefaultDimensions is the default vector size.
const DefaultDimensions = 384

// trigramWeight scales character trigram features against whole words.
const trigramWeight = 0.5

// Backend is a feature-hashing embedder.
type Backend struct {
	dims int
}

// New creates a hashing backend with the given vector size.
func New(dims int) *Backend {
	if dims <= 0 {
		dims = DefaultDimensions
	}
	return &Backend{dims: dims}
}

// Vector hashes a single text. Accents and case are ignored.
func (b *Backend) Vector(text string) []float32 {
	vec := make([]float32, b.dims)
	for _, tok := range textnorm.Tokens(text) {
		b.add(vec, "w:"+tok, 1)
		padded := []rune(" " + tok + " ")
		for i := 0; i+3 <= len(padded); i++ {
			b.add(vec, "t:"+string(padded[i:i+3]), trigramWeight)
		}
	}
	return vec
}

func (b *Backend) add(vec []float32, feature string, weight float32) {
	h := xxhash.Sum64String(feature)
	idx := int(h % uint64(b.dims))
	if h>>63 == 1 {
		weight = -weight
	}
	vec[idx] += weight
}

// EmbedBatch hashes each text. The role is ignored.
func (b *Backend) EmbedBatch(ctx context.Context, texts []string, _ driven.Role) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = b.Vector(t)
	}
	return out, nil
}

// Dimensions returns the vector size.
func (b *Backend) Dimensions() int {
	return b.dims
}

// ModelName identifies the hashing scheme and size.
func (b *Backend) ModelName() string {
	return fmt.Sprintf("hashing-%d", b.dims)
}

// Ping always succeeds.
func (b *Backend) Ping(context.Context) error {
	return nil
}

// Close releases nothing.
func (b *Backend) Close() error {
	return nil
}
