// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import "context"

// Role distinguishes query text from indexed document text.
// Asymmetric encoders embed the two differently.
type Role int

const (
	// RoleDocument marks text being indexed.
	RoleDocument Role = iota
	// RoleQuery marks user search text.
	RoleQuery
)

func (r Role) String() string {
	if r == RoleQuery {
		return "query"
	}
	return "document"
}

// EmbeddingService turns text into L2-normalised vectors using the one
// embedding model configured for the whole system.
//
// Note: This is separate from SectionStore which stores and searches vectors.
// EmbeddingService generates vectors; SectionStore stores them.
type EmbeddingService interface {
	// Embed returns one normalised vector per text, in input order.
	// Failures wrap domain.ErrEmbeddingBackend.
	Embed(ctx context.Context, texts []string, role Role) ([][]float32, error)

	// Dimensions returns the embedding vector size.
	Dimensions() int

	// ModelName returns the name of the embedding model being used.
	// The SectionStore records it with every vector.
	ModelName() string

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}

// EmbeddingBackend is a raw embedding provider.
// It receives text exactly as it must be embedded; prefixes, batching and
// normalisation are applied by the EmbeddingService wrapping it.
//
// Implementations may include:
//   - OpenAI-compatible servers (OpenAI, TEI, infinity)
//   - Ollama (nomic-embed-text, all-minilm)
//   - Google Gemini (text-embedding-004)
//   - A local feature-hashing embedder
type EmbeddingBackend interface {
	// EmbedBatch embeds texts in one request. The role is passed for
	// providers that take a task type instead of a text prefix.
	EmbedBatch(ctx context.Context, texts []string, role Role) ([][]float32, error)

	// Dimensions returns the vector size, 0 if unknown until the first call.
	Dimensions() int

	// ModelName returns the provider model name.
	ModelName() string

	// Ping validates the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
