// Package embedding turns text into normalised vectors.
//
// The Encoder implements driven.EmbeddingService on top of a raw
// driven.EmbeddingBackend. It owns everything that must be identical at
// index time and query time: the model-family text prefix, batching,
// L2 normalisation and backend error classification. Backends live in
// the openai, ollama, gemini and hashing subpackages.
package embedding
