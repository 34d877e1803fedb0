package domain

import (
	"errors"
	"fmt"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrSyncInProgress indicates another writer holds the index.
	ErrSyncInProgress = errors.New("sync in progress")

	// ErrUnknownModel indicates a model ID has no registry entry.
	ErrUnknownModel = errors.New("unknown printer model")

	// ErrAmbiguousModel indicates more than one candidate model remains
	// after disambiguation. Callers must ask the user, never pick one.
	ErrAmbiguousModel = errors.New("ambiguous printer model")

	// Infrastructure Errors.

	// ErrEmbeddingBackend indicates the embedding backend call failed.
	// The failure is retriable and never falls back to another model.
	ErrEmbeddingBackend = errors.New("embedding backend error")

	// ErrStoreUnavailable indicates the vector store cannot be opened or queried.
	// Search-dependent processes must stop; there is no degraded mode.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrEmbeddingModelMismatch indicates vectors from another embedding
	// model are already present in the collection.
	ErrEmbeddingModelMismatch = errors.New("embedding model mismatch")
)

// PageError records a PDF page that could not be read.
// It is collected as a warning and never aborts extraction.
type PageError struct {
	Page int
	Err  error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d: %v", e.Page, e.Err)
}

func (e *PageError) Unwrap() error {
	return e.Err
}

// BackendError wraps a failed embedding backend call.
type BackendError struct {
	// Backend names the embedding provider.
	Backend string

	// Retriable is true for timeouts, rate limits and server errors.
	Retriable bool

	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrEmbeddingBackend, e.Backend, e.Err)
}

// Is matches ErrEmbeddingBackend.
func (e *BackendError) Is(target error) bool {
	return target == ErrEmbeddingBackend
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// IsRetriable reports whether err is a retriable backend failure.
func IsRetriable(err error) bool {
	var be *BackendError
	if errors.As(err, &be) {
		return be.Retriable
	}
	return false
}
