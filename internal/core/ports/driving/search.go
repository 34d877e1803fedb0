package driving

import (
	"context"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// SearchService provides manual retrieval to external actors.
type SearchService interface {
	// Search returns manual sections ranked by score, highest first.
	// An empty result means nothing relevant was found and is not an error;
	// store or embedding failures are returned as errors.
	Search(ctx context.Context, query string, opts domain.SearchOptions) ([]domain.SearchResult, error)
}
