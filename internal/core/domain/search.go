package domain

// Retrieval defaults.
const (
	DefaultTopK          = 15
	DefaultMinSimilarity = 0.2
)

// SearchOptions configures a manual search.
type SearchOptions struct {
	// ModelFilter restricts results to one printer model when non-empty.
	ModelFilter string

	// TopK is the number of nearest neighbours requested from the store.
	TopK int

	// MinSimilarity drops results whose similarity is below this floor.
	MinSimilarity float64

	// Hybrid blends keyword overlap into the score.
	Hybrid bool
}

// DefaultSearchOptions returns options with the standard retrieval defaults.
func DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		TopK:          DefaultTopK,
		MinSimilarity: DefaultMinSimilarity,
	}
}

// WithDefaults fills zero values with the standard defaults.
// A negative MinSimilarity disables the floor.
func (o SearchOptions) WithDefaults() SearchOptions {
	if o.TopK <= 0 {
		o.TopK = DefaultTopK
	}
	if o.MinSimilarity == 0 {
		o.MinSimilarity = DefaultMinSimilarity
	}
	if o.MinSimilarity < 0 {
		o.MinSimilarity = 0
	}
	return o
}

// SearchResult is one ranked manual section.
type SearchResult struct {
	// Section is the matched manual section.
	Section Section

	// Score is the relevance on a 0..100 scale.
	Score int

	// Similarity is the raw cosine similarity reported by the store.
	Similarity float64
}
