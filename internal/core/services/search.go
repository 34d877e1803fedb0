package services

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driven"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

// Ensure SearchService implements the interface.
var _ driving.SearchService = (*SearchService)(nil)

// Hybrid score weights.
const (
	similarityWeight = 0.7
	keywordWeight    = 0.3
)

// ExpansionRule appends terms to a query that mentions any trigger.
type ExpansionRule struct {
	Triggers []string `toml:"triggers"`
	Adds     []string `toml:"adds"`
}

// QueryExpansion is a data-driven set of additive query rewrites.
// Rules only apply when the query mentions one of the Gate terms;
// an empty Gate lets every rule apply.
type QueryExpansion struct {
	Gate  []string        `toml:"gate"`
	Rules []ExpansionRule `toml:"rules"`
}

// DefaultQueryExpansion returns the ink-related expansion rules.
func DefaultQueryExpansion() QueryExpansion {
	return QueryExpansion{
		Gate: []string{"tinta", "cartucho", "trocar", "recarregar"},
		Rules: []ExpansionRule{
			{Triggers: []string{"troca"}, Adds: []string{"recarregar", "reabastecer"}},
			{Triggers: []string{"tinta"}, Adds: []string{"garrafas de tinta", "tanque de tinta"}},
		},
	}
}

// LoadQueryExpansion reads expansion rules from a TOML file with a
// top-level gate list and [[rules]] tables.
func LoadQueryExpansion(path string) (QueryExpansion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return QueryExpansion{}, fmt.Errorf("read query expansion: %w", err)
	}
	var q QueryExpansion
	if err := toml.Unmarshal(data, &q); err != nil {
		return QueryExpansion{}, fmt.Errorf("%w: parse query expansion: %w", domain.ErrInvalidInput, err)
	}
	if len(q.Rules) == 0 {
		return QueryExpansion{}, fmt.Errorf("%w: %s defines no expansion rules", domain.ErrInvalidInput, path)
	}
	return q, nil
}

// Expand returns the query with the terms of every matching rule appended.
// The original text is always kept as is.
func (q QueryExpansion) Expand(query string) string {
	norm := textnorm.Normalise(query)
	if len(q.Gate) > 0 && !mentionsAny(norm, q.Gate) {
		return query
	}

	var adds []string
	for _, rule := range q.Rules {
		if mentionsAny(norm, rule.Triggers) {
			adds = append(adds, rule.Adds...)
		}
	}
	if len(adds) == 0 {
		return query
	}
	return query + " " + strings.Join(adds, " ")
}

func mentionsAny(norm string, terms []string) bool {
	for _, t := range terms {
		if textnorm.HasWordPrefix(norm, textnorm.Normalise(t)) {
			return true
		}
	}
	return false
}

// KeywordExtractor finds canonical domain keywords in text.
type KeywordExtractor interface {
	Keywords(text string) []string
}

// SearchOption configures a SearchService.
type SearchOption func(*SearchService)

// WithQueryExpansion replaces the default expansion rules.
func WithQueryExpansion(q QueryExpansion) SearchOption {
	return func(s *SearchService) {
		s.expansion = q
	}
}

// WithKeywordExtractor enables hybrid scoring.
func WithKeywordExtractor(k KeywordExtractor) SearchOption {
	return func(s *SearchService) {
		s.keywords = k
	}
}

// SearchService retrieves manual sections for a question.
type SearchService struct {
	embedder  driven.EmbeddingService
	store     driven.SectionStore
	expansion QueryExpansion
	keywords  KeywordExtractor
	tracer    trace.Tracer
}

// NewSearchService creates a new search service.
func NewSearchService(embedder driven.EmbeddingService, store driven.SectionStore, opts ...SearchOption) *SearchService {
	s := &SearchService{
		embedder:  embedder,
		store:     store,
		expansion: DefaultQueryExpansion(),
		tracer:    otel.Tracer("printdesk/search"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search embeds the query, asks the store for the nearest sections and
// ranks them. Results below the similarity floor are dropped; an empty
// result is not an error.
func (s *SearchService) Search(
	ctx context.Context, query string, opts domain.SearchOptions,
) ([]domain.SearchResult, error) {
	logger.Section("Manual Search")
	logger.Debug("Query: %q", query)

	query = strings.TrimSpace(query)
	if query == "" {
		logger.Debug("Empty query, returning no results")
		return []domain.SearchResult{}, nil
	}

	opts = opts.WithDefaults()
	if opts.ModelFilter != "" {
		opts.ModelFilter = CanonicalModelID(opts.ModelFilter)
	}

	ctx, span := s.tracer.Start(ctx, "search.manuals")
	defer span.End()
	span.SetAttributes(
		attribute.String("search.model_filter", opts.ModelFilter),
		attribute.Int("search.top_k", opts.TopK),
		attribute.Bool("search.hybrid", opts.Hybrid),
	)

	expanded := s.expansion.Expand(query)
	if expanded != query {
		logger.Debug("Expanded query: %q", expanded)
	}

	vectors, err := s.embedder.Embed(ctx, []string{expanded}, driven.RoleQuery)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("embed query: %w", err))
	}
	if len(vectors) != 1 {
		return nil, recordError(span, fmt.Errorf("%w: expected 1 query vector, got %d",
			domain.ErrEmbeddingBackend, len(vectors)))
	}

	hits, err := s.store.Query(ctx, vectors[0], s.embedder.ModelName(), opts.TopK, opts.ModelFilter)
	if err != nil {
		return nil, recordError(span, fmt.Errorf("query store: %w", err))
	}
	logger.Debug("Store returned %d candidates", len(hits))

	var queryKeywords []string
	if opts.Hybrid && s.keywords != nil {
		queryKeywords = s.keywords.Keywords(expanded)
		logger.Debug("Query keywords: %v", queryKeywords)
	}

	results := make([]domain.SearchResult, 0, len(hits))
	for _, hit := range hits {
		sim := hit.Similarity()
		if sim < opts.MinSimilarity {
			continue
		}
		score := sim
		if len(queryKeywords) > 0 {
			score = similarityWeight*sim + keywordWeight*keywordOverlap(queryKeywords, hit.Section.Keywords)
		}
		// The floor holds for the reported score too, so a blend
		// without keyword overlap can still drop a hit.
		if toScore(score) < floorScore(opts.MinSimilarity) {
			continue
		}
		results = append(results, domain.SearchResult{
			Section:    hit.Section,
			Score:      toScore(score),
			Similarity: sim,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	span.SetAttributes(attribute.Int("search.results", len(results)))
	logger.Debug("Returning %d results", len(results))
	return results, nil
}

// keywordOverlap is the fraction of query keywords the section carries.
func keywordOverlap(query, section []string) float64 {
	if len(query) == 0 {
		return 0
	}
	have := make(map[string]struct{}, len(section))
	for _, k := range section {
		have[k] = struct{}{}
	}
	n := 0
	for _, k := range query {
		if _, ok := have[k]; ok {
			n++
		}
	}
	return float64(n) / float64(len(query))
}

// floorScore is the smallest score allowed by a similarity floor.
func floorScore(minSimilarity float64) int {
	return int(math.Ceil(minSimilarity*100 - 1e-9))
}

// toScore maps a 0..1 relevance onto the 0..100 scale.
func toScore(v float64) int {
	score := int(v * 100)
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func recordError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}
