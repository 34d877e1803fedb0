package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
	"github.com/custodia-labs/printdesk/internal/textnorm"
)

// Ensure ResolverService implements the interface.
var _ driving.ResolverService = (*ResolverService)(nil)

// Resolver confidences.
const (
	ExactConfidence   = 1.0
	PartialConfidence = 0.7

	// DefaultFuzzyThreshold is the minimum similarity ratio for a fuzzy match.
	DefaultFuzzyThreshold = 0.6

	// DefaultPlausibleThreshold is the confidence a candidate needs to
	// enter disambiguation.
	DefaultPlausibleThreshold = 0.7

	minPartialToken = 3
)

// stopTokens never produce partial matches on their own.
var stopTokens = map[string]bool{
	"epson":          true,
	"impressora":     true,
	"impressoras":    true,
	"modelo":         true,
	"minha":          true,
	"meu":            true,
	"ecotank":        true,
	"multifuncional": true,
	"printer":        true,
}

// ResolverOption configures a ResolverService.
type ResolverOption func(*ResolverService)

// WithFunnelStages replaces the built-in disambiguation stages.
func WithFunnelStages(stages []domain.FunnelStage) ResolverOption {
	return func(r *ResolverService) {
		r.stages = stages
	}
}

// WithFuzzyThreshold sets the minimum ratio for fuzzy matches.
func WithFuzzyThreshold(t float64) ResolverOption {
	return func(r *ResolverService) {
		r.fuzzyThreshold = t
	}
}

// ResolverService identifies printer models from free text and narrows
// ambiguous candidates with the disambiguation funnel.
type ResolverService struct {
	registry       driving.RegistryService
	stages         []domain.FunnelStage
	fuzzyThreshold float64
}

// NewResolverService creates a resolver over the registry.
func NewResolverService(registry driving.RegistryService, opts ...ResolverOption) *ResolverService {
	r := &ResolverService{
		registry:       registry,
		stages:         DefaultFunnelStages(),
		fuzzyThreshold: DefaultFuzzyThreshold,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve matches free text against every registered model. Candidates
// carry the best confidence of any match kind and are ordered by
// confidence, then ID. An L#### number with no exact match and no
// registry entry yields a Proposed entry.
func (r *ResolverService) Resolve(ctx context.Context, text string) (domain.Resolution, error) {
	norm := textnorm.Normalise(text)
	if norm == "" {
		return domain.Resolution{}, nil
	}

	models, err := r.registry.Models(ctx)
	if err != nil {
		return domain.Resolution{}, fmt.Errorf("load registry: %w", err)
	}

	tokens := strings.Fields(norm)
	var res domain.Resolution
	exact := false
	for _, m := range models {
		c, ok := r.match(m, norm, tokens)
		if !ok {
			continue
		}
		if c.Kind == domain.MatchExactAlias {
			exact = true
		}
		res.Candidates = append(res.Candidates, c)
	}

	sort.Slice(res.Candidates, func(i, j int) bool {
		a, b := res.Candidates[i], res.Candidates[j]
		if a.Confidence != b.Confidence {
			return a.Confidence > b.Confidence
		}
		return a.ModelID < b.ModelID
	})

	if !exact {
		res.Proposed = r.propose(norm, models)
	}

	logger.Debug("Resolve %q: %d candidates", norm, len(res.Candidates))
	return res, nil
}

// match scores one model, keeping the highest confidence of all match kinds.
func (r *ResolverService) match(m domain.PrinterModel, norm string, tokens []string) (domain.Candidate, bool) {
	aliases := make([]string, 0, len(m.Aliases)+1)
	for _, a := range m.Aliases {
		if n := textnorm.Normalise(a); n != "" {
			aliases = append(aliases, n)
		}
	}
	if id := textnorm.Normalise(m.ID); id != "" {
		aliases = append(aliases, id)
	}

	for _, a := range aliases {
		if a == norm || textnorm.ContainsPhrase(norm, a) {
			return domain.Candidate{ModelID: m.ID, Confidence: ExactConfidence, Kind: domain.MatchExactAlias}, true
		}
	}

	best := domain.Candidate{ModelID: m.ID}
	names := append([]string{textnorm.Normalise(m.DisplayName)}, aliases...)
	for _, name := range names {
		if ratio := textnorm.Ratio(norm, name); ratio >= r.fuzzyThreshold && ratio > best.Confidence {
			best.Confidence = ratio
			best.Kind = domain.MatchFuzzy
		}
	}

	if best.Confidence < PartialConfidence && partialMatch(tokens, aliases) {
		best.Confidence = PartialConfidence
		best.Kind = domain.MatchPartialToken
	}

	return best, best.Kind != ""
}

// partialMatch reports whether a meaningful token and an alias contain
// one another.
func partialMatch(tokens, aliases []string) bool {
	for _, tok := range tokens {
		if len(tok) < minPartialToken || stopTokens[tok] {
			continue
		}
		for _, a := range aliases {
			if strings.Contains(a, tok) || strings.Contains(tok, a) {
				return true
			}
		}
	}
	return false
}

// propose synthesises an entry for an unregistered L#### number in the text.
func (r *ResolverService) propose(norm string, models []domain.PrinterModel) *domain.PrinterModel {
	num := domain.ModelNumber(norm)
	if num == "" {
		return nil
	}
	id := "L" + num
	for _, m := range models {
		if m.ID == id {
			return nil
		}
	}
	proposed := SynthesizeModel(id)
	return &proposed
}

// StartFunnel begins an interactive disambiguation.
func (r *ResolverService) StartFunnel(ctx context.Context, candidates []string) (driving.FunnelSession, error) {
	return r.session(ctx, candidates)
}

// Disambiguate runs the funnel to completion with batched answers.
func (r *ResolverService) Disambiguate(
	ctx context.Context, candidates []string, answers map[string]string,
) (domain.FunnelOutcome, error) {
	s, err := r.session(ctx, candidates)
	if err != nil {
		return domain.FunnelOutcome{}, err
	}
	return s.run(answers)
}

// Identify resolves text to exactly one model. It disambiguates the
// plausible candidates with the given answers and never guesses:
// several survivors yield domain.ErrAmbiguousModel and none yields
// domain.ErrUnknownModel.
func (r *ResolverService) Identify(ctx context.Context, text string, answers map[string]string) (string, error) {
	res, err := r.Resolve(ctx, text)
	if err != nil {
		return "", err
	}
	if id, ok := res.Unique(); ok {
		return id, nil
	}

	plausible := res.Plausible(DefaultPlausibleThreshold)
	switch len(plausible) {
	case 0:
		return "", fmt.Errorf("%w: no registered model matches %q", domain.ErrUnknownModel, text)
	case 1:
		return plausible[0].ModelID, nil
	}

	ids := make([]string, len(plausible))
	for i, c := range plausible {
		ids[i] = c.ModelID
	}
	out, err := r.Disambiguate(ctx, ids, answers)
	if err != nil {
		return "", err
	}
	if out.Status != domain.FunnelResolved {
		return "", fmt.Errorf("%w: %s", domain.ErrAmbiguousModel, strings.Join(out.Remaining, ", "))
	}
	return out.ModelID, nil
}

func (r *ResolverService) session(ctx context.Context, candidates []string) (*funnelSession, error) {
	all, err := r.registry.Models(ctx)
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if len(candidates) == 0 {
		return newFunnelSession(r.stages, all), nil
	}

	byID := make(map[string]domain.PrinterModel, len(all))
	for _, m := range all {
		byID[m.ID] = m
	}
	var models []domain.PrinterModel
	var missing []string
	for _, id := range candidates {
		m, ok := byID[CanonicalModelID(id)]
		if !ok {
			missing = append(missing, id)
			continue
		}
		models = append(models, m)
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModel, strings.Join(missing, ", "))
	}
	return newFunnelSession(r.stages, models), nil
}

// IsResolutionError reports whether err means the model could not be
// pinned down, as opposed to an infrastructure failure.
func IsResolutionError(err error) bool {
	return errors.Is(err, domain.ErrAmbiguousModel) || errors.Is(err, domain.ErrUnknownModel)
}
