package driving

import (
	"context"

	"github.com/custodia-labs/printdesk/internal/core/domain"
)

// ResolverService identifies printer models from free text.
type ResolverService interface {
	// Resolve matches free text against the registry.
	Resolve(ctx context.Context, text string) (domain.Resolution, error)

	// StartFunnel begins an interactive disambiguation over the given
	// model IDs. An empty list starts from every registered model.
	StartFunnel(ctx context.Context, candidates []string) (FunnelSession, error)

	// Disambiguate runs the funnel with a batched answer set keyed by
	// stage ID. Missing answers count as unknown.
	Disambiguate(ctx context.Context, candidates []string, answers map[string]string) (domain.FunnelOutcome, error)

	// Identify resolves text to exactly one model, using the answers to
	// separate plausible candidates. It never guesses: several survivors
	// yield domain.ErrAmbiguousModel, none yields domain.ErrUnknownModel.
	Identify(ctx context.Context, text string, answers map[string]string) (string, error)
}

// FunnelSession is one in-progress disambiguation.
// A UI renders Question and feeds replies to Answer until Done.
type FunnelSession interface {
	// Question returns the current question, nil when the run is over.
	Question() *domain.Question

	// Answer applies a reply to the current question.
	Answer(a domain.Answer) error

	// Done reports whether no further questions will be asked.
	Done() bool

	// Outcome returns the current state of the run.
	Outcome() domain.FunnelOutcome
}
