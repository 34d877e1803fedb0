// Package messages defines Bubbletea message types for the TUI.
// Messages represent events and commands that flow through the Elm architecture.
package messages

import (
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
)

// ViewType identifies which step of the assistant is active.
type ViewType int

const (
	// ViewDescribe asks the user which printer they have.
	ViewDescribe ViewType = iota
	// ViewFunnel asks disambiguation questions.
	ViewFunnel
	// ViewProblem asks for the problem to search the manual for.
	ViewProblem
	// ViewResults shows the matching manual sections.
	ViewResults
)

// String returns the string representation of the view type.
func (v ViewType) String() string {
	switch v {
	case ViewDescribe:
		return "describe"
	case ViewFunnel:
		return "funnel"
	case ViewProblem:
		return "problem"
	case ViewResults:
		return "results"
	default:
		return "unknown"
	}
}

// ResolveCompleted carries the resolver outcome for the user's description.
// Session is set when more than one candidate needs disambiguation.
type ResolveCompleted struct {
	Resolution domain.Resolution
	Session    driving.FunnelSession
	Err        error
}

// FunnelFinished is sent when the disambiguation run stops.
type FunnelFinished struct {
	Outcome domain.FunnelOutcome
}

// SearchCompleted carries search results back to the model.
type SearchCompleted struct {
	Results []domain.SearchResult
	Err     error
}

// ErrorOccurred is sent when an operation fails.
type ErrorOccurred struct {
	Err error
}
