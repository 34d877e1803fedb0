package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// QuestionKind is the shape of a disambiguation question.
type QuestionKind string

const (
	// QuestionBoolean is answered yes, no or unknown.
	QuestionBoolean QuestionKind = "boolean"
	// QuestionChoice is answered by picking one of the offered options.
	QuestionChoice QuestionKind = "choice"
)

// Attribute names a printer model property a funnel stage splits on.
// Feature tags are referenced as "feature:<tag>".
type Attribute string

const (
	AttributeColor  Attribute = "color"
	AttributeSize   Attribute = "size"
	AttributeSeries Attribute = "series"
)

// FeatureAttribute returns the attribute that tests for a feature tag.
func FeatureAttribute(f Feature) Attribute {
	return Attribute("feature:" + string(f))
}

// Feature returns the feature tag when the attribute tests a feature.
func (a Attribute) Feature() (Feature, bool) {
	s := string(a)
	if !strings.HasPrefix(s, "feature:") {
		return "", false
	}
	return Feature(strings.TrimPrefix(s, "feature:")), true
}

// FunnelStage is one disambiguation question, in priority order.
type FunnelStage struct {
	// ID is the stable key used for batched answers.
	ID string `toml:"id" yaml:"id" json:"id"`

	// Prompt is the question shown to the user.
	Prompt string `toml:"prompt" yaml:"prompt" json:"prompt"`

	// Help is optional extra explanation.
	Help string `toml:"help,omitempty" yaml:"help,omitempty" json:"help,omitempty"`

	// Kind selects boolean or choice answers.
	Kind QuestionKind `toml:"kind" yaml:"kind" json:"kind"`

	// Attribute is the model property this stage splits on.
	Attribute Attribute `toml:"attribute" yaml:"attribute" json:"attribute"`
}

// Question is a stage made concrete for the current candidate set.
type Question struct {
	Stage FunnelStage

	// Options lists the choice values, sorted. Empty for boolean questions.
	Options []string
}

// AnswerKind classifies a parsed answer.
type AnswerKind int

const (
	AnswerUnknown AnswerKind = iota
	AnswerYes
	AnswerNo
	AnswerChoice
)

// Answer is a parsed reply to a Question.
type Answer struct {
	Kind   AnswerKind
	Choice string
}

// ParseAnswer interprets a free-text reply to q.
// Empty input and "não sei" mean unknown. Choices accept the option
// value or its 1-based index.
func ParseAnswer(q Question, raw string) (Answer, error) {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch s {
	case "", "nao sei", "não sei", "ns", "n/s", "nsei", "unknown", "?":
		return Answer{Kind: AnswerUnknown}, nil
	}

	if q.Stage.Kind == QuestionChoice {
		if n, err := strconv.Atoi(s); err == nil {
			if n >= 1 && n <= len(q.Options) {
				return Answer{Kind: AnswerChoice, Choice: q.Options[n-1]}, nil
			}
			if n == len(q.Options)+1 {
				return Answer{Kind: AnswerUnknown}, nil
			}
			return Answer{}, fmt.Errorf("%w: option %d out of range", ErrInvalidInput, n)
		}
		for _, opt := range q.Options {
			if strings.EqualFold(opt, s) {
				return Answer{Kind: AnswerChoice, Choice: opt}, nil
			}
		}
		return Answer{}, fmt.Errorf("%w: %q is not one of %v", ErrInvalidInput, raw, q.Options)
	}

	switch s {
	case "sim", "s", "yes", "y":
		return Answer{Kind: AnswerYes}, nil
	case "não", "nao", "n", "no":
		return Answer{Kind: AnswerNo}, nil
	}
	return Answer{}, fmt.Errorf("%w: answer with sim, não or não sei", ErrInvalidInput)
}

// FunnelStatus is the terminal state of a disambiguation run.
type FunnelStatus string

const (
	FunnelPending    FunnelStatus = "pending"
	FunnelResolved   FunnelStatus = "resolved"
	FunnelUnresolved FunnelStatus = "unresolved"
)

// FunnelOutcome summarises a disambiguation run.
type FunnelOutcome struct {
	Status FunnelStatus

	// ModelID is set when Status is FunnelResolved.
	ModelID string

	// Remaining is the candidate set when the run stopped.
	Remaining []string

	// Asked lists the stage IDs that were asked, in order.
	Asked []string
}
