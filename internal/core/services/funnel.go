package services

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"sort"

	"github.com/pelletier/go-toml/v2"

	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/logger"
)

//go:embed funnel.toml
var defaultFunnel []byte

// Ensure funnelSession implements the interface.
var _ driving.FunnelSession = (*funnelSession)(nil)

// Answer values used for boolean attributes.
const (
	attrYes = "sim"
	attrNo  = "nao"
)

// DefaultFunnelStages returns the built-in disambiguation stages.
func DefaultFunnelStages() []domain.FunnelStage {
	stages, err := ParseFunnelStages(defaultFunnel)
	if err != nil {
		panic(fmt.Sprintf("services: embedded funnel.toml is invalid: %v", err))
	}
	return stages
}

// LoadFunnelStages reads a TOML stage list from a file.
func LoadFunnelStages(path string) ([]domain.FunnelStage, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read funnel stages: %w", err)
	}
	stages, err := ParseFunnelStages(data)
	if err != nil {
		return nil, err
	}
	if len(stages) == 0 {
		return nil, fmt.Errorf("%w: %s defines no funnel stages", domain.ErrInvalidInput, path)
	}
	return stages, nil
}

// ParseFunnelStages decodes a TOML stage list.
func ParseFunnelStages(data []byte) ([]domain.FunnelStage, error) {
	var doc struct {
		Stages []domain.FunnelStage `toml:"stages"`
	}
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: parse funnel stages: %w", domain.ErrInvalidInput, err)
	}

	seen := make(map[string]bool, len(doc.Stages))
	for i, st := range doc.Stages {
		switch {
		case st.ID == "":
			return nil, fmt.Errorf("%w: stage %d has no id", domain.ErrInvalidInput, i+1)
		case seen[st.ID]:
			return nil, fmt.Errorf("%w: duplicate stage %s", domain.ErrInvalidInput, st.ID)
		case st.Kind != domain.QuestionBoolean && st.Kind != domain.QuestionChoice:
			return nil, fmt.Errorf("%w: stage %s has unknown kind %q", domain.ErrInvalidInput, st.ID, st.Kind)
		}
		if f, ok := st.Attribute.Feature(); ok {
			if !domain.IsKnownFeature(f) {
				return nil, fmt.Errorf("%w: stage %s tests unknown feature %q", domain.ErrInvalidInput, st.ID, f)
			}
		} else if st.Kind == domain.QuestionBoolean {
			return nil, fmt.Errorf("%w: boolean stage %s must test a feature", domain.ErrInvalidInput, st.ID)
		}
		seen[st.ID] = true
	}
	return doc.Stages, nil
}

// attributeValue reads the attribute a stage splits on.
// Boolean features read as "sim" or "nao"; unknown scalars read as "".
func attributeValue(m domain.PrinterModel, attr domain.Attribute) string {
	if f, ok := attr.Feature(); ok {
		if m.HasFeature(f) {
			return attrYes
		}
		return attrNo
	}
	switch attr {
	case domain.AttributeColor:
		return string(m.Color)
	case domain.AttributeSize:
		return string(m.EffectiveSize())
	case domain.AttributeSeries:
		return m.Series
	default:
		return ""
	}
}

// funnelSession is the disambiguation state machine. States are the stage
// positions; an answer filters the candidate set and moves to the next
// stage that still splits it.
type funnelSession struct {
	stages  []domain.FunnelStage
	models  map[string]domain.PrinterModel
	current []string

	next     int
	question *domain.Question
	asked    []string
}

func newFunnelSession(stages []domain.FunnelStage, models []domain.PrinterModel) *funnelSession {
	s := &funnelSession{
		stages: stages,
		models: make(map[string]domain.PrinterModel, len(models)),
	}
	for _, m := range models {
		if _, dup := s.models[m.ID]; dup {
			continue
		}
		s.models[m.ID] = m
		s.current = append(s.current, m.ID)
	}
	sort.Strings(s.current)
	s.advance()
	return s
}

// advance moves to the next stage that partitions the current set.
func (s *funnelSession) advance() {
	s.question = nil
	if len(s.current) <= 1 {
		return
	}
	for s.next < len(s.stages) {
		stage := s.stages[s.next]
		s.next++
		if q, ok := s.questionFor(stage); ok {
			s.question = q
			return
		}
		logger.Debug("Funnel: skipping stage %s, it does not split %v", stage.ID, s.current)
	}
}

func (s *funnelSession) questionFor(stage domain.FunnelStage) (*domain.Question, bool) {
	values := make(map[string]bool)
	for _, id := range s.current {
		values[attributeValue(s.models[id], stage.Attribute)] = true
	}
	if len(values) < 2 {
		return nil, false
	}

	q := &domain.Question{Stage: stage}
	if stage.Kind == domain.QuestionChoice {
		for v := range values {
			if v != "" {
				q.Options = append(q.Options, v)
			}
		}
		sort.Strings(q.Options)
		if len(q.Options) == 0 {
			return nil, false
		}
	}
	return q, true
}

func (s *funnelSession) Question() *domain.Question {
	return s.question
}

// Answer filters the candidates. An unknown answer keeps the set; a filter
// that would leave nothing falls back to the previous set.
func (s *funnelSession) Answer(a domain.Answer) error {
	if s.question == nil {
		return fmt.Errorf("%w: disambiguation is finished", domain.ErrInvalidInput)
	}
	stage := s.question.Stage

	var want string
	switch a.Kind {
	case domain.AnswerUnknown:
	case domain.AnswerYes, domain.AnswerNo:
		if stage.Kind != domain.QuestionBoolean {
			return fmt.Errorf("%w: stage %s expects one of %v", domain.ErrInvalidInput, stage.ID, s.question.Options)
		}
		want = attrNo
		if a.Kind == domain.AnswerYes {
			want = attrYes
		}
	case domain.AnswerChoice:
		if stage.Kind != domain.QuestionChoice || a.Choice == "" {
			return fmt.Errorf("%w: stage %s does not take choice %q", domain.ErrInvalidInput, stage.ID, a.Choice)
		}
		want = a.Choice
	default:
		return fmt.Errorf("%w: unknown answer kind %d", domain.ErrInvalidInput, a.Kind)
	}

	s.asked = append(s.asked, stage.ID)
	if want != "" {
		var kept []string
		for _, id := range s.current {
			if attributeValue(s.models[id], stage.Attribute) == want {
				kept = append(kept, id)
			}
		}
		if len(kept) > 0 {
			s.current = kept
		} else {
			logger.Debug("Funnel: answer %q to %s matched nothing, keeping %v", want, stage.ID, s.current)
		}
	}

	s.advance()
	return nil
}

func (s *funnelSession) Done() bool {
	return s.question == nil
}

func (s *funnelSession) Outcome() domain.FunnelOutcome {
	out := domain.FunnelOutcome{
		Status:    domain.FunnelPending,
		Remaining: append([]string(nil), s.current...),
		Asked:     append([]string(nil), s.asked...),
	}
	if !s.Done() {
		return out
	}
	if len(s.current) == 1 {
		out.Status = domain.FunnelResolved
		out.ModelID = s.current[0]
		return out
	}
	out.Status = domain.FunnelUnresolved
	return out
}

// run drives the session with answers keyed by stage ID.
// Missing answers count as unknown.
func (s *funnelSession) run(answers map[string]string) (domain.FunnelOutcome, error) {
	for !s.Done() {
		q := s.Question()
		a, err := domain.ParseAnswer(*q, answers[q.Stage.ID])
		if err != nil {
			return s.Outcome(), fmt.Errorf("stage %s: %w", q.Stage.ID, err)
		}
		if err := s.Answer(a); err != nil {
			return s.Outcome(), err
		}
	}
	return s.Outcome(), nil
}
