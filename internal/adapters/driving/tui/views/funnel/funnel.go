// Package funnel renders the printer disambiguation questions.
package funnel

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/styles"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
)

// unknownLabel is the option that keeps the candidate set.
const unknownLabel = "Não sei"

// option is one selectable reply.
type option struct {
	label  string
	answer domain.Answer
}

// View asks the current funnel question and feeds replies to the session.
type View struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	session driving.FunnelSession
	options []option
	cursor  int
	err     error
}

// NewView creates a funnel view over a started session.
func NewView(s *styles.Styles, session driving.FunnelSession) *View {
	if s == nil {
		s = styles.DefaultStyles()
	}
	v := &View{
		styles:  s,
		keymap:  keymap.DefaultKeyMap(),
		session: session,
	}
	v.loadOptions()
	return v
}

// loadOptions builds the replies for the current question.
func (v *View) loadOptions() {
	v.options = nil
	v.cursor = 0
	q := v.session.Question()
	if q == nil {
		return
	}

	if q.Stage.Kind == domain.QuestionChoice {
		for _, opt := range q.Options {
			v.options = append(v.options, option{label: opt, answer: domain.Answer{Kind: domain.AnswerChoice, Choice: opt}})
		}
	} else {
		v.options = []option{
			{label: "Sim", answer: domain.Answer{Kind: domain.AnswerYes}},
			{label: "Não", answer: domain.Answer{Kind: domain.AnswerNo}},
		}
	}
	v.options = append(v.options, option{label: unknownLabel, answer: domain.Answer{Kind: domain.AnswerUnknown}})
}

// Init returns FunnelFinished at once when nothing needs asking.
func (v *View) Init() tea.Cmd {
	if v.session.Done() {
		return v.finished()
	}
	return nil
}

// Update handles key presses.
func (v *View) Update(msg tea.Msg) (*View, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok || v.session.Done() {
		return v, nil
	}

	q := v.session.Question()
	k := keyMsg.String()
	switch {
	case keymap.Matches(k, v.keymap.Up):
		if v.cursor > 0 {
			v.cursor--
		}
	case keymap.Matches(k, v.keymap.Down):
		if v.cursor < len(v.options)-1 {
			v.cursor++
		}
	case keymap.Matches(k, v.keymap.Select):
		return v, v.answer(v.options[v.cursor].answer)
	case keymap.Matches(k, v.keymap.Unknown):
		return v, v.answer(domain.Answer{Kind: domain.AnswerUnknown})
	case q.Stage.Kind == domain.QuestionBoolean && keymap.Matches(k, v.keymap.Yes):
		return v, v.answer(domain.Answer{Kind: domain.AnswerYes})
	case q.Stage.Kind == domain.QuestionBoolean && keymap.Matches(k, v.keymap.No):
		return v, v.answer(domain.Answer{Kind: domain.AnswerNo})
	case q.Stage.Kind == domain.QuestionChoice && len(k) == 1 && k[0] >= '1' && k[0] <= '9':
		if a, err := domain.ParseAnswer(*q, k); err == nil {
			return v, v.answer(a)
		}
	}
	return v, nil
}

func (v *View) answer(a domain.Answer) tea.Cmd {
	if err := v.session.Answer(a); err != nil {
		v.err = err
		return nil
	}
	v.err = nil
	v.loadOptions()
	if v.session.Done() {
		return v.finished()
	}
	return nil
}

func (v *View) finished() tea.Cmd {
	outcome := v.session.Outcome()
	return func() tea.Msg {
		return messages.FunnelFinished{Outcome: outcome}
	}
}

// View renders the question, the remaining candidates and the options.
func (v *View) View() string {
	outcome := v.session.Outcome()
	q := v.session.Question()

	var b strings.Builder
	b.WriteString(v.styles.Muted.Render("Modelos possíveis: " + strings.Join(outcome.Remaining, ", ")))
	b.WriteString("\n\n")

	if q == nil {
		b.WriteString(v.styles.Muted.Render("Sem mais perguntas."))
		return b.String()
	}

	b.WriteString(v.styles.Title.Render(q.Stage.Prompt))
	if q.Stage.Help != "" {
		b.WriteString("\n")
		b.WriteString(v.styles.Muted.Render(q.Stage.Help))
	}
	b.WriteString("\n\n")

	for i, opt := range v.options {
		if i == v.cursor {
			b.WriteString(v.styles.Selected.Render(fmt.Sprintf("> %d. %s", i+1, opt.label)))
		} else {
			b.WriteString(v.styles.Normal.Render(fmt.Sprintf("  %d. %s", i+1, opt.label)))
		}
		b.WriteString("\n")
	}

	if v.err != nil {
		b.WriteString("\n")
		b.WriteString(v.styles.Error.Render(v.err.Error()))
	}
	return b.String()
}

// Session returns the underlying funnel session.
func (v *View) Session() driving.FunnelSession {
	return v.session
}

// Cursor returns the highlighted option index.
func (v *View) Cursor() int {
	return v.cursor
}
