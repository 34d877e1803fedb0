package funnel

import (
	"context"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/printdesk/internal/adapters/driven/registryfile"
	"github.com/custodia-labs/printdesk/internal/adapters/driven/storage/memory"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/messages"
	"github.com/custodia-labs/printdesk/internal/core/domain"
	"github.com/custodia-labs/printdesk/internal/core/ports/driving"
	"github.com/custodia-labs/printdesk/internal/core/services"
)

// --- Mock implementations ---

// mockSession asks a single choice question.
type mockSession struct {
	question *domain.Question
	answers  []domain.Answer
	answerFn func(domain.Answer) error
}

func newChoiceSession() *mockSession {
	return &mockSession{question: &domain.Question{
		Stage:   domain.FunnelStage{ID: "series", Prompt: "Qual a série?", Kind: domain.QuestionChoice},
		Options: []string{"L300", "L3000"},
	}}
}

func (m *mockSession) Question() *domain.Question { return m.question }

func (m *mockSession) Answer(a domain.Answer) error {
	if m.answerFn != nil {
		if err := m.answerFn(a); err != nil {
			return err
		}
	}
	m.answers = append(m.answers, a)
	m.question = nil
	return nil
}

func (m *mockSession) Done() bool { return m.question == nil }

func (m *mockSession) Outcome() domain.FunnelOutcome {
	if m.question != nil {
		return domain.FunnelOutcome{Status: domain.FunnelPending, Remaining: []string{"L3110", "L375"}}
	}
	return domain.FunnelOutcome{Status: domain.FunnelResolved, ModelID: "L375", Remaining: []string{"L375"}}
}

func seededSession(t *testing.T, ids ...string) driving.FunnelSession {
	t.Helper()
	ctx := context.Background()
	registry := services.NewRegistryService(memory.NewRegistryStore(), memory.NewSectionStore())
	_, err := registry.SeedIfEmpty(ctx, registryfile.Seed())
	require.NoError(t, err)

	session, err := services.NewResolverService(registry).StartFunnel(ctx, ids)
	require.NoError(t, err)
	return session
}

func press(v *View, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := v.Update(msg)
	return cmd
}

func finished(t *testing.T, cmd tea.Cmd) domain.FunnelOutcome {
	t.Helper()
	require.NotNil(t, cmd)
	msg, ok := cmd().(messages.FunnelFinished)
	require.True(t, ok)
	return msg.Outcome
}

func TestView_BooleanQuestion(t *testing.T) {
	v := NewView(nil, seededSession(t, "L3150", "L4150"))

	assert.Nil(t, v.Init())
	view := v.View()
	assert.Contains(t, view, "L3150, L4150")
	assert.Contains(t, view, "1. Sim")
	assert.Contains(t, view, "3. Não sei")

	out := finished(t, press(v, "s"))
	assert.Equal(t, domain.FunnelResolved, out.Status)
	assert.Equal(t, "L4150", out.ModelID)
}

func TestView_SelectWithCursor(t *testing.T) {
	v := NewView(nil, seededSession(t, "L3150", "L4150"))

	assert.Nil(t, press(v, "down"))
	assert.Equal(t, 1, v.Cursor())
	assert.Nil(t, press(v, "j"))
	assert.Nil(t, press(v, "j"))
	assert.Equal(t, 2, v.Cursor(), "cursor stops at the last option")
	assert.Nil(t, press(v, "up"))

	out := finished(t, press(v, "enter"))
	assert.Equal(t, "L3150", out.ModelID)
}

func TestView_UnknownKeepsAsking(t *testing.T) {
	v := NewView(nil, seededSession(t, "L3150", "L4150"))

	assert.Nil(t, press(v, "?"))
	require.False(t, v.Session().Done(), "adf still separates the pair")
	assert.Equal(t, []string{"duplex"}, v.Session().Outcome().Asked)
	assert.Equal(t, "adf", v.Session().Question().Stage.ID)
}

func TestView_ChoiceQuestion(t *testing.T) {
	session := newChoiceSession()
	v := NewView(nil, session)

	view := v.View()
	assert.Contains(t, view, "Qual a série?")
	assert.Contains(t, view, "2. L3000")

	assert.Nil(t, press(v, "s"), "yes/no keys do nothing on choice questions")
	assert.Empty(t, session.answers)

	out := finished(t, press(v, "1"))
	require.Len(t, session.answers, 1)
	assert.Equal(t, "L300", session.answers[0].Choice)
	assert.Equal(t, "L375", out.ModelID)
}

func TestView_ShowsAnswerErrors(t *testing.T) {
	session := newChoiceSession()
	session.answerFn = func(domain.Answer) error { return domain.ErrInvalidInput }
	v := NewView(nil, session)

	assert.Nil(t, press(v, "enter"))
	assert.Contains(t, v.View(), "invalid input")
}

func TestView_InitWhenAlreadyDone(t *testing.T) {
	v := NewView(nil, seededSession(t, "L3150"))

	out := finished(t, v.Init())
	assert.Equal(t, "L3150", out.ModelID)
	assert.Contains(t, v.View(), "Sem mais perguntas")
}
