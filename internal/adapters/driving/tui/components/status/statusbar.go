// Package status provides status bar components for the TUI.
package status

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/lipgloss"

	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/keymap"
	"github.com/custodia-labs/printdesk/internal/adapters/driving/tui/styles"
)

// State represents the current activity for display.
type State string

const (
	StateReady     State = "ready"
	StateResolving State = "resolving"
	StateAsking    State = "asking"
	StateSearching State = "searching"
	StateResults   State = "results"
	StateError     State = "error"
)

// Bar displays the selected printer, the activity and keybinding hints.
type Bar struct {
	styles  *styles.Styles
	keymap  *keymap.KeyMap
	state   State
	model   string
	message string
	width   int
}

// NewBar creates a new status bar component.
func NewBar(s *styles.Styles, km *keymap.KeyMap) *Bar {
	if s == nil {
		s = styles.DefaultStyles()
	}
	if km == nil {
		km = keymap.DefaultKeyMap()
	}

	return &Bar{
		styles: s,
		keymap: km,
		state:  StateReady,
		width:  80,
	}
}

// View renders the status bar.
func (s *Bar) View() string {
	left := s.renderLeft()
	right := s.renderRight()

	padding := s.width - lipgloss.Width(left) - lipgloss.Width(right)
	if padding < 1 {
		padding = 1
	}

	return s.styles.StatusBar.Render(left + strings.Repeat(" ", padding) + right)
}

func (s *Bar) renderLeft() string {
	var parts []string
	if s.model != "" {
		parts = append(parts, s.styles.Success.Render(s.model))
	}

	switch s.state {
	case StateResolving:
		parts = append(parts, s.styles.Muted.Render("Identificando..."))
	case StateAsking:
		parts = append(parts, s.styles.Muted.Render("Refinando o modelo"))
	case StateSearching:
		parts = append(parts, s.styles.Muted.Render("Buscando no manual..."))
	case StateError:
		msg := "Erro"
		if s.message != "" {
			msg = fmt.Sprintf("Erro: %s", s.message)
		}
		parts = append(parts, s.styles.Error.Render(msg))
	case StateReady, StateResults:
		if s.message != "" {
			parts = append(parts, s.styles.Normal.Render(s.message))
		}
	}

	if len(parts) == 0 {
		return s.styles.Muted.Render("Pronto")
	}
	return strings.Join(parts, "  ")
}

func (s *Bar) renderRight() string {
	var bindings []key.Binding
	switch s.state {
	case StateAsking:
		bindings = s.keymap.FunnelHelp()
	case StateResults:
		bindings = s.keymap.ResultsHelp()
	default:
		bindings = s.keymap.InputHelp()
	}

	hints := make([]string, 0, len(bindings))
	for _, b := range bindings {
		h := b.Help()
		hints = append(hints, fmt.Sprintf("%s: %s", h.Key, h.Desc))
	}
	return s.styles.Muted.Render(strings.Join(hints, " | "))
}

// SetState sets the current state.
func (s *Bar) SetState(state State) {
	s.state = state
}

// State returns the current state.
func (s *Bar) State() State {
	return s.state
}

// SetModel sets the identified printer shown on the left.
func (s *Bar) SetModel(model string) {
	s.model = model
}

// SetMessage sets a custom message.
func (s *Bar) SetMessage(message string) {
	s.message = message
}

// Message returns the current message.
func (s *Bar) Message() string {
	return s.message
}

// SetWidth sets the status bar width.
func (s *Bar) SetWidth(width int) {
	s.width = width
}

// Clear resets the status bar to default state.
func (s *Bar) Clear() {
	s.state = StateReady
	s.model = ""
	s.message = ""
}
