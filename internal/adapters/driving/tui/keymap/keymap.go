// Package keymap defines keybindings for the TUI.
package keymap

import (
	"github.com/charmbracelet/bubbles/key"
)

// KeyMap defines all keybindings for the TUI.
type KeyMap struct {
	// Quit exits the application.
	Quit key.Binding

	// Back returns to the previous step.
	Back key.Binding

	// Up moves the selection up.
	Up key.Binding

	// Down moves the selection down.
	Down key.Binding

	// Select confirms the highlighted option or submits the input.
	Select key.Binding

	// Yes answers a boolean question with "sim".
	Yes key.Binding

	// No answers a boolean question with "não".
	No key.Binding

	// Unknown answers any question with "não sei".
	Unknown key.Binding

	// Restart begins a new identification.
	Restart key.Binding
}

// DefaultKeyMap returns the default keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "select"),
		),
		Yes: key.NewBinding(
			key.WithKeys("s", "y"),
			key.WithHelp("s", "sim"),
		),
		No: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "não"),
		),
		Unknown: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "não sei"),
		),
		Restart: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "restart"),
		),
	}
}

// InputHelp returns keybindings for text input steps.
func (k *KeyMap) InputHelp() []key.Binding {
	return []key.Binding{k.Select, k.Back, k.Quit}
}

// FunnelHelp returns keybindings for a disambiguation question.
func (k *KeyMap) FunnelHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Select, k.Yes, k.No, k.Unknown, k.Quit}
}

// ResultsHelp returns keybindings for the results view.
func (k *KeyMap) ResultsHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Back, k.Restart, k.Quit}
}

// Matches checks if a key string matches a binding.
func Matches(keyStr string, binding key.Binding) bool {
	for _, k := range binding.Keys() {
		if k == keyStr {
			return true
		}
	}
	return false
}
