package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the breathing screen
type KeyMap struct {
	Toggle key.Binding
	Exit   key.Binding
	Quit   key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Toggle: key.NewBinding(
			key.WithKeys(" ", "p"),
			key.WithHelp("space", "play/pause"),
		),
		Exit: key.NewBinding(
			key.WithKeys("q", "esc"),
			key.WithHelp("q/esc", "stop and exit"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
	}
}

// ShortHelp returns the bindings shown with the controls
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Exit}
}
