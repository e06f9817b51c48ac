package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Cancel   key.Binding
	Copy     key.Binding
	DocUp    key.Binding
	DocDn    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("q", "esc"),
		key.WithHelp("q/esc", "quit"),
	),
	Cancel: key.NewBinding(
		key.WithKeys("ctrl+c"),
		key.WithHelp("C-c", "cancel stream"),
	),
	Copy: key.NewBinding(
		key.WithKeys("y"),
		key.WithHelp("y", "copy document"),
	),
	DocUp: key.NewBinding(
		key.WithKeys("ctrl+u", "up", "ctrl+k"),
		key.WithHelp("C-u", "scroll up"),
	),
	DocDn: key.NewBinding(
		key.WithKeys("ctrl+d", "down", "ctrl+j"),
		key.WithHelp("C-d", "scroll down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
}
