package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/dewi-tim/csoundtui/internal/ui/components"
)

// KeyMap defines all key bindings for the application.
type KeyMap struct {
	// Performance controls
	Play       key.Binding
	Stop       key.Binding
	ScoreEvent key.Binding
	Continue   key.Binding

	// Score event entry
	Send   key.Binding
	Cancel key.Binding

	TabFocus key.Binding

	// Help and Quit
	Help key.Binding
	Quit key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Play: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "play"),
		),
		Stop: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "stop"),
		),
		ScoreEvent: key.NewBinding(
			key.WithKeys("e"),
			key.WithHelp("e", "score event"),
		),
		Continue: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "continue"),
		),

		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),

		TabFocus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "focus"),
		),

		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}

// ShortHelp returns keybindings to show in the short help view.
// Implements the help.KeyMap interface.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Play,
		k.Stop,
		k.ScoreEvent,
		k.TabFocus,
		k.Help,
		k.Quit,
	}
}

// FullHelp returns keybindings to show in the full help view.
// Implements the help.KeyMap interface.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Stop, k.ScoreEvent, k.Continue},
		{k.Send, k.Cancel, k.TabFocus},
		{k.Help, k.Quit},
	}
}

// HelpSections returns the global bindings for the help popup.
func (k KeyMap) HelpSections() []components.HelpSection {
	return []components.HelpSection{
		{Title: "Performance", Bindings: []key.Binding{k.Play, k.Stop, k.ScoreEvent, k.Continue}},
		{Title: "Score event", Bindings: []key.Binding{k.Send, k.Cancel}},
		{Title: "Global", Bindings: []key.Binding{k.TabFocus, k.Help, k.Quit}},
	}
}
