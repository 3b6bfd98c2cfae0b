package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all keyboard shortcuts.
type KeyMap struct {
	Up      key.Binding
	Down    key.Binding
	Less    key.Binding
	More    key.Binding
	Next    key.Binding
	Confirm key.Binding
	Explore key.Binding
	Reload  key.Binding
	Quit    key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("↓/j", "down"),
		),
		Less: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("←/h", "less"),
		),
		More: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("→/l", "more"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next field"),
		),
		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "confirm"),
		),
		Explore: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "correlation heatmap"),
		),
		Reload: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("ctrl+r", "reload file"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "esc"),
			key.WithHelp("esc", "quit"),
		),
	}
}

// help lists the bindings shown in the footer for the given screen.
func (k KeyMap) help(s screen) []key.Binding {
	switch s {
	case screenColumns:
		return []key.Binding{k.Next, k.Confirm, k.Quit}
	case screenNullStrategy:
		return []key.Binding{k.Up, k.Down, k.Confirm, k.Reload, k.Quit}
	case screenTrain:
		return []key.Binding{k.Less, k.More, k.Explore, k.Confirm, k.Reload, k.Quit}
	default:
		return []key.Binding{k.Confirm, k.Reload, k.Quit}
	}
}
