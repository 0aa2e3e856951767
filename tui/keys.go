package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit     key.Binding
	Clear    key.Binding
	Help     key.Binding
	Switch   key.Binding
	Send     key.Binding
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
}

var keys = keyMap{
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("Ctrl+C", "Exit"),
	),
	Clear: key.NewBinding(
		key.WithKeys("ctrl+l"),
		key.WithHelp("Ctrl+L", "Clear conversation"),
	),
	Help: key.NewBinding(
		key.WithKeys("f1"),
		key.WithHelp("F1", "Toggle this help"),
	),
	Switch: key.NewBinding(
		key.WithKeys("f2"),
		key.WithHelp("F2", "Switch AI provider"),
	),
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "Send message"),
	),
	Up: key.NewBinding(
		key.WithKeys("up"),
		key.WithHelp("↑/↓", "Scroll messages"),
	),
	Down: key.NewBinding(
		key.WithKeys("down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("PgUp/PgDn", "Scroll 10 messages"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
	),
}

func (k keyMap) navigation() []key.Binding {
	return []key.Binding{k.Up, k.PageUp}
}

func (k keyMap) commands() []key.Binding {
	return []key.Binding{k.Send, k.Help, k.Switch, k.Clear, k.Quit}
}
