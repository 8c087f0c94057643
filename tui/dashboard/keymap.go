package dashboard

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the dashboard.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	SwitchPane  key.Binding
	Refetch     key.Binding
	Reconnect   key.Binding
	StartTask   key.Binding
	StopTask    key.Binding
	ToggleSound key.Binding
	Layout      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap is the default set of keybindings.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	SwitchPane: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch pane"),
	),
	Refetch: key.NewBinding(
		key.WithKeys("r", "ctrl+r"),
		key.WithHelp("r", "refetch all"),
	),
	Reconnect: key.NewBinding(
		key.WithKeys("R"),
		key.WithHelp("R", "reconnect"),
	),
	StartTask: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start task"),
	),
	StopTask: key.NewBinding(
		key.WithKeys("S"),
		key.WithHelp("S", "stop task"),
	),
	ToggleSound: key.NewBinding(
		key.WithKeys("m"),
		key.WithHelp("m", "toggle sound"),
	),
	Layout: key.NewBinding(
		key.WithKeys("v"),
		key.WithHelp("v", "toggle layout"),
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

// ShortHelp returns keybindings to be shown in the compact help view.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.SwitchPane, k.Refetch, k.Help, k.Quit}
}

// FullHelp returns keybindings for the full help view.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.SwitchPane},
		{k.Refetch, k.Reconnect},
		{k.StartTask, k.StopTask},
		{k.ToggleSound, k.Layout, k.Help, k.Quit},
	}
}
