package keys

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the global keybindings for the application.
type KeyMap struct {
	// Navigation
	Down key.Binding
	Up   key.Binding

	// Selection
	Select key.Binding

	// Back / Quit
	Back key.Binding
	Quit key.Binding

	// Help toggle
	Help key.Binding

	// Manual refresh
	Refresh key.Binding

	// Notification center
	Notifications key.Binding
	MarkAllRead   key.Binding

	// Task actions
	NewTask    key.Binding
	Transition key.Binding
	Comment    key.Binding

	// Status filters
	FilterTodo       key.Binding
	FilterInProgress key.Binding
	FilterDone       key.Binding

	// Session
	Logout key.Binding
}

// ShortHelp returns the bindings shown in the collapsed help bar.
func (k *KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Notifications, k.Refresh, k.Help, k.Quit}
}

// FullHelp returns the bindings shown in the expanded help overlay.
func (k *KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Select, k.Back},
		{k.Notifications, k.MarkAllRead, k.Refresh},
		{k.NewTask, k.Transition, k.Comment},
		{k.FilterTodo, k.FilterInProgress, k.FilterDone},
		{k.Help, k.Logout, k.Quit},
	}
}

// DefaultKeyMap returns the default set of keybindings.
func DefaultKeyMap() *KeyMap {
	return &KeyMap{
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Select: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "open"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "toggle help"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Notifications: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "notifications"),
		),
		MarkAllRead: key.NewBinding(
			key.WithKeys("A"),
			key.WithHelp("A", "mark all read"),
		),
		NewTask: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "create task"),
		),
		Transition: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "change status"),
		),
		Comment: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "comment"),
		),
		FilterTodo: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "todo only"),
		),
		FilterInProgress: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "in progress only"),
		),
		FilterDone: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "done only"),
		),
		Logout: key.NewBinding(
			key.WithKeys("ctrl+l"),
			key.WithHelp("ctrl+l", "log out"),
		),
	}
}
