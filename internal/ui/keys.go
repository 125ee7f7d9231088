package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines all keyboard bindings for the application.
type keyMap struct {
	// Global
	Quit       key.Binding
	Help       key.Binding
	CycleTheme key.Binding
	Tab        key.Binding
	ShiftTab   key.Binding
	Escape     key.Binding
	Refresh    key.Binding
	Logout     key.Binding
	Profile    key.Binding

	// View switching
	ViewRequests  key.Binding
	ViewAddresses key.Binding
	ViewPool      key.Binding
	ViewActivity  key.Binding

	// Navigation
	Up     key.Binding
	Down   key.Binding
	Top    key.Binding
	Bottom key.Binding

	// Actions
	Confirm  key.Binding
	New      key.Binding
	Delete   key.Binding
	Default  key.Binding
	Deliver  key.Binding
	Accept   key.Binding
	Decline  key.Binding
	Register key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("h", "?"),
			key.WithHelp("h/?", "Toggle help"),
		),
		CycleTheme: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "Cycle theme"),
		),
		Tab: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "Next view"),
		),
		ShiftTab: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "Previous view"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "Close"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "Refresh now"),
		),
		Logout: key.NewBinding(
			key.WithKeys("L"),
			key.WithHelp("L", "Log out"),
		),

		ViewRequests: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "Requests"),
		),
		ViewAddresses: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "Addresses"),
		),
		ViewPool: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "Pool"),
		),
		ViewActivity: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "Activity"),
		),

		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/up", "Move up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/down", "Move down"),
		),
		Top: key.NewBinding(
			key.WithKeys("g", "home"),
			key.WithHelp("g", "Go to top"),
		),
		Bottom: key.NewBinding(
			key.WithKeys("G", "end"),
			key.WithHelp("G", "Go to bottom"),
		),

		Confirm: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Open / select"),
		),
		New: key.NewBinding(
			key.WithKeys("n"),
			key.WithHelp("n", "New"),
		),
		Delete: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "Remove address"),
		),
		Default: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "Make default"),
		),
		Deliver: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Confirm delivery"),
		),
		Accept: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "Accept request"),
		),
		Decline: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "Decline request"),
		),
		Register: key.NewBinding(
			key.WithKeys("R"),
			key.WithHelp("R", "Register"),
		),
		Profile: key.NewBinding(
			key.WithKeys("P"),
			key.WithHelp("P", "Edit profile"),
		),
	}
}

// ShortHelp returns key bindings for the short help view.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Tab, k.ViewRequests, k.ViewAddresses, k.ViewPool, k.ViewActivity},
		{k.Up, k.Down, k.Top, k.Bottom},
		{k.Confirm, k.New, k.Deliver},
		{k.Delete, k.Default},
		{k.Accept, k.Decline},
		{k.Refresh, k.Profile, k.CycleTheme, k.Logout, k.Help, k.Quit},
	}
}
