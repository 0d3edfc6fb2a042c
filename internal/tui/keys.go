package tui

import (
	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
)

type keyMap struct {
	Users    key.Binding
	Projects key.Binding
	Agents   key.Binding
	Analysis key.Binding
	Next     key.Binding
	Prev     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Users: key.NewBinding(
			key.WithKeys("1"),
			key.WithHelp("1", "users"),
		),
		Projects: key.NewBinding(
			key.WithKeys("2"),
			key.WithHelp("2", "projects"),
		),
		Agents: key.NewBinding(
			key.WithKeys("3"),
			key.WithHelp("3", "agents"),
		),
		Analysis: key.NewBinding(
			key.WithKeys("4"),
			key.WithHelp("4", "analysis"),
		),
		Next: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "next screen"),
		),
		Prev: key.NewBinding(
			key.WithKeys("shift+tab"),
			key.WithHelp("shift+tab", "prev screen"),
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

// crudKeys are the row actions of the entity screens.
type crudKeys struct {
	New        key.Binding
	Edit       key.Binding
	Delete     key.Binding
	BulkDelete key.Binding
	Details    key.Binding
	Refresh    key.Binding
}

func defaultCrudKeys() crudKeys {
	return crudKeys{
		New:        key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Edit:       key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "update")),
		Delete:     key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		BulkDelete: key.NewBinding(key.WithKeys("D"), key.WithHelp("D", "delete selected")),
		Details:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "details")),
		Refresh:    key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
	}
}

// helpKeys joins the global bindings with those of the active screen.
type helpKeys struct {
	global keyMap
	short  []key.Binding
	full   [][]key.Binding
}

func (k helpKeys) ShortHelp() []key.Binding {
	out := append([]key.Binding{}, k.short...)
	return append(out, k.global.Help, k.global.Quit)
}

func (k helpKeys) FullHelp() [][]key.Binding {
	g := k.global
	out := append([][]key.Binding{}, k.full...)
	return append(out, []key.Binding{g.Users, g.Projects, g.Agents, g.Analysis}, []key.Binding{g.Next, g.Prev, g.Help, g.Quit})
}

var _ help.KeyMap = helpKeys{}
