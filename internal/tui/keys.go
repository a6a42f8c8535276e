package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	Grab      key.Binding
	Cancel    key.Binding
	Select    key.Binding
	Toggle    key.Binding
	Range     key.Binding
	Delete    key.Binding
	Duplicate key.Binding
	Nest      key.Binding
	Unnest    key.Binding
	Hide      key.Binding
	Add       key.Binding
	Undo      key.Binding
	Redo      key.Binding
	Preview   key.Binding
	Save      key.Binding
	Help      key.Binding
	Quit      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Grab:      key.NewBinding(key.WithKeys("m", " "), key.WithHelp("m/space", "grab/drop")),
		Cancel:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Select:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "select mode")),
		Toggle:    key.NewBinding(key.WithKeys("x", "enter"), key.WithHelp("x", "toggle")),
		Range:     key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "select range")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Duplicate: key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "duplicate")),
		Nest:      key.NewBinding(key.WithKeys(">"), key.WithHelp(">", "into dropdown above")),
		Unnest:    key.NewBinding(key.WithKeys("<"), key.WithHelp("<", "out of dropdown")),
		Hide:      key.NewBinding(key.WithKeys("h"), key.WithHelp("h", "show/hide")),
		Add:       key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add card")),
		Undo:      key.NewBinding(key.WithKeys("u", "ctrl+z"), key.WithHelp("u", "undo")),
		Redo:      key.NewBinding(key.WithKeys("ctrl+r", "U"), key.WithHelp("ctrl+r", "redo")),
		Preview:   key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save now")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Grab, k.Select, k.Add, k.Delete, k.Undo, k.Redo, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Grab, k.Cancel},
		{k.Select, k.Toggle, k.Range},
		{k.Add, k.Delete, k.Duplicate, k.Hide},
		{k.Nest, k.Unnest, k.Undo, k.Redo},
		{k.Preview, k.Save, k.Help, k.Quit},
	}
}
