package ui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings of the tree browser.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	Top         key.Binding
	Bottom      key.Binding
	Toggle      key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	Check       key.Binding
	Parent      key.Binding
	Goto        key.Binding
	Yank        key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PageUp:      key.NewBinding(key.WithKeys("pgup", "ctrl+u"), key.WithHelp("pgup", "page up")),
		PageDown:    key.NewBinding(key.WithKeys("pgdown", "ctrl+d"), key.WithHelp("pgdn", "page down")),
		Top:         key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
		Bottom:      key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
		Toggle:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "toggle")),
		Expand:      key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand")),
		Collapse:    key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Check:       key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "check")),
		Parent:      key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "parent")),
		Goto:        key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "go to path")),
		Yank:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy selection")),
		ExpandAll:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "expand loaded")),
		CollapseAll: key.NewBinding(key.WithKeys("E"), key.WithHelp("E", "collapse all")),
		Reload:      key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Toggle, k.Check, k.Goto, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.Top, k.Bottom},
		{k.Toggle, k.Expand, k.Collapse, k.Parent, k.ExpandAll, k.CollapseAll},
		{k.Check, k.Yank, k.Goto, k.Reload, k.Help, k.Quit},
	}
}
