package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up      key.Binding
	down    key.Binding
	enter   key.Binding
	back    key.Binding
	yes     key.Binding
	no      key.Binding
	filter  key.Binding
	clear   key.Binding
	ingest  key.Binding
	compose key.Binding
	edit    key.Binding
	export  key.Binding
	next    key.Binding
	save    key.Binding
	quit    key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:      key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:    key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		enter:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "submit")),
		back:    key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		yes:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "send")),
		no:      key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "cancel")),
		filter:  key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "ai filter")),
		clear:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear filter")),
		ingest:  key.NewBinding(key.WithKeys("i"), key.WithHelp("i", "upload sheet")),
		compose: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview email")),
		edit:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "open preview")),
		export:  key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "export")),
		next:    key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field")),
		save:    key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "continue")),
		quit:    key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.enter, k.back},
		{k.filter, k.clear, k.ingest, k.export},
		{k.compose, k.edit, k.next, k.save},
		{k.yes, k.no, k.quit},
	}
}
