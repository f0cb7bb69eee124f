package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	left     key.Binding
	right    key.Binding
	card     key.Binding
	complete key.Binding
	move     key.Binding
	plan     key.Binding
	remove   key.Binding
	yes      key.Binding
	no       key.Binding
	refresh  key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		left:     key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "prev list")),
		right:    key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "next list")),
		card:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "board/card")),
		complete: key.NewBinding(key.WithKeys("enter", " "), key.WithHelp("enter", "complete")),
		move:     key.NewBinding(key.WithKeys("m"), key.WithHelp("m", "move")),
		plan:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "add to card")),
		remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		yes:      key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "yes")),
		no:       key.NewBinding(key.WithKeys("n", "esc"), key.WithHelp("n", "no")),
		refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.left, k.right},
		{k.complete, k.move, k.plan, k.remove},
		{k.card, k.refresh, k.quit},
	}
}
