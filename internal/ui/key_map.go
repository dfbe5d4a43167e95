package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	up       key.Binding
	down     key.Binding
	play     key.Binding
	pause    key.Binding
	next     key.Binding
	previous key.Binding
	forward  key.Binding
	rewind   key.Binding
	louder   key.Binding
	quieter  key.Binding
	tab      key.Binding
	search   key.Binding
	favorite key.Binding
	remove   key.Binding
	playAll  key.Binding
	login    key.Binding
	logout   key.Binding
	back     key.Binding
	quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		play:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "play")),
		pause:    key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		next:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next")),
		previous: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "previous")),
		forward:  key.NewBinding(key.WithKeys("right"), key.WithHelp("→", "+5s")),
		rewind:   key.NewBinding(key.WithKeys("left"), key.WithHelp("←", "-5s")),
		louder:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "louder")),
		quieter:  key.NewBinding(key.WithKeys("-"), key.WithHelp("-", "quieter")),
		tab:      key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "switch tab")),
		search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
		favorite: key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "favorite")),
		remove:   key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "unfavorite")),
		playAll:  key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "play all")),
		login:    key.NewBinding(key.WithKeys("L"), key.WithHelp("L", "log in")),
		logout:   key.NewBinding(key.WithKeys("O"), key.WithHelp("O", "log out")),
		back:     key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.play, k.pause, k.tab, k.search, k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.up, k.down, k.play, k.pause},
		{k.next, k.previous, k.forward, k.rewind},
		{k.louder, k.quieter, k.favorite, k.remove, k.playAll},
		{k.tab, k.search, k.login, k.logout, k.quit},
	}
}
