package tui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the keyboard bindings handled outside the file picker.
type keyMap struct {
	Quit   key.Binding
	Search key.Binding
	Clear  key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() keyMap {
	return keyMap{
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c", "q"),
			key.WithHelp("q", "Quit"),
		),
		Search: key.NewBinding(
			key.WithKeys("s", "ctrl+s"),
			key.WithHelp("s", "Search"),
		),
		Clear: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "Dismiss message"),
		),
	}
}

func (k keyMap) helpLine() string {
	bindings := []key.Binding{k.Search, k.Clear, k.Quit}
	out := "enter select"
	for _, b := range bindings {
		h := b.Help()
		out += " • " + h.Key + " " + h.Desc
	}
	return out
}
