package tui

import (
	tea "github.com/charmbracelet/bubbletea"
)

// KeyMap defines the board key bindings.
type KeyMap struct {
	Up       Key
	Down     Key
	PageUp   Key
	PageDown Key
	Home     Key
	End      Key

	NextPanel Key
	PrevPanel Key
	Refresh   Key
	Quit      Key
}

// Key represents a key binding.
type Key struct {
	Keys    []string
	Help    string
	Enabled bool
}

func bind(help string, keys ...string) Key {
	return Key{Keys: keys, Help: help, Enabled: true}
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       bind("w górę", "up", "k"),
		Down:     bind("w dół", "down", "j"),
		PageUp:   bind("strona w górę", "pgup", "ctrl+u"),
		PageDown: bind("strona w dół", "pgdown", "ctrl+d"),
		Home:     bind("początek", "home", "g"),
		End:      bind("koniec", "end", "G"),

		NextPanel: bind("panel", "tab", "right", "l"),
		PrevPanel: bind("panel", "shift+tab", "left", "h"),
		Refresh:   bind("odśwież", "r", "f5"),
		Quit:      bind("wyjście", "q", "ctrl+c", "esc"),
	}
}

// Matches checks if a key message matches this key binding.
func (k Key) Matches(msg tea.KeyMsg) bool {
	if !k.Enabled {
		return false
	}

	keyStr := msg.String()
	for _, key := range k.Keys {
		if keyStr == key {
			return true
		}
	}
	return false
}

// MatchesAny checks if a key message matches any of the provided key bindings.
func MatchesAny(msg tea.KeyMsg, keys ...Key) bool {
	for _, k := range keys {
		if k.Matches(msg) {
			return true
		}
	}
	return false
}

// IsNavigation checks if the key message moves inside a panel.
func (km KeyMap) IsNavigation(msg tea.KeyMsg) bool {
	return MatchesAny(msg, km.Up, km.Down, km.PageUp, km.PageDown, km.Home, km.End)
}

// StatusBarHelp returns the help text for the status bar.
func (km KeyMap) StatusBarHelp() string {
	return "[Tab]Panel [↑↓]Przewiń [R]Odśwież [Q]Wyjście"
}
