package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Left, Right, Up, Down key.Binding
	Toggle                key.Binding
	Play                  key.Binding
	Faster, Slower        key.Binding
	Taps                  []key.Binding
	PrevPattern           key.Binding
	NextPattern           key.Binding
	ClearVoice            key.Binding
	ClearTaps             key.Binding
	Save                  key.Binding
	Help                  key.Binding
	Quit                  key.Binding
}

func defaultKeys() keyMap {
	tap := func(k string, voice int) key.Binding {
		return key.NewBinding(key.WithKeys(k), key.WithHelp(k, "tap voice "+string(rune('1'+voice))))
	}
	return keyMap{
		Left:        key.NewBinding(key.WithKeys("h", "left"), key.WithHelp("h/←", "left")),
		Right:       key.NewBinding(key.WithKeys("l", "right"), key.WithHelp("l/→", "right")),
		Up:          key.NewBinding(key.WithKeys("k", "up"), key.WithHelp("k/↑", "up")),
		Down:        key.NewBinding(key.WithKeys("j", "down"), key.WithHelp("j/↓", "down")),
		Toggle:      key.NewBinding(key.WithKeys(" ", "space"), key.WithHelp("space", "toggle")),
		Play:        key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "play/stop")),
		Faster:      key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "tempo up")),
		Slower:      key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "tempo down")),
		Taps:        []key.Binding{tap("a", 0), tap("s", 1), tap("d", 2), tap("f", 3)},
		PrevPattern: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "prev pattern")),
		NextPattern: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "next pattern")),
		ClearVoice:  key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "clear row")),
		ClearTaps:   key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "clear taps")),
		Save:        key.NewBinding(key.WithKeys("w"), key.WithHelp("w", "save pattern")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Play, k.Faster, k.Slower, k.Taps[0], k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Left, k.Right, k.Up, k.Down},
		{k.Toggle, k.ClearVoice, k.PrevPattern, k.NextPattern, k.Save},
		{k.Play, k.Faster, k.Slower},
		append(append([]key.Binding(nil), k.Taps...), k.ClearTaps),
		{k.Help, k.Quit},
	}
}
