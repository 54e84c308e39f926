package ui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

// KeyMap holds the explorer's bindings. Navigation bindings are translated
// into tree key events; the rest are handled by the model itself.
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PeekUp      key.Binding
	PeekDown    key.Binding
	Left        key.Binding
	Right       key.Binding
	Home        key.Binding
	End         key.Binding
	Toggle      key.Binding
	RangeSelect key.Binding
	Activate    key.Binding
	ExpandSibs  key.Binding
	ExpandAll   key.Binding
	CollapseAll key.Binding
	Copy        key.Binding
	Preview     key.Binding
	Settings    key.Binding
	Help        key.Binding
	Quit        key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		PeekUp:      key.NewBinding(key.WithKeys("ctrl+up", "K"), key.WithHelp("ctrl+↑", "focus up")),
		PeekDown:    key.NewBinding(key.WithKeys("ctrl+down", "J"), key.WithHelp("ctrl+↓", "focus down")),
		Left:        key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse/parent")),
		Right:       key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "expand/child")),
		Home:        key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "first")),
		End:         key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "last")),
		Toggle:      key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		RangeSelect: key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "range select")),
		Activate:    key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "activate")),
		ExpandSibs:  key.NewBinding(key.WithKeys("*"), key.WithHelp("*", "expand siblings")),
		ExpandAll:   key.NewBinding(key.WithKeys("X"), key.WithHelp("X", "expand all")),
		CollapseAll: key.NewBinding(key.WithKeys("Z"), key.WithHelp("Z", "collapse all")),
		Copy:        key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy ids")),
		Preview:     key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "preview")),
		Settings:    key.NewBinding(key.WithKeys("S"), key.WithHelp("S", "settings")),
		Help:        key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Left, k.Right, k.Toggle, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PeekUp, k.PeekDown, k.Home, k.End},
		{k.Left, k.Right, k.ExpandSibs, k.ExpandAll, k.CollapseAll},
		{k.Toggle, k.RangeSelect, k.Activate, k.Copy},
		{k.Preview, k.Settings, k.Help, k.Quit},
	}
}

// treeKey maps a pressed key onto a tree key event, or nil when the key is
// not a navigation key.
func (k KeyMap) treeKey(pressed string) *tree.KeyEvent {
	match := func(b key.Binding) bool {
		for _, s := range b.Keys() {
			if s == pressed {
				return true
			}
		}
		return false
	}
	switch {
	case match(k.Up):
		return tree.NewKeyEvent(tree.KeyArrowUp)
	case match(k.Down):
		return tree.NewKeyEvent(tree.KeyArrowDown)
	case match(k.PeekUp):
		ev := tree.NewKeyEvent(tree.KeyArrowUp)
		ev.Ctrl = true
		return ev
	case match(k.PeekDown):
		ev := tree.NewKeyEvent(tree.KeyArrowDown)
		ev.Ctrl = true
		return ev
	case match(k.Left):
		return tree.NewKeyEvent(tree.KeyArrowLeft)
	case match(k.Right):
		return tree.NewKeyEvent(tree.KeyArrowRight)
	case match(k.Home):
		return tree.NewKeyEvent(tree.KeyHome)
	case match(k.End):
		return tree.NewKeyEvent(tree.KeyEnd)
	case match(k.Toggle):
		return tree.NewKeyEvent(tree.KeySpace)
	case match(k.RangeSelect):
		ev := tree.NewKeyEvent(tree.KeySpace)
		ev.Shift = true
		return ev
	case match(k.Activate):
		return tree.NewKeyEvent(tree.KeyEnter)
	case match(k.ExpandSibs):
		return tree.NewKeyEvent(tree.KeyAsterisk)
	}
	return nil
}
