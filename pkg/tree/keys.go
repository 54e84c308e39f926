package tree

import "strings"

// Key names understood by HandleKey. Matching is case-insensitive and the
// short aliases "up", "down", "left", "right", "space" and "spacebar" are
// accepted too.
const (
	KeyHome       = "Home"
	KeyEnd        = "End"
	KeyArrowLeft  = "ArrowLeft"
	KeyArrowRight = "ArrowRight"
	KeyArrowUp    = "ArrowUp"
	KeyArrowDown  = "ArrowDown"
	KeyAsterisk   = "*"
	KeySpace      = " "
	KeyEnter      = "Enter"
)

// KeyEvent is a key press routed into the tree.
type KeyEvent struct {
	Key    string
	Ctrl   bool
	Shift  bool
	Repeat bool

	prevented bool
}

// NewKeyEvent returns a plain key press.
func NewKeyEvent(key string) *KeyEvent {
	return &KeyEvent{Key: key}
}

// PreventDefault marks the event as consumed by the tree.
func (e *KeyEvent) PreventDefault() { e.prevented = true }

// DefaultPrevented reports whether the tree consumed the event.
func (e *KeyEvent) DefaultPrevented() bool { return e.prevented }

type navKey int

const (
	navNone navKey = iota
	navHome
	navEnd
	navLeft
	navRight
	navUp
	navDown
	navAsterisk
	navSpace
	navEnter
)

func classifyKey(key string) navKey {
	if key == " " {
		return navSpace
	}
	switch strings.ToLower(strings.TrimSpace(key)) {
	case "home":
		return navHome
	case "end":
		return navEnd
	case "arrowleft", "left":
		return navLeft
	case "arrowright", "right":
		return navRight
	case "arrowup", "up":
		return navUp
	case "arrowdown", "down":
		return navDown
	case "*":
		return navAsterisk
	case "space", "spacebar":
		return navSpace
	case "enter":
		return navEnter
	default:
		return navNone
	}
}
