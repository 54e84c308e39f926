package tree

import (
	"fmt"
	"strings"
)

// SelectionMode controls how selection operations behave.
type SelectionMode int

const (
	// SelectionNone disables selection; every mutating call is a no-op.
	SelectionNone SelectionMode = iota
	// SelectionBiState is plain set membership with no propagation.
	SelectionBiState
	// SelectionCascading propagates selection to descendants and
	// recomputes ancestors as selected or indeterminate.
	SelectionCascading
)

func (m SelectionMode) String() string {
	switch m {
	case SelectionNone:
		return "none"
	case SelectionBiState:
		return "bistate"
	case SelectionCascading:
		return "cascading"
	default:
		return fmt.Sprintf("SelectionMode(%d)", int(m))
	}
}

// ParseSelectionMode accepts the String forms case-insensitively, plus the
// spellings "bi-state", "bi_state" and an empty string for none.
func ParseSelectionMode(s string) (SelectionMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return SelectionNone, nil
	case "bistate", "bi-state", "bi_state":
		return SelectionBiState, nil
	case "cascading", "cascade":
		return SelectionCascading, nil
	default:
		return SelectionNone, fmt.Errorf("unknown selection mode %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (m SelectionMode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *SelectionMode) UnmarshalText(b []byte) error {
	parsed, err := ParseSelectionMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
