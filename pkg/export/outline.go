// Package export renders a tree's checkbox state as a Markdown checklist or
// as an SVG/PNG outline image.
package export

import (
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// CheckState is the tri-state checkbox shown for a node.
type CheckState int

const (
	Unchecked CheckState = iota
	Partial
	Checked
)

// Marker returns the Markdown task-list marker for the state.
func (c CheckState) Marker() string {
	switch c {
	case Checked:
		return "[x]"
	case Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

// Row is one node of an exported outline.
type Row struct {
	ID          string
	Label       string
	Level       int
	State       CheckState
	Expanded    bool
	HasChildren bool
	Disabled    bool
	Active      bool
	// Parent is the index of the parent row, or -1 for roots and for rows
	// whose parent was filtered out.
	Parent int
}

// Rows flattens t in tree order. With visibleOnly set, only nodes in the
// visible list are kept.
func Rows(t *tree.Tree, visibleOnly bool) []Row {
	nodes := t.Nodes()
	if visibleOnly {
		nodes = t.VisibleNodes()
	}
	pos := make(map[*tree.Node]int, len(nodes))
	rows := make([]Row, 0, len(nodes))
	active := t.ActiveNode()
	for _, n := range nodes {
		r := Row{
			ID:          n.ID(),
			Label:       n.Label(),
			Level:       n.Level(),
			State:       stateOf(n),
			Expanded:    n.Expanded(),
			HasChildren: n.HasChildren(),
			Disabled:    n.Disabled(),
			Active:      n == active,
			Parent:      -1,
		}
		if r.Label == "" {
			r.Label = r.ID
		}
		if p, ok := pos[n.Parent()]; ok && n.Parent() != nil {
			r.Parent = p
		}
		pos[n] = len(rows)
		rows = append(rows, r)
	}
	return rows
}

func stateOf(n *tree.Node) CheckState {
	switch {
	case n.Selected():
		return Checked
	case n.Indeterminate():
		return Partial
	default:
		return Unchecked
	}
}
