// Package state captures and restores the expansion, selection and active
// node of a tree across sessions.
package state

import (
	"time"

	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// Version is the current schema version for saved snapshots.
const Version = 1

// Snapshot is the persisted view state of one tree.
//
// File format (JSON):
//
//	{
//	  "version": 1,
//	  "mode": "cascading",
//	  "expanded": ["A", "C"],
//	  "selected": ["D"],
//	  "active": "D"
//	}
//
// IDs that no longer exist when the snapshot is applied are ignored.
type Snapshot struct {
	Version  int       `json:"version"`
	Mode     string    `json:"mode,omitempty"`
	Expanded []string  `json:"expanded"`
	Selected []string  `json:"selected"`
	Active   string    `json:"active,omitempty"`
	SavedAt  time.Time `json:"saved_at,omitempty"`
}

// Capture records the tree's current view state. Expanded and selected
// IDs are listed in tree order.
func Capture(t *tree.Tree) *Snapshot {
	snap := &Snapshot{
		Version:  Version,
		Mode:     t.SelectionMode().String(),
		Expanded: []string{},
		Selected: []string{},
		SavedAt:  time.Now().UTC(),
	}
	for _, n := range t.Nodes() {
		if n.Expanded() && !n.Collapsing() {
			snap.Expanded = append(snap.Expanded, n.ID())
		}
		if n.Selected() {
			snap.Selected = append(snap.Selected, n.ID())
		}
	}
	if a := t.ActiveNode(); a != nil {
		snap.Active = a.ID()
	}
	return snap
}

// Apply restores snap onto t without raising cancelable events. The mode is
// applied first because changing it clears the selection. Nodes not listed
// in Expanded are collapsed.
func Apply(t *tree.Tree, snap *Snapshot) {
	if snap == nil {
		return
	}
	defer metrics.Timer(metrics.StateApply)()
	if snap.Mode != "" {
		if mode, err := tree.ParseSelectionMode(snap.Mode); err == nil && mode != t.SelectionMode() {
			t.SetSelectionMode(mode)
		} else if err != nil {
			debug.Log("state: ignoring unknown mode %q", snap.Mode)
		}
	}

	expanded := make(map[string]bool, len(snap.Expanded))
	for _, id := range snap.Expanded {
		expanded[id] = true
	}
	for _, n := range t.Nodes() {
		n.SetExpanded(expanded[n.ID()])
	}

	selected := lookup(t, snap.Selected)
	if len(selected) == 0 {
		_ = t.Selection().DeselectNodesSilently()
	} else {
		_ = t.Selection().SelectNodesSilently(selected, true)
	}

	if snap.Active != "" {
		if n := t.NodeByID(snap.Active); n != nil {
			t.SetActiveNode(n)
		}
	}
	debug.Log("state: applied %d expanded, %d selected", len(snap.Expanded), len(selected))
}

func lookup(t *tree.Tree, ids []string) []*tree.Node {
	nodes := make([]*tree.Node, 0, len(ids))
	for _, id := range ids {
		if n := t.NodeByID(id); n != nil {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
