package tree

import (
	"fmt"
	"strings"
)

// Node is one entry in a Tree. Nodes are created detached with NewNode, wired
// into a hierarchy with Add, and become live once attached through
// Tree.SetRoots or Tree.AddChild. Selection and expansion state of an attached
// node lives in the tree's engines; the node methods are thin views over them.
type Node struct {
	id    string
	label string
	data  any

	tree     *Tree
	parent   *Node
	children []*Node
	level    int
	index    int
	tabIndex int
	disabled bool

	// Recorded on detached nodes and applied on attach.
	initSelected bool
	initExpanded bool

	onFocus func()

	// SelectedChange fires when the node's membership in the selected set
	// flips.
	SelectedChange Emitter[bool]
	// ExpandedChange fires when the node enters or leaves the expanded set.
	ExpandedChange Emitter[bool]
}

// NewNode returns a detached node.
func NewNode(id, label string) *Node {
	return &Node{id: id, label: label, index: -1, tabIndex: -1}
}

// Add appends children to a detached node and returns n for chaining. On an
// attached node it routes each child through Tree.AddChild.
func (n *Node) Add(children ...*Node) *Node {
	for _, c := range children {
		if c == nil || c == n {
			continue
		}
		if n.tree != nil {
			if err := n.tree.AddChild(n, c); err != nil {
				logf("add child %q to %q: %v", c.id, n.id, err)
			}
			continue
		}
		c.parent = n
		n.children = append(n.children, c)
	}
	return n
}

// WithData sets the payload and returns n.
func (n *Node) WithData(v any) *Node {
	n.data = v
	return n
}

func (n *Node) ID() string { return n.id }
func (n *Node) Label() string { return n.label }
func (n *Node) SetLabel(s string) { n.label = s }
func (n *Node) Data() any { return n.data }
func (n *Node) SetData(v any) { n.data = v }

// Tree returns the tree the node is attached to, or nil.
func (n *Node) Tree() *Tree { return n.tree }

// Parent returns the parent node, or nil for roots.
func (n *Node) Parent() *Node { return n.parent }

// Children returns a copy of the direct children.
func (n *Node) Children() []*Node {
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	return out
}

func (n *Node) HasChildren() bool { return len(n.children) > 0 }

// AllDescendants returns every descendant in depth-first document order.
func (n *Node) AllDescendants() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(p *Node) {
		for _, c := range p.children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(n)
	return out
}

// Level is the depth of the node; roots are level 0.
func (n *Node) Level() int { return n.level }

// Index is the position of the node in Tree.Nodes, or -1 when detached.
func (n *Node) Index() int { return n.index }

// Path returns the ancestors from the root down to n, inclusive.
func (n *Node) Path() []*Node {
	var rev []*Node
	for p := n; p != nil; p = p.parent {
		rev = append(rev, p)
	}
	out := make([]*Node, len(rev))
	for i, p := range rev {
		out[len(rev)-1-i] = p
	}
	return out
}

// Siblings returns the other nodes that share n's parent (or the other roots).
func (n *Node) Siblings() []*Node {
	var group []*Node
	switch {
	case n.parent != nil:
		group = n.parent.children
	case n.tree != nil:
		group = n.tree.roots
	}
	var out []*Node
	for _, s := range group {
		if s != n && s.level == n.level {
			out = append(out, s)
		}
	}
	return out
}

func (n *Node) Disabled() bool { return n.disabled }

// SetDisabled updates the disabled flag and, on an attached node, the
// navigation caches.
func (n *Node) SetDisabled(v bool) {
	if n.disabled == v {
		return
	}
	n.disabled = v
	if n.tree != nil {
		n.tree.navigation.UpdateDisabledCache(n)
		n.tree.DisabledChange.Emit(n)
	}
}

func (n *Node) Selected() bool {
	if n.tree == nil {
		return n.initSelected
	}
	return n.tree.selection.IsNodeSelected(n)
}

// SetSelected is the binding path: it changes membership silently without a
// cancelable selection event.
func (n *Node) SetSelected(v bool) {
	if n.tree == nil {
		n.initSelected = v
		return
	}
	sel := n.tree.selection
	switch {
	case v && !sel.IsNodeSelected(n):
		_ = sel.SelectNodesSilently([]*Node{n}, false)
	case !v && sel.IsNodeSelected(n):
		_ = sel.DeselectNodesSilently(n)
	}
}

func (n *Node) Indeterminate() bool {
	return n.tree != nil && n.tree.selection.IsNodeIndeterminate(n)
}

func (n *Node) Expanded() bool {
	if n.tree == nil {
		return n.initExpanded
	}
	return n.tree.expansion.IsExpanded(n)
}

// SetExpanded is the binding path: it updates the registry without
// NodeExpanding/NodeCollapsing events.
func (n *Node) SetExpanded(v bool) {
	if n.tree == nil {
		n.initExpanded = v
		return
	}
	if v {
		_ = n.tree.expansion.Expand(n)
	} else {
		_ = n.tree.expansion.Collapse(n)
	}
}

func (n *Node) Collapsing() bool {
	return n.tree != nil && n.tree.expansion.IsCollapsing(n)
}

// Expand opens the node through the cancelable NodeExpanding event.
func (n *Node) Expand() {
	t := n.tree
	if t == nil {
		n.initExpanded = true
		return
	}
	if n.Expanded() && !n.Collapsing() {
		return
	}
	ev := &ToggleEvent{Node: n}
	t.NodeExpanding.Emit(ev)
	if ev.Cancel {
		logf("expand %q canceled", n.id)
		return
	}
	_ = t.expansion.Expand(n)
	t.navigation.UpdateVisibleCache(n, true)
	t.NodeExpanded.Emit(n)
}

// Collapse starts closing the node through the cancelable NodeCollapsing
// event. On a non-animated tree the collapse finishes immediately; otherwise
// the caller ends the transition with FinishCollapse.
func (n *Node) Collapse() {
	t := n.tree
	if t == nil {
		n.initExpanded = false
		return
	}
	if !n.Expanded() || n.Collapsing() {
		return
	}
	ev := &ToggleEvent{Node: n}
	t.NodeCollapsing.Emit(ev)
	if ev.Cancel {
		logf("collapse %q canceled", n.id)
		return
	}
	_ = t.expansion.Collapsing(n)
	t.navigation.UpdateVisibleCache(n, false)
	if !t.animated {
		n.FinishCollapse()
	}
}

// FinishCollapse completes a collapse transition. It does nothing unless the
// node is collapsing.
func (n *Node) FinishCollapse() {
	t := n.tree
	if t == nil || !t.expansion.IsCollapsing(n) {
		return
	}
	_ = t.expansion.Collapse(n)
	t.NodeCollapsed.Emit(n)
}

// Toggle collapses an expanded node and expands anything else.
func (n *Node) Toggle() {
	if n.Expanded() && !n.Collapsing() {
		n.Collapse()
		return
	}
	n.Expand()
}

func (n *Node) Active() bool {
	return n.tree != nil && n.tree.navigation.ActiveNode() == n
}

func (n *Node) Focused() bool {
	return n.tree != nil && n.tree.navigation.FocusedNode() == n
}

// TabIndex is 0 for the node that currently holds the tab stop and -1
// otherwise. Disabled nodes are never tab stops.
func (n *Node) TabIndex() int {
	if n.disabled {
		return -1
	}
	return n.tabIndex
}

// SetFocusHandler registers fn to run whenever the node receives focus.
func (n *Node) SetFocusHandler(fn func()) { n.onFocus = fn }

// Click focuses and activates the node, toggling it when the tree has
// ToggleNodeOnClick set.
func (n *Node) Click(source any) {
	t := n.tree
	if t == nil || n.disabled {
		return
	}
	t.navigation.SetFocusedAndActive(n, true)
	if t.toggleNodeOnClick {
		n.Toggle()
	}
}

// ClickSelector handles a click on the node's checkbox: shift extends a range,
// otherwise the node's selection toggles.
func (n *Node) ClickSelector(shift bool, source any) {
	t := n.tree
	if t == nil || n.disabled || t.mode == SelectionNone {
		return
	}
	sel := t.selection
	switch {
	case shift:
		_ = sel.SelectRange(n, source)
	case sel.IsNodeSelected(n):
		_ = sel.DeselectNode(n, source)
	default:
		_ = sel.SelectNode(n, source)
	}
}

func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s", n.id)
	if n.label != "" && n.label != n.id {
		fmt.Fprintf(&b, "(%s)", n.label)
	}
	return b.String()
}

// ToggleEvent is emitted before a node expands or collapses. Setting Cancel
// vetoes the change.
type ToggleEvent struct {
	Node   *Node
	Cancel bool
}

func ids(nodes []*Node) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.id
	}
	return out
}
