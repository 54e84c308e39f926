package tree

// NavigationEngine tracks focus and the active node, caches the list of
// navigable nodes and translates key events into tree operations.
type NavigationEngine struct {
	tree *Tree

	focused     *Node
	lastFocused *Node
	active      *Node

	visible   []*Node
	invisible map[*Node]struct{}
	disabled  map[*Node]struct{}
	dirty     bool
	scheduled bool
	// recomputes counts visible-list rebuilds.
	recomputes int

	pendingRepeat *KeyEvent
}

func NewNavigationEngine() *NavigationEngine {
	return &NavigationEngine{
		invisible: make(map[*Node]struct{}),
		disabled:  make(map[*Node]struct{}),
	}
}

// Register binds the engine to t.
func (e *NavigationEngine) Register(t *Tree) {
	e.tree = t
}

func (e *NavigationEngine) FocusedNode() *Node     { return e.focused }
func (e *NavigationEngine) LastFocusedNode() *Node { return e.lastFocused }
func (e *NavigationEngine) ActiveNode() *Node      { return e.active }

// Recomputes returns how many times the visible list has been rebuilt.
func (e *NavigationEngine) Recomputes() int { return e.recomputes }

// SetFocused moves the tab stop to n and runs its focus handler. nil clears
// focus.
func (e *NavigationEngine) SetFocused(n *Node) {
	if e.focused == n {
		return
	}
	e.lastFocused = e.focused
	if e.lastFocused != nil {
		e.lastFocused.tabIndex = -1
	}
	e.focused = n
	if n != nil {
		n.tabIndex = 0
		if n.onFocus != nil {
			n.onFocus()
		}
	}
}

// SetActive updates the active node and emits ActiveNodeChanged.
func (e *NavigationEngine) SetActive(n *Node) {
	if e.active == n {
		return
	}
	e.active = n
	if e.tree != nil {
		e.tree.ActiveNodeChanged.Emit(n)
	}
}

func (e *NavigationEngine) SetFocusedAndActive(n *Node, alsoActivate bool) {
	e.SetFocused(n)
	if alsoActivate {
		e.SetActive(n)
	}
}

// VisibleChildren returns the nodes that are neither hidden under a collapsed
// ancestor nor disabled, in document order.
func (e *NavigationEngine) VisibleChildren() []*Node {
	if e.dirty {
		e.RecomputeVisible()
	}
	out := make([]*Node, len(e.visible))
	copy(out, e.visible)
	return out
}

// RecomputeVisible rebuilds the visible list now.
func (e *NavigationEngine) RecomputeVisible() {
	e.dirty = false
	e.recomputes++
	e.visible = e.visible[:0]
	if e.tree == nil {
		return
	}
	for _, n := range e.tree.nodes {
		if _, hidden := e.invisible[n]; hidden {
			continue
		}
		if _, off := e.disabled[n]; off {
			continue
		}
		e.visible = append(e.visible, n)
	}
}

// markDirty invalidates the visible list and schedules a single recompute
// no matter how many mutations happen before the scheduler runs.
func (e *NavigationEngine) markDirty() {
	e.dirty = true
	if e.scheduled || e.tree == nil {
		return
	}
	e.scheduled = true
	e.tree.scheduler.Defer(func() {
		e.scheduled = false
		if e.dirty {
			e.RecomputeVisible()
		}
	})
}

// InitInvisibleCache rebuilds the hidden and disabled sets from scratch.
func (e *NavigationEngine) InitInvisibleCache() {
	e.invisible = make(map[*Node]struct{})
	e.disabled = make(map[*Node]struct{})
	if e.tree != nil {
		for _, n := range e.tree.nodes {
			if n.disabled {
				e.disabled[n] = struct{}{}
			}
		}
		for _, r := range e.tree.roots {
			e.updateVisible(r, r.Expanded())
		}
	}
	e.markDirty()
}

// UpdateVisibleCache reflects an expansion change of n in the hidden set.
func (e *NavigationEngine) UpdateVisibleCache(n *Node, expanded bool) {
	e.updateVisible(n, expanded)
	e.markDirty()
}

func (e *NavigationEngine) updateVisible(n *Node, expanded bool) {
	if !expanded {
		for _, d := range n.AllDescendants() {
			e.invisible[d] = struct{}{}
		}
		return
	}
	// Children of a node under a collapsed ancestor stay hidden.
	if _, hidden := e.invisible[n]; hidden {
		return
	}
	for _, c := range n.children {
		delete(e.invisible, c)
		e.updateVisible(c, c.Expanded() && !c.Collapsing())
	}
}

// UpdateDisabledCache syncs n's disabled flag into the cache.
func (e *NavigationEngine) UpdateDisabledCache(n *Node) {
	if n.disabled {
		e.MarkDisabled(n)
	} else {
		e.MarkEnabled(n)
	}
}

func (e *NavigationEngine) MarkDisabled(n *Node) {
	e.disabled[n] = struct{}{}
	e.markDirty()
}

func (e *NavigationEngine) MarkEnabled(n *Node) {
	delete(e.disabled, n)
	e.markDirty()
}

func (e *NavigationEngine) purge(n *Node) {
	delete(e.invisible, n)
	delete(e.disabled, n)
	if e.lastFocused == n {
		e.lastFocused = nil
	}
	if e.focused == n {
		e.focused = nil
	}
	n.tabIndex = -1
	if e.active == n {
		e.SetActive(nil)
	}
	e.dirty = true
}

func (e *NavigationEngine) reset() {
	e.focused, e.lastFocused = nil, nil
	e.SetActive(nil)
	e.pendingRepeat = nil
	if e.tree != nil {
		for _, n := range e.tree.nodes {
			n.tabIndex = -1
		}
	}
}

// HandleKey processes a key event against the focused node. Navigation keys
// are marked consumed; repeated presses are coalesced into one step per
// scheduler turn using the latest event.
func (e *NavigationEngine) HandleKey(ev *KeyEvent) {
	if ev == nil || e.focused == nil {
		return
	}
	k := classifyKey(ev.Key)
	switch k {
	case navNone:
		return
	case navEnter:
		e.SetActive(e.focused)
		return
	}
	ev.PreventDefault()
	if !ev.Repeat {
		e.navigate(k, ev)
		return
	}
	first := e.pendingRepeat == nil
	e.pendingRepeat = ev
	if !first || e.tree == nil {
		return
	}
	e.tree.scheduler.Defer(func() {
		pending := e.pendingRepeat
		e.pendingRepeat = nil
		if pending != nil {
			e.navigate(classifyKey(pending.Key), pending)
		}
	})
}

func (e *NavigationEngine) navigate(k navKey, ev *KeyEvent) {
	f := e.focused
	if f == nil {
		return
	}
	switch k {
	case navHome:
		if vis := e.VisibleChildren(); len(vis) > 0 {
			e.SetFocusedAndActive(vis[0], true)
		}
	case navEnd:
		if vis := e.VisibleChildren(); len(vis) > 0 {
			e.SetFocusedAndActive(vis[len(vis)-1], true)
		}
	case navLeft:
		e.handleArrowLeft(f)
	case navRight:
		e.handleArrowRight(f)
	case navUp:
		e.handleUpDown(f, -1, ev.Ctrl)
	case navDown:
		e.handleUpDown(f, 1, ev.Ctrl)
	case navAsterisk:
		e.handleAsterisk(f)
	case navSpace:
		e.handleSpace(f, ev)
	}
}

func (e *NavigationEngine) handleArrowLeft(f *Node) {
	if f.Expanded() && !f.Collapsing() && f.HasChildren() {
		e.SetActive(f)
		f.Collapse()
		return
	}
	if p := f.parent; p != nil && !p.disabled {
		e.SetFocusedAndActive(p, true)
	}
}

func (e *NavigationEngine) handleArrowRight(f *Node) {
	if !f.HasChildren() {
		return
	}
	if !f.Expanded() {
		e.SetActive(f)
		f.Expand()
		return
	}
	if f.Collapsing() {
		f.Expand()
		return
	}
	for _, c := range f.children {
		if !c.disabled {
			e.SetFocusedAndActive(c, true)
			return
		}
	}
}

func (e *NavigationEngine) handleUpDown(f *Node, dir int, focusOnly bool) {
	next := e.visibleNeighbor(f, dir)
	if next == f {
		return
	}
	e.SetFocusedAndActive(next, !focusOnly)
}

// visibleNeighbor returns the visible node dir steps from n, or n itself at
// either edge.
func (e *NavigationEngine) visibleNeighbor(n *Node, dir int) *Node {
	vis := e.VisibleChildren()
	idx := -1
	for i, v := range vis {
		if v == n {
			idx = i
			break
		}
	}
	j := idx + dir
	if j < 0 || j >= len(vis) {
		return n
	}
	return vis[j]
}

func (e *NavigationEngine) handleAsterisk(f *Node) {
	var group []*Node
	if f.parent != nil {
		group = f.parent.children
	} else if e.tree != nil {
		group = e.tree.roots
	}
	for _, n := range append([]*Node(nil), group...) {
		if n.disabled || !n.HasChildren() {
			continue
		}
		if !n.Expanded() || n.Collapsing() {
			n.Expand()
		}
	}
}

func (e *NavigationEngine) handleSpace(f *Node, ev *KeyEvent) {
	if e.tree == nil || e.tree.mode == SelectionNone {
		return
	}
	e.SetActive(f)
	sel := e.tree.selection
	switch {
	case ev.Shift:
		_ = sel.SelectRange(f, ev)
	case f.Selected():
		_ = sel.DeselectNode(f, ev)
	default:
		_ = sel.SelectNode(f, ev)
	}
}
