package tree

// SelectionEvent is emitted on Tree.NodeSelection before a selection change
// commits. Handlers may set Cancel to veto it, or replace NewSelection to
// commit a different set (re-cascaded in cascading mode).
type SelectionEvent struct {
	OldSelection []*Node
	NewSelection []*Node
	Added        []*Node
	Removed      []*Node
	// Source is the input that caused the change, such as a *KeyEvent.
	Source any
	Cancel bool
}

// SelectionEngine owns the selected and indeterminate sets of a tree.
type SelectionEngine struct {
	tree          *Tree
	selected      *nodeSet
	indeterminate *nodeSet

	// Working sets of the cascade computation.
	toBeSelected      *nodeSet
	toBeIndeterminate *nodeSet
}

// NewSelectionEngine returns an engine with empty sets. It is inert until
// registered with a tree.
func NewSelectionEngine() *SelectionEngine {
	return &SelectionEngine{
		selected:      newNodeSet(),
		indeterminate: newNodeSet(),
	}
}

// Register binds the engine to t.
func (s *SelectionEngine) Register(t *Tree) {
	s.tree = t
}

func (s *SelectionEngine) mode() SelectionMode {
	if s.tree == nil {
		return SelectionNone
	}
	return s.tree.mode
}

func (s *SelectionEngine) owns(n *Node) bool {
	return n != nil && s.tree != nil && n.tree == s.tree
}

// owned filters nodes down to members of this engine's tree.
func (s *SelectionEngine) owned(nodes []*Node) []*Node {
	out := make([]*Node, 0, len(nodes))
	for _, n := range nodes {
		if s.owns(n) {
			out = append(out, n)
		} else if n != nil {
			logf("ignoring foreign node %s", n)
		}
	}
	return out
}

func (s *SelectionEngine) IsNodeSelected(n *Node) bool {
	return s.selected.has(n)
}

func (s *SelectionEngine) IsNodeIndeterminate(n *Node) bool {
	return s.indeterminate.has(n)
}

// SelectedNodes returns the selected nodes in insertion order.
func (s *SelectionEngine) SelectedNodes() []*Node {
	return s.selected.slice()
}

// IndeterminateNodes returns the indeterminate nodes in insertion order.
func (s *SelectionEngine) IndeterminateNodes() []*Node {
	return s.indeterminate.slice()
}

// SelectNode adds n to the selection through a cancelable event.
func (s *SelectionEngine) SelectNode(n *Node, source any) error {
	if n == nil {
		return opError("select node", ErrInvalidNode)
	}
	if s.mode() == SelectionNone || !s.owns(n) {
		return nil
	}
	next := append(s.selected.slice(), n)
	s.emitSelectionEvent(next, []*Node{n}, nil, source)
	return nil
}

// DeselectNode removes n from the selection through a cancelable event.
func (s *SelectionEngine) DeselectNode(n *Node, source any) error {
	if n == nil {
		return opError("deselect node", ErrInvalidNode)
	}
	if s.mode() == SelectionNone || !s.owns(n) {
		return nil
	}
	next := without(s.selected.slice(), []*Node{n})
	s.emitSelectionEvent(next, nil, []*Node{n}, source)
	return nil
}

// SelectRange selects every node between the most recently selected node and
// n in document order, both ends included. With nothing selected it behaves
// like SelectNode.
func (s *SelectionEngine) SelectRange(n *Node, source any) error {
	if n == nil {
		return opError("select range", ErrInvalidNode)
	}
	if s.mode() == SelectionNone || !s.owns(n) {
		return nil
	}
	anchor := s.selected.last()
	if anchor == nil {
		return s.SelectNode(n, source)
	}
	lo, hi := anchor.index, n.index
	if lo > hi {
		lo, hi = hi, lo
	}
	span := s.tree.nodes[lo : hi+1]
	var added []*Node
	for _, m := range span {
		if !s.selected.has(m) {
			added = append(added, m)
		}
	}
	next := append(s.selected.slice(), added...)
	s.emitSelectionEvent(next, added, nil, source)
	return nil
}

// SelectNodesSilently adds nodes without a selection event, replacing the
// current selection when clearExisting is set. Membership flips still fire
// SelectedChange.
func (s *SelectionEngine) SelectNodesSilently(nodes []*Node, clearExisting bool) error {
	if err := checkNodes("select nodes", nodes); err != nil {
		return err
	}
	if s.mode() == SelectionNone {
		return nil
	}
	nodes = s.owned(nodes)
	if s.mode() == SelectionCascading {
		s.cascadeSelectSilently(nodes, clearExisting)
		return nil
	}
	old := s.selected.slice()
	if clearExisting {
		s.selected.clear()
	}
	for _, n := range nodes {
		s.selected.add(n)
	}
	s.emitSelectedChange(old)
	return nil
}

// DeselectNodesSilently removes nodes without a selection event. Called with
// no nodes it clears the selection entirely.
func (s *SelectionEngine) DeselectNodesSilently(nodes ...*Node) error {
	old := s.selected.slice()
	if len(nodes) == 0 {
		s.reset()
		s.emitSelectedChange(old)
		return nil
	}
	for _, n := range nodes {
		if n == nil {
			return opError("deselect nodes", ErrInvalidNode)
		}
	}
	if s.mode() == SelectionNone {
		return nil
	}
	nodes = s.owned(nodes)
	if s.mode() == SelectionCascading {
		s.calculateNewState(old, nil, nodes)
		s.commit()
	} else {
		for _, n := range nodes {
			s.selected.delete(n)
		}
	}
	s.emitSelectedChange(old)
	return nil
}

// EnsureStateOnNodeDelete schedules the cascading fix-up for a node that is
// about to be removed: its former parent chain is recomputed from the
// remaining children once the removal has happened.
func (s *SelectionEngine) EnsureStateOnNodeDelete(n *Node) {
	if n == nil || s.mode() != SelectionCascading || !s.owns(n) {
		return
	}
	parent := n.parent
	if parent == nil {
		return
	}
	s.refreshAncestorsLater(parent)
}

// refreshAncestorsLater recomputes start and its ancestors on the next
// scheduler turn.
func (s *SelectionEngine) refreshAncestorsLater(start *Node) {
	s.tree.scheduler.Defer(func() {
		if s.mode() != SelectionCascading || !s.owns(start) {
			return
		}
		old := s.selected.slice()
		s.toBeSelected = s.selected.clone()
		s.toBeIndeterminate = s.indeterminate.clone()
		s.handleParentSelectionState(start)
		s.commit()
		s.emitSelectedChange(old)
	})
}

// Clear drops the whole selection silently.
func (s *SelectionEngine) Clear() {
	_ = s.DeselectNodesSilently()
}

func (s *SelectionEngine) reset() {
	s.selected.clear()
	s.indeterminate.clear()
}

// purge drops a detached node. A selected node is told it lost its
// selection.
func (s *SelectionEngine) purge(n *Node) {
	wasSelected := s.selected.has(n)
	s.selected.delete(n)
	s.indeterminate.delete(n)
	if wasSelected {
		n.SelectedChange.Emit(false)
	}
}

func (s *SelectionEngine) emitSelectionEvent(next, added, removed []*Node, source any) {
	if s.mode() == SelectionCascading {
		s.emitCascadeSelectionEvent(next, source)
		return
	}
	old := s.selected.slice()
	if sameMembers(old, next) {
		return
	}
	ev := &SelectionEvent{
		OldSelection: old,
		NewSelection: next,
		Added:        added,
		Removed:      removed,
		Source:       source,
	}
	s.tree.NodeSelection.Emit(ev)
	if ev.Cancel {
		logf("selection change canceled (added %v, removed %v)", ids(ev.Added), ids(ev.Removed))
		return
	}
	s.commitSelection(ev.NewSelection)
}

// commitSelection replaces the selection with next after a handler had its
// say. Nil or foreign nodes a handler may have slipped in are dropped.
func (s *SelectionEngine) commitSelection(next []*Node) {
	old := s.selected.slice()
	s.selected.clear()
	for _, n := range s.owned(next) {
		s.selected.add(n)
	}
	s.emitSelectedChange(old)
}

func (s *SelectionEngine) emitCascadeSelectionEvent(next []*Node, source any) {
	old := s.selected.slice()
	if sameMembers(old, next) {
		return
	}
	added := without(next, old)
	removed := without(old, next)
	s.calculateNewState(old, added, removed)
	cascaded := s.toBeSelected.slice()
	if sameMembers(old, cascaded) && sameMembers(s.indeterminate.order, s.toBeIndeterminate.order) {
		return
	}

	added, removed = without(cascaded, old), without(old, cascaded)
	ev := &SelectionEvent{
		OldSelection: old,
		NewSelection: cascaded,
		Added:        added,
		Removed:      removed,
		Source:       source,
	}
	// Handlers may call back into the engine, which reuses the working sets.
	toSelect, toIndeterminate := s.toBeSelected, s.toBeIndeterminate
	s.toBeSelected, s.toBeIndeterminate = nil, nil
	s.tree.NodeSelection.Emit(ev)
	if ev.Cancel {
		logf("cascading selection change canceled (added %v, removed %v)", ids(ev.Added), ids(ev.Removed))
		return
	}
	if sameMembers(cascaded, ev.NewSelection) {
		current := s.selected.slice()
		if sameMembers(current, old) {
			s.toBeSelected, s.toBeIndeterminate = toSelect, toIndeterminate
		} else {
			// A handler changed the selection meanwhile; apply this change on top.
			s.calculateNewState(current, added, removed)
		}
		s.commit()
		s.emitSelectedChange(current)
		return
	}
	// A handler rewrote the selection; cascade it from scratch.
	s.cascadeSelectSilently(s.owned(ev.NewSelection), true)
}

func (s *SelectionEngine) cascadeSelectSilently(nodes []*Node, clearExisting bool) {
	old := s.selected.slice()
	if clearExisting {
		s.reset()
		s.calculateNewState(nil, nodes, nil)
	} else {
		s.calculateNewState(old, without(nodes, old), nil)
	}
	s.commit()
	s.emitSelectedChange(old)
}

// commit moves the working sets into place.
func (s *SelectionEngine) commit() {
	s.selected = s.toBeSelected
	s.indeterminate = s.toBeIndeterminate
	s.toBeSelected, s.toBeIndeterminate = nil, nil
}

// calculateNewState fills the working sets: starting from base, removed
// subtrees are cleared, added subtrees are selected, and every parent of a
// touched node is recomputed up to the root.
func (s *SelectionEngine) calculateNewState(base, added, removed []*Node) {
	s.toBeSelected = newNodeSet(base...)
	s.toBeIndeterminate = s.indeterminate.clone()
	s.cascadeState(removed, false)
	s.cascadeState(added, true)
}

func (s *SelectionEngine) cascadeState(nodes []*Node, selected bool) {
	if len(nodes) == 0 {
		return
	}
	collection := newNodeSet()
	parents := newNodeSet()
	for _, n := range nodes {
		collection.add(n)
		for _, d := range n.AllDescendants() {
			collection.add(d)
		}
		if n.parent != nil {
			parents.add(n.parent)
		}
	}
	for _, n := range collection.order {
		if selected {
			s.toBeSelected.add(n)
		} else {
			s.toBeSelected.delete(n)
		}
		s.toBeIndeterminate.delete(n)
	}
	for _, p := range parents.order {
		s.handleParentSelectionState(p)
	}
}

func (s *SelectionEngine) handleParentSelectionState(n *Node) {
	for p := n; p != nil; p = p.parent {
		s.handleNodeSelectionState(p)
	}
}

func (s *SelectionEngine) handleNodeSelectionState(n *Node) {
	if len(n.children) == 0 {
		// Children vanished: keep whatever the node had.
		if s.selected.has(n) {
			s.toBeSelected.add(n)
		} else {
			s.toBeSelected.delete(n)
		}
		s.toBeIndeterminate.delete(n)
		return
	}
	all, some := true, false
	for _, c := range n.children {
		switch {
		case s.toBeSelected.has(c):
			some = true
		case s.toBeIndeterminate.has(c):
			some = true
			all = false
		default:
			all = false
		}
	}
	switch {
	case all:
		s.toBeSelected.add(n)
		s.toBeIndeterminate.delete(n)
	case some:
		s.toBeIndeterminate.add(n)
		s.toBeSelected.delete(n)
	default:
		s.toBeSelected.delete(n)
		s.toBeIndeterminate.delete(n)
	}
}

// emitSelectedChange fires SelectedChange on every node whose membership
// differs from old.
func (s *SelectionEngine) emitSelectedChange(old []*Node) {
	before := newNodeSet(old...)
	for _, n := range s.selected.slice() {
		if !before.has(n) {
			n.SelectedChange.Emit(true)
		}
	}
	for _, n := range old {
		if !s.selected.has(n) {
			n.SelectedChange.Emit(false)
		}
	}
}
