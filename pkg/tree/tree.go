package tree

import (
	"reflect"

	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// Option configures a Tree.
type Option func(*Tree)

// WithSelectionMode sets the initial selection mode.
func WithSelectionMode(m SelectionMode) Option {
	return func(t *Tree) { t.mode = m }
}

// WithSingleBranchExpand makes expanding a node collapse its expanded
// siblings.
func WithSingleBranchExpand(v bool) Option {
	return func(t *Tree) { t.singleBranchExpand = v }
}

// WithToggleNodeOnClick makes Node.Click toggle expansion.
func WithToggleNodeOnClick(v bool) Option {
	return func(t *Tree) { t.toggleNodeOnClick = v }
}

// WithAnimation makes collapses wait for Node.FinishCollapse.
func WithAnimation(v bool) Option {
	return func(t *Tree) { t.animated = v }
}

// WithScheduler replaces the default QueueScheduler.
func WithScheduler(s Scheduler) Option {
	return func(t *Tree) {
		if s != nil {
			t.scheduler = s
		}
	}
}

// Tree is the facade over the selection, expansion and navigation engines.
type Tree struct {
	mode               SelectionMode
	singleBranchExpand bool
	toggleNodeOnClick  bool
	animated           bool
	scheduler          Scheduler

	roots []*Node
	nodes []*Node
	byID  map[string]*Node

	selection  *SelectionEngine
	expansion  *ExpansionRegistry
	navigation *NavigationEngine

	nodeSubs []func()

	// NodeSelection fires before a selection change commits. Handlers may
	// cancel it or replace NewSelection.
	NodeSelection Emitter[*SelectionEvent]
	// NodeExpanding and NodeCollapsing fire before a user-driven toggle and
	// may cancel it.
	NodeExpanding  Emitter[*ToggleEvent]
	NodeCollapsing Emitter[*ToggleEvent]
	NodeExpanded   Emitter[*Node]
	NodeCollapsed  Emitter[*Node]
	// ActiveNodeChanged carries the new active node, or nil.
	ActiveNodeChanged Emitter[*Node]
	DisabledChange    Emitter[*Node]
	StructureChanged  Emitter[struct{}]
}

// New returns an empty tree with its engines wired.
func New(opts ...Option) *Tree {
	t := &Tree{
		mode:      SelectionNone,
		scheduler: NewQueueScheduler(),
		byID:      make(map[string]*Node),
	}
	for _, opt := range opts {
		opt(t)
	}
	t.selection = NewSelectionEngine()
	t.expansion = NewExpansionRegistry()
	t.navigation = NewNavigationEngine()
	t.selection.Register(t)
	t.expansion.Register(t)
	t.navigation.Register(t)
	return t
}

func (t *Tree) Selection() *SelectionEngine { return t.selection }
func (t *Tree) Expansion() *ExpansionRegistry { return t.expansion }
func (t *Tree) Navigation() *NavigationEngine { return t.navigation }
func (t *Tree) Scheduler() Scheduler { return t.scheduler }

func (t *Tree) SelectionMode() SelectionMode { return t.mode }

// SetSelectionMode switches modes and clears the current selection.
func (t *Tree) SetSelectionMode(m SelectionMode) {
	if t.mode == m {
		return
	}
	debug.Log("tree: selection mode %s -> %s", t.mode, m)
	old := t.selection.SelectedNodes()
	t.selection.reset()
	t.mode = m
	t.selection.emitSelectedChange(old)
}

func (t *Tree) SingleBranchExpand() bool { return t.singleBranchExpand }
func (t *Tree) SetSingleBranchExpand(v bool) { t.singleBranchExpand = v }
func (t *Tree) ToggleNodeOnClick() bool { return t.toggleNodeOnClick }
func (t *Tree) SetToggleNodeOnClick(v bool) { t.toggleNodeOnClick = v }
func (t *Tree) Animated() bool { return t.animated }
func (t *Tree) SetAnimated(v bool) { t.animated = v }

// Nodes returns every attached node in depth-first document order.
func (t *Tree) Nodes() []*Node {
	out := make([]*Node, len(t.nodes))
	copy(out, t.nodes)
	return out
}

// Len returns the number of attached nodes.
func (t *Tree) Len() int { return len(t.nodes) }

// RootNodes returns the level-0 nodes.
func (t *Tree) RootNodes() []*Node {
	out := make([]*Node, len(t.roots))
	copy(out, t.roots)
	return out
}

// NodeByID returns the attached node with the given ID, or nil.
func (t *Tree) NodeByID(id string) *Node {
	return t.byID[id]
}

// FindNodes returns the nodes for which comparer(term, node) is true. A nil
// comparer matches nodes whose Data deep-equals term. The result is nil when
// nothing matches.
func (t *Tree) FindNodes(term any, comparer func(term any, n *Node) bool) []*Node {
	if comparer == nil {
		comparer = func(term any, n *Node) bool {
			return reflect.DeepEqual(n.data, term)
		}
	}
	var out []*Node
	for _, n := range t.nodes {
		if comparer(term, n) {
			out = append(out, n)
		}
	}
	return out
}

// SetRoots replaces the tree's hierarchy. Nodes may be freshly built or
// already attached to this tree; nodes that drop out are detached and purged
// from every engine.
func (t *Tree) SetRoots(roots ...*Node) error {
	for _, r := range roots {
		if r == nil {
			return opError("set roots", ErrInvalidNode)
		}
	}
	return t.rebuild("set roots", roots)
}

// Build replaces the hierarchy with nodes built from specs.
func (t *Tree) Build(specs []model.NodeSpec) error {
	roots := make([]*Node, 0, len(specs))
	for i := range specs {
		roots = append(roots, nodeFromSpec(&specs[i]))
	}
	return t.rebuild("build", roots)
}

func nodeFromSpec(spec *model.NodeSpec) *Node {
	n := NewNode(spec.ID, spec.DisplayLabel())
	if spec.Data != nil {
		n.data = spec.Data
	}
	n.disabled = spec.Disabled
	n.initSelected = spec.Selected
	n.initExpanded = spec.Expanded
	for i := range spec.Children {
		child := nodeFromSpec(&spec.Children[i])
		child.parent = n
		n.children = append(n.children, child)
	}
	return n
}

// AddChild appends child under parent, or as a new root when parent is nil.
func (t *Tree) AddChild(parent, child *Node) error {
	if child == nil {
		return opError("add child", ErrInvalidNode)
	}
	if child.tree != nil && child.tree != t {
		return opError("add child", ErrForeignNode)
	}
	if child.tree == t {
		return opError("add child", ErrDuplicateID)
	}
	if parent != nil && parent.tree != t {
		return opError("add child", ErrDetachedParent)
	}
	for p := parent; p != nil; p = p.parent {
		if p == child {
			return opError("add child", ErrInvalidNode)
		}
	}

	roots := t.roots
	if parent == nil {
		roots = append(t.RootNodes(), child)
	} else {
		parent.children = append(parent.children, child)
		child.parent = parent
	}
	if err := t.rebuild("add child", roots); err != nil {
		if parent != nil {
			parent.children = parent.children[:len(parent.children)-1]
			child.parent = nil
		}
		return err
	}
	if t.mode == SelectionCascading && parent != nil {
		t.selection.refreshAncestorsLater(parent)
	}
	return nil
}

// RemoveNode detaches n and its subtree.
func (t *Tree) RemoveNode(n *Node) error {
	if n == nil || n.tree != t {
		return opError("remove node", ErrInvalidNode)
	}
	t.selection.EnsureStateOnNodeDelete(n)

	roots := t.RootNodes()
	if p := n.parent; p != nil {
		p.children = removeNode(p.children, n)
	} else {
		roots = removeNode(roots, n)
	}
	n.parent = nil
	return t.rebuild("remove node", roots)
}

func removeNode(list []*Node, n *Node) []*Node {
	out := list[:0:0]
	for _, m := range list {
		if m != n {
			out = append(out, m)
		}
	}
	return out
}

// rebuild re-flattens the hierarchy under roots and resynchronizes the
// engines with it.
func (t *Tree) rebuild(op string, roots []*Node) error {
	defer debug.Trace("tree.rebuild")()

	var flat []*Node
	byID := make(map[string]*Node)
	seen := make(map[*Node]struct{})
	var walk func(n *Node) error
	walk = func(n *Node) error {
		if _, dup := seen[n]; dup {
			return opError(op, ErrInvalidNode)
		}
		if n.tree != nil && n.tree != t {
			return opError(op, ErrForeignNode)
		}
		if _, dup := byID[n.id]; dup {
			return opError(op, ErrDuplicateID)
		}
		seen[n] = struct{}{}
		byID[n.id] = n
		flat = append(flat, n)
		for _, c := range n.children {
			if c == nil {
				return opError(op, ErrInvalidNode)
			}
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	for _, r := range roots {
		if err := walk(r); err != nil {
			return err
		}
	}

	// Detach nodes that dropped out.
	for _, old := range t.nodes {
		if _, kept := seen[old]; kept {
			continue
		}
		t.selection.purge(old)
		t.expansion.purge(old)
		t.navigation.purge(old)
		old.tree = nil
		old.index = -1
		old.level = 0
	}
	for _, unsub := range t.nodeSubs {
		unsub()
	}
	t.nodeSubs = t.nodeSubs[:0]

	t.roots = append([]*Node(nil), roots...)
	t.nodes = flat
	t.byID = byID

	var fresh []*Node
	var setLevels func(n, parent *Node, level int)
	setLevels = func(n, parent *Node, level int) {
		n.parent = parent
		n.level = level
		for _, c := range n.children {
			setLevels(c, n, level+1)
		}
	}
	for _, r := range t.roots {
		setLevels(r, nil, 0)
	}
	for i, n := range flat {
		n.index = i
		if n.tree == nil {
			n.tree = t
			fresh = append(fresh, n)
		}
		node := n
		t.nodeSubs = append(t.nodeSubs, n.ExpandedChange.Subscribe(func(expanded bool) {
			t.navigation.UpdateVisibleCache(node, expanded)
		}))
	}

	var toSelect []*Node
	for _, n := range fresh {
		if n.initExpanded {
			_ = t.expansion.Expand(n)
		}
		if n.initSelected {
			toSelect = append(toSelect, n)
		}
		n.initExpanded, n.initSelected = false, false
	}
	if len(toSelect) > 0 && t.mode != SelectionNone {
		t.scheduler.Defer(func() {
			live := t.selection.owned(toSelect)
			if len(live) > 0 {
				_ = t.selection.SelectNodesSilently(live, false)
			}
		})
	}

	debug.Log("tree: %s: %d nodes (%d new)", op, len(flat), len(fresh))
	t.StructureChanged.Emit(struct{}{})
	t.navigation.InitInvisibleCache()
	return nil
}

// SetActiveNode activates n without moving keyboard focus and expands its
// ancestors so it becomes visible.
func (t *Tree) SetActiveNode(n *Node) {
	if n != nil && n.tree != t {
		return
	}
	t.navigation.SetActive(n)
	if n == nil {
		return
	}
	for p := n.parent; p != nil; p = p.parent {
		if !p.Expanded() {
			p.SetExpanded(true)
		}
	}
}

// ActiveNode returns the active node, or nil.
func (t *Tree) ActiveNode() *Node { return t.navigation.ActiveNode() }

// FocusedNode returns the focused node, or nil.
func (t *Tree) FocusedNode() *Node { return t.navigation.FocusedNode() }

// VisibleNodes returns the navigable nodes in document order.
func (t *Tree) VisibleNodes() []*Node { return t.navigation.VisibleChildren() }

// ExpandAll expands nodes, or every node when called without arguments.
func (t *Tree) ExpandAll(nodes ...*Node) {
	if len(nodes) == 0 {
		nodes = t.Nodes()
	}
	for _, n := range nodes {
		if n != nil && n.tree == t {
			n.SetExpanded(true)
		}
	}
}

// CollapseAll collapses nodes, or every node when called without arguments.
func (t *Tree) CollapseAll(nodes ...*Node) {
	if len(nodes) == 0 {
		nodes = t.Nodes()
	}
	for _, n := range nodes {
		if n != nil && n.tree == t {
			n.SetExpanded(false)
		}
	}
}

// DeselectAll deselects nodes silently, or everything when called without
// arguments.
func (t *Tree) DeselectAll(nodes ...*Node) {
	_ = t.selection.DeselectNodesSilently(nodes...)
}

// HandleKey forwards a key event to the navigation engine.
func (t *Tree) HandleKey(ev *KeyEvent) {
	t.navigation.HandleKey(ev)
}

// Flush runs deferred continuations when the scheduler supports draining and
// returns how many ran.
func (t *Tree) Flush() int {
	if f, ok := t.scheduler.(Flusher); ok {
		return f.Flush()
	}
	return 0
}

// Reset clears selection, expansion, focus and caches while keeping the
// hierarchy.
func (t *Tree) Reset() {
	_ = t.selection.DeselectNodesSilently()
	for _, n := range t.expansion.ExpandedNodes() {
		_ = t.expansion.Collapse(n)
	}
	t.navigation.reset()
	t.navigation.InitInvisibleCache()
}

func logf(format string, args ...any) {
	debug.Log("tree: "+format, args...)
}
