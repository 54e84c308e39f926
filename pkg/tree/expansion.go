package tree

// ExpansionRegistry owns the expanded and collapsing sets of a tree.
type ExpansionRegistry struct {
	tree       *Tree
	expanded   *nodeSet
	collapsing *nodeSet
}

func NewExpansionRegistry() *ExpansionRegistry {
	return &ExpansionRegistry{
		expanded:   newNodeSet(),
		collapsing: newNodeSet(),
	}
}

// Register binds the registry to t.
func (r *ExpansionRegistry) Register(t *Tree) {
	r.tree = t
}

func (r *ExpansionRegistry) owns(n *Node) bool {
	return r.tree != nil && n.tree == r.tree
}

func (r *ExpansionRegistry) IsExpanded(n *Node) bool   { return r.expanded.has(n) }
func (r *ExpansionRegistry) IsCollapsing(n *Node) bool { return r.collapsing.has(n) }

// ExpandedNodes returns the expanded nodes in the order they were expanded.
func (r *ExpansionRegistry) ExpandedNodes() []*Node { return r.expanded.slice() }

// CollapsingNodes returns nodes mid-way through a collapse.
func (r *ExpansionRegistry) CollapsingNodes() []*Node { return r.collapsing.slice() }

// Expand marks n expanded, cancelling any collapse in progress. Under
// single-branch expand the node's expanded siblings are collapsed.
func (r *ExpansionRegistry) Expand(n *Node) error {
	if n == nil {
		return opError("expand", ErrInvalidNode)
	}
	if !r.owns(n) {
		return nil
	}
	r.collapsing.delete(n)
	if r.expanded.has(n) {
		return nil
	}
	r.expanded.add(n)
	n.ExpandedChange.Emit(true)
	if r.tree.singleBranchExpand {
		for _, sib := range n.Siblings() {
			if r.expanded.has(sib) {
				_ = r.Collapse(sib)
			}
		}
	}
	return nil
}

// Collapsing marks an expanded node as entering its collapse transition. It
// stays in the expanded set until Collapse.
func (r *ExpansionRegistry) Collapsing(n *Node) error {
	if n == nil {
		return opError("collapsing", ErrInvalidNode)
	}
	if !r.owns(n) || !r.expanded.has(n) {
		return nil
	}
	r.collapsing.add(n)
	return nil
}

// Collapse removes n from both sets.
func (r *ExpansionRegistry) Collapse(n *Node) error {
	if n == nil {
		return opError("collapse", ErrInvalidNode)
	}
	if !r.owns(n) {
		return nil
	}
	r.collapsing.delete(n)
	if !r.expanded.has(n) {
		return nil
	}
	r.expanded.delete(n)
	n.ExpandedChange.Emit(false)
	return nil
}

func (r *ExpansionRegistry) purge(n *Node) {
	r.expanded.delete(n)
	r.collapsing.delete(n)
}
