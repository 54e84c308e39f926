package tree

// nodeSet is an insertion-ordered set of nodes. Order matters for range
// selection, which anchors on the most recently added member.
type nodeSet struct {
	members map[*Node]struct{}
	order   []*Node
}

func newNodeSet(nodes ...*Node) *nodeSet {
	s := &nodeSet{members: make(map[*Node]struct{}, len(nodes))}
	for _, n := range nodes {
		s.add(n)
	}
	return s
}

func (s *nodeSet) has(n *Node) bool {
	_, ok := s.members[n]
	return ok
}

func (s *nodeSet) add(n *Node) {
	if n == nil || s.has(n) {
		return
	}
	s.members[n] = struct{}{}
	s.order = append(s.order, n)
}

func (s *nodeSet) delete(n *Node) {
	if !s.has(n) {
		return
	}
	delete(s.members, n)
	for i, m := range s.order {
		if m == n {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

func (s *nodeSet) len() int {
	return len(s.order)
}

func (s *nodeSet) last() *Node {
	if len(s.order) == 0 {
		return nil
	}
	return s.order[len(s.order)-1]
}

func (s *nodeSet) slice() []*Node {
	out := make([]*Node, len(s.order))
	copy(out, s.order)
	return out
}

func (s *nodeSet) clear() {
	s.members = make(map[*Node]struct{})
	s.order = nil
}

func (s *nodeSet) clone() *nodeSet {
	return newNodeSet(s.order...)
}

// sameMembers reports whether a and b contain the same nodes, ignoring order
// and duplicates.
func sameMembers(a, b []*Node) bool {
	sa := newNodeSet(a...)
	sb := newNodeSet(b...)
	if sa.len() != sb.len() {
		return false
	}
	for _, n := range sa.order {
		if !sb.has(n) {
			return false
		}
	}
	return true
}

// without returns the members of a that are not in b, keeping a's order.
func without(a, b []*Node) []*Node {
	exclude := newNodeSet(b...)
	var out []*Node
	seen := newNodeSet()
	for _, n := range a {
		if exclude.has(n) || seen.has(n) {
			continue
		}
		seen.add(n)
		out = append(out, n)
	}
	return out
}
