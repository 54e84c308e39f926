package tree

import (
	"slices"
	"testing"
)

// scenarioTree builds
//
//	A
//	├── B
//	└── C
//	    ├── D
//	    └── E
func scenarioTree(t *testing.T, opts ...Option) (*Tree, map[string]*Node) {
	t.Helper()
	nodes := map[string]*Node{}
	for _, id := range []string{"A", "B", "C", "D", "E"} {
		nodes[id] = NewNode(id, id)
	}
	nodes["C"].Add(nodes["D"], nodes["E"])
	nodes["A"].Add(nodes["B"], nodes["C"])
	tr := New(opts...)
	if err := tr.SetRoots(nodes["A"]); err != nil {
		t.Fatalf("SetRoots: %v", err)
	}
	tr.Flush()
	return tr, nodes
}

// flatTree builds n root nodes named n0..n{n-1}.
func flatTree(t *testing.T, n int, opts ...Option) (*Tree, []*Node) {
	t.Helper()
	roots := make([]*Node, n)
	for i := range roots {
		roots[i] = NewNode("n"+string(rune('0'+i)), "")
	}
	tr := New(opts...)
	if err := tr.SetRoots(roots...); err != nil {
		t.Fatalf("SetRoots: %v", err)
	}
	tr.Flush()
	return tr, roots
}

func assertIDs(t *testing.T, what string, nodes []*Node, want ...string) {
	t.Helper()
	got := ids(nodes)
	if want == nil {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		t.Errorf("%s: expected %v, got %v", what, want, got)
	}
}

func assertIDSet(t *testing.T, what string, nodes []*Node, want ...string) {
	t.Helper()
	got := ids(nodes)
	slices.Sort(got)
	w := slices.Clone(want)
	slices.Sort(w)
	if w == nil {
		w = []string{}
	}
	if !slices.Equal(got, w) {
		t.Errorf("%s: expected %v (any order), got %v", what, w, got)
	}
}

type selectionRecorder struct {
	events []*SelectionEvent
}

func recordSelection(tr *Tree) *selectionRecorder {
	r := &selectionRecorder{}
	tr.NodeSelection.Subscribe(func(ev *SelectionEvent) {
		r.events = append(r.events, ev)
	})
	return r
}
