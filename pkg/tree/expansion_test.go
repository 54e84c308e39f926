package tree

import (
	"errors"
	"testing"
)

func TestExpandCollapseRoundTrip(t *testing.T) {
	tr, n := scenarioTree(t)
	reg := tr.Expansion()
	var changes []bool
	n["C"].ExpandedChange.Subscribe(func(v bool) { changes = append(changes, v) })

	if err := reg.Expand(n["C"]); err != nil {
		t.Fatal(err)
	}
	if !reg.IsExpanded(n["C"]) {
		t.Error("expected C expanded")
	}
	if err := reg.Collapse(n["C"]); err != nil {
		t.Fatal(err)
	}
	if reg.IsExpanded(n["C"]) || reg.IsCollapsing(n["C"]) {
		t.Error("round trip should leave C in neither set")
	}
	if len(changes) != 2 || !changes[0] || changes[1] {
		t.Errorf("expected [true false], got %v", changes)
	}
}

func TestExpandTwiceEmitsOnce(t *testing.T) {
	tr, n := scenarioTree(t)
	count := 0
	n["A"].ExpandedChange.Subscribe(func(bool) { count++ })
	_ = tr.Expansion().Expand(n["A"])
	_ = tr.Expansion().Expand(n["A"])
	if count != 1 {
		t.Errorf("expected 1 change, got %d", count)
	}
}

func TestCollapsingPhase(t *testing.T) {
	tr, n := scenarioTree(t)
	reg := tr.Expansion()

	_ = reg.Collapsing(n["C"])
	if reg.IsCollapsing(n["C"]) {
		t.Error("a collapsed node cannot enter the collapsing phase")
	}

	_ = reg.Expand(n["C"])
	_ = reg.Collapsing(n["C"])
	if !reg.IsExpanded(n["C"]) || !reg.IsCollapsing(n["C"]) {
		t.Error("collapsing node should be in both sets")
	}
	assertIDs(t, "collapsing", reg.CollapsingNodes(), "C")

	_ = reg.Expand(n["C"])
	if reg.IsCollapsing(n["C"]) {
		t.Error("expand should cancel the collapsing phase")
	}

	_ = reg.Collapsing(n["C"])
	_ = reg.Collapse(n["C"])
	if reg.IsExpanded(n["C"]) || reg.IsCollapsing(n["C"]) {
		t.Error("collapse should clear both sets")
	}
}

func TestCollapseAlreadyCollapsedIsSilent(t *testing.T) {
	tr, n := scenarioTree(t)
	count := 0
	n["B"].ExpandedChange.Subscribe(func(bool) { count++ })
	if err := tr.Expansion().Collapse(n["B"]); err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Errorf("expected no change, got %d", count)
	}
}

func TestSingleBranchExpand(t *testing.T) {
	x := NewNode("X", "X").Add(NewNode("X1", "X1").Add(NewNode("X1a", "X1a")))
	y := NewNode("Y", "Y").Add(NewNode("Y1", "Y1"))
	z := NewNode("Z", "Z").Add(NewNode("Z1", "Z1"))
	tr := New(WithSingleBranchExpand(true))
	if err := tr.SetRoots(x, y, z); err != nil {
		t.Fatal(err)
	}
	reg := tr.Expansion()
	_ = reg.Expand(x)
	x1 := tr.NodeByID("X1")
	_ = reg.Expand(x1)

	_ = reg.Expand(y)
	if reg.IsExpanded(x) {
		t.Error("X should collapse when its sibling Y expands")
	}
	if !reg.IsExpanded(y) {
		t.Error("Y should be expanded")
	}
	if reg.IsExpanded(z) {
		t.Error("Z was collapsed and should stay so")
	}
	if !reg.IsExpanded(x1) {
		t.Error("single-branch only affects siblings, not deeper levels")
	}
}

func TestSingleBranchDisabled(t *testing.T) {
	tr, nodes := flatTree(t, 3)
	for _, n := range nodes {
		_ = tr.Expansion().Expand(n)
	}
	assertIDs(t, "expanded", tr.Expansion().ExpandedNodes(), "n0", "n1", "n2")
}

func TestExpansionErrorsAndForeignNodes(t *testing.T) {
	tr, _ := scenarioTree(t)
	reg := tr.Expansion()
	if err := reg.Expand(nil); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("Expand(nil): expected ErrInvalidNode, got %v", err)
	}
	if err := reg.Collapse(nil); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("Collapse(nil): expected ErrInvalidNode, got %v", err)
	}
	if err := reg.Collapsing(nil); !errors.Is(err, ErrInvalidNode) {
		t.Errorf("Collapsing(nil): expected ErrInvalidNode, got %v", err)
	}
	stray := NewNode("stray", "")
	if err := reg.Expand(stray); err != nil {
		t.Errorf("detached node should be ignored, got %v", err)
	}
	if len(reg.ExpandedNodes()) != 0 {
		t.Error("detached node must not be recorded")
	}
}

func TestNodeExpandEvents(t *testing.T) {
	tr, n := scenarioTree(t)
	var order []string
	tr.NodeExpanding.Subscribe(func(ev *ToggleEvent) { order = append(order, "expanding:"+ev.Node.ID()) })
	tr.NodeExpanded.Subscribe(func(n *Node) { order = append(order, "expanded:"+n.ID()) })
	tr.NodeCollapsing.Subscribe(func(ev *ToggleEvent) { order = append(order, "collapsing:"+ev.Node.ID()) })
	tr.NodeCollapsed.Subscribe(func(n *Node) { order = append(order, "collapsed:"+n.ID()) })

	n["A"].Expand()
	n["A"].Collapse()
	want := []string{"expanding:A", "expanded:A", "collapsing:A", "collapsed:A"}
	if len(order) != len(want) {
		t.Fatalf("expected %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("event %d: expected %s, got %s", i, want[i], order[i])
		}
	}

	n["A"].Collapse()
	if len(order) != len(want) {
		t.Errorf("collapsing a collapsed node should emit nothing, got %v", order[len(want):])
	}
}

func TestNodeExpandCanceled(t *testing.T) {
	tr, n := scenarioTree(t)
	tr.NodeExpanding.Subscribe(func(ev *ToggleEvent) { ev.Cancel = true })
	n["A"].Expand()
	if n["A"].Expanded() {
		t.Error("canceled expand must not change state")
	}
}

func TestNodeCollapseCanceled(t *testing.T) {
	tr, n := scenarioTree(t)
	n["A"].Expand()
	tr.NodeCollapsing.Subscribe(func(ev *ToggleEvent) { ev.Cancel = true })
	n["A"].Collapse()
	if !n["A"].Expanded() || n["A"].Collapsing() {
		t.Error("canceled collapse must not change state")
	}
}

func TestAnimatedCollapseWaitsForFinish(t *testing.T) {
	tr, n := scenarioTree(t, WithAnimation(true))
	collapsed := 0
	tr.NodeCollapsed.Subscribe(func(*Node) { collapsed++ })

	n["A"].Expand()
	n["A"].Collapse()
	if !n["A"].Collapsing() || !n["A"].Expanded() {
		t.Error("animated collapse should stay in the collapsing phase")
	}
	if collapsed != 0 {
		t.Error("NodeCollapsed must wait for FinishCollapse")
	}
	n["A"].FinishCollapse()
	if n["A"].Expanded() || n["A"].Collapsing() {
		t.Error("FinishCollapse should complete the collapse")
	}
	if collapsed != 1 {
		t.Errorf("expected 1 NodeCollapsed, got %d", collapsed)
	}
	n["A"].FinishCollapse()
	if collapsed != 1 {
		t.Error("FinishCollapse on a settled node should be a no-op")
	}
}

func TestToggle(t *testing.T) {
	_, n := scenarioTree(t)
	n["C"].Toggle()
	if !n["C"].Expanded() {
		t.Error("toggle should expand")
	}
	n["C"].Toggle()
	if n["C"].Expanded() {
		t.Error("toggle should collapse")
	}
}

func TestSetExpandedBindingPath(t *testing.T) {
	tr, n := scenarioTree(t)
	events := 0
	tr.NodeExpanding.Subscribe(func(*ToggleEvent) { events++ })
	n["C"].SetExpanded(true)
	if !n["C"].Expanded() {
		t.Error("expected C expanded")
	}
	n["C"].SetExpanded(false)
	if events != 0 {
		t.Errorf("binding path must not emit toggle events, got %d", events)
	}
}
