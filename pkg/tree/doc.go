// Package tree implements the state engine behind an interactive tree view:
// selection (none, bi-state and cascading), expansion bookkeeping with an
// optional single-branch policy, and keyboard navigation over a cached list
// of visible nodes.
//
// A Tree owns three cooperating services, wired once by New:
//
//	SelectionEngine   selected + indeterminate sets, cancelable selection events
//	ExpansionRegistry expanded + collapsing sets
//	NavigationEngine  focused/active pointers, visible-node cache, key handling
//
// The engine never renders anything. A UI layer builds nodes, attaches them
// with SetRoots, forwards input through HandleKey and the Node click helpers,
// and reacts to the emitted events. All methods run synchronously on the
// caller's goroutine; the only deferral is through the Scheduler, which the
// UI drains with Flush.
//
// Example:
//
//	t := tree.New(tree.WithSelectionMode(tree.SelectionCascading))
//	root := tree.NewNode("a", "A").Add(tree.NewNode("b", "B"), tree.NewNode("c", "C"))
//	if err := t.SetRoots(root); err != nil {
//	    return err
//	}
//	_ = t.Selection().SelectNode(t.NodeByID("b"), nil)
package tree
