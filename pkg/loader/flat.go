package loader

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"

	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
)

// ErrCycle is returned when parent references in a flat source loop.
var ErrCycle = errors.New("parent cycle")

// BuildForest folds flat records (Parent/Position) into nested specs.
// Records whose parent is missing become roots and are reported through
// warn. Siblings are ordered by Position, then by input order.
func BuildForest(flat []model.NodeSpec, warn func(string)) ([]model.NodeSpec, error) {
	defer metrics.Timer(metrics.ForestBuild)()
	if warn == nil {
		warn = func(string) {}
	}

	g := simple.NewDirectedGraph()
	idToNode := make(map[string]int64, len(flat))
	nodeToIdx := make(map[int64]int, len(flat))
	for i, s := range flat {
		if _, dup := idToNode[s.ID]; dup {
			return nil, fmt.Errorf("duplicate node ID: %s", s.ID)
		}
		n := g.NewNode()
		g.AddNode(n)
		idToNode[s.ID] = n.ID()
		nodeToIdx[n.ID()] = i
	}

	children := make(map[string][]int)
	var roots []int
	for i, s := range flat {
		if s.Parent == "" {
			roots = append(roots, i)
			continue
		}
		pid, ok := idToNode[s.Parent]
		if !ok {
			warn(fmt.Sprintf("node %s references missing parent %s; treating it as a root", s.ID, s.Parent))
			roots = append(roots, i)
			continue
		}
		if s.Parent == s.ID {
			return nil, fmt.Errorf("%w: %s", ErrCycle, s.ID)
		}
		g.SetEdge(g.NewEdge(g.Node(pid), g.Node(idToNode[s.ID])))
		children[s.Parent] = append(children[s.Parent], i)
	}

	if _, err := topo.Sort(g); err != nil {
		return nil, cycleError(g, flat, nodeToIdx)
	}

	byPosition := func(idx []int) {
		sort.SliceStable(idx, func(a, b int) bool {
			return flat[idx[a]].Position < flat[idx[b]].Position
		})
	}
	byPosition(roots)

	var build func(i int) model.NodeSpec
	build = func(i int) model.NodeSpec {
		spec := flat[i]
		spec.Parent = ""
		spec.Position = 0
		spec.Children = nil
		kids := children[spec.ID]
		byPosition(kids)
		for _, k := range kids {
			spec.Children = append(spec.Children, build(k))
		}
		return spec
	}

	forest := make([]model.NodeSpec, 0, len(roots))
	for _, r := range roots {
		forest = append(forest, build(r))
	}
	return forest, nil
}

// cycleError names the members of the first parent loop found.
func cycleError(g graph.Directed, flat []model.NodeSpec, nodeToIdx map[int64]int) error {
	for _, scc := range topo.TarjanSCC(g) {
		if len(scc) < 2 {
			continue
		}
		ids := make([]string, 0, len(scc))
		for _, n := range scc {
			ids = append(ids, flat[nodeToIdx[n.ID()]].ID)
		}
		sort.Strings(ids)
		return fmt.Errorf("%w: %s", ErrCycle, strings.Join(ids, ", "))
	}
	return ErrCycle
}
