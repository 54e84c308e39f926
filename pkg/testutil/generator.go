// Package testutil provides deterministic tree fixtures and invariant
// assertions shared by the package tests.
package testutil

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/model"
)

// GeneratorConfig controls fixture generation.
type GeneratorConfig struct {
	Seed         int64   // Random seed for determinism (0 = use current time)
	IDPrefix     string  // Prefix for node IDs (default: "n")
	ExpandRate   float64 // Probability a parent starts expanded
	DisabledRate float64 // Probability a node starts disabled
	SelectedRate float64 // Probability a node starts selected
}

// DefaultConfig returns a config suitable for most tests: fixed seed, no
// initial state.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Seed:     42,
		IDPrefix: "n",
	}
}

// Generator creates node specs with various shapes.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	next int
}

// New creates a Generator with the given config.
func New(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = "n"
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// NewDefault creates a Generator with default config.
func NewDefault() *Generator {
	return New(DefaultConfig())
}

func (g *Generator) spec() model.NodeSpec {
	id := fmt.Sprintf("%s%d", g.cfg.IDPrefix, g.next)
	g.next++
	return model.NodeSpec{
		ID:       id,
		Label:    strings.ToUpper(id),
		Disabled: g.roll(g.cfg.DisabledRate),
		Selected: g.roll(g.cfg.SelectedRate),
	}
}

func (g *Generator) roll(p float64) bool {
	return p > 0 && g.rng.Float64() < p
}

// Chain nests size nodes, each the only child of the previous one.
func (g *Generator) Chain(size int) []model.NodeSpec {
	if size < 1 {
		return nil
	}
	specs := make([]model.NodeSpec, size)
	for i := range specs {
		specs[i] = g.spec()
	}
	for i := size - 2; i >= 0; i-- {
		specs[i].Children = []model.NodeSpec{specs[i+1]}
		specs[i].Expanded = g.roll(g.cfg.ExpandRate)
	}
	return specs[:1]
}

// Star creates one root with spokes leaf children.
func (g *Generator) Star(spokes int) []model.NodeSpec {
	root := g.spec()
	for i := 0; i < spokes; i++ {
		root.Children = append(root.Children, g.spec())
	}
	root.Expanded = spokes > 0 && g.roll(g.cfg.ExpandRate)
	return []model.NodeSpec{root}
}

// Tree creates a full tree where every non-leaf has breadth children.
func (g *Generator) Tree(depth, breadth int) []model.NodeSpec {
	if breadth < 1 {
		breadth = 1
	}
	return []model.NodeSpec{g.subtree(depth, breadth)}
}

func (g *Generator) subtree(depth, breadth int) model.NodeSpec {
	n := g.spec()
	if depth <= 0 {
		return n
	}
	for b := 0; b < breadth; b++ {
		n.Children = append(n.Children, g.subtree(depth-1, breadth))
	}
	n.Expanded = g.roll(g.cfg.ExpandRate)
	return n
}

// Random builds a forest of size nodes where each node after the first picks
// a random earlier node (or no node) as its parent.
func (g *Generator) Random(size int) []model.NodeSpec {
	if size < 1 {
		return nil
	}
	flat := make([]model.NodeSpec, size)
	parents := make([]int, size)
	for i := range flat {
		flat[i] = g.spec()
		parents[i] = -1
		if i > 0 {
			parents[i] = g.rng.Intn(i+1) - 1
		}
	}
	return nest(flat, parents, g)
}

func nest(flat []model.NodeSpec, parents []int, g *Generator) []model.NodeSpec {
	children := make(map[int][]int)
	var roots []int
	for i, p := range parents {
		if p < 0 {
			roots = append(roots, i)
		} else {
			children[p] = append(children[p], i)
		}
	}
	var build func(i int) model.NodeSpec
	build = func(i int) model.NodeSpec {
		n := flat[i]
		for _, c := range children[i] {
			n.Children = append(n.Children, build(c))
		}
		if len(n.Children) > 0 {
			n.Expanded = g.roll(g.cfg.ExpandRate)
		}
		return n
	}
	out := make([]model.NodeSpec, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out
}

// Forest creates roots full trees side by side.
func (g *Generator) Forest(roots, depth, breadth int) []model.NodeSpec {
	var out []model.NodeSpec
	for i := 0; i < roots; i++ {
		out = append(out, g.Tree(depth, breadth)...)
	}
	return out
}

// GenerateForest is shorthand for a default-config forest.
func GenerateForest(roots, depth, breadth int) []model.NodeSpec {
	return NewDefault().Forest(roots, depth, breadth)
}

// Flatten returns specs in depth-first order with Parent and Position set
// and Children cleared, as a flat file would store them.
func Flatten(specs []model.NodeSpec) []model.NodeSpec {
	var out []model.NodeSpec
	var walk func(list []model.NodeSpec, parent string)
	walk = func(list []model.NodeSpec, parent string) {
		for i, s := range list {
			flat := s
			flat.Parent = parent
			flat.Position = i
			flat.Children = nil
			out = append(out, flat)
			walk(s.Children, s.ID)
		}
	}
	walk(specs, "")
	return out
}

// ToJSONL renders specs as a flat JSONL document.
func ToJSONL(specs []model.NodeSpec) string {
	var b strings.Builder
	for _, s := range Flatten(specs) {
		data, err := json.Marshal(s)
		if err != nil {
			panic(fmt.Sprintf("marshal %s: %v", s.ID, err))
		}
		b.Write(data)
		b.WriteByte('\n')
	}
	return b.String()
}

// Scenario returns the five-node fixture used across the tree tests:
//
//	A
//	├── B
//	└── C
//	    ├── D
//	    └── E
func Scenario() []model.NodeSpec {
	return []model.NodeSpec{{
		ID: "A",
		Children: []model.NodeSpec{
			{ID: "B"},
			{ID: "C", Children: []model.NodeSpec{{ID: "D"}, {ID: "E"}}},
		},
	}}
}
