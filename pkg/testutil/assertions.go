package testutil

import (
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// CheckSelectionInvariants returns a description of every broken invariant
// of the selection state, or nil. It is usable from property tests where a
// *testing.T is not at hand.
func CheckSelectionInvariants(tr *tree.Tree) []string {
	var problems []string
	sel := tr.Selection()
	for _, n := range sel.SelectedNodes() {
		if sel.IsNodeIndeterminate(n) {
			problems = append(problems, "node "+n.ID()+" is both selected and indeterminate")
		}
		if n.Tree() != tr {
			problems = append(problems, "selected node "+n.ID()+" is not attached")
		}
	}
	for _, n := range tr.Expansion().CollapsingNodes() {
		if !n.Expanded() {
			problems = append(problems, "collapsing node "+n.ID()+" is not expanded")
		}
	}
	if tr.SelectionMode() == tree.SelectionNone {
		if len(sel.SelectedNodes()) > 0 || len(sel.IndeterminateNodes()) > 0 {
			problems = append(problems, "selection present in none mode")
		}
	}
	return problems
}

// CheckCascadeInvariants reports parents whose state disagrees with their
// direct children under cascading selection.
func CheckCascadeInvariants(tr *tree.Tree) []string {
	var problems []string
	for _, n := range tr.Nodes() {
		children := n.Children()
		if len(children) == 0 {
			continue
		}
		all, some := true, false
		for _, c := range children {
			if c.Selected() {
				some = true
			} else {
				all = false
				if c.Indeterminate() {
					some = true
				}
			}
		}
		switch {
		case all && !n.Selected():
			problems = append(problems, "node "+n.ID()+" has all children selected but is not selected")
		case !all && n.Selected():
			problems = append(problems, "node "+n.ID()+" is selected but not all children are")
		case !all && some && !n.Indeterminate():
			problems = append(problems, "node "+n.ID()+" should be indeterminate")
		case !some && n.Indeterminate():
			problems = append(problems, "node "+n.ID()+" is indeterminate with no selected descendants")
		}
	}
	return problems
}

// AssertSelectionInvariants fails t for every broken selection invariant.
func AssertSelectionInvariants(t *testing.T, tr *tree.Tree) {
	t.Helper()
	for _, p := range CheckSelectionInvariants(tr) {
		t.Error(p)
	}
}

// AssertCascadeInvariants fails t for every parent inconsistent with its
// children.
func AssertCascadeInvariants(t *testing.T, tr *tree.Tree) {
	t.Helper()
	for _, p := range CheckCascadeInvariants(tr) {
		t.Error(p)
	}
}

// AssertIDs verifies nodes have exactly the given IDs in order.
func AssertIDs(t *testing.T, what string, nodes []*tree.Node, want ...string) {
	t.Helper()
	got := NodeIDs(nodes)
	if len(want) == 0 {
		want = []string{}
	}
	if !slices.Equal(got, want) {
		t.Errorf("%s: expected %v, got %v", what, want, got)
	}
}

// AssertIDSet verifies nodes have the given IDs in any order.
func AssertIDSet(t *testing.T, what string, nodes []*tree.Node, want ...string) {
	t.Helper()
	got := NodeIDs(nodes)
	slices.Sort(got)
	sorted := slices.Clone(want)
	slices.Sort(sorted)
	if len(sorted) == 0 {
		sorted = []string{}
	}
	if !slices.Equal(got, sorted) {
		t.Errorf("%s: expected %v (any order), got %v", what, sorted, got)
	}
}

// NodeIDs returns the IDs of nodes.
func NodeIDs(nodes []*tree.Node) []string {
	out := make([]string, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, n.ID())
	}
	return out
}

// BuildTree creates a tree from specs and fails the test on error.
func BuildTree(t *testing.T, specs []model.NodeSpec, opts ...tree.Option) *tree.Tree {
	t.Helper()
	tr := tree.New(opts...)
	if err := tr.Build(specs); err != nil {
		t.Fatalf("building tree: %v", err)
	}
	tr.Flush()
	return tr
}

// MustNode returns the node with id or fails the test.
func MustNode(t *testing.T, tr *tree.Tree, id string) *tree.Node {
	t.Helper()
	n := tr.NodeByID(id)
	if n == nil {
		t.Fatalf("node %q not found", id)
	}
	return n
}

// AssertJSONEqual compares two values after JSON round-tripping.
func AssertJSONEqual(t *testing.T, expected, actual any) {
	t.Helper()

	expectedJSON, err := json.Marshal(expected)
	if err != nil {
		t.Fatalf("failed to marshal expected: %v", err)
	}
	actualJSON, err := json.Marshal(actual)
	if err != nil {
		t.Fatalf("failed to marshal actual: %v", err)
	}
	if string(expectedJSON) != string(actualJSON) {
		t.Errorf("JSON mismatch:\nexpected: %s\nactual:   %s", expectedJSON, actualJSON)
	}
}

// GoldenFile handles golden file comparisons.
type GoldenFile struct {
	t      *testing.T
	dir    string
	name   string
	update bool
}

// NewGoldenFile creates a golden file helper.
// If GENERATE_GOLDEN env var is set, golden files will be updated.
func NewGoldenFile(t *testing.T, dir, name string) *GoldenFile {
	t.Helper()
	return &GoldenFile{
		t:      t,
		dir:    dir,
		name:   name,
		update: os.Getenv("GENERATE_GOLDEN") != "",
	}
}

// Path returns the full path to the golden file.
func (g *GoldenFile) Path() string {
	return filepath.Join(g.dir, g.name)
}

// Assert compares actual content against the golden file, or rewrites the
// file when GENERATE_GOLDEN is set.
func (g *GoldenFile) Assert(actual string) {
	g.t.Helper()

	path := g.Path()
	if g.update {
		if err := os.MkdirAll(g.dir, 0755); err != nil {
			g.t.Fatalf("failed to create golden dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(actual), 0644); err != nil {
			g.t.Fatalf("failed to write golden file: %v", err)
		}
		g.t.Logf("updated golden file: %s", path)
		return
	}

	expected, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			g.t.Fatalf("golden file does not exist: %s\nRun with GENERATE_GOLDEN=1 to create it", path)
		}
		g.t.Fatalf("failed to read golden file: %v", err)
	}
	if string(expected) == actual {
		return
	}
	expectedLines := strings.Split(string(expected), "\n")
	actualLines := strings.Split(actual, "\n")
	for i := 0; i < len(expectedLines) || i < len(actualLines); i++ {
		var expLine, actLine string
		if i < len(expectedLines) {
			expLine = expectedLines[i]
		}
		if i < len(actualLines) {
			actLine = actualLines[i]
		}
		if expLine != actLine {
			g.t.Errorf("golden file mismatch at line %d:\nexpected: %s\nactual:   %s", i+1, expLine, actLine)
			return
		}
	}
	g.t.Errorf("golden file mismatch (length differs)")
}

// WriteTreeFile writes specs to dir/name as YAML, JSON or JSONL depending on
// the extension, and returns the path.
func WriteTreeFile(t *testing.T, dir, name string, specs []model.NodeSpec) string {
	t.Helper()

	path := filepath.Join(dir, name)
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jsonl":
		data = []byte(ToJSONL(specs))
	case ".json":
		data, err = json.MarshalIndent(model.Document{Nodes: specs}, "", "  ")
	default:
		data, err = yaml.Marshal(model.Document{Nodes: specs})
	}
	if err != nil {
		t.Fatalf("failed to encode %s: %v", name, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("failed to write %s: %v", path, err)
	}
	return path
}
