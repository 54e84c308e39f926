package loader

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/testutil"
)

// shape renders nested specs as "A(B,C(D,E))" for compact comparison.
func shape(specs []model.NodeSpec) string {
	parts := make([]string, 0, len(specs))
	for _, s := range specs {
		p := s.ID
		if len(s.Children) > 0 {
			p += "(" + shape(s.Children) + ")"
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, ",")
}

func collectWarnings() (*[]string, Options) {
	var warnings []string
	return &warnings, Options{WarningHandler: func(msg string) { warnings = append(warnings, msg) }}
}

func TestLoadFormats(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"scenario.yaml", "scenario.json", "scenario.jsonl"} {
		t.Run(name, func(t *testing.T) {
			path := testutil.WriteTreeFile(t, dir, name, testutil.Scenario())
			doc, err := Load(path)
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if got := shape(doc.Nodes); got != "A(B,C(D,E))" {
				t.Errorf("expected A(B,C(D,E)), got %s", got)
			}
			if doc.Title != "scenario" {
				t.Errorf("expected title from file name, got %q", doc.Title)
			}
		})
	}
}

func TestLoadSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	if err := datasource.WriteNodes(path, testutil.Flatten(testutil.Scenario())); err != nil {
		t.Fatalf("WriteNodes: %v", err)
	}
	doc, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := shape(doc.Nodes); got != "A(B,C(D,E))" {
		t.Errorf("expected A(B,C(D,E)), got %s", got)
	}
}

func TestParseDocumentSettings(t *testing.T) {
	yamlDoc := `
title: Project
selection_mode: bistate
single_branch_expand: true
nodes:
  - id: root
    label: Root
    expanded: true
    children:
      - id: leaf
        selected: true
        data:
          owner: kim
`
	doc, err := ParseDocument([]byte(yamlDoc), datasource.SourceTypeYAML)
	if err != nil {
		t.Fatalf("ParseDocument: %v", err)
	}
	if doc.Title != "Project" || doc.SelectionMode != "bistate" {
		t.Errorf("unexpected header %+v", doc)
	}
	if doc.SingleBranchExpand == nil || !*doc.SingleBranchExpand {
		t.Error("expected single_branch_expand to be set")
	}
	leaf := doc.Nodes[0].Children[0]
	if !leaf.Selected || leaf.Data["owner"] != "kim" {
		t.Errorf("unexpected leaf %+v", leaf)
	}
}

func TestParseDocumentBareList(t *testing.T) {
	doc, err := ParseDocument([]byte("- id: a\n- id: b\n"), datasource.SourceTypeYAML)
	if err != nil {
		t.Fatalf("yaml list: %v", err)
	}
	if shape(doc.Nodes) != "a,b" {
		t.Errorf("expected a,b, got %s", shape(doc.Nodes))
	}

	doc, err = ParseDocument([]byte("\xEF\xBB\xBF [{\"id\":\"x\",\"children\":[{\"id\":\"y\"}]}]"), datasource.SourceTypeJSON)
	if err != nil {
		t.Fatalf("json list: %v", err)
	}
	if shape(doc.Nodes) != "x(y)" {
		t.Errorf("expected x(y), got %s", shape(doc.Nodes))
	}
}

func TestParseDocumentErrors(t *testing.T) {
	if _, err := ParseDocument([]byte("{"), datasource.SourceTypeJSON); err == nil {
		t.Error("expected JSON error")
	}
	if _, err := ParseDocument([]byte("nodes: [\n"), datasource.SourceTypeYAML); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := ParseDocument(nil, datasource.SourceTypeSQLite); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	specs := []model.NodeSpec{{ID: "a", Children: []model.NodeSpec{{ID: "a"}}}}
	path := testutil.WriteTreeFile(t, dir, "dup.yaml", specs)
	if _, err := Load(path); err == nil || !strings.Contains(err.Error(), "duplicate") {
		t.Errorf("expected duplicate ID error, got %v", err)
	}
}

func TestParseFlatSkipsBadLines(t *testing.T) {
	input := "\xEF\xBB\xBF{\"id\":\"a\"}\n" +
		"\n" +
		"not json\n" +
		"{\"id\":\"\"}\n" +
		"{\"id\":\"b\",\"parent\":\"a\"}\n"
	warnings, opts := collectWarnings()
	specs, err := ParseFlat(strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("ParseFlat: %v", err)
	}
	if len(specs) != 2 || specs[0].ID != "a" || specs[1].Parent != "a" {
		t.Errorf("unexpected specs %+v", specs)
	}
	if len(*warnings) != 2 {
		t.Errorf("expected 2 warnings, got %v", *warnings)
	}
}

func TestParseFlatLongLine(t *testing.T) {
	input := "{\"id\":\"" + strings.Repeat("x", 200) + "\"}\n{\"id\":\"ok\"}\n"
	warnings, opts := collectWarnings()
	opts.BufferSize = 64
	specs, err := ParseFlat(strings.NewReader(input), opts)
	if err != nil {
		t.Fatalf("ParseFlat: %v", err)
	}
	if len(specs) != 1 || specs[0].ID != "ok" {
		t.Errorf("expected only ok, got %+v", specs)
	}
	if len(*warnings) != 1 || !strings.Contains((*warnings)[0], "too long") {
		t.Errorf("expected a too-long warning, got %v", *warnings)
	}
}

func TestBuildForestOrdersByPosition(t *testing.T) {
	flat := []model.NodeSpec{
		{ID: "c2", Parent: "r", Position: 2},
		{ID: "r"},
		{ID: "c0", Parent: "r", Position: 0},
		{ID: "c1", Parent: "r", Position: 1},
		{ID: "g", Parent: "c1"},
	}
	forest, err := BuildForest(flat, nil)
	if err != nil {
		t.Fatalf("BuildForest: %v", err)
	}
	if got := shape(forest); got != "r(c0,c1(g),c2)" {
		t.Errorf("expected r(c0,c1(g),c2), got %s", got)
	}
	if forest[0].Children[2].Parent != "" {
		t.Error("expected parent references to be cleared")
	}
}

func TestBuildForestMissingParent(t *testing.T) {
	var warnings []string
	flat := []model.NodeSpec{{ID: "a"}, {ID: "orphan", Parent: "ghost"}}
	forest, err := BuildForest(flat, func(msg string) { warnings = append(warnings, msg) })
	if err != nil {
		t.Fatalf("BuildForest: %v", err)
	}
	if shape(forest) != "a,orphan" {
		t.Errorf("expected orphan promoted to root, got %s", shape(forest))
	}
	if len(warnings) != 1 || !strings.Contains(warnings[0], "ghost") {
		t.Errorf("expected missing-parent warning, got %v", warnings)
	}
}

func TestBuildForestCycle(t *testing.T) {
	flat := []model.NodeSpec{
		{ID: "root"},
		{ID: "x", Parent: "z"},
		{ID: "y", Parent: "x"},
		{ID: "z", Parent: "y"},
	}
	_, err := BuildForest(flat, nil)
	if !errors.Is(err, ErrCycle) {
		t.Fatalf("expected ErrCycle, got %v", err)
	}
	if !strings.Contains(err.Error(), "x, y, z") {
		t.Errorf("expected cycle members in error, got %v", err)
	}

	if _, err := BuildForest([]model.NodeSpec{{ID: "s", Parent: "s"}}, nil); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle for self parent, got %v", err)
	}
	if _, err := BuildForest([]model.NodeSpec{{ID: "d"}, {ID: "d"}}, nil); err == nil {
		t.Error("expected duplicate ID error")
	}
}

func TestBuildForestRoundTripsGeneratedForest(t *testing.T) {
	specs := testutil.GenerateForest(3, 3, 2)
	forest, err := BuildForest(testutil.Flatten(specs), nil)
	if err != nil {
		t.Fatalf("BuildForest: %v", err)
	}
	if shape(forest) != shape(specs) {
		t.Errorf("expected %s, got %s", shape(specs), shape(forest))
	}
}

func TestLoadAll(t *testing.T) {
	dir := t.TempDir()
	first := testutil.WriteTreeFile(t, dir, "one.yaml", []model.NodeSpec{{ID: "a", Children: []model.NodeSpec{{ID: "a1"}}}})
	second := testutil.WriteTreeFile(t, dir, "two.jsonl", []model.NodeSpec{{ID: "b"}})

	doc, err := LoadAll(context.Background(), []string{first, second}, Options{})
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	if shape(doc.Nodes) != "a(a1),b" {
		t.Errorf("expected a(a1),b, got %s", shape(doc.Nodes))
	}
	if doc.Title != "one" {
		t.Errorf("expected first title, got %q", doc.Title)
	}
}

func TestLoadAllErrors(t *testing.T) {
	dir := t.TempDir()
	a := testutil.WriteTreeFile(t, dir, "a.yaml", []model.NodeSpec{{ID: "same"}})
	b := testutil.WriteTreeFile(t, dir, "b.json", []model.NodeSpec{{ID: "same"}})

	if _, err := LoadAll(context.Background(), []string{a, b}, Options{}); err == nil {
		t.Error("expected duplicate ID across files to fail")
	}
	if _, err := LoadAll(context.Background(), nil, Options{}); err == nil {
		t.Error("expected error for no paths")
	}
	if _, err := LoadAll(context.Background(), []string{filepath.Join(dir, "missing.yaml")}, Options{}); err == nil {
		t.Error("expected error for missing file")
	}

	txt := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txt, []byte("hello"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(txt); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}
