//go:build ignore

// generate_testdata.go creates tree fixtures for benchmarking the loaders.
// Usage: go run scripts/generate_testdata.go
//
// Creates, for each size in small (100 nodes), medium (1000), large (5000)
// and huge (20000):
//
//	testdata/bench/<size>.yaml   nested document
//	testdata/bench/<size>.jsonl  flat parent references
//	testdata/bench/<size>.db     SQLite nodes table
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/internal/datasource"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/testutil"
)

type datasetSpec struct {
	name string
	size int
	desc string
}

var datasets = []datasetSpec{
	{"small", 100, "100 nodes - random forest, a third expanded"},
	{"medium", 1000, "1000 nodes - random forest, a fifth expanded"},
	{"large", 5000, "5000 nodes - random forest, a tenth expanded"},
	{"huge", 20000, "20000 nodes - random forest, mostly collapsed"},
}

func main() {
	outputDir := filepath.Join("testdata", "bench")
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create output directory: %v\n", err)
		os.Exit(1)
	}

	for _, ds := range datasets {
		fmt.Printf("Generating %s dataset (%d nodes)...\n", ds.name, ds.size)

		gen := testutil.New(testutil.GeneratorConfig{
			Seed:         int64(ds.size), // Reproducible per-size
			IDPrefix:     "bench-",
			ExpandRate:   expandRate(ds.size),
			DisabledRate: 0.02,
			SelectedRate: 0.05,
		})
		specs := gen.Random(ds.size)
		labelNodes(specs, ds.name)

		doc := model.Document{Title: ds.desc, SelectionMode: "cascading", Nodes: specs}
		data, err := yaml.Marshal(doc)
		if err != nil {
			fail(err)
		}
		write(filepath.Join(outputDir, ds.name+".yaml"), data)
		write(filepath.Join(outputDir, ds.name+".jsonl"), []byte(testutil.ToJSONL(specs)))

		dbPath := filepath.Join(outputDir, ds.name+".db")
		if err := datasource.WriteNodes(dbPath, testutil.Flatten(specs)); err != nil {
			fail(err)
		}
		fmt.Printf("  Written %s\n", dbPath)
	}

	fmt.Println("\nDone! Fixtures created in", outputDir)
}

// expandRate keeps the visible part of large trees small.
func expandRate(size int) float64 {
	switch {
	case size <= 100:
		return 0.33
	case size <= 1000:
		return 0.2
	case size <= 5000:
		return 0.1
	default:
		return 0.02
	}
}

func labelNodes(specs []model.NodeSpec, dataset string) {
	labels := []string{
		"Authentication",
		"Billing",
		"Catalog",
		"Checkout",
		"Documentation",
		"Inventory",
		"Notifications",
		"Reporting",
		"Search",
		"Shipping",
	}
	i := 0
	model.Walk(specs, func(s *model.NodeSpec, _ int) bool {
		s.Label = fmt.Sprintf("[%s] %s #%d", dataset, labels[i%len(labels)], i)
		i++
		return true
	})
}

func write(path string, data []byte) {
	if err := os.WriteFile(path, data, 0644); err != nil {
		fail(err)
	}
	fmt.Printf("  Written %s (%d bytes)\n", path, len(data))
}

func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
