package datasource

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/vanderheijden86/arbor/pkg/model"
)

func TestDetectByExtension(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		want SourceType
	}{
		{"tree.yaml", SourceTypeYAML},
		{"tree.YML", SourceTypeYAML},
		{"tree.json", SourceTypeJSON},
		{"tree.jsonl", SourceTypeJSONL},
		{"tree.ndjson", SourceTypeJSONL},
		{"tree.db", SourceTypeSQLite},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
				t.Fatal(err)
			}
			src, err := Detect(path)
			if err != nil {
				t.Fatalf("Detect: %v", err)
			}
			if src.Type != tt.want {
				t.Errorf("expected %s, got %s", tt.want, src.Type)
			}
			if src.Size != 1 || !filepath.IsAbs(src.Path) {
				t.Errorf("unexpected source %s", src)
			}
		})
	}
}

func TestDetectUnknown(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tree.txt")
	if err := os.WriteFile(path, []byte("plain text"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Detect(path); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
	if _, err := Detect(dir); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("directories are unsupported, got %v", err)
	}
	if _, err := Detect(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tree.db")
	specs := []model.NodeSpec{
		{ID: "root", Label: "Root", Expanded: true},
		{ID: "b", Parent: "root", Position: 1, Selected: true},
		{ID: "a", Parent: "root", Position: 0, Disabled: true},
	}
	if err := WriteNodes(path, specs); err != nil {
		t.Fatalf("WriteNodes: %v", err)
	}

	// No extension: the header decides.
	bare := filepath.Join(filepath.Dir(path), "tree")
	if err := os.Rename(path, bare); err != nil {
		t.Fatal(err)
	}
	src, err := Detect(bare)
	if err != nil {
		t.Fatalf("Detect: %v", err)
	}
	if src.Type != SourceTypeSQLite || !src.Flat() {
		t.Fatalf("expected flat sqlite source, got %s", src.Type)
	}

	r, err := NewSQLiteReader(src)
	if err != nil {
		t.Fatalf("NewSQLiteReader: %v", err)
	}
	defer r.Close()

	n, err := r.CountNodes()
	if err != nil || n != 3 {
		t.Fatalf("CountNodes = %d, %v", n, err)
	}
	got, err := r.LoadNodes()
	if err != nil {
		t.Fatalf("LoadNodes: %v", err)
	}
	wantOrder := []string{"root", "a", "b"}
	for i, id := range wantOrder {
		if got[i].ID != id {
			t.Errorf("row %d: expected %s, got %s", i, id, got[i].ID)
		}
	}
	if got[0].Label != "Root" || !got[0].Expanded || got[0].Parent != "" {
		t.Errorf("unexpected root row %+v", got[0])
	}
	if !got[1].Disabled || got[1].Parent != "root" {
		t.Errorf("unexpected row %+v", got[1])
	}
	if !got[2].Selected || got[2].Position != 1 {
		t.Errorf("unexpected row %+v", got[2])
	}
}

func TestNewSQLiteReaderRejectsOtherTypes(t *testing.T) {
	if _, err := NewSQLiteReader(DataSource{Type: SourceTypeYAML}); err == nil {
		t.Error("expected error for non-sqlite source")
	}
}
