package model

import (
	"fmt"
	"strings"
)

// NodeSpec describes one node of a tree document as it is stored on disk.
// Nested formats populate Children; flat formats (JSONL, SQLite) populate
// Parent and Position instead and are folded into a forest by the loader.
type NodeSpec struct {
	ID       string         `json:"id" yaml:"id"`
	Label    string         `json:"label,omitempty" yaml:"label,omitempty"`
	Parent   string         `json:"parent,omitempty" yaml:"parent,omitempty"`
	Position int            `json:"position,omitempty" yaml:"position,omitempty"`
	Disabled bool           `json:"disabled,omitempty" yaml:"disabled,omitempty"`
	Selected bool           `json:"selected,omitempty" yaml:"selected,omitempty"`
	Expanded bool           `json:"expanded,omitempty" yaml:"expanded,omitempty"`
	Data     map[string]any `json:"data,omitempty" yaml:"data,omitempty"`
	Children []NodeSpec     `json:"children,omitempty" yaml:"children,omitempty"`
}

// DisplayLabel returns the label, falling back to the ID.
func (s NodeSpec) DisplayLabel() string {
	if strings.TrimSpace(s.Label) != "" {
		return s.Label
	}
	return s.ID
}

// Validate checks a single spec (not its children).
func (s *NodeSpec) Validate() error {
	if strings.TrimSpace(s.ID) == "" {
		return fmt.Errorf("node ID cannot be empty")
	}
	if strings.ContainsAny(s.ID, "\n\r\t") {
		return fmt.Errorf("node ID %q contains control characters", s.ID)
	}
	if s.Parent == s.ID {
		return fmt.Errorf("node %s cannot be its own parent", s.ID)
	}
	return nil
}

// Document is the top-level shape of a nested tree file.
type Document struct {
	Title              string     `json:"title,omitempty" yaml:"title,omitempty"`
	SelectionMode      string     `json:"selection_mode,omitempty" yaml:"selection_mode,omitempty"`
	SingleBranchExpand *bool      `json:"single_branch_expand,omitempty" yaml:"single_branch_expand,omitempty"`
	Nodes              []NodeSpec `json:"nodes" yaml:"nodes"`
}

// Validate checks every spec in the document and rejects duplicate IDs.
func (d *Document) Validate() error {
	seen := make(map[string]bool)
	var err error
	Walk(d.Nodes, func(spec *NodeSpec, _ int) bool {
		if verr := spec.Validate(); verr != nil {
			err = verr
			return false
		}
		if seen[spec.ID] {
			err = fmt.Errorf("duplicate node ID: %s", spec.ID)
			return false
		}
		seen[spec.ID] = true
		return true
	})
	return err
}

// Count returns the total number of specs in the document.
func (d *Document) Count() int {
	n := 0
	Walk(d.Nodes, func(*NodeSpec, int) bool {
		n++
		return true
	})
	return n
}

// Walk visits specs depth-first in document order. Returning false from fn
// stops the walk.
func Walk(specs []NodeSpec, fn func(spec *NodeSpec, depth int) bool) {
	var walk func(list []NodeSpec, depth int) bool
	walk = func(list []NodeSpec, depth int) bool {
		for i := range list {
			if !fn(&list[i], depth) {
				return false
			}
			if !walk(list[i].Children, depth+1) {
				return false
			}
		}
		return true
	}
	walk(specs, 0)
}
