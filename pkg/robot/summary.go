// Package robot produces the machine-readable output arbor prints when it
// runs without a terminal.
package robot

import (
	"io"
	"time"

	json "github.com/goccy/go-json"

	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/version"
)

const (
	// EnvVar forces robot mode when set to "1".
	EnvVar = loader.RobotEnvVar
	// TestModeEnvVar marks automated test runs.
	TestModeEnvVar = "ARBOR_TEST_MODE"
)

// NodeSummary is one node of the summary, in tree order.
type NodeSummary struct {
	ID            string `json:"id"`
	Label         string `json:"label,omitempty"`
	Parent        string `json:"parent,omitempty"`
	Level         int    `json:"level"`
	Expanded      bool   `json:"expanded,omitempty"`
	Selected      bool   `json:"selected,omitempty"`
	Indeterminate bool   `json:"indeterminate,omitempty"`
	Disabled      bool   `json:"disabled,omitempty"`
}

// Summary is the robot-mode view of a tree.
type Summary struct {
	GeneratedAt   time.Time     `json:"generated_at"`
	Version       string        `json:"version"`
	Title         string        `json:"title,omitempty"`
	Sources       []string      `json:"sources"`
	Mode          string        `json:"mode"`
	NodeCount     int           `json:"node_count"`
	Nodes         []NodeSummary `json:"nodes"`
	Visible       []string      `json:"visible"`
	Selected      []string      `json:"selected"`
	Indeterminate []string      `json:"indeterminate"`
	Active        string        `json:"active,omitempty"`

	Timings []metrics.TimingStats `json:"timings,omitempty"`
}

// Summarize describes t. ID lists follow tree order regardless of the order
// in which nodes were selected.
func Summarize(t *tree.Tree, title string, sources []string) Summary {
	s := Summary{
		GeneratedAt:   time.Now().UTC(),
		Version:       version.Version,
		Title:         title,
		Sources:       append([]string{}, sources...),
		Mode:          t.SelectionMode().String(),
		NodeCount:     t.Len(),
		Nodes:         make([]NodeSummary, 0, t.Len()),
		Visible:       []string{},
		Selected:      []string{},
		Indeterminate: []string{},
	}
	for _, n := range t.Nodes() {
		ns := NodeSummary{
			ID:            n.ID(),
			Label:         n.Label(),
			Level:         n.Level(),
			Expanded:      n.Expanded(),
			Selected:      n.Selected(),
			Indeterminate: n.Indeterminate(),
			Disabled:      n.Disabled(),
		}
		if p := n.Parent(); p != nil {
			ns.Parent = p.ID()
		}
		s.Nodes = append(s.Nodes, ns)
		if ns.Selected {
			s.Selected = append(s.Selected, ns.ID)
		}
		if ns.Indeterminate {
			s.Indeterminate = append(s.Indeterminate, ns.ID)
		}
	}
	for _, n := range t.VisibleNodes() {
		s.Visible = append(s.Visible, n.ID())
	}
	if a := t.ActiveNode(); a != nil {
		s.Active = a.ID()
	}
	if metrics.Enabled() {
		s.Timings = metrics.AllTimingStats()
	}
	return s
}

// Write encodes s as indented JSON followed by a newline.
func Write(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}
