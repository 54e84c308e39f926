package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

// previewMarkdown describes n as Markdown: where it sits, its state, its
// children and its payload.
func previewMarkdown(n *tree.Node) string {
	var sb strings.Builder
	label := n.Label()
	if label == "" {
		label = n.ID()
	}
	fmt.Fprintf(&sb, "# %s\n\n", label)
	fmt.Fprintf(&sb, "`%s` · level %d · index %d\n\n", n.ID(), n.Level(), n.Index())

	path := n.Path()
	crumbs := make([]string, len(path))
	for i, p := range path {
		crumbs[i] = p.ID()
	}
	fmt.Fprintf(&sb, "**Path:** %s\n\n", strings.Join(crumbs, " / "))

	var flags []string
	switch {
	case n.Selected():
		flags = append(flags, "selected")
	case n.Indeterminate():
		flags = append(flags, "partially selected")
	}
	if n.Expanded() {
		flags = append(flags, "expanded")
	}
	if n.Disabled() {
		flags = append(flags, "disabled")
	}
	if n.Active() {
		flags = append(flags, "active")
	}
	if len(flags) > 0 {
		fmt.Fprintf(&sb, "**State:** %s\n\n", strings.Join(flags, ", "))
	}

	if kids := n.Children(); len(kids) > 0 {
		fmt.Fprintf(&sb, "## Children (%d)\n\n", len(kids))
		for _, c := range kids {
			fmt.Fprintf(&sb, "- %s %s\n", checkboxGlyph(c), c.ID())
		}
		sb.WriteString("\n")
	}

	if data := n.Data(); data != nil {
		if out, err := yaml.Marshal(data); err == nil {
			sb.WriteString("## Data\n\n```yaml\n")
			sb.Write(out)
			sb.WriteString("```\n")
		}
	}
	return sb.String()
}

// renderPreview runs the Markdown through glamour, falling back to the raw
// text when the renderer cannot be built.
func renderPreview(n *tree.Node, width int) string {
	md := previewMarkdown(n)
	if width < 20 {
		width = 20
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return out
}
