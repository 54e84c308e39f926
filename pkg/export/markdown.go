package export

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// MarkdownOptions controls checklist output.
type MarkdownOptions struct {
	Title       string // rendered as a level-1 heading when set
	VisibleOnly bool   // only nodes reachable through expanded ancestors
}

// GenerateMarkdown renders the tree as a nested task list. Selected nodes
// are "[x]", indeterminate ones "[-]", everything else "[ ]". Disabled
// nodes are struck through.
func GenerateMarkdown(t *tree.Tree, opts MarkdownOptions) string {
	var sb strings.Builder
	if opts.Title != "" {
		fmt.Fprintf(&sb, "# %s\n\n", opts.Title)
	}
	rows := Rows(t, opts.VisibleOnly)
	for _, r := range rows {
		label := escapeMarkdown(r.Label)
		if r.Disabled {
			label = "~~" + label + "~~"
		}
		fmt.Fprintf(&sb, "%s- %s %s\n", strings.Repeat("  ", r.Level), r.State.Marker(), label)
	}
	if len(rows) == 0 {
		sb.WriteString("_empty tree_\n")
	}
	return sb.String()
}

// SaveMarkdown writes the checklist to path.
func SaveMarkdown(t *tree.Tree, path string, opts MarkdownOptions) error {
	if path == "" {
		return fmt.Errorf("output path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create parent dir: %w", err)
	}
	defer metrics.Timer(metrics.ExportRender)()
	return os.WriteFile(path, []byte(GenerateMarkdown(t, opts)), 0o644)
}

var markdownEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"*", "\\*",
	"_", "\\_",
	"`", "\\`",
	"[", "\\[",
	"]", "\\]",
	"\n", " ",
	"\r", "",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
