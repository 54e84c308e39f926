package ui

import (
	"strings"

	"github.com/atotto/clipboard"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

func systemClipboard(s string) error {
	return clipboard.WriteAll(s)
}

// copyText returns the selected IDs one per line, falling back to the
// focused node's ID when nothing is selected.
func copyText(t *tree.Tree) (string, int) {
	selected := t.Selection().SelectedNodes()
	if len(selected) == 0 {
		if f := t.FocusedNode(); f != nil {
			return f.ID(), 1
		}
		return "", 0
	}
	ids := make([]string, len(selected))
	for i, n := range selected {
		ids[i] = n.ID()
	}
	return strings.Join(ids, "\n"), len(ids)
}
