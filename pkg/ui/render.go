package ui

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

// truncateRunesHelper truncates a string to max visual width (cells), adding suffix if needed.
// Uses go-runewidth to handle wide characters correctly.
func truncateRunesHelper(s string, maxWidth int, suffix string) string {
	if maxWidth <= 0 {
		return ""
	}
	if runewidth.StringWidth(s) <= maxWidth {
		return s
	}
	suffixWidth := runewidth.StringWidth(suffix)
	if suffixWidth > maxWidth {
		return runewidth.Truncate(suffix, maxWidth, "")
	}
	return runewidth.Truncate(s, maxWidth-suffixWidth, "") + suffix
}

// padRight pads s with spaces to width display cells.
func padRight(s string, width int) string {
	w := runewidth.StringWidth(s)
	if w >= width {
		return s
	}
	return s + strings.Repeat(" ", width-w)
}

func expanderGlyph(n *tree.Node) string {
	switch {
	case !n.HasChildren():
		return " "
	case n.Collapsing():
		return "◂"
	case n.Expanded():
		return "▾"
	default:
		return "▸"
	}
}

func checkboxGlyph(n *tree.Node) string {
	switch {
	case n.Selected():
		return "[x]"
	case n.Indeterminate():
		return "[-]"
	default:
		return "[ ]"
	}
}

func rowPrefix(n *tree.Node, mode tree.SelectionMode) string {
	prefix := strings.Repeat("  ", n.Level()) + expanderGlyph(n) + " "
	if mode != tree.SelectionNone {
		prefix += checkboxGlyph(n) + " "
	}
	return prefix
}

func rowLabel(n *tree.Node, width int) string {
	label := n.Label()
	if label == "" {
		label = n.ID()
	}
	return truncateRunesHelper(label, width, "…")
}

// rowText builds the unstyled text of one visible row.
func rowText(n *tree.Node, mode tree.SelectionMode, width int) string {
	prefix := rowPrefix(n, mode)
	return prefix + rowLabel(n, width-runewidth.StringWidth(prefix))
}

// renderRow styles one visible row. Unfocused rows get a one-cell gutter
// where the focused row draws its border.
func (m Model) renderRow(n *tree.Node) string {
	mode := m.tree.SelectionMode()
	if n.Focused() {
		return m.theme.Focused.Render(padRight(rowText(n, mode, m.width-2), m.width-2))
	}

	var b strings.Builder
	b.WriteString(" ")
	b.WriteString(strings.Repeat("  ", n.Level()))
	b.WriteString(m.theme.Expander.Render(expanderGlyph(n)))
	b.WriteString(" ")
	if mode != tree.SelectionNone {
		box := checkboxGlyph(n)
		switch {
		case n.Selected():
			box = m.theme.CheckedBox.Render(box)
		case n.Indeterminate():
			box = m.theme.PartialBox.Render(box)
		}
		b.WriteString(box)
		b.WriteString(" ")
	}
	label := rowLabel(n, m.width-2-runewidth.StringWidth(rowPrefix(n, mode)))
	switch {
	case n.Disabled():
		b.WriteString(m.theme.MutedText.Render(label))
	case n.Active():
		b.WriteString(m.theme.Active.Render(label))
	default:
		b.WriteString(m.theme.Base.Render(label))
	}
	return b.String()
}

func (m Model) renderHeader() string {
	title := m.title
	if title == "" {
		title = "arbor"
	}
	sel := m.tree.Selection()
	info := fmt.Sprintf("%s · %d nodes · %d selected", m.tree.SelectionMode(), m.tree.Len(), len(sel.SelectedNodes()))
	if n := len(sel.IndeterminateNodes()); n > 0 {
		info += fmt.Sprintf(" · %d partial", n)
	}
	if m.watcher != nil {
		info += " · watching"
	}
	return m.theme.Header.Render(truncateRunesHelper(title+"  "+info, m.width-2, "…"))
}

func (m Model) renderStatus() string {
	if m.status == "" {
		if a := m.tree.ActiveNode(); a != nil {
			return m.theme.MutedText.Render("active: " + a.ID())
		}
		return ""
	}
	if m.statusErr {
		return m.theme.ErrorText.Render(truncateRunesHelper(m.status, m.width, "…"))
	}
	return m.theme.StatusText.Render(truncateRunesHelper(m.status, m.width, "…"))
}

// renderBody returns every visible row and the index of the focused one
// (-1 when the focus is not visible).
func (m Model) renderBody() (string, int) {
	visible := m.tree.VisibleNodes()
	if len(visible) == 0 {
		return m.theme.MutedText.Render("  (empty tree)"), -1
	}
	focused := -1
	lines := make([]string, len(visible))
	for i, n := range visible {
		if n.Focused() {
			focused = i
		}
		lines[i] = m.renderRow(n)
	}
	return strings.Join(lines, "\n"), focused
}
