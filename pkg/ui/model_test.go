package ui

import (
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/state"
	"github.com/vanderheijden86/arbor/pkg/testutil"
	"github.com/vanderheijden86/arbor/pkg/tree"
)

// stepClock advances by step on every reading so consecutive keys never
// count as repeats unless step is zero.
type stepClock struct {
	t    time.Time
	step time.Duration
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(c.step)
	return c.t
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		return tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// update sends msg and returns the concrete model and command.
func update(t *testing.T, m Model, msg tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	next, cmd := m.Update(msg)
	um, ok := next.(Model)
	if !ok {
		t.Fatalf("expected ui.Model, got %T", next)
	}
	return um, cmd
}

// send delivers msg and then feeds back every flush the model asks for.
// Other messages produced by the commands are returned.
func send(t *testing.T, m Model, msg tea.Msg) (Model, []tea.Msg) {
	t.Helper()
	m, cmd := update(t, m, msg)
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if c == nil {
			continue
		}
		switch r := c().(type) {
		case flushMsg:
			var next tea.Cmd
			m, next = update(t, m, r)
			queue = append(queue, next)
		case tea.BatchMsg:
			queue = append(queue, r...)
		default:
			out = append(out, r)
		}
	}
	return m, out
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m, _ = send(t, m, keyMsg(k))
	}
	return m
}

func newTestModel(t *testing.T, specs []model.NodeSpec, mode tree.SelectionMode) Model {
	t.Helper()
	tr := testutil.BuildTree(t, specs, tree.WithSelectionMode(mode))
	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Second}
	return NewModel(tr).WithClock(clock.now).WithClipboard(func(string) error { return nil })
}

func expandedScenario() []model.NodeSpec {
	specs := testutil.Scenario()
	specs[0].Expanded = true
	return specs
}

func focusedID(m Model) string {
	if f := m.Tree().FocusedNode(); f != nil {
		return f.ID()
	}
	return ""
}

func TestNewModelFocusesFirstVisible(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading)
	if got := focusedID(m); got != "A" {
		t.Errorf("expected focus on A, got %q", got)
	}
}

func TestKeyboardNavigationAndSelection(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading)
	tr := m.Tree()

	m = press(t, m, "right")
	testutil.AssertIDs(t, "visible after expanding A", tr.VisibleNodes(), "A", "B", "C")

	m = press(t, m, "down", "down", "right", "right")
	if got := focusedID(m); got != "D" {
		t.Fatalf("expected focus on D, got %q", got)
	}
	testutil.AssertIDs(t, "visible", tr.VisibleNodes(), "A", "B", "C", "D", "E")

	m = press(t, m, " ")
	testutil.AssertIDs(t, "selected", tr.Selection().SelectedNodes(), "D")
	testutil.AssertIDSet(t, "indeterminate", tr.Selection().IndeterminateNodes(), "A", "C")
	testutil.AssertCascadeInvariants(t, tr)

	m = press(t, m, "left")
	if got := focusedID(m); got != "C" {
		t.Errorf("expected left on a leaf to focus the parent C, got %q", got)
	}
	m = press(t, m, "left")
	testutil.AssertIDs(t, "visible after collapsing C", tr.VisibleNodes(), "A", "B", "C")

	m = press(t, m, "G")
	if got := focusedID(m); got != "C" {
		t.Errorf("expected end to focus C, got %q", got)
	}
	m = press(t, m, "g")
	if got := focusedID(m); got != "A" {
		t.Errorf("expected home to focus A, got %q", got)
	}
}

func TestPeekMovesFocusWithoutActivating(t *testing.T) {
	m := newTestModel(t, expandedScenario(), tree.SelectionCascading)
	m = press(t, m, "enter")
	if a := m.Tree().ActiveNode(); a == nil || a.ID() != "A" {
		t.Fatalf("expected A active after enter, got %v", a)
	}
	m = press(t, m, "J")
	if got := focusedID(m); got != "B" {
		t.Errorf("expected focus on B, got %q", got)
	}
	if a := m.Tree().ActiveNode(); a == nil || a.ID() != "A" {
		t.Errorf("expected A to stay active, got %v", a)
	}
}

func TestRangeSelectKey(t *testing.T) {
	m := newTestModel(t, expandedScenario(), tree.SelectionBiState)
	m = press(t, m, "down", " ", "down", "s")
	testutil.AssertIDs(t, "selected", m.Tree().Selection().SelectedNodes(), "B", "C")
}

func TestRepeatedKeysCoalesce(t *testing.T) {
	tr := testutil.BuildTree(t, expandedScenario(), tree.WithSelectionMode(tree.SelectionCascading))
	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewModel(tr).WithClock(clock.now)

	m, _ = send(t, m, keyMsg("down"))
	if got := focusedID(m); got != "B" {
		t.Fatalf("expected first press to move to B, got %q", got)
	}

	var cmd tea.Cmd
	m, cmd = update(t, m, keyMsg("down"))
	m, _ = update(t, m, keyMsg("down"))
	if got := focusedID(m); got != "B" {
		t.Errorf("expected repeats to wait for a flush, got focus %q", got)
	}
	if cmd == nil {
		t.Fatal("expected a flush command after a repeated key")
	}

	m, _ = send(t, m, flushMsg{})
	if got := focusedID(m); got != "C" {
		t.Errorf("expected coalesced repeats to move one step to C, got %q", got)
	}
}

func TestIsRepeatWindow(t *testing.T) {
	clock := &stepClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: 100 * time.Millisecond}
	m := newTestModel(t, testutil.Scenario(), tree.SelectionNone).WithClock(clock.now)

	if m.isRepeat("down") {
		t.Error("expected first press not to be a repeat")
	}
	if !m.isRepeat("down") {
		t.Error("expected second press within the window to be a repeat")
	}
	if m.isRepeat("up") {
		t.Error("expected a different key not to be a repeat")
	}
	clock.step = time.Second
	m.isRepeat("up")
	if m.isRepeat("up") {
		t.Error("expected a press outside the window not to be a repeat")
	}
}

func TestCollapseAllRefocusesVisibleAncestor(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading)
	m = press(t, m, "X")
	testutil.AssertIDs(t, "visible after expand all", m.Tree().VisibleNodes(), "A", "B", "C", "D", "E")

	m = press(t, m, "G")
	if got := focusedID(m); got != "E" {
		t.Fatalf("expected focus on E, got %q", got)
	}
	m = press(t, m, "Z")
	testutil.AssertIDs(t, "visible after collapse all", m.Tree().VisibleNodes(), "A")
	if got := focusedID(m); got != "A" {
		t.Errorf("expected focus to move to A, got %q", got)
	}
}

func TestExpandSiblingsKey(t *testing.T) {
	specs := []model.NodeSpec{
		{ID: "r1", Children: []model.NodeSpec{{ID: "a"}}},
		{ID: "r2", Children: []model.NodeSpec{{ID: "b"}}},
		{ID: "r3"},
	}
	m := newTestModel(t, specs, tree.SelectionNone)
	m = press(t, m, "*")
	testutil.AssertIDs(t, "visible", m.Tree().VisibleNodes(), "r1", "a", "r2", "b", "r3")
}

func TestCopySelectedIDs(t *testing.T) {
	var copied []string
	m := newTestModel(t, expandedScenario(), tree.SelectionBiState).
		WithClipboard(func(s string) error {
			copied = append(copied, s)
			return nil
		})

	m = press(t, m, "y")
	if len(copied) != 1 || copied[0] != "A" {
		t.Fatalf("expected focused id A to be copied, got %v", copied)
	}

	m = press(t, m, "down", " ", "down", " ", "y")
	if len(copied) != 2 || copied[1] != "B\nC" {
		t.Fatalf("expected selected ids B and C, got %v", copied)
	}
	if m.Status() != "copied 2 id(s)" {
		t.Errorf("expected copy status, got %q", m.Status())
	}
}

func TestCopyFailureSetsError(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionNone).
		WithClipboard(func(string) error { return errors.New("no clipboard") })
	m = press(t, m, "y")
	if !strings.Contains(m.Status(), "no clipboard") || !m.statusErr {
		t.Errorf("expected an error status, got %q (err=%v)", m.Status(), m.statusErr)
	}
}

func TestPreviewOpenAndClose(t *testing.T) {
	m := newTestModel(t, expandedScenario(), tree.SelectionCascading)
	m = press(t, m, "p")
	if !m.showPreview {
		t.Fatal("expected preview to open")
	}
	// Navigation keys scroll the preview instead of moving the focus.
	m = press(t, m, "down")
	if got := focusedID(m); got != "A" {
		t.Errorf("expected focus to stay on A, got %q", got)
	}
	m = press(t, m, "esc")
	if m.showPreview {
		t.Error("expected esc to close the preview")
	}
}

func TestPreviewMarkdown(t *testing.T) {
	tr := testutil.BuildTree(t, expandedScenario(), tree.WithSelectionMode(tree.SelectionCascading))
	d := testutil.MustNode(t, tr, "D")
	if err := tr.Selection().SelectNode(d, nil); err != nil {
		t.Fatalf("SelectNode: %v", err)
	}
	c := testutil.MustNode(t, tr, "C")
	c.SetData(map[string]string{"owner": "ops"})

	md := previewMarkdown(c)
	for _, want := range []string{
		"# C",
		"`C` · level 1 · index 2",
		"**Path:** A / C",
		"**State:** partially selected",
		"## Children (2)",
		"- [x] D",
		"- [ ] E",
		"owner: ops",
	} {
		if !strings.Contains(md, want) {
			t.Errorf("expected preview to contain %q, got:\n%s", want, md)
		}
	}
}

func TestMouseClicks(t *testing.T) {
	m := newTestModel(t, expandedScenario(), tree.SelectionCascading)
	tr := m.Tree()

	// Row 2 is B (level 1); its checkbox starts at column 5.
	m, _ = send(t, m, tea.MouseMsg{X: 5, Y: 2, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	testutil.AssertIDs(t, "selected", tr.Selection().SelectedNodes(), "B")
	testutil.AssertIDs(t, "indeterminate", tr.Selection().IndeterminateNodes(), "A")
	if got := focusedID(m); got != "A" {
		t.Errorf("expected checkbox click to keep focus on A, got %q", got)
	}

	m, _ = send(t, m, tea.MouseMsg{X: 20, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got := focusedID(m); got != "C" {
		t.Errorf("expected label click to focus C, got %q", got)
	}
	if a := tr.ActiveNode(); a == nil || a.ID() != "C" {
		t.Errorf("expected C active, got %v", a)
	}

	// Clicks outside the rows are ignored.
	m, _ = send(t, m, tea.MouseMsg{X: 5, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m, _ = send(t, m, tea.MouseMsg{X: 5, Y: 40, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if got := focusedID(m); got != "C" {
		t.Errorf("expected focus to stay on C, got %q", got)
	}
}

func TestReloadKeepsViewState(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading)
	m = press(t, m, "X", "G", "up", " ")
	if got := focusedID(m); got != "D" {
		t.Fatalf("expected focus on D, got %q", got)
	}

	specs := testutil.Scenario()
	specs[0].Children[1].Children = append(specs[0].Children[1].Children, model.NodeSpec{ID: "F"})
	m = m.WithWatcher(nil, func() (*model.Document, error) {
		return &model.Document{Title: "reloaded", Nodes: specs}, nil
	})

	m, _ = send(t, m, FileChangedMsg{})
	tr := m.Tree()
	if tr.Len() != 6 {
		t.Fatalf("expected 6 nodes after reload, got %d", tr.Len())
	}
	testutil.AssertIDs(t, "visible", tr.VisibleNodes(), "A", "B", "C", "D", "E", "F")
	testutil.AssertIDs(t, "selected", tr.Selection().SelectedNodes(), "D")
	testutil.AssertIDSet(t, "indeterminate", tr.Selection().IndeterminateNodes(), "A", "C")
	if got := focusedID(m); got != "D" {
		t.Errorf("expected focus to stay on D, got %q", got)
	}
	if m.Status() != "reloaded 6 nodes" {
		t.Errorf("expected reload status, got %q", m.Status())
	}
	if m.title != "reloaded" {
		t.Errorf("expected title from the reloaded document, got %q", m.title)
	}
}

func TestReloadFailureKeepsTree(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading)
	m = m.WithWatcher(nil, func() (*model.Document, error) {
		return nil, errors.New("parse error")
	})
	m, _ = send(t, m, FileChangedMsg{})
	if m.Tree().Len() != 5 {
		t.Errorf("expected the old tree to remain, got %d nodes", m.Tree().Len())
	}
	if !strings.Contains(m.Status(), "parse error") {
		t.Errorf("expected reload error in status, got %q", m.Status())
	}
}

func TestQuitSavesState(t *testing.T) {
	store := state.NewFileStore(t.TempDir())
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading).WithStateStore(store, "scenario")
	m = press(t, m, "right", "down", " ")

	_, msgs := send(t, m, keyMsg("q"))
	quit := false
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			quit = true
		}
	}
	if !quit {
		t.Errorf("expected a quit message, got %v", msgs)
	}

	snap, err := store.Load("scenario")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(snap.Expanded) != 1 || snap.Expanded[0] != "A" {
		t.Errorf("expected A expanded in saved state, got %v", snap.Expanded)
	}
	if len(snap.Selected) != 1 || snap.Selected[0] != "B" {
		t.Errorf("expected B selected in saved state, got %v", snap.Selected)
	}
	if snap.Active != "B" {
		t.Errorf("expected B active in saved state, got %q", snap.Active)
	}
}

func TestApplySettings(t *testing.T) {
	m := newTestModel(t, expandedScenario(), tree.SelectionCascading)
	m = press(t, m, " ")
	if len(m.Tree().Selection().SelectedNodes()) == 0 {
		t.Fatal("expected a selection before changing mode")
	}

	var saved *config.Config
	m = m.WithConfigSaver(func(c config.Config) error {
		saved = &c
		return nil
	})
	err := m.applySettings(&settingsValues{
		Mode:          "bistate",
		SingleBranch:  true,
		ToggleOnClick: true,
		ShowHelp:      false,
	})
	if err != nil {
		t.Fatalf("applySettings: %v", err)
	}

	tr := m.Tree()
	if tr.SelectionMode() != tree.SelectionBiState {
		t.Errorf("expected bistate mode, got %s", tr.SelectionMode())
	}
	if len(tr.Selection().SelectedNodes()) != 0 {
		t.Error("expected mode change to clear the selection")
	}
	if !tr.SingleBranchExpand() || !tr.ToggleNodeOnClick() {
		t.Error("expected tree flags to be applied")
	}
	if saved == nil {
		t.Fatal("expected config to be saved")
	}
	if saved.Tree.SelectionMode != "bistate" || !saved.Tree.SingleBranchExpand || saved.UI.ShowHelp {
		t.Errorf("unexpected saved config: %+v", *saved)
	}

	if err := m.applySettings(&settingsValues{Mode: "sideways"}); err == nil {
		t.Error("expected an unknown mode to be rejected")
	}
}

func TestSettingsFormOpensAndCloses(t *testing.T) {
	m := newTestModel(t, testutil.Scenario(), tree.SelectionCascading)
	m, _ = update(t, m, keyMsg("S"))
	if !m.showSettings || m.settings == nil {
		t.Fatal("expected the settings form to open")
	}
	if cur := m.settingsVals; cur == nil || cur.Mode != "cascading" {
		t.Errorf("expected the form to start from the current mode, got %+v", cur)
	}
	m, _ = update(t, m, keyMsg("esc"))
	if m.showSettings || m.settings != nil {
		t.Error("expected esc to close the settings form")
	}
}

func TestView(t *testing.T) {
	m := newTestModel(t, expandedScenario(), tree.SelectionCascading).WithTitle("Scenario")
	if v := m.View(); v != "Initializing..." {
		t.Errorf("expected initializing view, got %q", v)
	}
	m, _ = send(t, m, tea.WindowSizeMsg{Width: 80, Height: 24})
	v := m.View()
	for _, want := range []string{"Scenario", "cascading", "5 nodes", "[ ] B", "▸ [ ] C"} {
		if !strings.Contains(v, want) {
			t.Errorf("expected view to contain %q, got:\n%s", want, v)
		}
	}
}

func TestViewEmptyTree(t *testing.T) {
	m := NewModel(tree.New())
	m, _ = send(t, m, ReadyTimeoutMsg{})
	if v := m.View(); !strings.Contains(v, "(empty tree)") {
		t.Errorf("expected empty tree placeholder, got:\n%s", v)
	}
}

func TestRowText(t *testing.T) {
	tr := testutil.BuildTree(t, expandedScenario(), tree.WithSelectionMode(tree.SelectionCascading))
	tr.ExpandAll()
	d := testutil.MustNode(t, tr, "D")
	if err := tr.Selection().SelectNode(d, nil); err != nil {
		t.Fatalf("SelectNode: %v", err)
	}

	tests := []struct {
		id   string
		mode tree.SelectionMode
		want string
	}{
		{"D", tree.SelectionCascading, "      [x] D"},
		{"A", tree.SelectionCascading, "▾ [-] A"},
		{"A", tree.SelectionNone, "▾ A"},
		{"B", tree.SelectionCascading, "    [ ] B"},
	}
	for _, tt := range tests {
		n := testutil.MustNode(t, tr, tt.id)
		if got := rowText(n, tt.mode, 40); got != tt.want {
			t.Errorf("rowText(%s, %s): expected %q, got %q", tt.id, tt.mode, tt.want, got)
		}
	}
}

func TestTruncateRunesHelper(t *testing.T) {
	tests := []struct {
		in   string
		max  int
		want string
	}{
		{"hello", 10, "hello"},
		{"hello world", 8, "hello w…"},
		{"日本語テキスト", 7, "日本語…"},
		{"hello", 0, ""},
	}
	for _, tt := range tests {
		if got := truncateRunesHelper(tt.in, tt.max, "…"); got != tt.want {
			t.Errorf("truncateRunesHelper(%q, %d): expected %q, got %q", tt.in, tt.max, tt.want, got)
		}
	}
}

func TestTreeKeyMapping(t *testing.T) {
	keys := DefaultKeyMap()
	tests := []struct {
		pressed string
		key     string
		ctrl    bool
		shift   bool
	}{
		{"down", tree.KeyArrowDown, false, false},
		{"k", tree.KeyArrowUp, false, false},
		{"K", tree.KeyArrowUp, true, false},
		{"s", tree.KeySpace, false, true},
		{"*", tree.KeyAsterisk, false, false},
		{"enter", tree.KeyEnter, false, false},
	}
	for _, tt := range tests {
		ev := keys.treeKey(tt.pressed)
		if ev == nil {
			t.Errorf("%q: expected a key event", tt.pressed)
			continue
		}
		if ev.Key != tt.key || ev.Ctrl != tt.ctrl || ev.Shift != tt.shift {
			t.Errorf("%q: expected %s ctrl=%v shift=%v, got %+v", tt.pressed, tt.key, tt.ctrl, tt.shift, ev)
		}
	}
	if ev := keys.treeKey("y"); ev != nil {
		t.Errorf("expected y to be handled by the model, got %+v", ev)
	}
}
