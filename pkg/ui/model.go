// Package ui is the Bubble Tea explorer for a tree: keyboard and mouse
// input is translated into tree events and the visible list is rendered
// with checkbox state.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/state"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/watcher"
)

const (
	defaultWidth  = 80
	defaultHeight = 24
)

// FileChangedMsg is sent when the watched tree source changes.
type FileChangedMsg struct{}

// flushMsg asks the model to drain the tree's deferred continuations on the
// update goroutine.
type flushMsg struct{}

// ReadyTimeoutMsg is sent after a short delay so the UI becomes ready even
// if the terminal is slow to report its size.
type ReadyTimeoutMsg struct{}

// ReadyTimeoutCmd returns a command that sends ReadyTimeoutMsg after 100ms.
func ReadyTimeoutCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return ReadyTimeoutMsg{}
	})
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// Model is the explorer's Bubble Tea model.
type Model struct {
	tree  *tree.Tree
	cfg   config.Config
	keys  KeyMap
	help  help.Model
	theme Theme
	body  viewport.Model
	title string

	width, height int
	ready         bool

	status    string
	statusErr bool

	lastKey   string
	lastKeyAt time.Time
	now       func() time.Time

	showPreview  bool
	preview      viewport.Model
	showSettings bool
	settings     *huh.Form
	settingsVals *settingsValues
	saveConfig   func(config.Config) error

	watcher  *watcher.Watcher
	reload   func() (*model.Document, error)
	store    state.Store
	stateKey string
	copy     func(string) error
}

// NewModel builds an explorer over t. The first visible node receives the
// focus when nothing is focused yet.
func NewModel(t *tree.Tree) Model {
	m := Model{
		tree:    t,
		cfg:     config.DefaultConfig(),
		keys:    DefaultKeyMap(),
		help:    help.New(),
		theme:   DefaultTheme(lipgloss.DefaultRenderer()),
		body:    viewport.New(defaultWidth, defaultHeight-3),
		preview: viewport.New(defaultWidth, defaultHeight-3),
		width:   defaultWidth,
		height:  defaultHeight,
		now:     time.Now,
		copy:    systemClipboard,
	}
	m.ensureFocusVisible()
	m.syncBody()
	return m
}

// WithConfig applies UI settings from cfg. Tree behavior is configured on
// the tree itself.
func (m Model) WithConfig(cfg config.Config) Model {
	m.cfg = cfg
	m.resize()
	return m
}

// WithTitle sets the header title.
func (m Model) WithTitle(title string) Model {
	m.title = title
	return m
}

// WithWatcher enables live reload: every change of the watched file calls
// reload and rebuilds the tree, keeping the view state.
func (m Model) WithWatcher(w *watcher.Watcher, reload func() (*model.Document, error)) Model {
	m.watcher = w
	m.reload = reload
	return m
}

// WithStateStore saves the view state under key when the explorer quits.
func (m Model) WithStateStore(store state.Store, key string) Model {
	m.store = store
	m.stateKey = key
	return m
}

// WithConfigSaver persists settings changed through the settings form.
func (m Model) WithConfigSaver(fn func(config.Config) error) Model {
	m.saveConfig = fn
	return m
}

// WithClipboard replaces the system clipboard writer.
func (m Model) WithClipboard(fn func(string) error) Model {
	if fn != nil {
		m.copy = fn
	}
	return m
}

// WithClock replaces the time source used for key-repeat detection.
func (m Model) WithClock(now func() time.Time) Model {
	if now != nil {
		m.now = now
	}
	return m
}

// Tree returns the tree being explored.
func (m Model) Tree() *tree.Tree { return m.tree }

// Status returns the current status-line message.
func (m Model) Status() string { return m.status }

func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{ReadyTimeoutCmd()}
	if m.watcher != nil {
		cmds = append(cmds, WatchFileCmd(m.watcher))
	}
	if cmd := m.flushCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return tea.Batch(cmds...)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// huh.Form needs every message type, not just keys.
	if m.showSettings {
		return m.updateSettings(msg)
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.ready = true
		m.resize()

	case ReadyTimeoutMsg:
		m.ready = true

	case flushMsg:
		if n := m.tree.Flush(); n > 0 {
			debug.Log("ui: flushed %d deferred tree updates", n)
		}
		m.ensureFocusVisible()

	case FileChangedMsg:
		m.reloadTree()
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}

	case tea.MouseMsg:
		m.handleMouse(msg)

	case tea.KeyMsg:
		var cmd tea.Cmd
		m, cmd = m.handleKey(msg)
		if cmd != nil {
			cmds = append(cmds, cmd)
		}
	}

	m.syncBody()
	if cmd := m.flushCmd(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	if m.showPreview {
		switch msg.String() {
		case "esc", "p", "q":
			m.showPreview = false
		case "up", "k":
			m.preview.SetYOffset(m.preview.YOffset - 1)
		case "down", "j":
			m.preview.SetYOffset(m.preview.YOffset + 1)
		}
		return m, nil
	}

	m.status, m.statusErr = "", false
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.saveState()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		m.resize()

	case key.Matches(msg, m.keys.Copy):
		text, n := copyText(m.tree)
		if n == 0 {
			m.setStatus("nothing to copy", false)
			break
		}
		if err := m.copy(text); err != nil {
			m.setStatus(fmt.Sprintf("copy failed: %v", err), true)
			break
		}
		m.setStatus(fmt.Sprintf("copied %d id(s)", n), false)

	case key.Matches(msg, m.keys.Preview):
		n := m.tree.FocusedNode()
		if n == nil {
			n = m.tree.ActiveNode()
		}
		if n == nil {
			m.setStatus("no node to preview", false)
			break
		}
		m.preview.SetContent(renderPreview(n, m.width-4))
		m.preview.GotoTop()
		m.showPreview = true

	case key.Matches(msg, m.keys.Settings):
		m.settingsVals = m.currentSettings()
		m.settings = newSettingsForm(m.settingsVals).WithWidth(m.width - 4)
		m.showSettings = true
		return m, m.settings.Init()

	case key.Matches(msg, m.keys.ExpandAll):
		m.tree.ExpandAll()

	case key.Matches(msg, m.keys.CollapseAll):
		m.tree.CollapseAll()
		m.ensureFocusVisible()

	default:
		pressed := msg.String()
		ev := m.keys.treeKey(pressed)
		if ev == nil {
			m.lastKey = ""
			break
		}
		ev.Repeat = m.isRepeat(pressed)
		m.tree.HandleKey(ev)
		m.ensureFocusVisible()
	}
	return m, nil
}

func (m Model) updateSettings(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "esc" {
		m.closeSettings()
		return m, nil
	}
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = ws.Width, ws.Height
		m.resize()
	}

	fm, cmd := m.settings.Update(msg)
	if f, ok := fm.(*huh.Form); ok {
		m.settings = f
	}
	switch m.settings.State {
	case huh.StateCompleted:
		if err := m.applySettings(m.settingsVals); err != nil {
			m.setStatus(fmt.Sprintf("settings: %v", err), true)
		} else {
			m.setStatus("settings applied", false)
		}
		m.closeSettings()
		m.resize()
		m.syncBody()
		return m, nil
	case huh.StateAborted:
		m.closeSettings()
		return m, nil
	}
	return m, cmd
}

func (m *Model) closeSettings() {
	m.showSettings = false
	m.settings = nil
	m.settingsVals = nil
}

// handleMouse maps a left click onto the row under the pointer. Clicks on
// the checkbox column select, clicks elsewhere focus and activate.
func (m *Model) handleMouse(msg tea.MouseMsg) {
	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.body.SetYOffset(m.body.YOffset - 1)
		return
	case tea.MouseButtonWheelDown:
		m.body.SetYOffset(m.body.YOffset + 1)
		return
	}
	if msg.Action != tea.MouseActionPress || msg.Button != tea.MouseButtonLeft {
		return
	}
	row := msg.Y - 1 + m.body.YOffset
	visible := m.tree.VisibleNodes()
	if msg.Y < 1 || row < 0 || row >= len(visible) {
		return
	}
	n := visible[row]
	boxStart := 1 + 2*n.Level() + 2
	if m.tree.SelectionMode() != tree.SelectionNone && msg.X >= boxStart && msg.X < boxStart+3 {
		n.ClickSelector(msg.Shift, msg)
		return
	}
	n.Click(msg)
}

// isRepeat reports whether pressed repeats the previous key within the
// configured window.
func (m *Model) isRepeat(pressed string) bool {
	now := m.now()
	repeat := pressed == m.lastKey && now.Sub(m.lastKeyAt) <= m.cfg.UI.KeyRepeatWindow
	m.lastKey, m.lastKeyAt = pressed, now
	return repeat
}

// ensureFocusVisible moves the focus to the nearest visible ancestor when
// the focused node was hidden, or to the first visible node when nothing is
// focused.
func (m *Model) ensureFocusVisible() {
	visible := m.tree.VisibleNodes()
	if len(visible) == 0 {
		return
	}
	isVisible := make(map[*tree.Node]bool, len(visible))
	for _, n := range visible {
		isVisible[n] = true
	}
	nav := m.tree.Navigation()
	f := nav.FocusedNode()
	if f == nil {
		nav.SetFocused(visible[0])
		return
	}
	for p := f; p != nil; p = p.Parent() {
		if isVisible[p] {
			if p != f {
				nav.SetFocused(p)
			}
			return
		}
	}
	nav.SetFocused(visible[0])
}

// flushCmd returns a command that drains the scheduler on the next update,
// or nil when nothing is pending.
func (m Model) flushCmd() tea.Cmd {
	p, ok := m.tree.Scheduler().(interface{ Pending() int })
	if !ok || p.Pending() == 0 {
		return nil
	}
	return func() tea.Msg { return flushMsg{} }
}

func (m *Model) reloadTree() {
	if m.reload == nil {
		return
	}
	doc, err := m.reload()
	if err != nil {
		m.setStatus(fmt.Sprintf("reload failed: %v", err), true)
		return
	}
	snap := state.Capture(m.tree)
	focusedID := ""
	if f := m.tree.FocusedNode(); f != nil {
		focusedID = f.ID()
	}
	stop := metrics.Timer(metrics.TreeBuild)
	err = m.tree.Build(doc.Nodes)
	stop()
	if err != nil {
		m.setStatus(fmt.Sprintf("reload failed: %v", err), true)
		return
	}
	m.tree.Flush()
	state.Apply(m.tree, snap)
	if n := m.tree.NodeByID(focusedID); n != nil {
		m.tree.Navigation().SetFocused(n)
	}
	m.ensureFocusVisible()
	if doc.Title != "" && m.title == "" {
		m.title = doc.Title
	}
	m.setStatus(fmt.Sprintf("reloaded %d nodes", m.tree.Len()), false)
}

func (m *Model) saveState() {
	if m.store == nil || m.stateKey == "" {
		return
	}
	if err := m.store.Save(m.stateKey, state.Capture(m.tree)); err != nil {
		debug.Log("ui: saving state: %v", err)
	}
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m Model) helpView() string {
	if !m.cfg.UI.ShowHelp && !m.help.ShowAll {
		return ""
	}
	m.help.Width = m.width
	return m.help.View(m.keys)
}

func (m *Model) resize() {
	bodyHeight := m.height - 2
	if h := m.helpView(); h != "" {
		bodyHeight -= lipgloss.Height(h)
	}
	if bodyHeight < 1 {
		bodyHeight = 1
	}
	m.body.Width, m.body.Height = m.width, bodyHeight
	m.preview.Width, m.preview.Height = m.width, m.height-2
}

// syncBody re-renders the rows and scrolls so the focused row is visible.
func (m *Model) syncBody() {
	content, focused := m.renderBody()
	m.body.SetContent(content)
	if focused < 0 {
		return
	}
	if focused < m.body.YOffset {
		m.body.SetYOffset(focused)
	} else if focused >= m.body.YOffset+m.body.Height {
		m.body.SetYOffset(focused - m.body.Height + 1)
	}
}

func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}
	defer metrics.Timer(metrics.UIRender)()
	if m.showSettings && m.settings != nil {
		return m.theme.Panel.Render(m.settings.View())
	}

	var sb strings.Builder
	sb.WriteString(m.renderHeader())
	sb.WriteString("\n")
	if m.showPreview {
		sb.WriteString(m.preview.View())
		sb.WriteString("\n")
		sb.WriteString(m.theme.MutedText.Render("esc/p close · ↑/↓ scroll"))
		return sb.String()
	}
	sb.WriteString(m.body.View())
	sb.WriteString("\n")
	sb.WriteString(m.renderStatus())
	if h := m.helpView(); h != "" {
		sb.WriteString("\n")
		sb.WriteString(h)
	}
	return sb.String()
}
