package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"

	"github.com/vanderheijden86/arbor/pkg/config"
	"github.com/vanderheijden86/arbor/pkg/debug"
	"github.com/vanderheijden86/arbor/pkg/export"
	"github.com/vanderheijden86/arbor/pkg/loader"
	"github.com/vanderheijden86/arbor/pkg/metrics"
	"github.com/vanderheijden86/arbor/pkg/model"
	"github.com/vanderheijden86/arbor/pkg/robot"
	"github.com/vanderheijden86/arbor/pkg/state"
	"github.com/vanderheijden86/arbor/pkg/tree"
	"github.com/vanderheijden86/arbor/pkg/ui"
	"github.com/vanderheijden86/arbor/pkg/version"
	"github.com/vanderheijden86/arbor/pkg/watcher"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	configPath   string
	mode         string
	singleBranch bool
	stateBackend string
	noState      bool
	watch        bool
	exportMD     string
	exportSVG    string
	exportPNG    string
	visibleOnly  bool
	selectIDs    string
	robotState   bool
	showVersion  bool
	showHelp     bool

	// set records which flags appeared on the command line.
	set   map[string]bool
	paths []string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	o := &options{set: map[string]bool{}}
	fs := flag.NewFlagSet("arbor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.StringVar(&o.configPath, "config", "", "Config file (default: ~/.config/arbor/config.yaml)")
	fs.StringVar(&o.mode, "mode", "", "Selection mode: none, bistate or cascading")
	fs.BoolVar(&o.singleBranch, "single-branch", false, "Expanding a node collapses its siblings")
	fs.StringVar(&o.stateBackend, "state", "", "State backend: json or sqlite")
	fs.BoolVar(&o.noState, "no-state", false, "Neither restore nor save view state")
	fs.BoolVar(&o.watch, "watch", false, "Reload the tree when the file changes")
	fs.StringVar(&o.exportMD, "export-md", "", "Write a Markdown checklist to `file` and exit")
	fs.StringVar(&o.exportSVG, "export-svg", "", "Write an SVG outline to `file` and exit")
	fs.StringVar(&o.exportPNG, "export-png", "", "Write a PNG outline to `file` and exit")
	fs.BoolVar(&o.visibleOnly, "visible-only", false, "Export only visible nodes")
	fs.StringVar(&o.selectIDs, "select", "", "Comma-separated node IDs to select")
	fs.BoolVar(&o.robotState, "robot-state", false, "Print a JSON summary of the tree and exit")
	fs.BoolVar(&o.showVersion, "version", false, "Show version")
	fs.BoolVar(&o.showHelp, "help", false, "Show help")
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: arbor [options] <tree-file>...")
		fmt.Fprintln(stderr, "\nExplore a tree of selectable nodes. Supported sources: .yaml, .json, .jsonl, .db")
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	o.paths = fs.Args()
	if o.showHelp {
		fs.Usage()
	}
	return o, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	o, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}
	if o.showHelp {
		return 0
	}
	if o.showVersion {
		fmt.Fprintf(stdout, "arbor %s\n", version.Version)
		return 0
	}
	if len(o.paths) == 0 {
		fmt.Fprintln(stderr, "Error: no tree file given (see --help)")
		return 2
	}

	cfg, err := loadConfig(o)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	robotMode := o.robotState || os.Getenv(robot.EnvVar) == "1" || !isTerminal(stdout)
	loadOpts := loader.Options{
		WarningHandler: func(msg string) { fmt.Fprintf(stderr, "Warning: %s\n", msg) },
	}

	ctx := context.Background()
	doc, err := loader.LoadAll(ctx, o.paths, loadOpts)
	if err != nil {
		fmt.Fprintf(stderr, "Error loading tree: %v\n", err)
		return 1
	}

	tr, err := buildTree(cfg, o, doc)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}

	var store state.Store
	key := stateKey(o.paths)
	if !o.noState && !cfg.State.Disabled {
		store, err = state.Open(cfg.State.Backend, cfg.StatePath())
		if err != nil {
			fmt.Fprintf(stderr, "Warning: state disabled: %v\n", err)
		} else {
			defer store.Close()
			restoreState(tr, store, key, o, stderr)
		}
	}

	if o.selectIDs != "" {
		selectByID(tr, o.selectIDs, stderr)
	}
	tr.Flush()

	exported, err := runExports(tr, o, doc.Title, stderr)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if exported && !o.robotState {
		return 0
	}

	if robotMode {
		if err := robot.Write(stdout, robot.Summarize(tr, doc.Title, o.paths)); err != nil {
			fmt.Fprintf(stderr, "Error writing summary: %v\n", err)
			return 1
		}
		return 0
	}

	m := ui.NewModel(tr).
		WithConfig(cfg).
		WithTitle(doc.Title).
		WithConfigSaver(configSaver(o))
	if store != nil {
		m = m.WithStateStore(store, key)
	}

	if o.watch || cfg.Watch.Enabled {
		if len(o.paths) > 1 {
			fmt.Fprintln(stderr, "Warning: --watch needs a single tree file; live reload disabled")
		} else {
			w, err := watcher.NewWatcher(o.paths[0],
				watcher.WithDebounceDuration(cfg.Watch.Debounce),
				watcher.WithPollInterval(cfg.Watch.PollInterval),
				watcher.WithForcePoll(cfg.Watch.ForcePoll),
			)
			if err == nil {
				err = w.Start()
			}
			if err != nil {
				fmt.Fprintf(stderr, "Warning: live reload disabled: %v\n", err)
			} else {
				defer w.Stop()
				path := o.paths[0]
				m = m.WithWatcher(w, func() (*model.Document, error) {
					return loader.LoadWithOptions(path, loader.Options{WarningHandler: func(string) {}})
				})
			}
		}
	}

	if err := runTUIProgram(m); err != nil {
		fmt.Fprintf(stderr, "Error running arbor: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads the config file and applies command-line overrides. An
// unreadable default config falls back to the defaults; an explicit --config
// must load.
func loadConfig(o *options) (config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	if o.configPath != "" {
		cfg, err = config.LoadFrom(o.configPath)
		if err != nil {
			return cfg, err
		}
	} else if cfg, err = config.Load(); err != nil {
		// Non-fatal: continue without the user's config
		debug.Log("arbor: %v", err)
		cfg = config.DefaultConfig()
	}
	if o.set["mode"] {
		cfg.Tree.SelectionMode = o.mode
	}
	if o.set["single-branch"] {
		cfg.Tree.SingleBranchExpand = o.singleBranch
	}
	if o.set["state"] {
		cfg.State.Backend = strings.ToLower(o.stateBackend)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// buildTree creates the tree. Document settings override the config file;
// command-line flags override both.
func buildTree(cfg config.Config, o *options, doc *model.Document) (*tree.Tree, error) {
	opts := cfg.TreeOptions()
	if doc.SelectionMode != "" && !o.set["mode"] {
		mode, err := tree.ParseSelectionMode(doc.SelectionMode)
		if err != nil {
			return nil, fmt.Errorf("document selection_mode: %w", err)
		}
		opts = append(opts, tree.WithSelectionMode(mode))
	}
	if doc.SingleBranchExpand != nil && !o.set["single-branch"] {
		opts = append(opts, tree.WithSingleBranchExpand(*doc.SingleBranchExpand))
	}
	tr := tree.New(opts...)
	defer metrics.Timer(metrics.TreeBuild)()
	if err := tr.Build(doc.Nodes); err != nil {
		return nil, fmt.Errorf("building tree: %w", err)
	}
	tr.Flush()
	return tr, nil
}

func stateKey(paths []string) string {
	if len(paths) == 1 {
		return state.Key(paths[0])
	}
	return state.Key(strings.Join(paths, "+"))
}

func restoreState(tr *tree.Tree, store state.Store, key string, o *options, stderr io.Writer) {
	snap, err := store.Load(key)
	switch {
	case errors.Is(err, state.ErrNotFound):
		return
	case err != nil:
		fmt.Fprintf(stderr, "Warning: ignoring saved state: %v\n", err)
		return
	}
	if o.set["mode"] {
		snap.Mode = ""
	}
	state.Apply(tr, snap)
}

func selectByID(tr *tree.Tree, list string, stderr io.Writer) {
	if tr.SelectionMode() == tree.SelectionNone {
		fmt.Fprintln(stderr, "Warning: --select ignored in selection mode none")
		return
	}
	var nodes []*tree.Node
	for _, id := range strings.Split(list, ",") {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		n := tr.NodeByID(id)
		if n == nil {
			fmt.Fprintf(stderr, "Warning: --select: unknown node %q\n", id)
			continue
		}
		nodes = append(nodes, n)
	}
	if len(nodes) > 0 {
		_ = tr.Selection().SelectNodesSilently(nodes, true)
	}
}

func runExports(tr *tree.Tree, o *options, title string, stderr io.Writer) (bool, error) {
	exported := false
	if o.exportMD != "" {
		if err := export.SaveMarkdown(tr, o.exportMD, export.MarkdownOptions{Title: title, VisibleOnly: o.visibleOnly}); err != nil {
			return exported, fmt.Errorf("exporting markdown: %w", err)
		}
		fmt.Fprintf(stderr, "Wrote %s\n", o.exportMD)
		exported = true
	}
	for _, snap := range []struct{ path, format string }{
		{o.exportSVG, "svg"},
		{o.exportPNG, "png"},
	} {
		if snap.path == "" {
			continue
		}
		err := export.SaveSnapshot(tr, export.SnapshotOptions{
			Path:        snap.path,
			Format:      snap.format,
			Title:       title,
			VisibleOnly: o.visibleOnly,
		})
		if err != nil {
			return exported, fmt.Errorf("exporting %s: %w", snap.format, err)
		}
		fmt.Fprintf(stderr, "Wrote %s\n", snap.path)
		exported = true
	}
	return exported, nil
}

func configSaver(o *options) func(config.Config) error {
	if o.configPath != "" {
		path := o.configPath
		return func(c config.Config) error { return config.SaveTo(c, path) }
	}
	return config.Save
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func runTUIProgram(m ui.Model) error {
	p := tea.NewProgram(
		m,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithoutSignalHandler(),
	)

	runDone := make(chan struct{})
	defer close(runDone)

	// Graceful shutdown on SIGINT/SIGTERM.
	sigCh := make(chan os.Signal, 2)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-runDone:
			return
		case <-sigCh:
		}

		p.Quit()

		select {
		case <-runDone:
			return
		case <-sigCh:
		case <-time.After(5 * time.Second):
		}

		p.Kill()
	}()

	// Optional auto-quit for automated tests: set ARBOR_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("ARBOR_TUI_AUTOCLOSE_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil && ms > 0 {
			go func() {
				timer := time.NewTimer(time.Duration(ms) * time.Millisecond)
				defer timer.Stop()

				select {
				case <-runDone:
					return
				case <-timer.C:
				}

				p.Quit()

				select {
				case <-runDone:
					return
				case <-time.After(2 * time.Second):
				}

				p.Kill()
			}()
		}
	}

	debug.Log("arbor: starting TUI")
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
