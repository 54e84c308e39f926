// Package config handles loading and saving arbor configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/arbor/config.yaml
//   - Data:    ~/.local/share/arbor/ (exports)
//   - State:   ~/.local/state/arbor/ (saved tree state)
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/arbor/pkg/tree"
)

const appName = "arbor"

// State backends.
const (
	BackendJSON   = "json"
	BackendSQLite = "sqlite"
)

// TreeConfig holds the engine defaults applied to every loaded tree.
type TreeConfig struct {
	SelectionMode      string `yaml:"selection_mode,omitempty"` // none, bistate, cascading
	SingleBranchExpand bool   `yaml:"single_branch_expand,omitempty"`
	ToggleNodeOnClick  bool   `yaml:"toggle_node_on_click,omitempty"`
	CollapseAnimation  bool   `yaml:"collapse_animation,omitempty"` // collapse through a visible collapsing phase
}

// UIConfig holds terminal explorer preferences.
type UIConfig struct {
	ShowHelp        bool          `yaml:"show_help"`
	KeyRepeatWindow time.Duration `yaml:"key_repeat_window,omitempty"` // same key within this window counts as a repeat
	PreviewWidth    int           `yaml:"preview_width,omitempty"`
}

// StateConfig controls where expansion and selection state is persisted.
type StateConfig struct {
	Backend  string `yaml:"backend,omitempty"` // json or sqlite
	Dir      string `yaml:"dir,omitempty"`
	Disabled bool   `yaml:"disabled,omitempty"`
}

// WatchConfig controls live reload of the tree file.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled,omitempty"`
	Debounce     time.Duration `yaml:"debounce,omitempty"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"`
	ForcePoll    bool          `yaml:"force_poll,omitempty"`
}

// Config is the top-level configuration for arbor.
type Config struct {
	Tree  TreeConfig  `yaml:"tree,omitempty"`
	UI    UIConfig    `yaml:"ui,omitempty"`
	State StateConfig `yaml:"state,omitempty"`
	Watch WatchConfig `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Tree: TreeConfig{
			SelectionMode: "cascading",
		},
		UI: UIConfig{
			ShowHelp:        true,
			KeyRepeatWindow: 150 * time.Millisecond,
			PreviewWidth:    80,
		},
		State: StateConfig{
			Backend: BackendJSON,
		},
		Watch: WatchConfig{
			Debounce:     200 * time.Millisecond,
			PollInterval: 2 * time.Second,
		},
	}
}

// Validate rejects values the rest of the program cannot act on.
func (c Config) Validate() error {
	if _, err := tree.ParseSelectionMode(c.Tree.SelectionMode); err != nil {
		return fmt.Errorf("tree.selection_mode: %w", err)
	}
	switch strings.ToLower(c.State.Backend) {
	case "", BackendJSON, BackendSQLite:
	default:
		return fmt.Errorf("state.backend: unknown backend %q (want json or sqlite)", c.State.Backend)
	}
	if c.UI.KeyRepeatWindow < 0 {
		return fmt.Errorf("ui.key_repeat_window: must not be negative")
	}
	if c.UI.PreviewWidth < 0 {
		return fmt.Errorf("ui.preview_width: must not be negative")
	}
	if c.Watch.Debounce < 0 || c.Watch.PollInterval < 0 {
		return fmt.Errorf("watch: durations must not be negative")
	}
	return nil
}

// SelectionMode parses Tree.SelectionMode, falling back to cascading.
func (c Config) SelectionMode() tree.SelectionMode {
	mode, err := tree.ParseSelectionMode(c.Tree.SelectionMode)
	if err != nil {
		return tree.SelectionCascading
	}
	return mode
}

// TreeOptions translates the tree section into engine options.
func (c Config) TreeOptions() []tree.Option {
	return []tree.Option{
		tree.WithSelectionMode(c.SelectionMode()),
		tree.WithSingleBranchExpand(c.Tree.SingleBranchExpand),
		tree.WithToggleNodeOnClick(c.Tree.ToggleNodeOnClick),
		tree.WithAnimation(c.Tree.CollapseAnimation),
	}
}

// StatePath returns the directory for saved tree state.
func (c Config) StatePath() string {
	if c.State.Dir != "" {
		return c.State.Dir
	}
	return StateDir()
}

// ConfigDir returns the XDG config directory for arbor.
func ConfigDir() string {
	return xdgDir("XDG_CONFIG_HOME", ".config")
}

// DataDir returns the XDG data directory for arbor.
func DataDir() string {
	return xdgDir("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

// StateDir returns the XDG state directory for arbor.
func StateDir() string {
	return xdgDir("XDG_STATE_HOME", filepath.Join(".local", "state"))
}

func xdgDir(env, fallback string) string {
	if dir := os.Getenv(env); dir != "" {
		return filepath.Join(dir, appName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, fallback, appName)
}

// ConfigPath returns the full path to config.yaml.
func ConfigPath() string {
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from the XDG config directory.
// Returns DefaultConfig if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	if path == "" {
		return DefaultConfig(), nil
	}
	return LoadFrom(path)
}

// LoadFrom reads config from a specific path.
// Returns DefaultConfig if the file doesn't exist.
func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}
	cfg.State.Dir = expandHome(cfg.State.Dir)
	cfg.State.Backend = strings.ToLower(cfg.State.Backend)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to the XDG config directory.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}
