// Package config handles loading and saving lt configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config:  ~/.config/lt/config.yaml
//   - State:   ~/.local/state/lt/ (debug logs, cpu profiles)
//
// LT_CONFIG overrides the config file path.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/lazytree/pkg/lazytree"
	"github.com/vanderheijden86/lazytree/pkg/loader"
)

// TreeConfig holds presentation settings of the tree view.
type TreeConfig struct {
	ItemHeight        int  `yaml:"item_height,omitempty"`
	HideCheckboxes    bool `yaml:"hide_checkboxes,omitempty"`
	ExpandedByDefault bool `yaml:"expanded_by_default,omitempty"`
	IndentWidth       int  `yaml:"indent_width,omitempty"`
	Overscan          int  `yaml:"overscan,omitempty"`
	LoadMargin        int  `yaml:"load_margin,omitempty"`
}

// LoadingConfig controls how pages are fetched.
type LoadingConfig struct {
	PageSize      int `yaml:"page_size,omitempty"`
	MaxConcurrent int `yaml:"max_concurrent,omitempty"`
	MaxRetries    int `yaml:"max_retries,omitempty"`
	LatencyMS     int `yaml:"latency_ms,omitempty"` // Artificial delay for synthetic sources
}

// SelectionConfig picks the selection policy.
type SelectionConfig struct {
	Mode string `yaml:"mode,omitempty"` // multiple, single, readonly
}

// WatchConfig controls directory watching for dir: sources.
type WatchConfig struct {
	Enabled    bool `yaml:"enabled"`
	DebounceMS int  `yaml:"debounce_ms,omitempty"`
}

// Config is the top-level configuration for lt.
type Config struct {
	Source    string          `yaml:"source,omitempty"`
	Tree      TreeConfig      `yaml:"tree,omitempty"`
	Loading   LoadingConfig   `yaml:"loading,omitempty"`
	Selection SelectionConfig `yaml:"selection,omitempty"`
	Watch     WatchConfig     `yaml:"watch,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Source: "dir:.",
		Tree: TreeConfig{
			ItemHeight:  lazytree.MinItemHeight,
			IndentWidth: 2,
			Overscan:    lazytree.DefaultOverscanRowCount,
			LoadMargin:  lazytree.DefaultLoadMargin,
		},
		Loading: LoadingConfig{
			PageSize:      loader.DefaultPageSize,
			MaxConcurrent: 4,
			MaxRetries:    2,
		},
		Selection: SelectionConfig{
			Mode: "multiple",
		},
		Watch: WatchConfig{
			Enabled:    true,
			DebounceMS: 200,
		},
	}
}

// ConfigDir returns the XDG config directory for lt.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "lt")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", "lt")
}

// StateDir returns the XDG state directory for lt.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, "lt")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", "lt")
}

// ConfigPath returns the full path to config.yaml, honouring LT_CONFIG.
func ConfigPath() string {
	if p := os.Getenv("LT_CONFIG"); p != "" {
		return expandHome(p)
	}
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file from ConfigPath.
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

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config: %w", err)
	}

	if strings.HasPrefix(cfg.Source, "~") {
		cfg.Source = expandHome(cfg.Source)
	} else if typ, arg, ok := strings.Cut(cfg.Source, ":"); ok && strings.HasPrefix(arg, "~") {
		cfg.Source = typ + ":" + expandHome(arg)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Save writes the config to ConfigPath.
func Save(cfg Config) error {
	path := ConfigPath()
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	return SaveTo(cfg, path)
}

// SaveTo writes the config to a specific path.
func SaveTo(cfg Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
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

// Validate reports every out-of-range value.
func (c Config) Validate() error {
	var errs []error
	if c.Tree.ItemHeight < 0 {
		errs = append(errs, fmt.Errorf("tree.item_height must not be negative, got %d", c.Tree.ItemHeight))
	}
	if c.Tree.IndentWidth < 0 || c.Tree.IndentWidth > 16 {
		errs = append(errs, fmt.Errorf("tree.indent_width must be within 0-16, got %d", c.Tree.IndentWidth))
	}
	if c.Loading.PageSize < 0 {
		errs = append(errs, fmt.Errorf("loading.page_size must not be negative, got %d", c.Loading.PageSize))
	}
	if c.Loading.MaxConcurrent < 0 {
		errs = append(errs, fmt.Errorf("loading.max_concurrent must not be negative, got %d", c.Loading.MaxConcurrent))
	}
	if c.Loading.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("loading.max_retries must not be negative, got %d", c.Loading.MaxRetries))
	}
	if c.Loading.LatencyMS < 0 {
		errs = append(errs, fmt.Errorf("loading.latency_ms must not be negative, got %d", c.Loading.LatencyMS))
	}
	switch strings.ToLower(c.Selection.Mode) {
	case "", "multiple", "multi", "single", "readonly", "read-only", "ro":
	default:
		errs = append(errs, fmt.Errorf("selection.mode %q is not one of multiple, single, readonly", c.Selection.Mode))
	}
	if c.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("watch.debounce_ms must not be negative, got %d", c.Watch.DebounceMS))
	}
	return errors.Join(errs...)
}

// TreeOptions converts the tree section to engine options.
func (c Config) TreeOptions() lazytree.Options {
	return lazytree.Options{
		ItemHeight:     c.Tree.ItemHeight,
		HideCheckboxes: c.Tree.HideCheckboxes,
		Overscan:       c.Tree.Overscan,
		LoadMargin:     c.Tree.LoadMargin,
	}.Normalize()
}

// Latency returns loading.latency_ms as a duration.
func (c Config) Latency() time.Duration {
	return time.Duration(c.Loading.LatencyMS) * time.Millisecond
}

// Debounce returns watch.debounce_ms as a duration.
func (c Config) Debounce() time.Duration {
	return time.Duration(c.Watch.DebounceMS) * time.Millisecond
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
