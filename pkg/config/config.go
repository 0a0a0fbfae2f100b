// Package config handles loading and saving threadview configuration.
//
// Configuration follows the XDG Base Directory specification:
//   - Config: ~/.config/threadview/config.yaml
//   - State:  ~/.local/state/threadview/ (remembered export answers)
//
// Precedence is flags > environment (TV_*) > file > defaults. Flags are
// applied by the caller after Load.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/render"
)

// AppName names the XDG subdirectories.
const AppName = "threadview"

// Theme values understood by the terminal renderer.
const (
	ThemeAuto  = "auto"
	ThemeDark  = "dark"
	ThemeLight = "light"
	ThemeNoTTY = "notty"
)

// Time format keywords. Any other value is used as a Go time layout in the
// local zone.
const (
	TimeFormatISO   = "iso"
	TimeFormatLocal = "local"
)

// UIConfig holds presentation settings.
type UIConfig struct {
	TruncateLines int    `yaml:"truncate_lines,omitempty"` // Rendered lines before a message collapses
	WordWrap      int    `yaml:"word_wrap,omitempty"`      // Markdown wrap width
	Theme         string `yaml:"theme,omitempty"`          // auto, dark, light, notty
	TimeFormat    string `yaml:"time_format,omitempty"`    // iso, local, or a Go layout
}

// SampleConfig locates the bundled sample conversation.
type SampleConfig struct {
	BaseURL string `yaml:"base_url,omitempty"`
}

// WatchConfig controls live reload of the opened file.
type WatchConfig struct {
	Enabled      bool          `yaml:"enabled"`
	PollInterval time.Duration `yaml:"poll_interval,omitempty"` // Used on filesystems without inotify
}

// ExportConfig holds export defaults.
type ExportConfig struct {
	Dir     string `yaml:"dir,omitempty"`
	NoHooks bool   `yaml:"no_hooks,omitempty"`
}

// Config is the top-level configuration.
type Config struct {
	View   filter.Config `yaml:"view"`
	UI     UIConfig      `yaml:"ui,omitempty"`
	Sample SampleConfig  `yaml:"sample,omitempty"`
	Watch  WatchConfig   `yaml:"watch"`
	Export ExportConfig  `yaml:"export,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		UI: UIConfig{
			TruncateLines: 12,
			WordWrap:      80,
			Theme:         ThemeAuto,
			TimeFormat:    TimeFormatISO,
		},
		Sample: SampleConfig{
			BaseURL: "https://raw.githubusercontent.com/vanderheijden86/threadview/main/",
		},
		Watch: WatchConfig{
			Enabled:      true,
			PollInterval: 2 * time.Second,
		},
		Export: ExportConfig{
			Dir: ".",
		},
	}
}

// ConfigDir returns the XDG config directory.
func ConfigDir() string {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".config", AppName)
}

// StateDir returns the XDG state directory.
func StateDir() string {
	if dir := os.Getenv("XDG_STATE_HOME"); dir != "" {
		return filepath.Join(dir, AppName)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".local", "state", AppName)
}

// ConfigPath returns the full path to config.yaml. TV_CONFIG overrides it.
func ConfigPath() string {
	if p := os.Getenv("TV_CONFIG"); p != "" {
		return expandHome(p)
	}
	dir := ConfigDir()
	if dir == "" {
		return ""
	}
	return filepath.Join(dir, "config.yaml")
}

// Load reads the config file and applies TV_* environment overrides.
// Returns DefaultConfig (plus env) if the file doesn't exist.
func Load() (Config, error) {
	path := ConfigPath()
	cfg := DefaultConfig()
	if path != "" {
		var err error
		cfg, err = LoadFrom(path)
		if err != nil {
			return cfg, err
		}
	}
	return cfg, ApplyEnv(&cfg, os.Getenv)
}

// LoadFrom reads config from a specific path without environment overrides.
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
	cfg.Export.Dir = expandHome(cfg.Export.Dir)
	return cfg, cfg.Validate()
}

// ApplyEnv overlays TV_* variables read through getenv.
func ApplyEnv(cfg *Config, getenv func(string) string) error {
	bools := []struct {
		key string
		dst *bool
	}{
		{"TV_SHOW_SYSTEM", &cfg.View.ShowSystem},
		{"TV_SHOW_HIDDEN", &cfg.View.ShowHidden},
		{"TV_WATCH", &cfg.Watch.Enabled},
		{"TV_NO_HOOKS", &cfg.Export.NoHooks},
	}
	for _, b := range bools {
		v := strings.TrimSpace(getenv(b.key))
		if v == "" {
			continue
		}
		on, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%s: %w", b.key, err)
		}
		*b.dst = on
	}

	if v := getenv("TV_TRUNCATE_LINES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("TV_TRUNCATE_LINES: %w", err)
		}
		cfg.UI.TruncateLines = n
	}
	if v := getenv("TV_THEME"); v != "" {
		cfg.UI.Theme = v
	}
	if v := getenv("TV_TIME_FORMAT"); v != "" {
		cfg.UI.TimeFormat = v
	}
	if v := getenv("TV_SAMPLE_BASE"); v != "" {
		cfg.Sample.BaseURL = v
	}
	if v := getenv("TV_EXPORT_DIR"); v != "" {
		cfg.Export.Dir = expandHome(v)
	}
	return cfg.Validate()
}

// Validate rejects values the viewer cannot use.
func (c Config) Validate() error {
	if c.UI.TruncateLines < 0 {
		return fmt.Errorf("ui.truncate_lines must be >= 0, got %d", c.UI.TruncateLines)
	}
	if c.UI.WordWrap < 0 {
		return fmt.Errorf("ui.word_wrap must be >= 0, got %d", c.UI.WordWrap)
	}
	switch c.UI.Theme {
	case "", ThemeAuto, ThemeDark, ThemeLight, ThemeNoTTY:
	default:
		return fmt.Errorf("ui.theme: unknown theme %q", c.UI.Theme)
	}
	if c.Watch.PollInterval < 0 {
		return fmt.Errorf("watch.poll_interval must be >= 0, got %s", c.Watch.PollInterval)
	}
	return nil
}

// TimeFormatter returns the display formatter for ui.time_format.
func (c Config) TimeFormatter() render.TimeFormatter {
	switch strings.ToLower(c.UI.TimeFormat) {
	case "", TimeFormatISO:
		return render.ISOTime
	case TimeFormatLocal:
		return render.LocalTime("")
	}
	return render.LocalTime(c.UI.TimeFormat)
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
