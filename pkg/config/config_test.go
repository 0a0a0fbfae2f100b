package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.UI.TruncateLines != 12 {
		t.Errorf("expected truncate_lines 12, got %d", cfg.UI.TruncateLines)
	}
	if cfg.UI.WordWrap != 80 {
		t.Errorf("expected word_wrap 80, got %d", cfg.UI.WordWrap)
	}
	if cfg.UI.Theme != ThemeAuto {
		t.Errorf("expected theme auto, got %q", cfg.UI.Theme)
	}
	if cfg.View.ShowSystem || cfg.View.ShowHidden {
		t.Error("expected both view toggles off")
	}
	if !cfg.Watch.Enabled {
		t.Error("expected watch enabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLoadFrom_NonExistent(t *testing.T) {
	cfg, err := LoadFrom("/nonexistent/path/config.yaml")
	if err != nil {
		t.Fatalf("expected no error for missing file, got: %v", err)
	}
	if cfg.UI.TruncateLines != 12 {
		t.Errorf("expected default config, got truncate_lines %d", cfg.UI.TruncateLines)
	}
}

func TestLoadFrom_ValidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
view:
  show_system: true
ui:
  truncate_lines: 20
  theme: dark
  time_format: local
sample:
  base_url: http://localhost:8080/
watch:
  poll_interval: 500ms
export:
  dir: ~/exports
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if !cfg.View.ShowSystem || cfg.View.ShowHidden {
		t.Errorf("unexpected view config %+v", cfg.View)
	}
	if cfg.UI.TruncateLines != 20 {
		t.Errorf("expected truncate_lines 20, got %d", cfg.UI.TruncateLines)
	}
	// Unset keys keep their defaults.
	if cfg.UI.WordWrap != 80 {
		t.Errorf("expected default word_wrap, got %d", cfg.UI.WordWrap)
	}
	if cfg.UI.Theme != ThemeDark {
		t.Errorf("expected theme dark, got %q", cfg.UI.Theme)
	}
	if cfg.Sample.BaseURL != "http://localhost:8080/" {
		t.Errorf("unexpected base url %q", cfg.Sample.BaseURL)
	}
	if !cfg.Watch.Enabled || cfg.Watch.PollInterval != 500*time.Millisecond {
		t.Errorf("unexpected watch config %+v", cfg.Watch)
	}
	home, _ := os.UserHomeDir()
	if want := filepath.Join(home, "exports"); cfg.Export.Dir != want {
		t.Errorf("expected expanded export dir %q, got %q", want, cfg.Export.Dir)
	}
}

func TestLoadFrom_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("{{invalid yaml"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFrom_InvalidValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	if err := os.WriteFile(path, []byte("ui:\n  theme: neon\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFrom(path); err == nil {
		t.Error("expected error for unknown theme")
	}
}

func TestSaveAndLoad_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.View.ShowHidden = true
	cfg.UI.Theme = ThemeLight
	cfg.Watch.Enabled = false
	cfg.Export.Dir = "/tmp/out"

	if err := SaveTo(cfg, path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("Load after save failed: %v", err)
	}
	if !loaded.View.ShowHidden || loaded.UI.Theme != ThemeLight || loaded.Watch.Enabled || loaded.Export.Dir != "/tmp/out" {
		t.Errorf("round trip lost values: %+v", loaded)
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"TV_SHOW_SYSTEM":    "1",
		"TV_WATCH":          "false",
		"TV_TRUNCATE_LINES": "4",
		"TV_THEME":          "notty",
		"TV_SAMPLE_BASE":    "file:///tmp/",
	}
	cfg := DefaultConfig()
	if err := ApplyEnv(&cfg, func(k string) string { return env[k] }); err != nil {
		t.Fatalf("ApplyEnv: %v", err)
	}
	if !cfg.View.ShowSystem || cfg.View.ShowHidden {
		t.Errorf("unexpected view %+v", cfg.View)
	}
	if cfg.Watch.Enabled {
		t.Error("expected TV_WATCH=false to disable watching")
	}
	if cfg.UI.TruncateLines != 4 || cfg.UI.Theme != ThemeNoTTY {
		t.Errorf("unexpected ui %+v", cfg.UI)
	}
	if cfg.Sample.BaseURL != "file:///tmp/" {
		t.Errorf("unexpected base url %q", cfg.Sample.BaseURL)
	}
}

func TestApplyEnv_Invalid(t *testing.T) {
	tests := []map[string]string{
		{"TV_SHOW_HIDDEN": "maybe"},
		{"TV_TRUNCATE_LINES": "lots"},
		{"TV_TRUNCATE_LINES": "-1"},
		{"TV_THEME": "neon"},
	}
	for _, env := range tests {
		cfg := DefaultConfig()
		if err := ApplyEnv(&cfg, func(k string) string { return env[k] }); err == nil {
			t.Errorf("expected error for %v", env)
		}
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ui:\n  theme: dark\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TV_CONFIG", path)
	t.Setenv("TV_THEME", "light")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.UI.Theme != ThemeLight {
		t.Errorf("expected env to win, got %q", cfg.UI.Theme)
	}
}

func TestTimeFormatter(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	cfg := DefaultConfig()
	if got := cfg.TimeFormatter()(at); got != "2024-03-01T12:00:00.000Z" {
		t.Errorf("iso format = %q", got)
	}

	cfg.UI.TimeFormat = "2006"
	if got := cfg.TimeFormatter()(at); got != at.Local().Format("2006") {
		t.Errorf("layout format = %q", got)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}

	tests := []struct {
		input    string
		expected string
	}{
		{"~/foo", filepath.Join(home, "foo")},
		{"~/", filepath.Join(home, "")},
		{"/absolute", "/absolute"},
		{"relative", "relative"},
	}

	for _, tt := range tests {
		if got := expandHome(tt.input); got != tt.expected {
			t.Errorf("expandHome(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestConfigDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("TV_CONFIG", "")

	if got, want := ConfigDir(), filepath.Join(dir, AppName); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
	if got, want := ConfigPath(), filepath.Join(dir, AppName, "config.yaml"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestStateDir_XDGOverride(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_STATE_HOME", dir)

	if got, want := StateDir(), filepath.Join(dir, AppName); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}
