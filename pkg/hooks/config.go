// Package hooks runs user commands around an export. Hooks live in
// .threadview/hooks.yaml under the working directory:
//
//	hooks:
//	  pre-export:
//	    - name: lint
//	      command: test -n "$TV_EXPORT_LEAF_ID"
//	  post-export:
//	    - command: rsync "$TV_EXPORT_PATH" host:site/
//	      timeout: 1m
//	      on_error: continue
package hooks

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// HookPhase says when a hook runs relative to the written file.
type HookPhase string

const (
	// PreExport runs before the file is written; a failing hook with
	// on_error=fail cancels that export.
	PreExport HookPhase = "pre-export"
	// PostExport runs once the file exists. Failures are reported only.
	PostExport HookPhase = "post-export"
)

// OnError values.
const (
	OnErrorFail     = "fail"
	OnErrorContinue = "continue"
)

// DefaultTimeout applies to hooks without a timeout.
const DefaultTimeout = 30 * time.Second

// ConfigFile is the hooks file relative to the project directory.
var ConfigFile = filepath.Join(".threadview", "hooks.yaml")

// Hook is one configured shell command.
type Hook struct {
	Name    string            `yaml:"name" json:"name"`
	Command string            `yaml:"command" json:"command"`
	Timeout time.Duration     `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Env     map[string]string `yaml:"env,omitempty" json:"env,omitempty"`
	OnError string            `yaml:"on_error,omitempty" json:"on_error,omitempty"`
}

// Config is the parsed hooks file.
type Config struct {
	Hooks HooksByPhase `yaml:"hooks" json:"hooks"`

	// Warnings collects problems that were repaired while loading.
	Warnings []string `yaml:"-" json:"warnings,omitempty"`
}

// HooksByPhase groups hooks by phase, in file order.
type HooksByPhase struct {
	PreExport  []Hook `yaml:"pre-export,omitempty" json:"pre-export,omitempty"`
	PostExport []Hook `yaml:"post-export,omitempty" json:"post-export,omitempty"`
}

// Phase returns the hooks of p.
func (c *Config) Phase(p HookPhase) []Hook {
	if c == nil {
		return nil
	}
	switch p {
	case PreExport:
		return c.Hooks.PreExport
	case PostExport:
		return c.Hooks.PostExport
	}
	return nil
}

// Empty reports whether no hook is configured.
func (c *Config) Empty() bool {
	return len(c.Phase(PreExport)) == 0 && len(c.Phase(PostExport)) == 0
}

// ExportContext describes one written file to its hooks.
type ExportContext struct {
	ExportPath   string
	ExportFormat string // html, md, sqlite, svg, png
	Source       string // conversation the export was made from
	LeafID       string // active leaf of the exported branch
	MessageCount int    // records in the exported view
	Timestamp    time.Time
}

// ToEnv returns the TV_EXPORT_* variables handed to every hook.
func (c ExportContext) ToEnv() []string {
	return []string{
		"TV_EXPORT_PATH=" + c.ExportPath,
		"TV_EXPORT_FORMAT=" + c.ExportFormat,
		"TV_EXPORT_SOURCE=" + c.Source,
		"TV_EXPORT_LEAF_ID=" + c.LeafID,
		"TV_EXPORT_MESSAGE_COUNT=" + strconv.Itoa(c.MessageCount),
		"TV_EXPORT_TIMESTAMP=" + c.Timestamp.Format(time.RFC3339),
	}
}

// Load reads the hooks file under dir ("" means the working directory).
// A missing file yields an empty Config.
func Load(dir string) (*Config, error) {
	path := filepath.Join(dir, ConfigFile)
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return &Config{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read hooks: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	cfg.Hooks.PreExport = cfg.normalize(PreExport, cfg.Hooks.PreExport)
	cfg.Hooks.PostExport = cfg.normalize(PostExport, cfg.Hooks.PostExport)
	return &cfg, nil
}

// normalize fills defaults and drops hooks without a command. Pre-export
// hooks fail the export by default; post-export hooks continue.
func (c *Config) normalize(phase HookPhase, hooks []Hook) []Hook {
	kept := hooks[:0]
	for i, h := range hooks {
		pos := fmt.Sprintf("%s hook %d", phase, i+1)
		if strings.TrimSpace(h.Command) == "" {
			c.Warnings = append(c.Warnings, pos+" has no command; skipped")
			continue
		}
		if h.Name == "" {
			h.Name = fmt.Sprintf("%s-%d", phase, i+1)
		}
		if h.Timeout <= 0 {
			h.Timeout = DefaultTimeout
		}
		switch h.OnError {
		case OnErrorFail, OnErrorContinue:
		case "":
			h.OnError = OnErrorContinue
			if phase == PreExport {
				h.OnError = OnErrorFail
			}
		default:
			c.Warnings = append(c.Warnings, fmt.Sprintf("%s: on_error %q is not fail or continue; using fail", pos, h.OnError))
			h.OnError = OnErrorFail
		}
		kept = append(kept, h)
	}
	return kept
}

// UnmarshalYAML reads timeout as a Go duration ("90s") or as seconds.
func (h *Hook) UnmarshalYAML(node *yaml.Node) error {
	var raw struct {
		Name    string            `yaml:"name"`
		Command string            `yaml:"command"`
		Timeout string            `yaml:"timeout"`
		Env     map[string]string `yaml:"env"`
		OnError string            `yaml:"on_error"`
	}
	if err := node.Decode(&raw); err != nil {
		return err
	}
	*h = Hook{Name: raw.Name, Command: raw.Command, Env: raw.Env, OnError: raw.OnError}
	if raw.Timeout == "" {
		return nil
	}
	if d, err := time.ParseDuration(raw.Timeout); err == nil {
		h.Timeout = d
		return nil
	}
	secs, err := strconv.ParseFloat(raw.Timeout, 64)
	if err != nil || secs < 0 {
		return fmt.Errorf("hook %q: invalid timeout %q", raw.Name, raw.Timeout)
	}
	h.Timeout = time.Duration(secs * float64(time.Second))
	return nil
}
