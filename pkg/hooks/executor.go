package hooks

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/vanderheijden86/threadview/pkg/debug"
)

// Result is the outcome of one hook run.
type Result struct {
	Hook     Hook
	Phase    HookPhase
	Success  bool
	Stdout   string
	Stderr   string
	Duration time.Duration
	Error    error
}

// Executor runs the hooks of one export.
type Executor struct {
	config  *Config
	context ExportContext
	results []Result
}

// NewExecutor prepares hooks from config for the export described by ctx.
func NewExecutor(config *Config, ctx ExportContext) *Executor {
	if config == nil {
		config = &Config{}
	}
	return &Executor{config: config, context: ctx}
}

// RunPreExport runs the pre-export hooks in order and stops at the first
// failing hook with on_error=fail.
func (e *Executor) RunPreExport() error {
	for _, hook := range e.config.Phase(PreExport) {
		res := e.run(hook, PreExport)
		if !res.Success && hook.OnError != OnErrorContinue {
			return fmt.Errorf("pre-export hook %q failed: %w", hook.Name, res.Error)
		}
	}
	return nil
}

// RunPostExport runs every post-export hook. Failures of hooks with
// on_error=fail are joined into the returned error.
func (e *Executor) RunPostExport() error {
	var errs []error
	for _, hook := range e.config.Phase(PostExport) {
		res := e.run(hook, PostExport)
		if !res.Success && hook.OnError == OnErrorFail {
			errs = append(errs, fmt.Errorf("post-export hook %q failed: %w", hook.Name, res.Error))
		}
	}
	return errors.Join(errs...)
}

// Results returns the results in run order.
func (e *Executor) Results() []Result {
	return e.results
}

func (e *Executor) run(hook Hook, phase HookPhase) Result {
	timeout := hook.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "sh", "-c", hook.Command)
	cmd.Env = append(os.Environ(), e.context.ToEnv()...)
	for k, v := range hook.Env {
		cmd.Env = append(cmd.Env, k+"="+os.ExpandEnv(v))
	}
	cmd.WaitDelay = time.Second
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := Result{
		Hook:     hook,
		Phase:    phase,
		Success:  err == nil,
		Stdout:   strings.TrimSpace(stdout.String()),
		Stderr:   strings.TrimSpace(stderr.String()),
		Duration: time.Since(start),
		Error:    err,
	}
	if ctx.Err() == context.DeadlineExceeded {
		res.Success = false
		res.Error = fmt.Errorf("timed out after %s", timeout)
	}
	debug.Log("hooks: %s %q success=%v in %s", phase, hook.Name, res.Success, res.Duration)
	e.results = append(e.results, res)
	return res
}

// Summary describes the runs for the CLI, or "" when nothing ran.
func (e *Executor) Summary() string {
	if len(e.results) == 0 {
		return ""
	}
	ok, failed := 0, 0
	var sb strings.Builder
	for _, r := range e.results {
		if r.Success {
			ok++
			continue
		}
		failed++
		fmt.Fprintf(&sb, "  %s %s: %v\n", r.Phase, r.Hook.Name, r.Error)
		if r.Stderr != "" {
			fmt.Fprintf(&sb, "    stderr: %s\n", oneLine(r.Stderr, 200))
		}
	}
	return fmt.Sprintf("Hooks: %d succeeded, %d failed\n", ok, failed) + sb.String()
}

// RunHooks loads the hooks of projectDir and returns an executor for ctx.
// It returns nil when noHooks is set or nothing is configured.
func RunHooks(projectDir string, ctx ExportContext, noHooks bool) (*Executor, error) {
	if noHooks {
		return nil, nil
	}
	cfg, err := Load(projectDir)
	if err != nil {
		return nil, err
	}
	for _, w := range cfg.Warnings {
		debug.Log("hooks: %s", w)
	}
	if cfg.Empty() {
		return nil, nil
	}
	return NewExecutor(cfg, ctx), nil
}

// oneLine flattens s and cuts it to max bytes with a trailing "...".
func oneLine(s string, max int) string {
	s = strings.Join(strings.Fields(s), " ")
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
