package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/threadview/internal/datasource"
	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/session"
	"github.com/vanderheijden86/threadview/pkg/ui"
	"github.com/vanderheijden86/threadview/pkg/watcher"
)

// watchable reports whether src is a local file that can change on disk.
func watchable(src datasource.DataSource) bool {
	return src.Type == datasource.SourceTypeJSON || src.Type == datasource.SourceTypeSQLite
}

func runTUI(sess *session.Session, cfg config.Config, src datasource.DataSource, loadOpts datasource.LoadOptions) error {
	opts := ui.Options{Config: cfg}

	// Stdin was consumed by the load; everything else can be read again.
	if src.Type != "" && src.Type != datasource.SourceTypeStdin {
		opts.Reload = func(ctx context.Context) (*loader.Document, error) {
			return datasource.Load(ctx, src, loadOpts)
		}
	}

	if cfg.Watch.Enabled && watchable(src) {
		w, err := watcher.New(src.Path,
			watcher.WithPollInterval(cfg.Watch.PollInterval),
			watcher.WithOnError(func(err error) { debug.Log("watcher: %v", err) }),
		)
		if err == nil {
			err = w.Start(context.Background())
		}
		if err != nil {
			debug.Log("tui: live reload disabled: %v", err)
		} else {
			defer w.Stop()
			opts.Watcher = w
		}
	}

	progOpts := []tea.ProgramOption{tea.WithAltScreen(), tea.WithoutSignalHandler()}
	if src.Type == datasource.SourceTypeStdin {
		progOpts = append(progOpts, tea.WithInputTTY())
	}
	return runTUIProgram(ui.NewModel(sess, opts), progOpts...)
}

func runTUIProgram(m ui.Model, opts ...tea.ProgramOption) error {
	p := tea.NewProgram(m, opts...)

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

	// Optional auto-quit for automated tests: set TV_TUI_AUTOCLOSE_MS.
	if v := os.Getenv("TV_TUI_AUTOCLOSE_MS"); v != "" {
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
			}()
		}
	}

	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, tea.ErrInterrupted) {
		return nil
	}
	return err
}
