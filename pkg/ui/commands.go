package ui

import (
	"context"
	"time"

	"github.com/atotto/clipboard"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/watcher"
)

// reloadTimeout bounds a reload triggered by a file change.
const reloadTimeout = 30 * time.Second

// LoadFunc loads the document the viewer was opened with. It is called
// again whenever the file changes on disk.
type LoadFunc func(ctx context.Context) (*loader.Document, error)

// FileChangedMsg is sent when the conversation file changes on disk.
type FileChangedMsg struct{}

// DocumentLoadedMsg carries the result of a reload.
type DocumentLoadedMsg struct {
	Doc *loader.Document
	Err error
}

// copiedMsg reports the outcome of a clipboard copy.
type copiedMsg struct {
	chars int
	err   error
}

// WatchFileCmd returns a command that waits for file changes and sends FileChangedMsg
func WatchFileCmd(w *watcher.Watcher) tea.Cmd {
	return func() tea.Msg {
		<-w.Changed()
		return FileChangedMsg{}
	}
}

// ReloadCmd runs load in the background and reports a DocumentLoadedMsg.
func ReloadCmd(load LoadFunc) tea.Cmd {
	if load == nil {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), reloadTimeout)
		defer cancel()
		doc, err := load(ctx)
		return DocumentLoadedMsg{Doc: doc, Err: err}
	}
}

// ClipboardWriter writes text to the system clipboard.
type ClipboardWriter func(string) error

// SystemClipboard uses the platform clipboard.
func SystemClipboard(text string) error {
	return clipboard.WriteAll(text)
}

func copyCmd(write ClipboardWriter, text string) tea.Cmd {
	return func() tea.Msg {
		return copiedMsg{chars: len([]rune(text)), err: write(text)}
	}
}
