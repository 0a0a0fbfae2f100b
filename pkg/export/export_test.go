package export

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/testutil"
)

var fixedTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

// branchingConversation has two answers to one question; b is declared
// current.
func branchingConversation() *model.Conversation {
	return testutil.Conversation("b",
		testutil.Root("r", "a"),
		testutil.Turn("a", "r", "user", "hello there", 1700000000, "b", "c"),
		testutil.Turn("b", "a", "assistant", "hi **bold** [x](javascript:alert(1)) see https://example.com", 1700000010),
		testutil.Turn("c", "a", "assistant", "other branch", 1700000020),
		testutil.Hidden(testutil.Turn("h", "r", "system", "secret context", 1699999999)),
	)
}

func newTestSnapshot(t *testing.T, c *model.Conversation, leaf string, cfg filter.Config) *Snapshot {
	t.Helper()
	doc, err := loader.Parse(testutil.Document(c), "fixture.json", loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	snap := NewSnapshot(doc, leaf, cfg, render.ISOTime)
	snap.GeneratedAt = fixedTime
	return snap
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want Format
	}{
		{"html", FormatHTML},
		{".HTM", FormatHTML},
		{"markdown", FormatMarkdown},
		{"md", FormatMarkdown},
		{"sqlite3", FormatSQLite},
		{"db", FormatSQLite},
		{"svg", FormatSVG},
		{" png ", FormatPNG},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if err != nil {
			t.Errorf("ParseFormat(%q) error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	if _, err := ParseFormat("pdf"); !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("ParseFormat(pdf) error = %v, want ErrUnknownFormat", err)
	}
}

func TestDefaultPath(t *testing.T) {
	if got := DefaultPath("out", "chat.json", FormatHTML); got != filepath.Join("out", "chat.html") {
		t.Errorf("got %q", got)
	}
	if got := DefaultPath("out", "chat.json", FormatSQLite); got != filepath.Join("out", "chat.sqlite3") {
		t.Errorf("got %q", got)
	}
	if got := DefaultPath("out", "", FormatMarkdown); got != filepath.Join("out", "conversation.md") {
		t.Errorf("got %q", got)
	}
}

func TestNewSnapshotUsesDeclaredLeaf(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	if snap.View.LeafID != "b" {
		t.Fatalf("leaf = %q, want b", snap.View.LeafID)
	}
	if snap.View.Len() != 2 {
		t.Errorf("records = %d, want 2", snap.View.Len())
	}
	if len(snap.Leaves) != 3 {
		t.Errorf("leaves = %d, want 3", len(snap.Leaves))
	}
	if snap.Meta.Title != "Fixture" || snap.Meta.FileName != "fixture.json" {
		t.Errorf("meta = %+v", snap.Meta)
	}
}

func TestRunAllWritesEveryFormat(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	dir := t.TempDir()

	var jobs []Job
	for _, f := range Formats() {
		jobs = append(jobs, Job{Format: f, Path: DefaultPath(dir, snap.Doc.Source, f)})
	}
	if err := RunAll(context.Background(), snap, jobs); err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	for _, j := range jobs {
		info, err := os.Stat(j.Path)
		if err != nil {
			t.Errorf("%s not written: %v", j.Format, err)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("%s is empty", j.Format)
		}
	}
}

func TestRunAllReportsFailures(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	dir := t.TempDir()
	blocker := testutil.WriteRaw(t, dir, "file", "x")

	err := RunAll(context.Background(), snap, []Job{
		{Format: FormatHTML, Path: filepath.Join(blocker, "sub", "out.html")},
	})
	if err == nil {
		t.Fatal("expected error for unwritable path")
	}

	err = RunAll(context.Background(), snap, []Job{
		{Format: Format("pdf"), Path: filepath.Join(dir, "out.pdf")},
	})
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("error %v does not wrap ErrUnknownFormat", err)
	}
}

func TestWriteRequiresPath(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	if err := Write(context.Background(), snap, Job{Format: FormatHTML}); err == nil {
		t.Fatal("expected error for empty path")
	}
}

func TestWriteHonoursCancelledContext(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	path := filepath.Join(t.TempDir(), "out.md")
	if err := Write(ctx, snap, Job{Format: FormatMarkdown, Path: path}); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file written despite cancellation")
	}
}
