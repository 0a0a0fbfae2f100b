package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/testutil"
)

func renderPage(t *testing.T, snap *Snapshot) string {
	t.Helper()
	var buf bytes.Buffer
	if err := RenderHTML(&buf, snap); err != nil {
		t.Fatalf("RenderHTML: %v", err)
	}
	return buf.String()
}

func TestRenderHTMLTranscript(t *testing.T) {
	out := renderPage(t, newTestSnapshot(t, branchingConversation(), "", filter.Config{}))

	for _, want := range []string{
		`<title>Fixture</title>`,
		`id="msg-msg-a"`,
		`id="msg-msg-b"`,
		`<strong>bold</strong>`,
		`target="_blank"`,
		`rel="noopener noreferrer"`,
		`data-kind="ok"`,
		`class="truncatable"`,
		`3 branches in this conversation`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("page missing %q", want)
		}
	}
	// The branch list may quote the source text; only a live link is a leak.
	if strings.Contains(out, `href="javascript:`) {
		t.Error("disallowed link scheme rendered as a link")
	}
	if strings.Contains(out, `id="msg-msg-c"`) {
		t.Error("message from another branch rendered")
	}
	if strings.Contains(out, `id="msg-msg-h"`) {
		t.Error("hidden system message rendered with filters off")
	}
}

func TestRenderHTMLShowsHiddenWhenEnabled(t *testing.T) {
	c := testutil.Conversation("x",
		testutil.Root("r", "h"),
		testutil.Hidden(testutil.Turn("h", "r", "system", "secret context", 1, "x")),
		testutil.Turn("x", "h", "user", "question", 2),
	)
	out := renderPage(t, newTestSnapshot(t, c, "", filter.Config{ShowHidden: true, ShowSystem: true}))
	if !strings.Contains(out, "secret context") {
		t.Error("hidden message missing")
	}
	if !strings.Contains(out, `msg system hidden`) {
		t.Error("hidden message not styled")
	}
}

func TestRenderHTMLEmptyView(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{Query: "no such words"})
	out := renderPage(t, snap)
	if !strings.Contains(out, `class="empty"`) {
		t.Error("empty placeholder missing")
	}
	if !strings.Contains(out, "No matching messages") {
		t.Error("empty status text missing")
	}
}

func TestRenderHTMLEscapesTitle(t *testing.T) {
	c := branchingConversation()
	c.Title = `<img src=x onerror=alert(1)>`
	out := renderPage(t, newTestSnapshot(t, c, "", filter.Config{}))
	if strings.Contains(out, "<img src=x") {
		t.Error("title not escaped")
	}
}

func TestHasEmbeddedAssets(t *testing.T) {
	if !HasEmbeddedAssets() {
		t.Fatal("page template not embedded")
	}
}

func TestCopyEmbeddedAssets(t *testing.T) {
	dir := t.TempDir()
	if err := CopyEmbeddedAssets(dir); err != nil {
		t.Fatalf("CopyEmbeddedAssets: %v", err)
	}
	for _, name := range []string{"viewer.css", "viewer.js"} {
		if info, err := os.Stat(filepath.Join(dir, name)); err != nil || info.Size() == 0 {
			t.Errorf("%s not copied: %v", name, err)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "page.html.tmpl")); !os.IsNotExist(err) {
		t.Error("template copied alongside the assets")
	}
}
