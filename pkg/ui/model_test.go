package ui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/session"
	"github.com/vanderheijden86/threadview/pkg/testutil"
)

func parse(t *testing.T, c *model.Conversation) *loader.Document {
	t.Helper()
	doc, err := loader.Parse(testutil.Document(c), "conv.json", loader.ParseOptions{WarningHandler: func(string) {}})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return doc
}

func branching() *model.Conversation {
	return testutil.Conversation("b",
		testutil.Root("r", "s"),
		testutil.Turn("s", "r", "system", "be brief", 1, "a"),
		testutil.Turn("a", "s", "user", "Hello world", 2, "b", "c"),
		testutil.Turn("b", "a", "assistant", "first answer", 3),
		testutil.Hidden(testutil.Turn("c", "a", "assistant", "second answer", 4)),
	)
}

type clipRecorder struct{ got []string }

func (c *clipRecorder) write(s string) error {
	c.got = append(c.got, s)
	return nil
}

func newTestModel(t *testing.T, c *model.Conversation) (Model, *clipRecorder) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.UI.Theme = config.ThemeNoTTY
	clip := &clipRecorder{}
	s := session.New(nil)
	if c != nil {
		s.Load(parse(t, c))
	}
	theme := TestTheme()
	m := NewModel(s, Options{Config: cfg, Theme: &theme, Clipboard: clip.write})
	return update(t, m, tea.WindowSizeMsg{Width: 100, Height: 30}), clip
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	nm, ok := next.(Model)
	if !ok {
		t.Fatalf("Update returned %T", next)
	}
	return nm
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "backspace":
		return tea.KeyMsg{Type: tea.KeyBackspace}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		m = update(t, m, key(k))
	}
	return m
}

func nodeIDs(m Model) string {
	ids := make([]string, 0, len(m.Layout().Records))
	for _, r := range m.Layout().Records {
		ids = append(ids, r.NodeID)
	}
	return strings.Join(ids, ",")
}

func TestModelIdle(t *testing.T) {
	m, _ := newTestModel(t, nil)
	view := ansi.Strip(m.View())
	if !strings.Contains(view, session.IdleText) {
		t.Errorf("idle view missing hint:\n%s", view)
	}
	m = press(t, m, "s", "j", "y", "l")
	if m.PickerOpen() {
		t.Error("picker opened without a document")
	}
}

func TestModelNotReadyBeforeSize(t *testing.T) {
	s := session.New(nil)
	m := NewModel(s, Options{Config: config.DefaultConfig()})
	if m.View() != "Loading..." {
		t.Errorf("View before size = %q", m.View())
	}
}

func TestModelToggles(t *testing.T) {
	m, _ := newTestModel(t, branching())
	if got := nodeIDs(m); got != "a,b" {
		t.Fatalf("initial records = %s", got)
	}

	m = press(t, m, "s")
	if got := nodeIDs(m); got != "s,a,b" {
		t.Errorf("after s: %s", got)
	}
	m = press(t, m, "s", "h")
	if !m.Session().State().Filter.ShowHidden || m.Session().State().Filter.ShowSystem {
		t.Errorf("state after s,s,h = %+v", m.Session().State())
	}
	footer := ansi.Strip(m.View())
	if !strings.Contains(footer, "hidden on") || !strings.Contains(footer, "system off") {
		t.Errorf("footer toggles wrong:\n%s", footer)
	}
}

func TestModelSearch(t *testing.T) {
	m, _ := newTestModel(t, branching())
	m = press(t, m, "/")
	if !m.Searching() {
		t.Fatal("/ did not open search")
	}
	m = press(t, m, "f", "i", "r", "s", "t")
	if q := m.Session().State().Filter.Query; q != "first" {
		t.Fatalf("query = %q", q)
	}
	if got := nodeIDs(m); got != "b" {
		t.Errorf("search records = %s", got)
	}

	m = press(t, m, "enter")
	if m.Searching() || m.Session().State().Filter.Query != "first" {
		t.Error("enter should keep the query and leave the box")
	}
	m = press(t, m, "esc")
	if m.Session().State().Filter.Query != "" || nodeIDs(m) != "a,b" {
		t.Errorf("esc did not clear search: %q", m.Session().State().Filter.Query)
	}
}

func TestModelSearchNoMatch(t *testing.T) {
	m, _ := newTestModel(t, branching())
	m = press(t, m, "/", "z", "z", "z")
	if m.Session().View().Empty != render.AllFiltered {
		t.Fatalf("empty reason = %q", m.Session().View().Empty)
	}
	if view := ansi.Strip(m.View()); !strings.Contains(view, render.FilteredHint) {
		t.Errorf("view missing filtered hint:\n%s", view)
	}
}

func TestModelLeafPicker(t *testing.T) {
	m, _ := newTestModel(t, branching())
	m = press(t, m, "l")
	if !m.PickerOpen() {
		t.Fatal("l did not open the picker")
	}
	// Leaves are b then c; the cursor starts on the active leaf b.
	m = press(t, m, "down", "enter")
	if m.PickerOpen() {
		t.Error("enter did not close the picker")
	}
	if leaf := m.Session().State().LeafID; leaf != "c" {
		t.Fatalf("leaf = %q, want c", leaf)
	}
	// c is hidden, so only the user turn remains.
	if got := nodeIDs(m); got != "a" {
		t.Errorf("records on c = %s", got)
	}

	m = press(t, m, "l", "esc")
	if m.PickerOpen() || m.Session().State().LeafID != "c" {
		t.Error("esc changed the leaf or left the picker open")
	}
}

func TestModelSingleLeafPicker(t *testing.T) {
	m, _ := newTestModel(t, testutil.NewDefault().Chain(3))
	m = press(t, m, "l")
	if m.PickerOpen() {
		t.Error("picker opened with a single leaf")
	}
	if st := m.Status(); st.Kind != render.StatusInfo {
		t.Errorf("status = %+v", st)
	}
}

func TestModelFocusAndCopy(t *testing.T) {
	m, clip := newTestModel(t, branching())
	if m.Focus() != 0 {
		t.Fatalf("initial focus = %d", m.Focus())
	}
	m = press(t, m, "j", "j", "j")
	if m.Focus() != 1 {
		t.Errorf("focus = %d, want clamped to 1", m.Focus())
	}
	next, cmd := m.Update(key("y"))
	if cmd == nil {
		t.Fatal("y returned no command")
	}
	m = update(t, next.(Model), cmd())
	if len(clip.got) != 1 || clip.got[0] != "first answer" {
		t.Errorf("clipboard = %q", clip.got)
	}
	if st := m.Status(); st.Kind != render.StatusOK || !strings.Contains(st.Text, "Copied 12") {
		t.Errorf("status = %+v", st)
	}
	m = press(t, m, "k")
	if m.Status().Text == "" || strings.Contains(m.Status().Text, "Copied") {
		t.Errorf("flash survived a key press: %+v", m.Status())
	}
}

func TestModelCopyFailure(t *testing.T) {
	m, _ := newTestModel(t, branching())
	m = update(t, m, copiedMsg{err: errors.New("no clipboard")})
	if st := m.Status(); st.Kind != render.StatusError {
		t.Errorf("status = %+v", st)
	}
}

func TestModelExpandLongMessage(t *testing.T) {
	long := strings.Repeat("paragraph\n\n", 30)
	c := testutil.Conversation("a",
		testutil.Root("r", "a"),
		testutil.Turn("a", "r", "user", long, 1),
	)
	m, _ := newTestModel(t, c)
	if !m.Layout().Records[0].Truncate {
		t.Fatal("long message not truncated")
	}
	before := m.Layout().LineCount()
	m = press(t, m, "enter")
	if m.Layout().LineCount() <= before {
		t.Errorf("expand did not grow the transcript: %d -> %d", before, m.Layout().LineCount())
	}
	m = press(t, m, "enter")
	if m.Layout().LineCount() != before {
		t.Errorf("collapse did not restore: %d", m.Layout().LineCount())
	}
}

func TestModelReload(t *testing.T) {
	m, _ := newTestModel(t, branching())
	m = press(t, m, "s", "l", "down", "enter")

	// The file gains a third branch; leaf c and the toggle survive.
	c := testutil.Conversation("b",
		testutil.Root("r", "s"),
		testutil.Turn("s", "r", "system", "be brief", 1, "a"),
		testutil.Turn("a", "s", "user", "Hello world", 2, "b", "c", "d"),
		testutil.Turn("b", "a", "assistant", "first answer", 3),
		testutil.Hidden(testutil.Turn("c", "a", "assistant", "second answer", 4)),
		testutil.Turn("d", "a", "assistant", "third answer", 5),
	)
	m = update(t, m, DocumentLoadedMsg{Doc: parse(t, c)})

	st := m.Session().State()
	if st.LeafID != "c" || !st.Filter.ShowSystem {
		t.Errorf("state after reload = %+v", st)
	}
	if n := len(m.Session().Leaves()); n != 3 {
		t.Errorf("leaves after reload = %d", n)
	}

	m = update(t, m, DocumentLoadedMsg{Err: loader.ErrParse})
	if m.Session().Status().Kind != render.StatusError || !m.Session().Loaded() {
		t.Errorf("failed reload: status %+v, loaded %v", m.Session().Status(), m.Session().Loaded())
	}
}

func TestReloadCmd(t *testing.T) {
	if ReloadCmd(nil) != nil {
		t.Error("nil loader should give a nil command")
	}
	want := errors.New("boom")
	msg := ReloadCmd(func(ctx context.Context) (*loader.Document, error) {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("reload context has no deadline")
		}
		return nil, want
	})()
	got, ok := msg.(DocumentLoadedMsg)
	if !ok || !errors.Is(got.Err, want) {
		t.Errorf("msg = %#v", msg)
	}
}

func TestFileChangedTriggersReload(t *testing.T) {
	s := session.New(nil)
	called := make(chan struct{}, 1)
	m := NewModel(s, Options{
		Config: config.DefaultConfig(),
		Reload: func(context.Context) (*loader.Document, error) {
			called <- struct{}{}
			return nil, loader.ErrInvalidFormat
		},
	})
	_, cmd := m.Update(FileChangedMsg{})
	if cmd == nil {
		t.Fatal("FileChangedMsg returned no command")
	}
	// A batch of one command collapses to that command.
	if _, ok := cmd().(DocumentLoadedMsg); !ok {
		t.Error("reload command did not produce DocumentLoadedMsg")
	}
	select {
	case <-called:
	case <-time.After(time.Second):
		t.Error("loader not called")
	}
}

func TestModelMetaHeader(t *testing.T) {
	c := branching()
	c.Title = "Trip planning"
	c.UpdateTime = model.Seconds(float64(time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC).Unix()))
	cfg := config.DefaultConfig()
	cfg.UI.Theme = config.ThemeNoTTY
	s := session.New(nil)
	s.Load(parse(t, c))
	theme := TestTheme()
	m := NewModel(s, Options{
		Config: cfg,
		Theme:  &theme,
		Now:    func() time.Time { return time.Date(2024, 5, 3, 0, 0, 0, 0, time.UTC) },
	})
	m = update(t, m, tea.WindowSizeMsg{Width: 120, Height: 30})

	view := ansi.Strip(m.View())
	for _, want := range []string{"conv.json · Trip planning", "(2d ago)", "2 branches"} {
		if !strings.Contains(view, want) {
			t.Errorf("header missing %q:\n%s", want, view)
		}
	}
}

func TestFormatTimeRel(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		ago  time.Duration
		want string
	}{
		{30 * time.Second, "now"},
		{5 * time.Minute, "5m ago"},
		{3 * time.Hour, "3h ago"},
		{2 * 24 * time.Hour, "2d ago"},
		{14 * 24 * time.Hour, "2w ago"},
		{60 * 24 * time.Hour, "2mo ago"},
		{800 * 24 * time.Hour, "2y ago"},
	}
	for _, tt := range tests {
		if got := FormatTimeRel(now.Add(-tt.ago), now); got != tt.want {
			t.Errorf("FormatTimeRel(-%v) = %q, want %q", tt.ago, got, tt.want)
		}
	}
	if got := FormatTimeRel(time.Time{}, now); got != "unknown" {
		t.Errorf("zero time = %q", got)
	}
}

func TestTruncateHelpers(t *testing.T) {
	if got := truncate("hello world", 6); got != "hello…" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("hi", 6); got != "hi" {
		t.Errorf("truncate short = %q", got)
	}
	if got := padRight("ab", 4); got != "ab  " {
		t.Errorf("padRight = %q", got)
	}
	if got := singleLine("a\n b\t c"); got != "a b c" {
		t.Errorf("singleLine = %q", got)
	}
}

func TestModelTimeZoneToggle(t *testing.T) {
	m, _ := newTestModel(t, branching())
	if ts := m.Layout().Records[0].ISOTimestamp; !strings.HasSuffix(ts, "Z") {
		t.Fatalf("default timestamp %q is not UTC", ts)
	}

	m = press(t, m, "t")
	if m.Status().Text != "Times shown in local time." {
		t.Errorf("status = %q", m.Status().Text)
	}
	if !strings.Contains(ansi.Strip(m.View()), "local time") {
		t.Error("footer does not show the local time toggle")
	}

	m = press(t, m, "t")
	if m.Status().Text != "Times shown in UTC." {
		t.Errorf("status = %q", m.Status().Text)
	}
}
