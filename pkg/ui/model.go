// Package ui is the interactive transcript viewer. It drives a
// session.Session from bubbletea key events and draws the resulting view
// with lipgloss and glamour.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/markdown"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/session"
	"github.com/vanderheijden86/threadview/pkg/watcher"
)

// Rows taken by everything but the transcript: title, meta, status, footer.
const chromeRows = 4

// Options configures a Model.
type Options struct {
	Config config.Config
	Theme  *Theme
	// Markdown renders message bodies; nil builds one from Config.UI.
	Markdown *markdown.TerminalRenderer
	Watcher  *watcher.Watcher
	// Reload is called after the watcher reports a change, or on "r".
	Reload    LoadFunc
	Clipboard ClipboardWriter
	// Now defaults to time.Now.
	Now func() time.Time
}

// Model is the main Bubble Tea model of the viewer.
type Model struct {
	sess       *session.Session
	cfg        config.Config
	theme      Theme
	transcript *Transcript
	layout     Layout

	viewport  viewport.Model
	search    textinput.Model
	searching bool

	picker     LeafPicker
	pickerOpen bool

	focus  int
	width  int
	height int
	ready  bool

	// localTime is set while timestamps use the local zone.
	localTime bool

	watcher   *watcher.Watcher
	reload    LoadFunc
	clipboard ClipboardWriter
	now       func() time.Time

	// flash overrides the session status until the next event.
	flash *render.Status
}

// NewModel builds the viewer around a session, which may be idle.
func NewModel(sess *session.Session, opts Options) Model {
	theme := DefaultTheme(lipgloss.DefaultRenderer())
	if opts.Theme != nil {
		theme = *opts.Theme
	}
	md := opts.Markdown
	if md == nil {
		var err error
		md, err = markdown.NewTerminalRenderer(GlamourStyle(opts.Config.UI.Theme), opts.Config.UI.WordWrap)
		if err != nil {
			debug.Log("ui: markdown renderer unavailable: %v", err)
			md = nil
		}
	}
	if opts.Clipboard == nil {
		opts.Clipboard = SystemClipboard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "search messages..."
	ti.CharLimit = 200
	ti.Width = 40
	ti.SetValue(sess.State().Filter.Query)

	m := Model{
		sess:       sess,
		cfg:        opts.Config,
		theme:      theme,
		transcript: NewTranscript(theme, md, opts.Config.TimeFormatter(), opts.Config.UI.TruncateLines),
		viewport:   viewport.New(80, 20),
		search:     ti,
		watcher:    opts.Watcher,
		reload:     opts.Reload,
		clipboard:  opts.Clipboard,
		now:        opts.Now,
		localTime:  !strings.EqualFold(opts.Config.UI.TimeFormat, config.TimeFormatISO) && opts.Config.UI.TimeFormat != "",
	}
	m.transcript.SetWidth(opts.Config.UI.WordWrap)
	m.refresh()
	return m
}

// Init starts watching the file when live reload is on.
func (m Model) Init() tea.Cmd {
	if m.watcher != nil {
		return WatchFileCmd(m.watcher)
	}
	return nil
}

// Session returns the driven session.
func (m Model) Session() *session.Session { return m.sess }

// Focus returns the index of the focused record.
func (m Model) Focus() int { return m.focus }

// Layout returns the last drawn transcript.
func (m Model) Layout() Layout { return m.layout }

// Searching reports whether the search box has the keyboard.
func (m Model) Searching() bool { return m.searching }

// PickerOpen reports whether the leaf picker is shown.
func (m Model) PickerOpen() bool { return m.pickerOpen }

// Status returns the status line currently shown.
func (m Model) Status() render.Status {
	if m.flash != nil {
		return *m.flash
	}
	return m.sess.Status()
}

// Update handles one event.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case FileChangedMsg:
		debug.Log("ui: file changed, reloading")
		cmds := []tea.Cmd{ReloadCmd(m.reload)}
		if m.watcher != nil {
			cmds = append(cmds, WatchFileCmd(m.watcher))
		}
		return m, tea.Batch(cmds...)

	case DocumentLoadedMsg:
		m.flash = nil
		if msg.Err != nil {
			m.sess.Fail(msg.Err)
			return m, nil
		}
		wasLoaded := m.sess.Loaded()
		if wasLoaded {
			m.sess.Reload(msg.Doc)
		} else {
			m.sess.Load(msg.Doc)
			m.transcript.Collapse()
			m.focus = 0
		}
		m.search.SetValue(m.sess.State().Filter.Query)
		m.refresh()
		return m, nil

	case copiedMsg:
		st := render.Statusf(render.StatusOK, "Copied %d characters.", msg.chars)
		if msg.err != nil {
			st = render.Statusf(render.StatusError, "Copy failed: %v", msg.err)
		}
		m.flash = &st
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		m.flash = nil
		switch {
		case m.pickerOpen:
			return m.handlePickerKeys(msg)
		case m.searching:
			return m.handleSearchKeys(msg)
		}
		return m.handleKeys(msg)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) handleKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "/":
		m.searching = true
		m.resize(m.width, m.height)
		return m, m.search.Focus()
	case "esc":
		if m.sess.State().Filter.Query != "" {
			m.search.SetValue("")
			m.sess.SetQuery("")
			m.refresh()
		}
	case "s":
		m.sess.ToggleSystem()
		m.refresh()
	case "h":
		m.sess.ToggleHidden()
		m.refresh()
	case "t":
		m.localTime = !m.localTime
		format, zone := render.TimeFormatter(render.ISOTime), "UTC"
		if m.localTime {
			format, zone = render.LocalTime(""), "local time"
		}
		m.sess.SetTimeFormat(format)
		m.transcript.SetTimeFormat(format)
		m.refresh()
		st := render.Statusf(render.StatusInfo, "Times shown in %s.", zone)
		m.flash = &st
	case "l":
		leaves := m.sess.Leaves()
		if len(leaves) <= 1 {
			st := render.Statusf(render.StatusInfo, "Only one branch in this conversation.")
			m.flash = &st
			return m, nil
		}
		m.picker = NewLeafPicker(leaves, m.sess.State().LeafID, m.theme)
		m.picker.SetSize(m.width, m.viewport.Height)
		m.pickerOpen = true
	case "enter", " ":
		if rec, ok := m.focusedRecord(); ok && rec.Truncate {
			m.transcript.Toggle(rec.NodeID)
			m.refresh()
		} else if msg.String() == " " {
			m.viewport.PageDown()
		}
	case "y":
		rec, ok := m.focusedRecord()
		if !ok {
			return m, nil
		}
		return m, copyCmd(m.clipboard, rec.Text)
	case "j", "down":
		m.moveFocus(1)
	case "k", "up":
		m.moveFocus(-1)
	case "g", "home":
		m.moveFocus(-len(m.layout.Records))
	case "G", "end":
		m.moveFocus(len(m.layout.Records))
	case "pgdown", "ctrl+f":
		m.viewport.PageDown()
	case "pgup", "ctrl+b":
		m.viewport.PageUp()
	case "ctrl+d":
		m.viewport.HalfPageDown()
	case "ctrl+u":
		m.viewport.HalfPageUp()
	case "r":
		if m.reload != nil {
			st := render.Statusf(render.StatusInfo, "Reloading...")
			m.flash = &st
			return m, ReloadCmd(m.reload)
		}
	}
	return m, nil
}

func (m Model) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searching = false
		m.search.Blur()
		m.resize(m.width, m.height)
		return m, nil
	case "esc":
		m.searching = false
		m.search.Blur()
		m.search.SetValue("")
		m.sess.SetQuery("")
		m.focus = 0
		m.refresh()
		m.resize(m.width, m.height)
		return m, nil
	}
	var cmd tea.Cmd
	m.search, cmd = m.search.Update(msg)
	if m.search.Value() != m.sess.State().Filter.Query {
		m.sess.SetQuery(m.search.Value())
		m.focus = 0
		m.refresh()
	}
	return m, cmd
}

func (m Model) handlePickerKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if !m.picker.Filtering() {
		switch msg.String() {
		case "esc", "q", "l":
			m.pickerOpen = false
			return m, nil
		case "enter":
			if id, ok := m.picker.Selected(); ok && id != m.sess.State().LeafID {
				m.sess.SelectLeaf(id)
				m.focus = 0
				m.refresh()
				m.viewport.GotoTop()
			}
			m.pickerOpen = false
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.picker, cmd = m.picker.Update(msg)
	return m, cmd
}

func (m *Model) focusedRecord() (render.Record, bool) {
	if m.focus < 0 || m.focus >= len(m.layout.Records) {
		return render.Record{}, false
	}
	return m.layout.Records[m.focus], true
}

func (m *Model) moveFocus(delta int) {
	n := len(m.layout.Records)
	if n == 0 {
		return
	}
	m.focus = max(0, min(n-1, m.focus+delta))
	m.refresh()
	m.scrollToFocus()
}

func (m *Model) scrollToFocus() {
	if m.focus >= len(m.layout.Offsets) {
		return
	}
	top := m.layout.Offsets[m.focus]
	bottom := m.layout.LineCount()
	if m.focus+1 < len(m.layout.Offsets) {
		bottom = m.layout.Offsets[m.focus+1] - 1
	}
	switch {
	case top < m.viewport.YOffset:
		m.viewport.SetYOffset(top)
	case bottom > m.viewport.YOffset+m.viewport.Height:
		// Show the end of the block unless it is taller than the viewport.
		m.viewport.SetYOffset(min(top, bottom-m.viewport.Height))
	}
}

// refresh redraws the transcript from the session's current view.
func (m *Model) refresh() {
	defer metrics.Timer(metrics.UIRender)()
	records := m.sess.View().Records
	if m.focus >= len(records) {
		m.focus = max(0, len(records)-1)
	}
	m.layout = m.transcript.Render(records, m.focus)
	offset := m.viewport.YOffset
	m.viewport.SetContent(m.layout.Content)
	m.viewport.SetYOffset(offset)
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	m.width, m.height = width, height
	m.ready = true

	rows := chromeRows
	if m.showSearchBar() {
		rows++
	}
	m.viewport.Width = width
	m.viewport.Height = max(3, height-rows)
	m.search.Width = max(10, width-4)

	// Two columns of focus border and padding.
	wrap := width - 2
	if m.cfg.UI.WordWrap > 0 {
		wrap = min(wrap, m.cfg.UI.WordWrap)
	}
	m.transcript.SetWidth(wrap)
	if m.pickerOpen {
		m.picker.SetSize(width, m.viewport.Height)
	}
	m.refresh()
}

func (m Model) showSearchBar() bool {
	return m.searching || m.sess.State().Filter.Query != ""
}

// View renders the screen.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}
	sections := []string{m.renderTitle(), m.renderMeta()}
	if m.showSearchBar() {
		sections = append(sections, m.search.View())
	}
	switch {
	case m.pickerOpen:
		sections = append(sections, lipgloss.NewStyle().Height(m.viewport.Height).Render(m.picker.View()))
	case len(m.layout.Records) == 0:
		sections = append(sections, lipgloss.NewStyle().Height(m.viewport.Height).Render(m.renderEmpty()))
	default:
		sections = append(sections, m.viewport.View())
	}
	sections = append(sections, m.renderStatus(), m.renderFooter())
	return strings.Join(sections, "\n")
}

func (m Model) renderTitle() string {
	title := m.theme.Header.Render("threadview")
	if !m.sess.Loaded() {
		return title
	}
	// The badge takes its text plus two columns of padding.
	sub := truncate(singleLine(m.sess.Meta().Subtitle()), max(1, m.width-len("threadview")-3))
	return title + " " + m.theme.Base.Bold(true).Render(sub)
}

func (m Model) renderMeta() string {
	if !m.sess.Loaded() {
		return ""
	}
	meta := m.sess.Meta()
	var parts []string
	if meta.ConversationID != "" {
		parts = append(parts, "id "+meta.ConversationID)
	}
	if meta.Created != "" {
		parts = append(parts, "created "+meta.Created)
	}
	if meta.Updated != "" {
		updated := "updated " + meta.Updated
		if ts, ok := m.sess.Document().Conversation.UpdateTime.Time(); ok {
			updated += " (" + FormatTimeRel(ts, m.now()) + ")"
		}
		parts = append(parts, updated)
	}
	if n := len(m.sess.Leaves()); n > 1 {
		parts = append(parts, fmt.Sprintf("%d branches", n))
	}
	return m.theme.MutedText.Render(truncate(strings.Join(parts, " · "), m.width))
}

func (m Model) renderEmpty() string {
	view := m.sess.View()
	if !m.sess.Loaded() {
		return m.theme.MutedText.Render(session.IdleText)
	}
	if view.Empty == render.AllFiltered {
		return m.theme.MutedText.Render("No matching messages.\n" + render.FilteredHint)
	}
	return m.theme.MutedText.Render("Nothing to show.")
}

func (m Model) renderStatus() string {
	st := m.Status()
	return m.theme.StatusStyle(st.Kind).Render(truncate(singleLine(st.Text), max(1, m.width-2)))
}

func (m Model) renderFooter() string {
	f := m.sess.State().Filter
	hints := []string{
		m.theme.RenderKeyHint("/", "search"),
		m.theme.RenderToggle("s", "system", f.ShowSystem),
		m.theme.RenderToggle("h", "hidden", f.ShowHidden),
		m.theme.RenderToggle("t", "local time", m.localTime),
	}
	if len(m.sess.Leaves()) > 1 {
		hints = append(hints, m.theme.RenderKeyHint("l", "branch"))
	}
	hints = append(hints,
		m.theme.RenderKeyHint("enter", "expand"),
		m.theme.RenderKeyHint("y", "copy"),
		m.theme.RenderKeyHint("q", "quit"),
	)
	if m.pickerOpen {
		hints = []string{
			m.theme.RenderKeyHint("enter", "select"),
			m.theme.RenderKeyHint("/", "filter"),
			m.theme.RenderKeyHint("esc", "close"),
		}
	}
	return strings.Join(hints, "  ")
}
