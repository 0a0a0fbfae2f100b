package ui

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/vanderheijden86/threadview/pkg/render"
)

// leafItem wraps a LeafOption for the list component.
type leafItem struct {
	opt    render.LeafOption
	active bool
}

func (i leafItem) FilterValue() string { return i.opt.Label }

// leafDelegate draws one leaf per row: a cursor, an active marker and the
// label truncated to the list width.
type leafDelegate struct {
	theme Theme
}

func (d leafDelegate) Height() int                             { return 1 }
func (d leafDelegate) Spacing() int                            { return 0 }
func (d leafDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd { return nil }

func (d leafDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	li, ok := item.(leafItem)
	if !ok {
		return
	}
	cursor := "  "
	if index == m.Index() {
		cursor = "▸ "
	}
	marker := "  "
	if li.active {
		marker = "● "
	}
	label := truncate(singleLine(li.opt.Label), m.Width()-4)
	row := cursor + marker + label
	if index == m.Index() {
		row = padRight(row, m.Width())
		row = d.theme.Search.Render(row)
	} else {
		row = d.theme.Base.Render(row)
	}
	fmt.Fprint(w, row)
}

// LeafPicker chooses which leaf's path the transcript shows.
type LeafPicker struct {
	list list.Model
}

// NewLeafPicker lists leaves in the given order with the cursor on activeID.
func NewLeafPicker(leaves []render.LeafOption, activeID string, theme Theme) LeafPicker {
	items := make([]list.Item, len(leaves))
	cursor := 0
	for i, opt := range leaves {
		items[i] = leafItem{opt: opt, active: opt.ID == activeID}
		if opt.ID == activeID {
			cursor = i
		}
	}
	l := list.New(items, leafDelegate{theme: theme}, 60, 10)
	l.Title = fmt.Sprintf("Branches (%d)", len(leaves))
	l.Styles.Title = theme.Header
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()
	l.Select(cursor)
	return LeafPicker{list: l}
}

// SetSize sets the picker dimensions.
func (p *LeafPicker) SetSize(width, height int) {
	p.list.SetSize(width, height)
}

// Filtering reports whether the user is typing a filter, in which case
// enter and esc belong to the list.
func (p LeafPicker) Filtering() bool {
	return p.list.SettingFilter()
}

// Selected returns the leaf under the cursor.
func (p LeafPicker) Selected() (string, bool) {
	li, ok := p.list.SelectedItem().(leafItem)
	if !ok {
		return "", false
	}
	return li.opt.ID, true
}

// Update forwards a message to the list.
func (p LeafPicker) Update(msg tea.Msg) (LeafPicker, tea.Cmd) {
	var cmd tea.Cmd
	p.list, cmd = p.list.Update(msg)
	return p, cmd
}

// View renders the picker.
func (p LeafPicker) View() string {
	return p.list.View()
}
