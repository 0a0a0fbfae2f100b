// Package session holds the viewer state for one loaded conversation: the
// active leaf and the filter toggles. Every event re-runs path resolution,
// filtering and rendering from scratch and returns the new view.
//
// A Session is not safe for concurrent use; the TUI drives it from its
// update loop and the CLI from a single goroutine.
package session

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/export"
	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/tree"
)

// IdleText is the status shown before any document is loaded.
const IdleText = "Open a ChatGPT export JSON (with mapping/current_node)."

// State is the UI configuration. The tree itself carries no state.
type State struct {
	LeafID string        `json:"leaf_id"`
	Filter filter.Config `json:"filter"`
}

// Session is the state machine over one live document.
type Session struct {
	doc    *loader.Document
	state  State
	format render.TimeFormatter

	view   render.View
	status render.Status
	meta   render.DocumentMeta
	leaves []render.LeafOption
}

// New returns an idle session. format renders timestamps for display;
// nil uses ISO 8601 UTC.
func New(format render.TimeFormatter) *Session {
	if format == nil {
		format = render.ISOTime
	}
	return &Session{
		format: format,
		view:   render.View{Path: []string{}, Records: []render.Record{}, Empty: render.NoActiveLeaf},
		status: render.Statusf(render.StatusInfo, IdleText),
		meta:   render.Meta(nil, "", format),
	}
}

// Loaded reports whether a document is live.
func (s *Session) Loaded() bool { return s.doc != nil }

// Document returns the live document, or nil.
func (s *Session) Document() *loader.Document { return s.doc }

// State returns the current UI configuration.
func (s *Session) State() State { return s.state }

// View returns the last rendered view.
func (s *Session) View() render.View { return s.view }

// Status returns the status line for the last event.
func (s *Session) Status() render.Status { return s.status }

// Meta returns the document header.
func (s *Session) Meta() render.DocumentMeta { return s.meta }

// Leaves returns the leaf picker entries, oldest first.
func (s *Session) Leaves() []render.LeafOption { return s.leaves }

// Problems returns the structural problems of the live document.
func (s *Session) Problems() []tree.Problem {
	if s.doc == nil {
		return nil
	}
	return s.doc.Problems
}

// Load makes doc the live document and resets the state to its initial
// form: the default leaf, both toggles off and an empty query.
func (s *Session) Load(doc *loader.Document) render.View {
	leaf, _ := tree.SelectLeaf(doc.Tree, doc.Conversation.CurrentNode)
	s.install(doc, State{LeafID: leaf})
	return s.view
}

// Reload replaces the document but keeps the filter, and the active leaf
// when it is still a leaf of the new tree. Used when the file changes on
// disk.
func (s *Session) Reload(doc *loader.Document) render.View {
	next := State{Filter: s.state.Filter}
	if s.state.LeafID != "" && doc.Tree.IsLeaf(s.state.LeafID) {
		next.LeafID = s.state.LeafID
	} else {
		next.LeafID, _ = tree.SelectLeaf(doc.Tree, doc.Conversation.CurrentNode)
	}
	s.install(doc, next)
	return s.view
}

func (s *Session) install(doc *loader.Document, st State) {
	s.doc = doc
	s.state = st
	s.meta = render.Meta(doc.Conversation, doc.Source, s.format)
	s.leaves = render.LeafOptions(doc.Tree, s.format)
	debug.Log("session: loaded %s, leaf %q, %d leaves", doc.Source, st.LeafID, len(s.leaves))
	s.rerender()
}

// Fail reports a failed load. The previous document stays live.
func (s *Session) Fail(err error) render.Status {
	s.status = ErrorStatus(err)
	debug.Log("session: load failed: %v", err)
	return s.status
}

// SelectLeaf makes id the active leaf. An id that is not in the mapping
// yields an empty view with reason LeafNotFound.
func (s *Session) SelectLeaf(id string) render.View {
	s.state.LeafID = id
	s.rerender()
	return s.view
}

// SetShowSystem sets the system-message toggle.
func (s *Session) SetShowSystem(on bool) render.View {
	s.state.Filter.ShowSystem = on
	s.rerender()
	return s.view
}

// SetShowHidden sets the hidden-message toggle.
func (s *Session) SetShowHidden(on bool) render.View {
	s.state.Filter.ShowHidden = on
	s.rerender()
	return s.view
}

// SetQuery sets the search text.
func (s *Session) SetQuery(q string) render.View {
	s.state.Filter.Query = q
	s.rerender()
	return s.view
}

// ToggleSystem flips the system-message toggle.
func (s *Session) ToggleSystem() render.View {
	return s.SetShowSystem(!s.state.Filter.ShowSystem)
}

// ToggleHidden flips the hidden-message toggle.
func (s *Session) ToggleHidden() render.View {
	return s.SetShowHidden(!s.state.Filter.ShowHidden)
}

// SetTimeFormat changes how timestamps are displayed and re-renders.
func (s *Session) SetTimeFormat(format render.TimeFormatter) {
	if format == nil {
		format = render.ISOTime
	}
	s.format = format
	if s.doc != nil {
		s.install(s.doc, s.state)
	}
}

// Snapshot captures the current view for export.
func (s *Session) Snapshot() (*export.Snapshot, error) {
	if s.doc == nil {
		return nil, ErrNoDocument
	}
	return &export.Snapshot{
		Doc:         s.doc,
		Meta:        s.meta,
		View:        s.view,
		Status:      s.status,
		Leaves:      s.leaves,
		TimeFormat:  s.format,
		GeneratedAt: time.Now(),
	}, nil
}

// ErrNoDocument is returned by operations that need a live document.
var ErrNoDocument = errors.New("no document loaded")

func (s *Session) rerender() {
	if s.doc == nil {
		s.view.Config = s.state.Filter
		return
	}
	s.view = render.Render(s.doc.Tree, s.state.LeafID, s.state.Filter)
	s.status = s.view.Status()
	if n := errorCount(s.doc.Problems); n > 0 && s.status.Kind == render.StatusOK {
		s.status.Kind = render.StatusWarn
		s.status.Text += fmt.Sprintf(" %d structural problem(s), see tv --check.", n)
	}
}

func errorCount(problems []tree.Problem) int {
	n := 0
	for _, p := range problems {
		if p.Severity == tree.SeverityError {
			n++
		}
	}
	return n
}

// ErrorStatus maps a load error to the status line.
func ErrorStatus(err error) render.Status {
	msg := strings.TrimSpace(err.Error())
	switch {
	case errors.Is(err, loader.ErrSampleUnavailable):
		return render.Statusf(render.StatusWarn, "%s", msg)
	case errors.Is(err, loader.ErrParse):
		return render.Statusf(render.StatusError, "Failed to parse: %s", msg)
	case errors.Is(err, loader.ErrInvalidFormat):
		return render.Statusf(render.StatusError, "Unsupported format: %s", msg)
	case errors.Is(err, loader.ErrTooLarge):
		return render.Statusf(render.StatusError, "%s", msg)
	}
	return render.Statusf(render.StatusError, "Failed to load: %s", msg)
}
