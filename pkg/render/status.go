package render

import (
	"fmt"
	"strings"
)

// StatusKind classifies the status line.
type StatusKind string

const (
	StatusOK    StatusKind = "ok"
	StatusWarn  StatusKind = "warn"
	StatusError StatusKind = "error"
	StatusInfo  StatusKind = "info"
)

// Status is the outcome of the last operation.
type Status struct {
	Kind StatusKind `json:"kind"`
	Text string     `json:"text"`
}

// Statusf builds a Status with a formatted message.
func Statusf(kind StatusKind, format string, args ...any) Status {
	return Status{Kind: kind, Text: fmt.Sprintf(format, args...)}
}

// FilteredHint suggests how to bring back messages when a filter hid them all.
const FilteredHint = "Tip: clear the search, or show system / hidden messages."

// Status describes the view for the status line.
func (v View) Status() Status {
	switch v.Empty {
	case NoActiveLeaf:
		return Statusf(StatusWarn, "Nothing to show: the conversation has no leaf message.")
	case LeafNotFound:
		return Statusf(StatusWarn, "Nothing to show: leaf %q was not found.", v.LeafID)
	case AllFiltered:
		return Statusf(StatusInfo, "No matching messages. %s", FilteredHint)
	}

	s := Statusf(StatusOK, "Showing %d messages (leaf: %s, %d path nodes).", len(v.Records), v.LeafID, len(v.Path))
	if strings.TrimSpace(v.Config.Query) != "" {
		s.Text += " Search: " + v.Config.Query
	}
	if v.Degraded {
		s.Kind = StatusWarn
		s.Text += " The mapping has no root node."
	}
	return s
}
