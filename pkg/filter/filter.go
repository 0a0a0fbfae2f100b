// Package filter narrows a root-to-leaf path to the nodes worth rendering.
//
// Stages run in a fixed order: malformed, hidden, system, query. Each stage
// is a pure predicate, so the result is always an order-preserving
// subsequence of the input.
package filter

import (
	"strings"

	"golang.org/x/text/cases"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/model"
)

// Config is the user-controlled view configuration.
type Config struct {
	ShowSystem bool   `json:"show_system" yaml:"show_system"`
	ShowHidden bool   `json:"show_hidden" yaml:"show_hidden"`
	Query      string `json:"query" yaml:"-"`
}

// Stage names one pipeline step.
type Stage string

const (
	StageMalformed Stage = "malformed"
	StageHidden    Stage = "hidden"
	StageSystem    Stage = "system"
	StageQuery     Stage = "query"
)

// Stages returns the pipeline steps in application order.
func Stages() []Stage {
	return []Stage{StageMalformed, StageHidden, StageSystem, StageQuery}
}

// Report counts how many nodes each stage removed.
type Report struct {
	Input   int           `json:"input"`
	Kept    int           `json:"kept"`
	Dropped map[Stage]int `json:"dropped"`
}

// Apply returns the nodes that survive every stage, in input order.
func Apply(nodes []*model.Node, cfg Config) []*model.Node {
	out, _ := run(nodes, cfg)
	return out
}

// Explain is Apply that also reports per-stage drop counts.
func Explain(nodes []*model.Node, cfg Config) ([]*model.Node, Report) {
	return run(nodes, cfg)
}

func run(nodes []*model.Node, cfg Config) ([]*model.Node, Report) {
	defer metrics.Timer(metrics.FilterApply)()

	m := newMatcher(cfg.Query)
	rep := Report{Input: len(nodes), Dropped: make(map[Stage]int, 4)}
	out := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if stage, drop := m.rejects(n, cfg); drop {
			rep.Dropped[stage]++
			continue
		}
		out = append(out, n)
	}
	rep.Kept = len(out)
	return out, rep
}

// rejects returns the first stage that drops n.
func (m *matcher) rejects(n *model.Node, cfg Config) (Stage, bool) {
	switch {
	case n == nil || n.Message == nil || n.Message.Author == nil:
		return StageMalformed, true
	case !cfg.ShowHidden && n.IsHidden():
		return StageHidden, true
	case !cfg.ShowSystem && n.Role() == model.RoleSystem:
		return StageSystem, true
	case !m.matches(n.Message):
		return StageQuery, true
	}
	return "", false
}

// matcher holds the folded query. A Caser is not safe for concurrent use,
// so each Apply call builds its own.
type matcher struct {
	fold   cases.Caser
	needle string
}

func newMatcher(query string) *matcher {
	m := &matcher{fold: cases.Fold()}
	if q := strings.TrimSpace(query); q != "" {
		m.needle = m.fold.String(q)
	}
	return m
}

func (m *matcher) matches(msg *model.Message) bool {
	if m.needle == "" {
		return true
	}
	return strings.Contains(m.fold.String(content.Extract(msg)), m.needle)
}

// Matches reports whether a message passes the query stage alone.
func Matches(msg *model.Message, query string) bool {
	return newMatcher(query).matches(msg)
}
