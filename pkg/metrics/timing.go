// Package metrics collects in-process timings for the load, render and
// export pipeline, plus hit counters for the TUI's rendered-markdown cache.
// Everything is atomic and in memory; `tv --robot-metrics` prints it.
// TV_METRICS=0 turns collection off.
//
//	defer metrics.Timer(metrics.TreeBuild)()
package metrics

import (
	"os"
	"sync"
	"sync/atomic"
	"time"
)

var enabled atomic.Bool

func init() {
	enabled.Store(os.Getenv("TV_METRICS") != "0")
}

// Enabled reports whether measurements are recorded.
func Enabled() bool { return enabled.Load() }

// SetEnabled switches collection on or off.
func SetEnabled(e bool) { enabled.Store(e) }

var (
	registryMu sync.Mutex
	timings    []*TimingMetric
)

// TimingMetric aggregates the durations of one pipeline stage.
type TimingMetric struct {
	name  string
	count atomic.Int64
	total atomic.Int64 // nanoseconds
	max   atomic.Int64
	min   atomic.Int64 // 0 until the first sample
}

func newTimingMetric(name string) *TimingMetric {
	return &TimingMetric{name: name}
}

func registerTiming(name string) *TimingMetric {
	m := newTimingMetric(name)
	registryMu.Lock()
	timings = append(timings, m)
	registryMu.Unlock()
	return m
}

// Pipeline stages, in pipeline order.
var (
	JSONParsing    = registerTiming("json_parsing")
	TreeBuild      = registerTiming("tree_build")
	PathResolve    = registerTiming("path_resolve")
	FilterApply    = registerTiming("filter_apply")
	MarkdownRender = registerTiming("markdown_render")
	UIRender       = registerTiming("ui_render")
	Export         = registerTiming("export")
)

// replaceWhile stores v in a for as long as better(current) holds.
func replaceWhile(a *atomic.Int64, v int64, better func(cur int64) bool) {
	for {
		cur := a.Load()
		if !better(cur) || a.CompareAndSwap(cur, v) {
			return
		}
	}
}

// Record adds one sample.
func (m *TimingMetric) Record(d time.Duration) {
	if !Enabled() {
		return
	}
	ns := d.Nanoseconds()
	m.count.Add(1)
	m.total.Add(ns)
	replaceWhile(&m.max, ns, func(cur int64) bool { return ns > cur })
	replaceWhile(&m.min, ns, func(cur int64) bool { return cur == 0 || ns < cur })
}

// Name returns the stage name used in reports.
func (m *TimingMetric) Name() string { return m.name }

// Count returns the number of samples.
func (m *TimingMetric) Count() int64 { return m.count.Load() }

// Stats returns a snapshot in milliseconds.
func (m *TimingMetric) Stats() TimingStats {
	n, total := m.count.Load(), m.total.Load()
	s := TimingStats{
		Name:    m.name,
		Count:   n,
		TotalMs: ms(total),
		MaxMs:   ms(m.max.Load()),
		MinMs:   ms(m.min.Load()),
	}
	if n > 0 {
		s.AvgMs = ms(total / n)
	}
	return s
}

func ms(ns int64) float64 { return float64(ns) / float64(time.Millisecond) }

// Reset drops every sample.
func (m *TimingMetric) Reset() {
	for _, a := range []*atomic.Int64{&m.count, &m.total, &m.max, &m.min} {
		a.Store(0)
	}
}

// TimingStats is a point-in-time view of a TimingMetric.
type TimingStats struct {
	Name    string  `json:"name"`
	Count   int64   `json:"count"`
	TotalMs float64 `json:"total_ms"`
	AvgMs   float64 `json:"avg_ms"`
	MaxMs   float64 `json:"max_ms"`
	MinMs   float64 `json:"min_ms,omitempty"`
}

// Timer starts a measurement; calling the returned func records it.
func Timer(m *TimingMetric) func() {
	return TimerWithCallback(m, nil)
}

// TimerWithCallback is Timer that also passes the duration to cb.
func TimerWithCallback(m *TimingMetric, cb func(time.Duration)) func() {
	if m == nil || !Enabled() {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		m.Record(d)
		if cb != nil {
			cb(d)
		}
	}
}

// AllTimingMetrics returns the pipeline stages in registration order.
func AllTimingMetrics() []*TimingMetric {
	registryMu.Lock()
	defer registryMu.Unlock()
	return append([]*TimingMetric(nil), timings...)
}

// AllTimingStats returns stats for the stages that recorded anything.
func AllTimingStats() []TimingStats {
	all := AllTimingMetrics()
	out := make([]TimingStats, 0, len(all))
	for _, m := range all {
		if m.Count() > 0 {
			out = append(out, m.Stats())
		}
	}
	return out
}

// ResetAll clears timing and cache metrics.
func ResetAll() {
	for _, m := range AllTimingMetrics() {
		m.Reset()
	}
	for _, c := range AllCacheMetrics() {
		c.Reset()
	}
}
