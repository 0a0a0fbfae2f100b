package main

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/vanderheijden86/threadview/pkg/export"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/metrics"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/session"
	"github.com/vanderheijden86/threadview/pkg/tree"
	"github.com/vanderheijden86/threadview/pkg/version"
)

type robotViewOutput struct {
	GeneratedAt string              `json:"generated_at"`
	Version     string              `json:"version"`
	Meta        render.DocumentMeta `json:"meta"`
	Status      render.Status       `json:"status"`
	View        render.View         `json:"view"`
	LeafCount   int                 `json:"leaf_count"`
	Problems    []tree.Problem      `json:"problems,omitempty"`
}

type robotLeavesOutput struct {
	GeneratedAt string              `json:"generated_at"`
	Active      string              `json:"active_leaf"`
	Leaves      []render.LeafOption `json:"leaves"`
}

type robotMetricsOutput struct {
	GeneratedAt string                `json:"generated_at"`
	Timings     []metrics.TimingStats `json:"timings"`
	Caches      []metrics.CacheStats  `json:"caches"`
	BufferPool  struct {
		Hits   uint64 `json:"hits"`
		Misses uint64 `json:"misses"`
	} `json:"buffer_pool"`
}

func writeRobotJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runRobot(sess *session.Session, o options, stdout, stderr io.Writer) int {
	if !sess.Loaded() {
		fmt.Fprintln(stderr, "Error: no conversation loaded")
		return exitError
	}
	now := time.Now().UTC().Format(time.RFC3339)

	var out any
	switch {
	case o.robotView:
		out = robotViewOutput{
			GeneratedAt: now,
			Version:     version.Version,
			Meta:        sess.Meta(),
			Status:      sess.Status(),
			View:        sess.View(),
			LeafCount:   len(sess.Leaves()),
			Problems:    sess.Problems(),
		}
	case o.robotLeaves:
		out = robotLeavesOutput{
			GeneratedAt: now,
			Active:      sess.State().LeafID,
			Leaves:      sess.Leaves(),
		}
	case o.robotGraph:
		snap, err := sess.Snapshot()
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		res, err := export.ExportGraph(snap, export.GraphExportConfig{
			Format: export.GraphExportFormat(o.graphFormat),
			Root:   o.graphRoot,
			Depth:  o.graphDepth,
		})
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitUsage
		}
		out = res
	case o.robotMetrics:
		m := robotMetricsOutput{
			GeneratedAt: now,
			Timings:     metrics.AllTimingStats(),
			Caches:      metrics.AllCacheStats(),
		}
		m.BufferPool.Hits, m.BufferPool.Misses = loader.BufferPoolStats()
		out = m
	}

	if err := writeRobotJSON(stdout, out); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	return exitOK
}

func runCheck(sess *session.Session, stdout io.Writer) int {
	if !sess.Loaded() {
		fmt.Fprintln(stdout, "No conversation loaded.")
		return exitError
	}
	problems := sess.Problems()
	doc := sess.Document()
	fmt.Fprintf(stdout, "%s: %d nodes, %d leaves\n", doc.Source, doc.Tree.Len(), len(doc.Tree.Leaves()))
	if len(problems) == 0 {
		fmt.Fprintln(stdout, "No structural problems.")
		return exitOK
	}
	for _, p := range problems {
		fmt.Fprintf(stdout, "  %-7s %-22s %s\n", p.Severity, p.Kind, p.Message)
	}
	if tree.HasErrors(problems) {
		return exitError
	}
	return exitOK
}
