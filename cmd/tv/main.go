// Command tv renders an exported ChatGPT conversation tree as a filtered,
// time-ordered transcript: interactively in the terminal, as JSON for
// scripts, or as HTML, Markdown, SQLite, SVG and PNG files.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"runtime/pprof"
	"time"

	"github.com/vanderheijden86/threadview/internal/datasource"
	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/export"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/session"
	"github.com/vanderheijden86/threadview/pkg/version"
)

// Exit codes.
const (
	exitOK    = 0
	exitError = 1
	exitUsage = 2
)

// loadTimeout bounds the initial load, network fetches included.
const loadTimeout = 30 * time.Second

type options struct {
	cpuProfile string
	version    bool
	initConfig bool

	sample     bool
	sampleBase string

	leaf       string
	showSystem bool
	showHidden bool
	query      string
	theme      string
	noWatch    bool

	check        bool
	robotView    bool
	robotLeaves  bool
	robotMetrics bool
	robotGraph   bool
	graphFormat  string
	graphRoot    string
	graphDepth   int

	exportHTML   string
	exportMD     string
	exportSQLite string
	exportSVG    string
	exportPNG    string
	exportWizard bool
	noHooks      bool

	// set records which flags were given explicitly.
	set map[string]bool
}

func (o options) robot() bool {
	return o.robotView || o.robotLeaves || o.robotMetrics || o.robotGraph
}

func (o options) exporting() bool {
	return o.exportWizard || o.exportHTML != "" || o.exportMD != "" ||
		o.exportSQLite != "" || o.exportSVG != "" || o.exportPNG != ""
}

func (o options) interactive() bool {
	return !o.robot() && !o.exporting() && !o.check
}

func parseFlags(args []string, stderr io.Writer) (options, []string, error) {
	var o options
	fs := flag.NewFlagSet("tv", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintln(stderr, "Usage: tv [options] [conversation.json | dir | - | URL]")
		fmt.Fprintln(stderr, "\nView an exported ChatGPT conversation tree.")
		fs.PrintDefaults()
	}

	fs.StringVar(&o.cpuProfile, "cpu-profile", "", "Write CPU profile to file")
	fs.BoolVar(&o.version, "version", false, "Show version")
	fs.BoolVar(&o.initConfig, "init-config", false, "Write the effective settings to the config file and exit")

	fs.BoolVar(&o.sample, "sample", false, "Load the sample conversation")
	fs.StringVar(&o.sampleBase, "sample-base", "", "Base URL the sample is fetched from")

	fs.StringVar(&o.leaf, "leaf", "", "Show the branch ending at this leaf node")
	fs.BoolVar(&o.showSystem, "show-system", false, "Include system messages")
	fs.BoolVar(&o.showHidden, "show-hidden", false, "Include visually hidden messages")
	fs.StringVar(&o.query, "query", "", "Only show messages containing this text")
	fs.StringVar(&o.theme, "theme", "", "Terminal theme: auto, dark, light, notty")
	fs.BoolVar(&o.noWatch, "no-watch", false, "Do not reload when the file changes")

	fs.BoolVar(&o.check, "check", false, "Validate the tree and exit non-zero on structural errors")
	fs.BoolVar(&o.robotView, "robot-view", false, "Print the rendered view as JSON")
	fs.BoolVar(&o.robotLeaves, "robot-leaves", false, "Print the leaves, oldest first, as JSON")
	fs.BoolVar(&o.robotMetrics, "robot-metrics", false, "Print pipeline timings and cache stats as JSON")
	fs.BoolVar(&o.robotGraph, "robot-graph", false, "Print the conversation tree as a graph")
	fs.StringVar(&o.graphFormat, "graph-format", "json", "Graph format for --robot-graph: json, dot, mermaid")
	fs.StringVar(&o.graphRoot, "graph-root", "", "Limit --robot-graph to the subtree under this node")
	fs.IntVar(&o.graphDepth, "graph-depth", 0, "Limit --robot-graph depth (0 = unlimited)")

	fs.StringVar(&o.exportHTML, "export-html", "", "Write a standalone HTML page")
	fs.StringVar(&o.exportMD, "export-md", "", "Write a Markdown transcript")
	fs.StringVar(&o.exportSQLite, "export-sqlite", "", "Write a SQLite database")
	fs.StringVar(&o.exportSVG, "export-svg", "", "Write the branch diagram as SVG")
	fs.StringVar(&o.exportPNG, "export-png", "", "Write the branch diagram as PNG")
	fs.BoolVar(&o.exportWizard, "export", false, "Choose exports interactively")
	fs.BoolVar(&o.noHooks, "no-hooks", false, "Skip pre-export and post-export hooks")

	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}
	o.set = make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { o.set[f.Name] = true })
	if fs.NArg() > 1 {
		return o, nil, fmt.Errorf("expected at most one conversation, got %d", fs.NArg())
	}
	switch export.GraphExportFormat(o.graphFormat) {
	case export.GraphFormatJSON, export.GraphFormatDOT, export.GraphFormatMermaid:
	default:
		return o, nil, fmt.Errorf("invalid --graph-format %q (expected json|dot|mermaid)", o.graphFormat)
	}
	if o.sample && fs.NArg() > 0 {
		return o, nil, errors.New("--sample cannot be combined with a conversation argument")
	}
	return o, fs.Args(), nil
}

// applyFlags lets explicit flags override the file and environment.
func applyFlags(cfg *config.Config, o options) error {
	if o.set["show-system"] {
		cfg.View.ShowSystem = o.showSystem
	}
	if o.set["show-hidden"] {
		cfg.View.ShowHidden = o.showHidden
	}
	if o.set["query"] {
		cfg.View.Query = o.query
	}
	if o.set["theme"] {
		cfg.UI.Theme = o.theme
	}
	if o.set["sample-base"] {
		cfg.Sample.BaseURL = o.sampleBase
	}
	if o.noWatch {
		cfg.Watch.Enabled = false
	}
	if o.noHooks {
		cfg.Export.NoHooks = true
	}
	return cfg.Validate()
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	o, rest, err := parseFlags(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return exitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}

	if o.version {
		fmt.Fprintf(stdout, "tv %s\n", version.Version)
		return exitOK
	}

	if o.cpuProfile != "" {
		f, err := os.Create(o.cpuProfile)
		if err != nil {
			fmt.Fprintf(stderr, "Could not create CPU profile: %v\n", err)
			return exitError
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(stderr, "Could not start CPU profile: %v\n", err)
			return exitError
		}
		defer pprof.StopCPUProfile()
	}

	cfg, err := config.Load()
	if err != nil {
		// A broken config file is not fatal.
		fmt.Fprintf(stderr, "Warning: %v (using defaults)\n", err)
		cfg = config.DefaultConfig()
	}
	if err := applyFlags(&cfg, o); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitUsage
	}
	if o.initConfig {
		if err := config.Save(cfg); err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
		fmt.Fprintf(stdout, "Wrote %s\n", config.ConfigPath())
		return exitOK
	}

	src, err := resolveSource(o, rest, cfg)
	if err != nil && !(o.interactive() && errors.Is(err, datasource.ErrNoSource)) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return exitError
	}
	haveSource := err == nil

	loadOpts := datasource.LoadOptions{
		Parse:  loader.ParseOptions{WarningHandler: warningHandler(o, stderr)},
		Client: &http.Client{Timeout: loadTimeout},
		Stdin:  stdin,
	}
	sess := session.New(cfg.TimeFormatter())

	if haveSource {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		doc, err := datasource.Load(ctx, src, loadOpts)
		cancel()
		switch {
		case err == nil:
			sess.Load(doc)
			applyView(sess, cfg, o.leaf)
		case o.interactive():
			sess.Fail(err)
		default:
			fmt.Fprintf(stderr, "Error: %v\n", err)
			return exitError
		}
	}

	switch {
	case o.check:
		return runCheck(sess, stdout)
	case o.robot():
		return runRobot(sess, o, stdout, stderr)
	case o.exporting():
		return runExports(sess, cfg, o, stdout, stderr)
	}

	if !haveSource {
		src = datasource.DataSource{}
	}
	if err := runTUI(sess, cfg, src, loadOpts); err != nil {
		fmt.Fprintf(stderr, "Error running viewer: %v\n", err)
		return exitError
	}
	return exitOK
}

func resolveSource(o options, rest []string, cfg config.Config) (datasource.DataSource, error) {
	if o.sample {
		return datasource.Sample(cfg.Sample.BaseURL), nil
	}
	arg := "."
	if len(rest) == 1 {
		arg = rest[0]
	}
	return datasource.Resolve(arg, datasource.DiscoveryOptions{
		Verbose: debug.Enabled(),
		Logger:  func(msg string) { debug.Log("datasource: %s", msg) },
	})
}

// warningHandler sends loader warnings to stderr, except under the TUI,
// which owns the terminal.
func warningHandler(o options, stderr io.Writer) func(string) {
	if o.interactive() {
		return func(msg string) { debug.Log("loader: %s", msg) }
	}
	return func(msg string) { fmt.Fprintf(stderr, "Warning: %s\n", msg) }
}

func applyView(sess *session.Session, cfg config.Config, leaf string) {
	if cfg.View.ShowSystem {
		sess.SetShowSystem(true)
	}
	if cfg.View.ShowHidden {
		sess.SetShowHidden(true)
	}
	if cfg.View.Query != "" {
		sess.SetQuery(cfg.View.Query)
	}
	if leaf != "" {
		sess.SelectLeaf(leaf)
	}
}
