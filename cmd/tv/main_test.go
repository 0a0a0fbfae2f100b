package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vanderheijden86/threadview/pkg/config"
	"github.com/vanderheijden86/threadview/pkg/model"
	"github.com/vanderheijden86/threadview/pkg/testutil"
)

// workspace isolates config, state and the working directory and writes
// the branching fixture as conv.json.
func workspace(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("TV_CONFIG", filepath.Join(dir, "config.yaml"))
	t.Setenv("XDG_STATE_HOME", filepath.Join(dir, "state"))
	for _, k := range []string{"TV_SHOW_SYSTEM", "TV_SHOW_HIDDEN", "TV_NO_HOOKS", "TV_THEME", "TV_TIME_FORMAT"} {
		t.Setenv(k, "")
	}
	t.Chdir(dir)
	testutil.WriteConversation(t, dir, "conv.json", branching())
	return dir
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

func runTV(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(args, strings.NewReader(""), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func decode(t *testing.T, out string) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(out), &payload); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, out)
	}
	return payload
}

func recordIDs(t *testing.T, payload map[string]any) []string {
	t.Helper()
	view, ok := payload["view"].(map[string]any)
	if !ok {
		t.Fatalf("missing view: %v", payload)
	}
	var ids []string
	records, _ := view["records"].([]any)
	for _, r := range records {
		ids = append(ids, r.(map[string]any)["node_id"].(string))
	}
	return ids
}

func TestVersion(t *testing.T) {
	code, out, _ := runTV(t, "--version")
	if code != exitOK || !strings.HasPrefix(out, "tv v") {
		t.Errorf("code %d, out %q", code, out)
	}
}

func TestUsageErrors(t *testing.T) {
	workspace(t)
	tests := [][]string{
		{"a.json", "b.json"},
		{"--graph-format", "png", "--robot-graph"},
		{"--sample", "conv.json"},
		{"--no-such-flag"},
		{"--theme", "neon", "--robot-view", "conv.json"},
	}
	for _, args := range tests {
		if code, _, _ := runTV(t, args...); code != exitUsage {
			t.Errorf("%v: code %d, want %d", args, code, exitUsage)
		}
	}
}

func TestRobotView(t *testing.T) {
	workspace(t)
	code, out, errOut := runTV(t, "--robot-view", "conv.json")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, errOut)
	}
	payload := decode(t, out)
	if got := strings.Join(recordIDs(t, payload), ","); got != "a,b" {
		t.Errorf("records = %s", got)
	}
	if payload["leaf_count"].(float64) != 2 {
		t.Errorf("leaf_count = %v", payload["leaf_count"])
	}
	meta := payload["meta"].(map[string]any)
	if meta["title"] != "Fixture" || meta["file_name"] != "conv.json" {
		t.Errorf("meta = %v", meta)
	}
}

func TestRobotViewFlags(t *testing.T) {
	workspace(t)
	_, out, _ := runTV(t, "--robot-view", "--show-system", "--show-hidden", "--leaf", "c", "conv.json")
	if got := strings.Join(recordIDs(t, decode(t, out)), ","); got != "s,a,c" {
		t.Errorf("records = %s", got)
	}

	_, out, _ = runTV(t, "--robot-view", "--query", "FIRST", "conv.json")
	if got := strings.Join(recordIDs(t, decode(t, out)), ","); got != "b" {
		t.Errorf("search records = %s", got)
	}
}

func TestEnvironmentAndFlagPrecedence(t *testing.T) {
	workspace(t)
	t.Setenv("TV_SHOW_SYSTEM", "true")
	_, out, _ := runTV(t, "--robot-view", "conv.json")
	if got := strings.Join(recordIDs(t, decode(t, out)), ","); got != "s,a,b" {
		t.Errorf("env records = %s", got)
	}
	_, out, _ = runTV(t, "--robot-view", "--show-system=false", "conv.json")
	if got := strings.Join(recordIDs(t, decode(t, out)), ","); got != "a,b" {
		t.Errorf("flag records = %s", got)
	}
}

func TestDirectoryArgument(t *testing.T) {
	dir := workspace(t)
	code, out, errOut := runTV(t, "--robot-leaves", dir)
	if code != exitOK {
		t.Fatalf("code %d: %s", code, errOut)
	}
	payload := decode(t, out)
	if payload["active_leaf"] != "b" {
		t.Errorf("active_leaf = %v", payload["active_leaf"])
	}
	leaves := payload["leaves"].([]any)
	if len(leaves) != 2 || leaves[0].(map[string]any)["id"] != "b" {
		t.Errorf("leaves = %v", leaves)
	}
}

func TestRobotGraph(t *testing.T) {
	workspace(t)
	_, out, _ := runTV(t, "--robot-graph", "--graph-format", "mermaid", "conv.json")
	payload := decode(t, out)
	if payload["format"] != "mermaid" || !strings.Contains(payload["graph"].(string), "graph") {
		t.Errorf("graph payload = %v", payload)
	}

	code, _, _ := runTV(t, "--robot-graph", "--graph-root", "ghost", "conv.json")
	if code != exitUsage {
		t.Errorf("unknown root code = %d", code)
	}
}

func TestRobotMetrics(t *testing.T) {
	workspace(t)
	_, out, _ := runTV(t, "--robot-metrics", "conv.json")
	payload := decode(t, out)
	for _, k := range []string{"timings", "caches", "buffer_pool"} {
		if _, ok := payload[k]; !ok {
			t.Errorf("metrics missing %s", k)
		}
	}
}

func TestCheck(t *testing.T) {
	dir := workspace(t)
	code, out, _ := runTV(t, "--check", "conv.json")
	if code != exitOK || !strings.Contains(out, "No structural problems") {
		t.Errorf("clean check: code %d\n%s", code, out)
	}

	testutil.WriteConversation(t, dir, "broken.json", testutil.Conversation("a",
		testutil.Root("r", "a"),
		testutil.Turn("a", "r", "user", "hi", 1, "ghost"),
	))
	code, out, _ = runTV(t, "--check", "broken.json")
	if code != exitError || !strings.Contains(out, "ghost") {
		t.Errorf("broken check: code %d\n%s", code, out)
	}
}

func TestLoadErrors(t *testing.T) {
	dir := workspace(t)
	testutil.WriteRaw(t, dir, "list.json", `[1,2,3]`)
	testutil.WriteRaw(t, dir, "bad.json", `{"mapping":`)

	tests := []struct {
		file string
		want string
	}{
		{"list.json", "not a JSON object"},
		{"bad.json", "parse failure"},
		{"missing.json", "no such file"},
	}
	for _, tt := range tests {
		code, _, errOut := runTV(t, "--robot-view", tt.file)
		if code != exitError || !strings.Contains(errOut, tt.want) {
			t.Errorf("%s: code %d, stderr %q", tt.file, code, errOut)
		}
	}
}

func TestStdinSource(t *testing.T) {
	workspace(t)
	var stdout, stderr bytes.Buffer
	code := run([]string{"--robot-view", "-"}, strings.NewReader(testutil.ScenarioSingleLeaf), &stdout, &stderr)
	if code != exitOK {
		t.Fatalf("code %d: %s", code, stderr.String())
	}
	if got := strings.Join(recordIDs(t, decode(t, stdout.String())), ","); got != "a" {
		t.Errorf("records = %s", got)
	}
}

func TestSampleLocalBaseUnavailable(t *testing.T) {
	workspace(t)
	code, _, errOut := runTV(t, "--robot-view", "--sample", "--sample-base", "file:///tmp/")
	if code != exitError || !strings.Contains(errOut, "sample unavailable") {
		t.Errorf("code %d, stderr %q", code, errOut)
	}
}

func TestExports(t *testing.T) {
	dir := workspace(t)
	out := filepath.Join(dir, "out")
	code, stdout, errOut := runTV(t,
		"--export-html", filepath.Join(out, "c.html"),
		"--export-md", filepath.Join(out, "c.md"),
		"--export-sqlite", filepath.Join(out, "c.sqlite3"),
		"--export-svg", filepath.Join(out, "c.svg"),
		"conv.json")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, errOut)
	}
	for _, name := range []string{"c.html", "c.md", "c.sqlite3", "c.svg"} {
		info, err := os.Stat(filepath.Join(out, name))
		if err != nil || info.Size() == 0 {
			t.Errorf("%s not written: %v", name, err)
		}
		if !strings.Contains(stdout, name) {
			t.Errorf("stdout does not mention %s", name)
		}
	}
	md, _ := os.ReadFile(filepath.Join(out, "c.md"))
	// Branch labels and the diagram mention every leaf; only message blocks end in a rule.
	if !strings.Contains(string(md), "first answer\n\n---") || strings.Contains(string(md), "second answer\n\n---") {
		t.Errorf("markdown export has the wrong branch:\n%s", md)
	}
}

func TestExportHooks(t *testing.T) {
	dir := workspace(t)
	hooksYAML := `hooks:
  pre-export:
    - name: announce
      command: echo "pre $TV_EXPORT_FORMAT" >> hooks.log
  post-export:
    - name: record
      command: echo "post $TV_EXPORT_PATH $TV_EXPORT_MESSAGE_COUNT" >> hooks.log
`
	if err := os.MkdirAll(filepath.Join(dir, ".threadview"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, ".threadview", "hooks.yaml"), []byte(hooksYAML), 0o644); err != nil {
		t.Fatal(err)
	}

	code, stdout, errOut := runTV(t, "--export-md", "c.md", "conv.json")
	if code != exitOK {
		t.Fatalf("code %d: %s", code, errOut)
	}
	if !strings.Contains(stdout, "Hooks: 2 succeeded, 0 failed") {
		t.Errorf("summary missing:\n%s", stdout)
	}
	log, err := os.ReadFile(filepath.Join(dir, "hooks.log"))
	if err != nil {
		t.Fatal(err)
	}
	if got := string(log); got != "pre md\npost c.md 2\n" {
		t.Errorf("hooks.log = %q", got)
	}

	os.Remove(filepath.Join(dir, "hooks.log"))
	if code, _, _ := runTV(t, "--no-hooks", "--export-md", "c.md", "conv.json"); code != exitOK {
		t.Fatalf("--no-hooks code %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "hooks.log")); !os.IsNotExist(err) {
		t.Error("hooks ran with --no-hooks")
	}
}

func TestFailingPreExportHookSkipsWrite(t *testing.T) {
	dir := workspace(t)
	if err := os.MkdirAll(filepath.Join(dir, ".threadview"), 0o755); err != nil {
		t.Fatal(err)
	}
	hooksYAML := "hooks:\n  pre-export:\n    - name: gate\n      command: exit 3\n"
	if err := os.WriteFile(filepath.Join(dir, ".threadview", "hooks.yaml"), []byte(hooksYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	code, _, _ := runTV(t, "--export-md", "c.md", "conv.json")
	if code != exitError {
		t.Errorf("code = %d", code)
	}
	if _, err := os.Stat(filepath.Join(dir, "c.md")); !os.IsNotExist(err) {
		t.Error("export written despite failing pre-export hook")
	}
}

func TestInitConfig(t *testing.T) {
	dir := workspace(t)
	code, out, errOut := runTV(t, "--init-config", "--show-system", "--theme", "light")
	path := filepath.Join(dir, "config.yaml")
	if code != exitOK || !strings.Contains(out, path) {
		t.Fatalf("code %d, out %q, err %q", code, out, errOut)
	}
	cfg, err := config.LoadFrom(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.View.ShowSystem || cfg.UI.Theme != config.ThemeLight {
		t.Errorf("saved config = %+v", cfg)
	}
}

func TestApplyFlags(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.View.ShowHidden = true
	o := options{
		showSystem: true,
		noWatch:    true,
		noHooks:    true,
		set:        map[string]bool{"show-system": true},
	}
	if err := applyFlags(&cfg, o); err != nil {
		t.Fatal(err)
	}
	if !cfg.View.ShowSystem || !cfg.View.ShowHidden {
		t.Errorf("view = %+v", cfg.View)
	}
	if cfg.Watch.Enabled || !cfg.Export.NoHooks {
		t.Errorf("watch %v, no hooks %v", cfg.Watch.Enabled, cfg.Export.NoHooks)
	}
}

func TestFlagJobs(t *testing.T) {
	jobs := flagJobs(options{exportMD: "a.md", exportPNG: "a.png"})
	if len(jobs) != 2 || jobs[0].Path != "a.md" || jobs[1].Path != "a.png" {
		t.Errorf("jobs = %+v", jobs)
	}
}
