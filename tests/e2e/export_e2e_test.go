package main_test

import (
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	_ "modernc.org/sqlite"
)

func TestExportAllFormats(t *testing.T) {
	dir := writeConversation(t, trip())
	out := filepath.Join(dir, "site")

	stdout, stderr, code := runTV(t, dir,
		"--export-html", filepath.Join(out, "lisbon.html"),
		"--export-md", filepath.Join(out, "lisbon.md"),
		"--export-sqlite", filepath.Join(out, "lisbon.sqlite3"),
		"--export-svg", filepath.Join(out, "lisbon.svg"),
		"--export-png", filepath.Join(out, "lisbon.png"),
		"conv.json")
	if code != 0 {
		t.Fatalf("export exited %d: %s", code, stderr)
	}
	for _, name := range []string{"lisbon.html", "lisbon.md", "lisbon.sqlite3", "lisbon.svg", "lisbon.png"} {
		info, err := os.Stat(filepath.Join(out, name))
		if err != nil || info.Size() == 0 {
			t.Errorf("%s missing or empty: %v", name, err)
		}
		if !strings.Contains(stdout, name) {
			t.Errorf("stdout does not report %s:\n%s", name, stdout)
		}
	}

	page, _ := os.ReadFile(filepath.Join(out, "lisbon.html"))
	containsAll(t, page, "<html", "Lisbon", "Day one: Alfama")

	svg, _ := os.ReadFile(filepath.Join(out, "lisbon.svg"))
	containsAll(t, svg, "<svg")

	png, _ := os.ReadFile(filepath.Join(out, "lisbon.png"))
	if !strings.HasPrefix(string(png), "\x89PNG") {
		t.Error("PNG export lacks the PNG signature")
	}
}

func TestExportSQLiteQueryable(t *testing.T) {
	dir := writeConversation(t, trip())
	dbPath := filepath.Join(dir, "lisbon.sqlite3")

	if _, stderr, code := runTV(t, dir, "--export-sqlite", dbPath, "conv.json"); code != 0 {
		t.Fatalf("export exited %d: %s", code, stderr)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	var title, leaf string
	if err := db.QueryRow(`SELECT title, active_leaf FROM conversation`).Scan(&title, &leaf); err != nil {
		t.Fatalf("query conversation: %v", err)
	}
	if title != "Lisbon" || leaf != "b" {
		t.Errorf("conversation row = %q, %q", title, leaf)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		t.Fatalf("count nodes: %v", err)
	}
	if count != 5 {
		t.Errorf("nodes = %d, want 5", count)
	}

	rows, err := db.Query(`SELECT id FROM nodes_fts WHERE nodes_fts MATCH 'belem'`)
	if err != nil {
		t.Fatalf("fts query: %v", err)
	}
	defer rows.Close()
	var hits []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		hits = append(hits, id)
	}
	if strings.Join(hits, ",") != "c" {
		t.Errorf("fts hits = %v, want [c]", hits)
	}

	// The exported database is itself a source.
	var payload robotView
	runRobotJSON(t, dir, &payload, "--robot-view", dbPath)
	if got := strings.Join(payload.ids(), ","); got != "a,b" {
		t.Errorf("view from sqlite = %s, want a,b", got)
	}
}

func TestExportHooksRun(t *testing.T) {
	dir := writeConversation(t, trip())
	if err := os.MkdirAll(filepath.Join(dir, ".threadview"), 0o755); err != nil {
		t.Fatal(err)
	}
	hooks := `hooks:
  post-export:
    - name: record
      command: echo "$TV_EXPORT_FORMAT $TV_EXPORT_LEAF_ID $TV_EXPORT_MESSAGE_COUNT" > hook.out
`
	if err := os.WriteFile(filepath.Join(dir, ".threadview", "hooks.yaml"), []byte(hooks), 0o644); err != nil {
		t.Fatal(err)
	}

	stdout, stderr, code := runTV(t, dir, "--export-md", "out.md", "conv.json")
	if code != 0 {
		t.Fatalf("export exited %d: %s", code, stderr)
	}
	got, err := os.ReadFile(filepath.Join(dir, "hook.out"))
	if err != nil {
		t.Fatalf("hook did not run: %v\n%s", err, stdout)
	}
	if strings.TrimSpace(string(got)) != "md b 2" {
		t.Errorf("hook saw %q", got)
	}

	_ = os.Remove(filepath.Join(dir, "hook.out"))
	if _, stderr, code := runTV(t, dir, "--no-hooks", "--export-md", "out.md", "conv.json"); code != 0 {
		t.Fatalf("--no-hooks exited %d: %s", code, stderr)
	}
	if _, err := os.Stat(filepath.Join(dir, "hook.out")); !os.IsNotExist(err) {
		t.Error("--no-hooks still ran the hook")
	}
}
