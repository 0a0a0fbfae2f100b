package export

import (
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/threadview/pkg/filter"
	"github.com/vanderheijden86/threadview/pkg/loader"
	"github.com/vanderheijden86/threadview/pkg/testutil"
)

func exportDB(t *testing.T, snap *Snapshot) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "conv.sqlite3")
	if err := NewSQLiteExporter(snap).Export(path); err != nil {
		t.Fatalf("Export: %v", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteExportNodes(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	db := exportDB(t, snap)

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM nodes`).Scan(&count); err != nil {
		t.Fatal(err)
	}
	if count != 5 {
		t.Errorf("nodes = %d, want 5", count)
	}

	rows, err := db.Query(`SELECT id FROM nodes WHERE on_active_path = 1 ORDER BY path_index`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var path []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		path = append(path, id)
	}
	if len(path) != 3 || path[0] != "r" || path[1] != "a" || path[2] != "b" {
		t.Errorf("active path = %v, want [r a b]", path)
	}

	var text, role string
	var hidden, leaf bool
	err = db.QueryRow(`SELECT text, role, hidden, is_leaf FROM nodes WHERE id = 'h'`).Scan(&text, &role, &hidden, &leaf)
	if err != nil {
		t.Fatal(err)
	}
	if text != "secret context" || role != "system" || !hidden || !leaf {
		t.Errorf("node h = %q %q hidden=%v leaf=%v", text, role, hidden, leaf)
	}

	var parent sql.NullString
	if err := db.QueryRow(`SELECT parent_id FROM nodes WHERE id = 'r'`).Scan(&parent); err != nil {
		t.Fatal(err)
	}
	if parent.Valid {
		t.Errorf("root parent = %q, want NULL", parent.String)
	}
}

func TestSQLiteExportChildrenOrder(t *testing.T) {
	db := exportDB(t, newTestSnapshot(t, branchingConversation(), "", filter.Config{}))
	rows, err := db.Query(`SELECT child_id FROM children WHERE parent_id = 'a' ORDER BY ord`)
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			t.Fatal(err)
		}
		got = append(got, id)
	}
	if len(got) != 2 || got[0] != "b" || got[1] != "c" {
		t.Errorf("children of a = %v", got)
	}
}

func TestSQLiteExportFullText(t *testing.T) {
	db := exportDB(t, newTestSnapshot(t, branchingConversation(), "", filter.Config{}))
	var id string
	err := db.QueryRow(`SELECT id FROM nodes_fts WHERE nodes_fts MATCH 'branch'`).Scan(&id)
	if err != nil {
		t.Skipf("FTS5 unavailable: %v", err)
	}
	if id != "c" {
		t.Errorf("match = %q, want c", id)
	}
}

func TestSQLiteExportMetaAndDocument(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "c", filter.Config{ShowSystem: true})
	db := exportDB(t, snap)

	var exportedAt string
	if err := db.QueryRow(`SELECT value FROM export_meta WHERE key = ?`, MetaExportedAt).Scan(&exportedAt); err != nil {
		t.Fatal(err)
	}
	if ts, err := time.Parse(time.RFC3339, exportedAt); err != nil || !ts.Equal(fixedTime) {
		t.Errorf("exported_at = %q", exportedAt)
	}

	var leaf string
	if err := db.QueryRow(`SELECT value FROM export_meta WHERE key = ?`, MetaLeaf).Scan(&leaf); err != nil {
		t.Fatal(err)
	}
	if leaf != "c" {
		t.Errorf("active leaf = %q", leaf)
	}

	var source, raw string
	if err := db.QueryRow(SQLiteDocumentQuery).Scan(&source, &raw); err != nil {
		t.Fatal(err)
	}
	doc, err := loader.Parse([]byte(raw), source, loader.ParseOptions{})
	if err != nil {
		t.Fatalf("stored document does not parse: %v", err)
	}
	if doc.Source != "fixture.json" || doc.Tree.Len() != 5 {
		t.Errorf("round trip: source=%q nodes=%d", doc.Source, doc.Tree.Len())
	}
}

func TestSQLiteExportRecordsProblems(t *testing.T) {
	c := testutil.New(testutil.GeneratorConfig{Seed: 2}).ParentCycle(3)
	db := exportDB(t, newTestSnapshot(t, c, "", filter.Config{}))
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM problems`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n == 0 {
		t.Error("no problems recorded for a parent cycle")
	}
}

func TestSQLiteExportReplacesExistingFile(t *testing.T) {
	snap := newTestSnapshot(t, branchingConversation(), "", filter.Config{})
	path := filepath.Join(t.TempDir(), "conv.sqlite3")
	exp := NewSQLiteExporter(snap)
	exp.Config.Optimize = false
	for i := 0; i < 2; i++ {
		if err := exp.Export(path); err != nil {
			t.Fatalf("export %d: %v", i, err)
		}
	}
}
