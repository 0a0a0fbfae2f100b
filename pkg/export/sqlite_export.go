package export

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/threadview/pkg/content"
	"github.com/vanderheijden86/threadview/pkg/debug"
	"github.com/vanderheijden86/threadview/pkg/render"
	"github.com/vanderheijden86/threadview/pkg/version"
)

// SQLiteExporter writes a conversation to a SQLite database: the original
// document, one row per node with its extracted text, the child order, the
// structural problems and an optional FTS5 index over message text.
type SQLiteExporter struct {
	Snapshot *Snapshot
	Config   SQLiteExportConfig
}

// NewSQLiteExporter creates an exporter with the default config.
func NewSQLiteExporter(snap *Snapshot) *SQLiteExporter {
	return &SQLiteExporter{Snapshot: snap, Config: DefaultSQLiteExportConfig()}
}

// Nodes returns the node rows in mapping order.
func (e *SQLiteExporter) Nodes() []ExportNode {
	t := e.Snapshot.Doc.Tree
	pathIndex := make(map[string]int, len(e.Snapshot.View.Path))
	for i, id := range e.Snapshot.View.Path {
		pathIndex[id] = i
	}

	ids := t.IDs()
	rows := make([]ExportNode, 0, len(ids))
	for pos, id := range ids {
		n, _ := t.Node(id)
		row := ExportNode{
			ID:       id,
			Position: pos,
			Role:     n.Role(),
			Hidden:   n.IsHidden(),
			IsLeaf:   t.IsLeaf(id),
		}
		if p, ok := t.Parent(id); ok {
			row.ParentID = p
		}
		if idx, ok := pathIndex[id]; ok {
			row.OnActivePath = true
			row.PathIndex = &idx
		}
		if msg := n.Message; msg != nil {
			row.MessageID = msg.ID
			row.AnchorID = render.AnchorID(msg)
			row.Text = content.Extract(msg)
			if msg.CreateTime.Valid {
				ts := msg.CreateTime.Seconds
				row.CreateTime = &ts
			}
		}
		rows = append(rows, row)
	}
	return rows
}

// Export writes the database to path, replacing any existing file.
func (e *SQLiteExporter) Export(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove existing database: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	dbClosed := false
	defer func() {
		if !dbClosed {
			db.Close()
		}
	}()

	if err := CreateSchema(db); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if err := e.insertConversation(db); err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	if err := e.insertNodes(db); err != nil {
		return fmt.Errorf("insert nodes: %w", err)
	}
	if err := e.insertChildren(db); err != nil {
		return fmt.Errorf("insert children: %w", err)
	}
	if err := e.insertProblems(db); err != nil {
		return fmt.Errorf("insert problems: %w", err)
	}
	if e.Config.FullText {
		if err := CreateFTSIndex(db); err != nil {
			debug.Log("export: FTS5 not available: %v", err)
		}
	}
	if err := e.insertMeta(db); err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	if e.Config.Optimize {
		if err := OptimizeDatabase(db); err != nil {
			return fmt.Errorf("optimize database: %w", err)
		}
	}

	if err := db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	dbClosed = true
	return nil
}

func (e *SQLiteExporter) insertConversation(db *sql.DB) error {
	doc := e.Snapshot.Doc
	c := doc.Conversation
	_, err := db.Exec(`
		INSERT INTO conversation (id, title, conversation_id, create_time, update_time, current_node, active_leaf, source, document)
		VALUES (1, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.Snapshot.Meta.Title,
		nullString(c.DisplayID()),
		nullEpoch(c.CreateTime.Valid, c.CreateTime.Seconds),
		nullEpoch(c.UpdateTime.Valid, c.UpdateTime.Seconds),
		nullString(c.CurrentNode),
		nullString(e.Snapshot.View.LeafID),
		doc.Source,
		string(doc.Raw),
	)
	return err
}

func (e *SQLiteExporter) insertNodes(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO nodes (id, position, parent_id, message_id, role, create_time, hidden, is_leaf, on_active_path, path_index, anchor_id, text)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, n := range e.Nodes() {
		var pathIndex any
		if n.PathIndex != nil {
			pathIndex = *n.PathIndex
		}
		var createTime any
		if n.CreateTime != nil {
			createTime = *n.CreateTime
		}
		_, err := stmt.Exec(
			n.ID,
			n.Position,
			nullString(n.ParentID),
			nullString(n.MessageID),
			nullString(n.Role),
			createTime,
			n.Hidden,
			n.IsLeaf,
			n.OnActivePath,
			pathIndex,
			nullString(n.AnchorID),
			n.Text,
		)
		if err != nil {
			return fmt.Errorf("insert node %s: %w", n.ID, err)
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertChildren(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO children (parent_id, child_id, ord) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	t := e.Snapshot.Doc.Tree
	for _, id := range t.IDs() {
		for i, child := range t.Children(id) {
			if _, err := stmt.Exec(id, child, i); err != nil {
				return fmt.Errorf("insert child %s of %s: %w", child, id, err)
			}
		}
	}
	return tx.Commit()
}

func (e *SQLiteExporter) insertProblems(db *sql.DB) error {
	for _, p := range e.Snapshot.Doc.Problems {
		_, err := db.Exec(`INSERT INTO problems (kind, severity, node_ids, message) VALUES (?, ?, ?, ?)`,
			string(p.Kind), p.Severity.String(), strings.Join(p.NodeIDs, ","), p.Message)
		if err != nil {
			return err
		}
	}
	return nil
}

func (e *SQLiteExporter) insertMeta(db *sql.DB) error {
	filterJSON, err := json.Marshal(e.Snapshot.View.Config)
	if err != nil {
		return err
	}
	t := e.Snapshot.Doc.Tree
	meta := map[string]string{
		MetaExportedAt:   e.Snapshot.GeneratedAt.UTC().Format(time.RFC3339),
		MetaVersion:      version.Version,
		MetaLeaf:         e.Snapshot.View.LeafID,
		MetaFilter:       string(filterJSON),
		MetaNodeCount:    strconv.Itoa(t.Len()),
		MetaLeafCount:    strconv.Itoa(len(t.Leaves())),
		"schema_version": strconv.Itoa(SchemaVersion),
	}
	for key, value := range meta {
		if err := InsertMetaValue(db, key, value); err != nil {
			return fmt.Errorf("insert meta %s: %w", key, err)
		}
	}
	return nil
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullEpoch(valid bool, sec float64) any {
	if !valid {
		return nil
	}
	return sec
}
