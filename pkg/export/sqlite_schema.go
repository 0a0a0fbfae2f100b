package export

import (
	"database/sql"
	"fmt"
)

// SQLiteDocumentQuery returns the source name and original document of an
// export. Readers use it to load the conversation back.
const SQLiteDocumentQuery = `SELECT source, document FROM conversation WHERE id = 1`

// Meta keys written to export_meta.
const (
	MetaExportedAt = "exported_at"
	MetaVersion    = "version"
	MetaLeaf       = "active_leaf"
	MetaFilter     = "filter"
	MetaNodeCount  = "node_count"
	MetaLeafCount  = "leaf_count"
)

// CreateSchema creates all tables and indexes.
func CreateSchema(db *sql.DB) error {
	if err := createCoreTables(db); err != nil {
		return err
	}
	if err := createIndexes(db); err != nil {
		return err
	}
	return createMetaTable(db)
}

func createCoreTables(db *sql.DB) error {
	tables := []string{
		`CREATE TABLE IF NOT EXISTS conversation (
			id INTEGER PRIMARY KEY CHECK (id = 1),
			title TEXT NOT NULL,
			conversation_id TEXT,
			create_time REAL,
			update_time REAL,
			current_node TEXT,
			active_leaf TEXT,
			source TEXT NOT NULL,
			document TEXT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS nodes (
			id TEXT PRIMARY KEY,
			position INTEGER NOT NULL,
			parent_id TEXT,
			message_id TEXT,
			role TEXT,
			create_time REAL,
			hidden INTEGER NOT NULL DEFAULT 0,
			is_leaf INTEGER NOT NULL DEFAULT 0,
			on_active_path INTEGER NOT NULL DEFAULT 0,
			path_index INTEGER,
			anchor_id TEXT,
			text TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE TABLE IF NOT EXISTS children (
			parent_id TEXT NOT NULL,
			child_id TEXT NOT NULL,
			ord INTEGER NOT NULL,
			PRIMARY KEY (parent_id, ord)
		)`,
		`CREATE TABLE IF NOT EXISTS problems (
			kind TEXT NOT NULL,
			severity TEXT NOT NULL,
			node_ids TEXT NOT NULL,
			message TEXT NOT NULL
		)`,
	}
	for _, ddl := range tables {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	return nil
}

func createIndexes(db *sql.DB) error {
	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_nodes_parent ON nodes(parent_id)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_path ON nodes(on_active_path, path_index)`,
		`CREATE INDEX IF NOT EXISTS idx_nodes_role ON nodes(role)`,
		`CREATE INDEX IF NOT EXISTS idx_children_child ON children(child_id)`,
	}
	for _, ddl := range indexes {
		if _, err := db.Exec(ddl); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func createMetaTable(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS export_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`)
	if err != nil {
		return fmt.Errorf("create meta table: %w", err)
	}
	return nil
}

// CreateFTSIndex creates and fills the FTS5 table over message text.
// Call it after the nodes are inserted.
func CreateFTSIndex(db *sql.DB) error {
	ftsSQL := `
		CREATE VIRTUAL TABLE IF NOT EXISTS nodes_fts USING fts5(
			id,
			role,
			text,
			content='nodes',
			content_rowid='rowid',
			tokenize='unicode61 remove_diacritics 2'
		)
	`
	if _, err := db.Exec(ftsSQL); err != nil {
		return fmt.Errorf("create FTS5 table: %w", err)
	}
	if _, err := db.Exec(`INSERT INTO nodes_fts(nodes_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("populate FTS index: %w", err)
	}
	return nil
}

// OptimizeDatabase compacts the file. Call it last, outside a transaction.
func OptimizeDatabase(db *sql.DB) error {
	for _, stmt := range []string{
		`PRAGMA journal_mode=DELETE`,
		`ANALYZE`,
		`PRAGMA optimize`,
	} {
		// Best effort: some pragmas are unavailable depending on state.
		_, _ = db.Exec(stmt)
	}
	_, _ = db.Exec(`INSERT INTO nodes_fts(nodes_fts) VALUES('optimize')`)

	if _, err := db.Exec(`VACUUM`); err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}

// InsertMetaValue inserts or updates a metadata key-value pair.
func InsertMetaValue(db *sql.DB, key, value string) error {
	_, err := db.Exec(`INSERT OR REPLACE INTO export_meta (key, value) VALUES (?, ?)`, key, value)
	return err
}
