package export

// SchemaVersion is bumped whenever the SQLite layout changes.
const SchemaVersion = 1

// SQLiteExportConfig tunes the SQLite export.
type SQLiteExportConfig struct {
	// FullText builds the nodes_fts index.
	FullText bool
	// Optimize runs ANALYZE and VACUUM after writing.
	Optimize bool
}

// DefaultSQLiteExportConfig returns the settings used by the CLI.
func DefaultSQLiteExportConfig() SQLiteExportConfig {
	return SQLiteExportConfig{FullText: true, Optimize: true}
}

// ExportNode is one row of the nodes table.
type ExportNode struct {
	ID           string   `json:"id"`
	Position     int      `json:"position"`
	ParentID     string   `json:"parent_id,omitempty"`
	MessageID    string   `json:"message_id,omitempty"`
	Role         string   `json:"role,omitempty"`
	CreateTime   *float64 `json:"create_time,omitempty"`
	Hidden       bool     `json:"hidden"`
	IsLeaf       bool     `json:"is_leaf"`
	OnActivePath bool     `json:"on_active_path"`
	PathIndex    *int     `json:"path_index,omitempty"`
	AnchorID     string   `json:"anchor_id,omitempty"`
	Text         string   `json:"text"`
}
