package datasource

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/threadview/pkg/export"
	"github.com/vanderheijden86/threadview/pkg/loader"
)

// SQLiteReader reads a conversation back from a tv SQLite export.
type SQLiteReader struct {
	db   *sql.DB
	path string
}

// NewSQLiteReader opens a SQLite export read-only.
func NewSQLiteReader(source DataSource) (*SQLiteReader, error) {
	if source.Type != SourceTypeSQLite {
		return nil, fmt.Errorf("source is not SQLite: %s", source.Type)
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", source.Path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}
	return &SQLiteReader{db: db, path: source.Path}, nil
}

// Close closes the database connection.
func (r *SQLiteReader) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// LoadDocument parses the original document stored in the export.
func (r *SQLiteReader) LoadDocument(opts loader.ParseOptions) (*loader.Document, error) {
	var source, raw string
	err := r.db.QueryRow(export.SQLiteDocumentQuery).Scan(&source, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s holds no conversation", r.path)
	}
	if err != nil {
		return nil, fmt.Errorf("read conversation: %w", err)
	}
	return loader.Parse([]byte(raw), source, opts)
}

// ExportedAt returns when the export was written.
func (r *SQLiteReader) ExportedAt() (time.Time, error) {
	var ts string
	if err := r.db.QueryRow(`SELECT value FROM export_meta WHERE key = 'exported_at'`).Scan(&ts); err != nil {
		return time.Time{}, err
	}
	return time.Parse(time.RFC3339, ts)
}
