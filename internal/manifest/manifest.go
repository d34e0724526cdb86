// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package manifest records which source files and directories have been
// uploaded as pages, so an interrupted or repeated upload resumes instead
// of duplicating pages.
package manifest

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.yaml.in/yaml/v3"
)

// Kinds of uploaded entries.
const (
	KindDirectory = "directory"
	KindFile      = "file"
)

// Entry is one uploaded page.
type Entry struct {
	SourcePath string `json:"source_path" yaml:"source_path"`
	PageID     string `json:"page_id" yaml:"page_id"`
	ParentID   string `json:"parent_id" yaml:"parent_id"`
	Kind       string `json:"kind" yaml:"kind"`
	// ModTime is the source modification time (RFC 3339, UTC) at upload.
	ModTime    string `json:"mod_time" yaml:"mod_time"`
	UploadedAt string `json:"uploaded_at" yaml:"uploaded_at"`
}

// FormatModTime renders t the way ModTime is stored.
func FormatModTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// Store is the SQLite-backed manifest.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens or creates the manifest database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating manifest directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// OpenReadOnly opens an existing manifest without writing to it or its
// directory: no schema changes, no journal files. Record fails on the
// returned store.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro&immutable=1")
	if err != nil {
		return nil, fmt.Errorf("opening manifest: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS pages (
			source_path TEXT PRIMARY KEY,
			page_id TEXT NOT NULL,
			parent_id TEXT NOT NULL,
			kind TEXT NOT NULL,
			mod_time TEXT,
			uploaded_at TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pages_parent ON pages(parent_id)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Lookup returns the entry recorded for sourcePath.
func (s *Store) Lookup(ctx context.Context, sourcePath string) (Entry, bool, error) {
	var e Entry
	var modTime sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT source_path, page_id, parent_id, kind, mod_time, uploaded_at FROM pages WHERE source_path = ?`,
		sourcePath,
	).Scan(&e.SourcePath, &e.PageID, &e.ParentID, &e.Kind, &modTime, &e.UploadedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("looking up %s: %w", sourcePath, err)
	}
	e.ModTime = modTime.String
	return e, true, nil
}

// Record inserts or replaces the entry for e.SourcePath. UploadedAt is set
// to the current time when empty.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.UploadedAt == "" {
		e.UploadedAt = time.Now().UTC().Format(time.RFC3339)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pages (source_path, page_id, parent_id, kind, mod_time, uploaded_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(source_path) DO UPDATE SET
			page_id=excluded.page_id, parent_id=excluded.parent_id, kind=excluded.kind,
			mod_time=excluded.mod_time, uploaded_at=excluded.uploaded_at`,
		e.SourcePath, e.PageID, e.ParentID, e.Kind, e.ModTime, e.UploadedAt,
	)
	if err != nil {
		return fmt.Errorf("recording %s: %w", e.SourcePath, err)
	}
	return nil
}

// Entries returns all entries ordered by source path.
func (s *Store) Entries(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT source_path, page_id, parent_id, kind, mod_time, uploaded_at FROM pages ORDER BY source_path`)
	if err != nil {
		return nil, fmt.Errorf("listing manifest: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var modTime sql.NullString
		if err := rows.Scan(&e.SourcePath, &e.PageID, &e.ParentID, &e.Kind, &modTime, &e.UploadedAt); err != nil {
			return nil, fmt.Errorf("scanning manifest row: %w", err)
		}
		e.ModTime = modTime.String
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// ExportYAML writes all entries to path as a YAML list.
func (s *Store) ExportYAML(ctx context.Context, path string) error {
	entries, err := s.Entries(ctx)
	if err != nil {
		return err
	}
	data, err := yaml.Marshal(entries)
	if err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}
