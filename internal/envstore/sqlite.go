// Package envstore persists the build environment in SQLite so incremental
// builds can skip documents that did not change since the previous run.
package envstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"git.home.luguber.info/inful/docblog/internal/build"
	"git.home.luguber.info/inful/docblog/internal/foundation/errors"
	"git.home.luguber.info/inful/docblog/internal/posts"
)

const schemaVersion = "1"

// SQLiteStore implements build.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewSQLiteStore opens the store at dbPath, creating the schema if needed.
// Use ":memory:" for an in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o750); err != nil {
			return nil, errors.WrapError(err, errors.CategoryFileSystem, "create state directory").
				WithContext("path", dbPath).
				Build()
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryStore, "open environment database").
			WithContext("path", dbPath).
			Build()
	}
	// A single connection keeps ":memory:" databases alive between calls.
	db.SetMaxOpenConns(1)

	store := &SQLiteStore{db: db}
	if err := store.initialize(); err != nil {
		_ = db.Close()
		return nil, errors.WrapError(err, errors.CategoryStore, "initialize environment schema").
			WithContext("path", dbPath).
			Build()
	}
	return store, nil
}

func (s *SQLiteStore) initialize() error {
	schema := `
	CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	CREATE TABLE IF NOT EXISTS documents (
		docname TEXT PRIMARY KEY,
		rel_path TEXT NOT NULL,
		fingerprint TEXT NOT NULL,
		title TEXT NOT NULL,
		volatile INTEGER NOT NULL DEFAULT 0
	);
	CREATE TABLE IF NOT EXISTS posts (
		seq INTEGER PRIMARY KEY,
		docname TEXT NOT NULL,
		anchor TEXT NOT NULL,
		title TEXT NOT NULL,
		date TEXT NOT NULL,
		author TEXT NOT NULL,
		tags TEXT NOT NULL,
		category TEXT NOT NULL,
		draft INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_posts_docname ON posts(docname);
	CREATE TABLE IF NOT EXISTS builds (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		build_id TEXT NOT NULL,
		format TEXT NOT NULL,
		timestamp INTEGER NOT NULL,
		duration_ms INTEGER NOT NULL,
		documents INTEGER NOT NULL,
		read INTEGER NOT NULL,
		written INTEGER NOT NULL,
		failed INTEGER NOT NULL,
		posts INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_builds_timestamp ON builds(timestamp);
	`
	_, err := s.db.Exec(schema)
	return err
}

// Load implements build.Store. It returns nil when no environment was saved.
func (s *SQLiteStore) Load(ctx context.Context) (*build.Environment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta, err := s.meta(ctx)
	if err != nil {
		return nil, err
	}
	if meta["schema"] != schemaVersion {
		return nil, nil
	}

	env := build.NewEnvironment()
	if err := s.loadDocuments(ctx, env); err != nil {
		return nil, err
	}
	if meta["posts"] == "1" {
		list, err := s.loadPosts(ctx)
		if err != nil {
			return nil, err
		}
		env.Posts = list
	}
	return env, nil
}

func (s *SQLiteStore) meta(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM meta")
	if err != nil {
		return nil, queryError(err, "meta")
	}
	defer rows.Close()

	meta := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, queryError(err, "meta")
		}
		meta[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "meta")
	}
	return meta, nil
}

func (s *SQLiteStore) loadDocuments(ctx context.Context, env *build.Environment) error {
	rows, err := s.db.QueryContext(ctx, "SELECT docname, rel_path, fingerprint, title, volatile FROM documents")
	if err != nil {
		return queryError(err, "documents")
	}
	defer rows.Close()

	for rows.Next() {
		var (
			name     string
			info     build.DocInfo
			volatile bool
		)
		if err := rows.Scan(&name, &info.RelPath, &info.Fingerprint, &info.Title, &volatile); err != nil {
			return queryError(err, "documents")
		}
		env.Docs[name] = info
		if volatile {
			env.MarkVolatile(name)
		}
	}
	if err := rows.Err(); err != nil {
		return queryError(err, "documents")
	}
	return nil
}

func (s *SQLiteStore) loadPosts(ctx context.Context) (*posts.List, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT docname, anchor, title, date, author, tags, category, draft FROM posts ORDER BY seq")
	if err != nil {
		return nil, queryError(err, "posts")
	}
	defer rows.Close()

	list := posts.NewList()
	for rows.Next() {
		var (
			rec      posts.Record
			date     string
			tagsJSON string
		)
		if err := rows.Scan(&rec.Docname, &rec.Anchor, &rec.Title, &date, &rec.Author, &tagsJSON, &rec.Category, &rec.Draft); err != nil {
			return nil, queryError(err, "posts")
		}
		rec.Date, err = time.Parse(posts.SourceDateLayout, date)
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryStore, "invalid stored post date").
				WithContext("docname", rec.Docname).
				Build()
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Tags); err != nil {
			return nil, errors.WrapError(err, errors.CategoryStore, "invalid stored post tags").
				WithContext("docname", rec.Docname).
				Build()
		}
		list.Append(&rec)
	}
	if err := rows.Err(); err != nil {
		return nil, queryError(err, "posts")
	}
	return list, nil
}

// Save implements build.Store. The previous environment is replaced.
func (s *SQLiteStore) Save(ctx context.Context, env *build.Environment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.WrapError(err, errors.CategoryStore, "begin transaction").Build()
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM meta", "DELETE FROM documents", "DELETE FROM posts"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return writeError(err, stmt)
		}
	}

	for _, name := range env.Docnames() {
		info := env.Docs[name]
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO documents (docname, rel_path, fingerprint, title, volatile) VALUES (?, ?, ?, ?, ?)",
			name, info.RelPath, info.Fingerprint, info.Title, env.IsVolatile(name),
		); err != nil {
			return writeError(err, "documents")
		}
	}

	for i, rec := range env.Posts.Records() {
		tags, err := json.Marshal(rec.Tags)
		if err != nil {
			return errors.WrapError(err, errors.CategoryStore, "marshal post tags").Build()
		}
		if _, err := tx.ExecContext(ctx,
			"INSERT INTO posts (seq, docname, anchor, title, date, author, tags, category, draft) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)",
			i, rec.Docname, rec.Anchor, rec.Title, rec.Date.Format(posts.SourceDateLayout), rec.Author, string(tags), rec.Category, rec.Draft,
		); err != nil {
			return writeError(err, "posts")
		}
	}

	postsPresent := "0"
	if env.Posts != nil {
		postsPresent = "1"
	}
	for k, v := range map[string]string{"schema": schemaVersion, "posts": postsPresent} {
		if _, err := tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)", k, v); err != nil {
			return writeError(err, "meta")
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.WrapError(err, errors.CategoryStore, "commit environment").Build()
	}
	return nil
}

// Reset removes the saved environment so the next build starts fresh.
// Build history is kept.
func (s *SQLiteStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stmt := range []string{"DELETE FROM meta", "DELETE FROM documents", "DELETE FROM posts"} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return writeError(err, stmt)
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.db.Close()
}

func queryError(err error, table string) error {
	return errors.WrapError(err, errors.CategoryStore, "query environment").
		WithContext("table", table).
		Build()
}

func writeError(err error, table string) error {
	return errors.WrapError(err, errors.CategoryStore, "write environment").
		WithContext("table", table).
		Build()
}

var _ build.Store = (*SQLiteStore)(nil)
