// Package draft persists the stakeholder's unsent message so it survives a
// restart. Drafts are keyed by session identity, never by a fixed name.
package draft

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite" // register sqlite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	scope      TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	updated_at TEXT NOT NULL DEFAULT ''
);
`

// Store is durable draft storage.
type Store interface {
	Load(scope string) (string, error)
	Save(scope, content string) error
	Delete(scope string) error
	List() ([]Entry, error)
	Close() error
}

// Entry is one persisted draft.
type Entry struct {
	Scope     string
	Content   string
	UpdatedAt time.Time
}

// Scope builds the storage key for a session on a given server and project.
func Scope(serverURL, projectID, sessionID string) string {
	if projectID == "" {
		projectID = "-"
	}
	if sessionID == "" {
		sessionID = "-"
	}
	return strings.TrimRight(serverURL, "/") + "|" + projectID + "|" + sessionID
}

// SQLiteStore is a Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and runs the
// drafts schema. Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db for drafts: %w", err)
	}
	db.SetMaxOpenConns(1)

	if dbPath != ":memory:" {
		if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
			db.Close()
			return nil, fmt.Errorf("set WAL mode: %w", err)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("run drafts schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Load returns the draft for scope, or "" when there is none.
func (s *SQLiteStore) Load(scope string) (string, error) {
	var content string
	err := s.db.QueryRow(`SELECT content FROM drafts WHERE scope = ?`, scope).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("load draft: %w", err)
	}
	return content, nil
}

// Save upserts the draft for scope. An empty content deletes it.
func (s *SQLiteStore) Save(scope, content string) error {
	if content == "" {
		return s.Delete(scope)
	}
	_, err := s.db.Exec(`
		INSERT INTO drafts (scope, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(scope) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at
	`, scope, content, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save draft: %w", err)
	}
	return nil
}

// Delete removes the draft for scope. Deleting a missing draft is not an error.
func (s *SQLiteStore) Delete(scope string) error {
	if _, err := s.db.Exec(`DELETE FROM drafts WHERE scope = ?`, scope); err != nil {
		return fmt.Errorf("delete draft: %w", err)
	}
	return nil
}

// List returns every stored draft, most recently updated first.
func (s *SQLiteStore) List() ([]Entry, error) {
	rows, err := s.db.Query(`SELECT scope, content, updated_at FROM drafts ORDER BY updated_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list drafts: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var ts string
		if err := rows.Scan(&e.Scope, &e.Content, &ts); err != nil {
			return nil, fmt.Errorf("scan draft: %w", err)
		}
		e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
		out = append(out, e)
	}
	return out, rows.Err()
}

// Close releases the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
