// Package store persists document drafts (engine snapshots) in SQLite.
//
// Usage:
//
//	s, err := store.Open("drafts.db", nil)
//	id, err := s.Save(ctx, "", "Brief", engine.Snapshot())
//	d, err := s.Load(ctx, id)
//	e, err := layout.Restore(d.Snapshot, opts)
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ByLCY/docbuilder/layout"
)

// ErrNotFound is returned for unknown draft ids.
var ErrNotFound = errors.New("store: draft not found")

const schema = `
CREATE TABLE IF NOT EXISTS drafts (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	pages      INTEGER NOT NULL DEFAULT 0,
	snapshot   TEXT NOT NULL,
	created_at INTEGER NOT NULL,
	updated_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_drafts_updated ON drafts(updated_at);
`

// Draft is a stored snapshot.
type Draft struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Snapshot  layout.Snapshot `json:"snapshot"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Summary is the listing form of a draft.
type Summary struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Pages     int       `json:"pages"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Store wraps the drafts database.
type Store struct {
	db  *sql.DB
	log *slog.Logger
	now func() time.Time
}

// Open opens (and creates) the database at path with WAL journaling, a busy
// timeout and foreign keys. ":memory:" opens a private in-memory database.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.Default()
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("store: mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if path == ":memory:" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 10000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			db.Close()
			return nil, fmt.Errorf("store: %s: %w", p, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: schema: %w", err)
	}
	return &Store{db: db, log: log, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

// Save inserts or replaces a draft. An empty id allocates a new UUIDv7.
func (s *Store) Save(ctx context.Context, id, name string, snap layout.Snapshot) (string, error) {
	if id == "" {
		u, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("store: new id: %w", err)
		}
		id = u.String()
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("store: marshal snapshot: %w", err)
	}
	now := s.now().UnixNano()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO drafts (id, name, pages, snapshot, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			pages = excluded.pages,
			snapshot = excluded.snapshot,
			updated_at = excluded.updated_at`,
		id, name, len(snap.Pages), string(data), now, now)
	if err != nil {
		return "", fmt.Errorf("store: save %s: %w", id, err)
	}
	s.log.Debug("store: draft saved", "id", id, "pages", len(snap.Pages))
	return id, nil
}

// Load returns the draft with the given id.
func (s *Store) Load(ctx context.Context, id string) (Draft, error) {
	var (
		d                Draft
		raw              string
		created, updated int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, snapshot, created_at, updated_at FROM drafts WHERE id = ?`, id,
	).Scan(&d.ID, &d.Name, &raw, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		s.log.Warn("store: draft not found", "id", id)
		return Draft{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return Draft{}, fmt.Errorf("store: load %s: %w", id, err)
	}
	if err := json.Unmarshal([]byte(raw), &d.Snapshot); err != nil {
		return Draft{}, fmt.Errorf("store: decode %s: %w", id, err)
	}
	d.CreatedAt = time.Unix(0, created)
	d.UpdatedAt = time.Unix(0, updated)
	return d, nil
}

// List returns every draft, most recently updated first.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, pages, updated_at FROM drafts ORDER BY updated_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var sm Summary
		var updated int64
		if err := rows.Scan(&sm.ID, &sm.Name, &sm.Pages, &updated); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		sm.UpdatedAt = time.Unix(0, updated)
		out = append(out, sm)
	}
	return out, rows.Err()
}

// Delete removes a draft. Deleting an unknown id returns ErrNotFound.
func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM drafts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("store: delete %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}
