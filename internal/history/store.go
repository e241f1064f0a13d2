package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Event kinds journaled by the store.
const (
	EventDisplay = "display"
	EventRetire  = "retire"
	EventRecycle = "recycle"
)

// Entry is one journaled event.
type Entry struct {
	ID           int64
	Path         string
	Source       string
	DisplayCount int
	Event        string
	CreatedAt    time.Time
}

// Store wraps the SQLite journal.
type Store struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS display_events (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	path TEXT NOT NULL,
	source TEXT NOT NULL,
	display_count INTEGER NOT NULL,
	event TEXT NOT NULL,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_display_events_path ON display_events(path);
CREATE INDEX IF NOT EXISTS idx_display_events_created ON display_events(created_at);
`

// Open creates or opens the journal at dbPath and applies the schema.
func Open(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// RecordDisplay journals a successful background change along with the
// count the image has now reached.
func (s *Store) RecordDisplay(ctx context.Context, path, source string, count int) error {
	return s.insert(ctx, path, source, count, EventDisplay)
}

// RecordRetirement journals a retirement. recycled distinguishes a move into
// the recycle tree from a hard delete.
func (s *Store) RecordRetirement(ctx context.Context, path string, count int, recycled bool) error {
	event := EventRetire
	if recycled {
		event = EventRecycle
	}
	return s.insert(ctx, path, "primary", count, event)
}

func (s *Store) insert(ctx context.Context, path, source string, count int, event string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO display_events (path, source, display_count, event, created_at) VALUES (?, ?, ?, ?, ?)`,
		path, source, count, event, time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert %s event: %w", event, err)
	}
	return nil
}

// Recent returns up to limit entries, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, path, source, display_count, event, created_at
		 FROM display_events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var created string
		if err := rows.Scan(&entry.ID, &entry.Path, &entry.Source, &entry.DisplayCount, &entry.Event, &created); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		if ts, parseErr := time.Parse(time.RFC3339Nano, created); parseErr == nil {
			entry.CreatedAt = ts
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate event rows: %w", err)
	}
	return entries, nil
}
