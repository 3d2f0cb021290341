// Package history keeps an archive of completed downloads in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS downloads (
	track_id      TEXT PRIMARY KEY,
	title         TEXT NOT NULL,
	artist        TEXT NOT NULL,
	provider      TEXT NOT NULL,
	locator       TEXT NOT NULL,
	score         INTEGER NOT NULL,
	path          TEXT NOT NULL,
	downloaded_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS downloads_downloaded_at ON downloads (downloaded_at);
`

// Entry is one archived download.
type Entry struct {
	TrackID      string
	Title        string
	Artist       string
	Provider     string
	Locator      string
	Score        int
	Path         string
	DownloadedAt time.Time
}

// Store is the download archive.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the archive at path. ":memory:" is
// accepted for tests.
func Open(ctx context.Context, path string) (*Store, error) {
	dsn := ":memory:"
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
			return nil, fmt.Errorf("creating history directory: %w", err)
		}
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening history: %w", err)
	}
	// Single writer connection for SQLite
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Record stores e, replacing any earlier download of the same track.
func (s *Store) Record(ctx context.Context, e Entry) error {
	if e.DownloadedAt.IsZero() {
		e.DownloadedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO downloads (track_id, title, artist, provider, locator, score, path, downloaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (track_id) DO UPDATE SET
			title = excluded.title,
			artist = excluded.artist,
			provider = excluded.provider,
			locator = excluded.locator,
			score = excluded.score,
			path = excluded.path,
			downloaded_at = excluded.downloaded_at`,
		e.TrackID, e.Title, e.Artist, e.Provider, e.Locator, e.Score, e.Path, e.DownloadedAt.Unix())
	if err != nil {
		return fmt.Errorf("recording download of %s: %w", e.TrackID, err)
	}
	return nil
}

// List returns up to limit entries, most recent first. limit <= 0 means all.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT track_id, title, artist, provider, locator, score, path, downloaded_at
		FROM downloads
		ORDER BY downloaded_at DESC, track_id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ts int64
		if err := rows.Scan(&e.TrackID, &e.Title, &e.Artist, &e.Provider, &e.Locator, &e.Score, &e.Path, &ts); err != nil {
			return nil, fmt.Errorf("scanning history row: %w", err)
		}
		e.DownloadedAt = time.Unix(ts, 0)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
