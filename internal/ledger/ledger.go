// Package ledger persists one record per archived video. The presence of a
// record is the sole dedup signal: videos with a record are skipped before
// any extraction work begins.
package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"retreivr/internal/errs"
)

// Record is one completed download.
type Record struct {
	VideoID      string
	PlaylistID   string
	DownloadedAt time.Time
	Filepath     string
}

// Ledger manages download history backed by SQLite.
type Ledger struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database and applies the schema.
func Open(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure db dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
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

	if _, err := db.Exec(`
        CREATE TABLE IF NOT EXISTS downloads (
            video_id TEXT PRIMARY KEY,
            playlist_id TEXT,
            downloaded_at TIMESTAMP,
            filepath TEXT
        )`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	return &Ledger{db: db, path: path}, nil
}

// Close closes the underlying database connection.
func (l *Ledger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

// Has reports whether a record exists for the video.
func (l *Ledger) Has(ctx context.Context, videoID string) (bool, error) {
	var id string

	err := l.db.QueryRowContext(ctx,
		`SELECT video_id FROM downloads WHERE video_id = ?`, videoID).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("query download: %w", err)
	}

	return true, nil
}

// Insert writes the record for a completed download. Inserting a video that
// already has a record returns errs.ErrDuplicateRecord.
func (l *Ledger) Insert(ctx context.Context, rec Record) error {
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO downloads (video_id, playlist_id, downloaded_at, filepath)
         VALUES (?, ?, ?, ?)`,
		rec.VideoID,
		rec.PlaylistID,
		rec.DownloadedAt.UTC().Format(time.RFC3339Nano),
		rec.Filepath,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("%w: %s", errs.ErrDuplicateRecord, rec.VideoID)
		}

		return fmt.Errorf("insert download: %w", err)
	}

	return nil
}

// Count returns the number of records in the ledger.
func (l *Ledger) Count(ctx context.Context) (int, error) {
	var n int
	if err := l.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM downloads`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count downloads: %w", err)
	}

	return n, nil
}

// Get returns the record for a video, or nil when none exists.
func (l *Ledger) Get(ctx context.Context, videoID string) (*Record, error) {
	var (
		rec Record
		at  string
	)

	err := l.db.QueryRowContext(ctx,
		`SELECT video_id, playlist_id, downloaded_at, filepath
         FROM downloads WHERE video_id = ?`, videoID).
		Scan(&rec.VideoID, &rec.PlaylistID, &at, &rec.Filepath)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("query download: %w", err)
	}

	if ts, parseErr := time.Parse(time.RFC3339Nano, at); parseErr == nil {
		rec.DownloadedAt = ts
	}

	return &rec, nil
}
