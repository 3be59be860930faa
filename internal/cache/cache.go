// Package cache persists the last-fetched note collection and fingerprint
// per board, so a new session renders instantly from disk and the first
// poll can already be conditional.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jmilloy/notewall/internal/models"
)

const cacheFile = ".notewall/cache.db"

// DB wraps the cache database connection.
type DB struct {
	conn *sql.DB
}

// Open opens (creating if needed) the snapshot cache for a base directory.
func Open(baseDir string) (*DB, error) {
	path := filepath.Join(baseDir, cacheFile)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}
	if err := Init(conn); err != nil {
		conn.Close()
		return nil, err
	}
	return &DB{conn: conn}, nil
}

// Close closes the underlying connection.
func (d *DB) Close() error {
	return d.conn.Close()
}

// Conn exposes the raw connection.
func (d *DB) Conn() *sql.DB {
	return d.conn
}

// SaveSnapshot stores the board's latest fetch.
func (d *DB) SaveSnapshot(boardID, fingerprint string, notes []models.Note) error {
	return SaveSnapshot(d.conn, boardID, fingerprint, notes)
}

// LoadSnapshot returns the board's cached fetch, or nil when none exists.
func (d *DB) LoadSnapshot(boardID string) (*Snapshot, error) {
	return LoadSnapshot(d.conn, boardID)
}

// Forget drops the board's snapshot.
func (d *DB) Forget(boardID string) error {
	return Forget(d.conn, boardID)
}

// Snapshot is one cached fetch result.
type Snapshot struct {
	BoardID     string
	Fingerprint string
	Notes       []models.Note
	FetchedAt   time.Time
}

// Init creates the snapshots table if it doesn't exist.
func Init(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE TABLE IF NOT EXISTS snapshots (
			board_id    TEXT PRIMARY KEY,
			fingerprint TEXT NOT NULL,
			notes       JSON NOT NULL,
			fetched_at  DATETIME DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("init snapshot cache: %w", err)
	}
	return nil
}

// SaveSnapshot upserts the board's latest fetch.
func SaveSnapshot(conn *sql.DB, boardID, fingerprint string, notes []models.Note) error {
	data, err := json.Marshal(notes)
	if err != nil {
		return fmt.Errorf("marshal notes: %w", err)
	}
	_, err = conn.Exec(
		`INSERT INTO snapshots (board_id, fingerprint, notes, fetched_at)
		 VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(board_id) DO UPDATE SET
		 	fingerprint = excluded.fingerprint,
		 	notes = excluded.notes,
		 	fetched_at = CURRENT_TIMESTAMP`,
		boardID, fingerprint, string(data),
	)
	if err != nil {
		return fmt.Errorf("save snapshot %s: %w", boardID, err)
	}
	return nil
}

// LoadSnapshot reads the board's cached fetch. Returns nil, nil when the
// board has no snapshot. A corrupt row is treated as absent and removed.
func LoadSnapshot(conn *sql.DB, boardID string) (*Snapshot, error) {
	var (
		snap    Snapshot
		data    string
		fetched string
	)
	err := conn.QueryRow(
		`SELECT board_id, fingerprint, notes, fetched_at FROM snapshots WHERE board_id = ?`,
		boardID,
	).Scan(&snap.BoardID, &snap.Fingerprint, &data, &fetched)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load snapshot %s: %w", boardID, err)
	}

	if err := json.Unmarshal([]byte(data), &snap.Notes); err != nil {
		_ = Forget(conn, boardID)
		return nil, nil
	}
	if t, err := parseTimestamp(fetched); err == nil {
		snap.FetchedAt = t
	}
	return &snap, nil
}

// Forget removes the board's snapshot.
func Forget(conn *sql.DB, boardID string) error {
	if _, err := conn.Exec(`DELETE FROM snapshots WHERE board_id = ?`, boardID); err != nil {
		return fmt.Errorf("forget snapshot %s: %w", boardID, err)
	}
	return nil
}

// parseTimestamp tries common SQLite timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02 15:04:05",
		"2006-01-02T15:04:05Z",
		"2006-01-02 15:04:05.999999999-07:00",
	}
	for _, f := range formats {
		if t, err := time.Parse(f, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp format: %q", s)
}
