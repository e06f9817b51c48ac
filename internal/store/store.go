// Package store persists named sessions in a local sqlite database: one row
// per saved session, holding the ordered version history and the serialized
// binary assets. The durable table and the in-memory session only agree
// immediately after a save or a load; unsaved work is lost on restart by
// design.
package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/prompt-lab/plab/internal/assets"
	"github.com/prompt-lab/plab/internal/session"
)

// ErrNotFound is returned when an operation names a session id that does not
// exist in the table.
var ErrNotFound = errors.New("session not found")

const schema = `
PRAGMA journal_mode = WAL;
PRAGMA synchronous = NORMAL;
PRAGMA busy_timeout = 5000;

CREATE TABLE IF NOT EXISTS sessions (
    id       INTEGER PRIMARY KEY,
    name     TEXT NOT NULL,
    history  TEXT NOT NULL,
    assets   TEXT NOT NULL,
    saved_at TEXT NOT NULL DEFAULT ''
);

CREATE INDEX IF NOT EXISTS sessions_saved_at ON sessions(saved_at);
`

// Record is one durable session row.
type Record struct {
	ID      int64
	Name    string
	History []session.VersionRecord
	Assets  []assets.Asset
	SavedAt time.Time
}

type DB struct {
	db  *sql.DB
	log *zap.SugaredLogger
}

func Open(dbPath string, log *zap.SugaredLogger) (*DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &DB{db: db, log: log}, nil
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Save writes a session record, overwriting any existing row with the same
// id. The caller's in-memory state is untouched on failure.
func (d *DB) Save(rec Record) error {
	history, err := json.Marshal(rec.History)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	assetBlob, err := json.Marshal(rec.Assets)
	if err != nil {
		return fmt.Errorf("encode assets: %w", err)
	}

	_, err = d.db.Exec(
		`INSERT OR REPLACE INTO sessions (id, name, history, assets, saved_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.ID,
		rec.Name,
		string(history),
		string(assetBlob),
		rec.SavedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("save session %d: %w", rec.ID, err)
	}
	return nil
}

// Get loads one session by id. Returns ErrNotFound for a missing id. An
// asset that cannot be reconstructed from its stored payload is skipped with
// a warning so the history still loads.
func (d *DB) Get(id int64) (Record, error) {
	var (
		rec       Record
		history   string
		assetBlob string
		savedAt   string
	)
	err := d.db.QueryRow(
		"SELECT id, name, history, assets, saved_at FROM sessions WHERE id = ?", id,
	).Scan(&rec.ID, &rec.Name, &history, &assetBlob, &savedAt)
	if err == sql.ErrNoRows {
		return Record{}, fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get session %d: %w", id, err)
	}

	if err := json.Unmarshal([]byte(history), &rec.History); err != nil {
		return Record{}, fmt.Errorf("decode history of session %d: %w", id, err)
	}
	rec.Assets = d.decodeAssets(id, assetBlob)
	rec.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
	return rec, nil
}

// decodeAssets reconstructs each stored asset individually so that one
// malformed payload does not block the rest of the load.
func (d *DB) decodeAssets(id int64, blob string) []assets.Asset {
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		d.log.Warnw("asset set of session unreadable, loading without assets", "id", id, "error", err)
		return nil
	}

	var out []assets.Asset
	for i, r := range raw {
		var a assets.Asset
		if err := json.Unmarshal(r, &a); err != nil || a.FileName == "" {
			d.log.Warnw("skipping malformed asset", "id", id, "index", i, "error", err)
			continue
		}
		out = append(out, a)
	}
	return out
}

// List returns all saved sessions ordered by save time, newest first.
func (d *DB) List() ([]Record, error) {
	rows, err := d.db.Query(
		"SELECT id, name, history, assets, saved_at FROM sessions ORDER BY saved_at DESC, id DESC",
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var (
			rec       Record
			history   string
			assetBlob string
			savedAt   string
		)
		if err := rows.Scan(&rec.ID, &rec.Name, &history, &assetBlob, &savedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(history), &rec.History); err != nil {
			d.log.Warnw("history of session unreadable", "id", rec.ID, "error", err)
		}
		rec.Assets = d.decodeAssets(rec.ID, assetBlob)
		rec.SavedAt, _ = time.Parse(time.RFC3339, savedAt)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Delete removes a session row. Deleting a missing id returns ErrNotFound;
// no state is mutated in that case.
func (d *DB) Delete(id int64) error {
	res, err := d.db.Exec("DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete session %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("session %d: %w", id, ErrNotFound)
	}
	return nil
}

// Count reports the number of saved sessions.
func (d *DB) Count() (int, error) {
	var n int
	err := d.db.QueryRow("SELECT COUNT(*) FROM sessions").Scan(&n)
	return n, err
}
