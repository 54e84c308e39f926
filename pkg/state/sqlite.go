package state

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	json "github.com/goccy/go-json"
	_ "modernc.org/sqlite"

	"github.com/vanderheijden86/arbor/pkg/debug"
)

const createStateTable = `
CREATE TABLE IF NOT EXISTS tree_state (
    tree_key   TEXT PRIMARY KEY,
    snapshot   TEXT NOT NULL,
    updated_at TEXT NOT NULL
)`

// SQLiteStore keeps snapshots in a tree_state table.
type SQLiteStore struct {
	db   *sql.DB
	path string
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create state directory: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("cannot open state database: %w", err)
	}
	if _, err := db.Exec(createStateTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating tree_state table: %w", err)
	}
	return &SQLiteStore{db: db, path: path}, nil
}

func (s *SQLiteStore) Load(key string) (*Snapshot, error) {
	if err := checkKey(key); err != nil {
		return nil, err
	}
	var raw string
	err := s.db.QueryRow(`SELECT snapshot FROM tree_state WHERE tree_key = ?`, key).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading state: %w", err)
	}
	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		debug.Log("state: invalid snapshot for %s: %v", key, err)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return &snap, nil
}

func (s *SQLiteStore) Save(key string, snap *Snapshot) error {
	if err := checkKey(key); err != nil {
		return err
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal tree state: %w", err)
	}
	_, err = s.db.Exec(`
		INSERT INTO tree_state (tree_key, snapshot, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(tree_key) DO UPDATE SET snapshot = excluded.snapshot, updated_at = excluded.updated_at
	`, key, string(data), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving state: %w", err)
	}
	debug.Log("state: saved %s to %s", key, s.path)
	return nil
}

func (s *SQLiteStore) Delete(key string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	_, err := s.db.Exec(`DELETE FROM tree_state WHERE tree_key = ?`, key)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
