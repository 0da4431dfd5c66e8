package store

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// DefaultHistoryKey is the row key used when none is configured.
const DefaultHistoryKey = "chat-history"

// SQLiteStore persists the payload as a single keyed row in a sqlite
// database, so several independent histories can share one file.
type SQLiteStore struct {
	mu     sync.Mutex
	db     *sql.DB
	key    string
	closed bool
}

// NewSQLiteStore opens (or creates) the database at path and prepares the
// history table. An empty key falls back to DefaultHistoryKey.
func NewSQLiteStore(path, key string) (*SQLiteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("store: sqlite path is empty")
	}
	if key == "" {
		key = DefaultHistoryKey
	}
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("store: open sqlite %s: %w", path, err)
	}
	if err := migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db, key: key}, nil
}

func migrate(db *sql.DB) error {
	stmts := []string{
		`PRAGMA journal_mode=WAL;`,
		`CREATE TABLE IF NOT EXISTS history (
			key TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("store: migrate sqlite: %w", err)
		}
	}
	return nil
}

// Save upserts the payload under the configured key.
func (s *SQLiteStore) Save(data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrStoreClosed
	}
	_, err := s.db.Exec(
		`INSERT INTO history (key, data, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`,
		s.key, data, time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("store: save history row: %w", err)
	}
	return nil
}

// Load reads the payload for the configured key; a missing row means nothing
// stored.
func (s *SQLiteStore) Load() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrStoreClosed
	}
	var data []byte
	err := s.db.QueryRow(`SELECT data FROM history WHERE key = ?`, s.key).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("store: load history row: %w", err)
	}
	return data, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.db.Close()
}
