package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Store is the SQLite-backed result cache. Entries are JSON payloads
// keyed by (kind, key), where kind names the record family ("prices",
// "metrics", ...) and key is a deterministic string derived from the
// call parameters. SQLite serializes concurrent readers and writers,
// so entries for the same key cannot interleave into corrupt state.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		path = "data/cache.db"
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout=3000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pragma busy_timeout: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS cache_entries (
			kind TEXT NOT NULL,
			key TEXT NOT NULL,
			payload TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (kind, key)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_cache_created ON cache_entries(created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Get loads a cached payload into dest. maxAge <= 0 means entries never
// expire. Returns false on miss or expired entry.
func (s *Store) Get(kind, key string, maxAge time.Duration, dest any) (bool, error) {
	if s == nil || s.db == nil {
		return false, nil
	}
	var payload string
	var createdAt int64
	err := s.db.QueryRow(
		`SELECT payload, created_at FROM cache_entries WHERE kind = ? AND key = ?`,
		kind, key,
	).Scan(&payload, &createdAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache get: %w", err)
	}
	if maxAge > 0 && time.Since(time.Unix(createdAt, 0)) > maxAge {
		return false, nil
	}
	if err := json.Unmarshal([]byte(payload), dest); err != nil {
		return false, fmt.Errorf("cache decode: %w", err)
	}
	return true, nil
}

// Set stores a payload, replacing any previous entry for the key.
func (s *Store) Set(kind, key string, v any) error {
	if s == nil || s.db == nil {
		return nil
	}
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	_, err = s.db.Exec(
		`INSERT INTO cache_entries (kind, key, payload, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(kind, key) DO UPDATE SET payload = excluded.payload, created_at = excluded.created_at`,
		kind, key, string(payload), time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

// Purge drops entries older than the given age.
func (s *Store) Purge(olderThan time.Duration) error {
	if s == nil || s.db == nil || olderThan <= 0 {
		return nil
	}
	cutoff := time.Now().Add(-olderThan).Unix()
	if _, err := s.db.Exec(`DELETE FROM cache_entries WHERE created_at < ?`, cutoff); err != nil {
		return fmt.Errorf("cache purge: %w", err)
	}
	return nil
}
