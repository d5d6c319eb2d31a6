package registry

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "github.com/mattn/go-sqlite3"
)

const lookupSchema = `
CREATE TABLE IF NOT EXISTS lookups (
	name       TEXT PRIMARY KEY,
	packages   TEXT NOT NULL,
	checked_at INTEGER NOT NULL
)`

// Store persists registry answers between runs in SQLite.
type Store struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenStore opens (creating if needed) the lookup database at path.
// Entries older than ttl are treated as missing.
func OpenStore(path string, ttl time.Duration) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open registry cache: %w", err)
	}

	if _, err := db.Exec(lookupSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create registry cache schema: %w", err)
	}

	return &Store{db: db, ttl: ttl, now: time.Now}, nil
}

// Get returns the cached matches for name.
// Returns (nil, false, nil) when the name is unknown or expired.
func (s *Store) Get(name string) ([]Package, bool, error) {
	var encoded string
	var checkedAt int64

	err := sq.Select("packages", "checked_at").
		From("lookups").
		Where(sq.Eq{"name": name}).
		RunWith(s.db).
		QueryRow().
		Scan(&encoded, &checkedAt)

	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached lookup for %s: %w", name, err)
	}

	if s.now().Sub(time.Unix(checkedAt, 0)) > s.ttl {
		return nil, false, nil
	}

	matches := []Package{}
	if err := json.Unmarshal([]byte(encoded), &matches); err != nil {
		return nil, false, fmt.Errorf("corrupt cached lookup for %s: %w", name, err)
	}
	return matches, true, nil
}

// Put records the matches for name, replacing any earlier answer.
func (s *Store) Put(name string, matches []Package) error {
	if matches == nil {
		matches = []Package{}
	}
	encoded, err := json.Marshal(matches)
	if err != nil {
		return fmt.Errorf("failed to encode lookup for %s: %w", name, err)
	}

	_, err = sq.Insert("lookups").
		Columns("name", "packages", "checked_at").
		Values(name, string(encoded), s.now().Unix()).
		Options("OR REPLACE").
		RunWith(s.db).
		Exec()
	if err != nil {
		return fmt.Errorf("failed to cache lookup for %s: %w", name, err)
	}
	return nil
}

// Prune deletes expired entries and returns how many were removed.
func (s *Store) Prune() (int64, error) {
	cutoff := s.now().Add(-s.ttl).Unix()
	res, err := sq.Delete("lookups").
		Where(sq.Lt{"checked_at": cutoff}).
		RunWith(s.db).
		Exec()
	if err != nil {
		return 0, fmt.Errorf("failed to prune registry cache: %w", err)
	}
	return res.RowsAffected()
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// PersistentClient answers from a Store before asking the next client.
type PersistentClient struct {
	next  Client
	store *Store
}

// NewPersistentClient wraps next with store.
func NewPersistentClient(next Client, store *Store) *PersistentClient {
	return &PersistentClient{next: next, store: store}
}

// Search implements Client.
func (c *PersistentClient) Search(ctx context.Context, name string) ([]Package, error) {
	matches, ok, err := c.store.Get(name)
	if err != nil {
		return nil, err
	}
	if ok {
		return matches, nil
	}

	matches, err = c.next.Search(ctx, name)
	if err != nil {
		return nil, err
	}

	// A write failure costs a repeat lookup next time, not this answer.
	if err := c.store.Put(name, matches); err != nil {
		log.Printf("Warning: %v\n", err)
	}
	return matches, nil
}
