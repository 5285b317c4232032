// Package client implements the consuming side of the sync engine: an HTTP
// API client, a realtime channel connection manager, a durable local cache
// and a per-bucket sync controller tying the three together.
package client

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// Cache is the durable local shadow of the last-applied bucket values. It
// survives restarts and serves reads when the server is unreachable. The
// server remains authoritative; the cache carries no independent state.
type Cache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the cache database at path.
func OpenCache(path string) (*Cache, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS buckets (
		key        TEXT PRIMARY KEY,
		value      BLOB NOT NULL,
		updated_at INTEGER NOT NULL
	)`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}

	return &Cache{db: db}, nil
}

// Get returns the cached value for a bucket key, reporting whether one exists.
func (c *Cache) Get(key string) ([]byte, bool, error) {
	var value []byte
	err := c.db.QueryRow(`SELECT value FROM buckets WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get %s: %w", key, err)
	}
	return value, true, nil
}

// Set stores the value for a bucket key, replacing any previous value.
func (c *Cache) Set(key string, value []byte) error {
	_, err := c.db.Exec(`
		INSERT INTO buckets (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value, time.Now().Unix())
	if err != nil {
		return fmt.Errorf("cache set %s: %w", key, err)
	}
	return nil
}

// Delete removes a bucket key from the cache.
func (c *Cache) Delete(key string) error {
	_, err := c.db.Exec(`DELETE FROM buckets WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("cache delete %s: %w", key, err)
	}
	return nil
}

func (c *Cache) Close() error {
	return c.db.Close()
}
