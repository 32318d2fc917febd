package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)
)

// ExactCache is the (project, key) -> (value, expire_at) response cache.
// Expired entries are deleted on read.
type ExactCache struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenExact opens (or creates) the exact cache database.
func OpenExact(path string) (*ExactCache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS cache (
			project TEXT NOT NULL,
			k TEXT NOT NULL,
			v TEXT NOT NULL,
			expire_at INTEGER NOT NULL,
			PRIMARY KEY (project, k)
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize cache schema: %w", err)
	}

	return &ExactCache{db: db}, nil
}

// Get decodes the cached value for (project, key) into out and reports whether
// it was found; a miss returns false.
// An expired row is deleted and treated as a miss. A corrupt row is logged
// and treated as a miss; writes still proceed.
func (c *ExactCache) Get(project, key string, out any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var value string
	var expireAt int64
	err := c.db.QueryRow(
		`SELECT v, expire_at FROM cache WHERE project = ? AND k = ?`,
		project, key).Scan(&value, &expireAt)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		slog.Warn("cache_read_failed", slog.String("error", err.Error()))
		return false, nil
	}

	if expireAt < time.Now().Unix() {
		_, _ = c.db.Exec(`DELETE FROM cache WHERE project = ? AND k = ?`, project, key)
		return false, nil
	}

	if err := json.Unmarshal([]byte(value), out); err != nil {
		slog.Warn("cache_entry_corrupt", slog.String("key", key), slog.String("error", err.Error()))
		return false, nil
	}
	return true, nil
}

// Set upserts a value with the given TTL.
func (c *ExactCache) Set(project, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode cache value: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	expireAt := time.Now().Add(ttl).Unix()
	_, err = c.db.Exec(
		`REPLACE INTO cache (project, k, v, expire_at) VALUES (?, ?, ?, ?)`,
		project, key, string(data), expireAt)
	return err
}

// Clear deletes one project's partition, or everything for project "all".
func (c *ExactCache) Clear(project string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if project == "all" {
		_, err := c.db.Exec(`DELETE FROM cache`)
		return err
	}
	_, err := c.db.Exec(`DELETE FROM cache WHERE project = ?`, project)
	return err
}

// Stats returns entry counts per project.
func (c *ExactCache) Stats() (map[string]int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	rows, err := c.db.Query(`SELECT project, COUNT(*) FROM cache GROUP BY project`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := make(map[string]int)
	for rows.Next() {
		var project string
		var count int
		if err := rows.Scan(&project, &count); err != nil {
			return nil, err
		}
		stats[project] = count
	}
	return stats, rows.Err()
}

// Close closes the database.
func (c *ExactCache) Close() error {
	return c.db.Close()
}
