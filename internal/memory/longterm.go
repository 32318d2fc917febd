// Package memory persists project knowledge across sessions: long-term
// key-value memory and the task store.
package memory

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	_ "modernc.org/sqlite" // pure Go SQLite driver (no CGO)

	"github.com/zoonderkins/augment-lite/internal/errors"
)

// keyRe validates memory keys.
var keyRe = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// maxKeyLen caps memory key length.
const maxKeyLen = 256

// Entry is one memory row.
type Entry struct {
	Key       string `json:"key"`
	Value     string `json:"value"`
	CreatedAt int64  `json:"created_at"`
	UpdatedAt int64  `json:"updated_at"`
}

// Longterm is the (project, key) -> value store. project "" is global.
type Longterm struct {
	mu sync.Mutex
	db *sql.DB
}

// OpenLongterm opens (or creates) the long-term memory database.
func OpenLongterm(path string) (*Longterm, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create memory directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open memory database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS mem (
			project TEXT NOT NULL,
			k TEXT NOT NULL,
			v TEXT NOT NULL,
			created_at INTEGER NOT NULL,
			updated_at INTEGER NOT NULL,
			PRIMARY KEY (project, k)
		)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize memory schema: %w", err)
	}

	return &Longterm{db: db}, nil
}

// ValidateKey checks the memory key pattern and length.
func ValidateKey(key string) error {
	if key == "" || len(key) > maxKeyLen || !keyRe.MatchString(key) {
		return errors.New(errors.CodeInvalidInput,
			"invalid memory key %q: must match [A-Za-z0-9_.-]+ and be at most %d chars", key, maxKeyLen)
	}
	return nil
}

// Get returns the value for (project, key), or ("", false) on miss.
func (l *Longterm) Get(projectName, key string) (string, bool, error) {
	if err := ValidateKey(key); err != nil {
		return "", false, err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	var value string
	err := l.db.QueryRow(
		`SELECT v FROM mem WHERE project = ? AND k = ?`, projectName, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

// Set upserts a value, preserving created_at on update.
func (l *Longterm) Set(projectName, key, value string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now().Unix()
	_, err := l.db.Exec(`
		INSERT INTO mem (project, k, v, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (project, k)
		DO UPDATE SET v = excluded.v, updated_at = excluded.updated_at`,
		projectName, key, value, now, now)
	return err
}

// Delete removes one key.
func (l *Longterm) Delete(projectName, key string) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`DELETE FROM mem WHERE project = ? AND k = ?`, projectName, key)
	return err
}

// List returns all entries for a project, most recently updated first.
func (l *Longterm) List(projectName string) ([]Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	rows, err := l.db.Query(`
		SELECT k, v, created_at, updated_at FROM mem
		WHERE project = ? ORDER BY updated_at DESC`, projectName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteProject removes every row in a project's partition.
func (l *Longterm) DeleteProject(projectName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, err := l.db.Exec(`DELETE FROM mem WHERE project = ?`, projectName)
	return err
}

// Close closes the database.
func (l *Longterm) Close() error {
	return l.db.Close()
}
