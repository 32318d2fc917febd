package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// FileMeta is the change-detection record for one indexed file.
// Hash is an MD5 of file contents, computed only for files under 1 MiB;
// larger files rely on (mtime, size).
type FileMeta struct {
	Mtime float64 `json:"mtime"`
	Size  int64   `json:"size"`
	Hash  string  `json:"hash,omitempty"`
}

// IndexState maps relative file paths to their last-indexed metadata.
type IndexState map[string]FileMeta

// StateFile persists IndexState as JSON alongside the chunk store.
type StateFile struct {
	path string
}

// NewStateFile creates an index-state store at the given path.
func NewStateFile(path string) *StateFile {
	return &StateFile{path: path}
}

// Load reads the persisted state. A missing or corrupt file yields an empty
// state, which forces a full re-index rather than an error.
func (s *StateFile) Load() IndexState {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return IndexState{}
	}
	var state IndexState
	if err := json.Unmarshal(data, &state); err != nil {
		return IndexState{}
	}
	if state == nil {
		return IndexState{}
	}
	return state
}

// Save atomically writes the state (temp file + rename).
func (s *StateFile) Save(state IndexState) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("encode index state: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write index state: %w", err)
	}
	return nil
}

// Delete removes the state file. Missing files are not an error.
func (s *StateFile) Delete() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
