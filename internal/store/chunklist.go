package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
)

// ChunkList persists the per-project chunk corpus as one JSON object per line.
// The file is the source of truth that both the BM25 and vector indices are
// rebuilt from.
type ChunkList struct {
	path string
}

// NewChunkList creates a chunk list store at the given path.
func NewChunkList(path string) *ChunkList {
	return &ChunkList{path: path}
}

// Path returns the backing file path.
func (c *ChunkList) Path() string {
	return c.path
}

// Load reads all chunks. A missing file yields an empty list. Individual
// malformed lines are skipped so one bad write does not poison the corpus.
func (c *ChunkList) Load() ([]*Chunk, error) {
	f, err := os.Open(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open chunk list: %w", err)
	}
	defer f.Close()

	var chunks []*Chunk
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var chunk Chunk
		if err := json.Unmarshal(line, &chunk); err != nil {
			continue
		}
		chunks = append(chunks, &chunk)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read chunk list: %w", err)
	}
	return chunks, nil
}

// Save atomically replaces the chunk list (temp file + rename).
func (c *ChunkList) Save(chunks []*Chunk) error {
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	for _, chunk := range chunks {
		if err := enc.Encode(chunk); err != nil {
			return fmt.Errorf("encode chunk %s: %w", chunk.Source, err)
		}
	}

	if err := atomic.WriteFile(c.path, &buf); err != nil {
		return fmt.Errorf("write chunk list: %w", err)
	}
	return nil
}

// Delete removes the backing file. Missing files are not an error.
func (c *ChunkList) Delete() error {
	if err := os.Remove(c.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
