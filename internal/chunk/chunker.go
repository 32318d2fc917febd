// Package chunk splits files into retrievable units: line windows for code,
// token windows for documentation.
package chunk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/errors"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// Chunker splits a single file into an ordered list of chunks.
type Chunker struct {
	cfg config.ChunkingConfig
}

// New creates a chunker with the given window configuration.
func New(cfg config.ChunkingConfig) *Chunker {
	if cfg.CodeWindow <= 0 {
		cfg.CodeWindow = 50
	}
	if cfg.CodeOverlap < 0 || cfg.CodeOverlap >= cfg.CodeWindow {
		cfg.CodeOverlap = 10
	}
	if cfg.DocWindow <= 0 {
		cfg.DocWindow = 256
	}
	if cfg.DocOverlap < 0 || cfg.DocOverlap >= cfg.DocWindow {
		cfg.DocOverlap = 32
	}
	return &Chunker{cfg: cfg}
}

// ChunkFile reads and chunks one file. relPath is the slash-separated path
// relative to the project root and becomes the source prefix. Files outside
// the code and doc extension sets yield an empty list.
//
// Fails with READ_ERROR only on unrecoverable I/O.
func (c *Chunker) ChunkFile(root, relPath string) ([]*store.Chunk, error) {
	full := filepath.Join(root, filepath.FromSlash(relPath))

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeReadError, "read %s", relPath)
	}

	return c.ChunkContent(relPath, string(data)), nil
}

// ChunkContent chunks already-loaded file content.
func (c *Chunker) ChunkContent(relPath, content string) []*store.Chunk {
	switch {
	case IsCode(relPath):
		return c.chunkLines(relPath, content)
	case IsDoc(relPath):
		return c.chunkTokens(relPath, content)
	default:
		return nil
	}
}

// chunkLines emits overlapping line windows in file order.
// source = "<relpath>:<1-indexed-starting-line>".
func (c *Chunker) chunkLines(relPath, content string) []*store.Chunk {
	lines := strings.Split(content, "\n")
	ext := extOf(relPath)
	step := c.cfg.CodeWindow - c.cfg.CodeOverlap

	var chunks []*store.Chunk
	for start := 0; start < len(lines); start += step {
		end := start + c.cfg.CodeWindow
		if end > len(lines) {
			end = len(lines)
		}

		text := strings.Join(lines[start:end], "\n")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, &store.Chunk{
				Text:     text,
				Source:   fmt.Sprintf("%s:%d", relPath, start+1),
				Method:   store.ChunkingLines,
				Filetype: ext,
			})
		}

		if end == len(lines) {
			break
		}
	}
	return chunks
}

// chunkTokens emits overlapping token windows joined with single spaces.
// source = "<relpath>:chunk<1-indexed-N>".
func (c *Chunker) chunkTokens(relPath, content string) []*store.Chunk {
	tokens := TokenizeDoc(content)
	ext := extOf(relPath)
	step := c.cfg.DocWindow - c.cfg.DocOverlap

	var chunks []*store.Chunk
	n := 1
	for start := 0; start < len(tokens); start += step {
		end := start + c.cfg.DocWindow
		if end > len(tokens) {
			end = len(tokens)
		}

		text := strings.Join(tokens[start:end], " ")
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, &store.Chunk{
				Text:     text,
				Source:   fmt.Sprintf("%s:chunk%d", relPath, n),
				Method:   store.ChunkingTokens,
				Filetype: ext,
			})
			n++
		}

		if end == len(tokens) {
			break
		}
	}
	return chunks
}

func extOf(path string) string {
	return strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
}
