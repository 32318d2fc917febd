// Package output formats CLI results for humans and pipes.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/zoonderkins/augment-lite/internal/store"
)

// Writer renders results as text on terminals and JSON when piped or when
// --json is set.
type Writer struct {
	out  io.Writer
	json bool
}

// New creates a writer. forceJSON overrides terminal detection.
func New(out io.Writer, forceJSON bool) *Writer {
	useJSON := forceJSON
	if f, ok := out.(*os.File); ok && !forceJSON {
		useJSON = !isatty.IsTerminal(f.Fd()) && !isatty.IsCygwinTerminal(f.Fd())
	}
	return &Writer{out: out, json: useJSON}
}

// Hits renders search results.
func (w *Writer) Hits(hits []*store.Hit) error {
	if w.json {
		return json.NewEncoder(w.out).Encode(hits)
	}
	if len(hits) == 0 {
		fmt.Fprintln(w.out, "no results")
		return nil
	}
	for i, h := range hits {
		fmt.Fprintf(w.out, "%2d. %s (%.3f)\n", i+1, h.Source, h.Score)
		preview := h.Text
		if len(preview) > 200 {
			preview = preview[:200] + "…"
		}
		fmt.Fprintf(w.out, "    %s\n\n", preview)
	}
	return nil
}

// JSON renders any value as JSON: indented on a terminal, compact when piped
// or when --json is set.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	if !w.json {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
