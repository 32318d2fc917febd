// Package fileops implements the file and code inspection tools: reading,
// listing, glob finding, regex pattern search, and regex-based symbol
// extraction. All paths are validated against the project root.
package fileops

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/zoonderkins/augment-lite/internal/chunk"
	"github.com/zoonderkins/augment-lite/internal/errors"
)

// maxPatternResults caps regex search output.
const maxPatternResults = 50

// ResolvePath joins a relative path to the project root and rejects escapes.
func ResolvePath(root, relPath string) (string, error) {
	if strings.ContainsAny(relPath, ";|&$`<>\n") {
		return "", errors.New(errors.CodeInvalidInput, "path contains shell metacharacters")
	}
	full := filepath.Join(root, filepath.FromSlash(relPath))
	abs, err := filepath.Abs(full)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalidInput, "resolve path %s", relPath)
	}
	rootAbs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalidInput, "resolve root")
	}
	if abs != rootAbs && !strings.HasPrefix(abs, rootAbs+string(os.PathSeparator)) {
		return "", errors.New(errors.CodeInvalidInput, "path %s escapes project root", relPath)
	}
	return abs, nil
}

// ReadFile returns file content, optionally restricted to a 1-indexed
// inclusive line range.
func ReadFile(root, relPath string, startLine, endLine int) (string, error) {
	full, err := ResolvePath(root, relPath)
	if err != nil {
		return "", err
	}
	data, err := os.ReadFile(full)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeReadError, "read %s", relPath)
	}
	content := string(data)
	if startLine <= 0 && endLine <= 0 {
		return content, nil
	}

	lines := strings.Split(content, "\n")
	if startLine <= 0 {
		startLine = 1
	}
	if endLine <= 0 || endLine > len(lines) {
		endLine = len(lines)
	}
	if startLine > len(lines) || startLine > endLine {
		return "", errors.New(errors.CodeInvalidInput,
			"line range %d-%d out of bounds (%d lines)", startLine, endLine, len(lines))
	}
	return strings.Join(lines[startLine-1:endLine], "\n"), nil
}

// DirEntry is one listing row.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size"`
}

// ListDir lists a directory under the project root.
func ListDir(root, relPath string) ([]DirEntry, error) {
	full, err := ResolvePath(root, relPath)
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(full)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeReadError, "list %s", relPath)
	}

	out := make([]DirEntry, 0, len(entries))
	for _, e := range entries {
		info, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, DirEntry{Name: e.Name(), IsDir: e.IsDir(), Size: info.Size()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// FindFiles returns project-relative paths matching a doublestar glob,
// skipping dependency and VCS directories.
func FindFiles(root, pattern string, maxResults int) ([]string, error) {
	if maxResults <= 0 {
		maxResults = 100
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.New(errors.CodeInvalidInput, "invalid glob pattern %q", pattern)
	}

	var out []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if strings.HasPrefix(d.Name(), ".") || chunk.InIgnoredDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if ok, _ := doublestar.Match(pattern, rel); ok {
			out = append(out, rel)
			if len(out) >= maxResults {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// PatternMatch is one regex search result with surrounding context.
type PatternMatch struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Match   string `json:"match"`
	Context string `json:"context"`
}

// SearchPattern greps project files with a regex, returning matches with
// context lines. fileGlob restricts the searched files (default all).
func SearchPattern(root, pattern, fileGlob string, contextLines, maxResults int, caseSensitive bool) ([]PatternMatch, error) {
	if !caseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidInput, "invalid regex")
	}
	if fileGlob == "" {
		fileGlob = "**/*"
	}
	if contextLines < 0 {
		contextLines = 2
	}
	if maxResults <= 0 || maxResults > maxPatternResults {
		maxResults = maxPatternResults
	}

	files, err := FindFiles(root, fileGlob, 10000)
	if err != nil {
		return nil, err
	}

	var out []PatternMatch
	for _, rel := range files {
		if !chunk.IsIndexable(rel) {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			continue
		}
		lines := strings.Split(string(data), "\n")
		for i, line := range lines {
			if !re.MatchString(line) {
				continue
			}
			start := i - contextLines
			if start < 0 {
				start = 0
			}
			end := i + contextLines + 1
			if end > len(lines) {
				end = len(lines)
			}
			out = append(out, PatternMatch{
				File:    rel,
				Line:    i + 1,
				Match:   line,
				Context: strings.Join(lines[start:end], "\n"),
			})
			if len(out) >= maxResults {
				return out, nil
			}
		}
	}
	return out, nil
}

// Symbol is one extracted code symbol.
type Symbol struct {
	Name string `json:"name"`
	Kind string `json:"kind"`
	File string `json:"file"`
	Line int    `json:"line"`
}

// symbolPatterns are per-kind regexes covering the common languages in the
// code extension set. Extraction is line-based on purpose; AST parsing is a
// different tool's job.
var symbolPatterns = []struct {
	kind string
	re   *regexp.Regexp
}{
	{"function", regexp.MustCompile(`^\s*(?:export\s+)?(?:async\s+)?(?:func|def|function)\s+(\w+)`)},
	{"method", regexp.MustCompile(`^\s*func\s+\([^)]+\)\s+(\w+)`)},
	{"class", regexp.MustCompile(`^\s*(?:export\s+)?(?:abstract\s+)?class\s+(\w+)`)},
	{"type", regexp.MustCompile(`^\s*(?:export\s+)?(?:type|interface|struct|enum)\s+(\w+)`)},
	{"constant", regexp.MustCompile(`^\s*(?:export\s+)?const\s+(\w+)`)},
}

// ExtractSymbols scans one file for symbol definitions.
func ExtractSymbols(root, relPath string) ([]Symbol, error) {
	content, err := ReadFile(root, relPath, 0, 0)
	if err != nil {
		return nil, err
	}

	var out []Symbol
	for i, line := range strings.Split(content, "\n") {
		for _, sp := range symbolPatterns {
			m := sp.re.FindStringSubmatch(line)
			if m == nil {
				continue
			}
			out = append(out, Symbol{Name: m[1], Kind: sp.kind, File: relPath, Line: i + 1})
			break
		}
	}
	return out, nil
}

// FindSymbol searches the whole project for definitions of a named symbol.
func FindSymbol(root, name string, maxResults int) ([]Symbol, error) {
	if maxResults <= 0 {
		maxResults = 20
	}
	files, err := FindFiles(root, "**/*", 10000)
	if err != nil {
		return nil, err
	}

	var out []Symbol
	for _, rel := range files {
		if !chunk.IsCode(rel) {
			continue
		}
		symbols, err := ExtractSymbols(root, rel)
		if err != nil {
			continue
		}
		for _, s := range symbols {
			if s.Name == name {
				out = append(out, s)
				if len(out) >= maxResults {
					return out, nil
				}
			}
		}
	}
	return out, nil
}

// FindReferences greps for word-boundary occurrences of a symbol.
func FindReferences(root, symbol, fileGlob string, maxResults int) ([]PatternMatch, error) {
	pattern := fmt.Sprintf(`\b%s\b`, regexp.QuoteMeta(symbol))
	return SearchPattern(root, pattern, fileGlob, 1, maxResults, true)
}
