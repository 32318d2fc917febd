// Package project manages the named-workspace registry and per-project store
// partitioning.
package project

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/zoonderkins/augment-lite/internal/errors"
)

// Auto is the sentinel project name that resolves to the active project.
const Auto = "auto"

// Global is the empty project name used for unpartitioned memory/cache rows.
const Global = ""

// nameRe validates project names: alphanumeric, underscore, hyphen, ≤64 chars.
var nameRe = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// sanitizeRe rewrites disallowed characters when deriving a name from a
// directory.
var sanitizeRe = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// Project is a named workspace.
type Project struct {
	ID     string `json:"id"`
	Root   string `json:"root"`
	DB     string `json:"db"`
	Chunks string `json:"chunks"`
	Active bool   `json:"active"`

	// Name is the registry key; populated on load, not serialized.
	Name string `json:"-"`
}

// Registry is the name→project mapping persisted to projects.json.
// Writers serialize through a process-local mutex and write atomically.
type Registry struct {
	dataDir string
	path    string

	mu       sync.Mutex
	projects map[string]*Project
}

// Open loads (or initializes) the registry under dataDir.
func Open(dataDir string) (*Registry, error) {
	r := &Registry{
		dataDir:  dataDir,
		path:     filepath.Join(dataDir, "projects.json"),
		projects: make(map[string]*Project),
	}

	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			return r, nil
		}
		return nil, fmt.Errorf("read project registry: %w", err)
	}
	if err := json.Unmarshal(data, &r.projects); err != nil {
		return nil, fmt.Errorf("parse project registry: %w", err)
	}
	for name, p := range r.projects {
		p.Name = name
	}
	return r, nil
}

// save persists the registry atomically. Caller holds r.mu.
func (r *Registry) save() error {
	if err := os.MkdirAll(r.dataDir, 0o755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	data, err := json.MarshalIndent(r.projects, "", "  ")
	if err != nil {
		return fmt.Errorf("encode project registry: %w", err)
	}
	if err := atomic.WriteFile(r.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write project registry: %w", err)
	}
	return nil
}

// ValidateName checks a project name against the allowed pattern.
func ValidateName(name string) error {
	if !nameRe.MatchString(name) {
		return errors.New(errors.CodeInvalidInput,
			"invalid project name %q: must match [A-Za-z0-9_-]{1,64}", name)
	}
	return nil
}

// SanitizeName derives a valid project name from a directory name.
func SanitizeName(dir string) string {
	name := sanitizeRe.ReplaceAllString(dir, "-")
	if len(name) > 64 {
		name = name[:64]
	}
	if name == "" {
		name = "project"
	}
	return name
}

// ValidateRoot rejects paths that are relative, contain traversal segments,
// or carry shell metacharacters.
func ValidateRoot(root string) (string, error) {
	if root == "" {
		return "", errors.New(errors.CodeInvalidInput, "project root must not be empty")
	}
	if strings.ContainsAny(root, ";|&$`<>\n") {
		return "", errors.New(errors.CodeInvalidInput, "project root contains shell metacharacters")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalidInput, "resolve project root")
	}
	for _, part := range strings.Split(filepath.ToSlash(abs), "/") {
		if part == ".." {
			return "", errors.New(errors.CodeInvalidInput, "project root contains traversal segments")
		}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", errors.Wrap(err, errors.CodeInvalidInput, "project root %s", abs)
	}
	if !info.IsDir() {
		return "", errors.New(errors.CodeInvalidInput, "project root %s is not a directory", abs)
	}
	return abs, nil
}

// projectID derives the stable 8-hex id from name and root.
func projectID(name, root string) string {
	sum := md5.Sum([]byte(name + ":" + root))
	return hex.EncodeToString(sum[:])[:8]
}

// Register adds (or refreshes) a project and marks it active.
// At most one project is active at any time.
func (r *Registry) Register(name, root string) (*Project, error) {
	if err := ValidateName(name); err != nil {
		return nil, err
	}
	absRoot, err := ValidateRoot(root)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	p := &Project{
		ID:     projectID(name, absRoot),
		Root:   absRoot,
		DB:     fmt.Sprintf("corpus_%s.sqlite", name),
		Chunks: fmt.Sprintf("chunks_%s.jsonl", name),
		Active: true,
		Name:   name,
	}

	for other, existing := range r.projects {
		if other != name {
			existing.Active = false
		}
	}
	r.projects[name] = p

	if err := r.save(); err != nil {
		return nil, err
	}
	return p, nil
}

// Get returns the named project, or nil if unknown.
func (r *Registry) Get(name string) *Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.projects[name]
}

// Active returns the active project, or nil if none.
func (r *Registry) Active() *Project {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.projects {
		if p.Active {
			return p
		}
	}
	return nil
}

// Resolve maps "auto" to the active project name; other names pass through
// after validation. Returns Global ("") when auto resolves to nothing.
func (r *Registry) Resolve(name string) (string, error) {
	if name == Auto {
		if p := r.Active(); p != nil {
			return p.Name, nil
		}
		return Global, nil
	}
	if name == Global {
		return Global, nil
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}
	return name, nil
}

// SetActive marks the named project active and deactivates the rest.
func (r *Registry) SetActive(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.projects[name]
	if !ok {
		return errors.New(errors.CodeInvalidInput, "unknown project %q", name)
	}
	for _, other := range r.projects {
		other.Active = false
	}
	p.Active = true
	return r.save()
}

// List returns all projects sorted by name.
func (r *Registry) List() []*Project {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*Project, 0, len(r.projects))
	for _, p := range r.projects {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Delete removes a project and every on-disk partition carrying its name.
func (r *Registry) Delete(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.projects[name]; !ok {
		return errors.New(errors.CodeInvalidInput, "unknown project %q", name)
	}
	delete(r.projects, name)
	if err := r.save(); err != nil {
		return err
	}

	paths := NewPaths(r.dataDir)
	for _, p := range paths.Partitions(name) {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("remove partition %s: %w", p, err)
		}
	}
	return nil
}
