package cache

import (
	"sync"

	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/embed"
	"github.com/zoonderkins/augment-lite/internal/project"
)

// Manager binds the shared exact cache with per-project semantic caches.
type Manager struct {
	Exact *ExactCache

	cfg      *config.Config
	paths    *project.Paths
	embedder embed.Embedder

	mu       sync.Mutex
	semantic map[string]*SemanticCache
}

// NewManager opens the exact cache and prepares lazy semantic partitions.
// embedder may be nil, which disables the semantic cache while the exact
// cache stays active.
func NewManager(cfg *config.Config, paths *project.Paths, embedder embed.Embedder) (*Manager, error) {
	exact, err := OpenExact(paths.ResponseCache())
	if err != nil {
		return nil, err
	}
	return &Manager{
		Exact:    exact,
		cfg:      cfg,
		paths:    paths,
		embedder: embedder,
		semantic: make(map[string]*SemanticCache),
	}, nil
}

// Semantic returns the semantic cache partition for a project, or nil when
// embeddings are unavailable.
func (m *Manager) Semantic(projectName string) *SemanticCache {
	if m.embedder == nil {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if sc, ok := m.semantic[projectName]; ok {
		return sc
	}
	sc := NewSemanticCache(
		m.paths.SemanticCacheIndex(projectName),
		m.paths.SemanticCacheEntries(projectName),
		m.cfg.Cache.SemanticThreshold,
		m.embedder,
	)
	m.semantic[projectName] = sc
	return sc
}

// Clear clears both caches for one project. project "all" clears every
// partition of both stores; knownProjects enumerates the semantic partitions.
func (m *Manager) Clear(projectName string, knownProjects []string) error {
	if err := m.Exact.Clear(projectName); err != nil {
		return err
	}

	if projectName == "all" {
		for _, name := range append([]string{project.Global}, knownProjects...) {
			if sc := m.Semantic(name); sc != nil {
				if err := sc.Clear(); err != nil {
					return err
				}
			}
		}
		return nil
	}

	if sc := m.Semantic(projectName); sc != nil {
		return sc.Clear()
	}
	return nil
}

// Close releases the exact cache database.
func (m *Manager) Close() error {
	return m.Exact.Close()
}
