package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/zoonderkins/augment-lite/internal/answer"
	"github.com/zoonderkins/augment-lite/internal/cache"
	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/embed"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/llm"
	"github.com/zoonderkins/augment-lite/internal/memory"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/router"
	"github.com/zoonderkins/augment-lite/internal/scanner"
	"github.com/zoonderkins/augment-lite/internal/search"
)

// app holds the wired component graph shared by every command.
type app struct {
	cfg      *config.Config
	registry *project.Registry
	paths    *project.Paths
	stores   *index.Stores
	indexer  *index.Indexer
	engine   *search.Engine
	orch     *answer.Orchestrator
	caches   *cache.Manager
	longterm *memory.Longterm
	tasks    *memory.Tasks
	llm      llm.Client
	cwd      string
}

func setDefaultLogger(logger *slog.Logger) {
	slog.SetDefault(logger)
}

// newApp loads configuration and wires every component.
// Unrecoverable failures (invalid config, unwritable data dir) surface here
// so the process can exit non-zero before touching the transport.
func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	registry, err := project.Open(cfg.DataDir)
	if err != nil {
		return nil, err
	}
	paths := project.NewPaths(cfg.DataDir)

	embedder, err := embed.NewFromConfig(cfg.Embeddings)
	if err != nil {
		// Embeddings are optional at startup: BM25-only search still works.
		slog.Warn("embedder_unavailable_bm25_only", slog.String("error", err.Error()))
		embedder = nil
	}

	stores := index.NewStores(cfg, paths)

	sc, err := scanner.New(cfg.Chunking.MaxFileSize)
	if err != nil {
		return nil, err
	}

	indexer := index.NewIndexer(cfg, paths, stores, sc, embedder)
	client := llm.NewRegistry(cfg.Models)
	engine := search.NewEngine(cfg, stores, embedder, client)

	caches, err := cache.NewManager(cfg, paths, embedder)
	if err != nil {
		return nil, err
	}

	longterm, err := memory.OpenLongterm(paths.Longterm())
	if err != nil {
		return nil, err
	}
	tasks, err := memory.OpenTasks(paths.Tasks())
	if err != nil {
		return nil, err
	}

	orch := answer.New(cfg, engine, router.New(cfg.Models), caches, client)

	cwd, _ := os.Getwd()

	return &app{
		cfg:      cfg,
		registry: registry,
		paths:    paths,
		stores:   stores,
		indexer:  indexer,
		engine:   engine,
		orch:     orch,
		caches:   caches,
		longterm: longterm,
		tasks:    tasks,
		llm:      client,
		cwd:      cwd,
	}, nil
}

// close releases every store.
func (a *app) close() {
	_ = a.stores.Close()
	_ = a.caches.Close()
	_ = a.longterm.Close()
	_ = a.tasks.Close()
}
