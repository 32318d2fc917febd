// Package mcp exposes the retrieval and answer pipeline as MCP tools over
// stdio. Stdout carries the protocol; logs go to file and stderr.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zoonderkins/augment-lite/internal/answer"
	"github.com/zoonderkins/augment-lite/internal/auggie"
	"github.com/zoonderkins/augment-lite/internal/cache"
	"github.com/zoonderkins/augment-lite/internal/config"
	"github.com/zoonderkins/augment-lite/internal/errors"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/memory"
	"github.com/zoonderkins/augment-lite/internal/project"
	"github.com/zoonderkins/augment-lite/internal/search"
	"github.com/zoonderkins/augment-lite/pkg/version"
)

// Server is the MCP server binding every tool to the underlying components.
type Server struct {
	mcp *mcp.Server

	cfg          *config.Config
	registry     *project.Registry
	paths        *project.Paths
	stores       *index.Stores
	indexer      *index.Indexer
	engine       *search.Engine
	orchestrator *answer.Orchestrator
	caches       *cache.Manager
	longterm     *memory.Longterm
	tasks        *memory.Tasks
	auggie       *auggie.Client
	logger       *slog.Logger

	// cwd seeds project auto-initialization.
	cwd string

	mu sync.RWMutex
}

// Deps collects the server's collaborators.
type Deps struct {
	Config       *config.Config
	Registry     *project.Registry
	Paths        *project.Paths
	Stores       *index.Stores
	Indexer      *index.Indexer
	Engine       *search.Engine
	Orchestrator *answer.Orchestrator
	Caches       *cache.Manager
	Longterm     *memory.Longterm
	Tasks        *memory.Tasks
	Logger       *slog.Logger
	Cwd          string
}

// NewServer creates the MCP server and registers the tool catalog.
func NewServer(deps Deps) (*Server, error) {
	if deps.Config == nil || deps.Registry == nil || deps.Engine == nil {
		return nil, fmt.Errorf("config, registry, and engine are required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Cwd == "" {
		if cwd, err := os.Getwd(); err == nil {
			deps.Cwd = cwd
		}
	}

	s := &Server{
		cfg:          deps.Config,
		registry:     deps.Registry,
		paths:        deps.Paths,
		stores:       deps.Stores,
		indexer:      deps.Indexer,
		engine:       deps.Engine,
		orchestrator: deps.Orchestrator,
		caches:       deps.Caches,
		longterm:     deps.Longterm,
		tasks:        deps.Tasks,
		auggie:       auggie.New(),
		logger:       deps.Logger,
		cwd:          deps.Cwd,
	}

	s.mcp = mcp.NewServer(
		&mcp.Implementation{
			Name:    "augment-lite",
			Version: version.Version,
		},
		nil,
	)
	s.registerTools()

	return s, nil
}

// Serve runs the stdio transport until the context is cancelled.
func (s *Server) Serve(ctx context.Context) error {
	s.logger.Info("mcp_server_started", slog.String("transport", "stdio"))
	err := s.mcp.Run(ctx, &mcp.StdioTransport{})
	if err != nil && err != context.Canceled {
		s.logger.Error("mcp_server_stopped", slog.String("error", err.Error()))
		return err
	}
	s.logger.Info("mcp_server_stopped")
	return nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "rag.search",
		Description: "Hybrid code search over the project index: BM25 keyword matching fused with " +
			"semantic vectors, LLM re-ranked. Auto-initializes and refreshes the index.",
	}, s.handleRagSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "dual.search",
		Description: "Search the local hybrid index and, when configured, an external semantic " +
			"engine; merged results plus per-source breakdown.",
	}, s.handleDualSearch)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "answer.generate",
		Description: "Answer a question about the codebase with citations, grounded strictly in " +
			"retrieved evidence. Abstains with a reason code when evidence is weak.",
	}, s.handleAnswerGenerate)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "answer.accumulated",
		Description: "Answer a complex question by decomposing it into aspects, accumulating " +
			"evidence per aspect, and producing a sectioned answer.",
	}, s.handleAnswerAccumulated)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name: "answer.unified",
		Description: "Return a step-by-step execution plan combining the external engine and " +
			"local RAG search; the caller executes the steps.",
	}, s.handleAnswerUnified)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.init",
		Description: "Register the working directory (or a named project) and build its indices.",
	}, s.handleProjectInit)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "project.status",
		Description: "List registered projects and which one is active.",
	}, s.handleProjectStatus)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index.status",
		Description: "Report chunk, BM25, and vector counts for a project's index.",
	}, s.handleIndexStatus)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "index.rebuild",
		Description: "Force a full index rebuild, or vector-only with vector_only.",
	}, s.handleIndexRebuild)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cache.clear",
		Description: "Clear the exact and semantic response caches for a project, or all.",
	}, s.handleCacheClear)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "cache.status",
		Description: "Report response-cache entry counts per project.",
	}, s.handleCacheStatus)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.get",
		Description: "Read a persistent memory value for a project (or globally).",
	}, s.handleMemoryGet)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.set",
		Description: "Write a persistent memory value for a project (or globally).",
	}, s.handleMemorySet)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.delete",
		Description: "Delete a persistent memory value.",
	}, s.handleMemoryDelete)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "memory.list",
		Description: "List persistent memory entries, most recently updated first.",
	}, s.handleMemoryList)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.add",
		Description: "Create a task for the project.",
	}, s.handleTaskAdd)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.list",
		Description: "List the project's tasks, optionally filtered by status.",
	}, s.handleTaskList)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.get",
		Description: "Fetch one task by id.",
	}, s.handleTaskGet)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.update",
		Description: "Update a task's title, description, status, or priority.",
	}, s.handleTaskUpdate)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.delete",
		Description: "Delete a task, optionally with its subtasks.",
	}, s.handleTaskDelete)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.current",
		Description: "Fetch the most recently active in-progress task.",
	}, s.handleTaskCurrent)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.resume",
		Description: "Mark a task in-progress and return it.",
	}, s.handleTaskResume)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "task.stats",
		Description: "Summarize the project's tasks by status.",
	}, s.handleTaskStats)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "file.read",
		Description: "Read a file under the project root, optionally a line range.",
	}, s.handleFileRead)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "file.list",
		Description: "List a directory under the project root.",
	}, s.handleFileList)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "file.find",
		Description: "Find files matching a glob pattern under the project root.",
	}, s.handleFileFind)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "search.pattern",
		Description: "Regex search across project files with context lines.",
	}, s.handleSearchPattern)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "code.symbols",
		Description: "Extract symbol definitions from one file.",
	}, s.handleCodeSymbols)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "code.find_symbol",
		Description: "Locate definitions of a named symbol across the project.",
	}, s.handleCodeFindSymbol)
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        "code.references",
		Description: "Find word-boundary references to a symbol across the project.",
	}, s.handleCodeReferences)

	s.logger.Info("mcp_tools_registered", slog.Int("count", 30))
}

// ensureProject resolves the active project, auto-initializing one from the
// working directory when the registry is empty. With autoIndex it also runs
// incremental indexing; the returned stats are nil when nothing changed.
func (s *Server) ensureProject(ctx context.Context, autoIndex bool) (*project.Project, *index.Stats, error) {
	s.mu.Lock()
	proj := s.registry.Active()
	if proj == nil && s.cwd != "" {
		name := project.SanitizeName(filepath.Base(s.cwd))
		s.logger.Info("project_auto_init",
			slog.String("project", name),
			slog.String("root", s.cwd))
		var err error
		proj, err = s.registry.Register(name, s.cwd)
		if err != nil {
			s.mu.Unlock()
			return nil, nil, err
		}
	}
	s.mu.Unlock()

	if proj == nil {
		return nil, nil, errors.New(errors.CodeIndexUnavailable,
			"no active project and no working directory to initialize from")
	}

	if !autoIndex {
		return proj, nil, nil
	}

	stats, err := s.indexer.AutoIndexIfNeeded(ctx, proj)
	if err != nil {
		return nil, nil, errors.Wrap(err, errors.CodeIndexUnavailable,
			"index refresh failed for %s (run index.rebuild)", proj.Name)
	}
	if stats != nil {
		s.logger.Info("auto_index_applied",
			slog.String("project", proj.Name),
			slog.Int("added", stats.ChunksAdded),
			slog.Int("removed", stats.ChunksRemoved),
			slog.Int("total", stats.ChunksTotal))
	}
	return proj, stats, nil
}

// resolveProject maps auto/explicit names for partition-scoped tools.
func (s *Server) resolveProject(name string) (string, error) {
	if name == "" {
		name = project.Auto
	}
	return s.registry.Resolve(name)
}

// sanitizeBase derives a project name from a directory path.
func sanitizeBase(root string) string {
	return project.SanitizeName(filepath.Base(root))
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
