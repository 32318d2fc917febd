package mcp

import (
	"context"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/zoonderkins/augment-lite/internal/auggie"
	"github.com/zoonderkins/augment-lite/internal/errors"
	"github.com/zoonderkins/augment-lite/internal/fileops"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/router"
	"github.com/zoonderkins/augment-lite/internal/search"
	"github.com/zoonderkins/augment-lite/internal/store"
)

func (s *Server) handleRagSearch(ctx context.Context, _ *mcp.CallToolRequest, in RagSearchInput) (*mcp.CallToolResult, RagSearchOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, RagSearchOutput{Error: "INVALID_INPUT: query must not be empty", Hits: []*store.Hit{}}, nil
	}
	k := in.K
	if k < 0 {
		return nil, RagSearchOutput{Error: "INVALID_INPUT: k must be non-negative", Hits: []*store.Hit{}}, nil
	}
	if k == 0 {
		k = 8
	}

	proj, _, err := s.ensureProject(ctx, boolOr(in.AutoIndex, true))
	if err != nil {
		out := RagSearchOutput{Error: s.errString(err), Hits: []*store.Hit{}}
		if errors.HasCode(err, errors.CodeIndexUnavailable) {
			out.Suggestion = "run index.rebuild, or check that the project root and data directory are readable"
		}
		return nil, out, nil
	}

	useSubagent := boolOr(in.UseSubagent, true)
	useIterative := in.UseIterative || search.ShouldUseIterative(in.Query, "lookup")

	var hits []*store.Hit
	if useIterative {
		hits, err = s.engine.IterativeSearch(ctx, proj.Name, in.Query, search.IterativeOptions{
			KPerIteration: k,
			UseSubagent:   useSubagent,
		})
	} else {
		hits, err = s.engine.HybridSearchWithSubagent(ctx, proj.Name, in.Query, k, useSubagent)
	}
	if err != nil {
		return nil, RagSearchOutput{Error: s.errString(err), Hits: []*store.Hit{}}, nil
	}
	if hits == nil {
		hits = []*store.Hit{}
	}
	return nil, RagSearchOutput{OK: true, Hits: hits}, nil
}

func (s *Server) handleDualSearch(ctx context.Context, _ *mcp.CallToolRequest, in DualSearchInput) (*mcp.CallToolResult, DualSearchOutput, error) {
	out := DualSearchOutput{
		Hits: []*store.Hit{},
		Sources: map[string]DualSourceInfo{
			"augment_lite": {Results: []*store.Hit{}},
			"auggie":       {Results: []*store.Hit{}},
		},
		AuggieAvailable: s.auggie.Available(),
	}

	if strings.TrimSpace(in.Query) == "" {
		out.Error = "INVALID_INPUT: query must not be empty"
		return nil, out, nil
	}
	k := in.K
	if k <= 0 {
		k = 8
	}

	proj, stats, err := s.ensureProject(ctx, boolOr(in.AutoRebuild, true))
	if err != nil {
		out.Error = s.errString(err)
		return nil, out, nil
	}
	out.IndexRebuilt = stats != nil
	out.RebuildInfo = stats

	// Local hybrid search always runs.
	useSubagent := boolOr(in.UseSubagent, true)
	useIterative := in.UseIterative || search.ShouldUseIterative(in.Query, "lookup")

	var localHits []*store.Hit
	if useIterative {
		localHits, err = s.engine.IterativeSearch(ctx, proj.Name, in.Query, search.IterativeOptions{
			KPerIteration: k,
			UseSubagent:   useSubagent,
		})
	} else {
		localHits, err = s.engine.HybridSearchWithSubagent(ctx, proj.Name, in.Query, k, useSubagent)
	}
	local := DualSourceInfo{Results: localHits, Count: len(localHits)}
	if err != nil {
		local.Error = s.errString(err)
		localHits = nil
	}
	out.Sources["augment_lite"] = local

	// The external engine runs only over a configured transport; otherwise
	// the caller gets a hint to fan out itself.
	var externalHits []*store.Hit
	includeAuggie := boolOr(in.IncludeAuggie, true)
	if includeAuggie && s.auggie.Available() {
		externalHits, err = s.auggie.Search(ctx, in.Query)
		ext := DualSourceInfo{Results: externalHits, Count: len(externalHits), Available: true}
		if err != nil {
			ext.Error = s.errString(err)
			externalHits = nil
		}
		out.Sources["auggie"] = ext
	} else if includeAuggie {
		out.AuggieHint = auggie.Hint(in.Query)
	}

	out.OK = true
	out.Hits = auggie.Merge(localHits, externalHits, k*2)
	return nil, out, nil
}

func (s *Server) handleAnswerGenerate(ctx context.Context, _ *mcp.CallToolRequest, in AnswerGenerateInput) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, AnswerOutput{Error: "INVALID_INPUT: query must not be empty"}, nil
	}

	proj, _, err := s.ensureProject(ctx, true)
	if err != nil {
		return nil, AnswerOutput{Error: s.errString(err)}, nil
	}

	result, err := s.orchestrator.Generate(ctx, proj.Name, in.Query, in.TaskType, in.Route, floatOr(in.Temperature, 0.2))
	if err != nil {
		return nil, AnswerOutput{Error: s.errString(err)}, nil
	}
	return nil, AnswerOutput{
		OK:        true,
		Answer:    result.Answer,
		Citations: result.Citations,
		Cached:    result.Cached,
		Abstained: result.Abstained,
	}, nil
}

func (s *Server) handleAnswerAccumulated(ctx context.Context, _ *mcp.CallToolRequest, in AnswerAccumulatedInput) (*mcp.CallToolResult, AnswerOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, AnswerOutput{Error: "INVALID_INPUT: query must not be empty"}, nil
	}

	proj, _, err := s.ensureProject(ctx, true)
	if err != nil {
		return nil, AnswerOutput{Error: s.errString(err)}, nil
	}

	result, err := s.orchestrator.Accumulated(ctx, proj.Name, in.Query, in.SubQueries, in.KPerQuery, in.Route, floatOr(in.Temperature, 0.2))
	if err != nil {
		return nil, AnswerOutput{Error: s.errString(err)}, nil
	}
	return nil, AnswerOutput{
		OK:            true,
		Answer:        result.Answer,
		Citations:     result.Citations,
		Cached:        result.Cached,
		Abstained:     result.Abstained,
		SubQueries:    result.SubQueries,
		Metadata:      result.Metadata,
		EvidenceCount: result.EvidenceCount,
	}, nil
}

func (s *Server) handleAnswerUnified(ctx context.Context, _ *mcp.CallToolRequest, in AnswerUnifiedInput) (*mcp.CallToolResult, AnswerUnifiedOutput, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, AnswerUnifiedOutput{Error: "INVALID_INPUT: query must not be empty"}, nil
	}

	subQueries := in.SubQueries
	if len(subQueries) == 0 {
		subQueries = s.engine.DecomposeQuery(ctx, in.Query)
	}
	route := in.Route
	if route == "" {
		route = router.RouteReasonLarge
	}

	var steps []PlanStep
	stepNum := 1

	if boolOr(in.IncludeAuggie, true) {
		steps = append(steps, PlanStep{
			Step:   stepNum,
			Action: "call_mcp",
			Tool:   "mcp__auggie-mcp__codebase-retrieval",
			Params: map[string]any{
				"information_request": strings.ReplaceAll(in.Query, `"`, "'"),
			},
			Purpose: "Semantic code understanding from the external engine",
			StoreAs: "auggie_results",
		})
		stepNum++
	}

	steps = append(steps, PlanStep{
		Step:   stepNum,
		Action: "call_mcp",
		Tool:   "rag.search",
		Params: map[string]any{
			"query":         in.Query,
			"k":             8,
			"use_subagent":  true,
			"use_iterative": true,
		},
		Purpose: "Local RAG search with BM25 + vector",
		StoreAs: "rag_results",
	})
	stepNum++

	for i, subQ := range subQueries {
		if i == 3 {
			break
		}
		purpose := subQ
		if len(purpose) > 40 {
			purpose = purpose[:40] + "..."
		}
		steps = append(steps, PlanStep{
			Step:   stepNum,
			Action: "call_mcp",
			Tool:   "rag.search",
			Params: map[string]any{
				"query":        subQ,
				"k":            5,
				"use_subagent": true,
			},
			Purpose: "Targeted search: " + purpose,
			StoreAs: "sub_results_" + string(rune('1'+i)),
		})
		stepNum++
	}

	steps = append(steps, PlanStep{
		Step:   stepNum,
		Action: "synthesize",
		Instruction: "Merge all results from previous steps. Deduplicate by source file. " +
			"Generate a comprehensive answer addressing all aspects of the query. " +
			"Cite sources as [source:file:line].",
		Route:   route,
		Purpose: "Generate the final answer with all accumulated evidence",
	})

	return nil, AnswerUnifiedOutput{
		OK:         true,
		PlanType:   "unified_search",
		Query:      in.Query,
		SubQueries: subQueries,
		TotalSteps: len(steps),
		Steps:      steps,
		ExecutionHint: "Execute the steps in order, storing each result. " +
			"In the final synthesize step, combine all stored results to generate the answer.",
	}, nil
}

func (s *Server) handleProjectInit(ctx context.Context, _ *mcp.CallToolRequest, in ProjectInitInput) (*mcp.CallToolResult, ProjectInitOutput, error) {
	name := in.Project
	if name == "" || name == "auto" {
		name = ""
	}

	root := s.cwd
	if root == "" {
		return nil, ProjectInitOutput{Error: "INVALID_INPUT: no working directory available"}, nil
	}
	if name == "" {
		name = sanitizeBase(root)
	}

	proj, err := s.registry.Register(name, root)
	if err != nil {
		return nil, ProjectInitOutput{Error: s.errString(err)}, nil
	}

	var stats *index.Stats
	if boolOr(in.BuildVector, true) {
		stats, err = s.indexer.Rebuild(ctx, proj, false)
	} else {
		stats, err = s.indexer.RebuildBM25Only(ctx, proj)
	}
	if err != nil {
		return nil, ProjectInitOutput{Error: s.errString(errors.Wrap(err, errors.CodeIndexUnavailable, "index build failed"))}, nil
	}

	return nil, ProjectInitOutput{OK: true, Project: proj.Name, Root: proj.Root, Stats: stats}, nil
}

func (s *Server) handleProjectStatus(_ context.Context, _ *mcp.CallToolRequest, _ ProjectStatusInput) (*mcp.CallToolResult, ProjectStatusOutput, error) {
	projects := s.registry.List()
	out := ProjectStatusOutput{OK: true, Projects: make([]ProjectStatusEntry, 0, len(projects))}
	for _, p := range projects {
		out.Projects = append(out.Projects, ProjectStatusEntry{
			Name:   p.Name,
			ID:     p.ID,
			Root:   p.Root,
			Active: p.Active,
		})
	}
	return nil, out, nil
}

func (s *Server) handleIndexStatus(_ context.Context, _ *mcp.CallToolRequest, in IndexStatusInput) (*mcp.CallToolResult, IndexStatusOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, IndexStatusOutput{Error: s.errString(err)}, nil
	}
	if name == "" {
		return nil, IndexStatusOutput{Error: "INVALID_INPUT: no active project"}, nil
	}

	out := IndexStatusOutput{OK: true, Project: name}

	if chunks, err := s.stores.Chunks(name); err == nil {
		out.ChunkCount = len(chunks)
	}
	if bm25, err := s.stores.BM25(name); err == nil {
		if count, err := bm25.Count(); err == nil {
			out.BM25Count = count
		}
	}
	if vs, err := s.stores.Vector(name); err == nil && vs != nil {
		out.HasVector = true
		out.VectorCount = vs.Count()
	}
	return nil, out, nil
}

func (s *Server) handleIndexRebuild(ctx context.Context, _ *mcp.CallToolRequest, in IndexRebuildInput) (*mcp.CallToolResult, IndexRebuildOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, IndexRebuildOutput{Error: s.errString(err)}, nil
	}
	proj := s.registry.Get(name)
	if proj == nil {
		return nil, IndexRebuildOutput{Error: "INVALID_INPUT: unknown project " + name}, nil
	}

	stats, err := s.indexer.Rebuild(ctx, proj, in.VectorOnly)
	if err != nil {
		return nil, IndexRebuildOutput{Error: s.errString(err)}, nil
	}
	return nil, IndexRebuildOutput{OK: true, Stats: stats}, nil
}

func (s *Server) handleCacheClear(_ context.Context, _ *mcp.CallToolRequest, in CacheClearInput) (*mcp.CallToolResult, CacheClearOutput, error) {
	target := in.Project
	if target == "" || target == "auto" {
		name, err := s.resolveProject("auto")
		if err != nil {
			return nil, CacheClearOutput{Error: s.errString(err)}, nil
		}
		target = name
	}

	var known []string
	for _, p := range s.registry.List() {
		known = append(known, p.Name)
	}
	if err := s.caches.Clear(target, known); err != nil {
		return nil, CacheClearOutput{Error: s.errString(err)}, nil
	}

	label := target
	if label == "" {
		label = "global"
	}
	return nil, CacheClearOutput{OK: true, Cleared: label}, nil
}

func (s *Server) handleCacheStatus(_ context.Context, _ *mcp.CallToolRequest, _ CacheStatusInput) (*mcp.CallToolResult, CacheStatusOutput, error) {
	stats, err := s.caches.Exact.Stats()
	if err != nil {
		return nil, CacheStatusOutput{Error: s.errString(err)}, nil
	}
	return nil, CacheStatusOutput{OK: true, Entries: stats}, nil
}

func (s *Server) handleMemoryGet(_ context.Context, _ *mcp.CallToolRequest, in MemoryGetInput) (*mcp.CallToolResult, MemoryGetOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, MemoryGetOutput{Error: s.errString(err)}, nil
	}
	value, found, err := s.longterm.Get(name, in.Key)
	if err != nil {
		return nil, MemoryGetOutput{Error: s.errString(err), Project: name}, nil
	}
	return nil, MemoryGetOutput{OK: true, Value: value, Found: found, Project: name}, nil
}

func (s *Server) handleMemorySet(_ context.Context, _ *mcp.CallToolRequest, in MemorySetInput) (*mcp.CallToolResult, MemorySetOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, MemorySetOutput{Error: s.errString(err)}, nil
	}
	if err := s.longterm.Set(name, in.Key, in.Value); err != nil {
		return nil, MemorySetOutput{Error: s.errString(err), Project: name}, nil
	}
	return nil, MemorySetOutput{OK: true, Project: name}, nil
}

func (s *Server) handleMemoryDelete(_ context.Context, _ *mcp.CallToolRequest, in MemoryDeleteInput) (*mcp.CallToolResult, MemorySetOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, MemorySetOutput{Error: s.errString(err)}, nil
	}
	if err := s.longterm.Delete(name, in.Key); err != nil {
		return nil, MemorySetOutput{Error: s.errString(err), Project: name}, nil
	}
	return nil, MemorySetOutput{OK: true, Project: name}, nil
}

func (s *Server) handleMemoryList(_ context.Context, _ *mcp.CallToolRequest, in MemoryListInput) (*mcp.CallToolResult, MemoryListOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, MemoryListOutput{Error: s.errString(err)}, nil
	}
	items, err := s.longterm.List(name)
	if err != nil {
		return nil, MemoryListOutput{Error: s.errString(err), Project: name}, nil
	}
	return nil, MemoryListOutput{OK: true, Items: items, Count: len(items), Project: name}, nil
}

func (s *Server) handleTaskAdd(_ context.Context, _ *mcp.CallToolRequest, in TaskAddInput) (*mcp.CallToolResult, TaskAddOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskAddOutput{Error: s.errString(err)}, nil
	}
	id, err := s.tasks.Add(name, in.Title, in.Description, in.Priority, in.ParentID)
	if err != nil {
		return nil, TaskAddOutput{Error: s.errString(err), Project: name}, nil
	}
	return nil, TaskAddOutput{OK: true, TaskID: id, Project: name}, nil
}

func (s *Server) handleTaskList(_ context.Context, _ *mcp.CallToolRequest, in TaskListInput) (*mcp.CallToolResult, TaskListOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskListOutput{Error: s.errString(err)}, nil
	}
	tasks, err := s.tasks.List(name, in.Status)
	if err != nil {
		return nil, TaskListOutput{Error: s.errString(err)}, nil
	}
	return nil, TaskListOutput{OK: true, Tasks: tasks, Count: len(tasks)}, nil
}

func (s *Server) handleTaskGet(_ context.Context, _ *mcp.CallToolRequest, in TaskGetInput) (*mcp.CallToolResult, TaskOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	task, err := s.tasks.Get(name, in.TaskID)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	if task == nil {
		return nil, TaskOutput{Error: "Task not found"}, nil
	}
	return nil, TaskOutput{OK: true, Task: task}, nil
}

func (s *Server) handleTaskUpdate(_ context.Context, _ *mcp.CallToolRequest, in TaskUpdateInput) (*mcp.CallToolResult, TaskOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	task, err := s.tasks.Update(name, in.TaskID, in.Title, in.Description, in.Status, in.Priority)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	if task == nil {
		return nil, TaskOutput{Error: "Task not found"}, nil
	}
	return nil, TaskOutput{OK: true, Task: task}, nil
}

func (s *Server) handleTaskDelete(_ context.Context, _ *mcp.CallToolRequest, in TaskGetInput) (*mcp.CallToolResult, TaskOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	deleted, err := s.tasks.Delete(name, in.TaskID, in.DeleteSubtasks)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	if !deleted {
		return nil, TaskOutput{Error: "Task not found"}, nil
	}
	return nil, TaskOutput{OK: true}, nil
}

func (s *Server) handleTaskCurrent(_ context.Context, _ *mcp.CallToolRequest, in TaskStatsInput) (*mcp.CallToolResult, TaskOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	task, err := s.tasks.Current(name)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	if task == nil {
		return nil, TaskOutput{OK: true, Message: "No in-progress tasks"}, nil
	}
	return nil, TaskOutput{OK: true, Task: task}, nil
}

func (s *Server) handleTaskResume(_ context.Context, _ *mcp.CallToolRequest, in TaskGetInput) (*mcp.CallToolResult, TaskOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	task, err := s.tasks.Resume(name, in.TaskID)
	if err != nil {
		return nil, TaskOutput{Error: s.errString(err)}, nil
	}
	if task == nil {
		return nil, TaskOutput{Error: "Task not found"}, nil
	}
	return nil, TaskOutput{OK: true, Task: task}, nil
}

func (s *Server) handleTaskStats(_ context.Context, _ *mcp.CallToolRequest, in TaskStatsInput) (*mcp.CallToolResult, TaskStatsOutput, error) {
	name, err := s.resolveProject(in.Project)
	if err != nil {
		return nil, TaskStatsOutput{Error: s.errString(err)}, nil
	}
	stats, err := s.tasks.Stats(name)
	if err != nil {
		return nil, TaskStatsOutput{Error: s.errString(err)}, nil
	}
	return nil, TaskStatsOutput{OK: true, Stats: stats}, nil
}

// activeRoot returns the active project's root for file tools.
func (s *Server) activeRoot() (string, error) {
	proj := s.registry.Active()
	if proj == nil {
		if s.cwd != "" {
			return s.cwd, nil
		}
		return "", errors.New(errors.CodeInvalidInput, "no active project")
	}
	return proj.Root, nil
}

func (s *Server) handleFileRead(_ context.Context, _ *mcp.CallToolRequest, in FileReadInput) (*mcp.CallToolResult, FileReadOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, FileReadOutput{Error: s.errString(err)}, nil
	}
	content, err := fileops.ReadFile(root, in.Path, in.StartLine, in.EndLine)
	if err != nil {
		return nil, FileReadOutput{Error: s.errString(err)}, nil
	}
	return nil, FileReadOutput{OK: true, Content: content}, nil
}

func (s *Server) handleFileList(_ context.Context, _ *mcp.CallToolRequest, in FileListInput) (*mcp.CallToolResult, FileListOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, FileListOutput{Error: s.errString(err)}, nil
	}
	path := in.Path
	if path == "" {
		path = "."
	}
	entries, err := fileops.ListDir(root, path)
	if err != nil {
		return nil, FileListOutput{Error: s.errString(err)}, nil
	}
	return nil, FileListOutput{OK: true, Entries: entries}, nil
}

func (s *Server) handleFileFind(_ context.Context, _ *mcp.CallToolRequest, in FileFindInput) (*mcp.CallToolResult, FileFindOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, FileFindOutput{Error: s.errString(err)}, nil
	}
	files, err := fileops.FindFiles(root, in.Pattern, in.MaxResults)
	if err != nil {
		return nil, FileFindOutput{Error: s.errString(err)}, nil
	}
	if files == nil {
		files = []string{}
	}
	return nil, FileFindOutput{OK: true, Files: files}, nil
}

func (s *Server) handleSearchPattern(_ context.Context, _ *mcp.CallToolRequest, in SearchPatternInput) (*mcp.CallToolResult, SearchPatternOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, SearchPatternOutput{Error: s.errString(err)}, nil
	}
	matches, err := fileops.SearchPattern(root, in.Pattern, in.FileGlob,
		in.ContextLines, in.MaxResults, boolOr(in.CaseSensitive, true))
	if err != nil {
		return nil, SearchPatternOutput{Error: s.errString(err)}, nil
	}
	if matches == nil {
		matches = []fileops.PatternMatch{}
	}
	return nil, SearchPatternOutput{OK: true, Matches: matches}, nil
}

func (s *Server) handleCodeSymbols(_ context.Context, _ *mcp.CallToolRequest, in CodeSymbolsInput) (*mcp.CallToolResult, CodeSymbolsOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, CodeSymbolsOutput{Error: s.errString(err)}, nil
	}
	symbols, err := fileops.ExtractSymbols(root, in.Path)
	if err != nil {
		return nil, CodeSymbolsOutput{Error: s.errString(err)}, nil
	}
	if symbols == nil {
		symbols = []fileops.Symbol{}
	}
	return nil, CodeSymbolsOutput{OK: true, Symbols: symbols}, nil
}

func (s *Server) handleCodeFindSymbol(_ context.Context, _ *mcp.CallToolRequest, in CodeFindSymbolInput) (*mcp.CallToolResult, CodeSymbolsOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, CodeSymbolsOutput{Error: s.errString(err)}, nil
	}
	if in.Name == "" {
		return nil, CodeSymbolsOutput{Error: "INVALID_INPUT: name must not be empty"}, nil
	}
	symbols, err := fileops.FindSymbol(root, in.Name, in.MaxResults)
	if err != nil {
		return nil, CodeSymbolsOutput{Error: s.errString(err)}, nil
	}
	if symbols == nil {
		symbols = []fileops.Symbol{}
	}
	return nil, CodeSymbolsOutput{OK: true, Symbols: symbols}, nil
}

func (s *Server) handleCodeReferences(_ context.Context, _ *mcp.CallToolRequest, in CodeReferencesInput) (*mcp.CallToolResult, SearchPatternOutput, error) {
	root, err := s.activeRoot()
	if err != nil {
		return nil, SearchPatternOutput{Error: s.errString(err)}, nil
	}
	if in.Symbol == "" {
		return nil, SearchPatternOutput{Error: "INVALID_INPUT: symbol must not be empty"}, nil
	}
	matches, err := fileops.FindReferences(root, in.Symbol, in.FileGlob, in.MaxResults)
	if err != nil {
		return nil, SearchPatternOutput{Error: s.errString(err)}, nil
	}
	if matches == nil {
		matches = []fileops.PatternMatch{}
	}
	return nil, SearchPatternOutput{OK: true, Matches: matches}, nil
}
