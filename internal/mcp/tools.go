package mcp

import (
	"github.com/zoonderkins/augment-lite/internal/fileops"
	"github.com/zoonderkins/augment-lite/internal/index"
	"github.com/zoonderkins/augment-lite/internal/memory"
	"github.com/zoonderkins/augment-lite/internal/search"
	"github.com/zoonderkins/augment-lite/internal/store"
)

// RagSearchInput is the input schema for rag.search.
type RagSearchInput struct {
	Query        string `json:"query" jsonschema:"the search query to execute"`
	K            int    `json:"k,omitempty" jsonschema:"number of results, default 8"`
	UseSubagent  *bool  `json:"use_subagent,omitempty" jsonschema:"enable LLM re-ranking, default true"`
	UseIterative bool   `json:"use_iterative,omitempty" jsonschema:"enable multi-round query expansion"`
	AutoIndex    *bool  `json:"auto_index,omitempty" jsonschema:"refresh the index before searching, default true"`
}

// RagSearchOutput is the output schema for rag.search.
type RagSearchOutput struct {
	OK         bool         `json:"ok"`
	Error      string       `json:"error,omitempty"`
	Suggestion string       `json:"suggestion,omitempty"`
	Hits       []*store.Hit `json:"hits"`
}

// DualSearchInput is the input schema for dual.search.
type DualSearchInput struct {
	Query         string `json:"query" jsonschema:"the search query to execute"`
	K             int    `json:"k,omitempty" jsonschema:"number of results per engine, default 8"`
	UseSubagent   *bool  `json:"use_subagent,omitempty" jsonschema:"enable LLM re-ranking, default true"`
	UseIterative  bool   `json:"use_iterative,omitempty" jsonschema:"enable multi-round query expansion"`
	IncludeAuggie *bool  `json:"include_auggie,omitempty" jsonschema:"include the external engine when configured, default true"`
	AutoRebuild   *bool  `json:"auto_rebuild,omitempty" jsonschema:"refresh the index before searching, default true"`
}

// DualSourceInfo describes one engine's contribution.
type DualSourceInfo struct {
	Count     int          `json:"count"`
	Results   []*store.Hit `json:"results"`
	Available bool         `json:"available,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// DualSearchOutput is the output schema for dual.search.
type DualSearchOutput struct {
	OK              bool                      `json:"ok"`
	Error           string                    `json:"error,omitempty"`
	Hits            []*store.Hit              `json:"hits"`
	Sources         map[string]DualSourceInfo `json:"sources"`
	AuggieAvailable bool                      `json:"auggie_available"`
	AuggieHint      string                    `json:"auggie_hint,omitempty"`
	IndexRebuilt    bool                      `json:"index_rebuilt"`
	RebuildInfo     *index.Stats              `json:"rebuild_info,omitempty"`
}

// AnswerGenerateInput is the input schema for answer.generate.
type AnswerGenerateInput struct {
	Query       string   `json:"query" jsonschema:"the question to answer with citations"`
	TaskType    string   `json:"task_type,omitempty" jsonschema:"lookup, small_fix, refactor, reason, or implement; default lookup"`
	Route       string   `json:"route,omitempty" jsonschema:"route override or auto"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature, default 0.2"`
}

// AnswerOutput is the output schema for answer.generate and answer.accumulated.
type AnswerOutput struct {
	OK            bool                    `json:"ok"`
	Error         string                  `json:"error,omitempty"`
	Answer        string                  `json:"answer,omitempty"`
	Citations     []string                `json:"citations"`
	Cached        bool                    `json:"cached"`
	Abstained     bool                    `json:"abstained,omitempty"`
	SubQueries    []string                `json:"sub_queries,omitempty"`
	Metadata      []search.SubQueryResult `json:"search_metadata,omitempty"`
	EvidenceCount int                     `json:"evidence_count,omitempty"`
}

// AnswerAccumulatedInput is the input schema for answer.accumulated.
type AnswerAccumulatedInput struct {
	Query       string   `json:"query" jsonschema:"the complex question to answer"`
	SubQueries  []string `json:"sub_queries,omitempty" jsonschema:"pre-defined aspect sub-queries; auto-decomposed when omitted"`
	KPerQuery   int      `json:"k_per_query,omitempty" jsonschema:"results per sub-query, default 5"`
	Route       string   `json:"route,omitempty" jsonschema:"route override, default reason-large"`
	Temperature *float64 `json:"temperature,omitempty" jsonschema:"sampling temperature, default 0.2"`
}

// AnswerUnifiedInput is the input schema for answer.unified.
type AnswerUnifiedInput struct {
	Query         string   `json:"query" jsonschema:"the question to plan a unified search for"`
	SubQueries    []string `json:"sub_queries,omitempty" jsonschema:"pre-defined aspect sub-queries"`
	IncludeAuggie *bool    `json:"include_auggie,omitempty" jsonschema:"include the external engine step, default true"`
	Route         string   `json:"route,omitempty" jsonschema:"route for the final synthesis, default reason-large"`
}

// PlanStep is one step of a unified execution plan.
type PlanStep struct {
	Step        int            `json:"step"`
	Action      string         `json:"action"`
	Tool        string         `json:"tool,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
	Purpose     string         `json:"purpose"`
	StoreAs     string         `json:"store_as,omitempty"`
	Instruction string         `json:"instruction,omitempty"`
	Route       string         `json:"route,omitempty"`
}

// AnswerUnifiedOutput is the plan-only response: the caller executes it.
type AnswerUnifiedOutput struct {
	OK            bool       `json:"ok"`
	Error         string     `json:"error,omitempty"`
	PlanType      string     `json:"plan_type,omitempty"`
	Query         string     `json:"query,omitempty"`
	SubQueries    []string   `json:"sub_queries,omitempty"`
	TotalSteps    int        `json:"total_steps,omitempty"`
	Steps         []PlanStep `json:"steps,omitempty"`
	ExecutionHint string     `json:"execution_hint,omitempty"`
}

// ProjectInitInput is the input schema for project.init.
type ProjectInitInput struct {
	Project     string `json:"project,omitempty" jsonschema:"project name, or auto to derive from the working directory"`
	BuildVector *bool  `json:"build_vector,omitempty" jsonschema:"build the vector index, default true"`
}

// ProjectInitOutput is the output schema for project.init.
type ProjectInitOutput struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Project string       `json:"project,omitempty"`
	Root    string       `json:"root,omitempty"`
	Stats   *index.Stats `json:"stats,omitempty"`
}

// ProjectStatusInput is the input schema for project.status.
type ProjectStatusInput struct{}

// ProjectStatusEntry describes one registered project.
type ProjectStatusEntry struct {
	Name   string `json:"name"`
	ID     string `json:"id"`
	Root   string `json:"root"`
	Active bool   `json:"active"`
}

// ProjectStatusOutput is the output schema for project.status.
type ProjectStatusOutput struct {
	OK       bool                 `json:"ok"`
	Error    string               `json:"error,omitempty"`
	Projects []ProjectStatusEntry `json:"projects"`
}

// IndexStatusInput is the input schema for index.status.
type IndexStatusInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name, default auto"`
}

// IndexStatusOutput is the output schema for index.status.
type IndexStatusOutput struct {
	OK          bool   `json:"ok"`
	Error       string `json:"error,omitempty"`
	Project     string `json:"project,omitempty"`
	ChunkCount  int    `json:"chunk_count"`
	BM25Count   int    `json:"bm25_count"`
	VectorCount int    `json:"vector_count"`
	HasVector   bool   `json:"has_vector"`
}

// IndexRebuildInput is the input schema for index.rebuild.
type IndexRebuildInput struct {
	Project    string `json:"project,omitempty" jsonschema:"project name, default auto"`
	VectorOnly bool   `json:"vector_only,omitempty" jsonschema:"rebuild only the vector index"`
}

// IndexRebuildOutput is the output schema for index.rebuild.
type IndexRebuildOutput struct {
	OK    bool         `json:"ok"`
	Error string       `json:"error,omitempty"`
	Stats *index.Stats `json:"stats,omitempty"`
}

// CacheClearInput is the input schema for cache.clear.
type CacheClearInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name, auto, or all"`
}

// CacheClearOutput is the output schema for cache.clear.
type CacheClearOutput struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Cleared string `json:"cleared,omitempty"`
}

// CacheStatusInput is the input schema for cache.status.
type CacheStatusInput struct{}

// CacheStatusOutput is the output schema for cache.status.
type CacheStatusOutput struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Entries map[string]int `json:"entries,omitempty"`
}

// MemoryGetInput is the input schema for memory.get.
type MemoryGetInput struct {
	Key     string `json:"key" jsonschema:"memory key"`
	Project string `json:"project,omitempty" jsonschema:"project name; auto or empty resolves the active project (global when none)"`
}

// MemoryGetOutput is the output schema for memory.get.
type MemoryGetOutput struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Value   string `json:"value,omitempty"`
	Found   bool   `json:"found"`
	Project string `json:"project"`
}

// MemorySetInput is the input schema for memory.set.
type MemorySetInput struct {
	Key     string `json:"key" jsonschema:"memory key"`
	Value   string `json:"value" jsonschema:"memory value"`
	Project string `json:"project,omitempty" jsonschema:"project name; auto or empty resolves the active project (global when none)"`
}

// MemorySetOutput is the output schema for memory.set and memory.delete.
type MemorySetOutput struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Project string `json:"project"`
}

// MemoryDeleteInput is the input schema for memory.delete.
type MemoryDeleteInput struct {
	Key     string `json:"key" jsonschema:"memory key"`
	Project string `json:"project,omitempty" jsonschema:"project name; auto or empty resolves the active project (global when none)"`
}

// MemoryListInput is the input schema for memory.list.
type MemoryListInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name; auto or empty resolves the active project (global when none)"`
}

// MemoryListOutput is the output schema for memory.list.
type MemoryListOutput struct {
	OK      bool           `json:"ok"`
	Error   string         `json:"error,omitempty"`
	Items   []memory.Entry `json:"items"`
	Count   int            `json:"count"`
	Project string         `json:"project"`
}

// TaskAddInput is the input schema for task.add.
type TaskAddInput struct {
	Title       string `json:"title" jsonschema:"task title"`
	Description string `json:"description,omitempty" jsonschema:"task description"`
	Priority    int    `json:"priority,omitempty" jsonschema:"higher sorts first"`
	ParentID    *int64 `json:"parent_id,omitempty" jsonschema:"parent task id"`
	Project     string `json:"project,omitempty" jsonschema:"project name, default auto"`
}

// TaskAddOutput is the output schema for task.add.
type TaskAddOutput struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	TaskID  int64  `json:"task_id,omitempty"`
	Project string `json:"project"`
}

// TaskListInput is the input schema for task.list.
type TaskListInput struct {
	Status  string `json:"status,omitempty" jsonschema:"filter by status"`
	Project string `json:"project,omitempty" jsonschema:"project name, default auto"`
}

// TaskListOutput is the output schema for task.list.
type TaskListOutput struct {
	OK    bool           `json:"ok"`
	Error string         `json:"error,omitempty"`
	Tasks []*memory.Task `json:"tasks"`
	Count int            `json:"count"`
}

// TaskGetInput is the input schema for task.get, task.resume, task.delete.
type TaskGetInput struct {
	TaskID         int64  `json:"task_id" jsonschema:"task id"`
	Project        string `json:"project,omitempty" jsonschema:"project name, default auto"`
	DeleteSubtasks bool   `json:"delete_subtasks,omitempty" jsonschema:"for task.delete: also remove subtasks"`
}

// TaskOutput is the output schema for single-task operations.
type TaskOutput struct {
	OK      bool         `json:"ok"`
	Error   string       `json:"error,omitempty"`
	Task    *memory.Task `json:"task,omitempty"`
	Message string       `json:"message,omitempty"`
}

// TaskUpdateInput is the input schema for task.update.
type TaskUpdateInput struct {
	TaskID      int64   `json:"task_id" jsonschema:"task id"`
	Title       *string `json:"title,omitempty" jsonschema:"new title"`
	Description *string `json:"description,omitempty" jsonschema:"new description"`
	Status      *string `json:"status,omitempty" jsonschema:"pending, in_progress, completed, or cancelled"`
	Priority    *int    `json:"priority,omitempty" jsonschema:"new priority"`
	Project     string  `json:"project,omitempty" jsonschema:"project name, default auto"`
}

// TaskStatsInput is the input schema for task.stats.
type TaskStatsInput struct {
	Project string `json:"project,omitempty" jsonschema:"project name, default auto"`
}

// TaskStatsOutput is the output schema for task.stats.
type TaskStatsOutput struct {
	OK    bool              `json:"ok"`
	Error string            `json:"error,omitempty"`
	Stats *memory.TaskStats `json:"stats,omitempty"`
}

// FileReadInput is the input schema for file.read.
type FileReadInput struct {
	Path      string `json:"path" jsonschema:"file path relative to the project root"`
	StartLine int    `json:"start_line,omitempty" jsonschema:"1-indexed first line"`
	EndLine   int    `json:"end_line,omitempty" jsonschema:"1-indexed last line, inclusive"`
}

// FileReadOutput is the output schema for file.read.
type FileReadOutput struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error,omitempty"`
	Content string `json:"content,omitempty"`
}

// FileListInput is the input schema for file.list.
type FileListInput struct {
	Path string `json:"path,omitempty" jsonschema:"directory relative to the project root, default ."`
}

// FileListOutput is the output schema for file.list.
type FileListOutput struct {
	OK      bool               `json:"ok"`
	Error   string             `json:"error,omitempty"`
	Entries []fileops.DirEntry `json:"entries"`
}

// FileFindInput is the input schema for file.find.
type FileFindInput struct {
	Pattern    string `json:"pattern" jsonschema:"doublestar glob, e.g. src/**/*.go"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"result cap, default 100"`
}

// FileFindOutput is the output schema for file.find.
type FileFindOutput struct {
	OK    bool     `json:"ok"`
	Error string   `json:"error,omitempty"`
	Files []string `json:"files"`
}

// SearchPatternInput is the input schema for search.pattern.
type SearchPatternInput struct {
	Pattern       string `json:"pattern" jsonschema:"regex pattern"`
	FileGlob      string `json:"file_glob,omitempty" jsonschema:"restrict searched files, default **/*"`
	ContextLines  int    `json:"context_lines,omitempty" jsonschema:"context lines around each match, default 2"`
	MaxResults    int    `json:"max_results,omitempty" jsonschema:"result cap, default 50"`
	CaseSensitive *bool  `json:"case_sensitive,omitempty" jsonschema:"default true"`
}

// SearchPatternOutput is the output schema for search.pattern and
// code.references.
type SearchPatternOutput struct {
	OK      bool                   `json:"ok"`
	Error   string                 `json:"error,omitempty"`
	Matches []fileops.PatternMatch `json:"matches"`
}

// CodeSymbolsInput is the input schema for code.symbols.
type CodeSymbolsInput struct {
	Path string `json:"path" jsonschema:"file path relative to the project root"`
}

// CodeSymbolsOutput is the output schema for code.symbols and code.find_symbol.
type CodeSymbolsOutput struct {
	OK      bool             `json:"ok"`
	Error   string           `json:"error,omitempty"`
	Symbols []fileops.Symbol `json:"symbols"`
}

// CodeFindSymbolInput is the input schema for code.find_symbol.
type CodeFindSymbolInput struct {
	Name       string `json:"name" jsonschema:"symbol name to locate"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"result cap, default 20"`
}

// CodeReferencesInput is the input schema for code.references.
type CodeReferencesInput struct {
	Symbol     string `json:"symbol" jsonschema:"symbol to find references to"`
	FileGlob   string `json:"file_glob,omitempty" jsonschema:"restrict searched files"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"result cap, default 50"`
}
