// Package config loads and validates augment-lite configuration.
//
// Precedence: hardcoded defaults, then the embedded models.yaml, then an
// optional models.yaml in the data directory, then environment variables
// (AUGMENT_DB_DIR, AUGMENT_DEBUG).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/zoonderkins/augment-lite/configs"
)

// EnvDataDir overrides the data directory.
const EnvDataDir = "AUGMENT_DB_DIR"

// EnvDebug enables verbose error payloads and debug logging.
const EnvDebug = "AUGMENT_DEBUG"

// Config is the complete augment-lite configuration.
type Config struct {
	// DataDir is where all per-project stores live. Default: ./data.
	DataDir string `yaml:"data_dir"`

	// Debug enables verbose error payloads.
	Debug bool `yaml:"debug"`

	Search     SearchConfig     `yaml:"search"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Cache      CacheConfig      `yaml:"cache"`
	Iterative  IterativeConfig  `yaml:"iterative"`
	Models     ModelsConfig     `yaml:"models"`
}

// SearchConfig configures hybrid retrieval.
type SearchConfig struct {
	// BM25Weight and VectorWeight control score fusion. They default to 0.5
	// each and are applied after per-source max normalization.
	BM25Weight   float64 `yaml:"bm25_weight"`
	VectorWeight float64 `yaml:"vector_weight"`

	// BM25Backend selects the BM25 index backend: "sqlite" (default) or "bleve".
	BM25Backend string `yaml:"bm25_backend"`

	// PerFileLimit caps chunks per file after fusion (same-file dedup).
	PerFileLimit int `yaml:"per_file_limit"`

	// SubagentModel is the provider alias used for LLM re-ranking.
	SubagentModel string `yaml:"subagent_model"`
}

// ChunkingConfig configures the file chunker.
type ChunkingConfig struct {
	CodeWindow  int `yaml:"code_window"`  // lines per code chunk (default 50)
	CodeOverlap int `yaml:"code_overlap"` // overlapping lines (default 10)
	DocWindow   int `yaml:"doc_window"`   // tokens per doc chunk (default 256)
	DocOverlap  int `yaml:"doc_overlap"`  // overlapping tokens (default 32)

	// MaxFileSize is the per-file size cap in bytes (default 1 MiB).
	MaxFileSize int64 `yaml:"max_file_size"`
}

// EmbeddingsConfig configures the embedding provider.
type EmbeddingsConfig struct {
	// Provider is "api" (remote OpenAI-style endpoint with local fallback)
	// or "ollama" (local only).
	Provider string `yaml:"provider"`

	// BaseURL is the OpenAI-style endpoint serving /embeddings.
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string `yaml:"api_key_env"`

	// Model is the remote embedding model name.
	Model string `yaml:"model"`

	// Dimensions is the expected embedding dimension. A provider returning a
	// different width is a fatal configuration error during index builds.
	Dimensions int `yaml:"dimensions"`

	// BatchSize is texts per remote request (default 10).
	BatchSize int `yaml:"batch_size"`

	// OllamaHost is the local fallback endpoint (default http://localhost:11434).
	OllamaHost string `yaml:"ollama_host"`

	// OllamaModel is the local sentence-embedding model.
	OllamaModel string `yaml:"ollama_model"`
}

// CacheConfig configures the response caches.
type CacheConfig struct {
	// AnswerTTL is how long generated answers stay cached.
	AnswerTTL time.Duration `yaml:"answer_ttl"`

	// SemanticThreshold is the minimum cosine similarity for a semantic hit.
	SemanticThreshold float64 `yaml:"semantic_threshold"`
}

// IterativeConfig configures multi-round retrieval.
type IterativeConfig struct {
	MaxIterations   int     `yaml:"max_iterations"`
	MinQualityScore float64 `yaml:"min_quality_score"`
	MinResults      int     `yaml:"min_results"`
}

// ModelsConfig is the routing table loaded from models.yaml.
type ModelsConfig struct {
	Providers  map[string]Provider `yaml:"providers"`
	Routes     map[string]Route    `yaml:"routes"`
	Thresholds Thresholds          `yaml:"routing_thresholds"`
	Defaults   RouteDefaults       `yaml:"defaults"`
	Floors     []OutputFloor       `yaml:"output_floors"`
}

// Provider binds an alias to an OpenAI-compatible endpoint.
type Provider struct {
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
	ModelID   string `yaml:"model_id"`
}

// Route binds a provider alias and an output budget.
type Route struct {
	Model           string `yaml:"model"`
	MaxOutputTokens int    `yaml:"max_output_tokens"`
}

// Thresholds are the token-estimate breakpoints for auto route selection.
type Thresholds struct {
	SmallMaxTokens       int `yaml:"small_max_tokens"`
	BigMidMaxTokens      int `yaml:"big_mid_max_tokens"`
	LongContextMaxTokens int `yaml:"long_context_max_tokens"`
}

// RouteDefaults are fallbacks applied when a route omits a value.
type RouteDefaults struct {
	MaxOutputTokens int `yaml:"max_output_tokens"`
}

// OutputFloor enforces a minimum output budget for models matching a
// substring pattern.
type OutputFloor struct {
	Pattern   string `yaml:"pattern"`
	MinTokens int    `yaml:"min_tokens"`
}

// New returns a Config populated with defaults and the embedded routing table.
func New() *Config {
	cfg := &Config{
		DataDir: "./data",
		Search: SearchConfig{
			BM25Weight:    0.5,
			VectorWeight:  0.5,
			BM25Backend:   "sqlite",
			PerFileLimit:  2,
			SubagentModel: "gemini-local",
		},
		Chunking: ChunkingConfig{
			CodeWindow:  50,
			CodeOverlap: 10,
			DocWindow:   256,
			DocOverlap:  32,
			MaxFileSize: 1 << 20,
		},
		Embeddings: EmbeddingsConfig{
			Provider:    "api",
			BaseURL:     "https://api.openai.com/v1",
			APIKeyEnv:   "OPENAI_API_KEY",
			Model:       "text-embedding-3-small",
			Dimensions:  1536,
			BatchSize:   10,
			OllamaHost:  "http://localhost:11434",
			OllamaModel: "nomic-embed-text",
		},
		Cache: CacheConfig{
			AnswerTTL:         7200 * time.Second,
			SemanticThreshold: 0.95,
		},
		Iterative: IterativeConfig{
			MaxIterations:   3,
			MinQualityScore: 0.7,
			MinResults:      5,
		},
	}

	// Embedded routing table is always parseable; a failure here is a build
	// defect, not a runtime condition.
	if err := yaml.Unmarshal(configs.ModelsYAML, &cfg.Models); err != nil {
		panic(fmt.Sprintf("embedded models.yaml invalid: %v", err))
	}

	return cfg
}

// Load builds the effective configuration: defaults, an optional models.yaml
// override in the data directory, then environment variables.
func Load() (*Config, error) {
	cfg := New()

	if dir := os.Getenv(EnvDataDir); dir != "" {
		cfg.DataDir = dir
	}
	if strings.EqualFold(os.Getenv(EnvDebug), "true") {
		cfg.Debug = true
	}

	override := filepath.Join(cfg.DataDir, "models.yaml")
	if data, err := os.ReadFile(override); err == nil {
		var models ModelsConfig
		if err := yaml.Unmarshal(data, &models); err != nil {
			return nil, fmt.Errorf("invalid models config %s: %w", override, err)
		}
		cfg.Models = models
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks invariants that would otherwise fail deep inside a search.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir must not be empty")
	}
	if c.Search.BM25Weight < 0 || c.Search.VectorWeight < 0 {
		return fmt.Errorf("search weights must be non-negative")
	}
	if c.Embeddings.Dimensions <= 0 {
		return fmt.Errorf("embeddings.dimensions must be positive")
	}
	if c.Embeddings.BatchSize <= 0 {
		c.Embeddings.BatchSize = 10
	}
	if len(c.Models.Routes) == 0 {
		return fmt.Errorf("models config has no routes")
	}
	if _, ok := c.Models.Routes["general"]; !ok {
		return fmt.Errorf("models config must define a general route")
	}
	return nil
}

// EnsureDataDir creates the data directory if missing.
func (c *Config) EnsureDataDir() error {
	return os.MkdirAll(c.DataDir, 0o755)
}
