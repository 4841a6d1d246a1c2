package regsage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/regsage/regsage/agent"
	"github.com/regsage/regsage/llm"
	"github.com/regsage/regsage/retrieval"
)

// Config holds all configuration for the RegSage engine.
type Config struct {
	// DBPath is the full path to the SQLite database file.
	// If empty, defaults to ~/.regsage/<DBName>.db
	DBPath string `json:"db_path" yaml:"db_path"`

	// DBName is the name for the database (used when DBPath is empty).
	// Defaults to "regsage". The file will be <DBName>.db inside the
	// storage directory (~/.regsage/ or working dir).
	DBName string `json:"db_name" yaml:"db_name"`

	// StorageDir controls where the database is created when DBPath
	// is not explicitly set. Options: "home" (default) uses ~/.regsage/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// LLM providers
	Chat      llm.Config `json:"chat" yaml:"chat"`
	Embedding llm.Config `json:"embedding" yaml:"embedding"`
	Master    llm.Config `json:"master" yaml:"master"` // optional: separate model for routing and synthesis (defaults to Chat)

	// Embedding dimensions (must match model)
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`

	// Retrieval
	RetrievalStrategy string  `json:"retrieval_strategy" yaml:"retrieval_strategy"` // lexical (default) or hybrid
	RetrievalTopK     int     `json:"retrieval_top_k" yaml:"retrieval_top_k"`
	WeightLexical     float64 `json:"weight_lexical" yaml:"weight_lexical"`
	WeightSemantic    float64 `json:"weight_semantic" yaml:"weight_semantic"`

	// Ingestion
	IngestConcurrency int     `json:"ingest_concurrency" yaml:"ingest_concurrency"` // Max parallel documents in a batch (default 4)
	EmbedRPS          float64 `json:"embed_rps" yaml:"embed_rps"`                   // Embedding calls per second, 0 = unlimited
	WarmBatchSize     int     `json:"warm_batch_size" yaml:"warm_batch_size"`       // Documents per index warm-up batch (default 50)
	WarmPauseMS       int     `json:"warm_pause_ms" yaml:"warm_pause_ms"`           // Pause between warm-up batches (default 100)

	// Routing
	AutoRoute           bool `json:"auto_route" yaml:"auto_route"`                       // Default when a request does not say; DefaultConfig enables it
	AgentTimeoutSeconds int  `json:"agent_timeout_seconds" yaml:"agent_timeout_seconds"` // Per-agent answer deadline, 0 = none

	// Agents overrides the built-in jurisdiction catalog when non-empty.
	Agents []agent.Config `json:"agents,omitempty" yaml:"agents,omitempty"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Database is stored in ~/.regsage/regsage.db by default.
func DefaultConfig() Config {
	return Config{
		DBName:     "regsage",
		StorageDir: "home",
		Chat: llm.Config{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: llm.Config{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		EmbeddingDim:      768,
		RetrievalStrategy: retrieval.StrategyLexical,
		RetrievalTopK:     5,
		WeightLexical:     1.0,
		WeightSemantic:    1.0,
		IngestConcurrency: 4,
		WarmBatchSize:     50,
		WarmPauseMS:       100,
		AutoRoute:         true,
	}
}

// LoadConfig reads a JSON or YAML file and overlays it on DefaultConfig,
// so omitted keys keep their defaults. The format is chosen by extension.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	default:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
	}
	return cfg, nil
}

// resolveDBPath computes the final database path from config fields.
func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}

	name := c.DBName
	if name == "" {
		name = "regsage"
	}

	switch c.StorageDir {
	case "local", "cwd":
		return name + ".db"
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return name + ".db" // fallback to cwd
		}
		dir := filepath.Join(home, ".regsage")
		return filepath.Join(dir, name+".db")
	}
}

// masterConfig returns the provider config used for routing, clarification,
// synthesis, and follow-up questions.
func (c *Config) masterConfig() llm.Config {
	if c.Master.Provider != "" {
		return c.Master
	}
	return c.Chat
}

// catalog returns the agent catalog in effect.
func (c *Config) catalog() []agent.Config {
	if len(c.Agents) > 0 {
		return c.Agents
	}
	return agent.DefaultCatalog()
}
