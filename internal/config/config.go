package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the pdfrag service configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	LLM        LLMConfig        `yaml:"llm"`
	Chunking   ChunkingConfig   `yaml:"chunking"`
	Collection CollectionConfig `yaml:"collection"`
	Ingest     IngestConfig     `yaml:"ingest"`
	Query      QueryConfig      `yaml:"query"`
	Workflow   WorkflowConfig   `yaml:"workflow"`
	Auth       AuthConfig       `yaml:"auth"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings. No keys disables auth.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig selects the vector engine.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, valkey, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig points at an OpenAI-compatible embeddings endpoint.
type EmbeddingConfig struct {
	BaseURL      string `yaml:"base_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	Dimensions   int    `yaml:"dimensions"` // 0 = provider default
	Provider     string `yaml:"provider"`   // metrics label
	CacheTTL     int    `yaml:"cache_ttl_sec"`
	DisableCache bool   `yaml:"disable_cache"`
}

// LLMConfig points at an OpenAI-compatible chat completions endpoint.
type LLMConfig struct {
	BaseURL     string  `yaml:"base_url"`
	APIKey      string  `yaml:"api_key"`
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
}

// ChunkingConfig holds splitter parameters, measured in runes.
type ChunkingConfig struct {
	ChunkSize int `yaml:"chunk_size"`
	Overlap   int `yaml:"overlap"`
}

// CollectionConfig names the vector collection and its HNSW parameters.
type CollectionConfig struct {
	Name            string `yaml:"name"`
	HNSWM           int    `yaml:"hnsw_m"`
	HNSWEFConstruct int    `yaml:"hnsw_ef_construction"`
}

// IngestConfig holds ingestion options.
type IngestConfig struct {
	// PruneStale deletes chunks of a source that a re-ingest no longer produces.
	PruneStale bool `yaml:"prune_stale"`
	// BatchSize is the number of chunks embedded and stored per memoized step.
	BatchSize int `yaml:"batch_size"`
}

// QueryConfig holds query defaults.
type QueryConfig struct {
	DefaultTopK int `yaml:"default_top_k"`
	MaxTopK     int `yaml:"max_top_k"`
}

// WorkflowConfig controls step retries and memoization.
type WorkflowConfig struct {
	MaxAttempts       int `yaml:"max_attempts"`
	InitialIntervalMs int `yaml:"initial_interval_ms"`
	MaxIntervalMs     int `yaml:"max_interval_ms"`
	StepTimeoutSec    int `yaml:"step_timeout_sec"`
	MemoTTLSec        int `yaml:"memo_ttl_sec"`
	// MemoMaxEntries bounds the in-process memo of the memory driver.
	MemoMaxEntries int `yaml:"memo_max_entries"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it and applies defaults.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 300
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.Driver == "" {
		c.Database.Driver = DriverRedis
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Embedding.Provider == "" {
		c.Embedding.Provider = "openai"
	}
	if c.Embedding.CacheTTL <= 0 {
		c.Embedding.CacheTTL = 7 * 24 * 3600
	}
	if c.LLM.MaxTokens <= 0 {
		c.LLM.MaxTokens = 1024
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.2
	}
	// an explicit chunk_size keeps an explicit (or zero) overlap
	if c.Chunking.ChunkSize <= 0 {
		c.Chunking.ChunkSize = 1000
		if c.Chunking.Overlap == 0 {
			c.Chunking.Overlap = 200
		}
	}
	if c.Collection.Name == "" {
		c.Collection.Name = "docs"
	}
	if c.Collection.HNSWM <= 0 {
		c.Collection.HNSWM = 16
	}
	if c.Collection.HNSWEFConstruct <= 0 {
		c.Collection.HNSWEFConstruct = 200
	}
	if c.Query.DefaultTopK <= 0 {
		c.Query.DefaultTopK = 5
	}
	if c.Query.MaxTopK <= 0 {
		c.Query.MaxTopK = 100
	}
	if c.Workflow.MaxAttempts <= 0 {
		c.Workflow.MaxAttempts = 4
	}
	if c.Workflow.InitialIntervalMs <= 0 {
		c.Workflow.InitialIntervalMs = 500
	}
	if c.Workflow.MaxIntervalMs <= 0 {
		c.Workflow.MaxIntervalMs = 10_000
	}
	if c.Workflow.StepTimeoutSec <= 0 {
		c.Workflow.StepTimeoutSec = 120
	}
	if c.Workflow.MemoTTLSec <= 0 {
		c.Workflow.MemoTTLSec = 24 * 3600
	}
	if c.Ingest.BatchSize <= 0 {
		c.Ingest.BatchSize = 64
	}
	if c.Workflow.MemoMaxEntries <= 0 {
		c.Workflow.MemoMaxEntries = 1024
	}
}

// Database drivers.
const (
	DriverRedis  = "redis"
	DriverValkey = "valkey"
	DriverMemory = "memory"
)

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case DriverRedis, DriverValkey:
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for driver %q", c.Database.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("database.driver must be one of redis, valkey, memory, got %q", c.Database.Driver)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions < 0 {
		return fmt.Errorf("embedding.dimensions must not be negative, got %d", c.Embedding.Dimensions)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.ChunkSize {
		return fmt.Errorf("chunking.overlap must be in [0, %d), got %d", c.Chunking.ChunkSize, c.Chunking.Overlap)
	}
	if c.Query.DefaultTopK > c.Query.MaxTopK {
		return fmt.Errorf("query.default_top_k %d exceeds query.max_top_k %d", c.Query.DefaultTopK, c.Query.MaxTopK)
	}
	return nil
}

// StepTimeout returns the per-attempt step timeout.
func (w WorkflowConfig) StepTimeout() time.Duration {
	return time.Duration(w.StepTimeoutSec) * time.Second
}

// MemoTTL returns how long step outputs are kept.
func (w WorkflowConfig) MemoTTL() time.Duration {
	return time.Duration(w.MemoTTLSec) * time.Second
}

// InitialInterval returns the first retry delay.
func (w WorkflowConfig) InitialInterval() time.Duration {
	return time.Duration(w.InitialIntervalMs) * time.Millisecond
}

// MaxInterval caps the retry delay.
func (w WorkflowConfig) MaxInterval() time.Duration {
	return time.Duration(w.MaxIntervalMs) * time.Millisecond
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// relative to this source file, for tests and `go run` from a subdirectory
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b)))
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// envVarRegex matches ${VAR} and ${VAR:-default}.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1])
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
